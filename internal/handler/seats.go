package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-seat-booking/internal/auth"
	"github.com/iliyamo/office-seat-booking/internal/middleware"
	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/repository"
	"github.com/iliyamo/office-seat-booking/internal/service"
)

// SeatLedger is the booking surface the handlers need.  *service.Ledger
// satisfies it.
type SeatLedger interface {
	List(ctx context.Context) ([]model.Seat, error)
	Book(ctx context.Context, req service.BookRequest) (service.Confirmation, error)
	Release(ctx context.Context, seatID int, id auth.Identity, isAdmin bool) (service.Confirmation, error)
	Holdings(ctx context.Context, w3ID string) (*model.Employee, error)
}

// SeatHandler serves the seat ledger and the caller's profile.
type SeatHandler struct {
	Ledger SeatLedger
	// IsAdmin reports whether an employee may release seats held by others.
	IsAdmin func(w3ID string) bool
	// Invalidate runs after every successful write, typically dropping
	// the cached seat list.
	Invalidate func(ctx context.Context) error
}

type bookReq struct {
	SeatID   int    `json:"seat_id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	// W3ID is accepted for client compatibility and ignored; the booker
	// is always the authenticated caller.
	W3ID string `json:"w3_id"`
}

// List returns every seat ordered by id.
func (h *SeatHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	seats, err := h.Ledger.List(ctx)
	if err != nil {
		return ledgerError(c, "list", err)
	}
	return c.JSON(http.StatusOK, seats)
}

// Book occupies a seat for the caller.
func (h *SeatHandler) Book(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil || req.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.W3ID != "" && !strings.EqualFold(req.W3ID, id.W3ID) {
		log.Printf("[SEATS] action=book msg=ignoring body w3_id caller=%s body=%s", id.W3ID, req.W3ID)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	conf, err := h.Ledger.Book(ctx, service.BookRequest{
		SeatID:   req.SeatID,
		Identity: id,
		Name:     strings.TrimSpace(req.Name),
		Date:     strings.TrimSpace(req.Date),
		TimeSlot: strings.TrimSpace(req.TimeSlot),
	})
	if err != nil {
		return ledgerError(c, "book", err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, conf)
}

// Release frees the seat named in the path.
func (h *SeatHandler) Release(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	seatID, err := strconv.Atoi(c.Param("seat_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	admin := h.IsAdmin != nil && h.IsAdmin(id.W3ID)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	conf, err := h.Ledger.Release(ctx, seatID, id, admin)
	if err != nil {
		return ledgerError(c, "release", err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, conf)
}

// Me returns the caller's profile with booking history and current seats.
func (h *SeatHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	e, err := h.Ledger.Holdings(ctx, id.W3ID)
	if err != nil {
		return ledgerError(c, "me", err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *SeatHandler) invalidate(ctx context.Context) {
	if h.Invalidate == nil {
		return
	}
	if err := h.Invalidate(ctx); err != nil {
		log.Printf("[SEATS] action=invalidate msg=cache not cleared err=%v", err)
	}
}

// ledgerError maps ledger failures to their stable HTTP responses.
func ledgerError(c echo.Context, action string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Seat not found"})
	case errors.Is(err, repository.ErrSeatUnavailable):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Seat unavailable"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Seat held by another employee"})
	case errors.Is(err, repository.ErrEmployeeNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Employee not found"})
	case errors.Is(err, auth.ErrNoIdentity):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	log.Printf("[SEATS] action=%s msg=internal error err=%v", action, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/auth"
	"github.com/iliyamo/office-seat-booking/internal/model"
	"github.com/iliyamo/office-seat-booking/internal/queue"
	"github.com/iliyamo/office-seat-booking/internal/repository"
)

// BookRequest asks for one seat on behalf of a verified identity.  Name,
// Date and TimeSlot are descriptive only; the ledger does not check them
// for conflicts.
type BookRequest struct {
	SeatID   int
	Identity auth.Identity
	Name     string
	Date     string
	TimeSlot string
}

// Confirmation is returned by successful book and release calls.
type Confirmation struct {
	Message string      `json:"message"`
	Seat    *model.Seat `json:"seat"`
}

// Ledger owns the fixed pool of seats.  A seat is either available or held
// by exactly one employee; every transition is a single conditional write
// in the store, so concurrent requests for the same seat have one winner.
type Ledger struct {
	seats     SeatStore
	employees EmployeeStore
	events    EventPublisher
	seatCount int
	seatPrice int
	now       func() time.Time
}

func NewLedger(seats SeatStore, employees EmployeeStore, events EventPublisher, seatCount, seatPrice int) *Ledger {
	if events == nil {
		events = NopPublisher{}
	}
	return &Ledger{
		seats:     seats,
		employees: employees,
		events:    events,
		seatCount: seatCount,
		seatPrice: seatPrice,
		now:       time.Now,
	}
}

// Seed creates seats 1..seatCount, all available, when the ledger is
// empty.  Running it against a populated ledger changes nothing.
func (l *Ledger) Seed(ctx context.Context) error {
	n, err := l.seats.Count(ctx)
	if err != nil {
		return fmt.Errorf("count seats: %w", err)
	}
	if n > 0 {
		log.Printf("[LEDGER] action=seed msg=skipped existing=%d", n)
		return nil
	}
	seats := make([]model.Seat, 0, l.seatCount)
	for id := 1; id <= l.seatCount; id++ {
		seats = append(seats, model.Seat{ID: id, Status: model.SeatAvailable, Price: l.seatPrice})
	}
	if err := l.seats.CreateBulk(ctx, seats); err != nil {
		return fmt.Errorf("seed seats: %w", err)
	}
	log.Printf("[LEDGER] action=seed msg=created count=%d price=%d", l.seatCount, l.seatPrice)
	return nil
}

// List returns every seat ordered by id.
func (l *Ledger) List(ctx context.Context) ([]model.Seat, error) {
	seats, err := l.seats.List(ctx)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return seats, nil
}

// Book occupies req.SeatID for req.Identity.  It fails with
// repository.ErrSeatNotFound or repository.ErrSeatUnavailable.
func (l *Ledger) Book(ctx context.Context, req BookRequest) (Confirmation, error) {
	w3ID := req.Identity.W3ID
	if w3ID == "" {
		return Confirmation{}, auth.ErrNoIdentity
	}
	if req.SeatID < 1 {
		return Confirmation{}, repository.ErrSeatNotFound
	}
	name := req.Name
	if name == "" {
		name = req.Identity.Name
	}
	details := &model.BookingDetails{Name: name, Date: req.Date, TimeSlot: req.TimeSlot}

	seat, err := l.seats.Occupy(ctx, req.SeatID, w3ID, details)
	if err != nil {
		if !errors.Is(err, repository.ErrSeatUnavailable) && !errors.Is(err, repository.ErrSeatNotFound) {
			log.Printf("[LEDGER] action=book msg=store error seat_id=%d w3_id=%s err=%v", req.SeatID, w3ID, err)
		}
		return Confirmation{}, err
	}
	now := l.now()
	// the seat is already held; a lost history row is not worth failing the booking
	if err := l.employees.AddBookedSeat(ctx, w3ID, seat.ID, now); err != nil {
		log.Printf("[LEDGER] action=book msg=history not recorded seat_id=%d w3_id=%s err=%v", seat.ID, w3ID, err)
	}
	log.Printf("[LEDGER] action=book msg=ok seat_id=%d w3_id=%s", seat.ID, w3ID)
	l.publish(ctx, queue.SeatEvent{
		Type:       queue.SeatBooked,
		SeatID:     seat.ID,
		W3ID:       w3ID,
		Name:       details.Name,
		Date:       details.Date,
		TimeSlot:   details.TimeSlot,
		OccurredAt: now.UTC(),
	})
	return Confirmation{Message: "Seat booked", Seat: seat}, nil
}

// Release frees seatID.  Only the holder may release an occupied seat
// unless isAdmin is set; anyone else gets repository.ErrForbidden.
// Releasing a seat that is already available succeeds without change.
func (l *Ledger) Release(ctx context.Context, seatID int, id auth.Identity, isAdmin bool) (Confirmation, error) {
	if id.W3ID == "" {
		return Confirmation{}, auth.ErrNoIdentity
	}
	if seatID < 1 {
		return Confirmation{}, repository.ErrSeatNotFound
	}
	seat, changed, err := l.seats.Vacate(ctx, seatID, id.W3ID, isAdmin)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrForbidden):
			log.Printf("[LEDGER] action=release msg=not holder seat_id=%d w3_id=%s", seatID, id.W3ID)
		case errors.Is(err, repository.ErrSeatNotFound):
		default:
			log.Printf("[LEDGER] action=release msg=store error seat_id=%d w3_id=%s err=%v", seatID, id.W3ID, err)
		}
		return Confirmation{}, err
	}
	if changed {
		log.Printf("[LEDGER] action=release msg=ok seat_id=%d w3_id=%s admin=%t", seatID, id.W3ID, isAdmin)
		l.publish(ctx, queue.SeatEvent{
			Type:       queue.SeatReleased,
			SeatID:     seatID,
			W3ID:       id.W3ID,
			OccurredAt: l.now().UTC(),
		})
	}
	return Confirmation{Message: "Seat released", Seat: seat}, nil
}

// Holdings returns the employee's profile with both the booking history and
// the seats currently held.
func (l *Ledger) Holdings(ctx context.Context, w3ID string) (*model.Employee, error) {
	e, err := l.employees.GetByW3ID(ctx, w3ID)
	if err != nil {
		return nil, err
	}
	current, err := l.seats.ListHeldBy(ctx, w3ID)
	if err != nil {
		return nil, err
	}
	if e.BookedSeats == nil {
		e.BookedSeats = []int{}
	}
	if current == nil {
		current = []int{}
	}
	e.CurrentSeats = current
	return e, nil
}

func (l *Ledger) publish(ctx context.Context, ev queue.SeatEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := l.events.Publish(ctx, ev); err != nil {
		log.Printf("[LEDGER] action=publish msg=event dropped type=%s seat_id=%d err=%v", ev.Type, ev.SeatID, err)
	}
}

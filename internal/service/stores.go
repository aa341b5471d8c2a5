// Package service holds the seat ledger and employee directory operations
// that sit between the HTTP handlers and the repositories.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// SeatStore is the persistence the ledger needs.  *repository.SeatRepo
// satisfies it.
type SeatStore interface {
	Count(ctx context.Context) (int, error)
	CreateBulk(ctx context.Context, seats []model.Seat) error
	List(ctx context.Context) ([]model.Seat, error)
	GetByID(ctx context.Context, id int) (*model.Seat, error)
	Occupy(ctx context.Context, id int, w3ID string, d *model.BookingDetails) (*model.Seat, error)
	Vacate(ctx context.Context, id int, w3ID string, force bool) (*model.Seat, bool, error)
	ListHeldBy(ctx context.Context, w3ID string) ([]int, error)
}

// EmployeeStore is the persistence the directory needs.
// *repository.EmployeeRepo satisfies it.
type EmployeeStore interface {
	RecordLogin(ctx context.Context, e model.Employee, now time.Time) error
	AddBookedSeat(ctx context.Context, w3ID string, seatID int, now time.Time) error
	GetByW3ID(ctx context.Context, w3ID string) (*model.Employee, error)
}

package model

import "time"

// Seat statuses.  A seat is either free to book or held by exactly one
// employee.
const (
	SeatAvailable = "available"
	SeatOccupied  = "occupied"
)

// Seat describes one bookable desk in the office.  IDs are assigned once
// when the ledger is seeded and never change.
//
// Invariant: BookedBy is non-nil iff Status == SeatOccupied.
type Seat struct {
	ID             int             `json:"id"`
	Status         string          `json:"status"`
	Price          int             `json:"price"`
	BookedBy       *string         `json:"booked_by"`
	BookingDetails *BookingDetails `json:"booking_details,omitempty"`
	UpdatedAt      time.Time       `json:"-"`
}

// BookingDetails is the optional context attached to a booking.
type BookingDetails struct {
	Name     string `json:"name"`
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

// Available reports whether the seat can be booked.
func (s Seat) Available() bool { return s.Status == SeatAvailable }

// Package repository implements MySQL persistence for the seat ledger and
// the employee directory.  The sentinel values below let higher layers
// tell the failure scenarios apart; handlers translate them into stable
// HTTP status codes.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat id does not exist in the ledger.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatUnavailable is returned when a booking loses to an existing or
// concurrent booking of the same seat.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrForbidden is returned when the caller tries to release a seat held by
// someone else.
var ErrForbidden = errors.New("forbidden")

// ErrEmployeeNotFound is returned when no employee exists for a w3_id.
var ErrEmployeeNotFound = errors.New("employee not found")

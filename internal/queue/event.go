// Package queue defines the seat event payload exchanged over RabbitMQ and
// the background consumer that writes the audit log.
package queue

import "time"

// SeatEventsQueue is the durable queue every seat event is published to.
const SeatEventsQueue = "seat.events"

// Event types.
const (
	SeatBooked   = "seat.booked"
	SeatReleased = "seat.released"
)

// SeatEvent is published after a seat changes state.  It carries enough for
// the audit consumer to log the change without reading the database.
type SeatEvent struct {
	Type       string    `json:"type"`
	SeatID     int       `json:"seat_id"`
	W3ID       string    `json:"w3_id"`
	Name       string    `json:"name,omitempty"`
	Date       string    `json:"date,omitempty"`
	TimeSlot   string    `json:"time_slot,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

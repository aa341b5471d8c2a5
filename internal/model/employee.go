package model

import "time"

// Employee is a W3ID user who has logged in at least once.  Profile
// attributes are captured on first login only; later logins refresh
// LastLoginAt.
//
// Fields:
//
//	W3ID         : stable provider-issued identity key (unique).
//	Email        : work email from the identity claims.
//	FullName     : display name from the identity claims.
//	Manager      : manager claim when the provider sends one.
//	Department   : department claim when the provider sends one.
//	FirstLoginAt : set once, when the record is created.
//	LastLoginAt  : refreshed on every login.
//	BookedSeats  : every seat id the employee has ever booked (history).
//	CurrentSeats : seats the employee holds right now.
type Employee struct {
	W3ID         string    `json:"w3_id"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Manager      string    `json:"manager,omitempty"`
	Department   string    `json:"department,omitempty"`
	FirstLoginAt time.Time `json:"first_login_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
	BookedSeats  []int     `json:"booked_seats"`
	CurrentSeats []int     `json:"current_seats"`
}

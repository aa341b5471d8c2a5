package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/auth"
	"github.com/iliyamo/office-seat-booking/internal/model"
)

// Directory records employees as they log in.
type Directory struct {
	employees EmployeeStore
	now       func() time.Time
}

func NewDirectory(employees EmployeeStore) *Directory {
	return &Directory{employees: employees, now: time.Now}
}

// RecordLogin upserts the employee behind id.  The first login stores the
// profile; later logins only refresh last_login_at.
func (d *Directory) RecordLogin(ctx context.Context, id auth.Identity) error {
	if id.W3ID == "" {
		return auth.ErrNoIdentity
	}
	e := model.Employee{
		W3ID:       id.W3ID,
		Email:      id.Email,
		FullName:   id.Name,
		Manager:    id.Manager,
		Department: id.Department,
	}
	if err := d.employees.RecordLogin(ctx, e, d.now()); err != nil {
		log.Printf("[DIRECTORY] action=record_login msg=upsert failed w3_id=%s err=%v", id.W3ID, err)
		return fmt.Errorf("record login: %w", err)
	}
	log.Printf("[DIRECTORY] action=record_login msg=ok w3_id=%s", id.W3ID)
	return nil
}

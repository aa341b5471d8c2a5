package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// EmployeeRepo persists the employee directory keyed by w3_id.
type EmployeeRepo struct{ DB *sql.DB }

func NewEmployeeRepo(db *sql.DB) *EmployeeRepo { return &EmployeeRepo{DB: db} }

// RecordLogin inserts the employee on first login and otherwise only
// refreshes last_login_at.  The upsert is a single statement keyed by the
// primary key, so concurrent logins never duplicate a w3_id.
func (r *EmployeeRepo) RecordLogin(ctx context.Context, e model.Employee, now time.Time) error {
	now = now.UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO employees (w3_id, email, full_name, manager, department, first_login_at, last_login_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE last_login_at = VALUES(last_login_at)`,
		e.W3ID, nullString(e.Email), nullString(e.FullName), nullString(e.Manager), nullString(e.Department), now, now)
	return err
}

// AddBookedSeat adds seatID to the employee's booking history, creating a
// bare employee row first if none exists.  Adding the same seat twice is a
// no-op.
func (r *EmployeeRepo) AddBookedSeat(ctx context.Context, w3ID string, seatID int, now time.Time) error {
	now = now.UTC()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO employees (w3_id, first_login_at, last_login_at) VALUES (?,?,?)",
		w3ID, now, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO employee_booked_seats (w3_id, seat_id, booked_at) VALUES (?,?,?)",
		w3ID, seatID, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByW3ID fetches an employee and their booking history.
func (r *EmployeeRepo) GetByW3ID(ctx context.Context, w3ID string) (*model.Employee, error) {
	var (
		e                              model.Employee
		email, fullName, manager, dept sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT w3_id,email,full_name,manager,department,first_login_at,last_login_at FROM employees WHERE w3_id=? LIMIT 1",
		w3ID).Scan(&e.W3ID, &email, &fullName, &manager, &dept, &e.FirstLoginAt, &e.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	e.Email, e.FullName, e.Manager, e.Department = email.String, fullName.String, manager.String, dept.String

	rows, err := r.DB.QueryContext(ctx,
		"SELECT seat_id FROM employee_booked_seats WHERE w3_id=? ORDER BY seat_id", w3ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	e.BookedSeats = []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		e.BookedSeats = append(e.BookedSeats, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &e, nil
}

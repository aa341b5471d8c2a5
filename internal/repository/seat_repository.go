package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparisons
	"strings"      // strings builds bulk statements

	"github.com/iliyamo/office-seat-booking/internal/model"
)

const seatColumns = `id, status, price, booked_by, booking_name, booking_date, booking_time_slot, updated_at`

// SeatRepo provides methods to work with seats in the database.  Every
// state transition is a single conditional UPDATE so two concurrent
// callers can never both win the same seat.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// Count returns the number of seats in the ledger.
func (r *SeatRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seats`).Scan(&n)
	return n, err
}

// CreateBulk inserts multiple seats in a single statement.  Rows whose id
// already exists are skipped, so two instances seeding at once cannot
// collide.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT IGNORE INTO seats (id, status, price) VALUES `)
	args := make([]interface{}, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, s.ID, s.Status, s.Price)
	}
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return err
}

// List retrieves all seats ordered by id.
func (r *SeatRepo) List(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+seatColumns+` FROM seats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0, 100)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id int) (*model.Seat, error) {
	s, err := scanSeat(r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return s, nil
}

// Occupy marks an available seat as booked by w3ID.  The availability check
// and the write happen in one statement; when no row changes the seat is
// looked up to tell ErrSeatNotFound from ErrSeatUnavailable.
func (r *SeatRepo) Occupy(ctx context.Context, id int, w3ID string, d *model.BookingDetails) (*model.Seat, error) {
	var name, date, slot sql.NullString
	if d != nil {
		name, date, slot = nullString(d.Name), nullString(d.Date), nullString(d.TimeSlot)
	}
	const q = `UPDATE seats
	           SET status = 'occupied', booked_by = ?, booking_name = ?, booking_date = ?, booking_time_slot = ?
	           WHERE id = ? AND status = 'available'`
	res, err := r.db.ExecContext(ctx, q, w3ID, name, date, slot, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrSeatUnavailable
	}
	// The booking is committed; a failed re-read must not turn it into an error.
	seat, err := r.GetByID(ctx, id)
	if err != nil {
		seat = &model.Seat{ID: id, Status: model.SeatOccupied, BookedBy: &w3ID}
		if name.Valid || date.Valid || slot.Valid {
			seat.BookingDetails = &model.BookingDetails{Name: name.String, Date: date.String, TimeSlot: slot.String}
		}
	}
	return seat, nil
}

// Vacate returns a seat to the available state.  Unless force is set, only
// the employee who booked it may release it.  Releasing a seat that is
// already available is a no-op; changed reports whether the row moved.
func (r *SeatRepo) Vacate(ctx context.Context, id int, w3ID string, force bool) (seat *model.Seat, changed bool, err error) {
	const q = `UPDATE seats
	           SET status = 'available', booked_by = NULL, booking_name = NULL, booking_date = NULL, booking_time_slot = NULL
	           WHERE id = ? AND status = 'occupied' AND (? OR booked_by = ?)`
	res, err := r.db.ExecContext(ctx, q, id, force, w3ID)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		if seat, err = r.GetByID(ctx, id); err != nil {
			seat = &model.Seat{ID: id, Status: model.SeatAvailable}
		}
		return seat, true, nil
	}
	seat, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if seat.Available() {
		return seat, false, nil
	}
	return nil, false, ErrForbidden
}

// ListHeldBy returns the ids of seats currently booked by w3ID.
func (r *SeatRepo) ListHeldBy(ctx context.Context, w3ID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM seats WHERE booked_by = ? AND status = 'occupied' ORDER BY id`, w3ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(row rowScanner) (*model.Seat, error) {
	var (
		s                model.Seat
		bookedBy         sql.NullString
		name, date, slot sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Status, &s.Price, &bookedBy, &name, &date, &slot, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if bookedBy.Valid {
		v := bookedBy.String
		s.BookedBy = &v
	}
	if name.Valid || date.Valid || slot.Valid {
		s.BookingDetails = &model.BookingDetails{Name: name.String, Date: date.String, TimeSlot: slot.String}
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the tables the service needs.  Statements are additive
// (CREATE TABLE IF NOT EXISTS) so running them on every start is safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id                INT UNSIGNED NOT NULL PRIMARY KEY,
		status            ENUM('available','occupied') NOT NULL DEFAULT 'available',
		price             INT NOT NULL,
		booked_by         VARCHAR(255) NULL,
		booking_name      VARCHAR(255) NULL,
		booking_date      VARCHAR(32) NULL,
		booking_time_slot VARCHAR(64) NULL,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_seats_booked_by (booked_by)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS employees (
		w3_id          VARCHAR(255) NOT NULL PRIMARY KEY,
		email          VARCHAR(255) NULL,
		full_name      VARCHAR(255) NULL,
		manager        VARCHAR(255) NULL,
		department     VARCHAR(255) NULL,
		first_login_at DATETIME NOT NULL,
		last_login_at  DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS employee_booked_seats (
		w3_id     VARCHAR(255) NOT NULL,
		seat_id   INT UNSIGNED NOT NULL,
		booked_at DATETIME NOT NULL,
		PRIMARY KEY (w3_id, seat_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

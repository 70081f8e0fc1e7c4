package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the tables used by the catalog and booking repositories.
// Statements are idempotent so EnsureSchema can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS chart_seats (
		chart_key VARCHAR(64)  NOT NULL,
		seat_id   VARCHAR(32)  NOT NULL,
		label     VARCHAR(64)  NOT NULL,
		position  INT UNSIGNED NOT NULL DEFAULT 0,
		PRIMARY KEY (chart_key, seat_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              CHAR(36)    NOT NULL PRIMARY KEY,
		chart_key       VARCHAR(64) NOT NULL,
		hold_token_hash CHAR(64)    NOT NULL,
		booked_at       DATETIME    NOT NULL,
		KEY idx_bookings_chart (chart_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id CHAR(36)    NOT NULL,
		chart_key  VARCHAR(64) NOT NULL,
		seat_id    VARCHAR(32) NOT NULL,
		UNIQUE KEY uq_booking_seats_chart_seat (chart_key, seat_id),
		KEY idx_booking_seats_booking (booking_id),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

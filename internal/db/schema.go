package db

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scheduled_trips (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	route_id VARCHAR(64) NOT NULL,
	departure_date DATE NOT NULL,
	departure_period VARCHAR(16) NOT NULL,
	vehicle_id VARCHAR(64) NOT NULL DEFAULT '',
	driver_id VARCHAR(64) NOT NULL DEFAULT '',
	fare BIGINT NOT NULL DEFAULT 0,
	capacity INT NOT NULL DEFAULT 7,
	status VARCHAR(32) NOT NULL DEFAULT 'Scheduled',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_route_date (route_id, departure_date),
	UNIQUE KEY uniq_departure (route_id, departure_date, departure_period, vehicle_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS trip_booked_seats (
	trip_id BIGINT NOT NULL,
	seat_no INT NOT NULL,
	booking_id BIGINT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (trip_id, seat_no),
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS trip_seat_holds (
	trip_id BIGINT NOT NULL,
	seat_no INT NOT NULL,
	holder_id VARCHAR(128) NOT NULL,
	expires_at DATETIME(3) NOT NULL,
	PRIMARY KEY (trip_id, seat_no),
	KEY idx_holder (trip_id, holder_id),
	KEY idx_expires (expires_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_type VARCHAR(32) NOT NULL,
	user_id VARCHAR(128) NOT NULL DEFAULT '',
	holder_id VARCHAR(128) NOT NULL,
	scheduled_trip_id BIGINT NULL,
	passenger_name VARCHAR(255) NOT NULL DEFAULT '',
	passenger_phone VARCHAR(100) NOT NULL DEFAULT '',
	passenger_email VARCHAR(255) NOT NULL DEFAULT '',
	seats VARCHAR(64) NOT NULL DEFAULT '',
	price BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(32) NOT NULL DEFAULT 'Pending',
	payment_reference VARCHAR(128) NULL,
	payment_error VARCHAR(255) NULL,
	driver_id VARCHAR(64) NOT NULL DEFAULT '',
	vehicle_id VARCHAR(64) NOT NULL DEFAULT '',
	form_data JSON NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	confirmed_at DATETIME(3) NULL,
	KEY idx_trip (scheduled_trip_id),
	KEY idx_user (user_id),
	UNIQUE KEY uniq_payment_ref (payment_reference)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	`CREATE TABLE IF NOT EXISTS drafts (
	id VARCHAR(191) PRIMARY KEY,
	user_id VARCHAR(128) NOT NULL,
	type VARCHAR(32) NOT NULL,
	form_data JSON NOT NULL,
	step INT NOT NULL DEFAULT 0,
	last_saved DATETIME(3) NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// EnsureSchema creates the tables this service owns when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, ddl := range schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

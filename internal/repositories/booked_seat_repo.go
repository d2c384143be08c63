package repositories

import (
	"context"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
)

type BookedSeatRepo struct {
	DB intdb.DBTX
}

func (r BookedSeatRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// List returns the trip's permanently booked seats in ascending order.
func (r BookedSeatRepo) List(ctx context.Context, tripID int64) ([]int, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT seat_no FROM trip_booked_seats WHERE trip_id=? ORDER BY seat_no ASC`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var seat int
		if err := rows.Scan(&seat); err != nil {
			return out, err
		}
		out = append(out, seat)
	}
	return out, rows.Err()
}

// Owners maps booked seat -> booking id for the given seats.
func (r BookedSeatRepo) Owners(ctx context.Context, tripID int64, seats []int) (map[int]int64, error) {
	out := map[int]int64{}
	if len(seats) == 0 {
		return out, nil
	}
	args := []any{tripID}
	for _, s := range seats {
		args = append(args, s)
	}
	rows, err := r.db().QueryContext(ctx, `SELECT seat_no, booking_id FROM trip_booked_seats
		WHERE trip_id=? AND seat_no IN (`+intdb.Placeholders(len(seats))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			seat int
			id   int64
		)
		if err := rows.Scan(&seat, &id); err != nil {
			return out, err
		}
		out[seat] = id
	}
	return out, rows.Err()
}

// Insert books seats for a booking. The (trip_id, seat_no) key makes a
// repeated insert a no-op, so a seat can never appear twice.
func (r BookedSeatRepo) Insert(ctx context.Context, tripID, bookingID int64, seats []int) error {
	for _, seat := range seats {
		if _, err := r.db().ExecContext(ctx, `INSERT IGNORE INTO trip_booked_seats (trip_id, seat_no, booking_id) VALUES (?,?,?)`,
			tripID, seat, bookingID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteForBooking frees the seats of a cancelled booking.
func (r BookedSeatRepo) DeleteForBooking(ctx context.Context, tripID, bookingID int64) error {
	_, err := r.db().ExecContext(ctx, `DELETE FROM trip_booked_seats WHERE trip_id=? AND booking_id=?`, tripID, bookingID)
	return err
}

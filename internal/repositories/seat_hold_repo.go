package repositories

import (
	"context"
	"time"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain/models"
)

type HoldRepo struct {
	DB intdb.DBTX
}

func (r HoldRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// List returns every stored hold for the trip, expired or not.
func (r HoldRepo) List(ctx context.Context, tripID int64) (map[int]models.SeatHold, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT seat_no, holder_id, expires_at FROM trip_seat_holds WHERE trip_id=?`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]models.SeatHold{}
	for rows.Next() {
		var (
			seat int
			h    models.SeatHold
		)
		if err := rows.Scan(&seat, &h.HolderID, &h.ExpiresAt); err != nil {
			return out, err
		}
		h.ExpiresAt = h.ExpiresAt.UTC()
		out[seat] = h
	}
	return out, rows.Err()
}

// Upsert writes seat -> {holder, expiry}, replacing an expired or own row.
func (r HoldRepo) Upsert(ctx context.Context, tripID int64, seat int, holderID string, expiresAt time.Time) error {
	_, err := r.db().ExecContext(ctx, `INSERT INTO trip_seat_holds (trip_id, seat_no, holder_id, expires_at)
		VALUES (?,?,?,?)
		ON DUPLICATE KEY UPDATE holder_id=VALUES(holder_id), expires_at=VALUES(expires_at)`,
		tripID, seat, holderID, expiresAt.UTC())
	return err
}

// DeleteForHolder removes only the named seats held by holderID.
// Seats held by others or not held at all are left untouched.
func (r HoldRepo) DeleteForHolder(ctx context.Context, tripID int64, holderID string, seats []int) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	args := []any{tripID, holderID}
	for _, s := range seats {
		args = append(args, s)
	}
	res, err := r.db().ExecContext(ctx, `DELETE FROM trip_seat_holds
		WHERE trip_id=? AND holder_id=? AND seat_no IN (`+intdb.Placeholders(len(seats))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteSeats clears holds on the given seats regardless of holder.
func (r HoldRepo) DeleteSeats(ctx context.Context, tripID int64, seats []int) error {
	if len(seats) == 0 {
		return nil
	}
	args := []any{tripID}
	for _, s := range seats {
		args = append(args, s)
	}
	_, err := r.db().ExecContext(ctx, `DELETE FROM trip_seat_holds
		WHERE trip_id=? AND seat_no IN (`+intdb.Placeholders(len(seats))+`)`, args...)
	return err
}

// DeleteAllForHolder drops every hold holderID has on the trip.
func (r HoldRepo) DeleteAllForHolder(ctx context.Context, tripID int64, holderID string) (int64, error) {
	if holderID == "" {
		return 0, nil
	}
	res, err := r.db().ExecContext(ctx, `DELETE FROM trip_seat_holds WHERE trip_id=? AND holder_id=?`, tripID, holderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpiredTripIDs lists trips that still carry holds lapsed at now.
func (r HoldRepo) ExpiredTripIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT DISTINCT trip_id FROM trip_seat_holds WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return out, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteExpired removes lapsed holds on one trip. The expiry predicate is
// re-evaluated in the DELETE so a hold renewed meanwhile survives.
func (r HoldRepo) DeleteExpired(ctx context.Context, tripID int64, now time.Time) (int64, error) {
	res, err := r.db().ExecContext(ctx, `DELETE FROM trip_seat_holds WHERE trip_id=? AND expires_at <= ?`, tripID, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

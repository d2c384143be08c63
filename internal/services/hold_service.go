package services

import (
	"context"
	"database/sql"
	"time"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/repositories"
	"shuttlebook/internal/utils"
)

// HoldService places and releases time-boxed seat holds. Every hold write
// locks the trip row first, so two sessions racing for one seat serialize
// and the loser gets SeatUnavailable.
type HoldService struct {
	DB        *sql.DB
	Duration  time.Duration
	Broker    *TripBroker
	RequestID string
	Now       func() time.Time
}

// HoldResult is returned to the client for the countdown.
type HoldResult struct {
	TripID    int64     `json:"tripId"`
	Seat      int       `json:"seat"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s HoldService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s HoldService) duration() time.Duration {
	if s.Duration > 0 {
		return s.Duration
	}
	return time.Duration(intconfig.DefaultHoldMinutes) * time.Minute
}

// RequestHold claims seat for the session and returns the session's shared expiry.
func (s HoldService) RequestHold(ctx context.Context, sess domain.Session, tripID int64, seat int) (HoldResult, error) {
	holder := sess.HolderID()
	now := utils.Clock(s.Now)

	var expiresAt time.Time
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		trip, err := repositories.TripRepo{DB: tx}.LockForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		expiresAt, err = planHold(trip, seat, holder, now, s.duration())
		if err != nil {
			return err
		}
		return repositories.HoldRepo{DB: tx}.Upsert(ctx, tripID, seat, holder, expiresAt)
	})
	if err != nil {
		utils.LogFields(s.RequestID, "hold", "request", "trip_id", tripID, "seat", seat, "err", err)
		return HoldResult{}, err
	}

	utils.LogFields(s.RequestID, "hold", "request", "trip_id", tripID, "seat", seat, "expires_at", expiresAt.Format(time.RFC3339))
	s.Broker.Publish(tripID)
	return HoldResult{TripID: tripID, Seat: seat, ExpiresAt: expiresAt}, nil
}

// planHold decides whether holder may hold seat on the locked trip and with
// which expiry. The first hold of a session starts the countdown; later ones
// share it so the whole selection lapses together.
func planHold(trip models.ScheduledTrip, seat int, holder string, now time.Time, d time.Duration) (time.Time, error) {
	if holder == "" {
		return time.Time{}, domain.ValidationError{Field: "session", Msg: "session id is required to hold seats"}
	}
	if !trip.Status.Bookable() {
		return time.Time{}, domain.ConflictError{Resource: "trip", Msg: "trip is " + string(trip.Status)}
	}
	if !trip.ValidSeat(seat) {
		return time.Time{}, domain.ValidationError{Field: "seat", Msg: "seat is outside the vehicle layout"}
	}
	switch trip.ClassifySeat(seat, holder, now) {
	case models.SeatTaken:
		return time.Time{}, domain.SeatUnavailableError{TripID: trip.ID, Seat: seat, Reason: "already booked"}
	case models.SeatHeldByOther:
		return time.Time{}, domain.SeatUnavailableError{TripID: trip.ID, Seat: seat, Reason: "held by another passenger"}
	}
	if exp, ok := trip.SessionExpiry(holder, now); ok {
		return exp, nil
	}
	return now.Add(d), nil
}

// ReleaseHold deletes the session's own holds on seats. Seats the session
// does not hold are ignored and booked seats are never touched.
func (s HoldService) ReleaseHold(ctx context.Context, sess domain.Session, tripID int64, seats []int) (int64, error) {
	holder := sess.HolderID()
	if holder == "" || len(seats) == 0 {
		return 0, nil
	}
	n, err := repositories.HoldRepo{DB: s.db()}.DeleteForHolder(ctx, tripID, holder, seats)
	if err != nil {
		utils.LogFields(s.RequestID, "hold", "release", "trip_id", tripID, "err", err)
		return 0, err
	}
	utils.LogFields(s.RequestID, "hold", "release", "trip_id", tripID, "seats", intdb.JoinSeats(seats), "released", n)
	if n > 0 {
		s.Broker.Publish(tripID)
	}
	return n, nil
}

// SeatMap is the trip as the session should render it.
func (s HoldService) SeatMap(ctx context.Context, sess domain.Session, tripID int64) (models.TripView, error) {
	trip, err := repositories.TripRepo{DB: s.db()}.Get(ctx, tripID)
	if err != nil {
		return models.TripView{}, err
	}
	return trip.ViewFor(sess.HolderID(), utils.Clock(s.Now)), nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/repositories"
	"shuttlebook/internal/utils"
)

// BookingService creates Pending bookings ahead of payment and runs the
// admin status transitions.
type BookingService struct {
	DB               *sql.DB
	CharterDailyRate int64
	Broker           *TripBroker
	RequestID        string
	Now              func() time.Time
}

// PendingBooking is what the checkout step needs to start a payment.
type PendingBooking struct {
	BookingID  int64 `json:"bookingId"`
	FinalPrice int64 `json:"finalPrice"`
}

func (s BookingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// CreatePending validates the submitted form and stores a Pending booking.
// Seat bookings require every seat to be actively held by the session.
func (s BookingService) CreatePending(ctx context.Context, sess domain.Session, raw []byte) (PendingBooking, error) {
	holder := sess.HolderID()
	if holder == "" {
		return PendingBooking{}, domain.ValidationError{Field: "session", Msg: "session id is required"}
	}
	clean, err := utils.StripNulls(raw)
	if err != nil {
		return PendingBooking{}, domain.ValidationError{Field: "form", Msg: "form must be a JSON object", Err: err}
	}
	form, err := models.DecodeBookingForm(clean)
	if err != nil {
		return PendingBooking{}, domain.ValidationError{Field: "bookingType", Msg: err.Error(), Err: err}
	}
	if err := form.Validate(); err != nil {
		return PendingBooking{}, domain.ValidationError{Field: "form", Msg: err.Error(), Err: err}
	}

	var out PendingBooking
	switch f := form.(type) {
	case models.SeatBookingForm:
		out, err = s.createSeatBooking(ctx, sess, f, clean)
	case models.CharterBookingForm:
		out, err = s.createCharter(ctx, sess, f, clean)
	default:
		err = domain.ValidationError{Field: "bookingType", Msg: "unsupported booking type"}
	}
	if err != nil {
		utils.LogFields(s.RequestID, "booking", "create", "type", form.Type(), "err", err)
		return PendingBooking{}, err
	}
	utils.LogFields(s.RequestID, "booking", "create", "booking_id", out.BookingID, "type", form.Type(), "price", out.FinalPrice)
	return out, nil
}

func (s BookingService) createSeatBooking(ctx context.Context, sess domain.Session, f models.SeatBookingForm, raw []byte) (PendingBooking, error) {
	holder := sess.HolderID()
	now := utils.Clock(s.Now)

	var out PendingBooking
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		trip, err := repositories.TripRepo{DB: tx}.LockForUpdate(ctx, f.ScheduledTripID)
		if err != nil {
			return err
		}
		if !trip.Status.Bookable() {
			return domain.ConflictError{Resource: "trip", Msg: "trip is " + string(trip.Status)}
		}
		if err := checkSeatsHeld(trip, f.Seats, holder, now); err != nil {
			return err
		}

		price := trip.Fare * int64(len(f.Seats))
		id, err := repositories.BookingRepo{DB: tx}.Create(ctx, models.Booking{
			BookingType:     models.BookingTypeSeat,
			UserID:          sess.UserID,
			HolderID:        holder,
			ScheduledTripID: trip.ID,
			PassengerName:   f.PassengerName,
			PassengerPhone:  f.PassengerPhone,
			PassengerEmail:  f.PassengerEmail,
			Seats:           f.Seats,
			Price:           price,
			Status:          models.BookingPending,
			DriverID:        trip.DriverID,
			VehicleID:       trip.VehicleID,
			FormData:        raw,
		})
		if err != nil {
			return err
		}
		out = PendingBooking{BookingID: id, FinalPrice: price}
		return nil
	})
	return out, err
}

// checkSeatsHeld requires every seat to carry an unexpired hold by holder.
func checkSeatsHeld(trip models.ScheduledTrip, seats []int, holder string, now time.Time) error {
	for _, seat := range seats {
		if !trip.ValidSeat(seat) {
			return domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("seat %d is outside the vehicle layout", seat)}
		}
		switch trip.ClassifySeat(seat, holder, now) {
		case models.SeatHeldBySelf:
			continue
		case models.SeatTaken:
			return domain.SeatUnavailableError{TripID: trip.ID, Seat: seat, Reason: "already booked"}
		case models.SeatHeldByOther:
			return domain.SeatUnavailableError{TripID: trip.ID, Seat: seat, Reason: "held by another passenger"}
		}
		if h, ok := trip.SeatHolds[seat]; ok && h.HolderID == holder {
			return domain.HoldExpiredError{TripID: trip.ID}
		}
		return domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("seat %d must be held before booking", seat)}
	}
	return nil
}

func (s BookingService) createCharter(ctx context.Context, sess domain.Session, f models.CharterBookingForm, raw []byte) (PendingBooking, error) {
	days, err := f.Days()
	if err != nil {
		return PendingBooking{}, domain.ValidationError{Field: "dates", Msg: err.Error()}
	}
	rate := s.CharterDailyRate
	if rate <= 0 {
		return PendingBooking{}, domain.InternalError{Msg: "charter rate not configured"}
	}
	price := rate * int64(days)
	id, err := repositories.BookingRepo{DB: s.db()}.Create(ctx, models.Booking{
		BookingType:    models.BookingTypeCharter,
		UserID:         sess.UserID,
		HolderID:       sess.HolderID(),
		PassengerName:  f.PassengerName,
		PassengerPhone: f.PassengerPhone,
		PassengerEmail: f.PassengerEmail,
		Price:          price,
		Status:         models.BookingPending,
		VehicleID:      f.VehicleID,
		FormData:       raw,
	})
	if err != nil {
		return PendingBooking{}, err
	}
	return PendingBooking{BookingID: id, FinalPrice: price}, nil
}

// Get returns the booking when the session created it or is an admin.
// Other sessions see NotFound so booking ids cannot be probed.
func (s BookingService) Get(ctx context.Context, sess domain.Session, id int64) (models.Booking, error) {
	b, err := repositories.BookingRepo{DB: s.db()}.Get(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if !sess.IsAdmin() && !b.OwnedBy(sess.UserID, sess.HolderID()) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

// TransitionStatus is the admin lifecycle action. Confirmation only happens
// through payment verification.
func (s BookingService) TransitionStatus(ctx context.Context, id int64, to models.BookingStatus) (models.Booking, error) {
	if to == models.BookingConfirmed {
		return models.Booking{}, domain.ValidationError{Field: "status", Msg: "bookings are confirmed by payment verification"}
	}
	current, err := repositories.BookingRepo{DB: s.db()}.Get(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}

	var from models.BookingStatus
	err = intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		if current.ScheduledTripID > 0 {
			if _, err := (repositories.TripRepo{DB: tx}).LockForUpdate(ctx, current.ScheduledTripID); err != nil {
				return err
			}
		}
		bookings := repositories.BookingRepo{DB: tx}
		b, err := bookings.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = b.Status
		if from == to {
			return nil
		}
		if !from.CanTransitionTo(to) {
			return domain.ConflictError{Resource: "booking", Msg: "cannot move from " + string(from) + " to " + string(to)}
		}
		if err := bookings.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		if to != models.BookingCancelled || b.ScheduledTripID == 0 {
			return nil
		}
		if from == models.BookingConfirmed {
			return repositories.BookedSeatRepo{DB: tx}.DeleteForBooking(ctx, b.ScheduledTripID, b.ID)
		}
		_, err = repositories.HoldRepo{DB: tx}.DeleteForHolder(ctx, b.ScheduledTripID, b.HolderID, b.Seats)
		return err
	})
	if err != nil {
		utils.LogFields(s.RequestID, "booking", "status", "booking_id", id, "to", to, "err", err)
		return models.Booking{}, err
	}
	utils.LogFields(s.RequestID, "booking", "status", "booking_id", id, "from", from, "to", to)
	if current.ScheduledTripID > 0 && to == models.BookingCancelled {
		s.Broker.Publish(current.ScheduledTripID)
	}
	return repositories.BookingRepo{DB: s.db()}.Get(ctx, id)
}

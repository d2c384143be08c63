package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/payment"
	"shuttlebook/internal/repositories"
	"shuttlebook/internal/utils"
)

// FinalizeService turns a paid Pending booking into a Confirmed one. It is
// authoritative over seat holds: once it commits, the seats are booked and
// their holds are gone whatever the client does next.
type FinalizeService struct {
	DB        *sql.DB
	Gateway   payment.Gateway
	Broker    *TripBroker
	RequestID string
	Now       func() time.Time
}

func (s FinalizeService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// Finalize verifies reference with the gateway and confirms the booking.
// Calling it again with the same reference returns the confirmed booking
// without side effects.
func (s FinalizeService) Finalize(ctx context.Context, sess domain.Session, bookingID int64, reference string) (models.Booking, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return models.Booking{}, domain.ValidationError{Field: "reference", Msg: "required"}
	}
	bookings := repositories.BookingRepo{DB: s.db()}
	b, err := bookings.Get(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !sess.IsAdmin() && !b.OwnedBy(sess.UserID, sess.HolderID()) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if done, err := alreadyFinal(b, reference); done || err != nil {
		return b, err
	}

	if err := s.verify(ctx, b, reference); err != nil {
		if recErr := bookings.SetPaymentError(ctx, b.ID, err.Error()); recErr != nil {
			utils.LogFields(s.RequestID, "payment", "verify", "booking_id", b.ID, "record_err", recErr)
		}
		utils.LogFields(s.RequestID, "payment", "verify", "booking_id", b.ID, "reference", reference, "err", err)
		return models.Booking{}, err
	}

	now := utils.Clock(s.Now)
	var idempotent, refund bool
	err = intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		var trip models.ScheduledTrip
		if b.ScheduledTripID > 0 {
			trip, err = repositories.TripRepo{DB: tx}.LockForUpdate(ctx, b.ScheduledTripID)
			if err != nil {
				return err
			}
		}
		locked, err := repositories.BookingRepo{DB: tx}.GetForUpdate(ctx, b.ID)
		if err != nil {
			return err
		}
		if done, err := alreadyFinal(locked, reference); done || err != nil {
			idempotent = done
			return err
		}
		owner, err := repositories.BookingRepo{DB: tx}.ReferenceOwner(ctx, reference, locked.ID)
		if err != nil {
			return err
		}
		if owner != 0 {
			return domain.ConflictError{Resource: "payment", Msg: fmt.Sprintf("reference already confirmed booking %d", owner)}
		}

		if locked.ScheduledTripID > 0 {
			if !trip.Status.Bookable() {
				refund = true
				return domain.ConflictError{Resource: "trip", Msg: "trip is " + string(trip.Status)}
			}
			if err := commitSeats(ctx, tx, trip, locked, now); err != nil {
				refund = domain.IsSeatUnavailable(err)
				return err
			}
		}
		if err := (repositories.BookingRepo{DB: tx}).MarkConfirmed(ctx, locked.ID, reference, now); err != nil {
			return err
		}
		if locked.UserID != "" {
			draftID := models.DraftID(locked.UserID, locked.BookingType)
			if err := (repositories.DraftRepo{DB: tx}).Delete(ctx, draftID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if refund {
			msg := fmt.Sprintf("paid with %s but %v; refund required", reference, err)
			if recErr := bookings.SetPaymentError(ctx, b.ID, msg); recErr != nil {
				utils.LogFields(s.RequestID, "finalize", "seats", "booking_id", b.ID, "record_err", recErr)
			}
		}
		utils.LogFields(s.RequestID, "finalize", "commit", "booking_id", b.ID, "reference", reference, "err", err)
		return models.Booking{}, err
	}

	if !idempotent {
		utils.LogFields(s.RequestID, "finalize", "commit", "booking_id", b.ID, "reference", reference, "seats", intdb.JoinSeats(b.Seats))
		if b.ScheduledTripID > 0 {
			s.Broker.Publish(b.ScheduledTripID)
		}
	}
	return bookings.Get(ctx, b.ID)
}

// alreadyFinal reports whether b needs no further work for reference.
func alreadyFinal(b models.Booking, reference string) (bool, error) {
	switch b.Status {
	case models.BookingPending:
		return false, nil
	case models.BookingConfirmed:
		if b.PaymentReference == reference {
			return true, nil
		}
		return false, domain.ConflictError{Resource: "booking", Msg: "already confirmed with another payment reference"}
	default:
		return false, domain.ConflictError{Resource: "booking", Msg: "booking is " + string(b.Status)}
	}
}

func (s FinalizeService) verify(ctx context.Context, b models.Booking, reference string) error {
	if s.Gateway == nil {
		return domain.InternalError{Msg: "payment gateway not configured"}
	}
	v, err := s.Gateway.Verify(ctx, reference)
	if err != nil {
		return domain.PaymentVerificationError{Reference: reference, Err: err}
	}
	if !v.Successful() {
		return domain.PaymentVerificationError{Reference: reference, Msg: "gateway status " + v.Status}
	}
	if v.Amount < b.Price {
		return domain.PaymentVerificationError{Reference: reference, Msg: fmt.Sprintf("paid %d, expected %d", v.Amount, b.Price)}
	}
	if v.BookingID != 0 && v.BookingID != b.ID {
		return domain.PaymentVerificationError{Reference: reference, Msg: fmt.Sprintf("reference belongs to booking %d", v.BookingID)}
	}
	return nil
}

// commitSeats books the booking's seats on the locked trip and clears their
// holds along with any other seats the booking's session still holds there.
// A seat booked by another booking, or actively held by someone else,
// aborts the whole commit.
func commitSeats(ctx context.Context, tx *sql.Tx, trip models.ScheduledTrip, b models.Booking, now time.Time) error {
	owners, err := repositories.BookedSeatRepo{DB: tx}.Owners(ctx, trip.ID, b.Seats)
	if err != nil {
		return err
	}
	for _, seat := range b.Seats {
		if owner, ok := owners[seat]; ok && owner != b.ID {
			return domain.SeatUnavailableError{TripID: trip.ID, Seat: seat, Reason: "booked by another passenger"}
		}
		if h, ok := trip.SeatHolds[seat]; ok && h.Active(now) && h.HolderID != b.HolderID {
			return domain.SeatUnavailableError{TripID: trip.ID, Seat: seat, Reason: "held by another passenger"}
		}
	}
	if err := (repositories.BookedSeatRepo{DB: tx}).Insert(ctx, trip.ID, b.ID, b.Seats); err != nil {
		return err
	}
	holds := repositories.HoldRepo{DB: tx}
	if err := holds.DeleteSeats(ctx, trip.ID, b.Seats); err != nil {
		return err
	}
	_, err = holds.DeleteAllForHolder(ctx, trip.ID, b.HolderID)
	return err
}

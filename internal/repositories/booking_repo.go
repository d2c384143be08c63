package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"

	"github.com/go-sql-driver/mysql"
)

const paymentErrorMaxRunes = 255

const bookingColumns = `id, booking_type, user_id, holder_id, COALESCE(scheduled_trip_id, 0),
	passenger_name, passenger_phone, passenger_email, seats, price, status,
	COALESCE(payment_reference, ''), COALESCE(payment_error, ''), driver_id, vehicle_id,
	form_data, created_at, updated_at, confirmed_at`

type BookingRepo struct {
	DB intdb.DBTX
}

func (r BookingRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Create inserts a booking and returns its id.
func (r BookingRepo) Create(ctx context.Context, b models.Booking) (int64, error) {
	var tripID any
	if b.ScheduledTripID > 0 {
		tripID = b.ScheduledTripID
	}
	var form any
	if len(b.FormData) > 0 {
		form = string(b.FormData)
	}
	if b.Status == "" {
		b.Status = models.BookingPending
	}
	res, err := r.db().ExecContext(ctx, `INSERT INTO bookings
		(booking_type, user_id, holder_id, scheduled_trip_id, passenger_name, passenger_phone, passenger_email,
		 seats, price, status, driver_id, vehicle_id, form_data)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		string(b.BookingType), b.UserID, b.HolderID, tripID,
		strings.TrimSpace(b.PassengerName), strings.TrimSpace(b.PassengerPhone), strings.TrimSpace(b.PassengerEmail),
		intdb.JoinSeats(b.Seats), b.Price, string(b.Status), b.DriverID, b.VehicleID, form)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r BookingRepo) Get(ctx context.Context, id int64) (models.Booking, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the booking row for the enclosing transaction.
func (r BookingRepo) GetForUpdate(ctx context.Context, id int64) (models.Booking, error) {
	return r.get(ctx, id, true)
}

func (r BookingRepo) get(ctx context.Context, id int64, forUpdate bool) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=? LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		b           models.Booking
		bookingType string
		status      string
		seats       string
		form        sql.NullString
		confirmedAt sql.NullTime
	)
	err := r.db().QueryRowContext(ctx, query, id).Scan(
		&b.ID, &bookingType, &b.UserID, &b.HolderID, &b.ScheduledTripID,
		&b.PassengerName, &b.PassengerPhone, &b.PassengerEmail, &seats, &b.Price, &status,
		&b.PaymentReference, &b.PaymentError, &b.DriverID, &b.VehicleID,
		&form, &b.CreatedAt, &b.UpdatedAt, &confirmedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
		}
		return models.Booking{}, err
	}
	b.BookingType = models.BookingType(bookingType)
	b.Status = models.BookingStatus(status)
	b.Seats = intdb.SplitSeats(seats)
	if form.Valid && form.String != "" {
		b.FormData = []byte(form.String)
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time.UTC()
		b.ConfirmedAt = &t
	}
	return b, nil
}

// MarkConfirmed records the payment reference and confirms the booking.
func (r BookingRepo) MarkConfirmed(ctx context.Context, id int64, reference string, at time.Time) error {
	_, err := r.db().ExecContext(ctx, `UPDATE bookings
		SET status=?, payment_reference=?, payment_error=NULL, confirmed_at=?
		WHERE id=?`,
		string(models.BookingConfirmed), reference, at.UTC(), id)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return domain.ConflictError{Resource: "payment", Msg: "reference already used by another booking", Err: err}
		}
		return err
	}
	return nil
}

// ReferenceOwner returns the id of another booking already carrying
// reference, or 0 when none does.
func (r BookingRepo) ReferenceOwner(ctx context.Context, reference string, exceptID int64) (int64, error) {
	var id int64
	err := r.db().QueryRowContext(ctx, `SELECT id FROM bookings WHERE payment_reference=? AND id<>? LIMIT 1`, reference, exceptID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// SetPaymentError keeps the booking Pending but records why verification failed.
func (r BookingRepo) SetPaymentError(ctx context.Context, id int64, msg string) error {
	if runes := []rune(msg); len(runes) > paymentErrorMaxRunes {
		msg = string(runes[:paymentErrorMaxRunes])
	}
	_, err := r.db().ExecContext(ctx, `UPDATE bookings SET payment_error=? WHERE id=?`, intdb.NullIfEmpty(msg), id)
	return err
}

func (r BookingRepo) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	res, err := r.db().ExecContext(ctx, `UPDATE bookings SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

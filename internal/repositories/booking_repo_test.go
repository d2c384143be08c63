package repositories

import (
	"context"
	"strings"
	"testing"
	"time"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

var bookingCols = []string{"id", "booking_type", "user_id", "holder_id", "scheduled_trip_id",
	"passenger_name", "passenger_phone", "passenger_email", "seats", "price", "status",
	"payment_reference", "payment_error", "driver_id", "vehicle_id",
	"form_data", "created_at", "updated_at", "confirmed_at"}

func TestBookingGetParsesSeatsAndStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(40)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			40, "seat_booking", "u1", "u1", 9,
			"Ada", "0803", "ada@example.com", "3,4", 10000, "Pending",
			"", "", "", "",
			`{"bookingType":"seat_booking"}`, created, created, nil,
		))

	b, err := BookingRepo{DB: db}.Get(context.Background(), 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.BookingType != models.BookingTypeSeat || b.Status != models.BookingPending {
		t.Fatalf("type/status wrong: %+v", b)
	}
	if len(b.Seats) != 2 || b.Seats[0] != 3 || b.Seats[1] != 4 {
		t.Fatalf("seats = %v", b.Seats)
	}
	if b.ConfirmedAt != nil {
		t.Fatalf("confirmedAt should be nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingCreateStoresSeatList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs("seat_booking", "", "guest:g1", int64(9), "Ada", "0803", "", "1,2", int64(10000), "Pending", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(41, 1))

	id, err := BookingRepo{DB: db}.Create(context.Background(), models.Booking{
		BookingType:     models.BookingTypeSeat,
		HolderID:        "guest:g1",
		ScheduledTripID: 9,
		PassengerName:   " Ada ",
		PassengerPhone:  "0803",
		Seats:           []int{1, 2},
		Price:           10000,
		FormData:        []byte(`{}`),
	})
	if err != nil || id != 41 {
		t.Fatalf("create = %d, %v", id, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingMarkConfirmedDuplicateReferenceIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE bookings SET status=\?, payment_reference=\?`).
		WithArgs("Confirmed", "ref-1", sqlmock.AnyArg(), int64(50)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ref-1' for key 'uniq_payment_ref'"})

	err = BookingRepo{DB: db}.MarkConfirmed(context.Background(), 50, "ref-1", time.Now())
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestBookingReferenceOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\? AND id<>\?`).WithArgs("ref-1", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\? AND id<>\?`).WithArgs("ref-2", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := BookingRepo{DB: db}
	if id, err := repo.ReferenceOwner(context.Background(), "ref-1", 50); err != nil || id != 40 {
		t.Fatalf("owner = %d, %v", id, err)
	}
	if id, err := repo.ReferenceOwner(context.Background(), "ref-2", 50); err != nil || id != 0 {
		t.Fatalf("owner = %d, %v", id, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingSetPaymentErrorKeepsWholeRunes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE bookings SET payment_error=\? WHERE id=\?`).
		WithArgs(strings.Repeat("é", 255), int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := (BookingRepo{DB: db}).SetPaymentError(context.Background(), 40, strings.Repeat("é", 300)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func paidGateway(amount int64) *fakeGateway {
	return &fakeGateway{result: models.PaymentVerification{Status: "success", Amount: amount, Currency: "NGN"}}
}

func TestFinalizeBooksSeatsAndClearsHolds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	pending := func() *sqlmock.Rows {
		return bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingPending, "")
	}
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(40)).WillReturnRows(pending())
	mock.ExpectBegin()
	expectTripLoad(mock, `FOR UPDATE`, 9, models.TripScheduled, 5000, nil,
		[]seedHold{
			{seat: 2, holder: "u1", expiresAt: fixedNow.Add(time.Minute)},
			{seat: 3, holder: "u1", expiresAt: fixedNow.Add(time.Minute)},
			{seat: 4, holder: "u1", expiresAt: fixedNow.Add(time.Minute)},
		})
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1 FOR UPDATE`).WithArgs(int64(40)).WillReturnRows(pending())
	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\?`).WithArgs("ref-1", int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT seat_no, booking_id FROM trip_booked_seats`).WithArgs(int64(9), 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"seat_no", "booking_id"}))
	mock.ExpectExec(`INSERT IGNORE INTO trip_booked_seats`).WithArgs(int64(9), 2, int64(40)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT IGNORE INTO trip_booked_seats`).WithArgs(int64(9), 3, int64(40)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM trip_seat_holds WHERE trip_id=\? AND seat_no IN`).WithArgs(int64(9), 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	// seat 4 was selected but not booked; it must not stay blocked
	mock.ExpectExec(`DELETE FROM trip_seat_holds WHERE trip_id=\? AND holder_id=\?$`).WithArgs(int64(9), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookings SET status=\?, payment_reference=\?`).WithArgs("Confirmed", "ref-1", sqlmock.AnyArg(), int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM drafts WHERE id=\?`).WithArgs("u1_seat_booking").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(40)).
		WillReturnRows(bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingConfirmed, "ref-1"))

	broker := NewTripBroker()
	changed, cancel := broker.Subscribe(9)
	defer cancel()

	gw := paidGateway(10000)
	svc := FinalizeService{DB: db, Gateway: gw, Broker: broker, Now: clockAt(fixedNow)}
	b, err := svc.Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != models.BookingConfirmed || b.PaymentReference != "ref-1" {
		t.Fatalf("booking = %+v", b)
	}
	if gw.calls != 1 {
		t.Fatalf("gateway calls = %d", gw.calls)
	}
	select {
	case <-changed:
	default:
		t.Fatalf("expected trip notification")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinalizeTwiceWithSameReferenceIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id=\?`).WithArgs(int64(40)).
		WillReturnRows(bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingConfirmed, "ref-1"))

	gw := paidGateway(10000)
	b, err := FinalizeService{DB: db, Gateway: gw}.Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != models.BookingConfirmed || gw.calls != 0 {
		t.Fatalf("booking = %+v calls = %d", b, gw.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinalizeRejectsSecondReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id=\?`).WithArgs(int64(40)).
		WillReturnRows(bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingConfirmed, "ref-1"))

	_, err = FinalizeService{DB: db, Gateway: paidGateway(10000)}.Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "ref-2")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestFinalizeGatewayFailureLeavesBookingPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id=\?`).WithArgs(int64(40)).
		WillReturnRows(bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingPending, ""))
	mock.ExpectExec(`UPDATE bookings SET payment_error=\? WHERE id=\?`).WithArgs(sqlmock.AnyArg(), int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	gw := &fakeGateway{err: errors.New("reference not found")}
	_, err = FinalizeService{DB: db, Gateway: gw}.Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "bogus")
	if !domain.IsPaymentVerification(err) {
		t.Fatalf("expected payment verification error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinalizeRejectsUnderpayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM bookings WHERE id=\?`).WithArgs(int64(40)).
		WillReturnRows(bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingPending, ""))
	mock.ExpectExec(`UPDATE bookings SET payment_error=\?`).WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = FinalizeService{DB: db, Gateway: paidGateway(5000)}.Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "ref-1")
	if !domain.IsPaymentVerification(err) {
		t.Fatalf("expected payment verification error, got %v", err)
	}
}

func TestFinalizeSeatTakenMeanwhileNeedsRefund(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	pending := func() *sqlmock.Rows {
		return bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingPending, "")
	}
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(40)).WillReturnRows(pending())
	mock.ExpectBegin()
	expectTripLoad(mock, `FOR UPDATE`, 9, models.TripScheduled, 5000, []int{3}, nil)
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(40)).WillReturnRows(pending())
	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\?`).WithArgs("ref-1", int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT seat_no, booking_id FROM trip_booked_seats`).WithArgs(int64(9), 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"seat_no", "booking_id"}).AddRow(3, 77))
	mock.ExpectRollback()
	mock.ExpectExec(`UPDATE bookings SET payment_error=\?`).WithArgs(sqlmock.AnyArg(), int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = FinalizeService{DB: db, Gateway: paidGateway(10000), Now: clockAt(fixedNow)}.
		Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "ref-1")
	if !domain.IsSeatUnavailable(err) {
		t.Fatalf("expected seat unavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinalizeCharterSkipsTripSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	pending := func() *sqlmock.Rows {
		return bookingRow(41, models.BookingTypeCharter, "", "guest:g1", 0, "", 450000, models.BookingPending, "")
	}
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(41)).WillReturnRows(pending())
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1 FOR UPDATE`).WithArgs(int64(41)).WillReturnRows(pending())
	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\?`).WithArgs("ref-9", int64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE bookings SET status=\?, payment_reference=\?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(41)).
		WillReturnRows(bookingRow(41, models.BookingTypeCharter, "", "guest:g1", 0, "", 450000, models.BookingConfirmed, "ref-9"))

	b, err := FinalizeService{DB: db, Gateway: paidGateway(450000)}.Finalize(context.Background(), domain.Session{GuestID: "g1"}, 41, "ref-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != models.BookingConfirmed {
		t.Fatalf("status = %s", b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinalizeRejectsReferenceUsedByAnotherBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	pending := func() *sqlmock.Rows {
		return bookingRow(50, models.BookingTypeSeat, "u1", "u1", 9, "5", 5000, models.BookingPending, "")
	}
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(50)).WillReturnRows(pending())
	mock.ExpectBegin()
	expectTripLoad(mock, `FOR UPDATE`, 9, models.TripScheduled, 5000, []int{2, 3},
		[]seedHold{{seat: 5, holder: "u1", expiresAt: fixedNow.Add(time.Minute)}})
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1 FOR UPDATE`).WithArgs(int64(50)).WillReturnRows(pending())
	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\?`).WithArgs("ref-1", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectRollback()

	_, err = FinalizeService{DB: db, Gateway: paidGateway(10000), Now: clockAt(fixedNow)}.
		Finalize(context.Background(), domain.Session{UserID: "u1"}, 50, "ref-1")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFinalizeCancelledTripNeedsRefund(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	pending := func() *sqlmock.Rows {
		return bookingRow(40, models.BookingTypeSeat, "u1", "u1", 9, "2,3", 10000, models.BookingPending, "")
	}
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1`).WithArgs(int64(40)).WillReturnRows(pending())
	mock.ExpectBegin()
	expectTripLoad(mock, `FOR UPDATE`, 9, models.TripCancelled, 5000, nil,
		[]seedHold{{seat: 2, holder: "u1", expiresAt: fixedNow.Add(time.Minute)}, {seat: 3, holder: "u1", expiresAt: fixedNow.Add(time.Minute)}})
	mock.ExpectQuery(`FROM bookings WHERE id=\? LIMIT 1 FOR UPDATE`).WithArgs(int64(40)).WillReturnRows(pending())
	mock.ExpectQuery(`SELECT id FROM bookings WHERE payment_reference=\?`).WithArgs("ref-1", int64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()
	mock.ExpectExec(`UPDATE bookings SET payment_error=\?`).WithArgs(sqlmock.AnyArg(), int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = FinalizeService{DB: db, Gateway: paidGateway(10000), Now: clockAt(fixedNow)}.
		Finalize(context.Background(), domain.Session{UserID: "u1"}, 40, "ref-1")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

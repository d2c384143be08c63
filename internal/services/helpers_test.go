package services

import (
	"context"
	"time"

	"shuttlebook/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var (
	tripCols    = []string{"id", "route_id", "departure_date", "departure_period", "vehicle_id", "driver_id", "fare", "capacity", "status"}
	bookingCols = []string{"id", "booking_type", "user_id", "holder_id", "scheduled_trip_id", "passenger_name", "passenger_phone",
		"passenger_email", "seats", "price", "status", "payment_reference", "payment_error", "driver_id", "vehicle_id",
		"form_data", "created_at", "updated_at", "confirmed_at"}
	fixedNow = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type seedHold struct {
	seat      int
	holder    string
	expiresAt time.Time
}

// expectTripLoad queues the three queries TripRepo issues for one trip.
func expectTripLoad(mock sqlmock.Sqlmock, query string, id int64, status models.TripStatus, fare int64, booked []int, holds []seedHold) {
	mock.ExpectQuery(query).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(tripCols).AddRow(id, "lag-ibd", "2026-03-01", "Morning", "V1", "D1", fare, 7, string(status)))
	expectSeatState(mock, id, booked, holds)
}

func expectSeatState(mock sqlmock.Sqlmock, id int64, booked []int, holds []seedHold) {
	bookedRows := sqlmock.NewRows([]string{"seat_no"})
	for _, s := range booked {
		bookedRows.AddRow(s)
	}
	mock.ExpectQuery(`SELECT seat_no FROM trip_booked_seats`).WithArgs(id).WillReturnRows(bookedRows)

	holdRows := sqlmock.NewRows([]string{"seat_no", "holder_id", "expires_at"})
	for _, h := range holds {
		holdRows.AddRow(h.seat, h.holder, h.expiresAt)
	}
	mock.ExpectQuery(`SELECT seat_no, holder_id, expires_at FROM trip_seat_holds`).WithArgs(id).WillReturnRows(holdRows)
}

func bookingRow(id int64, typ models.BookingType, userID, holderID string, tripID int64, seats string, price int64, status models.BookingStatus, ref string) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(id, string(typ), userID, holderID, tripID, "Ada", "0800", "ada@example.com",
		seats, price, string(status), ref, "", "D1", "V1", `{"bookingType":"`+string(typ)+`"}`, fixedNow, fixedNow, nil)
}

type fakeGateway struct {
	result models.PaymentVerification
	err    error
	calls  int
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (models.PaymentVerification, error) {
	g.calls++
	if g.err != nil {
		return models.PaymentVerification{}, g.err
	}
	out := g.result
	out.Reference = reference
	return out, nil
}

package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestReaperSweepDeletesLapsedHolds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT trip_id FROM trip_seat_holds WHERE expires_at <= \?`).
		WillReturnRows(sqlmock.NewRows([]string{"trip_id"}).AddRow(4).AddRow(5))
	mock.ExpectExec(`DELETE FROM trip_seat_holds WHERE trip_id=\? AND expires_at <= \?`).WithArgs(int64(4), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	// trip 5 was renewed between the scan and the delete
	mock.ExpectExec(`DELETE FROM trip_seat_holds WHERE trip_id=\? AND expires_at <= \?`).WithArgs(int64(5), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	broker := NewTripBroker()
	four, cancel4 := broker.Subscribe(4)
	defer cancel4()
	five, cancel5 := broker.Subscribe(5)
	defer cancel5()

	n, err := HoldReaper{DB: db, Broker: broker, Now: clockAt(fixedNow)}.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d", n)
	}
	select {
	case <-four:
	default:
		t.Fatalf("trip 4 should be notified")
	}
	select {
	case <-five:
		t.Fatalf("trip 5 should not be notified")
	default:
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (HoldReaper{}).Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

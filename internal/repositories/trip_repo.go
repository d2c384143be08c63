package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "shuttlebook/internal/config"
	intdb "shuttlebook/internal/db"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"

	"github.com/go-sql-driver/mysql"
)

const tripColumns = `id, route_id, DATE_FORMAT(departure_date, '%Y-%m-%d'), departure_period,
	vehicle_id, driver_id, fare, capacity, status`

type TripRepo struct {
	DB intdb.DBTX
}

func (r TripRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Get loads a trip with its booked seats and stored holds (expired ones included).
func (r TripRepo) Get(ctx context.Context, id int64) (models.ScheduledTrip, error) {
	return r.get(ctx, id, false)
}

// LockForUpdate loads the trip and locks its row for the enclosing transaction.
// Hold writes and finalize serialize on this lock.
func (r TripRepo) LockForUpdate(ctx context.Context, id int64) (models.ScheduledTrip, error) {
	return r.get(ctx, id, true)
}

func (r TripRepo) get(ctx context.Context, id int64, forUpdate bool) (models.ScheduledTrip, error) {
	if id <= 0 {
		return models.ScheduledTrip{}, domain.ValidationError{Field: "trip_id", Msg: "invalid id"}
	}
	query := `SELECT ` + tripColumns + ` FROM scheduled_trips WHERE id=? LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	trip, err := scanTrip(r.db().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ScheduledTrip{}, domain.NotFoundError{Resource: "trip", Err: err}
		}
		return models.ScheduledTrip{}, err
	}
	if err := r.loadSeatState(ctx, &trip); err != nil {
		return models.ScheduledTrip{}, err
	}
	return trip, nil
}

// ListByRouteDate returns bookable trips (Scheduled/Boarding) for a route and day.
func (r TripRepo) ListByRouteDate(ctx context.Context, routeID, date string) ([]models.ScheduledTrip, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT `+tripColumns+`
		FROM scheduled_trips
		WHERE route_id=? AND departure_date=? AND status IN (?,?)
		ORDER BY id ASC`,
		strings.TrimSpace(routeID), strings.TrimSpace(date), string(models.TripScheduled), string(models.TripBoarding))
	if err != nil {
		return nil, err
	}
	out := []models.ScheduledTrip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, trip)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := r.loadSeatState(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Create inserts an admin-scheduled trip and returns its id.
func (r TripRepo) Create(ctx context.Context, t models.ScheduledTrip) (int64, error) {
	if !t.DeparturePeriod.Valid() {
		return 0, domain.ValidationError{Field: "departurePeriod", Msg: "must be Morning or Evening"}
	}
	if _, err := time.Parse("2006-01-02", t.DepartureDate); err != nil {
		return 0, domain.ValidationError{Field: "departureDate", Msg: "must be YYYY-MM-DD"}
	}
	if strings.TrimSpace(t.RouteID) == "" {
		return 0, domain.ValidationError{Field: "routeId", Msg: "required"}
	}
	if t.Status == "" {
		t.Status = models.TripScheduled
	}
	if t.Capacity <= 0 {
		t.Capacity = intconfig.DefaultSeatCapacity
	}
	res, err := r.db().ExecContext(ctx, `INSERT INTO scheduled_trips
		(route_id, departure_date, departure_period, vehicle_id, driver_id, fare, capacity, status)
		VALUES (?,?,?,?,?,?,?,?)`,
		t.RouteID, t.DepartureDate, string(t.DeparturePeriod), t.VehicleID, t.DriverID, t.Fare, t.Capacity, string(t.Status))
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, domain.ConflictError{Resource: "trip", Msg: "vehicle already scheduled for that departure", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r TripRepo) UpdateStatus(ctx context.Context, id int64, status models.TripStatus) error {
	res, err := r.db().ExecContext(ctx, `UPDATE scheduled_trips SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "trip"}
	}
	return nil
}

func (r TripRepo) loadSeatState(ctx context.Context, trip *models.ScheduledTrip) error {
	booked, err := BookedSeatRepo{DB: r.db()}.List(ctx, trip.ID)
	if err != nil {
		return fmt.Errorf("load booked seats: %w", err)
	}
	holds, err := HoldRepo{DB: r.db()}.List(ctx, trip.ID)
	if err != nil {
		return fmt.Errorf("load seat holds: %w", err)
	}
	trip.BookedSeats = booked
	trip.SeatHolds = holds
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (models.ScheduledTrip, error) {
	var (
		t      models.ScheduledTrip
		period string
		status string
	)
	if err := row.Scan(&t.ID, &t.RouteID, &t.DepartureDate, &period, &t.VehicleID, &t.DriverID, &t.Fare, &t.Capacity, &status); err != nil {
		return t, err
	}
	t.DeparturePeriod = models.DeparturePeriod(period)
	t.Status = models.TripStatus(status)
	return t, nil
}

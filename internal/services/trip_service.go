package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	intconfig "shuttlebook/internal/config"
	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/repositories"
	"shuttlebook/internal/utils"
)

// TripService answers trip searches and the admin scheduling actions.
type TripService struct {
	DB        *sql.DB
	Capacity  int
	Broker    *TripBroker
	RequestID string
	Now       func() time.Time
}

func (s TripService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

// Search returns bookable trips on routeID/date that still have a free seat,
// Morning before Evening.
func (s TripService) Search(ctx context.Context, sess domain.Session, routeID, date string) ([]models.TripView, error) {
	routeID = strings.TrimSpace(routeID)
	if routeID == "" {
		return nil, domain.ValidationError{Field: "routeId", Msg: "required"}
	}
	if _, err := utils.ParseDate(date); err != nil {
		return nil, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}

	trips, err := repositories.TripRepo{DB: s.db()}.ListByRouteDate(ctx, routeID, strings.TrimSpace(date))
	if err != nil {
		return nil, err
	}
	now := utils.Clock(s.Now)
	holder := sess.HolderID()
	out := make([]models.TripView, 0, len(trips))
	for _, t := range trips {
		if !t.Status.Bookable() || t.AvailableSeats(now) <= 0 {
			continue
		}
		out = append(out, t.ViewFor(holder, now))
	}
	models.SortTrips(out)
	return out, nil
}

// Create schedules a trip; capacity falls back to the configured vehicle size.
func (s TripService) Create(ctx context.Context, t models.ScheduledTrip) (models.ScheduledTrip, error) {
	if t.Fare < 0 {
		return models.ScheduledTrip{}, domain.ValidationError{Field: "fare", Msg: "must not be negative"}
	}
	if t.Capacity <= 0 {
		t.Capacity = s.Capacity
	}
	t.Status = models.TripScheduled
	id, err := repositories.TripRepo{DB: s.db()}.Create(ctx, t)
	if err != nil {
		return models.ScheduledTrip{}, err
	}
	utils.LogFields(s.RequestID, "trip", "create", "trip_id", id, "route_id", t.RouteID, "date", t.DepartureDate, "period", t.DeparturePeriod)
	return repositories.TripRepo{DB: s.db()}.Get(ctx, id)
}

// UpdateStatus moves the trip along its lifecycle.
func (s TripService) UpdateStatus(ctx context.Context, tripID int64, to models.TripStatus) (models.ScheduledTrip, error) {
	repo := repositories.TripRepo{DB: s.db()}
	trip, err := repo.Get(ctx, tripID)
	if err != nil {
		return models.ScheduledTrip{}, err
	}
	if trip.Status == to {
		return trip, nil
	}
	if !trip.Status.CanTransitionTo(to) {
		return models.ScheduledTrip{}, domain.ConflictError{Resource: "trip", Msg: "cannot move from " + string(trip.Status) + " to " + string(to)}
	}
	if err := repo.UpdateStatus(ctx, tripID, to); err != nil {
		return models.ScheduledTrip{}, err
	}
	utils.LogFields(s.RequestID, "trip", "status", "trip_id", tripID, "from", trip.Status, "to", to)
	s.Broker.Publish(tripID)
	trip.Status = to
	return trip, nil
}

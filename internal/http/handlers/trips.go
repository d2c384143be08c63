package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"shuttlebook/internal/domain/models"
	"shuttlebook/internal/http/middleware"
	"shuttlebook/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/trips?routeId=&date=
func (a API) SearchTrips(c *gin.Context) {
	trips, err := a.trips(c).Search(c.Request.Context(), middleware.GetSession(c), c.Query("routeId"), c.Query("date"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// GET /api/trips/:id
func (a API) GetTrip(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := a.holds(c).SeatMap(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /api/trips/:id/stream
//
// Server-sent events: one "trip" event with the caller's seat map up front,
// then another whenever the map changes. Local changes arrive through the
// broker; the poll picks up writes made by other instances.
func (a API) StreamTrip(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sess := middleware.GetSession(c)
	svc := a.holds(c)

	view, err := svc.SeatMap(ctx, sess, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	last, err := json.Marshal(view)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	var changed <-chan struct{}
	if a.Broker != nil {
		ch, cancel := a.Broker.Subscribe(id)
		defer cancel()
		changed = ch
	}
	ticker := time.NewTicker(a.pollInterval())
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("trip", string(last))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-a.Closing:
			return false
		case <-changed:
		case <-ticker.C:
		}
		view, err := svc.SeatMap(ctx, sess, id)
		if err != nil {
			if ctx.Err() == nil {
				utils.LogFields(middleware.GetRequestID(c), "stream", "refresh", "trip_id", id, "err", err)
				c.SSEvent("error", err.Error())
			}
			return false
		}
		next, err := json.Marshal(view)
		if err != nil {
			return false
		}
		if string(next) != string(last) {
			last = next
			c.SSEvent("trip", string(next))
		}
		return true
	})
}

type createTripRequest struct {
	RouteID         string                 `json:"routeId"`
	DepartureDate   string                 `json:"departureDate"`
	DeparturePeriod models.DeparturePeriod `json:"departurePeriod"`
	VehicleID       string                 `json:"vehicleId"`
	DriverID        string                 `json:"driverId"`
	Fare            int64                  `json:"fare"`
	Capacity        int                    `json:"capacity"`
}

// POST /api/trips (admin)
func (a API) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	trip, err := a.trips(c).Create(c.Request.Context(), models.ScheduledTrip{
		RouteID:         req.RouteID,
		DepartureDate:   req.DepartureDate,
		DeparturePeriod: req.DeparturePeriod,
		VehicleID:       req.VehicleID,
		DriverID:        req.DriverID,
		Fare:            req.Fare,
		Capacity:        req.Capacity,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

type statusRequest struct {
	Status string `json:"status"`
}

// PUT /api/trips/:id/status (admin)
func (a API) UpdateTripStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	trip, err := a.trips(c).UpdateStatus(c.Request.Context(), id, models.TripStatus(req.Status))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

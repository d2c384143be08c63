package handlers

import (
	"database/sql"
	"time"

	intconfig "shuttlebook/internal/config"
	"shuttlebook/internal/http/middleware"
	"shuttlebook/internal/payment"
	"shuttlebook/internal/services"

	"github.com/gin-gonic/gin"
)

// API carries what handlers need to build per-request services.
// Closing is closed when the server starts shutting down; long-lived
// streams end on it so the shutdown does not wait on them.
type API struct {
	Env     intconfig.Env
	DB      *sql.DB
	Broker  *services.TripBroker
	Gateway payment.Gateway
	Now     func() time.Time
	Closing <-chan struct{}
}

func (a API) db() *sql.DB {
	if a.DB != nil {
		return a.DB
	}
	return intconfig.DB
}

func (a API) holds(c *gin.Context) services.HoldService {
	return services.HoldService{
		DB:        a.db(),
		Duration:  a.Env.HoldDuration(),
		Broker:    a.Broker,
		RequestID: middleware.GetRequestID(c),
		Now:       a.Now,
	}
}

func (a API) trips(c *gin.Context) services.TripService {
	return services.TripService{
		DB:        a.db(),
		Capacity:  a.Env.SeatCapacity,
		Broker:    a.Broker,
		RequestID: middleware.GetRequestID(c),
		Now:       a.Now,
	}
}

func (a API) bookings(c *gin.Context) services.BookingService {
	return services.BookingService{
		DB:               a.db(),
		CharterDailyRate: a.Env.CharterDailyRate,
		Broker:           a.Broker,
		RequestID:        middleware.GetRequestID(c),
		Now:              a.Now,
	}
}

func (a API) finalizer(c *gin.Context) services.FinalizeService {
	return services.FinalizeService{
		DB:        a.db(),
		Gateway:   a.Gateway,
		Broker:    a.Broker,
		RequestID: middleware.GetRequestID(c),
		Now:       a.Now,
	}
}

func (a API) drafts(c *gin.Context) services.DraftService {
	return services.DraftService{
		DB:        a.db(),
		RequestID: middleware.GetRequestID(c),
		Now:       a.Now,
	}
}

func (a API) pollInterval() time.Duration {
	if a.Env.StreamPollInterval > 0 {
		return a.Env.StreamPollInterval
	}
	return intconfig.DefaultStreamPollInterval
}

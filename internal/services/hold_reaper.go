package services

import (
	"context"
	"database/sql"
	"time"

	intconfig "shuttlebook/internal/config"
	"shuttlebook/internal/repositories"
	"shuttlebook/internal/utils"
)

// HoldReaper deletes lapsed hold rows. Readers already ignore them; the
// sweep keeps the table small and wakes trip streams when seats free up.
type HoldReaper struct {
	DB       *sql.DB
	Interval time.Duration
	Broker   *TripBroker
	Now      func() time.Time
}

func (r HoldReaper) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Run sweeps every Interval until ctx is done.
func (r HoldReaper) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = intconfig.DefaultReaperInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				utils.LogFields("", "reaper", "sweep", "err", err)
			}
		}
	}
}

// Sweep removes holds expired at now and returns how many rows went.
func (r HoldReaper) Sweep(ctx context.Context) (int64, error) {
	holds := repositories.HoldRepo{DB: r.db()}
	now := utils.Clock(r.Now)
	tripIDs, err := holds.ExpiredTripIDs(ctx, now)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, id := range tripIDs {
		n, err := holds.DeleteExpired(ctx, id, now)
		if err != nil {
			return total, err
		}
		if n > 0 {
			total += n
			r.Broker.Publish(id)
		}
	}
	if total > 0 {
		utils.LogFields("", "reaper", "sweep", "trips", len(tripIDs), "deleted", total)
	}
	return total, nil
}

package client

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
)

// HoldAPI is the part of Client a HoldSession needs.
type HoldAPI interface {
	Hold(ctx context.Context, tripID int64, seat int) (HoldResult, error)
	Release(ctx context.Context, tripID int64, seats []int) (int64, error)
}

// HoldSession tracks the seats one session holds on one trip and their
// shared countdown.
type HoldSession struct {
	API    HoldAPI
	TripID int64
	Now    func() time.Time

	mu        sync.Mutex
	seats     map[int]bool
	expiresAt time.Time
}

func NewHoldSession(api HoldAPI, tripID int64) *HoldSession {
	return &HoldSession{API: api, TripID: tripID, seats: map[int]bool{}}
}

func (s *HoldSession) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Toggle holds seat when it is not selected and releases it when it is.
// It reports whether the seat is selected afterwards.
func (s *HoldSession) Toggle(ctx context.Context, seat int) (bool, error) {
	s.mu.Lock()
	if s.seats == nil {
		s.seats = map[int]bool{}
	}
	selected := s.seats[seat]
	s.mu.Unlock()

	if selected {
		if _, err := s.API.Release(ctx, s.TripID, []int{seat}); err != nil {
			return true, err
		}
		s.mu.Lock()
		delete(s.seats, seat)
		if len(s.seats) == 0 {
			s.expiresAt = time.Time{}
		}
		s.mu.Unlock()
		return false, nil
	}

	res, err := s.API.Hold(ctx, s.TripID, seat)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.seats[seat] = true
	s.expiresAt = res.ExpiresAt
	s.mu.Unlock()
	return true, nil
}

// Seats lists the selected seats in ascending order.
func (s *HoldSession) Seats() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.seats))
	for seat := range s.seats {
		out = append(out, seat)
	}
	sort.Ints(out)
	return out
}

// Remaining is the countdown to the shared expiry, zero when nothing is held.
func (s *HoldSession) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiresAt.IsZero() {
		return 0
	}
	if d := s.expiresAt.Sub(s.now()); d > 0 {
		return d
	}
	return 0
}

// CheckExpiry returns HoldExpiredError once the countdown has lapsed. The
// selection is cleared and the server copy released on a best-effort basis.
func (s *HoldSession) CheckExpiry(ctx context.Context) error {
	s.mu.Lock()
	if s.expiresAt.IsZero() || s.expiresAt.After(s.now()) {
		s.mu.Unlock()
		return nil
	}
	seats := s.takeAllLocked()
	s.mu.Unlock()

	s.releaseQuietly(ctx, seats)
	return domain.HoldExpiredError{TripID: s.TripID}
}

// Apply reconciles the selection with a fresh seat map: seats that are no
// longer heldBySelf (reaped, or booked at finalize) drop out.
func (s *HoldSession) Apply(view models.TripView) {
	if view.ID != s.TripID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sv := range view.Seats {
		if s.seats[sv.Seat] && sv.State != models.SeatHeldBySelf {
			delete(s.seats, sv.Seat)
		}
	}
	if len(s.seats) == 0 {
		s.expiresAt = time.Time{}
	} else if view.HoldExpiresAt != nil {
		s.expiresAt = *view.HoldExpiresAt
	}
}

// Forget drops the selection without touching the server, for use after
// the booking was finalized and the holds became booked seats.
func (s *HoldSession) Forget() {
	s.mu.Lock()
	s.takeAllLocked()
	s.mu.Unlock()
}

// Close releases whatever is still held. Failures are only logged.
func (s *HoldSession) Close(ctx context.Context) {
	s.mu.Lock()
	seats := s.takeAllLocked()
	s.mu.Unlock()
	s.releaseQuietly(ctx, seats)
}

func (s *HoldSession) takeAllLocked() []int {
	out := make([]int, 0, len(s.seats))
	for seat := range s.seats {
		out = append(out, seat)
	}
	sort.Ints(out)
	s.seats = map[int]bool{}
	s.expiresAt = time.Time{}
	return out
}

func (s *HoldSession) releaseQuietly(ctx context.Context, seats []int) {
	if len(seats) == 0 {
		return
	}
	if _, err := s.API.Release(ctx, s.TripID, seats); err != nil {
		log.Printf("[CLIENT] action=release trip_id=%d seats=%v err=%v", s.TripID, seats, err)
	}
}

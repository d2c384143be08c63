package models

import (
	"sort"
	"time"
)

type DeparturePeriod string

const (
	PeriodMorning DeparturePeriod = "Morning"
	PeriodEvening DeparturePeriod = "Evening"
)

func (p DeparturePeriod) Valid() bool {
	return p == PeriodMorning || p == PeriodEvening
}

// rank orders Morning before Evening.
func (p DeparturePeriod) rank() int {
	if p == PeriodMorning {
		return 0
	}
	return 1
}

type TripStatus string

const (
	TripScheduled TripStatus = "Scheduled"
	TripBoarding  TripStatus = "Boarding"
	TripInTransit TripStatus = "InTransit"
	TripCompleted TripStatus = "Completed"
	TripCancelled TripStatus = "Cancelled"
)

// Bookable reports whether seats may still be held or booked.
func (s TripStatus) Bookable() bool {
	return s == TripScheduled || s == TripBoarding
}

var tripTransitions = map[TripStatus][]TripStatus{
	TripScheduled: {TripBoarding, TripCancelled},
	TripBoarding:  {TripInTransit, TripCancelled},
	TripInTransit: {TripCompleted, TripCancelled},
}

func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SeatHold is a time-boxed claim on one seat.
type SeatHold struct {
	HolderID  string    `json:"holderId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Active reports whether the hold still blocks other sessions at now.
func (h SeatHold) Active(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// ScheduledTrip is one departure of a vehicle on a route.
type ScheduledTrip struct {
	ID              int64            `json:"id"`
	RouteID         string           `json:"routeId"`
	DepartureDate   string           `json:"departureDate"`
	DeparturePeriod DeparturePeriod  `json:"departurePeriod"`
	VehicleID       string           `json:"vehicleId"`
	DriverID        string           `json:"driverId"`
	Fare            int64            `json:"fare"`
	Capacity        int              `json:"capacity"`
	Status          TripStatus       `json:"status"`
	BookedSeats     []int            `json:"bookedSeats"`
	SeatHolds       map[int]SeatHold `json:"seatHolds"`
}

func (t ScheduledTrip) IsBooked(seat int) bool {
	for _, s := range t.BookedSeats {
		if s == seat {
			return true
		}
	}
	return false
}

// ValidSeat reports whether seat is within 1..capacity.
func (t ScheduledTrip) ValidSeat(seat int) bool {
	return seat >= 1 && seat <= t.Capacity
}

// AvailableSeats counts seats neither booked nor under an active hold.
// Expired holds count as available even though the row is still present.
func (t ScheduledTrip) AvailableSeats(now time.Time) int {
	taken := map[int]bool{}
	for _, s := range t.BookedSeats {
		taken[s] = true
	}
	for seat, h := range t.SeatHolds {
		if h.Active(now) {
			taken[seat] = true
		}
	}
	free := t.Capacity - len(taken)
	if free < 0 {
		return 0
	}
	return free
}

// SessionExpiry returns the shared expiry of holderID's active holds.
func (t ScheduledTrip) SessionExpiry(holderID string, now time.Time) (time.Time, bool) {
	var out time.Time
	found := false
	for _, h := range t.SeatHolds {
		if h.HolderID != holderID || !h.Active(now) {
			continue
		}
		if !found || h.ExpiresAt.After(out) {
			out = h.ExpiresAt
			found = true
		}
	}
	return out, found
}

// HeldBy lists seats actively held by holderID, ascending.
func (t ScheduledTrip) HeldBy(holderID string, now time.Time) []int {
	out := []int{}
	for seat, h := range t.SeatHolds {
		if h.HolderID == holderID && h.Active(now) {
			out = append(out, seat)
		}
	}
	sort.Ints(out)
	return out
}

type SeatState string

const (
	SeatTaken       SeatState = "taken"
	SeatHeldByOther SeatState = "heldByOther"
	SeatHeldBySelf  SeatState = "heldBySelf"
	SeatAvailable   SeatState = "available"
)

// ClassifySeat is the per-viewer classification recomputed on every snapshot.
func (t ScheduledTrip) ClassifySeat(seat int, holderID string, now time.Time) SeatState {
	if t.IsBooked(seat) {
		return SeatTaken
	}
	h, ok := t.SeatHolds[seat]
	if !ok || !h.Active(now) {
		return SeatAvailable
	}
	if holderID != "" && h.HolderID == holderID {
		return SeatHeldBySelf
	}
	return SeatHeldByOther
}

// SeatView is one seat as seen by a particular session.
type SeatView struct {
	Seat  int       `json:"seat"`
	State SeatState `json:"state"`
}

// TripView is the trip snapshot a session renders; holder ids of other
// sessions are never exposed.
type TripView struct {
	ID              int64           `json:"id"`
	RouteID         string          `json:"routeId"`
	DepartureDate   string          `json:"departureDate"`
	DeparturePeriod DeparturePeriod `json:"departurePeriod"`
	VehicleID       string          `json:"vehicleId"`
	DriverID        string          `json:"driverId"`
	Fare            int64           `json:"fare"`
	Status          TripStatus      `json:"status"`
	Capacity        int             `json:"capacity"`
	Available       int             `json:"available"`
	Seats           []SeatView      `json:"seats"`
	HoldExpiresAt   *time.Time      `json:"holdExpiresAt,omitempty"`
}

func (t ScheduledTrip) ViewFor(holderID string, now time.Time) TripView {
	v := TripView{
		ID:              t.ID,
		RouteID:         t.RouteID,
		DepartureDate:   t.DepartureDate,
		DeparturePeriod: t.DeparturePeriod,
		VehicleID:       t.VehicleID,
		DriverID:        t.DriverID,
		Fare:            t.Fare,
		Status:          t.Status,
		Capacity:        t.Capacity,
		Available:       t.AvailableSeats(now),
		Seats:           make([]SeatView, 0, t.Capacity),
	}
	for seat := 1; seat <= t.Capacity; seat++ {
		v.Seats = append(v.Seats, SeatView{Seat: seat, State: t.ClassifySeat(seat, holderID, now)})
	}
	if exp, ok := t.SessionExpiry(holderID, now); ok && holderID != "" {
		v.HoldExpiresAt = &exp
	}
	return v
}

// SortTrips orders Morning before Evening, then by id for stability.
func SortTrips(trips []TripView) {
	sort.SliceStable(trips, func(i, j int) bool {
		ri, rj := trips[i].DeparturePeriod.rank(), trips[j].DeparturePeriod.rank()
		if ri != rj {
			return ri < rj
		}
		return trips[i].ID < trips[j].ID
	})
}

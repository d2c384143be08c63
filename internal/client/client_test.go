package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAdoptsGuestID(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Guest-ID"))
		w.Header().Set("X-Guest-ID", "3f1c2d1e-1111-4222-8333-444455556666")
		_ = json.NewEncoder(w).Encode(map[string]any{"trips": []any{}})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	_, err := c.SearchTrips(context.Background(), "lag-ibd", "2026-03-01")
	require.NoError(t, err)
	_, err = c.SearchTrips(context.Background(), "lag-ibd", "2026-03-01")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "3f1c2d1e-1111-4222-8333-444455556666"}, seen)
	assert.Equal(t, "3f1c2d1e-1111-4222-8333-444455556666", c.GuestID())
}

func TestClientMapsErrorCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/trips/9/holds":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"seat 3 on trip 9 unavailable","code":"seat_unavailable","details":{"tripId":9,"seat":3}}`))
		case "/api/drafts/u1_charter":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"denied","code":"draft_load_denied"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom","code":"internal_error"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "token", "")
	_, err := c.Hold(context.Background(), 9, 3)
	var seatErr domain.SeatUnavailableError
	require.ErrorAs(t, err, &seatErr)
	assert.Equal(t, 3, seatErr.Seat)

	_, err = c.LoadDraft(context.Background(), "u1_charter")
	assert.True(t, domain.IsDraftLoadDenied(err))

	_, err = c.Trip(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, domain.IsNotFound(err))
}

func TestCreateBookingSetsDiscriminator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "seat_booking", body["bookingType"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bookingId":40,"finalPrice":10000}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL, "token", "").CreateBooking(context.Background(), models.SeatBookingForm{
		ScheduledTripID: 9, Seats: []int{2, 3}, PassengerName: "Ada", PassengerPhone: "0800",
	})
	require.NoError(t, err)
	assert.Equal(t, PendingBooking{BookingID: 40, FinalPrice: 10000}, out)
}

func TestWatchDeliversTripEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trips/9/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for avail := 2; avail >= 1; avail-- {
			fmt.Fprintf(w, "event:trip\ndata:{\"id\":9,\"available\":%d}\n\n", avail)
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []int
	err := New(srv.URL, "", "").Watch(ctx, 9, func(v models.TripView) {
		got = append(got, v.Available)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, got)
}

func TestWatchSurfacesStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:error\ndata:trip not found\n\n")
	}))
	defer srv.Close()

	err := New(srv.URL, "", "").Watch(context.Background(), 9, func(models.TripView) {})
	assert.ErrorContains(t, err, "trip not found")
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"shuttlebook/internal/domain"
	"shuttlebook/internal/domain/models"
)

// Client calls the booking API on behalf of one session. A guest client
// adopts the guest id the server assigns on its first response.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	mu      sync.Mutex
	guestID string
}

func New(baseURL, token, guestID string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		guestID: guestID,
	}
}

func (c *Client) GuestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guestID
}

// Authenticated reports whether requests carry a user token.
func (c *Client) Authenticated() bool {
	return strings.TrimSpace(c.Token) != ""
}

// HoldResult mirrors the hold endpoint response.
type HoldResult struct {
	TripID    int64     `json:"tripId"`
	Seat      int       `json:"seat"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PendingBooking struct {
	BookingID  int64 `json:"bookingId"`
	FinalPrice int64 `json:"finalPrice"`
}

func (c *Client) SearchTrips(ctx context.Context, routeID, date string) ([]models.TripView, error) {
	q := url.Values{"routeId": {routeID}, "date": {date}}
	var out struct {
		Trips []models.TripView `json:"trips"`
	}
	err := c.do(ctx, http.MethodGet, "/api/trips?"+q.Encode(), nil, &out)
	return out.Trips, err
}

func (c *Client) Trip(ctx context.Context, tripID int64) (models.TripView, error) {
	var out models.TripView
	err := c.do(ctx, http.MethodGet, tripPath(tripID, ""), nil, &out)
	return out, err
}

func (c *Client) Hold(ctx context.Context, tripID int64, seat int) (HoldResult, error) {
	var out HoldResult
	err := c.do(ctx, http.MethodPost, tripPath(tripID, "/holds"), map[string]int{"seat": seat}, &out)
	return out, err
}

func (c *Client) Release(ctx context.Context, tripID int64, seats []int) (int64, error) {
	var out struct {
		Released int64 `json:"released"`
	}
	err := c.do(ctx, http.MethodDelete, tripPath(tripID, "/holds"), map[string][]int{"seats": seats}, &out)
	return out.Released, err
}

// CreateBooking submits a SeatBookingForm or CharterBookingForm.
func (c *Client) CreateBooking(ctx context.Context, form models.BookingForm) (PendingBooking, error) {
	switch f := form.(type) {
	case models.SeatBookingForm:
		f.BookingType = f.Type()
		form = f
	case models.CharterBookingForm:
		f.BookingType = f.Type()
		form = f
	}
	var out PendingBooking
	err := c.do(ctx, http.MethodPost, "/api/bookings", form, &out)
	return out, err
}

func (c *Client) VerifyPayment(ctx context.Context, bookingID int64, reference string) (models.Booking, error) {
	var out struct {
		Booking models.Booking `json:"booking"`
	}
	body := map[string]any{"bookingId": bookingID, "reference": reference}
	err := c.do(ctx, http.MethodPost, "/api/payments/verify", body, &out)
	return out.Booking, err
}

func (c *Client) SaveDraft(ctx context.Context, t models.BookingType, form json.RawMessage, step int) (models.Draft, error) {
	var out models.Draft
	body := map[string]any{"formData": form, "step": step}
	err := c.do(ctx, http.MethodPut, "/api/drafts/"+url.PathEscape(string(t)), body, &out)
	return out, err
}

func (c *Client) LoadDraft(ctx context.Context, draftID string) (models.Draft, error) {
	var out models.Draft
	err := c.do(ctx, http.MethodGet, "/api/drafts/"+url.PathEscape(draftID), nil, &out)
	return out, err
}

func (c *Client) DiscardDraft(ctx context.Context, t models.BookingType) error {
	return c.do(ctx, http.MethodDelete, "/api/drafts/"+url.PathEscape(string(t)), nil, nil)
}

func tripPath(id int64, suffix string) string {
	return "/api/trips/" + strconv.FormatInt(id, 10) + suffix
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	} else if id := c.GuestID(); id != "" {
		req.Header.Set("X-Guest-ID", id)
	}
	return req, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) adoptGuestID(resp *http.Response) {
	if c.Authenticated() {
		return
	}
	if id := resp.Header.Get("X-Guest-ID"); id != "" {
		c.mu.Lock()
		c.guestID = id
		c.mu.Unlock()
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.adoptGuestID(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

type errorBody struct {
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details json.RawMessage `json:"details"`
}

// decodeError turns an API error payload back into the domain error the
// server mapped it from, so callers can branch with the domain.Is* helpers.
func decodeError(status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch body.Code {
	case "seat_unavailable":
		var d struct {
			TripID int64 `json:"tripId"`
			Seat   int   `json:"seat"`
		}
		_ = json.Unmarshal(body.Details, &d)
		return domain.SeatUnavailableError{TripID: d.TripID, Seat: d.Seat}
	case "hold_expired":
		return domain.HoldExpiredError{}
	case "payment_verification_failed":
		return domain.PaymentVerificationError{Msg: msg}
	case "draft_load_denied":
		return domain.DraftLoadDeniedError{}
	case "validation_error":
		return domain.ValidationError{Msg: msg}
	case "not_found":
		return domain.NotFoundError{Err: fmt.Errorf("%s", msg)}
	case "conflict":
		return domain.ConflictError{Msg: msg}
	}
	return fmt.Errorf("api error %d: %s", status, msg)
}

package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shuttlebook/internal/domain/models"
)

// Gateway verifies a payment reference with the payment provider.
type Gateway interface {
	Verify(ctx context.Context, reference string) (models.PaymentVerification, error)
}

// HTTPGateway talks to a Paystack-compatible verify endpoint.
type HTTPGateway struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func NewHTTPGateway(baseURL, secretKey string) HTTPGateway {
	return HTTPGateway{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Metadata  struct {
			BookingID json.RawMessage `json:"bookingId"`
		} `json:"metadata"`
	} `json:"data"`
}

// Verify returns the gateway's view of the transaction. A transport or
// protocol failure is an error; a declined payment is a verification with
// a non-success status.
func (g HTTPGateway) Verify(ctx context.Context, reference string) (models.PaymentVerification, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return models.PaymentVerification{}, fmt.Errorf("empty payment reference")
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := strings.TrimRight(g.BaseURL, "/") + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.PaymentVerification{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.PaymentVerification{}, fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.PaymentVerification{}, fmt.Errorf("read verify response: %w", err)
	}

	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.PaymentVerification{}, fmt.Errorf("decode verify response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !parsed.Status {
		msg := strings.TrimSpace(parsed.Message)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return models.PaymentVerification{Reference: reference, Status: "failed"}, fmt.Errorf("gateway rejected reference: %s", msg)
	}

	out := models.PaymentVerification{
		Reference: parsed.Data.Reference,
		Status:    strings.ToLower(strings.TrimSpace(parsed.Data.Status)),
		Amount:    parsed.Data.Amount / 100,
		Currency:  parsed.Data.Currency,
		BookingID: parseLooseInt(parsed.Data.Metadata.BookingID),
	}
	if out.Reference == "" {
		out.Reference = reference
	}
	return out, nil
}

// parseLooseInt accepts 42 or "42" from metadata.
func parseLooseInt(raw json.RawMessage) int64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

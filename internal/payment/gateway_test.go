package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPGatewayVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"status":"success","reference":"ref-1","amount":1000000,"currency":"NGN","metadata":{"bookingId":"40"}}}`))
	}))
	defer srv.Close()

	v, err := NewHTTPGateway(srv.URL, "sk_test").Verify(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Successful() || v.Amount != 10000 || v.BookingID != 40 || v.Currency != "NGN" {
		t.Fatalf("verification = %+v", v)
	}
}

func TestHTTPGatewayVerifyDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":{"status":"abandoned","reference":"ref-2","amount":0}}`))
	}))
	defer srv.Close()

	v, err := NewHTTPGateway(srv.URL, "sk").Verify(context.Background(), "ref-2")
	if err != nil {
		t.Fatalf("declined payment is not a transport error: %v", err)
	}
	if v.Successful() {
		t.Fatalf("abandoned payment reported as success")
	}
}

func TestHTTPGatewayVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Transaction reference not found"}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPGateway(srv.URL, "sk").Verify(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown reference")
	}
}

func TestHTTPGatewayEmptyReference(t *testing.T) {
	if _, err := (HTTPGateway{}).Verify(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty reference")
	}
}

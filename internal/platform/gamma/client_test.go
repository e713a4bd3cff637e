package gamma

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantfold/polypilot/internal/domain"
)

const marketJSON = `[{
	"conditionId": "0xabc",
	"question": "Will it happen?",
	"active": "true",
	"closed": false,
	"outcomes": "[\"Yes\",\"No\"]",
	"outcomePrices": "[\"0.04\",\"0.96\"]",
	"clobTokenIds": "[\"tok-yes\",\"tok-no\"]",
	"volume": "12345.6",
	"endDate": "2026-12-31T00:00:00Z"
}]`

func testClient(host string, retries int) *Client {
	return NewClient(ClientConfig{
		Host:           host,
		RequestTimeout: 2 * time.Second,
		RateLimitRPS:   1000,
		MaxRetries:     retries,
	})
}

func TestGetMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("condition_ids"); got != "0xabc" {
			t.Errorf("condition_ids = %q, want 0xabc", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketJSON))
	}))
	defer srv.Close()

	rec, data, err := testClient(srv.URL, 0).GetMarket(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetMarket() error = %v", err)
	}

	if rec.MarketID != "0xabc" {
		t.Errorf("MarketID = %q, want 0xabc", rec.MarketID)
	}
	if !rec.Active {
		t.Error("Active = false, want true")
	}
	if len(rec.OutcomeNames) != 2 || rec.OutcomeNames[0] != "Yes" {
		t.Errorf("OutcomeNames = %v", rec.OutcomeNames)
	}
	if got := rec.TokenIDFor(domain.OutcomeNo); got != "tok-no" {
		t.Errorf("TokenIDFor(NO) = %q, want tok-no", got)
	}
	if rec.Volume != 12345.6 {
		t.Errorf("Volume = %v, want 12345.6", rec.Volume)
	}
	if rec.EndTime == nil {
		t.Error("EndTime = nil, want parsed date")
	}
	if data.OutcomePrices != `["0.04","0.96"]` {
		t.Errorf("OutcomePrices = %q", data.OutcomePrices)
	}
}

func TestGetMarketClosedIsInactive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"conditionId":"0xabc","active":true,"closed":true,"outcomes":"[\"Yes\",\"No\"]"}]`))
	}))
	defer srv.Close()

	rec, _, err := testClient(srv.URL, 0).GetMarket(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetMarket() error = %v", err)
	}
	if rec.Active {
		t.Error("closed market must not be active")
	}
}

func TestGetMarketEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL, 0).GetMarket(context.Background(), "0xmissing")
	if !errors.Is(err, domain.ErrMarketUnavailable) {
		t.Fatalf("error = %v, want ErrMarketUnavailable", err)
	}
}

func TestGetMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such market", http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL, 2).GetMarket(context.Background(), "0xmissing")
	if !errors.Is(err, domain.ErrMarketUnavailable) {
		t.Fatalf("error = %v, want ErrMarketUnavailable", err)
	}
}

func TestGetMarketMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL, 0).GetMarket(context.Background(), "0xabc")
	if !errors.Is(err, domain.ErrMalformedMarketData) {
		t.Fatalf("error = %v, want ErrMalformedMarketData", err)
	}
}

func TestGetMarketRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(marketJSON))
	}))
	defer srv.Close()

	rec, _, err := testClient(srv.URL, 3).GetMarket(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("GetMarket() error = %v after retries", err)
	}
	if rec.MarketID != "0xabc" {
		t.Errorf("MarketID = %q, want 0xabc", rec.MarketID)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("request count = %d, want 3", got)
	}
}

func TestGetMarketDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL, 3).GetMarket(context.Background(), "0xabc")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("request count = %d, want 1 (no retry on 4xx)", got)
	}
}

// Package gamma is the REST client for the market-data API. It provides
// market lookup by condition id with client-side rate limiting and bounded
// retry of transient failures.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/quantfold/polypilot/internal/domain"
	"github.com/quantfold/polypilot/internal/pricing"
)

// ClientConfig holds construction parameters for the market-data client.
type ClientConfig struct {
	Host           string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	MaxRetries     int
}

// Client fetches market records from the market-data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
}

// NewClient creates a market-data client. RateLimitRPS caps outgoing request
// rate across all callers of this client; MaxRetries bounds the quick retry
// of transient HTTP failures within a single call.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 4
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:    cfg.Host,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: uint64(retries),
	}
}

// GetMarket returns the market record and raw pricing fields for one
// condition id. A missing market, an empty response array, or a non-200
// status yields domain.ErrMarketUnavailable so callers can skip rather than
// abort.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (domain.MarketRecord, pricing.PriceData, error) {
	params := url.Values{}
	params.Set("condition_ids", conditionID)
	path := "/markets?" + params.Encode()

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.MarketRecord{}, pricing.PriceData{}, fmt.Errorf("gamma: get market %s: %w", conditionID, err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.MarketRecord{}, pricing.PriceData{}, fmt.Errorf("gamma: decode market %s: %w", conditionID, domain.ErrMalformedMarketData)
	}
	if len(apiMarkets) == 0 {
		return domain.MarketRecord{}, pricing.PriceData{}, fmt.Errorf("gamma: market %s: %w", conditionID, domain.ErrMarketUnavailable)
	}

	m := &apiMarkets[0]
	return m.ToRecord(conditionID), m.PriceData(), nil
}

// doGet sends a rate-limited GET request with bounded retry on transient
// failures (network errors and 5xx responses).
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure: worth a quick retry.
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(b))
		}
		if err := checkHTTPStatus(resp.StatusCode, b); err != nil {
			return backoff.Permanent(err)
		}

		body = b
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrMarketUnavailable, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

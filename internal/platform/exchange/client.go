// Package exchange is the REST client for the order-placement collaborator.
// It submits orders, queries settlement-currency balance, requests deposits,
// and lists open positions. The client never signs or broadcasts on-chain
// transactions; that machinery lives behind the gateway it talks to.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfold/polypilot/internal/domain"
)

// ClientConfig holds construction parameters for the exchange client.
type ClientConfig struct {
	Host           string
	ApiKey         string
	RequestTimeout time.Duration
}

// Client talks to the trading gateway.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an exchange client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.Host,
		apiKey:     cfg.ApiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PlaceOrder submits an order. A gateway-level rejection is returned as an
// error wrapping the classified domain sentinel so callers can branch on
// errors.Is(err, domain.ErrInsufficientBalance) and friends.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	respBody, err := c.do(ctx, http.MethodPost, "/order", req)
	if err != nil {
		return OrderResult{}, fmt.Errorf("exchange: post order: %w", err)
	}

	var api apiOrderResult
	if err := json.Unmarshal(respBody, &api); err != nil {
		return OrderResult{}, fmt.Errorf("exchange: decode order result: %w", err)
	}

	if !api.Success {
		kind := classifyOrderError(api.ErrorCode, api.ErrorMsg)
		return OrderResult{}, fmt.Errorf("exchange: order failed (%s): %w", api.ErrorMsg, kind)
	}

	return OrderResult{Success: true, OrderID: api.OrderID}, nil
}

// CheckBalance asks the gateway whether the settlement balance covers the
// required amount. The balance arrives as a decimal string; unparseable
// values degrade to zero rather than failing the whole check.
func (c *Client) CheckBalance(ctx context.Context, required float64) (BalanceResult, error) {
	params := url.Values{}
	params.Set("required", strconv.FormatFloat(required, 'f', -1, 64))

	respBody, err := c.do(ctx, http.MethodGet, "/balance?"+params.Encode(), nil)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("exchange: check balance: %w", err)
	}

	var api apiBalanceResult
	if err := json.Unmarshal(respBody, &api); err != nil {
		return BalanceResult{}, fmt.Errorf("exchange: decode balance: %w", err)
	}

	available := 0.0
	if d, err := decimal.NewFromString(api.USDCBalance); err == nil {
		available = d.InexactFloat64()
	}

	return BalanceResult{Sufficient: api.HasEnoughBalance, Available: available}, nil
}

// Deposit requests a settlement-currency top-up of the given amount.
func (c *Client) Deposit(ctx context.Context, amount float64) (DepositResult, error) {
	body := map[string]any{"amount": amount}

	respBody, err := c.do(ctx, http.MethodPost, "/deposit", body)
	if err != nil {
		return DepositResult{}, fmt.Errorf("exchange: deposit: %w", err)
	}

	var api apiDepositResult
	if err := json.Unmarshal(respBody, &api); err != nil {
		return DepositResult{}, fmt.Errorf("exchange: decode deposit result: %w", err)
	}
	if !api.Success {
		return DepositResult{}, fmt.Errorf("exchange: deposit rejected: %s", api.ErrorMsg)
	}

	return DepositResult{Success: true, TransactionHash: api.TransactionHash}, nil
}

// OpenPositions returns the caller's current open positions as reported by
// the gateway. Callers replace their local position book wholesale with this
// result.
func (c *Client) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/positions", nil)
	if err != nil {
		return nil, fmt.Errorf("exchange: get positions: %w", err)
	}

	var api []apiPosition
	if err := json.Unmarshal(respBody, &api); err != nil {
		return nil, fmt.Errorf("exchange: decode positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(api))
	for i := range api {
		positions = append(positions, api[i].toDomain())
	}
	return positions, nil
}

// do builds, sends, and reads an HTTP request against the gateway.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, string(respBody))
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(respBody))
		default:
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
	}

	return respBody, nil
}

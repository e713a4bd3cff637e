package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrMarketUnavailable   = errors.New("market unavailable")
	ErrMalformedMarketData = errors.New("malformed market data")
	ErrInstrumentNotFound  = errors.New("instrument not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderRejected       = errors.New("order rejected")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
)

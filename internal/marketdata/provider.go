// Package marketdata defines the market-data provider contract the engine
// consumes, its error taxonomy, and resilience wrappers (timeout, retry,
// rate limit, circuit breaker) for real network-backed implementations.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/options"
)

var (
	// ErrInvalidTicker is permanent: the symbol does not exist or is
	// delisted. Never retried.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrDataUnavailable is the terminal degradation for one ticker: the
	// provider could not serve it (too little history, exhausted retries).
	// It never aborts a batch.
	ErrDataUnavailable = errors.New("market data unavailable")
)

// TransientError wraps a failure worth retrying: network blips, timeouts,
// throttling.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// Provider is the market-data collaborator contract.
type Provider interface {
	// PriceHistory returns at least lookbackDays of daily bars, ascending
	// by date. ErrInvalidTicker for unknown symbols; ErrDataUnavailable
	// when history is too short to serve.
	PriceHistory(ctx context.Context, ticker string, lookbackDays int) (market.Series, error)

	// OptionChain returns the chain snapshot nearest the requested
	// expiration. May be empty.
	OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]options.Quote, error)

	// ImpliedVolatility returns the ATM implied volatility as a weekly
	// fraction. ok=false when the provider has none.
	ImpliedVolatility(ctx context.Context, ticker string) (iv float64, ok bool, err error)
}

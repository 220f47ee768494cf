package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/options"
)

// ResilientConfig tunes the resilience wrapper around a provider.
type ResilientConfig struct {
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Jitter      bool

	RPS   float64
	Burst int

	BreakerMaxRequests         uint32
	BreakerInterval            time.Duration
	BreakerTimeout             time.Duration
	BreakerConsecutiveFailures uint32
}

// DefaultResilientConfig returns conservative defaults: a few seconds per
// call, a handful of retries, and a breaker that opens after repeated
// consecutive failures.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:                    3 * time.Second,
		Retries:                    3,
		BackoffBase:                250 * time.Millisecond,
		BackoffMax:                 2 * time.Second,
		Jitter:                     true,
		RPS:                        5,
		Burst:                      10,
		BreakerMaxRequests:         3,
		BreakerInterval:            time.Minute,
		BreakerTimeout:             30 * time.Second,
		BreakerConsecutiveFailures: 5,
	}
}

// RequestRecorder receives provider call outcomes, typically a metrics set.
type RequestRecorder interface {
	RecordProviderRequest(op, result string)
}

// Resilient wraps a Provider with bounded timeouts, retries with backoff for
// transient failures only, a token-bucket rate limit and a circuit breaker.
// Permanent classifications (invalid ticker, unavailable data) pass through
// untouched to avoid retry storms.
type Resilient struct {
	inner    Provider
	cfg      ResilientConfig
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
	recorder RequestRecorder
}

// NewResilient wraps inner with the configured resilience stack.
func NewResilient(inner Provider, cfg ResilientConfig, log zerolog.Logger) *Resilient {
	r := &Resilient{
		inner:   inner,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		log:     log.With().Str("component", "marketdata").Logger(),
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "marketdata",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
	return r
}

// WithRecorder attaches a request recorder (metrics).
func (r *Resilient) WithRecorder(rec RequestRecorder) *Resilient {
	r.recorder = rec
	return r
}

func (r *Resilient) PriceHistory(ctx context.Context, ticker string, lookbackDays int) (market.Series, error) {
	var out market.Series
	err := r.call(ctx, "price_history", func(ctx context.Context) error {
		var err error
		out, err = r.inner.PriceHistory(ctx, ticker, lookbackDays)
		return err
	})
	return out, err
}

func (r *Resilient) OptionChain(ctx context.Context, ticker string, expiration time.Time) ([]options.Quote, error) {
	var out []options.Quote
	err := r.call(ctx, "option_chain", func(ctx context.Context) error {
		var err error
		out, err = r.inner.OptionChain(ctx, ticker, expiration)
		return err
	})
	return out, err
}

func (r *Resilient) ImpliedVolatility(ctx context.Context, ticker string) (float64, bool, error) {
	var iv float64
	var ok bool
	err := r.call(ctx, "implied_volatility", func(ctx context.Context) error {
		var err error
		iv, ok, err = r.inner.ImpliedVolatility(ctx, ticker)
		return err
	})
	return iv, ok, err
}

func (r *Resilient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if r.cfg.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		}
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, fn(callCtx)
		})
		if cancel != nil {
			cancel()
		}

		if err == nil {
			r.record(op, "ok")
			return nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.record(op, "breaker_open")
			break
		}
		if !IsTransient(err) {
			r.record(op, "permanent")
			return err
		}
		r.record(op, "transient")
		r.log.Debug().Str("op", op).Int("attempt", attempt+1).Err(err).Msg("transient provider failure")
	}

	// Retries exhausted: degrade to unavailable for this ticker only.
	return fmt.Errorf("%s: %w: %v", op, ErrDataUnavailable, lastErr)
}

func (r *Resilient) backoff(attempt int) time.Duration {
	d := r.cfg.BackoffBase << (attempt - 1)
	if d > r.cfg.BackoffMax {
		d = r.cfg.BackoffMax
	}
	if r.cfg.Jitter && d > 0 {
		half := int64(d) / 2
		d = time.Duration(half + rand.Int63n(half+1))
	}
	return d
}

func (r *Resilient) record(op, result string) {
	if r.recorder != nil {
		r.recorder.RecordProviderRequest(op, result)
	}
}

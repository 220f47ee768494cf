// Package pricing resolves option prices: exact-decimal lookup against a
// real chain snapshot first, deterministic synthetic fallback second.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/strikecast/strikecast/internal/domain/options"
)

// ErrNoQuote signals that a contract cannot be priced at all: no real quote
// and no usable inputs for the fallback model. Callers must discard the
// candidate under construction, never substitute a placeholder price.
var ErrNoQuote = errors.New("no quote available")

// Model selects the synthetic fallback algorithm.
type Model string

const (
	// ModelTiered prices time value from moneyness tiers. Deterministic,
	// monotonic per side, never below intrinsic.
	ModelTiered Model = "tiered"
	// ModelBlackScholes prices with r=0 Black-Scholes at the configured
	// volatility. Also deterministic and intrinsic-bounded.
	ModelBlackScholes Model = "black_scholes"
)

// Config holds pricing engine settings.
type Config struct {
	Model Model `yaml:"model"`
	// DefaultVolatility is the annualized volatility assumed for tickers
	// without an override.
	DefaultVolatility float64 `yaml:"default_volatility"`
	// VolatilityOverrides carries per-ticker annualized volatility
	// estimates for the fallback model.
	VolatilityOverrides map[string]float64 `yaml:"volatility_overrides"`
}

// DefaultConfig mirrors the volatility classes observed for the liquid
// options tickers this engine was built around.
func DefaultConfig() Config {
	return Config{
		Model:             ModelTiered,
		DefaultVolatility: 0.25,
		VolatilityOverrides: map[string]float64{
			"SPY": 0.15, "QQQ": 0.20, "AAPL": 0.25, "MSFT": 0.22,
			"NVDA": 0.35, "TECL": 0.45, "XLE": 0.25, "SMH": 0.30,
		},
	}
}

// Engine resolves option prices. Stateless apart from configuration; safe
// for concurrent use.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine builds a pricing engine. A zero Model defaults to tiered.
func NewEngine(cfg Config) *Engine {
	if cfg.Model == "" {
		cfg.Model = ModelTiered
	}
	if cfg.DefaultVolatility <= 0 {
		cfg.DefaultVolatility = 0.25
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// WithClock fixes the engine clock; used by tests and replay runs.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Request identifies one contract to price.
type Request struct {
	Ticker     string
	Strike     decimal.Decimal
	Side       options.Side
	Expiration time.Time
	// Spot is the underlying price; required for the fallback path.
	Spot float64
	// ATR expresses moneyness in volatility units when available; the
	// fallback degrades to percent-of-spot tiers without it.
	ATR float64
	// Chain is the real option-chain snapshot, possibly empty.
	Chain []options.Quote
}

// Price resolves the request. Real quotes win; the synthetic fallback fills
// gaps with provenance marked. Strike matching is exact-decimal: 172.5
// matches 172.5 and nothing else.
func (e *Engine) Price(req Request) (options.Quote, error) {
	if q, ok := e.lookupReal(req); ok {
		return q, nil
	}
	return e.synthetic(req)
}

// lookupReal scans the chain for an exact strike/side match and resolves a
// usable price: bid/ask midpoint first, last trade second.
func (e *Engine) lookupReal(req Request) (options.Quote, bool) {
	for _, q := range req.Chain {
		if q.Side != req.Side || !q.Strike.Equal(req.Strike) {
			continue
		}
		var price float64
		switch {
		case q.Bid > 0 && q.Ask > 0:
			price = (q.Bid + q.Ask) / 2
		case q.Last > 0:
			price = q.Last
		default:
			// Quote exists but carries no usable price; let the
			// fallback handle it.
			return options.Quote{}, false
		}
		return options.Quote{
			Ticker:     req.Ticker,
			Strike:     req.Strike,
			Side:       req.Side,
			Expiration: req.Expiration,
			Bid:        q.Bid,
			Ask:        q.Ask,
			Last:       q.Last,
			Price:      round2(price),
			Provenance: options.ProvenanceReal,
		}, true
	}
	return options.Quote{}, false
}

func (e *Engine) synthetic(req Request) (options.Quote, error) {
	if req.Spot <= 0 {
		return options.Quote{}, fmt.Errorf("%w: %s %s %s (no spot price)", ErrNoQuote, req.Ticker, req.Side, req.Strike)
	}
	if req.Expiration.IsZero() {
		return options.Quote{}, fmt.Errorf("%w: %s %s %s (no expiration)", ErrNoQuote, req.Ticker, req.Side, req.Strike)
	}

	days := int(math.Ceil(req.Expiration.Sub(e.now()).Hours() / 24))
	if days < 1 {
		days = 1
	}

	strike := req.Strike.InexactFloat64()
	vol := e.volatilityFor(req.Ticker)

	var price float64
	switch e.cfg.Model {
	case ModelBlackScholes:
		price = blackScholes(req.Side == options.Call, req.Spot, strike, float64(days)/365, 0, vol)
	default:
		price = tieredPrice(req.Side, req.Spot, strike, req.ATR, vol, days)
	}

	price = math.Max(price, intrinsic(req.Side, req.Spot, strike))
	if price < 0.01 {
		price = 0.01
	}

	return options.Quote{
		Ticker:     req.Ticker,
		Strike:     req.Strike,
		Side:       req.Side,
		Expiration: req.Expiration,
		Price:      round2(price),
		Provenance: options.ProvenanceSynthetic,
	}, nil
}

// tieredPrice estimates intrinsic value plus a time value driven by how far
// out of the money the strike sits. Distance is measured in ATR units when
// an ATR is supplied, percent of spot otherwise; either way the factor is
// non-increasing with distance, so further OTM is never more expensive.
func tieredPrice(side options.Side, spot, strike, atr, vol float64, days int) float64 {
	timeFactor := math.Max(0.1, float64(days)/365)

	otm := strike > spot
	if side == options.Put {
		otm = strike < spot
	}

	factor := 0.4 // at or in the money
	if otm {
		dist := math.Abs(strike - spot)
		if atr > 0 {
			factor = tierFactor(dist/atr, 0.5, 1.25, 2.0)
		} else {
			factor = tierFactor(dist/spot, 0.02, 0.05, 0.10)
		}
	}

	timeValue := spot * vol * timeFactor * factor
	if days <= 30 {
		timeValue *= float64(days) / 30
	}

	return intrinsic(side, spot, strike) + timeValue
}

func tierFactor(moneyness, near, mid, far float64) float64 {
	switch {
	case moneyness <= near:
		return 0.7
	case moneyness <= mid:
		return 0.5
	case moneyness <= far:
		return 0.3
	default:
		return 0.1
	}
}

func intrinsic(side options.Side, spot, strike float64) float64 {
	if side == options.Call {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

func (e *Engine) volatilityFor(ticker string) float64 {
	if v, ok := e.cfg.VolatilityOverrides[ticker]; ok && v > 0 {
		return v
	}
	return e.cfg.DefaultVolatility
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

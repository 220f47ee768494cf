// Package predict combines current price, regime score and ATR into a
// 1-2 week price range prediction.
package predict

import (
	"fmt"

	"github.com/strikecast/strikecast/internal/domain/indicators"
	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/regime"
)

// Config holds the tunables of the range model.
type Config struct {
	// RegimeMultiplier converts the regime score into a fractional price
	// bias (bias_pct = score * multiplier). 0.01 is the documented default
	// ("1% per unit score"); 0.001 biases gently and negative values trade
	// contrarian. All three have shipped in production; they are
	// configuration choices, not bugs.
	RegimeMultiplier float64 `yaml:"regime_multiplier"`
}

// DefaultConfig returns the documented default model configuration.
func DefaultConfig() Config {
	return Config{RegimeMultiplier: 0.01}
}

// Prediction is the output of the range model. All fields are plain values;
// a presentation layer can render or persist it without reaching back in.
type Prediction struct {
	Ticker             string  `json:"ticker"`
	CurrentPrice       float64 `json:"current_price"`
	ATR                float64 `json:"atr_value"`
	RegimeScore        float64 `json:"regime_score"`
	TargetMid          float64 `json:"target_mid"`
	Low                float64 `json:"predicted_low"`
	High               float64 `json:"predicted_high"`
	RangeWidthAbs      float64 `json:"range_width_abs"`
	RangeWidthPct      float64 `json:"range_width_pct"`
	BullishProbability float64 `json:"bullish_probability"`

	// Optional implied-volatility comparison range. Reported alongside the
	// ATR range, never as a substitute: the two are different volatility
	// estimators.
	HasIV  bool    `json:"has_iv"`
	IVLow  float64 `json:"iv_low,omitempty"`
	IVHigh float64 `json:"iv_high,omitempty"`

	Bias regime.Bias `json:"bias"`
}

// Range computes the ATR-anchored price range prediction:
//
//	bias_pct   = regime_score x multiplier
//	target_mid = price x (1 + bias_pct)
//	low, high  = target_mid -/+ ATR
//
// Fails when the snapshot carries no usable ATR; it never substitutes a
// zero-width range.
func Range(ticker string, snap indicators.Snapshot, bias regime.Bias, cfg Config) (Prediction, error) {
	if snap.CurrentPrice <= 0 {
		return Prediction{}, fmt.Errorf("%w: no current price for %s", market.ErrInsufficientData, ticker)
	}
	if snap.ATR14 <= 0 {
		return Prediction{}, fmt.Errorf("%w: no ATR for %s", market.ErrInsufficientData, ticker)
	}

	score := bias.Score()
	biasPct := score * cfg.RegimeMultiplier
	target := snap.CurrentPrice * (1 + biasPct)
	widthAbs := 2 * snap.ATR14

	return Prediction{
		Ticker:             ticker,
		CurrentPrice:       snap.CurrentPrice,
		ATR:                snap.ATR14,
		RegimeScore:        score,
		TargetMid:          target,
		Low:                target - snap.ATR14,
		High:               target + snap.ATR14,
		RangeWidthAbs:      widthAbs,
		RangeWidthPct:      widthAbs / snap.CurrentPrice,
		BullishProbability: clamp(0.5+0.5*score, 0.1, 0.9),
		Bias:               bias,
	}, nil
}

// WithIVOverlay attaches the implied-volatility comparison range computed
// from a weekly volatility fraction.
func (p Prediction) WithIVOverlay(weeklyIV float64) Prediction {
	if weeklyIV <= 0 {
		return p
	}
	half := p.CurrentPrice * weeklyIV
	p.HasIV = true
	p.IVLow = p.CurrentPrice - half
	p.IVHigh = p.CurrentPrice + half
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package regime maps an indicator snapshot to a bounded directional bias
// score. The ensemble is additive and unweighted; reproducibility depends on
// exact threshold fidelity, so the constants here are not configurable.
package regime

import (
	"github.com/strikecast/strikecast/internal/domain/indicators"
)

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
	rsiBiasMag    = 0.2

	macdBiasMag = 0.1

	momentumThresholdPct = 2.0
	momentumBiasMag      = 0.1

	// MinScore and MaxScore bound the additive ensemble.
	MinScore = -(rsiBiasMag + macdBiasMag + momentumBiasMag)
	MaxScore = rsiBiasMag + macdBiasMag + momentumBiasMag
)

// Bias is the per-signal breakdown of the regime score.
type Bias struct {
	RSI      float64 `json:"rsi_bias"`
	MACD     float64 `json:"macd_bias"`
	Momentum float64 `json:"momentum_bias"`
}

// Score returns the combined regime score in [MinScore, MaxScore].
func (b Bias) Score() float64 {
	return b.RSI + b.MACD + b.Momentum
}

// ScoreSnapshot derives the directional bias from an indicator snapshot.
//
// RSI is a mean-reversion signal: overbought reads bearish, oversold
// bullish. MACD cross and 5-bar momentum are trend-following.
func ScoreSnapshot(s indicators.Snapshot) Bias {
	var b Bias

	if s.RSI > rsiOverbought {
		b.RSI = -rsiBiasMag
	} else if s.RSI < rsiOversold {
		b.RSI = rsiBiasMag
	}

	if s.MACD > s.MACDSignal {
		b.MACD = macdBiasMag
	} else {
		b.MACD = -macdBiasMag
	}

	if s.MomentumPct > momentumThresholdPct {
		b.Momentum = momentumBiasMag
	} else if s.MomentumPct < -momentumThresholdPct {
		b.Momentum = -momentumBiasMag
	}

	return b
}

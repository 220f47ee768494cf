package indicators

import (
	"fmt"

	"github.com/strikecast/strikecast/internal/domain/market"
)

const (
	rsiPeriod    = 14
	atrPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSmooth   = 9
	momentumBars = 5

	// MinBars is the hard floor: 14-bar windows need one extra bar for the
	// previous close. MACD(12/26/9) is deliberately accepted as partial
	// above this floor; its EMAs are seeded from the first bar and only
	// settle past the 26+9 bar warm-up, so histories shorter than 35 bars
	// carry a MACD biased toward zero rather than no MACD at all. Callers
	// wanting a settled MACD should supply 35 or more bars.
	MinBars = atrPeriod + 1
)

// Snapshot holds the indicator values derived from one price series.
// Computed fresh per call; never cached across callers.
type Snapshot struct {
	RSI          float64 `json:"rsi"`
	MACD         float64 `json:"macd"`
	MACDSignal   float64 `json:"macd_signal"`
	MomentumPct  float64 `json:"momentum_pct"`
	ATR14        float64 `json:"atr_14"`
	CurrentPrice float64 `json:"current_price"`
}

// Compute derives the full indicator snapshot from a price series.
// Returns market.ErrInsufficientData when the series cannot support the
// 14-bar windows; it never computes over a short window silently.
func Compute(series market.Series) (Snapshot, error) {
	if len(series) < MinBars {
		return Snapshot{}, fmt.Errorf("%w: %d bars, need at least %d", market.ErrInsufficientData, len(series), MinBars)
	}
	if err := series.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid series: %w", err)
	}

	closes := series.Closes()
	macd, signal := macdLine(closes)

	last := closes[len(closes)-1]
	prior := closes[len(closes)-1-momentumBars]

	return Snapshot{
		RSI:          rsi(closes),
		MACD:         macd,
		MACDSignal:   signal,
		MomentumPct:  (last - prior) / prior * 100,
		ATR14:        atr(series),
		CurrentPrice: last,
	}, nil
}

// rsi computes the 14-period Wilder RSI: seed averages from a simple mean of
// the first window, then Wilder smoothing for the remainder.
func rsi(closes []float64) float64 {
	changes := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		changes[i-1] = closes[i] - closes[i-1]
	}

	var avgGain, avgLoss float64
	for _, c := range changes[:rsiPeriod] {
		if c > 0 {
			avgGain += c
		} else {
			avgLoss -= c
		}
	}
	avgGain /= rsiPeriod
	avgLoss /= rsiPeriod

	alpha := 1.0 / float64(rsiPeriod)
	for _, c := range changes[rsiPeriod:] {
		gain, loss := 0.0, 0.0
		if c > 0 {
			gain = c
		} else {
			loss = -c
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macdLine returns the MACD line (12/26 EMA difference) and its 9-period
// signal EMA, both at the most recent bar.
func macdLine(closes []float64) (float64, float64) {
	fast := emaSeries(closes, macdFast)
	slow := emaSeries(closes, macdSlow)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	signal := emaSeries(line, macdSmooth)

	return line[len(line)-1], signal[len(signal)-1]
}

func emaSeries(values []float64, period int) []float64 {
	k := 2.0 / (float64(period) + 1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// atr computes the 14-bar Average True Range as a simple mean of the true
// range over the most recent complete window.
func atr(series market.Series) float64 {
	trs := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		hl := series[i].High - series[i].Low
		hc := abs(series[i].High - series[i-1].Close)
		lc := abs(series[i].Low - series[i-1].Close)
		trs = append(trs, max3(hl, hc, lc))
	}

	window := trs[len(trs)-atrPeriod:]
	sum := 0.0
	for _, tr := range window {
		sum += tr
	}
	return sum / atrPeriod
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

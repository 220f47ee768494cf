package indicators

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikecast/strikecast/internal/domain/market"
)

func flatSeries(n int, close, spread float64) market.Series {
	series := make(market.Series, 0, n)
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series = append(series, market.Bar{
			Date:   date,
			Open:   close,
			High:   close + spread,
			Low:    close - spread,
			Close:  close,
			Volume: 1e6,
		})
		date = date.AddDate(0, 0, 1)
	}
	return series
}

func trendSeries(n int, start, step float64) market.Series {
	series := make(market.Series, 0, n)
	date := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	price := start
	spread := step
	if spread < 0 {
		spread = -spread
	}
	for i := 0; i < n; i++ {
		series = append(series, market.Bar{
			Date:   date,
			Open:   price - step,
			High:   price + spread,
			Low:    price - spread,
			Close:  price,
			Volume: 1e6,
		})
		price += step
		date = date.AddDate(0, 0, 1)
	}
	return series
}

func TestComputeInsufficientData(t *testing.T) {
	tests := []struct {
		name string
		bars int
		ok   bool
	}{
		{"empty", 0, false},
		{"ten bars", 10, false},
		{"one short of minimum", MinBars - 1, false},
		{"exactly minimum", MinBars, true},
		{"comfortable", 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(flatSeries(tt.bars, 100, 1))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, market.ErrInsufficientData))
			}
		})
	}
}

func TestComputePartialMACDAtMinimum(t *testing.T) {
	// 15 bars is well below the 26+9 MACD warm-up. The snapshot is still
	// served, with the EMAs seeded from the first bar, so the line keeps its
	// direction even when its magnitude is damped.
	snap, err := Compute(trendSeries(MinBars, 100, 1))
	require.NoError(t, err)
	assert.Greater(t, snap.MACD, 0.0)
	assert.Greater(t, snap.MACD, snap.MACDSignal)

	flat, err := Compute(flatSeries(MinBars, 100, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, flat.MACD, 1e-9)
}

func TestComputeFlatSeries(t *testing.T) {
	snap, err := Compute(flatSeries(40, 100, 1))
	require.NoError(t, err)

	// Constant close with a 2-wide bar: every true range is 2.
	assert.InDelta(t, 2.0, snap.ATR14, 1e-9)
	assert.InDelta(t, 0.0, snap.MomentumPct, 1e-9)
	assert.Equal(t, 100.0, snap.CurrentPrice)
	assert.InDelta(t, snap.MACD, snap.MACDSignal, 1e-9)
}

func TestComputeAllGainsRSI(t *testing.T) {
	snap, err := Compute(trendSeries(40, 100, 1))
	require.NoError(t, err)

	assert.Equal(t, 100.0, snap.RSI)
	assert.Greater(t, snap.MACD, snap.MACDSignal)
	assert.Greater(t, snap.MomentumPct, 2.0)
}

func TestComputeDowntrend(t *testing.T) {
	snap, err := Compute(trendSeries(40, 200, -1))
	require.NoError(t, err)

	assert.Less(t, snap.RSI, 30.0)
	assert.Less(t, snap.MACD, snap.MACDSignal)
	assert.Less(t, snap.MomentumPct, -2.0)
	assert.Greater(t, snap.ATR14, 0.0)
}

func TestComputeRejectsInvalidSeries(t *testing.T) {
	series := flatSeries(40, 100, 1)
	series[5].High = series[5].Low - 1

	_, err := Compute(series)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid series")
}

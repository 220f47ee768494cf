package predict

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikecast/strikecast/internal/domain/indicators"
	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/regime"
)

func TestRangeDocumentedScenario(t *testing.T) {
	snap := indicators.Snapshot{CurrentPrice: 150.00, ATR14: 6.75}
	bias := regime.Bias{RSI: 0.15}

	pred, err := Range("TEST", snap, bias, DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 150.225, pred.TargetMid, 1e-9)
	assert.InDelta(t, 143.475, pred.Low, 1e-9)
	assert.InDelta(t, 156.975, pred.High, 1e-9)
	assert.Equal(t, 13.50, pred.RangeWidthAbs)
	assert.InDelta(t, 0.09, pred.RangeWidthPct, 1e-9)
}

func TestRangeWidthIsExactlyTwiceATR(t *testing.T) {
	// Width comes straight from the ATR, not from high minus low, so it is
	// immune to floating point cancellation.
	snap := indicators.Snapshot{CurrentPrice: 333.33, ATR14: 7.77}
	pred, err := Range("TEST", snap, regime.Bias{}, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 2*snap.ATR14, pred.RangeWidthAbs)
}

func TestRangeRequiresUsableInputs(t *testing.T) {
	tests := []struct {
		name string
		snap indicators.Snapshot
	}{
		{"zero atr", indicators.Snapshot{CurrentPrice: 100}},
		{"negative atr", indicators.Snapshot{CurrentPrice: 100, ATR14: -1}},
		{"zero price", indicators.Snapshot{ATR14: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Range("TEST", tt.snap, regime.Bias{}, DefaultConfig())
			require.Error(t, err)
			assert.True(t, errors.Is(err, market.ErrInsufficientData))
		})
	}
}

func TestRangeTargetMonotonicInScore(t *testing.T) {
	snap := indicators.Snapshot{CurrentPrice: 100, ATR14: 3}
	cfg := DefaultConfig()

	prev := -1.0
	for _, b := range []regime.Bias{{RSI: -0.4}, {RSI: -0.1}, {}, {RSI: 0.1}, {RSI: 0.4}} {
		pred, err := Range("TEST", snap, b, cfg)
		require.NoError(t, err)
		assert.Greater(t, pred.TargetMid, prev)
		prev = pred.TargetMid
	}
}

func TestBullishProbability(t *testing.T) {
	snap := indicators.Snapshot{CurrentPrice: 100, ATR14: 3}

	neutral, err := Range("TEST", snap, regime.Bias{}, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, neutral.BullishProbability, 1e-9)

	bullish, err := Range("TEST", snap, regime.Bias{RSI: 0.2, MACD: 0.1, Momentum: 0.1}, DefaultConfig())
	require.NoError(t, err)
	assert.InDelta(t, 0.7, bullish.BullishProbability, 1e-9)
}

func TestWithIVOverlay(t *testing.T) {
	snap := indicators.Snapshot{CurrentPrice: 100, ATR14: 3}
	pred, err := Range("TEST", snap, regime.Bias{}, DefaultConfig())
	require.NoError(t, err)
	require.False(t, pred.HasIV)

	withIV := pred.WithIVOverlay(0.02)
	assert.True(t, withIV.HasIV)
	assert.InDelta(t, 98, withIV.IVLow, 1e-9)
	assert.InDelta(t, 102, withIV.IVHigh, 1e-9)

	// ATR range unchanged; the overlay is a comparison, not a substitute.
	assert.Equal(t, pred.Low, withIV.Low)
	assert.Equal(t, pred.High, withIV.High)

	assert.False(t, pred.WithIVOverlay(0).HasIV)
}

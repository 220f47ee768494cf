package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikecast/strikecast/internal/domain/options"
)

var (
	testNow        = time.Date(2025, 7, 21, 12, 0, 0, 0, time.UTC)
	testExpiration = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
)

func testEngine(cfg Config) *Engine {
	return NewEngine(cfg).WithClock(func() time.Time { return testNow })
}

func TestPriceExactStrikeMatch(t *testing.T) {
	chain := []options.Quote{
		{Strike: decimal.NewFromFloat(172), Side: options.Put, Bid: 1.00, Ask: 1.20},
		{Strike: decimal.NewFromFloat(172.5), Side: options.Put, Bid: 2.00, Ask: 2.20},
		{Strike: decimal.NewFromFloat(172.5), Side: options.Call, Bid: 9.00, Ask: 9.40},
	}

	eng := testEngine(DefaultConfig())
	q, err := eng.Price(Request{
		Ticker: "NVDA", Strike: decimal.NewFromFloat(172.5), Side: options.Put,
		Expiration: testExpiration, Spot: 171, ATR: 5, Chain: chain,
	})
	require.NoError(t, err)

	// 172.5 matches 172.5 exactly, never the neighboring 172.
	assert.Equal(t, 2.10, q.Price)
	assert.Equal(t, options.ProvenanceReal, q.Provenance)
}

func TestPriceLastTradeFallback(t *testing.T) {
	chain := []options.Quote{
		{Strike: decimal.NewFromFloat(150), Side: options.Call, Last: 3.45},
	}
	eng := testEngine(DefaultConfig())
	q, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(150), Side: options.Call,
		Expiration: testExpiration, Spot: 148, ATR: 3, Chain: chain,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.45, q.Price)
	assert.Equal(t, options.ProvenanceReal, q.Provenance)
}

func TestPriceSyntheticFallback(t *testing.T) {
	eng := testEngine(DefaultConfig())
	q, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(95), Side: options.Put,
		Expiration: testExpiration, Spot: 100, ATR: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, options.ProvenanceSynthetic, q.Provenance)
	assert.GreaterOrEqual(t, q.Price, 0.01)
}

func TestPriceSyntheticNeedsInputs(t *testing.T) {
	eng := testEngine(DefaultConfig())

	_, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(95), Side: options.Put,
		Expiration: testExpiration,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoQuote))

	_, err = eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(95), Side: options.Put,
		Spot: 100,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoQuote))
}

func TestSyntheticMonotonicWithDistance(t *testing.T) {
	eng := testEngine(DefaultConfig())

	price := func(strike float64) float64 {
		q, err := eng.Price(Request{
			Ticker: "TEST", Strike: decimal.NewFromFloat(strike), Side: options.Put,
			Expiration: testExpiration, Spot: 100, ATR: 2,
		})
		require.NoError(t, err)
		return q.Price
	}

	// Further out of the money is never more expensive.
	near := price(99)
	mid := price(97)
	far := price(90)
	assert.GreaterOrEqual(t, near, mid)
	assert.GreaterOrEqual(t, mid, far)
}

func TestSyntheticIntrinsicFloor(t *testing.T) {
	eng := testEngine(DefaultConfig())
	q, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(150), Side: options.Put,
		Expiration: testExpiration, Spot: 100, ATR: 2,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.Price, 50.0)
}

func TestSyntheticPennyFloor(t *testing.T) {
	eng := testEngine(DefaultConfig())
	q, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(50), Side: options.Put,
		Expiration: testNow.Add(12 * time.Hour), Spot: 100, ATR: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.01, q.Price)
}

func TestSyntheticDeterministic(t *testing.T) {
	eng := testEngine(DefaultConfig())
	req := Request{
		Ticker: "NVDA", Strike: decimal.NewFromFloat(146), Side: options.Put,
		Expiration: testExpiration, Spot: 160, ATR: 7.5,
	}
	a, err := eng.Price(req)
	require.NoError(t, err)
	b, err := eng.Price(req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVolatilityOverrideChangesPrice(t *testing.T) {
	calm := testEngine(Config{Model: ModelTiered, DefaultVolatility: 0.10})
	wild := testEngine(Config{Model: ModelTiered, DefaultVolatility: 0.50})

	req := Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(99), Side: options.Put,
		Expiration: testExpiration, Spot: 100, ATR: 2,
	}
	a, err := calm.Price(req)
	require.NoError(t, err)
	b, err := wild.Price(req)
	require.NoError(t, err)
	assert.Greater(t, b.Price, a.Price)
}

func TestBlackScholesModel(t *testing.T) {
	eng := testEngine(Config{Model: ModelBlackScholes, DefaultVolatility: 0.25})

	atm, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(100), Side: options.Call,
		Expiration: testNow.AddDate(0, 0, 30), Spot: 100,
	})
	require.NoError(t, err)
	assert.Greater(t, atm.Price, 0.0)

	deepITM, err := eng.Price(Request{
		Ticker: "TEST", Strike: decimal.NewFromFloat(50), Side: options.Call,
		Expiration: testNow.AddDate(0, 0, 30), Spot: 100,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deepITM.Price, 50.0)
	assert.Greater(t, atm.Price, 0.0)
	assert.Less(t, atm.Price, deepITM.Price)
}

func TestBlackScholesIntrinsicCollapse(t *testing.T) {
	assert.InDelta(t, 50.0, blackScholes(true, 100, 50, 0, 0, 0.25), 1e-9)
	assert.InDelta(t, 0.0, blackScholes(true, 100, 150, 0, 0, 0.25), 1e-9)
	assert.InDelta(t, 50.0, blackScholes(false, 100, 150, 0.1, 0, 0), 1e-9)
}

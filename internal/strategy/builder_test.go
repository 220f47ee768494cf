package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/domain/predict"
	"github.com/strikecast/strikecast/internal/pricing"
)

var (
	testNow        = time.Date(2025, 7, 21, 12, 0, 0, 0, time.UTC)
	testExpiration = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
)

func testBuilder() *Builder {
	pricer := pricing.NewEngine(pricing.DefaultConfig()).WithClock(func() time.Time { return testNow })
	return NewBuilder(pricer, zerolog.Nop())
}

func nvdaPrediction() predict.Prediction {
	return predict.Prediction{
		Ticker:        "NVDA",
		CurrentPrice:  160,
		ATR:           7.5,
		RegimeScore:   0,
		TargetMid:     160,
		Low:           152.5,
		High:          167.5,
		RangeWidthAbs: 15,
	}
}

func ladder(values ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func strikeSet(c options.Candidate) map[string]options.Action {
	out := make(map[string]options.Action, len(c.Legs))
	for _, l := range c.Legs {
		out[l.Strike.String()+string(l.Side[0])] = l.Action
	}
	return out
}

func TestSpacing(t *testing.T) {
	tests := []struct {
		width float64
		want  float64
	}{
		{2, 1},    // clamps up
		{8, 2},    // quarter of the range
		{15, 3.75},
		{40, 5},   // clamps down
	}
	for _, tt := range tests {
		p := predict.Prediction{RangeWidthAbs: tt.width}
		assert.Equal(t, tt.want, Spacing(p), "width %.1f", tt.width)
	}
}

func quote(strike float64, side options.Side, bid, ask float64) options.Quote {
	return options.Quote{
		Ticker:     "NVDA",
		Strike:     decimal.NewFromFloat(strike),
		Side:       side,
		Expiration: testExpiration,
		Bid:        bid,
		Ask:        ask,
	}
}

func TestBuildIronCondorWithFractionalStrike(t *testing.T) {
	in := Inputs{
		Prediction: nvdaPrediction(),
		Expiration: testExpiration,
		Strikes:    ladder(146, 150, 170, 172.5),
		Chain: []options.Quote{
			quote(146, options.Put, 0.75, 0.85),
			quote(150, options.Put, 1.45, 1.55),
			quote(170, options.Call, 1.35, 1.45),
			quote(172.5, options.Call, 0.65, 0.75),
		},
		Liquidity: 5e6,
	}

	cand, err := testBuilder().Build(options.IronCondor, in)
	require.NoError(t, err)
	require.Len(t, cand.Legs, 4)

	got := strikeSet(cand)
	assert.Equal(t, options.Buy, got["146P"])
	assert.Equal(t, options.Sell, got["150P"])
	assert.Equal(t, options.Sell, got["170C"])
	assert.Equal(t, options.Buy, got["172.5C"])

	// All four legs priced from the chain midpoints.
	assert.InDelta(t, 1.40, cand.Credit, 1e-9)
	assert.Equal(t, cand.Credit, cand.MaxProfit)
	// Widest wing is the 146/150 put side.
	assert.InDelta(t, 4.0-cand.Credit, cand.MaxRisk, 1e-9)
	assert.False(t, cand.HasSyntheticLegs())
	assert.Contains(t, cand.Title, "146/150/170/172.5")
	assert.Contains(t, cand.Title, "Iron Condor")
}

func TestBuildBullPutSpread(t *testing.T) {
	in := Inputs{
		Prediction: nvdaPrediction(),
		Expiration: testExpiration,
		Strikes:    ladder(145, 150, 155, 165, 170),
		Chain: []options.Quote{
			quote(145, options.Put, 0.75, 0.85),
			quote(150, options.Put, 1.45, 1.55),
		},
		Liquidity: 5e6,
	}

	cand, err := testBuilder().Build(options.BullPutSpread, in)
	require.NoError(t, err)
	require.Len(t, cand.Legs, 2)

	var short, long options.Leg
	for _, l := range cand.Legs {
		if l.Action == options.Sell {
			short = l
		} else {
			long = l
		}
	}
	require.Equal(t, options.Put, short.Side)
	require.Equal(t, options.Put, long.Side)

	// Short strike anchored near the predicted low, below spot; long strike
	// roughly a spacing further down.
	assert.True(t, short.Strike.LessThan(decimal.NewFromFloat(160)))
	assert.True(t, long.Strike.LessThan(short.Strike))

	width := short.Strike.Sub(long.Strike).InexactFloat64()
	assert.InDelta(t, width-cand.Credit, cand.MaxRisk, 1e-9)
	assert.Equal(t, cand.Credit, cand.MaxProfit)
	assert.Greater(t, cand.Credit, 0.0)
}

func TestBuildBearCallSpread(t *testing.T) {
	in := Inputs{
		Prediction: nvdaPrediction(),
		Expiration: testExpiration,
		Strikes:    ladder(150, 155, 165, 170, 175),
		Chain: []options.Quote{
			quote(165, options.Call, 1.45, 1.55),
			quote(170, options.Call, 0.75, 0.85),
		},
		Liquidity: 5e6,
	}

	cand, err := testBuilder().Build(options.BearCallSpread, in)
	require.NoError(t, err)
	require.Len(t, cand.Legs, 2)

	var short, long options.Leg
	for _, l := range cand.Legs {
		if l.Action == options.Sell {
			short = l
		} else {
			long = l
		}
	}
	assert.True(t, short.Strike.GreaterThan(decimal.NewFromFloat(160)))
	assert.True(t, long.Strike.GreaterThan(short.Strike))
	assert.Greater(t, cand.Credit, 0.0)
}

func TestBuildButterflyShape(t *testing.T) {
	t.Run("bullish bias puts the wide wing below", func(t *testing.T) {
		p := nvdaPrediction()
		p.RegimeScore = 0.2
		cand, err := testBuilder().Build(options.BrokenWingButterfly, Inputs{
			Prediction: p, Expiration: testExpiration,
			Strikes: ladder(145, 150, 152.5, 155, 157.5, 160, 162.5, 165, 167.5, 170, 175),
		})
		require.NoError(t, err)
		require.Len(t, cand.Legs, 3)

		var body options.Leg
		strikes := make([]decimal.Decimal, 0, 3)
		for _, l := range cand.Legs {
			strikes = append(strikes, l.Strike)
			if l.Action == options.Sell {
				body = l
			}
		}
		options.SortStrikes(strikes)

		assert.Equal(t, 2, body.Quantity)
		assert.Equal(t, options.Put, body.Side)
		lowWing := body.Strike.Sub(strikes[0]).InexactFloat64()
		highWing := strikes[2].Sub(body.Strike).InexactFloat64()
		assert.Greater(t, lowWing, highWing)
	})

	t.Run("bearish bias puts the wide wing above", func(t *testing.T) {
		p := nvdaPrediction()
		p.RegimeScore = -0.2
		cand, err := testBuilder().Build(options.BrokenWingButterfly, Inputs{
			Prediction: p, Expiration: testExpiration,
			Strikes: ladder(145, 150, 152.5, 155, 157.5, 160, 162.5, 165, 167.5, 170, 175),
		})
		require.NoError(t, err)

		var body options.Leg
		strikes := make([]decimal.Decimal, 0, 3)
		for _, l := range cand.Legs {
			strikes = append(strikes, l.Strike)
			if l.Action == options.Sell {
				body = l
			}
		}
		options.SortStrikes(strikes)

		assert.Equal(t, options.Call, body.Side)
		lowWing := body.Strike.Sub(strikes[0]).InexactFloat64()
		highWing := strikes[2].Sub(body.Strike).InexactFloat64()
		assert.Greater(t, highWing, lowWing)
	})
}

func TestBuildNoUsableStrikes(t *testing.T) {
	in := Inputs{
		Prediction: nvdaPrediction(),
		Expiration: testExpiration,
		Strikes:    ladder(170, 175, 180), // nothing below spot
	}
	_, err := testBuilder().Build(options.BullPutSpread, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoStrikes))
}

func TestBuildUnpriceableLegDiscardsCandidate(t *testing.T) {
	// Zero expiration defeats both real lookup and synthetic fallback.
	in := Inputs{
		Prediction: nvdaPrediction(),
	}
	_, err := testBuilder().Build(options.BullPutSpread, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnpriceableLeg))
}

func TestBuildNegativeRiskDiscardsCandidate(t *testing.T) {
	// A quote set where the credit exceeds the strike width is a pricing
	// anomaly; the candidate is rejected, not clamped.
	in := Inputs{
		Prediction: nvdaPrediction(),
		Expiration: testExpiration,
		Strikes:    ladder(145, 150, 155),
		Chain: []options.Quote{
			quote(150, options.Put, 19.90, 20.10),
			quote(145, options.Put, 0.05, 0.15),
		},
	}
	_, err := testBuilder().Build(options.BullPutSpread, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNegativeRisk))
}

func TestCreditMatchesLegArithmetic(t *testing.T) {
	in := Inputs{
		Prediction: nvdaPrediction(),
		Expiration: testExpiration,
	}
	cand, err := testBuilder().Build(options.IronCondor, in)
	require.NoError(t, err)

	want := 0.0
	for _, l := range cand.Legs {
		if l.Action == options.Sell {
			want += l.Price * float64(l.Quantity)
		} else {
			want -= l.Price * float64(l.Quantity)
		}
	}
	assert.InDelta(t, want, cand.Credit, 1e-9)
}

func TestProbabilityOfProfitScalesWithDistance(t *testing.T) {
	b := testBuilder()
	p := nvdaPrediction()

	near := b.probabilityOfProfit(p, decimal.NewFromFloat(158))
	far := b.probabilityOfProfit(p, decimal.NewFromFloat(150))
	assert.Greater(t, far, near)
	assert.GreaterOrEqual(t, near, 0.05)
	assert.LessOrEqual(t, far, 0.95)
}

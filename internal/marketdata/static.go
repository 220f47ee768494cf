package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/strikecast/strikecast/internal/domain/market"
	"github.com/strikecast/strikecast/internal/domain/options"
)

// TickerData is the seed for one static ticker.
type TickerData struct {
	Series market.Series
	// Chains maps expiration (UTC midnight) to a chain snapshot.
	Chains map[time.Time][]options.Quote
	// WeeklyIV is the implied volatility as a weekly fraction; HasIV
	// false means the provider reports none for this ticker.
	WeeklyIV float64
	HasIV    bool
}

// Static is a deterministic in-memory provider for tests and offline runs.
type Static struct {
	mu      sync.RWMutex
	tickers map[string]TickerData
}

// NewStatic returns an empty static provider.
func NewStatic() *Static {
	return &Static{tickers: make(map[string]TickerData)}
}

// Add registers or replaces a ticker.
func (s *Static) Add(ticker string, data TickerData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers[ticker] = data
}

func (s *Static) PriceHistory(_ context.Context, ticker string, lookbackDays int) (market.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.tickers[ticker]
	if !ok {
		return nil, ErrInvalidTicker
	}
	if len(data.Series) == 0 {
		return nil, ErrDataUnavailable
	}
	series := data.Series
	if lookbackDays > 0 && len(series) > lookbackDays {
		series = series[len(series)-lookbackDays:]
	}
	out := make(market.Series, len(series))
	copy(out, series)
	return out, nil
}

func (s *Static) OptionChain(_ context.Context, ticker string, expiration time.Time) ([]options.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.tickers[ticker]
	if !ok {
		return nil, ErrInvalidTicker
	}
	if len(data.Chains) == 0 {
		return nil, nil
	}

	// Pick the expiration closest to the request, like a real chain
	// endpoint would.
	var best time.Time
	bestDiff := time.Duration(math.MaxInt64)
	for exp := range data.Chains {
		diff := exp.Sub(expiration)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			best = exp
		}
	}

	chain := data.Chains[best]
	out := make([]options.Quote, len(chain))
	copy(out, chain)
	return out, nil
}

func (s *Static) ImpliedVolatility(_ context.Context, ticker string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.tickers[ticker]
	if !ok {
		return 0, false, ErrInvalidTicker
	}
	return data.WeeklyIV, data.HasIV, nil
}

// GenerateSeries builds a deterministic daily random walk for a ticker. The
// same inputs always produce the same bars, so offline demos and tests are
// reproducible.
func GenerateSeries(ticker string, bars int, startPrice float64, start time.Time) market.Series {
	h := fnv.New64a()
	h.Write([]byte(ticker))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	series := make(market.Series, 0, bars)
	price := startPrice
	date := start
	for i := 0; i < bars; i++ {
		// Skip weekends to resemble a trading calendar.
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}

		drift := (rng.Float64() - 0.49) * 0.02 * price
		open := price
		close := price + drift
		high := math.Max(open, close) * (1 + rng.Float64()*0.008)
		low := math.Min(open, close) * (1 - rng.Float64()*0.008)
		volume := 1e6 * (0.5 + rng.Float64())

		series = append(series, market.Bar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
		date = date.AddDate(0, 0, 1)
	}
	return series
}

// GenerateChain builds a plausible chain snapshot around the spot price with
// real bid/ask quotes at every listed strike.
func GenerateChain(ticker string, spot float64, expiration time.Time, numStrikes int) []options.Quote {
	strikes := options.StrikeChain(spot, numStrikes)
	chain := make([]options.Quote, 0, 2*len(strikes))

	for _, strike := range strikes {
		k := strike.InexactFloat64()
		for _, side := range []options.Side{options.Put, options.Call} {
			mid := demoPremium(side, spot, k)
			chain = append(chain, options.Quote{
				Ticker:     ticker,
				Strike:     strike,
				Side:       side,
				Expiration: expiration,
				Bid:        round2(mid * 0.95),
				Ask:        round2(mid * 1.05),
				Last:       round2(mid),
			})
		}
	}

	sort.Slice(chain, func(i, j int) bool {
		if !chain[i].Strike.Equal(chain[j].Strike) {
			return chain[i].Strike.Cmp(chain[j].Strike) < 0
		}
		return chain[i].Side < chain[j].Side
	})
	return chain
}

func demoPremium(side options.Side, spot, strike float64) float64 {
	intrinsic := math.Max(0, spot-strike)
	if side == options.Put {
		intrinsic = math.Max(0, strike-spot)
	}
	timeValue := spot * 0.02 * math.Exp(-3*math.Abs(strike-spot)/spot)
	return math.Max(0.05, intrinsic+timeValue)
}

// SeedDemo returns a static provider stocked with a reproducible watchlist
// for offline screening.
func SeedDemo(now time.Time) *Static {
	s := NewStatic()
	expiration := nextFriday(now.AddDate(0, 0, 7))

	seeds := map[string]float64{
		"SPY": 520, "QQQ": 440, "IWM": 200,
		"AAPL": 210, "MSFT": 420, "NVDA": 150,
	}
	for ticker, price := range seeds {
		series := GenerateSeries(ticker, 90, price, now.AddDate(0, 0, -130))
		spot := series[len(series)-1].Close
		s.Add(ticker, TickerData{
			Series: series,
			Chains: map[time.Time][]options.Quote{
				expiration: GenerateChain(ticker, spot, expiration, 20),
			},
			WeeklyIV: 0.025,
			HasIV:    true,
		})
	}
	return s
}

func nextFriday(t time.Time) time.Time {
	for t.Weekday() != time.Friday {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

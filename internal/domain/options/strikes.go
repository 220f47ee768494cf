package options

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// RealisticStrike rounds a raw price to the nearest strike the listed market
// would actually carry: whole dollars above $25, halves between $10 and $25,
// quarters below.
func RealisticStrike(price float64) decimal.Decimal {
	switch {
	case price >= 25:
		return decimal.NewFromFloat(math.Round(price))
	case price >= 10:
		return decimal.NewFromFloat(math.Round(price*2) / 2)
	default:
		return decimal.NewFromFloat(math.Round(price*4) / 4)
	}
}

// StrikeIncrement returns the usual spacing between listed strikes at the
// given price level.
func StrikeIncrement(price float64) float64 {
	switch {
	case price >= 100:
		return 5
	case price >= 25:
		return 2.5
	case price >= 10:
		return 1
	default:
		return 0.5
	}
}

// StrikeChain synthesizes a realistic strike ladder around the current price,
// numStrikes on each side. Used when the provider cannot list real strikes.
func StrikeChain(current float64, numStrikes int) []decimal.Decimal {
	base := RealisticStrike(current)
	inc := decimal.NewFromFloat(StrikeIncrement(current))

	chain := make([]decimal.Decimal, 0, 2*numStrikes+1)
	for i := -numStrikes; i <= numStrikes; i++ {
		s := base.Add(inc.Mul(decimal.NewFromInt(int64(i))))
		if s.IsPositive() {
			chain = append(chain, s)
		}
	}
	return chain
}

// SortStrikes orders strikes ascending in place.
func SortStrikes(strikes []decimal.Decimal) {
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Cmp(strikes[j]) < 0 })
}

// NearestStrike returns the member of strikes closest to target.
// The boolean is false for an empty slice.
func NearestStrike(strikes []decimal.Decimal, target float64) (decimal.Decimal, bool) {
	if len(strikes) == 0 {
		return decimal.Decimal{}, false
	}
	t := decimal.NewFromFloat(target)
	best := strikes[0]
	bestDist := best.Sub(t).Abs()
	for _, s := range strikes[1:] {
		d := s.Sub(t).Abs()
		if d.Cmp(bestDist) < 0 {
			best = s
			bestDist = d
		}
	}
	return best, true
}

// NearestStrikeBelow returns the highest strike strictly below limit that is
// closest to target.
func NearestStrikeBelow(strikes []decimal.Decimal, target float64, limit decimal.Decimal) (decimal.Decimal, bool) {
	var below []decimal.Decimal
	for _, s := range strikes {
		if s.Cmp(limit) < 0 {
			below = append(below, s)
		}
	}
	return NearestStrike(below, target)
}

// NearestStrikeAbove returns the lowest strike strictly above limit that is
// closest to target.
func NearestStrikeAbove(strikes []decimal.Decimal, target float64, limit decimal.Decimal) (decimal.Decimal, bool) {
	var above []decimal.Decimal
	for _, s := range strikes {
		if s.Cmp(limit) > 0 {
			above = append(above, s)
		}
	}
	return NearestStrike(above, target)
}

// ChainStrikes extracts the distinct strikes present in a chain snapshot,
// ascending.
func ChainStrikes(chain []Quote) []decimal.Decimal {
	seen := make(map[string]struct{}, len(chain))
	var out []decimal.Decimal
	for _, q := range chain {
		key := q.Strike.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q.Strike)
	}
	SortStrikes(out)
	return out
}

package strategy

import (
	"sort"

	"github.com/strikecast/strikecast/internal/domain/options"
)

// Criteria filters candidates before ranking. Zero values disable the
// corresponding check.
type Criteria struct {
	MinCredit    float64 `yaml:"min_credit"`
	MaxRisk      float64 `yaml:"max_risk"`
	MinLiquidity float64 `yaml:"min_liquidity"`
	// AllowSynthetic admits candidates priced partly or fully by the
	// fallback model. Off by default in live screening profiles.
	AllowSynthetic bool `yaml:"allow_synthetic"`
}

// Filter returns the candidates passing every enabled criterion, preserving
// input order.
func Filter(cands []options.Candidate, crit Criteria) []options.Candidate {
	out := make([]options.Candidate, 0, len(cands))
	for _, c := range cands {
		if crit.MinCredit > 0 && c.Credit < crit.MinCredit {
			continue
		}
		if crit.MaxRisk > 0 && c.MaxRisk > crit.MaxRisk {
			continue
		}
		if crit.MinLiquidity > 0 && c.Liquidity < crit.MinLiquidity {
			continue
		}
		if !crit.AllowSynthetic && c.HasSyntheticLegs() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Sort orders candidates best-first: probability of profit descending, then
// credit descending, then max risk ascending. Stable, so equal candidates
// keep their construction order.
func Sort(cands []options.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.ProbabilityOfProfit != b.ProbabilityOfProfit {
			return a.ProbabilityOfProfit > b.ProbabilityOfProfit
		}
		if a.Credit != b.Credit {
			return a.Credit > b.Credit
		}
		return a.MaxRisk < b.MaxRisk
	})
}

// SortLegs orders a candidate's legs by premium ascending, stable for equal
// premiums. Display and storage both use this order.
func SortLegs(c *options.Candidate) {
	sort.SliceStable(c.Legs, func(i, j int) bool {
		return c.Legs[i].Price < c.Legs[j].Price
	})
}

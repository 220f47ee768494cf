package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/strikecast/strikecast/internal/domain/options"
)

const buildBaseURL = "https://optionstrat.com/build/"

// ErrDuplicateLeg means two legs share the same side and strike; the URL
// format cannot represent that unambiguously.
var ErrDuplicateLeg = errors.New("duplicate side/strike leg")

// Encode renders the strategy-visualization URL for a candidate:
//
//	https://optionstrat.com/build/iron-condor/NVDA/.NVDA250801P146,-.NVDA250801P150,-.NVDA250801C170,.NVDA250801C172.5
//
// Sold legs carry the "-." prefix, bought legs ".". Strike text preserves the
// exact decimal (172.5 stays 172.5, 150 stays 150). Legs are emitted in
// ascending strike order, puts before calls on equal strikes, regardless of
// how the candidate stores them.
func Encode(c options.Candidate) (string, error) {
	legs, err := urlOrder(c.Legs)
	if err != nil {
		return "", err
	}

	tokens := make([]string, 0, len(legs))
	for _, l := range legs {
		prefix := "."
		if l.Action == options.Sell {
			prefix = "-."
		}
		token := fmt.Sprintf("%s%s%s%s%s",
			prefix, c.Ticker, l.Expiration.Format("060102"), l.Side.Letter(), l.Strike.String())
		if l.Quantity > 1 {
			token += fmt.Sprintf("x%d", l.Quantity)
		}
		tokens = append(tokens, token)
	}

	return buildBaseURL + c.Kind.Slug() + "/" + c.Ticker + "/" + strings.Join(tokens, ","), nil
}

// CanonicalID returns a stable identity for deduplication across runs:
// slug, ticker, expiration date and the ascending strike/side fingerprint,
// e.g. "iron-condor/NVDA/20250801/146p-150p-170c-172.5c".
func CanonicalID(c options.Candidate) (string, error) {
	legs, err := urlOrder(c.Legs)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		parts = append(parts, l.Strike.String()+strings.ToLower(l.Side.Letter()))
	}
	return fmt.Sprintf("%s/%s/%s/%s",
		c.Kind.Slug(), c.Ticker, c.Expiration.Format("20060102"), strings.Join(parts, "-")), nil
}

// urlOrder returns legs sorted ascending by strike, puts before calls on
// ties, and rejects duplicate side/strike pairs.
func urlOrder(legs []options.Leg) ([]options.Leg, error) {
	out := make([]options.Leg, len(legs))
	copy(out, legs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Strike.Equal(out[j].Strike) {
			return out[i].Strike.Cmp(out[j].Strike) < 0
		}
		return out[i].Side == options.Put && out[j].Side == options.Call
	})

	for i := 1; i < len(out); i++ {
		if out[i].Side == out[i-1].Side && out[i].Strike.Equal(out[i-1].Strike) {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateLeg, out[i].Side, out[i].Strike)
		}
	}
	return out, nil
}

// Package options holds the option-domain vocabulary: quotes, legs,
// candidates and strategy kinds. Strikes are exact decimals throughout;
// truncating 172.5 to 172 once corrupted every downstream price and URL, so
// nothing in this package ever coerces a strike through int.
package options

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the option type.
type Side string

const (
	Put  Side = "PUT"
	Call Side = "CALL"
)

// Letter returns the single-letter symbol form ("P"/"C").
func (s Side) Letter() string {
	if s == Put {
		return "P"
	}
	return "C"
}

// Action is the trade direction of a leg.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Provenance records where a price came from.
type Provenance string

const (
	ProvenanceReal      Provenance = "real"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Quote is a priced option contract. Chain snapshots carry Bid/Ask/Last from
// the provider; resolved quotes carry Price and Provenance.
type Quote struct {
	Ticker     string          `json:"ticker"`
	Strike     decimal.Decimal `json:"strike"`
	Side       Side            `json:"option_type"`
	Expiration time.Time       `json:"expiration"`
	Bid        float64         `json:"bid,omitempty"`
	Ask        float64         `json:"ask,omitempty"`
	Last       float64         `json:"last,omitempty"`
	Price      float64         `json:"price"`
	Provenance Provenance      `json:"provenance"`
}

// Leg is one side of a strategy.
type Leg struct {
	Action     Action          `json:"action"`
	Side       Side            `json:"option_type"`
	Strike     decimal.Decimal `json:"strike"`
	Expiration time.Time       `json:"expiration"`
	Quantity   int             `json:"quantity"`
	Price      float64         `json:"price"`
	Provenance Provenance      `json:"provenance"`
}

// StrategyKind enumerates the supported strategy shapes. The set is closed;
// builders switch exhaustively over it.
type StrategyKind int

const (
	BullPutSpread StrategyKind = iota
	BearCallSpread
	IronCondor
	BrokenWingButterfly
)

// Kinds lists every supported strategy kind.
func Kinds() []StrategyKind {
	return []StrategyKind{BullPutSpread, BearCallSpread, IronCondor, BrokenWingButterfly}
}

func (k StrategyKind) String() string {
	switch k {
	case BullPutSpread:
		return "Bull Put Spread"
	case BearCallSpread:
		return "Bear Call Spread"
	case IronCondor:
		return "Iron Condor"
	case BrokenWingButterfly:
		return "Broken Wing Butterfly"
	default:
		return "unknown"
	}
}

// Slug returns the strategy-visualization URL slug.
func (k StrategyKind) Slug() string {
	switch k {
	case BullPutSpread:
		return "bull-put-spread"
	case BearCallSpread:
		return "bear-call-spread"
	case IronCondor:
		return "iron-condor"
	case BrokenWingButterfly:
		return "broken-wing-butterfly"
	default:
		return "unknown"
	}
}

// ParseStrategyKind accepts both display names and slugs.
func ParseStrategyKind(s string) (StrategyKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, " ", "-")
	norm = strings.ReplaceAll(norm, "_", "-")
	for _, k := range Kinds() {
		if norm == k.Slug() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy kind %q", s)
}

// Candidate is a fully priced strategy proposal.
type Candidate struct {
	Kind                StrategyKind `json:"strategy_kind"`
	Ticker              string       `json:"ticker"`
	Expiration          time.Time    `json:"expiration"`
	Legs                []Leg        `json:"legs"`
	Credit              float64      `json:"credit"`
	MaxRisk             float64      `json:"max_risk"`
	MaxProfit           float64      `json:"max_profit"`
	ProbabilityOfProfit float64      `json:"probability_of_profit"`
	Liquidity           float64      `json:"liquidity"`
	Title               string       `json:"title"`
	Reasoning           string       `json:"reasoning,omitempty"`
}

// HasSyntheticLegs reports whether any leg was priced by the fallback model.
func (c Candidate) HasSyntheticLegs() bool {
	for _, l := range c.Legs {
		if l.Provenance == ProvenanceSynthetic {
			return true
		}
	}
	return false
}

// FullySynthetic reports whether no leg carries a real quote.
func (c Candidate) FullySynthetic() bool {
	for _, l := range c.Legs {
		if l.Provenance == ProvenanceReal {
			return false
		}
	}
	return len(c.Legs) > 0
}

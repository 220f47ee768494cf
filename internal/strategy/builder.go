// Package strategy constructs, ranks and encodes options strategy
// candidates anchored to a price-range prediction.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/domain/predict"
	"github.com/strikecast/strikecast/internal/pricing"
)

var (
	// ErrUnpriceableLeg means a leg could not be priced at all; the whole
	// candidate is discarded, never patched with a default price.
	ErrUnpriceableLeg = errors.New("leg cannot be priced")

	// ErrNegativeRisk means credit exceeded strike width; such a candidate
	// is rejected, not clamped.
	ErrNegativeRisk = errors.New("negative max risk")

	// ErrMalformedStrikes means strike generation produced duplicate or
	// unordered strikes.
	ErrMalformedStrikes = errors.New("malformed strike set")

	// ErrNoStrikes means no usable strike exists on the required side of
	// the current price.
	ErrNoStrikes = errors.New("no usable strikes")
)

const (
	minSpacing        = 1.0
	maxSpacing        = 5.0
	minCondorWidth    = 10.0
	condorWidthFactor = 1.2

	minProbability = 0.05
	maxProbability = 0.95
)

// Spacing is the strike-distance unit shared by every strategy shape:
// a quarter of the predicted range, clamped to [1, 5] price units.
func Spacing(p predict.Prediction) float64 {
	s := p.RangeWidthAbs / 4
	if s < minSpacing {
		return minSpacing
	}
	if s > maxSpacing {
		return maxSpacing
	}
	return s
}

// Inputs carries everything a builder needs for one ticker/expiration.
type Inputs struct {
	Prediction predict.Prediction
	Expiration time.Time
	// Chain is the real option-chain snapshot; may be empty.
	Chain []options.Quote
	// Strikes lists the strikes actually available. When empty, strikes
	// are taken from the chain, or synthesized on a realistic grid.
	Strikes   []decimal.Decimal
	Liquidity float64
}

func (in Inputs) strikeList() []decimal.Decimal {
	if len(in.Strikes) > 0 {
		out := make([]decimal.Decimal, len(in.Strikes))
		copy(out, in.Strikes)
		options.SortStrikes(out)
		return out
	}
	if len(in.Chain) > 0 {
		return options.ChainStrikes(in.Chain)
	}
	return options.StrikeChain(in.Prediction.CurrentPrice, 30)
}

// Builder assembles priced candidates. Stateless per call.
type Builder struct {
	pricer *pricing.Engine
	log    zerolog.Logger
}

// NewBuilder creates a strategy builder on top of a pricing engine.
func NewBuilder(pricer *pricing.Engine, log zerolog.Logger) *Builder {
	return &Builder{pricer: pricer, log: log.With().Str("component", "strategy").Logger()}
}

// Build constructs one candidate of the given kind. Leg pricing runs to
// completion or fails atomically: no partially priced candidate is ever
// returned.
func (b *Builder) Build(kind options.StrategyKind, in Inputs) (options.Candidate, error) {
	switch kind {
	case options.BullPutSpread:
		return b.buildBullPut(in)
	case options.BearCallSpread:
		return b.buildBearCall(in)
	case options.IronCondor:
		return b.buildIronCondor(in)
	case options.BrokenWingButterfly:
		return b.buildButterfly(in)
	default:
		return options.Candidate{}, fmt.Errorf("unknown strategy kind %d", kind)
	}
}

func (b *Builder) buildBullPut(in Inputs) (options.Candidate, error) {
	p := in.Prediction
	strikes := in.strikeList()
	spacing := Spacing(p)
	spot := decimal.NewFromFloat(p.CurrentPrice)

	short, ok := options.NearestStrikeBelow(strikes, p.Low, spot)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no put strike below %.2f", ErrNoStrikes, p.CurrentPrice)
	}
	long, ok := options.NearestStrikeBelow(strikes, short.InexactFloat64()-spacing, short)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no put strike below %s", ErrNoStrikes, short)
	}

	sell, err := b.leg(in, options.Sell, options.Put, short, 1)
	if err != nil {
		return options.Candidate{}, err
	}
	buy, err := b.leg(in, options.Buy, options.Put, long, 1)
	if err != nil {
		return options.Candidate{}, err
	}

	legs := []options.Leg{sell, buy}
	credit := creditOf(legs)
	width := short.Sub(long).InexactFloat64()
	maxRisk := width - credit
	if maxRisk < 0 {
		return options.Candidate{}, fmt.Errorf("%w: credit %.2f exceeds width %.2f", ErrNegativeRisk, credit, width)
	}

	cand := options.Candidate{
		Kind:                options.BullPutSpread,
		Ticker:              p.Ticker,
		Expiration:          in.Expiration,
		Legs:                legs,
		Credit:              credit,
		MaxRisk:             maxRisk,
		MaxProfit:           credit,
		ProbabilityOfProfit: b.probabilityOfProfit(p, short),
		Liquidity:           in.Liquidity,
	}
	cand.Title = title(cand)
	cand.Reasoning = fmt.Sprintf(
		"Bullish income spread (score %.2f). Profit if %s closes above %s at expiration; break-even %.2f.",
		p.RegimeScore, p.Ticker, short, short.InexactFloat64()-credit)
	return cand, nil
}

func (b *Builder) buildBearCall(in Inputs) (options.Candidate, error) {
	p := in.Prediction
	strikes := in.strikeList()
	spacing := Spacing(p)
	spot := decimal.NewFromFloat(p.CurrentPrice)

	short, ok := options.NearestStrikeAbove(strikes, p.High, spot)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no call strike above %.2f", ErrNoStrikes, p.CurrentPrice)
	}
	long, ok := options.NearestStrikeAbove(strikes, short.InexactFloat64()+spacing, short)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no call strike above %s", ErrNoStrikes, short)
	}

	sell, err := b.leg(in, options.Sell, options.Call, short, 1)
	if err != nil {
		return options.Candidate{}, err
	}
	buy, err := b.leg(in, options.Buy, options.Call, long, 1)
	if err != nil {
		return options.Candidate{}, err
	}

	legs := []options.Leg{sell, buy}
	credit := creditOf(legs)
	width := long.Sub(short).InexactFloat64()
	maxRisk := width - credit
	if maxRisk < 0 {
		return options.Candidate{}, fmt.Errorf("%w: credit %.2f exceeds width %.2f", ErrNegativeRisk, credit, width)
	}

	cand := options.Candidate{
		Kind:                options.BearCallSpread,
		Ticker:              p.Ticker,
		Expiration:          in.Expiration,
		Legs:                legs,
		Credit:              credit,
		MaxRisk:             maxRisk,
		MaxProfit:           credit,
		ProbabilityOfProfit: b.probabilityOfProfit(p, short),
		Liquidity:           in.Liquidity,
	}
	cand.Title = title(cand)
	cand.Reasoning = fmt.Sprintf(
		"Bearish income spread (score %.2f). Profit if %s closes below %s at expiration; break-even %.2f.",
		p.RegimeScore, p.Ticker, short, short.InexactFloat64()+credit)
	return cand, nil
}

func (b *Builder) buildIronCondor(in Inputs) (options.Candidate, error) {
	p := in.Prediction
	strikes := in.strikeList()
	spacing := Spacing(p)
	spot := decimal.NewFromFloat(p.CurrentPrice)

	condorWidth := math.Max(minCondorWidth, p.RangeWidthAbs*condorWidthFactor)

	putShort, ok := options.NearestStrikeBelow(strikes, p.TargetMid-condorWidth/2, spot)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no put strike below %.2f", ErrNoStrikes, p.CurrentPrice)
	}
	callShort, ok := options.NearestStrikeAbove(strikes, p.TargetMid+condorWidth/2, spot)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no call strike above %.2f", ErrNoStrikes, p.CurrentPrice)
	}
	putLong, ok := options.NearestStrikeBelow(strikes, putShort.InexactFloat64()-spacing, putShort)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no put strike below %s", ErrNoStrikes, putShort)
	}
	callLong, ok := options.NearestStrikeAbove(strikes, callShort.InexactFloat64()+spacing, callShort)
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no call strike above %s", ErrNoStrikes, callShort)
	}

	if err := requireAscending(putLong, putShort, callShort, callLong); err != nil {
		return options.Candidate{}, err
	}

	ps, err := b.leg(in, options.Sell, options.Put, putShort, 1)
	if err != nil {
		return options.Candidate{}, err
	}
	pl, err := b.leg(in, options.Buy, options.Put, putLong, 1)
	if err != nil {
		return options.Candidate{}, err
	}
	cs, err := b.leg(in, options.Sell, options.Call, callShort, 1)
	if err != nil {
		return options.Candidate{}, err
	}
	cl, err := b.leg(in, options.Buy, options.Call, callLong, 1)
	if err != nil {
		return options.Candidate{}, err
	}

	legs := []options.Leg{pl, ps, cs, cl}
	credit := creditOf(legs)
	width := math.Max(
		putShort.Sub(putLong).InexactFloat64(),
		callLong.Sub(callShort).InexactFloat64(),
	)
	maxRisk := width - credit
	if maxRisk < 0 {
		return options.Candidate{}, fmt.Errorf("%w: credit %.2f exceeds width %.2f", ErrNegativeRisk, credit, width)
	}

	cand := options.Candidate{
		Kind:                options.IronCondor,
		Ticker:              p.Ticker,
		Expiration:          in.Expiration,
		Legs:                legs,
		Credit:              credit,
		MaxRisk:             maxRisk,
		MaxProfit:           credit,
		ProbabilityOfProfit: b.probabilityOfProfit(p, putShort, callShort),
		Liquidity:           in.Liquidity,
	}
	cand.Title = title(cand)
	cand.Reasoning = fmt.Sprintf(
		"Neutral income strategy (score %.2f). Profit zone %s <= %s <= %s; break-evens %.2f and %.2f.",
		p.RegimeScore, putShort, p.Ticker, callShort,
		putShort.InexactFloat64()-credit, callShort.InexactFloat64()+credit)
	return cand, nil
}

// buildButterfly builds a broken-wing butterfly: short body at the target,
// one wing at spacing, the other at twice spacing. The wide wing sits on the
// side the regime score points away from, so the extra risk lives where the
// drift is not expected to go.
func (b *Builder) buildButterfly(in Inputs) (options.Candidate, error) {
	p := in.Prediction
	strikes := in.strikeList()
	spacing := Spacing(p)

	body, ok := options.NearestStrike(strikes, p.TargetMid)
	if !ok {
		return options.Candidate{}, ErrNoStrikes
	}
	bodyF := body.InexactFloat64()

	var side options.Side
	var lower, upper decimal.Decimal
	if p.RegimeScore >= 0 {
		side = options.Put
		lower, ok = options.NearestStrikeBelow(strikes, bodyF-2*spacing, body)
		if !ok {
			return options.Candidate{}, fmt.Errorf("%w: no strike below %s", ErrNoStrikes, body)
		}
		upper, ok = options.NearestStrikeAbove(strikes, bodyF+spacing, body)
	} else {
		side = options.Call
		lower, ok = options.NearestStrikeBelow(strikes, bodyF-spacing, body)
		if !ok {
			return options.Candidate{}, fmt.Errorf("%w: no strike below %s", ErrNoStrikes, body)
		}
		upper, ok = options.NearestStrikeAbove(strikes, bodyF+2*spacing, body)
	}
	if !ok {
		return options.Candidate{}, fmt.Errorf("%w: no strike above %s", ErrNoStrikes, body)
	}
	if err := requireAscending(lower, body, upper); err != nil {
		return options.Candidate{}, err
	}

	lowBuy, err := b.leg(in, options.Buy, side, lower, 1)
	if err != nil {
		return options.Candidate{}, err
	}
	bodySell, err := b.leg(in, options.Sell, side, body, 2)
	if err != nil {
		return options.Candidate{}, err
	}
	highBuy, err := b.leg(in, options.Buy, side, upper, 1)
	if err != nil {
		return options.Candidate{}, err
	}

	legs := []options.Leg{lowBuy, bodySell, highBuy}
	credit := creditOf(legs)

	lowWing := body.Sub(lower).InexactFloat64()
	highWing := upper.Sub(body).InexactFloat64()
	narrow := math.Min(lowWing, highWing)
	wide := math.Max(lowWing, highWing)

	maxRisk := (wide - narrow) - credit
	if maxRisk < 0 {
		return options.Candidate{}, fmt.Errorf("%w: credit %.2f exceeds wing difference %.2f", ErrNegativeRisk, credit, wide-narrow)
	}

	cand := options.Candidate{
		Kind:                options.BrokenWingButterfly,
		Ticker:              p.Ticker,
		Expiration:          in.Expiration,
		Legs:                legs,
		Credit:              credit,
		MaxRisk:             maxRisk,
		MaxProfit:           narrow + credit,
		ProbabilityOfProfit: b.probabilityOfProfit(p, body),
		Liquidity:           in.Liquidity,
	}
	cand.Title = title(cand)
	cand.Reasoning = fmt.Sprintf(
		"Pinning strategy around %.2f (score %.2f): %s butterfly with the wide wing %s the body.",
		p.TargetMid, p.RegimeScore, side, wingSide(p.RegimeScore))
	return cand, nil
}

func wingSide(score float64) string {
	if score >= 0 {
		return "below"
	}
	return "above"
}

func (b *Builder) leg(in Inputs, action options.Action, side options.Side, strike decimal.Decimal, qty int) (options.Leg, error) {
	q, err := b.pricer.Price(pricing.Request{
		Ticker:     in.Prediction.Ticker,
		Strike:     strike,
		Side:       side,
		Expiration: in.Expiration,
		Spot:       in.Prediction.CurrentPrice,
		ATR:        in.Prediction.ATR,
		Chain:      in.Chain,
	})
	if err != nil {
		return options.Leg{}, fmt.Errorf("%w: %s %s %s: %v", ErrUnpriceableLeg, action, side, strike, err)
	}
	return options.Leg{
		Action:     action,
		Side:       side,
		Strike:     strike,
		Expiration: in.Expiration,
		Quantity:   qty,
		Price:      q.Price,
		Provenance: q.Provenance,
	}, nil
}

// probabilityOfProfit maps the distance from the current price to the
// nearest short strike into [0.05, 0.95], measured in half-range (ATR)
// units: shorts hugging the price earn more credit but win less often.
func (b *Builder) probabilityOfProfit(p predict.Prediction, shorts ...decimal.Decimal) float64 {
	if p.ATR <= 0 || len(shorts) == 0 {
		return minProbability
	}
	nearest := math.MaxFloat64
	for _, s := range shorts {
		d := math.Abs(p.CurrentPrice - s.InexactFloat64())
		if d < nearest {
			nearest = d
		}
	}
	pop := nearest / p.ATR
	if pop < minProbability {
		return minProbability
	}
	if pop > maxProbability {
		return maxProbability
	}
	return pop
}

// creditOf computes sell premium minus buy premium across all legs.
func creditOf(legs []options.Leg) float64 {
	credit := 0.0
	for _, l := range legs {
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		if l.Action == options.Sell {
			credit += l.Price * float64(qty)
		} else {
			credit -= l.Price * float64(qty)
		}
	}
	return credit
}

// requireAscending rejects duplicate or unordered strike sets at the source.
func requireAscending(strikes ...decimal.Decimal) error {
	for i := 1; i < len(strikes); i++ {
		if strikes[i-1].Cmp(strikes[i]) >= 0 {
			return fmt.Errorf("%w: %s >= %s", ErrMalformedStrikes, strikes[i-1], strikes[i])
		}
	}
	return nil
}

// title renders the display name, e.g. "NVDA Aug 1st 146/150/170/172.5 Iron
// Condor". Strikes appear ascending regardless of leg order.
func title(c options.Candidate) string {
	strikes := make([]decimal.Decimal, 0, len(c.Legs))
	seen := make(map[string]struct{})
	for _, l := range c.Legs {
		key := l.Strike.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		strikes = append(strikes, l.Strike)
	}
	options.SortStrikes(strikes)

	joined := ""
	for i, s := range strikes {
		if i > 0 {
			joined += "/"
		}
		joined += s.String()
	}
	return fmt.Sprintf("%s %s %s %s", c.Ticker, formatExpiration(c.Expiration), joined, c.Kind)
}

func formatExpiration(t time.Time) string {
	day := t.Day()
	suffix := "th"
	switch day {
	case 1, 21, 31:
		suffix = "st"
	case 2, 22:
		suffix = "nd"
	case 3, 23:
		suffix = "rd"
	}
	return fmt.Sprintf("%s %d%s", t.Format("Jan"), day, suffix)
}

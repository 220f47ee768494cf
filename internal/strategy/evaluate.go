package strategy

import (
	"fmt"

	"github.com/strikecast/strikecast/internal/domain/options"
	"github.com/strikecast/strikecast/internal/domain/predict"
)

// Advice is the management verdict for an open position.
type Advice string

const (
	// AdviceClose: a short strike is breached, take the position off.
	AdviceClose Advice = "CLOSE"
	// AdviceWatch: the predicted range now reaches a short strike.
	AdviceWatch Advice = "WATCH"
	// AdviceHold: the predicted range clears every short strike.
	AdviceHold Advice = "HOLD"
)

// Evaluation explains the verdict.
type Evaluation struct {
	Advice Advice `json:"advice"`
	Reason string `json:"reason"`
}

// Evaluate grades an open candidate against a fresh prediction for the same
// ticker. Breach of any short strike by the current price means CLOSE; the
// predicted range overlapping a short strike means WATCH; otherwise HOLD.
func Evaluate(c options.Candidate, p predict.Prediction) Evaluation {
	if c.Kind == options.BrokenWingButterfly {
		return evaluateButterfly(c, p)
	}

	worst := AdviceHold
	reason := fmt.Sprintf("predicted range %.2f-%.2f clears all short strikes", p.Low, p.High)

	for _, l := range c.Legs {
		if l.Action != options.Sell {
			continue
		}
		k := l.Strike.InexactFloat64()
		switch l.Side {
		case options.Put:
			if p.CurrentPrice <= k {
				return Evaluation{AdviceClose, fmt.Sprintf("price %.2f at or below short put %s", p.CurrentPrice, l.Strike)}
			}
			if p.Low <= k && worst != AdviceClose {
				worst = AdviceWatch
				reason = fmt.Sprintf("predicted low %.2f reaches short put %s", p.Low, l.Strike)
			}
		case options.Call:
			if p.CurrentPrice >= k {
				return Evaluation{AdviceClose, fmt.Sprintf("price %.2f at or above short call %s", p.CurrentPrice, l.Strike)}
			}
			if p.High >= k && worst != AdviceClose {
				worst = AdviceWatch
				reason = fmt.Sprintf("predicted high %.2f reaches short call %s", p.High, l.Strike)
			}
		}
	}
	return Evaluation{worst, reason}
}

// evaluateButterfly inverts the breach logic: a butterfly wants the price
// pinned at the short body, and loses past the wings.
func evaluateButterfly(c options.Candidate, p predict.Prediction) Evaluation {
	var lo, hi float64
	first := true
	for _, l := range c.Legs {
		if l.Action != options.Buy {
			continue
		}
		k := l.Strike.InexactFloat64()
		if first {
			lo, hi = k, k
			first = false
			continue
		}
		if k < lo {
			lo = k
		}
		if k > hi {
			hi = k
		}
	}
	if first {
		return Evaluation{AdviceWatch, "no wing legs found"}
	}

	switch {
	case p.CurrentPrice < lo || p.CurrentPrice > hi:
		return Evaluation{AdviceClose, fmt.Sprintf("price %.2f outside wings %.2f-%.2f", p.CurrentPrice, lo, hi)}
	case p.Low < lo || p.High > hi:
		return Evaluation{AdviceWatch, fmt.Sprintf("predicted range %.2f-%.2f extends past a wing", p.Low, p.High)}
	default:
		return Evaluation{AdviceHold, fmt.Sprintf("price and range pinned inside wings %.2f-%.2f", lo, hi)}
	}
}

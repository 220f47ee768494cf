package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientData signals that a price series is too short for the
// requested computation. Callers must treat this as "no result available",
// never as a zero-valued result.
var ErrInsufficientData = errors.New("insufficient price history")

// Bar is a single OHLCV price bar.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered sequence of bars, ascending by date.
type Series []Bar

// Validate checks ordering and basic sanity of the bars.
func (s Series) Validate() error {
	for i, b := range s {
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.4f below low %.4f", i, b.High, b.Low)
		}
		if b.Close <= 0 {
			return fmt.Errorf("bar %d: non-positive close %.4f", i, b.Close)
		}
		if i > 0 && !s[i-1].Date.Before(b.Date) {
			return fmt.Errorf("bar %d: date %s not after %s", i, b.Date.Format("2006-01-02"), s[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Closes returns the closing prices in series order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Last returns the most recent bar.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// AvgVolume returns the mean volume over the last n bars (or all bars when
// fewer exist). Zero for an empty series.
func (s Series) AvgVolume(n int) float64 {
	if len(s) == 0 {
		return 0
	}
	if n > len(s) {
		n = len(s)
	}
	sum := 0.0
	for _, b := range s[len(s)-n:] {
		sum += b.Volume
	}
	return sum / float64(n)
}

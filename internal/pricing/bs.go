package pricing

import "math"

// blackScholes prices a European option. Zero time or volatility collapses
// to intrinsic value. The synthetic fallback runs it with r=0, which keeps
// both sides at or above intrinsic.
func blackScholes(isCall bool, spot, strike, years, rate, sigma float64) float64 {
	if years <= 0 || sigma <= 0 {
		if isCall {
			return math.Max(0, spot-strike)
		}
		return math.Max(0, strike-spot)
	}

	d1 := (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*years) / (sigma * math.Sqrt(years))
	d2 := d1 - sigma*math.Sqrt(years)

	if isCall {
		return spot*normCDF(d1) - strike*math.Exp(-rate*years)*normCDF(d2)
	}
	return strike*math.Exp(-rate*years)*normCDF(-d2) - spot*normCDF(-d1)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

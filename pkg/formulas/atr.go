package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateATR calculates the Average True Range over the given period.
//
// ATR Formula:
//
//	TR = max(high-low, |high-prevClose|, |low-prevClose|)
//	ATR = EMA-smoothed average of TR over `length` periods
//
// Returns nil if there is not enough data for the period.
func CalculateATR(highs, lows, closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}

	atr := talib.Atr(highs, lows, closes, length)
	if len(atr) == 0 || isNaN(atr[len(atr)-1]) {
		return nil
	}

	result := atr[len(atr)-1]
	return &result
}

// ATRFraction returns the ATR as a fraction of the last close, useful for
// scaling position size inversely to recent volatility.
func ATRFraction(highs, lows, closes []float64, length int) *float64 {
	atr := CalculateATR(highs, lows, closes, length)
	if atr == nil || len(closes) == 0 {
		return nil
	}
	last := closes[len(closes)-1]
	if last == 0 {
		return nil
	}
	fraction := *atr / last
	return &fraction
}

package sizing

import (
	"github.com/aristath/quanttrader/pkg/formulas"
	"github.com/shopspring/decimal"
)

// ATRScaled sizes a position inversely to recent volatility: a high
// ATR fraction shrinks the position, a low one grows it, bounded to
// [MinFraction, MaxFraction] of equity. Grounded on the teacher's
// pkg/formulas (already wired to markcheno/go-talib for EMA/ATR),
// generalized from an indicator helper into a sizing strategy.
type ATRScaled struct {
	MinFraction decimal.Decimal
	MaxFraction decimal.Decimal
	TargetATR   decimal.Decimal // the ATR fraction at which Fraction == MaxFraction
	ATRLength   int
}

func NewATRScaled(minFraction, maxFraction, targetATR decimal.Decimal, atrLength int) *ATRScaled {
	return &ATRScaled{MinFraction: minFraction, MaxFraction: maxFraction, TargetATR: targetATR, ATRLength: atrLength}
}

// SizeFor expects params["highs"], params["lows"], params["closes"]
// ([]float64 recent candle bounds) from the caller's strategy context.
// Missing or insufficient history falls back to MinFraction.
func (a *ATRScaled) SizeFor(equity, price decimal.Decimal, params map[string]any) decimal.Decimal {
	fraction := a.MinFraction
	if highs, ok := params["highs"].([]float64); ok {
		lows, _ := params["lows"].([]float64)
		closes, _ := params["closes"].([]float64)
		if atrFraction := formulas.ATRFraction(highs, lows, closes, a.ATRLength); atrFraction != nil && *atrFraction > 0 {
			target, _ := a.TargetATR.Float64()
			scale := target / *atrFraction
			scaled := a.MaxFraction.Mul(decimal.NewFromFloat(scale))
			if scaled.LessThan(a.MinFraction) {
				scaled = a.MinFraction
			}
			if scaled.GreaterThan(a.MaxFraction) {
				scaled = a.MaxFraction
			}
			fraction = scaled
		}
	}
	if price.IsZero() {
		return decimal.Zero
	}
	return equity.Mul(fraction).Div(price)
}

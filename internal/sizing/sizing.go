// Package sizing implements the pure position-sizing contract: given
// equity, price, and strategy-supplied parameters, produce a quantity.
package sizing

import "github.com/shopspring/decimal"

// Client is the per-sizingName contract, memoised by internal/registry.
type Client interface {
	SizeFor(equity, price decimal.Decimal, params map[string]any) decimal.Decimal
}

// FixedFraction sizes a position as a constant fraction of equity at
// the current price: quantity = equity * fraction / price.
type FixedFraction struct {
	Fraction decimal.Decimal
}

func NewFixedFraction(fraction decimal.Decimal) *FixedFraction {
	return &FixedFraction{Fraction: fraction}
}

func (f *FixedFraction) SizeFor(equity, price decimal.Decimal, _ map[string]any) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	return equity.Mul(f.Fraction).Div(price)
}

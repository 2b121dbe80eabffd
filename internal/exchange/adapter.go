// Package exchange defines the exchange client contract: candle
// fetching, VWAP pricing, and price/quantity formatting. Concrete
// adapters are registered by name and memoised by internal/registry.
package exchange

import (
	"context"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/shopspring/decimal"
)

// Adapter is the per-exchangeName contract a strategy ticks against.
type Adapter interface {
	// GetCandles returns candles for symbol between fromTs and toTs
	// (epoch ms, inclusive), ordered by OpenTime ascending.
	GetCandles(ctx context.Context, symbol string, fromTs, toTs int64) ([]domain.Candle, error)
	// GetAveragePrice returns the current VWAP price for symbol.
	GetAveragePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// FormatPrice rounds price to the exchange's tick size for symbol.
	FormatPrice(symbol string, price decimal.Decimal) decimal.Decimal
	// FormatQuantity rounds quantity to the exchange's lot size for symbol.
	FormatQuantity(symbol string, quantity decimal.Decimal) decimal.Decimal
	// FeeRate returns the constant per-side fee rate (e.g. 0.001 = 0.1%).
	FeeRate() decimal.Decimal
}

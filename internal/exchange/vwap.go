package exchange

import (
	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/pkg/formulas"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// VWAP computes the volume-weighted average close price over candles,
// falling back to the simple mean close when no weights are supplied
// (adapters without per-candle volume still get a usable price).
// Grounded on the teacher's gonum usage for weighted statistics in
// pkg/formulas and internal/modules/optimization.
func VWAP(candles []domain.Candle, volumes []float64) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		f, _ := c.Close.Float64()
		closes[i] = f
	}
	if len(volumes) != len(closes) {
		return decimal.NewFromFloat(formulas.Mean(closes))
	}
	return decimal.NewFromFloat(stat.Mean(closes, volumes))
}

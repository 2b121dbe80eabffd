package sizing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestATRScaled_FallsBackToMinFractionWithoutHistory(t *testing.T) {
	a := NewATRScaled(decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.02), 14)
	got := a.SizeFor(decimal.NewFromInt(10000), decimal.NewFromInt(100), nil)
	assert.True(t, got.Equal(decimal.NewFromInt(1)), "expected MinFraction*equity/price, got %s", got)
}

func TestATRScaled_FallsBackToMinFractionWithInsufficientHistory(t *testing.T) {
	a := NewATRScaled(decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.02), 14)
	params := map[string]any{
		"highs":  []float64{101, 102},
		"lows":   []float64{99, 98},
		"closes": []float64{100, 101},
	}
	got := a.SizeFor(decimal.NewFromInt(10000), decimal.NewFromInt(100), params)
	assert.True(t, got.Equal(decimal.NewFromInt(1)))
}

func TestATRScaled_ZeroPriceReturnsZero(t *testing.T) {
	a := NewATRScaled(decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.02), 14)
	got := a.SizeFor(decimal.NewFromInt(10000), decimal.Zero, nil)
	assert.True(t, got.IsZero())
}

func TestATRScaled_SufficientHistoryStaysWithinBounds(t *testing.T) {
	a := NewATRScaled(decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.02), 3)
	highs := make([]float64, 0, 10)
	lows := make([]float64, 0, 10)
	closes := make([]float64, 0, 10)
	base := 100.0
	for i := 0; i < 10; i++ {
		highs = append(highs, base+2)
		lows = append(lows, base-2)
		closes = append(closes, base)
		base += 1
	}
	params := map[string]any{"highs": highs, "lows": lows, "closes": closes}

	got := a.SizeFor(decimal.NewFromInt(10000), decimal.NewFromInt(100), params)
	minQty := decimal.NewFromInt(10000).Mul(a.MinFraction).Div(decimal.NewFromInt(100))
	maxQty := decimal.NewFromInt(10000).Mul(a.MaxFraction).Div(decimal.NewFromInt(100))
	assert.True(t, got.GreaterThanOrEqual(minQty), "got %s below min %s", got, minQty)
	assert.True(t, got.LessThanOrEqual(maxQty), "got %s above max %s", got, maxQty)
}

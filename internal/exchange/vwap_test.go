package exchange

import (
	"testing"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func candle(close float64) domain.Candle {
	return domain.Candle{Close: decimal.NewFromFloat(close)}
}

func TestVWAP_EmptyCandlesReturnsZero(t *testing.T) {
	assert.True(t, VWAP(nil, nil).IsZero())
}

func TestVWAP_FallsBackToSimpleMeanWithoutVolumes(t *testing.T) {
	got := VWAP([]domain.Candle{candle(100), candle(200)}, nil)
	assert.InDelta(t, 150, mustFloat(got), 0.0001)
}

func TestVWAP_WeightsByVolumeWhenProvided(t *testing.T) {
	got := VWAP([]domain.Candle{candle(100), candle(200)}, []float64{3, 1})
	assert.InDelta(t, 125, mustFloat(got), 0.0001)
}

func TestVWAP_MismatchedVolumeLengthFallsBackToMean(t *testing.T) {
	got := VWAP([]domain.Candle{candle(100), candle(200), candle(300)}, []float64{1, 1})
	assert.InDelta(t, 200, mustFloat(got), 0.0001)
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRealizedPnLPercent_Long(t *testing.T) {
	pct := RealizedPnLPercent(Long, dec("100"), dec("110"), dec("0.001"))
	assert.True(t, pct.Equal(dec("9.8")), "got %s", pct)
}

func TestRealizedPnLPercent_Short(t *testing.T) {
	pct := RealizedPnLPercent(Short, dec("100"), dec("90"), dec("0.001"))
	assert.True(t, pct.Equal(dec("9.8")), "got %s", pct)
}

func TestTouchesOpen_Long(t *testing.T) {
	assert.True(t, TouchesOpen(Long, dec("100"), dec("99")))
	assert.True(t, TouchesOpen(Long, dec("100"), dec("100")))
	assert.False(t, TouchesOpen(Long, dec("100"), dec("101")))
}

func TestTouchesOpen_Short(t *testing.T) {
	assert.True(t, TouchesOpen(Short, dec("100"), dec("101")))
	assert.False(t, TouchesOpen(Short, dec("100"), dec("99")))
}

func TestCrossesTakeProfitAndStopLoss_Long(t *testing.T) {
	assert.True(t, CrossesTakeProfit(Long, dec("110"), dec("110")))
	assert.False(t, CrossesTakeProfit(Long, dec("110"), dec("109")))
	assert.True(t, CrossesStopLoss(Long, dec("90"), dec("90")))
	assert.False(t, CrossesStopLoss(Long, dec("90"), dec("91")))
}

func TestCrossesTakeProfitAndStopLoss_Short(t *testing.T) {
	assert.True(t, CrossesTakeProfit(Short, dec("90"), dec("90")))
	assert.False(t, CrossesTakeProfit(Short, dec("90"), dec("91")))
	assert.True(t, CrossesStopLoss(Short, dec("110"), dec("110")))
	assert.False(t, CrossesStopLoss(Short, dec("110"), dec("109")))
}

package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)
var two = decimal.NewFromInt(2)

// RealizedPnLPercent computes the realized PnL% for a position closed
// at exitPrice, net of a constant fee rate charged on both legs
// (spec.md §4.5: "A constant fee rate ... is subtracted from both
// sides").
//
//	long:  (exit - entry) / entry * 100 - 2*feeRate*100
//	short: (entry - exit) / entry * 100 - 2*feeRate*100
func RealizedPnLPercent(position Position, entry, exit, feeRate decimal.Decimal) decimal.Decimal {
	var raw decimal.Decimal
	switch position {
	case Short:
		raw = entry.Sub(exit).Div(entry)
	default: // Long
		raw = exit.Sub(entry).Div(entry)
	}
	pct := raw.Mul(hundred)
	feePct := feeRate.Mul(hundred).Mul(two)
	return pct.Sub(feePct)
}

// TouchesOpen reports whether a scheduled signal's limit price has been
// touched by the current market price: for long, price must fall to or
// below priceOpen; for short, price must rise to or above it.
func TouchesOpen(position Position, priceOpen, currentPrice decimal.Decimal) bool {
	if position == Short {
		return currentPrice.GreaterThanOrEqual(priceOpen)
	}
	return currentPrice.LessThanOrEqual(priceOpen)
}

// CrossesTakeProfit reports whether currentPrice has reached the TP bound.
func CrossesTakeProfit(position Position, priceTakeProfit, currentPrice decimal.Decimal) bool {
	if position == Short {
		return currentPrice.LessThanOrEqual(priceTakeProfit)
	}
	return currentPrice.GreaterThanOrEqual(priceTakeProfit)
}

// CrossesStopLoss reports whether currentPrice has breached the SL bound.
func CrossesStopLoss(position Position, priceStopLoss, currentPrice decimal.Decimal) bool {
	if position == Short {
		return currentPrice.GreaterThanOrEqual(priceStopLoss)
	}
	return currentPrice.LessThanOrEqual(priceStopLoss)
}

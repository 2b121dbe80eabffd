package domain

import "github.com/shopspring/decimal"

// Candle is one OHLC bar, keyed by the open timestamp (epoch ms) of
// its interval. The backtest fast-forward simulator tests High/Low
// against a signal's TP/SL bounds, closes a timeout at Open, and uses
// Close only for the unrealized PnL of candles that resolve nothing.
type Candle struct {
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	OpenTime int64
}

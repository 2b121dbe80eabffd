package persist

import (
	"encoding/json"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/shopspring/decimal"
)

// signalRowDoc is the wire format for a persisted domain.SignalRow.
// Key order is irrelevant per spec.md §4.3; field names are stable so
// that a round trip through any backend reproduces the row field-for-field
// (Testable Property 6).
type signalRowDoc struct {
	ID                  string           `json:"id"`
	Symbol              string           `json:"symbol"`
	StrategyName        string           `json:"strategyName"`
	ExchangeName        string           `json:"exchangeName"`
	Position            string           `json:"position"`
	PriceOpen           decimal.Decimal  `json:"priceOpen"`
	PriceTakeProfit     decimal.Decimal  `json:"priceTakeProfit"`
	PriceStopLoss       decimal.Decimal  `json:"priceStopLoss"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
	MinuteEstimatedTime int64            `json:"minuteEstimatedTime"`
	ScheduledAt         int64            `json:"scheduledAt"`
	PendingAt           int64            `json:"pendingAt"`
	IsScheduled         bool             `json:"_isScheduled"`
}

func encodeSignalRow(row domain.SignalRow) ([]byte, error) {
	doc := signalRowDoc{
		ID:                  row.ID,
		Symbol:              row.Symbol,
		StrategyName:        row.StrategyName,
		ExchangeName:        row.ExchangeName,
		Position:            string(row.Position),
		PriceOpen:           row.PriceOpen,
		PriceTakeProfit:     row.PriceTakeProfit,
		PriceStopLoss:       row.PriceStopLoss,
		Metadata:            row.Metadata,
		MinuteEstimatedTime: row.MinuteEstimatedTime,
		ScheduledAt:         row.ScheduledAt,
		PendingAt:           row.PendingAt,
		IsScheduled:         row.IsScheduled,
	}
	return json.Marshal(doc)
}

// decodeSignalRow returns (zero row, false) when data is corrupt/unparsable —
// corrupt JSON is treated as "missing" per spec.md §6, never as an error.
func decodeSignalRow(data []byte) (domain.SignalRow, bool) {
	var doc signalRowDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.SignalRow{}, false
	}
	return domain.SignalRow{
		ID:                  doc.ID,
		Symbol:              doc.Symbol,
		StrategyName:        doc.StrategyName,
		ExchangeName:        doc.ExchangeName,
		Position:            domain.Position(doc.Position),
		PriceOpen:           doc.PriceOpen,
		PriceTakeProfit:     doc.PriceTakeProfit,
		PriceStopLoss:       doc.PriceStopLoss,
		Metadata:            doc.Metadata,
		MinuteEstimatedTime: doc.MinuteEstimatedTime,
		ScheduledAt:         doc.ScheduledAt,
		PendingAt:           doc.PendingAt,
		IsScheduled:         doc.IsScheduled,
	}, true
}

func rowKey(symbol, strategyName string) string {
	return symbol + "_" + strategyName
}

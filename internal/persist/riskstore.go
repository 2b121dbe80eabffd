package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
)

const riskNamespace = "risk"

// activePositionDoc mirrors domain.ActivePosition for the wire format,
// embedding the same signalRowDoc shape used by SignalStore/ScheduleStore
// so a risk dump and a signal dump agree on how a row looks on disk.
type activePositionDoc struct {
	Signal        signalRowDoc `json:"signal"`
	StrategyName  string       `json:"strategyName"`
	ExchangeName  string       `json:"exchangeName"`
	OpenTimestamp int64        `json:"openTimestamp"`
}

// RiskStore persists a risk tracker's entire active-position set as one
// JSON array per riskName, namespace "risk". Optional: a ClientRisk with
// no RiskStore falls back to an empty map on startup and rebuilds state
// purely from live AddSignal/RemoveSignal calls (spec.md §9 Open
// Question: risk persistence is a durability nicety, not a correctness
// requirement, since the strategy client's own SignalStore remains the
// source of truth for what is actually open).
type RiskStore struct {
	backend Backend
	log     zerolog.Logger
}

func NewRiskStore(backend Backend, log zerolog.Logger) *RiskStore {
	return &RiskStore{backend: backend, log: log.With().Str("store", "risk").Logger()}
}

// Save overwrites the entire dump for riskName with positions.
func (s *RiskStore) Save(ctx context.Context, riskName string, positions []domain.ActivePosition) error {
	docs := make([]activePositionDoc, 0, len(positions))
	for _, p := range positions {
		docs = append(docs, activePositionDoc{
			Signal: signalRowDoc{
				ID:                  p.Signal.ID,
				Symbol:              p.Signal.Symbol,
				StrategyName:        p.Signal.StrategyName,
				ExchangeName:        p.Signal.ExchangeName,
				Position:            string(p.Signal.Position),
				PriceOpen:           p.Signal.PriceOpen,
				PriceTakeProfit:     p.Signal.PriceTakeProfit,
				PriceStopLoss:       p.Signal.PriceStopLoss,
				Metadata:            p.Signal.Metadata,
				MinuteEstimatedTime: p.Signal.MinuteEstimatedTime,
				ScheduledAt:         p.Signal.ScheduledAt,
				PendingAt:           p.Signal.PendingAt,
				IsScheduled:         p.Signal.IsScheduled,
			},
			StrategyName:  p.StrategyName,
			ExchangeName:  p.ExchangeName,
			OpenTimestamp: p.OpenTimestamp,
		})
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode risk dump %s: %w", riskName, err)
	}
	if err := s.backend.WriteData(ctx, riskNamespace, riskName, data); err != nil {
		return fmt.Errorf("write risk dump %s: %w", riskName, err)
	}
	return nil
}

// Load returns the positions last saved under riskName, or (nil, false)
// if nothing is stored or the stored content is corrupt — callers treat
// both the same way: start from an empty tracker.
func (s *RiskStore) Load(ctx context.Context, riskName string) ([]domain.ActivePosition, bool) {
	data, err := s.backend.ReadData(ctx, riskNamespace, riskName)
	if err != nil || data == nil {
		return nil, false
	}
	var docs []activePositionDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		s.log.Warn().Str("risk", riskName).Msg("corrupt risk dump treated as missing")
		return nil, false
	}
	positions := make([]domain.ActivePosition, 0, len(docs))
	for _, d := range docs {
		positions = append(positions, domain.ActivePosition{
			Signal: domain.SignalRow{
				ID:                  d.Signal.ID,
				Symbol:              d.Signal.Symbol,
				StrategyName:        d.Signal.StrategyName,
				ExchangeName:        d.Signal.ExchangeName,
				Position:            domain.Position(d.Signal.Position),
				PriceOpen:           d.Signal.PriceOpen,
				PriceTakeProfit:     d.Signal.PriceTakeProfit,
				PriceStopLoss:       d.Signal.PriceStopLoss,
				Metadata:            d.Signal.Metadata,
				MinuteEstimatedTime: d.Signal.MinuteEstimatedTime,
				ScheduledAt:         d.Signal.ScheduledAt,
				PendingAt:           d.Signal.PendingAt,
				IsScheduled:         d.Signal.IsScheduled,
			},
			StrategyName:  d.StrategyName,
			ExchangeName:  d.ExchangeName,
			OpenTimestamp: d.OpenTimestamp,
		})
	}
	return positions, true
}

package persist

import (
	"context"
	"fmt"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
)

const scheduleNamespace = "schedule"

// ScheduleStore persists pending-activation signals — rows proposed
// by a strategy's Tick whose open price the market has not yet touched.
// Namespace "schedule", same composite key as SignalStore. The two
// stores never share a key at the same instant in correct operation:
// the strategy client deletes the schedule row before writing the
// signal row when a scheduled signal activates (spec.md §4.3's ordering
// guarantee), so recovery never observes both for the same pair.
type ScheduleStore struct {
	backend Backend
	log     zerolog.Logger
	onWrite OnWriteFunc
}

// NewScheduleStore wires a ScheduleStore over backend. onWrite may be nil.
func NewScheduleStore(backend Backend, log zerolog.Logger, onWrite OnWriteFunc) *ScheduleStore {
	return &ScheduleStore{backend: backend, log: log.With().Str("store", "schedule").Logger(), onWrite: onWrite}
}

func (s *ScheduleStore) Write(ctx context.Context, row domain.SignalRow) error {
	row.IsScheduled = true
	data, err := encodeSignalRow(row)
	if err != nil {
		return fmt.Errorf("encode schedule row: %w", err)
	}
	key := rowKey(row.Symbol, row.StrategyName)
	if err := s.backend.WriteData(ctx, scheduleNamespace, key, data); err != nil {
		return fmt.Errorf("write schedule %s: %w", key, err)
	}
	if s.onWrite != nil {
		r := row
		s.onWrite(row.Symbol, &r, false)
	}
	return nil
}

func (s *ScheduleStore) Read(ctx context.Context, symbol, strategyName string) (domain.SignalRow, bool) {
	data, err := s.backend.ReadData(ctx, scheduleNamespace, rowKey(symbol, strategyName))
	if err != nil || data == nil {
		return domain.SignalRow{}, false
	}
	row, ok := decodeSignalRow(data)
	if !ok {
		s.log.Warn().Str("symbol", symbol).Str("strategy", strategyName).Msg("corrupt schedule row treated as missing")
	}
	return row, ok
}

// Delete removes the pending schedule for (symbol, strategyName). The
// strategy client must call this BEFORE SignalStore.Write when a
// schedule activates, so a crash between the two calls is recoverable
// as "nothing scheduled, nothing active" rather than fabricating a
// duplicate open.
func (s *ScheduleStore) Delete(ctx context.Context, symbol, strategyName string) error {
	if err := s.backend.DeleteData(ctx, scheduleNamespace, rowKey(symbol, strategyName)); err != nil {
		return fmt.Errorf("delete schedule %s: %w", rowKey(symbol, strategyName), err)
	}
	if s.onWrite != nil {
		s.onWrite(symbol, nil, false)
	}
	return nil
}

func (s *ScheduleStore) ListAll(ctx context.Context, exchangeName, strategyName string) ([]domain.SignalRow, error) {
	keys, err := s.backend.ListKeys(ctx, scheduleNamespace)
	if err != nil {
		return nil, fmt.Errorf("list schedule keys: %w", err)
	}
	rows := make([]domain.SignalRow, 0, len(keys))
	for _, key := range keys {
		data, err := s.backend.ReadData(ctx, scheduleNamespace, key)
		if err != nil || data == nil {
			continue
		}
		row, ok := decodeSignalRow(data)
		if !ok {
			s.log.Warn().Str("key", key).Msg("corrupt schedule row skipped during recovery")
			continue
		}
		if row.ExchangeName != exchangeName || row.StrategyName != strategyName {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

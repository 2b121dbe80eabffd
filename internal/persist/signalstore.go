package persist

import (
	"context"
	"fmt"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
)

// OnWriteFunc observes every mutation a store makes, so a websocket relay
// or metrics subscriber can mirror state without polling the backend.
type OnWriteFunc func(symbol string, row *domain.SignalRow, backtest bool)

// SignalStore persists the active signal for each (symbol, strategy)
// pair, one row per composite key, namespace "persist". Grounded on
// spec.md §4.3's SignalStore adapter; built once per strategy/exchange
// pair by internal/registry.
type SignalStore struct {
	backend Backend
	log     zerolog.Logger
	onWrite OnWriteFunc
}

// NewSignalStore wires a SignalStore over backend. onWrite may be nil.
func NewSignalStore(backend Backend, log zerolog.Logger, onWrite OnWriteFunc) *SignalStore {
	return &SignalStore{backend: backend, log: log.With().Str("store", "signal").Logger(), onWrite: onWrite}
}

const signalNamespace = "persist"

// Write persists row and fires onWrite(backtest=false) — signal writes
// are always live state, even inside a backtest run, since the strategy
// state machine holds exactly one authoritative row regardless of mode.
func (s *SignalStore) Write(ctx context.Context, row domain.SignalRow) error {
	data, err := encodeSignalRow(row)
	if err != nil {
		return fmt.Errorf("encode signal row: %w", err)
	}
	key := rowKey(row.Symbol, row.StrategyName)
	if err := s.backend.WriteData(ctx, signalNamespace, key, data); err != nil {
		return fmt.Errorf("write signal %s: %w", key, err)
	}
	if s.onWrite != nil {
		r := row
		s.onWrite(row.Symbol, &r, false)
	}
	return nil
}

// Read returns the active signal for (symbol, strategyName), and false
// if none is stored or the stored content is corrupt.
func (s *SignalStore) Read(ctx context.Context, symbol, strategyName string) (domain.SignalRow, bool) {
	data, err := s.backend.ReadData(ctx, signalNamespace, rowKey(symbol, strategyName))
	if err != nil || data == nil {
		return domain.SignalRow{}, false
	}
	row, ok := decodeSignalRow(data)
	if !ok {
		s.log.Warn().Str("symbol", symbol).Str("strategy", strategyName).Msg("corrupt signal row treated as missing")
	}
	return row, ok
}

// Delete removes the active signal for (symbol, strategyName) and fires
// onWrite with a nil row so observers can clear their mirrored state.
func (s *SignalStore) Delete(ctx context.Context, symbol, strategyName string) error {
	if err := s.backend.DeleteData(ctx, signalNamespace, rowKey(symbol, strategyName)); err != nil {
		return fmt.Errorf("delete signal %s: %w", rowKey(symbol, strategyName), err)
	}
	if s.onWrite != nil {
		s.onWrite(symbol, nil, false)
	}
	return nil
}

// ListAll enumerates every stored signal belonging to (exchangeName,
// strategyName), ignoring rows for other strategies/exchanges that
// happen to share the same backend namespace — the cross-contamination
// guard required on crash recovery (spec.md §4.3).
func (s *SignalStore) ListAll(ctx context.Context, exchangeName, strategyName string) ([]domain.SignalRow, error) {
	keys, err := s.backend.ListKeys(ctx, signalNamespace)
	if err != nil {
		return nil, fmt.Errorf("list signal keys: %w", err)
	}
	rows := make([]domain.SignalRow, 0, len(keys))
	for _, key := range keys {
		data, err := s.backend.ReadData(ctx, signalNamespace, key)
		if err != nil || data == nil {
			continue
		}
		row, ok := decodeSignalRow(data)
		if !ok {
			s.log.Warn().Str("key", key).Msg("corrupt signal row skipped during recovery")
			continue
		}
		if row.ExchangeName != exchangeName || row.StrategyName != strategyName {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

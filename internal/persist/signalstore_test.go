package persist

import (
	"context"
	"testing"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow(symbol, strategy string) domain.SignalRow {
	return domain.SignalRow{
		ID:                  "sig-1",
		Symbol:              symbol,
		StrategyName:        strategy,
		ExchangeName:        "http",
		Position:            domain.Long,
		PriceOpen:           decimal.NewFromInt(100),
		PriceTakeProfit:     decimal.NewFromInt(110),
		PriceStopLoss:       decimal.NewFromInt(90),
		MinuteEstimatedTime: 60,
		ScheduledAt:         1000,
	}
}

func TestSignalStore_WriteThenReadRoundTrips(t *testing.T) {
	store := NewSignalStore(NewFileBackend(t.TempDir()), zerolog.Nop(), nil)
	ctx := context.Background()
	row := sampleRow("BTC-USD", "trend")

	require.NoError(t, store.Write(ctx, row))

	got, ok := store.Read(ctx, "BTC-USD", "trend")
	require.True(t, ok)
	assert.Equal(t, row.ID, got.ID)
	assert.True(t, got.PriceOpen.Equal(row.PriceOpen))
}

func TestSignalStore_ReadMissingReturnsFalse(t *testing.T) {
	store := NewSignalStore(NewFileBackend(t.TempDir()), zerolog.Nop(), nil)
	_, ok := store.Read(context.Background(), "BTC-USD", "trend")
	assert.False(t, ok)
}

func TestSignalStore_WriteFiresOnWriteWithBacktestFalse(t *testing.T) {
	var gotSymbol string
	var gotBacktest bool
	var calls int
	store := NewSignalStore(NewFileBackend(t.TempDir()), zerolog.Nop(), func(symbol string, row *domain.SignalRow, backtest bool) {
		calls++
		gotSymbol = symbol
		gotBacktest = backtest
	})
	require.NoError(t, store.Write(context.Background(), sampleRow("BTC-USD", "trend")))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "BTC-USD", gotSymbol)
	assert.False(t, gotBacktest)
}

func TestSignalStore_DeleteFiresOnWriteWithNilRow(t *testing.T) {
	var gotRow *domain.SignalRow
	backend := NewFileBackend(t.TempDir())
	store := NewSignalStore(backend, zerolog.Nop(), func(symbol string, row *domain.SignalRow, backtest bool) {
		gotRow = row
	})
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, sampleRow("BTC-USD", "trend")))
	require.NoError(t, store.Delete(ctx, "BTC-USD", "trend"))

	assert.Nil(t, gotRow)
	_, ok := store.Read(ctx, "BTC-USD", "trend")
	assert.False(t, ok)
}

func TestSignalStore_ListAllFiltersByExchangeAndStrategy(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	store := NewSignalStore(backend, zerolog.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, sampleRow("BTC-USD", "trend")))
	other := sampleRow("ETH-USD", "trend")
	other.ExchangeName = "other-exchange"
	require.NoError(t, store.Write(ctx, other))
	differentStrategy := sampleRow("SOL-USD", "mean-revert")
	require.NoError(t, store.Write(ctx, differentStrategy))

	rows, err := store.ListAll(ctx, "http", "trend")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BTC-USD", rows[0].Symbol)
}

func TestSignalStore_ListAllSkipsCorruptEntries(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()
	require.NoError(t, backend.WriteData(ctx, signalNamespace, "corrupt_trend", []byte("not json")))

	store := NewSignalStore(backend, zerolog.Nop(), nil)
	require.NoError(t, store.Write(ctx, sampleRow("BTC-USD", "trend")))

	rows, err := store.ListAll(ctx, "http", "trend")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

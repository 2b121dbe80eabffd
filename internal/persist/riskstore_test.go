package persist

import (
	"context"
	"testing"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskStore_SaveThenLoadRoundTrips(t *testing.T) {
	store := NewRiskStore(NewFileBackend(t.TempDir()), zerolog.Nop())
	ctx := context.Background()

	positions := []domain.ActivePosition{
		{
			Signal:        sampleRow("BTC-USD", "trend"),
			StrategyName:  "trend",
			ExchangeName:  "http",
			OpenTimestamp: 1000,
		},
	}
	require.NoError(t, store.Save(ctx, "single-position", positions))

	got, ok := store.Load(ctx, "single-position")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "BTC-USD", got[0].Signal.Symbol)
	assert.Equal(t, int64(1000), got[0].OpenTimestamp)
}

func TestRiskStore_LoadMissingReturnsFalse(t *testing.T) {
	store := NewRiskStore(NewFileBackend(t.TempDir()), zerolog.Nop())
	_, ok := store.Load(context.Background(), "nope")
	assert.False(t, ok)
}

func TestRiskStore_SaveOverwritesEntireDump(t *testing.T) {
	store := NewRiskStore(NewFileBackend(t.TempDir()), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "single-position", []domain.ActivePosition{
		{Signal: sampleRow("BTC-USD", "trend"), OpenTimestamp: 1},
		{Signal: sampleRow("ETH-USD", "trend"), OpenTimestamp: 2},
	}))
	require.NoError(t, store.Save(ctx, "single-position", []domain.ActivePosition{
		{Signal: sampleRow("SOL-USD", "trend"), OpenTimestamp: 3},
	}))

	got, ok := store.Load(ctx, "single-position")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "SOL-USD", got[0].Signal.Symbol)
}

func TestRiskStore_LoadCorruptDumpReturnsFalse(t *testing.T) {
	backend := NewFileBackend(t.TempDir())
	ctx := context.Background()
	require.NoError(t, backend.WriteData(ctx, riskNamespace, "single-position", []byte("not json")))

	store := NewRiskStore(backend, zerolog.Nop())
	_, ok := store.Load(ctx, "single-position")
	assert.False(t, ok)
}

package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "quanttrader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteBackend_WriteThenReadRoundTrips(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte(`{"a":1}`)))

	got, err := b.ReadData(ctx, "signals", "abc")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestSQLiteBackend_ReadMissingKeyReturnsNilNil(t *testing.T) {
	b := newTestSQLiteBackend(t)
	got, err := b.ReadData(context.Background(), "signals", "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteBackend_WriteUpsertsOnConflict(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("first")))
	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("second")))

	got, err := b.ReadData(ctx, "signals", "abc")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestSQLiteBackend_DeleteRemovesKey(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()
	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("data")))

	require.NoError(t, b.DeleteData(ctx, "signals", "abc"))

	got, err := b.ReadData(ctx, "signals", "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteBackend_DeleteAbsentKeyIsNotAnError(t *testing.T) {
	b := newTestSQLiteBackend(t)
	err := b.DeleteData(context.Background(), "signals", "nope")
	assert.NoError(t, err)
}

func TestSQLiteBackend_ListKeysReturnsOnlyMatchingNamespace(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()
	require.NoError(t, b.WriteData(ctx, "signals", "a", []byte("1")))
	require.NoError(t, b.WriteData(ctx, "signals", "b", []byte("2")))
	require.NoError(t, b.WriteData(ctx, "schedule", "c", []byte("3")))

	keys, err := b.ListKeys(ctx, "signals")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestSQLiteBackend_EnsureNamespaceIsNoop(t *testing.T) {
	b := newTestSQLiteBackend(t)
	assert.NoError(t, b.EnsureNamespace(context.Background(), "anything"))
}

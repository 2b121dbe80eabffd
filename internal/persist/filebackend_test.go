package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_WriteThenReadRoundTrips(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	ctx := context.Background()

	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte(`{"a":1}`)))

	got, err := b.ReadData(ctx, "signals", "abc")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestFileBackend_ReadMissingKeyReturnsNilNil(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	got, err := b.ReadData(context.Background(), "signals", "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileBackend_WriteLeavesNoTmpFileBehind(t *testing.T) {
	root := t.TempDir()
	b := NewFileBackend(root)
	ctx := context.Background()

	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("data")))

	_, err := os.Stat(filepath.Join(root, "signals", "abc.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileBackend_DeleteAbsentKeyIsNotAnError(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	err := b.DeleteData(context.Background(), "signals", "nope")
	assert.NoError(t, err)
}

func TestFileBackend_DeleteRemovesKey(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	ctx := context.Background()
	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("data")))

	require.NoError(t, b.DeleteData(ctx, "signals", "abc"))

	got, err := b.ReadData(ctx, "signals", "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileBackend_ListKeysReturnsAllWrittenKeys(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	ctx := context.Background()
	require.NoError(t, b.WriteData(ctx, "signals", "a", []byte("1")))
	require.NoError(t, b.WriteData(ctx, "signals", "b", []byte("2")))

	keys, err := b.ListKeys(ctx, "signals")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestFileBackend_ListKeysOnMissingNamespaceReturnsEmpty(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	keys, err := b.ListKeys(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileBackend_WriteOverwritesPriorContentAtomically(t *testing.T) {
	b := NewFileBackend(t.TempDir())
	ctx := context.Background()
	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("first")))
	require.NoError(t, b.WriteData(ctx, "signals", "abc", []byte("second")))

	got, err := b.ReadData(ctx, "signals", "abc")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

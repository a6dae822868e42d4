package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchcal/matchcal/internal/domain/syncstate"
)

func TestFileStoreMissingFileIsFirstRun(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "sync_state.json"))

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Empty())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sync_state.json")
	store := NewFileStore(path)

	want := syncstate.State{
		Hash:       "abc123",
		MatchCount: 7,
		LastSyncAt: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.Hash, got.Hash)
	assert.Equal(t, want.MatchCount, got.MatchCount)
	assert.True(t, got.LastSyncAt.Equal(want.LastSyncAt))
	assert.False(t, got.Empty())
}

func TestFileStoreOverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "sync_state.json"))

	require.NoError(t, store.Save(context.Background(), syncstate.State{Hash: "one"}))
	require.NoError(t, store.Save(context.Background(), syncstate.State{Hash: "two"}))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "two", got.Hash)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not accumulate")
}

func TestFileStoreCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

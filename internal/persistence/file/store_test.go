package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/session"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	snap := session.Snapshot{
		Version:         session.SnapshotVersion,
		SessionID:       "alpha",
		Sequence:        []string{"P", "B", "T"},
		AdaptiveWeights: map[string]float64{"cau": 0.6, "neural": 0.4},
		Ledger:          []session.LedgerEntry{},
	}
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, snap.Sequence, got.Sequence)
	assert.Equal(t, snap.AdaptiveWeights, got.AdaptiveWeights)

	snap.Sequence = append(snap.Sequence, "B")
	require.NoError(t, store.Save(ctx, snap))
	got, err = store.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, got.Sequence, 4)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, ids)

	require.NoError(t, store.Delete(ctx, "alpha"))
	require.NoError(t, store.Delete(ctx, "alpha"))
	_, err = store.Load(ctx, "alpha")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStoreRejectsBadIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	for _, id := range []string{"", "../escape", ".hidden", "a/b"} {
		_, err := store.Load(context.Background(), id)
		assert.Error(t, err, id)
	}
}

func TestStoreRejectsCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"version":1,"sequence":["Q"]}`), 0o644))

	_, err = store.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, session.ErrInvalidSnapshot)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Save(ctx, session.Snapshot{SessionID: "x"}), context.Canceled)
}

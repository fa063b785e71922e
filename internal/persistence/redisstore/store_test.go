package redisstore

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/session"
)

func testSnapshot() session.Snapshot {
	return session.Snapshot{
		Version:   session.SnapshotVersion,
		SessionID: "s1",
		Sequence:  []string{"B", "B", "P"},
		Ledger:    []session.LedgerEntry{},
	}
}

func TestStoreSave(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStoreWithClient(db, "bac")
	ctx := context.Background()

	snap := testSnapshot()
	data, err := session.MarshalSnapshot(snap)
	require.NoError(t, err)

	mock.ExpectSet("bac:session:s1", data, 0).SetVal("OK")
	mock.ExpectSAdd("bac:sessions", "s1").SetVal(1)
	require.NoError(t, store.Save(ctx, snap))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectSet("bac:session:s1", data, 0).SetErr(redis.TxFailedErr)
	assert.Error(t, store.Save(ctx, snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStoreWithClient(db, "bac")
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		data, err := session.MarshalSnapshot(testSnapshot())
		require.NoError(t, err)
		mock.ExpectGet("bac:session:s1").SetVal(string(data))

		snap, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "B", "P"}, snap.Sequence)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("bac:session:gone").RedisNil()
		_, err := store.Load(ctx, "gone")
		assert.ErrorIs(t, err, session.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt", func(t *testing.T) {
		mock.ExpectGet("bac:session:bad").SetVal(`{"version":3}`)
		_, err := store.Load(ctx, "bad")
		assert.ErrorIs(t, err, session.ErrInvalidSnapshot)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("bac:session:s1").SetErr(redis.TxFailedErr)
		_, err := store.Load(ctx, "s1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, session.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStoreDeleteAndList(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewStoreWithClient(db, "bac")
	ctx := context.Background()

	mock.ExpectDel("bac:session:s1").SetVal(1)
	mock.ExpectSRem("bac:sessions", "s1").SetVal(1)
	require.NoError(t, store.Delete(ctx, "s1"))

	mock.ExpectSMembers("bac:sessions").SetVal([]string{"zeta", "alpha"})
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

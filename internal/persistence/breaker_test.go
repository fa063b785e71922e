package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	cb "github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/session"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Save(context.Context, session.Snapshot) error { f.calls++; return f.err }

func (f *flakyStore) Load(_ context.Context, id string) (session.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return session.Snapshot{}, f.err
	}
	return session.Snapshot{Version: 1, SessionID: id}, nil
}

func (f *flakyStore) Delete(context.Context, string) error { f.calls++; return f.err }

func (f *flakyStore) List(context.Context) ([]string, error) {
	f.calls++
	return []string{"a"}, f.err
}

type flakyLedger struct{ err error }

func (f *flakyLedger) Append(context.Context, string, session.LedgerEntry) error { return f.err }

func (f *flakyLedger) Recent(context.Context, string, int) ([]session.LedgerEntry, error) {
	return []session.LedgerEntry{{ID: "x"}}, f.err
}

func (f *flakyLedger) AccuracyByMode(context.Context, string) (map[combine.Mode]session.Accuracy, error) {
	return map[combine.Mode]session.Accuracy{combine.Balanced: {Total: 1}}, f.err
}

func TestBreakerStoreTripsAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	next := &flakyStore{err: errors.New("connection refused")}
	store := NewBreakerStore("snapshots", next, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	assert.Error(t, store.Save(ctx, session.Snapshot{}))
	assert.Error(t, store.Save(ctx, session.Snapshot{}))
	assert.Equal(t, cb.StateOpen, store.State())

	err := store.Save(ctx, session.Snapshot{})
	assert.ErrorIs(t, err, cb.ErrOpenState)
	assert.Equal(t, 2, next.calls, "open circuit short-circuits the backend")

	hc := store.Health(ctx)
	assert.False(t, hc.Healthy)
	require.Len(t, hc.Errors, 1)
	assert.Contains(t, hc.Errors[0], "snapshots")
}

func TestBreakerStoreIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	next := &flakyStore{err: session.ErrNotFound}
	store := NewBreakerStore("snapshots", next, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, session.ErrNotFound)
	}
	assert.Equal(t, cb.StateClosed, store.State())
}

func TestBreakerStorePassesResults(t *testing.T) {
	ctx := context.Background()
	store := NewBreakerStore("snapshots", &flakyStore{}, DefaultBreakerSettings())

	snap, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.SessionID)
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
	assert.NoError(t, store.Delete(ctx, "abc"))
}

func TestBreakerLedger(t *testing.T) {
	ctx := context.Background()
	next := &flakyLedger{}
	ledger := NewBreakerLedger("ledger", next, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute})

	require.NoError(t, ledger.Append(ctx, "s", session.LedgerEntry{}))
	entries, err := ledger.Recent(ctx, "s", 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	acc, err := ledger.AccuracyByMode(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, acc[combine.Balanced].Total)

	next.err = errors.New("timeout")
	assert.Error(t, ledger.Append(ctx, "s", session.LedgerEntry{}))
	assert.Equal(t, cb.StateOpen, ledger.State())
}

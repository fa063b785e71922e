package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	cb "github.com/sony/gobreaker"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/session"
)

// BreakerSettings tunes the circuit in front of a backend
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings trips after three straight failures and probes after a minute
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 3, OpenTimeout: 60 * time.Second}
}

func newBreaker(name string, s BreakerSettings) *cb.CircuitBreaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = s.OpenTimeout
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= s.ConsecutiveFailures {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.5
	}
	// a missing session is an answer, not a backend failure
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, session.ErrNotFound)
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit state changed")
	}
	return cb.NewCircuitBreaker(st)
}

// BreakerStore guards a snapshot store with a circuit breaker
type BreakerStore struct {
	next session.Store
	cb   *cb.CircuitBreaker
}

// NewBreakerStore wraps next
func NewBreakerStore(name string, next session.Store, s BreakerSettings) *BreakerStore {
	return &BreakerStore{next: next, cb: newBreaker(name, s)}
}

func (b *BreakerStore) Save(ctx context.Context, snap session.Snapshot) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.next.Save(ctx, snap) })
	return err
}

func (b *BreakerStore) Load(ctx context.Context, id string) (session.Snapshot, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Load(ctx, id) })
	if err != nil {
		return session.Snapshot{}, err
	}
	return v.(session.Snapshot), nil
}

func (b *BreakerStore) Delete(ctx context.Context, id string) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.next.Delete(ctx, id) })
	return err
}

func (b *BreakerStore) List(ctx context.Context) ([]string, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.List(ctx) })
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// State reports the circuit state
func (b *BreakerStore) State() cb.State { return b.cb.State() }

// BreakerLedger guards a ledger repository with a circuit breaker
type BreakerLedger struct {
	next LedgerRepo
	cb   *cb.CircuitBreaker
}

// NewBreakerLedger wraps next
func NewBreakerLedger(name string, next LedgerRepo, s BreakerSettings) *BreakerLedger {
	return &BreakerLedger{next: next, cb: newBreaker(name, s)}
}

func (b *BreakerLedger) Append(ctx context.Context, sessionID string, entry session.LedgerEntry) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.next.Append(ctx, sessionID, entry) })
	return err
}

func (b *BreakerLedger) Recent(ctx context.Context, sessionID string, limit int) ([]session.LedgerEntry, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Recent(ctx, sessionID, limit) })
	if err != nil {
		return nil, err
	}
	return v.([]session.LedgerEntry), nil
}

func (b *BreakerLedger) AccuracyByMode(ctx context.Context, sessionID string) (map[combine.Mode]session.Accuracy, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.AccuracyByMode(ctx, sessionID) })
	if err != nil {
		return nil, err
	}
	return v.(map[combine.Mode]session.Accuracy), nil
}

// State reports the circuit state
func (b *BreakerLedger) State() cb.State { return b.cb.State() }

// Health reports the store unhealthy while its circuit is open
func (b *BreakerStore) Health(context.Context) HealthCheck {
	return circuitHealth(b.cb)
}

// Health reports the ledger unhealthy while its circuit is open
func (b *BreakerLedger) Health(context.Context) HealthCheck {
	return circuitHealth(b.cb)
}

func circuitHealth(breaker *cb.CircuitBreaker) HealthCheck {
	hc := HealthCheck{Healthy: true, LastCheck: time.Now().UTC()}
	if state := breaker.State(); state == cb.StateOpen {
		hc.Healthy = false
		hc.Errors = []string{breaker.Name() + " circuit " + state.String()}
	}
	return hc
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/advisor"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// ErrNotFound is returned for an unknown session id
var ErrNotFound = errors.New("session not found")

// Store persists session snapshots
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// LedgerSink receives every settled prediction
type LedgerSink interface {
	Append(ctx context.Context, sessionID string, entry LedgerEntry) error
}

// ForecastCache memoises fixed-mode forecasts by mode and sequence
type ForecastCache interface {
	Get(ctx context.Context, key string) (Forecast, bool)
	Set(ctx context.Context, key string, f Forecast)
}

// OutcomeEvent is published for each recorded outcome
type OutcomeEvent struct {
	SessionID string          `json:"session_id"`
	Index     int             `json:"index"`
	Outcome   outcome.Outcome `json:"outcome"`
	Validated *LedgerEntry    `json:"validated,omitempty"`
	Credited  string          `json:"credited,omitempty"`
	At        time.Time       `json:"at"`
}

// PredictionEvent is published for each served prediction
type PredictionEvent struct {
	SessionID string    `json:"session_id"`
	Forecast  Forecast  `json:"forecast"`
	Cached    bool      `json:"cached"`
	At        time.Time `json:"at"`
}

// Publisher ships session events to an external bus
type Publisher interface {
	PublishOutcome(ctx context.Context, ev OutcomeEvent) error
	PublishPrediction(ctx context.Context, ev PredictionEvent) error
}

// UpdateKind names the mutation behind an Update
type UpdateKind string

const (
	UpdateRecorded UpdateKind = "recorded"
	UpdateUndone   UpdateKind = "undone"
	UpdateReset    UpdateKind = "reset"
	UpdateImported UpdateKind = "imported"
)

// Update is pushed to listeners after every mutation with a fresh forecast
type Update struct {
	SessionID string     `json:"session_id"`
	Kind      UpdateKind `json:"kind"`
	Hands     int        `json:"hands"`
	Forecast  Forecast   `json:"forecast"`
}

// Listener receives updates; it must not block
type Listener func(Update)

// Manager owns the live sessions and wires them to storage, events and caching.
// Optional collaborators left nil are skipped.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	engine      *combine.Engine
	defaultMode combine.Mode
	store       Store
	ledger      LedgerSink
	cache       ForecastCache
	publisher   Publisher
	listeners   []Listener
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

func WithStore(s Store) ManagerOption           { return func(m *Manager) { m.store = s } }
func WithLedgerSink(l LedgerSink) ManagerOption { return func(m *Manager) { m.ledger = l } }
func WithCache(c ForecastCache) ManagerOption   { return func(m *Manager) { m.cache = c } }
func WithPublisher(p Publisher) ManagerOption   { return func(m *Manager) { m.publisher = p } }

func WithListener(l Listener) ManagerOption {
	return func(m *Manager) { m.listeners = append(m.listeners, l) }
}

func WithDefaultMode(mode combine.Mode) ManagerOption {
	return func(m *Manager) { m.defaultMode = mode }
}

// NewManager creates a session manager over engine
func NewManager(engine *combine.Engine, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		engine:      engine,
		defaultMode: combine.Balanced,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe adds a listener after construction
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Create starts a new session and persists it
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s := New("", m.engine)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.persist(ctx, s)
	log.Info().Str("session", s.ID()).Msg("Session created")
	return s, nil
}

// Get returns a live session, loading it from the store on first use
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	snap.SessionID = id
	loaded, err := FromSnapshot(snap, m.engine)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	// double-check: another request may have loaded it meanwhile
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = loaded
	return loaded, nil
}

// Delete drops a session from memory and the store
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// IDs lists the live session ids, sorted
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record appends an outcome, persists the session and publishes the result
func (m *Manager) Record(ctx context.Context, id, raw string) (Recorded, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return Recorded{}, err
	}
	rec, err := s.RecordOutcome(raw)
	if err != nil {
		return Recorded{}, err
	}

	if rec.Validated != nil && m.ledger != nil {
		if err := m.ledger.Append(ctx, id, *rec.Validated); err != nil {
			log.Error().Err(err).Str("session", id).Msg("Ledger append failed")
		}
	}
	if m.publisher != nil {
		ev := OutcomeEvent{SessionID: id, Index: rec.Index, Outcome: rec.Outcome,
			Validated: rec.Validated, Credited: rec.Credited, At: time.Now().UTC()}
		if err := m.publisher.PublishOutcome(ctx, ev); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("Publish outcome failed")
		}
	}
	m.persist(ctx, s)
	m.notify(s, UpdateRecorded)
	return rec, nil
}

// Undo removes the last outcome of a session
func (m *Manager) Undo(ctx context.Context, id string) (outcome.Outcome, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	o, err := s.Undo()
	if err != nil {
		return "", err
	}
	m.persist(ctx, s)
	m.notify(s, UpdateUndone)
	return o, nil
}

// Reset starts a new shoe; clear also resets the adaptive weights
func (m *Manager) Reset(ctx context.Context, id string, clear bool) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if clear {
		s.Clear()
	} else {
		s.Reset()
	}
	m.persist(ctx, s)
	m.notify(s, UpdateReset)
	return nil
}

// Import replaces a session's state
func (m *Manager) Import(ctx context.Context, id string, snap Snapshot) error {
	s, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Import(snap); err != nil {
		return err
	}
	m.persist(ctx, s)
	m.notify(s, UpdateImported)
	log.Info().Str("session", id).Int("hands", s.Len()).Msg("Session imported")
	return nil
}

// Predict serves a forecast, from the cache when the sequence was seen before in a fixed mode
func (m *Manager) Predict(ctx context.Context, id string, mode combine.Mode) (Forecast, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return Forecast{}, err
	}

	key := ""
	if m.cache != nil && mode != combine.Adaptive {
		key = CacheKey(mode, s.Sequence())
		if f, ok := m.cache.Get(ctx, key); ok && s.Serve(key, f) {
			m.publishPrediction(ctx, id, f, true)
			return f, nil
		}
	}

	f, err := s.Predict(mode)
	if err != nil {
		return Forecast{}, err
	}
	if key != "" {
		m.cache.Set(ctx, key, f)
	}
	m.publishPrediction(ctx, id, f, false)
	return f, nil
}

// Advise serves a forecast with its staking recommendation
func (m *Manager) Advise(ctx context.Context, id string, mode combine.Mode) (Forecast, advisor.Advice, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return Forecast{}, advisor.Advice{}, err
	}
	f, a, err := s.Advise(mode)
	if err != nil {
		return Forecast{}, advisor.Advice{}, err
	}
	m.publishPrediction(ctx, id, f, false)
	return f, a, nil
}

// Flush saves every live session, returning the first error
func (m *Manager) Flush(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.RLock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.RUnlock()

	var first error
	for _, s := range live {
		if err := m.store.Save(ctx, s.Export()); err != nil && first == nil {
			first = fmt.Errorf("flush session %s: %w", s.ID(), err)
		}
	}
	return first
}

// CacheKey identifies a fixed-mode forecast
func CacheKey(mode combine.Mode, seq outcome.Sequence) string {
	return fmt.Sprintf("%s:%s", mode, seq.String())
}

func (m *Manager) publishPrediction(ctx context.Context, id string, f Forecast, cached bool) {
	if m.publisher == nil {
		return
	}
	ev := PredictionEvent{SessionID: id, Forecast: f, Cached: cached, At: time.Now().UTC()}
	if err := m.publisher.PublishPrediction(ctx, ev); err != nil {
		log.Warn().Err(err).Str("session", id).Msg("Publish prediction failed")
	}
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, s.Export()); err != nil {
		log.Error().Err(err).Str("session", s.ID()).Msg("Save session failed")
	}
}

func (m *Manager) notify(s *Session, kind UpdateKind) {
	m.mu.RLock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	f, err := s.Peek(m.defaultMode)
	if err != nil {
		log.Warn().Err(err).Str("session", s.ID()).Msg("Forecast for update failed")
		return
	}
	u := Update{SessionID: s.ID(), Kind: kind, Hands: f.Hands, Forecast: f}
	for _, l := range listeners {
		l(u)
	}
}

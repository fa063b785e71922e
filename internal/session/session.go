package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/adaptive"
	"github.com/sawpanic/baccarun/internal/advisor"
	"github.com/sawpanic/baccarun/internal/analyzers"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/explain"
	"github.com/sawpanic/baccarun/internal/roadmap"
)

// ErrEmptySequence is returned by Undo when there is nothing to remove
var ErrEmptySequence = errors.New("sequence is empty")

// Forecast is a prediction together with its explanation
type Forecast struct {
	Mode        combine.Mode        `json:"mode"`
	Prediction  outcome.Prediction  `json:"prediction"`
	Explanation explain.Explanation `json:"explanation"`
	// Winner is the analyzer or adaptive sub-model credited with the prediction
	Winner string `json:"winner,omitempty"`
	// Hands is the sequence length the forecast was made for
	Hands int `json:"hands"`
}

// Recorded describes the effect of one recorded outcome
type Recorded struct {
	Index   int             `json:"index"`
	Outcome outcome.Outcome `json:"outcome"`
	// Validated is the ledger entry created when this outcome settled a pending prediction
	Validated *LedgerEntry `json:"validated,omitempty"`
	// Credited names the adaptive sub-model rewarded by this outcome
	Credited string `json:"credited,omitempty"`
}

type credit struct {
	index  int
	before map[string]float64
}

// Session owns one shoe: its outcomes, the derived roads, the adaptive weights
// and the ledger of served predictions. All methods are safe for concurrent use
// and run one at a time.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	updatedAt time.Time

	sequence outcome.Sequence
	builder  *roadmap.Builder
	model    *adaptive.Model
	engine   *combine.Engine

	explainer *explain.Explainer
	now       func() time.Time

	pending *Forecast
	ledger  []LedgerEntry
	credits []credit
}

// New creates an empty session. An empty id gets a random UUID.
func New(id string, engine *combine.Engine) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return &Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		builder:   roadmap.NewBuilder(),
		model:     adaptive.NewModel(),
		engine:    engine,
		explainer: explain.NewExplainer(),
		now:       time.Now,
		ledger:    []LedgerEntry{},
	}
}

func (s *Session) ID() string { return s.id }

// Sequence returns a copy of the recorded outcomes
func (s *Session) Sequence() outcome.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence.Clone()
}

// Len is the number of recorded outcomes
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequence)
}

// UpdatedAt is the time of the last mutation
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// RecordOutcome parses and appends one outcome. A non-neutral outcome settles the
// pending prediction into the ledger and credits the adaptive sub-model whose
// call on the previous history was right. Ties settle nothing.
func (s *Session) RecordOutcome(raw string) (Recorded, error) {
	o, err := outcome.Parse(raw)
	if err != nil {
		return Recorded{}, fmt.Errorf("record outcome: %w", err)
	}
	return s.Record(o)
}

// Record appends an already parsed outcome
func (s *Session) Record(o outcome.Outcome) (Recorded, error) {
	if !o.Valid() {
		return Recorded{}, fmt.Errorf("record outcome %q: %w", o, outcome.ErrMalformedInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Recorded{Index: len(s.sequence), Outcome: o}
	if !o.IsNeutral() {
		rec.Credited = s.creditAdaptive(rec.Index, o)
		if s.pending != nil {
			entry := newLedgerEntry(rec.Index, *s.pending, o, s.now())
			s.ledger = append(s.ledger, entry)
			rec.Validated = &entry
			s.pending = nil
		}
	}

	s.sequence = append(s.sequence, o)
	s.builder.Append(o)
	s.touch()

	log.Debug().Str("session", s.id).Str("outcome", string(o)).Int("hands", len(s.sequence)).Msg("Outcome recorded")
	return rec, nil
}

// creditAdaptive checks the adaptive model's call on the history before index
func (s *Session) creditAdaptive(index int, actual outcome.Outcome) string {
	res := s.model.Predict(s.sequence)
	if res.Winner == "" || res.Prediction.Primary.Outcome != actual {
		return ""
	}
	before := s.model.Weights()
	if err := s.model.Credit(res.Winner); err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("Adaptive credit failed")
		return ""
	}
	s.credits = append(s.credits, credit{index: index, before: before})
	return res.Winner
}

// Undo removes the most recent outcome and everything it caused: the ledger entry
// it settled, which becomes pending again, and its adaptive credit.
func (s *Session) Undo() (outcome.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.sequence.Last()
	if !ok {
		return "", ErrEmptySequence
	}
	index := len(s.sequence) - 1
	s.sequence = s.sequence[:index]
	s.builder.Undo()

	// a forecast made after the removed hand no longer applies
	if s.pending != nil && s.pending.Hands > index {
		s.pending = nil
	}
	if n := len(s.ledger); n > 0 && s.ledger[n-1].Index == index {
		restored := s.ledger[n-1].forecast()
		s.pending = &restored
		s.ledger = s.ledger[:n-1]
	}
	if n := len(s.credits); n > 0 && s.credits[n-1].index == index {
		if err := s.model.Restore(s.credits[n-1].before); err != nil {
			log.Error().Err(err).Str("session", s.id).Msg("Restore adaptive weights on undo")
		}
		s.credits = s.credits[:n-1]
	}
	s.touch()
	return last, nil
}

// Reset starts a new shoe: outcomes, roads, ledger and pending prediction are
// cleared, adaptive weights are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetShoe()
}

// Clear resets the shoe and the adaptive weights
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetShoe()
	s.model.Reset()
}

func (s *Session) resetShoe() {
	s.sequence = nil
	s.builder = roadmap.NewBuilder()
	s.pending = nil
	s.ledger = []LedgerEntry{}
	s.credits = nil
	s.touch()
}

// Predict forecasts the next hand in mode and remembers it as the pending prediction
func (s *Session) Predict(mode combine.Mode) (Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.forecast(mode)
	if err != nil {
		return Forecast{}, err
	}
	s.pending = &f
	return f, nil
}

// Peek forecasts without touching the pending prediction
func (s *Session) Peek(mode combine.Mode) (Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forecast(mode)
}

// Serve marks a forecast produced elsewhere, such as a cache hit stored under key,
// as pending. It is ignored unless key still names the current sequence.
func (s *Session) Serve(key string, f Forecast) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Hands != len(s.sequence) || key != CacheKey(f.Mode, s.sequence) {
		return false
	}
	s.pending = &f
	return true
}

// Pending returns the prediction awaiting the next non-neutral outcome
func (s *Session) Pending() (Forecast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Forecast{}, false
	}
	return *s.pending, true
}

func (s *Session) forecast(mode combine.Mode) (Forecast, error) {
	if !mode.Valid() {
		return Forecast{}, fmt.Errorf("predict: %w: %q", combine.ErrUnknownMode, mode)
	}

	f := Forecast{Mode: mode, Hands: len(s.sequence)}
	if mode == combine.Adaptive {
		res := s.model.Predict(s.sequence)
		f.Prediction, f.Winner = res.Prediction, res.Winner
		f.Explanation = s.explainer.ExplainAdaptive(res)
		return f, nil
	}

	eval, err := s.engine.Evaluate(mode, analyzers.NewInputWithRoads(s.sequence, s.builder.Roads()))
	if err != nil {
		return Forecast{}, fmt.Errorf("predict: %w", err)
	}
	f.Prediction, f.Winner = eval.Prediction(), eval.Combination.Leader
	f.Explanation = s.explainer.ExplainEvaluation(eval)
	return f, nil
}

// Advise forecasts in mode and maps the result to a staking recommendation
func (s *Session) Advise(mode combine.Mode) (Forecast, advisor.Advice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.forecast(mode)
	if err != nil {
		return Forecast{}, advisor.Advice{}, err
	}
	s.pending = &f
	return f, advisor.Advise(f.Prediction, s.sequence, mode), nil
}

// Roads returns a copy of the current road structures
func (s *Session) Roads() roadmap.Roads {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Roads()
}

// Bridges runs the bridge recognizer on the current shoe
func (s *Session) Bridges() (analyzers.BridgeReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return analyzers.AnalyzeBridges(s.sequence.NonNeutral())
}

// AdaptiveWeights returns a copy of the adaptive weight table
func (s *Session) AdaptiveWeights() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Weights()
}

// Ledger returns a copy of the settled predictions, oldest first
func (s *Session) Ledger() []LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LedgerEntry, len(s.ledger))
	copy(out, s.ledger)
	return out
}

func (s *Session) touch() {
	s.updatedAt = s.now().UTC()
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sawpanic/baccarun/internal/adaptive"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/roadmap"
)

// SnapshotVersion is the export format written by this build
const SnapshotVersion = 1

// ErrInvalidSnapshot is returned when an imported document fails validation
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is the persisted state of a session
type Snapshot struct {
	Version         int                `json:"version"`
	SessionID       string             `json:"session_id,omitempty"`
	ExportedAt      time.Time          `json:"exported_at"`
	Sequence        []string           `json:"sequence"`
	AdaptiveWeights map[string]float64 `json:"adaptive_weights"`
	Ledger          []LedgerEntry      `json:"ledger"`
}

// Export captures the session state
func (s *Session) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := make([]LedgerEntry, len(s.ledger))
	copy(ledger, s.ledger)
	return Snapshot{
		Version:         SnapshotVersion,
		SessionID:       s.id,
		ExportedAt:      s.now().UTC(),
		Sequence:        s.sequence.Strings(),
		AdaptiveWeights: s.model.Weights(),
		Ledger:          ledger,
	}
}

// Validate checks the document and returns the parsed sequence
func (snap Snapshot) Validate() (outcome.Sequence, error) {
	if snap.Version < 1 || snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, snap.Version)
	}
	seq := make(outcome.Sequence, 0, len(snap.Sequence))
	for i, raw := range snap.Sequence {
		o, err := outcome.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: sequence position %d: %v", ErrInvalidSnapshot, i, err)
		}
		seq = append(seq, o)
	}
	if len(snap.AdaptiveWeights) > 0 {
		if _, err := adaptive.NewModelWithWeights(snap.AdaptiveWeights, adaptive.DefaultLearningRate); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	for i, e := range snap.Ledger {
		if e.Index < 0 || e.Index >= len(seq) {
			return nil, fmt.Errorf("%w: ledger entry %d points at hand %d", ErrInvalidSnapshot, i, e.Index)
		}
		if e.ForecastHands < 0 || e.ForecastHands > e.Index {
			return nil, fmt.Errorf("%w: ledger entry %d forecast for %d hands settled at hand %d",
				ErrInvalidSnapshot, i, e.ForecastHands, e.Index)
		}
		if !e.Mode.Valid() {
			return nil, fmt.Errorf("%w: ledger entry %d: %v", ErrInvalidSnapshot, i, combine.ErrUnknownMode)
		}
	}
	return seq, nil
}

// Import replaces the session state with snap. Nothing changes when validation fails.
// Missing adaptive weights keep the current table.
func (s *Session) Import(snap Snapshot) error {
	seq, err := snap.Validate()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence = seq
	s.builder = roadmap.NewBuilder()
	s.builder.Rebuild(seq)
	if len(snap.AdaptiveWeights) > 0 {
		if err := s.model.Restore(snap.AdaptiveWeights); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	s.ledger = make([]LedgerEntry, len(snap.Ledger))
	copy(s.ledger, snap.Ledger)
	s.pending = nil
	s.credits = nil
	s.touch()
	return nil
}

// MarshalSnapshot encodes snap as indented JSON
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

// UnmarshalSnapshot decodes and validates a JSON document
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if _, err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// FromSnapshot creates a session holding snap's state
func FromSnapshot(snap Snapshot, engine *combine.Engine) (*Session, error) {
	s := New(snap.SessionID, engine)
	if err := s.Import(snap); err != nil {
		return nil, err
	}
	return s, nil
}

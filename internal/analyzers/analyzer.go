package analyzers

import (
	"fmt"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/roadmap"
)

// Analyzer names, also used as weight table keys
const (
	NameStreak       = "streak"
	NamePattern      = "pattern"
	NameTrend        = "trend"
	NameMathematical = "mathematical"
	NameRoadmap      = "roadmap"
	NameCyclical     = "cyclical"
	NameMomentum     = "momentum"
	NameCounting     = "counting"
	NameBehavioral   = "behavioral"
	NameHotCold      = "hotcold"
	NameBridge       = "bridge"
)

// Input carries the hand history and the structures derived from it.
// Every analyzer reads the same Input for one prediction.
type Input struct {
	Sequence   outcome.Sequence
	NonNeutral outcome.Sequence
	Roads      roadmap.Roads
}

// NewInput derives the shared views from seq
func NewInput(seq outcome.Sequence) Input {
	return Input{
		Sequence:   seq,
		NonNeutral: seq.NonNeutral(),
		Roads:      roadmap.Build(seq),
	}
}

// NewInputWithRoads reuses roads the caller already maintains
func NewInputWithRoads(seq outcome.Sequence, roads roadmap.Roads) Input {
	return Input{
		Sequence:   seq,
		NonNeutral: seq.NonNeutral(),
		Roads:      roads,
	}
}

// Analyzer maps a hand history to a directional estimate.
// Implementations are pure and return the default prediction below their data threshold.
type Analyzer interface {
	Name() string
	Analyze(in Input) outcome.Prediction
}

// Registry is the fixed, ordered analyzer set assembled at startup
type Registry struct {
	analyzers []Analyzer
	byName    map[string]Analyzer
}

// NewRegistry builds a registry and rejects duplicate names
func NewRegistry(list ...Analyzer) (*Registry, error) {
	r := &Registry{
		analyzers: make([]Analyzer, 0, len(list)),
		byName:    make(map[string]Analyzer, len(list)),
	}
	for _, a := range list {
		if _, dup := r.byName[a.Name()]; dup {
			return nil, fmt.Errorf("duplicate analyzer: %s", a.Name())
		}
		r.analyzers = append(r.analyzers, a)
		r.byName[a.Name()] = a
	}
	return r, nil
}

// Options tunes the analyzers that have configurable behaviour
type Options struct {
	// PatternHalfLife is the age in hands at which a pattern's rank weight halves. Zero disables decay.
	PatternHalfLife float64
}

// DefaultRegistry returns the standard eleven analyzers in combination order
func DefaultRegistry(opts Options) *Registry {
	r, _ := NewRegistry(
		Streak{},
		Pattern{HalfLife: opts.PatternHalfLife},
		Trend{},
		Mathematical{},
		RoadMap{},
		Cyclical{},
		Momentum{},
		Counting{},
		Behavioral{},
		HotCold{},
		Bridge{},
	)
	return r
}

// All returns the analyzers in registration order
func (r *Registry) All() []Analyzer {
	out := make([]Analyzer, len(r.analyzers))
	copy(out, r.analyzers)
	return out
}

// Get looks an analyzer up by name
func (r *Registry) Get(name string) (Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names lists analyzer names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.analyzers))
	for i, a := range r.analyzers {
		names[i] = a.Name()
	}
	return names
}

func countSides(seq outcome.Sequence) (p, b int) {
	for _, o := range seq {
		switch o {
		case outcome.Player:
			p++
		case outcome.Banker:
			b++
		}
	}
	return p, b
}

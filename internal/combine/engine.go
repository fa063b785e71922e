package combine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/analyzers"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// MinHands is the history length below which no analyzer is consulted
const MinHands = 2

// Evaluation is a combined prediction with every analyzer's contribution
type Evaluation struct {
	Mode          Mode           `json:"mode"`
	Combination   Combination    `json:"combination"`
	Contributions []Contribution `json:"contributions"`
}

// Prediction is shorthand for the combined prediction
func (e Evaluation) Prediction() outcome.Prediction {
	return e.Combination.Prediction
}

// Engine runs the analyzer registry and merges the results with a mode's weights
type Engine struct {
	registry *analyzers.Registry
	weights  *WeightManager
}

// NewEngine creates an engine over a fixed registry and weight manager
func NewEngine(registry *analyzers.Registry, weights *WeightManager) *Engine {
	return &Engine{registry: registry, weights: weights}
}

// Weights exposes the engine's weight manager
func (e *Engine) Weights() *WeightManager { return e.weights }

// Registry exposes the analyzer set
func (e *Engine) Registry() *analyzers.Registry { return e.registry }

// Evaluate runs every analyzer on in and combines them for a fixed mode.
// An analyzer that panics or returns a non-finite confidence is excluded and logged.
func (e *Engine) Evaluate(mode Mode, in analyzers.Input) (Evaluation, error) {
	table, err := e.weights.GetWeightsForMode(mode)
	if err != nil {
		return Evaluation{}, err
	}
	if len(in.Sequence) < MinHands {
		return Evaluation{
			Mode:          mode,
			Combination:   Combine(mode, nil),
			Contributions: []Contribution{},
		}, nil
	}

	all := e.registry.All()
	contributions := make([]Contribution, 0, len(all))
	for _, a := range all {
		c := Contribution{Analyzer: a.Name(), Weight: table.Weight(a.Name())}
		pred, err := runAnalyzer(a, in)
		switch {
		case err != nil:
			c.Excluded, c.Reason = true, err.Error()
			log.Warn().Str("analyzer", a.Name()).Err(err).Msg("Analyzer excluded")
		case !pred.Finite():
			c.Excluded, c.Reason = true, "non-finite confidence"
			log.Warn().Str("analyzer", a.Name()).Msg("Analyzer excluded: non-finite confidence")
		case pred.IsDefault():
			c.Reason = outcome.InsufficientData
		}
		c.Prediction = pred
		if !c.Excluded {
			log.Debug().
				Str("analyzer", a.Name()).
				Str("primary", string(pred.Primary.Outcome)).
				Float64("confidence", pred.Primary.Confidence).
				Msg("Analyzer result")
		}
		contributions = append(contributions, c)
	}

	return Evaluation{
		Mode:          mode,
		Combination:   Combine(mode, contributions),
		Contributions: contributions,
	}, nil
}

func runAnalyzer(a analyzers.Analyzer, in analyzers.Input) (pred outcome.Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer %s panicked: %v", a.Name(), r)
		}
	}()
	return a.Analyze(in), nil
}

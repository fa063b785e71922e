package adaptive

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const (
	// DefaultLearningRate is the weight moved to a credited model per correct prediction
	DefaultLearningRate = 0.05
	// MinHands is the tie-free history the adaptive prediction needs
	MinHands = 5

	maxConfidence     = 0.95
	entropyThreshold  = 0.8
	entropyDamping    = 0.8
	maxHistoryEntries = 500
)

// ErrInvalidWeights is returned when restored weights are empty, negative or non-finite
var ErrInvalidWeights = errors.New("invalid adaptive weights")

// Prior returns the starting weights of the four sub-models
func Prior() map[string]float64 {
	return map[string]float64{
		ModelCau:         0.5,
		ModelNeural:      0.25,
		ModelMarkov:      0.15,
		ModelGoldenRatio: 0.1,
	}
}

// PerformanceRecord is the weight table right after a model was credited
type PerformanceRecord struct {
	Credited string             `json:"credited"`
	Weights  map[string]float64 `json:"weights"`
}

// Result is an adaptive prediction with the votes behind it
type Result struct {
	Prediction outcome.Prediction `json:"prediction"`
	Votes      []Vote             `json:"votes"`
	// Winner is the model contributing most to the predicted side, empty when no prediction was made
	Winner  string  `json:"winner,omitempty"`
	Entropy float64 `json:"entropy"`
}

// Model holds the adaptive weight table. Weights only move on correct predictions:
// the credited model gains the learning rate, taken from the others in proportion
// to their weights, and the table is renormalized to sum to one.
type Model struct {
	weights      map[string]float64
	learningRate float64
	history      []PerformanceRecord
	subModels    []SubModel
}

// NewModel creates a model with the prior weights and the default sub-models
func NewModel() *Model {
	return &Model{
		weights:      Prior(),
		learningRate: DefaultLearningRate,
		subModels:    DefaultSubModels(),
	}
}

// NewModelWithWeights creates a model over arbitrary named weights.
// It has no sub-models unless they are added with WithSubModels.
func NewModelWithWeights(weights map[string]float64, learningRate float64) (*Model, error) {
	if err := validateWeights(weights); err != nil {
		return nil, err
	}
	if !(learningRate > 0) || learningRate >= 1 {
		return nil, fmt.Errorf("learning rate must be in (0,1), got %v", learningRate)
	}
	return &Model{weights: copyWeights(weights), learningRate: learningRate}, nil
}

// WithSubModels replaces the sub-models used by Predict
func (m *Model) WithSubModels(models ...SubModel) *Model {
	m.subModels = models
	return m
}

// Weights returns a copy of the current table
func (m *Model) Weights() map[string]float64 {
	return copyWeights(m.weights)
}

// History returns the recorded weight tables, oldest first
func (m *Model) History() []PerformanceRecord {
	out := make([]PerformanceRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Credit rewards model for a correct prediction
func (m *Model) Credit(model string) error {
	if _, ok := m.weights[model]; !ok {
		return fmt.Errorf("credit unknown model %q", model)
	}

	others := 0.0
	for name, w := range m.weights {
		if name != model {
			others += w
		}
	}
	gain := math.Min(m.learningRate, others)
	for name, w := range m.weights {
		if name == model {
			m.weights[name] = w + gain
		} else if others > 0 {
			m.weights[name] = math.Max(0, w-gain*w/others)
		}
	}
	m.normalize()

	m.history = append(m.history, PerformanceRecord{Credited: model, Weights: copyWeights(m.weights)})
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[len(m.history)-maxHistoryEntries:]
	}

	log.Debug().Str("model", model).Interface("weights", m.weights).Msg("Adaptive weights updated")
	return nil
}

// Observe applies the outcome of a prediction made by model. Incorrect predictions change nothing.
func (m *Model) Observe(model string, correct bool) error {
	if !correct || model == "" {
		return nil
	}
	return m.Credit(model)
}

// Restore replaces the weights, typically from a persisted snapshot
func (m *Model) Restore(weights map[string]float64) error {
	if err := validateWeights(weights); err != nil {
		return err
	}
	m.weights = copyWeights(weights)
	m.history = nil
	return nil
}

// Reset returns to the prior weights and clears the history
func (m *Model) Reset() {
	m.weights = Prior()
	m.history = nil
}

// Predict runs the sub-models on the tie-free view of seq and merges their votes
// with the current weights. Histories under five tie-free hands yield the default prediction.
func (m *Model) Predict(seq outcome.Sequence) Result {
	nonNeutral := seq.NonNeutral()
	res := Result{Prediction: outcome.DefaultPrediction(), Votes: []Vote{}, Entropy: PairEntropy(nonNeutral)}
	if len(nonNeutral) < MinHands {
		return res
	}

	var pVotes, bVotes float64
	leaders := map[outcome.Outcome]string{}
	leaderScores := map[outcome.Outcome]float64{}
	for _, sm := range m.subModels {
		v, ok := sm.Vote(nonNeutral)
		if !ok || math.IsNaN(v.Confidence) {
			continue
		}
		v.Weight = m.weights[sm.Name()]
		res.Votes = append(res.Votes, v)

		score := v.Confidence * v.Weight
		if _, seen := leaders[v.Outcome]; !seen || score > leaderScores[v.Outcome] {
			leaders[v.Outcome], leaderScores[v.Outcome] = v.Model, score
		}
		if v.Outcome == outcome.Player {
			pVotes += score
		} else {
			bVotes += score
		}
	}
	if pVotes == bVotes {
		return res
	}

	side := outcome.Banker
	if pVotes > bVotes {
		side = outcome.Player
	}
	conf := math.Min(maxConfidence, 0.5+math.Abs(pVotes-bVotes)/math.Max(0.1, pVotes+bVotes)*0.5)
	if res.Entropy > entropyThreshold {
		conf = math.Max(0.5, conf*entropyDamping)
	}

	res.Winner = leaders[side]
	res.Prediction = outcome.Directional(side, conf*100,
		fmt.Sprintf("adaptive: %d models voted, led by %s (entropy %.2f)", len(res.Votes), res.Winner, res.Entropy))
	return res
}

// Names lists the weighted model names, sorted
func (m *Model) Names() []string {
	names := make([]string, 0, len(m.weights))
	for name := range m.weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) normalize() {
	total := 0.0
	for _, w := range m.weights {
		total += w
	}
	if total <= 0 {
		return
	}
	for name, w := range m.weights {
		m.weights[name] = w / total
	}
}

func validateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return fmt.Errorf("%w: empty table", ErrInvalidWeights)
	}
	total := 0.0
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, name, w)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	return nil
}

func copyWeights(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package adaptive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

func seq(t *testing.T, s string) outcome.Sequence {
	t.Helper()
	out, err := outcome.ParseSequence(s)
	require.NoError(t, err)
	return out
}

type stubModel struct {
	name string
	side outcome.Outcome
	conf float64
}

func (s stubModel) Name() string { return s.name }
func (s stubModel) Vote(outcome.Sequence) (Vote, bool) {
	return Vote{Model: s.name, Outcome: s.side, Confidence: s.conf}, true
}

func sum(weights map[string]float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	return total
}

func TestPriorSumsToOne(t *testing.T) {
	assert.InDelta(t, 1, sum(Prior()), 1e-12)
	assert.Equal(t, []string{ModelCau, ModelGoldenRatio, ModelMarkov, ModelNeural}, NewModel().Names())
}

func TestCreditMovesLearningRate(t *testing.T) {
	m, err := NewModelWithWeights(map[string]float64{"m1": 0.5, "m2": 0.5}, 0.05)
	require.NoError(t, err)

	require.NoError(t, m.Credit("m1"))
	w := m.Weights()
	assert.InDelta(t, 0.55, w["m1"], 1e-12)
	assert.InDelta(t, 0.45, w["m2"], 1e-12)
	require.Len(t, m.History(), 1)
	assert.Equal(t, "m1", m.History()[0].Credited)
}

func TestIncorrectPredictionLeavesWeights(t *testing.T) {
	m := NewModel()
	before := m.Weights()
	require.NoError(t, m.Observe(ModelMarkov, false))
	require.NoError(t, m.Observe("", true))
	assert.Equal(t, before, m.Weights())
	assert.Empty(t, m.History())
}

func TestCreditUnknownModel(t *testing.T) {
	assert.Error(t, NewModel().Credit("oracle"))
}

func TestRepeatedCreditStaysNormalized(t *testing.T) {
	m := NewModel()
	for i := 0; i < 100; i++ {
		require.NoError(t, m.Observe(ModelGoldenRatio, true))
		w := m.Weights()
		assert.InDelta(t, 1, sum(w), 1e-9)
		for name, v := range w {
			assert.GreaterOrEqual(t, v, 0.0, name)
		}
	}
	assert.Greater(t, m.Weights()[ModelGoldenRatio], 0.99)
}

func TestRestoreValidates(t *testing.T) {
	m := NewModel()
	for _, bad := range []map[string]float64{
		{},
		{ModelCau: -0.1, ModelNeural: 1.1},
		{ModelCau: math.NaN()},
		{ModelCau: math.Inf(1)},
		{ModelCau: 0},
	} {
		assert.ErrorIs(t, m.Restore(bad), ErrInvalidWeights)
	}

	require.NoError(t, m.Restore(map[string]float64{ModelCau: 0.7, ModelNeural: 0.3}))
	assert.Equal(t, map[string]float64{ModelCau: 0.7, ModelNeural: 0.3}, m.Weights())

	m.Reset()
	assert.Equal(t, Prior(), m.Weights())
}

func TestPredictNeedsFiveHands(t *testing.T) {
	res := NewModel().Predict(seq(t, "PBTTTPB"))
	assert.Equal(t, outcome.DefaultPrediction(), res.Prediction)
	assert.Empty(t, res.Winner)
}

func TestPredictMergesWeightedVotes(t *testing.T) {
	m, err := NewModelWithWeights(map[string]float64{"up": 0.6, "down": 0.4}, 0.05)
	require.NoError(t, err)
	m.WithSubModels(
		stubModel{name: "up", side: outcome.Player, conf: 0.8},
		stubModel{name: "down", side: outcome.Banker, conf: 0.6},
	)

	// pair entropy of a single repeated outcome is zero
	res := m.Predict(seq(t, "PPPPPPPPPP"))
	assert.Equal(t, outcome.Player, res.Prediction.Primary.Outcome)
	assert.InDelta(t, (0.5+0.24/0.72*0.5)*100, res.Prediction.Primary.Confidence, 1e-9)
	assert.Equal(t, "up", res.Winner)
	assert.Len(t, res.Votes, 2)
}

func TestPredictDampsRandomLookingShoes(t *testing.T) {
	m, err := NewModelWithWeights(map[string]float64{"up": 0.6, "down": 0.4}, 0.05)
	require.NoError(t, err)
	m.WithSubModels(
		stubModel{name: "up", side: outcome.Player, conf: 0.8},
		stubModel{name: "down", side: outcome.Banker, conf: 0.6},
	)

	res := m.Predict(seq(t, "PPBBPPBBPPBB"))
	require.Greater(t, res.Entropy, 0.8)
	assert.InDelta(t, (0.5+0.24/0.72*0.5)*0.8*100, res.Prediction.Primary.Confidence, 1e-9)
}

func TestPredictEvenVotesIsDefault(t *testing.T) {
	m, err := NewModelWithWeights(map[string]float64{"a": 0.5, "b": 0.5}, 0.05)
	require.NoError(t, err)
	m.WithSubModels(
		stubModel{name: "a", side: outcome.Player, conf: 0.7},
		stubModel{name: "b", side: outcome.Banker, conf: 0.7},
	)
	assert.True(t, m.Predict(seq(t, "PBPBPB")).Prediction.IsDefault())
}

func TestPredictWithDefaultModels(t *testing.T) {
	m := NewModel()
	res := m.Predict(seq(t, "BPPPPPTBPBBP"))
	require.False(t, res.Prediction.IsDefault())
	assert.Contains(t, m.Names(), res.Winner)
	assert.InDelta(t, 100, res.Prediction.Primary.Confidence+res.Prediction.Alternative.Confidence, 1e-9)
	assert.LessOrEqual(t, res.Prediction.Primary.Confidence, 95.0)
}

func TestPairEntropy(t *testing.T) {
	assert.Equal(t, 1.0, PairEntropy(seq(t, "P")))
	assert.Equal(t, 0.0, PairEntropy(seq(t, "PPPP")))
	h := -(2.0/3*math.Log2(2.0/3) + 1.0/3*math.Log2(1.0/3)) / 2
	assert.InDelta(t, h, PairEntropy(seq(t, "PBPB")), 1e-12)
}

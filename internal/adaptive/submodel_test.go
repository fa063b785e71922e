package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

func TestSubModelThresholds(t *testing.T) {
	for _, tc := range []struct {
		model SubModel
		short string
	}{
		{Cau{}, "PB"},
		{Neural{}, "PBPB"},
		{Markov{}, "PB"},
		{GoldenRatio{}, "PBPB"},
	} {
		_, ok := tc.model.Vote(seq(t, tc.short))
		assert.False(t, ok, tc.model.Name())
	}
}

func TestNeuralDiscountsLongRuns(t *testing.T) {
	// 0.4*(1-5/8) + 0.2*0.4 + 0.3 + 0.1 against its complement
	v, ok := Neural{}.Vote(seq(t, "PPPPP"))
	require.True(t, ok)
	assert.Equal(t, outcome.Player, v.Outcome)
	assert.InDelta(t, 0.52, v.Confidence, 1e-9)
}

func TestMarkovTransitions(t *testing.T) {
	v, ok := Markov{}.Vote(seq(t, "PBPBPB"))
	require.True(t, ok)
	assert.Equal(t, outcome.Player, v.Outcome)
	assert.InDelta(t, 0.95, v.Confidence, 1e-9)

	_, ok = Markov{}.Vote(seq(t, "PPPB"))
	assert.False(t, ok)
}

func TestGoldenRatio(t *testing.T) {
	v, ok := GoldenRatio{}.Vote(seq(t, "PPPBB"))
	require.True(t, ok)
	assert.Equal(t, outcome.Banker, v.Outcome)
	assert.InDelta(t, 0.5+(1-2/(2*phi))*0.3, v.Confidence, 1e-9)

	v, ok = GoldenRatio{}.Vote(seq(t, "PPBBB"))
	require.True(t, ok)
	assert.Equal(t, outcome.Player, v.Outcome)
	assert.InDelta(t, 0.7, v.Confidence, 1e-9)
}

func TestCauFollowsRepeatingBlock(t *testing.T) {
	a := AnalyzeCau(seq(t, "PBPBPB"))
	assert.Equal(t, PatternCyclic, a.Main)
	assert.InDelta(t, 0.9, a.Scores[PatternAlternating], 1e-9)
	assert.InDelta(t, 0.8, a.Scores[PatternBalanced], 1e-9)

	v, ok := Cau{}.Vote(seq(t, "PBPBPB"))
	require.True(t, ok)
	assert.Equal(t, outcome.Player, v.Outcome)
	assert.InDelta(t, 0.95, v.Confidence, 1e-9)
}

func TestCauBreaksFibonacciRun(t *testing.T) {
	a := AnalyzeCau(seq(t, "BPPPPP"))
	assert.True(t, a.Breakpoint.Optimal)
	assert.InDelta(t, 0.85, a.Breakpoint.Probability, 1e-9)

	v, ok := Cau{}.Vote(seq(t, "BPPPPP"))
	require.True(t, ok)
	assert.Equal(t, outcome.Banker, v.Outcome)
	assert.InDelta(t, 0.85, v.Confidence, 1e-9)
}

func TestCauShortRunContinues(t *testing.T) {
	// balanced 0.8 leads, run of two keeps the side
	v, ok := Cau{}.Vote(seq(t, "PPBPBB"))
	require.True(t, ok)
	assert.Equal(t, outcome.Banker, v.Outcome)
	assert.InDelta(t, 0.6, v.Confidence, 1e-9)
}

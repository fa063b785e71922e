package outcome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Outcome{
		"P":      Player,
		"b":      Banker,
		" t ":    Tie,
		"player": Player,
		"BANKER": Banker,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence("P B,bT")
	require.NoError(t, err)
	assert.Equal(t, Sequence{Player, Banker, Banker, Tie}, seq)

	_, err = ParseSequence("PBQ")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestNonNeutralPreservesOrder(t *testing.T) {
	seq := Sequence{Tie, Player, Tie, Banker, Banker, Tie, Player}
	assert.Equal(t, Sequence{Player, Banker, Banker, Player}, seq.NonNeutral())
	assert.Empty(t, Sequence{Tie, Tie}.NonNeutral())
}

func TestSegmentsPartitionSequence(t *testing.T) {
	seq := Sequence{Player, Player, Banker, Player, Player, Player}
	segs := Segments(seq)

	require.Len(t, segs, 3)
	assert.Equal(t, Segment{Value: Player, Length: 2, StartIndex: 0}, segs[0])
	assert.Equal(t, Segment{Value: Banker, Length: 1, StartIndex: 2}, segs[1])
	assert.Equal(t, Segment{Value: Player, Length: 3, StartIndex: 3}, segs[2])

	total := 0
	for _, s := range segs {
		total += s.Length
	}
	assert.Equal(t, len(seq), total)

	assert.Empty(t, Segments(nil))
}

func TestCurrentRun(t *testing.T) {
	v, n := CurrentRun(Sequence{Banker, Player, Player, Player})
	assert.Equal(t, Player, v)
	assert.Equal(t, 3, n)

	_, n = CurrentRun(nil)
	assert.Zero(t, n)
}

func TestDefaultPredictionLiteral(t *testing.T) {
	p := DefaultPrediction()
	assert.Equal(t, Banker, p.Primary.Outcome)
	assert.Equal(t, 50.68, p.Primary.Confidence)
	assert.Equal(t, Player, p.Alternative.Outcome)
	assert.Equal(t, 49.32, p.Alternative.Confidence)
	assert.True(t, p.IsDefault())
}

func TestFromBreakProbability(t *testing.T) {
	p := FromBreakProbability(Banker, 0.7, "streak")
	assert.Equal(t, Player, p.Primary.Outcome)
	assert.InDelta(t, 70, p.Primary.Confidence, 1e-9)
	assert.InDelta(t, 30, p.Alternative.Confidence, 1e-9)

	p = FromBreakProbability(Banker, 0.3, "streak")
	assert.Equal(t, Banker, p.Primary.Outcome)
	assert.InDelta(t, 70, p.Primary.Confidence, 1e-9)
}

func TestFromScoresTieFavoursBanker(t *testing.T) {
	p := FromScores(1, 1, "even")
	assert.Equal(t, Banker, p.Primary.Outcome)
	assert.InDelta(t, 50, p.Primary.Confidence, 1e-9)

	assert.True(t, FromScores(0, 0, "none").IsDefault())
}

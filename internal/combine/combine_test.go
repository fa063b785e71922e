package combine

import (
	"math"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/analyzers"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

func contrib(name string, o outcome.Outcome, conf, weight float64) Contribution {
	return Contribution{
		Analyzer:   name,
		Prediction: outcome.Directional(o, conf, name),
		Weight:     weight,
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":             Balanced,
		"balanced":     Balanced,
		" Aggressive ": Aggressive,
		"CONSERVATIVE": Conservative,
		"adaptive":     Adaptive,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("reckless")
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.False(t, Mode("reckless").Valid())
}

func TestModeIsFlagValue(t *testing.T) {
	mode := Balanced
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&mode, "mode", "prediction mode")

	require.NoError(t, fs.Parse([]string{"--mode", "aggressive"}))
	assert.Equal(t, Aggressive, mode)
	assert.Error(t, fs.Parse([]string{"--mode", "wild"}))
}

func TestWeightManagerPresets(t *testing.T) {
	wm := NewWeightManager()
	assert.Equal(t, []Mode{Aggressive, Balanced, Conservative}, wm.Modes())

	table, err := wm.GetWeightsForMode(Conservative)
	require.NoError(t, err)
	assert.Equal(t, 1.8, table.Weight(analyzers.NameStreak))
	assert.Equal(t, 1.0, table.Weight("unlisted"))

	for _, m := range FixedModes {
		table, err := wm.GetWeightsForMode(m)
		require.NoError(t, err)
		assert.Equal(t, 1.0, table.Weight(analyzers.NameBridge), m)
	}

	_, err = wm.GetWeightsForMode(Adaptive)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestWeightManagerReturnsCopies(t *testing.T) {
	wm := NewWeightManager()
	table, err := wm.GetWeightsForMode(Balanced)
	require.NoError(t, err)
	table[analyzers.NameStreak] = 99

	again, err := wm.GetWeightsForMode(Balanced)
	require.NoError(t, err)
	assert.Equal(t, 1.2, again[analyzers.NameStreak])
}

func TestSetWeightsValidates(t *testing.T) {
	wm := NewWeightManager()
	assert.Error(t, wm.SetWeights(Balanced, WeightTable{analyzers.NameStreak: 0}))
	assert.ErrorIs(t, wm.SetWeights(Adaptive, WeightTable{analyzers.NameStreak: 1}), ErrUnknownMode)

	require.NoError(t, wm.SetWeights(Balanced, WeightTable{analyzers.NameStreak: 2.5}))
	table, _ := wm.GetWeightsForMode(Balanced)
	assert.Equal(t, 2.5, table.Weight(analyzers.NameStreak))
	assert.Equal(t, 1.0, table.Weight(analyzers.NamePattern))
}

func TestCombineEmptyReturnsDefault(t *testing.T) {
	got := Combine(Balanced, nil)
	assert.Equal(t, outcome.DefaultPrediction(), got.Prediction)

	only := []Contribution{
		{Analyzer: "a", Prediction: outcome.DefaultPrediction(), Weight: 1},
		{Analyzer: "b", Prediction: outcome.Directional(outcome.Player, 70, "b"), Weight: 1, Excluded: true},
	}
	assert.Equal(t, outcome.DefaultPrediction(), Combine(Balanced, only).Prediction)
}

func TestCombineBalancedNormalizes(t *testing.T) {
	got := Combine(Balanced, []Contribution{
		contrib("a", outcome.Player, 80, 1),
		contrib("b", outcome.Banker, 60, 1),
	})
	// Player (0.8+0.4)/2, Banker (0.2+0.6)/2
	assert.Equal(t, outcome.Player, got.Prediction.Primary.Outcome)
	assert.InDelta(t, 60, got.Prediction.Primary.Confidence, 1e-9)
	assert.InDelta(t, 40, got.Prediction.Alternative.Confidence, 1e-9)
	assert.Equal(t, 2, got.Used)
	assert.Equal(t, "a", got.Leader)
}

func TestCombineModeShaping(t *testing.T) {
	strong := []Contribution{contrib("a", outcome.Banker, 90, 1)}

	cons := Combine(Conservative, strong).Prediction
	assert.Equal(t, outcome.Banker, cons.Primary.Outcome)
	assert.InDelta(t, 85, cons.Primary.Confidence, 1e-9)
	assert.InDelta(t, 10, cons.Alternative.Confidence, 1e-9)

	agg := Combine(Aggressive, []Contribution{contrib("a", outcome.Banker, 70, 1)}).Prediction
	assert.InDelta(t, 77, agg.Primary.Confidence, 1e-9)
	assert.InDelta(t, 30, agg.Alternative.Confidence, 1e-9)

	aggCapped := Combine(Aggressive, strong).Prediction
	assert.InDelta(t, 95, aggCapped.Primary.Confidence, 1e-9)

	extreme := Combine(Balanced, []Contribution{contrib("a", outcome.Player, 99, 1)}).Prediction
	assert.InDelta(t, 95, extreme.Primary.Confidence, 1e-9)
	assert.InDelta(t, 5, extreme.Alternative.Confidence, 1e-9)
}

func TestCombineExactTieFavoursBanker(t *testing.T) {
	got := Combine(Balanced, []Contribution{
		contrib("a", outcome.Player, 70, 1),
		contrib("b", outcome.Banker, 70, 1),
	})
	assert.Equal(t, outcome.Banker, got.Prediction.Primary.Outcome)
	assert.InDelta(t, 50, got.Prediction.Primary.Confidence, 1e-9)
}

func TestCombineSkipsNonFinite(t *testing.T) {
	bad := Contribution{
		Analyzer:   "nan",
		Prediction: outcome.Directional(outcome.Player, math.NaN(), "nan"),
		Weight:     5,
	}
	got := Combine(Balanced, []Contribution{bad, contrib("a", outcome.Banker, 65, 1)})
	assert.Equal(t, 1, got.Used)
	assert.Equal(t, outcome.Banker, got.Prediction.Primary.Outcome)
	assert.InDelta(t, 65, got.Prediction.Primary.Confidence, 1e-9)
}

func TestCombineWeightMonotonicity(t *testing.T) {
	base := []Contribution{
		contrib("a", outcome.Player, 62, 1),
		contrib("b", outcome.Banker, 70, 1),
		contrib("c", outcome.Banker, 55, 1),
	}
	prev := Combine(Balanced, base).PlayerScore
	for w := 1.5; w <= 6; w += 0.5 {
		list := append([]Contribution(nil), base...)
		list[0].Weight = w
		score := Combine(Balanced, list).PlayerScore
		assert.GreaterOrEqual(t, score, prev, "weight %v", w)
		prev = score
	}
}

func TestCombinedOrdering(t *testing.T) {
	for _, m := range FixedModes {
		got := Combine(m, []Contribution{
			contrib("a", outcome.Player, 55, 1.3),
			contrib("b", outcome.Banker, 58, 0.7),
			contrib("c", outcome.Player, 91, 2),
		}).Prediction
		assert.GreaterOrEqual(t, got.Primary.Confidence, got.Alternative.Confidence, m)
		assert.NotEqual(t, got.Primary.Outcome, got.Alternative.Outcome, m)
		assert.LessOrEqual(t, got.Primary.Confidence, 95.0, m)
		assert.GreaterOrEqual(t, got.Alternative.Confidence, 5.0, m)
	}
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }
func (panicky) Analyze(analyzers.Input) outcome.Prediction {
	panic("boom")
}

type fixed struct {
	name string
	pred outcome.Prediction
}

func (f fixed) Name() string                               { return f.name }
func (f fixed) Analyze(analyzers.Input) outcome.Prediction { return f.pred }

func TestEngineExcludesPanickingAnalyzer(t *testing.T) {
	reg, err := analyzers.NewRegistry(
		panicky{},
		fixed{name: "nan", pred: outcome.Directional(outcome.Player, math.Inf(1), "inf")},
		fixed{name: "steady", pred: outcome.Directional(outcome.Player, 72, "steady")},
	)
	require.NoError(t, err)

	seq, err := outcome.ParseSequence("PB")
	require.NoError(t, err)
	eval, err := NewEngine(reg, NewWeightManager()).Evaluate(Balanced, analyzers.NewInput(seq))
	require.NoError(t, err)
	require.Len(t, eval.Contributions, 3)
	assert.True(t, eval.Contributions[0].Excluded)
	assert.Contains(t, eval.Contributions[0].Reason, "panicked")
	assert.True(t, eval.Contributions[1].Excluded)
	assert.False(t, eval.Contributions[2].Excluded)

	assert.Equal(t, outcome.Player, eval.Prediction().Primary.Outcome)
	assert.InDelta(t, 72, eval.Prediction().Primary.Confidence, 1e-9)
	assert.Equal(t, "steady", eval.Combination.Leader)
}

func TestEngineDefaultForShortHistory(t *testing.T) {
	engine := NewEngine(analyzers.DefaultRegistry(analyzers.Options{}), NewWeightManager())
	for _, s := range []string{"", "P", "B", "T", "TT", "TTTT"} {
		seq, err := outcome.ParseSequence(s)
		require.NoError(t, err)
		for _, m := range FixedModes {
			eval, err := engine.Evaluate(m, analyzers.NewInput(seq))
			require.NoError(t, err)
			assert.Equal(t, outcome.DefaultPrediction(), eval.Prediction(), "%q %s", s, m)
		}
	}
}

func TestEngineRejectsAdaptiveMode(t *testing.T) {
	engine := NewEngine(analyzers.DefaultRegistry(analyzers.Options{}), NewWeightManager())
	_, err := engine.Evaluate(Adaptive, analyzers.NewInput(nil))
	assert.ErrorIs(t, err, ErrUnknownMode)
}

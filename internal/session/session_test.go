package session

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/baccarun/internal/adaptive"
	"github.com/sawpanic/baccarun/internal/analyzers"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/roadmap"
)

func testEngine() *combine.Engine {
	return combine.NewEngine(analyzers.DefaultRegistry(analyzers.Options{}), combine.NewWeightManager())
}

func recordAll(t *testing.T, s *Session, seq string) {
	t.Helper()
	for _, c := range seq {
		_, err := s.RecordOutcome(string(c))
		require.NoError(t, err)
	}
}

func TestNewSessionGetsID(t *testing.T) {
	a := New("", testEngine())
	b := New("", testEngine())
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "fixed", New("fixed", testEngine()).ID())
	assert.Equal(t, 0, a.Len())
}

func TestRecordRejectsMalformedInput(t *testing.T) {
	s := New("", testEngine())
	for _, raw := range []string{"", "X", "PB", "banker!"} {
		_, err := s.RecordOutcome(raw)
		assert.ErrorIs(t, err, outcome.ErrMalformedInput, raw)
	}
	_, err := s.Record(outcome.Outcome("Q"))
	assert.ErrorIs(t, err, outcome.ErrMalformedInput)
	assert.Equal(t, 0, s.Len())
}

func TestRecordAcceptsNames(t *testing.T) {
	s := New("", testEngine())
	for _, raw := range []string{"player", "BANKER", " tie "} {
		_, err := s.RecordOutcome(raw)
		require.NoError(t, err)
	}
	assert.Equal(t, "PBT", s.Sequence().String())
}

func TestUndoIsInverseOfRecord(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := New("", testEngine())
	sides := []outcome.Outcome{outcome.Player, outcome.Banker, outcome.Tie}

	for i := 0; i < 60; i++ {
		if i%3 == 0 {
			_, err := s.Predict(combine.Balanced)
			require.NoError(t, err)
		}
		seq := s.Sequence()
		roads := s.Roads()
		weights := s.AdaptiveWeights()
		ledger := s.Ledger()
		pending, hasPending := s.Pending()

		o := sides[rng.Intn(len(sides))]
		_, err := s.Record(o)
		require.NoError(t, err)
		undone, err := s.Undo()
		require.NoError(t, err)
		assert.Equal(t, o, undone)

		assert.Equal(t, seq, s.Sequence())
		assert.Equal(t, roads, s.Roads())
		assert.Equal(t, roadmap.Build(seq), s.Roads())
		assert.Equal(t, outcome.Segments(seq), outcome.Segments(s.Sequence()))
		assert.Equal(t, weights, s.AdaptiveWeights())
		assert.Equal(t, ledger, s.Ledger())
		p2, has2 := s.Pending()
		assert.Equal(t, hasPending, has2)
		if hasPending {
			assert.Equal(t, pending.Prediction.Primary, p2.Prediction.Primary)
			assert.Equal(t, pending.Hands, p2.Hands)
		}

		// keep the hand for the next round
		_, err = s.Record(o)
		require.NoError(t, err)
	}
}

func TestUndoOnEmptySession(t *testing.T) {
	s := New("", testEngine())
	_, err := s.Undo()
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestLedgerSettlesOnNextNonNeutralOutcome(t *testing.T) {
	s := New("", testEngine())
	recordAll(t, s, "PB")

	f, err := s.Predict(combine.Balanced)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Hands)
	_, ok := s.Pending()
	require.True(t, ok)

	rec, err := s.RecordOutcome("T")
	require.NoError(t, err)
	assert.Nil(t, rec.Validated, "ties settle nothing")
	assert.Empty(t, s.Ledger())
	_, ok = s.Pending()
	assert.True(t, ok)

	rec, err = s.RecordOutcome("B")
	require.NoError(t, err)
	require.NotNil(t, rec.Validated)
	assert.Equal(t, 3, rec.Validated.Index)
	assert.Equal(t, outcome.Banker, rec.Validated.Actual)
	assert.Equal(t, f.Prediction.Primary.Outcome, rec.Validated.Predicted)
	assert.Equal(t, f.Prediction.Primary.Outcome == outcome.Banker, rec.Validated.Correct)
	assert.Len(t, s.Ledger(), 1)
	_, ok = s.Pending()
	assert.False(t, ok)

	// undo puts the prediction back in play
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Empty(t, s.Ledger())
	restored, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, f.Prediction.Primary, restored.Prediction.Primary)

	rec, err = s.RecordOutcome("P")
	require.NoError(t, err)
	require.NotNil(t, rec.Validated)
	assert.Equal(t, outcome.Player, rec.Validated.Actual)
}

func TestOutcomeWithoutPredictionSettlesNothing(t *testing.T) {
	s := New("", testEngine())
	recordAll(t, s, "PBPBPBPB")
	assert.Empty(t, s.Ledger())
}

func TestDefaultPredictionSettles(t *testing.T) {
	s := New("", testEngine())
	f, err := s.Predict(combine.Conservative)
	require.NoError(t, err)
	assert.True(t, f.Prediction.IsDefault())

	rec, err := s.RecordOutcome("B")
	require.NoError(t, err)
	require.NotNil(t, rec.Validated)
	assert.True(t, rec.Validated.Default)
	assert.True(t, rec.Validated.Correct)

	_, err = s.Undo()
	require.NoError(t, err)
	restored, ok := s.Pending()
	require.True(t, ok)
	assert.True(t, restored.Prediction.IsDefault())
}

func TestServeIgnoresStaleForecast(t *testing.T) {
	s := New("", testEngine())
	recordAll(t, s, "PBB")
	f, err := s.Peek(combine.Balanced)
	require.NoError(t, err)
	_, ok := s.Pending()
	assert.False(t, ok, "peek leaves nothing pending")

	key := CacheKey(combine.Balanced, mustSeq(t, "PBB"))
	recordAll(t, s, "P")
	assert.False(t, s.Serve(key, f))
	f.Hands = 4
	assert.True(t, s.Serve(CacheKey(combine.Balanced, s.Sequence()), f))
}

func TestServeRejectsForecastForReplacedHand(t *testing.T) {
	s := New("", testEngine())
	recordAll(t, s, "PBB")
	f, err := s.Peek(combine.Balanced)
	require.NoError(t, err)
	key := CacheKey(combine.Balanced, s.Sequence())

	_, err = s.Undo()
	require.NoError(t, err)
	recordAll(t, s, "P")
	require.Equal(t, 3, s.Len())

	assert.False(t, s.Serve(key, f), "same length, different sequence")
	_, ok := s.Pending()
	assert.False(t, ok)
}

func TestUndoKeepsForecastServedBeforeTheHand(t *testing.T) {
	s := New("", testEngine())
	recordAll(t, s, "PBPB")
	f, err := s.Predict(combine.Balanced)
	require.NoError(t, err)

	recordAll(t, s, "T")
	_, err = s.Undo()
	require.NoError(t, err)
	pending, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, f.Hands, pending.Hands)

	recordAll(t, s, "T")
	rec, err := s.Record(outcome.Banker)
	require.NoError(t, err)
	require.NotNil(t, rec.Validated)
	assert.Len(t, s.Ledger(), 1)

	// undoing the settling hand restores the forecast as made, ahead of the tie
	_, err = s.Undo()
	require.NoError(t, err)
	pending, ok = s.Pending()
	require.True(t, ok)
	assert.Equal(t, f.Hands, pending.Hands)
	assert.Empty(t, s.Ledger())
}

func TestPredictRejectsUnknownMode(t *testing.T) {
	s := New("", testEngine())
	_, err := s.Predict(combine.Mode("reckless"))
	assert.ErrorIs(t, err, combine.ErrUnknownMode)
}

func TestPredictModes(t *testing.T) {
	s := New("", testEngine())
	recordAll(t, s, "PPPPPPPPBPPPP")

	for _, mode := range append(append([]combine.Mode{}, combine.FixedModes...), combine.Adaptive) {
		f, err := s.Predict(mode)
		require.NoError(t, err, mode)
		p := f.Prediction
		assert.GreaterOrEqual(t, p.Primary.Confidence, p.Alternative.Confidence, mode)
		assert.GreaterOrEqual(t, p.Alternative.Confidence, 0.0, mode)
		assert.LessOrEqual(t, p.Primary.Confidence, 100.0, mode)
		assert.NotEqual(t, p.Primary.Outcome, p.Alternative.Outcome, mode)
		assert.NotEmpty(t, p.Reasoning, mode)
		assert.Equal(t, string(mode), f.Explanation.Mode, mode)
	}
}

func TestResetKeepsWeightsClearResetsThem(t *testing.T) {
	s := New("", testEngine())
	require.NoError(t, s.model.Credit("markov"))
	tuned := s.AdaptiveWeights()

	recordAll(t, s, "PBPB")
	_, err := s.Predict(combine.Balanced)
	require.NoError(t, err)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Ledger())
	assert.Empty(t, s.Roads().Columns)
	_, ok := s.Pending()
	assert.False(t, ok)
	assert.Equal(t, tuned, s.AdaptiveWeights())

	s.Clear()
	assert.Equal(t, adaptive.Prior(), s.AdaptiveWeights())
}

func TestStats(t *testing.T) {
	st := ComputeStats(mustSeq(t, "PPBTPPP"))
	assert.Equal(t, 7, st.Total)
	assert.Equal(t, 5, st.Player)
	assert.Equal(t, 1, st.Banker)
	assert.Equal(t, 1, st.Tie)
	assert.InDelta(t, 500.0/7, st.PlayerPercent, 1e-9)
	assert.InDelta(t, 100.0/7, st.TiePercent, 1e-9)
	assert.Equal(t, Streak{Outcome: outcome.Player, Length: 3}, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestPlayer)
	assert.Equal(t, 1, st.LongestBanker)

	empty := ComputeStats(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.PlayerPercent)
}

func TestMeasureAccuracy(t *testing.T) {
	var ledger []LedgerEntry
	for i := 0; i < 14; i++ {
		mode := combine.Balanced
		if i%2 == 1 {
			mode = combine.Aggressive
		}
		// first four wrong, the rest right
		ledger = append(ledger, LedgerEntry{Index: i, Mode: mode, Correct: i >= 4})
	}
	r := MeasureAccuracy(ledger)
	assert.Equal(t, Accuracy{Correct: 10, Total: 14, Rate: 1000.0 / 14}, r.Overall)
	assert.Equal(t, 10, r.Recent.Total)
	assert.Equal(t, 10, r.Recent.Correct)
	assert.Equal(t, 7, r.ByMode[combine.Balanced].Total)
	assert.Equal(t, 5, r.ByMode[combine.Balanced].Correct)

	assert.Zero(t, MeasureAccuracy(nil).Overall.Rate)
}

func TestExportImportRoundTrip(t *testing.T) {
	engine := testEngine()
	s := New("", engine)
	recordAll(t, s, "PBB")
	_, err := s.Predict(combine.Aggressive)
	require.NoError(t, err)
	recordAll(t, s, "TPPBPPPPBB")
	require.NoError(t, s.model.Credit("cau"))

	data, err := MarshalSnapshot(s.Export())
	require.NoError(t, err)
	snap, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	restored, err := FromSnapshot(snap, engine)
	require.NoError(t, err)
	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, s.Sequence(), restored.Sequence())
	assert.Equal(t, s.Roads(), restored.Roads())
	assert.Equal(t, s.AdaptiveWeights(), restored.AdaptiveWeights())
	require.Len(t, restored.Ledger(), 1)
	assert.Equal(t, s.Ledger()[0].ID, restored.Ledger()[0].ID)
	assert.Equal(t, s.Stats().Accuracy, restored.Stats().Accuracy)

	a, err := s.Predict(combine.Balanced)
	require.NoError(t, err)
	b, err := restored.Predict(combine.Balanced)
	require.NoError(t, err)
	assert.Equal(t, a.Prediction, b.Prediction)
}

func TestImportRejectsInvalidSnapshots(t *testing.T) {
	good := func() Snapshot {
		return Snapshot{
			Version:  SnapshotVersion,
			Sequence: []string{"P", "B", "T"},
			Ledger:   []LedgerEntry{{Index: 1, Mode: combine.Balanced}},
		}
	}
	cases := map[string]func(*Snapshot){
		"version":        func(s *Snapshot) { s.Version = 99 },
		"zero version":   func(s *Snapshot) { s.Version = 0 },
		"outcome":        func(s *Snapshot) { s.Sequence[1] = "Z" },
		"negative index": func(s *Snapshot) { s.Ledger[0].Index = -1 },
		"index range":    func(s *Snapshot) { s.Ledger[0].Index = 3 },
		"mode":           func(s *Snapshot) { s.Ledger[0].Mode = "wild" },
		"forecast hands": func(s *Snapshot) { s.Ledger[0].ForecastHands = 2 },
		"weights":        func(s *Snapshot) { s.AdaptiveWeights = map[string]float64{"cau": -1} },
	}

	s := New("", testEngine())
	recordAll(t, s, "BBB")
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			snap := good()
			mutate(&snap)
			err := s.Import(snap)
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
			assert.Equal(t, "BBB", s.Sequence().String(), "state unchanged")
		})
	}

	require.NoError(t, s.Import(good()))
	assert.Equal(t, "PBT", s.Sequence().String())
}

func TestUnmarshalSnapshotRejectsGarbage(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	raw, _ := json.Marshal(map[string]any{"version": 1, "sequence": []string{"X"}})
	_, err = UnmarshalSnapshot(raw)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestImportWithoutWeightsKeepsCurrentTable(t *testing.T) {
	s := New("", testEngine())
	require.NoError(t, s.model.Credit("neural"))
	tuned := s.AdaptiveWeights()

	require.NoError(t, s.Import(Snapshot{Version: 1, Sequence: []string{"P"}}))
	assert.Equal(t, tuned, s.AdaptiveWeights())
}

func TestConcurrentUse(t *testing.T) {
	s := New("", testEngine())
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = s.Record([]outcome.Outcome{outcome.Player, outcome.Banker}[(g+i)%2])
				_, _ = s.Predict(combine.Balanced)
				_ = s.Stats()
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 200, s.Len())
	assert.Equal(t, roadmap.Build(s.Sequence()), s.Roads())
}

func mustSeq(t *testing.T, s string) outcome.Sequence {
	t.Helper()
	seq, err := outcome.ParseSequence(s)
	require.NoError(t, err)
	return seq
}

package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const behavioralMinHands = 6

// Behavior summarises how the shoe has been moving
type Behavior struct {
	Alternating float64 `json:"alternating"`
	Doubling    float64 `json:"doubling"`
	Clustering  float64 `json:"clustering"`
}

// Behavioral detects alternating and doubling shoes
type Behavioral struct{}

func (Behavioral) Name() string { return NameBehavioral }

func (Behavioral) Analyze(in Input) outcome.Prediction {
	seq := in.NonNeutral
	if len(seq) < behavioralMinHands {
		return outcome.DefaultPrediction()
	}

	b := MeasureBehavior(seq)
	last, _ := outcome.CurrentRun(seq)

	switch {
	case b.Alternating > 0.7:
		return outcome.Directional(last.Opposite(), b.Alternating*100,
			fmt.Sprintf("behavioral: alternating %.2f", b.Alternating))
	case b.Doubling > 0.5:
		return outcome.Directional(last, math.Min(b.Doubling*100, 80),
			fmt.Sprintf("behavioral: doubling %.2f, clustering %.2f", b.Doubling, b.Clustering))
	}
	return outcome.DefaultPrediction()
}

// MeasureBehavior computes the alternating, doubling and clustering rates of a tie-free sequence
func MeasureBehavior(seq outcome.Sequence) Behavior {
	var b Behavior
	if len(seq) < 2 {
		return b
	}

	alternations := 0
	for i := 1; i < len(seq); i++ {
		if seq[i] != seq[i-1] {
			alternations++
		}
	}
	b.Alternating = float64(alternations) / float64(len(seq)-1)

	segments := outcome.Segments(seq)
	doubles := 0
	// the trailing run is still open and does not count
	for _, s := range segments[:len(segments)-1] {
		if s.Length == 2 {
			doubles++
		}
	}
	b.Doubling = float64(doubles) / float64(len(seq)/2)

	runs := outcome.RunLengths(seq)
	b.Clustering = math.Max(mean(runs[outcome.Player]), mean(runs[outcome.Banker])) / 5
	return b
}

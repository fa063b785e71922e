package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const maxStreakBreak = 0.9

// Streak estimates how likely the trailing run is to break
type Streak struct{}

func (Streak) Name() string { return NameStreak }

// Analyze applies the advanced break model: exponential length factor,
// a bonus when the run outlasts that side's average, and a long-run bonus past 7.
func (Streak) Analyze(in Input) outcome.Prediction {
	if len(in.NonNeutral) < 2 {
		return outcome.DefaultPrediction()
	}

	current, length := outcome.CurrentRun(in.NonNeutral)
	runs := outcome.RunLengths(in.NonNeutral)

	p := baseBreak(current)
	p += 1 - math.Exp(-float64(length)/3)
	if float64(length) > mean(runs[current]) {
		p += 0.2
	}
	if length > 7 {
		p += math.Min(0.3, float64(length-7)*0.05)
	}
	p = math.Min(p, maxStreakBreak)

	return outcome.FromBreakProbability(current, p,
		fmt.Sprintf("streak: %s run of %d", current.Name(), length))
}

// SimpleStreak is the linear break model used to corroborate other signals
func SimpleStreak(in Input) outcome.Prediction {
	if len(in.NonNeutral) < 2 {
		return outcome.DefaultPrediction()
	}
	current, length := outcome.CurrentRun(in.NonNeutral)
	p := math.Min(baseBreak(current)+math.Min(float64(length)*0.1, 0.4), maxStreakBreak)
	return outcome.FromBreakProbability(current, p,
		fmt.Sprintf("simple streak: %s run of %d", current.Name(), length))
}

// baseBreak is the chance the other side wins the next non-tie hand
func baseBreak(current outcome.Outcome) float64 {
	if current == outcome.Banker {
		return outcome.TruePlayerProb
	}
	return outcome.TrueBankerProb
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

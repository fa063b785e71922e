package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

var (
	trendWindows = []int{10, 25, 50}
	trendWeights = []float64{0.5, 0.3, 0.2}
)

// Trend weighs side imbalance over short, medium and long windows
type Trend struct{}

func (Trend) Name() string { return NameTrend }

func (Trend) Analyze(in Input) outcome.Prediction {
	var pScore, bScore float64
	for i, size := range trendWindows {
		side, strength := trendWindow(in.NonNeutral, size)
		w := trendWeights[i] * strength
		if side == outcome.Player {
			pScore += w
		} else {
			bScore += w
		}
	}
	return outcome.FromScores(pScore, bScore, "trend: multi-window imbalance")
}

// trendWindow returns the leading side and |p-b|/size, or zero strength when the history is shorter than size
func trendWindow(seq outcome.Sequence, size int) (outcome.Outcome, float64) {
	if len(seq) < size {
		return outcome.Banker, 0
	}
	p, b := countSides(seq.Tail(size))
	side := outcome.Banker
	if p > b {
		side = outcome.Player
	}
	return side, math.Abs(float64(p-b)) / float64(size)
}

// SimpleTrend treats a dominant side over the last 20 hands as a reversal candidate
func SimpleTrend(in Input) outcome.Prediction {
	if len(in.NonNeutral) < 10 {
		return outcome.DefaultPrediction()
	}
	recent := in.NonNeutral.Tail(20)
	p, b := countSides(recent)
	strength := math.Abs(float64(p-b)) / float64(len(recent))
	dominant := outcome.Banker
	if p > b {
		dominant = outcome.Player
	}
	reversal := math.Min(0.3+strength*0.5, 0.8)
	return outcome.FromBreakProbability(dominant, reversal,
		fmt.Sprintf("simple trend: %s leads with strength %.2f", dominant.Name(), strength))
}

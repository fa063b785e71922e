package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Counting keeps a running +1 Player / -1 Banker count scaled per ten hands
type Counting struct{}

func (Counting) Name() string { return NameCounting }

func (Counting) Analyze(in Input) outcome.Prediction {
	n := len(in.NonNeutral)
	if n == 0 {
		return outcome.DefaultPrediction()
	}

	p, b := countSides(in.NonNeutral)
	count := p - b
	// histories under ten hands divide by one
	trueCount := float64(count) / float64(max(1, n/10))
	if math.Abs(trueCount) < 1 {
		return outcome.DefaultPrediction()
	}

	favoured := outcome.Banker
	if count > 0 {
		favoured = outcome.Player
	}
	return outcome.Directional(favoured, math.Min(math.Abs(trueCount)*20, 75),
		fmt.Sprintf("count: true count %.1f", trueCount))
}

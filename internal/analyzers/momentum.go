package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

var momentumWeights = []float64{1, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.8, 2.0}

// Momentum weighs the last ten hands with increasing recency weights
type Momentum struct{}

func (Momentum) Name() string { return NameMomentum }

func (Momentum) Analyze(in Input) outcome.Prediction {
	if len(in.NonNeutral) < len(momentumWeights) {
		return outcome.DefaultPrediction()
	}

	var pm, bm float64
	for i, o := range in.NonNeutral.Tail(len(momentumWeights)) {
		if o == outcome.Player {
			pm += momentumWeights[i]
		} else {
			bm += momentumWeights[i]
		}
	}

	strength := math.Min(math.Abs(pm-bm)/(pm+bm)*2, 1)
	if strength < 0.1 {
		return outcome.DefaultPrediction()
	}

	direction := outcome.Banker
	if pm > bm {
		direction = outcome.Player
	}
	return outcome.Directional(direction, strength*100,
		fmt.Sprintf("momentum: %.1f%% toward %s", strength*100, direction.Name()))
}

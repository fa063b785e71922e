package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const hotColdWindow = 20

// HotCold bets on the side that has been cold over the recent window
type HotCold struct{}

func (HotCold) Name() string { return NameHotCold }

func (HotCold) Analyze(in Input) outcome.Prediction {
	if len(in.NonNeutral) == 0 {
		return outcome.DefaultPrediction()
	}

	recent := in.NonNeutral.Tail(hotColdWindow)
	p, b := countSides(recent)
	pHeat := float64(p) / float64(len(recent))
	bHeat := float64(b) / float64(len(recent))
	diff := math.Abs(pHeat - bHeat)
	if diff < 0.2 {
		return outcome.DefaultPrediction()
	}

	hot, cold := outcome.Banker, outcome.Player
	if pHeat > bHeat {
		hot, cold = outcome.Player, outcome.Banker
	}
	return outcome.Directional(cold, diff*100,
		fmt.Sprintf("hot/cold: %s is hot", hot.Name()))
}

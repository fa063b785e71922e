package analyzers

import (
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const (
	regressionWeight   = 0.4
	deviationWeight    = 0.6
	chiSquareCritical  = 3.84 // one degree of freedom, 95%
	chiSquareBonusRate = 0.3
)

// Mathematical combines a linear regression on the side indicator, a
// regression-to-the-mean deviation score and a chi-square goodness-of-fit bonus.
type Mathematical struct{}

func (Mathematical) Name() string { return NameMathematical }

func (Mathematical) Analyze(in Input) outcome.Prediction {
	seq := in.NonNeutral
	if len(seq) < 2 {
		return outcome.DefaultPrediction()
	}

	scores := map[outcome.Outcome]float64{}

	if side, conf, ok := regressionSignal(seq); ok {
		scores[side] += regressionWeight * conf
	}

	side, conf := deviationSignal(seq)
	scores[side] += deviationWeight * conf

	if chi, favoured, ok := chiSquare(seq); ok && chi > chiSquareCritical {
		scores[favoured] += math.Min(chi*10, 80) * chiSquareBonusRate
	}

	return outcome.FromScores(scores[outcome.Player], scores[outcome.Banker], "mathematical: regression, deviation and chi-square")
}

// regressionSignal extrapolates a least-squares line over outcome-as-{0,1} to the next index
func regressionSignal(seq outcome.Sequence) (outcome.Outcome, float64, bool) {
	n := len(seq)
	if n < 10 {
		return "", 0, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, o := range seq {
		x := float64(i)
		y := 0.0
		if o == outcome.Player {
			y = 1
		}
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn
	next := slope*fn + intercept

	side := outcome.Banker
	if next > 0.5 {
		side = outcome.Player
	}
	return side, math.Min(math.Abs(next-0.5)*200, 100), true
}

// deviationSignal bets on the correction of whichever side strays furthest from its true probability
func deviationSignal(seq outcome.Sequence) (outcome.Outcome, float64) {
	n := float64(len(seq))
	p, b := countSides(seq)
	pDev := float64(p)/n - outcome.TruePlayerProb
	bDev := float64(b)/n - outcome.TrueBankerProb

	var side outcome.Outcome
	if math.Abs(pDev) > math.Abs(bDev) {
		side = outcome.Player
		if pDev > 0 {
			side = outcome.Banker
		}
	} else {
		side = outcome.Banker
		if bDev > 0 {
			side = outcome.Player
		}
	}

	strength := math.Min(n/100, 1)
	return side, math.Max(math.Abs(pDev), math.Abs(bDev)) * strength * 100
}

// chiSquare tests observed side counts against the true probabilities and names the under-represented side
func chiSquare(seq outcome.Sequence) (float64, outcome.Outcome, bool) {
	n := float64(len(seq))
	if n < 20 {
		return 0, "", false
	}
	p, b := countSides(seq)
	expP := n * outcome.TruePlayerProb
	expB := n * outcome.TrueBankerProb
	chi := math.Pow(float64(p)-expP, 2)/expP + math.Pow(float64(b)-expB, 2)/expB

	favoured := outcome.Player
	if float64(p) > expP {
		favoured = outcome.Banker
	}
	return chi, favoured, true
}

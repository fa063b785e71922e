package outcome

import "math"

// InsufficientData is the reasoning attached to the baseline prediction
const InsufficientData = "insufficient data"

// Pick is one side of a prediction with its confidence in percent
type Pick struct {
	Outcome    Outcome `json:"outcome"`
	Confidence float64 `json:"confidence"`
}

// Prediction is the result shared by every analyzer and the combiner
type Prediction struct {
	Primary     Pick   `json:"primary"`
	Alternative Pick   `json:"alternative"`
	Reasoning   string `json:"reasoning"`
}

// DefaultPrediction is the statistical baseline: Banker holds the small house edge
func DefaultPrediction() Prediction {
	return Prediction{
		Primary:     Pick{Outcome: Banker, Confidence: 50.68},
		Alternative: Pick{Outcome: Player, Confidence: 49.32},
		Reasoning:   InsufficientData,
	}
}

// IsDefault reports whether p is the baseline prediction
func (p Prediction) IsDefault() bool {
	return p == DefaultPrediction()
}

// Finite reports whether both confidences are real numbers
func (p Prediction) Finite() bool {
	for _, c := range []float64{p.Primary.Confidence, p.Alternative.Confidence} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Directional predicts o with the given confidence and gives the remainder to the other side
func Directional(o Outcome, confidence float64, reasoning string) Prediction {
	return Prediction{
		Primary:     Pick{Outcome: o, Confidence: confidence},
		Alternative: Pick{Outcome: o.Opposite(), Confidence: 100 - confidence},
		Reasoning:   reasoning,
	}
}

// FromBreakProbability turns the probability that current stops repeating into a prediction
func FromBreakProbability(current Outcome, p float64, reasoning string) Prediction {
	next := current
	if p > 0.5 {
		next = current.Opposite()
	}
	return Prediction{
		Primary:     Pick{Outcome: next, Confidence: math.Max(p, 1-p) * 100},
		Alternative: Pick{Outcome: next.Opposite(), Confidence: math.Min(p, 1-p) * 100},
		Reasoning:   reasoning,
	}
}

// FromScores ranks two side scores. Equal scores favour Banker.
func FromScores(pScore, bScore float64, reasoning string) Prediction {
	total := pScore + bScore
	if total <= 0 {
		return DefaultPrediction()
	}
	primary, alt := Banker, Player
	hi, lo := bScore, pScore
	if pScore > bScore {
		primary, alt = Player, Banker
		hi, lo = pScore, bScore
	}
	return Prediction{
		Primary:     Pick{Outcome: primary, Confidence: hi / total * 100},
		Alternative: Pick{Outcome: alt, Confidence: lo / total * 100},
		Reasoning:   reasoning,
	}
}

package adaptive

import (
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Sub-model names, also the adaptive weight keys
const (
	ModelCau         = "cau"
	ModelNeural      = "neural"
	ModelMarkov      = "markov"
	ModelGoldenRatio = "golden_ratio"
)

// Vote is one sub-model's call with confidence in [0,1]
type Vote struct {
	Model      string          `json:"model"`
	Outcome    outcome.Outcome `json:"outcome"`
	Confidence float64         `json:"confidence"`
	Weight     float64         `json:"weight"`
}

// SubModel predicts the next outcome from a tie-free sequence.
// It returns false when it has nothing to say.
type SubModel interface {
	Name() string
	Vote(seq outcome.Sequence) (Vote, bool)
}

// DefaultSubModels returns the four sub-models in prior order
func DefaultSubModels() []SubModel {
	return []SubModel{Cau{}, Neural{}, Markov{}, GoldenRatio{}}
}

func sideShare(seq outcome.Sequence, side outcome.Outcome) float64 {
	if len(seq) == 0 {
		return 0
	}
	return float64(seq.Count(side)) / float64(len(seq))
}

func alternationRate(seq outcome.Sequence) float64 {
	if len(seq) < 2 {
		return 0
	}
	changes := 0
	for i := 1; i < len(seq); i++ {
		if seq[i] != seq[i-1] {
			changes++
		}
	}
	return float64(changes) / float64(len(seq)-1)
}

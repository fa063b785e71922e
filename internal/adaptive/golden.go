package adaptive

import (
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const phi = 1.618033988749895

// GoldenRatio treats run lengths close to multiples of phi as natural turning points
type GoldenRatio struct{}

func (GoldenRatio) Name() string { return ModelGoldenRatio }

func (GoldenRatio) Vote(seq outcome.Sequence) (Vote, bool) {
	if len(seq) < 5 {
		return Vote{}, false
	}

	segments := outcome.Segments(seq)
	aligned := 0
	for _, s := range segments {
		nearest := math.Round(float64(s.Length)/phi) * phi
		if math.Abs(float64(s.Length)-nearest)/nearest < 0.2 {
			aligned++
		}
	}
	alignment := float64(aligned) / float64(len(segments))

	current := segments[len(segments)-1]
	ratio := float64(current.Length) / (math.Ceil(float64(current.Length)/phi) * phi)

	v := Vote{Model: ModelGoldenRatio, Outcome: current.Value, Confidence: 0.5}
	switch {
	case ratio > 0.8:
		v.Outcome = current.Value.Opposite()
		v.Confidence = math.Min(0.9, 0.5+alignment*0.4)
	case alignment > 0.4:
		v.Confidence = 0.5 + (1-ratio)*0.3
	}
	return v, true
}

package adaptive

import (
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Neural is a fixed-weight single-layer scorer over four features:
// the last hand discounted by its run length, the hand before it,
// the overall Player share and the Player share of the recent half.
type Neural struct{}

func (Neural) Name() string { return ModelNeural }

func (Neural) Vote(seq outcome.Sequence) (Vote, bool) {
	if len(seq) < 5 {
		return Vote{}, false
	}

	last, run := outcome.CurrentRun(seq)
	secondLast := seq[len(seq)-2]

	var p float64
	streakFactor := math.Min(1, float64(run)/8)
	if last == outcome.Player {
		p += 0.4 * (1 - streakFactor)
	} else {
		p += 0.4 * streakFactor
	}
	if secondLast == outcome.Player {
		p += 0.2 * 0.4
	} else {
		p += 0.2 * 0.6
	}
	p += 0.3 * sideShare(seq, outcome.Player)
	p += 0.1 * sideShare(seq.Tail(len(seq)/2), outcome.Player)

	b := 1 - p
	next := outcome.Banker
	if p > b {
		next = outcome.Player
	}
	return Vote{Model: ModelNeural, Outcome: next, Confidence: math.Min(0.95, math.Abs(p-b)*2)}, true
}

package adaptive

import (
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Markov predicts from first-order transitions out of the last outcome,
// mixing recency-weighted (70%) and plain (30%) transition frequencies.
type Markov struct{}

func (Markov) Name() string { return ModelMarkov }

func (Markov) Vote(seq outcome.Sequence) (Vote, bool) {
	n := len(seq)
	if n < 3 {
		return Vote{}, false
	}

	last := seq[n-1]
	var count, weighted struct{ p, b float64 }
	for i := 0; i < n-1; i++ {
		if seq[i] != last {
			continue
		}
		w := 1 + float64(i)/float64(n)
		if seq[i+1] == outcome.Player {
			count.p++
			weighted.p += w
		} else {
			count.b++
			weighted.b += w
		}
	}
	total := count.p + count.b
	if total == 0 {
		return Vote{}, false
	}

	pProb := weighted.p/(weighted.p+weighted.b)*0.7 + count.p/total*0.3
	bProb := 1 - pProb

	modifier := 0.0
	if n > 10 {
		modifier = 0.1 + repeatRate(seq.Tail(6))*0.2
	}
	gapBonus := 0.0
	if gap := math.Abs(pProb - bProb); gap > 0.3 {
		gapBonus = gap * 0.2
	}

	next := outcome.Banker
	if pProb > bProb {
		next = outcome.Player
	}
	return Vote{
		Model:      ModelMarkov,
		Outcome:    next,
		Confidence: math.Min(0.95, math.Max(pProb, bProb)+modifier+gapBonus),
	}, true
}

// repeatRate is how often the hand two steps on repeated its predecessor, over six hands
func repeatRate(recent outcome.Sequence) float64 {
	if len(recent) < 6 {
		return 0
	}
	hits := 0
	for i := 0; i+2 < len(recent); i++ {
		if recent[i+2] == recent[i+1] {
			hits++
		}
	}
	return float64(hits) / 4
}

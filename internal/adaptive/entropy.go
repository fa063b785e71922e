package adaptive

import (
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// PairEntropy is the Shannon entropy of adjacent outcome pairs scaled to [0,1].
// Sequences shorter than two count as fully random.
func PairEntropy(seq outcome.Sequence) float64 {
	if len(seq) < 2 {
		return 1
	}
	pairs := map[[2]outcome.Outcome]int{}
	for i := 0; i+1 < len(seq); i++ {
		pairs[[2]outcome.Outcome{seq[i], seq[i+1]}]++
	}
	total := float64(len(seq) - 1)
	h := 0.0
	for _, c := range pairs {
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return math.Min(1, h/2)
}

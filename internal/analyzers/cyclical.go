package analyzers

import (
	"fmt"
	"math"
	"sort"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Cycle is a template that repeats at aligned offsets after its start
type Cycle struct {
	Template outcome.Sequence `json:"template"`
	Length   int              `json:"length"`
	Start    int              `json:"start"`
	Matches  int              `json:"matches"`
	Strength int              `json:"strength"`
}

// Cyclical predicts from the strongest repeating cycle of length 3 to 20
type Cyclical struct{}

func (Cyclical) Name() string { return NameCyclical }

func (Cyclical) Analyze(in Input) outcome.Prediction {
	cycles := DetectCycles(in.NonNeutral)
	if len(cycles) == 0 {
		return outcome.DefaultPrediction()
	}

	best := cycles[0]
	next := best.Template[len(in.NonNeutral)%best.Length]
	conf := math.Min(float64(best.Strength)*5, 85)
	return outcome.Directional(next, conf,
		fmt.Sprintf("cyclical: %d-cycle %s matched %d times", best.Length, best.Template, best.Matches))
}

// DetectCycles returns every registered cycle, strongest first. Equal strengths keep scan order.
func DetectCycles(seq outcome.Sequence) []Cycle {
	n := len(seq)
	maxLen := n / 3
	if maxLen > 20 {
		maxLen = 20
	}

	var cycles []Cycle
	for length := 3; length <= maxLen; length++ {
		for start := 0; start <= n-2*length; start++ {
			template := seq[start : start+length]
			matches := 0
			for i := start + length; i <= n-length; i += length {
				if equalSeq(template, seq[i:i+length]) {
					matches++
				}
			}
			if matches >= 2 {
				cycles = append(cycles, Cycle{
					Template: template.Clone(),
					Length:   length,
					Start:    start,
					Matches:  matches,
					Strength: matches * length,
				})
			}
		}
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		return cycles[i].Strength > cycles[j].Strength
	})
	return cycles
}

func equalSeq(a, b outcome.Sequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

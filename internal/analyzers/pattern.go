package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const maxPatternLength = 12

// Pattern looks for repeated substrings and predicts what followed them before.
type Pattern struct {
	// HalfLife is measured in hands since the pattern last completed. Zero disables decay.
	HalfLife float64
}

func (Pattern) Name() string { return NamePattern }

type patternCandidate struct {
	key         string
	start       int
	length      int
	occurrences []int
	score       float64
}

func (p Pattern) Analyze(in Input) outcome.Prediction {
	seq := in.NonNeutral
	n := len(seq)
	maxLen := n / 2
	if maxLen > maxPatternLength {
		maxLen = maxPatternLength
	}
	if maxLen < 2 {
		return outcome.DefaultPrediction()
	}

	var best *patternCandidate
	for length := 2; length <= maxLen; length++ {
		for _, c := range repeatedSubstrings(seq, length) {
			expected := float64(n) / math.Pow(2, float64(length))
			significance := float64(len(c.occurrences)) / expected * float64(length)
			last := c.occurrences[len(c.occurrences)-1]
			c.score = significance * p.decay(n-(last+length))
			if best == nil || c.score > best.score {
				cand := c
				best = &cand
			}
		}
	}
	if best == nil {
		return outcome.DefaultPrediction()
	}

	var pf, bf int
	for _, start := range best.occurrences {
		if next := start + best.length; next < n {
			switch seq[next] {
			case outcome.Player:
				pf++
			case outcome.Banker:
				bf++
			}
		}
	}

	reasoning := fmt.Sprintf("pattern: %s seen %d times", best.key, len(best.occurrences))
	followers := pf + bf
	switch {
	case followers == 0 || pf == bf:
		return outcome.Directional(outcome.Player, 50, reasoning)
	case pf > bf:
		return outcome.Directional(outcome.Player, float64(pf)/float64(followers)*100, reasoning)
	default:
		return outcome.Directional(outcome.Banker, float64(bf)/float64(followers)*100, reasoning)
	}
}

// decay weights a pattern by how long ago it last completed, on a hand-count clock
func (p Pattern) decay(age int) float64 {
	if p.HalfLife <= 0 || age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/p.HalfLife)
}

// repeatedSubstrings returns substrings of the given length seen at least twice,
// in order of first appearance
func repeatedSubstrings(seq outcome.Sequence, length int) []patternCandidate {
	index := map[string]int{}
	var all []patternCandidate
	for i := 0; i+length <= len(seq); i++ {
		key := seq[i : i+length].String()
		if at, ok := index[key]; ok {
			all[at].occurrences = append(all[at].occurrences, i)
			continue
		}
		index[key] = len(all)
		all = append(all, patternCandidate{key: key, start: i, length: length, occurrences: []int{i}})
	}

	out := all[:0]
	for _, c := range all {
		if len(c.occurrences) >= 2 {
			out = append(out, c)
		}
	}
	return out
}

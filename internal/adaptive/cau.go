package adaptive

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const maxCauConfidence = 0.95

var fibonacci = map[int]bool{1: true, 2: true, 3: true, 5: true, 8: true, 13: true, 21: true}

// CauPattern names a shape the cau model recognises in the road
type CauPattern string

const (
	PatternBalanced    CauPattern = "balanced"
	PatternLeanPlayer  CauPattern = "lean_player"
	PatternLeanBanker  CauPattern = "lean_banker"
	PatternLongRun     CauPattern = "long_run"
	PatternMediumRun   CauPattern = "medium_run"
	PatternAlternating CauPattern = "alternating"
	PatternCyclic      CauPattern = "cyclic"
	PatternRandom      CauPattern = "random"
)

// Breakpoint estimates whether the current run is about to end
type Breakpoint struct {
	Probability float64 `json:"probability"`
	// Optimal marks a Fibonacci run length of five or more
	Optimal bool `json:"optimal"`
}

// CauAnalysis is the road pattern read behind the cau model's vote
type CauAnalysis struct {
	Main       CauPattern             `json:"main"`
	Scores     map[CauPattern]float64 `json:"scores"`
	Breakpoint Breakpoint             `json:"breakpoint"`
}

// Cau reads run lengths and road shapes to decide whether the current run breaks
type Cau struct{}

func (Cau) Name() string { return ModelCau }

func (Cau) Vote(seq outcome.Sequence) (Vote, bool) {
	if len(seq) < 3 {
		return Vote{}, false
	}
	a := AnalyzeCau(seq)
	segments := outcome.Segments(seq)
	current := segments[len(segments)-1]
	run := current.Length
	bp := a.Breakpoint.Probability

	var next outcome.Outcome
	var conf float64
	switch {
	case bp > 0.7 && run >= 3:
		next, conf = current.Value.Opposite(), bp
	case a.Main == PatternAlternating && a.Scores[PatternAlternating] > 0.7:
		next, conf = current.Value.Opposite(), a.Scores[PatternAlternating]
	case a.Main == PatternCyclic && a.Scores[PatternCyclic] > 0.7:
		block, score, _ := repeatingBlock(seq)
		next, conf = block[0], score
	case a.Main == PatternLeanPlayer && a.Scores[PatternLeanPlayer] > 0.7:
		next, conf = outcome.Player, a.Scores[PatternLeanPlayer]
	case a.Main == PatternLeanBanker && a.Scores[PatternLeanBanker] > 0.7:
		next, conf = outcome.Banker, a.Scores[PatternLeanBanker]
	case run <= 2:
		next, conf = current.Value, 0.5+float64(run)*0.05
	default:
		next = current.Value
		if bp > 0.5 {
			next = current.Value.Opposite()
		}
		conf = math.Abs(bp-0.5) * 2
	}

	return Vote{Model: ModelCau, Outcome: next, Confidence: math.Min(conf, maxCauConfidence)}, true
}

// AnalyzeCau scores the road shapes of a tie-free sequence and its breakpoint
func AnalyzeCau(seq outcome.Sequence) CauAnalysis {
	a := CauAnalysis{Main: PatternRandom, Scores: map[CauPattern]float64{}}
	if len(seq) < 3 {
		a.Breakpoint.Probability = 0.5
		return a
	}

	pRatio := sideShare(seq, outcome.Player)
	bRatio := sideShare(seq, outcome.Banker)
	switch dev := math.Abs(0.5 - pRatio); {
	case dev < 0.1:
		a.Scores[PatternBalanced] = 0.8 - dev*5
	case pRatio > 0.65:
		a.Scores[PatternLeanPlayer] = math.Min(0.95, pRatio)
	case bRatio > 0.65:
		a.Scores[PatternLeanBanker] = math.Min(0.95, bRatio)
	}

	_, run := outcome.CurrentRun(seq)
	switch {
	case run >= 5:
		a.Scores[PatternLongRun] = math.Min(0.9, 0.5+float64(run)*0.07)
	case run >= 3:
		a.Scores[PatternMediumRun] = 0.5 + float64(run)*0.05
	}

	if alt := alternationRate(seq); alt > 0.7 {
		a.Scores[PatternAlternating] = math.Min(0.9, alt)
	}

	if len(seq) >= 6 {
		if _, _, best := repeatingBlock(seq); best > 0.7 {
			a.Scores[PatternCyclic] = best
		}
	}

	highest := 0.0
	for _, p := range []CauPattern{
		PatternBalanced, PatternLeanPlayer, PatternLeanBanker, PatternLongRun,
		PatternMediumRun, PatternAlternating, PatternCyclic,
	} {
		if s, ok := a.Scores[p]; ok && s > highest {
			a.Main, highest = p, s
		}
	}

	a.Breakpoint = analyzeBreakpoint(outcome.Segments(seq))
	return a
}

// repeatingBlock compares the last two blocks of length 2 to 4. It returns the earlier
// block of the shortest pair matching above 0.7 with that pair's match rate, plus the best
// match rate over all lengths.
func repeatingBlock(seq outcome.Sequence) (block outcome.Sequence, score, best float64) {
	for length := 2; length <= 4; length++ {
		if len(seq) < 2*length {
			continue
		}
		prev := seq[len(seq)-2*length : len(seq)-length]
		last := seq[len(seq)-length:]
		matches := 0
		for i := range prev {
			if prev[i] == last[i] {
				matches++
			}
		}
		rate := float64(matches) / float64(length)
		if rate > 0.7 && block == nil {
			block, score = prev, rate
		}
		best = math.Max(best, rate)
	}
	return block, score, best
}

func analyzeBreakpoint(segments []outcome.Segment) Breakpoint {
	if len(segments) == 0 {
		return Breakpoint{Probability: 0.5}
	}
	count := segments[len(segments)-1].Length

	var p float64
	switch {
	case count == 1:
		p = 0.25
	case count == 2:
		p = 0.35
	case count == 3:
		p = 0.47
	case count == 5:
		p = 0.75
	case count == 8:
		p = 0.85
	case count >= 10:
		p = 0.9
	case fibonacci[count]:
		p = 0.6 + float64(count)*0.02
	default:
		p = 0.4 + float64(count)*0.05
	}

	if len(segments) >= 2 {
		prev := segments[len(segments)-2].Length
		if prev >= 5 {
			p = math.Min(0.95, p+0.05)
		}
		if count > prev {
			p = math.Min(0.95, p+0.05)
		}
	}

	// distinct (side, length) shapes among the closed runs
	shapes := map[string]bool{}
	for _, s := range segments[:len(segments)-1] {
		shapes[fmt.Sprintf("%s-%d", s.Value, s.Length)] = true
	}
	diversity := float64(len(shapes)) / math.Max(1, float64(len(segments)-1))
	p = math.Min(0.95, p+diversity*0.05)

	return Breakpoint{Probability: p, Optimal: fibonacci[count] && count >= 5}
}

package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
	"github.com/sawpanic/baccarun/internal/roadmap"
)

const (
	roadMapMinHands     = 8
	derivedWindow       = 5
	consistencyMinHands = 15
	consistencyWindow   = 3
	consistencyWeight   = 0.5
)

// RoadMap reads the Big Road column heights and the three derived roads
type RoadMap struct{}

func (RoadMap) Name() string { return NameRoadmap }

func (RoadMap) Analyze(in Input) outcome.Prediction {
	if len(in.NonNeutral) < roadMapMinHands {
		return outcome.DefaultPrediction()
	}

	var pScore, bScore float64
	votes := 0
	add := func(pred outcome.Prediction, weight float64) {
		votes++
		if pred.Primary.Outcome == outcome.Player {
			pScore += pred.Primary.Confidence * weight
		} else {
			bScore += pred.Primary.Confidence * weight
		}
	}

	if pred, ok := columnContinuation(in.Roads.Columns); ok {
		add(pred, 1)
	}
	for _, road := range [][]roadmap.Mark{in.Roads.BigEye, in.Roads.Small, in.Roads.Cockroach} {
		if pred, ok := derivedRoadSignal(road); ok {
			add(pred, 1)
		}
	}
	if len(in.Sequence) >= consistencyMinHands {
		if pred, ok := roadConsistency(in.Roads); ok {
			add(pred, consistencyWeight)
		}
	}

	if votes == 0 {
		return outcome.DefaultPrediction()
	}
	return outcome.FromScores(pScore, bScore, fmt.Sprintf("roadmap: %d road signals", votes))
}

// columnContinuation compares the current column height with every earlier column of the same side
func columnContinuation(cols []roadmap.Column) (outcome.Prediction, bool) {
	if len(cols) < 2 {
		return outcome.Prediction{}, false
	}
	current, height := roadmap.CurrentColumnStreak(cols)

	similar, longer := 0, 0
	for _, col := range cols[:len(cols)-1] {
		if col[0].Outcome != current {
			continue
		}
		similar++
		if len(col) > height {
			longer++
		}
	}
	if similar == 0 {
		return outcome.Prediction{}, false
	}

	cont := float64(longer) / float64(similar)
	next := current.Opposite()
	if cont > 0.5 {
		next = current
	}
	return outcome.Directional(next, math.Max(cont, 1-cont)*100,
		fmt.Sprintf("big road: %d similar columns", similar)), true
}

// derivedRoadSignal reads the majority of the last five marks: Same favours Player
func derivedRoadSignal(road []roadmap.Mark) (outcome.Prediction, bool) {
	if len(road) < derivedWindow {
		return outcome.Prediction{}, false
	}
	red, blue := countMarks(road[len(road)-derivedWindow:])
	next := outcome.Banker
	if red > blue {
		next = outcome.Player
	}
	conf := math.Max(math.Abs(float64(red-blue))/derivedWindow*100, 50)
	return outcome.Directional(next, conf, "derived road majority"), true
}

// roadConsistency votes each derived road's last three marks
func roadConsistency(r roadmap.Roads) (outcome.Prediction, bool) {
	var p, b int
	for _, road := range [][]roadmap.Mark{r.BigEye, r.Small, r.Cockroach} {
		if len(road) < derivedWindow {
			continue
		}
		red, _ := countMarks(road[len(road)-consistencyWindow:])
		if red >= 2 {
			p++
		} else {
			b++
		}
	}
	if p+b == 0 {
		return outcome.Prediction{}, false
	}
	pProb := float64(p) / float64(p+b)
	next := outcome.Banker
	if pProb > 0.5 {
		next = outcome.Player
	}
	conf := math.Max(math.Abs(pProb-0.5)*200, 50)
	return outcome.Directional(next, conf, "derived road consistency"), true
}

func countMarks(marks []roadmap.Mark) (red, blue int) {
	for _, m := range marks {
		if m == roadmap.Same {
			red++
		} else {
			blue++
		}
	}
	return red, blue
}

package combine

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const (
	conservativeCap = 85.0
	aggressiveBoost = 1.1
	aggressiveCap   = 95.0
	finalPrimaryCap = 95.0
	finalAltFloor   = 5.0
)

// Contribution is one analyzer's output as seen by the combiner
type Contribution struct {
	Analyzer   string             `json:"analyzer"`
	Prediction outcome.Prediction `json:"prediction"`
	Weight     float64            `json:"weight"`
	Excluded   bool               `json:"excluded"`
	Reason     string             `json:"reason,omitempty"`
}

// Usable reports whether the contribution enters the weighting
func (c Contribution) Usable() bool {
	return !c.Excluded && c.Weight > 0 && c.Prediction.Finite() && !c.Prediction.IsDefault()
}

// Combination is the merged result plus the raw side scores behind it
type Combination struct {
	Prediction  outcome.Prediction `json:"prediction"`
	PlayerScore float64            `json:"player_score"`
	BankerScore float64            `json:"banker_score"`
	TotalWeight float64            `json:"total_weight"`
	Used        int                `json:"used"`
	// Leader is the usable analyzer adding the most weighted confidence to the winning side
	Leader string `json:"leader,omitempty"`
}

// Combine merges contributions under mode's confidence shaping.
// Unusable contributions are skipped; with none left the default prediction is returned.
func Combine(mode Mode, contributions []Contribution) Combination {
	var c Combination
	var pLead, bLead struct {
		name  string
		score float64
	}

	for _, contrib := range contributions {
		if !contrib.Usable() {
			continue
		}
		c.Used++
		c.TotalWeight += contrib.Weight
		for _, pick := range []outcome.Pick{contrib.Prediction.Primary, contrib.Prediction.Alternative} {
			s := pick.Confidence / 100 * contrib.Weight
			switch pick.Outcome {
			case outcome.Player:
				c.PlayerScore += s
				if s > pLead.score {
					pLead.name, pLead.score = contrib.Analyzer, s
				}
			case outcome.Banker:
				c.BankerScore += s
				if s > bLead.score {
					bLead.name, bLead.score = contrib.Analyzer, s
				}
			}
		}
	}

	sum := c.PlayerScore + c.BankerScore
	if c.Used == 0 || !(sum > 0) {
		c.Prediction = outcome.DefaultPrediction()
		return c
	}

	p := c.PlayerScore / sum * 100
	b := c.BankerScore / sum * 100
	p, b = shape(mode, p, b)

	primary, alt := outcome.Banker, outcome.Player
	hi, lo := b, p
	c.Leader = bLead.name
	if p > b {
		primary, alt = outcome.Player, outcome.Banker
		hi, lo = p, b
		c.Leader = pLead.name
	}

	c.Prediction = outcome.Prediction{
		Primary:     outcome.Pick{Outcome: primary, Confidence: math.Min(hi, finalPrimaryCap)},
		Alternative: outcome.Pick{Outcome: alt, Confidence: math.Max(lo, finalAltFloor)},
		Reasoning:   fmt.Sprintf("%s: %d analyzers combined, led by %s", mode, c.Used, c.Leader),
	}
	return c
}

// shape applies the mode-specific adjustment to normalized side scores
func shape(mode Mode, p, b float64) (float64, float64) {
	switch mode {
	case Conservative:
		return math.Min(p, conservativeCap), math.Min(b, conservativeCap)
	case Aggressive:
		if p > b {
			return math.Min(p*aggressiveBoost, aggressiveCap), b
		}
		if b > p {
			return p, math.Min(b*aggressiveBoost, aggressiveCap)
		}
	}
	return p, b
}

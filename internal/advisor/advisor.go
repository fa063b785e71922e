// Package advisor maps a prediction and the shoe's streak context to a staking recommendation.
package advisor

import (
	"fmt"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// RiskLevel grades a recommendation
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Strategy names the framing of a recommendation
type Strategy string

const (
	StrategyStrong      Strategy = "strong-signal"
	StrategyModerate    Strategy = "moderate-signal"
	StrategyWait        Strategy = "wait"
	StrategyStreakBreak Strategy = "streak-break"
)

const (
	strongThreshold   = 70.0
	moderateThreshold = 55.0
	streakOverride    = 4
	// WaitBet is the recommended bet below the moderate threshold
	WaitBet = "Wait"
)

// Advice is a staking recommendation
type Advice struct {
	RecommendedBet string          `json:"recommended_bet"`
	Outcome        outcome.Outcome `json:"outcome,omitempty"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	MinUnits       int             `json:"min_units"`
	MaxUnits       int             `json:"max_units"`
	Strategy       Strategy        `json:"strategy"`
	StreakLength   int             `json:"streak_length"`
}

// UnitSize renders the unit range, e.g. "2-3 units"
func (a Advice) UnitSize() string {
	if a.MinUnits == a.MaxUnits {
		if a.MinUnits == 1 {
			return "1 unit"
		}
		return fmt.Sprintf("%d units", a.MinUnits)
	}
	return fmt.Sprintf("%d-%d units", a.MinUnits, a.MaxUnits)
}

// Advise grades p by confidence and mode, then overrides to a one-unit
// streak-break stance when the current same-side run reaches four.
func Advise(p outcome.Prediction, seq outcome.Sequence, mode combine.Mode) Advice {
	conf := p.Primary.Confidence
	a := Advice{
		RecommendedBet: p.Primary.Outcome.Name(),
		Outcome:        p.Primary.Outcome,
	}

	switch {
	case conf >= strongThreshold:
		a.Strategy = StrategyStrong
		if mode == combine.Conservative {
			a.RiskLevel, a.MinUnits, a.MaxUnits = RiskMedium, 2, 3
		} else {
			a.RiskLevel, a.MinUnits, a.MaxUnits = RiskHigh, 3, 5
		}
	case conf >= moderateThreshold:
		a.Strategy = StrategyModerate
		a.RiskLevel = RiskMedium
		if mode == combine.Aggressive {
			a.MinUnits, a.MaxUnits = 2, 3
		} else {
			a.MinUnits, a.MaxUnits = 1, 2
		}
	default:
		a.Strategy = StrategyWait
		a.RiskLevel, a.MinUnits, a.MaxUnits = RiskLow, 1, 1
		a.RecommendedBet, a.Outcome = WaitBet, ""
	}

	_, a.StreakLength = outcome.CurrentRun(seq.NonNeutral())
	if a.StreakLength >= streakOverride {
		a.Strategy = StrategyStreakBreak
		a.RiskLevel, a.MinUnits, a.MaxUnits = RiskLow, 1, 1
	}
	return a
}

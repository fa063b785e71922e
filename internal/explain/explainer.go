package explain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sawpanic/baccarun/internal/adaptive"
	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const (
	lowConfidence     = 55.0
	dissentShare      = 0.4
	thinCoverageCount = 3
)

// Explainer provides human-readable explanations for predictions
type Explainer struct {
	now func() time.Time
}

// NewExplainer creates a prediction explainer
func NewExplainer() *Explainer {
	return &Explainer{now: time.Now}
}

// Explanation contains the breakdown of one prediction
type Explanation struct {
	Timestamp  time.Time          `json:"timestamp"`
	Mode       string             `json:"mode"`
	Prediction outcome.Prediction `json:"prediction"`
	// Winner names the analyzer or adaptive sub-model that drove the result
	Winner  string `json:"winner,omitempty"`
	Summary string `json:"summary"`

	Contributions []Contribution `json:"contributions"`

	KeyInsights []string `json:"key_insights"`
	RiskFlags   []string `json:"risk_flags"`
}

// Contribution explains a single analyzer's or sub-model's share
type Contribution struct {
	Name          string          `json:"name"`
	Outcome       outcome.Outcome `json:"outcome,omitempty"`
	Confidence    float64         `json:"confidence"`
	Weight        float64         `json:"weight"`
	WeightedScore float64         `json:"weighted_score"`
	Agrees        bool            `json:"agrees"`
	Excluded      bool            `json:"excluded"`
	Reason        string          `json:"reason,omitempty"`
}

// Text is the reasoning line for a prediction
func Text(p outcome.Prediction) string {
	if p.IsDefault() {
		return fmt.Sprintf("%s: %s %.2f%% by the house edge", outcome.InsufficientData,
			p.Primary.Outcome.Name(), p.Primary.Confidence)
	}
	return fmt.Sprintf("%s %.1f%% (%s)", p.Primary.Outcome.Name(), p.Primary.Confidence, p.Reasoning)
}

// ExplainEvaluation breaks a fixed-mode evaluation down by analyzer
func (e *Explainer) ExplainEvaluation(eval combine.Evaluation) Explanation {
	pred := eval.Prediction()
	ex := e.newExplanation(string(eval.Mode), pred)
	ex.Winner = eval.Combination.Leader

	usable, dissent := 0, 0
	for _, c := range eval.Contributions {
		item := Contribution{
			Name:     c.Analyzer,
			Weight:   c.Weight,
			Excluded: c.Excluded,
			Reason:   c.Reason,
		}
		if c.Usable() {
			usable++
			item.Outcome = c.Prediction.Primary.Outcome
			item.Confidence = c.Prediction.Primary.Confidence
			item.WeightedScore = c.Prediction.Primary.Confidence / 100 * c.Weight
			item.Agrees = item.Outcome == pred.Primary.Outcome
			if !item.Agrees {
				dissent++
			}
			if item.Reason == "" {
				item.Reason = c.Prediction.Reasoning
			}
		}
		if c.Excluded {
			ex.RiskFlags = append(ex.RiskFlags, fmt.Sprintf("%s excluded: %s", c.Analyzer, c.Reason))
		}
		ex.Contributions = append(ex.Contributions, item)
	}
	sortContributions(ex.Contributions)

	if pred.IsDefault() {
		ex.Summary = Text(pred)
		return ex
	}

	ex.Summary = fmt.Sprintf("%s at %.1f%%, driven by the %s analyzer", pred.Primary.Outcome.Name(),
		pred.Primary.Confidence, ex.Winner)
	if lead := leading(ex.Contributions, ex.Winner); lead != nil {
		ex.KeyInsights = append(ex.KeyInsights, fmt.Sprintf("%s: %s", lead.Name, lead.Reason))
	}
	ex.KeyInsights = append(ex.KeyInsights, fmt.Sprintf("%d of %d analyzers had enough data", usable, len(eval.Contributions)))

	if usable <= thinCoverageCount {
		ex.RiskFlags = append(ex.RiskFlags, "few analyzers contributed")
	}
	if usable > 0 && float64(dissent)/float64(usable) >= dissentShare {
		ex.RiskFlags = append(ex.RiskFlags, fmt.Sprintf("%d of %d analyzers disagree", dissent, usable))
	}
	e.flagConfidence(&ex)
	return ex
}

// ExplainAdaptive breaks an adaptive prediction down by sub-model
func (e *Explainer) ExplainAdaptive(res adaptive.Result) Explanation {
	ex := e.newExplanation(string(combine.Adaptive), res.Prediction)
	ex.Winner = res.Winner

	for _, v := range res.Votes {
		ex.Contributions = append(ex.Contributions, Contribution{
			Name:          v.Model,
			Outcome:       v.Outcome,
			Confidence:    v.Confidence * 100,
			Weight:        v.Weight,
			WeightedScore: v.Confidence * v.Weight,
			Agrees:        v.Outcome == res.Prediction.Primary.Outcome,
		})
	}
	sortContributions(ex.Contributions)

	if res.Prediction.IsDefault() {
		ex.Summary = Text(res.Prediction)
		return ex
	}

	ex.Summary = fmt.Sprintf("%s at %.1f%%, driven by the %s model", res.Prediction.Primary.Outcome.Name(),
		res.Prediction.Primary.Confidence, res.Winner)
	ex.KeyInsights = append(ex.KeyInsights, fmt.Sprintf("pair entropy %.2f", res.Entropy))
	if res.Entropy > 0.8 {
		ex.RiskFlags = append(ex.RiskFlags, "shoe looks random, confidence damped")
	}
	e.flagConfidence(&ex)
	return ex
}

func (e *Explainer) newExplanation(mode string, p outcome.Prediction) Explanation {
	return Explanation{
		Timestamp:     e.now().UTC(),
		Mode:          mode,
		Prediction:    p,
		Contributions: []Contribution{},
		KeyInsights:   []string{},
		RiskFlags:     []string{},
	}
}

func (e *Explainer) flagConfidence(ex *Explanation) {
	if ex.Prediction.Primary.Confidence < lowConfidence {
		ex.RiskFlags = append(ex.RiskFlags, "confidence below 55%")
	}
}

// sortContributions orders by weighted score, then name for stable output
func sortContributions(items []Contribution) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].WeightedScore != items[j].WeightedScore {
			return items[i].WeightedScore > items[j].WeightedScore
		}
		return strings.Compare(items[i].Name, items[j].Name) < 0
	})
}

func leading(items []Contribution, name string) *Contribution {
	for i := range items {
		if items[i].Name == name {
			return &items[i]
		}
	}
	return nil
}

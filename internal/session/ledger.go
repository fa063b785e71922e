package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/baccarun/internal/combine"
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

const recentWindow = 10

// LedgerEntry is a served prediction settled by the next non-neutral outcome
type LedgerEntry struct {
	ID         string          `json:"id" db:"id"`
	Index      int             `json:"index" db:"hand_index"`
	Mode       combine.Mode    `json:"mode" db:"mode"`
	Predicted  outcome.Outcome `json:"predicted" db:"predicted"`
	Confidence float64         `json:"confidence" db:"confidence"`
	Actual     outcome.Outcome `json:"actual" db:"actual"`
	Correct    bool            `json:"correct" db:"correct"`
	Winner     string          `json:"winner,omitempty" db:"winner"`
	SettledAt  time.Time       `json:"settled_at" db:"settled_at"`
	// Default marks a settled default prediction
	Default bool `json:"default,omitempty" db:"is_default"`
	// ForecastHands is the sequence length the prediction was made for
	ForecastHands int `json:"forecast_hands" db:"-"`
}

func newLedgerEntry(index int, f Forecast, actual outcome.Outcome, at time.Time) LedgerEntry {
	return LedgerEntry{
		ID:         uuid.New().String(),
		Index:      index,
		Mode:       f.Mode,
		Predicted:  f.Prediction.Primary.Outcome,
		Confidence: f.Prediction.Primary.Confidence,
		Actual:     actual,
		Correct:    f.Prediction.Primary.Outcome == actual,
		Winner:     f.Winner,
		SettledAt:  at.UTC(),
		Default:    f.Prediction.IsDefault(),

		ForecastHands: f.Hands,
	}
}

// forecast rebuilds the pending prediction an entry settled, without its explanation
func (e LedgerEntry) forecast() Forecast {
	p := outcome.Directional(e.Predicted, e.Confidence, "restored after undo")
	if e.Default {
		p = outcome.DefaultPrediction()
	}
	return Forecast{Mode: e.Mode, Prediction: p, Winner: e.Winner, Hands: e.ForecastHands}
}

// Accuracy counts correct settled predictions
type Accuracy struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

func (a *Accuracy) add(correct bool) {
	a.Total++
	if correct {
		a.Correct++
	}
	a.Rate = float64(a.Correct) / float64(a.Total) * 100
}

// AccuracyReport is overall, last-ten and per-mode accuracy
type AccuracyReport struct {
	Overall Accuracy                  `json:"overall"`
	Recent  Accuracy                  `json:"recent"`
	ByMode  map[combine.Mode]Accuracy `json:"by_mode"`
}

// MeasureAccuracy summarises a ledger
func MeasureAccuracy(ledger []LedgerEntry) AccuracyReport {
	r := AccuracyReport{ByMode: map[combine.Mode]Accuracy{}}
	for i, e := range ledger {
		r.Overall.add(e.Correct)
		if i >= len(ledger)-recentWindow {
			r.Recent.add(e.Correct)
		}
		m := r.ByMode[e.Mode]
		m.add(e.Correct)
		r.ByMode[e.Mode] = m
	}
	return r
}

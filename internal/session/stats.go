package session

import (
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Streak is a run of one side
type Streak struct {
	Outcome outcome.Outcome `json:"outcome,omitempty"`
	Length  int             `json:"length"`
}

// ShoeStats summarises the current shoe
type ShoeStats struct {
	Total         int            `json:"total"`
	Player        int            `json:"player"`
	Banker        int            `json:"banker"`
	Tie           int            `json:"tie"`
	PlayerPercent float64        `json:"player_percent"`
	BankerPercent float64        `json:"banker_percent"`
	TiePercent    float64        `json:"tie_percent"`
	CurrentStreak Streak         `json:"current_streak"`
	LongestPlayer int            `json:"longest_player"`
	LongestBanker int            `json:"longest_banker"`
	Accuracy      AccuracyReport `json:"accuracy"`
}

// ComputeStats counts a sequence. Percentages are of all hands, ties included.
// Streaks are measured on the tie-free view.
func ComputeStats(seq outcome.Sequence) ShoeStats {
	st := ShoeStats{
		Total:  len(seq),
		Player: seq.Count(outcome.Player),
		Banker: seq.Count(outcome.Banker),
		Tie:    seq.Count(outcome.Tie),
	}
	if st.Total > 0 {
		n := float64(st.Total)
		st.PlayerPercent = float64(st.Player) / n * 100
		st.BankerPercent = float64(st.Banker) / n * 100
		st.TiePercent = float64(st.Tie) / n * 100
	}

	nonNeutral := seq.NonNeutral()
	st.CurrentStreak.Outcome, st.CurrentStreak.Length = outcome.CurrentRun(nonNeutral)
	for _, s := range outcome.Segments(nonNeutral) {
		switch {
		case s.Value == outcome.Player && s.Length > st.LongestPlayer:
			st.LongestPlayer = s.Length
		case s.Value == outcome.Banker && s.Length > st.LongestBanker:
			st.LongestBanker = s.Length
		}
	}
	return st
}

// Stats returns the shoe statistics with ledger accuracy
func (s *Session) Stats() ShoeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ComputeStats(s.sequence)
	st.Accuracy = MeasureAccuracy(s.ledger)
	return st
}

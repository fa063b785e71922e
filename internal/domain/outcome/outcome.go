package outcome

import (
	"errors"
	"fmt"
	"strings"
)

// Outcome is one recorded hand result
type Outcome string

const (
	Player Outcome = "P"
	Banker Outcome = "B"
	Tie    Outcome = "T"
)

// Long-run hand probabilities. Player and Banker are given over non-tie hands.
const (
	TrueBankerProb = 0.5068
	TruePlayerProb = 0.4932
	TrueTieProb    = 0.0954
)

// ErrMalformedInput is returned for any value outside the outcome alphabet
var ErrMalformedInput = errors.New("malformed outcome")

// Parse accepts the single-letter codes and the full side names, case-insensitive
func Parse(s string) (Outcome, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PLAYER":
		return Player, nil
	case "B", "BANKER":
		return Banker, nil
	case "T", "TIE":
		return Tie, nil
	}
	return "", fmt.Errorf("%w: %q", ErrMalformedInput, s)
}

// Valid reports whether o belongs to the outcome alphabet
func (o Outcome) Valid() bool {
	return o == Player || o == Banker || o == Tie
}

// IsNeutral reports whether o is a tie
func (o Outcome) IsNeutral() bool {
	return o == Tie
}

// Opposite swaps Player and Banker. A tie has no opposite and is returned unchanged.
func (o Outcome) Opposite() Outcome {
	switch o {
	case Player:
		return Banker
	case Banker:
		return Player
	}
	return o
}

// Name returns the display name of the side
func (o Outcome) Name() string {
	switch o {
	case Player:
		return "Player"
	case Banker:
		return "Banker"
	case Tie:
		return "Tie"
	}
	return "Unknown"
}

func (o Outcome) String() string {
	return string(o)
}

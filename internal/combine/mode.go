package combine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned for a mode name outside the supported set
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects the weight table and confidence shaping used for a prediction
type Mode string

const (
	Conservative Mode = "conservative"
	Balanced     Mode = "balanced"
	Aggressive   Mode = "aggressive"
	// Adaptive bypasses the weight tables and uses the adaptive weight model
	Adaptive Mode = "adaptive"
)

// FixedModes are the modes backed by a static weight table
var FixedModes = []Mode{Conservative, Balanced, Aggressive}

// ParseMode accepts a mode name, case-insensitive. An empty name means balanced.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Balanced, nil
	case Conservative, Balanced, Aggressive, Adaptive:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func (m Mode) Valid() bool {
	_, err := ParseMode(string(m))
	return err == nil && m != ""
}

func (m Mode) String() string { return string(m) }

// Set implements pflag.Value
func (m *Mode) Set(s string) error {
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Type implements pflag.Value
func (m *Mode) Type() string { return "mode" }

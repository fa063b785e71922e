package outcome

import (
	"fmt"
	"strings"
	"unicode"
)

// Sequence is an ordered hand history, most recent last
type Sequence []Outcome

// ParseSequence reads a compact history such as "PBBT" or "P,B,B,T".
// Whitespace and commas are ignored.
func ParseSequence(s string) (Sequence, error) {
	seq := make(Sequence, 0, len(s))
	for i, r := range s {
		if unicode.IsSpace(r) || r == ',' {
			continue
		}
		o, err := Parse(string(r))
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		seq = append(seq, o)
	}
	return seq, nil
}

// NonNeutral drops ties and keeps the relative order of everything else
func (s Sequence) NonNeutral() Sequence {
	out := make(Sequence, 0, len(s))
	for _, o := range s {
		if !o.IsNeutral() {
			out = append(out, o)
		}
	}
	return out
}

// Last returns the most recent outcome
func (s Sequence) Last() (Outcome, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[len(s)-1], true
}

// Tail returns at most the last n outcomes
func (s Sequence) Tail(n int) Sequence {
	if n >= len(s) {
		return s
	}
	if n <= 0 {
		return Sequence{}
	}
	return s[len(s)-n:]
}

// Count returns how many times o occurs
func (s Sequence) Count(o Outcome) int {
	n := 0
	for _, v := range s {
		if v == o {
			n++
		}
	}
	return n
}

// Clone returns an independent copy
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Strings converts the sequence to its wire form
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, o := range s {
		out[i] = string(o)
	}
	return out
}

func (s Sequence) String() string {
	var b strings.Builder
	for _, o := range s {
		b.WriteString(string(o))
	}
	return b.String()
}

package roadmap

import (
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Entry is one cell of the Big Road
type Entry struct {
	Outcome outcome.Outcome `json:"outcome"`
	Column  int             `json:"column"`
	Row     int             `json:"row"`
}

// Column is a run of identical outcomes laid out top to bottom
type Column []Entry

// Mark is a derived road cell
type Mark string

const (
	Same      Mark = "R"
	Different Mark = "B"
)

// Lags of the three derived roads
const (
	BigEyeLag    = 1
	SmallLag     = 2
	CockroachLag = 3
)

// Roads holds the Big Road and the three derived roads
type Roads struct {
	Columns   []Column `json:"columns"`
	BigEye    []Mark   `json:"big_eye"`
	Small     []Mark   `json:"small"`
	Cockroach []Mark   `json:"cockroach"`
}

// Build computes every road from a hand history. Ties are filtered first.
func Build(seq outcome.Sequence) Roads {
	cols := Columns(seq.NonNeutral())
	return Roads{
		Columns:   cols,
		BigEye:    BigEyeRoad(cols),
		Small:     SmallRoad(cols),
		Cockroach: CockroachRoad(cols),
	}
}

// Columns lays a tie-free sequence out as Big Road columns
func Columns(nonNeutral outcome.Sequence) []Column {
	cols := make([]Column, 0)
	for _, o := range nonNeutral {
		cols = appendEntry(cols, o)
	}
	return cols
}

func appendEntry(cols []Column, o outcome.Outcome) []Column {
	if n := len(cols); n > 0 && cols[n-1][0].Outcome == o {
		last := cols[n-1]
		cols[n-1] = append(last, Entry{Outcome: o, Column: n - 1, Row: len(last)})
		return cols
	}
	return append(cols, Column{{Outcome: o, Column: len(cols), Row: 0}})
}

// BigEyeRoad compares each column with the one before it
func BigEyeRoad(cols []Column) []Mark { return DerivedRoad(cols, BigEyeLag) }

// SmallRoad compares each column with the one two back
func SmallRoad(cols []Column) []Mark { return DerivedRoad(cols, SmallLag) }

// CockroachRoad compares each column with the one three back
func CockroachRoad(cols []Column) []Mark { return DerivedRoad(cols, CockroachLag) }

// DerivedRoad emits one mark per Big Road cell from column lag onwards.
// Marks compare cell existence in earlier columns, never outcome values.
func DerivedRoad(cols []Column, lag int) []Mark {
	road := make([]Mark, 0)
	for i := lag; i < len(cols); i++ {
		for j := range cols[i] {
			road = append(road, markAt(cols, i, j, lag))
		}
	}
	return road
}

// markAt evaluates cell (i, j) against columns i-lag and i-lag-1.
// Only columns before i are read, so a finished mark never changes.
func markAt(cols []Column, i, j, lag int) Mark {
	ref := cols[i-lag]
	if j == 0 {
		refSingle := len(ref) == 1
		prevSingle := i-lag-1 >= 0 && len(cols[i-lag-1]) == 1
		return toMark(refSingle == prevSingle)
	}
	return toMark((len(ref) > j) == (len(ref) > j-1))
}

func toMark(same bool) Mark {
	if same {
		return Same
	}
	return Different
}

// CurrentColumnStreak returns the outcome and height of the last column
func CurrentColumnStreak(cols []Column) (outcome.Outcome, int) {
	if len(cols) == 0 {
		return "", 0
	}
	last := cols[len(cols)-1]
	return last[0].Outcome, len(last)
}

// Clone returns a deep copy so callers may keep a snapshot across updates
func (r Roads) Clone() Roads {
	cols := make([]Column, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = append(Column(nil), c...)
	}
	return Roads{
		Columns:   cols,
		BigEye:    append([]Mark{}, r.BigEye...),
		Small:     append([]Mark{}, r.Small...),
		Cockroach: append([]Mark{}, r.Cockroach...),
	}
}

package roadmap

import (
	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// Builder maintains roads incrementally as hands are recorded and undone.
// Each non-tie hand adds exactly one cell and at most one mark per derived road.
type Builder struct {
	roads   Roads
	history outcome.Sequence
}

// NewBuilder returns a builder over an empty history
func NewBuilder() *Builder {
	b := &Builder{}
	b.Rebuild(nil)
	return b
}

// Rebuild discards incremental state and recomputes from seq
func (b *Builder) Rebuild(seq outcome.Sequence) {
	b.history = seq.Clone()
	b.roads = Build(seq)
}

// Append records one hand
func (b *Builder) Append(o outcome.Outcome) {
	b.history = append(b.history, o)
	if o.IsNeutral() {
		return
	}

	b.roads.Columns = appendEntry(b.roads.Columns, o)
	i := len(b.roads.Columns) - 1
	j := len(b.roads.Columns[i]) - 1
	for _, road := range b.derived() {
		if i >= road.lag {
			*road.marks = append(*road.marks, markAt(b.roads.Columns, i, j, road.lag))
		}
	}
}

// Undo removes the most recent hand and reports whether there was one
func (b *Builder) Undo() bool {
	last, ok := b.history.Last()
	if !ok {
		return false
	}
	b.history = b.history[:len(b.history)-1]
	if last.IsNeutral() {
		return true
	}

	i := len(b.roads.Columns) - 1
	for _, road := range b.derived() {
		if i >= road.lag {
			*road.marks = (*road.marks)[:len(*road.marks)-1]
		}
	}
	col := b.roads.Columns[i]
	if len(col) == 1 {
		b.roads.Columns = b.roads.Columns[:i]
	} else {
		b.roads.Columns[i] = col[:len(col)-1]
	}
	return true
}

// Roads returns a copy of the current road state
func (b *Builder) Roads() Roads {
	return b.roads.Clone()
}

// Len is the number of recorded hands including ties
func (b *Builder) Len() int {
	return len(b.history)
}

type derivedRoad struct {
	lag   int
	marks *[]Mark
}

func (b *Builder) derived() []derivedRoad {
	return []derivedRoad{
		{lag: BigEyeLag, marks: &b.roads.BigEye},
		{lag: SmallLag, marks: &b.roads.Small},
		{lag: CockroachLag, marks: &b.roads.Cockroach},
	}
}

package outcome

// Segment is a maximal run of identical outcomes
type Segment struct {
	Value      Outcome `json:"value"`
	Length     int     `json:"length"`
	StartIndex int     `json:"start_index"`
}

// Segments partitions seq into runs with a single left-to-right scan
func Segments(seq Sequence) []Segment {
	if len(seq) == 0 {
		return []Segment{}
	}

	segments := make([]Segment, 0, len(seq)/2+1)
	current := Segment{Value: seq[0], Length: 1, StartIndex: 0}
	for i := 1; i < len(seq); i++ {
		if seq[i] == current.Value {
			current.Length++
			continue
		}
		segments = append(segments, current)
		current = Segment{Value: seq[i], Length: 1, StartIndex: i}
	}
	return append(segments, current)
}

// CurrentRun returns the value and length of the trailing run of seq
func CurrentRun(seq Sequence) (Outcome, int) {
	last, ok := seq.Last()
	if !ok {
		return "", 0
	}
	n := 1
	for i := len(seq) - 2; i >= 0 && seq[i] == last; i-- {
		n++
	}
	return last, n
}

// RunLengths groups the lengths of every run by its value
func RunLengths(seq Sequence) map[Outcome][]int {
	out := map[Outcome][]int{}
	for _, s := range Segments(seq) {
		out[s.Value] = append(out[s.Value], s.Length)
	}
	return out
}

package analyzers

import (
	"fmt"
	"math"

	"github.com/sawpanic/baccarun/internal/domain/outcome"
)

// BridgeType classifies an alternating run by its extracted length
type BridgeType string

const (
	BridgeDouble BridgeType = "double" // ABAB, 4 or 5 hands
	BridgeTriple BridgeType = "triple" // ABABAB, 6 or 7 hands
	BridgeLong   BridgeType = "long"   // 8 or more hands
)

// BridgeAction is the recommended move relative to the current bridge
type BridgeAction string

const (
	ActionContinue BridgeAction = "continue_bridge"
	ActionBreak    BridgeAction = "break_bridge"
	ActionStart    BridgeAction = "start_bridge"
	ActionWait     BridgeAction = "wait"
)

const (
	bridgeMinHands      = 6
	bridgeWindow        = 10
	bridgeTailSlack     = 2
	bridgeBreakTrigger  = 30.0
	bridgeNewTrigger    = 40.0
	bridgeAnalyzerCap   = 88.0
	bridgeConfirmMinima = 60.0
)

// BridgeSpan is one detected alternating run
type BridgeSpan struct {
	Type    BridgeType         `json:"type"`
	Start   int                `json:"start"`
	Length  int                `json:"length"`
	Pattern [2]outcome.Outcome `json:"pattern"`
}

// BridgeState describes a bridge still running at the tail of the window
type BridgeState struct {
	Type          BridgeType         `json:"type"`
	Pattern       [2]outcome.Outcome `json:"pattern"`
	CurrentLength int                `json:"current_length"`
	ExpectedNext  outcome.Outcome    `json:"expected_next"`
	Confidence    float64            `json:"confidence"`
	// absolute index of the bridge start within the tie-free history
	start int
}

// BridgeMove is the bridge recognizer's verdict
type BridgeMove struct {
	Action     BridgeAction    `json:"action"`
	Prediction outcome.Outcome `json:"prediction,omitempty"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

// BridgeReport is recomputed from the history on every call
type BridgeReport struct {
	Spans   []BridgeSpan `json:"spans"`
	Current *BridgeState `json:"current,omitempty"`
	Move    BridgeMove   `json:"move"`
}

// DetectBridges scans a tie-free sequence for alternating runs of at least four hands.
// Each run is extended as far as the two-hand template continues and classified by its length.
func DetectBridges(seq outcome.Sequence) []BridgeSpan {
	spans := make([]BridgeSpan, 0)
	for i := 0; i < len(seq)-3; {
		span, ok := extractBridge(seq, i)
		if !ok {
			i++
			continue
		}
		spans = append(spans, span)
		i += span.Length
	}
	return spans
}

func extractBridge(seq outcome.Sequence, start int) (BridgeSpan, bool) {
	pattern := [2]outcome.Outcome{seq[start], seq[start+1]}
	if pattern[0] == pattern[1] {
		return BridgeSpan{}, false
	}
	length := 0
	for start+length < len(seq) && seq[start+length] == pattern[length%2] {
		length++
	}

	span := BridgeSpan{Start: start, Length: length, Pattern: pattern}
	switch {
	case length >= 8:
		span.Type = BridgeLong
	case length >= 6:
		span.Type = BridgeTriple
	case length >= 4:
		span.Type = BridgeDouble
	default:
		return BridgeSpan{}, false
	}
	return span, true
}

// CurrentBridge returns the bridge reaching within two hands of the end of the last ten, if any
func CurrentBridge(seq outcome.Sequence) *BridgeState {
	if len(seq) < 4 {
		return nil
	}
	recent := seq.Tail(bridgeWindow)
	spans := DetectBridges(recent)
	if len(spans) == 0 {
		return nil
	}

	last := spans[len(spans)-1]
	if last.Start+last.Length < len(recent)-bridgeTailSlack {
		return nil
	}
	return &BridgeState{
		Type:          last.Type,
		Pattern:       last.Pattern,
		CurrentLength: last.Length,
		ExpectedNext:  last.Pattern[(len(recent)-last.Start)%2],
		Confidence:    bridgeConfidence(last.Type, last.Length),
		start:         len(seq) - len(recent) + last.Start,
	}
}

// AnalyzeBridges runs the full recognizer. It reports false below six tie-free hands.
func AnalyzeBridges(seq outcome.Sequence) (BridgeReport, bool) {
	if len(seq) < bridgeMinHands {
		return BridgeReport{}, false
	}

	report := BridgeReport{
		Spans:   DetectBridges(seq),
		Current: CurrentBridge(seq),
	}
	if report.Current == nil {
		report.Move = predictNewBridge(seq)
	} else {
		report.Move = predictContinuation(report.Current, seq)
	}
	return report, true
}

func bridgeConfidence(t BridgeType, length int) float64 {
	conf := 50 + math.Min(float64(length)*5, 30)
	switch t {
	case BridgeDouble:
		conf += 10
	case BridgeTriple:
		conf += 15
	case BridgeLong:
		conf += 20
	}
	return math.Min(conf, 85)
}

func predictContinuation(b *BridgeState, seq outcome.Sequence) BridgeMove {
	breakProb := bridgeBreakProbability(b, seq)
	if breakProb > bridgeBreakTrigger {
		return BridgeMove{
			Action:     ActionBreak,
			Prediction: b.ExpectedNext.Opposite(),
			Confidence: breakProb,
			Reasoning:  fmt.Sprintf("bridge: %s bridge likely to break (%.0f%%)", b.Type, breakProb),
		}
	}
	return BridgeMove{
		Action:     ActionContinue,
		Prediction: b.ExpectedNext,
		Confidence: b.Confidence,
		Reasoning:  fmt.Sprintf("bridge: continue %s bridge %s%s", b.Type, b.Pattern[0], b.Pattern[1]),
	}
}

// bridgeBreakProbability grows with bridge length, with hands that stray from the
// template in the last five, and with reversal signs at the tail. Result is in percent.
func bridgeBreakProbability(b *BridgeState, seq outcome.Sequence) float64 {
	prob := math.Min(float64(b.CurrentLength)*2, 25)

	expected := func(idx int) outcome.Outcome {
		return b.Pattern[((idx-b.start)%2+2)%2]
	}

	recent := seq.Tail(5)
	offset := len(seq) - len(recent)
	mismatches := 0
	for i, o := range recent {
		if o != expected(offset+i) {
			mismatches++
		}
	}
	volatility := float64(mismatches) / float64(len(recent))
	prob += volatility * 20

	reversal := 0.0
	if _, run := outcome.CurrentRun(seq); run >= 3 {
		reversal += 0.4
	}
	if last, _ := seq.Last(); last != expected(len(seq)-1) {
		reversal += 0.3
	}
	prob += reversal * 15

	return math.Min(prob, 80)
}

func predictNewBridge(seq outcome.Sequence) BridgeMove {
	wait := BridgeMove{Action: ActionWait, Reasoning: "bridge: waiting for a clearer pattern"}
	if len(seq) < 2 {
		return wait
	}

	recent := seq.Tail(6)
	a, b := recent[len(recent)-2], recent[len(recent)-1]
	if a == b {
		return wait
	}

	prob := math.Min(30+stability(recent)*25+patternSetup(recent)*20, 75)
	if prob <= bridgeNewTrigger {
		return wait
	}
	return BridgeMove{
		Action:     ActionStart,
		Prediction: a,
		Confidence: prob,
		Reasoning:  fmt.Sprintf("bridge: new bridge forming on %s%s", a, b),
	}
}

// stability is one minus the change rate of seq
func stability(seq outcome.Sequence) float64 {
	if len(seq) < 3 {
		return 0
	}
	changes := 0
	for i := 1; i < len(seq); i++ {
		if seq[i] != seq[i-1] {
			changes++
		}
	}
	return 1 - float64(changes)/float64(len(seq)-1)
}

func patternSetup(seq outcome.Sequence) float64 {
	if len(seq) < 4 {
		return 0
	}
	last4 := seq.Tail(4)
	score := 0.0

	alternating := true
	for i := 1; i < len(last4); i++ {
		if last4[i] == last4[i-1] {
			alternating = false
			break
		}
	}
	if alternating {
		score += 0.5
	}
	if last4[0] == last4[2] && last4[1] == last4[3] {
		score += 0.6
	}
	return score
}

// Bridge turns the recognizer's move into a prediction boosted by corroborating signals
type Bridge struct{}

func (Bridge) Name() string { return NameBridge }

func (Bridge) Analyze(in Input) outcome.Prediction {
	if len(in.Sequence) < bridgeMinHands {
		return outcome.DefaultPrediction()
	}
	report, ok := AnalyzeBridges(in.NonNeutral)
	if !ok || report.Move.Action == ActionWait {
		return outcome.DefaultPrediction()
	}

	conf := report.Move.Confidence
	if len(report.Spans) > 1 {
		conf += 8
	}
	if SimpleStreak(in).Primary.Confidence > bridgeConfirmMinima {
		conf += 5
	}
	if SimpleTrend(in).Primary.Confidence > bridgeConfirmMinima {
		conf += 5
	}
	if report.Current != nil && report.Current.CurrentLength > 6 {
		conf += 10
	}
	conf = math.Min(conf, bridgeAnalyzerCap)

	return outcome.Directional(report.Move.Prediction, conf, report.Move.Reasoning)
}

package mining

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/petri"
)

// ReplayResult aggregates token replay of a whole log against one net.
// Fitness follows the token-based formula: half the score rewards firing
// without missing tokens, half rewards ending without leftovers.
type ReplayResult struct {
	Fitness float64

	Produced  int // tokens produced, including the initial marking
	Consumed  int // tokens consumed, including the final marking
	Missing   int // tokens required but not available
	Remaining int // tokens left over after consuming the final marking

	FittingTraces    int
	TotalTraces      int
	MeanTraceFitness float64

	Traces []TraceReplay
}

// TraceReplay is the replay outcome of a single case.
type TraceReplay struct {
	CaseID  string
	Fitness float64
	Fitting bool

	Produced  int
	Consumed  int
	Missing   int
	Remaining int

	Fired   []string // transitions fired with all input tokens present
	Forced  []string // transitions fired despite missing input tokens
	Unknown []string // activities with no labelled transition in the net
}

// Replay replays every trace of the log against the net, firing for
// each activity the first transition carrying that label. Transitions
// short of input tokens are force-fired and the shortfall counted as
// missing; the final marking is consumed at the end of each trace so an
// incomplete case shows up as missing final tokens plus leftovers.
// Silent transitions are never fired: mined and merged nets carry a
// label on every transition.
//
// The markings must be over the places of net itself.
func Replay(log *eventlog.Log, net *petri.Net, initial, final petri.Marking) *ReplayResult {
	result := &ReplayResult{
		TotalTraces: log.NumCases(),
		Traces:      make([]TraceReplay, 0, log.NumCases()),
	}

	byLabel := labelIndex(net)
	pre, post := flowIndex(net)

	for _, trace := range log.Traces() {
		tr := replayTrace(trace, byLabel, pre, post, initial, final)
		result.Traces = append(result.Traces, tr)

		result.Produced += tr.Produced
		result.Consumed += tr.Consumed
		result.Missing += tr.Missing
		result.Remaining += tr.Remaining
		if tr.Fitting {
			result.FittingTraces++
		}
	}

	result.Fitness = tokenFitness(result.Missing, result.Consumed, result.Remaining, result.Produced)
	if result.TotalTraces > 0 {
		sum := 0.0
		for _, tr := range result.Traces {
			sum += tr.Fitness
		}
		result.MeanTraceFitness = sum / float64(result.TotalTraces)
	}
	return result
}

func replayTrace(trace *eventlog.Trace, byLabel map[string]*petri.Transition,
	pre, post map[*petri.Transition][]*petri.Place, initial, final petri.Marking) TraceReplay {

	tr := TraceReplay{CaseID: trace.CaseID}
	marking := initial.Copy()
	tr.Produced += initial.Total()

	for _, activity := range trace.ActivityVariant() {
		t, ok := byLabel[activity]
		if !ok {
			tr.Unknown = append(tr.Unknown, activity)
			tr.Missing++
			continue
		}

		shortfall := 0
		for _, p := range pre[t] {
			if marking[p] < 1 {
				shortfall++
			} else {
				marking[p]--
			}
		}
		tr.Consumed += len(pre[t])
		tr.Missing += shortfall

		for _, p := range post[t] {
			marking[p]++
		}
		tr.Produced += len(post[t])

		if shortfall == 0 {
			tr.Fired = append(tr.Fired, t.Name)
		} else {
			tr.Forced = append(tr.Forced, t.Name)
		}
	}

	// Consume the final marking; a case that did not run to completion
	// is short here and leaves its tokens stranded mid-net.
	for p, want := range final {
		tr.Consumed += want
		have := marking[p]
		if have > want {
			have = want
		}
		tr.Missing += want - have
		marking[p] -= have
	}
	for _, count := range marking {
		if count > 0 {
			tr.Remaining += count
		}
	}

	tr.Fitness = tokenFitness(tr.Missing, tr.Consumed, tr.Remaining, tr.Produced)
	tr.Fitting = tr.Missing == 0 && tr.Remaining == 0
	return tr
}

// tokenFitness is 0.5*(1 - missing/consumed) + 0.5*(1 - remaining/produced),
// clamped to [0, 1]. Nothing consumed or produced is trivially fit.
func tokenFitness(missing, consumed, remaining, produced int) float64 {
	if consumed == 0 || produced == 0 {
		return 1.0
	}
	f := 0.5*(1-float64(missing)/float64(consumed)) + 0.5*(1-float64(remaining)/float64(produced))
	if f < 0 {
		return 0
	}
	return f
}

// NonFitting returns the traces that did not replay cleanly, worst
// fitness first.
func (r *ReplayResult) NonFitting() []TraceReplay {
	var out []TraceReplay
	for _, tr := range r.Traces {
		if !tr.Fitting {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Fitness < out[j].Fitness })
	return out
}

// String renders the replay summary.
func (r *ReplayResult) String() string {
	return fmt.Sprintf(
		"Fitness: %.3f\n"+
			"  Fitting traces: %d/%d\n"+
			"  Mean trace fitness: %.3f\n"+
			"  Missing tokens: %d\n"+
			"  Remaining tokens: %d",
		r.Fitness, r.FittingTraces, r.TotalTraces, r.MeanTraceFitness,
		r.Missing, r.Remaining)
}

// PrecisionResult reports escaping-edge precision: how much behavior
// the net allows beyond what the log exercises. 1.0 means every enabled
// transition was eventually taken in its state.
type PrecisionResult struct {
	Precision     float64
	EscapingEdges int // transitions enabled in some visited state but never taken there
	TotalEnabled  int
	UniqueStates  int
}

// Precision replays the log and, at every visited marking, compares the
// labelled transitions the net enables against the ones the log takes.
func Precision(log *eventlog.Log, net *petri.Net, initial petri.Marking) *PrecisionResult {
	result := &PrecisionResult{}

	byLabel := labelIndex(net)
	pre, post := flowIndex(net)
	pos := make(map[*petri.Place]int, len(net.Places))
	for i, p := range net.Places {
		pos[p] = i
	}

	taken := make(map[string]map[*petri.Transition]bool)
	enabled := make(map[string]map[*petri.Transition]bool)

	for _, trace := range log.Traces() {
		marking := initial.Copy()
		for _, activity := range trace.ActivityVariant() {
			key := markingKey(marking, pos)
			if _, seen := enabled[key]; !seen {
				enabled[key] = make(map[*petri.Transition]bool)
				taken[key] = make(map[*petri.Transition]bool)
				for _, t := range net.Transitions {
					if !t.Silent() && isEnabled(marking, pre[t]) {
						enabled[key][t] = true
					}
				}
			}
			t, ok := byLabel[activity]
			if !ok {
				continue
			}
			taken[key][t] = true
			for _, p := range pre[t] {
				if marking[p] > 0 {
					marking[p]--
				}
			}
			for _, p := range post[t] {
				marking[p]++
			}
		}
	}

	for key, ts := range enabled {
		for t := range ts {
			result.TotalEnabled++
			if !taken[key][t] {
				result.EscapingEdges++
			}
		}
	}
	result.UniqueStates = len(enabled)
	if result.TotalEnabled > 0 {
		result.Precision = 1.0 - float64(result.EscapingEdges)/float64(result.TotalEnabled)
	} else {
		result.Precision = 1.0
	}
	return result
}

// String renders the precision summary.
func (r *PrecisionResult) String() string {
	return fmt.Sprintf(
		"Precision: %.3f\n"+
			"  Escaping edges: %d/%d\n"+
			"  Unique states: %d",
		r.Precision, r.EscapingEdges, r.TotalEnabled, r.UniqueStates)
}

// ConformanceResult combines fitness and precision with their harmonic
// mean.
type ConformanceResult struct {
	Replay    *ReplayResult
	Precision *PrecisionResult
	FScore    float64
}

// Conformance runs Replay and Precision over the same log and net.
func Conformance(log *eventlog.Log, net *petri.Net, initial, final petri.Marking) *ConformanceResult {
	result := &ConformanceResult{
		Replay:    Replay(log, net, initial, final),
		Precision: Precision(log, net, initial),
	}
	if sum := result.Replay.Fitness + result.Precision.Precision; sum > 0 {
		result.FScore = 2 * result.Replay.Fitness * result.Precision.Precision / sum
	}
	return result
}

// String renders both summaries and the F-score.
func (r *ConformanceResult) String() string {
	return fmt.Sprintf("%s\n%s\nF-score: %.3f", r.Replay, r.Precision, r.FScore)
}

// labelIndex maps each action label to the first transition carrying
// it, in insertion order. Silent transitions are skipped.
func labelIndex(net *petri.Net) map[string]*petri.Transition {
	index := make(map[string]*petri.Transition, len(net.Transitions))
	for _, t := range net.Transitions {
		if t.Silent() {
			continue
		}
		if _, ok := index[t.Label]; !ok {
			index[t.Label] = t
		}
	}
	return index
}

// flowIndex precomputes each transition's input and output places.
func flowIndex(net *petri.Net) (pre, post map[*petri.Transition][]*petri.Place) {
	pre = make(map[*petri.Transition][]*petri.Place, len(net.Transitions))
	post = make(map[*petri.Transition][]*petri.Place, len(net.Transitions))
	for _, a := range net.Arcs {
		if t, ok := a.Target.(*petri.Transition); ok {
			pre[t] = append(pre[t], a.Source.(*petri.Place))
		}
		if t, ok := a.Source.(*petri.Transition); ok {
			post[t] = append(post[t], a.Target.(*petri.Place))
		}
	}
	return pre, post
}

func isEnabled(marking petri.Marking, inputs []*petri.Place) bool {
	for _, p := range inputs {
		if marking[p] < 1 {
			return false
		}
	}
	return true
}

// markingKey folds a marking into a canonical state key over the place
// positions of one net instance.
func markingKey(marking petri.Marking, pos map[*petri.Place]int) string {
	type entry struct {
		pos   int
		count int
	}
	entries := make([]entry, 0, len(marking))
	for p, count := range marking {
		if count > 0 {
			entries = append(entries, entry{pos[p], count})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d:%d", e.pos, e.count)
	}
	return b.String()
}

// Package mining discovers Petri nets from event logs. The miners are
// interchangeable black boxes behind the Method enum; callers that
// orchestrate discovery never depend on which algorithm produced a net.
package mining

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netweave-xyz/go-netweave/eventlog"
)

// Relation classifies the log-based ordering of two activities.
type Relation int

const (
	// Choice means neither activity directly follows the other (a # b).
	Choice Relation = iota
	// Causal means a is followed by b but never the reverse (a -> b).
	Causal
	// ReverseCausal means b is followed by a but never the reverse.
	ReverseCausal
	// Parallel means both orderings were observed (a || b).
	Parallel
)

// String returns the conventional relation symbol.
func (r Relation) String() string {
	switch r {
	case Causal:
		return "->"
	case ReverseCausal:
		return "<-"
	case Parallel:
		return "||"
	default:
		return "#"
	}
}

// Footprint records the directly-follows counts of a log together with
// its trace start and end activities. It is the shared basis of every
// miner in the package.
type Footprint struct {
	Activities []string // sorted
	follows    map[string]map[string]int
	starts     map[string]bool
	ends       map[string]bool
}

// NewFootprint scans the log once and builds its footprint.
func NewFootprint(log *eventlog.Log) *Footprint {
	fp := &Footprint{
		Activities: log.Activities(),
		follows:    make(map[string]map[string]int),
		starts:     make(map[string]bool),
		ends:       make(map[string]bool),
	}
	for _, act := range fp.Activities {
		fp.follows[act] = make(map[string]int)
	}
	for _, trace := range log.Traces() {
		if len(trace.Events) == 0 {
			continue
		}
		fp.starts[trace.Events[0].Activity] = true
		fp.ends[trace.Events[len(trace.Events)-1].Activity] = true
		for i := 0; i < len(trace.Events)-1; i++ {
			a := trace.Events[i].Activity
			b := trace.Events[i+1].Activity
			fp.follows[a][b]++
		}
	}
	return fp
}

// FollowsCount returns how often a was directly followed by b.
func (fp *Footprint) FollowsCount(a, b string) int {
	return fp.follows[a][b]
}

// DirectlyFollows reports whether a was directly followed by b at least once.
func (fp *Footprint) DirectlyFollows(a, b string) bool {
	return fp.follows[a][b] > 0
}

// Relation returns the ordering relation between two activities.
func (fp *Footprint) Relation(a, b string) Relation {
	ab := fp.DirectlyFollows(a, b)
	ba := fp.DirectlyFollows(b, a)
	switch {
	case ab && ba:
		return Parallel
	case ab:
		return Causal
	case ba:
		return ReverseCausal
	default:
		return Choice
	}
}

// IsCausal reports a -> b.
func (fp *Footprint) IsCausal(a, b string) bool {
	return fp.DirectlyFollows(a, b) && !fp.DirectlyFollows(b, a)
}

// IsParallel reports a || b.
func (fp *Footprint) IsParallel(a, b string) bool {
	return fp.DirectlyFollows(a, b) && fp.DirectlyFollows(b, a)
}

// IsChoice reports a # b.
func (fp *Footprint) IsChoice(a, b string) bool {
	return !fp.DirectlyFollows(a, b) && !fp.DirectlyFollows(b, a)
}

// StartActivities returns the activities that open at least one trace, sorted.
func (fp *Footprint) StartActivities() []string {
	return sortedKeys(fp.starts)
}

// EndActivities returns the activities that close at least one trace, sorted.
func (fp *Footprint) EndActivities() []string {
	return sortedKeys(fp.ends)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetUnrelated reports whether every pair in the set is in choice
// relation. The alpha miner requires this of both sides of a place
// candidate.
func (fp *Footprint) SetUnrelated(activities []string) bool {
	for i := 0; i < len(activities); i++ {
		for j := i + 1; j < len(activities); j++ {
			if !fp.IsChoice(activities[i], activities[j]) {
				return false
			}
		}
	}
	return true
}

// SetsCausal reports whether every activity in setA causally precedes
// every activity in setB.
func (fp *Footprint) SetsCausal(setA, setB []string) bool {
	for _, a := range setA {
		for _, b := range setB {
			if !fp.IsCausal(a, b) {
				return false
			}
		}
	}
	return true
}

// String renders the relation matrix with start and end sets, activities
// clipped to four characters.
func (fp *Footprint) String() string {
	var b strings.Builder
	b.WriteString("     ")
	for _, col := range fp.Activities {
		fmt.Fprintf(&b, "%4s", clip(col, 4))
	}
	b.WriteByte('\n')
	for _, row := range fp.Activities {
		fmt.Fprintf(&b, "%4s ", clip(row, 4))
		for _, col := range fp.Activities {
			fmt.Fprintf(&b, "%4s", fp.Relation(row, col))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "start: %v\n", fp.StartActivities())
	fmt.Fprintf(&b, "end:   %v\n", fp.EndActivities())
	return b.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

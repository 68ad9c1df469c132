// Package eventlog models process event logs and their ingestion.
// A log groups events into per-case traces; CSV and JSONL readers feed
// the mining and compose packages. XES is out of scope.
package eventlog

import (
	"fmt"
	"sort"
	"time"
)

// Event is a single observed step of one case.
type Event struct {
	CaseID     string         // process instance the event belongs to
	Activity   string         // what was done
	Timestamp  time.Time      // when it was done
	Resource   string         // who or what did it (optional)
	Attributes map[string]any // extra columns or fields
}

// Trace is the ordered event sequence of a single case.
type Trace struct {
	CaseID     string
	Events     []Event
	Attributes map[string]any
}

// Log holds all traces of a process, keyed by case ID.
type Log struct {
	Cases      map[string]*Trace
	Attributes map[string]any
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{
		Cases:      make(map[string]*Trace),
		Attributes: make(map[string]any),
	}
}

// AddEvent appends an event to its case, creating the trace on first sight.
func (l *Log) AddEvent(e Event) {
	trace, ok := l.Cases[e.CaseID]
	if !ok {
		trace = &Trace{
			CaseID:     e.CaseID,
			Attributes: make(map[string]any),
		}
		l.Cases[e.CaseID] = trace
	}
	trace.Events = append(trace.Events, e)
}

// SortTraces orders events within each trace by timestamp.
func (l *Log) SortTraces() {
	for _, trace := range l.Cases {
		sort.SliceStable(trace.Events, func(i, j int) bool {
			return trace.Events[i].Timestamp.Before(trace.Events[j].Timestamp)
		})
	}
}

// Traces returns all traces sorted by case ID.
func (l *Log) Traces() []*Trace {
	traces := make([]*Trace, 0, len(l.Cases))
	for _, trace := range l.Cases {
		traces = append(traces, trace)
	}
	sort.Slice(traces, func(i, j int) bool {
		return traces[i].CaseID < traces[j].CaseID
	})
	return traces
}

// NumCases returns the number of cases in the log.
func (l *Log) NumCases() int {
	return len(l.Cases)
}

// NumEvents returns the total number of events across all cases.
func (l *Log) NumEvents() int {
	total := 0
	for _, trace := range l.Cases {
		total += len(trace.Events)
	}
	return total
}

// Activities returns the distinct activity names, sorted.
func (l *Log) Activities() []string {
	seen := make(map[string]bool)
	for _, trace := range l.Cases {
		for _, e := range trace.Events {
			seen[e.Activity] = true
		}
	}
	result := make([]string, 0, len(seen))
	for activity := range seen {
		result = append(result, activity)
	}
	sort.Strings(result)
	return result
}

// Resources returns the distinct resources in first-seen order over the
// case-sorted traces. Callers map resources to agent roles positionally,
// so the order must not depend on map iteration.
func (l *Log) Resources() []string {
	seen := make(map[string]bool)
	var result []string
	for _, trace := range l.Traces() {
		for _, e := range trace.Events {
			if e.Resource == "" || seen[e.Resource] {
				continue
			}
			seen[e.Resource] = true
			result = append(result, e.Resource)
		}
	}
	return result
}

// SplitByResource partitions the log into one sublog per resource.
// Case IDs and per-case event order are preserved; events without a
// resource are dropped.
func (l *Log) SplitByResource() map[string]*Log {
	split := make(map[string]*Log)
	for _, trace := range l.Traces() {
		for _, e := range trace.Events {
			if e.Resource == "" {
				continue
			}
			sub, ok := split[e.Resource]
			if !ok {
				sub = NewLog()
				split[e.Resource] = sub
			}
			sub.AddEvent(e)
		}
	}
	return split
}

// ActivityVariant returns the activity sequence of the trace.
func (t *Trace) ActivityVariant() []string {
	variant := make([]string, len(t.Events))
	for i, e := range t.Events {
		variant[i] = e.Activity
	}
	return variant
}

// Duration returns the time from first to last event in the trace.
func (t *Trace) Duration() time.Duration {
	if len(t.Events) < 2 {
		return 0
	}
	return t.Events[len(t.Events)-1].Timestamp.Sub(t.Events[0].Timestamp)
}

// String renders the trace as its case ID and activity sequence.
func (t *Trace) String() string {
	return fmt.Sprintf("%s: %v", t.CaseID, t.ActivityVariant())
}

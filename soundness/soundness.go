// Package soundness analyzes whether a net behaves as a proper process
// model: structural sanity, boundedness, deadlock freedom, and
// reachability of the final marking, decided by bounded exploration of
// the state space. Verdicts are collected as issues rather than errors
// so a caller can render all findings at once.
package soundness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netweave-xyz/go-netweave/petri"
)

// Severity grades an issue. Only Error issues make a net unsound.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns "info", "warning" or "error".
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Issue is one finding of the analysis.
type Issue struct {
	Severity Severity
	Category string // structure, boundedness, deadlock, completion, dead-transition, conservation
	Message  string
	Elements []string // affected element names or rendered markings
}

// String renders the issue on one line.
func (i Issue) String() string {
	if len(i.Elements) == 0 {
		return fmt.Sprintf("%s [%s] %s", i.Severity, i.Category, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Category, i.Message, strings.Join(i.Elements, ", "))
}

// Report is the outcome of Check.
type Report struct {
	Sound        bool // no error-severity issues
	Bounded      bool
	Conserved    bool // every transition has as many input as output arcs
	ReachedFinal bool
	Truncated    bool // exploration hit the state cap before finishing

	States    int // distinct markings explored
	MaxTokens int // largest token count seen in a single place

	Deadlocks       []string // terminal markings that are not the final marking
	DeadTransitions []string // never enabled in any explored marking
	Issues          []Issue
}

func (r *Report) add(sev Severity, category, message string, elements ...string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Category: category, Message: message, Elements: elements})
}

// Errors returns the number of error-severity issues.
func (r *Report) Errors() int { return r.count(Error) }

// Warnings returns the number of warning-severity issues.
func (r *Report) Warnings() int { return r.count(Warning) }

func (r *Report) count(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

type options struct {
	maxStates int
	bound     int
}

// Option tunes the exploration limits.
type Option func(*options)

// WithMaxStates caps the number of distinct markings explored before
// the analysis reports truncation.
func WithMaxStates(n int) Option {
	return func(o *options) { o.maxStates = n }
}

// WithBound sets the per-place token count above which the net is
// declared unbounded.
func WithBound(k int) Option {
	return func(o *options) { o.bound = k }
}

// Check analyzes the net from the given initial marking. The final
// marking decides which terminal states count as completion and which
// as deadlocks. Both markings must be over the places of net itself.
func Check(net *petri.Net, initial, final petri.Marking, opts ...Option) *Report {
	o := options{maxStates: 4096, bound: 64}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Report{Bounded: true, Conserved: true}

	if len(net.Places) == 0 {
		r.add(Error, "structure", "net has no places")
	} else {
		checkStructure(net, r)
		checkConservation(net, r)
		explore(net, initial, final, o, r)
	}

	r.Sound = r.Errors() == 0
	return r
}

// checkStructure flags elements the token game can never touch and
// transitions whose missing arcs change the net's dynamics.
func checkStructure(net *petri.Net, r *Report) {
	if len(net.Transitions) == 0 {
		r.add(Warning, "structure", "net has no transitions")
	}

	connected := make(map[petri.Node]bool, len(net.Places)+len(net.Transitions))
	inputs := make(map[petri.Node]int, len(net.Transitions))
	outputs := make(map[petri.Node]int, len(net.Transitions))
	for _, a := range net.Arcs {
		connected[a.Source] = true
		connected[a.Target] = true
		if _, ok := a.Source.(*petri.Place); ok {
			inputs[a.Target]++
		} else {
			outputs[a.Source]++
		}
	}

	var strayPlaces, strayTransitions, noIn, noOut []string
	for _, p := range net.Places {
		if !connected[p] {
			strayPlaces = append(strayPlaces, p.Name)
		}
	}
	for _, t := range net.Transitions {
		if !connected[t] {
			strayTransitions = append(strayTransitions, t.Name)
			continue
		}
		if inputs[t] == 0 {
			noIn = append(noIn, t.Name)
		}
		if outputs[t] == 0 {
			noOut = append(noOut, t.Name)
		}
	}

	if len(strayPlaces) > 0 {
		r.add(Warning, "structure", "places not connected to any transition", strayPlaces...)
	}
	if len(strayTransitions) > 0 {
		r.add(Warning, "structure", "transitions without arcs", strayTransitions...)
	}
	if len(noIn) > 0 {
		r.add(Warning, "structure", "transitions with no input places are enabled forever", noIn...)
	}
	if len(noOut) > 0 {
		r.add(Warning, "structure", "transitions with no output places only consume", noOut...)
	}
}

// checkConservation compares each transition's input and output arc
// counts. Arcs are unweighted, so balanced counts mean the firing
// preserves the token total.
func checkConservation(net *petri.Net, r *Report) {
	in := make(map[*petri.Transition]int, len(net.Transitions))
	out := make(map[*petri.Transition]int, len(net.Transitions))
	for _, a := range net.Arcs {
		if t, ok := a.Target.(*petri.Transition); ok {
			in[t]++
		}
		if t, ok := a.Source.(*petri.Transition); ok {
			out[t]++
		}
	}

	var unbalanced []string
	for _, t := range net.Transitions {
		if in[t] != out[t] {
			unbalanced = append(unbalanced, t.Name)
		}
	}
	if len(unbalanced) > 0 {
		r.Conserved = false
		sort.Strings(unbalanced)
		r.add(Info, "conservation", "transitions with unbalanced token flow", unbalanced...)
	}
}

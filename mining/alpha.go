package mining

import (
	"errors"
	"fmt"
	"strings"

	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/petri"
)

// Candidate input/output sets larger than this are not considered; the
// subset enumeration is exponential in the set size.
const maxCandidateSet = 5

// ErrEmptyLog reports a discovery attempt on a log without events.
var ErrEmptyLog = errors.New("mining: empty log")

// Alpha discovers a net with the alpha algorithm.
//
// Every activity becomes a transition named and labelled by the
// activity. Internal places come from maximal candidate pairs (A, B)
// where each side is pairwise unrelated and every a in A causally
// precedes every b in B; they are named p_{A}_{B} over the sorted sets.
// A p_source place feeds the start activities and the end activities
// feed p_sink; the returned markings put one token on each.
//
// The algorithm cannot see loops of length one or two and is sensitive
// to noise; Heuristic handles such logs better.
func Alpha(log *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error) {
	fp := NewFootprint(log)
	if len(fp.Activities) == 0 {
		return nil, nil, nil, ErrEmptyLog
	}

	net := petri.NewNet("alpha")
	transitions := make(map[string]*petri.Transition, len(fp.Activities))
	for _, act := range fp.Activities {
		transitions[act] = net.AddTransition(act, act)
	}

	for _, c := range maximalCandidates(placeCandidates(fp)) {
		p := net.AddPlace(c.name())
		for _, a := range c.inputs {
			arc(net, transitions[a], p)
		}
		for _, b := range c.outputs {
			arc(net, p, transitions[b])
		}
	}

	source := net.AddPlace("p_source")
	for _, act := range fp.StartActivities() {
		arc(net, source, transitions[act])
	}
	sink := net.AddPlace("p_sink")
	for _, act := range fp.EndActivities() {
		arc(net, transitions[act], sink)
	}

	return net, petri.Marking{source: 1}, petri.Marking{sink: 1}, nil
}

// candidate is a potential internal place: tokens flow from the input
// activities to the output activities. Both sides stay sorted because
// they are drawn from the sorted activity list.
type candidate struct {
	inputs  []string
	outputs []string
}

func (c candidate) name() string {
	return fmt.Sprintf("p_%s_%s", strings.Join(c.inputs, "_"), strings.Join(c.outputs, "_"))
}

// placeCandidates pairs every unrelated subset A with every unrelated
// subset B where A -> B holds pairwise.
func placeCandidates(fp *Footprint) []candidate {
	sets := unrelatedSubsets(fp, min(len(fp.Activities), maxCandidateSet))
	var candidates []candidate
	for _, a := range sets {
		for _, b := range sets {
			if fp.SetsCausal(a, b) {
				candidates = append(candidates, candidate{inputs: a, outputs: b})
			}
		}
	}
	return candidates
}

// unrelatedSubsets enumerates the non-empty subsets of the activities,
// up to maxSize elements, whose members are pairwise in choice relation.
// Extension stops as soon as a pair is related, which prunes most of the
// exponential space.
func unrelatedSubsets(fp *Footprint, maxSize int) [][]string {
	var result [][]string
	var extend func(start int, current []string)
	extend = func(start int, current []string) {
		if len(current) > 0 {
			subset := make([]string, len(current))
			copy(subset, current)
			result = append(result, subset)
		}
		if len(current) == maxSize {
			return
		}
		for i := start; i < len(fp.Activities); i++ {
			next := fp.Activities[i]
			compatible := true
			for _, member := range current {
				if !fp.IsChoice(member, next) {
					compatible = false
					break
				}
			}
			if compatible {
				extend(i+1, append(current, next))
			}
		}
	}
	extend(0, nil)
	return result
}

// maximalCandidates drops every candidate whose input and output sets
// are both contained in another candidate's.
func maximalCandidates(candidates []candidate) []candidate {
	var maximal []candidate
	for i, c := range candidates {
		dominated := false
		for j, d := range candidates {
			if i == j {
				continue
			}
			if subset(c.inputs, d.inputs) && subset(c.outputs, d.outputs) &&
				(len(c.inputs) < len(d.inputs) || len(c.outputs) < len(d.outputs)) {
				dominated = true
				break
			}
		}
		if !dominated {
			maximal = append(maximal, c)
		}
	}
	return maximal
}

func subset(a, b []string) bool {
	members := make(map[string]bool, len(b))
	for _, x := range b {
		members[x] = true
	}
	for _, x := range a {
		if !members[x] {
			return false
		}
	}
	return true
}

// arc wires two member nodes of opposite kinds; the construction
// guarantees AddArc cannot fail.
func arc(net *petri.Net, source, target petri.Node) {
	if _, err := net.AddArc(source, target); err != nil {
		panic(fmt.Sprintf("mining: %v", err))
	}
}

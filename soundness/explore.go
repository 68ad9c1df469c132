package soundness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/netweave-xyz/go-netweave/petri"
)

// explore walks the state space breadth-first from the initial marking
// and fills in the behavioral findings: boundedness, deadlocks, final
// reachability, dead transitions.
func explore(net *petri.Net, initial, final petri.Marking, o options, r *Report) {
	pre := make(map[*petri.Transition][]*petri.Place, len(net.Transitions))
	post := make(map[*petri.Transition][]*petri.Place, len(net.Transitions))
	for _, a := range net.Arcs {
		if t, ok := a.Target.(*petri.Transition); ok {
			pre[t] = append(pre[t], a.Source.(*petri.Place))
		}
		if t, ok := a.Source.(*petri.Transition); ok {
			post[t] = append(post[t], a.Target.(*petri.Place))
		}
	}
	pos := make(map[*petri.Place]int, len(net.Places))
	for i, p := range net.Places {
		pos[p] = i
	}

	everEnabled := make(map[*petri.Transition]bool, len(net.Transitions))
	visited := make(map[string]bool)
	queue := []petri.Marking{initial.Copy()}

	for len(queue) > 0 && r.States < o.maxStates && r.Bounded {
		marking := queue[0]
		queue = queue[1:]

		key := stateKey(marking, pos)
		if visited[key] {
			continue
		}
		visited[key] = true
		r.States++

		if marking.Equals(final) {
			r.ReachedFinal = true
		}

		terminal := true
		for _, t := range net.Transitions {
			if !enabled(marking, pre[t]) {
				continue
			}
			terminal = false
			everEnabled[t] = true

			next := marking.Copy()
			for _, p := range pre[t] {
				next[p]--
			}
			for _, p := range post[t] {
				next[p]++
				if next[p] > r.MaxTokens {
					r.MaxTokens = next[p]
				}
				if next[p] > o.bound {
					r.Bounded = false
				}
			}
			queue = append(queue, next)
		}
		if terminal && !marking.Equals(final) {
			r.Deadlocks = append(r.Deadlocks, marking.String())
		}
	}

	if mc := maxCount(initial); mc > r.MaxTokens {
		r.MaxTokens = mc
	}
	if r.Bounded {
		for _, m := range queue {
			if !visited[stateKey(m, pos)] {
				r.Truncated = true
				break
			}
		}
	}

	if !r.Bounded {
		r.add(Error, "boundedness",
			fmt.Sprintf("a place exceeds %d tokens; the net can accumulate tokens indefinitely", o.bound))
	}
	if r.Truncated {
		r.add(Warning, "boundedness",
			fmt.Sprintf("exploration stopped at %d markings; behavioral verdicts are partial", o.maxStates))
	}
	if len(r.Deadlocks) > 0 {
		sort.Strings(r.Deadlocks)
		r.add(Warning, "deadlock",
			fmt.Sprintf("%d terminal marking(s) differ from the final marking", len(r.Deadlocks)),
			r.Deadlocks...)
	}

	switch {
	case r.ReachedFinal:
	case r.Truncated || !r.Bounded:
		r.add(Warning, "completion", "the final marking was not reached within the explored states")
	default:
		r.add(Error, "completion", "the final marking is unreachable")
	}

	// Dead transitions are only a complete verdict when the whole state
	// space was seen.
	if r.Bounded && !r.Truncated {
		var dead []string
		for _, t := range net.Transitions {
			if !everEnabled[t] {
				dead = append(dead, t.Name)
			}
		}
		if len(dead) > 0 {
			sort.Strings(dead)
			r.DeadTransitions = dead
			r.add(Warning, "dead-transition", "transitions never enabled", dead...)
		}
	}
}

func enabled(marking petri.Marking, inputs []*petri.Place) bool {
	for _, p := range inputs {
		if marking[p] < 1 {
			return false
		}
	}
	return true
}

// stateKey folds a marking into a canonical key over place positions.
func stateKey(marking petri.Marking, pos map[*petri.Place]int) string {
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

func maxCount(m petri.Marking) int {
	max := 0
	for _, count := range m {
		if count > max {
			max = count
		}
	}
	return max
}

package mining

import (
	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/petri"
)

// HeuristicConfig tunes the edge filters of the heuristic miner. Higher
// thresholds produce simpler nets.
type HeuristicConfig struct {
	// DependencyThreshold is the minimum dependency score for a causal
	// edge to become a place.
	DependencyThreshold float64
	// LoopThreshold is the minimum score for a length-one loop to become
	// a loop place.
	LoopThreshold float64
}

// DefaultHeuristicConfig returns the usual starting thresholds.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{
		DependencyThreshold: 0.5,
		LoopThreshold:       0.5,
	}
}

// DependencyScore measures how strongly a causes b, in (-1, 1):
// (|a>b| - |b>a|) / (|a>b| + |b>a| + 1). Values near 1 mean a nearly
// always precedes b, values near -1 the reverse, values near 0 no clear
// direction.
func (fp *Footprint) DependencyScore(a, b string) float64 {
	ab := float64(fp.FollowsCount(a, b))
	ba := float64(fp.FollowsCount(b, a))
	if ab+ba == 0 {
		return 0
	}
	return (ab - ba) / (ab + ba + 1)
}

// LoopScore measures a length-one loop: |a>a| / (|a>a| + 1).
func (fp *Footprint) LoopScore(a string) float64 {
	count := float64(fp.FollowsCount(a, a))
	return count / (count + 1)
}

// Heuristic discovers a net from dependency scores instead of the raw
// footprint relations, which tolerates noise and length-one loops the
// alpha algorithm cannot handle. Each causal edge above the threshold
// becomes a place p_{a}_{b}; a self loop above the loop threshold
// becomes a loop_{a} place holding a token in both markings.
func Heuristic(log *eventlog.Log, config HeuristicConfig) (*petri.Net, petri.Marking, petri.Marking, error) {
	fp := NewFootprint(log)
	if len(fp.Activities) == 0 {
		return nil, nil, nil, ErrEmptyLog
	}

	net := petri.NewNet("heuristic")
	transitions := make(map[string]*petri.Transition, len(fp.Activities))
	for _, act := range fp.Activities {
		transitions[act] = net.AddTransition(act, act)
	}

	initial := make(petri.Marking)
	final := make(petri.Marking)
	for _, a := range fp.Activities {
		for _, b := range fp.Activities {
			if a == b {
				continue
			}
			if fp.DependencyScore(a, b) >= config.DependencyThreshold {
				p := net.AddPlace("p_" + a + "_" + b)
				arc(net, transitions[a], p)
				arc(net, p, transitions[b])
			}
		}
		if fp.LoopScore(a) >= config.LoopThreshold {
			p := net.AddPlace("loop_" + a)
			arc(net, transitions[a], p)
			arc(net, p, transitions[a])
			initial[p] = 1
			final[p] = 1
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
	initial[source] = 1
	final[sink] = 1

	return net, initial, final, nil
}

package search

import "github.com/netweave-xyz/go-netweave/petri"

// Bounds caps local connectivity during expansion. The rules can stack
// arcs onto one element without limit; the caps keep the frontier
// finite around realistic process models.
type Bounds struct {
	MaxPlaceIn       int
	MaxTransitionOut int
}

// DefaultBounds allows fan-in and fan-out up to four.
func DefaultBounds() Bounds {
	return Bounds{MaxPlaceIn: 4, MaxTransitionOut: 4}
}

// valid reports whether a candidate can still be rewritten into the
// target. The rules only ever add elements, so a candidate exceeding
// any of the target's element counts is unreachable, as is one with
// more source or sink places than the target.
func valid(candidate, target *petri.Net, b Bounds) bool {
	if len(candidate.Places) > len(target.Places) ||
		len(candidate.Transitions) > len(target.Transitions) ||
		len(candidate.Arcs) > len(target.Arcs) {
		return false
	}
	if len(candidate.SourcePlaces()) > len(target.SourcePlaces()) ||
		len(candidate.SinkPlaces()) > len(target.SinkPlaces()) {
		return false
	}
	for _, p := range candidate.Places {
		if len(candidate.InArcs(p)) > b.MaxPlaceIn {
			return false
		}
	}
	for _, t := range candidate.Transitions {
		if len(candidate.OutArcs(t)) > b.MaxTransitionOut {
			return false
		}
	}
	return true
}

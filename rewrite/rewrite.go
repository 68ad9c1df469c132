// Package rewrite implements the four local refinement rules used to
// grow an interface-pattern subnet toward an agent's discovered net:
// place duplication (P1), transition duplication (P2), local silent
// transition introduction (P3), and place split (P4).
//
// Every rule mutates the net it is given; callers hand over a fresh
// deep copy per application. Targets are located by name, never by
// element identity, because names are the only identity that survives
// a deep copy. Only the forward (refining) direction exists; the
// abstracting inverse is deliberately not part of the interface.
package rewrite

import (
	"errors"

	"github.com/netweave-xyz/go-netweave/petri"
)

// ErrElementNotFound reports a rule applied to a name that does not
// exist in the net, which means the caller passed a stale reference.
var ErrElementNotFound = errors.New("target element not found in net")

// Rule is one local rewrite step. Kind declares which element kind the
// rule targets so that a search can pair rules with candidate elements.
type Rule interface {
	// Name identifies the rule in paths and diagnostics (P1..P4).
	Name() string
	// Kind is the element kind Refine expects.
	Kind() petri.NodeKind
	// Refine applies the rule to the named element inside net,
	// mutating net in place.
	Refine(net *petri.Net, element string) error
}

// All returns the standard rule set in canonical order.
func All() []Rule {
	return []Rule{
		PlaceDuplication{},
		TransitionDuplication{},
		LocalTransition{},
		PlaceSplit{},
	}
}

package rewrite

import (
	"fmt"

	"github.com/netweave-xyz/go-netweave/petri"
)

// PlaceDuplication (P1) adds a sibling place carrying the same name,
// with every incoming and outgoing arc of the original copied onto it.
// The original keeps all of its arcs; the two places end up with
// identical connectivity. A source place therefore yields a source
// sibling, so derived markings mark both.
type PlaceDuplication struct{}

// Name returns "P1".
func (PlaceDuplication) Name() string { return "P1" }

// Kind returns petri.PlaceNode.
func (PlaceDuplication) Kind() petri.NodeKind { return petri.PlaceNode }

// Refine duplicates the named place.
func (PlaceDuplication) Refine(net *petri.Net, element string) error {
	p, ok := net.PlaceByName(element)
	if !ok {
		return fmt.Errorf("place duplication of %q: %w", element, ErrElementNotFound)
	}
	in := net.InArcs(p)
	out := net.OutArcs(p)
	dup := net.AddPlace(p.Name)
	for _, a := range in {
		if _, err := net.AddArc(a.Source, dup); err != nil {
			return err
		}
	}
	for _, a := range out {
		if _, err := net.AddArc(dup, a.Target); err != nil {
			return err
		}
	}
	return nil
}

// TransitionDuplication (P2) adds a sibling transition with the same
// name and the same label, copying all arcs. Duplicates sharing a name
// are what the merge engine later folds back together as synchronous
// joint actions, so the name must be preserved exactly.
type TransitionDuplication struct{}

// Name returns "P2".
func (TransitionDuplication) Name() string { return "P2" }

// Kind returns petri.TransitionNode.
func (TransitionDuplication) Kind() petri.NodeKind { return petri.TransitionNode }

// Refine duplicates the named transition.
func (TransitionDuplication) Refine(net *petri.Net, element string) error {
	t, ok := net.TransitionByName(element)
	if !ok {
		return fmt.Errorf("transition duplication of %q: %w", element, ErrElementNotFound)
	}
	in := net.InArcs(t)
	out := net.OutArcs(t)
	dup := net.AddTransition(t.Name, t.Label)
	for _, a := range in {
		if _, err := net.AddArc(a.Source, dup); err != nil {
			return err
		}
	}
	for _, a := range out {
		if _, err := net.AddArc(dup, a.Target); err != nil {
			return err
		}
	}
	return nil
}

// LocalTransition (P3) models an internal silent step after a place:
// a new stage place (same name) is added behind a new unlabeled
// transition, p -> t -> p', and the original place's outgoing arcs move
// onto the new stage. The original keeps its incoming arcs, the stage
// inherits the downstream connectivity.
type LocalTransition struct{}

// Name returns "P3".
func (LocalTransition) Name() string { return "P3" }

// Kind returns petri.PlaceNode.
func (LocalTransition) Kind() petri.NodeKind { return petri.PlaceNode }

// Refine introduces a silent transition behind the named place.
func (LocalTransition) Refine(net *petri.Net, element string) error {
	p, ok := net.PlaceByName(element)
	if !ok {
		return fmt.Errorf("local transition at %q: %w", element, ErrElementNotFound)
	}
	out := net.OutArcs(p)

	stage := net.AddPlace(p.Name)
	silent := net.AddTransition("t", "")
	if _, err := net.AddArc(p, silent); err != nil {
		return err
	}
	if _, err := net.AddArc(silent, stage); err != nil {
		return err
	}
	for _, a := range out {
		if _, err := net.AddArc(stage, a.Target); err != nil {
			return err
		}
		if err := net.RemoveArc(p, a.Target); err != nil {
			return err
		}
	}
	return nil
}

// PlaceSplit (P4) splits a place with more than one incoming arc into
// two same-named places: the first half of the incoming arcs (by
// position) stays, the rest are redirected to the new place, and the
// new place receives a copy of every outgoing arc, so both halves share
// the original downstream connectivity. Applying it to a place with at
// most one incoming arc leaves the net unchanged.
type PlaceSplit struct{}

// Name returns "P4".
func (PlaceSplit) Name() string { return "P4" }

// Kind returns petri.PlaceNode.
func (PlaceSplit) Kind() petri.NodeKind { return petri.PlaceNode }

// Refine splits the named place's incoming arcs.
func (PlaceSplit) Refine(net *petri.Net, element string) error {
	p, ok := net.PlaceByName(element)
	if !ok {
		return fmt.Errorf("place split of %q: %w", element, ErrElementNotFound)
	}
	in := net.InArcs(p)
	if len(in) <= 1 {
		return nil
	}
	out := net.OutArcs(p)

	split := net.AddPlace(p.Name)
	keep := (len(in) + 1) / 2
	for _, a := range in[keep:] {
		if _, err := net.AddArc(a.Source, split); err != nil {
			return err
		}
		if err := net.RemoveArc(a.Source, p); err != nil {
			return err
		}
	}
	for _, a := range out {
		if _, err := net.AddArc(split, a.Target); err != nil {
			return err
		}
	}
	return nil
}

// Package petri implements the Petri net model shared by every component
// of the module. A net is a labelled directed bipartite multigraph:
// Places hold tokens, Transitions consume and produce them, and Arcs
// connect the two kinds. Element names are the stable identity used
// across deep copies; sibling elements sharing a name are legal, so the
// net stores slices in insertion order rather than name-keyed maps.
package petri

import (
	"errors"
	"fmt"
)

// Structural operation errors.
var (
	// ErrNotMember reports an operation on an element that does not
	// belong to the net.
	ErrNotMember = errors.New("element is not a member of the net")
	// ErrSameKind reports an arc whose endpoints are both places or
	// both transitions.
	ErrSameKind = errors.New("arc endpoints must be a place and a transition")
	// ErrNilNode reports an arc endpoint that is nil.
	ErrNilNode = errors.New("arc endpoint is nil")
)

// NodeKind distinguishes the two element kinds of the bipartite graph.
type NodeKind int

const (
	PlaceNode NodeKind = iota
	TransitionNode
)

// String returns "place" or "transition".
func (k NodeKind) String() string {
	if k == PlaceNode {
		return "place"
	}
	return "transition"
}

// Node is either a *Place or a *Transition.
type Node interface {
	NodeName() string
	NodeKind() NodeKind
}

// Place represents a state in the net that can hold tokens.
// Properties tag roles assigned by merging (channel, sync).
type Place struct {
	Name       string
	Properties map[string]string
}

// NodeName returns the place name.
func (p *Place) NodeName() string { return p.Name }

// NodeKind returns PlaceNode.
func (p *Place) NodeKind() NodeKind { return PlaceNode }

// SetProperty sets a property key, allocating the map on first use.
func (p *Place) SetProperty(key, value string) {
	if p.Properties == nil {
		p.Properties = make(map[string]string)
	}
	p.Properties[key] = value
}

// Property reads a property key.
func (p *Place) Property(key string) (string, bool) {
	v, ok := p.Properties[key]
	return v, ok
}

// Transition represents an event. Label carries the interaction action
// used for matching across agent nets (for example "a!" or "a?"); an
// empty label marks a silent, structural transition.
type Transition struct {
	Name       string
	Label      string
	Properties map[string]string
}

// NodeName returns the transition name.
func (t *Transition) NodeName() string { return t.Name }

// NodeKind returns TransitionNode.
func (t *Transition) NodeKind() NodeKind { return TransitionNode }

// Silent reports whether the transition carries no action label.
func (t *Transition) Silent() bool { return t.Label == "" }

// SetProperty sets a property key, allocating the map on first use.
func (t *Transition) SetProperty(key, value string) {
	if t.Properties == nil {
		t.Properties = make(map[string]string)
	}
	t.Properties[key] = value
}

// Property reads a property key.
func (t *Transition) Property(key string) (string, bool) {
	v, ok := t.Properties[key]
	return v, ok
}

// Arc is a directed connection between a place and a transition.
// Endpoints are element references, not names: after rewriting or
// merging, several elements may share one name.
type Arc struct {
	Source Node
	Target Node
}

// Net is a labelled directed bipartite multigraph.
type Net struct {
	Name        string
	Places      []*Place
	Transitions []*Transition
	Arcs        []*Arc
}

// NewNet creates an empty net.
func NewNet(name string) *Net {
	return &Net{Name: name}
}

// AddPlace appends a new place. Names are not required to be unique;
// rewrites and merges deliberately create same-name siblings.
func (n *Net) AddPlace(name string) *Place {
	p := &Place{Name: name}
	n.Places = append(n.Places, p)
	return p
}

// AddTransition appends a new transition with the given action label.
func (n *Net) AddTransition(name, label string) *Transition {
	t := &Transition{Name: name, Label: label}
	n.Transitions = append(n.Transitions, t)
	return t
}

// AddArc connects source to target. Both endpoints must already be
// members of the net and must be of opposite kinds. Re-adding an
// existing (source, target) pair returns the existing arc: multiple
// arcs between the same ordered pair are a single logical arc.
func (n *Net) AddArc(source, target Node) (*Arc, error) {
	if source == nil || target == nil {
		return nil, ErrNilNode
	}
	if source.NodeKind() == target.NodeKind() {
		return nil, fmt.Errorf("add arc %s -> %s: %w", source.NodeName(), target.NodeName(), ErrSameKind)
	}
	if !n.member(source) {
		return nil, fmt.Errorf("add arc: source %s %q: %w", source.NodeKind(), source.NodeName(), ErrNotMember)
	}
	if !n.member(target) {
		return nil, fmt.Errorf("add arc: target %s %q: %w", target.NodeKind(), target.NodeName(), ErrNotMember)
	}
	if a := n.findArc(source, target); a != nil {
		return a, nil
	}
	a := &Arc{Source: source, Target: target}
	n.Arcs = append(n.Arcs, a)
	return a, nil
}

// HasArc reports whether an arc from source to target exists.
func (n *Net) HasArc(source, target Node) bool {
	return n.findArc(source, target) != nil
}

func (n *Net) findArc(source, target Node) *Arc {
	for _, a := range n.Arcs {
		if a.Source == source && a.Target == target {
			return a
		}
	}
	return nil
}

// RemoveArc deletes the arc from source to target.
func (n *Net) RemoveArc(source, target Node) error {
	for i, a := range n.Arcs {
		if a.Source == source && a.Target == target {
			n.Arcs = append(n.Arcs[:i], n.Arcs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove arc %s -> %s: %w", nodeName(source), nodeName(target), ErrNotMember)
}

// RemovePlace deletes the place and every arc incident to it.
func (n *Net) RemovePlace(p *Place) error {
	for i, candidate := range n.Places {
		if candidate == p {
			n.Places = append(n.Places[:i], n.Places[i+1:]...)
			n.removeIncidentArcs(p)
			return nil
		}
	}
	return fmt.Errorf("remove place %q: %w", nodeName(p), ErrNotMember)
}

// RemoveTransition deletes the transition and every arc incident to it.
func (n *Net) RemoveTransition(t *Transition) error {
	for i, candidate := range n.Transitions {
		if candidate == t {
			n.Transitions = append(n.Transitions[:i], n.Transitions[i+1:]...)
			n.removeIncidentArcs(t)
			return nil
		}
	}
	return fmt.Errorf("remove transition %q: %w", nodeName(t), ErrNotMember)
}

func (n *Net) removeIncidentArcs(node Node) {
	kept := n.Arcs[:0]
	for _, a := range n.Arcs {
		if a.Source != node && a.Target != node {
			kept = append(kept, a)
		}
	}
	n.Arcs = kept
}

func (n *Net) member(node Node) bool {
	switch v := node.(type) {
	case *Place:
		for _, p := range n.Places {
			if p == v {
				return true
			}
		}
	case *Transition:
		for _, t := range n.Transitions {
			if t == v {
				return true
			}
		}
	}
	return false
}

func nodeName(node Node) string {
	if node == nil {
		return "<nil>"
	}
	return node.NodeName()
}

// PlaceByName returns the first place with the given name in insertion
// order. Lookups across deep copies must go through names: element
// pointers are only meaningful within one net instance.
func (n *Net) PlaceByName(name string) (*Place, bool) {
	for _, p := range n.Places {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// TransitionByName returns the first transition with the given name in
// insertion order.
func (n *Net) TransitionByName(name string) (*Transition, bool) {
	for _, t := range n.Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// InArcs returns the arcs leading into node, in insertion order.
func (n *Net) InArcs(node Node) []*Arc {
	var result []*Arc
	for _, a := range n.Arcs {
		if a.Target == node {
			result = append(result, a)
		}
	}
	return result
}

// OutArcs returns the arcs leading out of node, in insertion order.
func (n *Net) OutArcs(node Node) []*Arc {
	var result []*Arc
	for _, a := range n.Arcs {
		if a.Source == node {
			result = append(result, a)
		}
	}
	return result
}

// SourcePlaces returns the places with no incoming arcs.
func (n *Net) SourcePlaces() []*Place {
	hasIn := make(map[Node]bool, len(n.Places))
	for _, a := range n.Arcs {
		hasIn[a.Target] = true
	}
	var result []*Place
	for _, p := range n.Places {
		if !hasIn[p] {
			result = append(result, p)
		}
	}
	return result
}

// SinkPlaces returns the places with no outgoing arcs.
func (n *Net) SinkPlaces() []*Place {
	hasOut := make(map[Node]bool, len(n.Places))
	for _, a := range n.Arcs {
		hasOut[a.Source] = true
	}
	var result []*Place
	for _, p := range n.Places {
		if !hasOut[p] {
			result = append(result, p)
		}
	}
	return result
}

// Copy returns an independent deep copy: no place, transition, or arc
// object is shared with the original. Search branches rely on this to
// rewrite their own copies without interference.
func (n *Net) Copy() *Net {
	out := &Net{
		Name:        n.Name,
		Places:      make([]*Place, 0, len(n.Places)),
		Transitions: make([]*Transition, 0, len(n.Transitions)),
		Arcs:        make([]*Arc, 0, len(n.Arcs)),
	}
	clone := make(map[Node]Node, len(n.Places)+len(n.Transitions))
	for _, p := range n.Places {
		cp := &Place{Name: p.Name, Properties: copyProperties(p.Properties)}
		out.Places = append(out.Places, cp)
		clone[p] = cp
	}
	for _, t := range n.Transitions {
		ct := &Transition{Name: t.Name, Label: t.Label, Properties: copyProperties(t.Properties)}
		out.Transitions = append(out.Transitions, ct)
		clone[t] = ct
	}
	for _, a := range n.Arcs {
		out.Arcs = append(out.Arcs, &Arc{Source: clone[a.Source], Target: clone[a.Target]})
	}
	return out
}

func copyProperties(props map[string]string) map[string]string {
	if props == nil {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

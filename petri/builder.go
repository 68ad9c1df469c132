package petri

import "fmt"

// Builder provides a fluent API for constructing nets in patterns,
// miners, and tests. Arc endpoints are resolved by name when the arc is
// declared; the first failing step is reported by Done.
//
// Example:
//
//	net, err := petri.Build("handoff").
//	    Place("start").
//	    Transition("send", "a!").
//	    Place("sent").
//	    Flow("start", "send", "sent").
//	    Done()
type Builder struct {
	net *Net
	err error
}

// Build creates a new Builder for the named net.
func Build(name string) *Builder {
	return &Builder{net: NewNet(name)}
}

// Place adds a place.
func (b *Builder) Place(name string) *Builder {
	if b.err == nil {
		b.net.AddPlace(name)
	}
	return b
}

// Transition adds a transition with an action label.
func (b *Builder) Transition(name, label string) *Builder {
	if b.err == nil {
		b.net.AddTransition(name, label)
	}
	return b
}

// Silent adds an unlabeled structural transition.
func (b *Builder) Silent(name string) *Builder {
	return b.Transition(name, "")
}

// Arc connects two previously declared elements by name. A place named
// source feeding a transition named target is tried first, then the
// transition-to-place direction.
func (b *Builder) Arc(source, target string) *Builder {
	if b.err != nil {
		return b
	}
	if p, ok := b.net.PlaceByName(source); ok {
		if t, ok := b.net.TransitionByName(target); ok {
			_, b.err = b.net.AddArc(p, t)
			return b
		}
	}
	if t, ok := b.net.TransitionByName(source); ok {
		if p, ok := b.net.PlaceByName(target); ok {
			_, b.err = b.net.AddArc(t, p)
			return b
		}
	}
	b.err = fmt.Errorf("build arc %s -> %s: %w", source, target, ErrNotMember)
	return b
}

// Flow declares the common place -> transition -> place pattern.
func (b *Builder) Flow(fromPlace, transition, toPlace string) *Builder {
	return b.Arc(fromPlace, transition).Arc(transition, toPlace)
}

// Chain declares a sequential chain place, transition, place, ... where
// every element is created and wired in order. The element count must
// be odd so the chain starts and ends on a place.
func (b *Builder) Chain(elements ...string) *Builder {
	if b.err != nil {
		return b
	}
	if len(elements) < 3 || len(elements)%2 == 0 {
		b.err = fmt.Errorf("build chain: need place, transition, place, ... got %d elements", len(elements))
		return b
	}
	b.Place(elements[0])
	for i := 1; i < len(elements); i += 2 {
		b.Transition(elements[i], elements[i])
		b.Place(elements[i+1])
		b.Flow(elements[i-1], elements[i], elements[i+1])
	}
	return b
}

// Done returns the constructed net and the first error encountered.
func (b *Builder) Done() (*Net, error) {
	return b.net, b.err
}

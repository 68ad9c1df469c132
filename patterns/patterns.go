// Package patterns holds the interface-pattern catalog: named
// interaction topologies that agents of a multi-agent system are
// checked against. A pattern exposes one local subnet per agent slot,
// the shape that agent's discovered behavior must refine, and the
// composite net wiring all slots together through channel places.
package patterns

import (
	"errors"
	"fmt"
	"sort"

	"github.com/netweave-xyz/go-netweave/petri"
)

var (
	// ErrUnknownPattern is returned by Lookup for unregistered names.
	ErrUnknownPattern = errors.New("patterns: unknown pattern")
	// ErrUnknownAgent is returned by Pattern.Net for a slot the
	// pattern does not define.
	ErrUnknownAgent = errors.New("patterns: unknown agent")
)

// Pattern is a named multi-agent interaction topology.
type Pattern interface {
	Name() string
	// Agents lists the agent slots in positional order.
	Agents() []string
	// Net returns the local subnet one agent slot must realize,
	// with its structural initial and final markings.
	Net(agent string) (*petri.Net, petri.Marking, petri.Marking, error)
	// Composite returns the whole pattern including channel places.
	Composite() (*petri.Net, petri.Marking, petri.Marking)
}

// registry maps pattern names to implementations.
var registry = map[string]Pattern{
	"IP1": PointToPoint{},
}

// Register adds a pattern to the catalog, replacing any previous entry
// with the same name. Meant for init-time use; the registry is not
// synchronized.
func Register(p Pattern) { registry[p.Name()] = p }

// Lookup finds a pattern by name.
func Lookup(name string) (Pattern, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
	}
	return p, nil
}

// List returns the registered pattern names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

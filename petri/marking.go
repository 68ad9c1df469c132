package petri

import (
	"fmt"
	"sort"
	"strings"
)

// Marking is a multiset of tokens over the places of one net. It is
// keyed by element identity rather than name because rewrites and
// merges produce sibling places sharing a name.
type Marking map[*Place]int

// Copy returns an independent copy of the marking.
func (m Marking) Copy() Marking {
	out := make(Marking, len(m))
	for p, count := range m {
		out[p] = count
	}
	return out
}

// Equals reports whether two markings assign the same counts to the
// same places. Zero counts are treated as absent.
func (m Marking) Equals(other Marking) bool {
	for p, count := range m {
		if count != 0 && other[p] != count {
			return false
		}
	}
	for p, count := range other {
		if count != 0 && m[p] != count {
			return false
		}
	}
	return true
}

// Total returns the total token count.
func (m Marking) Total() int {
	sum := 0
	for _, count := range m {
		sum += count
	}
	return sum
}

// Names aggregates the marking by place name. Sibling places sharing a
// name contribute to one entry; use this for display and serialization
// only, never for identity.
func (m Marking) Names() map[string]int {
	out := make(map[string]int, len(m))
	for p, count := range m {
		if count != 0 {
			out[p.Name] += count
		}
	}
	return out
}

// Merge returns a new marking holding the multiset sum of m and other.
func (m Marking) Merge(other Marking) Marking {
	out := m.Copy()
	for p, count := range other {
		out[p] += count
	}
	return out
}

// String renders the marking sorted by place name, e.g. {p1:1 p2:1}.
func (m Marking) String() string {
	names := m.Names()
	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", name, names[name])
	}
	b.WriteByte('}')
	return b.String()
}

// DeriveMarkings computes the structural markings of the net: every
// place with no incoming arc holds one initial token, every place with
// no outgoing arc holds one final token. Markings are re-derived after
// any transformation or merge rather than carried through them.
func (n *Net) DeriveMarkings() (initial, final Marking) {
	initial = make(Marking)
	for _, p := range n.SourcePlaces() {
		initial[p] = 1
	}
	final = make(Marking)
	for _, p := range n.SinkPlaces() {
		final[p] = 1
	}
	return initial, final
}

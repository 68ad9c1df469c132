package search

import (
	"github.com/holiman/uint256"

	"github.com/netweave-xyz/go-netweave/canon"
	"github.com/netweave-xyz/go-netweave/petri"
)

// visited tracks the canonical fingerprint of every net the search has
// generated, so structurally repeated candidates are expanded once.
// Same-name siblings can make two distinct structures share a
// fingerprint; that only prunes a redundant branch, never admits a
// wrong goal, since the goal test is isomorphism.
type visited struct {
	seen map[uint256.Int]struct{}
}

func newVisited() *visited {
	return &visited{seen: make(map[uint256.Int]struct{})}
}

// add records the net's fingerprint, reporting whether it was new.
func (v *visited) add(n *petri.Net) bool {
	fp := canon.Fingerprint(n)
	if _, ok := v.seen[fp]; ok {
		return false
	}
	v.seen[fp] = struct{}{}
	return true
}

func (v *visited) size() int { return len(v.seen) }

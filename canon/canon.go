// Package canon produces deterministic structural fingerprints of nets.
// The canonical form sorts element names and arc pairs so that two nets
// built in different insertion orders, or separated by a deep copy,
// fingerprint identically. The fingerprint is a set-membership key for
// search deduplication: it is stricter than isomorphism (names matter)
// and cheap to compute, which is exactly what a visited set needs.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/holiman/uint256"

	"github.com/netweave-xyz/go-netweave/petri"
)

// representation fixes the key order of the canonical JSON document.
type representation struct {
	Arcs        [][2]string `json:"arcs"`
	Places      []string    `json:"places"`
	Transitions []string    `json:"transitions"`
}

// Canonical returns the canonical string form of the net: sorted place
// names, sorted transition names, and arcs as sorted (source, target)
// name pairs, serialized as compact JSON with fixed key order.
func Canonical(n *petri.Net) string {
	rep := representation{
		Arcs:        make([][2]string, 0, len(n.Arcs)),
		Places:      make([]string, 0, len(n.Places)),
		Transitions: make([]string, 0, len(n.Transitions)),
	}
	for _, p := range n.Places {
		rep.Places = append(rep.Places, p.Name)
	}
	for _, t := range n.Transitions {
		rep.Transitions = append(rep.Transitions, t.Name)
	}
	for _, a := range n.Arcs {
		rep.Arcs = append(rep.Arcs, [2]string{a.Source.NodeName(), a.Target.NodeName()})
	}
	sort.Strings(rep.Places)
	sort.Strings(rep.Transitions)
	sort.Slice(rep.Arcs, func(i, j int) bool {
		if rep.Arcs[i][0] != rep.Arcs[j][0] {
			return rep.Arcs[i][0] < rep.Arcs[j][0]
		}
		return rep.Arcs[i][1] < rep.Arcs[j][1]
	})

	data, err := json.Marshal(rep)
	if err != nil {
		// Marshaling strings and string arrays cannot fail.
		panic(err)
	}
	return string(data)
}

// Digest returns the SHA-256 of the canonical form as lowercase hex.
func Digest(n *petri.Net) string {
	sum := sha256.Sum256([]byte(Canonical(n)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the SHA-256 of the canonical form as a comparable
// 256-bit value, usable directly as a map key in visited sets.
func Fingerprint(n *petri.Net) uint256.Int {
	sum := sha256.Sum256([]byte(Canonical(n)))
	var f uint256.Int
	f.SetBytes32(sum[:])
	return f
}

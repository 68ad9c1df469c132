// Package iso decides structural equivalence of Petri nets. Each net is
// viewed as a directed graph whose nodes are tagged place or transition;
// two nets are isomorphic when a bijection between their nodes preserves
// both the arcs and the kind tags. Names and labels play no part.
//
// The check is the refinement search's goal test. Worst-case cost is
// super-polynomial, so cheap rejects run first: element and arc counts,
// then the multiset of degree signatures, and only then VF2-style
// backtracking over signature-compatible candidates.
package iso

import (
	"sort"

	"github.com/netweave-xyz/go-netweave/petri"
)

// signature classifies a node by kind and in/out degree. Nodes can only
// map onto nodes with an identical signature.
type signature struct {
	kind petri.NodeKind
	in   int
	out  int
}

// graph is the kind-tagged digraph form of a net.
type graph struct {
	kind  []petri.NodeKind
	succ  [][]int
	pred  [][]int
	sig   []signature
	bySig map[signature][]int
	edges map[[2]int]bool
}

func build(n *petri.Net) *graph {
	size := len(n.Places) + len(n.Transitions)
	g := &graph{
		kind:  make([]petri.NodeKind, size),
		succ:  make([][]int, size),
		pred:  make([][]int, size),
		sig:   make([]signature, size),
		bySig: make(map[signature][]int),
		edges: make(map[[2]int]bool, len(n.Arcs)),
	}
	index := make(map[petri.Node]int, size)
	i := 0
	for _, p := range n.Places {
		g.kind[i] = petri.PlaceNode
		index[p] = i
		i++
	}
	for _, t := range n.Transitions {
		g.kind[i] = petri.TransitionNode
		index[t] = i
		i++
	}
	for _, a := range n.Arcs {
		s, t := index[a.Source], index[a.Target]
		g.succ[s] = append(g.succ[s], t)
		g.pred[t] = append(g.pred[t], s)
		g.edges[[2]int{s, t}] = true
	}
	for v := range g.sig {
		g.sig[v] = signature{kind: g.kind[v], in: len(g.pred[v]), out: len(g.succ[v])}
		g.bySig[g.sig[v]] = append(g.bySig[g.sig[v]], v)
	}
	return g
}

// Isomorphic reports whether the two nets are structurally equivalent.
func Isomorphic(a, b *petri.Net) bool {
	if len(a.Places) != len(b.Places) ||
		len(a.Transitions) != len(b.Transitions) ||
		len(a.Arcs) != len(b.Arcs) {
		return false
	}
	ga, gb := build(a), build(b)
	if !sameSignatures(ga, gb) {
		return false
	}
	return match(ga, gb)
}

// sameSignatures compares the degree-signature multisets of both graphs.
func sameSignatures(ga, gb *graph) bool {
	if len(ga.bySig) != len(gb.bySig) {
		return false
	}
	for sig, nodes := range ga.bySig {
		if len(gb.bySig[sig]) != len(nodes) {
			return false
		}
	}
	return true
}

// match runs backtracking over signature-compatible candidate pairs.
func match(ga, gb *graph) bool {
	n := len(ga.kind)
	if n == 0 {
		return true
	}

	order := matchOrder(ga)
	core := make([]int, n) // node of ga -> node of gb
	inv := make([]int, n)  // node of gb -> node of ga
	for i := range core {
		core[i] = -1
		inv[i] = -1
	}

	var extend func(depth int) bool
	extend = func(depth int) bool {
		if depth == n {
			return true
		}
		u := order[depth]
		for _, v := range gb.bySig[ga.sig[u]] {
			if inv[v] != -1 || !feasible(ga, gb, core, inv, u, v) {
				continue
			}
			core[u] = v
			inv[v] = u
			if extend(depth + 1) {
				return true
			}
			core[u] = -1
			inv[v] = -1
		}
		return false
	}
	return extend(0)
}

// matchOrder visits rare signature classes first and, within a class,
// high-degree nodes first, which keeps the branching factor down.
func matchOrder(g *graph) []int {
	order := make([]int, len(g.kind))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		ca, cb := len(g.bySig[g.sig[a]]), len(g.bySig[g.sig[b]])
		if ca != cb {
			return ca < cb
		}
		da := g.sig[a].in + g.sig[a].out
		db := g.sig[b].in + g.sig[b].out
		if da != db {
			return da > db
		}
		return a < b
	})
	return order
}

// feasible checks that tentatively mapping u onto v keeps every arc
// between already-matched nodes mirrored in both directions.
func feasible(ga, gb *graph, core, inv []int, u, v int) bool {
	for _, w := range ga.succ[u] {
		if core[w] != -1 && !gb.edges[[2]int{v, core[w]}] {
			return false
		}
	}
	for _, w := range ga.pred[u] {
		if core[w] != -1 && !gb.edges[[2]int{core[w], v}] {
			return false
		}
	}
	for _, x := range gb.succ[v] {
		if inv[x] != -1 && !ga.edges[[2]int{u, inv[x]}] {
			return false
		}
	}
	for _, x := range gb.pred[v] {
		if inv[x] != -1 && !ga.edges[[2]int{inv[x], u}] {
			return false
		}
	}
	return true
}

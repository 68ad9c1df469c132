package petri

import "gonum.org/v1/gonum/mat"

// Incidence returns the place-by-transition incidence matrix: rows
// follow place insertion order, columns transition insertion order.
// An arc place->transition contributes -1 (consumption), an arc
// transition->place +1 (production); a self-loop nets to zero.
func (n *Net) Incidence() *mat.Dense {
	if len(n.Places) == 0 || len(n.Transitions) == 0 {
		return nil
	}
	rows := make(map[Node]int, len(n.Places))
	for i, p := range n.Places {
		rows[p] = i
	}
	cols := make(map[Node]int, len(n.Transitions))
	for j, t := range n.Transitions {
		cols[t] = j
	}
	m := mat.NewDense(len(n.Places), len(n.Transitions), nil)
	for _, a := range n.Arcs {
		if a.Source.NodeKind() == PlaceNode {
			i, j := rows[a.Source], cols[a.Target]
			m.Set(i, j, m.At(i, j)-1)
		} else {
			i, j := rows[a.Target], cols[a.Source]
			m.Set(i, j, m.At(i, j)+1)
		}
	}
	return m
}

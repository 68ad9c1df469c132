package search

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/netweave-xyz/go-netweave/petri"
)

// priorityOf scores a candidate for the guided frontier. Lower is
// dequeued earlier: structurally closer nets score lower, and paths
// that mix rules and target elements score lower than paths that
// hammer one spot. Best-effort guidance, not an admissible bound.
func (s *Search) priorityOf(n *petri.Net, path []Step) float64 {
	rules := make([]string, len(path))
	elems := make([]string, len(path))
	for i, step := range path {
		rules[i] = step.Rule.Name()
		elems[i] = step.Element
	}
	return math.Log2(float64(structuralDiff(n, s.end))) - diversity(rules) - diversity(elems)
}

// diversity is the Shannon entropy, in bits, of the value multiset.
func diversity(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	dist := make([]float64, 0, len(counts))
	for _, c := range counts {
		dist = append(dist, float64(c)/float64(len(values)))
	}
	return stat.Entropy(dist) / math.Ln2
}

// structuralDiff is the element-count distance between two nets.
// Isomorphic nets always have distance zero; the converse does not
// hold.
func structuralDiff(a, b *petri.Net) int {
	return abs(len(a.Places)-len(b.Places)) +
		abs(len(a.Transitions)-len(b.Transitions)) +
		abs(len(a.Arcs)-len(b.Arcs))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// frontier is the pending-state queue. The priority argument is
// ignored by the FIFO implementation.
type frontier interface {
	push(st *state, priority float64)
	pop() *state
	len() int
}

type fifoFrontier struct {
	q []*state
}

func (f *fifoFrontier) push(st *state, _ float64) { f.q = append(f.q, st) }

func (f *fifoFrontier) pop() *state {
	st := f.q[0]
	f.q = f.q[1:]
	return st
}

func (f *fifoFrontier) len() int { return len(f.q) }

// heapFrontier orders states by priority, breaking ties by enqueue
// sequence so the order is total and insertion-stable.
type heapFrontier struct {
	q   priorityQueue
	seq uint64
}

func newHeapFrontier() *heapFrontier {
	return &heapFrontier{}
}

func (h *heapFrontier) push(st *state, priority float64) {
	h.seq++
	heap.Push(&h.q, &heapItem{st: st, priority: priority, seq: h.seq})
}

func (h *heapFrontier) pop() *state {
	return heap.Pop(&h.q).(*heapItem).st
}

func (h *heapFrontier) len() int { return h.q.Len() }

type heapItem struct {
	st       *state
	priority float64
	seq      uint64
}

type priorityQueue []*heapItem

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x any) { *q = append(*q, x.(*heapItem)) }

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Package search decides whether one Petri net can be rewritten into
// another through a sequence of local refinement rules. Candidates are
// explored breadth-first (optionally priority-guided), pruned by
// structural bounds against the target, and deduplicated by canonical
// fingerprint.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/netweave-xyz/go-netweave/iso"
	"github.com/netweave-xyz/go-netweave/petri"
	"github.com/netweave-xyz/go-netweave/rewrite"
)

// logEvery is the dequeue interval between progress log lines.
const logEvery = 1000

// Step is one applied rewrite: which rule, on which element name.
// Element names survive deep copies, so a path can be replayed on any
// copy of the starting net.
type Step struct {
	Rule    rewrite.Rule
	Element string
}

// String renders the step as rule(element).
func (s Step) String() string { return s.Rule.Name() + "(" + s.Element + ")" }

// Outcome classifies how a search run ended.
type Outcome int

const (
	// GoalFound means a rewrite sequence reaching the target was found.
	GoalFound Outcome = iota
	// Exhausted means every candidate within bounds was explored
	// without reaching the target. A legitimate negative answer.
	Exhausted
	// BudgetExceeded means the iteration budget ran out first.
	BudgetExceeded
	// Canceled means the context was canceled or its deadline passed.
	Canceled
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case GoalFound:
		return "goal-found"
	case Exhausted:
		return "exhausted"
	case BudgetExceeded:
		return "budget-exceeded"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Stats carries exploration metrics for a run.
type Stats struct {
	Iterations     int // states dequeued and expanded
	StatesExplored int // distinct fingerprints recorded
	Enqueued       int // states pushed onto the frontier
	Deduped        int // successors dropped as structurally seen
	Pruned         int // successors dropped by the validity bounds
	MaxQueue       int // frontier high-water mark
	Elapsed        time.Duration
}

// Result is the answer to a refinement question. Refined=false with a
// nil Path is a legitimate outcome, not an error. Closest is the
// lowest structural diff candidate encountered, kept on a best-effort
// basis so callers can inspect how near a failed search came.
type Result struct {
	Refined     bool
	Path        []Step
	Outcome     Outcome
	Stats       Stats
	Closest     *petri.Net
	ClosestDiff int
}

// Search asks whether begin can be rewritten into end.
type Search struct {
	begin    *petri.Net
	end      *petri.Net
	rules    []rewrite.Rule
	maxIter  int
	priority bool
	bounds   Bounds
	log      *zap.Logger
}

// Option configures a Search.
type Option func(*Search)

// WithRules replaces the default rule set.
func WithRules(rules ...rewrite.Rule) Option {
	return func(s *Search) { s.rules = rules }
}

// WithMaxIterations caps the number of expanded states. Zero means no
// cap; the context deadline is then the only brake.
func WithMaxIterations(n int) Option {
	return func(s *Search) { s.maxIter = n }
}

// WithPriority switches the frontier from FIFO to a min-heap ordered
// by the guidance heuristic. FIFO finds a shortest path; the heap
// usually finds some path sooner.
func WithPriority() Option {
	return func(s *Search) { s.priority = true }
}

// WithBounds replaces the default connectivity bounds.
func WithBounds(b Bounds) Option {
	return func(s *Search) { s.bounds = b }
}

// WithLogger sets the progress logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Search) { s.log = l }
}

// New builds a search from begin toward end. Both nets are copied, so
// the caller may keep mutating its own.
func New(begin, end *petri.Net, opts ...Option) *Search {
	s := &Search{
		begin:  begin.Copy(),
		end:    end.Copy(),
		rules:  rewrite.All(),
		bounds: DefaultBounds(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// state pairs a candidate net with the rewrite path that produced it.
type state struct {
	net  *petri.Net
	path []Step
}

// Run explores rewrite sequences until the target is reached, the
// space is exhausted, the budget runs out, or ctx expires. On
// cancellation the context error is returned alongside the partial
// Result.
func (s *Search) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	root := &state{net: s.begin.Copy()}
	if iso.Isomorphic(root.net, s.end) {
		res.Refined = true
		res.Path = []Step{}
		res.Outcome = GoalFound
		res.Closest = root.net
		res.Stats.StatesExplored = 1
		res.Stats.Elapsed = time.Since(start)
		return res, nil
	}

	seen := newVisited()
	seen.add(root.net)

	var q frontier = &fifoFrontier{}
	if s.priority {
		q = newHeapFrontier()
	}
	q.push(root, 0)
	res.Stats.Enqueued = 1
	res.Stats.MaxQueue = 1

	closest := root.net
	closestDiff := structuralDiff(root.net, s.end)

	finish := func(outcome Outcome) *Result {
		res.Outcome = outcome
		res.Closest = closest
		res.ClosestDiff = closestDiff
		res.Stats.StatesExplored = seen.size()
		res.Stats.Elapsed = time.Since(start)
		return res
	}

	for q.len() > 0 {
		if err := ctx.Err(); err != nil {
			return finish(Canceled), err
		}
		if s.maxIter > 0 && res.Stats.Iterations >= s.maxIter {
			return finish(BudgetExceeded), nil
		}
		res.Stats.Iterations++

		cur := q.pop()
		if res.Stats.Iterations%logEvery == 0 {
			s.log.Debug("search progress",
				zap.Int("iterations", res.Stats.Iterations),
				zap.Int("frontier", q.len()),
				zap.Int("closest_diff", closestDiff),
			)
		}

		for _, step := range s.moves(cur.net) {
			next := cur.net.Copy()
			if err := step.Rule.Refine(next, step.Element); err != nil {
				return nil, fmt.Errorf("refine %s: %w", step, err)
			}

			if !valid(next, s.end, s.bounds) {
				seen.add(next)
				res.Stats.Pruned++
				continue
			}
			if !seen.add(next) {
				res.Stats.Deduped++
				continue
			}

			path := make([]Step, len(cur.path)+1)
			copy(path, cur.path)
			path[len(cur.path)] = step

			if d := structuralDiff(next, s.end); d < closestDiff {
				closest, closestDiff = next, d
			}
			if iso.Isomorphic(next, s.end) {
				res.Refined = true
				res.Path = path
				closest, closestDiff = next, 0
				return finish(GoalFound), nil
			}

			var pr float64
			if s.priority {
				pr = s.priorityOf(next, path)
			}
			q.push(&state{net: next, path: path}, pr)
			res.Stats.Enqueued++
			if q.len() > res.Stats.MaxQueue {
				res.Stats.MaxQueue = q.len()
			}
		}
	}

	return finish(Exhausted), nil
}

// moves enumerates every applicable (rule, element) pair for one
// expansion: places first, then transitions, each in insertion order,
// each against every rule of the matching kind. Same-name siblings
// yield repeated moves whose successors collapse in the visited set.
func (s *Search) moves(n *petri.Net) []Step {
	steps := make([]Step, 0, 3*len(n.Places)+len(n.Transitions))
	for _, p := range n.Places {
		for _, r := range s.rules {
			if r.Kind() == petri.PlaceNode {
				steps = append(steps, Step{Rule: r, Element: p.Name})
			}
		}
	}
	for _, t := range n.Transitions {
		for _, r := range s.rules {
			if r.Kind() == petri.TransitionNode {
				steps = append(steps, Step{Rule: r, Element: t.Name})
			}
		}
	}
	return steps
}

// IsRefinement answers whether begin can be rewritten into end,
// returning the witnessing path when it can.
func IsRefinement(ctx context.Context, begin, end *petri.Net, opts ...Option) (bool, []Step, error) {
	res, err := New(begin, end, opts...).Run(ctx)
	if err != nil {
		return false, nil, err
	}
	return res.Refined, res.Path, nil
}

// Apply replays a rewrite path on a copy of net and returns the
// refined copy. The input net is not touched.
func Apply(net *petri.Net, path []Step) (*petri.Net, error) {
	out := net.Copy()
	for _, step := range path {
		if err := step.Rule.Refine(out, step.Element); err != nil {
			return nil, fmt.Errorf("apply %s: %w", step, err)
		}
	}
	return out, nil
}

// Package compose orchestrates compositional process discovery. An
// event log covering several interacting agents is split per agent,
// one net is discovered for each, every discovered net is checked as a
// refinement of its slot in an interface pattern, and the accepted
// nets are merged into a single multi-agent net.
//
// Agents whose behavior provably refines their slot contribute the
// discovered net to the merge; agents that fail the check keep the
// abstract pattern subnet, so the composition is always well formed.
package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netweave-xyz/go-netweave/canon"
	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/merge"
	"github.com/netweave-xyz/go-netweave/mining"
	"github.com/netweave-xyz/go-netweave/patterns"
	"github.com/netweave-xyz/go-netweave/petri"
	"github.com/netweave-xyz/go-netweave/search"
	"github.com/netweave-xyz/go-netweave/store"
)

var (
	// ErrNoPattern is returned by Run when no interface pattern was
	// configured.
	ErrNoPattern = errors.New("compose: no pattern configured")
	// ErrNoResources is returned when the log carries no resource
	// field, so no event can be attributed to an agent.
	ErrNoResources = errors.New("compose: log names no resources")
	// ErrTooManyResources is returned when the log names more
	// resources than the pattern has agent slots.
	ErrTooManyResources = errors.New("compose: more resources than agent slots")
)

// DefaultAgentTimeout bounds each per-agent refinement search unless
// WithAgentTimeout overrides it.
const DefaultAgentTimeout = 30 * time.Second

// Discoverer turns one agent's sublog into a net with its initial and
// final markings. Run treats it as a black box; any discovery
// technique qualifies.
type Discoverer interface {
	Discover(ctx context.Context, log *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error)
}

// DiscovererFunc adapts a plain function to the Discoverer interface.
type DiscovererFunc func(ctx context.Context, log *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error)

// Discover calls f.
func (f DiscovererFunc) Discover(ctx context.Context, log *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error) {
	return f(ctx, log)
}

// TimeoutPolicy decides what happens to an agent whose refinement
// search ran out of budget before reaching an answer.
type TimeoutPolicy int

const (
	// TimeoutRefined substitutes the discovered net as if the search
	// had succeeded, with an empty witness path. A composition is
	// always produced; the substitution is unverified and the run is
	// flagged degraded.
	TimeoutRefined TimeoutPolicy = iota
	// TimeoutUnrefined keeps the pattern subnet, as if the search had
	// answered no. The run is still flagged degraded.
	TimeoutUnrefined
)

// String returns "refined" or "unrefined".
func (p TimeoutPolicy) String() string {
	if p == TimeoutUnrefined {
		return "unrefined"
	}
	return "refined"
}

type options struct {
	pattern    patterns.Pattern
	discoverer Discoverer
	timeout    time.Duration
	policy     TimeoutPolicy
	searchOpts []search.Option
	store      store.Store
	threshold  float64
	log        *zap.Logger
}

// Option configures Run.
type Option func(*options)

// WithPattern sets the interface pattern the agents are checked
// against. Required.
func WithPattern(p patterns.Pattern) Option {
	return func(o *options) { o.pattern = p }
}

// WithDiscoverer replaces the default alpha miner.
func WithDiscoverer(d Discoverer) Option {
	return func(o *options) { o.discoverer = d }
}

// WithAgentTimeout bounds each agent's refinement search. Zero
// disables the bound.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTimeoutPolicy picks the fallback for agents whose search ran
// out of budget.
func WithTimeoutPolicy(p TimeoutPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithSearchOptions forwards options to every per-agent search.
func WithSearchOptions(opts ...search.Option) Option {
	return func(o *options) { o.searchOpts = opts }
}

// WithStore persists the run and all of its nets.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithThreshold sets the merge fuzzy-matching threshold.
func WithThreshold(f float64) Option {
	return func(o *options) { o.threshold = f }
}

// WithLogger sets the run logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) *options {
	o := &options{
		discoverer: DiscovererFunc(mining.Discoverer(mining.MethodAlpha)),
		timeout:    DefaultAgentTimeout,
		threshold:  0.7,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AgentResult reports how one pattern slot was resolved.
type AgentResult struct {
	Agent    string // pattern slot
	Resource string // log resource mapped onto the slot, empty when unobserved

	// Refined reports whether the discovered net replaced the slot's
	// pattern subnet in the merge.
	Refined bool
	// Degraded marks a budget expiry: the search gave no answer and
	// the timeout policy decided the substitution.
	Degraded bool

	Outcome search.Outcome
	Path    []search.Step
	Stats   search.Stats

	// Discovered is the miner's output with its markings, nil when no
	// resource mapped onto the slot.
	Discovered *petri.Net
	Initial    petri.Marking
	Final      petri.Marking
}

// Name returns the agent's log resource, or the slot name when the
// log never observed the slot.
func (a AgentResult) Name() string {
	if a.Resource != "" {
		return a.Resource
	}
	return a.Agent
}

// Result is one composed run.
type Result struct {
	RunID    uuid.UUID
	Pattern  string
	Agents   []AgentResult
	Net      *petri.Net
	Initial  petri.Marking
	Final    petri.Marking
	Channels []merge.Channel
	Synced   int
	// Degraded reports whether any agent fell back to the timeout
	// policy.
	Degraded bool
}

// Run splits the log by resource, discovers one net per agent, checks
// each against its pattern slot, and merges the per-agent nets into
// one multi-agent net. Resources map onto pattern slots positionally,
// in first-seen order; slots beyond the last resource keep their
// pattern subnet. When a store is configured the run and every net
// involved are persisted under a fresh run ID.
func Run(ctx context.Context, log *eventlog.Log, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	if o.pattern == nil {
		return nil, ErrNoPattern
	}
	if log == nil {
		return nil, ErrNoResources
	}
	resources := log.Resources()
	if len(resources) == 0 {
		return nil, ErrNoResources
	}
	slots := o.pattern.Agents()
	if len(resources) > len(slots) {
		return nil, fmt.Errorf("%w: log has %d, pattern %s has %d",
			ErrTooManyResources, len(resources), o.pattern.Name(), len(slots))
	}

	sublogs := log.SplitByResource()
	res := &Result{RunID: uuid.New(), Pattern: o.pattern.Name()}

	subnets := make([]*petri.Net, 0, len(slots))
	for i, slot := range slots {
		patNet, _, _, err := o.pattern.Net(slot)
		if err != nil {
			return nil, fmt.Errorf("compose: pattern %s: %w", o.pattern.Name(), err)
		}
		ar := AgentResult{Agent: slot}
		subnet := patNet

		if i < len(resources) {
			ar.Resource = resources[i]
			discovered, initial, final, err := o.discoverer.Discover(ctx, sublogs[ar.Resource])
			if err != nil {
				return nil, fmt.Errorf("compose: discover %s: %w", ar.Resource, err)
			}
			ar.Discovered, ar.Initial, ar.Final = discovered, initial, final

			sr, err := refine(ctx, o, patNet, discovered)
			if err != nil {
				return nil, fmt.Errorf("compose: refine %s against %s: %w", ar.Resource, slot, err)
			}
			ar.Outcome = sr.Outcome
			ar.Stats = sr.Stats
			switch {
			case sr.Refined:
				ar.Refined = true
				ar.Path = sr.Path
				subnet = discovered
				o.log.Info("agent refined",
					zap.String("agent", slot),
					zap.String("resource", ar.Resource),
					zap.Int("path", len(sr.Path)),
					zap.Int("iterations", sr.Stats.Iterations),
				)
			case sr.Outcome == search.Exhausted:
				o.log.Info("agent not refined",
					zap.String("agent", slot),
					zap.String("resource", ar.Resource),
					zap.Int("closest_diff", sr.ClosestDiff),
				)
			default:
				// The deadline or the iteration budget expired.
				ar.Degraded = true
				res.Degraded = true
				if o.policy == TimeoutRefined {
					ar.Refined = true
					ar.Path = []search.Step{}
					subnet = discovered
				}
				o.log.Warn("agent search budget expired",
					zap.String("agent", slot),
					zap.String("resource", ar.Resource),
					zap.Stringer("outcome", sr.Outcome),
					zap.Stringer("policy", o.policy),
				)
			}
		}

		subnet.Name = ar.Name()
		subnets = append(subnets, subnet)
		res.Agents = append(res.Agents, ar)
	}

	mr, err := merge.Nets(subnets,
		merge.WithThreshold(o.threshold),
		merge.WithLogger(o.log),
	)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	res.Net, res.Initial, res.Final = mr.Net, mr.Initial, mr.Final
	res.Channels, res.Synced = mr.Channels, mr.Synced

	if o.store != nil {
		if err := persist(ctx, o, res); err != nil {
			return nil, fmt.Errorf("compose: persist run %s: %w", res.RunID, err)
		}
	}

	o.log.Info("composed",
		zap.Stringer("run", res.RunID),
		zap.String("pattern", res.Pattern),
		zap.Int("agents", len(res.Agents)),
		zap.Int("channels", len(res.Channels)),
		zap.Bool("degraded", res.Degraded),
	)
	return res, nil
}

// refine runs one refinement search under the per-agent budget. An
// expired per-agent deadline surfaces as a canceled partial result; an
// error on the surrounding context aborts the whole run.
func refine(ctx context.Context, o *options, begin, end *petri.Net) (*search.Result, error) {
	agentCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		agentCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	res, err := search.New(begin, end, o.searchOpts...).Run(agentCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return res, nil
		}
		return nil, err
	}
	return res, nil
}

// persist writes the run row first, then one record per pattern
// subnet, one per discovered net, and one for the merged net.
func persist(ctx context.Context, o *options, res *Result) error {
	run := store.Run{
		ID:        res.RunID,
		CreatedAt: time.Now().UTC(),
		Pattern:   res.Pattern,
		Degraded:  res.Degraded,
	}
	for _, a := range res.Agents {
		run.Agents = append(run.Agents, a.Name())
		if a.Refined {
			run.Refined++
		}
	}
	if err := o.store.SaveRun(ctx, run); err != nil {
		return err
	}

	for _, a := range res.Agents {
		patNet, initial, final, err := o.pattern.Net(a.Agent)
		if err != nil {
			return err
		}
		if err := saveNet(ctx, o.store, res.RunID, a.Name(), store.KindPattern, patNet, initial, final); err != nil {
			return err
		}
		if a.Discovered == nil {
			continue
		}
		if err := saveNet(ctx, o.store, res.RunID, a.Name(), store.KindDiscovered, a.Discovered, a.Initial, a.Final); err != nil {
			return err
		}
	}
	return saveNet(ctx, o.store, res.RunID, "", store.KindMerged, res.Net, res.Initial, res.Final)
}

func saveNet(ctx context.Context, s store.Store, runID uuid.UUID, agent, kind string, n *petri.Net, initial, final petri.Marking) error {
	doc, err := petri.ToJSON(n, initial, final)
	if err != nil {
		return err
	}
	return s.SaveNet(ctx, store.NetRecord{
		RunID:  runID,
		Agent:  agent,
		Kind:   kind,
		Digest: canon.Digest(n),
		Doc:    doc,
	})
}

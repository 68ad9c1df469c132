package compose_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/netweave-xyz/go-netweave/canon"
	"github.com/netweave-xyz/go-netweave/compose"
	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/mining"
	"github.com/netweave-xyz/go-netweave/patterns"
	"github.com/netweave-xyz/go-netweave/petri"
	"github.com/netweave-xyz/go-netweave/search"
	"github.com/netweave-xyz/go-netweave/store"
)

// step is one event of a hand-written multi-agent log.
type step struct {
	caseID   string
	activity string
	resource string
}

func buildLog(tb testing.TB, steps ...step) *eventlog.Log {
	tb.Helper()
	log := eventlog.NewLog()
	base := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)
	for i, s := range steps {
		log.AddEvent(eventlog.Event{
			CaseID:    s.caseID,
			Activity:  s.activity,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Resource:  s.resource,
		})
	}
	return log
}

func TestRunPointToPoint(t *testing.T) {
	log := buildLog(t,
		step{"c1", "prepare", "waiter"},
		step{"c1", "pack!", "waiter"},
		step{"c1", "pack?", "courier"},
		step{"c2", "prepare", "waiter"},
		step{"c2", "pack!", "waiter"},
		step{"c2", "pack?", "courier"},
	)
	mem := store.NewMemory()
	defer mem.Close()

	ctx := context.Background()
	res, err := compose.Run(ctx, log,
		compose.WithPattern(patterns.PointToPoint{}),
		compose.WithStore(mem),
	)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Pattern != "IP1" || res.Degraded {
		t.Errorf("expected a clean IP1 run, got pattern=%s degraded=%v", res.Pattern, res.Degraded)
	}
	if len(res.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(res.Agents))
	}

	waiter := res.Agents[0]
	if waiter.Agent != "A1" || waiter.Resource != "waiter" {
		t.Errorf("expected waiter on slot A1, got %s on %s", waiter.Resource, waiter.Agent)
	}
	if !waiter.Refined || waiter.Degraded || waiter.Outcome != search.GoalFound {
		t.Errorf("expected waiter refined, got %+v", waiter)
	}
	if len(waiter.Path) != 1 || waiter.Path[0].String() != "P3(p_A1_start)" {
		t.Errorf("unexpected waiter witness %v", waiter.Path)
	}

	courier := res.Agents[1]
	if courier.Agent != "A2" || courier.Resource != "courier" {
		t.Errorf("expected courier on slot A2, got %s on %s", courier.Resource, courier.Agent)
	}
	if !courier.Refined || len(courier.Path) != 0 {
		t.Errorf("expected a trivial courier refinement, got %+v", courier)
	}

	if len(res.Net.Places) != 6 || len(res.Net.Transitions) != 3 || len(res.Net.Arcs) != 8 {
		t.Errorf("unexpected merged shape: %d places, %d transitions, %d arcs",
			len(res.Net.Places), len(res.Net.Transitions), len(res.Net.Arcs))
	}
	if len(res.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(res.Channels))
	}
	ch := res.Channels[0]
	if ch.Send != "pack!" || ch.Receive != "pack?" || ch.Fuzzy {
		t.Errorf("unexpected channel %+v", ch)
	}
	if res.Synced != 0 {
		t.Errorf("expected no synchronizations, got %d", res.Synced)
	}
	if len(res.Initial) != 2 || len(res.Final) != 2 {
		t.Errorf("expected 2 initial and 2 final places, got %d and %d",
			len(res.Initial), len(res.Final))
	}

	runs, err := mem.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID {
		t.Fatalf("expected the run to be persisted, got %v", runs)
	}
	run := runs[0]
	if run.Pattern != "IP1" || run.Refined != 2 || run.Degraded {
		t.Errorf("unexpected run row %+v", run)
	}
	if len(run.Agents) != 2 || run.Agents[0] != "waiter" || run.Agents[1] != "courier" {
		t.Errorf("unexpected run agents %v", run.Agents)
	}

	records, err := mem.Nets(ctx, res.RunID)
	if err != nil {
		t.Fatalf("Nets failed: %v", err)
	}
	want := []struct{ agent, kind string }{
		{"", store.KindMerged},
		{"courier", store.KindDiscovered},
		{"courier", store.KindPattern},
		{"waiter", store.KindDiscovered},
		{"waiter", store.KindPattern},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d net records, got %d", len(want), len(records))
	}
	for i, key := range want {
		if records[i].Agent != key.agent || records[i].Kind != key.kind {
			t.Errorf("record %d: expected (%q, %s), got (%q, %s)",
				i, key.agent, key.kind, records[i].Agent, records[i].Kind)
		}
	}
	merged := records[0]
	if merged.Digest != canon.Digest(res.Net) {
		t.Errorf("merged digest mismatch: %s", merged.Digest)
	}
	stored, _, _, err := petri.FromJSON(merged.Doc)
	if err != nil {
		t.Fatalf("merged document does not parse: %v", err)
	}
	if len(stored.Places) != len(res.Net.Places) || len(stored.Arcs) != len(res.Net.Arcs) {
		t.Errorf("stored merged net does not match: %d places, %d arcs",
			len(stored.Places), len(stored.Arcs))
	}
}

func TestRunBudgetPolicy(t *testing.T) {
	// Six activities put the discovered net far enough from the
	// pattern subnet that neither one iteration nor a nanosecond
	// deadline can settle the refinement question.
	newLog := func() *eventlog.Log {
		return buildLog(t,
			step{"c1", "take", "waiter"},
			step{"c1", "brew", "waiter"},
			step{"c1", "froth", "waiter"},
			step{"c1", "pour", "waiter"},
			step{"c1", "top", "waiter"},
			step{"c1", "serve!", "waiter"},
			step{"c1", "serve?", "customer"},
		)
	}
	tests := []struct {
		name     string
		opts     []compose.Option
		refined  bool
		outcome  search.Outcome
		places   int
		channels int
	}{
		{
			name:     "IterationBudgetAssumesRefined",
			opts:     []compose.Option{compose.WithSearchOptions(search.WithMaxIterations(1))},
			refined:  true,
			outcome:  search.BudgetExceeded,
			places:   10,
			channels: 1,
		},
		{
			name: "IterationBudgetKeepsPattern",
			opts: []compose.Option{
				compose.WithSearchOptions(search.WithMaxIterations(1)),
				compose.WithTimeoutPolicy(compose.TimeoutUnrefined),
			},
			refined:  false,
			outcome:  search.BudgetExceeded,
			places:   4,
			channels: 0,
		},
		{
			name:     "DeadlineAssumesRefined",
			opts:     []compose.Option{compose.WithAgentTimeout(time.Nanosecond)},
			refined:  true,
			outcome:  search.Canceled,
			places:   10,
			channels: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := append([]compose.Option{compose.WithPattern(patterns.PointToPoint{})}, tc.opts...)
			res, err := compose.Run(context.Background(), newLog(), opts...)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if !res.Degraded {
				t.Error("expected a degraded run")
			}
			waiter := res.Agents[0]
			if waiter.Refined != tc.refined || !waiter.Degraded {
				t.Errorf("waiter: expected refined=%v degraded=true, got refined=%v degraded=%v",
					tc.refined, waiter.Refined, waiter.Degraded)
			}
			if waiter.Outcome != tc.outcome {
				t.Errorf("expected outcome %s, got %s", tc.outcome, waiter.Outcome)
			}
			if len(waiter.Path) != 0 {
				t.Errorf("expected no witness path, got %v", waiter.Path)
			}
			if customer := res.Agents[1]; !customer.Refined || customer.Degraded {
				t.Errorf("customer: expected a clean refinement, got refined=%v degraded=%v",
					customer.Refined, customer.Degraded)
			}
			if len(res.Net.Places) != tc.places {
				t.Errorf("expected %d places, got %d", tc.places, len(res.Net.Places))
			}
			if len(res.Channels) != tc.channels {
				t.Errorf("expected %d channels, got %d", tc.channels, len(res.Channels))
			}
		})
	}
}

func TestRunExhaustedKeepsPattern(t *testing.T) {
	// A repeated activity gives the heuristic miner a loop place. No
	// rewrite rule introduces a cycle, so the search exhausts and the
	// roaster keeps its pattern subnet, whose send still reaches the
	// barista's receive.
	log := buildLog(t,
		step{"c1", "spin", "roaster"},
		step{"c1", "spin", "roaster"},
		step{"c1", "a?", "barista"},
	)
	res, err := compose.Run(context.Background(), log,
		compose.WithPattern(patterns.PointToPoint{}),
		compose.WithDiscoverer(compose.DiscovererFunc(mining.Discoverer(mining.MethodHeuristic))),
	)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Degraded {
		t.Error("an exhausted search is a real answer, not a degradation")
	}

	roaster := res.Agents[0]
	if roaster.Refined || roaster.Degraded || roaster.Outcome != search.Exhausted {
		t.Errorf("expected the roaster exhausted, got %+v", roaster)
	}
	if barista := res.Agents[1]; !barista.Refined {
		t.Errorf("expected the barista refined, got %+v", barista)
	}

	if len(res.Channels) != 1 || res.Channels[0].Receive != "a?" {
		t.Errorf("expected the pattern send wired to the barista, got %v", res.Channels)
	}
	if len(res.Net.Places) != 5 || len(res.Net.Transitions) != 2 {
		t.Errorf("unexpected merged shape: %d places, %d transitions",
			len(res.Net.Places), len(res.Net.Transitions))
	}
}

func TestRunUnobservedSlot(t *testing.T) {
	log := buildLog(t, step{"c1", "ship!", "packer"})

	res, err := compose.Run(context.Background(), log,
		compose.WithPattern(patterns.PointToPoint{}),
	)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(res.Agents))
	}

	packer := res.Agents[0]
	if packer.Resource != "packer" || !packer.Refined {
		t.Errorf("expected the packer refined, got %+v", packer)
	}

	slot := res.Agents[1]
	if slot.Agent != "A2" || slot.Resource != "" || slot.Discovered != nil {
		t.Errorf("expected slot A2 unobserved, got %+v", slot)
	}
	if slot.Refined || slot.Degraded {
		t.Errorf("an unobserved slot is neither refined nor degraded: %+v", slot)
	}
	if slot.Name() != "A2" {
		t.Errorf("expected the slot to fall back to its own name, got %s", slot.Name())
	}

	// "ship!" finds no receive side: the pattern's "a?" is too short
	// for fuzzy matching.
	if len(res.Channels) != 0 {
		t.Errorf("expected no channels, got %v", res.Channels)
	}
	if len(res.Net.Places) != 4 || len(res.Net.Transitions) != 2 {
		t.Errorf("unexpected merged shape: %d places, %d transitions",
			len(res.Net.Places), len(res.Net.Transitions))
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	pattern := compose.WithPattern(patterns.PointToPoint{})

	t.Run("NoPattern", func(t *testing.T) {
		log := buildLog(t, step{"c1", "a", "r1"})
		if _, err := compose.Run(ctx, log); !errors.Is(err, compose.ErrNoPattern) {
			t.Errorf("expected ErrNoPattern, got %v", err)
		}
	})

	t.Run("NoResources", func(t *testing.T) {
		log := buildLog(t, step{"c1", "a", ""})
		if _, err := compose.Run(ctx, log, pattern); !errors.Is(err, compose.ErrNoResources) {
			t.Errorf("expected ErrNoResources, got %v", err)
		}
		if _, err := compose.Run(ctx, nil, pattern); !errors.Is(err, compose.ErrNoResources) {
			t.Errorf("expected ErrNoResources for a nil log, got %v", err)
		}
	})

	t.Run("TooManyResources", func(t *testing.T) {
		log := buildLog(t,
			step{"c1", "a", "r1"},
			step{"c1", "b", "r2"},
			step{"c1", "c", "r3"},
		)
		if _, err := compose.Run(ctx, log, pattern); !errors.Is(err, compose.ErrTooManyResources) {
			t.Errorf("expected ErrTooManyResources, got %v", err)
		}
	})

	t.Run("DiscovererError", func(t *testing.T) {
		boom := errors.New("boom")
		fail := compose.DiscovererFunc(func(context.Context, *eventlog.Log) (*petri.Net, petri.Marking, petri.Marking, error) {
			return nil, nil, nil, boom
		})
		log := buildLog(t, step{"c1", "a", "r1"})
		if _, err := compose.Run(ctx, log, pattern, compose.WithDiscoverer(fail)); !errors.Is(err, boom) {
			t.Errorf("expected the discoverer error, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		log := buildLog(t, step{"c1", "a", "r1"})
		if _, err := compose.Run(cctx, log, pattern); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

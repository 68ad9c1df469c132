package mining

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/netweave-xyz/go-netweave/canon"
	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/iso"
	"github.com/netweave-xyz/go-netweave/petri"
)

// buildLog turns activity sequences into a log, one case per sequence.
func buildLog(tb testing.TB, variants ...[]string) *eventlog.Log {
	tb.Helper()
	log := eventlog.NewLog()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, variant := range variants {
		caseID := fmt.Sprintf("c%02d", i+1)
		for j, act := range variant {
			log.AddEvent(eventlog.Event{
				CaseID:    caseID,
				Activity:  act,
				Timestamp: base.Add(time.Duration(j) * time.Minute),
			})
		}
	}
	return log
}

func TestFootprintRelations(t *testing.T) {
	log := buildLog(t,
		[]string{"a", "b", "d"},
		[]string{"a", "c", "d"},
	)
	fp := NewFootprint(log)

	cases := []struct {
		a, b string
		want Relation
	}{
		{"a", "b", Causal},
		{"b", "a", ReverseCausal},
		{"b", "c", Choice},
		{"a", "d", Choice},
		{"c", "d", Causal},
	}
	for _, tc := range cases {
		if got := fp.Relation(tc.a, tc.b); got != tc.want {
			t.Errorf("Relation(%s, %s): expected %s, got %s", tc.a, tc.b, tc.want, got)
		}
	}

	if got := fp.StartActivities(); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected starts [a], got %v", got)
	}
	if got := fp.EndActivities(); len(got) != 1 || got[0] != "d" {
		t.Errorf("expected ends [d], got %v", got)
	}
	if !fp.SetUnrelated([]string{"b", "c"}) {
		t.Error("expected {b, c} to be unrelated")
	}
	if fp.SetUnrelated([]string{"a", "b"}) {
		t.Error("expected {a, b} to be related")
	}
	if !fp.SetsCausal([]string{"b", "c"}, []string{"d"}) {
		t.Error("expected {b, c} -> {d}")
	}
	t.Logf("footprint:\n%s", fp)
}

func TestFootprintParallel(t *testing.T) {
	log := buildLog(t,
		[]string{"a", "b", "c", "d"},
		[]string{"a", "c", "b", "d"},
	)
	fp := NewFootprint(log)
	if got := fp.Relation("b", "c"); got != Parallel {
		t.Errorf("expected b || c, got %s", got)
	}
	if !fp.IsParallel("c", "b") {
		t.Error("expected IsParallel(c, b)")
	}
}

func TestAlphaSequentialLog(t *testing.T) {
	log := buildLog(t,
		[]string{"order", "ship", "bill"},
		[]string{"order", "ship", "bill"},
	)
	net, initial, final, err := Alpha(log)
	if err != nil {
		t.Fatalf("Alpha failed: %v", err)
	}

	expected, err := petri.Build("expected").
		Chain("p_source", "order", "p_order_ship", "ship", "p_ship_bill", "bill", "p_sink").
		Done()
	if err != nil {
		t.Fatalf("building expected net: %v", err)
	}
	if !iso.Isomorphic(net, expected) {
		t.Errorf("expected the sequence net, got %d places / %d transitions / %d arcs",
			len(net.Places), len(net.Transitions), len(net.Arcs))
	}

	wantInitial := map[string]int{"p_source": 1}
	if got := initial.Names(); len(got) != 1 || got["p_source"] != 1 {
		t.Errorf("expected initial %v, got %v", wantInitial, got)
	}
	if got := final.Names(); len(got) != 1 || got["p_sink"] != 1 {
		t.Errorf("expected final {p_sink:1}, got %v", got)
	}
}

func TestAlphaChoiceLog(t *testing.T) {
	log := buildLog(t,
		[]string{"a", "b", "d"},
		[]string{"a", "c", "d"},
	)
	net, _, _, err := Alpha(log)
	if err != nil {
		t.Fatalf("Alpha failed: %v", err)
	}

	// Maximal candidates fold the singleton pairs into ({a}, {b, c}) and
	// ({b, c}, {d}).
	if len(net.Places) != 4 {
		t.Fatalf("expected 4 places, got %d", len(net.Places))
	}
	split, ok := net.PlaceByName("p_a_b_c")
	if !ok {
		t.Fatal("missing place p_a_b_c")
	}
	join, ok := net.PlaceByName("p_b_c_d")
	if !ok {
		t.Fatal("missing place p_b_c_d")
	}

	ta, _ := net.TransitionByName("a")
	tb, _ := net.TransitionByName("b")
	tc, _ := net.TransitionByName("c")
	td, _ := net.TransitionByName("d")
	if !net.HasArc(ta, split) || !net.HasArc(split, tb) || !net.HasArc(split, tc) {
		t.Error("split place is not wired a -> p -> {b, c}")
	}
	if !net.HasArc(tb, join) || !net.HasArc(tc, join) || !net.HasArc(join, td) {
		t.Error("join place is not wired {b, c} -> p -> d")
	}
}

func TestAlphaTransitionLabels(t *testing.T) {
	log := buildLog(t, []string{"review", "approve"})
	net, _, _, err := Alpha(log)
	if err != nil {
		t.Fatalf("Alpha failed: %v", err)
	}
	for _, tr := range net.Transitions {
		if tr.Label != tr.Name {
			t.Errorf("transition %q: expected label %q, got %q", tr.Name, tr.Name, tr.Label)
		}
	}
}

func TestAlphaEmptyLog(t *testing.T) {
	if _, _, _, err := Alpha(eventlog.NewLog()); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("expected ErrEmptyLog, got %v", err)
	}
}

func TestDependencyScore(t *testing.T) {
	log := buildLog(t,
		[]string{"a", "b", "c"},
		[]string{"a", "b", "c"},
		[]string{"a", "b", "c"},
		[]string{"a", "c", "b"},
	)
	fp := NewFootprint(log)

	cases := []struct {
		a, b string
		want float64
	}{
		{"a", "b", 3.0 / 4.0},  // 3 forward, 0 reverse
		{"b", "c", 2.0 / 5.0},  // 3 forward, 1 reverse
		{"c", "b", -2.0 / 5.0}, // mirrored
		{"a", "a", 0},
	}
	for _, tc := range cases {
		if got := fp.DependencyScore(tc.a, tc.b); got != tc.want {
			t.Errorf("DependencyScore(%s, %s): expected %v, got %v", tc.a, tc.b, tc.want, got)
		}
	}
}

func TestHeuristicLoopLog(t *testing.T) {
	log := buildLog(t,
		[]string{"a", "b", "b", "c"},
		[]string{"a", "b", "b", "c"},
		[]string{"a", "b", "b", "c"},
	)
	net, initial, final, err := Heuristic(log, DefaultHeuristicConfig())
	if err != nil {
		t.Fatalf("Heuristic failed: %v", err)
	}

	loop, ok := net.PlaceByName("loop_b")
	if !ok {
		t.Fatal("missing loop place for b")
	}
	tb, _ := net.TransitionByName("b")
	if !net.HasArc(tb, loop) || !net.HasArc(loop, tb) {
		t.Error("loop place is not wired b -> loop -> b")
	}
	if _, ok := net.PlaceByName("p_a_b"); !ok {
		t.Error("missing dependency place p_a_b")
	}
	if _, ok := net.PlaceByName("p_b_c"); !ok {
		t.Error("missing dependency place p_b_c")
	}

	// The loop place holds its token in both markings.
	if got := initial.Names(); got["p_source"] != 1 || got["loop_b"] != 1 {
		t.Errorf("unexpected initial marking %v", got)
	}
	if got := final.Names(); got["p_sink"] != 1 || got["loop_b"] != 1 {
		t.Errorf("unexpected final marking %v", got)
	}
}

func TestHeuristicFiltersNoise(t *testing.T) {
	variants := make([][]string, 0, 10)
	for i := 0; i < 9; i++ {
		variants = append(variants, []string{"a", "b", "c"})
	}
	variants = append(variants, []string{"a", "c", "b"})

	net, _, _, err := Heuristic(buildLog(t, variants...), DefaultHeuristicConfig())
	if err != nil {
		t.Fatalf("Heuristic failed: %v", err)
	}
	if _, ok := net.PlaceByName("p_b_c"); !ok {
		t.Error("expected the dominant b -> c edge to survive")
	}
	if _, ok := net.PlaceByName("p_c_b"); ok {
		t.Error("expected the noise edge c -> b to be dropped")
	}
}

func TestCommonPath(t *testing.T) {
	log := buildLog(t,
		[]string{"order", "ship"},
		[]string{"order", "ship"},
		[]string{"order", "cancel"},
	)
	net, initial, final, err := CommonPath(log)
	if err != nil {
		t.Fatalf("CommonPath failed: %v", err)
	}

	expected, err := petri.Build("expected").
		Chain("p_source", "order", "p_order_ship", "ship", "p_sink").
		Done()
	if err != nil {
		t.Fatalf("building expected net: %v", err)
	}
	if !iso.Isomorphic(net, expected) {
		t.Error("expected the most frequent variant as a chain")
	}
	if got := initial.Names(); got["p_source"] != 1 {
		t.Errorf("unexpected initial marking %v", got)
	}
	if got := final.Names(); got["p_sink"] != 1 {
		t.Errorf("unexpected final marking %v", got)
	}
}

func TestCommonPathTieBreak(t *testing.T) {
	log := buildLog(t,
		[]string{"order", "ship"},
		[]string{"order", "cancel"},
	)
	net, _, _, err := CommonPath(log)
	if err != nil {
		t.Fatalf("CommonPath failed: %v", err)
	}
	// Equal counts break on the smaller variant key.
	if _, ok := net.TransitionByName("cancel"); !ok {
		t.Error("expected the tie to resolve to the cancel variant")
	}
}

func TestCommonPathRepeatedActivity(t *testing.T) {
	net, _, _, err := CommonPath(buildLog(t, []string{"poll", "poll", "done"}))
	if err != nil {
		t.Fatalf("CommonPath failed: %v", err)
	}
	polls := 0
	for _, tr := range net.Transitions {
		if tr.Name == "poll" {
			polls++
		}
	}
	if polls != 2 {
		t.Errorf("expected 2 poll transitions, got %d", polls)
	}
	if len(net.Places) != 4 {
		t.Errorf("expected 4 places, got %d", len(net.Places))
	}
}

func TestDiscover(t *testing.T) {
	log := buildLog(t, []string{"a", "b"}, []string{"a", "b"})
	for _, method := range []Method{MethodAlpha, MethodHeuristic, MethodCommonPath} {
		t.Run(method.String(), func(t *testing.T) {
			net, initial, final, err := Discover(context.Background(), log, method)
			if err != nil {
				t.Fatalf("Discover failed: %v", err)
			}
			if net == nil || len(net.Transitions) == 0 {
				t.Fatal("expected a non-empty net")
			}
			if initial.Total() == 0 || final.Total() == 0 {
				t.Error("expected non-empty markings")
			}
		})
	}

	if _, _, _, err := Discover(context.Background(), log, Method(99)); err == nil {
		t.Error("expected error for unknown method")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, _, err := Discover(ctx, log, MethodAlpha); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDiscovererAdapter(t *testing.T) {
	log := buildLog(t, []string{"a", "b", "c"})
	direct, _, _, err := Alpha(log)
	if err != nil {
		t.Fatalf("Alpha failed: %v", err)
	}
	adapted, _, _, err := Discoverer(MethodAlpha)(context.Background(), log)
	if err != nil {
		t.Fatalf("adapter failed: %v", err)
	}
	if canon.Fingerprint(direct) != canon.Fingerprint(adapted) {
		t.Error("adapter and direct call disagree")
	}
}

func TestParseMethod(t *testing.T) {
	for _, want := range []Method{MethodAlpha, MethodHeuristic, MethodCommonPath} {
		got, err := ParseMethod(want.String())
		if err != nil {
			t.Fatalf("ParseMethod(%q) failed: %v", want, err)
		}
		if got != want {
			t.Errorf("ParseMethod(%q): expected %v, got %v", want, want, got)
		}
	}
	if _, err := ParseMethod("psychic"); err == nil {
		t.Error("expected error for unknown method name")
	}
}

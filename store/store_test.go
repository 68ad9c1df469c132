package store_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/netweave-xyz/go-netweave/store"
)

func TestMemory(t *testing.T) {
	runStoreTests(t, func(testing.TB) store.Store {
		return store.NewMemory()
	})
}

func TestSQLite(t *testing.T) {
	runStoreTests(t, func(tb testing.TB) store.Store {
		s, err := store.NewSQLite(":memory:")
		if err != nil {
			tb.Fatalf("NewSQLite failed: %v", err)
		}
		return s
	})
}

// runStoreTests is the contract suite every Store implementation must
// pass.
func runStoreTests(t *testing.T, newStore func(testing.TB) store.Store) {
	ctx := context.Background()
	at := func(min int) time.Time {
		return time.Date(2024, 5, 1, 12, min, 0, 0, time.UTC)
	}
	newRun := func(min int) store.Run {
		return store.Run{
			ID:        uuid.New(),
			CreatedAt: at(min),
			Pattern:   "IP1",
			Agents:    []string{"waiter", "cook"},
			Refined:   1,
		}
	}

	t.Run("SaveAndLoadRun", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		run := newRun(0)
		run.Degraded = true
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}

		got, err := s.Run(ctx, run.ID)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if got.ID != run.ID {
			t.Errorf("expected id %s, got %s", run.ID, got.ID)
		}
		if !got.CreatedAt.Equal(run.CreatedAt) {
			t.Errorf("expected created at %v, got %v", run.CreatedAt, got.CreatedAt)
		}
		if got.Pattern != "IP1" || got.Refined != 1 || !got.Degraded {
			t.Errorf("unexpected run %+v", got)
		}
		if !reflect.DeepEqual(got.Agents, run.Agents) {
			t.Errorf("expected agents %v, got %v", run.Agents, got.Agents)
		}
	})

	t.Run("RunNotFound", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		if _, err := s.Run(ctx, uuid.New()); !errors.Is(err, store.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("RunsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		oldest := newRun(0)
		newest := newRun(20)
		middle := newRun(10)
		for _, run := range []store.Run{oldest, newest, middle} {
			if err := s.SaveRun(ctx, run); err != nil {
				t.Fatalf("SaveRun failed: %v", err)
			}
		}

		runs, err := s.Runs(ctx)
		if err != nil {
			t.Fatalf("Runs failed: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		want := []uuid.UUID{newest.ID, middle.ID, oldest.ID}
		for i, id := range want {
			if runs[i].ID != id {
				t.Errorf("run %d: expected %s, got %s", i, id, runs[i].ID)
			}
		}
	})

	t.Run("SaveRunReplaces", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		run := newRun(0)
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		run.Refined = 2
		run.Degraded = true
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}

		runs, err := s.Runs(ctx)
		if err != nil {
			t.Fatalf("Runs failed: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run after replace, got %d", len(runs))
		}
		if runs[0].Refined != 2 || !runs[0].Degraded {
			t.Errorf("expected replaced values, got %+v", runs[0])
		}
	})

	t.Run("NetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		run := newRun(0)
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		rec := store.NetRecord{
			RunID:  run.ID,
			Agent:  "waiter",
			Kind:   store.KindDiscovered,
			Digest: "0xabc123",
			Doc:    []byte(`{"name":"waiter"}`),
		}
		if err := s.SaveNet(ctx, rec); err != nil {
			t.Fatalf("SaveNet failed: %v", err)
		}

		records, err := s.Nets(ctx, run.ID)
		if err != nil {
			t.Fatalf("Nets failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		got := records[0]
		if got.RunID != run.ID || got.Agent != "waiter" || got.Kind != store.KindDiscovered {
			t.Errorf("unexpected record %+v", got)
		}
		if got.Digest != rec.Digest || !bytes.Equal(got.Doc, rec.Doc) {
			t.Errorf("document did not round trip: %+v", got)
		}
	})

	t.Run("SaveNetReplaces", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		run := newRun(0)
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		rec := store.NetRecord{
			RunID: run.ID, Agent: "waiter", Kind: store.KindDiscovered,
			Digest: "0xold", Doc: []byte(`{}`),
		}
		if err := s.SaveNet(ctx, rec); err != nil {
			t.Fatalf("SaveNet failed: %v", err)
		}
		rec.Digest = "0xnew"
		if err := s.SaveNet(ctx, rec); err != nil {
			t.Fatalf("SaveNet failed: %v", err)
		}

		records, err := s.Nets(ctx, run.ID)
		if err != nil {
			t.Fatalf("Nets failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record after replace, got %d", len(records))
		}
		if records[0].Digest != "0xnew" {
			t.Errorf("expected replaced digest, got %s", records[0].Digest)
		}
	})

	t.Run("SaveNetRequiresRun", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		rec := store.NetRecord{RunID: uuid.New(), Agent: "waiter", Kind: store.KindDiscovered}
		if err := s.SaveNet(ctx, rec); !errors.Is(err, store.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("NetsOrdered", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		run := newRun(0)
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
		keys := []struct{ agent, kind string }{
			{"waiter", store.KindDiscovered},
			{"cook", store.KindPattern},
			{"", store.KindMerged},
			{"cook", store.KindDiscovered},
		}
		for _, key := range keys {
			rec := store.NetRecord{
				RunID: run.ID, Agent: key.agent, Kind: key.kind,
				Digest: "0x0", Doc: []byte(`{}`),
			}
			if err := s.SaveNet(ctx, rec); err != nil {
				t.Fatalf("SaveNet failed: %v", err)
			}
		}

		records, err := s.Nets(ctx, run.ID)
		if err != nil {
			t.Fatalf("Nets failed: %v", err)
		}
		want := []struct{ agent, kind string }{
			{"", store.KindMerged},
			{"cook", store.KindDiscovered},
			{"cook", store.KindPattern},
			{"waiter", store.KindDiscovered},
		}
		if len(records) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(records))
		}
		for i, key := range want {
			if records[i].Agent != key.agent || records[i].Kind != key.kind {
				t.Errorf("record %d: expected (%q, %s), got (%q, %s)",
					i, key.agent, key.kind, records[i].Agent, records[i].Kind)
			}
		}
	})

	t.Run("NetsEmptyRun", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		records, err := s.Nets(ctx, uuid.New())
		if err != nil {
			t.Fatalf("Nets failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})
}

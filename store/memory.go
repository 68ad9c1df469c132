package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is a map-backed Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]Run
	nets map[uuid.UUID][]NetRecord
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[uuid.UUID]Run),
		nets: make(map[uuid.UUID][]NetRecord),
	}
}

// SaveRun inserts or replaces a run record.
func (m *Memory) SaveRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.Agents = append([]string(nil), run.Agents...)
	m.runs[run.ID] = run
	return nil
}

// Run returns the run with the given id.
func (m *Memory) Run(_ context.Context, id uuid.UUID) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, nil
}

// Runs lists all runs, newest first; ties break on the run id.
func (m *Memory) Runs(_ context.Context) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return bytes.Compare(runs[i].ID[:], runs[j].ID[:]) < 0
	})
	return runs, nil
}

// SaveNet attaches a net document to a saved run.
func (m *Memory) SaveNet(_ context.Context, rec NetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[rec.RunID]; !ok {
		return fmt.Errorf("save net: run %s: %w", rec.RunID, ErrRunNotFound)
	}
	rec.Doc = append([]byte(nil), rec.Doc...)
	records := m.nets[rec.RunID]
	for i, existing := range records {
		if existing.Agent == rec.Agent && existing.Kind == rec.Kind {
			records[i] = rec
			return nil
		}
	}
	m.nets[rec.RunID] = append(records, rec)
	return nil
}

// Nets lists the documents of a run ordered by agent then kind.
func (m *Memory) Nets(_ context.Context, runID uuid.UUID) ([]NetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := append([]NetRecord(nil), m.nets[runID]...)
	sort.Slice(records, func(i, j int) bool {
		if records[i].Agent != records[j].Agent {
			return records[i].Agent < records[j].Agent
		}
		return records[i].Kind < records[j].Kind
	})
	return records, nil
}

// Close is a no-op for the in-process store.
func (m *Memory) Close() error {
	return nil
}

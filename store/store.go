// Package store persists composition runs and the net documents they
// produce. Two implementations share one contract: an in-process map
// for tests and ephemeral use, and SQLite for anything that outlives
// the process.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound reports a lookup for a run that was never saved.
var ErrRunNotFound = errors.New("store: run not found")

// Net record kinds.
const (
	// KindDiscovered is a net mined from an agent sublog.
	KindDiscovered = "discovered"
	// KindPattern is the catalog subnet an agent was matched against.
	KindPattern = "pattern"
	// KindMerged is the composed net of the whole run.
	KindMerged = "merged"
)

// Run is the record of one composition run.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Pattern   string   // pattern the agents were matched against
	Agents    []string // agent resources in slot order
	Refined   int      // agents whose discovered net verified against the pattern
	Degraded  bool     // at least one agent fell back on a timeout
}

// NetRecord is one net document attached to a run. Agent is empty for
// the merged net. Records are keyed by (RunID, Agent, Kind); saving the
// same key again replaces the document.
type NetRecord struct {
	RunID  uuid.UUID
	Agent  string
	Kind   string
	Digest string // canonical digest of the net
	Doc    []byte // JSON net document
}

// Store persists runs and their nets.
type Store interface {
	// SaveRun inserts or replaces a run record.
	SaveRun(ctx context.Context, run Run) error
	// Run returns the run with the given id, or ErrRunNotFound.
	Run(ctx context.Context, id uuid.UUID) (Run, error)
	// Runs lists all runs, newest first.
	Runs(ctx context.Context) ([]Run, error)
	// SaveNet attaches a net document to a saved run; the run must
	// exist. Saving an existing (run, agent, kind) key replaces it.
	SaveNet(ctx context.Context, rec NetRecord) error
	// Nets lists the documents of a run ordered by agent then kind.
	Nets(ctx context.Context, runID uuid.UUID) ([]NetRecord, error)
	// Close releases the underlying resources.
	Close() error
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/netweave-xyz/go-netweave/compose"
	"github.com/netweave-xyz/go-netweave/eventlog"
	"github.com/netweave-xyz/go-netweave/mining"
	"github.com/netweave-xyz/go-netweave/patterns"
	"github.com/netweave-xyz/go-netweave/search"
)

var (
	discoverPattern   string
	discoverMethod    string
	discoverFormat    string
	discoverOutput    string
	discoverTimeout   time.Duration
	discoverKeep      bool
	discoverThreshold float64
	discoverMaxIter   int
	discoverPriority  bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <log.csv|log.jsonl>",
	Short: "Discover a multi-agent net from an event log",
	Long: `Discover a multi-agent net from an event log.

The log is split by its resource column, one net is mined per agent,
each net is checked as a refinement of its slot in the chosen interface
pattern, and the accepted nets are merged into one model. Use --db (or
NETWEAVE_DB) to persist the run and every net involved.

Examples:
  # Discover against IP1 and write the merged net
  netweave discover orders.csv --pattern IP1 --output orders.merged.json

  # Mine with the heuristic miner under a tight search budget
  netweave discover orders.jsonl -m heuristic --max-iterations 5000

  # Persist the run
  netweave discover orders.csv --db runs.db`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	fs := discoverCmd.Flags()
	fs.StringVarP(&discoverPattern, "pattern", "p", "IP1", "interface pattern to verify against")
	fs.StringVarP(&discoverMethod, "method", "m", "alpha", "discovery method: alpha, heuristic or common-path")
	fs.StringVar(&discoverFormat, "format", "", "log format: csv or jsonl (default by extension)")
	fs.StringVarP(&discoverOutput, "output", "o", "", "write the merged net document to this file (- for stdout)")
	fs.DurationVar(&discoverTimeout, "timeout", compose.DefaultAgentTimeout, "per-agent search budget (0 disables)")
	fs.BoolVar(&discoverKeep, "keep-pattern", false, "on budget expiry keep the pattern subnet instead of assuming refinement")
	fs.Float64Var(&discoverThreshold, "threshold", 0.7, "fuzzy label-matching threshold for channel wiring")
	fs.IntVar(&discoverMaxIter, "max-iterations", 0, "per-agent search iteration cap (0 = none)")
	fs.BoolVar(&discoverPriority, "priority", false, "use the guided frontier instead of breadth-first search")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	log, err := loadLog(args[0], discoverFormat)
	if err != nil {
		return err
	}
	pattern, err := patterns.Lookup(discoverPattern)
	if err != nil {
		return err
	}
	method, err := mining.ParseMethod(discoverMethod)
	if err != nil {
		return err
	}

	var searchOpts []search.Option
	if discoverMaxIter > 0 {
		searchOpts = append(searchOpts, search.WithMaxIterations(discoverMaxIter))
	}
	if discoverPriority {
		searchOpts = append(searchOpts, search.WithPriority())
	}
	policy := compose.TimeoutRefined
	if discoverKeep {
		policy = compose.TimeoutUnrefined
	}

	opts := []compose.Option{
		compose.WithPattern(pattern),
		compose.WithDiscoverer(compose.DiscovererFunc(mining.Discoverer(method))),
		compose.WithAgentTimeout(discoverTimeout),
		compose.WithTimeoutPolicy(policy),
		compose.WithSearchOptions(searchOpts...),
		compose.WithThreshold(discoverThreshold),
		compose.WithLogger(logger),
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, compose.WithStore(db))
	}

	res, err := compose.Run(cmd.Context(), log, opts...)
	if err != nil {
		return err
	}

	printRun(log, res)
	if db != nil {
		fmt.Printf("\nRun %s persisted to %s\n", res.RunID, dbPath)
	}
	if discoverOutput != "" {
		return writeNet(discoverOutput, res.Net, res.Initial, res.Final)
	}
	return nil
}

func printRun(log *eventlog.Log, res *compose.Result) {
	fmt.Println("=== Compositional Discovery ===")
	fmt.Printf("Log: %d cases, %d events\n", log.NumCases(), log.NumEvents())
	fmt.Printf("Pattern: %s\n\n", res.Pattern)

	fmt.Println("Agents:")
	for _, a := range res.Agents {
		switch {
		case a.Resource == "":
			fmt.Printf("  ℹ %s: unobserved, pattern subnet used\n", a.Agent)
		case a.Refined && a.Degraded:
			fmt.Printf("  ⚠ %s -> %s: assumed refined (%s after %d iterations)\n",
				a.Resource, a.Agent, a.Outcome, a.Stats.Iterations)
		case a.Refined:
			fmt.Printf("  ✓ %s -> %s: refined in %d step(s), %d iterations, %s\n",
				a.Resource, a.Agent, len(a.Path), a.Stats.Iterations, a.Stats.Elapsed)
		default:
			fmt.Printf("  ✗ %s -> %s: not refined (%s), pattern subnet used\n",
				a.Resource, a.Agent, a.Outcome)
		}
	}
	fmt.Println()

	fmt.Printf("Merged net: %d places, %d transitions, %d arcs\n",
		len(res.Net.Places), len(res.Net.Transitions), len(res.Net.Arcs))
	if len(res.Channels) > 0 {
		fmt.Printf("Channels (%d):\n", len(res.Channels))
		for _, ch := range res.Channels {
			tag := ""
			if ch.Fuzzy {
				tag = " (fuzzy)"
			}
			fmt.Printf("  %s -> %s%s\n", ch.Send, ch.Receive, tag)
		}
	}
	if res.Synced > 0 {
		fmt.Printf("Synchronized transitions: %d\n", res.Synced)
	}
	fmt.Printf("Initial: %s\n", res.Initial)
	fmt.Printf("Final:   %s\n", res.Final)
	if res.Degraded {
		fmt.Println("⚠ Degraded: at least one agent ran out of search budget")
	}
}

// loadLog reads an event log, picking the codec by format or extension.
func loadLog(path, format string) (*eventlog.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = "csv"
		case ".jsonl", ".ndjson":
			format = "jsonl"
		default:
			return nil, fmt.Errorf("cannot tell the log format of %s; pass --format", path)
		}
	}
	switch format {
	case "csv":
		return eventlog.ReadCSV(f, eventlog.DefaultCSVConfig())
	case "jsonl":
		return eventlog.ReadJSONL(f)
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

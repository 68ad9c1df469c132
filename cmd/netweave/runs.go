package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/netweave-xyz/go-netweave/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List persisted discovery runs",
	Long: `List the discovery runs persisted in the configured database, newest
first. With a run id, show that run and its stored net documents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("no database configured; pass --db or set NETWEAVE_DB")
	}
	defer db.Close()

	ctx := cmd.Context()
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse run id: %w", err)
		}
		return showRun(ctx, db, id)
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, run := range runs {
		state := ""
		if run.Degraded {
			state = "  degraded"
		}
		fmt.Printf("%s  %s  %-6s %d/%d refined%s\n",
			run.ID, run.CreatedAt.Format(time.RFC3339), run.Pattern,
			run.Refined, len(run.Agents), state)
	}
	return nil
}

func showRun(ctx context.Context, db store.Store, id uuid.UUID) error {
	run, err := db.Run(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("Created: %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Pattern: %s\n", run.Pattern)
	fmt.Printf("Agents:  %s\n", strings.Join(run.Agents, ", "))
	fmt.Printf("Refined: %d/%d\n", run.Refined, len(run.Agents))
	if run.Degraded {
		fmt.Println("Degraded: yes")
	}

	records, err := db.Nets(ctx, id)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		fmt.Println("\nNets:")
		for _, rec := range records {
			agent := rec.Agent
			if agent == "" {
				agent = "(merged)"
			}
			fmt.Printf("  %-16s %-12s %s  %d bytes\n",
				agent, rec.Kind, rec.Digest[:12], len(rec.Doc))
		}
	}
	return nil
}

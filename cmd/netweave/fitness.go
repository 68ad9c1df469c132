package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netweave-xyz/go-netweave/mining"
)

var (
	fitnessFormat string
	fitnessMin    float64
	fitnessWorst  int
)

var fitnessCmd = &cobra.Command{
	Use:   "fitness <net.json> <log.csv|log.jsonl>",
	Short: "Check how well a net document fits an event log",
	Long: `Check how well a net document fits an event log.

Every trace is replayed by token game: fitness penalizes tokens that
had to be invented and tokens left stranded, precision penalizes
enabled transitions the log never takes. Use --min to fail the command
when fitness falls short, e.g. in a pipeline after discover.

Example:
  netweave discover orders.csv -o merged.json
  netweave fitness merged.json orders.csv --min 0.9`,
	Args: cobra.ExactArgs(2),
	RunE: runFitness,
}

func init() {
	rootCmd.AddCommand(fitnessCmd)
	fs := fitnessCmd.Flags()
	fs.StringVar(&fitnessFormat, "format", "", "log format: csv or jsonl (default by extension)")
	fs.Float64Var(&fitnessMin, "min", 0, "exit non-zero when fitness falls below this")
	fs.IntVar(&fitnessWorst, "worst", 3, "list up to this many worst-fitting traces")
}

func runFitness(cmd *cobra.Command, args []string) error {
	net, initial, final, err := loadNet(args[0])
	if err != nil {
		return err
	}
	log, err := loadLog(args[1], fitnessFormat)
	if err != nil {
		return err
	}
	// Documents written by other tools may omit marking entries.
	if initial.Total() == 0 || final.Total() == 0 {
		initial, final = net.DeriveMarkings()
	}

	res := mining.Conformance(log, net, initial, final)

	fmt.Printf("=== Conformance: %s ===\n", net.Name)
	fmt.Printf("Log: %d cases, %d events\n\n", log.NumCases(), log.NumEvents())
	fmt.Println(res.Replay)
	fmt.Println(res.Precision)
	fmt.Printf("F-score: %.3f\n", res.FScore)

	if worst := res.Replay.NonFitting(); len(worst) > 0 && fitnessWorst > 0 {
		if len(worst) > fitnessWorst {
			worst = worst[:fitnessWorst]
		}
		fmt.Println("\nWorst traces:")
		for _, tr := range worst {
			detail := ""
			if len(tr.Unknown) > 0 {
				detail = fmt.Sprintf(", unknown: %s", strings.Join(tr.Unknown, ", "))
			}
			if len(tr.Forced) > 0 {
				detail += fmt.Sprintf(", forced: %s", strings.Join(tr.Forced, ", "))
			}
			fmt.Printf("  %s: fitness %.3f%s\n", tr.CaseID, tr.Fitness, detail)
		}
	}

	fmt.Println()
	if fitnessMin > 0 && res.Replay.Fitness < fitnessMin {
		fmt.Printf("✗ fitness %.3f is below the required %.3f\n", res.Replay.Fitness, fitnessMin)
		os.Exit(1)
	}
	if res.Replay.FittingTraces == res.Replay.TotalTraces {
		fmt.Println("✓ every trace replays cleanly")
	} else {
		fmt.Printf("⚠ %d of %d traces do not fit\n",
			res.Replay.TotalTraces-res.Replay.FittingTraces, res.Replay.TotalTraces)
	}
	return nil
}

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netweave-xyz/go-netweave/eventlog"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats <log.csv|log.jsonl>",
	Short: "Summarize an event log",
	Long: `Summarize an event log: cases, events, resources, and the timing
profile per activity. The duration of an activity is the gap to the
next event of the same case.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsFormat, "format", "", "log format: csv or jsonl (default by extension)")
}

func runStats(cmd *cobra.Command, args []string) error {
	log, err := loadLog(args[0], statsFormat)
	if err != nil {
		return err
	}
	s := eventlog.ComputeStats(log)

	fmt.Printf("=== %s ===\n", filepath.Base(args[0]))
	fmt.Printf("Cases:  %d\n", s.Cases)
	fmt.Printf("Events: %d\n", s.Events)
	if resources := log.Resources(); len(resources) > 0 {
		fmt.Printf("Resources: %s\n", strings.Join(resources, ", "))
	}

	if len(s.ActivityCounts) > 0 {
		fmt.Println("\nActivities:")
		for _, act := range s.Activities() {
			if len(s.ActivityDurations[act]) == 0 {
				fmt.Printf("  %-24s n=%d\n", act, s.ActivityCounts[act])
				continue
			}
			fmt.Printf("  %-24s n=%-5d mean %.1fs  std %.1fs\n",
				act, s.ActivityCounts[act], s.MeanDuration(act), s.StdDuration(act))
		}
	}

	if len(s.CaseDurations) > 0 {
		mean := s.MeanCaseDuration()
		fmt.Printf("\nMean case duration: %.1f sec (%.1f min)\n", mean, mean/60)
	}
	if len(s.InterArrival) > 0 {
		mean := s.MeanInterArrival()
		fmt.Printf("Mean case inter-arrival: %.1f sec (%.1f min)\n", mean, mean/60)
	}
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netweave-xyz/go-netweave/canon"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <net.json>",
	Short: "Summarize a net document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	net, initial, final, err := loadNet(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("=== %s ===\n", net.Name)
	fmt.Printf("Places: %d, transitions: %d, arcs: %d\n",
		len(net.Places), len(net.Transitions), len(net.Arcs))

	fmt.Println("\nTransitions:")
	for _, t := range net.Transitions {
		label := t.Label
		if label == "" {
			label = "(silent)"
		}
		fmt.Printf("  %-24s %-16s in %d, out %d\n",
			t.Name, label, len(net.InArcs(t)), len(net.OutArcs(t)))
	}

	fmt.Printf("\nSource places: %s\n", strings.Join(placeNames(net.SourcePlaces()), ", "))
	fmt.Printf("Sink places:   %s\n", strings.Join(placeNames(net.SinkPlaces()), ", "))
	fmt.Printf("Initial: %s\n", initial)
	fmt.Printf("Final:   %s\n", final)
	if m := net.Incidence(); m != nil {
		rows, cols := m.Dims()
		fmt.Printf("Incidence matrix: %dx%d\n", rows, cols)
	}
	fmt.Printf("Digest: %s\n", canon.Digest(net))
	return nil
}

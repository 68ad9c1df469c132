package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netweave-xyz/go-netweave/patterns"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the interface-pattern catalog",
	Args:  cobra.NoArgs,
	RunE:  runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	fmt.Println("Interface patterns:")
	for _, name := range patterns.List() {
		p, err := patterns.Lookup(name)
		if err != nil {
			return err
		}
		net, _, _ := p.Composite()
		fmt.Printf("  %-6s agents: %s; composite: %d places, %d transitions\n",
			name, strings.Join(p.Agents(), ", "),
			len(net.Places), len(net.Transitions))
	}
	return nil
}

// netweave is a compositional process discovery tool: an event log
// covering several interacting agents is split per agent, a Petri net
// is mined for each, every net is verified as a refinement of its slot
// in an interface pattern, and the verified nets are merged into one
// multi-agent model.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netweave-xyz/go-netweave/petri"
	"github.com/netweave-xyz/go-netweave/store"
)

var (
	envFile string
	dbPath  string
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "netweave",
	Short: "netweave discovers multi-agent process models from event logs",
	Long: `netweave discovers multi-agent process models. An event log covering
several interacting agents is split per agent, a Petri net is mined for
each, every net is verified as a refinement of its slot in an interface
pattern, and the verified nets are merged into one multi-agent model
with explicit channel places.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
		var err error
		if logger, err = buildLogger(); err != nil {
			return err
		}
		if dbPath == "" {
			dbPath = os.Getenv("NETWEAVE_DB")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "dotenv file to load before running")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (default $NETWEAVE_DB)")
}

// buildLogger maps NETWEAVE_LOG onto a zap preset: unset stays silent,
// "debug" gets the development logger, anything else production.
func buildLogger() (*zap.Logger, error) {
	switch os.Getenv("NETWEAVE_LOG") {
	case "":
		return zap.NewNop(), nil
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

// openStore opens the configured database. A nil store with a nil
// error means no database is configured.
func openStore() (store.Store, error) {
	if dbPath == "" {
		return nil, nil
	}
	return store.NewSQLite(dbPath)
}

// loadNet reads one net document from disk.
func loadNet(path string) (*petri.Net, petri.Marking, petri.Marking, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read net: %w", err)
	}
	net, initial, final, err := petri.FromJSON(data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return net, initial, final, nil
}

// writeNet writes one net document to path, or to stdout for "-".
func writeNet(path string, n *petri.Net, initial, final petri.Marking) error {
	doc, err := petri.ToJSON(n, initial, final)
	if err != nil {
		return err
	}
	if path == "-" {
		fmt.Println(string(doc))
		return nil
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("write net: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Net written to %s\n", path)
	return nil
}

func placeNames(places []*petri.Place) []string {
	names := make([]string, len(places))
	for i, p := range places {
		names[i] = p.Name
	}
	return names
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/analysis"
	"github.com/pable/go-bpb-metrics/internal/storage"
)

var (
	dbPath string
	outDir string
)

var rootCmd = &cobra.Command{
	Use:   "bpbmetrics",
	Short: "Backpack Battles match analytics tool",
	Long:  "Ingest scraped Backpack Battles match logs and mine item, build and cluster statistics.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".bpbmetrics", "bpb.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&outDir, "out", "bpb_out", "directory for CSV artifacts")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(winrateCmd)
	rootCmd.AddCommand(pairsCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(variationsCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// openExistingDB opens the fact store for the read-only analysis commands.
// A database that was never created is a missing input, not something to
// silently create empty.
func openExistingDB() (*storage.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, &analysis.InputAbsentError{Path: dbPath}
		}
		return nil, err
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/ingest"
	"github.com/pable/go-bpb-metrics/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-dir> [more...]",
	Short: "Ingest scraped match-log JSON files into the database",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := ingest.ExpandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .json files found under the given paths")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	var totalRounds, totalItems int
	for _, path := range paths {
		rounds, items, err := ingest.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := db.InsertRounds(rounds); err != nil {
			return fmt.Errorf("store rounds from %s: %w", path, err)
		}
		if err := db.InsertRoundItems(items); err != nil {
			return fmt.Errorf("store items from %s: %w", path, err)
		}
		totalRounds += len(rounds)
		totalItems += len(items)
		fmt.Fprintf(os.Stdout, "ingested %s: %d rounds, %d item facts\n", path, len(rounds), len(items))
	}

	rounds, items, err := db.FactCounts()
	if err != nil {
		return fmt.Errorf("count facts: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\nfiles: %d  |  rounds written: %d  |  item facts written: %d\n", len(paths), totalRounds, totalItems)
	fmt.Fprintf(os.Stdout, "database now holds %d rounds, %d item facts\n", rounds, items)
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/report"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "number of matches to show (0 for all)")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openExistingDB()
	if err != nil {
		return err
	}
	defer db.Close()

	matches, err := db.ListMatches(listLimit)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'bpbmetrics ingest <logs.json>' to add some.")
		return nil
	}

	report.PrintMatchList(os.Stdout, matches)
	return nil
}

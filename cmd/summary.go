package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/report"
)

var summaryTop int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the dataset baseline: match counts, round survival, item frequencies",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryTop, "top", 20, "number of items in the frequency tables")
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openExistingDB()
	if err != nil {
		return err
	}
	defer db.Close()

	overview, err := db.Overview()
	if err != nil {
		return fmt.Errorf("query overview: %w", err)
	}
	report.PrintOverview(os.Stdout, overview)
	if overview.Matches == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'bpbmetrics ingest <logs.json>' to add some.")
		return nil
	}

	reached, err := db.RoundsReached()
	if err != nil {
		return fmt.Errorf("query rounds reached: %w", err)
	}
	fmt.Fprintln(os.Stdout, "Matches reaching each round:")
	report.PrintRoundsReached(os.Stdout, reached)

	byFinal, err := db.WinrateByFinalRound()
	if err != nil {
		return fmt.Errorf("query winrate by final round: %w", err)
	}
	fmt.Fprintln(os.Stdout, "\nWinrate by final round:")
	report.PrintWinrateByFinalRound(os.Stdout, byFinal)

	overall, err := db.TopItemFrequencies(summaryTop)
	if err != nil {
		return fmt.Errorf("query item frequencies: %w", err)
	}
	report.PrintItemFreqTable(os.Stdout, "Most common items (any round):", overall)

	final, err := db.FinalItemFrequencies(summaryTop)
	if err != nil {
		return fmt.Errorf("query final item frequencies: %w", err)
	}
	report.PrintItemFreqTable(os.Stdout, "Most common items (final round):", final)
	return nil
}

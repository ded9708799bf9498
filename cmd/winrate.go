package cmd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/artifact"
	"github.com/pable/go-bpb-metrics/internal/model"
	"github.com/pable/go-bpb-metrics/internal/report"
)

var (
	winrateMinReached int
	winrateTop        int
)

var winrateCmd = &cobra.Command{
	Use:   "winrate",
	Short: "Compute per-round relative winrate of carrying each item",
	Args:  cobra.NoArgs,
	RunE:  runWinrate,
}

func init() {
	winrateCmd.Flags().IntVar(&winrateMinReached, "min-reached", 25, "minimum matches reaching a round for its rows to count")
	winrateCmd.Flags().IntVar(&winrateTop, "top", 25, "number of top movers to print")
}

func runWinrate(cmd *cobra.Command, args []string) error {
	db, err := openExistingDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.RelativeWinrateRows(winrateMinReached)
	if err != nil {
		return fmt.Errorf("query relative winrates: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no (round, item) rows met the denominator threshold")
		fmt.Fprintf(os.Stderr, "hint: lower --min-reached (currently %d) or ingest more matches\n", winrateMinReached)
		return nil
	}

	// Both intervals share the round's survival denominator, matching the
	// winrate definitions themselves.
	for i := range rows {
		r := &rows[i]
		r.WilsonWithLo, r.WilsonWithHi = report.WilsonCI(r.WinsWith, r.NReached)
		r.WilsonWithoutLo, r.WilsonWithoutHi = report.WilsonCI(r.WinsWithout, r.NReached)
	}

	if err := artifact.WriteRelativeWinrates(outDir, rows); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d rows)\n", filepath.Join(outDir, artifact.FileRelativeWinrate), len(rows))

	// Top movers by absolute winrate delta.
	movers := append([]model.RoundItemWinrate(nil), rows...)
	sort.SliceStable(movers, func(i, j int) bool {
		return math.Abs(movers[i].DeltaWinrate) > math.Abs(movers[j].DeltaWinrate)
	})
	if len(movers) > winrateTop {
		movers = movers[:winrateTop]
	}
	fmt.Fprintln(os.Stdout, "\nLargest winrate deltas:")
	report.PrintRelativeWinrateTable(os.Stdout, movers)
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/analysis"
	"github.com/pable/go-bpb-metrics/internal/artifact"
	"github.com/pable/go-bpb-metrics/internal/report"
)

var (
	pairsScope   string
	pairsTopN    int
	pairsMinPair int
	pairsLimit   int
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Mine item co-occurrence pairs (lift and PMI)",
	Args:  cobra.NoArgs,
	RunE:  runPairs,
}

func init() {
	pairsCmd.Flags().StringVar(&pairsScope, "scope", "final", "item scope: final (last round only) or topn (last N rounds)")
	pairsCmd.Flags().IntVar(&pairsTopN, "topn", 3, "rounds per match when --scope=topn")
	pairsCmd.Flags().IntVar(&pairsMinPair, "min-pair", 20, "minimum matches a pair must appear in")
	pairsCmd.Flags().IntVar(&pairsLimit, "limit", 30, "number of pairs to print")
}

func runPairs(cmd *cobra.Command, args []string) error {
	scope, err := analysis.ParseScope(pairsScope, pairsTopN)
	if err != nil {
		return err
	}

	db, err := openExistingDB()
	if err != nil {
		return err
	}
	defer db.Close()

	scopeItems, err := db.ScopeItems(scope.LastN())
	if err != nil {
		return fmt.Errorf("query scope items: %w", err)
	}
	if len(scopeItems) == 0 {
		return fmt.Errorf("no item facts in scope %s; ingest matches first", scope.Tag())
	}

	cfg := analysis.DefaultPairConfig()
	cfg.MinPairCount = pairsMinPair
	pairs := analysis.PairStats(scopeItems, cfg)
	if len(pairs) == 0 {
		freqs, ferr := db.TopItemFrequencies(10)
		if ferr == nil {
			report.PrintItemFreqTable(os.Stderr, "Top raw item frequencies:", freqs)
		}
		fmt.Fprintf(os.Stderr, "hint: lower --min-pair (currently %d) or widen the scope\n", pairsMinPair)
		return &analysis.EmptyAfterFilterError{Stage: "pair count"}
	}

	if err := artifact.WritePairs(outDir, pairs, scope.Tag()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d pairs)\n\n", filepath.Join(outDir, artifact.PairFile(scope.Tag())), len(pairs))
	report.PrintPairTable(os.Stdout, pairs, pairsLimit)
	return nil
}

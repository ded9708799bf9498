package cmd

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/analysis"
	"github.com/pable/go-bpb-metrics/internal/artifact"
	"github.com/pable/go-bpb-metrics/internal/model"
	"github.com/pable/go-bpb-metrics/internal/report"
	"github.com/pable/go-bpb-metrics/internal/storage"
)

var (
	clusterScope      string
	clusterTopN       int
	clusterK          int
	clusterMinFreq    int
	clusterMaxItems   int
	clusterSeed       int64
	clusterRestarts   int
	clusterClassRegex string

	coreTopK       int
	coreMinRate    float64
	coreMinLift    float64
	coreMinCount   int
	coreStapleRate float64
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster matches by final-build items and derive per-cluster statistics",
	Args:  cobra.NoArgs,
	RunE:  runCluster,
}

func init() {
	clusterCmd.Flags().StringVar(&clusterScope, "scope", "final", "item scope: final (last round only) or topn (last N rounds)")
	clusterCmd.Flags().IntVar(&clusterTopN, "topn", 3, "rounds per match when --scope=topn")
	clusterCmd.Flags().IntVar(&clusterK, "k", 8, "number of clusters")
	clusterCmd.Flags().IntVar(&clusterMinFreq, "min-item-freq", 15, "drop items seen in fewer matches")
	clusterCmd.Flags().IntVar(&clusterMaxItems, "max-items", 300, "keep at most this many most frequent items")
	clusterCmd.Flags().Int64Var(&clusterSeed, "seed", 42, "clustering random seed")
	clusterCmd.Flags().IntVar(&clusterRestarts, "restarts", 20, "independent k-means restarts")
	clusterCmd.Flags().StringVar(&clusterClassRegex, "class-regex", "", "only cluster matches owning an item matching this regex")

	clusterCmd.Flags().IntVar(&coreTopK, "core-top-k", 8, "core items per cluster")
	clusterCmd.Flags().Float64Var(&coreMinRate, "core-min-rate", 0.30, "minimum in-cluster adoption rate for a core item")
	clusterCmd.Flags().Float64Var(&coreMinLift, "core-min-lift", 1.20, "minimum lift versus baseline for a core item")
	clusterCmd.Flags().IntVar(&coreMinCount, "core-min-count", 10, "minimum in-cluster matches for a core item")
	clusterCmd.Flags().Float64Var(&coreStapleRate, "core-staple-rate", 0.65, "exclude items above this global rate from cores (0 disables)")
}

func runCluster(cmd *cobra.Command, args []string) error {
	scope, err := analysis.ParseScope(clusterScope, clusterTopN)
	if err != nil {
		return err
	}

	db, err := openExistingDB()
	if err != nil {
		return err
	}
	defer db.Close()

	facts, err := db.ItemFacts(scope.LastN())
	if err != nil {
		return fmt.Errorf("query item facts: %w", err)
	}
	if len(facts) == 0 {
		return fmt.Errorf("no item facts in scope %s; ingest matches first", scope.Tag())
	}

	if clusterClassRegex != "" {
		facts, err = filterByClassRegex(db, facts, clusterClassRegex)
		if err != nil {
			return err
		}
	}

	cfg := analysis.DefaultClusterConfig()
	cfg.K = clusterK
	cfg.MinItemFreq = clusterMinFreq
	cfg.MaxItems = clusterMaxItems
	cfg.Seed = clusterSeed
	cfg.Restarts = clusterRestarts

	matrix, freqs, err := analysis.BuildMatrix(facts, cfg)
	if err != nil {
		var empty *analysis.EmptyAfterFilterError
		if errors.As(err, &empty) {
			top := empty.TopItems
			if len(top) > 15 {
				top = top[:15]
			}
			report.PrintItemFreqTable(os.Stderr, "Top raw item frequencies:", top)
			fmt.Fprintf(os.Stderr, "hint: lower --min-item-freq (currently %d)\n", clusterMinFreq)
		}
		return err
	}
	fmt.Fprintf(os.Stdout, "matrix: %d matches x %d items (scope %s, %d raw items)\n",
		matrix.NumMatches(), len(matrix.Items), scope.Tag(), len(freqs))

	labels, err := analysis.NewKMeans(cfg).Partition(matrix.Rows, cfg.K)
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}

	summaries := analysis.Summaries(matrix, labels, cfg.K)
	stats := analysis.ClusterStats(matrix, labels, cfg.K)

	coreCfg := analysis.DefaultCoreConfig()
	coreCfg.TopK = coreTopK
	coreCfg.MinClusterRate = coreMinRate
	coreCfg.MinLift = coreMinLift
	coreCfg.MinCount = coreMinCount
	coreCfg.StapleMaxGlobalRate = coreStapleRate
	cores := analysis.SelectCoreItems(stats, coreCfg)

	if err := artifact.WriteClusterSummaries(outDir, summaries); err != nil {
		return err
	}
	if err := artifact.WriteAssignments(outDir, matrix.MatchIDs, labels); err != nil {
		return err
	}
	if err := artifact.WriteItemStats(outDir, stats); err != nil {
		return err
	}
	if err := artifact.WriteCoreItems(outDir, cores, scope.Tag()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote cluster artifacts to %s\n\n", outDir)

	fmt.Fprintln(os.Stdout, "Clusters:")
	report.PrintClusterSummaryTable(os.Stdout, summaries)
	fmt.Fprintln(os.Stdout, "\nCore items:")
	report.PrintCoreItemsTable(os.Stdout, cores)
	return nil
}

// filterByClassRegex keeps only facts of matches that own at least one item
// matching the pattern. An unmatched pattern fails open: everything is kept
// and a warning goes to stderr, so a typo cannot silently empty the run.
func filterByClassRegex(db *storage.DB, facts []model.ItemFact, pattern string) ([]model.ItemFact, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid --class-regex: %w", err)
	}

	all, err := db.DistinctMatchItems()
	if err != nil {
		return nil, fmt.Errorf("query match items: %w", err)
	}
	keep := make(map[int64]struct{})
	for _, mi := range all {
		if re.MatchString(mi.ItemName) {
			keep[mi.MatchID] = struct{}{}
		}
	}
	if len(keep) == 0 {
		fmt.Fprintf(os.Stderr, "warning: --class-regex %q matched no items; keeping all matches\n", pattern)
		return facts, nil
	}

	total := countMatches(facts)
	out := make([]model.ItemFact, 0, len(facts))
	for _, f := range facts {
		if _, ok := keep[f.MatchID]; ok {
			out = append(out, f)
		}
	}
	fmt.Fprintf(os.Stdout, "class filter %q kept %d of %d matches\n", pattern, len(keep), total)
	return out, nil
}

func countMatches(facts []model.ItemFact) int {
	seen := make(map[int64]struct{})
	for _, f := range facts {
		seen[f.MatchID] = struct{}{}
	}
	return len(seen)
}

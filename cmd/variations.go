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
	variationsScope    string
	variationsTopN     int
	variationsMinRate  float64
	variationsMinAdv   float64
	variationsMinLift  float64
	variationsMinPMI   float64
	variationsMax      int
	variationsLimit    int
)

var variationsCmd = &cobra.Command{
	Use:   "variations",
	Short: "Synthesize ranked build variations from cluster and pair artifacts",
	Args:  cobra.NoArgs,
	RunE:  runVariations,
}

func init() {
	variationsCmd.Flags().StringVar(&variationsScope, "scope", "final", "scope tag of the co-occurrence artifact to use")
	variationsCmd.Flags().IntVar(&variationsTopN, "topn", 3, "rounds per match when --scope=topn")
	variationsCmd.Flags().Float64Var(&variationsMinRate, "min-rate", 0.08, "minimum in-cluster adoption rate for a candidate item")
	variationsCmd.Flags().Float64Var(&variationsMinAdv, "min-advantage", -0.01, "minimum rate advantage versus baseline for a candidate item")
	variationsCmd.Flags().Float64Var(&variationsMinLift, "min-lift", 1.5, "minimum pair lift")
	variationsCmd.Flags().Float64Var(&variationsMinPMI, "min-pmi", 0.5, "minimum pair PMI")
	variationsCmd.Flags().IntVar(&variationsMax, "max-per-cluster", 40, "variations kept per cluster")
	variationsCmd.Flags().IntVar(&variationsLimit, "limit", 30, "number of variations to print")
}

func runVariations(cmd *cobra.Command, args []string) error {
	scope, err := analysis.ParseScope(variationsScope, variationsTopN)
	if err != nil {
		return err
	}

	// All three inputs come from earlier stages; check them up front so
	// the operator gets one actionable error instead of a partial run.
	for _, name := range []string{artifact.FileClusterCoreItems, artifact.FileClusterItemStats, artifact.PairFile(scope.Tag())} {
		if !artifact.Exists(outDir, name) {
			return &analysis.InputAbsentError{Path: filepath.Join(outDir, name)}
		}
	}

	cores, coreScope, err := artifact.ReadCoreItems(outDir)
	if err != nil {
		return err
	}
	if coreScope != "" && coreScope != scope.Tag() {
		fmt.Fprintf(os.Stderr, "warning: cluster artifacts were built under scope %s, pairs under %s; rates and associations may disagree\n",
			coreScope, scope.Tag())
	}

	stats, err := artifact.ReadItemStats(outDir)
	if err != nil {
		return err
	}
	pairs, err := artifact.ReadPairs(outDir, scope.Tag())
	if err != nil {
		return err
	}

	cfg := analysis.DefaultVariationConfig()
	cfg.MinClusterRate = variationsMinRate
	cfg.MinRateAdvantage = variationsMinAdv
	cfg.MinLift = variationsMinLift
	cfg.MinPMI = variationsMinPMI
	cfg.MaxPerCluster = variationsMax

	vars := analysis.Synthesize(cores, stats, pairs, cfg)
	if len(vars) == 0 {
		fmt.Fprintln(os.Stderr, "no variations survived the thresholds")
		fmt.Fprintf(os.Stderr, "hint: lower --min-lift (currently %.2f) or --min-pmi (currently %.2f)\n", variationsMinLift, variationsMinPMI)
		return &analysis.EmptyAfterFilterError{Stage: "variation"}
	}

	if err := artifact.WriteVariations(outDir, vars); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d variations)\n\n", filepath.Join(outDir, artifact.FileBuildVariations), len(vars))
	report.PrintVariationTable(os.Stdout, vars, variationsLimit)
	return nil
}

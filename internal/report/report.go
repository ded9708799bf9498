package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pable/go-bpb-metrics/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintOverview writes the database summary header.
func PrintOverview(w io.Writer, o model.Overview) {
	fmt.Fprintf(w, "\nMatches: %d  |  Wins: %d  |  Losses: %d\n", o.Matches, o.Wins, o.Losses)
	if o.Matches > 0 {
		fmt.Fprintf(w, "Final round: avg %.2f  |  min %d  |  max %d\n", o.AvgFinalRound, o.MinFinalRound, o.MaxFinalRound)
		fmt.Fprintf(w, "Long runs (final round >= 16): %.1f%%\n", o.ShareLongFinals*100)
	}
	fmt.Fprintln(w)
}

// PrintMatchList writes the stored-match listing.
func PrintMatchList(w io.Writer, matches []model.Match) {
	table := newTable(w)
	table.Header("MATCH", "FINAL_ROUND", "RESULT", "SOURCE")
	for _, m := range matches {
		table.Append(
			strconv.FormatInt(m.MatchID, 10),
			strconv.Itoa(m.FinalRound),
			m.Result,
			m.SourceFile,
		)
	}
	table.Render()
}

// PrintItemFreqTable writes item frequencies under the given title.
func PrintItemFreqTable(w io.Writer, title string, freqs []model.ItemFreq) {
	fmt.Fprintf(w, "\n%s\n", title)
	table := newTable(w)
	table.Header("ITEM", "MATCHES")
	for _, f := range freqs {
		table.Append(f.ItemName, strconv.Itoa(f.Matches))
	}
	table.Render()
}

// PrintRoundsReached writes the per-round survival denominators.
func PrintRoundsReached(w io.Writer, rows []model.RoundReached) {
	table := newTable(w)
	table.Header("ROUND", "MATCHES_REACHED")
	for _, r := range rows {
		table.Append(strconv.Itoa(r.Round), strconv.Itoa(r.Matches))
	}
	table.Render()
}

// PrintWinrateByFinalRound writes winrate grouped by the match's final round.
func PrintWinrateByFinalRound(w io.Writer, rows []model.FinalRoundWinrate) {
	table := newTable(w)
	table.Header("FINAL_ROUND", "MATCHES", "WINRATE")
	for _, r := range rows {
		table.Append(
			strconv.Itoa(r.FinalRound),
			strconv.Itoa(r.Matches),
			fmt.Sprintf("%.0f%%", r.Winrate*100),
		)
	}
	table.Render()
}

// PrintRelativeWinrateTable writes per-(round, item) relative winrates with
// the Wilson intervals.
func PrintRelativeWinrateTable(w io.Writer, rows []model.RoundItemWinrate) {
	table := newTable(w)
	table.Header("ROUND", "ITEM", "N", "WR_WITH", "WR_WITHOUT", "DELTA", "CI_WITH")
	for _, r := range rows {
		table.Append(
			strconv.Itoa(r.Round),
			r.Item,
			strconv.Itoa(r.NReached),
			fmt.Sprintf("%.1f%%", r.WinrateWith*100),
			fmt.Sprintf("%.1f%%", r.WinrateWithout*100),
			fmt.Sprintf("%+.1f%%", r.DeltaWinrate*100),
			fmt.Sprintf("[%.0f%%, %.0f%%]", r.WilsonWithLo*100, r.WilsonWithHi*100),
		)
	}
	table.Render()
}

// PrintPairTable writes the top co-occurrence pairs.
func PrintPairTable(w io.Writer, pairs []model.Pair, limit int) {
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	table := newTable(w)
	table.Header("ITEM_A", "ITEM_B", "N_AB", "N_A", "N_B", "LIFT", "PMI")
	for _, p := range pairs {
		table.Append(
			p.A,
			p.B,
			strconv.Itoa(p.NAB),
			strconv.Itoa(p.NA),
			strconv.Itoa(p.NB),
			fmt.Sprintf("%.2f", p.Lift),
			fmt.Sprintf("%.2f", p.PMI),
		)
	}
	table.Render()
}

// PrintClusterSummaryTable writes cluster sizes and outcomes. Empty clusters
// render with the "—" sentinel in the rate columns.
func PrintClusterSummaryTable(w io.Writer, summaries []model.ClusterSummary) {
	table := newTable(w)
	table.Header("CLUSTER", "MATCHES", "WINRATE", "MEDIAN_FINAL")
	for _, s := range summaries {
		winrate := "—"
		medianFinal := "—"
		if !math.IsNaN(s.WinRatePct) {
			winrate = fmt.Sprintf("%.1f%%", s.WinRatePct)
		}
		if !math.IsNaN(s.MedianFinalRound) {
			medianFinal = fmt.Sprintf("%.1f", s.MedianFinalRound)
		}
		table.Append(
			strconv.Itoa(s.Cluster),
			strconv.Itoa(s.Matches),
			winrate,
			medianFinal,
		)
	}
	table.Render()
}

// PrintCoreItemsTable writes the per-cluster core item sets.
func PrintCoreItemsTable(w io.Writer, cores []model.CoreItemSet) {
	table := newTable(w)
	table.Header("CLUSTER", "SOURCE", "CORE_ITEMS")
	for _, c := range cores {
		table.Append(
			strconv.Itoa(c.Cluster),
			string(c.Source),
			strings.Join(c.Items, ", "),
		)
	}
	table.Render()
}

// PrintVariationTable writes the ranked build variations for one cluster
// or for all of them.
func PrintVariationTable(w io.Writer, vars []model.Variation, limit int) {
	if limit > 0 && len(vars) > limit {
		vars = vars[:limit]
	}
	table := newTable(w)
	table.Header("CLUSTER", "RANK", "TYPE", "PAIR", "LIFT", "PMI", "N_AB", "SCORE")
	for _, v := range vars {
		table.Append(
			strconv.Itoa(v.Cluster),
			strconv.Itoa(v.Rank),
			string(v.Type),
			v.Items[0]+" + "+v.Items[1],
			fmt.Sprintf("%.2f", v.Lift),
			fmt.Sprintf("%.2f", v.PMI),
			strconv.Itoa(v.PairMatches),
			fmt.Sprintf("%.3f", v.Score),
		)
	}
	table.Render()
}

// WilsonCI computes the 95% Wilson score confidence interval for a
// proportion of hits out of n trials.
func WilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	z := 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

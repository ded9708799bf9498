// Package artifact reads and writes the CSV files shared between the
// mining stages. Writers are deterministic: the same inputs produce a
// byte-identical file, so re-runs over an unchanged database can be
// diffed. NaN values are written as empty cells, never as "NaN".
package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pable/go-bpb-metrics/internal/analysis"
	"github.com/pable/go-bpb-metrics/internal/model"
)

// File names under the output directory.
const (
	FileClusterSummary    = "clusters_summary.csv"
	FileClusterAssignment = "clusters_assignment.csv"
	FileClusterItemStats  = "clusters_item_stats.csv"
	FileClusterCoreItems  = "clusters_core_items.csv"
	FileBuildVariations   = "build_variations.csv"
	FileRelativeWinrate   = "relative_winrate_by_round.csv"
)

// PairFile returns the co-occurrence file name for a scope tag.
func PairFile(scopeTag string) string {
	return fmt.Sprintf("cooccurrence_%s.csv", scopeTag)
}

func writeCSV(dir, name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readCSV(dir, name string) ([][]string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &analysis.InputAbsentError{Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file", path)
	}
	return records[1:], nil
}

// f4 formats a float with 4 decimals, or an empty cell for NaN.
func f4(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// f6 formats a float with 6 decimals, or an empty cell for NaN.
func f6(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func parseJSONList(s string) ([]string, error) {
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// WriteClusterSummaries writes clusters_summary.csv.
func WriteClusterSummaries(dir string, summaries []model.ClusterSummary) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.Itoa(s.Cluster),
			strconv.Itoa(s.Matches),
			f4(s.WinRatePct),
			f4(s.MedianFinalRound),
		})
	}
	return writeCSV(dir, FileClusterSummary, []string{"cluster", "n_matches", "winrate_pct", "median_final_round"}, rows)
}

// WriteAssignments writes clusters_assignment.csv, one row per matrix row.
func WriteAssignments(dir string, matchIDs []int64, labels []int) error {
	rows := make([][]string, 0, len(matchIDs))
	for i, id := range matchIDs {
		rows = append(rows, []string{
			strconv.FormatInt(id, 10),
			strconv.Itoa(labels[i]),
		})
	}
	return writeCSV(dir, FileClusterAssignment, []string{"match_id", "cluster"}, rows)
}

// WriteItemStats writes clusters_item_stats.csv.
func WriteItemStats(dir string, stats []model.ClusterItemStat) error {
	rows := make([][]string, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, []string{
			strconv.Itoa(st.Cluster),
			st.Item,
			f6(st.ClusterRate),
			strconv.Itoa(st.ClusterCount),
			f6(st.OverallRate),
			strconv.Itoa(st.OverallCount),
			f6(st.Lift),
			f6(st.RateAdvantage),
		})
	}
	header := []string{"cluster", "item", "cluster_rate", "cluster_count", "overall_rate", "overall_count", "lift", "rate_advantage"}
	return writeCSV(dir, FileClusterItemStats, header, rows)
}

// ReadItemStats reads clusters_item_stats.csv back.
func ReadItemStats(dir string) ([]model.ClusterItemStat, error) {
	records, err := readCSV(dir, FileClusterItemStats)
	if err != nil {
		return nil, err
	}
	stats := make([]model.ClusterItemStat, 0, len(records))
	for _, rec := range records {
		if len(rec) != 8 {
			return nil, fmt.Errorf("%s: expected 8 columns, got %d", FileClusterItemStats, len(rec))
		}
		var st model.ClusterItemStat
		st.Cluster, err = strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s: bad cluster %q", FileClusterItemStats, rec[0])
		}
		st.Item = rec[1]
		if st.ClusterRate, err = parseFloat(rec[2]); err != nil {
			return nil, fmt.Errorf("%s: bad cluster_rate %q", FileClusterItemStats, rec[2])
		}
		if st.ClusterCount, err = strconv.Atoi(rec[3]); err != nil {
			return nil, fmt.Errorf("%s: bad cluster_count %q", FileClusterItemStats, rec[3])
		}
		if st.OverallRate, err = parseFloat(rec[4]); err != nil {
			return nil, fmt.Errorf("%s: bad overall_rate %q", FileClusterItemStats, rec[4])
		}
		if st.OverallCount, err = strconv.Atoi(rec[5]); err != nil {
			return nil, fmt.Errorf("%s: bad overall_count %q", FileClusterItemStats, rec[5])
		}
		if st.Lift, err = parseFloat(rec[6]); err != nil {
			return nil, fmt.Errorf("%s: bad lift %q", FileClusterItemStats, rec[6])
		}
		if st.RateAdvantage, err = parseFloat(rec[7]); err != nil {
			return nil, fmt.Errorf("%s: bad rate_advantage %q", FileClusterItemStats, rec[7])
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// WriteCoreItems writes clusters_core_items.csv. Item lists are stored as
// JSON arrays inside CSV cells; the scope tag records which item scope the
// clustering ran over.
func WriteCoreItems(dir string, cores []model.CoreItemSet, scopeTag string) error {
	rows := make([][]string, 0, len(cores))
	for _, c := range cores {
		rows = append(rows, []string{
			strconv.Itoa(c.Cluster),
			jsonList(c.Items),
			jsonList(c.TopByFreq),
			string(c.Source),
			scopeTag,
		})
	}
	header := []string{"cluster", "core_items", "top_items_freq", "source", "scope"}
	return writeCSV(dir, FileClusterCoreItems, header, rows)
}

// ReadCoreItems reads clusters_core_items.csv and the scope tag it was
// produced under.
func ReadCoreItems(dir string) ([]model.CoreItemSet, string, error) {
	records, err := readCSV(dir, FileClusterCoreItems)
	if err != nil {
		return nil, "", err
	}
	scopeTag := ""
	cores := make([]model.CoreItemSet, 0, len(records))
	for _, rec := range records {
		if len(rec) != 5 {
			return nil, "", fmt.Errorf("%s: expected 5 columns, got %d", FileClusterCoreItems, len(rec))
		}
		var c model.CoreItemSet
		if c.Cluster, err = strconv.Atoi(rec[0]); err != nil {
			return nil, "", fmt.Errorf("%s: bad cluster %q", FileClusterCoreItems, rec[0])
		}
		if c.Items, err = parseJSONList(rec[1]); err != nil {
			return nil, "", fmt.Errorf("%s: bad core_items %q", FileClusterCoreItems, rec[1])
		}
		if c.TopByFreq, err = parseJSONList(rec[2]); err != nil {
			return nil, "", fmt.Errorf("%s: bad top_items_freq %q", FileClusterCoreItems, rec[2])
		}
		c.Source = model.CoreSource(rec[3])
		scopeTag = rec[4]
		cores = append(cores, c)
	}
	return cores, scopeTag, nil
}

// WritePairs writes cooccurrence_<scopeTag>.csv.
func WritePairs(dir string, pairs []model.Pair, scopeTag string) error {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{
			p.A,
			p.B,
			strconv.Itoa(p.NAB),
			strconv.Itoa(p.NA),
			strconv.Itoa(p.NB),
			strconv.Itoa(p.M),
			f6(p.PAB),
			f6(p.PA),
			f6(p.PB),
			f6(p.Lift),
			f6(p.PMI),
			scopeTag,
		})
	}
	header := []string{"item_a", "item_b", "n_ab", "n_a", "n_b", "m", "p_ab", "p_a", "p_b", "lift", "pmi", "scope"}
	return writeCSV(dir, PairFile(scopeTag), header, rows)
}

// ReadPairs reads cooccurrence_<scopeTag>.csv back.
func ReadPairs(dir, scopeTag string) ([]model.Pair, error) {
	records, err := readCSV(dir, PairFile(scopeTag))
	if err != nil {
		return nil, err
	}
	name := PairFile(scopeTag)
	pairs := make([]model.Pair, 0, len(records))
	for _, rec := range records {
		if len(rec) != 12 {
			return nil, fmt.Errorf("%s: expected 12 columns, got %d", name, len(rec))
		}
		var p model.Pair
		p.A, p.B = rec[0], rec[1]
		if p.NAB, err = strconv.Atoi(rec[2]); err != nil {
			return nil, fmt.Errorf("%s: bad n_ab %q", name, rec[2])
		}
		if p.NA, err = strconv.Atoi(rec[3]); err != nil {
			return nil, fmt.Errorf("%s: bad n_a %q", name, rec[3])
		}
		if p.NB, err = strconv.Atoi(rec[4]); err != nil {
			return nil, fmt.Errorf("%s: bad n_b %q", name, rec[4])
		}
		if p.M, err = strconv.Atoi(rec[5]); err != nil {
			return nil, fmt.Errorf("%s: bad m %q", name, rec[5])
		}
		if p.PAB, err = parseFloat(rec[6]); err != nil {
			return nil, fmt.Errorf("%s: bad p_ab %q", name, rec[6])
		}
		if p.PA, err = parseFloat(rec[7]); err != nil {
			return nil, fmt.Errorf("%s: bad p_a %q", name, rec[7])
		}
		if p.PB, err = parseFloat(rec[8]); err != nil {
			return nil, fmt.Errorf("%s: bad p_b %q", name, rec[8])
		}
		if p.Lift, err = parseFloat(rec[9]); err != nil {
			return nil, fmt.Errorf("%s: bad lift %q", name, rec[9])
		}
		if p.PMI, err = parseFloat(rec[10]); err != nil {
			return nil, fmt.Errorf("%s: bad pmi %q", name, rec[10])
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// WriteVariations writes build_variations.csv with 4-decimal rounding on
// the score inputs.
func WriteVariations(dir string, vars []model.Variation) error {
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{
			strconv.Itoa(v.Cluster),
			strconv.Itoa(v.Rank),
			jsonList(v.CorePreview),
			string(v.Type),
			jsonList(v.Anchor),
			jsonList(v.Items[:]),
			f4(v.Lift),
			f4(v.PMI),
			strconv.Itoa(v.PairMatches),
			f4(v.ClusterRateA),
			f4(v.ClusterRateB),
			f4(v.Score),
		})
	}
	header := []string{
		"cluster", "rank", "base_core_preview", "variation_type", "anchor_items",
		"variation_items", "lift", "pmi", "pair_matches", "cluster_rate_a", "cluster_rate_b", "score",
	}
	return writeCSV(dir, FileBuildVariations, header, rows)
}

// WriteRelativeWinrates writes relative_winrate_by_round.csv.
func WriteRelativeWinrates(dir string, rows []model.RoundItemWinrate) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Round),
			r.Item,
			strconv.Itoa(r.NReached),
			strconv.Itoa(r.WinsWith),
			strconv.Itoa(r.WinsWithout),
			f6(r.WinrateWith),
			f6(r.WinrateWithout),
			f6(r.DeltaWinrate),
			f6(r.WilsonWithLo),
			f6(r.WilsonWithHi),
			f6(r.WilsonWithoutLo),
			f6(r.WilsonWithoutHi),
		})
	}
	header := []string{
		"round", "item", "n_reached", "wins_with", "wins_without",
		"winrate_with", "winrate_without", "delta_winrate",
		"wilson_with_lo", "wilson_with_hi", "wilson_without_lo", "wilson_without_hi",
	}
	return writeCSV(dir, FileRelativeWinrate, header, out)
}

// Exists reports whether an artifact file is present in dir.
func Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

package analysis

import (
	"math"
	"sort"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// ClusterStats computes per-(cluster, item) adoption statistics against
// the matrix-wide baseline. Empty clusters produce no rows. Lift is
// normalized to 0 when the overall rate is 0, so every emitted lift is a
// finite non-negative number.
func ClusterStats(m *Matrix, labels []int, k int) []model.ClusterItemStat {
	n := len(m.Rows)
	if n == 0 {
		return nil
	}

	overallCount := make([]int, len(m.Items))
	clusterCount := make([][]int, k)
	clusterSize := make([]int, k)
	for c := range clusterCount {
		clusterCount[c] = make([]int, len(m.Items))
	}
	for i, row := range m.Rows {
		c := labels[i]
		clusterSize[c]++
		for j, v := range row {
			if v > 0 {
				overallCount[j]++
				clusterCount[c][j]++
			}
		}
	}

	var stats []model.ClusterItemStat
	for c := 0; c < k; c++ {
		if clusterSize[c] == 0 {
			continue
		}
		for j, item := range m.Items {
			cRate := float64(clusterCount[c][j]) / float64(clusterSize[c])
			oRate := float64(overallCount[j]) / float64(n)
			lift := 0.0
			if oRate > 0 {
				lift = cRate / oRate
			}
			if math.IsNaN(lift) || math.IsInf(lift, 0) {
				lift = 0
			}
			stats = append(stats, model.ClusterItemStat{
				Cluster:       c,
				Item:          item,
				ClusterRate:   cRate,
				ClusterCount:  clusterCount[c][j],
				OverallRate:   oRate,
				OverallCount:  overallCount[j],
				Lift:          lift,
				RateAdvantage: cRate - oRate,
			})
		}
	}
	return stats
}

// Summaries computes match count, winrate and median final round per
// cluster, including empty ones. Empty clusters carry NaN winrate and
// median; renderers are responsible for the display sentinel. The slice
// is ordered best winrate first, with NaN rows last.
func Summaries(m *Matrix, labels []int, k int) []model.ClusterSummary {
	winrate := make([]float64, k)
	finals := make([][]float64, k)
	sizes := make([]int, k)
	for i := range m.Rows {
		c := labels[i]
		sizes[c]++
		if m.Results[i] == model.ResultWin {
			winrate[c]++
		}
		finals[c] = append(finals[c], float64(m.FinalRounds[i]))
	}

	out := make([]model.ClusterSummary, 0, k)
	for c := 0; c < k; c++ {
		s := model.ClusterSummary{Cluster: c, Matches: sizes[c]}
		if sizes[c] == 0 {
			s.WinRatePct = math.NaN()
			s.MedianFinalRound = math.NaN()
		} else {
			s.WinRatePct = winrate[c] / float64(sizes[c]) * 100
			s.MedianFinalRound = median(finals[c])
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		wi, wj := out[i].WinRatePct, out[j].WinRatePct
		switch {
		case math.IsNaN(wi) && math.IsNaN(wj):
			// fall through to secondary keys
		case math.IsNaN(wi):
			return false
		case math.IsNaN(wj):
			return true
		case wi != wj:
			return wi > wj
		}
		if out[i].Matches != out[j].Matches {
			return out[i].Matches > out[j].Matches
		}
		return out[i].Cluster < out[j].Cluster
	})
	return out
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

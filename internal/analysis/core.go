package analysis

import (
	"sort"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// SelectCoreItems picks the defining item set of each cluster from its
// per-item statistics. An item qualifies when it is both common inside the
// cluster and over-represented versus the baseline; when no item clears the
// thresholds the selector falls back to the cluster's most frequent items
// so every cluster always has a non-empty core.
func SelectCoreItems(stats []model.ClusterItemStat, cfg CoreConfig) []model.CoreItemSet {
	byCluster := make(map[int][]model.ClusterItemStat)
	for _, st := range stats {
		byCluster[st.Cluster] = append(byCluster[st.Cluster], st)
	}
	clusters := make([]int, 0, len(byCluster))
	for c := range byCluster {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	topK := cfg.TopK
	if topK < 1 {
		topK = 1
	}

	out := make([]model.CoreItemSet, 0, len(clusters))
	for _, c := range clusters {
		rows := byCluster[c]

		freqRanked := append([]model.ClusterItemStat(nil), rows...)
		sort.Slice(freqRanked, func(i, j int) bool {
			if freqRanked[i].ClusterRate != freqRanked[j].ClusterRate {
				return freqRanked[i].ClusterRate > freqRanked[j].ClusterRate
			}
			if freqRanked[i].ClusterCount != freqRanked[j].ClusterCount {
				return freqRanked[i].ClusterCount > freqRanked[j].ClusterCount
			}
			return freqRanked[i].Item < freqRanked[j].Item
		})
		topByFreq := itemNames(freqRanked, topK)

		var eligible []model.ClusterItemStat
		for _, st := range rows {
			if st.ClusterRate < cfg.MinClusterRate {
				continue
			}
			if st.Lift < cfg.MinLift {
				continue
			}
			if st.ClusterCount < cfg.MinCount {
				continue
			}
			// Staples owned by nearly every build carry no cluster
			// identity, regardless of lift.
			if cfg.StapleMaxGlobalRate > 0 && st.OverallRate > cfg.StapleMaxGlobalRate {
				continue
			}
			eligible = append(eligible, st)
		}

		set := model.CoreItemSet{Cluster: c, TopByFreq: topByFreq}
		if len(eligible) == 0 {
			set.Items = append([]string(nil), topByFreq...)
			set.Source = model.CoreSourceFallback
		} else {
			sort.Slice(eligible, func(i, j int) bool {
				if eligible[i].Lift != eligible[j].Lift {
					return eligible[i].Lift > eligible[j].Lift
				}
				if eligible[i].ClusterRate != eligible[j].ClusterRate {
					return eligible[i].ClusterRate > eligible[j].ClusterRate
				}
				if eligible[i].ClusterCount != eligible[j].ClusterCount {
					return eligible[i].ClusterCount > eligible[j].ClusterCount
				}
				return eligible[i].Item < eligible[j].Item
			})
			set.Items = itemNames(eligible, topK)
			set.Source = model.CoreSourcePrimary
		}
		out = append(out, set)
	}
	return out
}

func itemNames(rows []model.ClusterItemStat, limit int) []string {
	if limit > len(rows) {
		limit = len(rows)
	}
	names := make([]string, limit)
	for i := 0; i < limit; i++ {
		names[i] = rows[i].Item
	}
	return names
}

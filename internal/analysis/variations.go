package analysis

import (
	"sort"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// Synthesize crosses each cluster's candidate items with the global pair
// statistics to produce ranked two-item build fragments. A pair survives
// when both items are established in the cluster (rate and rate-advantage
// floors) and the pair itself is strongly associated globally (lift and
// PMI floors). The same unordered pair is never emitted twice for one
// cluster, and each cluster keeps at most cfg.MaxPerCluster variations.
func Synthesize(cores []model.CoreItemSet, stats []model.ClusterItemStat, pairs []model.Pair, cfg VariationConfig) []model.Variation {
	statByCluster := make(map[int]map[string]model.ClusterItemStat)
	for _, st := range stats {
		if statByCluster[st.Cluster] == nil {
			statByCluster[st.Cluster] = make(map[string]model.ClusterItemStat)
		}
		statByCluster[st.Cluster][st.Item] = st
	}

	// Index pairs by either member so candidate lookup is linear in the
	// pairs that can actually match.
	pairIdx := make(map[string][]int)
	for i, p := range pairs {
		pairIdx[p.A] = append(pairIdx[p.A], i)
		pairIdx[p.B] = append(pairIdx[p.B], i)
	}

	maxPer := cfg.MaxPerCluster
	if maxPer < 1 {
		maxPer = 1
	}
	previewSize := cfg.CorePreviewSize
	if previewSize < 1 {
		previewSize = 1
	}

	sortedCores := append([]model.CoreItemSet(nil), cores...)
	sort.Slice(sortedCores, func(i, j int) bool { return sortedCores[i].Cluster < sortedCores[j].Cluster })

	var out []model.Variation
	for _, core := range sortedCores {
		clusterStats := statByCluster[core.Cluster]
		if len(clusterStats) == 0 {
			continue
		}

		candidates := make(map[string]model.ClusterItemStat)
		for item, st := range clusterStats {
			if st.ClusterRate >= cfg.MinClusterRate && st.RateAdvantage >= cfg.MinRateAdvantage {
				candidates[item] = st
			}
		}
		if len(candidates) < 2 {
			continue
		}
		candidateList := make([]string, 0, len(candidates))
		for item := range candidates {
			candidateList = append(candidateList, item)
		}
		sort.Strings(candidateList)

		coreSet := make(map[string]struct{}, len(core.Items))
		for _, item := range core.Items {
			coreSet[item] = struct{}{}
		}

		preview := core.Items
		if len(preview) > previewSize {
			preview = preview[:previewSize]
		}

		type pairKey struct{ a, b string }
		seen := make(map[pairKey]struct{})
		var vars []model.Variation
		for _, item := range candidateList {
			for _, pi := range pairIdx[item] {
				p := pairs[pi]
				other := p.B
				if other == item {
					other = p.A
				}
				otherStat, ok := candidates[other]
				if !ok {
					continue
				}
				if _, dup := seen[pairKey{p.A, p.B}]; dup {
					continue
				}
				seen[pairKey{p.A, p.B}] = struct{}{}
				if p.Lift < cfg.MinLift || p.PMI < cfg.MinPMI {
					continue
				}

				statA, statB := candidates[p.A], otherStat
				if other == p.A {
					statA, statB = otherStat, candidates[p.B]
				}

				var anchor []string
				_, aCore := coreSet[p.A]
				_, bCore := coreSet[p.B]
				vtype := model.VariationFlexPair
				switch {
				case aCore && bCore:
					vtype = model.VariationCorePair
					anchor = []string{p.A, p.B}
				case aCore:
					vtype = model.VariationCoreFlex
					anchor = []string{p.A}
				case bCore:
					vtype = model.VariationCoreFlex
					anchor = []string{p.B}
				}

				vars = append(vars, model.Variation{
					Cluster:      core.Cluster,
					CorePreview:  append([]string(nil), preview...),
					Type:         vtype,
					Anchor:       anchor,
					Items:        [2]string{p.A, p.B},
					Lift:         p.Lift,
					PMI:          p.PMI,
					PairMatches:  p.NAB,
					ClusterRateA: statA.ClusterRate,
					ClusterRateB: statB.ClusterRate,
					Score:        p.Lift * p.PMI * (statA.ClusterRate + statB.ClusterRate) / 2,
				})
			}
		}

		sort.Slice(vars, func(i, j int) bool {
			if vars[i].Score != vars[j].Score {
				return vars[i].Score > vars[j].Score
			}
			if vars[i].Items[0] != vars[j].Items[0] {
				return vars[i].Items[0] < vars[j].Items[0]
			}
			return vars[i].Items[1] < vars[j].Items[1]
		})
		if len(vars) > maxPer {
			vars = vars[:maxPer]
		}
		for i := range vars {
			vars[i].Rank = i + 1
		}
		out = append(out, vars...)
	}
	return out
}

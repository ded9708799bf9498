package analysis

import (
	"math"
	"sort"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// PairStats mines item co-occurrence over the scoped (match, item) set.
// Each match contributes its deduplicated item set; pairs are canonical
// with A < B lexicographically so (A,B) and (B,A) never both appear.
// Pairs below cfg.MinPairCount matches are dropped. Lift and PMI are only
// emitted for pairs whose marginals are positive, which holds for every
// observed pair by construction.
func PairStats(scope []model.ScopeItem, cfg PairConfig) []model.Pair {
	itemsByMatch := make(map[int64]map[string]struct{})
	for _, si := range scope {
		if itemsByMatch[si.MatchID] == nil {
			itemsByMatch[si.MatchID] = make(map[string]struct{})
		}
		itemsByMatch[si.MatchID][si.ItemName] = struct{}{}
	}
	m := len(itemsByMatch)
	if m == 0 {
		return nil
	}

	type key struct{ a, b string }
	nA := make(map[string]int)
	nAB := make(map[key]int)
	for _, set := range itemsByMatch {
		items := make([]string, 0, len(set))
		for name := range set {
			items = append(items, name)
		}
		sort.Strings(items)
		for i, a := range items {
			nA[a]++
			for _, b := range items[i+1:] {
				nAB[key{a, b}]++
			}
		}
	}

	minPair := cfg.MinPairCount
	if minPair < 1 {
		minPair = 1
	}

	pairs := make([]model.Pair, 0, len(nAB))
	for k, count := range nAB {
		if count < minPair {
			continue
		}
		pA := float64(nA[k.a]) / float64(m)
		pB := float64(nA[k.b]) / float64(m)
		pAB := float64(count) / float64(m)
		if pA <= 0 || pB <= 0 {
			continue
		}
		lift := pAB / (pA * pB)
		pairs = append(pairs, model.Pair{
			A: k.a, B: k.b,
			NAB: count, NA: nA[k.a], NB: nA[k.b], M: m,
			PAB: pAB, PA: pA, PB: pB,
			Lift: lift,
			PMI:  math.Log2(lift),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].PMI != pairs[j].PMI {
			return pairs[i].PMI > pairs[j].PMI
		}
		if pairs[i].Lift != pairs[j].Lift {
			return pairs[i].Lift > pairs[j].Lift
		}
		if pairs[i].NAB != pairs[j].NAB {
			return pairs[i].NAB > pairs[j].NAB
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

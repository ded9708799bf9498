package analysis

import (
	"sort"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// Matrix is the binary (match x item) presence matrix with its aligned
// labels. Rows, Results and FinalRounds share the row index given by
// MatchIDs for the lifetime of one analysis run; Items gives the column
// index. Rows and columns are sorted (match id asc, item name asc) so a
// re-run over unchanged facts is byte-identical downstream.
type Matrix struct {
	MatchIDs    []int64
	Items       []string
	Rows        [][]float64
	Results     []string
	FinalRounds []int
}

// NumMatches returns the row count.
func (m *Matrix) NumMatches() int { return len(m.MatchIDs) }

// BuildMatrix converts in-scope item facts into the binary feature matrix.
// Items seen in fewer than cfg.MinItemFreq matches are dropped, the rest
// truncated to the cfg.MaxItems most frequent; matches without any retained
// item drop out of the row set. The returned frequency list covers all
// items pre-filter (most frequent first) for operator diagnostics.
//
// A fact row with an absent result label fails with DataInconsistencyError:
// the statistics engine would otherwise misattribute wins silently.
func BuildMatrix(facts []model.ItemFact, cfg ClusterConfig) (*Matrix, []model.ItemFreq, error) {
	freqByItem := make(map[string]int)
	for _, f := range facts {
		freqByItem[f.ItemName]++
	}
	freqs := make([]model.ItemFreq, 0, len(freqByItem))
	for name, n := range freqByItem {
		freqs = append(freqs, model.ItemFreq{ItemName: name, Count: n, Matches: n})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].ItemName < freqs[j].ItemName
	})

	keep := make(map[string]struct{})
	for _, f := range freqs {
		if f.Count < cfg.MinItemFreq {
			continue
		}
		keep[f.ItemName] = struct{}{}
		if cfg.MaxItems > 0 && len(keep) == cfg.MaxItems {
			break
		}
	}
	if len(keep) == 0 {
		return nil, freqs, &EmptyAfterFilterError{Stage: "item frequency", TopItems: freqs}
	}

	// Collect retained facts per match along with the match labels.
	type labels struct {
		result     string
		finalRound int
		seen       bool
	}
	itemsByMatch := make(map[int64]map[string]struct{})
	labelByMatch := make(map[int64]labels)
	for _, f := range facts {
		if _, ok := keep[f.ItemName]; !ok {
			continue
		}
		if prev, ok := labelByMatch[f.MatchID]; ok {
			if prev.result != f.Result || prev.finalRound != f.FinalRound {
				return nil, freqs, &DataInconsistencyError{MatchID: f.MatchID, Missing: "consistent result"}
			}
		} else {
			labelByMatch[f.MatchID] = labels{result: f.Result, finalRound: f.FinalRound, seen: true}
		}
		if itemsByMatch[f.MatchID] == nil {
			itemsByMatch[f.MatchID] = make(map[string]struct{})
		}
		itemsByMatch[f.MatchID][f.ItemName] = struct{}{}
	}
	if len(itemsByMatch) == 0 {
		return nil, freqs, &EmptyAfterFilterError{Stage: "matrix", TopItems: freqs}
	}

	items := make([]string, 0, len(keep))
	for name := range keep {
		items = append(items, name)
	}
	sort.Strings(items)
	colIdx := make(map[string]int, len(items))
	for i, name := range items {
		colIdx[name] = i
	}

	matchIDs := make([]int64, 0, len(itemsByMatch))
	for id := range itemsByMatch {
		matchIDs = append(matchIDs, id)
	}
	sort.Slice(matchIDs, func(i, j int) bool { return matchIDs[i] < matchIDs[j] })

	m := &Matrix{
		MatchIDs:    matchIDs,
		Items:       items,
		Rows:        make([][]float64, len(matchIDs)),
		Results:     make([]string, len(matchIDs)),
		FinalRounds: make([]int, len(matchIDs)),
	}
	for i, id := range matchIDs {
		row := make([]float64, len(items))
		for name := range itemsByMatch[id] {
			row[colIdx[name]] = 1
		}
		m.Rows[i] = row

		lb := labelByMatch[id]
		if !lb.seen || lb.result == "" {
			return nil, freqs, &DataInconsistencyError{MatchID: id, Missing: "result"}
		}
		m.Results[i] = lb.result
		m.FinalRounds[i] = lb.finalRound
	}
	return m, freqs, nil
}

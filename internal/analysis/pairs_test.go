package analysis

import (
	"math"
	"testing"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// scopeOf builds ScopeItems from per-match item lists, match ids 1..n.
func scopeOf(matches ...[]string) []model.ScopeItem {
	var out []model.ScopeItem
	for i, items := range matches {
		for _, item := range items {
			out = append(out, model.ScopeItem{MatchID: int64(i + 1), ItemName: item})
		}
	}
	return out
}

func pairConfig(minPair int) PairConfig {
	cfg := DefaultPairConfig()
	cfg.MinPairCount = minPair
	return cfg
}

func TestPairStats_LiftAndPMI(t *testing.T) {
	// 10 matches: A in 4 (p=0.4), B in 3 (p=0.3), together in 2 (p=0.2).
	// lift = 0.2 / 0.12 = 1.667, pmi = log2(1.667) = 0.737.
	scope := scopeOf(
		[]string{"A", "B"},
		[]string{"A", "B"},
		[]string{"A"},
		[]string{"A"},
		[]string{"B"},
		[]string{"C"}, []string{"C"}, []string{"C"}, []string{"C"}, []string{"C"},
	)

	pairs := PairStats(scope, pairConfig(2))
	var ab *model.Pair
	for i := range pairs {
		if pairs[i].A == "A" && pairs[i].B == "B" {
			ab = &pairs[i]
		}
	}
	if ab == nil {
		t.Fatalf("pair (A,B) missing from %+v", pairs)
	}
	if ab.NAB != 2 || ab.NA != 4 || ab.NB != 3 || ab.M != 10 {
		t.Fatalf("pair counts = %+v, want nAB=2 nA=4 nB=3 M=10", ab)
	}
	if math.Abs(ab.Lift-1.6666666666666667) > 1e-12 {
		t.Errorf("lift = %v, want 1.667", ab.Lift)
	}
	if math.Abs(ab.PMI-math.Log2(ab.Lift)) > 1e-12 {
		t.Errorf("pmi = %v, want log2(lift)", ab.PMI)
	}
}

func TestPairStats_CanonicalOrderAndBounds(t *testing.T) {
	scope := scopeOf(
		[]string{"zebra", "apple"},
		[]string{"zebra", "apple"},
		[]string{"zebra"},
	)

	pairs := PairStats(scope, pairConfig(1))
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	p := pairs[0]
	if p.A != "apple" || p.B != "zebra" {
		t.Errorf("pair not canonical: (%s, %s)", p.A, p.B)
	}
	if p.NAB > p.NA || p.NAB > p.NB || p.NA > p.M || p.NB > p.M {
		t.Errorf("count bounds violated: %+v", p)
	}
}

func TestPairStats_DuplicateItemsCountOnce(t *testing.T) {
	// The same (match, item) fact appearing twice must not inflate counts.
	scope := []model.ScopeItem{
		{MatchID: 1, ItemName: "A"},
		{MatchID: 1, ItemName: "A"},
		{MatchID: 1, ItemName: "B"},
		{MatchID: 2, ItemName: "A"},
		{MatchID: 2, ItemName: "B"},
	}
	pairs := PairStats(scope, pairConfig(1))
	if len(pairs) != 1 || pairs[0].NAB != 2 || pairs[0].NA != 2 {
		t.Fatalf("duplicate facts inflated counts: %+v", pairs)
	}
}

func TestPairStats_MinPairFilter(t *testing.T) {
	scope := scopeOf(
		[]string{"A", "B"},
		[]string{"A", "C"},
		[]string{"A", "C"},
	)
	pairs := PairStats(scope, pairConfig(2))
	if len(pairs) != 1 || pairs[0].A != "A" || pairs[0].B != "C" {
		t.Fatalf("expected only (A,C) to survive min-pair=2, got %+v", pairs)
	}
}

func TestPairStats_SortedByPMI(t *testing.T) {
	scope := scopeOf(
		[]string{"A", "B"},
		[]string{"A", "B"},
		[]string{"C", "D", "A"},
		[]string{"C", "D"},
		[]string{"C"},
		[]string{"E"}, []string{"E"},
	)
	pairs := PairStats(scope, pairConfig(1))
	for i := 1; i < len(pairs); i++ {
		if pairs[i].PMI > pairs[i-1].PMI {
			t.Fatalf("pairs not sorted by pmi desc: %+v", pairs)
		}
	}
}

func TestPairStats_EmptyScope(t *testing.T) {
	if pairs := PairStats(nil, DefaultPairConfig()); pairs != nil {
		t.Errorf("expected nil for empty scope, got %+v", pairs)
	}
}

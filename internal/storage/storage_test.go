package storage

import (
	"math"
	"testing"

	"github.com/pable/go-bpb-metrics/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedMatches loads three small matches:
//
//	match 1 (win,  final 3): Pan / Pan,Sword / Pan,Sword
//	match 2 (loss, final 2): Banana / Banana,Pan
//	match 3 (win,  final 3): Sword / Sword / Sword,Banana
func seedMatches(t *testing.T, db *DB) {
	t.Helper()
	rounds := []model.Round{
		{MatchID: 1, RoundIndex: 1, Result: "win", Gold: 5, SourceFile: "a.json"},
		{MatchID: 1, RoundIndex: 2, Result: "win", Gold: 7, SourceFile: "a.json"},
		{MatchID: 1, RoundIndex: 3, Result: "win", Gold: 9, SourceFile: "a.json"},
		{MatchID: 2, RoundIndex: 1, Result: "win", Gold: 4, SourceFile: "a.json"},
		{MatchID: 2, RoundIndex: 2, Result: "loss", Gold: 3, SourceFile: "a.json"},
		{MatchID: 3, RoundIndex: 1, Result: "loss", Gold: 6, SourceFile: "b.json"},
		{MatchID: 3, RoundIndex: 2, Result: "win", Gold: 8, SourceFile: "b.json"},
		{MatchID: 3, RoundIndex: 3, Result: "win", Gold: 10, SourceFile: "b.json"},
	}
	items := []model.RoundItem{
		{MatchID: 1, RoundIndex: 1, ItemName: "Pan", ItemCount: 1, SourceFile: "a.json"},
		{MatchID: 1, RoundIndex: 2, ItemName: "Pan", ItemCount: 1, SourceFile: "a.json"},
		{MatchID: 1, RoundIndex: 2, ItemName: "Sword", ItemCount: 1, SourceFile: "a.json"},
		{MatchID: 1, RoundIndex: 3, ItemName: "Pan", ItemCount: 2, SourceFile: "a.json"},
		{MatchID: 1, RoundIndex: 3, ItemName: "Sword", ItemCount: 1, SourceFile: "a.json"},
		{MatchID: 2, RoundIndex: 1, ItemName: "Banana", ItemCount: 1, SourceFile: "a.json"},
		{MatchID: 2, RoundIndex: 2, ItemName: "Banana", ItemCount: 2, SourceFile: "a.json"},
		{MatchID: 2, RoundIndex: 2, ItemName: "Pan", ItemCount: 1, SourceFile: "a.json"},
		{MatchID: 3, RoundIndex: 1, ItemName: "Sword", ItemCount: 1, SourceFile: "b.json"},
		{MatchID: 3, RoundIndex: 2, ItemName: "Sword", ItemCount: 1, SourceFile: "b.json"},
		{MatchID: 3, RoundIndex: 3, ItemName: "Banana", ItemCount: 1, SourceFile: "b.json"},
		{MatchID: 3, RoundIndex: 3, ItemName: "Sword", ItemCount: 2, SourceFile: "b.json"},
	}
	if err := db.InsertRounds(rounds); err != nil {
		t.Fatalf("InsertRounds: %v", err)
	}
	if err := db.InsertRoundItems(items); err != nil {
		t.Fatalf("InsertRoundItems: %v", err)
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)
	// Re-ingesting the same file must not duplicate facts.
	seedMatches(t, db)

	rounds, items, err := db.FactCounts()
	if err != nil {
		t.Fatalf("FactCounts: %v", err)
	}
	if rounds != 8 || items != 12 {
		t.Errorf("counts after re-ingest = (%d, %d), want (8, 12)", rounds, items)
	}
}

func TestListMatches(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	matches, err := db.ListMatches(0)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	// Newest match id first.
	if matches[0].MatchID != 3 || matches[2].MatchID != 1 {
		t.Errorf("match order = %v", matches)
	}
	if matches[0].FinalRound != 3 || matches[0].Result != "win" {
		t.Errorf("match 3 = %+v, want final 3 win", matches[0])
	}
	if matches[1].FinalRound != 2 || matches[1].Result != "loss" {
		t.Errorf("match 2 = %+v, want final 2 loss", matches[1])
	}

	limited, err := db.ListMatches(1)
	if err != nil {
		t.Fatalf("ListMatches limited: %v", err)
	}
	if len(limited) != 1 || limited[0].MatchID != 3 {
		t.Errorf("limited list = %v", limited)
	}
}

func TestItemFacts_FinalScope(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	facts, err := db.ItemFacts(1)
	if err != nil {
		t.Fatalf("ItemFacts: %v", err)
	}
	// Final rounds carry: m1 Pan,Sword; m2 Banana,Pan; m3 Banana,Sword.
	want := []model.ItemFact{
		{MatchID: 1, ItemName: "Pan", Result: "win", FinalRound: 3},
		{MatchID: 1, ItemName: "Sword", Result: "win", FinalRound: 3},
		{MatchID: 2, ItemName: "Banana", Result: "loss", FinalRound: 2},
		{MatchID: 2, ItemName: "Pan", Result: "loss", FinalRound: 2},
		{MatchID: 3, ItemName: "Banana", Result: "win", FinalRound: 3},
		{MatchID: 3, ItemName: "Sword", Result: "win", FinalRound: 3},
	}
	if len(facts) != len(want) {
		t.Fatalf("expected %d facts, got %d: %+v", len(want), len(facts), facts)
	}
	for i, f := range facts {
		if f != want[i] {
			t.Errorf("fact %d = %+v, want %+v", i, f, want[i])
		}
	}
}

func TestScopeItems_TopN(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	// Last 2 rounds: match 1 adds nothing new over its final round, match 2
	// covers both rounds, match 3 picks up round 2's Sword only.
	scope, err := db.ScopeItems(2)
	if err != nil {
		t.Fatalf("ScopeItems: %v", err)
	}
	want := []model.ScopeItem{
		{MatchID: 1, ItemName: "Pan"},
		{MatchID: 1, ItemName: "Sword"},
		{MatchID: 2, ItemName: "Banana"},
		{MatchID: 2, ItemName: "Pan"},
		{MatchID: 3, ItemName: "Banana"},
		{MatchID: 3, ItemName: "Sword"},
	}
	if len(scope) != len(want) {
		t.Fatalf("expected %d scope items, got %d: %+v", len(want), len(scope), scope)
	}
	for i, s := range scope {
		if s != want[i] {
			t.Errorf("scope item %d = %+v, want %+v", i, s, want[i])
		}
	}
}

func TestOverview(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	ov, err := db.Overview()
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.Matches != 3 || ov.Wins != 2 || ov.Losses != 1 {
		t.Errorf("overview = %+v, want 3 matches, 2 wins, 1 loss", ov)
	}
	if math.Abs(ov.AvgFinalRound-8.0/3.0) > 1e-9 {
		t.Errorf("avg final round = %v, want 2.667", ov.AvgFinalRound)
	}
	if ov.MinFinalRound != 2 || ov.MaxFinalRound != 3 {
		t.Errorf("final round bounds = (%d, %d), want (2, 3)", ov.MinFinalRound, ov.MaxFinalRound)
	}
	if ov.ShareLongFinals != 0 {
		t.Errorf("share of long finals = %v, want 0", ov.ShareLongFinals)
	}
}

func TestOverview_EmptyDB(t *testing.T) {
	db := openMemDB(t)
	ov, err := db.Overview()
	if err != nil {
		t.Fatalf("Overview on empty db: %v", err)
	}
	if ov.Matches != 0 || ov.Wins != 0 {
		t.Errorf("empty overview = %+v", ov)
	}
}

func TestRoundsReachedAndWinrateByFinalRound(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	reached, err := db.RoundsReached()
	if err != nil {
		t.Fatalf("RoundsReached: %v", err)
	}
	want := []model.RoundReached{{Round: 1, Matches: 3}, {Round: 2, Matches: 3}, {Round: 3, Matches: 2}}
	if len(reached) != len(want) {
		t.Fatalf("rounds reached = %+v", reached)
	}
	for i, r := range reached {
		if r != want[i] {
			t.Errorf("reached[%d] = %+v, want %+v", i, r, want[i])
		}
	}

	byFinal, err := db.WinrateByFinalRound()
	if err != nil {
		t.Fatalf("WinrateByFinalRound: %v", err)
	}
	if len(byFinal) != 2 {
		t.Fatalf("winrate by final round = %+v", byFinal)
	}
	if byFinal[0].FinalRound != 2 || byFinal[0].Winrate != 0 {
		t.Errorf("final round 2 = %+v, want winrate 0", byFinal[0])
	}
	if byFinal[1].FinalRound != 3 || byFinal[1].Winrate != 1 {
		t.Errorf("final round 3 = %+v, want winrate 1", byFinal[1])
	}
}

func TestItemFrequencies(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	top, err := db.TopItemFrequencies(2)
	if err != nil {
		t.Fatalf("TopItemFrequencies: %v", err)
	}
	// Pan and Sword each appear in 5 fact rows; ties break by name.
	if len(top) != 2 || top[0].ItemName != "Pan" || top[1].ItemName != "Sword" {
		t.Fatalf("top frequencies = %+v", top)
	}
	if top[0].Count != 5 || top[0].Matches != 2 {
		t.Errorf("Pan freq = %+v, want 5 rows in 2 matches", top[0])
	}

	final, err := db.FinalItemFrequencies(0)
	if err != nil {
		t.Fatalf("FinalItemFrequencies: %v", err)
	}
	// Final rounds: Pan(m1,m2) Sword(m1,m3) Banana(m2,m3).
	if len(final) != 3 {
		t.Fatalf("final frequencies = %+v", final)
	}
	for _, f := range final {
		if f.Matches != 2 {
			t.Errorf("final freq %s = %+v, want 2 matches", f.ItemName, f)
		}
	}
}

func TestRelativeWinrateRows(t *testing.T) {
	db := openMemDB(t)
	seedMatches(t, db)

	rows, err := db.RelativeWinrateRows(1)
	if err != nil {
		t.Fatalf("RelativeWinrateRows: %v", err)
	}
	byKey := make(map[[2]interface{}]model.RoundItemWinrate)
	for _, r := range rows {
		byKey[[2]interface{}{r.Round, r.Item}] = r
	}

	// Round 2: 3 matches reached it, rounds won by m1 and m3. Sword was
	// carried by both winners, Banana only by the loser.
	sword := byKey[[2]interface{}{2, "Sword"}]
	if sword.NReached != 3 || sword.WinsWith != 2 || sword.WinsWithout != 0 {
		t.Errorf("round 2 Sword = %+v, want n=3 with=2 without=0", sword)
	}
	if math.Abs(sword.DeltaWinrate-2.0/3.0) > 1e-9 {
		t.Errorf("round 2 Sword delta = %v, want 0.667", sword.DeltaWinrate)
	}
	banana := byKey[[2]interface{}{2, "Banana"}]
	if banana.WinsWith != 0 || banana.WinsWithout != 2 {
		t.Errorf("round 2 Banana = %+v, want with=0 without=2", banana)
	}

	// A high threshold drops every round.
	none, err := db.RelativeWinrateRows(10)
	if err != nil {
		t.Fatalf("RelativeWinrateRows thresholded: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no rows above threshold, got %+v", none)
	}
}

package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadFile_SingleMatch(t *testing.T) {
	path := writeLog(t, "match17.json", `{
		"matchIndex": 17,
		"rounds": [
			{"roundIndex": 1, "result": "Win", "gold": 12,
			 "items": {"Wooden Sword": 1, "Banana": 2}},
			{"roundIndex": 2, "result": "Loss", "gold": 8,
			 "items": {"Wooden Sword": 1}}
		]
	}`)

	rounds, items, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	r := rounds[0]
	if r.MatchID != 17 || r.RoundIndex != 1 || r.Gold != 12 {
		t.Errorf("round = %+v", r)
	}
	// Results are normalized to lowercase at decode time.
	if r.Result != "win" || rounds[1].Result != "loss" {
		t.Errorf("results = %q, %q; want lowercase", r.Result, rounds[1].Result)
	}
	if r.SourceFile != "match17.json" {
		t.Errorf("source file = %q, want base name", r.SourceFile)
	}

	if len(items) != 3 {
		t.Fatalf("expected 3 item facts, got %d", len(items))
	}
	// Round 1 items come out sorted by name.
	if items[0].ItemName != "Banana" || items[0].ItemCount != 2 {
		t.Errorf("first item = %+v, want Banana x2", items[0])
	}
	if items[1].ItemName != "Wooden Sword" {
		t.Errorf("second item = %+v, want Wooden Sword", items[1])
	}
}

func TestReadFile_MatchArray(t *testing.T) {
	path := writeLog(t, "batch.json", `[
		{"matchIndex": 1, "rounds": [{"roundIndex": 1, "result": "win", "gold": 5, "items": {"Pan": 1}}]},
		{"matchIndex": 2, "rounds": [{"roundIndex": 1, "result": "loss", "gold": 3, "items": {}}]}
	]`)

	rounds, items, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds across matches, got %d", len(rounds))
	}
	if rounds[1].MatchID != 2 {
		t.Errorf("second round match id = %d, want 2", rounds[1].MatchID)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item fact, got %d", len(items))
	}
}

func TestReadFile_DropsNonPositiveCounts(t *testing.T) {
	path := writeLog(t, "zeroes.json", `{
		"matchIndex": 3,
		"rounds": [{"roundIndex": 1, "result": "win", "gold": 0,
			"items": {"Ghost": 0, "Debt": -1, "Pan": 1}}]
	}`)

	_, items, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(items) != 1 || items[0].ItemName != "Pan" {
		t.Errorf("expected only Pan to survive, got %+v", items)
	}
}

func TestReadFile_Malformed(t *testing.T) {
	path := writeLog(t, "bad.json", `{"matchIndex": "not-a-number"`)
	if _, _, err := ReadFile(path); err == nil {
		t.Error("expected decode error")
	}

	empty := writeLog(t, "empty.json", "  \n")
	if _, _, err := ReadFile(empty); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	files, err := ExpandPaths([]string{dir})
	if err != nil {
		t.Fatalf("ExpandPaths: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 json files, got %v", files)
	}
	// Sorted output keeps ingest order stable across runs.
	if filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.json" {
		t.Errorf("files not sorted: %v", files)
	}

	if _, err := ExpandPaths([]string{filepath.Join(dir, "missing.json")}); err == nil {
		t.Error("expected error for missing path")
	}
}

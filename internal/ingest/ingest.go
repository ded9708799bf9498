// Package ingest decodes raw scraped battle-log JSON files into normalized
// round and item facts.
//
// A log file carries one match (or an array of matches) in the scraper's
// shape:
//
//	{"matchIndex": 17, "rounds": [
//	    {"roundIndex": 1, "result": "Win", "gold": 12,
//	     "items": {"Wooden Sword": 1, "Banana": 2}}, ...]}
//
// Results are lowercased and zero/negative item counts dropped at decode
// time so the fact store only ever sees normalized rows.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pable/go-bpb-metrics/internal/model"
)

type rawRound struct {
	RoundIndex int            `json:"roundIndex"`
	Result     string         `json:"result"`
	Gold       int            `json:"gold"`
	Items      map[string]int `json:"items"`
}

type rawMatch struct {
	MatchIndex int64      `json:"matchIndex"`
	Rounds     []rawRound `json:"rounds"`
}

// ReadFile decodes one battle-log file into round and item facts.
// Both a single match object and an array of matches are accepted.
func ReadFile(path string) ([]model.Round, []model.RoundItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	matches, err := decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}

	source := filepath.Base(path)
	var rounds []model.Round
	var items []model.RoundItem
	for _, m := range matches {
		for _, r := range m.Rounds {
			rounds = append(rounds, model.Round{
				MatchID:    m.MatchIndex,
				RoundIndex: r.RoundIndex,
				Result:     strings.ToLower(r.Result),
				Gold:       r.Gold,
				SourceFile: source,
			})

			// Deterministic insert order for identical re-ingests.
			names := make([]string, 0, len(r.Items))
			for name, count := range r.Items {
				if count > 0 {
					names = append(names, name)
				}
			}
			sort.Strings(names)
			for _, name := range names {
				items = append(items, model.RoundItem{
					MatchID:    m.MatchIndex,
					RoundIndex: r.RoundIndex,
					ItemName:   name,
					ItemCount:  r.Items[name],
					SourceFile: source,
				})
			}
		}
	}
	return rounds, items, nil
}

func decode(data []byte) ([]rawMatch, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if trimmed[0] == '[' {
		var matches []rawMatch
		if err := json.Unmarshal(data, &matches); err != nil {
			return nil, err
		}
		return matches, nil
	}
	var m rawMatch
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return []rawMatch{m}, nil
}

// ExpandPaths resolves a mix of .json files and directories into the sorted
// list of log files to ingest. Directories are scanned non-recursively.
func ExpandPaths(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no .json files in %s", arg)
		}
		files = append(files, found...)
	}
	sort.Strings(files)
	return files, nil
}

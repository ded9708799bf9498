package storage

import (
	"database/sql"
	"fmt"

	"github.com/pable/go-bpb-metrics/internal/model"
)

// lastRoundCTE resolves each match's final round number.
const lastRoundCTE = `
	last_round AS (
		SELECT match_id, MAX(round_index) AS last_r
		FROM rounds
		GROUP BY match_id
	)`

// InsertRounds bulk-upserts round facts in a transaction.
// Uses INSERT OR REPLACE so re-ingesting a file is idempotent.
func (db *DB) InsertRounds(rows []model.Round) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO rounds(match_id, round_index, result, gold, source_file)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.MatchID, r.RoundIndex, r.Result, r.Gold, r.SourceFile); err != nil {
			return fmt.Errorf("insert round %d/%d: %w", r.MatchID, r.RoundIndex, err)
		}
	}
	return tx.Commit()
}

// InsertRoundItems bulk-upserts item facts in a transaction.
func (db *DB) InsertRoundItems(rows []model.RoundItem) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO round_items(match_id, round_index, item_name, item_count, source_file)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range rows {
		if _, err := stmt.Exec(it.MatchID, it.RoundIndex, it.ItemName, it.ItemCount, it.SourceFile); err != nil {
			return fmt.Errorf("insert round_item %d/%d/%s: %w", it.MatchID, it.RoundIndex, it.ItemName, err)
		}
	}
	return tx.Commit()
}

// FactCounts returns the stored row counts of both fact tables.
func (db *DB) FactCounts() (rounds, items int, err error) {
	if err = db.conn.QueryRow("SELECT COUNT(*) FROM rounds").Scan(&rounds); err != nil {
		return 0, 0, err
	}
	if err = db.conn.QueryRow("SELECT COUNT(*) FROM round_items").Scan(&items); err != nil {
		return 0, 0, err
	}
	return rounds, items, nil
}

// ListMatches returns stored matches (final round + terminal result), newest
// match id first. limit <= 0 returns everything.
func (db *DB) ListMatches(limit int) ([]model.Match, error) {
	q := `
		WITH` + lastRoundCTE + `
		SELECT r.match_id, lr.last_r, r.result, r.source_file
		FROM last_round lr
		JOIN rounds r ON r.match_id = lr.match_id AND r.round_index = lr.last_r
		ORDER BY r.match_id DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := db.conn.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var m model.Match
		if err := rows.Scan(&m.MatchID, &m.FinalRound, &m.Result, &m.SourceFile); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ItemFacts returns one row per (match, item) present in the last lastN
// rounds of each match, joined with the match's terminal result and final
// round. lastN <= 1 restricts to the final round only.
func (db *DB) ItemFacts(lastN int) ([]model.ItemFact, error) {
	if lastN < 1 {
		lastN = 1
	}
	rows, err := db.conn.Query(`
		WITH`+lastRoundCTE+`
		SELECT DISTINCT ri.match_id, ri.item_name, r.result, lr.last_r
		FROM round_items ri
		JOIN last_round lr ON lr.match_id = ri.match_id
		JOIN rounds r ON r.match_id = lr.match_id AND r.round_index = lr.last_r
		WHERE ri.round_index > lr.last_r - ?
		ORDER BY ri.match_id, ri.item_name`, lastN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ItemFact
	for rows.Next() {
		var f model.ItemFact
		if err := rows.Scan(&f.MatchID, &f.ItemName, &f.Result, &f.FinalRound); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ScopeItems returns the distinct (match, item) presence facts over the last
// lastN rounds of each match. lastN <= 1 means final round only.
func (db *DB) ScopeItems(lastN int) ([]model.ScopeItem, error) {
	if lastN < 1 {
		lastN = 1
	}
	rows, err := db.conn.Query(`
		WITH`+lastRoundCTE+`
		SELECT DISTINCT ri.match_id, ri.item_name
		FROM round_items ri
		JOIN last_round lr ON lr.match_id = ri.match_id
		WHERE ri.round_index > lr.last_r - ?
		ORDER BY ri.match_id, ri.item_name`, lastN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScopeItem
	for rows.Next() {
		var s model.ScopeItem
		if err := rows.Scan(&s.MatchID, &s.ItemName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DistinctMatchItems returns every distinct (match, item) fact across all
// rounds. Used by the class-restriction filter, which matches a regex
// against any item a match ever carried.
func (db *DB) DistinctMatchItems() ([]model.ScopeItem, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT match_id, item_name
		FROM round_items
		ORDER BY match_id, item_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScopeItem
	for rows.Next() {
		var s model.ScopeItem
		if err := rows.Scan(&s.MatchID, &s.ItemName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TopItemFrequencies returns overall item frequencies, most common first.
// limit <= 0 returns everything.
func (db *DB) TopItemFrequencies(limit int) ([]model.ItemFreq, error) {
	q := `
		SELECT item_name, COUNT(*) AS cnt, COUNT(DISTINCT match_id) AS matches
		FROM round_items
		GROUP BY item_name
		ORDER BY cnt DESC, item_name`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return db.queryItemFreqs(q)
}

// FinalItemFrequencies returns item frequencies restricted to each match's
// final round, most common first. limit <= 0 returns everything.
func (db *DB) FinalItemFrequencies(limit int) ([]model.ItemFreq, error) {
	q := `
		WITH` + lastRoundCTE + `
		SELECT ri.item_name, COUNT(*) AS cnt, COUNT(DISTINCT ri.match_id) AS matches
		FROM round_items ri
		JOIN last_round lr ON lr.match_id = ri.match_id
		WHERE ri.round_index = lr.last_r
		GROUP BY ri.item_name
		ORDER BY cnt DESC, ri.item_name`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return db.queryItemFreqs(q)
}

func (db *DB) queryItemFreqs(q string) ([]model.ItemFreq, error) {
	rows, err := db.conn.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ItemFreq
	for rows.Next() {
		var f model.ItemFreq
		if err := rows.Scan(&f.ItemName, &f.Count, &f.Matches); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Overview returns the high-level database summary.
func (db *DB) Overview() (model.Overview, error) {
	var ov model.Overview
	var avg, share sql.NullFloat64
	var minR, maxR sql.NullInt64
	err := db.conn.QueryRow(`
		WITH` + lastRoundCTE + `
		SELECT COUNT(*),
		       SUM(CASE WHEN r.result = 'win'  THEN 1 ELSE 0 END),
		       SUM(CASE WHEN r.result = 'loss' THEN 1 ELSE 0 END),
		       AVG(lr.last_r), MIN(lr.last_r), MAX(lr.last_r),
		       AVG(CASE WHEN lr.last_r >= 16 THEN 1.0 ELSE 0.0 END)
		FROM last_round lr
		JOIN rounds r ON r.match_id = lr.match_id AND r.round_index = lr.last_r`).
		Scan(&ov.Matches, &nullInt{&ov.Wins}, &nullInt{&ov.Losses}, &avg, &minR, &maxR, &share)
	if err != nil {
		return model.Overview{}, err
	}
	ov.AvgFinalRound = avg.Float64
	ov.MinFinalRound = int(minR.Int64)
	ov.MaxFinalRound = int(maxR.Int64)
	ov.ShareLongFinals = share.Float64
	return ov, nil
}

// RoundsReached returns, for each round index, how many matches reached it.
func (db *DB) RoundsReached() ([]model.RoundReached, error) {
	rows, err := db.conn.Query(`
		SELECT round_index, COUNT(DISTINCT match_id)
		FROM rounds
		GROUP BY round_index
		ORDER BY round_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoundReached
	for rows.Next() {
		var r model.RoundReached
		if err := rows.Scan(&r.Round, &r.Matches); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WinrateByFinalRound returns the winrate of matches grouped by final round.
func (db *DB) WinrateByFinalRound() ([]model.FinalRoundWinrate, error) {
	rows, err := db.conn.Query(`
		WITH` + lastRoundCTE + `
		SELECT lr.last_r, COUNT(*),
		       AVG(CASE WHEN r.result = 'win' THEN 1.0 ELSE 0.0 END)
		FROM last_round lr
		JOIN rounds r ON r.match_id = lr.match_id AND r.round_index = lr.last_r
		GROUP BY lr.last_r
		ORDER BY lr.last_r`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FinalRoundWinrate
	for rows.Next() {
		var w model.FinalRoundWinrate
		if err := rows.Scan(&w.FinalRound, &w.Matches, &w.Winrate); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// RelativeWinrateRows returns the per-(round, item) win counts for the
// relative-winrate report. The denominator per round is every match that
// reached the round; wins_without = total round wins minus wins with the
// item. Rounds with fewer than minReached matches are dropped. Rates are
// filled in here; the Wilson intervals are applied by the report layer.
func (db *DB) RelativeWinrateRows(minReached int) ([]model.RoundItemWinrate, error) {
	rows, err := db.conn.Query(`
		WITH denom AS (
			SELECT round_index AS round, COUNT(DISTINCT match_id) AS n_reached
			FROM rounds
			GROUP BY round_index
		),
		wins_total AS (
			SELECT round_index AS round, COUNT(DISTINCT match_id) AS wins_total
			FROM rounds
			WHERE result = 'win'
			GROUP BY round_index
		),
		wins_with AS (
			SELECT ri.round_index AS round, ri.item_name,
			       COUNT(DISTINCT ri.match_id) AS wins_with_item
			FROM round_items ri
			JOIN rounds r ON r.match_id = ri.match_id AND r.round_index = ri.round_index
			WHERE r.result = 'win'
			GROUP BY ri.round_index, ri.item_name
		),
		items_in_round AS (
			SELECT DISTINCT round_index AS round, item_name
			FROM round_items
		)
		SELECT i.round, i.item_name, d.n_reached,
		       COALESCE(ww.wins_with_item, 0),
		       COALESCE(wt.wins_total, 0) - COALESCE(ww.wins_with_item, 0)
		FROM items_in_round i
		LEFT JOIN wins_with  ww ON ww.round = i.round AND ww.item_name = i.item_name
		LEFT JOIN wins_total wt ON wt.round = i.round
		JOIN denom d ON d.round = i.round
		WHERE d.n_reached >= ?
		ORDER BY i.round, i.item_name`, minReached)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoundItemWinrate
	for rows.Next() {
		var w model.RoundItemWinrate
		if err := rows.Scan(&w.Round, &w.Item, &w.NReached, &w.WinsWith, &w.WinsWithout); err != nil {
			return nil, err
		}
		if w.NReached > 0 {
			w.WinrateWith = float64(w.WinsWith) / float64(w.NReached)
			w.WinrateWithout = float64(w.WinsWithout) / float64(w.NReached)
		}
		w.DeltaWinrate = w.WinrateWith - w.WinrateWithout
		out = append(out, w)
	}
	return out, rows.Err()
}

// nullInt scans a nullable integer aggregate into an int, defaulting to 0.
type nullInt struct{ v *int }

func (n *nullInt) Scan(src any) error {
	if src == nil {
		*n.v = 0
		return nil
	}
	switch x := src.(type) {
	case int64:
		*n.v = int(x)
	case float64:
		*n.v = int(x)
	default:
		return fmt.Errorf("unsupported scan type %T", src)
	}
	return nil
}

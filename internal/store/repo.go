package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bibkit/bibmatch/internal/apperr"
)

// UpsertRecord inserts or refreshes a local record. Operator state
// (decision, matched_record, human_validated) is preserved on re-import
// once a human has validated the record; otherwise the imported decision
// applies.
func (db *DB) UpsertRecord(r RecordRow) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	pm, _ := json.Marshal(nonNil(r.PossibleMatches))
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO records (collection, rec_id, title, briefrec, fullrec, possible_matches,
		                     matched_record, decision, human_validated, source_path, source_checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, rec_id) DO UPDATE SET
			title            = excluded.title,
			briefrec         = excluded.briefrec,
			fullrec          = excluded.fullrec,
			possible_matches = excluded.possible_matches,
			source_path      = excluded.source_path,
			source_checksum  = excluded.source_checksum,
			updated_at       = excluded.updated_at,
			decision         = CASE WHEN records.human_validated = 1 THEN records.decision ELSE excluded.decision END,
			matched_record   = CASE WHEN records.human_validated = 1 THEN records.matched_record ELSE excluded.matched_record END
	`, r.Collection, r.RecID, r.Title, string(r.Brief), string(r.Full), string(pm),
		r.MatchedRecord, string(r.Decision), r.HumanValidated, r.SourcePath, r.SourceChecksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert record: %w", err)
	}
	if err := ftsUpsert(tx, r.Collection, r.RecID, r.Title); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertCandidate inserts or refreshes a union catalog record.
func (db *DB) UpsertCandidate(c CandidateRow) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(`
		INSERT INTO candidates (cand_id, marc, source_path, source_checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cand_id) DO UPDATE SET
			marc            = excluded.marc,
			source_path     = excluded.source_path,
			source_checksum = excluded.source_checksum,
			updated_at      = excluded.updated_at
	`, c.CandID, string(c.MARC), c.SourcePath, c.SourceChecksum, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert candidate: %w", err)
	}
	return nil
}

// GetRecord returns a local record, or apperr.ErrNotFound.
func (db *DB) GetRecord(collection, recID string) (*RecordRow, error) {
	row := db.conn.QueryRow(`
		SELECT collection, rec_id, title, briefrec, fullrec, possible_matches,
		       matched_record, decision, human_validated, source_path, source_checksum, updated_at
		FROM records WHERE collection = ? AND rec_id = ?
	`, collection, recID)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*RecordRow, error) {
	var r RecordRow
	var brief, full, pm, decision string
	err := row.Scan(&r.Collection, &r.RecID, &r.Title, &brief, &full, &pm,
		&r.MatchedRecord, &decision, &r.HumanValidated, &r.SourcePath, &r.SourceChecksum, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", err)
	}
	r.Brief = json.RawMessage(brief)
	r.Full = json.RawMessage(full)
	r.Decision = Decision(decision)
	if err := json.Unmarshal([]byte(pm), &r.PossibleMatches); err != nil {
		r.PossibleMatches = nil
	}
	return &r, nil
}

// GetCandidate returns a union record, or apperr.ErrNotFound.
func (db *DB) GetCandidate(candID string) (*CandidateRow, error) {
	var c CandidateRow
	var marc string
	err := db.conn.QueryRow(`
		SELECT cand_id, marc, source_path, source_checksum, updated_at
		FROM candidates WHERE cand_id = ?
	`, candID).Scan(&c.CandID, &marc, &c.SourcePath, &c.SourceChecksum, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get candidate: %w", err)
	}
	c.MARC = json.RawMessage(marc)
	return &c, nil
}

// ListCollections returns the distinct collection names, sorted.
func (db *DB) ListCollections() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT collection FROM records ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("store: list collections: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// listFilters maps the workbench filters to decision states.
var listFilters = map[string]Decision{
	"possible":       DecisionPossible,
	"nomatch":        DecisionNoMatch,
	"match":          DecisionMatch,
	"duplicatematch": DecisionDuplicate,
}

// ListRecords returns a page of record summaries plus the total count
// for the filter. Duplicate matches are sorted by their shared candidate
// so siblings appear next to each other.
func (db *DB) ListRecords(collection, filter string, limit, offset int) ([]RecordSummary, int, error) {
	if limit <= 0 || limit > 300 {
		limit = 300
	}
	if offset < 0 {
		offset = 0
	}

	where := `collection = ?`
	args := []any{collection}
	if d, ok := listFilters[filter]; ok {
		where += ` AND decision = ?`
		args = append(args, string(d))
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count records: %w", err)
	}

	order := `rec_id`
	if filter == "duplicatematch" {
		order = `matched_record, rec_id`
	}
	rows, err := db.conn.Query(`
		SELECT rec_id, decision, matched_record, human_validated
		FROM records WHERE `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	var out []RecordSummary
	for rows.Next() {
		var s RecordSummary
		var decision string
		if err := rows.Scan(&s.RecID, &decision, &s.MatchedRecord, &s.HumanValidated); err != nil {
			return nil, 0, err
		}
		s.Decision = Decision(decision)
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// FindAllWithDecisionIn returns the candidate assignment of every record
// in the collection whose decision is one of the given states.
func (db *DB) FindAllWithDecisionIn(collection string, decisions []Decision) ([]Assignment, error) {
	if len(decisions) == 0 {
		return nil, nil
	}
	query := `SELECT rec_id, matched_record, decision FROM records WHERE collection = ? AND decision IN (`
	args := []any{collection}
	for i, d := range decisions {
		if i > 0 {
			query += `, `
		}
		query += `?`
		args = append(args, string(d))
	}
	query += `)`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find by decision: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		var decision string
		if err := rows.Scan(&a.RecID, &a.MatchedRecord, &decision); err != nil {
			return nil, err
		}
		a.Decision = Decision(decision)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ApplyDecisions applies a batch of decision mutations in one
// transaction. This is the atomic boundary for the collection-wide
// duplicate re-derivation: either all siblings are reclassified or none.
func (db *DB) ApplyDecisions(collection string, updates []DecisionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		UPDATE records
		SET decision = ?, matched_record = ?,
		    human_validated = CASE WHEN ? THEN 1 ELSE human_validated END
		WHERE collection = ? AND rec_id = ?
	`)
	if err != nil {
		return fmt.Errorf("store: prepare decision update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(string(u.Decision), u.MatchedRecord, u.SetValidated, collection, u.RecID); err != nil {
			return fmt.Errorf("store: apply decision for %s: %w", u.RecID, err)
		}
	}
	return tx.Commit()
}

// CountByDecision returns the number of records per decision state.
func (db *DB) CountByDecision(collection string) (map[Decision]int, error) {
	rows, err := db.conn.Query(`
		SELECT decision, COUNT(*) FROM records WHERE collection = ? GROUP BY decision
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("store: count by decision: %w", err)
	}
	defer rows.Close()

	out := map[Decision]int{
		DecisionNoMatch:   0,
		DecisionPossible:  0,
		DecisionMatch:     0,
		DecisionDuplicate: 0,
	}
	for rows.Next() {
		var d string
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		out[Decision(d)] = n
	}
	return out, rows.Err()
}

// SaveTrainingPair upserts a labelled pair keyed by match_id. Returns
// true when a new row was created rather than updated.
func (db *DB) SaveTrainingPair(p TrainingPair) (bool, error) {
	var exists int
	_ = db.conn.QueryRow(`SELECT 1 FROM training_pairs WHERE match_id = ?`, p.MatchID).Scan(&exists)

	_, err := db.conn.Exec(`
		INSERT INTO training_pairs (match_id, collection, rec_id, cand_id, local_fullrec, cand_marc, similarity, is_match, format)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET
			local_fullrec = excluded.local_fullrec,
			cand_marc     = excluded.cand_marc,
			similarity    = excluded.similarity,
			is_match      = excluded.is_match,
			format        = excluded.format
	`, p.MatchID, p.Collection, p.RecID, p.CandID, string(p.LocalFull), string(p.CandMARC), p.Similarity, p.IsMatch, p.Format)
	if err != nil {
		return false, fmt.Errorf("store: save training pair: %w", err)
	}
	return exists == 0, nil
}

// AllSourceChecksums returns source_path -> checksum for every imported
// row, across records and candidates. Used by the import sync to skip
// unchanged files and drop stale rows.
func (db *DB) AllSourceChecksums() (map[string]string, error) {
	out := make(map[string]string)
	for _, q := range []string{
		`SELECT source_path, source_checksum FROM records WHERE source_path != ''`,
		`SELECT source_path, source_checksum FROM candidates WHERE source_path != ''`,
	} {
		rows, err := db.conn.Query(q)
		if err != nil {
			return nil, fmt.Errorf("store: all source checksums: %w", err)
		}
		for rows.Next() {
			var p, cs string
			if err := rows.Scan(&p, &cs); err != nil {
				rows.Close()
				return nil, err
			}
			out[p] = cs
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// DeleteBySource removes any record or candidate imported from the
// given source file.
func (db *DB) DeleteBySource(sourcePath string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.Query(`SELECT collection, rec_id FROM records WHERE source_path = ?`, sourcePath)
	if err != nil {
		return fmt.Errorf("store: delete by source: %w", err)
	}
	type key struct{ col, rec string }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.col, &k.rec); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, k)
	}
	rows.Close()

	for _, k := range keys {
		ftsDelete(tx, k.col, k.rec)
	}
	_, _ = tx.Exec(`DELETE FROM records WHERE source_path = ?`, sourcePath)
	_, _ = tx.Exec(`DELETE FROM candidates WHERE source_path = ?`, sourcePath)
	return tx.Commit()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

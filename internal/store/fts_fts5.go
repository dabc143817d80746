//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			collection UNINDEXED,
			rec_id UNINDEXED,
			title,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, collection, recID, title string) error {
	_, _ = tx.Exec(`DELETE FROM records_fts WHERE collection = ? AND rec_id = ?`, collection, recID)
	_, err := tx.Exec(`INSERT INTO records_fts (collection, rec_id, title) VALUES (?, ?, ?)`,
		collection, recID, title)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, collection, recID string) {
	_, _ = tx.Exec(`DELETE FROM records_fts WHERE collection = ? AND rec_id = ?`, collection, recID)
}

// SearchRecords performs an FTS5 title search within a collection.
func (db *DB) SearchRecords(collection, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT rec_id,
		       title,
		       snippet(records_fts, 2, '<b>', '</b>', '...', 32)
		FROM records_fts
		WHERE records_fts MATCH ? AND collection = ?
		ORDER BY rank
		LIMIT ?
	`, query, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.RecID, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; title search uses a LIKE fallback on the
	// records.title column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	// Title is already stored in the records table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _, _ string) {}

// SearchRecords performs a LIKE-based title search (fallback when FTS5
// is not compiled in).
func (db *DB) SearchRecords(collection, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT rec_id, title, title
		FROM records
		WHERE collection = ? AND title LIKE ?
		ORDER BY rec_id
		LIMIT ?
	`, collection, like, limit)
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

// Package store provides the SQLite-backed document store holding local
// records, union catalog candidates, and training pairs, with optional
// FTS5 title search.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	collection       TEXT NOT NULL,
	rec_id           TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	briefrec         TEXT NOT NULL DEFAULT '{}',
	fullrec          TEXT NOT NULL DEFAULT '{}',
	possible_matches TEXT NOT NULL DEFAULT '[]',
	matched_record   TEXT NOT NULL DEFAULT '',
	decision         TEXT NOT NULL DEFAULT 'no_match',
	human_validated  INTEGER NOT NULL DEFAULT 0,
	source_path      TEXT NOT NULL DEFAULT '',
	source_checksum  TEXT NOT NULL DEFAULT '',
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, rec_id)
);

CREATE INDEX IF NOT EXISTS idx_records_decision ON records(collection, decision);
CREATE INDEX IF NOT EXISTS idx_records_matched  ON records(collection, matched_record);
CREATE INDEX IF NOT EXISTS idx_records_source   ON records(source_path);

CREATE TABLE IF NOT EXISTS candidates (
	cand_id         TEXT PRIMARY KEY,
	marc            TEXT NOT NULL DEFAULT '{}',
	source_path     TEXT NOT NULL DEFAULT '',
	source_checksum TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_candidates_source ON candidates(source_path);

CREATE TABLE IF NOT EXISTS training_pairs (
	match_id      TEXT PRIMARY KEY,
	collection    TEXT NOT NULL,
	rec_id        TEXT NOT NULL,
	cand_id       TEXT NOT NULL,
	local_fullrec TEXT NOT NULL DEFAULT '{}',
	cand_marc     TEXT NOT NULL DEFAULT '{}',
	similarity    REAL NOT NULL DEFAULT 0,
	is_match      INTEGER NOT NULL DEFAULT 0,
	format        TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

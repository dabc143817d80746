// Package testutil provides shared test helpers for setting up data
// directories and databases.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bibkit/bibmatch/internal/ingest"
	"github.com/bibkit/bibmatch/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "bibmatch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataDir creates a temporary data directory with an ingest.Provider.
func TestDataDir(t *testing.T) (string, ingest.Provider) {
	t.Helper()
	dataDir := t.TempDir()
	fsys, err := ingest.NewFS(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	return dataDir, fsys
}

// WriteFile writes a record file under the data directory, creating
// the collection directory as needed.
func WriteFile(t *testing.T, dataDir, rel string, data []byte) {
	t.Helper()
	abs := filepath.Join(dataDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// WriteJSON marshals v and writes it as a record file under the data
// directory.
func WriteJSON(t *testing.T, dataDir, rel string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	WriteFile(t, dataDir, rel, data)
}

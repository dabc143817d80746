// Package ingest loads record files from the data directory into the
// document store and keeps the two reconciled.
package ingest

import "github.com/bibkit/bibmatch/internal/models"

// Provider is the interface for data-directory file operations.
type Provider interface {
	// List returns metadata for every record file under dir (relative
	// to the data root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to the
	// data root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the data root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the data root).
	Delete(path string) error
}

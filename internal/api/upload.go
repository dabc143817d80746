package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bibkit/bibmatch/internal/ingest"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadHandler accepts record files and drops them into the data
// directory, where the watcher imports them into the store.
type UploadHandler struct {
	fsys ingest.Provider
}

// NewUploadHandler creates a handler writing through the given provider.
func NewUploadHandler(fsys ingest.Provider) *UploadHandler {
	return &UploadHandler{fsys: fsys}
}

// safeName validates that name is a plain record file name (no path
// separators, no traversal, known extension).
func safeName(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return fmt.Errorf("invalid filename: %s", name)
	}
	if !strings.HasSuffix(cleaned, ".json") && !strings.HasSuffix(cleaned, ".xml") {
		return fmt.Errorf("unsupported file type: %s", name)
	}
	return nil
}

// Upload handles POST /api/collections/{collection}/import
// (multipart/form-data, field "file"). The union collection name feeds
// the candidate pool.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	collection := chi.URLParam(r, "collection")
	if collection == "" || collection != filepath.Base(collection) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid collection name"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if err := safeName(header.Filename); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	rel := filepath.Join(collection, filepath.Base(header.Filename))
	if err := h.fsys.Write(rel, data); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to store file"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"path": filepath.ToSlash(rel),
		"size": len(data),
	})
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bibkit/bibmatch/internal/ingest"
	"github.com/bibkit/bibmatch/internal/matchsvc"
	"github.com/bibkit/bibmatch/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// fsys, if non-nil, enables the record-file upload endpoint.
func NewRouter(svc *matchsvc.Service, st store.Store, fsys ingest.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, st)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Collections and records.
	r.Get("/collections", h.ListCollections)
	r.Get("/collections/{collection}/records", h.ListRecords)
	r.Get("/collections/{collection}/records/{recID}", h.GetRecord)
	r.Post("/collections/{collection}/records/{recID}/decision", h.Decide)
	r.Post("/collections/{collection}/reclassify", h.Reclassify)

	// Title search.
	r.Get("/collections/{collection}/search", h.Search)

	// Training pairs.
	r.Post("/training", h.SaveTraining)

	// Record-file upload (auth-protected).
	if fsys != nil {
		uh := NewUploadHandler(fsys)
		r.Post("/collections/{collection}/import", uh.Upload)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

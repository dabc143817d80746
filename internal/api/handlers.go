package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bibkit/bibmatch/internal/apperr"
	"github.com/bibkit/bibmatch/internal/matchsvc"
	"github.com/bibkit/bibmatch/internal/score"
	"github.com/bibkit/bibmatch/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *matchsvc.Service
	st  store.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc *matchsvc.Service, st store.Store) *Handler {
	return &Handler{svc: svc, st: st}
}

// ListCollections handles GET /api/collections.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := h.st.ListCollections()
	if err != nil {
		slog.Error("list collections failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collections": cols,
	})
}

// ListRecords handles GET /api/collections/{collection}/records.
// filter selects a decision bucket: all (default), possible, nomatch,
// match, duplicatematch.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	summaries, total, err := h.st.ListRecords(collection, q.Get("filter"), limit, offset)
	if err != nil {
		slog.Error("list records failed",
			slog.String("collection", collection), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	items := make([]RecordListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, RecordListItem{
			RecID:          s.RecID,
			Decision:       s.Decision,
			MatchedRecord:  s.MatchedRecord,
			HumanValidated: s.HumanValidated,
		})
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: items, Total: total})
}

// GetRecord handles GET /api/collections/{collection}/records/{recID}.
// The optional method query parameter selects the aggregation model.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	recID := chi.URLParam(r, "recID")

	method := r.URL.Query().Get("method")
	if method != "" && !score.KnownMethod(method) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown aggregation method"))
		return
	}

	payload, err := h.svc.Compare(r.Context(), collection, recID, method)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("compare failed", slog.String("rec_id", recID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Decide handles POST /api/collections/{collection}/records/{recID}/decision.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	collection := chi.URLParam(r, "collection")
	recID := chi.URLParam(r, "recID")

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	if err := h.svc.Decide(r.Context(), collection, recID, req.MatchedRecord); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidDecision):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("invalid_candidate"))
		default:
			slog.Error("decide failed", slog.String("rec_id", recID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Reclassify handles POST /api/collections/{collection}/reclassify.
func (h *Handler) Reclassify(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	counts, err := h.svc.Reclassify(r.Context(), collection)
	if err != nil {
		slog.Error("reclassify failed",
			slog.String("collection", collection), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ReclassifyResponse{Counts: counts})
}

// Search handles GET /api/collections/{collection}/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, err := h.st.SearchRecords(collection, q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			RecID:   hit.RecID,
			Title:   hit.Title,
			Snippet: hit.Snippet,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// SaveTraining handles POST /api/training.
func (h *Handler) SaveTraining(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Collection == "" || req.RecID == "" || req.CandID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("collection, rec_id and cand_id are required"))
		return
	}

	created, err := h.svc.SaveTrainingPair(r.Context(), req.Collection, req.RecID, req.CandID, req.IsMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrInvalidDecision):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("invalid_candidate"))
		default:
			slog.Error("save training failed", slog.String("rec_id", req.RecID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"created": created})
}

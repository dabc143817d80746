package api

import (
	"github.com/bibkit/bibmatch/internal/matchsvc"
	"github.com/bibkit/bibmatch/internal/store"
)

// DecisionRequest is the request body for recording an operator
// decision. An empty matched_record cancels any previous choice.
type DecisionRequest struct {
	MatchedRecord string `json:"matched_record"`
}

// TrainingRequest is the request body for saving a labeled pair.
type TrainingRequest struct {
	Collection string `json:"collection" validate:"required"`
	RecID      string `json:"rec_id" validate:"required"`
	CandID     string `json:"cand_id" validate:"required"`
	IsMatch    bool   `json:"is_match"`
}

// RecordListItem is one row in a record listing.
type RecordListItem struct {
	RecID          string         `json:"rec_id"`
	Decision       store.Decision `json:"decision"`
	MatchedRecord  string         `json:"matched_record,omitempty"`
	HumanValidated bool           `json:"human_validated"`
}

// RecordListResponse wraps paginated record listings.
type RecordListResponse struct {
	Records []RecordListItem `json:"records" validate:"required"`
	Total   int              `json:"total" validate:"required"`
}

// ComparePayload is the record comparison view (aliased from the
// domain layer).
type ComparePayload = matchsvc.ComparePayload

// SearchResult is a single title-search hit in the API response.
type SearchResult struct {
	RecID   string `json:"rec_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Snippet string `json:"snippet,omitempty"`
}

// ReclassifyResponse reports the decision-state counts after a batch
// re-derivation.
type ReclassifyResponse struct {
	Counts map[store.Decision]int `json:"counts" validate:"required"`
}

package store

import (
	"encoding/json"
	"time"
)

// Decision is the persisted categorical match state of a local record.
type Decision string

const (
	DecisionNoMatch   Decision = "no_match"
	DecisionPossible  Decision = "possible_match"
	DecisionMatch     Decision = "match"
	DecisionDuplicate Decision = "duplicate_match"
)

// Valid reports whether d is one of the four known states.
func (d Decision) Valid() bool {
	switch d {
	case DecisionNoMatch, DecisionPossible, DecisionMatch, DecisionDuplicate:
		return true
	}
	return false
}

// RecordRow is a local record as persisted.
type RecordRow struct {
	Collection      string
	RecID           string
	Title           string
	Brief           json.RawMessage
	Full            json.RawMessage
	PossibleMatches []string
	MatchedRecord   string // empty when no candidate confirmed
	Decision        Decision
	HumanValidated  bool
	SourcePath      string
	SourceChecksum  string
	UpdatedAt       time.Time
}

// CandidateRow is a union catalog record as persisted.
type CandidateRow struct {
	CandID         string
	MARC           json.RawMessage
	SourcePath     string
	SourceChecksum string
	UpdatedAt      time.Time
}

// RecordSummary is the lightweight listing view of a record.
type RecordSummary struct {
	RecID          string
	Decision       Decision
	MatchedRecord  string
	HumanValidated bool
}

// Assignment is a record's current candidate assignment, used by the
// collection-wide duplicate re-derivation.
type Assignment struct {
	RecID         string
	MatchedRecord string
	Decision      Decision
}

// DecisionUpdate is one row mutation inside an atomic decision pass.
type DecisionUpdate struct {
	RecID         string
	Decision      Decision
	MatchedRecord string
	SetValidated  bool
}

// SearchHit is one title-search result.
type SearchHit struct {
	RecID   string
	Title   string
	Snippet string
}

// TrainingPair is a scored operator-labelled record pair.
type TrainingPair struct {
	MatchID    string
	Collection string
	RecID      string
	CandID     string
	LocalFull  json.RawMessage
	CandMARC   json.RawMessage
	Similarity float64
	IsMatch    bool
	Format     string
}

// Store defines the persistence operations the matching service and the
// import layer depend on. Consumers should depend on this interface
// rather than the concrete *DB type to facilitate testing with fakes.
type Store interface {
	UpsertRecord(r RecordRow) error
	UpsertCandidate(c CandidateRow) error
	GetRecord(collection, recID string) (*RecordRow, error)
	GetCandidate(candID string) (*CandidateRow, error)
	ListCollections() ([]string, error)
	ListRecords(collection, filter string, limit, offset int) ([]RecordSummary, int, error)
	FindAllWithDecisionIn(collection string, decisions []Decision) ([]Assignment, error)
	ApplyDecisions(collection string, updates []DecisionUpdate) error
	CountByDecision(collection string) (map[Decision]int, error)
	SearchRecords(collection, query string, limit int) ([]SearchHit, error)
	SaveTrainingPair(p TrainingPair) (created bool, err error)
	AllSourceChecksums() (map[string]string, error)
	DeleteBySource(sourcePath string) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

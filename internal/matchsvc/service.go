// Package matchsvc orchestrates record comparison and operator
// decisions over the persisted collections.
package matchsvc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/bibkit/bibmatch/internal/apperr"
	"github.com/bibkit/bibmatch/internal/briefrec"
	"github.com/bibkit/bibmatch/internal/marc"
	"github.com/bibkit/bibmatch/internal/score"
	"github.com/bibkit/bibmatch/internal/store"
)

// NotifyFunc receives a decision event after it has been committed.
type NotifyFunc func(collection, recID string, decision store.Decision)

// Service implements the comparison and decision workflow on top of a
// Store. Decisions within one collection are serialized so that the
// duplicate-group derivation always sees a consistent assignment set.
type Service struct {
	store  store.Store
	notify NotifyFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Service. notify may be nil.
func New(st store.Store, notify NotifyFunc) *Service {
	return &Service{
		store:  st,
		notify: notify,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Service) collectionLock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	return l
}

// CandidateView is one scored candidate in a comparison payload,
// ordered by descending similarity.
type CandidateView struct {
	CandID     string            `json:"rec_id"`
	Brief      map[string]string `json:"briefrec"`
	Full       string            `json:"fullrec"`
	Scores     score.Vector      `json:"scores"`
	Similarity float64           `json:"similarity_score"`
}

// ComparePayload is the full side-by-side view for one record: its own
// brief and rendered full record plus every surviving candidate scored
// with the requested aggregation method.
type ComparePayload struct {
	RecID         string            `json:"rec_id"`
	Brief         map[string]string `json:"briefrec"`
	Full          string            `json:"fullrec"`
	Decision      store.Decision    `json:"decision"`
	MatchedRecord string            `json:"matched_record,omitempty"`
	Candidates    []CandidateView   `json:"possible_matches"`
}

// Compare loads a record, scores it against each of its candidates and
// returns the payload sorted best-first. Candidates that no longer
// exist or fail to parse are skipped rather than failing the whole
// comparison.
func (s *Service) Compare(_ context.Context, collection, recID, method string) (*ComparePayload, error) {
	if method == "" {
		method = score.MethodMean
	}
	if !score.KnownMethod(method) {
		return nil, fmt.Errorf("%w: aggregation method %q", apperr.ErrInvalidDecision, method)
	}

	rec, err := s.store.GetRecord(collection, recID)
	if err != nil {
		return nil, err
	}

	local := briefrec.FromDocument(rec.Brief)
	payload := &ComparePayload{
		RecID:         rec.RecID,
		Brief:         local.Display(),
		Decision:      rec.Decision,
		MatchedRecord: rec.MatchedRecord,
		Candidates:    []CandidateView{},
	}
	if full, err := marc.FromDocument(rec.Full); err == nil {
		payload.Full = full.RenderText()
	}

	for _, candID := range rec.PossibleMatches {
		cand, err := s.store.GetCandidate(candID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		candRec, err := marc.FromDocument(cand.MARC)
		if err != nil {
			continue
		}
		candBrief := briefrec.FromMARC(candRec)
		vec := score.Evaluate(local, candBrief)
		payload.Candidates = append(payload.Candidates, CandidateView{
			CandID:     cand.CandID,
			Brief:      candBrief.Display(),
			Full:       candRec.RenderText(),
			Scores:     vec,
			Similarity: score.Aggregate(vec, method),
		})
	}

	sort.SliceStable(payload.Candidates, func(i, j int) bool {
		return payload.Candidates[i].Similarity > payload.Candidates[j].Similarity
	})
	return payload, nil
}

// Decide records an operator decision for one record. An empty matched
// ID cancels any previous choice and sets no_match; otherwise matched
// must be one of the record's proposed candidates. The decision is
// marked operator-validated and the whole duplicate group sharing the
// chosen candidate is re-derived in the same transaction.
func (s *Service) Decide(_ context.Context, collection, recID, matched string) error {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.store.GetRecord(collection, recID)
	if err != nil {
		return err
	}
	if matched != "" && !slices.Contains(rec.PossibleMatches, matched) {
		return fmt.Errorf("%w: %q is not a candidate of %s", apperr.ErrInvalidDecision, matched, recID)
	}

	tentative := store.DecisionNoMatch
	if matched != "" {
		tentative = store.DecisionMatch
	}

	assignments, err := s.store.FindAllWithDecisionIn(collection,
		[]store.Decision{store.DecisionMatch, store.DecisionDuplicate})
	if err != nil {
		return err
	}
	assigned := assignmentMap(assignments)
	if matched == "" {
		delete(assigned, recID)
	} else {
		assigned[recID] = matched
	}

	// The operator's own row first, then the derived group states; the
	// group pass may upgrade the fresh match to duplicate_match but never
	// clears the validated flag.
	updates := []store.DecisionUpdate{{
		RecID:         recID,
		Decision:      tentative,
		MatchedRecord: matched,
		SetValidated:  true,
	}}
	updates = append(updates, deriveGroupUpdates(assigned)...)

	if err := s.store.ApplyDecisions(collection, updates); err != nil {
		return err
	}
	if s.notify != nil {
		final := tentative
		for _, u := range updates[1:] {
			if u.RecID == recID {
				final = u.Decision
			}
		}
		s.notify(collection, recID, final)
	}
	return nil
}

// Reclassify re-derives match and duplicate_match states for every
// assigned record in the collection and returns the resulting counts
// per decision state. Running it twice in a row changes nothing.
func (s *Service) Reclassify(_ context.Context, collection string) (map[store.Decision]int, error) {
	lock := s.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	assignments, err := s.store.FindAllWithDecisionIn(collection,
		[]store.Decision{store.DecisionMatch, store.DecisionDuplicate})
	if err != nil {
		return nil, err
	}
	updates := deriveGroupUpdates(assignmentMap(assignments))
	if len(updates) > 0 {
		if err := s.store.ApplyDecisions(collection, updates); err != nil {
			return nil, err
		}
	}
	return s.store.CountByDecision(collection)
}

// SaveTrainingPair freezes a labeled record/candidate pair with its
// similarity at labeling time. Returns false when the pair was already
// stored and only its label was refreshed.
func (s *Service) SaveTrainingPair(_ context.Context, collection, recID, candID string, isMatch bool) (bool, error) {
	rec, err := s.store.GetRecord(collection, recID)
	if err != nil {
		return false, err
	}
	if !slices.Contains(rec.PossibleMatches, candID) {
		return false, fmt.Errorf("%w: %q is not a candidate of %s", apperr.ErrInvalidDecision, candID, recID)
	}
	cand, err := s.store.GetCandidate(candID)
	if err != nil {
		return false, err
	}

	local := briefrec.FromDocument(rec.Brief)
	var sim float64
	if candRec, err := marc.FromDocument(cand.MARC); err == nil {
		vec := score.Evaluate(local, briefrec.FromMARC(candRec))
		sim = score.Aggregate(vec, score.MethodMean)
	}
	format := ""
	if local.Format != nil {
		format = *local.Format
	}

	return s.store.SaveTrainingPair(store.TrainingPair{
		MatchID:    recID + "-" + candID,
		Collection: collection,
		RecID:      recID,
		CandID:     candID,
		LocalFull:  rec.Full,
		CandMARC:   cand.MARC,
		Similarity: sim,
		IsMatch:    isMatch,
		Format:     format,
	})
}

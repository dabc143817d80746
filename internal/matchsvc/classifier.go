package matchsvc

import "github.com/bibkit/bibmatch/internal/store"

// InitialDecision is the state assigned to a record that no operator
// has touched yet: possible_match when at least one candidate was
// proposed, no_match otherwise.
func InitialDecision(candidateCount int) store.Decision {
	if candidateCount > 0 {
		return store.DecisionPossible
	}
	return store.DecisionNoMatch
}

// deriveGroupUpdates re-derives match vs duplicate_match from the full
// set of current candidate assignments. Any candidate chosen by more
// than one record flips its whole group to duplicate_match; a candidate
// chosen by exactly one record yields match. The derivation is a pure
// function of the complete assignment map, so re-running it is
// idempotent.
func deriveGroupUpdates(assigned map[string]string) []store.DecisionUpdate {
	groups := make(map[string][]string)
	for recID, matched := range assigned {
		if matched == "" {
			continue
		}
		groups[matched] = append(groups[matched], recID)
	}

	var updates []store.DecisionUpdate
	for matched, recIDs := range groups {
		d := store.DecisionMatch
		if len(recIDs) > 1 {
			d = store.DecisionDuplicate
		}
		for _, recID := range recIDs {
			updates = append(updates, store.DecisionUpdate{
				RecID:         recID,
				Decision:      d,
				MatchedRecord: matched,
			})
		}
	}
	return updates
}

// assignmentMap flattens store assignments into recID -> matched record.
func assignmentMap(assignments []store.Assignment) map[string]string {
	out := make(map[string]string, len(assignments))
	for _, a := range assignments {
		out[a.RecID] = a.MatchedRecord
	}
	return out
}

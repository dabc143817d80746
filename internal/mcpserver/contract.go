package mcpserver

// DecisionWorkflowContract describes the matching workflow that LLM
// consumers should follow before recording decisions.
const DecisionWorkflowContract = `# Bibmatch Decision Workflow

Bibmatch compares institution records against union catalog candidates
and tracks an operator decision per record.

## Decision states

- ` + "`" + `no_match` + "`" + ` — no candidate confirmed (also the initial state of a
  record imported without candidates).
- ` + "`" + `possible_match` + "`" + ` — candidates were proposed but none confirmed yet.
- ` + "`" + `match` + "`" + ` — exactly one local record confirmed this candidate.
- ` + "`" + `duplicate_match` + "`" + ` — two or more local records confirmed the same
  candidate; the whole group carries this state.

## Workflow

1. **List** records with ` + "`" + `list_records` + "`" + ` (filter ` + "`" + `possible` + "`" + ` to see the
   open queue).
2. **Compare** one record with ` + "`" + `compare_record` + "`" + `. Candidates come back
   sorted by descending similarity score with the per-field score
   vector. A ` + "`" + `null` + "`" + ` field score means the field could not be compared
   on this pair, not that it disagreed.
3. **Decide** with ` + "`" + `decide_match` + "`" + `. The chosen candidate MUST be one of
   the record's proposed candidates; pass an empty string to cancel a
   previous decision. The duplicate group sharing the chosen candidate
   is re-derived automatically.
4. **Reclassify** a whole collection with ` + "`" + `reclassify_collection` + "`" + `
   after bulk changes; it is idempotent and returns the decision-state
   counts.

## Rules

1. Never invent candidate ids: only ids returned by ` + "`" + `compare_record` + "`" + `
   are accepted.
2. A similarity score of 0 with a non-null ` + "`" + `format` + "`" + ` of 0 means the
   formats are incompatible; do not confirm such pairs.
3. Scores aggregate only the comparable fields; treat scores computed
   from very few fields with caution.
`

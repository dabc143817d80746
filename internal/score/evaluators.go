// Package score computes per-field similarity between two brief records
// and reduces the resulting vector to a single confidence value.
//
// Every evaluator returns a score in [0,1] or nil. A nil score means
// "not applicable" (one side is missing the attribute) and is distinct
// from a computed score of 0; the aggregation step excludes nil entries
// from the denominator.
package score

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/bibkit/bibmatch/internal/briefrec"
)

// Vector maps attribute names to similarity scores. Nil entries mark
// fields that could not be compared.
type Vector map[string]*float64

// Evaluate compares every scorable attribute of local against cand.
func Evaluate(local, cand *briefrec.BriefRec) Vector {
	v := Vector{
		"short_title":   textPtrSim(local.ShortTitle, cand.ShortTitle),
		"isbns":         setOverlap(local.ISBNs, cand.ISBNs),
		"issns":         setOverlap(local.ISSNs, cand.ISSNs),
		"other_std_ids": setOverlap(local.OtherStdIDs, cand.OtherStdIDs),
		"sysnums":       setOverlap(local.Sysnums, cand.Sysnums),
		"publishers":    fuzzySetSim(local.Publishers, cand.Publishers),
		"editions":      editionSim(local.Editions, cand.Editions),
		"language":      textPtrSim(local.Language, cand.Language),
		"date_1":        dateSim(local.Date1, cand.Date1),
		"date_2":        dateSim(local.Date2, cand.Date2),
		"format":        FormatSim(local.Format, cand.Format),
		"creators":      creatorsComposite(local, cand),
	}
	return v
}

// normalize lowercases, strips punctuation, and collapses whitespace
// before fuzzy comparison.
func normalize(s string) string {
	return briefrec.NormalizeTitle(s)
}

// textSim is the normalized edit-distance similarity for fuzzy text
// fields: 1 - levenshtein/maxlen over the normalized strings.
func textSim(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	d := levenshtein.ComputeDistance(a, b)
	sim := 1.0 - float64(d)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

func textPtrSim(a, b *string) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return ptr(textSim(*a, *b))
}

// setOverlap is the Jaccard index over two identifier sets. Either side
// missing or empty is not applicable.
func setOverlap(a, b []string) *float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	as := normSet(a)
	bs := normSet(b)
	inter := 0
	union := len(as)
	for k := range bs {
		if _, ok := as[k]; ok {
			inter++
		} else {
			union++
		}
	}
	return ptr(float64(inter) / float64(union))
}

func normSet(vals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[normalize(v)] = struct{}{}
	}
	return out
}

// fuzzySetSim averages, over the smaller set, the best pairwise text
// similarity against the other set. Used for names and publishers where
// exact membership is too strict.
func fuzzySetSim(a, b []string) *float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	total := 0.0
	for _, s := range small {
		best := 0.0
		for _, l := range large {
			if sim := textSim(s, l); sim > best {
				best = sim
			}
		}
		total += best
	}
	sim := total / float64(len(small))
	if sim > 1 {
		sim = 1
	}
	return ptr(sim)
}

// editionSim compares edition statements as joined token strings with
// best-pairwise matching across the two sequences.
func editionSim(a, b [][]string) *float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	flatten := func(eds [][]string) []string {
		out := make([]string, 0, len(eds))
		for _, ed := range eds {
			out = append(out, strings.Join(ed, " "))
		}
		return out
	}
	return fuzzySetSim(flatten(a), flatten(b))
}

// dateSim is 1.0 on equal years and decays by 0.5 per year of
// difference, reaching 0 outside a two-year window.
func dateSim(a, b *int) *float64 {
	if a == nil || b == nil {
		return nil
	}
	diff := *a - *b
	if diff < 0 {
		diff = -diff
	}
	sim := 1.0 - float64(diff)*0.5
	if sim < 0 {
		sim = 0
	}
	return ptr(sim)
}

// creatorsComposite merges the personal and corporate creator channels.
// Agreement on either channel is enough: when the candidate carries only
// one channel, that channel's score is used alone; when both are present
// the merged score is (personal + corporate) / 1.5, capped at 1.0.
func creatorsComposite(local, cand *briefrec.BriefRec) *float64 {
	personal := fuzzySetSim(local.Creators, cand.Creators)
	corporate := fuzzySetSim(local.CorpCreators, cand.CorpCreators)

	switch {
	case len(cand.CorpCreators) == 0:
		return personal
	case len(cand.Creators) == 0:
		return corporate
	case personal == nil || corporate == nil:
		return nil
	default:
		merged := (*personal + *corporate) / 1.5
		if merged > 1 {
			merged = 1
		}
		return ptr(merged)
	}
}

func ptr(v float64) *float64 { return &v }

package score

import (
	"math"
	"testing"

	"github.com/bibkit/bibmatch/internal/briefrec"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateNullPropagation(t *testing.T) {
	local := &briefrec.BriefRec{
		ShortTitle: strp("the iliad"),
		ISBNs:      []string{"9780140275360"},
		Date1:      intp(1998),
	}
	empty := &briefrec.BriefRec{}

	v := Evaluate(local, empty)

	// Every field the candidate is missing must be nil, not 0.
	for _, field := range []string{"short_title", "isbns", "issns", "sysnums",
		"publishers", "editions", "language", "date_1", "date_2", "format"} {
		if v[field] != nil {
			t.Errorf("%s = %v, want nil on empty candidate", field, *v[field])
		}
	}
}

func TestEvaluateDistinguishesZeroFromNil(t *testing.T) {
	local := &briefrec.BriefRec{ISBNs: []string{"1111111111"}}
	cand := &briefrec.BriefRec{ISBNs: []string{"2222222222"}}

	v := Evaluate(local, cand)
	if v["isbns"] == nil {
		t.Fatal("isbns = nil, want a computed 0 for disjoint sets")
	}
	if *v["isbns"] != 0 {
		t.Errorf("isbns = %v, want 0", *v["isbns"])
	}
}

func TestTextSim(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"The Iliad", "the iliad", 1.0},
		{"Iliad /", "Iliad", 1.0}, // punctuation stripped
		{"", "", 1.0},
		{"abcd", "", 0.0},
		{"abcd", "abcx", 0.75},
	}
	for _, tt := range tests {
		if got := textSim(tt.a, tt.b); !almostEqual(got, tt.want) {
			t.Errorf("textSim(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSetOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want *float64
	}{
		{"both empty", nil, nil, nil},
		{"one empty", []string{"x"}, nil, nil},
		{"identical", []string{"111", "222"}, []string{"222", "111"}, ptr(1.0)},
		{"half", []string{"111", "222"}, []string{"222", "333"}, ptr(1.0 / 3.0)},
		{"disjoint", []string{"111"}, []string{"222"}, ptr(0.0)},
	}
	for _, tt := range tests {
		got := setOverlap(tt.a, tt.b)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: got %v, want nil", tt.name, *got)
		case tt.want != nil && got == nil:
			t.Errorf("%s: got nil, want %v", tt.name, *tt.want)
		case tt.want != nil && !almostEqual(*got, *tt.want):
			t.Errorf("%s: got %v, want %v", tt.name, *got, *tt.want)
		}
	}
}

func TestFuzzySetSimAveragesOverSmallerSet(t *testing.T) {
	a := []string{"homer"}
	b := []string{"homer", "someone else entirely"}
	got := fuzzySetSim(a, b)
	if got == nil || !almostEqual(*got, 1.0) {
		t.Errorf("fuzzySetSim = %v, want 1.0 (best pairwise over smaller set)", got)
	}
}

func TestDateSim(t *testing.T) {
	tests := []struct {
		a, b *int
		want *float64
	}{
		{intp(1998), intp(1998), ptr(1.0)},
		{intp(1998), intp(1999), ptr(0.5)},
		{intp(1998), intp(2000), ptr(0.0)},
		{intp(1998), intp(2010), ptr(0.0)},
		{nil, intp(1998), nil},
		{intp(1998), nil, nil},
	}
	for _, tt := range tests {
		got := dateSim(tt.a, tt.b)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("dateSim(%v, %v) = %v, want nil", tt.a, tt.b, *got)
		case tt.want != nil && (got == nil || !almostEqual(*got, *tt.want)):
			t.Errorf("dateSim(%v, %v) = %v, want %v", tt.a, tt.b, got, *tt.want)
		}
	}
}

func TestCreatorsComposite(t *testing.T) {
	personalOnly := &briefrec.BriefRec{Creators: []string{"homer"}}
	corporateOnly := &briefrec.BriefRec{CorpCreators: []string{"oxford university press"}}
	both := &briefrec.BriefRec{
		Creators:     []string{"homer"},
		CorpCreators: []string{"oxford university press"},
	}

	// Candidate with only personal creators: personal channel passthrough.
	if got := creatorsComposite(both, personalOnly); got == nil || !almostEqual(*got, 1.0) {
		t.Errorf("personal passthrough = %v, want 1.0", got)
	}

	// Candidate with only corporate creators: corporate channel passthrough.
	if got := creatorsComposite(both, corporateOnly); got == nil || !almostEqual(*got, 1.0) {
		t.Errorf("corporate passthrough = %v, want 1.0", got)
	}

	// Both channels agree: (1.0 + 1.0) / 1.5 capped at 1.0.
	if got := creatorsComposite(both, both); got == nil || !almostEqual(*got, 1.0) {
		t.Errorf("merged = %v, want capped 1.0", got)
	}

	// Local side missing one channel while the candidate has both.
	if got := creatorsComposite(personalOnly, both); got != nil {
		t.Errorf("one-sided merge = %v, want nil", *got)
	}

	// Weak corporate agreement stays below the cap.
	damp := &briefrec.BriefRec{
		Creators:     []string{"homer"},
		CorpCreators: []string{"zzz qqq xxx"},
	}
	got := creatorsComposite(both, damp)
	if got == nil {
		t.Fatal("merged = nil")
	}
	if *got >= 1.0 {
		t.Errorf("merged = %v, want < 1.0 on partial corporate agreement", *got)
	}
}

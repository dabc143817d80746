// Package briefrec builds the normalized comparison view of a
// bibliographic record. A BriefRec can be constructed from three raw
// shapes (pre-normalized JSON document, flattened MARC mapping, MARCXML)
// and exposes the same attributes regardless of source.
//
// Missing data is a first-class value: nil slices and nil pointers mean
// "not present in the source", which the scoring layer propagates as
// "not applicable" rather than zero similarity. Constructors never fail
// on partial records; underivable attributes stay nil.
package briefrec

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bibkit/bibmatch/internal/marc"
)

// Title is one title statement (245/246).
type Title struct {
	Main     string `json:"main"`
	Subtitle string `json:"subtitle,omitempty"`
}

// BriefRec is the normalized comparison view of a record.
type BriefRec struct {
	Titles       []Title    `json:"titles,omitempty"`
	ShortTitle   *string    `json:"short_title,omitempty"`
	Creators     []string   `json:"creators,omitempty"`
	CorpCreators []string   `json:"corp_creators,omitempty"`
	ISBNs        []string   `json:"isbns,omitempty"`
	ISSNs        []string   `json:"issns,omitempty"`
	OtherStdIDs  []string   `json:"other_std_ids,omitempty"`
	Publishers   []string   `json:"publishers,omitempty"`
	Editions     [][]string `json:"editions,omitempty"`
	Language     *string    `json:"language,omitempty"`
	Format       *string    `json:"format,omitempty"`
	Date1        *int       `json:"date_1,omitempty"`
	Date2        *int       `json:"date_2,omitempty"`
	Parent       *string    `json:"parent,omitempty"`
	Series       *string    `json:"series,omitempty"`
	Sysnums      []string   `json:"sysnums,omitempty"`
}

// FromDocument builds a BriefRec from a pre-normalized JSON document as
// stored alongside local records. Malformed input degrades to an empty
// BriefRec (all attributes missing) rather than failing the comparison.
func FromDocument(doc json.RawMessage) *BriefRec {
	var b BriefRec
	if err := json.Unmarshal(doc, &b); err != nil {
		return &BriefRec{}
	}
	if b.ShortTitle == nil && len(b.Titles) > 0 {
		b.ShortTitle = ptr(NormalizeTitle(b.Titles[0].Main))
	}
	return &b
}

// FromXML builds a BriefRec from a MARCXML record. Unparseable input
// degrades to an empty BriefRec.
func FromXML(data []byte) *BriefRec {
	rec, err := marc.ParseXML(data)
	if err != nil {
		return &BriefRec{}
	}
	return FromMARC(rec)
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// NormalizeTitle lowercases, strips punctuation, and collapses
// whitespace. Used for the short_title fast-comparison form.
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func ptr[T any](v T) *T { return &v }

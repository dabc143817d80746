package briefrec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bibkit/bibmatch/internal/marc"
)

// PhysicalFlag marks a standalone physical item in the format string.
// Analytical parts carry "a", serials and series records "s".
const PhysicalFlag = "p"

var (
	isbnCleanRe = regexp.MustCompile(`[^0-9Xx]`)
	yearRe      = regexp.MustCompile(`^\d{4}$`)
)

// FromMARC derives a BriefRec from a flattened MARC mapping. Derivation
// is pure and tolerant: attributes whose source fields are missing or
// malformed stay nil.
func FromMARC(rec *marc.Record) *BriefRec {
	if rec == nil {
		return &BriefRec{}
	}
	b := &BriefRec{
		Titles:       deriveTitles(rec),
		Creators:     collectSubfields(rec, "a", "100", "700"),
		CorpCreators: collectSubfields(rec, "a", "110", "111", "710", "711"),
		ISBNs:        normalizeIdentifiers(rec.Subfields("020", "a")),
		ISSNs:        trimAll(rec.Subfields("022", "a")),
		OtherStdIDs:  trimAll(rec.Subfields("024", "a")),
		Publishers:   trimAll(append(rec.Subfields("260", "b"), rec.Subfields("264", "b")...)),
		Editions:     deriveEditions(rec),
		Sysnums:      deriveSysnums(rec),
	}
	if len(b.Titles) > 0 {
		b.ShortTitle = ptr(NormalizeTitle(b.Titles[0].Main))
	}
	b.Language = deriveLanguage(rec)
	b.Date1, b.Date2 = deriveDates(rec)
	b.Parent = firstLink(rec, "773")
	b.Series = firstSeriesLink(rec)
	b.Format = deriveFormat(rec, b.Series != nil)
	return b
}

func deriveTitles(rec *marc.Record) []Title {
	var out []Title
	for _, tag := range []string{"245", "246"} {
		for _, f := range rec.Fields(tag) {
			var t Title
			for _, sf := range f.Subfields {
				switch sf.Code {
				case "a":
					if t.Main == "" {
						t.Main = trimTitle(sf.Value)
					}
				case "b":
					if t.Subtitle == "" {
						t.Subtitle = trimTitle(sf.Value)
					}
				}
			}
			if t.Main != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func trimTitle(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " /:;=.")
}

func collectSubfields(rec *marc.Record, code string, tags ...string) []string {
	var out []string
	for _, tag := range tags {
		for _, v := range rec.Subfields(tag, code) {
			v = strings.TrimRight(strings.TrimSpace(v), ",.")
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return dedupe(out)
}

func normalizeIdentifiers(vals []string) []string {
	var out []string
	for _, v := range vals {
		cleaned := strings.ToUpper(isbnCleanRe.ReplaceAllString(v, ""))
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return dedupe(out)
}

func trimAll(vals []string) []string {
	var out []string
	for _, v := range vals {
		v = strings.TrimRight(strings.TrimSpace(v), ",.:;")
		if v != "" {
			out = append(out, v)
		}
	}
	return dedupe(out)
}

// deriveEditions splits each 250 $a statement into comparable tokens
// ("2nd ed." -> ["2nd", "ed"]).
func deriveEditions(rec *marc.Record) [][]string {
	var out [][]string
	for _, v := range rec.Subfields("250", "a") {
		var tokens []string
		for _, tok := range strings.Fields(v) {
			tok = strings.Trim(tok, ".,;:")
			if tok != "" {
				tokens = append(tokens, strings.ToLower(tok))
			}
		}
		if len(tokens) > 0 {
			out = append(out, tokens)
		}
	}
	return out
}

func deriveSysnums(rec *marc.Record) []string {
	var out []string
	if v := strings.TrimSpace(rec.ControlField("001")); v != "" {
		out = append(out, v)
	}
	out = append(out, trimAll(rec.Subfields("035", "a"))...)
	return dedupe(out)
}

// deriveLanguage reads positions 35-37 of the 008 fixed field, falling
// back to 041 $a.
func deriveLanguage(rec *marc.Record) *string {
	f008 := rec.ControlField("008")
	if len(f008) >= 38 {
		code := strings.TrimSpace(f008[35:38])
		if code != "" && code != "und" && !strings.Contains(code, "|") {
			return ptr(strings.ToLower(code))
		}
	}
	if v := strings.TrimSpace(rec.First("041", "a")); v != "" {
		return ptr(strings.ToLower(v))
	}
	return nil
}

// deriveDates reads Date1/Date2 from 008 positions 7-10 and 11-14.
// Non-numeric values ("uuuu", blanks) stay nil.
func deriveDates(rec *marc.Record) (*int, *int) {
	f008 := rec.ControlField("008")
	var d1, d2 *int
	if len(f008) >= 11 {
		d1 = parseYear(f008[7:11])
	}
	if len(f008) >= 15 {
		d2 = parseYear(f008[11:15])
	}
	return d1, d2
}

func parseYear(s string) *int {
	s = strings.TrimSpace(s)
	if !yearRe.MatchString(s) {
		return nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &y
}

func firstLink(rec *marc.Record, tag string) *string {
	if v := strings.TrimSpace(rec.First(tag, "w")); v != "" {
		return ptr(v)
	}
	return nil
}

func firstSeriesLink(rec *marc.Record) *string {
	for _, tag := range []string{"830", "490"} {
		if v := strings.TrimSpace(rec.First(tag, "w")); v != "" {
			return ptr(v)
		}
	}
	return nil
}

// deriveFormat builds the composite format string
// "<leader type+level>/<336;337;338 codes>/<flag>". A record without a
// usable leader has no format (nil), which the scorer treats as not
// applicable.
func deriveFormat(rec *marc.Record, hasSeries bool) *string {
	leader := rec.Leader
	if len(leader) < 8 {
		return nil
	}
	leaderPart := leader[6:8]

	facets := make([]string, 3)
	for i, tag := range []string{"336", "337", "338"} {
		facets[i] = strings.TrimSpace(rec.First(tag, "b"))
	}

	flag := PhysicalFlag
	switch leader[7] {
	case 'a', 'b', 'd':
		flag = "a"
	case 's', 'i':
		flag = "s"
	default:
		if hasSeries {
			flag = "s"
		}
	}

	f := leaderPart + "/" + strings.Join(facets, ";") + "/" + flag
	return ptr(f)
}

func dedupe(vals []string) []string {
	if vals == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(vals))
	var out []string
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

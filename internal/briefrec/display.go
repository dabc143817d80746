package briefrec

import (
	"strconv"
	"strings"
)

// Display flattens every populated attribute to a display string, keyed
// by attribute name. Missing attributes are omitted so the view layer
// can distinguish "absent" from "empty".
func (b *BriefRec) Display() map[string]string {
	out := make(map[string]string)

	if len(b.Titles) > 0 {
		var parts []string
		for _, t := range b.Titles {
			if t.Subtitle != "" {
				parts = append(parts, t.Main+": "+t.Subtitle)
			} else {
				parts = append(parts, t.Main)
			}
		}
		out["titles"] = strings.Join(parts, " / ")
	}
	putStr(out, "short_title", b.ShortTitle)
	putSet(out, "creators", b.Creators)
	putSet(out, "corp_creators", b.CorpCreators)
	putSet(out, "isbns", b.ISBNs)
	putSet(out, "issns", b.ISSNs)
	putSet(out, "other_std_ids", b.OtherStdIDs)
	putSet(out, "publishers", b.Publishers)
	putSet(out, "sysnums", b.Sysnums)

	if len(b.Editions) > 0 {
		var parts []string
		for _, ed := range b.Editions {
			parts = append(parts, strings.Join(ed, ", "))
		}
		out["editions"] = strings.Join(parts, " / ")
	}
	putStr(out, "language", b.Language)
	putStr(out, "format", b.Format)
	putInt(out, "date_1", b.Date1)
	putInt(out, "date_2", b.Date2)
	putStr(out, "parent", b.Parent)
	putStr(out, "series", b.Series)
	return out
}

func putStr(m map[string]string, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putInt(m map[string]string, key string, v *int) {
	if v != nil {
		m[key] = strconv.Itoa(*v)
	}
}

func putSet(m map[string]string, key string, vals []string) {
	if len(vals) > 0 {
		m[key] = strings.Join(vals, ", ")
	}
}

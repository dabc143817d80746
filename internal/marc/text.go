package marc

import (
	"fmt"
	"strings"
)

// RenderText returns a line-per-field MARC21 listing suitable for the
// workbench's full-record panel. The leader is always the first line;
// the remaining fields are sorted by tag.
func (r *Record) RenderText() string {
	if r == nil {
		return ""
	}
	var lines []string
	if r.Leader != "" {
		lines = append(lines, fmt.Sprintf("LDR    %s", r.Leader))
	}
	for _, tag := range sortedKeys(r.Control) {
		lines = append(lines, fmt.Sprintf("%s    %s", tag, r.Control[tag]))
	}
	for _, tag := range sortedKeys(r.Data) {
		for _, f := range r.Data[tag] {
			var subs []string
			for _, sf := range f.Subfields {
				subs = append(subs, fmt.Sprintf("$%s %s", sf.Code, sf.Value))
			}
			lines = append(lines, fmt.Sprintf("%s %s%s %s", tag, indicator(f.Ind1), indicator(f.Ind2), strings.Join(subs, " ")))
		}
	}
	return strings.Join(lines, "\n")
}

func indicator(ind string) string {
	if strings.TrimSpace(ind) == "" {
		return "_"
	}
	return ind
}

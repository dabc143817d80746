package score

import (
	"strings"

	"github.com/bibkit/bibmatch/internal/briefrec"
)

// FormatSim evaluates the composite format strings
// "<leader>/<facet;facet;facet>/<flag>".
//
// The leader part contributes a base 0.4 when equal. Each facet position
// present on both sides adds 0.2 on an exact match and 0.1 when either
// facet is blank (an "unknown" wildcard). An accumulated score of at
// least 0.4 snaps to a full 1.0, anything below is 0. A candidate whose
// flag is not the physical-item marker never matches, whatever the
// leader and facets say.
func FormatSim(local, cand *string) *float64 {
	if local == nil || cand == nil {
		return nil
	}
	p1 := strings.Split(*local, "/")
	p2 := strings.Split(*cand, "/")
	if len(p1) != 3 || len(p2) != 3 {
		return nil
	}

	s := 0.0
	if strings.TrimSpace(p1[0]) == strings.TrimSpace(p2[0]) {
		s = 0.4
	}

	facets1 := strings.Split(strings.TrimSpace(p1[1]), ";")
	facets2 := strings.Split(strings.TrimSpace(p2[1]), ";")
	for i := range facets1 {
		if i >= len(facets2) {
			break
		}
		f1 := strings.TrimSpace(facets1[i])
		f2 := strings.TrimSpace(facets2[i])
		switch {
		case f1 == f2 && f1 != "":
			s += 0.2
		case f1 == "" || f2 == "":
			s += 0.1
		}
	}

	if s >= 0.4 {
		s = 1.0
	} else {
		s = 0.0
	}
	if strings.TrimSpace(p2[2]) != briefrec.PhysicalFlag {
		s = 0.0
	}
	return ptr(s)
}

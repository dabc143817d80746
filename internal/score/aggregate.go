package score

// Aggregation methods. Mean is the default: a weighted average in which
// the high-confidence identifier fields count three times. Identifiers
// shifts even more weight onto exact standard numbers.
const (
	MethodMean        = "mean"
	MethodIdentifiers = "identifiers"
)

// minEvidence is the minimum weighted number of applicable scores; with
// less evidence than this the aggregate is forced to 0 rather than
// extrapolated from one or two agreeing fields.
const minEvidence = 4

var methodWeights = map[string]map[string]float64{
	MethodMean: {
		"isbns":       3,
		"short_title": 3,
	},
	MethodIdentifiers: {
		"isbns":         4,
		"issns":         4,
		"other_std_ids": 4,
		"sysnums":       2,
		"short_title":   2,
	},
}

// KnownMethod reports whether name is a selectable aggregation method.
func KnownMethod(name string) bool {
	_, ok := methodWeights[name]
	return ok
}

// Aggregate reduces a score vector to a single confidence value in
// [0,1] under the given aggregation method.
//
// Rules, in order:
//   - a format score of exactly 0 vetoes the whole comparison;
//   - a missing creators score contributes a neutral 0.5 instead of
//     being excluded, so absent author data neither helps nor hurts;
//   - other nil scores are excluded from the average entirely;
//   - fewer than four applicable weighted scores force the result to 0.
func Aggregate(v Vector, method string) float64 {
	weights, ok := methodWeights[method]
	if !ok {
		weights = methodWeights[MethodMean]
	}

	if f := v["format"]; f != nil && *f == 0 {
		return 0
	}

	sum, count := 0.0, 0.0
	for field, s := range v {
		w := 1.0
		if mw, ok := weights[field]; ok {
			w = mw
		}
		if s == nil {
			if field == "creators" {
				sum += 0.5
				count++
			}
			continue
		}
		sum += *s * w
		count += w
	}
	if count < minEvidence {
		return 0
	}
	agg := sum / count
	if agg > 1 {
		agg = 1
	}
	if agg < 0 {
		agg = 0
	}
	return agg
}

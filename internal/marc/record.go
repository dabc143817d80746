// Package marc implements the flattened tag-keyed MARC record
// representation used by the document store, plus MARCXML and
// plain-text conversions.
package marc

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var dataTagRe = regexp.MustCompile(`^\d{3}$`)

// Subfield is a single coded subfield of a datafield.
type Subfield struct {
	Code  string
	Value string
}

// Field is one occurrence of a MARC datafield.
type Field struct {
	Ind1      string
	Ind2      string
	Subfields []Subfield
}

// Record is a bibliographic record as a flattened tag-keyed mapping:
// the leader, controlfields (00X) as plain strings, and datafields as
// repeatable indicator/subfield structures.
type Record struct {
	Leader  string
	Control map[string]string
	Data    map[string][]Field
}

// ControlField returns the value of a controlfield, or "" when absent.
func (r *Record) ControlField(tag string) string {
	if r == nil || r.Control == nil {
		return ""
	}
	return r.Control[tag]
}

// Fields returns all occurrences of a datafield tag.
func (r *Record) Fields(tag string) []Field {
	if r == nil || r.Data == nil {
		return nil
	}
	return r.Data[tag]
}

// Subfields returns every value of the given subfield code across all
// occurrences of tag, in document order.
func (r *Record) Subfields(tag, code string) []string {
	var out []string
	for _, f := range r.Fields(tag) {
		for _, sf := range f.Subfields {
			if sf.Code == code {
				out = append(out, sf.Value)
			}
		}
	}
	return out
}

// First returns the first value of tag/code, or "" when absent.
func (r *Record) First(tag, code string) string {
	for _, f := range r.Fields(tag) {
		for _, sf := range f.Subfields {
			if sf.Code == code {
				return sf.Value
			}
		}
	}
	return ""
}

// MarshalJSON encodes the record in the store's flattened shape:
//
//	{"leader": "...", "008": "...", "245": [{"ind1": " ", "ind2": " ", "sub": [{"a": "..."}]}]}
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Control)+len(r.Data)+1)
	if r.Leader != "" {
		out["leader"] = r.Leader
	}
	for tag, v := range r.Control {
		out[tag] = v
	}
	for tag, fields := range r.Data {
		arr := make([]any, 0, len(fields))
		for _, f := range fields {
			subs := make([]map[string]string, 0, len(f.Subfields))
			for _, sf := range f.Subfields {
				subs = append(subs, map[string]string{sf.Code: sf.Value})
			}
			arr = append(arr, map[string]any{
				"ind1": f.Ind1,
				"ind2": f.Ind2,
				"sub":  subs,
			})
		}
		out[tag] = arr
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flattened shape. Unknown keys are ignored so
// documents carrying extra metadata (e.g. a wrapping "marc" key handled
// by FromDocument) do not fail.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("marc: decode record: %w", err)
	}
	r.Control = make(map[string]string)
	r.Data = make(map[string][]Field)

	for tag, v := range raw {
		switch {
		case tag == "leader":
			_ = json.Unmarshal(v, &r.Leader)
		case strings.HasPrefix(tag, "00"):
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				r.Control[tag] = s
			}
		case dataTagRe.MatchString(tag):
			var fields []struct {
				Ind1 string              `json:"ind1"`
				Ind2 string              `json:"ind2"`
				Sub  []map[string]string `json:"sub"`
			}
			if err := json.Unmarshal(v, &fields); err != nil {
				continue
			}
			for _, rf := range fields {
				f := Field{Ind1: rf.Ind1, Ind2: rf.Ind2}
				for _, sub := range rf.Sub {
					for code, val := range sub {
						f.Subfields = append(f.Subfields, Subfield{Code: code, Value: val})
					}
				}
				r.Data[tag] = append(r.Data[tag], f)
			}
		}
	}
	return nil
}

// FromDocument decodes a stored JSON document into a Record. Documents
// from the union catalog wrap the record under a "marc" key; local
// documents store the fields at the root. Both shapes are accepted.
func FromDocument(doc json.RawMessage) (*Record, error) {
	var probe struct {
		MARC json.RawMessage `json:"marc"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, fmt.Errorf("marc: decode document: %w", err)
	}
	if len(probe.MARC) > 0 {
		doc = probe.MARC
	}
	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

package marc

import (
	"encoding/xml"
	"fmt"
	"sort"
)

type xmlSubfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

type xmlDatafield struct {
	Tag       string        `xml:"tag,attr"`
	Ind1      string        `xml:"ind1,attr"`
	Ind2      string        `xml:"ind2,attr"`
	Subfields []xmlSubfield `xml:"subfield"`
}

type xmlControlfield struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type xmlRecord struct {
	XMLName       xml.Name          `xml:"record"`
	Leader        string            `xml:"leader"`
	Controlfields []xmlControlfield `xml:"controlfield"`
	Datafields    []xmlDatafield    `xml:"datafield"`
}

// ParseXML decodes a MARCXML record. Namespaced documents (MARC21 slim)
// are accepted; element matching is on local names.
func ParseXML(data []byte) (*Record, error) {
	var xr xmlRecord
	if err := xml.Unmarshal(data, &xr); err != nil {
		return nil, fmt.Errorf("marc: parse xml: %w", err)
	}
	rec := &Record{
		Leader:  xr.Leader,
		Control: make(map[string]string),
		Data:    make(map[string][]Field),
	}
	for _, cf := range xr.Controlfields {
		rec.Control[cf.Tag] = cf.Value
	}
	for _, df := range xr.Datafields {
		f := Field{Ind1: df.Ind1, Ind2: df.Ind2}
		for _, sf := range df.Subfields {
			if sf.Value == "" {
				continue
			}
			f.Subfields = append(f.Subfields, Subfield{Code: sf.Code, Value: sf.Value})
		}
		rec.Data[df.Tag] = append(rec.Data[df.Tag], f)
	}
	return rec, nil
}

// ToXML encodes the record as MARCXML with fields sorted by tag.
func (r *Record) ToXML() ([]byte, error) {
	xr := xmlRecord{Leader: r.Leader}
	for _, tag := range sortedKeys(r.Control) {
		xr.Controlfields = append(xr.Controlfields, xmlControlfield{Tag: tag, Value: r.Control[tag]})
	}
	for _, tag := range sortedKeys(r.Data) {
		for _, f := range r.Data[tag] {
			df := xmlDatafield{Tag: tag, Ind1: f.Ind1, Ind2: f.Ind2}
			for _, sf := range f.Subfields {
				df.Subfields = append(df.Subfields, xmlSubfield{Code: sf.Code, Value: sf.Value})
			}
			xr.Datafields = append(xr.Datafields, df)
		}
	}
	out, err := xml.MarshalIndent(xr, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marc: encode xml: %w", err)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

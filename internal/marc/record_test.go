package marc

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleDoc = `{
	"leader": "00000cam a2200000 a 4500",
	"001": "990001234",
	"008": "980115s1998    enk           000 0 eng d",
	"245": [{"ind1": "1", "ind2": "0", "sub": [{"a": "The Iliad /"}, {"c": "Homer."}]}],
	"700": [
		{"ind1": "1", "ind2": " ", "sub": [{"a": "Fagles, Robert."}]},
		{"ind1": "1", "ind2": " ", "sub": [{"a": "Knox, Bernard."}]}
	]
}`

func TestUnmarshalFlattenedShape(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(sampleDoc), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rec.Leader != "00000cam a2200000 a 4500" {
		t.Errorf("leader = %q", rec.Leader)
	}
	if got := rec.ControlField("001"); got != "990001234" {
		t.Errorf("001 = %q", got)
	}
	if got := rec.First("245", "a"); got != "The Iliad /" {
		t.Errorf("245$a = %q", got)
	}
	if got := rec.Fields("700"); len(got) != 2 {
		t.Fatalf("700 occurrences = %d, want 2", len(got))
	}
	if got := rec.Subfields("700", "a"); len(got) != 2 || got[1] != "Knox, Bernard." {
		t.Errorf("700$a = %v", got)
	}
	if got := rec.First("999", "a"); got != "" {
		t.Errorf("absent tag = %q, want empty", got)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(sampleDoc), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(&rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal round trip: %v", err)
	}
	if back.Leader != rec.Leader {
		t.Errorf("leader = %q, want %q", back.Leader, rec.Leader)
	}
	if back.First("245", "c") != "Homer." {
		t.Errorf("245$c = %q", back.First("245", "c"))
	}
	if len(back.Fields("700")) != 2 {
		t.Errorf("700 occurrences = %d", len(back.Fields("700")))
	}
}

func TestFromDocumentUnwrapsUnionShape(t *testing.T) {
	wrapped := `{"mms_id": "991234", "marc": ` + sampleDoc + `}`
	rec, err := FromDocument(json.RawMessage(wrapped))
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if rec.ControlField("001") != "990001234" {
		t.Errorf("001 = %q", rec.ControlField("001"))
	}

	// Bare shape at the root works the same.
	bare, err := FromDocument(json.RawMessage(sampleDoc))
	if err != nil {
		t.Fatalf("FromDocument bare: %v", err)
	}
	if bare.First("245", "a") != "The Iliad /" {
		t.Errorf("245$a = %q", bare.First("245", "a"))
	}
}

func TestFromDocumentRejectsMalformed(t *testing.T) {
	if _, err := FromDocument(json.RawMessage(`not json`)); err == nil {
		t.Error("want error on malformed document")
	}
	if _, err := FromDocument(json.RawMessage(`[1,2,3]`)); err == nil {
		t.Error("want error on non-object document")
	}
}

func TestXMLRoundTrip(t *testing.T) {
	const marcxml = `<record xmlns="http://www.loc.gov/MARC21/slim">
	<leader>00000cam a2200000 a 4500</leader>
	<controlfield tag="001">990001234</controlfield>
	<datafield tag="245" ind1="1" ind2="0">
		<subfield code="a">The Iliad /</subfield>
		<subfield code="c">Homer.</subfield>
	</datafield>
</record>`

	rec, err := ParseXML([]byte(marcxml))
	if err != nil {
		t.Fatalf("ParseXML: %v", err)
	}
	if rec.ControlField("001") != "990001234" {
		t.Errorf("001 = %q", rec.ControlField("001"))
	}
	if rec.First("245", "a") != "The Iliad /" {
		t.Errorf("245$a = %q", rec.First("245", "a"))
	}

	out, err := rec.ToXML()
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	back, err := ParseXML(out)
	if err != nil {
		t.Fatalf("ParseXML round trip: %v", err)
	}
	if back.First("245", "c") != "Homer." {
		t.Errorf("245$c = %q", back.First("245", "c"))
	}
}

func TestRenderText(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(sampleDoc), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	text := rec.RenderText()

	lines := strings.Split(text, "\n")
	if !strings.HasPrefix(lines[0], "LDR") {
		t.Errorf("first line = %q, want leader", lines[0])
	}
	if !strings.Contains(text, "245 10 $a The Iliad /") {
		t.Errorf("missing 245 line in:\n%s", text)
	}
	if !strings.Contains(text, "001    990001234") {
		t.Errorf("missing control line in:\n%s", text)
	}
	// Blank indicators render as underscores.
	if !strings.Contains(text, "700 1_") {
		t.Errorf("missing blank-indicator rendering in:\n%s", text)
	}
}

package llm

import (
	"encoding/json"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"[]", "[]"},
		{"  {\"a\":1}\n", "{\"a\":1}"},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\n{\"changes\":[]}\n```\n", "{\"changes\":[]}"},
		{"```json[1]```", "[1]"},
	}
	for _, tc := range cases {
		if got := string(StripCodeFences([]byte(tc.in))); got != tc.want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeChangeElementRepairsNearMisses(t *testing.T) {
	var m map[string]any
	raw := `{
		"id": "change-7",
		"status": "relevant",
		"comments": [{"username":"x"}],
		"summary": "  Fine raised  ",
		"analysis": "Controllers face higher fines.",
		"change": "Maximum fine raised from 10M to 20M.",
		"before_quote": "10 000 000 EUR",
		"after_quote": "20 000 000 EUR",
		"before_page": "2",
		"after_page": 2,
		"type": "Penalty_Change",
		"classification": "Personal Data",
		"confidence": "0.9"
	}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	SanitizeChangeElement(m)

	for _, k := range []string{"id", "status", "comments"} {
		if _, ok := m[k]; ok {
			t.Errorf("key %q should have been dropped", k)
		}
	}
	if m["summary"] != "Fine raised" {
		t.Errorf("summary = %q", m["summary"])
	}
	if m["type"] != "penalty change" {
		t.Errorf("type = %q", m["type"])
	}
	if m["classification"] != "personal-data handling" {
		t.Errorf("classification = %q", m["classification"])
	}
	if m["confidence"] != 0.9 {
		t.Errorf("confidence = %v", m["confidence"])
	}
	if m["before_page"] != 2 {
		t.Errorf("before_page = %v", m["before_page"])
	}

	b, _ := json.Marshal(m)
	if err := ValidateJSONAgainstSchema(BuildChangeJSONSchema(), b); err != nil {
		t.Errorf("sanitized element should validate: %v", err)
	}
}

func TestSanitizeDoesNotInventRequiredFields(t *testing.T) {
	m := map[string]any{"summary": "x", "type": "not a type", "confidence": 1.5}
	SanitizeChangeElement(m)
	b, _ := json.Marshal(m)
	if err := ValidateJSONAgainstSchema(BuildChangeJSONSchema(), b); err == nil {
		t.Fatal("expected validation failure for incomplete element")
	}
	if m["type"] != "not a type" {
		t.Errorf("unknown type rewritten to %q", m["type"])
	}
}

func TestSegmentationSchemaBounds(t *testing.T) {
	schema := BuildSegmentationJSONSchema(5)
	valid := []string{
		`{"enacting_terms":[2,4]}`,
		`{"title":[1,1],"preamble":[1,2],"enacting_terms":[2,5],"annexes":[null,null]}`,
		`{"enacting_terms":[null,null]}`,
		`{"enacting_terms":null}`,
	}
	for _, v := range valid {
		if err := ValidateJSONAgainstSchema(schema, []byte(v)); err != nil {
			t.Errorf("%s: unexpected error %v", v, err)
		}
	}
	invalid := []string{
		`{}`,
		`{"enacting_terms":[0,2]}`,
		`{"enacting_terms":[2,6]}`,
		`{"enacting_terms":[2]}`,
		`{"enacting_terms":[1,2,3]}`,
		`{"enacting_terms":["a","b"]}`,
	}
	for _, v := range invalid {
		if err := ValidateJSONAgainstSchema(schema, []byte(v)); err == nil {
			t.Errorf("%s: expected validation error", v)
		}
	}
}

package llm

import (
	"bytes"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fineprint/constants"
)

var changeStringFields = []string{"summary", "analysis", "change", "before_quote", "after_quote"}

// allowedChangeKeys is the set the sanitizer keeps. The advisory "id" and any workflow fields are
// dropped because numbering and review state are assigned downstream.
var allowedChangeKeys = map[string]struct{}{
	"summary": {}, "analysis": {}, "change": {}, "before_quote": {}, "after_quote": {},
	"before_page": {}, "after_page": {}, "type": {}, "classification": {}, "confidence": {},
}

// StripCodeFences removes a surrounding ```json ... ``` block, which chat models add despite being told not to.
func StripCodeFences(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	s = s[3:]
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = bytes.TrimPrefix(s, []byte("json"))
	}
	s = bytes.TrimSpace(s)
	s = bytes.TrimSuffix(s, []byte("```"))
	return bytes.TrimSpace(s)
}

// SanitizeChangeElement normalizes one decoded change element in place so that near-miss output
// can still validate:
// - trims free-text fields
// - canonicalizes type and classification spellings
// - coerces numeric strings for confidence and page numbers
// - removes keys outside the change schema
//
// It never fills in a missing required field. It returns what it touched, for logging.
func SanitizeChangeElement(m map[string]any) []string {
	var touched []string

	for _, k := range changeStringFields {
		if v, ok := m[k].(string); ok {
			if s := strings.TrimSpace(v); s != v {
				m[k] = s
			}
		}
	}

	if v, ok := m["type"].(string); ok {
		if t, ok := constants.CanonicalChangeType(v); ok && string(t) != v {
			m["type"] = string(t)
			touched = append(touched, "type("+v+")")
		}
	}
	if v, ok := m["classification"].(string); ok {
		if c, ok := constants.CanonicalClassification(v); ok && string(c) != v {
			m["classification"] = string(c)
			touched = append(touched, "classification("+v+")")
		}
	}

	if v, ok := m["confidence"].(string); ok {
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
			if strings.HasSuffix(strings.TrimSpace(v), "%") {
				f /= 100
			}
			m["confidence"] = f
			touched = append(touched, "confidence(string)")
		}
	}

	for _, k := range []string{"before_page", "after_page"} {
		switch v := m[k].(type) {
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				m[k] = nil
				touched = append(touched, k+"(empty)")
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				m[k] = n
				touched = append(touched, k+"(string)")
			}
		case float64:
			if v == 0 {
				m[k] = nil
				touched = append(touched, k+"(zero)")
			}
		}
	}

	for k := range maps.Clone(m) {
		if _, ok := allowedChangeKeys[k]; !ok {
			delete(m, k)
			touched = append(touched, k+"(unknown)")
		}
	}
	return touched
}

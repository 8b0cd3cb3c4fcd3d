package llm

import "github.com/joseph-ayodele/fineprint/constants"

// Section keys in a segmentation response.
const (
	SectionTitle         = "title"
	SectionPreamble      = "preamble"
	SectionEnactingTerms = "enacting_terms"
	SectionAnnexes       = "annexes"
)

// BuildSegmentationJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the segmentation
// response of a document with totalPages pages. Each section is a [start, end] pair whose items are
// page numbers or null.
func BuildSegmentationJSONSchema(totalPages int) map[string]any {
	if totalPages < 1 {
		totalPages = 1
	}
	pair := func() map[string]any {
		return map[string]any{
			"type": []string{"array", "null"},
			"items": map[string]any{
				"type":    []string{"integer", "null"},
				"minimum": 1,
				"maximum": totalPages,
			},
			"minItems": 2,
			"maxItems": 2,
		}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			SectionTitle:         pair(),
			SectionPreamble:      pair(),
			SectionEnactingTerms: pair(),
			SectionAnnexes:       pair(),
		},
		"required": []string{SectionEnactingTerms},
	}
}

// BuildChangeJSONSchema returns the schema of one change element as the oracle must produce it.
// Workflow fields (status, comments) are not part of it: the normalizer owns them.
func BuildChangeJSONSchema() map[string]any {
	page := map[string]any{"type": []string{"integer", "null"}, "minimum": 1}
	props := map[string]any{
		"id":             map[string]any{"type": []string{"string", "integer"}}, // advisory only
		"summary":        map[string]any{"type": "string", "minLength": 1},
		"analysis":       map[string]any{"type": "string"},
		"change":         map[string]any{"type": "string", "minLength": 1},
		"before_quote":   map[string]any{"type": "string"},
		"after_quote":    map[string]any{"type": "string"},
		"before_page":    page,
		"after_page":     page,
		"type":           map[string]any{"type": "string", "enum": constants.ChangeTypes()},
		"classification": map[string]any{"type": "string", "enum": constants.Classifications()},
		"confidence":     map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}
	required := []string{
		"summary", "analysis", "change", "before_quote", "after_quote",
		"type", "classification", "confidence",
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// BuildChangeListJSONSchema wraps the element schema in the {"changes": [...]} envelope sent to the oracle.
func BuildChangeListJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"changes": map[string]any{
				"type":  "array",
				"items": BuildChangeJSONSchema(),
			},
		},
		"required": []string{"changes"},
	}
}

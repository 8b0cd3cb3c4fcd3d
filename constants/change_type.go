package constants

import (
	"strings"
)

// ChangeType classifies one detected edit.
type ChangeType string

const (
	Addition         ChangeType = "addition"
	Deletion         ChangeType = "deletion"
	Modification     ChangeType = "modification"
	Renumbering      ChangeType = "renumbering"
	ScopeChange      ChangeType = "scope change"
	ThresholdChange  ChangeType = "threshold change"
	DefinitionChange ChangeType = "definition change"
	ReferenceUpdate  ChangeType = "reference update"
	TimelineChange   ChangeType = "timeline change"
	PenaltyChange    ChangeType = "penalty change"
	ProceduralChange ChangeType = "procedural change"
	Unchanged        ChangeType = "unchanged"
)

var allChangeTypes = []ChangeType{
	Addition,
	Deletion,
	Modification,
	Renumbering,
	ScopeChange,
	ThresholdChange,
	DefinitionChange,
	ReferenceUpdate,
	TimelineChange,
	PenaltyChange,
	ProceduralChange,
	Unchanged,
}

// ChangeTypes returns the change type enum as strings, in declaration order.
func ChangeTypes() []string {
	result := make([]string, len(allChangeTypes))
	for i, t := range allChangeTypes {
		result[i] = string(t)
	}
	return result
}

// CanonicalChangeType maps loose spellings ("Scope_Change", "amended") onto the enum.
func CanonicalChangeType(input string) (ChangeType, bool) {
	normalized := canonicalKey(input)
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]ChangeType{
		"added":      Addition,
		"insertion":  Addition,
		"new":        Addition,
		"removed":    Deletion,
		"removal":    Deletion,
		"repeal":     Deletion,
		"amendment":  Modification,
		"amended":    Modification,
		"modified":   Modification,
		"renumbered": Renumbering,
		"scope":      ScopeChange,
		"threshold":  ThresholdChange,
		"definition": DefinitionChange,
		"reference":  ReferenceUpdate,
		"timeline":   TimelineChange,
		"deadline":   TimelineChange,
		"penalty":    PenaltyChange,
		"sanction":   PenaltyChange,
		"procedure":  ProceduralChange,
		"procedural": ProceduralChange,
		"no change":  Unchanged,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	for _, t := range allChangeTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return "", false
}

// Classification is the domain tag on a change record.
type Classification string

const (
	PersonalDataHandling Classification = "personal-data handling"
	CrossBorderTransfer  Classification = "cross-border transfer"
	CloudUsage           Classification = "cloud usage"
	OtherClassification  Classification = "other"
)

var allClassifications = []Classification{
	PersonalDataHandling,
	CrossBorderTransfer,
	CloudUsage,
	OtherClassification,
}

// Classifications returns the classification enum as strings.
func Classifications() []string {
	result := make([]string, len(allClassifications))
	for i, c := range allClassifications {
		result[i] = string(c)
	}
	return result
}

// CanonicalClassification maps loose spellings onto the classification enum.
func CanonicalClassification(input string) (Classification, bool) {
	normalized := canonicalKey(input)
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Classification{
		"personal data":          PersonalDataHandling,
		"personal data handling": PersonalDataHandling,
		"data protection":        PersonalDataHandling,
		"privacy":                PersonalDataHandling,
		"cross border transfer":  CrossBorderTransfer,
		"cross border":           CrossBorderTransfer,
		"international transfer": CrossBorderTransfer,
		"data transfer":          CrossBorderTransfer,
		"cloud":                  CloudUsage,
		"cloud computing":        CloudUsage,
	}
	if c, ok := synonyms[normalized]; ok {
		return c, true
	}
	for _, c := range allClassifications {
		if normalized == string(c) {
			return c, true
		}
	}
	return "", false
}

// canonicalKey lowercases, trims and turns '_' into spaces so "Scope_Change" reads "scope change".
// Hyphens are kept since two classifications contain them.
func canonicalKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}

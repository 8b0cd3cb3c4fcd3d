package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/fineprint/constants"
)

// BuildSegmentSystemPrompt frames the oracle as a structuring assistant for regulation documents.
func BuildSegmentSystemPrompt() string {
	return strings.Join([]string{
		"You are a legal-document structuring assistant.",
		"You identify the page ranges of the four sections of a regulation: title, preamble, enacting terms and annexes.",
		"Return ONLY JSON that matches the provided JSON Schema.",
	}, " ")
}

// BuildSegmentUserPrompt lists the detection anchors and the range rules for a document of totalPages pages.
func BuildSegmentUserPrompt(req SegmentRequest) string {
	total := req.TotalPages
	parts := []string{
		fmt.Sprintf("The document below has %d pages. Each page starts with a [Page N] marker line.", total),
		fmt.Sprintf("Return 1-based inclusive page ranges as [start, end] with 1 <= start <= end <= %d.", total),
		"If you cannot locate a section boundary with confidence, return [null, null] for that section. Never return one null and one number.",
		"",
		"Anchors:",
		"- title: the formal title block at the start (institution, act type, number and date, subject). It ends before the first 'Having regard to' line.",
		"- preamble: the 'Having regard to' block and the numbered 'Whereas' recitals, ending just before the first 'Article 1' heading.",
		"- enacting_terms: from the enacting formula (e.g. 'HAVE ADOPTED THIS REGULATION') or 'Article 1' through the last Article, including Parts, Titles, Chapters and Sections. It ends just before the first page that begins an Annex block.",
		"- annexes: content labelled 'Annex', 'Annex I', 'Appendix' or 'Schedule', in order.",
		"",
		"Ranges may overlap where boundary content is shared, for example an enacting formula that closes the preamble and opens the enacting terms.",
		"Do not force sections to be disjoint.",
	}
	if name := strings.TrimSpace(req.Filename); name != "" {
		parts = append(parts, "", "Filename: "+name)
	}
	parts = append(parts, "", "Document:", req.DocumentText)
	return strings.Join(parts, "\n")
}

// BuildCompareSystemPrompt states the comparison policy: substantive edits only, evidence from both sides.
func BuildCompareSystemPrompt() string {
	return strings.Join([]string{
		"You are a precise assistant that compares two versions of a regulation and outputs structured JSON only.",
		"Rely only on the provided Before and After texts.",
		"Report only substantive edits: changes to legal obligations, definitions, scope, thresholds, timelines, penalties or procedures.",
		"Exclude cosmetic differences such as whitespace, hyphenation, line breaks, typography and page layout. Do not report them at all, even with low confidence.",
	}, " ")
}

// BuildCompareUserPrompt packages both texts with the output contract.
func BuildCompareUserPrompt(req CompareRequest) string {
	var b strings.Builder
	b.WriteString("Compare the regulation Before against After.\n")
	b.WriteString("Both texts keep their [Page N] markers so you can cite pages.\n")
	if req.BeforeRange != nil {
		b.WriteString("Before is narrowed to its enacting terms, pages " + req.BeforeRange.String() + ".\n")
	}
	if req.AfterRange != nil {
		b.WriteString("After is narrowed to its enacting terms, pages " + req.AfterRange.String() + ".\n")
	}
	b.WriteString("\nRespond with ONLY a JSON object {\"changes\": [...]} where each element has these fields:\n")
	b.WriteString("- summary: one sentence in plain language\n")
	b.WriteString("- analysis: 2 to 4 sentences on implications, scope and who is affected\n")
	b.WriteString("- change: precise description of the edit\n")
	b.WriteString("- before_quote: exact excerpt from Before with 2 to 6 sentences of surrounding context (empty for an addition)\n")
	b.WriteString("- after_quote: exact excerpt from After with 2 to 6 sentences of surrounding context (empty for a deletion)\n")
	b.WriteString("- before_page, after_page: page number of each quote, or null when that side has no quote\n")
	b.WriteString("- type: one of " + strings.Join(constants.ChangeTypes(), " | ") + "\n")
	b.WriteString("- classification: one of " + strings.Join(constants.Classifications(), " | ") + "\n")
	b.WriteString("- confidence: number between 0.00 and 1.00\n")
	b.WriteString("\nAlign sections by their titles and numbering before comparing; report renumbering as its own change.\n")
	b.WriteString("If the operative content is identical, return {\"changes\": []}.\n")
	b.WriteString("Do not add keys that are not listed and do not write text outside the JSON.\n")

	b.WriteString("\nBefore:\n")
	b.WriteString(req.BeforeText)
	b.WriteString("\n\nAfter:\n")
	b.WriteString(req.AfterText)
	return b.String()
}

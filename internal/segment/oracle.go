package segment

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// OracleSegmenter asks the text-comprehension oracle for section ranges and keeps the enacting terms.
// Oracle failures and invalid ranges degrade to the full-text fallback. Only cancellation of ctx
// is returned as an error.
type OracleSegmenter struct {
	oracle  llm.Oracle
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewOracleSegmenter(oracle llm.Oracle, m *metrics.Metrics, logger *slog.Logger) *OracleSegmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OracleSegmenter{oracle: oracle, metrics: m, log: logger}
}

type sections struct {
	Title         []*int `json:"title"`
	Preamble      []*int `json:"preamble"`
	EnactingTerms []*int `json:"enacting_terms"`
	Annexes       []*int `json:"annexes"`
}

func (s *OracleSegmenter) Segment(ctx context.Context, documentText string, totalPages int) (*entity.PageRange, error) {
	log := common.LoggerFrom(ctx, s.log)
	start := time.Now()
	if totalPages < 1 {
		s.metrics.SegmentFallback("no_pages")
		return nil, nil
	}

	raw, err := s.oracle.Segment(ctx, llm.SegmentRequest{DocumentText: documentText, TotalPages: totalPages})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.metrics.SegmentFallback("oracle_error")
		log.Warn("segment.oracle.fallback", "reason", "oracle_error", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil
	}

	r, reason := parseEnactingRange(raw, totalPages)
	if r == nil {
		s.metrics.SegmentFallback(reason)
		log.Warn("segment.oracle.fallback", "reason", reason, "total_pages", totalPages,
			"raw", truncate(string(raw), 512), "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil
	}

	log.Info("segment.oracle.ok", "enacting_terms", r.String(), "total_pages", totalPages,
		"elapsed_ms", time.Since(start).Milliseconds())
	return r, nil
}

// parseEnactingRange validates raw against the segmentation schema for totalPages and extracts the
// enacting-terms pair. The other sections are validated but unused. On failure it returns a reason.
func parseEnactingRange(raw []byte, totalPages int) (*entity.PageRange, string) {
	content := llm.StripCodeFences(raw)
	if err := llm.ValidateJSONAgainstSchema(llm.BuildSegmentationJSONSchema(totalPages), content); err != nil {
		return nil, "invalid_output"
	}
	var out sections
	if err := json.Unmarshal(content, &out); err != nil {
		return nil, "invalid_output"
	}
	r := ValidateRange(out.EnactingTerms, totalPages)
	if r == nil {
		return nil, "no_boundary"
	}
	return r, ""
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}

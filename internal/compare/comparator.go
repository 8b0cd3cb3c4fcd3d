// Package compare diffs the operative text of two regulation versions through the oracle.
package compare

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm"
)

// Comparator narrows both sides to their enacting terms and asks the oracle for substantive changes.
// The result is raw oracle output; it must pass through the normalizer before use.
type Comparator struct {
	oracle        llm.Oracle
	maxInputChars int
	log           *slog.Logger
}

// NewComparator returns a comparator. maxInputChars caps each side's text; 0 disables the cap.
func NewComparator(oracle llm.Oracle, maxInputChars int, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{oracle: oracle, maxInputChars: maxInputChars, log: logger}
}

// Compare diffs beforeText against afterText. A nil range means the full text of that side.
// Failures are always typed: ErrOracleUnavailable or ErrAnalysisOutput.
func (c *Comparator) Compare(ctx context.Context, beforeText, afterText string, beforeRange, afterRange *entity.PageRange) (llm.RawPayload, error) {
	log := common.LoggerFrom(ctx, c.log)
	start := time.Now()

	before, beforeRange := c.narrow(ctx, "before", beforeText, beforeRange)
	after, afterRange := c.narrow(ctx, "after", afterText, afterRange)

	raw, err := c.oracle.Compare(ctx, llm.CompareRequest{
		BeforeText:  before,
		AfterText:   after,
		BeforeRange: beforeRange,
		AfterRange:  afterRange,
	})
	if err != nil {
		if !errors.Is(err, common.ErrOracleUnavailable) && !errors.Is(err, common.ErrAnalysisOutput) {
			err = common.OracleUnavailableError("compare", err)
		}
		log.Error("compare.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	log.Info("compare.ok",
		"before_len", len(before),
		"after_len", len(after),
		"raw_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return raw, nil
}

// narrow slices text to r, falls back to the full text when the slice is empty, then applies the size cap.
// It returns the range actually used.
func (c *Comparator) narrow(ctx context.Context, side, text string, r *entity.PageRange) (string, *entity.PageRange) {
	log := common.LoggerFrom(ctx, c.log)
	if r != nil {
		sliced := extract.SliceRange(text, r)
		if sliced == "" {
			log.Warn("compare.range_empty", "side", side, "range", r.String())
			r = nil
		} else {
			text = sliced
		}
	}
	if c.maxInputChars > 0 && len(text) > c.maxInputChars {
		kept, dropped := capPages(text, c.maxInputChars)
		log.Warn("compare.input_truncated",
			"side", side, "limit", c.maxInputChars, "len", len(text), "dropped_pages", dropped)
		text = kept
	}
	return text, r
}

// capPages keeps whole leading pages while the text fits in limit bytes. If even the first page
// is too long it is cut at limit.
func capPages(text string, limit int) (string, int) {
	pages := extract.SplitPages(text)
	if len(pages) == 0 {
		return text[:limit], 0
	}
	kept, size := 0, 0
	for _, p := range pages {
		n := len(extract.Marker(p.Number)) + 1 + len(p.Text)
		if kept > 0 {
			n += 2
		}
		if size+n > limit {
			break
		}
		size += n
		kept++
	}
	if kept == 0 {
		first := extract.Marker(pages[0].Number) + "\n" + pages[0].Text
		return first[:min(len(first), limit)], len(pages) - 1
	}

	var b strings.Builder
	b.Grow(size)
	for i, p := range pages[:kept] {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(extract.Marker(p.Number))
		b.WriteString("\n")
		b.WriteString(p.Text)
	}
	return b.String(), len(pages) - kept
}

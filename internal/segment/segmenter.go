// Package segment locates the enacting terms of a regulation document.
package segment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// Segmenter estimates the inclusive page range holding a document's enacting terms.
// A nil range with a nil error means no confident boundary: callers compare full text.
// Any non-nil range satisfies 1 <= Start <= End <= totalPages.
type Segmenter interface {
	Segment(ctx context.Context, documentText string, totalPages int) (*entity.PageRange, error)
}

// Kinds accepted by New.
const (
	KindOracle  = "oracle"
	KindAnchors = "anchors"
	KindNone    = "none"
)

// New builds the segmenter selected by kind.
func New(kind string, oracle llm.Oracle, m *metrics.Metrics, logger *slog.Logger) (Segmenter, error) {
	switch kind {
	case KindOracle, "":
		if oracle == nil {
			return nil, fmt.Errorf("oracle segmenter requires an oracle")
		}
		return NewOracleSegmenter(oracle, m, logger), nil
	case KindAnchors:
		return NewAnchorSegmenter(logger), nil
	case KindNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown segmenter %q", kind)
	}
}

// ValidateRange turns a [start, end] pair into a range, or nil when the pair is partially null,
// has the wrong arity or breaks 1 <= start <= end <= total.
func ValidateRange(pair []*int, total int) *entity.PageRange {
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return nil
	}
	r := entity.PageRange{Start: *pair[0], End: *pair[1]}
	if !r.Valid(total) {
		return nil
	}
	return &r
}

// None never narrows: every comparison uses full text.
type None struct{}

func (None) Segment(context.Context, string, int) (*entity.PageRange, error) { return nil, nil }

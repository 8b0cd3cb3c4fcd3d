package llm

import (
	"context"

	"github.com/joseph-ayodele/fineprint/internal/entity"
)

// RawPayload is untrusted oracle output. It only becomes change records through the normalizer.
type RawPayload []byte

// SegmentRequest asks the oracle for the page ranges of a document's sections.
type SegmentRequest struct {
	Filename     string
	DocumentText string // page-marked text, see extract.JoinPages
	TotalPages   int
}

// CompareRequest carries both sides of a comparison. Ranges are informational: the texts are
// already narrowed and keep their original page markers.
type CompareRequest struct {
	BeforeText  string
	AfterText   string
	BeforeRange *entity.PageRange
	AfterRange  *entity.PageRange
}

// Oracle is a text-comprehension service able to segment a regulation and compare two versions.
// Implementations return the raw structured content; validation happens downstream.
type Oracle interface {
	Segment(ctx context.Context, req SegmentRequest) (RawPayload, error)
	Compare(ctx context.Context, req CompareRequest) (RawPayload, error)
}

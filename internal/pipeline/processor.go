// Package pipeline runs the analysis half of a version ingestion: extract, segment, compare, normalize.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
	"github.com/joseph-ayodele/fineprint/internal/segment"
)

// Comparator is the change comparator stage.
type Comparator interface {
	Compare(ctx context.Context, beforeText, afterText string, beforeRange, afterRange *entity.PageRange) (llm.RawPayload, error)
}

// Normalizer is the change normalizer stage.
type Normalizer interface {
	Normalize(ctx context.Context, raw llm.RawPayload) ([]entity.ChangeRecord, error)
}

// Processor coordinates extract → segment → compare → normalize for one document pair.
// It never persists anything; committing is the caller's job.
type Processor struct {
	extractor  extract.PageExtractor
	segmenter  segment.Segmenter
	comparator Comparator
	normalizer Normalizer
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewProcessor(
	extractor extract.PageExtractor,
	segmenter segment.Segmenter,
	comparator Comparator,
	normalizer Normalizer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if segmenter == nil {
		segmenter = segment.None{}
	}
	return &Processor{
		extractor:  extractor,
		segmenter:  segmenter,
		comparator: comparator,
		normalizer: normalizer,
		metrics:    m,
		log:        logger,
	}
}

// Input is one document to analyse.
type Input struct {
	Filename string
	Data     []byte
}

// Result is a fully normalized analysis, ready to commit.
type Result struct {
	After       extract.Document
	AfterRange  *entity.PageRange
	BeforeRange *entity.PageRange
	Changes     []entity.ChangeRecord
}

// AnalyzeFirst extracts a first version. There is no predecessor, so no oracle is consulted and
// the change list is empty.
func (p *Processor) AnalyzeFirst(ctx context.Context, a *Attempt, after Input) (*Result, error) {
	a.Enter(constants.IngestExtracting)
	doc, err := p.extractor.Extract(ctx, after.Filename, after.Data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", after.Filename, err)
	}
	a.Logger().Info("ingest.extracted", "side", "after", "pages", doc.PageCount(), "method", doc.Method)
	return &Result{After: doc, Changes: []entity.ChangeRecord{}}, nil
}

// Analyze diffs after against before. Extraction and segmentation of the two sides run
// concurrently; comparison and normalization follow in order.
func (p *Processor) Analyze(ctx context.Context, a *Attempt, before, after Input) (*Result, error) {
	log := a.Logger()

	a.Enter(constants.IngestExtracting)
	var beforeDoc, afterDoc extract.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := p.extractor.Extract(gctx, before.Filename, before.Data)
		if err != nil {
			return fmt.Errorf("extract previous version %s: %w", before.Filename, err)
		}
		beforeDoc = doc
		return nil
	})
	g.Go(func() error {
		doc, err := p.extractor.Extract(gctx, after.Filename, after.Data)
		if err != nil {
			return fmt.Errorf("extract %s: %w", after.Filename, err)
		}
		afterDoc = doc
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	beforeText, afterText := beforeDoc.Text(), afterDoc.Text()
	log.Info("ingest.extracted",
		"before_pages", beforeDoc.PageCount(),
		"after_pages", afterDoc.PageCount(),
		"method", afterDoc.Method,
	)

	a.Enter(constants.IngestSegmenting)
	var beforeRange, afterRange *entity.PageRange
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := p.segmenter.Segment(gctx, beforeText, beforeDoc.PageCount())
		beforeRange = r
		return err
	})
	g.Go(func() error {
		r, err := p.segmenter.Segment(gctx, afterText, afterDoc.PageCount())
		afterRange = r
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	log.Info("ingest.segmented", "before_range", rangeAttr(beforeRange), "after_range", rangeAttr(afterRange))

	a.Enter(constants.IngestComparing)
	raw, err := p.comparator.Compare(ctx, beforeText, afterText, beforeRange, afterRange)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	a.Enter(constants.IngestNormalizing)
	changes, err := p.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Result{
		After:       afterDoc,
		AfterRange:  afterRange,
		BeforeRange: beforeRange,
		Changes:     changes,
	}, nil
}

func rangeAttr(r *entity.PageRange) string {
	if r == nil {
		return "full"
	}
	return r.String()
}

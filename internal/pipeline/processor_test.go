package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/normalize"
	"github.com/joseph-ayodele/fineprint/internal/segment"
)

type fakeExtractor map[string][]string

func (f fakeExtractor) Extract(_ context.Context, filename string, _ []byte) (extract.Document, error) {
	pages, ok := f[filename]
	if !ok {
		return extract.Document{}, common.DocumentFormatError(filename, errors.New("not a pdf"))
	}
	return extract.Document{Pages: pages, Method: "fake"}, nil
}

type fakeComparator struct {
	calls int
	reply string
	err   error
}

func (c *fakeComparator) Compare(context.Context, string, string, *entity.PageRange, *entity.PageRange) (llm.RawPayload, error) {
	c.calls++
	return llm.RawPayload(c.reply), c.err
}

// barrierSegmenter only returns once both sides are being segmented at the same time.
type barrierSegmenter struct {
	mu      sync.Mutex
	arrived int
	both    chan struct{}
}

func newBarrierSegmenter() *barrierSegmenter {
	return &barrierSegmenter{both: make(chan struct{})}
}

func (s *barrierSegmenter) Segment(ctx context.Context, _ string, total int) (*entity.PageRange, error) {
	s.mu.Lock()
	s.arrived++
	if s.arrived == 2 {
		close(s.both)
	}
	s.mu.Unlock()
	select {
	case <-s.both:
		return &entity.PageRange{Start: 1, End: total}, nil
	case <-time.After(2 * time.Second):
		return nil, errors.New("segmentation of the two sides did not overlap")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

const oneChange = `[{"id":"x","summary":"Fine doubled","analysis":"Higher exposure.","change":"10M to 20M",
"before_quote":"up to 10 000 000 EUR","after_quote":"up to 20 000 000 EUR","before_page":2,"after_page":2,
"type":"modification","classification":"personal-data handling","confidence":0.92}]`

var docs = fakeExtractor{
	"a.pdf": {"GDPR", "Article 1\nfines up to 10 000 000 EUR", "ANNEX"},
	"b.pdf": {"GDPR", "Article 1\nfines up to 20 000 000 EUR", "ANNEX"},
}

func TestAnalyzeHappyPath(t *testing.T) {
	cmp := &fakeComparator{reply: oneChange}
	p := NewProcessor(docs, newBarrierSegmenter(), cmp, normalize.New(nil, nil), nil, nil)

	a := p.Begin(context.Background(), KindNext)
	res, err := p.Analyze(context.Background(), a, Input{Filename: "a.pdf"}, Input{Filename: "b.pdf"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	a.Commit()

	if len(res.Changes) != 1 || res.Changes[0].ID != "change-1" || res.Changes[0].Type != constants.Modification {
		t.Fatalf("changes = %#v", res.Changes)
	}
	if res.After.PageCount() != 3 || res.AfterRange == nil || res.AfterRange.End != 3 {
		t.Errorf("after doc/range = %d %v", res.After.PageCount(), res.AfterRange)
	}
	want := []constants.IngestState{
		constants.IngestReceived, constants.IngestExtracting, constants.IngestSegmenting,
		constants.IngestComparing, constants.IngestNormalizing, constants.IngestCommitted,
	}
	if !reflect.DeepEqual(a.History(), want) {
		t.Errorf("history = %v, want %v", a.History(), want)
	}
}

func TestAnalyzeFirstSkipsComparison(t *testing.T) {
	cmp := &fakeComparator{err: errors.New("must not be called")}
	p := NewProcessor(docs, nil, cmp, normalize.New(nil, nil), nil, nil)

	a := p.Begin(context.Background(), KindFirst)
	res, err := p.AnalyzeFirst(context.Background(), a, Input{Filename: "a.pdf"})
	if err != nil {
		t.Fatalf("AnalyzeFirst: %v", err)
	}
	if cmp.calls != 0 {
		t.Errorf("comparator called %d times", cmp.calls)
	}
	if res.Changes == nil || len(res.Changes) != 0 {
		t.Errorf("changes = %#v, want empty", res.Changes)
	}
}

func TestAnalyzeStopsOnExtractionFailure(t *testing.T) {
	cmp := &fakeComparator{reply: "[]"}
	p := NewProcessor(docs, segment.None{}, cmp, normalize.New(nil, nil), nil, nil)

	a := p.Begin(context.Background(), KindNext)
	_, err := p.Analyze(context.Background(), a, Input{Filename: "a.pdf"}, Input{Filename: "scan.png"})
	if !errors.Is(err, common.ErrDocumentFormat) {
		t.Fatalf("err = %v, want ErrDocumentFormat", err)
	}
	if cmp.calls != 0 {
		t.Error("comparator called after extraction failure")
	}
	if a.Fail(err); a.State() != constants.IngestFailed {
		t.Errorf("state = %v", a.State())
	}
}

func TestAnalyzePropagatesTypedFailures(t *testing.T) {
	cases := map[string]struct {
		cmp  *fakeComparator
		want error
	}{
		"oracle down": {&fakeComparator{err: common.OracleUnavailableError("compare", errors.New("timeout"))}, common.ErrOracleUnavailable},
		"prose":       {&fakeComparator{reply: "Here are the changes you asked for."}, common.ErrAnalysisOutput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := NewProcessor(docs, segment.None{}, tc.cmp, normalize.New(nil, nil), nil, nil)
			a := p.Begin(context.Background(), KindNext)
			_, err := p.Analyze(context.Background(), a, Input{Filename: "a.pdf"}, Input{Filename: "b.pdf"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAttemptTerminalStatesAreSticky(t *testing.T) {
	p := NewProcessor(docs, nil, &fakeComparator{}, normalize.New(nil, nil), nil, nil)
	a := p.Begin(context.Background(), KindNext)
	a.Commit()
	_ = a.Fail(errors.New("late"))
	a.Enter(constants.IngestComparing)
	if a.State() != constants.IngestCommitted {
		t.Errorf("state = %v, want committed", a.State())
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                 nil,
		"unsupported_media":  common.UnsupportedMediaTypeError("x.png", "image/png"),
		"document_format":    common.DocumentFormatError("x.pdf", errors.New("eof")),
		"oracle_unavailable": common.OracleUnavailableError("compare", errors.New("503")),
		"analysis_output":    common.NewAnalysisOutputError("bad", nil, nil),
		"conflict":           common.ConflictError("r1"),
		"cancelled":          context.DeadlineExceeded,
		"error":              errors.New("boom"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Errorf("Outcome(%v) = %q, want %q", err, got, want)
		}
	}
}

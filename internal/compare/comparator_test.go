package compare

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm"
)

type recordingOracle struct {
	got   llm.CompareRequest
	reply llm.RawPayload
	err   error
}

func (o *recordingOracle) Segment(context.Context, llm.SegmentRequest) (llm.RawPayload, error) {
	return nil, errors.New("not used")
}

func (o *recordingOracle) Compare(_ context.Context, req llm.CompareRequest) (llm.RawPayload, error) {
	o.got = req
	return o.reply, o.err
}

var (
	beforeDoc = extract.JoinPages([]string{"TITLE", "Article 1\nold obligation", "ANNEX I"}, 1)
	afterDoc  = extract.JoinPages([]string{"TITLE", "Article 1\nnew obligation", "ANNEX I"}, 1)
)

func TestCompareNarrowsToRanges(t *testing.T) {
	o := &recordingOracle{reply: llm.RawPayload(`[]`)}
	c := NewComparator(o, 0, nil)

	r := &entity.PageRange{Start: 2, End: 2}
	raw, err := c.Compare(context.Background(), beforeDoc, afterDoc, r, r)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("raw = %q", raw)
	}
	if o.got.BeforeText != "[Page 2]\nArticle 1\nold obligation" {
		t.Errorf("before text = %q", o.got.BeforeText)
	}
	if strings.Contains(o.got.AfterText, "ANNEX") || !strings.Contains(o.got.AfterText, "[Page 2]") {
		t.Errorf("after text not narrowed with markers kept: %q", o.got.AfterText)
	}
	if o.got.BeforeRange == nil || *o.got.BeforeRange != *r {
		t.Errorf("before range = %v", o.got.BeforeRange)
	}
}

func TestCompareNilRangeUsesFullText(t *testing.T) {
	o := &recordingOracle{reply: llm.RawPayload(`[]`)}
	c := NewComparator(o, 0, nil)

	if _, err := c.Compare(context.Background(), beforeDoc, afterDoc, nil, &entity.PageRange{Start: 2, End: 3}); err != nil {
		t.Fatal(err)
	}
	if o.got.BeforeText != beforeDoc {
		t.Errorf("before text should be the full document")
	}
	if o.got.BeforeRange != nil {
		t.Errorf("before range = %v, want nil", o.got.BeforeRange)
	}
}

func TestCompareEmptySliceFallsBack(t *testing.T) {
	o := &recordingOracle{reply: llm.RawPayload(`[]`)}
	c := NewComparator(o, 0, nil)

	// Page 7 does not exist in a 3-page document.
	if _, err := c.Compare(context.Background(), beforeDoc, afterDoc, &entity.PageRange{Start: 7, End: 7}, nil); err != nil {
		t.Fatal(err)
	}
	if o.got.BeforeText != beforeDoc || o.got.BeforeRange != nil {
		t.Errorf("expected full-text fallback, got %q range %v", o.got.BeforeText, o.got.BeforeRange)
	}
}

func TestCompareCapsInputOnPageBoundary(t *testing.T) {
	o := &recordingOracle{reply: llm.RawPayload(`[]`)}
	long := extract.JoinPages([]string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)}, 1)
	c := NewComparator(o, 110, nil)

	if _, err := c.Compare(context.Background(), long, long, nil, nil); err != nil {
		t.Fatal(err)
	}
	if len(o.got.BeforeText) > 110 {
		t.Errorf("before text not capped: %d bytes", len(o.got.BeforeText))
	}
	if !strings.HasSuffix(o.got.BeforeText, strings.Repeat("b", 40)) || strings.Contains(o.got.BeforeText, "c") {
		t.Errorf("expected pages 1-2 only, got %q", o.got.BeforeText)
	}
}

func TestCompareTypesUntypedOracleErrors(t *testing.T) {
	o := &recordingOracle{err: errors.New("socket closed")}
	_, err := NewComparator(o, 0, nil).Compare(context.Background(), beforeDoc, afterDoc, nil, nil)
	if !errors.Is(err, common.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
}

func TestCompareKeepsAnalysisOutputErrors(t *testing.T) {
	o := &recordingOracle{err: common.NewAnalysisOutputError("no choices in completion", []byte(`{}`), nil)}
	_, err := NewComparator(o, 0, nil).Compare(context.Background(), beforeDoc, afterDoc, nil, nil)
	if !errors.Is(err, common.ErrAnalysisOutput) || errors.Is(err, common.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want only ErrAnalysisOutput", err)
	}
}

package extract

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

type stubRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

func (s *stubRunner) Run(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	if err := s.errs[name]; err != nil {
		return nil, []byte("Syntax Error: Couldn't find trailer dictionary"), err
	}
	return s.outputs[name], nil, nil
}

func TestPopplerExtractorSplitsPages(t *testing.T) {
	runner := &stubRunner{outputs: map[string][]byte{
		"pdfinfo":   []byte("Title: GDPR\nPages:          3\nEncrypted: no\n"),
		"pdftotext": []byte("Title\f\fArticle 1\nScope\f"),
	}}
	ex := NewPopplerExtractor(PopplerConfig{TempDir: t.TempDir()}, runner, nil)

	doc, err := ex.Extract(context.Background(), "gdpr.pdf", []byte("%PDF-1.7 fake"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.PageCount() != 3 {
		t.Fatalf("pages = %d, want 3", doc.PageCount())
	}
	if doc.Pages[0] != "Title" || doc.Pages[1] != "" || doc.Pages[2] != "Article 1\nScope" {
		t.Errorf("unexpected pages: %q", doc.Pages)
	}
	if len(doc.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", doc.Warnings)
	}
}

func TestPopplerExtractorPadsMissingPages(t *testing.T) {
	runner := &stubRunner{outputs: map[string][]byte{
		"pdfinfo":   []byte("Pages: 4\n"),
		"pdftotext": []byte("only page\f"),
	}}
	ex := NewPopplerExtractor(PopplerConfig{TempDir: t.TempDir()}, runner, nil)

	doc, err := ex.Extract(context.Background(), "short.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.PageCount() != 4 {
		t.Fatalf("pages = %d, want 4 (count must come from pdfinfo)", doc.PageCount())
	}
	if len(doc.Warnings) != 1 {
		t.Errorf("expected one mismatch warning, got %v", doc.Warnings)
	}
}

func TestPopplerExtractorMalformedDocument(t *testing.T) {
	runner := &stubRunner{errs: map[string]error{"pdfinfo": errors.New("exit status 1")}}
	ex := NewPopplerExtractor(PopplerConfig{TempDir: t.TempDir()}, runner, nil)

	_, err := ex.Extract(context.Background(), "broken.pdf", []byte("not a pdf"))
	if !errors.Is(err, common.ErrDocumentFormat) {
		t.Fatalf("err = %v, want ErrDocumentFormat", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("pdftotext must not run after pdfinfo failed, calls = %v", runner.calls)
	}
}

func TestPopplerExtractorMissingBinaryIsNotAFormatError(t *testing.T) {
	runner := &stubRunner{errs: map[string]error{"pdfinfo": exec.ErrNotFound}}
	ex := NewPopplerExtractor(PopplerConfig{TempDir: t.TempDir()}, runner, nil)

	_, err := ex.Extract(context.Background(), "a.pdf", []byte("%PDF"))
	if err == nil || errors.Is(err, common.ErrDocumentFormat) {
		t.Fatalf("err = %v, want a non-format error", err)
	}
}

func TestPopplerExtractorEmptyInput(t *testing.T) {
	ex := NewPopplerExtractor(PopplerConfig{}, &stubRunner{}, nil)
	if _, err := ex.Extract(context.Background(), "empty.pdf", nil); !errors.Is(err, common.ErrDocumentFormat) {
		t.Fatalf("err = %v, want ErrDocumentFormat", err)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	stderr := "Syntax Error: 无效的交叉引用表"
	for max := 0; max <= len(stderr); max++ {
		got := truncate(stderr, max)
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) = %q is not valid UTF-8", max, got)
		}
		if !strings.HasPrefix(stderr, strings.TrimSuffix(got, "...(truncated)")) {
			t.Errorf("truncate(%d) = %q is not a prefix", max, got)
		}
	}
}

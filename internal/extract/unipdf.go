package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unidoc/unipdf/v3/common/license"
	unextractor "github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

var licenseOnce sync.Once

// UniPDFExtractor extracts pages in-process with unipdf; no external binaries required.
type UniPDFExtractor struct {
	logger *slog.Logger
}

// NewUniPDFExtractor registers the metered license key once per process when one is given.
func NewUniPDFExtractor(licenseKey string, logger *slog.Logger) *UniPDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if licenseKey != "" {
		licenseOnce.Do(func() {
			if err := license.SetMeteredKey(licenseKey); err != nil {
				logger.Warn("extract.unipdf.license_failed", "error", err)
			}
		})
	}
	return &UniPDFExtractor{logger: logger}
}

func (e *UniPDFExtractor) Extract(ctx context.Context, filename string, data []byte) (Document, error) {
	start := time.Now()
	if len(data) == 0 {
		return Document{}, common.DocumentFormatError(filename, errors.New("empty file"))
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return Document{}, common.DocumentFormatError(filename, err)
	}
	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return Document{}, common.DocumentFormatError(filename, err)
	}
	if encrypted {
		ok, decErr := reader.Decrypt([]byte(""))
		if decErr != nil || !ok {
			return Document{}, common.DocumentFormatError(filename, errors.New("encrypted document"))
		}
	}

	total, err := reader.GetNumPages()
	if err != nil {
		return Document{}, common.DocumentFormatError(filename, err)
	}
	if total < 1 {
		return Document{}, common.DocumentFormatError(filename, errors.New("document has no pages"))
	}

	pages := make([]string, total)
	var warnings []string
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, fmt.Errorf("extract %q: %w", filename, err)
		}
		text, pageErr := e.pageText(reader, i)
		if pageErr != nil {
			// keep the page, empty, so numbering stays aligned with the source
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, pageErr))
			continue
		}
		pages[i-1] = NormalizePage(text)
	}

	doc := Document{Pages: pages, Method: "unipdf", Duration: time.Since(start), Warnings: warnings}
	e.logger.Info("extract.unipdf.ok",
		"file", filename,
		"pages", total,
		"warnings", len(warnings),
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func (e *UniPDFExtractor) pageText(reader *model.PdfReader, n int) (string, error) {
	page, err := reader.GetPage(n)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	ex, err := unextractor.New(page)
	if err != nil {
		return "", fmt.Errorf("create extractor: %w", err)
	}
	text, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

// Package extract turns document bytes into per-page plain text with parseable page markers.
package extract

import (
	"context"
	"time"
)

// PageExtractor is the first ingestion stage: file bytes -> pages.
// Malformed input fails with a common.ErrDocumentFormat error.
type PageExtractor interface {
	Extract(ctx context.Context, filename string, data []byte) (Document, error)
}

// Document is the extracted text of one file. Pages[i] holds page i+1; pages without
// extractable text are empty strings, never omitted.
type Document struct {
	Pages    []string
	Method   string // "pdftotext" | "unipdf"
	Duration time.Duration
	Warnings []string
}

// PageCount is the total number of pages, including empty ones.
func (d Document) PageCount() int {
	return len(d.Pages)
}

// Text concatenates every page, each prefixed with its "[Page N]" marker.
func (d Document) Text() string {
	return JoinPages(d.Pages, 1)
}

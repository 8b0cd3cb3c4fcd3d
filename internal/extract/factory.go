package extract

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

// New builds the page extractor selected by cfg.Backend.
func New(cfg common.ExtractorConfig, logger *slog.Logger) (PageExtractor, error) {
	switch cfg.Backend {
	case "", "pdftotext":
		return NewPopplerExtractor(PopplerConfig{
			Pdftotext: cfg.Pdftotext,
			Pdfinfo:   cfg.Pdfinfo,
			Timeout:   cfg.CommandTimeout,
		}, nil, logger), nil
	case "unipdf":
		return NewUniPDFExtractor(cfg.UnidocLicense, logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Backend)
	}
}

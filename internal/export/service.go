// Package export renders a version's change records as an XLSX report.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/repository"
)

// maxCellChars stays under the XLSX limit of 32767 characters per cell.
const maxCellChars = 32000

const sheet = "Changes"

// Service is a tiny façade over the regulation repository that produces XLSX bytes.
type Service struct {
	regs   repository.RegulationRepository
	logger *slog.Logger
}

func NewService(regs repository.RegulationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{regs: regs, logger: logger}
}

var headers = []string{
	"ID",
	"Type",
	"Classification",
	"Confidence",
	"Status",
	"Summary",
	"Analysis",
	"Change",
	"Before Quote",
	"After Quote",
	"Before Page",
	"After Page",
	"Comments",
}

// ExportVersionXLSX returns a workbook with one row per change record of the version.
func (s *Service) ExportVersionXLSX(ctx context.Context, regID, versionID string) ([]byte, error) {
	start := time.Now()

	reg, err := s.regs.Get(ctx, regID)
	if err != nil {
		return nil, err
	}
	i := reg.FindVersion(versionID)
	if i < 0 {
		return nil, common.NewNotFoundError("version", versionID)
	}
	v := reg.Versions[i]

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   fmt.Sprintf("%s %s", reg.Title, v.Label),
		Subject: "Change report",
		Created: start.UTC().Format(time.RFC3339),
	})

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, style)
	}

	row := 2
	for _, c := range v.Changes {
		write := func(col int, val any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, val)
		}
		write(1, c.ID)
		write(2, string(c.Type))
		write(3, string(c.Classification))
		write(4, c.Confidence)
		write(5, string(c.Status))
		write(6, truncate(c.Summary, maxCellChars))
		write(7, truncate(c.Analysis, maxCellChars))
		write(8, truncate(c.Change, maxCellChars))
		write(9, truncate(c.BeforeQuote, maxCellChars))
		write(10, truncate(c.AfterQuote, maxCellChars))
		write(11, pageCell(c.BeforePage))
		write(12, pageCell(c.AfterPage))
		write(13, len(c.Comments))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12) // id
	_ = f.SetColWidth(sheet, "B", "C", 22) // type, classification
	_ = f.SetColWidth(sheet, "D", "E", 12)
	_ = f.SetColWidth(sheet, "F", "H", 48) // prose
	_ = f.SetColWidth(sheet, "I", "J", 60) // quotes
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	common.LoggerFrom(ctx, s.logger).Info("export.xlsx.ok",
		"regulation_id", regID,
		"version_id", versionID,
		"rows", len(v.Changes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func pageCell(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

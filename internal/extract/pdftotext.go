package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

// PopplerConfig configures the poppler-utils backend.
type PopplerConfig struct {
	Pdftotext string        // binary name or absolute path; if empty -> "pdftotext"
	Pdfinfo   string        // binary name or absolute path; if empty -> "pdfinfo"
	Timeout   time.Duration // per command; 0 = only the caller's context
	TempDir   string        // where uploads are spilled for the binaries; "" = os.TempDir()
}

// PopplerExtractor shells out to pdfinfo (page count) and pdftotext (text, '\f' between pages).
type PopplerExtractor struct {
	cfg    PopplerConfig
	runner Runner
	logger *slog.Logger
}

func NewPopplerExtractor(cfg PopplerConfig, runner Runner, logger *slog.Logger) *PopplerExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PopplerExtractor{cfg: cfg, runner: runner, logger: logger}
}

func (e *PopplerExtractor) Extract(ctx context.Context, filename string, data []byte) (Document, error) {
	start := time.Now()
	if len(data) == 0 {
		return Document{}, common.DocumentFormatError(filename, errors.New("empty file"))
	}

	tmp, err := os.CreateTemp(e.cfg.TempDir, "fineprint-*.pdf")
	if err != nil {
		return Document{}, fmt.Errorf("spill upload: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			e.logger.Warn("extract.tempfile.remove_failed", "path", tmp.Name(), "error", rmErr)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Document{}, fmt.Errorf("spill upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Document{}, fmt.Errorf("spill upload: %w", err)
	}

	total, err := e.pageCount(ctx, filename, tmp.Name())
	if err != nil {
		return Document{}, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return Document{}, e.commandError(ctx, filename, err, errb)
	}

	pages, warnings := splitFormFeeds(string(out), total)
	doc := Document{
		Pages:    pages,
		Method:   "pdftotext",
		Duration: time.Since(start),
		Warnings: warnings,
	}
	e.logger.Info("extract.pdftotext.ok",
		"file", filename,
		"pages", doc.PageCount(),
		"bytes", len(out),
		"warnings", len(warnings),
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func (e *PopplerExtractor) pageCount(ctx context.Context, filename, path string) (int, error) {
	out, errb, err := e.run(ctx, e.cfg.Pdfinfo, path)
	if err != nil {
		return 0, e.commandError(ctx, filename, err, errb)
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if convErr != nil || n < 1 {
			return 0, common.DocumentFormatError(filename, fmt.Errorf("bad page count line %q", line))
		}
		return n, nil
	}
	return 0, common.DocumentFormatError(filename, errors.New("pdfinfo reported no page count"))
}

func (e *PopplerExtractor) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return e.runner.Run(ctx, name, args...)
}

// commandError separates caller cancellation and a missing binary from a malformed document.
func (e *PopplerExtractor) commandError(ctx context.Context, filename string, err error, stderr []byte) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("extract %q: %w", filename, ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("extract %q: %w", filename, err)
	}
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return common.DocumentFormatError(filename, err)
	}
	return common.DocumentFormatError(filename, fmt.Errorf("%w: %s", err, truncate(msg, 512)))
}

// splitFormFeeds cuts pdftotext output into exactly total pages. pdftotext terminates every
// page with '\f', so the trailing empty segment is not a page.
func splitFormFeeds(out string, total int) ([]string, []string) {
	segs := strings.Split(out, "\f")
	if len(segs) > 0 && strings.TrimSpace(segs[len(segs)-1]) == "" && strings.HasSuffix(out, "\f") {
		segs = segs[:len(segs)-1]
	}
	var warnings []string
	if len(segs) != total {
		warnings = append(warnings, fmt.Sprintf("pdftotext produced %d page breaks for %d pages", len(segs), total))
	}
	pages := make([]string, total)
	for i := 0; i < total && i < len(segs); i++ {
		pages[i] = NormalizePage(segs[i])
	}
	if len(segs) > total {
		// fold any overflow into the last page rather than lose text
		rest := make([]string, 0, len(segs)-total)
		for _, s := range segs[total:] {
			if t := NormalizePage(s); t != "" {
				rest = append(rest, t)
			}
		}
		if len(rest) > 0 {
			pages[total-1] = strings.TrimSpace(pages[total-1] + "\n\n" + strings.Join(rest, "\n\n"))
		}
	}
	return pages, warnings
}

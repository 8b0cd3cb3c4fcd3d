package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/regulations"
)

// Processed files are moved into these hidden subdirectories of their regulation folder.
const (
	DoneDir   = ".done"
	FailedDir = ".failed"
)

// Ingester is the part of the regulation service the inbox drives.
type Ingester interface {
	IngestNextVersion(ctx context.Context, regID, label string, up regulations.Upload) (*entity.Version, error)
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path         string
	RegulationID string
	VersionID    string
	Err          string
	Deferred     bool // left in place for a later attempt
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
	Deferred  uint32
}

// Inbox ingests PDFs dropped into {root}/{regulation-id}/ as new versions of that regulation.
// The file name without extension becomes the version label.
type Inbox struct {
	root   string
	regs   Ingester
	logger *slog.Logger
}

func NewInbox(root string, regs Ingester, logger *slog.Logger) (*Inbox, error) {
	if strings.TrimSpace(root) == "" {
		return nil, common.InvalidInputError("inbox root is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox: %w", err)
	}
	return &Inbox{root: abs, regs: regs, logger: logger}, nil
}

// Root returns the absolute inbox directory.
func (i *Inbox) Root() string { return i.root }

// IngestPath ingests one file and moves it to the done or failed folder.
// A file that disappeared before it could be read is skipped without error.
func (i *Inbox) IngestPath(ctx context.Context, path string) (FileResult, error) {
	out := FileResult{Path: path}

	regID, err := i.regulationFor(path)
	if err != nil {
		out.Err = err.Error()
		return out, err
	}
	out.RegulationID = regID

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		out.Err = err.Error()
		return out, fmt.Errorf("read: %w", err)
	}

	base := filepath.Base(path)
	label := strings.TrimSuffix(base, filepath.Ext(base))
	v, err := i.regs.IngestNextVersion(ctx, regID, label, regulations.Upload{
		Filename:    base,
		ContentType: constants.MediaTypePDF,
		Data:        data,
	})
	if err != nil {
		out.Err = err.Error()
		if ctx.Err() != nil || !terminal(err) {
			out.Deferred = true
			i.logger.Warn("inbox ingest deferred", "path", path, "regulation_id", regID, "error", err)
			return out, err
		}
		i.logger.Warn("inbox ingest failed", "path", path, "regulation_id", regID, "error", err)
		if mvErr := i.park(path, FailedDir); mvErr != nil {
			i.logger.Error("inbox move failed", "path", path, "error", mvErr)
		}
		return out, err
	}
	out.VersionID = v.ID
	i.logger.Info("inbox ingested", "path", path, "regulation_id", regID, "version_id", v.ID)
	if err := i.park(path, DoneDir); err != nil {
		i.logger.Error("inbox move failed", "path", path, "error", err)
	}
	return out, nil
}

// terminal reports failures that retrying the same file cannot fix. Anything else, such as an
// unavailable oracle, a lost revision race or a cancelled context, leaves the file for a later pass.
func terminal(err error) bool {
	for _, kind := range []error{
		common.ErrUnsupportedMediaType,
		common.ErrDocumentFormat,
		common.ErrAnalysisOutput,
		common.ErrNotFound,
		common.ErrInvalidInput,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// regulationFor accepts only {root}/{regulation-id}/{file}.pdf.
func (i *Inbox) regulationFor(path string) (string, error) {
	rel, err := filepath.Rel(i.root, path)
	if err != nil {
		return "", common.InvalidInputError(fmt.Sprintf("%s is outside the inbox", path))
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 || parts[0] == ".." || IsHidden(parts[0]) {
		return "", common.InvalidInputError(fmt.Sprintf("%s must sit directly in a regulation folder", rel))
	}
	if !AllowedExt(filepath.Ext(parts[1])) {
		return "", common.InvalidInputError(fmt.Sprintf("%s is not a PDF", rel))
	}
	return parts[0], nil
}

func (i *Inbox) park(path, dir string) error {
	dst := filepath.Join(filepath.Dir(path), dir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dst, filepath.Base(path)))
}

// AllowedExt checks if a file extension is accepted for regulation uploads.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

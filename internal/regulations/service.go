// Package regulations owns the regulation aggregate: version ingestion, deletes, status and
// regulation-level comments. Every write goes through one per-regulation critical section.
package regulations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
	"github.com/joseph-ayodele/fineprint/internal/pipeline"
	"github.com/joseph-ayodele/fineprint/internal/repository"
	"github.com/joseph-ayodele/fineprint/internal/storage"
)

// Announcer is told about every committed version. Failures are logged, never returned.
type Announcer interface {
	Announce(ctx context.Context, reg *entity.Regulation, v *entity.Version) (*entity.Notification, error)
}

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	IngestTimeout time.Duration
	CommitTimeout time.Duration
	Now           func() time.Time
}

// Service implements the regulation boundary operations.
type Service struct {
	repo      repository.RegulationRepository
	store     storage.ObjectStore
	processor *pipeline.Processor
	announcer Announcer
	metrics   *metrics.Metrics
	locks     *keyedLock
	opts      Options
	logger    *slog.Logger
}

func NewService(
	repo repository.RegulationRepository,
	store storage.ObjectStore,
	processor *pipeline.Processor,
	announcer Announcer,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:      repo,
		store:     store,
		processor: processor,
		announcer: announcer,
		metrics:   m,
		locks:     newKeyedLock(),
		opts:      opts,
		logger:    logger,
	}
}

// Upload is one file received for ingestion.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IngestFirstVersion creates a regulation whose first version is upload. No comparison runs,
// so this succeeds even when the oracle is unreachable.
func (s *Service) IngestFirstVersion(ctx context.Context, title, label string, up Upload) (*entity.Regulation, error) {
	a := s.processor.Begin(ctx, pipeline.KindFirst)
	log := a.Logger()

	title, label = strings.TrimSpace(title), strings.TrimSpace(label)
	if err := common.NewValidator().
		Field("title", title, common.Required, common.MaxLength(500)).
		Field("version", label, common.Required, common.MaxLength(100)).
		Field("file", up.Data, common.Required).
		Err(); err != nil {
		return nil, a.Fail(err)
	}
	if err := checkMedia(up); err != nil {
		return nil, a.Fail(err)
	}
	log.Info("ingest.first.start", "title", title, "version", label, "file", up.Filename, "bytes", len(up.Data))

	ctx, cancel := s.withIngestTimeout(ctx)
	defer cancel()

	res, err := s.processor.AnalyzeFirst(ctx, a, pipeline.Input{Filename: up.Filename, Data: up.Data})
	if err != nil {
		return nil, a.Fail(err)
	}

	now := s.opts.Now().UTC()
	reg := &entity.Regulation{
		ID:          uuid.New().String(),
		Title:       title,
		Status:      constants.RegulationStatusPending,
		Comments:    []entity.Comment{},
		CreatedAt:   now,
		LastUpdated: now,
	}

	cctx, ccancel := s.commitContext(ctx)
	defer ccancel()

	key, err := s.putFile(cctx, now, up)
	if err != nil {
		return nil, a.Fail(fmt.Errorf("store %s: %w", up.Filename, err))
	}
	reg.Versions = []entity.Version{s.newVersion(reg, label, up.Filename, key, now, res, "")}

	if err := s.repo.Create(cctx, reg); err != nil {
		s.discard(cctx, key)
		return nil, a.Fail(fmt.Errorf("create regulation: %w", err))
	}
	a.Commit()
	s.announce(cctx, reg, reg.LatestVersion())
	log.Info("ingest.first.committed", "regulation_id", reg.ID, "version_id", reg.Versions[0].ID, "storage_key", key)
	return reg.Clone(), nil
}

// IngestNextVersion analyses upload against the latest version and appends it. Nothing is
// stored unless the analysis fully succeeds.
func (s *Service) IngestNextVersion(ctx context.Context, regID, label string, up Upload) (*entity.Version, error) {
	a := s.processor.Begin(ctx, pipeline.KindNext)
	log := a.Logger().With("regulation_id", regID)

	label = strings.TrimSpace(label)
	if err := common.NewValidator().
		Field("regulation_id", regID, common.Required).
		Field("version", label, common.Required, common.MaxLength(100)).
		Field("file", up.Data, common.Required).
		Err(); err != nil {
		return nil, a.Fail(err)
	}
	if err := checkMedia(up); err != nil {
		return nil, a.Fail(err)
	}

	ctx, cancel := s.withIngestTimeout(ctx)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, regID)
	if err != nil {
		return nil, a.Fail(err)
	}
	defer unlock()

	reg, err := s.repo.Get(ctx, regID)
	if err != nil {
		return nil, a.Fail(err)
	}
	expected := reg.Revision
	latest := reg.LatestVersion()
	log.Info("ingest.next.start", "version", label, "file", up.Filename, "bytes", len(up.Data),
		"versions", len(reg.Versions))

	after := pipeline.Input{Filename: up.Filename, Data: up.Data}
	var (
		res    *pipeline.Result
		baseID string
	)
	if latest == nil {
		// Every version was deleted, there is nothing to compare against.
		res, err = s.processor.AnalyzeFirst(ctx, a, after)
	} else {
		baseID = latest.ID
		var prev []byte
		prev, err = s.loadFile(ctx, latest)
		if err != nil {
			return nil, a.Fail(fmt.Errorf("load version %s: %w", latest.ID, err))
		}
		res, err = s.processor.Analyze(ctx, a, pipeline.Input{Filename: latest.FileName, Data: prev}, after)
	}
	if err != nil {
		return nil, a.Fail(err)
	}

	now := s.opts.Now().UTC()
	cctx, ccancel := s.commitContext(ctx)
	defer ccancel()

	key, err := s.putFile(cctx, now, up)
	if err != nil {
		return nil, a.Fail(fmt.Errorf("store %s: %w", up.Filename, err))
	}
	reg.Versions = append(reg.Versions, s.newVersion(reg, label, up.Filename, key, now, res, baseID))
	reg.Status = constants.RegulationStatusPending
	reg.LastUpdated = now

	if err := s.repo.Update(cctx, reg, expected); err != nil {
		s.discard(cctx, key)
		return nil, a.Fail(fmt.Errorf("append version: %w", err))
	}
	a.Commit()

	v := reg.LatestVersion()
	for _, c := range v.Changes {
		s.metrics.ChangeDetected(string(c.Type))
	}
	s.announce(cctx, reg, v)
	log.Info("ingest.next.committed", "version_id", v.ID, "base_version_id", baseID,
		"changes", len(v.Changes), "storage_key", key)
	out := v.Clone()
	return &out, nil
}

func (s *Service) newVersion(reg *entity.Regulation, label, filename, key string, now time.Time, res *pipeline.Result, baseID string) entity.Version {
	changes := res.Changes
	if changes == nil {
		changes = []entity.ChangeRecord{}
	}
	return entity.Version{
		ID:            reg.NextVersionID(),
		Label:         label,
		UploadDate:    now,
		FileName:      storage.SafeFilename(filename),
		StorageKey:    key,
		PageCount:     res.After.PageCount(),
		EnactingRange: res.AfterRange,
		BaseVersionID: baseID,
		Changes:       changes,
	}
}

// DeleteVersion removes a version and then its stored file. Its id is never issued again.
func (s *Service) DeleteVersion(ctx context.Context, regID, versionID string) error {
	var key string
	_, err := s.Mutate(ctx, regID, func(reg *entity.Regulation) error {
		i := reg.FindVersion(versionID)
		if i < 0 {
			return common.NewNotFoundError("version", versionID)
		}
		key = reg.Versions[i].StorageKey
		reg.VersionSeq = max(reg.VersionSeq, len(reg.Versions))
		reg.Versions = append(reg.Versions[:i], reg.Versions[i+1:]...)
		reg.LastUpdated = s.opts.Now().UTC()
		return nil
	})
	if err != nil {
		return err
	}
	if key != "" {
		s.discard(ctx, key)
	}
	common.LoggerFrom(ctx, s.logger).Info("regulation.version_deleted", "regulation_id", regID, "version_id", versionID)
	return nil
}

// DeleteRegulation removes the aggregate and every file it references.
func (s *Service) DeleteRegulation(ctx context.Context, regID string) error {
	log := common.LoggerFrom(ctx, s.logger).With("regulation_id", regID)
	unlock, err := s.locks.Lock(ctx, regID)
	if err != nil {
		return err
	}
	defer unlock()

	reg, err := s.repo.Get(ctx, regID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, regID); err != nil {
		return fmt.Errorf("delete regulation: %w", err)
	}
	keys := reg.StorageKeys()
	if err := s.store.DeleteMany(ctx, keys); err != nil {
		log.Warn("regulation.files_orphaned", "files", len(keys), "error", err)
	}
	log.Info("regulation.deleted", "versions", len(reg.Versions))
	return nil
}

// SetRegulationStatus marks a regulation pending or validated.
func (s *Service) SetRegulationStatus(ctx context.Context, regID, status string) (*entity.Regulation, error) {
	st, ok := constants.ParseRegulationStatus(status)
	if !ok {
		return nil, common.InvalidInputError(fmt.Sprintf("status %q must be pending or validated", status))
	}
	return s.Mutate(ctx, regID, func(reg *entity.Regulation) error {
		reg.Status = st
		reg.LastUpdated = s.opts.Now().UTC()
		return nil
	})
}

// AddRegulationComment appends a comment to the regulation itself.
func (s *Service) AddRegulationComment(ctx context.Context, regID, username, text string) (*entity.Comment, error) {
	username, text = strings.TrimSpace(username), strings.TrimSpace(text)
	if err := common.NewValidator().
		Field("username", username, common.Required).
		Field("comment", text, common.Required, common.MaxLength(10_000)).
		Err(); err != nil {
		return nil, err
	}
	var c entity.Comment
	_, err := s.Mutate(ctx, regID, func(reg *entity.Regulation) error {
		c = entity.Comment{
			ID:        entity.NextCommentID(reg.Comments),
			Username:  username,
			Text:      text,
			CreatedAt: s.opts.Now().UTC(),
		}
		reg.Comments = append(reg.Comments, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	common.LoggerFrom(ctx, s.logger).Info("regulation.commented", "regulation_id", regID, "comment_id", c.ID)
	return &c, nil
}

// ListRegulations returns every regulation, most recently updated first.
func (s *Service) ListRegulations(ctx context.Context) ([]*entity.Regulation, error) {
	regs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regulations: %w", err)
	}
	return regs, nil
}

func (s *Service) GetRegulation(ctx context.Context, regID string) (*entity.Regulation, error) {
	return s.repo.Get(ctx, regID)
}

func (s *Service) GetVersion(ctx context.Context, regID, versionID string) (*entity.Version, error) {
	reg, err := s.repo.Get(ctx, regID)
	if err != nil {
		return nil, err
	}
	i := reg.FindVersion(versionID)
	if i < 0 {
		return nil, common.NewNotFoundError("version", versionID)
	}
	v := reg.Versions[i].Clone()
	return &v, nil
}

// GetVersionFile returns the version metadata and its stored bytes.
func (s *Service) GetVersionFile(ctx context.Context, regID, versionID string) (*entity.Version, []byte, error) {
	v, err := s.GetVersion(ctx, regID, versionID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.loadFile(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	return v, data, nil
}

// loadFile reads the stored bytes of v. A committed version without its file is a server-side
// fault, not a NotFound the caller could act on.
func (s *Service) loadFile(ctx context.Context, v *entity.Version) ([]byte, error) {
	data, err := s.store.Get(ctx, v.StorageKey)
	if errors.Is(err, common.ErrNotFound) {
		common.LoggerFrom(ctx, s.logger).Error("storage.missing", "version_id", v.ID, "key", v.StorageKey)
		return nil, common.InternalError(fmt.Sprintf("stored file of version %s is missing", v.ID), err)
	}
	return data, err
}

// maxMutateAttempts bounds retries of a pure mutation after losing a cross-process race.
const maxMutateAttempts = 3

// maxKeyAttempts bounds how many neighbouring timestamps putFile tries for a storage key.
const maxKeyAttempts = 5

// Mutate applies fn to a fresh copy of the regulation inside its critical section and writes
// the result with one conditional update. If fn fails nothing is written. A concurrent writer
// in another process causes fn to be re-applied to the newer copy.
func (s *Service) Mutate(ctx context.Context, regID string, fn func(reg *entity.Regulation) error) (*entity.Regulation, error) {
	unlock, err := s.locks.Lock(ctx, regID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		reg, err := s.repo.Get(ctx, regID)
		if err != nil {
			return nil, err
		}
		expected := reg.Revision
		if err := fn(reg); err != nil {
			return nil, err
		}
		err = s.repo.Update(ctx, reg, expected)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, common.ErrConflict) || attempt == maxMutateAttempts {
			return nil, err
		}
		common.LoggerFrom(ctx, s.logger).Warn("regulation.mutate.retry", "regulation_id", regID, "attempt", attempt)
	}
}

func (s *Service) announce(ctx context.Context, reg *entity.Regulation, v *entity.Version) {
	if s.announcer == nil || v == nil {
		return
	}
	if _, err := s.announcer.Announce(ctx, reg, v); err != nil {
		common.LoggerFrom(ctx, s.logger).Warn("notification.announce.failed",
			"regulation_id", reg.ID, "version_id", v.ID, "error", err)
	}
}

// putFile stores up under a fresh key. A taken key belongs to another commit, so the timestamp is
// nudged forward rather than overwriting it.
func (s *Service) putFile(ctx context.Context, now time.Time, up Upload) (string, error) {
	var err error
	for i := 0; i < maxKeyAttempts; i++ {
		var key string
		key, err = s.store.Put(ctx, storage.NewKey(now.Add(time.Duration(i)*time.Microsecond), up.Filename), up.Data)
		if !errors.Is(err, storage.ErrKeyExists) {
			return key, err
		}
	}
	return "", err
}

// discard removes a stored file whose version was never committed, or whose version is gone.
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		common.LoggerFrom(ctx, s.logger).Warn("storage.orphaned", "key", key, "error", err)
	}
}

func (s *Service) withIngestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.IngestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.IngestTimeout)
}

// commitContext detaches the store-then-write commit from the caller so that a disconnect
// cannot leave a stored file without its version.
func (s *Service) commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.CommitTimeout)
}

// checkMedia accepts PDF bytes only. A declared content type must agree when it is specific.
func checkMedia(up Upload) error {
	if up.ContentType != "" {
		declared, _, err := mime.ParseMediaType(up.ContentType)
		if err != nil {
			return common.UnsupportedMediaTypeError(up.Filename, up.ContentType)
		}
		switch declared {
		case constants.MediaTypePDF, "application/octet-stream", "application/x-pdf":
		default:
			return common.UnsupportedMediaTypeError(up.Filename, declared)
		}
	}
	detected := mimetype.Detect(up.Data)
	if !detected.Is(constants.MediaTypePDF) {
		return common.UnsupportedMediaTypeError(up.Filename, detected.String())
	}
	return nil
}

// Package review mutates committed change records: status, field edits and comment threads.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// Mutator applies fn atomically to one regulation aggregate.
type Mutator interface {
	Mutate(ctx context.Context, regID string, fn func(reg *entity.Regulation) error) (*entity.Regulation, error)
}

type Service struct {
	regs    Mutator
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(regs Mutator, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{regs: regs, metrics: m, now: time.Now, logger: logger}
}

// ChangeEdit lists the fields to overwrite. Nil fields are left unchanged.
type ChangeEdit struct {
	Summary        *string
	Analysis       *string
	Change         *string
	BeforeQuote    *string
	AfterQuote     *string
	Classification *string
}

// SetChangeStatus overwrites the review status of one change record.
func (s *Service) SetChangeStatus(ctx context.Context, regID, versionID, changeID, status string) (*entity.ChangeRecord, error) {
	st, ok := constants.ParseChangeStatus(status)
	if !ok {
		return nil, common.InvalidInputError(fmt.Sprintf("status must be one of: %s", strings.Join(constants.ChangeStatuses(), ", ")))
	}
	out, err := s.mutateChange(ctx, regID, versionID, changeID, func(c *entity.ChangeRecord) error {
		c.Status = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ReviewAction("set_status")
	common.LoggerFrom(ctx, s.logger).Info("review.status_set",
		"regulation_id", regID, "version_id", versionID, "change_id", changeID, "status", st)
	return out, nil
}

// EditChange overwrites the given fields and always returns the record to pending, even for an
// empty edit.
func (s *Service) EditChange(ctx context.Context, regID, versionID, changeID string, edit ChangeEdit) (*entity.ChangeRecord, error) {
	var class constants.Classification
	if edit.Classification != nil {
		c, ok := constants.CanonicalClassification(*edit.Classification)
		if !ok {
			return nil, common.InvalidInputError(fmt.Sprintf("unknown classification %q", *edit.Classification))
		}
		class = c
	}
	out, err := s.mutateChange(ctx, regID, versionID, changeID, func(c *entity.ChangeRecord) error {
		setIf(&c.Summary, edit.Summary)
		setIf(&c.Analysis, edit.Analysis)
		setIf(&c.Change, edit.Change)
		setIf(&c.BeforeQuote, edit.BeforeQuote)
		setIf(&c.AfterQuote, edit.AfterQuote)
		if edit.Classification != nil {
			c.Classification = class
		}
		c.Status = constants.ChangeStatusPending
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ReviewAction("edit")
	common.LoggerFrom(ctx, s.logger).Info("review.edited",
		"regulation_id", regID, "version_id", versionID, "change_id", changeID)
	return out, nil
}

// AddChangeComment appends to the change record's thread. Comment ids count within that thread.
func (s *Service) AddChangeComment(ctx context.Context, regID, versionID, changeID, username, text string) (*entity.Comment, error) {
	username, text = strings.TrimSpace(username), strings.TrimSpace(text)
	if err := common.NewValidator().
		Field("username", username, common.Required).
		Field("comment", text, common.Required, common.MaxLength(10_000)).
		Err(); err != nil {
		return nil, err
	}
	var added entity.Comment
	_, err := s.mutateChange(ctx, regID, versionID, changeID, func(c *entity.ChangeRecord) error {
		added = entity.Comment{
			ID:        entity.NextCommentID(c.Comments),
			Username:  username,
			Text:      text,
			CreatedAt: s.now().UTC(),
		}
		c.Comments = append(c.Comments, added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ReviewAction("comment")
	common.LoggerFrom(ctx, s.logger).Info("review.commented",
		"regulation_id", regID, "version_id", versionID, "change_id", changeID, "comment_id", added.ID)
	return &added, nil
}

func (s *Service) mutateChange(ctx context.Context, regID, versionID, changeID string, fn func(c *entity.ChangeRecord) error) (*entity.ChangeRecord, error) {
	var out entity.ChangeRecord
	_, err := s.regs.Mutate(ctx, regID, func(reg *entity.Regulation) error {
		vi := reg.FindVersion(versionID)
		if vi < 0 {
			return common.NewNotFoundError("version", versionID)
		}
		v := &reg.Versions[vi]
		ci := v.FindChange(changeID)
		if ci < 0 {
			return common.NewNotFoundError("change", changeID)
		}
		if err := fn(&v.Changes[ci]); err != nil {
			return err
		}
		out = v.Changes[ci].Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

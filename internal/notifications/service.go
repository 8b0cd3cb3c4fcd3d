// Package notifications records version announcements, tracks who has seen them and emails users.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/mail"
	"github.com/joseph-ayodele/fineprint/internal/repository"
)

// Dispatcher is the fire-and-forget email sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs []mail.Message)
}

type Service struct {
	repo          repository.NotificationRepository
	users         repository.UserRepository
	dispatcher    Dispatcher
	subjectPrefix string
	now           func() time.Time
	logger        *slog.Logger
}

func NewService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	dispatcher Dispatcher,
	subjectPrefix string,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:          repo,
		users:         users,
		dispatcher:    dispatcher,
		subjectPrefix: subjectPrefix,
		now:           time.Now,
		logger:        logger,
	}
}

// Announce records that v was added to reg and emails every user. Email problems are only logged.
func (s *Service) Announce(ctx context.Context, reg *entity.Regulation, v *entity.Version) (*entity.Notification, error) {
	n := &entity.Notification{
		ID:           uuid.New().String(),
		Title:        fmt.Sprintf("New Version Added: %s", reg.Title),
		Message:      fmt.Sprintf("A new version (%s) has been added to the regulation '%s'.", v.Label, reg.Title),
		RegulationID: reg.ID,
		VersionID:    v.ID,
		CreatedAt:    s.now().UTC(),
		SeenBy:       []string{},
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	log := common.LoggerFrom(ctx, s.logger)
	log.Info("notification.created", "notification_id", n.ID, "regulation_id", reg.ID, "version_id", v.ID)

	if s.dispatcher == nil {
		return n, nil
	}
	msgs, err := s.messages(ctx, n)
	if err != nil {
		log.Warn("notification.recipients.failed", "notification_id", n.ID, "error", err)
		return n, nil
	}
	s.dispatcher.Dispatch(ctx, msgs)
	return n, nil
}

// messages builds one email per distinct address.
func (s *Service) messages(ctx context.Context, n *entity.Notification) ([]mail.Message, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	subject := n.Title
	if s.subjectPrefix != "" {
		subject = s.subjectPrefix + " - " + n.Title
	}
	seen := make(map[string]bool, len(users))
	msgs := make([]mail.Message, 0, len(users))
	for _, u := range users {
		addr := strings.ToLower(strings.TrimSpace(u.Email))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		msgs = append(msgs, mail.Message{
			To:      u.Email,
			Subject: subject,
			Body:    fmt.Sprintf("Hello %s,\n\n%s\n", u.Username, n.Message),
		})
	}
	return msgs, nil
}

// List returns every notification as seen by username, newest first.
func (s *Service) List(ctx context.Context, username string) ([]entity.NotificationView, error) {
	username = strings.TrimSpace(username)
	if err := common.NewValidator().Field("username", username, common.Required).Err(); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]entity.NotificationView, 0, len(all))
	for _, n := range all {
		out = append(out, entity.NotificationView{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Seen:      n.SeenByUser(username),
			CreatedAt: n.CreatedAt,
		})
	}
	return out, nil
}

// MarkSeen is idempotent.
func (s *Service) MarkSeen(ctx context.Context, id, username string) error {
	username = strings.TrimSpace(username)
	if err := common.NewValidator().
		Field("notification_id", id, common.Required).
		Field("username", username, common.Required).
		Err(); err != nil {
		return err
	}
	return s.repo.MarkSeen(ctx, id, username)
}

package repository

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/fineprint/internal/entity"
)

// RegulationRepository stores each regulation as one aggregate document so that every mutation is a
// single atomic write.
type RegulationRepository interface {
	Create(ctx context.Context, reg *entity.Regulation) error
	Get(ctx context.Context, id string) (*entity.Regulation, error)
	List(ctx context.Context) ([]*entity.Regulation, error)
	// Update replaces the aggregate if its stored revision still equals expectedRevision, then sets
	// reg.Revision to the new revision. A lost race returns common.ErrConflict.
	Update(ctx context.Context, reg *entity.Regulation, expectedRevision int64) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	Get(ctx context.Context, id string) (*entity.Notification, error)
	// List returns every notification, newest first.
	List(ctx context.Context) ([]*entity.Notification, error)
	// MarkSeen adds username to the seen set. Repeating it is a no-op.
	MarkSeen(ctx context.Context, id, username string) error
}

// Store groups the repositories backed by one record store.
type Store struct {
	Regulations   RegulationRepository
	Users         UserRepository
	Notifications NotificationRepository
}

// NewSQLStore builds every repository over db.
func NewSQLStore(db *DB, logger *slog.Logger) Store {
	return Store{
		Regulations:   NewRegulationRepository(db, logger),
		Users:         NewUserRepository(db, logger),
		Notifications: NewNotificationRepository(db, logger),
	}
}

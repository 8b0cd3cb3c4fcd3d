package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
)

const (
	notificationsTable = "notifications"
	seenTable          = "notification_seen"
)

var notificationColumns = []string{"id", "title", "message", "regulation_id", "version_id", "created_at"}

type notificationRepo struct {
	db     *sql.DB
	d      *entsql.DialectBuilder
	logger *slog.Logger
}

func NewNotificationRepository(db *DB, logger *slog.Logger) NotificationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationRepo{db: db.SQL, d: entsql.Dialect(db.Dialect), logger: logger}
}

func (r *notificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	query, args := r.d.Insert(notificationsTable).
		Columns(notificationColumns...).
		Values(n.ID, n.Title, n.Message, n.RegulationID, n.VersionID, n.CreatedAt.UnixNano()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to create notification", "notification_id", n.ID, "error", err)
		return err
	}
	return nil
}

func (r *notificationRepo) Get(ctx context.Context, id string) (*entity.Notification, error) {
	query, args := r.d.Select(notificationColumns...).
		From(r.d.Table(notificationsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := scanNotification(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError("notification", id)
	}
	if err != nil {
		return nil, err
	}
	seen, err := r.seenBy(ctx, entsql.EQ("notification_id", id))
	if err != nil {
		return nil, err
	}
	if users, ok := seen[id]; ok {
		n.SeenBy = users
	}
	return n, nil
}

func (r *notificationRepo) List(ctx context.Context) ([]*entity.Notification, error) {
	query, args := r.d.Select(notificationColumns...).
		From(r.d.Table(notificationsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list notifications", "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []*entity.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen, err := r.seenBy(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, n := range result {
		if users, ok := seen[n.ID]; ok {
			n.SeenBy = users
		}
	}
	return result, nil
}

func (r *notificationRepo) MarkSeen(ctx context.Context, id, username string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	query, args := r.d.Insert(seenTable).
		Columns("notification_id", "username").
		Values(id, username).
		OnConflict(entsql.ConflictColumns("notification_id", "username"), entsql.DoNothing()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to mark notification seen", "notification_id", id, "username", username, "error", err)
		return err
	}
	return nil
}

// seenBy loads seen sets keyed by notification id, optionally filtered by pred.
func (r *notificationRepo) seenBy(ctx context.Context, pred *entsql.Predicate) (map[string][]string, error) {
	sel := r.d.Select("notification_id", "username").From(r.d.Table(seenTable))
	if pred != nil {
		sel = sel.Where(pred)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, err
		}
		out[id] = append(out[id], username)
	}
	for _, users := range out {
		sort.Strings(users)
	}
	return out, rows.Err()
}

func scanNotification(row rowScanner) (*entity.Notification, error) {
	var (
		n       entity.Notification
		created int64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &n.RegulationID, &n.VersionID, &created); err != nil {
		return nil, err
	}
	n.CreatedAt = time.Unix(0, created).UTC()
	n.SeenBy = []string{}
	return &n, nil
}

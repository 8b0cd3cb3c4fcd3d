package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
)

const usersTable = "users"

var userColumns = []string{"id", "username", "email", "password_hash", "role", "created_at", "updated_at"}

type userRepo struct {
	db     *sql.DB
	d      *entsql.DialectBuilder
	logger *slog.Logger
}

func NewUserRepository(db *DB, logger *slog.Logger) UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &userRepo{db: db.SQL, d: entsql.Dialect(db.Dialect), logger: logger}
}

func (r *userRepo) Create(ctx context.Context, u *entity.User) error {
	if _, err := r.GetByUsername(ctx, u.Username); err == nil {
		return usernameTaken(u.Username)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	query, args := r.d.Insert(usersTable).
		Columns(userColumns...).
		Values(u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt.UnixNano(), u.UpdatedAt.UnixNano()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to create user", "username", u.Username, "error", err)
		return err
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *userRepo) getBy(ctx context.Context, column, value string) (*entity.User, error) {
	query, args := r.d.Select(userColumns...).
		From(r.d.Table(usersTable)).
		Where(entsql.EQ(column, value)).
		Query()
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFoundError("user", value)
	}
	return u, err
}

func (r *userRepo) List(ctx context.Context) ([]*entity.User, error) {
	query, args := r.d.Select(userColumns...).
		From(r.d.Table(usersTable)).
		OrderBy(entsql.Asc("username")).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Update(ctx context.Context, u *entity.User) error {
	if other, err := r.GetByUsername(ctx, u.Username); err == nil && other.ID != u.ID {
		return usernameTaken(u.Username)
	}
	query, args := r.d.Update(usersTable).
		Set("username", u.Username).
		Set("email", u.Email).
		Set("password_hash", u.PasswordHash).
		Set("role", string(u.Role)).
		Set("updated_at", u.UpdatedAt.UnixNano()).
		Where(entsql.EQ("id", u.ID)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update user", "user_id", u.ID, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewNotFoundError("user", u.ID)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	query, args := r.d.Delete(usersTable).Where(entsql.EQ("id", id)).Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to delete user", "user_id", id, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewNotFoundError("user", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		u                entity.User
		role             string
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &created, &updated); err != nil {
		return nil, err
	}
	u.Role = constants.Role(role)
	u.CreatedAt = time.Unix(0, created).UTC()
	u.UpdatedAt = time.Unix(0, updated).UTC()
	return &u, nil
}

func usernameTaken(username string) error {
	return common.NewAppError(common.CodeConflict, "username "+username+" already exists", common.ErrConflict)
}

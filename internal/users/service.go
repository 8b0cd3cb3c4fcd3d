// Package users manages accounts and password login.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/repository"
)

const minPasswordLength = 8

type Service struct {
	repo   repository.UserRepository
	cost   int
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo repository.UserRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cost: bcrypt.DefaultCost, now: time.Now, logger: logger}
}

// CreateUserRequest represents account creation parameters.
type CreateUserRequest struct {
	Username string
	Email    string
	Password string
	Role     string
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*entity.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = string(constants.RoleUser)
	}
	if err := common.NewValidator().
		Field("username", username, common.Required, common.MinLength(3), common.MaxLength(64)).
		Field("email", email, common.Required, common.Email).
		Field("password", req.Password, common.Required, common.MinLength(minPasswordLength)).
		Field("role", role, common.OneOf(string(constants.RoleAdmin), string(constants.RoleUser))).
		Err(); err != nil {
		return nil, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &entity.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         constants.Role(role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	common.LoggerFrom(ctx, s.logger).Info("user.created", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

// List returns accounts sorted by username.
func (s *Service) List(ctx context.Context) ([]*entity.User, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// UpdateUserRequest changes username and/or email. Nil fields stay unchanged.
type UpdateUserRequest struct {
	Username *string
	Email    *string
}

func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := common.NewValidator()
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
		v.Field("username", u.Username, common.Required, common.MinLength(3), common.MaxLength(64))
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
		v.Field("email", u.Email, common.Required, common.Email)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, id, password string) error {
	if err := common.NewValidator().
		Field("password", password, common.Required, common.MinLength(minPasswordLength)).
		Err(); err != nil {
		return err
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}
	common.LoggerFrom(ctx, s.logger).Info("user.password_reset", "user_id", id)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	common.LoggerFrom(ctx, s.logger).Info("user.deleted", "user_id", id)
	return nil
}

// Login checks credentials. Unknown users and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.UnauthorizedError()
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		common.LoggerFrom(ctx, s.logger).Warn("user.login.failed", "username", u.Username)
		return nil, common.UnauthorizedError()
	}
	common.LoggerFrom(ctx, s.logger).Info("user.login", "user_id", u.ID)
	return u, nil
}

func (s *Service) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.InvalidInputError("password must be at most 72 bytes")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

// FS stores objects as files in one directory.
type FS struct {
	dir    string
	logger *slog.Logger
}

func NewFS(dir string, logger *slog.Logger) (*FS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FS{dir: dir, logger: logger}, nil
}

// Put writes a temp file and links it into place, so readers never see a partial object and an
// existing key is never replaced.
func (s *FS) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Link(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("put %s: %w", key, ErrKeyExists)
		}
		return "", fmt.Errorf("commit object: %w", err)
	}
	s.logger.Debug("storage.put", "backend", "fs", "key", key, "bytes", len(data))
	return key, nil
}

func (s *FS) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewNotFoundError("file", key)
	}
	return b, err
}

func (s *FS) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	s.logger.Debug("storage.delete", "backend", "fs", "key", key)
	return nil
}

func (s *FS) DeleteMany(ctx context.Context, keys []string) error {
	return deleteEach(ctx, s, keys)
}

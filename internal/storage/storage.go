// Package storage holds uploaded regulation files by opaque key.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
)

// ErrKeyExists is returned by Put when key is already taken. Objects are never overwritten.
var ErrKeyExists = errors.New("storage key already exists")

// ObjectStore is a flat key → bytes store. Deleting a missing key is not an error.
type ObjectStore interface {
	// Put stores data under key, or fails with ErrKeyExists.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// DeleteMany attempts every key and joins the failures.
	DeleteMany(ctx context.Context, keys []string) error
}

// NewKey builds "{timestamp}_{filename}" with microsecond precision. Path elements of filename are dropped.
func NewKey(now time.Time, filename string) string {
	return now.UTC().Format(constants.StorageKeyLayout) + "_" + SafeFilename(filename)
}

// SafeFilename keeps only the base name and replaces separators and control characters.
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '/' || r == ':' {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "" {
		return "document.pdf"
	}
	return name
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return common.InvalidInputError(fmt.Sprintf("invalid storage key %q", key))
	}
	return nil
}

// New builds the configured backend.
func New(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (ObjectStore, error) {
	switch cfg.Backend {
	case "fs", "":
		return NewFS(cfg.Dir, logger)
	case "s3":
		return NewS3(ctx, S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// deleteEach is DeleteMany for backends without a batch call.
func deleteEach(ctx context.Context, s ObjectStore, keys []string) error {
	var errs []error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

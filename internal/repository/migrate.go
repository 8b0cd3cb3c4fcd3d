package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"entgo.io/ent/dialect"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	var gd goose.Dialect
	switch db.Dialect {
	case dialect.Postgres:
		gd = goose.DialectPostgres
	case dialect.SQLite:
		gd = goose.DialectSQLite3
	default:
		return fmt.Errorf("no migrations for dialect %q", db.Dialect)
	}

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(gd, db.SQL, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("db.migration.applied", "version", r.Source.Version, "path", r.Source.Path, "elapsed_ms", r.Duration.Milliseconds())
	}
	return nil
}

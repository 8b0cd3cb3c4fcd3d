package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
)

const regulationsTable = "regulations"

type regulationRepo struct {
	db     *sql.DB
	d      *entsql.DialectBuilder
	logger *slog.Logger
}

func NewRegulationRepository(db *DB, logger *slog.Logger) RegulationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &regulationRepo{db: db.SQL, d: entsql.Dialect(db.Dialect), logger: logger}
}

func (r *regulationRepo) Create(ctx context.Context, reg *entity.Regulation) error {
	reg.Revision = 1
	doc, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode regulation: %w", err)
	}
	query, args := r.d.Insert(regulationsTable).
		Columns("id", "title", "revision", "document", "created_at", "updated_at").
		Values(reg.ID, reg.Title, reg.Revision, string(doc), reg.CreatedAt.UnixNano(), reg.LastUpdated.UnixNano()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("failed to create regulation", "regulation_id", reg.ID, "error", err)
		return err
	}
	return nil
}

func (r *regulationRepo) Get(ctx context.Context, id string) (*entity.Regulation, error) {
	query, args := r.d.Select("revision", "document").
		From(r.d.Table(regulationsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		rev int64
		doc string
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&rev, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewNotFoundError("regulation", id)
		}
		r.logger.Error("failed to get regulation", "regulation_id", id, "error", err)
		return nil, err
	}
	return decodeRegulation(doc, rev)
}

func (r *regulationRepo) List(ctx context.Context) ([]*entity.Regulation, error) {
	query, args := r.d.Select("revision", "document").
		From(r.d.Table(regulationsTable)).
		OrderBy(entsql.Desc("updated_at"), entsql.Asc("id")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list regulations", "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []*entity.Regulation
	for rows.Next() {
		var (
			rev int64
			doc string
		)
		if err := rows.Scan(&rev, &doc); err != nil {
			return nil, err
		}
		reg, err := decodeRegulation(doc, rev)
		if err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	return result, rows.Err()
}

func (r *regulationRepo) Update(ctx context.Context, reg *entity.Regulation, expectedRevision int64) error {
	next := expectedRevision + 1
	stored := reg.Clone()
	stored.Revision = next
	doc, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode regulation: %w", err)
	}

	query, args := r.d.Update(regulationsTable).
		Set("title", reg.Title).
		Set("revision", next).
		Set("document", string(doc)).
		Set("updated_at", reg.LastUpdated.UnixNano()).
		Where(entsql.And(entsql.EQ("id", reg.ID), entsql.EQ("revision", expectedRevision))).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to update regulation", "regulation_id", reg.ID, "error", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, reg.ID); err != nil {
			return err
		}
		r.logger.Warn("regulation revision conflict", "regulation_id", reg.ID, "expected_revision", expectedRevision)
		return common.ConflictError(reg.ID)
	}
	reg.Revision = next
	return nil
}

func (r *regulationRepo) Delete(ctx context.Context, id string) error {
	query, args := r.d.Delete(regulationsTable).Where(entsql.EQ("id", id)).Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to delete regulation", "regulation_id", id, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewNotFoundError("regulation", id)
	}
	return nil
}

func decodeRegulation(doc string, rev int64) (*entity.Regulation, error) {
	var reg entity.Regulation
	if err := json.Unmarshal([]byte(doc), &reg); err != nil {
		return nil, fmt.Errorf("decode regulation: %w", err)
	}
	reg.Revision = rev
	return &reg, nil
}

// Package storage persists analysis run history for the server deployment.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/doc-sentry/internal/core"
)

// ErrNotFound is returned when a requested record is not found.
var ErrNotFound = errors.New("record not found")

// Store defines the database operations for run history.
type Store interface {
	SaveRun(ctx context.Context, run *core.RunRecord) error
	GetLatestRun(ctx context.Context, codeSlug string) (*core.RunRecord, error)
	ListRuns(ctx context.Context, codeSlug string, limit int) ([]*core.RunRecord, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

type runRow struct {
	ID            int64     `db:"id"`
	CodeSlug      string    `db:"code_slug"`
	DocsSlug      string    `db:"docs_slug"`
	OldRef        string    `db:"old_ref"`
	NewRef        string    `db:"new_ref"`
	OldSHA        string    `db:"old_sha"`
	NewSHA        string    `db:"new_sha"`
	FilesAnalyzed int       `db:"files_analyzed"`
	ImpactedDocs  int       `db:"impacted_docs"`
	HighCount     int       `db:"high_count"`
	MediumCount   int       `db:"medium_count"`
	LowCount      int       `db:"low_count"`
	Report        string    `db:"report"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r runRow) record() *core.RunRecord {
	return &core.RunRecord{
		ID:            r.ID,
		CodeSlug:      r.CodeSlug,
		DocsSlug:      r.DocsSlug,
		OldRef:        r.OldRef,
		NewRef:        r.NewRef,
		OldSHA:        r.OldSHA,
		NewSHA:        r.NewSHA,
		FilesAnalyzed: r.FilesAnalyzed,
		ImpactedDocs:  r.ImpactedDocs,
		HighCount:     r.HighCount,
		MediumCount:   r.MediumCount,
		LowCount:      r.LowCount,
		Report:        r.Report,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *postgresStore) SaveRun(ctx context.Context, run *core.RunRecord) error {
	query := `
		INSERT INTO runs (code_slug, docs_slug, old_ref, new_ref, old_sha, new_sha,
			files_analyzed, impacted_docs, high_count, medium_count, low_count, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.db.ExecContext(ctx, query,
		run.CodeSlug, run.DocsSlug, run.OldRef, run.NewRef, run.OldSHA, run.NewSHA,
		run.FilesAnalyzed, run.ImpactedDocs, run.HighCount, run.MediumCount, run.LowCount, run.Report)
	return err
}

func (s *postgresStore) GetLatestRun(ctx context.Context, codeSlug string) (*core.RunRecord, error) {
	query := `
		SELECT id, code_slug, docs_slug, old_ref, new_ref, old_sha, new_sha,
			files_analyzed, impacted_docs, high_count, medium_count, low_count, report, created_at
		FROM runs
		WHERE code_slug = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var row runRow
	if err := s.db.GetContext(ctx, &row, query, codeSlug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.record(), nil
}

func (s *postgresStore) ListRuns(ctx context.Context, codeSlug string, limit int) ([]*core.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, code_slug, docs_slug, old_ref, new_ref, old_sha, new_sha,
			files_analyzed, impacted_docs, high_count, medium_count, low_count, report, created_at
		FROM runs
		WHERE code_slug = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, codeSlug, limit); err != nil {
		return nil, err
	}
	records := make([]*core.RunRecord, len(rows))
	for i, r := range rows {
		records[i] = r.record()
	}
	return records, nil
}

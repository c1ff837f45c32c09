package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS reports (
	thread_id     TEXT PRIMARY KEY,
	company       TEXT NOT NULL,
	research_type TEXT NOT NULL DEFAULT 'full',
	industry      TEXT NOT NULL DEFAULT '',
	hq_location   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS report_sections (
	thread_id  TEXT NOT NULL REFERENCES reports(thread_id) ON DELETE CASCADE,
	seq        INT NOT NULL,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	citations  TEXT[] NOT NULL DEFAULT '{}',
	embedding  vector,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (thread_id, seq)
);
`

// PostgresReportStore persists reports with one row per section. Sections
// are only ever inserted; appends lock the report row so concurrent writers
// see a consistent sequence.
type PostgresReportStore struct {
	db *pgxpool.Pool
}

func NewPostgresReportStore(db *pgxpool.Pool) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

func (s *PostgresReportStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create report schema: %w", err)
	}
	return nil
}

func (s *PostgresReportStore) Get(ctx context.Context, threadID string) (*domain.Report, error) {
	return s.load(ctx, s.db, threadID, false)
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresReportStore) load(ctx context.Context, q pgQuerier, threadID string, forUpdate bool) (*domain.Report, error) {
	query := `SELECT thread_id, company, research_type, industry, hq_location, created_at, updated_at
		 FROM reports WHERE thread_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	r := &domain.Report{}
	err := q.QueryRow(ctx, query, threadID).Scan(
		&r.ThreadID, &r.Company, &r.ResearchType, &r.Industry, &r.HQLocation, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := q.Query(ctx,
		`SELECT name, body, citations, created_at
		 FROM report_sections WHERE thread_id = $1 ORDER BY seq`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sec domain.Section
		if err := rows.Scan(&sec.Name, &sec.Body, &sec.Citations, &sec.CreatedAt); err != nil {
			return nil, err
		}
		r.Sections = append(r.Sections, sec)
	}
	return r, rows.Err()
}

func (s *PostgresReportStore) AppendSections(ctx context.Context, threadID string, sections []domain.Section) (*domain.Report, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := s.load(ctx, tx, threadID, true)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updated := domain.AppendSections(current, sections, now)
	if err := insertSections(ctx, tx, threadID, len(current.Sections), updated.Sections[len(current.Sections):]); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE reports SET updated_at = $2 WHERE thread_id = $1`, threadID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresReportStore) Replace(ctx context.Context, report *domain.Report) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reports WHERE thread_id = $1`, report.ThreadID); err != nil {
		return err
	}

	now := time.Now().UTC()
	created := report.CreatedAt
	if created.IsZero() {
		created = now
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO reports (thread_id, company, research_type, industry, hq_location, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ThreadID, report.Company, report.ResearchType, report.Industry, report.HQLocation, created, now,
	); err != nil {
		return err
	}
	if err := insertSections(ctx, tx, report.ThreadID, 0, report.Sections); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertSections(ctx context.Context, tx pgx.Tx, threadID string, startSeq int, sections []domain.Section) error {
	batch := &pgx.Batch{}
	for i, sec := range sections {
		var embedding *pgvector.Vector
		if len(sec.Embedding) > 0 {
			v := pgvector.NewVector(sec.Embedding)
			embedding = &v
		}
		created := sec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		citations := sec.Citations
		if citations == nil {
			citations = []string{}
		}
		batch.Queue(
			`INSERT INTO report_sections (thread_id, seq, name, body, citations, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			threadID, startSeq+i, sec.Name, sec.Body, citations, embedding, created,
		)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (s *PostgresReportStore) Delete(ctx context.Context, threadID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM reports WHERE thread_id = $1`, threadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresReportStore) NearestSections(ctx context.Context, threadID string, embedding []float32, k int) ([]domain.Section, error) {
	if k <= 0 {
		k = 5
	}
	rows, err := s.db.Query(ctx,
		`SELECT name, body, citations, created_at
		 FROM report_sections
		 WHERE thread_id = $1 AND embedding IS NOT NULL
		 ORDER BY embedding <=> $2, seq
		 LIMIT $3`,
		threadID, pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Section
	for rows.Next() {
		var sec domain.Section
		if err := rows.Scan(&sec.Name, &sec.Body, &sec.Citations, &sec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func (s *PostgresReportStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

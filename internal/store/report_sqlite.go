package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	thread_id     TEXT PRIMARY KEY,
	company       TEXT NOT NULL,
	research_type TEXT NOT NULL DEFAULT 'full',
	industry      TEXT NOT NULL DEFAULT '',
	hq_location   TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS report_sections (
	thread_id  TEXT NOT NULL REFERENCES reports(thread_id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	citations  TEXT NOT NULL DEFAULT '[]',
	embedding  TEXT,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (thread_id, seq)
);
`

// SQLiteReportStore is a single-file report store for local runs.
type SQLiteReportStore struct {
	db *sql.DB
}

// OpenSQLiteReportStore creates or opens the database at path and applies
// the schema.
func OpenSQLiteReportStore(path string) (*SQLiteReportStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection serializes writers and keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteReportStore{db: db}, nil
}

func (s *SQLiteReportStore) Close() error {
	return s.db.Close()
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteReportStore) Get(ctx context.Context, threadID string) (*domain.Report, error) {
	return s.load(ctx, s.db, threadID, true)
}

func (s *SQLiteReportStore) load(ctx context.Context, q sqlQuerier, threadID string, withEmbeddings bool) (*domain.Report, error) {
	r := &domain.Report{}
	var created, updated int64
	err := q.QueryRowContext(ctx,
		`SELECT thread_id, company, research_type, industry, hq_location, created_at, updated_at
		 FROM reports WHERE thread_id = ?`,
		threadID,
	).Scan(&r.ThreadID, &r.Company, &r.ResearchType, &r.Industry, &r.HQLocation, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.UpdatedAt = time.Unix(0, updated).UTC()

	rows, err := q.QueryContext(ctx,
		`SELECT name, body, citations, embedding, created_at
		 FROM report_sections WHERE thread_id = ? ORDER BY seq`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sec       domain.Section
			citations string
			embedding sql.NullString
			at        int64
		)
		if err := rows.Scan(&sec.Name, &sec.Body, &citations, &embedding, &at); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(citations), &sec.Citations); err != nil {
			return nil, fmt.Errorf("decode citations: %w", err)
		}
		if withEmbeddings && embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &sec.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding: %w", err)
			}
		}
		sec.CreatedAt = time.Unix(0, at).UTC()
		r.Sections = append(r.Sections, sec)
	}
	return r, rows.Err()
}

func (s *SQLiteReportStore) AppendSections(ctx context.Context, threadID string, sections []domain.Section) (*domain.Report, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := s.load(ctx, tx, threadID, false)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updated := domain.AppendSections(current, sections, now)
	if err := insertSQLiteSections(ctx, tx, threadID, len(current.Sections), updated.Sections[len(current.Sections):]); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE reports SET updated_at = ? WHERE thread_id = ?`, now.UnixNano(), threadID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQLiteReportStore) Replace(ctx context.Context, report *domain.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE thread_id = ?`, report.ThreadID); err != nil {
		return err
	}

	now := time.Now().UTC()
	created := report.CreatedAt
	if created.IsZero() {
		created = now
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reports (thread_id, company, research_type, industry, hq_location, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ThreadID, report.Company, string(report.ResearchType), report.Industry, report.HQLocation, created.UnixNano(), now.UnixNano(),
	); err != nil {
		return err
	}
	if err := insertSQLiteSections(ctx, tx, report.ThreadID, 0, report.Sections); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSQLiteSections(ctx context.Context, tx *sql.Tx, threadID string, startSeq int, sections []domain.Section) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_sections (thread_id, seq, name, body, citations, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sec := range sections {
		citations := sec.Citations
		if citations == nil {
			citations = []string{}
		}
		cj, err := json.Marshal(citations)
		if err != nil {
			return err
		}
		var embedding sql.NullString
		if len(sec.Embedding) > 0 {
			ej, err := json.Marshal(sec.Embedding)
			if err != nil {
				return err
			}
			embedding = sql.NullString{String: string(ej), Valid: true}
		}
		created := sec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, threadID, startSeq+i, sec.Name, sec.Body, string(cj), embedding, created.UnixNano()); err != nil {
			return fmt.Errorf("insert section %q: %w", sec.Name, err)
		}
	}
	return nil
}

func (s *SQLiteReportStore) Delete(ctx context.Context, threadID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE thread_id = ?`, threadID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteReportStore) NearestSections(ctx context.Context, threadID string, embedding []float32, k int) ([]domain.Section, error) {
	r, err := s.load(ctx, s.db, threadID, true)
	if err != nil {
		return nil, err
	}
	return rankSections(r.Sections, embedding, k), nil
}

func (s *SQLiteReportStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

// Updater is the only writer of the report store. Existing sections are
// never edited; new content is always appended.
type Updater struct {
	reports domain.ReportStore
	logger  *zap.Logger
}

func NewUpdater(rs domain.ReportStore, logger *zap.Logger) *Updater {
	return &Updater{reports: rs, logger: logger}
}

// Commit stores the first report of a thread. It refuses to overwrite an
// existing one.
func (u *Updater) Commit(ctx context.Context, r *domain.Report) (*domain.Report, error) {
	if _, err := u.reports.Get(ctx, r.ThreadID); err == nil {
		return nil, newCycleError(DraftOrCompileFailure, "A report already exists for this conversation.", store.ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, newCycleError(DraftOrCompileFailure, "Saving the report failed. Please try again.", err)
	}

	if err := u.reports.Replace(ctx, r); err != nil {
		return nil, newCycleError(DraftOrCompileFailure, "Saving the report failed. Please try again.", err)
	}
	u.logger.Info("report committed",
		zap.String("thread_id", r.ThreadID),
		zap.String("company", r.Company),
		zap.Int("sections", len(r.Sections)))
	return r, nil
}

// Append adds sections to the thread's report atomically and returns the
// grown report.
func (u *Updater) Append(ctx context.Context, threadID string, sections []domain.Section) (*domain.Report, error) {
	r, err := u.reports.AppendSections(ctx, threadID, sections)
	if err != nil {
		return nil, newCycleError(DraftOrCompileFailure, "Updating the report failed. Please try again.", err)
	}
	u.logger.Info("report updated",
		zap.String("thread_id", threadID),
		zap.Int("added", len(sections)),
		zap.Int("sections", len(r.Sections)))
	return r, nil
}

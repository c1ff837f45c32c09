package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

const defaultConflictReason = "Sources disagree on a key fact."

// Judge is a quality gate over a finding set. It never adds findings.
type Judge struct {
	llm    domain.LLMClient
	logger *zap.Logger
}

func NewJudge(lc domain.LLMClient, logger *zap.Logger) *Judge {
	return &Judge{llm: lc, logger: logger}
}

// Evaluate returns exactly one verdict. When the model fails the verdict is
// CLEAN and the error is ErrJudgeUnavailable so the caller can warn.
func (j *Judge) Evaluate(ctx context.Context, company string, findings []domain.Finding) (*domain.Verdict, error) {
	if len(findings) == 0 {
		return &domain.Verdict{Status: domain.VerdictClean, Reason: "No findings to compare."}, nil
	}

	canon := domain.CloneFindings(findings)
	sort.SliceStable(canon, func(a, b int) bool { return canon[a].ID < canon[b].ID })

	v, err := j.llm.JudgeFindings(ctx, company, canon)
	if err != nil {
		j.logger.Warn("judge unavailable, treating findings as clean",
			zap.String("company", company), zap.Error(err))
		return &domain.Verdict{Status: domain.VerdictClean, Reason: "Conflict check unavailable."}, ErrJudgeUnavailable
	}

	if !v.IsConflict() {
		return &domain.Verdict{Status: domain.VerdictClean, Reason: v.Reason}, nil
	}

	known := make(map[string]bool, len(canon))
	for _, f := range canon {
		known[f.ID] = true
	}
	var disputes []domain.Dispute
	for _, d := range v.Disputes {
		var ids []string
		for _, id := range d.FindingIDs {
			if known[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		d.FindingIDs = ids
		if d.Topic == "" {
			d.Topic = "disputed fact"
		}
		disputes = append(disputes, d)
	}
	v.Disputes = disputes
	if v.Reason == "" {
		v.Reason = defaultConflictReason
	}

	j.logger.Info("conflict detected",
		zap.String("company", company),
		zap.Int("disputes", len(disputes)),
		zap.String("reason", v.Reason))
	return v, nil
}

package ports

import (
	"context"

	"github.com/wramadhan/griya/internal/core/domain"
)

// PropertySearcher is the conversational search surface. Session state is
// passed explicitly by the caller; the core never keeps a process-wide
// result cache.
type PropertySearcher interface {
	Search(ctx context.Context, sess *domain.SessionState, question string, limit int) (*domain.SearchResult, error)
}

// EvaluationService runs a gold question set through the pipeline and
// produces a stored report.
type EvaluationService interface {
	Run(ctx context.Context, runID string, questions []domain.GoldQuestion) (*domain.EvaluationReport, error)
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/core/ports"
)

// EvaluationRunner drives the gold set through the hybrid pipeline and
// scores the output. Questions run strictly in order: follow-up and modify
// categories depend on conversational state built by earlier questions in
// the same session.
type EvaluationRunner struct {
	hybrid      *HybridSearcher
	oracle      ports.StructuredRetriever
	store       ports.ReportStore
	exporter    ports.ReportExporter
	scorer      Scorer
	resultLimit int
	callTimeout time.Duration
	logger      *slog.Logger

	goldSetLabel string
}

// SetGoldSetLabel records which gold set subsequent runs score against.
// The worker executes runs sequentially, so the label is set per request
// without synchronization.
func (r *EvaluationRunner) SetGoldSetLabel(name string) { r.goldSetLabel = name }

func NewEvaluationRunner(
	hybrid *HybridSearcher,
	oracle ports.StructuredRetriever,
	store ports.ReportStore,
	exporter ports.ReportExporter,
	scorer Scorer,
	resultLimit int,
	callTimeout time.Duration,
	logger *slog.Logger,
) *EvaluationRunner {
	if resultLimit <= 0 {
		resultLimit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationRunner{
		hybrid:      hybrid,
		oracle:      oracle,
		store:       store,
		exporter:    exporter,
		scorer:      scorer,
		resultLimit: resultLimit,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

func (r *EvaluationRunner) Run(ctx context.Context, runID string, questions []domain.GoldQuestion) (*domain.EvaluationReport, error) {
	if len(questions) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "evaluation run", fmt.Errorf("empty gold set"))
	}

	sess := domain.NewSessionState(runID)
	evaluations := make([]domain.QueryEvaluation, 0, len(questions))

	for _, q := range questions {
		evaluations = append(evaluations, r.evaluateQuestion(ctx, sess, q))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	report := &domain.EvaluationReport{
		RunID:     runID,
		GoldSet:   r.goldSetLabel,
		CreatedAt: time.Now().UTC(),
		Aggregate: Aggregate(evaluations, r.scorer.CPRThreshold),
		Queries:   evaluations,
	}

	if r.store != nil {
		if err := r.store.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
	}
	if r.exporter != nil {
		key, err := r.exporter.Export(ctx, report)
		if err != nil {
			// Export is a convenience artifact; the stored report is canonical.
			r.logger.Warn("report_export_failed", "run_id", runID, "error", err)
		} else {
			r.logger.Info("report_exported", "run_id", runID, "key", key)
		}
	}
	return report, nil
}

func (r *EvaluationRunner) evaluateQuestion(ctx context.Context, sess *domain.SessionState, q domain.GoldQuestion) domain.QueryEvaluation {
	callCtx := ctx
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	criteria := CriteriaFromConstraints(q.Constraints, r.scorer.Policy)

	result, err := r.hybrid.Retrieve(callCtx, q.Question, criteria, r.resultLimit)
	if err != nil {
		r.logger.Error("question_retrieval_failed", "question_id", q.ID, "error", err)
		return domain.QueryEvaluation{
			QuestionID:     q.ID,
			Category:       q.Category,
			Expected:       q.Expected,
			RetrievalError: err.Error(),
		}
	}
	sess.Remember(criteria, result.Listings)

	qe := r.scorer.ScoreQuery(q, result.Listings)
	qe.FallbackUsed = result.FallbackUsed

	oracleMatches, err := r.oracle.Count(callCtx, criteria)
	if err != nil {
		// Without the oracle the query cannot be classified; it is reported
		// as a failure, not silently counted as TN.
		r.logger.Error("oracle_count_failed", "question_id", q.ID, "error", err)
		qe.RetrievalError = fmt.Sprintf("oracle: %v", err)
		qe.Outcome = ""
		return qe
	}
	r.scorer.ClassifyQuery(&qe, oracleMatches)

	r.logger.Info("question_evaluated",
		"question_id", q.ID,
		"category", q.Category,
		"results", qe.ResultCount,
		"outcome", string(qe.Outcome),
		"success", qe.Success,
		"fallback", qe.FallbackUsed,
	)
	return qe
}

// CriteriaFromConstraints maps a gold constraint set onto the structured
// filter shape, resolving price-constraint shapes through the same policy
// the checker uses so the oracle and the checker agree on bounds.
func CriteriaFromConstraints(cs domain.ConstraintSet, pol ConstraintPolicy) domain.SearchCriteria {
	criteria := domain.SearchCriteria{
		PropertyType: cs.PropertyType,
		ListingType:  cs.ListingType,
	}

	if min, maxExclusive, ok := PriceBounds(cs.Price, pol); ok {
		if min != nil {
			lo := *min
			criteria.PriceMin = &lo
		}
		if maxExclusive != nil {
			hi := *maxExclusive - 1
			criteria.PriceMax = &hi
		}
	}

	criteria.BedroomsMin, criteria.BedroomsMax = countBounds(cs.Bedrooms)
	criteria.FloorsMin, criteria.FloorsMax = countBounds(cs.Floors)

	if cs.Location != nil {
		if len(cs.Location.Keywords) > 0 {
			criteria.Keyword = cs.Location.Keywords[0]
		}
		if cs.Location.Center != nil {
			pt := *cs.Location.Center
			criteria.Near = &pt
			criteria.RadiusKm = cs.Location.RadiusKm
		}
	}
	return criteria
}

func countBounds(cc *domain.CountConstraint) (min, max *int) {
	if cc == nil {
		return nil, nil
	}
	if cc.Exact != nil {
		lo, hi := *cc.Exact, *cc.Exact
		return &lo, &hi
	}
	if cc.Min != nil {
		lo := *cc.Min
		min = &lo
	}
	if cc.Max != nil {
		hi := *cc.Max
		max = &hi
	}
	return min, max
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wramadhan/griya/internal/core/domain"
)

// ReportRepository persists finished evaluation reports. The full report
// is stored as one JSONB payload; runs are addressed by run id.
type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS evaluation_reports (
	run_id TEXT PRIMARY KEY,
	gold_set TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute report schema ddl: %w", err)
	}
	return nil
}

func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.EvaluationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	const query = `
INSERT INTO evaluation_reports (run_id, gold_set, created_at, payload)
VALUES ($1, $2, $3, $4)
ON CONFLICT (run_id) DO UPDATE SET gold_set = EXCLUDED.gold_set, created_at = EXCLUDED.created_at, payload = EXCLUDED.payload`

	if _, err := r.db.ExecContext(ctx, query, report.RunID, report.GoldSet, report.CreatedAt, payload); err != nil {
		return fmt.Errorf("insert evaluation report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetReport(ctx context.Context, runID string) (*domain.EvaluationReport, error) {
	const query = `SELECT payload FROM evaluation_reports WHERE run_id = $1`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrNotFound, "get report", fmt.Errorf("run %s", runID))
	}
	if err != nil {
		return nil, fmt.Errorf("query evaluation report: %w", err)
	}

	var report domain.EvaluationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report payload: %w", err)
	}
	return &report, nil
}

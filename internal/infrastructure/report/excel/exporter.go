package excel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/core/ports"
)

const (
	summarySheet   = "Summary"
	questionsSheet = "Questions"
	listingsSheet  = "Listings"
)

// Exporter renders an evaluation report as an Excel workbook and hands the
// bytes to object storage under <run_id>.xlsx.
type Exporter struct {
	storage ports.ObjectStorage
}

func NewExporter(storage ports.ObjectStorage) *Exporter {
	return &Exporter{storage: storage}
}

func (e *Exporter) Export(ctx context.Context, report *domain.EvaluationReport) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummary(f, report); err != nil {
		return "", err
	}
	if err := writeQuestions(f, report); err != nil {
		return "", err
	}
	if err := writeListings(f, report); err != nil {
		return "", err
	}
	// Drop the default sheet and open the workbook on the summary.
	_ = f.DeleteSheet("Sheet1")
	idx, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return "", fmt.Errorf("locate summary sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}

	key := report.RunID + ".xlsx"
	if err := e.storage.Save(ctx, key, &buf); err != nil {
		return "", fmt.Errorf("store workbook: %w", err)
	}
	return key, nil
}

func writeSummary(f *excelize.File, report *domain.EvaluationReport) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	agg := report.Aggregate
	rows := [][]any{
		{"Run", report.RunID},
		{"Gold set", report.GoldSet},
		{"Created at", report.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"Questions", agg.Questions},
		{"Retrieval failures", agg.RetrievalFailures},
		{"Listings evaluated", agg.ListingsEvaluated},
		{"Mean CPR", agg.MeanCPR},
		{"CPR threshold", agg.CPRThreshold},
		{"Strict success ratio", agg.StrictSuccessRatio},
		{"Query success rate", agg.QuerySuccessRate},
		{"TP / FP / TN / FN", fmt.Sprintf("%d / %d / %d / %d",
			agg.Confusion.TP, agg.Confusion.FP, agg.Confusion.TN, agg.Confusion.FN)},
		{"Precision", agg.Precision},
		{"Recall", agg.Recall},
		{"F1", agg.F1},
		{"Accuracy", agg.Accuracy},
	}
	for _, name := range domain.ConstraintNames {
		if rate, ok := agg.PassRateByType[name]; ok {
			rows = append(rows, []any{"Pass rate: " + string(name), rate})
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func writeQuestions(f *excelize.File, report *domain.EvaluationReport) error {
	if _, err := f.NewSheet(questionsSheet); err != nil {
		return fmt.Errorf("create questions sheet: %w", err)
	}

	header := []any{"Question ID", "Category", "Expected", "Results", "CPR", "Success",
		"Oracle matches", "Outcome", "Fallback", "Retrieval error"}
	if err := f.SetSheetRow(questionsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write questions header: %w", err)
	}

	for i, q := range report.Queries {
		cpr := any("")
		if q.CPR != nil {
			cpr = *q.CPR
		}
		row := []any{
			q.QuestionID, q.Category, string(q.Expected), q.ResultCount, cpr, q.Success,
			q.OracleMatches, string(q.Outcome), q.FallbackUsed, q.RetrievalError,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("questions cell: %w", err)
		}
		if err := f.SetSheetRow(questionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write question row: %w", err)
		}
	}
	return nil
}

func writeListings(f *excelize.File, report *domain.EvaluationReport) error {
	if _, err := f.NewSheet(listingsSheet); err != nil {
		return fmt.Errorf("create listings sheet: %w", err)
	}

	header := []any{"Question ID", "Listing ID", "PCA", "Decidable", "Strict", "Verdicts"}
	if err := f.SetSheetRow(listingsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write listings header: %w", err)
	}

	rowNum := 2
	for _, q := range report.Queries {
		for _, le := range q.Listings {
			row := []any{q.QuestionID, le.ListingID, le.PCA, le.Decidable, le.StrictSuccess, verdictSummary(le.Verdicts)}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return fmt.Errorf("listings cell: %w", err)
			}
			if err := f.SetSheetRow(listingsSheet, cell, &row); err != nil {
				return fmt.Errorf("write listing row: %w", err)
			}
			rowNum++
		}
	}
	return nil
}

// verdictSummary condenses a listing's verdict map into a compact cell
// value such as "price=PASS location=FAIL".
func verdictSummary(verdicts map[domain.ConstraintName]domain.ConstraintVerdict) string {
	parts := make([]string, 0, len(verdicts))
	for _, name := range domain.ConstraintNames {
		if v, ok := verdicts[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", name, v))
		}
	}
	return strings.Join(parts, " ")
}

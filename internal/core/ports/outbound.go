package ports

import (
	"context"
	"io"

	"github.com/wramadhan/griya/internal/core/domain"
)

// StructuredRetriever answers exact-filter queries against the record store.
// An empty slice is a confirmed "no data" answer; a transport failure must
// surface as an error wrapping domain.ErrRetrievalUnavailable.
type StructuredRetriever interface {
	Search(ctx context.Context, criteria domain.SearchCriteria, limit int) ([]domain.Listing, error)
	// Count serves as the independent ground-truth oracle for the
	// confusion matrix.
	Count(ctx context.Context, criteria domain.SearchCriteria) (int, error)
}

// Embedder builds a vector for free query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs semantic search. Results come back ordered by
// similarity descending, already cut at minSimilarity.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int, minSimilarity float64, criteria domain.SearchCriteria) ([]domain.SemanticHit, error)
}

// IntentExtractor turns a natural-language question into a structured
// filter object. Implemented by an LLM call; external to the core.
type IntentExtractor interface {
	ExtractCriteria(ctx context.Context, question string) (domain.SearchCriteria, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Locate(ctx context.Context, name string) (*domain.GeoPoint, error)
}

// ReportStore persists evaluation reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report *domain.EvaluationReport) error
	GetReport(ctx context.Context, runID string) (*domain.EvaluationReport, error)
}

// ReportExporter renders a report for analyst consumption and returns the
// storage key it was written under.
type ReportExporter interface {
	Export(ctx context.Context, report *domain.EvaluationReport) (string, error)
}

// ObjectStorage stores exported artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EvaluationQueue decouples run submission from run execution.
type EvaluationQueue interface {
	PublishEvaluationRequested(ctx context.Context, req domain.EvaluationRequest) error
	SubscribeEvaluationRequested(ctx context.Context, handler func(context.Context, domain.EvaluationRequest) error) error
}

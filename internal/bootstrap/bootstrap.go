package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wramadhan/griya/internal/config"
	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/core/usecase"
	"github.com/wramadhan/griya/internal/infrastructure/geocode/nominatim"
	"github.com/wramadhan/griya/internal/infrastructure/goldset"
	"github.com/wramadhan/griya/internal/infrastructure/llm/ollama"
	"github.com/wramadhan/griya/internal/infrastructure/queue/nats"
	"github.com/wramadhan/griya/internal/infrastructure/report/excel"
	"github.com/wramadhan/griya/internal/infrastructure/repository/postgres"
	"github.com/wramadhan/griya/internal/infrastructure/resilience"
	"github.com/wramadhan/griya/internal/infrastructure/storage/localfs"
	"github.com/wramadhan/griya/internal/infrastructure/vector/qdrant"
)

// App wires the retrieval pipeline once; both binaries pick the pieces
// they serve.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    *nats.Queue
	Listings *postgres.ListingRepository
	Reports  *postgres.ReportRepository

	SearchUC *usecase.SearchUseCase
	Runner   *usecase.EvaluationRunner

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	listings := postgres.NewListingRepository(db)
	if err := listings.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure listings schema: %w", err)
	}
	reports := postgres.NewReportRepository(db)
	if err := reports.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure reports schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Executor: executor,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init evaluation queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	intent := ollama.NewIntentExtractor(ollamaClient)

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	geocoder := nominatim.New(cfg.NominatimURL, cfg.NominatimUserAgent)

	fusion := usecase.FusionConfig{
		SimilarityWeight: cfg.SimilarityWeight,
		PositionWeight:   cfg.PositionWeight,
		SimilarityFloor:  cfg.SimilarityFloor,
		CandidateMargin:  cfg.CandidateMargin,
		CandidateCap:     cfg.CandidateCap,
		ConcurrentFanOut: cfg.ConcurrentRetrieval,
	}
	hybrid := usecase.NewHybridSearcher(listings, embedder, index, fusion)

	terms, err := goldset.LoadTerms(cfg.TermsPath)
	if err != nil {
		// Query expansion is an enhancement; search works without it.
		logger.Warn("term table unavailable", "path", cfg.TermsPath, "error", err)
		terms = domain.TermTable{}
	}

	searchUC := usecase.NewSearchUseCase(intent, geocoder, hybrid, terms,
		cfg.SearchResultLimit, cfg.DefaultRadiusKm, logger)

	storage, err := localfs.New(cfg.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	exporter := excel.NewExporter(storage)

	policy := usecase.ConstraintPolicy{
		PriceTolerancePct: cfg.PriceTolerancePct,
		RoundingUnits:     cfg.PriceRoundingUnits,
	}
	scorer := usecase.NewScorer(policy, cfg.CPRSuccessThreshold)
	runner := usecase.NewEvaluationRunner(hybrid, listings, reports, exporter, scorer,
		cfg.SearchResultLimit, cfg.RetrievalTimeout, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Queue:    queue,
		Listings: listings,
		Reports:  reports,
		SearchUC: searchUC,
		Runner:   runner,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wramadhan/griya/internal/bootstrap"
	"github.com/wramadhan/griya/internal/config"
	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/infrastructure/goldset"
	"github.com/wramadhan/griya/internal/observability/logging"
	"github.com/wramadhan/griya/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.New("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeEvaluationRequested(ctx, func(handlerCtx context.Context, req domain.EvaluationRequest) error {
		goldPath := cfg.GoldSetPath
		if req.GoldSet != "" {
			goldPath = req.GoldSet
		}

		questions, err := goldset.Load(goldPath)
		if err != nil {
			return err
		}
		app.Runner.SetGoldSetLabel(filepath.Base(goldPath))

		workerMetrics.StartRun()
		start := time.Now()
		report, err := app.Runner.Run(handlerCtx, req.RunID, questions)
		workerMetrics.FinishRun("worker", time.Since(start), err)
		if err != nil {
			return err
		}

		for _, q := range report.Queries {
			workerMetrics.ObserveQuestion("worker", string(q.Outcome))
		}
		workerMetrics.SetLastMeanCPR("worker", report.Aggregate.MeanCPR)

		logger.Info("evaluation run finished",
			"run_id", req.RunID,
			"questions", report.Aggregate.Questions,
			"mean_cpr", report.Aggregate.MeanCPR,
			"query_success_rate", report.Aggregate.QuerySuccessRate,
			"retrieval_failures", report.Aggregate.RetrievalFailures,
		)
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics instruments evaluation runs on the worker side.
type WorkerMetrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runsInFlight  prometheus.Gauge
	questionTotal *prometheus.CounterVec
	lastMeanCPR   *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "griya",
			Subsystem: "eval",
			Name:      "runs_total",
			Help:      "Total completed evaluation runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "griya",
			Subsystem: "eval",
			Name:      "run_duration_seconds",
			Help:      "Evaluation run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "griya",
			Subsystem: "eval",
			Name:      "runs_in_flight",
			Help:      "Number of evaluation runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	questionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "griya",
			Subsystem: "eval",
			Name:      "questions_total",
			Help:      "Total gold questions scored across runs, by confusion outcome.",
		},
		[]string{"service", "outcome"},
	)
	lastMeanCPR := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "griya",
			Subsystem: "eval",
			Name:      "last_run_mean_cpr",
			Help:      "Mean constraint pass rate of the most recent run.",
		},
		[]string{"service"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, questionTotal, lastMeanCPR)

	return &WorkerMetrics{
		registry:      registry,
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		runsInFlight:  runsInFlight,
		questionTotal: questionTotal,
		lastMeanCPR:   lastMeanCPR,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *WorkerMetrics) FinishRun(service string, duration time.Duration, err error) {
	m.runsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQuestion(service, outcome string) {
	if outcome == "" {
		outcome = "failed"
	}
	m.questionTotal.WithLabelValues(service, outcome).Inc()
}

func (m *WorkerMetrics) SetLastMeanCPR(service string, meanCPR float64) {
	m.lastMeanCPR.WithLabelValues(service).Set(meanCPR)
}

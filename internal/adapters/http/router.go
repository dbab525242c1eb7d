package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/core/ports"
	"github.com/wramadhan/griya/internal/observability/metrics"
)

const maxInFlightRequests = 64

type Router struct {
	searcher ports.PropertySearcher
	reports  ports.ReportStore
	queue    ports.EvaluationQueue
	sessions *SessionRegistry
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger

	service        string
	rateLimitRPS   float64
	rateLimitBurst int
}

func NewRouter(
	searcher ports.PropertySearcher,
	reports ports.ReportStore,
	queue ports.EvaluationQueue,
	sessions *SessionRegistry,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	service string,
	rateLimitRPS float64,
	rateLimitBurst int,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		searcher:       searcher,
		reports:        reports,
		queue:          queue,
		sessions:       sessions,
		metrics:        m,
		logger:         logger,
		service:        service,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/sessions/", rt.sessionResult)
	mux.HandleFunc("/v1/evaluations", rt.submitEvaluation)
	mux.HandleFunc("/v1/evaluations/", rt.getEvaluation)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, maxInFlightRequests, time.Second)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
		Limit     int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var sess *domain.SessionState
	if strings.TrimSpace(req.SessionID) != "" {
		sess = rt.sessions.Acquire(req.SessionID)
	}

	start := time.Now()
	result, err := rt.searcher.Search(r.Context(), sess, req.Question, req.Limit)
	if err != nil {
		if rt.metrics != nil && domain.IsKind(err, domain.ErrRetrievalUnavailable) {
			rt.metrics.RecordRetrievalFailure(rt.service)
		}
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, result.FallbackUsed, len(result.Listings), time.Since(start))
	}

	writeJSON(w, http.StatusOK, result)
}

// sessionResult resolves follow-up references like "the third one" against
// the previous turn: GET /v1/sessions/{id}/results/{n}, n is 1-based.
func (rt *Router) sessionResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	sessionID, resultRef, found := strings.Cut(rest, "/results/")
	if !found || sessionID == "" || resultRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected /v1/sessions/{id}/results/{n}"})
		return
	}
	n, err := strconv.Atoi(resultRef)
	if err != nil || n < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "result reference must be a positive number"})
		return
	}

	sess, ok := rt.sessions.Lookup(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	listing, ok := sess.ResultAt(n)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such result in the previous reply"})
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (rt *Router) submitEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		GoldSet string `json:"gold_set"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	runID := uuid.NewString()
	err := rt.queue.PublishEvaluationRequested(r.Context(), domain.EvaluationRequest{
		RunID:   runID,
		GoldSet: req.GoldSet,
	})
	if err != nil {
		rt.logger.Error("failed to enqueue evaluation run", "run_id", runID, "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (rt *Router) getEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/v1/evaluations/")
	if runID == "" || strings.Contains(runID, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	report, err := rt.reports.GetReport(r.Context(), runID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

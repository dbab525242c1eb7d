package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wramadhan/griya/internal/core/domain"
)

type stubSearcher struct {
	result *domain.SearchResult
	err    error
}

func (s *stubSearcher) Search(_ context.Context, sess *domain.SessionState, _ string, _ int) (*domain.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sess != nil {
		sess.Remember(s.result.Criteria, s.result.Listings)
	}
	return s.result, nil
}

type stubReports struct {
	report *domain.EvaluationReport
	err    error
}

func (s *stubReports) SaveReport(context.Context, *domain.EvaluationReport) error { return nil }

func (s *stubReports) GetReport(_ context.Context, _ string) (*domain.EvaluationReport, error) {
	return s.report, s.err
}

type stubQueue struct {
	published []domain.EvaluationRequest
	err       error
}

func (s *stubQueue) PublishEvaluationRequested(_ context.Context, req domain.EvaluationRequest) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, req)
	return nil
}

func (s *stubQueue) SubscribeEvaluationRequested(context.Context, func(context.Context, domain.EvaluationRequest) error) error {
	return nil
}

func newTestRouter(searcher *stubSearcher, reports *stubReports, queue *stubQueue) *Router {
	return NewRouter(searcher, reports, queue, NewSessionRegistry(time.Minute), nil, nil, "api", 0, 0)
}

func searchResult(ids ...string) *domain.SearchResult {
	res := &domain.SearchResult{Criteria: domain.SearchCriteria{PropertyType: "house"}}
	for _, id := range ids {
		res.Listings = append(res.Listings, domain.RankedListing{
			Listing: domain.Listing{ID: id, PropertyType: "house", Provenance: domain.ProvenanceStructured},
		})
	}
	return res
}

func TestSearchEndpointReturnsRankedListings(t *testing.T) {
	rt := newTestRouter(&stubSearcher{result: searchResult("a", "b")}, &stubReports{}, &stubQueue{})
	handler := rt.Handler()

	body := bytes.NewBufferString(`{"session_id":"s1","question":"rumah dekat cemara","limit":5}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/search", body)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	var parsed domain.SearchResult
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(parsed.Listings) != 2 || parsed.Listings[0].Listing.ID != "a" {
		t.Fatalf("unexpected listings: %+v", parsed.Listings)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestSearchEndpointMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid_input", domain.WrapError(domain.ErrInvalidInput, "search", domain.ErrInvalidInput), http.StatusBadRequest},
		{"retrieval_down", domain.WrapError(domain.ErrRetrievalUnavailable, "search", domain.ErrTemporary), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rt := newTestRouter(&stubSearcher{err: tc.err}, &stubReports{}, &stubQueue{})
		handler := rt.Handler()

		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"question":"x"}`))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.name, res.Code, tc.status)
		}
	}
}

func TestSessionResultResolvesFollowUpReference(t *testing.T) {
	rt := newTestRouter(&stubSearcher{result: searchResult("a", "b", "c")}, &stubReports{}, &stubQueue{})
	handler := rt.Handler()

	search := httptest.NewRequest(http.MethodPost, "/v1/search",
		bytes.NewBufferString(`{"session_id":"s1","question":"rumah"}`))
	handler.ServeHTTP(httptest.NewRecorder(), search)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/results/3", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	var listing domain.RankedListing
	if err := json.NewDecoder(res.Body).Decode(&listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listing.Listing.ID != "c" {
		t.Fatalf("result 3 = %q, want c", listing.Listing.ID)
	}

	miss := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/results/9", nil)
	missRes := httptest.NewRecorder()
	handler.ServeHTTP(missRes, miss)
	if missRes.Code != http.StatusNotFound {
		t.Fatalf("out-of-range reference: status = %d, want 404", missRes.Code)
	}

	unknown := httptest.NewRequest(http.MethodGet, "/v1/sessions/nope/results/1", nil)
	unknownRes := httptest.NewRecorder()
	handler.ServeHTTP(unknownRes, unknown)
	if unknownRes.Code != http.StatusNotFound {
		t.Fatalf("unknown session: status = %d, want 404", unknownRes.Code)
	}
}

func TestSubmitEvaluationEnqueuesRun(t *testing.T) {
	queue := &stubQueue{}
	rt := newTestRouter(&stubSearcher{result: searchResult()}, &stubReports{}, queue)
	handler := rt.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations",
		bytes.NewBufferString(`{"gold_set":"gold_v2.yaml"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", res.Code, res.Body.String())
	}
	var parsed map[string]string
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed["run_id"] == "" {
		t.Fatalf("expected run_id in response")
	}
	if len(queue.published) != 1 || queue.published[0].GoldSet != "gold_v2.yaml" {
		t.Fatalf("unexpected published request: %+v", queue.published)
	}
	if queue.published[0].RunID != parsed["run_id"] {
		t.Fatalf("published run id must match the response")
	}
}

func TestGetEvaluationMapsNotFound(t *testing.T) {
	rt := newTestRouter(&stubSearcher{result: searchResult()},
		&stubReports{err: domain.WrapError(domain.ErrNotFound, "get report", domain.ErrNotFound)}, &stubQueue{})
	handler := rt.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/evaluations/run-missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/wramadhan/griya/internal/core/domain"
)

type fakeStructured struct {
	listings []domain.Listing
	err      error
	calls    int
}

func (f *fakeStructured) Search(_ context.Context, _ domain.SearchCriteria, _ int) ([]domain.Listing, error) {
	f.calls++
	return f.listings, f.err
}

func (f *fakeStructured) Count(_ context.Context, _ domain.SearchCriteria) (int, error) {
	return len(f.listings), f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeIndex struct {
	hits          []domain.SemanticHit
	err           error
	lastK         int
	lastCriteria  domain.SearchCriteria
	filteredCalls int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int, _ float64, criteria domain.SearchCriteria) ([]domain.SemanticHit, error) {
	f.lastK = k
	f.lastCriteria = criteria
	if !criteria.IsEmpty() {
		f.filteredCalls++
	}
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func listingID(id string) domain.Listing { return domain.Listing{ID: id, PropertyType: "house"} }

func TestNextStateTransitions(t *testing.T) {
	if got := nextState(stateStructuredFirst, 3); got != stateRerank {
		t.Fatalf("non-empty structured: state = %s, want rerank", got)
	}
	if got := nextState(stateStructuredFirst, 0); got != stateSemanticFallback {
		t.Fatalf("empty structured: state = %s, want semantic_fallback", got)
	}
	if got := nextState(stateRerank, 3); got != stateDone {
		t.Fatalf("rerank must transition to done, got %s", got)
	}
	if got := nextState(stateSemanticFallback, 0); got != stateDone {
		t.Fatalf("fallback must transition to done, got %s", got)
	}
}

func TestRetrieveFusesStructuredAndSemanticScores(t *testing.T) {
	structured := &fakeStructured{listings: []domain.Listing{
		listingID("a"), listingID("b"), listingID("c"),
	}}
	index := &fakeIndex{hits: []domain.SemanticHit{
		{Listing: listingID("c"), Similarity: 0.9},
		{Listing: listingID("a"), Similarity: 0.5},
	}}
	h := NewHybridSearcher(structured, fakeEmbedder{}, index, DefaultFusionConfig())

	res, err := h.Retrieve(context.Background(), "rumah dekat cemara", domain.SearchCriteria{}, 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if res.FallbackUsed {
		t.Fatalf("fallback must not fire when structured results exist")
	}
	if index.lastK != 3+5 {
		t.Fatalf("semantic k = %d, want structured+margin = 8", index.lastK)
	}

	// a = 0.6*0.5 + 0.4*1.0 = 0.700, c = 0.6*0.9 + 0.4*(1/3) = 0.673,
	// b = 0.6*0 + 0.4*(2/3) = 0.267.
	if got := ids(res.Listings); got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Fatalf("fused order = %v, want [a c b]", got)
	}
	if res.Listings[0].Listing.Provenance != domain.ProvenanceStructured {
		t.Fatalf("rerank path results must carry structured provenance")
	}
}

func TestRetrievePositionScoreOrdersZeroSimilarityListings(t *testing.T) {
	structured := &fakeStructured{listings: []domain.Listing{
		listingID("first"), listingID("second"), listingID("third"),
	}}
	index := &fakeIndex{} // nothing in the semantic candidate set
	h := NewHybridSearcher(structured, fakeEmbedder{}, index, DefaultFusionConfig())

	res, err := h.Retrieve(context.Background(), "q", domain.SearchCriteria{}, 10)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	got := ids(res.Listings)
	if got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Fatalf("zero-similarity order = %v, want structured order preserved", got)
	}
}

func TestRetrieveSemanticFallbackAppliesCriteria(t *testing.T) {
	structured := &fakeStructured{} // confirmed empty
	index := &fakeIndex{hits: []domain.SemanticHit{
		{Listing: listingID("s1"), Similarity: 0.8},
		{Listing: listingID("s2"), Similarity: 0.6},
	}}
	h := NewHybridSearcher(structured, fakeEmbedder{}, index, DefaultFusionConfig())

	criteria := domain.SearchCriteria{PropertyType: "house"}
	res, err := h.Retrieve(context.Background(), "q", criteria, 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !res.FallbackUsed {
		t.Fatalf("expected fallback path")
	}
	if index.filteredCalls != 1 {
		t.Fatalf("fallback must pass the structured criteria as filters")
	}
	if len(res.Listings) != 1 {
		t.Fatalf("fallback must cap at the requested count, got %d", len(res.Listings))
	}
	if res.Listings[0].Listing.Provenance != domain.ProvenanceSemantic {
		t.Fatalf("fallback results must carry semantic provenance")
	}
	if res.Listings[0].StructuredRank != -1 {
		t.Fatalf("fallback results have no structured rank")
	}
}

func TestRetrieveCandidateCapBoundsSemanticK(t *testing.T) {
	listings := make([]domain.Listing, 0, 30)
	for i := 0; i < 30; i++ {
		listings = append(listings, listingID(string(rune('a'+i))))
	}
	structured := &fakeStructured{listings: listings[:18]}
	index := &fakeIndex{}
	h := NewHybridSearcher(structured, fakeEmbedder{}, index, DefaultFusionConfig())

	if _, err := h.Retrieve(context.Background(), "q", domain.SearchCriteria{}, 10); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if index.lastK != 20 {
		t.Fatalf("semantic k = %d, want cap 20", index.lastK)
	}
}

func TestRetrievePropagatesTransportFailure(t *testing.T) {
	structured := &fakeStructured{
		err: domain.WrapError(domain.ErrRetrievalUnavailable, "listing search", errors.New("connection refused")),
	}
	index := &fakeIndex{hits: []domain.SemanticHit{{Listing: listingID("x"), Similarity: 0.9}}}
	h := NewHybridSearcher(structured, fakeEmbedder{}, index, DefaultFusionConfig())

	_, err := h.Retrieve(context.Background(), "q", domain.SearchCriteria{}, 5)
	if err == nil {
		t.Fatalf("transport failure must propagate, not degrade to fallback")
	}
	if !domain.IsKind(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("error must stay distinguishable from empty results, got %v", err)
	}
}

func TestRetrieveConcurrentFanOutReusesPrefetch(t *testing.T) {
	structured := &fakeStructured{listings: []domain.Listing{listingID("a"), listingID("b")}}
	index := &fakeIndex{hits: []domain.SemanticHit{{Listing: listingID("b"), Similarity: 0.95}}}

	cfg := DefaultFusionConfig()
	cfg.ConcurrentFanOut = true
	h := NewHybridSearcher(structured, fakeEmbedder{}, index, cfg)

	res, err := h.Retrieve(context.Background(), "q", domain.SearchCriteria{}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if index.filteredCalls != 0 {
		t.Fatalf("rerank path must not issue a filtered semantic call")
	}
	// b: 0.6*0.95 + 0.4*0.5 = 0.77 beats a: 0.6*0 + 0.4*1 = 0.4.
	if got := ids(res.Listings); got[0] != "b" {
		t.Fatalf("fused order = %v, want b first", got)
	}
}

func ids(ranked []domain.RankedListing) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Listing.ID)
	}
	return out
}

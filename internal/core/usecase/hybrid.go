package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/core/ports"
)

// retrievalState is the orchestrator's explicit state machine:
// structured-first, then either rerank (structured hits exist) or semantic
// fallback (structured came back empty), then done.
type retrievalState int

const (
	stateStructuredFirst retrievalState = iota
	stateRerank
	stateSemanticFallback
	stateDone
)

func (s retrievalState) String() string {
	switch s {
	case stateStructuredFirst:
		return "structured_first"
	case stateRerank:
		return "rerank"
	case stateSemanticFallback:
		return "semantic_fallback"
	default:
		return "done"
	}
}

func nextState(s retrievalState, structuredCount int) retrievalState {
	switch s {
	case stateStructuredFirst:
		if structuredCount > 0 {
			return stateRerank
		}
		return stateSemanticFallback
	default:
		return stateDone
	}
}

// FusionConfig exposes every fusion tunable; none of the weights are
// hardcoded in the retrieval path.
type FusionConfig struct {
	SimilarityWeight float64 // alpha
	PositionWeight   float64 // beta
	SimilarityFloor  float64 // semantic candidates below this are dropped
	CandidateMargin  int     // extra semantic candidates past the structured count
	CandidateCap     int     // upper bound on semantic k and structured fetch
	ConcurrentFanOut bool    // invoke both retrievers in parallel on the rerank path
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		SimilarityWeight: 0.6,
		PositionWeight:   0.4,
		SimilarityFloor:  0.35,
		CandidateMargin:  5,
		CandidateCap:     20,
	}
}

func (c FusionConfig) normalize() FusionConfig {
	out := c
	def := DefaultFusionConfig()
	if out.SimilarityWeight <= 0 && out.PositionWeight <= 0 {
		out.SimilarityWeight = def.SimilarityWeight
		out.PositionWeight = def.PositionWeight
	}
	if out.SimilarityFloor <= 0 {
		out.SimilarityFloor = def.SimilarityFloor
	}
	if out.CandidateMargin <= 0 {
		out.CandidateMargin = def.CandidateMargin
	}
	if out.CandidateCap <= 0 {
		out.CandidateCap = def.CandidateCap
	}
	return out
}

// HybridSearcher fuses structured and semantic retrieval. Structured
// correctness leads for exact fields; similarity reorders within the
// structured set, and the semantic index answers alone only when the
// structured store confirmed zero matches.
type HybridSearcher struct {
	structured ports.StructuredRetriever
	embedder   ports.Embedder
	index      ports.VectorIndex
	cfg        FusionConfig
}

func NewHybridSearcher(
	structured ports.StructuredRetriever,
	embedder ports.Embedder,
	index ports.VectorIndex,
	cfg FusionConfig,
) *HybridSearcher {
	return &HybridSearcher{
		structured: structured,
		embedder:   embedder,
		index:      index,
		cfg:        cfg.normalize(),
	}
}

func (h *HybridSearcher) Retrieve(
	ctx context.Context,
	question string,
	criteria domain.SearchCriteria,
	limit int,
) (*domain.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	vector, err := h.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	structured, prefetched, err := h.fanOut(ctx, vector, criteria)
	if err != nil {
		return nil, err
	}

	state := nextState(stateStructuredFirst, len(structured))
	switch state {
	case stateSemanticFallback:
		return h.semanticFallback(ctx, vector, criteria, limit)
	case stateRerank:
		return h.rerank(ctx, vector, structured, prefetched, criteria, limit)
	default:
		return nil, fmt.Errorf("unexpected retrieval state %s", state)
	}
}

// fanOut runs the structured query, optionally alongside an unfiltered
// semantic prefetch at the candidate cap. The prefetch is reusable on the
// rerank path because rerank similarity lookups use raw query text with no
// metadata filters.
func (h *HybridSearcher) fanOut(
	ctx context.Context,
	vector []float32,
	criteria domain.SearchCriteria,
) ([]domain.Listing, []domain.SemanticHit, error) {
	if !h.cfg.ConcurrentFanOut {
		structured, err := h.structured.Search(ctx, criteria, h.cfg.CandidateCap)
		if err != nil {
			return nil, nil, fmt.Errorf("structured search: %w", err)
		}
		return structured, nil, nil
	}

	type structuredOut struct {
		listings []domain.Listing
		err      error
	}
	type semanticOut struct {
		hits []domain.SemanticHit
		err  error
	}

	structuredCh := make(chan structuredOut, 1)
	semanticCh := make(chan semanticOut, 1)

	go func() {
		listings, err := h.structured.Search(ctx, criteria, h.cfg.CandidateCap)
		structuredCh <- structuredOut{listings: listings, err: err}
	}()
	go func() {
		hits, err := h.index.Search(ctx, vector, h.cfg.CandidateCap, h.cfg.SimilarityFloor, domain.SearchCriteria{})
		semanticCh <- semanticOut{hits: hits, err: err}
	}()

	st := <-structuredCh
	se := <-semanticCh
	if st.err != nil {
		return nil, nil, fmt.Errorf("structured search: %w", st.err)
	}
	if se.err != nil {
		return nil, nil, fmt.Errorf("semantic prefetch: %w", se.err)
	}
	return st.listings, se.hits, nil
}

// semanticFallback answers from the similarity index alone, with the
// structured criteria re-applied as metadata filters. Structured filters
// can be over-specified relative to what the semantic corpus encodes, so
// an empty structured answer is not the end of the query.
func (h *HybridSearcher) semanticFallback(
	ctx context.Context,
	vector []float32,
	criteria domain.SearchCriteria,
	limit int,
) (*domain.SearchResult, error) {
	hits, err := h.index.Search(ctx, vector, limit, h.cfg.SimilarityFloor, criteria)
	if err != nil {
		return nil, fmt.Errorf("semantic fallback: %w", err)
	}

	ranked := make([]domain.RankedListing, 0, len(hits))
	for _, hit := range hits {
		listing := hit.Listing
		listing.Provenance = domain.ProvenanceSemantic
		ranked = append(ranked, domain.RankedListing{
			Listing:        listing,
			Similarity:     hit.Similarity,
			FusedScore:     hit.Similarity,
			StructuredRank: -1,
		})
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return &domain.SearchResult{Criteria: criteria, Listings: ranked, FallbackUsed: true}, nil
}

func (h *HybridSearcher) rerank(
	ctx context.Context,
	vector []float32,
	structured []domain.Listing,
	prefetched []domain.SemanticHit,
	criteria domain.SearchCriteria,
	limit int,
) (*domain.SearchResult, error) {
	k := len(structured) + h.cfg.CandidateMargin
	if k > h.cfg.CandidateCap {
		k = h.cfg.CandidateCap
	}

	hits := prefetched
	if hits == nil {
		var err error
		hits, err = h.index.Search(ctx, vector, k, h.cfg.SimilarityFloor, domain.SearchCriteria{})
		if err != nil {
			return nil, fmt.Errorf("semantic rerank: %w", err)
		}
	} else if len(hits) > k {
		hits = hits[:k]
	}

	simByID := make(map[string]float64, len(hits))
	for _, hit := range hits {
		simByID[hit.Listing.ID] = hit.Similarity
	}

	total := len(structured)
	ranked := make([]domain.RankedListing, 0, total)
	for i, listing := range structured {
		listing.Provenance = domain.ProvenanceStructured
		sim := simByID[listing.ID] // zero when absent from the semantic candidates
		pos := 1 - float64(i)/float64(total)
		ranked = append(ranked, domain.RankedListing{
			Listing:        listing,
			Similarity:     sim,
			PositionScore:  pos,
			FusedScore:     h.cfg.SimilarityWeight*sim + h.cfg.PositionWeight*pos,
			StructuredRank: i,
		})
	}

	// Stable sort keeps the original structured order as the tie-break.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FusedScore > ranked[j].FusedScore
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return &domain.SearchResult{Criteria: criteria, Listings: ranked, FallbackUsed: false}, nil
}

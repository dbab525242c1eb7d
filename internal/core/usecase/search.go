package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/core/ports"
)

// SearchUseCase is the conversational entry point: extract intent, resolve
// a bare place name to coordinates, run hybrid retrieval, and record the
// turn on the caller's session.
type SearchUseCase struct {
	intent          ports.IntentExtractor
	geocoder        ports.Geocoder
	hybrid          *HybridSearcher
	terms           domain.TermTable
	defaultLimit    int
	defaultRadiusKm float64
	logger          *slog.Logger
}

func NewSearchUseCase(
	intent ports.IntentExtractor,
	geocoder ports.Geocoder,
	hybrid *HybridSearcher,
	terms domain.TermTable,
	defaultLimit int,
	defaultRadiusKm float64,
	logger *slog.Logger,
) *SearchUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchUseCase{
		intent:          intent,
		geocoder:        geocoder,
		hybrid:          hybrid,
		terms:           terms,
		defaultLimit:    defaultLimit,
		defaultRadiusKm: defaultRadiusKm,
		logger:          logger,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, sess *domain.SessionState, question string, limit int) (*domain.SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("empty question"))
	}
	if limit <= 0 {
		limit = uc.defaultLimit
	}

	criteria, err := uc.intent.ExtractCriteria(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("extract criteria: %w", err)
	}

	if criteria.Keyword != "" && criteria.Near == nil && uc.geocoder != nil {
		pt, err := uc.geocoder.Locate(ctx, criteria.Keyword)
		if err != nil {
			// Keyword matching still works without coordinates.
			uc.logger.Warn("geocode_failed", "keyword", criteria.Keyword, "error", err)
		} else if pt != nil {
			criteria.Near = pt
			if criteria.RadiusKm <= 0 {
				criteria.RadiusKm = uc.defaultRadiusKm
			}
		}
	}

	result, err := uc.hybrid.Retrieve(ctx, ExpandQueryTerms(question, uc.terms), criteria, limit)
	if err != nil {
		return nil, err
	}

	if sess != nil {
		sess.Remember(criteria, result.Listings)
	}
	return result, nil
}

// ExpandQueryTerms appends the formal term for every colloquial phrase
// found in the question, so amenity language reaches the semantic index in
// the vocabulary the corpus was embedded with.
func ExpandQueryTerms(question string, terms domain.TermTable) string {
	if len(terms) == 0 {
		return question
	}
	lower := strings.ToLower(question)

	var extra []string
	for formal, colloquials := range terms {
		if strings.Contains(lower, strings.ToLower(formal)) {
			continue
		}
		for _, c := range colloquials {
			if c != "" && strings.Contains(lower, strings.ToLower(c)) {
				extra = append(extra, formal)
				break
			}
		}
	}
	if len(extra) == 0 {
		return question
	}
	// Deterministic order keeps embeddings cacheable across turns.
	sort.Strings(extra)
	return question + " " + strings.Join(extra, " ")
}

package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wramadhan/griya/internal/core/domain"
	"github.com/wramadhan/griya/internal/infrastructure/resilience"
)

// Client wraps a local Ollama instance: one generation model for intent
// extraction and one embedding model for the semantic index.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

// IntentExtractor turns a free-form question into structured search
// criteria via a JSON-constrained generation call.
type IntentExtractor struct {
	client *Client
}

func NewIntentExtractor(client *Client) *IntentExtractor {
	return &IntentExtractor{client: client}
}

func (x *IntentExtractor) ExtractCriteria(ctx context.Context, question string) (domain.SearchCriteria, error) {
	raw, err := x.client.generateJSON(ctx, buildCriteriaPrompt(question))
	if err != nil {
		return domain.SearchCriteria{}, err
	}

	var extracted extractedCriteria
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &extracted); err != nil {
		return domain.SearchCriteria{}, fmt.Errorf("parse criteria json: %w", err)
	}
	return extracted.toCriteria(), nil
}

// extractedCriteria is the model-facing shape. Numbers arrive as floats
// because the model emits bare JSON numbers.
type extractedCriteria struct {
	PropertyType string   `json:"property_type"`
	ListingType  string   `json:"listing_type"`
	PriceMin     *float64 `json:"price_min"`
	PriceMax     *float64 `json:"price_max"`
	BedroomsMin  *float64 `json:"bedrooms_min"`
	BedroomsMax  *float64 `json:"bedrooms_max"`
	FloorsMin    *float64 `json:"floors_min"`
	FloorsMax    *float64 `json:"floors_max"`
	Location     string   `json:"location"`
}

func (e extractedCriteria) toCriteria() domain.SearchCriteria {
	criteria := domain.SearchCriteria{
		PropertyType: strings.ToLower(strings.TrimSpace(e.PropertyType)),
		ListingType:  strings.ToLower(strings.TrimSpace(e.ListingType)),
		Keyword:      strings.TrimSpace(e.Location),
	}
	if e.PriceMin != nil {
		v := int64(*e.PriceMin)
		criteria.PriceMin = &v
	}
	if e.PriceMax != nil {
		v := int64(*e.PriceMax)
		criteria.PriceMax = &v
	}
	criteria.BedroomsMin = toIntPtr(e.BedroomsMin)
	criteria.BedroomsMax = toIntPtr(e.BedroomsMax)
	criteria.FloorsMin = toIntPtr(e.FloorsMin)
	criteria.FloorsMax = toIntPtr(e.FloorsMax)
	return criteria
}

func toIntPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.call(ctx, "generate", "/api/generate", reqBody, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

// call routes the request through the retry/breaker executor when one is
// configured, and marks retryable outcomes as temporary for callers.
func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	if c.executor == nil {
		return wrapTemporaryIfNeeded(operation, c.postJSON(ctx, path, payload, out, operation))
	}
	err := c.executor.Execute(ctx, "ollama_"+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

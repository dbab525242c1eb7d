package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wramadhan/griya/internal/core/domain"
)

// Client talks to Qdrant over its HTTP API. Listing attributes travel in
// the point payload so semantic hits come back as full listings without a
// second lookup.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Search queries the collection for the k nearest listings. Criteria map to
// Qdrant payload filters; minSimilarity becomes the score_threshold so the
// index never returns candidates below the floor.
func (c *Client) Search(
	ctx context.Context,
	vector []float32,
	k int,
	minSimilarity float64,
	criteria domain.SearchCriteria,
) ([]domain.SemanticHit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if minSimilarity > 0 {
		reqBody["score_threshold"] = minSimilarity
	}
	if filter := buildFilter(criteria); filter != nil {
		reqBody["filter"] = filter
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "qdrant search",
			fmt.Errorf("status %s", resp.Status))
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.SemanticHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.SemanticHit{
			Listing:    listingFromPayload(r.Payload),
			Similarity: r.Score,
		})
	}
	return out, nil
}

// buildFilter translates the structured criteria into a Qdrant must clause.
// Nil means "no filter": an unfiltered candidate pass over the collection.
func buildFilter(criteria domain.SearchCriteria) map[string]any {
	var must []map[string]any

	match := func(key, value string) {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": strings.ToLower(value)},
		})
	}
	intRange := func(key string, gte, lte *int64) {
		rng := map[string]any{}
		if gte != nil {
			rng["gte"] = *gte
		}
		if lte != nil {
			rng["lte"] = *lte
		}
		must = append(must, map[string]any{"key": key, "range": rng})
	}

	if criteria.PropertyType != "" {
		match("property_type", criteria.PropertyType)
	}
	if criteria.ListingType != "" {
		match("listing_type", criteria.ListingType)
	}
	if criteria.PriceMin != nil || criteria.PriceMax != nil {
		intRange("price", criteria.PriceMin, criteria.PriceMax)
	}
	if criteria.BedroomsMin != nil || criteria.BedroomsMax != nil {
		intRange("bedrooms", toInt64(criteria.BedroomsMin), toInt64(criteria.BedroomsMax))
	}
	if criteria.FloorsMin != nil || criteria.FloorsMax != nil {
		intRange("floors", toInt64(criteria.FloorsMin), toInt64(criteria.FloorsMax))
	}
	if criteria.Near != nil && criteria.RadiusKm > 0 {
		must = append(must, map[string]any{
			"key": "coordinates",
			"geo_radius": map[string]any{
				"center": map[string]any{"lat": criteria.Near.Lat, "lon": criteria.Near.Lon},
				"radius": criteria.RadiusKm * 1000,
			},
		})
	}

	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func toInt64(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func listingFromPayload(payload map[string]any) domain.Listing {
	l := domain.Listing{
		ID:           payloadString(payload, "listing_id"),
		PropertyType: payloadString(payload, "property_type"),
		ListingType:  payloadString(payload, "listing_type"),
		Price:        int64(payloadFloat(payload, "price")),
		Address:      payloadString(payload, "address"),
		District:     payloadString(payload, "district"),
		City:         payloadString(payload, "city"),
		Certificate:  payloadString(payload, "certificate"),
		Provenance:   domain.ProvenanceSemantic,
	}

	l.Bedrooms = payloadIntPtr(payload, "bedrooms")
	l.Bathrooms = payloadIntPtr(payload, "bathrooms")
	l.Floors = payloadIntPtr(payload, "floors")
	l.LandArea = payloadFloatPtr(payload, "land_area")
	l.BuildingArea = payloadFloatPtr(payload, "building_area")

	if coords, ok := payload["coordinates"].(map[string]any); ok {
		lat, latOK := coords["lat"].(float64)
		lon, lonOK := coords["lon"].(float64)
		if latOK && lonOK {
			l.Coordinates = &domain.GeoPoint{Lat: lat, Lon: lon}
		}
	}
	if raw, ok := payload["amenities"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				l.Amenities = append(l.Amenities, s)
			}
		}
	}
	return l
}

func payloadString(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func payloadFloat(payload map[string]any, key string) float64 {
	if f, ok := payload[key].(float64); ok {
		return f
	}
	return 0
}

func payloadIntPtr(payload map[string]any, key string) *int {
	if f, ok := payload[key].(float64); ok {
		v := int(f)
		return &v
	}
	return nil
}

func payloadFloatPtr(payload map[string]any, key string) *float64 {
	if f, ok := payload[key].(float64); ok {
		v := f
		return &v
	}
	return nil
}

package domain

import "strings"

type Provenance string

const (
	ProvenanceStructured Provenance = "structured"
	ProvenanceSemantic   Provenance = "semantic"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Listing is an immutable snapshot of a property at retrieval time.
// Optional numeric fields are pointers so "absent" stays distinguishable
// from zero when constraints are checked against them.
type Listing struct {
	ID           string     `json:"id"`
	PropertyType string     `json:"property_type"`
	ListingType  string     `json:"listing_type"`
	Price        int64      `json:"price"`
	Bedrooms     *int       `json:"bedrooms,omitempty"`
	Bathrooms    *int       `json:"bathrooms,omitempty"`
	Floors       *int       `json:"floors,omitempty"`
	LandArea     *float64   `json:"land_area,omitempty"`
	BuildingArea *float64   `json:"building_area,omitempty"`
	Coordinates  *GeoPoint  `json:"coordinates,omitempty"`
	Address      string     `json:"address,omitempty"`
	District     string     `json:"district,omitempty"`
	City         string     `json:"city,omitempty"`
	Amenities    []string   `json:"amenities,omitempty"`
	Certificate  string     `json:"certificate,omitempty"`
	Provenance   Provenance `json:"provenance"`
}

// LocationText joins the free-text location fields for keyword matching.
func (l Listing) LocationText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Address, l.District, l.City} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// SearchCriteria is the structured filter object produced by the intent
// extractor. All fields are optional; the zero value matches everything.
type SearchCriteria struct {
	PropertyType string    `json:"property_type,omitempty"`
	ListingType  string    `json:"listing_type,omitempty"`
	PriceMin     *int64    `json:"price_min,omitempty"`
	PriceMax     *int64    `json:"price_max,omitempty"`
	BedroomsMin  *int      `json:"bedrooms_min,omitempty"`
	BedroomsMax  *int      `json:"bedrooms_max,omitempty"`
	FloorsMin    *int      `json:"floors_min,omitempty"`
	FloorsMax    *int      `json:"floors_max,omitempty"`
	Keyword      string    `json:"keyword,omitempty"`
	Near         *GeoPoint `json:"near,omitempty"`
	RadiusKm     float64   `json:"radius_km,omitempty"`
}

func (c SearchCriteria) IsEmpty() bool {
	return c.PropertyType == "" && c.ListingType == "" &&
		c.PriceMin == nil && c.PriceMax == nil &&
		c.BedroomsMin == nil && c.BedroomsMax == nil &&
		c.FloorsMin == nil && c.FloorsMax == nil &&
		c.Keyword == "" && c.Near == nil
}

// SemanticHit is a semantic-index candidate with its similarity in [0,1].
type SemanticHit struct {
	Listing    Listing `json:"listing"`
	Similarity float64 `json:"similarity"`
}

// RankedListing is one entry of the fused result set.
type RankedListing struct {
	Listing        Listing `json:"listing"`
	Similarity     float64 `json:"similarity"`
	PositionScore  float64 `json:"position_score"`
	FusedScore     float64 `json:"fused_score"`
	StructuredRank int     `json:"structured_rank"` // -1 on the semantic fallback path
}

// SearchResult is the outcome of one hybrid retrieval.
type SearchResult struct {
	Criteria     SearchCriteria  `json:"criteria"`
	Listings     []RankedListing `json:"listings"`
	FallbackUsed bool            `json:"fallback_used"`
}

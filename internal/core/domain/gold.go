package domain

type ExpectedOutcome string

const (
	ExpectedHasData ExpectedOutcome = "has_data"
	ExpectedNoData  ExpectedOutcome = "no_data"
)

// LocationConstraint matches by keyword containment first, then by
// great-circle distance from Center when both sides carry coordinates.
type LocationConstraint struct {
	Keywords []string  `json:"keywords,omitempty" yaml:"keywords"`
	Center   *GeoPoint `json:"center,omitempty" yaml:"center"`
	RadiusKm float64   `json:"radius_km,omitempty" yaml:"radius_km"`
}

// PriceConstraint carries exactly one of four shapes: an explicit range,
// an open-ended bound, an "around" target, or a colloquial rounding
// expression such as "1M-an".
type PriceConstraint struct {
	Min        *int64 `json:"min,omitempty" yaml:"min"`
	Max        *int64 `json:"max,omitempty" yaml:"max"`
	Around     *int64 `json:"around,omitempty" yaml:"around"`
	Colloquial string `json:"colloquial,omitempty" yaml:"colloquial"`
}

type CountConstraint struct {
	Min   *int `json:"min,omitempty" yaml:"min"`
	Max   *int `json:"max,omitempty" yaml:"max"`
	Exact *int `json:"exact,omitempty" yaml:"exact"`
}

// ConstraintSet is the gold-labeled filter a listing is judged against.
// A nil / empty member means the question carries no such constraint.
type ConstraintSet struct {
	PropertyType string              `json:"property_type,omitempty" yaml:"property_type"`
	ListingType  string              `json:"listing_type,omitempty" yaml:"listing_type"`
	Location     *LocationConstraint `json:"location,omitempty" yaml:"location"`
	Price        *PriceConstraint    `json:"price,omitempty" yaml:"price"`
	Bedrooms     *CountConstraint    `json:"bedrooms,omitempty" yaml:"bedrooms"`
	Floors       *CountConstraint    `json:"floors,omitempty" yaml:"floors"`
}

type GoldQuestion struct {
	ID          string          `json:"id" yaml:"id"`
	Question    string          `json:"question" yaml:"question"`
	Category    string          `json:"category" yaml:"category"`
	Expected    ExpectedOutcome `json:"expected" yaml:"expected"`
	Constraints ConstraintSet   `json:"constraints" yaml:"constraints"`
}

// EvaluationRequest asks the worker to run the gold set through the
// pipeline. GoldSet overrides the configured gold-set path when non-empty.
type EvaluationRequest struct {
	RunID   string `json:"run_id"`
	GoldSet string `json:"gold_set,omitempty"`
}

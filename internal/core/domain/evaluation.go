package domain

import "time"

type ConstraintVerdict string

const (
	VerdictPass          ConstraintVerdict = "PASS"
	VerdictFail          ConstraintVerdict = "FAIL"
	VerdictNotApplicable ConstraintVerdict = "NOT_APPLICABLE"
	VerdictMissingData   ConstraintVerdict = "MISSING_DATA"
)

type ConstraintName string

const (
	ConstraintPropertyType ConstraintName = "property_type"
	ConstraintListingType  ConstraintName = "listing_type"
	ConstraintLocation     ConstraintName = "location"
	ConstraintPrice        ConstraintName = "price"
	ConstraintBedrooms     ConstraintName = "bedrooms"
	ConstraintFloors       ConstraintName = "floors"
)

// ConstraintNames is the fixed evaluation order, used so reports and
// exports stay deterministic.
var ConstraintNames = []ConstraintName{
	ConstraintPropertyType,
	ConstraintListingType,
	ConstraintLocation,
	ConstraintPrice,
	ConstraintBedrooms,
	ConstraintFloors,
}

// ListingEvaluation holds one listing's verdicts. PCA counts only PASS and
// FAIL verdicts; a listing is a strict success when every decidable
// constraint passed and at least one was decidable.
type ListingEvaluation struct {
	ListingID     string                               `json:"listing_id"`
	Verdicts      map[ConstraintName]ConstraintVerdict `json:"verdicts"`
	PCA           float64                              `json:"pca"`
	Decidable     int                                  `json:"decidable"`
	StrictSuccess bool                                 `json:"strict_success"`
}

type ConfusionOutcome string

const (
	OutcomeTruePositive  ConfusionOutcome = "TP"
	OutcomeFalsePositive ConfusionOutcome = "FP"
	OutcomeTrueNegative  ConfusionOutcome = "TN"
	OutcomeFalseNegative ConfusionOutcome = "FN"
)

// QueryEvaluation is the scored outcome of one gold question. CPR is nil
// when the pipeline returned no listings: an empty reply has no pass ratio
// and must not be read as zero. RetrievalError marks a transport failure;
// such queries carry no confusion outcome.
type QueryEvaluation struct {
	QuestionID     string              `json:"question_id"`
	Category       string              `json:"category,omitempty"`
	Expected       ExpectedOutcome     `json:"expected"`
	Listings       []ListingEvaluation `json:"listings,omitempty"`
	ResultCount    int                 `json:"result_count"`
	CPR            *float64            `json:"cpr,omitempty"`
	Success        bool                `json:"success"`
	OracleMatches  int                 `json:"oracle_matches"`
	Outcome        ConfusionOutcome    `json:"outcome,omitempty"`
	FallbackUsed   bool                `json:"fallback_used"`
	RetrievalError string              `json:"retrieval_error,omitempty"`
}

type ConfusionMatrix struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

func (m ConfusionMatrix) Total() int { return m.TP + m.FP + m.TN + m.FN }

func (m ConfusionMatrix) Precision() float64 {
	if m.TP+m.FP == 0 {
		return 0
	}
	return float64(m.TP) / float64(m.TP+m.FP)
}

func (m ConfusionMatrix) Recall() float64 {
	if m.TP+m.FN == 0 {
		return 0
	}
	return float64(m.TP) / float64(m.TP+m.FN)
}

func (m ConfusionMatrix) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func (m ConfusionMatrix) Accuracy() float64 {
	if m.Total() == 0 {
		return 0
	}
	return float64(m.TP+m.TN) / float64(m.Total())
}

// AggregateMetrics is the corpus-level summary. MeanCPR averages only
// queries with a defined CPR. RetrievalFailures are reported here instead
// of being folded into the confusion matrix.
type AggregateMetrics struct {
	Questions          int                        `json:"questions"`
	RetrievalFailures  int                        `json:"retrieval_failures"`
	ListingsEvaluated  int                        `json:"listings_evaluated"`
	MeanCPR            float64                    `json:"mean_cpr"`
	StrictSuccessRatio float64                    `json:"strict_success_ratio"`
	QuerySuccessRate   float64                    `json:"query_success_rate"`
	PassRateByType     map[ConstraintName]float64 `json:"pass_rate_by_type"`
	Confusion          ConfusionMatrix            `json:"confusion"`
	Precision          float64                    `json:"precision"`
	Recall             float64                    `json:"recall"`
	F1                 float64                    `json:"f1"`
	Accuracy           float64                    `json:"accuracy"`
	CPRThreshold       float64                    `json:"cpr_threshold"`
}

// EvaluationReport carries everything needed to regenerate the aggregate
// without re-running retrieval.
type EvaluationReport struct {
	RunID     string            `json:"run_id"`
	GoldSet   string            `json:"gold_set,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Aggregate AggregateMetrics  `json:"aggregate"`
	Queries   []QueryEvaluation `json:"queries"`
}

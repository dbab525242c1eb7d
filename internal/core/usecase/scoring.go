package usecase

import "github.com/wramadhan/griya/internal/core/domain"

// Scorer turns retrieval output into listing-, query- and corpus-level
// metrics. It is pure: re-running it over a stored report reproduces the
// same aggregate.
type Scorer struct {
	Policy       ConstraintPolicy
	CPRThreshold float64
}

func NewScorer(policy ConstraintPolicy, cprThreshold float64) Scorer {
	if cprThreshold <= 0 {
		cprThreshold = 0.60
	}
	return Scorer{Policy: policy.normalize(), CPRThreshold: cprThreshold}
}

// ScoreListing derives PCA from the verdicts: only PASS and FAIL count,
// MISSING_DATA and NOT_APPLICABLE stay out of numerator and denominator.
func (s Scorer) ScoreListing(l domain.Listing, cs domain.ConstraintSet) domain.ListingEvaluation {
	verdicts := CheckListing(l, cs, s.Policy)

	passed, decidable := 0, 0
	for _, v := range verdicts {
		switch v {
		case domain.VerdictPass:
			passed++
			decidable++
		case domain.VerdictFail:
			decidable++
		}
	}

	pca := 0.0
	if decidable > 0 {
		pca = float64(passed) / float64(decidable)
	}

	return domain.ListingEvaluation{
		ListingID:     l.ID,
		Verdicts:      verdicts,
		PCA:           pca,
		Decidable:     decidable,
		StrictSuccess: decidable > 0 && passed == decidable,
	}
}

// ScoreQuery evaluates the returned listings of one question. CPR stays
// nil for an empty reply; a no-result answer is only correct when the
// question expected no data.
func (s Scorer) ScoreQuery(q domain.GoldQuestion, listings []domain.RankedListing) domain.QueryEvaluation {
	evals := make([]domain.ListingEvaluation, 0, len(listings))
	for _, rl := range listings {
		evals = append(evals, s.ScoreListing(rl.Listing, q.Constraints))
	}

	qe := domain.QueryEvaluation{
		QuestionID:  q.ID,
		Category:    q.Category,
		Expected:    q.Expected,
		Listings:    evals,
		ResultCount: len(evals),
	}

	if len(evals) > 0 {
		strict := 0
		for _, le := range evals {
			if le.StrictSuccess {
				strict++
			}
		}
		cpr := float64(strict) / float64(len(evals))
		qe.CPR = &cpr
	}

	switch {
	case q.Expected == domain.ExpectedNoData:
		qe.Success = qe.ResultCount == 0
	case qe.ResultCount == 0:
		qe.Success = false
	default:
		qe.Success = *qe.CPR >= s.CPRThreshold
	}
	return qe
}

// ClassifyQuery assigns the confusion outcome against the independent
// structured oracle. A non-empty reply below the CPR threshold counts as a
// negative prediction, so with an empty oracle it lands in TN.
func (s Scorer) ClassifyQuery(qe *domain.QueryEvaluation, oracleMatches int) {
	qe.OracleMatches = oracleMatches

	predictedPositive := qe.ResultCount > 0 && qe.CPR != nil && *qe.CPR >= s.CPRThreshold
	oracleHas := oracleMatches > 0

	switch {
	case oracleHas && predictedPositive:
		qe.Outcome = domain.OutcomeTruePositive
	case oracleHas:
		qe.Outcome = domain.OutcomeFalseNegative
	case predictedPositive:
		qe.Outcome = domain.OutcomeFalsePositive
	default:
		qe.Outcome = domain.OutcomeTrueNegative
	}
}

// Aggregate folds query evaluations into corpus-level metrics. Queries
// that failed at the transport level keep their error and are counted in
// RetrievalFailures instead of the confusion matrix.
func Aggregate(queries []domain.QueryEvaluation, cprThreshold float64) domain.AggregateMetrics {
	agg := domain.AggregateMetrics{
		Questions:      len(queries),
		PassRateByType: make(map[domain.ConstraintName]float64, len(domain.ConstraintNames)),
		CPRThreshold:   cprThreshold,
	}

	var (
		cprSum       float64
		cprCount     int
		strictTotal  int
		listingTotal int
		successes    int

		passByType = make(map[domain.ConstraintName]int)
		failByType = make(map[domain.ConstraintName]int)
	)

	for _, qe := range queries {
		if qe.RetrievalError != "" {
			agg.RetrievalFailures++
			continue
		}
		if qe.Success {
			successes++
		}
		if qe.CPR != nil {
			cprSum += *qe.CPR
			cprCount++
		}
		for _, le := range qe.Listings {
			listingTotal++
			if le.StrictSuccess {
				strictTotal++
			}
			for name, v := range le.Verdicts {
				switch v {
				case domain.VerdictPass:
					passByType[name]++
				case domain.VerdictFail:
					failByType[name]++
				}
			}
		}
		switch qe.Outcome {
		case domain.OutcomeTruePositive:
			agg.Confusion.TP++
		case domain.OutcomeFalsePositive:
			agg.Confusion.FP++
		case domain.OutcomeTrueNegative:
			agg.Confusion.TN++
		case domain.OutcomeFalseNegative:
			agg.Confusion.FN++
		}
	}

	agg.ListingsEvaluated = listingTotal
	if cprCount > 0 {
		agg.MeanCPR = cprSum / float64(cprCount)
	}
	if listingTotal > 0 {
		agg.StrictSuccessRatio = float64(strictTotal) / float64(listingTotal)
	}
	if scored := agg.Questions - agg.RetrievalFailures; scored > 0 {
		agg.QuerySuccessRate = float64(successes) / float64(scored)
	}
	for _, name := range domain.ConstraintNames {
		if total := passByType[name] + failByType[name]; total > 0 {
			agg.PassRateByType[name] = float64(passByType[name]) / float64(total)
		}
	}

	agg.Precision = agg.Confusion.Precision()
	agg.Recall = agg.Confusion.Recall()
	agg.F1 = agg.Confusion.F1()
	agg.Accuracy = agg.Confusion.Accuracy()
	return agg
}

// RecomputeAggregate rebuilds the aggregate from a stored report without
// re-running retrieval.
func RecomputeAggregate(report *domain.EvaluationReport) domain.AggregateMetrics {
	return Aggregate(report.Queries, report.Aggregate.CPRThreshold)
}

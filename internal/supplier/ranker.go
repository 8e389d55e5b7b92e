package supplier

import (
	"fmt"
	"sort"
	"time"

	"github.com/partsignal/replenish-core/internal/domain"
)

// CohortMember bundles one supplier's history and collaborator metrics for
// ranking.
type CohortMember struct {
	SupplierID string
	Purchases  []domain.Transaction
	Metrics    domain.SupplierMetrics
}

// Rank evaluates a cohort for one part and orders it best-first. The sort
// is stable, so equal scores keep input order.
func (e *Evaluator) Rank(partNumber string, cohort []CohortMember, now time.Time) (domain.SupplierRanking, error) {
	if len(cohort) == 0 {
		return domain.SupplierRanking{}, &domain.NoSuppliersFoundError{PartNumber: partNumber}
	}

	marketAvgPrice := marketAveragePrice(cohort)

	analyses := make([]domain.SupplierPerformanceAnalysis, 0, len(cohort))
	for _, member := range cohort {
		analyses = append(analyses, e.Evaluate(member.SupplierID, member.Purchases, member.Metrics, marketAvgPrice, now))
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].OverallScore > analyses[j].OverallScore
	})
	for i := range analyses {
		analyses[i].Ranking = i + 1
	}

	ranking := domain.SupplierRanking{
		PartNumber: partNumber,
		Suppliers:  analyses,
		Market:     e.analyzeMarket(analyses),
	}

	recommended, reasoning, confidence := e.pickRecommended(analyses)
	ranking.RecommendedSupplier = recommended
	ranking.Reasoning = reasoning
	ranking.Confidence = confidence

	return ranking, nil
}

// marketAveragePrice averages unit prices across every purchase in the
// cohort; it anchors the price competitiveness index.
func marketAveragePrice(cohort []CohortMember) float64 {
	total := 0.0
	count := 0
	for _, member := range cohort {
		for _, p := range member.Purchases {
			total += p.UnitPrice
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func (e *Evaluator) analyzeMarket(analyses []domain.SupplierPerformanceAnalysis) domain.MarketAnalysis {
	var prices, leadTimes, scores []float64
	for _, a := range analyses {
		if a.SampleSize > 0 {
			prices = append(prices, a.Cost.AverageUnitCost)
			leadTimes = append(leadTimes, a.Delivery.AverageLeadTimeDays)
		}
		scores = append(scores, a.OverallScore)
	}

	avgScore := mean(scores)
	position := domain.MarketWeak
	switch {
	case avgScore >= e.cfg.StrongMarketScoreMin:
		position = domain.MarketStrong
	case avgScore >= e.cfg.ModerateMarketScoreMin:
		position = domain.MarketModerate
	}

	// Herfindahl proxy with equal market shares: n suppliers at 1/n each.
	concentration := 0.0
	if n := len(analyses); n > 0 {
		share := 1.0 / float64(n)
		concentration = float64(n) * share * share
	}

	return domain.MarketAnalysis{
		PriceRange:            valueRange(prices),
		LeadTimeRange:         valueRange(leadTimes),
		CompetitivePosition:   position,
		SupplierConcentration: concentration,
	}
}

func valueRange(values []float64) domain.ValueRange {
	if len(values) == 0 {
		return domain.ValueRange{}
	}

	vr := domain.ValueRange{Min: values[0], Max: values[0], Average: mean(values)}
	for _, v := range values[1:] {
		if v < vr.Min {
			vr.Min = v
		}
		if v > vr.Max {
			vr.Max = v
		}
	}
	return vr
}

// pickRecommended prefers the highest-scoring preferred supplier, then the
// highest acceptable one, then the best of whatever remains.
func (e *Evaluator) pickRecommended(analyses []domain.SupplierPerformanceAnalysis) (string, string, float64) {
	for _, a := range analyses {
		if a.Recommendation == domain.SupplierPreferred {
			return a.SupplierID,
				fmt.Sprintf("supplier %s is preferred with score %.1f", a.SupplierID, a.OverallScore),
				e.cfg.PreferredPickConfidence
		}
	}

	for _, a := range analyses {
		if a.Recommendation == domain.SupplierAcceptable {
			return a.SupplierID,
				fmt.Sprintf("supplier %s is acceptable with score %.1f; no preferred supplier available", a.SupplierID, a.OverallScore),
				e.cfg.AcceptablePickConfidence
		}
	}

	best := analyses[0]
	return best.SupplierID,
		fmt.Sprintf("supplier %s is the best available option with score %.1f despite concerns", best.SupplierID, best.OverallScore),
		e.cfg.FallbackPickConfidence
}

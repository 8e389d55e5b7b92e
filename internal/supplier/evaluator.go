package supplier

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
)

// Evaluator scores supplier performance from historical purchase records
// plus collaborator-sourced relationship and capacity ratings.
type Evaluator struct {
	cfg    config.SupplierConfig
	logger *logrus.Logger
}

// NewEvaluator creates a supplier performance evaluator.
func NewEvaluator(cfg config.SupplierConfig, logger *logrus.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, logger: logger}
}

// Evaluate scores one supplier. marketAveragePrice anchors the price
// competitiveness index; pass 0 to treat the supplier as at-market.
// Zero purchase history yields the explicit data-absence analysis.
func (e *Evaluator) Evaluate(
	supplierID string,
	purchases []domain.Transaction,
	metrics domain.SupplierMetrics,
	marketAveragePrice float64,
	now time.Time,
) domain.SupplierPerformanceAnalysis {
	if len(purchases) == 0 {
		return e.emptyAnalysis(supplierID, now)
	}

	delivery := e.scoreDelivery(purchases)
	cost := e.scoreCost(purchases, marketAveragePrice)
	quality := e.scoreQuality(purchases)
	relationship := e.scoreRelationship(metrics)
	capacity := e.scoreCapacity(metrics)

	overall := e.cfg.DeliveryWeight*delivery.ReliabilityScore +
		e.cfg.CostWeight*cost.Score +
		e.cfg.QualityWeight*quality.QualityRating +
		e.cfg.RelationshipWeight*relationship.Score +
		e.cfg.CapacityWeight*capacity.Score

	analysis := domain.SupplierPerformanceAnalysis{
		SupplierID:   supplierID,
		Delivery:     delivery,
		Cost:         cost,
		Quality:      quality,
		Relationship: relationship,
		Capacity:     capacity,
		OverallScore: clamp(overall, 0, 100),
		EvaluatedAt:  now,
		SampleSize:   len(purchases),
	}

	analysis.RiskFactors = e.identifyRisks(delivery, quality, metrics)
	analysis.Recommendation = e.recommend(analysis.OverallScore, analysis.RiskFactors)

	e.logger.WithFields(logrus.Fields{
		"supplier_id":    supplierID,
		"overall_score":  analysis.OverallScore,
		"recommendation": analysis.Recommendation,
		"risk_factors":   len(analysis.RiskFactors),
		"sample_size":    len(purchases),
	}).Debug("supplier evaluated")

	return analysis
}

// emptyAnalysis is the fixed data-absence result: score 0, avoid, one risk
// factor noting missing history.
func (e *Evaluator) emptyAnalysis(supplierID string, now time.Time) domain.SupplierPerformanceAnalysis {
	return domain.SupplierPerformanceAnalysis{
		SupplierID:     supplierID,
		OverallScore:   0,
		Recommendation: domain.SupplierAvoid,
		EvaluatedAt:    now,
		RiskFactors: []domain.RiskFactor{{
			Category:    "data",
			Severity:    domain.RiskHigh,
			Description: "no purchase history available for this supplier",
		}},
	}
}

func (e *Evaluator) scoreDelivery(purchases []domain.Transaction) domain.DeliveryPerformance {
	onTime := 0
	var leadTimes []float64
	for _, p := range purchases {
		if p.DeliveredOnTime() {
			onTime++
		}
		if lt := p.LeadTimeDays(); lt > 0 {
			leadTimes = append(leadTimes, lt)
		}
	}

	onTimeRate := float64(onTime) / float64(len(purchases))

	consistency := 1.0
	avgLeadTime := mean(leadTimes)
	if avgLeadTime > 0 {
		consistency = math.Max(0, 1-stdDev(leadTimes)/avgLeadTime)
	}

	reliability := (e.cfg.OnTimeReliabilityWeight*onTimeRate + e.cfg.ConsistencyWeight*consistency) * 100

	return domain.DeliveryPerformance{
		OnTimeRate:          onTimeRate,
		AverageLeadTimeDays: avgLeadTime,
		LeadTimeConsistency: consistency,
		ReliabilityScore:    clamp(reliability, 0, 100),
		RecentTrend:         e.leadTimeTrend(leadTimes),
	}
}

// leadTimeTrend compares first-half and second-half mean lead times.
// Shrinking lead times read as improvement.
func (e *Evaluator) leadTimeTrend(leadTimes []float64) domain.PerformanceTrend {
	if len(leadTimes) < 4 {
		return domain.TrendSteady
	}

	half := len(leadTimes) / 2
	early := mean(leadTimes[:half])
	late := mean(leadTimes[half:])
	if early == 0 {
		return domain.TrendSteady
	}

	change := (late - early) / early
	switch {
	case change < -e.cfg.TrendChangeThreshold:
		return domain.TrendImproving
	case change > e.cfg.TrendChangeThreshold:
		return domain.TrendDeclining
	default:
		return domain.TrendSteady
	}
}

func (e *Evaluator) scoreCost(purchases []domain.Transaction, marketAveragePrice float64) domain.CostPerformance {
	prices := make([]float64, 0, len(purchases))
	for _, p := range purchases {
		prices = append(prices, p.UnitPrice)
	}

	avgPrice := mean(prices)

	stability := 1.0
	if avgPrice > 0 {
		stability = math.Max(0, 1-stdDev(prices)/avgPrice)
	}

	// Deterministic market comparison: index 100 means priced at market,
	// above 100 means cheaper than market.
	competitiveness := 100.0
	if marketAveragePrice > 0 && avgPrice > 0 {
		competitiveness = 100 * marketAveragePrice / avgPrice
	}

	score := clamp(100-math.Abs(competitiveness-100), 0, 100)

	return domain.CostPerformance{
		AverageUnitCost:      avgPrice,
		PriceStability:       stability,
		RecentTrend:          e.priceTrend(prices),
		TotalCostOfOwnership: avgPrice * e.cfg.OverheadMultiplier,
		CompetitivenessIndex: competitiveness,
		Score:                score,
	}
}

func (e *Evaluator) priceTrend(prices []float64) domain.PerformanceTrend {
	if len(prices) < 4 {
		return domain.TrendSteady
	}

	half := len(prices) / 2
	early := mean(prices[:half])
	late := mean(prices[half:])
	if early == 0 {
		return domain.TrendSteady
	}

	change := (late - early) / early
	switch {
	case change < -e.cfg.TrendChangeThreshold:
		return domain.TrendImproving
	case change > e.cfg.TrendChangeThreshold:
		return domain.TrendDeclining
	default:
		return domain.TrendSteady
	}
}

func (e *Evaluator) scoreQuality(purchases []domain.Transaction) domain.QualityPerformance {
	scores := make([]float64, 0, len(purchases))
	for _, p := range purchases {
		scores = append(scores, p.QualityScore)
	}

	rating := mean(scores) * 100
	defectRate := math.Max(0, 5-rating/20)

	return domain.QualityPerformance{
		QualityRating: clamp(rating, 0, 100),
		DefectRate:    defectRate,
		ReturnRate:    0.3 * defectRate,
	}
}

func (e *Evaluator) scoreRelationship(metrics domain.SupplierMetrics) domain.RelationshipPerformance {
	score := (metrics.Communication + metrics.Flexibility +
		metrics.ContractCompliance + metrics.FinancialStability) / 4

	return domain.RelationshipPerformance{
		Communication:      metrics.Communication,
		Flexibility:        metrics.Flexibility,
		ContractCompliance: metrics.ContractCompliance,
		FinancialStability: metrics.FinancialStability,
		Score:              clamp(score, 0, 100),
	}
}

func (e *Evaluator) scoreCapacity(metrics domain.SupplierMetrics) domain.CapacityPerformance {
	score := (metrics.Scalability + metrics.FinancialStability) / 2

	return domain.CapacityPerformance{
		Utilization:        metrics.Utilization,
		Scalability:        metrics.Scalability,
		FinancialStability: metrics.FinancialStability,
		Score:              clamp(score, 0, 100),
	}
}

func (e *Evaluator) identifyRisks(
	delivery domain.DeliveryPerformance,
	quality domain.QualityPerformance,
	metrics domain.SupplierMetrics,
) []domain.RiskFactor {
	var risks []domain.RiskFactor

	switch {
	case delivery.OnTimeRate < e.cfg.OnTimeHighRisk:
		risks = append(risks, domain.RiskFactor{
			Category:    "delivery",
			Severity:    domain.RiskHigh,
			Description: fmt.Sprintf("on-time delivery rate %.0f%% is severely below target", delivery.OnTimeRate*100),
		})
	case delivery.OnTimeRate < e.cfg.OnTimeMediumRisk:
		risks = append(risks, domain.RiskFactor{
			Category:    "delivery",
			Severity:    domain.RiskMedium,
			Description: fmt.Sprintf("on-time delivery rate %.0f%% is below target", delivery.OnTimeRate*100),
		})
	}

	switch {
	case quality.DefectRate > e.cfg.DefectHighRisk:
		risks = append(risks, domain.RiskFactor{
			Category:    "quality",
			Severity:    domain.RiskHigh,
			Description: fmt.Sprintf("defect rate %.1f%% exceeds acceptable bounds", quality.DefectRate),
		})
	case quality.DefectRate > e.cfg.DefectMediumRisk:
		risks = append(risks, domain.RiskFactor{
			Category:    "quality",
			Severity:    domain.RiskMedium,
			Description: fmt.Sprintf("defect rate %.1f%% is elevated", quality.DefectRate),
		})
	}

	if metrics.FinancialStability > 0 && metrics.FinancialStability < e.cfg.FinancialStabilityRisk {
		risks = append(risks, domain.RiskFactor{
			Category:    "financial",
			Severity:    domain.RiskMedium,
			Description: fmt.Sprintf("financial stability rating %.0f is weak", metrics.FinancialStability),
		})
	}

	if metrics.Utilization > e.cfg.UtilizationRisk {
		risks = append(risks, domain.RiskFactor{
			Category:    "capacity",
			Severity:    domain.RiskMedium,
			Description: fmt.Sprintf("capacity utilization %.0f%% leaves little surge headroom", metrics.Utilization),
		})
	}

	return risks
}

// recommend maps score and risk posture to a sourcing stance. Any high or
// critical risk forces monitor or avoid regardless of score.
func (e *Evaluator) recommend(score float64, risks []domain.RiskFactor) domain.SupplierRecommendation {
	for _, risk := range risks {
		if risk.Severity == domain.RiskHigh || risk.Severity == domain.RiskCritical {
			if score > e.cfg.MonitorScoreMin {
				return domain.SupplierMonitor
			}
			return domain.SupplierAvoid
		}
	}

	switch {
	case score >= e.cfg.PreferredScoreMin:
		return domain.SupplierPreferred
	case score >= e.cfg.AcceptableScoreMin:
		return domain.SupplierAcceptable
	default:
		return domain.SupplierMonitor
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sumSquares := 0.0
	for _, v := range values {
		sumSquares += (v - m) * (v - m)
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
	"github.com/partsignal/replenish-core/internal/narrative"
	"github.com/partsignal/replenish-core/internal/reorder"
)

// Options customizes a single synthesis request.
type Options struct {
	// UrgencyOverride bypasses the threshold mapping entirely when set.
	UrgencyOverride domain.UrgencyLevel
	// PreferredSupplier is honored unless that supplier is avoid-rated.
	PreferredSupplier string
	// BudgetCeiling clips the recommended quantity when > 0.
	BudgetCeiling float64
}

// Input bundles the upstream component outputs for one part.
type Input struct {
	Part    domain.Part
	Pattern domain.DemandPattern
	Calc    domain.ReorderPointCalculation
	Ranking domain.SupplierRanking
	Options Options
}

// Synthesizer combines reorder, demand and supplier outputs into a final
// replenishment recommendation.
type Synthesizer struct {
	cfg       config.UrgencyConfig
	reorder   config.ReorderConfig
	explainer narrative.Explainer
	fallback  *narrative.DeterministicExplainer
	logger    *logrus.Logger
}

// NewSynthesizer creates a recommendation synthesizer. The explainer is an
// optional enhancement; when nil, the deterministic fallback serves every
// request.
func NewSynthesizer(
	cfg config.UrgencyConfig,
	reorderCfg config.ReorderConfig,
	narrativeCfg config.NarrativeConfig,
	explainer narrative.Explainer,
	logger *logrus.Logger,
) *Synthesizer {
	return &Synthesizer{
		cfg:       cfg,
		reorder:   reorderCfg,
		explainer: explainer,
		fallback:  narrative.NewDeterministicExplainer(narrativeCfg.FallbackConfidence),
		logger:    logger,
	}
}

// Synthesize produces a replenishment recommendation. It never fails due to
// the narrative collaborator being unavailable.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input, now time.Time) (domain.ReplenishmentRecommendation, error) {
	selected, err := s.selectSupplier(in.Ranking, in.Options.PreferredSupplier)
	if err != nil {
		return domain.ReplenishmentRecommendation{}, err
	}

	urgency := s.classifyUrgency(in, selected, now)
	cost := s.optimizeCost(in, selected)
	orderDate := s.suggestOrderDate(urgency, in.Calc.LeadTimeDays, now)

	result := s.explain(ctx, in, selected, urgency, cost)

	confidence := s.aggregateConfidence(in.Calc.Confidence, in.Pattern.Forecastability.Score,
		in.Ranking.Confidence, result.Confidence)

	rec := domain.ReplenishmentRecommendation{
		ID:                  uuid.New().String(),
		PartNumber:          in.Part.PartNumber,
		RecommendedQuantity: cost.RecommendedQuantity,
		SuggestedOrderDate:  orderDate,
		PreferredSupplier:   selected.SupplierID,
		EstimatedCost:       cost.TotalCost,
		Urgency:             urgency,
		Cost:                cost,
		Reasoning:           result.Reasoning,
		ReasoningSource:     result.Source,
		Confidence:          confidence,
		Status:              domain.StatusPending,
		CreatedAt:           now,
	}

	s.logger.WithFields(logrus.Fields{
		"part_number": rec.PartNumber,
		"quantity":    rec.RecommendedQuantity,
		"supplier":    rec.PreferredSupplier,
		"urgency":     rec.Urgency.Level,
		"confidence":  rec.Confidence,
		"reasoning":   rec.ReasoningSource,
	}).Info("replenishment recommendation synthesized")

	return rec, nil
}

// selectSupplier honors an explicit preference unless avoid-rated, then the
// ranking's recommended pick, then the best-ranked supplier.
func (s *Synthesizer) selectSupplier(ranking domain.SupplierRanking, preferred string) (domain.SupplierPerformanceAnalysis, error) {
	if len(ranking.Suppliers) == 0 {
		return domain.SupplierPerformanceAnalysis{}, &domain.NoSuppliersFoundError{PartNumber: ranking.PartNumber}
	}

	if preferred != "" {
		for _, a := range ranking.Suppliers {
			if a.SupplierID == preferred && a.Recommendation != domain.SupplierAvoid {
				return a, nil
			}
		}
	}

	if ranking.RecommendedSupplier != "" {
		for _, a := range ranking.Suppliers {
			if a.SupplierID == ranking.RecommendedSupplier {
				return a, nil
			}
		}
	}

	return ranking.Suppliers[0], nil
}

// timeToStockoutDays estimates runway at current mean consumption. A part
// with no measured demand reports the capped maximum.
func timeToStockoutDays(currentStock, meanMonthlyDemand float64) float64 {
	daily := meanMonthlyDemand / 30.0
	if daily <= 0 {
		return 9999
	}
	return math.Min(currentStock/daily, 9999)
}

func (s *Synthesizer) classifyUrgency(in Input, selected domain.SupplierPerformanceAnalysis, now time.Time) domain.UrgencyClassification {
	stockout := timeToStockoutDays(in.Part.CurrentStock, in.Pattern.Variability.MeanDemand)

	factors := []domain.UrgencyFactor{
		s.stockLevelFactor(in.Part.CurrentStock, in.Calc.ReorderPoint),
		s.demandSpikeFactor(in.Pattern, now),
		s.leadTimeFactor(in.Calc.LeadTimeDays),
		s.seasonalityFactor(in.Pattern.Seasonality, now),
		s.supplierRiskFactor(selected),
	}

	score := 0.0
	for _, f := range factors {
		score += f.Weight * f.Score
	}

	// Stockout before a replenishment order can arrive is critical no
	// matter what the weighted factors say.
	if stockout < in.Calc.LeadTimeDays && score < s.cfg.CriticalScoreMin {
		score = s.cfg.CriticalScoreMin
	}

	level := domain.UrgencyLow
	switch {
	case score >= s.cfg.CriticalScoreMin:
		level = domain.UrgencyCritical
	case score >= s.cfg.HighScoreMin:
		level = domain.UrgencyHigh
	case score >= s.cfg.MediumScoreMin:
		level = domain.UrgencyMedium
	}

	overridden := false
	if in.Options.UrgencyOverride != "" {
		level = in.Options.UrgencyOverride
		overridden = true
	}

	return domain.UrgencyClassification{
		Level:              level,
		Score:              score,
		Factors:            factors,
		TimeToStockoutDays: stockout,
		BusinessImpact:     businessImpact(level),
		Overridden:         overridden,
	}
}

func (s *Synthesizer) stockLevelFactor(currentStock, reorderPoint float64) domain.UrgencyFactor {
	score := 25.0
	detail := "stock comfortably above reorder point"

	if reorderPoint > 0 {
		ratio := currentStock / reorderPoint
		switch {
		case ratio <= 0.5:
			score, detail = 100, "stock below half the reorder point"
		case ratio <= 0.8:
			score, detail = 75, "stock approaching the reorder point"
		case ratio <= 1.0:
			score, detail = 50, "stock at the reorder point"
		}
	}

	return domain.UrgencyFactor{
		Name:   "stock_level",
		Weight: s.cfg.StockLevelWeight,
		Score:  score,
		Detail: detail,
	}
}

func (s *Synthesizer) demandSpikeFactor(pattern domain.DemandPattern, now time.Time) domain.UrgencyFactor {
	score := 25.0
	detail := "demand steady"

	if pattern.Trend.Direction == domain.TrendIncreasing {
		score, detail = 60, "demand trending upward"
	}

	cutoff := now.AddDate(0, 0, -s.cfg.RecentAnomalyWindowDays)
	for _, anomaly := range pattern.Anomalies {
		if anomaly.Date.After(cutoff) {
			score, detail = 75, "recent demand anomaly detected"
			break
		}
	}

	return domain.UrgencyFactor{
		Name:   "demand_spike",
		Weight: s.cfg.DemandSpikeWeight,
		Score:  score,
		Detail: detail,
	}
}

func (s *Synthesizer) leadTimeFactor(leadTimeDays float64) domain.UrgencyFactor {
	return domain.UrgencyFactor{
		Name:   "lead_time",
		Weight: s.cfg.LeadTimeWeight,
		Score:  math.Min(100, leadTimeDays/30.0*50),
		Detail: fmt.Sprintf("supplier lead time %.0f days", leadTimeDays),
	}
}

func (s *Synthesizer) seasonalityFactor(seasonality domain.SeasonalityAnalysis, now time.Time) domain.UrgencyFactor {
	score := 25.0
	detail := "no seasonal pressure"

	if seasonality.Detected {
		month := now.Month()
		for _, peak := range seasonality.PeakPeriods {
			if month == peak {
				score, detail = 70, "current month is a seasonal peak"
			}
		}
		for _, low := range seasonality.LowPeriods {
			if month == low {
				score, detail = 10, "current month is a seasonal low"
			}
		}
	}

	return domain.UrgencyFactor{
		Name:   "seasonality",
		Weight: s.cfg.SeasonalityWeight,
		Score:  score,
		Detail: detail,
	}
}

func (s *Synthesizer) supplierRiskFactor(selected domain.SupplierPerformanceAnalysis) domain.UrgencyFactor {
	return domain.UrgencyFactor{
		Name:   "supplier_risk",
		Weight: s.cfg.SupplierRiskWeight,
		Score:  math.Min(100, float64(len(selected.RiskFactors))*25),
		Detail: fmt.Sprintf("%d supplier risk factors identified", len(selected.RiskFactors)),
	}
}

func businessImpact(level domain.UrgencyLevel) string {
	switch level {
	case domain.UrgencyCritical:
		return "imminent stockout; production or service interruption likely"
	case domain.UrgencyHigh:
		return "stockout risk within the replenishment lead time"
	case domain.UrgencyMedium:
		return "reorder soon to preserve the safety buffer"
	default:
		return "routine replenishment; no near-term risk"
	}
}

// optimizeCost sizes the order, compares against EOQ, applies the budget
// ceiling, and lays out supplier alternatives.
func (s *Synthesizer) optimizeCost(in Input, selected domain.SupplierPerformanceAnalysis) domain.CostOptimization {
	base := math.Max(in.Calc.ReorderPoint-in.Part.CurrentStock, 0)
	quantity := base

	annualDemand := in.Pattern.Variability.MeanDemand * 12
	carryingPerUnit := in.Part.UnitCost * s.reorder.CarryingRate
	eoq := reorder.EOQ(annualDemand, s.reorder.OrderingCost, carryingPerUnit)

	var savings []string
	if base > 0 && eoq.Quantity > s.cfg.EOQRaiseRatio*base {
		raised := math.Min(eoq.Quantity, s.cfg.EOQRaiseQuantityCap*base)
		savings = append(savings, fmt.Sprintf(
			"raising order from %.0f to %.0f units approaches the economic order quantity", base, raised))
		quantity = raised
	}

	unitCost := selected.Cost.AverageUnitCost
	if unitCost == 0 {
		unitCost = in.Part.UnitCost
	}

	if in.Options.BudgetCeiling > 0 && unitCost > 0 {
		maxAffordable := math.Floor(in.Options.BudgetCeiling / unitCost)
		if quantity > maxAffordable {
			savings = append(savings, fmt.Sprintf(
				"quantity clipped from %.0f to %.0f units by the budget ceiling", quantity, maxAffordable))
			quantity = maxAffordable
		}
	}

	alternatives := s.buildAlternatives(in.Ranking, selected)
	for _, alt := range alternatives {
		if alt.UnitCost > 0 && unitCost > 0 && alt.UnitCost < unitCost {
			savings = append(savings, fmt.Sprintf(
				"supplier %s offers a lower unit cost (%.2f vs %.2f)", alt.SupplierID, alt.UnitCost, unitCost))
			break
		}
	}

	return domain.CostOptimization{
		RecommendedQuantity:  quantity,
		UnitCost:             unitCost,
		TotalCost:            quantity * unitCost,
		EconomicOrderQty:     eoq.Quantity,
		Alternatives:         alternatives,
		SavingsOpportunities: savings,
	}
}

// buildAlternatives lists up to three top-ranked suppliers other than the
// selected one, with lead-time and quality trade-off notes.
func (s *Synthesizer) buildAlternatives(ranking domain.SupplierRanking, selected domain.SupplierPerformanceAnalysis) []domain.SupplierAlternative {
	var alternatives []domain.SupplierAlternative
	for _, a := range ranking.Suppliers {
		if a.SupplierID == selected.SupplierID {
			continue
		}
		if len(alternatives) == 3 {
			break
		}

		tradeOff := "comparable performance"
		switch {
		case a.Delivery.AverageLeadTimeDays > selected.Delivery.AverageLeadTimeDays:
			tradeOff = fmt.Sprintf("longer lead time (%.0f vs %.0f days)",
				a.Delivery.AverageLeadTimeDays, selected.Delivery.AverageLeadTimeDays)
		case a.Quality.QualityRating < selected.Quality.QualityRating:
			tradeOff = fmt.Sprintf("lower quality rating (%.0f vs %.0f)",
				a.Quality.QualityRating, selected.Quality.QualityRating)
		case a.Cost.AverageUnitCost < selected.Cost.AverageUnitCost:
			tradeOff = "cheaper but lower overall score"
		}

		alternatives = append(alternatives, domain.SupplierAlternative{
			SupplierID:   a.SupplierID,
			UnitCost:     a.Cost.AverageUnitCost,
			LeadTimeDays: a.Delivery.AverageLeadTimeDays,
			OverallScore: a.OverallScore,
			TradeOff:     tradeOff,
		})
	}
	return alternatives
}

// suggestOrderDate places critical orders today; otherwise the stockout
// horizon minus lead time and an urgency-dependent buffer.
func (s *Synthesizer) suggestOrderDate(urgency domain.UrgencyClassification, leadTimeDays float64, now time.Time) time.Time {
	if urgency.Level == domain.UrgencyCritical {
		return now
	}

	buffer := s.cfg.LowBufferDays
	switch urgency.Level {
	case domain.UrgencyHigh:
		buffer = s.cfg.HighBufferDays
	case domain.UrgencyMedium:
		buffer = s.cfg.MediumBufferDays
	}

	days := urgency.TimeToStockoutDays - leadTimeDays - float64(buffer)
	if days < 0 {
		days = 0
	}
	return now.AddDate(0, 0, int(days))
}

// explain attempts the configured explainer and falls back to deterministic
// reasoning on any failure. A recommendation never fails here.
func (s *Synthesizer) explain(
	ctx context.Context,
	in Input,
	selected domain.SupplierPerformanceAnalysis,
	urgency domain.UrgencyClassification,
	cost domain.CostOptimization,
) narrative.Result {
	ec := narrative.ExplainContext{
		PartNumber:         in.Part.PartNumber,
		CurrentStock:       in.Part.CurrentStock,
		ReorderPoint:       in.Calc.ReorderPoint,
		SafetyStock:        in.Calc.SafetyStock,
		MeanMonthlyDemand:  in.Pattern.Variability.MeanDemand,
		TrendDirection:     in.Pattern.Trend.Direction,
		UrgencyLevel:       urgency.Level,
		UrgencyScore:       urgency.Score,
		TimeToStockoutDays: urgency.TimeToStockoutDays,
		SupplierID:         selected.SupplierID,
		SupplierScore:      selected.OverallScore,
		Quantity:           cost.RecommendedQuantity,
		TotalCost:          cost.TotalCost,
	}
	for _, risk := range selected.RiskFactors {
		ec.RiskFactors = append(ec.RiskFactors, risk.Description)
	}

	if s.explainer != nil {
		result, err := s.explainer.Explain(ctx, ec)
		if err == nil {
			return result
		}
		s.logger.WithError(err).WithField("part_number", in.Part.PartNumber).
			Warn("narrative explainer failed, using deterministic reasoning")
	}

	result, _ := s.fallback.Explain(ctx, ec)
	return result
}

// aggregateConfidence blends component confidences. The weights sum above
// one on purpose; the cap is the invariant.
func (s *Synthesizer) aggregateConfidence(reorderConf, forecastability, supplierConf, reasoningConf float64) float64 {
	confidence := s.cfg.BaseConfidence +
		s.cfg.ReorderConfidenceWeight*reorderConf +
		s.cfg.ForecastabilityWeight*forecastability +
		s.cfg.SupplierConfidenceWeight*supplierConf +
		s.cfg.ReasoningConfidenceWeight*reasoningConf

	return math.Max(0, math.Min(confidence, s.cfg.MaxConfidence))
}

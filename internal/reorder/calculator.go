package reorder

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
)

// Calculator derives safety stock and reorder points from a demand pattern
// and supplier lead-time metrics.
type Calculator struct {
	cfg    config.ReorderConfig
	logger *logrus.Logger
}

// NewCalculator creates a reorder point calculator.
func NewCalculator(cfg config.ReorderConfig, logger *logrus.Logger) *Calculator {
	return &Calculator{cfg: cfg, logger: logger}
}

// Options customizes a single calculation.
type Options struct {
	// TargetServiceLevel overrides the criticality-derived service level
	// when > 0.
	TargetServiceLevel float64
	// OrderHistorySize is the number of purchase records available; it
	// feeds the confidence heuristic.
	OrderHistorySize int
}

// Calculate computes safety stock and reorder point. A pattern with zero
// mean demand degrades to a minimal fixed-method result built from the
// part's configured safety stock.
func (c *Calculator) Calculate(
	pattern domain.DemandPattern,
	part domain.Part,
	metrics domain.SupplierMetrics,
	opts Options,
	now time.Time,
) domain.ReorderPointCalculation {
	if pattern.IsEmpty() || pattern.Variability.MeanDemand == 0 {
		return c.minimalCalculation(part, now)
	}

	meanDemand := pattern.Variability.MeanDemand
	serviceLevel := c.serviceLevelFor(part.Criticality)
	if opts.TargetServiceLevel > 0 {
		serviceLevel = opts.TargetServiceLevel
	}

	zScore := c.lookupZScore(serviceLevel)

	leadTime := metrics.AverageLeadTimeDays
	if leadTime <= 0 {
		leadTime = part.LeadTimeDays
	}

	// Poor on-time performance inflates the assumed lead-time spread.
	leadTimeCV := c.cfg.LeadTimeCVBase - c.cfg.LeadTimeCVOnTimeFactor*metrics.OnTimeDeliveryRate
	leadTimeStdDev := leadTime * leadTimeCV

	demandVariance := pattern.Variability.StdDev * pattern.Variability.StdDev
	leadTimeVariance := leadTimeStdDev * leadTimeStdDev

	combinedStdDev := math.Sqrt(leadTime*demandVariance + meanDemand*meanDemand*leadTimeVariance)
	safetyStock := zScore * combinedStdDev
	leadTimeDemand := (meanDemand / 30.0) * leadTime
	reorderPoint := math.Ceil(leadTimeDemand + safetyStock)

	method, confidence := c.resolveMethod(pattern, metrics, opts)

	calc := domain.ReorderPointCalculation{
		PartNumber:          part.PartNumber,
		ReorderPoint:        reorderPoint,
		SafetyStock:         safetyStock,
		AverageDemand:       meanDemand,
		LeadTimeDays:        leadTime,
		TargetServiceLevel:  serviceLevel,
		DemandVariability:   pattern.Variability.CoefficientOfVariation,
		LeadTimeVariability: leadTimeCV,
		Method:              method,
		Confidence:          confidence,
		CalculatedAt:        now,
		Reasoning: []string{
			fmt.Sprintf("Target service level %.2f mapped to Z-score %.2f", serviceLevel, zScore),
			fmt.Sprintf("Lead time %.1f days with estimated variability CV %.2f", leadTime, leadTimeCV),
			fmt.Sprintf("Combined demand/lead-time deviation %.2f yields safety stock %.2f", combinedStdDev, safetyStock),
			fmt.Sprintf("Lead-time demand %.2f plus safety stock rounds up to reorder point %.0f", leadTimeDemand, reorderPoint),
			fmt.Sprintf("Method %s selected with confidence %.2f", method, confidence),
		},
	}

	c.logger.WithFields(logrus.Fields{
		"part_number":   part.PartNumber,
		"reorder_point": calc.ReorderPoint,
		"safety_stock":  calc.SafetyStock,
		"service_level": serviceLevel,
		"method":        method,
		"confidence":    confidence,
	}).Debug("reorder point calculated")

	return calc
}

// minimalCalculation is the data-absence fallback: fixed method, the part's
// configured safety stock (at least the configured minimum), low confidence.
func (c *Calculator) minimalCalculation(part domain.Part, now time.Time) domain.ReorderPointCalculation {
	safetyStock := math.Max(part.SafetyStock, c.cfg.MinimalSafetyStock)

	return domain.ReorderPointCalculation{
		PartNumber:         part.PartNumber,
		ReorderPoint:       safetyStock,
		SafetyStock:        safetyStock,
		LeadTimeDays:       part.LeadTimeDays,
		TargetServiceLevel: c.serviceLevelFor(part.Criticality),
		Method:             domain.MethodFixed,
		Confidence:         c.cfg.MinimalResultConfidence,
		CalculatedAt:       now,
		Reasoning: []string{
			"No usable demand history; falling back to configured safety stock",
			fmt.Sprintf("Fixed reorder point %.0f from part master data", safetyStock),
		},
	}
}

func (c *Calculator) serviceLevelFor(criticality domain.Criticality) float64 {
	switch criticality {
	case domain.CriticalityCritical:
		return c.cfg.ServiceLevelCritical
	case domain.CriticalityHigh:
		return c.cfg.ServiceLevelHigh
	case domain.CriticalityMedium:
		return c.cfg.ServiceLevelMedium
	default:
		return c.cfg.ServiceLevelLow
	}
}

// lookupZScore maps a service level to a standard-normal quantile. Values
// between tabulated levels round up to the next entry; no interpolation.
func (c *Calculator) lookupZScore(serviceLevel float64) float64 {
	for _, entry := range c.cfg.ZTable {
		if serviceLevel <= entry.ServiceLevel {
			return entry.ZScore
		}
	}
	if len(c.cfg.ZTable) > 0 {
		return c.cfg.ZTable[len(c.cfg.ZTable)-1].ZScore
	}
	return 0
}

// resolveMethod applies the confidence heuristic and picks the calculation
// method label.
func (c *Calculator) resolveMethod(
	pattern domain.DemandPattern,
	metrics domain.SupplierMetrics,
	opts Options,
) (domain.CalculationMethod, float64) {
	confidence := c.cfg.BaseConfidence
	confidence += c.cfg.ForecastabilityWeight * pattern.Forecastability.Score
	if metrics.OnTimeDeliveryRate > c.cfg.OnTimeBonusThreshold {
		confidence += c.cfg.OnTimeBonus
	}
	if opts.OrderHistorySize > c.cfg.HistoryBonusThreshold {
		confidence += c.cfg.HistoryBonus
	}

	var method domain.CalculationMethod
	switch {
	case confidence > c.cfg.StatisticalConfidenceMin && pattern.Variability.Classification != domain.VariabilityHigh:
		method = domain.MethodStatistical
	case pattern.Trend.Direction != domain.TrendStable:
		method = domain.MethodDynamic
	default:
		method = domain.MethodFixed
		confidence = math.Min(confidence, c.cfg.FixedMethodConfidenceCap)
	}

	return method, math.Min(confidence, c.cfg.MaxConfidence)
}

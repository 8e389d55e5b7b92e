package reorder

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
)

func newTestCalculator() *Calculator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewCalculator(config.Default().Reorder, logger)
}

func steadyPattern(meanDemand, stdDev float64) domain.DemandPattern {
	return domain.DemandPattern{
		PartNumber: "PN-200",
		Kind:       domain.PatternPopulated,
		Trend:      domain.TrendAnalysis{Direction: domain.TrendStable},
		Variability: domain.VariabilityAnalysis{
			MeanDemand:             meanDemand,
			StdDev:                 stdDev,
			CoefficientOfVariation: stdDev / meanDemand,
			Classification:         domain.VariabilityLow,
		},
		Forecastability: domain.ForecastabilityScore{Score: 0.8},
	}
}

func testPart() domain.Part {
	return domain.Part{
		PartNumber:   "PN-200",
		CurrentStock: 50,
		SafetyStock:  5,
		LeadTimeDays: 14,
		UnitCost:     12.5,
		Criticality:  domain.CriticalityMedium,
	}
}

func testMetrics() domain.SupplierMetrics {
	return domain.SupplierMetrics{
		SupplierID:          "SUP-1",
		AverageLeadTimeDays: 14,
		OnTimeDeliveryRate:  0.9,
	}
}

func TestSafetyStockMonotonicInServiceLevel(t *testing.T) {
	c := newTestCalculator()
	now := time.Now()
	pattern := steadyPattern(30, 6)

	previous := -1.0
	for _, level := range []float64{0.85, 0.90, 0.95, 0.99} {
		calc := c.Calculate(pattern, testPart(), testMetrics(), Options{TargetServiceLevel: level}, now)
		if calc.SafetyStock <= previous {
			t.Errorf("safety stock at level %.2f (%.2f) should exceed level below (%.2f)",
				level, calc.SafetyStock, previous)
		}
		if calc.ReorderPoint < calc.SafetyStock {
			t.Errorf("reorder point %.2f below safety stock %.2f at level %.2f",
				calc.ReorderPoint, calc.SafetyStock, level)
		}
		previous = calc.SafetyStock
	}
}

func TestCalculateEmptyPatternFallsBack(t *testing.T) {
	c := newTestCalculator()
	now := time.Now()

	empty := domain.DemandPattern{Kind: domain.PatternEmpty}
	calc := c.Calculate(empty, testPart(), testMetrics(), Options{}, now)

	if calc.Method != domain.MethodFixed {
		t.Errorf("expected fixed method, got %s", calc.Method)
	}
	if calc.SafetyStock != 5 {
		t.Errorf("expected part's configured safety stock 5, got %f", calc.SafetyStock)
	}
	if calc.Confidence != 0.3 {
		t.Errorf("expected minimal confidence 0.3, got %f", calc.Confidence)
	}
}

func TestCalculateMinimalSafetyStockFloor(t *testing.T) {
	c := newTestCalculator()

	part := testPart()
	part.SafetyStock = 0

	calc := c.Calculate(domain.DemandPattern{Kind: domain.PatternEmpty}, part, testMetrics(), Options{}, time.Now())
	if calc.SafetyStock != 1 {
		t.Errorf("expected safety stock floor of 1, got %f", calc.SafetyStock)
	}
}

func TestLookupZScoreRoundsUp(t *testing.T) {
	c := newTestCalculator()

	tests := []struct {
		serviceLevel float64
		want         float64
	}{
		{0.50, 0.00},
		{0.85, 1.04},
		{0.93, 1.65}, // between 0.90 and 0.95, rounds up
		{0.95, 1.65},
		{0.99, 2.33},
		{0.9999, 3.09}, // above every entry, clamps to the last
	}

	for _, tt := range tests {
		if got := c.lookupZScore(tt.serviceLevel); got != tt.want {
			t.Errorf("lookupZScore(%.4f) = %.2f, want %.2f", tt.serviceLevel, got, tt.want)
		}
	}
}

func TestServiceLevelPerCriticality(t *testing.T) {
	c := newTestCalculator()

	tests := []struct {
		criticality domain.Criticality
		want        float64
	}{
		{domain.CriticalityCritical, 0.99},
		{domain.CriticalityHigh, 0.95},
		{domain.CriticalityMedium, 0.90},
		{domain.CriticalityLow, 0.85},
	}

	for _, tt := range tests {
		if got := c.serviceLevelFor(tt.criticality); got != tt.want {
			t.Errorf("serviceLevelFor(%s) = %.2f, want %.2f", tt.criticality, got, tt.want)
		}
	}
}

func TestResolveMethodConfidenceCap(t *testing.T) {
	c := newTestCalculator()

	pattern := steadyPattern(30, 6)
	pattern.Forecastability.Score = 1.0
	metrics := testMetrics()
	metrics.OnTimeDeliveryRate = 0.95

	_, confidence := c.resolveMethod(pattern, metrics, Options{OrderHistorySize: 50})
	if confidence > 0.95 {
		t.Errorf("confidence %.2f exceeds the cap", confidence)
	}
}

func TestResolveMethodDynamicOnTrend(t *testing.T) {
	c := newTestCalculator()

	pattern := steadyPattern(30, 25)
	pattern.Variability.Classification = domain.VariabilityHigh
	pattern.Trend.Direction = domain.TrendIncreasing
	pattern.Forecastability.Score = 0.2

	method, _ := c.resolveMethod(pattern, domain.SupplierMetrics{OnTimeDeliveryRate: 0.5}, Options{})
	if method != domain.MethodDynamic {
		t.Errorf("trending high-variability series should use dynamic method, got %s", method)
	}
}

func TestEOQ(t *testing.T) {
	result := EOQ(144, 75, 12.5)
	if result.Quantity != 42 {
		t.Errorf("EOQ(144, 75, 12.5) = %.0f, want 42", result.Quantity)
	}
	if result.TotalAnnualCost <= 0 {
		t.Errorf("expected positive total annual cost, got %f", result.TotalAnnualCost)
	}
}

func TestEOQDegenerate(t *testing.T) {
	for _, result := range []domain.EOQResult{
		EOQ(0, 75, 12.5),
		EOQ(144, 75, 0),
	} {
		if result.Quantity != 1 {
			t.Errorf("degenerate EOQ quantity = %.0f, want 1", result.Quantity)
		}
		if result.TotalAnnualCost != 0 {
			t.Errorf("degenerate EOQ cost = %.2f, want 0", result.TotalAnnualCost)
		}
	}
}

func TestValidateFlagsReorderBelowSafetyStock(t *testing.T) {
	c := newTestCalculator()

	calc := domain.ReorderPointCalculation{
		PartNumber:   "PN-200",
		ReorderPoint: 3,
		SafetyStock:  10,
		Confidence:   0.8,
	}

	issues := c.Validate(calc, testPart())
	if !HasBlockingIssue(issues) {
		t.Fatal("reorder point below safety stock should be a blocking issue")
	}
}

func TestValidateWarnings(t *testing.T) {
	c := newTestCalculator()

	part := testPart()
	part.Criticality = domain.CriticalityLow

	calc := domain.ReorderPointCalculation{
		PartNumber:         "PN-200",
		ReorderPoint:       200,
		SafetyStock:        20,
		AverageDemand:      10, // reorder point is 20 months of demand
		TargetServiceLevel: 0.999,
		Confidence:         0.2,
	}

	issues := c.Validate(calc, part)
	if HasBlockingIssue(issues) {
		t.Fatal("warnings alone should not block")
	}
	if len(issues) != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", len(issues), issues)
	}
}

func TestOptimizeServiceLevel(t *testing.T) {
	c := newTestCalculator()

	opt := c.OptimizeServiceLevel(steadyPattern(30, 6), testPart(), testMetrics(), 40)

	if len(opt.Evaluations) != 4 {
		t.Fatalf("expected 4 candidate evaluations, got %d", len(opt.Evaluations))
	}

	found := false
	for _, eval := range opt.Evaluations {
		if eval.ServiceLevel == opt.OptimalServiceLevel {
			found = true
		}
		if eval.TotalCost != eval.AnnualCarryingCost+eval.AnnualStockoutCost {
			t.Errorf("total cost at level %.2f does not sum its components", eval.ServiceLevel)
		}
	}
	if !found {
		t.Error("optimal service level is not one of the candidates")
	}
}

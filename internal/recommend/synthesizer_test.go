package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
	"github.com/partsignal/replenish-core/internal/narrative"
)

func newTestSynthesizer(explainer narrative.Explainer) *Synthesizer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := config.Default()
	return NewSynthesizer(cfg.Urgency, cfg.Reorder, cfg.Narrative, explainer, logger)
}

// failingExplainer always errors, forcing the deterministic fallback.
type failingExplainer struct{}

func (failingExplainer) Explain(context.Context, narrative.ExplainContext) (narrative.Result, error) {
	return narrative.Result{}, errors.New("service unavailable")
}

func baseInput() Input {
	return Input{
		Part: domain.Part{
			PartNumber:   "PN-400",
			CurrentStock: 100,
			LeadTimeDays: 14,
			UnitCost:     12.5,
			Criticality:  domain.CriticalityMedium,
		},
		Pattern: domain.DemandPattern{
			PartNumber: "PN-400",
			Kind:       domain.PatternPopulated,
			Trend:      domain.TrendAnalysis{Direction: domain.TrendStable},
			Variability: domain.VariabilityAnalysis{
				MeanDemand:     30,
				StdDev:         5,
				Classification: domain.VariabilityLow,
			},
			Forecastability: domain.ForecastabilityScore{Score: 0.8},
		},
		Calc: domain.ReorderPointCalculation{
			PartNumber:   "PN-400",
			ReorderPoint: 60,
			SafetyStock:  20,
			LeadTimeDays: 14,
			Confidence:   0.8,
		},
		Ranking: domain.SupplierRanking{
			PartNumber: "PN-400",
			Suppliers: []domain.SupplierPerformanceAnalysis{
				{
					SupplierID:     "SUP-1",
					OverallScore:   85,
					Ranking:        1,
					Recommendation: domain.SupplierPreferred,
					Cost:           domain.CostPerformance{AverageUnitCost: 12},
					Delivery:       domain.DeliveryPerformance{AverageLeadTimeDays: 14},
				},
				{
					SupplierID:     "SUP-2",
					OverallScore:   70,
					Ranking:        2,
					Recommendation: domain.SupplierAcceptable,
					Cost:           domain.CostPerformance{AverageUnitCost: 11},
					Delivery:       domain.DeliveryPerformance{AverageLeadTimeDays: 21},
				},
			},
			RecommendedSupplier: "SUP-1",
			Confidence:          0.9,
		},
	}
}

func TestSynthesizeLowStockIsUrgent(t *testing.T) {
	s := newTestSynthesizer(nil)
	now := time.Now()

	in := baseInput()
	in.Part.CurrentStock = 6 // a tenth of the reorder point

	rec, err := s.Synthesize(context.Background(), in, now)
	require.NoError(t, err)

	assert.Contains(t, []domain.UrgencyLevel{domain.UrgencyHigh, domain.UrgencyCritical}, rec.Urgency.Level)
	assert.Equal(t, "SUP-1", rec.PreferredSupplier)
	assert.Greater(t, rec.RecommendedQuantity, 0.0)
	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.NotEmpty(t, rec.ID)
}

func TestSynthesizeConfidenceCap(t *testing.T) {
	s := newTestSynthesizer(failingExplainer{})
	now := time.Now()

	rec, err := s.Synthesize(context.Background(), baseInput(), now)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, rec.Confidence, 0.0)
	assert.LessOrEqual(t, rec.Confidence, 0.95)
	assert.Equal(t, "deterministic", rec.ReasoningSource)
	assert.NotEmpty(t, rec.Reasoning)
}

func TestSynthesizeUrgencyOverride(t *testing.T) {
	s := newTestSynthesizer(nil)

	in := baseInput()
	in.Options.UrgencyOverride = domain.UrgencyCritical

	rec, err := s.Synthesize(context.Background(), in, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.UrgencyCritical, rec.Urgency.Level)
	assert.True(t, rec.Urgency.Overridden)
	// Critical orders are placed immediately.
	assert.WithinDuration(t, time.Now(), rec.SuggestedOrderDate, time.Minute)
}

func TestSynthesizePreferredSupplierHonored(t *testing.T) {
	s := newTestSynthesizer(nil)

	in := baseInput()
	in.Options.PreferredSupplier = "SUP-2"

	rec, err := s.Synthesize(context.Background(), in, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SUP-2", rec.PreferredSupplier)
}

func TestSynthesizeAvoidSupplierIgnored(t *testing.T) {
	s := newTestSynthesizer(nil)

	in := baseInput()
	in.Ranking.Suppliers[1].Recommendation = domain.SupplierAvoid
	in.Options.PreferredSupplier = "SUP-2"

	rec, err := s.Synthesize(context.Background(), in, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SUP-1", rec.PreferredSupplier, "avoid-rated preference falls through to the ranking pick")
}

func TestSynthesizeBudgetCeiling(t *testing.T) {
	s := newTestSynthesizer(nil)

	in := baseInput()
	in.Part.CurrentStock = 0
	in.Options.BudgetCeiling = 120 // 10 units at unit cost 12

	rec, err := s.Synthesize(context.Background(), in, time.Now())
	require.NoError(t, err)

	assert.LessOrEqual(t, rec.RecommendedQuantity, 10.0)
	assert.LessOrEqual(t, rec.EstimatedCost, 120.0)
	assert.NotEmpty(t, rec.Cost.SavingsOpportunities)
}

func TestSynthesizeNoSuppliers(t *testing.T) {
	s := newTestSynthesizer(nil)

	in := baseInput()
	in.Ranking.Suppliers = nil

	_, err := s.Synthesize(context.Background(), in, time.Now())
	var notFound *domain.NoSuppliersFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestTimeToStockoutDays(t *testing.T) {
	assert.Equal(t, 9999.0, timeToStockoutDays(100, 0), "zero demand caps at the maximum")
	assert.InDelta(t, 100.0, timeToStockoutDays(100, 30), 1e-9)
	assert.Equal(t, 9999.0, timeToStockoutDays(1e9, 1), "enormous runway caps at the maximum")
}

func TestSynthesizeAlternativesExcludeSelected(t *testing.T) {
	s := newTestSynthesizer(nil)

	rec, err := s.Synthesize(context.Background(), baseInput(), time.Now())
	require.NoError(t, err)

	for _, alt := range rec.Cost.Alternatives {
		assert.NotEqual(t, rec.PreferredSupplier, alt.SupplierID)
	}
}

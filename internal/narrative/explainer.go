package narrative

import (
	"context"
	"fmt"

	"github.com/partsignal/replenish-core/internal/domain"
)

// ExplainContext carries the computed metrics a narrative is built from.
type ExplainContext struct {
	PartNumber         string
	CurrentStock       float64
	ReorderPoint       float64
	SafetyStock        float64
	MeanMonthlyDemand  float64
	TrendDirection     domain.TrendDirection
	UrgencyLevel       domain.UrgencyLevel
	UrgencyScore       float64
	TimeToStockoutDays float64
	SupplierID         string
	SupplierScore      float64
	Quantity           float64
	TotalCost          float64
	RiskFactors        []string
}

// Result is a narrative justification for a recommendation.
type Result struct {
	Recommendation string
	Confidence     float64
	Reasoning      []string
	RiskAssessment []string
	Alternatives   []string
	KeyInsights    []string
	Source         string
}

// Explainer produces human-readable reasoning for a recommendation. The
// engine never depends on an Explainer succeeding; callers fall back to the
// deterministic implementation on any error.
type Explainer interface {
	Explain(ctx context.Context, ec ExplainContext) (Result, error)
}

// DeterministicExplainer builds templated reasoning from the computed
// factors. It never fails.
type DeterministicExplainer struct {
	// Confidence reported for deterministic reasoning.
	Confidence float64
}

// NewDeterministicExplainer returns the default rule-based explainer.
func NewDeterministicExplainer(confidence float64) *DeterministicExplainer {
	return &DeterministicExplainer{Confidence: confidence}
}

// Explain renders the computed factors as templated prose.
func (d *DeterministicExplainer) Explain(_ context.Context, ec ExplainContext) (Result, error) {
	reasoning := []string{
		fmt.Sprintf("Current stock of %.0f is measured against a reorder point of %.0f (safety stock %.0f).",
			ec.CurrentStock, ec.ReorderPoint, ec.SafetyStock),
		fmt.Sprintf("Average demand runs %.1f units per month with a %s trend.",
			ec.MeanMonthlyDemand, ec.TrendDirection),
		fmt.Sprintf("Urgency is %s (score %.0f) with an estimated %.0f days to stockout.",
			ec.UrgencyLevel, ec.UrgencyScore, ec.TimeToStockoutDays),
	}

	if ec.SupplierID != "" {
		reasoning = append(reasoning, fmt.Sprintf(
			"Supplier %s (performance score %.1f) is selected for %.0f units at an estimated total of %.2f.",
			ec.SupplierID, ec.SupplierScore, ec.Quantity, ec.TotalCost))
	}

	risks := make([]string, len(ec.RiskFactors))
	copy(risks, ec.RiskFactors)

	return Result{
		Recommendation: fmt.Sprintf("Order %.0f units of %s from %s.", ec.Quantity, ec.PartNumber, ec.SupplierID),
		Confidence:     d.Confidence,
		Reasoning:      reasoning,
		RiskAssessment: risks,
		KeyInsights: []string{
			fmt.Sprintf("Stock covers roughly %.0f days of demand at current consumption.", ec.TimeToStockoutDays),
		},
		Source: "deterministic",
	}, nil
}

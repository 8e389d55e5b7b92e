package reorder

import (
	"math"
	"time"

	"github.com/partsignal/replenish-core/internal/domain"
)

// EOQ computes the economic order quantity. Zero demand or zero carrying
// cost degenerates to a single-unit order with no modeled cost.
func EOQ(annualDemand, orderingCost, carryingCostPerUnit float64) domain.EOQResult {
	if annualDemand <= 0 || carryingCostPerUnit <= 0 {
		return domain.EOQResult{
			Quantity:         1,
			AnnualDemand:     annualDemand,
			OrderingCost:     orderingCost,
			CarryingCostUnit: carryingCostPerUnit,
			TotalAnnualCost:  0,
		}
	}

	quantity := math.Ceil(math.Sqrt(2 * annualDemand * orderingCost / carryingCostPerUnit))

	orderingTotal := (annualDemand / quantity) * orderingCost
	carryingTotal := (quantity / 2) * carryingCostPerUnit

	return domain.EOQResult{
		Quantity:         quantity,
		AnnualDemand:     annualDemand,
		OrderingCost:     orderingCost,
		CarryingCostUnit: carryingCostPerUnit,
		TotalAnnualCost:  orderingTotal + carryingTotal,
	}
}

// OptimizeServiceLevel scans the configured candidate service levels and
// picks the one minimizing annual carrying plus stockout cost.
func (c *Calculator) OptimizeServiceLevel(
	pattern domain.DemandPattern,
	part domain.Part,
	metrics domain.SupplierMetrics,
	stockoutCostPerUnit float64,
) domain.ServiceLevelOptimization {
	evaluations := make([]domain.ServiceLevelEvaluation, 0, len(c.cfg.CandidateServiceLevels))

	meanDemand := pattern.Variability.MeanDemand
	best := domain.ServiceLevelEvaluation{TotalCost: math.Inf(1)}

	for _, level := range c.cfg.CandidateServiceLevels {
		calc := c.Calculate(pattern, part, metrics, Options{TargetServiceLevel: level}, time.Now())

		carrying := (calc.SafetyStock / 2) * part.UnitCost * c.cfg.CarryingRate
		stockout := (1 - level) * meanDemand * 12 * stockoutCostPerUnit

		eval := domain.ServiceLevelEvaluation{
			ServiceLevel:       level,
			SafetyStock:        calc.SafetyStock,
			AnnualCarryingCost: carrying,
			AnnualStockoutCost: stockout,
			TotalCost:          carrying + stockout,
		}
		evaluations = append(evaluations, eval)

		if eval.TotalCost < best.TotalCost {
			best = eval
		}
	}

	return domain.ServiceLevelOptimization{
		OptimalServiceLevel: best.ServiceLevel,
		Evaluations:         evaluations,
	}
}

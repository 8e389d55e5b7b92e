package domain

import "time"

// CalculationMethod records how a reorder point was derived.
type CalculationMethod string

const (
	MethodStatistical CalculationMethod = "statistical"
	MethodFixed       CalculationMethod = "fixed"
	MethodDynamic     CalculationMethod = "dynamic"
)

// ReorderPointCalculation is the output of the safety-stock calculator.
// Invariant: ReorderPoint >= SafetyStock for any accepted calculation;
// the validator flags violations rather than silently correcting them.
type ReorderPointCalculation struct {
	PartNumber          string            `json:"part_number"`
	ReorderPoint        float64           `json:"reorder_point"`
	SafetyStock         float64           `json:"safety_stock"`
	AverageDemand       float64           `json:"average_demand"` // monthly
	LeadTimeDays        float64           `json:"lead_time_days"`
	TargetServiceLevel  float64           `json:"target_service_level"`
	DemandVariability   float64           `json:"demand_variability"`
	LeadTimeVariability float64           `json:"lead_time_variability"`
	Method              CalculationMethod `json:"method"`
	Confidence          float64           `json:"confidence"`
	Reasoning           []string          `json:"reasoning,omitempty"`
	CalculatedAt        time.Time         `json:"calculated_at"`
}

// EOQResult is the output of the economic order quantity helper.
type EOQResult struct {
	Quantity         float64 `json:"quantity"`
	AnnualDemand     float64 `json:"annual_demand"`
	OrderingCost     float64 `json:"ordering_cost"`
	CarryingCostUnit float64 `json:"carrying_cost_unit"`
	TotalAnnualCost  float64 `json:"total_annual_cost"`
}

// IssueSeverity grades a validation finding. Only error severity blocks
// acceptance of a calculation; warning and info are advisory.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// ValidationIssue is one structured finding from a validator.
type ValidationIssue struct {
	Severity IssueSeverity `json:"severity"`
	Field    string        `json:"field"`
	Message  string        `json:"message"`
}

// ServiceLevelEvaluation records the cost trade-off at one candidate level.
type ServiceLevelEvaluation struct {
	ServiceLevel       float64 `json:"service_level"`
	SafetyStock        float64 `json:"safety_stock"`
	AnnualCarryingCost float64 `json:"annual_carrying_cost"`
	AnnualStockoutCost float64 `json:"annual_stockout_cost"`
	TotalCost          float64 `json:"total_cost"`
}

// ServiceLevelOptimization is the result of scanning candidate service levels.
type ServiceLevelOptimization struct {
	OptimalServiceLevel float64                  `json:"optimal_service_level"`
	Evaluations         []ServiceLevelEvaluation `json:"evaluations"`
}

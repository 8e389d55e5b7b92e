package domain

import (
	"fmt"
	"time"
)

// UrgencyLevel classifies how quickly a replenishment order should be placed.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// UrgencyFactor is one weighted contributor to the urgency score.
type UrgencyFactor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"` // 0 to 100
	Detail string  `json:"detail,omitempty"`
}

// UrgencyClassification is the weighted urgency assessment for a part.
type UrgencyClassification struct {
	Level              UrgencyLevel    `json:"level"`
	Score              float64         `json:"score"` // 0 to 100
	Factors            []UrgencyFactor `json:"factors"`
	TimeToStockoutDays float64         `json:"time_to_stockout_days"`
	BusinessImpact     string          `json:"business_impact"`
	Overridden         bool            `json:"overridden,omitempty"`
}

// SupplierAlternative describes a trade-off versus the selected supplier.
type SupplierAlternative struct {
	SupplierID   string  `json:"supplier_id"`
	UnitCost     float64 `json:"unit_cost"`
	LeadTimeDays float64 `json:"lead_time_days"`
	OverallScore float64 `json:"overall_score"`
	TradeOff     string  `json:"trade_off"`
}

// CostOptimization is the quantity and cost outcome of synthesis.
type CostOptimization struct {
	RecommendedQuantity  float64               `json:"recommended_quantity"`
	UnitCost             float64               `json:"unit_cost"`
	TotalCost            float64               `json:"total_cost"`
	EconomicOrderQty     float64               `json:"economic_order_qty"`
	Alternatives         []SupplierAlternative `json:"alternatives,omitempty"`
	SavingsOpportunities []string              `json:"savings_opportunities,omitempty"`
}

// RecommendationStatus is the lifecycle state of a recommendation. The
// engine writes pending; all later transitions belong to the external
// approval collaborator.
type RecommendationStatus string

const (
	StatusPending  RecommendationStatus = "pending"
	StatusApproved RecommendationStatus = "approved"
	StatusRejected RecommendationStatus = "rejected"
	StatusOrdered  RecommendationStatus = "ordered"
)

// ValidTransition reports whether a status change is allowed.
func (s RecommendationStatus) ValidTransition(next RecommendationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusOrdered
	default:
		return false
	}
}

// ReplenishmentRecommendation is the engine's final output for one part.
type ReplenishmentRecommendation struct {
	ID                  string                `json:"id"`
	PartNumber          string                `json:"part_number"`
	RecommendedQuantity float64               `json:"recommended_quantity"`
	SuggestedOrderDate  time.Time             `json:"suggested_order_date"`
	PreferredSupplier   string                `json:"preferred_supplier"`
	EstimatedCost       float64               `json:"estimated_cost"`
	Urgency             UrgencyClassification `json:"urgency"`
	Cost                CostOptimization      `json:"cost"`
	Reasoning           []string              `json:"reasoning"`
	ReasoningSource     string                `json:"reasoning_source"`
	Confidence          float64               `json:"confidence"` // 0 to 0.95
	Status              RecommendationStatus  `json:"status"`
	CreatedAt           time.Time             `json:"created_at"`
}

// InvalidStatusTransitionError indicates an approval-workflow status change
// the lifecycle does not allow.
type InvalidStatusTransitionError struct {
	From RecommendationStatus
	To   RecommendationStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid recommendation status transition from '%s' to '%s'", e.From, e.To)
}

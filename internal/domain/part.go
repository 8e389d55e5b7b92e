package domain

import (
	"fmt"
	"time"
)

// Criticality classifies how damaging a stockout of a part is.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Part holds master data for a spare part. The engine reads this and never
// writes back; only the resulting recommendation record is persisted.
type Part struct {
	PartNumber   string            `json:"part_number"`
	Description  string            `json:"description,omitempty"`
	CurrentStock float64           `json:"current_stock"`
	SafetyStock  float64           `json:"safety_stock"`
	LeadTimeDays float64           `json:"lead_time_days"`
	UnitCost     float64           `json:"unit_cost"`
	Category     string            `json:"category,omitempty"`
	Criticality  Criticality       `json:"criticality"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TransactionKind distinguishes demand records from replenishment records.
type TransactionKind string

const (
	TransactionSale     TransactionKind = "sale"
	TransactionPurchase TransactionKind = "purchase"
)

// Transaction is a normalized historical record produced by the upstream
// normalization collaborator. Immutable once stored.
type Transaction struct {
	PartNumber   string          `json:"part_number"`
	Date         time.Time       `json:"date"`
	Kind         TransactionKind `json:"kind"`
	Quantity     float64         `json:"quantity"`
	UnitPrice    float64         `json:"unit_price"`
	SupplierID   string          `json:"supplier_id,omitempty"`
	CustomerID   string          `json:"customer_id,omitempty"`
	QualityScore float64         `json:"quality_score"` // 0 to 1

	// Delivery tracking, set on purchase records only.
	ExpectedDelivery time.Time `json:"expected_delivery,omitempty"`
	ActualDelivery   time.Time `json:"actual_delivery,omitempty"`
}

// DeliveredOnTime reports whether a purchase arrived by its expected date.
// Records without delivery tracking are treated as on time.
func (t *Transaction) DeliveredOnTime() bool {
	if t.ExpectedDelivery.IsZero() || t.ActualDelivery.IsZero() {
		return true
	}
	return !t.ActualDelivery.After(t.ExpectedDelivery)
}

// LeadTimeDays returns the observed order-to-delivery lead time in days,
// or zero when delivery tracking is absent.
func (t *Transaction) LeadTimeDays() float64 {
	if t.ActualDelivery.IsZero() || t.Date.IsZero() {
		return 0
	}
	return t.ActualDelivery.Sub(t.Date).Hours() / 24.0
}

// SupplierMetrics carries collaborator-sourced supplier inputs: lead-time
// statistics plus relationship and capacity ratings the engine treats as
// given rather than computed.
type SupplierMetrics struct {
	SupplierID          string  `json:"supplier_id"`
	AverageLeadTimeDays float64 `json:"average_lead_time_days"`
	OnTimeDeliveryRate  float64 `json:"on_time_delivery_rate"` // 0 to 1

	Communication      float64 `json:"communication"`       // 0 to 100
	Flexibility        float64 `json:"flexibility"`         // 0 to 100
	ContractCompliance float64 `json:"contract_compliance"` // 0 to 100
	FinancialStability float64 `json:"financial_stability"` // 0 to 100
	Utilization        float64 `json:"utilization"`         // percent
	Scalability        float64 `json:"scalability"`         // 0 to 100
}

// PartNotFoundError indicates a request referenced an unknown part.
type PartNotFoundError struct {
	PartNumber string
}

func (e *PartNotFoundError) Error() string {
	return fmt.Sprintf("part with number '%s' not found", e.PartNumber)
}

// NoSuppliersFoundError indicates no purchase history exists for a part.
type NoSuppliersFoundError struct {
	PartNumber string
}

func (e *NoSuppliersFoundError) Error() string {
	return fmt.Sprintf("no suppliers found for part '%s'", e.PartNumber)
}

// SupplierMetricsNotFoundError indicates metrics are missing for a supplier.
type SupplierMetricsNotFoundError struct {
	SupplierID string
}

func (e *SupplierMetricsNotFoundError) Error() string {
	return fmt.Sprintf("supplier metrics for '%s' not found", e.SupplierID)
}

// RecommendationNotFoundError indicates an unknown recommendation id.
type RecommendationNotFoundError struct {
	ID string
}

func (e *RecommendationNotFoundError) Error() string {
	return fmt.Sprintf("recommendation with ID '%s' not found", e.ID)
}

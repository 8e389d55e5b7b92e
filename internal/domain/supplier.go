package domain

import "time"

// PerformanceTrend labels recent movement of a supplier metric.
type PerformanceTrend string

const (
	TrendImproving PerformanceTrend = "improving"
	TrendDeclining PerformanceTrend = "declining"
	TrendSteady    PerformanceTrend = "steady"
)

// DeliveryPerformance scores a supplier's delivery track record.
type DeliveryPerformance struct {
	OnTimeRate          float64          `json:"on_time_rate"` // 0 to 1
	AverageLeadTimeDays float64          `json:"average_lead_time_days"`
	LeadTimeConsistency float64          `json:"lead_time_consistency"` // 0 to 1
	ReliabilityScore    float64          `json:"reliability_score"`     // 0 to 100
	RecentTrend         PerformanceTrend `json:"recent_trend"`
}

// CostPerformance scores a supplier's pricing.
type CostPerformance struct {
	AverageUnitCost       float64          `json:"average_unit_cost"`
	PriceStability        float64          `json:"price_stability"` // 0 to 1
	RecentTrend           PerformanceTrend `json:"recent_trend"`
	TotalCostOfOwnership  float64          `json:"total_cost_of_ownership"`
	CompetitivenessIndex  float64          `json:"competitiveness_index"` // 100 = at market
	Score                 float64          `json:"score"`                 // 0 to 100
}

// QualityPerformance scores delivered quality.
type QualityPerformance struct {
	QualityRating float64 `json:"quality_rating"` // 0 to 100
	DefectRate    float64 `json:"defect_rate"`    // percent
	ReturnRate    float64 `json:"return_rate"`    // percent
}

// RelationshipPerformance carries collaborator-rated relationship factors.
type RelationshipPerformance struct {
	Communication      float64 `json:"communication"`
	Flexibility        float64 `json:"flexibility"`
	ContractCompliance float64 `json:"contract_compliance"`
	FinancialStability float64 `json:"financial_stability"`
	Score              float64 `json:"score"` // mean of the four factors
}

// CapacityPerformance carries collaborator-rated capacity factors.
type CapacityPerformance struct {
	Utilization        float64 `json:"utilization"`
	Scalability        float64 `json:"scalability"`
	FinancialStability float64 `json:"financial_stability"`
	Score              float64 `json:"score"`
}

// RiskSeverity grades a supplier risk factor.
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "low"
	RiskMedium   RiskSeverity = "medium"
	RiskHigh     RiskSeverity = "high"
	RiskCritical RiskSeverity = "critical"
)

// RiskFactor is one identified supplier risk.
type RiskFactor struct {
	Category    string       `json:"category"`
	Severity    RiskSeverity `json:"severity"`
	Description string       `json:"description"`
}

// SupplierRecommendation is the sourcing stance toward a supplier.
type SupplierRecommendation string

const (
	SupplierPreferred  SupplierRecommendation = "preferred"
	SupplierAcceptable SupplierRecommendation = "acceptable"
	SupplierMonitor    SupplierRecommendation = "monitor"
	SupplierAvoid      SupplierRecommendation = "avoid"
)

// SupplierPerformanceAnalysis is recomputed per evaluation request; it is
// not a long-lived mutable entity inside the engine.
type SupplierPerformanceAnalysis struct {
	SupplierID     string                  `json:"supplier_id"`
	Delivery       DeliveryPerformance     `json:"delivery"`
	Cost           CostPerformance         `json:"cost"`
	Quality        QualityPerformance      `json:"quality"`
	Relationship   RelationshipPerformance `json:"relationship"`
	Capacity       CapacityPerformance     `json:"capacity"`
	OverallScore   float64                 `json:"overall_score"` // 0 to 100
	Ranking        int                     `json:"ranking"`       // assigned after cohort sort
	Recommendation SupplierRecommendation  `json:"recommendation"`
	RiskFactors    []RiskFactor            `json:"risk_factors,omitempty"`
	EvaluatedAt    time.Time               `json:"evaluated_at"`
	SampleSize     int                     `json:"sample_size"`
}

// ValueRange summarizes min/max/average of a market dimension.
type ValueRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// CompetitivePosition labels market strength of the supplier cohort.
type CompetitivePosition string

const (
	MarketStrong   CompetitivePosition = "strong"
	MarketModerate CompetitivePosition = "moderate"
	MarketWeak     CompetitivePosition = "weak"
)

// MarketAnalysis aggregates cohort-level price and lead-time landscape.
type MarketAnalysis struct {
	PriceRange            ValueRange          `json:"price_range"`
	LeadTimeRange         ValueRange          `json:"lead_time_range"`
	CompetitivePosition   CompetitivePosition `json:"competitive_position"`
	SupplierConcentration float64             `json:"supplier_concentration"` // Herfindahl proxy
}

// SupplierRanking is the ranked cohort for one part. Rank 1 is best.
type SupplierRanking struct {
	PartNumber          string                        `json:"part_number"`
	Suppliers           []SupplierPerformanceAnalysis `json:"suppliers"`
	Market              MarketAnalysis                `json:"market"`
	RecommendedSupplier string                        `json:"recommended_supplier"`
	Reasoning           string                        `json:"reasoning"`
	Confidence          float64                       `json:"confidence"`
}

package domain

import "time"

// PatternKind distinguishes a computed pattern from a data-absence default,
// so callers cannot mistake a degraded result for a genuine zero.
type PatternKind string

const (
	PatternPopulated PatternKind = "populated"
	PatternEmpty     PatternKind = "empty"
)

// TrendDirection labels the long-run movement of demand.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendAnalysis summarizes the regression over monthly demand buckets.
type TrendAnalysis struct {
	Direction         TrendDirection `json:"direction"`
	Strength          float64        `json:"strength"`   // 0 to 1
	Confidence        float64        `json:"confidence"` // R squared
	MonthlyGrowthRate float64        `json:"monthly_growth_rate"` // percent
	ChangePoints      []time.Time    `json:"change_points,omitempty"`
}

// SeasonalityAnalysis holds per-month seasonal indices averaging to ~1.0.
type SeasonalityAnalysis struct {
	Detected    bool               `json:"detected"`
	Indices     map[time.Month]float64 `json:"indices,omitempty"`
	Strength    float64            `json:"strength"`
	Confidence  float64            `json:"confidence"`
	PeakPeriods []time.Month       `json:"peak_periods,omitempty"`
	LowPeriods  []time.Month       `json:"low_periods,omitempty"`
}

// VariabilityClass bands the coefficient of variation.
type VariabilityClass string

const (
	VariabilityLow    VariabilityClass = "low"
	VariabilityMedium VariabilityClass = "medium"
	VariabilityHigh   VariabilityClass = "high"
)

// VolatilityTrend compares early-series and late-series variability.
type VolatilityTrend string

const (
	VolatilityIncreasing VolatilityTrend = "increasing"
	VolatilityDecreasing VolatilityTrend = "decreasing"
	VolatilityConsistent VolatilityTrend = "consistent"
)

// VariabilityAnalysis quantifies demand dispersion.
type VariabilityAnalysis struct {
	CoefficientOfVariation float64          `json:"coefficient_of_variation"`
	Classification         VariabilityClass `json:"classification"`
	VolatilityTrend        VolatilityTrend  `json:"volatility_trend"`
	StdDev                 float64          `json:"std_dev"`
	MeanDemand             float64          `json:"mean_demand"`
}

// AnomalyKind labels the direction of an outlier bucket.
type AnomalyKind string

const (
	AnomalySpike AnomalyKind = "spike"
	AnomalyDrop  AnomalyKind = "drop"
)

// AnomalyDetection records one outlier demand bucket.
type AnomalyDetection struct {
	Date      time.Time   `json:"date"`
	Kind      AnomalyKind `json:"kind"`
	Magnitude float64     `json:"magnitude"` // standard deviations from mean
}

// ForecastabilityScore is a composite 0-1 judgment of how reliably the
// series can be forecast, with qualitative notes.
type ForecastabilityScore struct {
	Score           float64  `json:"score"`
	Confidence      float64  `json:"confidence"`
	Challenges      []string `json:"challenges,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// DemandPattern is the full output of demand analysis for one part.
type DemandPattern struct {
	PartNumber      string               `json:"part_number"`
	Kind            PatternKind          `json:"kind"`
	AnalyzedAt      time.Time            `json:"analyzed_at"`
	Trend           TrendAnalysis        `json:"trend"`
	Seasonality     SeasonalityAnalysis  `json:"seasonality"`
	Variability     VariabilityAnalysis  `json:"variability"`
	Anomalies       []AnomalyDetection   `json:"anomalies,omitempty"`
	Forecastability ForecastabilityScore `json:"forecastability"`
}

// IsEmpty reports whether the pattern is a data-absence default.
func (p *DemandPattern) IsEmpty() bool {
	return p.Kind == PatternEmpty
}

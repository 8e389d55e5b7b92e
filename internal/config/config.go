package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates every tunable constant used by the decision engine.
// Components receive the relevant sub-config by value at construction time;
// nothing reads these values through a global.
type Config struct {
	Demand    DemandConfig    `yaml:"demand"`
	Reorder   ReorderConfig   `yaml:"reorder"`
	Supplier  SupplierConfig  `yaml:"supplier"`
	Urgency   UrgencyConfig   `yaml:"urgency"`
	Batch     BatchConfig     `yaml:"batch"`
	Narrative NarrativeConfig `yaml:"narrative"`
}

// DemandConfig holds thresholds for demand pattern analysis.
type DemandConfig struct {
	LookbackMonths        int     `yaml:"lookback_months"`
	MinBuckets            int     `yaml:"min_buckets"`
	StableSlopeRatio      float64 `yaml:"stable_slope_ratio"`
	ChangePointStdDevs    float64 `yaml:"change_point_std_devs"`
	SeasonalityMinBuckets int     `yaml:"seasonality_min_buckets"`
	SeasonalityMinStrength float64 `yaml:"seasonality_min_strength"`
	CVLowMax              float64 `yaml:"cv_low_max"`
	CVMediumMax           float64 `yaml:"cv_medium_max"`
	VolatilityTolerance   float64 `yaml:"volatility_tolerance"`
	AnomalyZThreshold     float64 `yaml:"anomaly_z_threshold"`

	ForecastabilityBase        float64 `yaml:"forecastability_base"`
	TrendConfidenceBonus       float64 `yaml:"trend_confidence_bonus"`
	TrendConfidenceMin         float64 `yaml:"trend_confidence_min"`
	SeasonalityBonus           float64 `yaml:"seasonality_bonus"`
	SeasonalityConfidenceMin   float64 `yaml:"seasonality_confidence_min"`
	LowVariabilityBonus        float64 `yaml:"low_variability_bonus"`
	HighVariabilityPenalty     float64 `yaml:"high_variability_penalty"`
	AnomalyPenaltyPerIncident  float64 `yaml:"anomaly_penalty_per_incident"`
	AnomalyPenaltyMax          float64 `yaml:"anomaly_penalty_max"`
}

// ZTableEntry maps a cumulative service level to its standard-normal quantile.
type ZTableEntry struct {
	ServiceLevel float64 `yaml:"service_level"`
	ZScore       float64 `yaml:"z_score"`
}

// ReorderConfig holds service-level policy and safety-stock parameters.
type ReorderConfig struct {
	// Service level per part criticality.
	ServiceLevelCritical float64 `yaml:"service_level_critical"`
	ServiceLevelHigh     float64 `yaml:"service_level_high"`
	ServiceLevelMedium   float64 `yaml:"service_level_medium"`
	ServiceLevelLow      float64 `yaml:"service_level_low"`

	// Standard-normal lookup, ascending by service level. Targets between
	// tabulated levels round up to the next entry.
	ZTable []ZTableEntry `yaml:"z_table"`

	LeadTimeCVBase         float64 `yaml:"lead_time_cv_base"`
	LeadTimeCVOnTimeFactor float64 `yaml:"lead_time_cv_on_time_factor"`

	BaseConfidence          float64 `yaml:"base_confidence"`
	ForecastabilityWeight   float64 `yaml:"forecastability_weight"`
	OnTimeBonus             float64 `yaml:"on_time_bonus"`
	OnTimeBonusThreshold    float64 `yaml:"on_time_bonus_threshold"`
	HistoryBonus            float64 `yaml:"history_bonus"`
	HistoryBonusThreshold   int     `yaml:"history_bonus_threshold"`
	StatisticalConfidenceMin float64 `yaml:"statistical_confidence_min"`
	FixedMethodConfidenceCap float64 `yaml:"fixed_method_confidence_cap"`
	MaxConfidence           float64 `yaml:"max_confidence"`
	MinimalResultConfidence float64 `yaml:"minimal_result_confidence"`
	MinimalSafetyStock      float64 `yaml:"minimal_safety_stock"`

	// Service-level optimizer.
	CandidateServiceLevels []float64 `yaml:"candidate_service_levels"`
	CarryingRate           float64   `yaml:"carrying_rate"`
	OrderingCost           float64   `yaml:"ordering_cost"`

	// Validator thresholds.
	ReorderPointDemandMultiple float64 `yaml:"reorder_point_demand_multiple"`
	LowConfidenceWarning       float64 `yaml:"low_confidence_warning"`
}

// SupplierConfig holds scoring weights and risk thresholds for supplier evaluation.
type SupplierConfig struct {
	DeliveryWeight     float64 `yaml:"delivery_weight"`
	CostWeight         float64 `yaml:"cost_weight"`
	QualityWeight      float64 `yaml:"quality_weight"`
	RelationshipWeight float64 `yaml:"relationship_weight"`
	CapacityWeight     float64 `yaml:"capacity_weight"`

	OnTimeReliabilityWeight  float64 `yaml:"on_time_reliability_weight"`
	ConsistencyWeight        float64 `yaml:"consistency_weight"`
	TrendChangeThreshold     float64 `yaml:"trend_change_threshold"`
	OverheadMultiplier       float64 `yaml:"overhead_multiplier"`

	OnTimeMediumRisk float64 `yaml:"on_time_medium_risk"`
	OnTimeHighRisk   float64 `yaml:"on_time_high_risk"`
	DefectMediumRisk float64 `yaml:"defect_medium_risk"`
	DefectHighRisk   float64 `yaml:"defect_high_risk"`
	FinancialStabilityRisk float64 `yaml:"financial_stability_risk"`
	UtilizationRisk        float64 `yaml:"utilization_risk"`

	PreferredScoreMin  float64 `yaml:"preferred_score_min"`
	AcceptableScoreMin float64 `yaml:"acceptable_score_min"`
	MonitorScoreMin    float64 `yaml:"monitor_score_min"`

	StrongMarketScoreMin   float64 `yaml:"strong_market_score_min"`
	ModerateMarketScoreMin float64 `yaml:"moderate_market_score_min"`

	PreferredPickConfidence  float64 `yaml:"preferred_pick_confidence"`
	AcceptablePickConfidence float64 `yaml:"acceptable_pick_confidence"`
	FallbackPickConfidence   float64 `yaml:"fallback_pick_confidence"`
}

// UrgencyConfig holds urgency factor weights, level thresholds and order timing.
type UrgencyConfig struct {
	StockLevelWeight   float64 `yaml:"stock_level_weight"`
	DemandSpikeWeight  float64 `yaml:"demand_spike_weight"`
	LeadTimeWeight     float64 `yaml:"lead_time_weight"`
	SeasonalityWeight  float64 `yaml:"seasonality_weight"`
	SupplierRiskWeight float64 `yaml:"supplier_risk_weight"`

	CriticalScoreMin float64 `yaml:"critical_score_min"`
	HighScoreMin     float64 `yaml:"high_score_min"`
	MediumScoreMin   float64 `yaml:"medium_score_min"`

	RecentAnomalyWindowDays int `yaml:"recent_anomaly_window_days"`

	HighBufferDays   int `yaml:"high_buffer_days"`
	MediumBufferDays int `yaml:"medium_buffer_days"`
	LowBufferDays    int `yaml:"low_buffer_days"`

	EOQRaiseRatio    float64 `yaml:"eoq_raise_ratio"`
	EOQRaiseQuantityCap float64 `yaml:"eoq_raise_quantity_cap"`

	BaseConfidence        float64 `yaml:"base_confidence"`
	ReorderConfidenceWeight   float64 `yaml:"reorder_confidence_weight"`
	ForecastabilityWeight     float64 `yaml:"forecastability_weight"`
	SupplierConfidenceWeight  float64 `yaml:"supplier_confidence_weight"`
	ReasoningConfidenceWeight float64 `yaml:"reasoning_confidence_weight"`
	MaxConfidence             float64 `yaml:"max_confidence"`
}

// BatchConfig bounds concurrent external calls during batch generation.
type BatchConfig struct {
	GroupSize  int           `yaml:"group_size"`
	GroupPause time.Duration `yaml:"group_pause"`
}

// NarrativeConfig configures the optional completion-backed explainer.
type NarrativeConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	APIKey             string        `yaml:"-"`
	Timeout            time.Duration `yaml:"timeout"`
	RawTextConfidence  float64       `yaml:"raw_text_confidence"`
	FallbackConfidence float64       `yaml:"fallback_confidence"`
}

// Default returns the engine's baseline tuning.
func Default() Config {
	return Config{
		Demand: DemandConfig{
			LookbackMonths:         24,
			MinBuckets:             3,
			StableSlopeRatio:       0.05,
			ChangePointStdDevs:     1.5,
			SeasonalityMinBuckets:  12,
			SeasonalityMinStrength: 0.1,
			CVLowMax:               0.3,
			CVMediumMax:            0.7,
			VolatilityTolerance:    0.1,
			AnomalyZThreshold:      2.0,

			ForecastabilityBase:       0.5,
			TrendConfidenceBonus:      0.2,
			TrendConfidenceMin:        0.7,
			SeasonalityBonus:          0.2,
			SeasonalityConfidenceMin:  0.6,
			LowVariabilityBonus:       0.2,
			HighVariabilityPenalty:    0.2,
			AnomalyPenaltyPerIncident: 0.05,
			AnomalyPenaltyMax:         0.2,
		},
		Reorder: ReorderConfig{
			ServiceLevelCritical: 0.99,
			ServiceLevelHigh:     0.95,
			ServiceLevelMedium:   0.90,
			ServiceLevelLow:      0.85,
			ZTable: []ZTableEntry{
				{ServiceLevel: 0.50, ZScore: 0.00},
				{ServiceLevel: 0.80, ZScore: 0.84},
				{ServiceLevel: 0.85, ZScore: 1.04},
				{ServiceLevel: 0.90, ZScore: 1.28},
				{ServiceLevel: 0.95, ZScore: 1.65},
				{ServiceLevel: 0.975, ZScore: 1.96},
				{ServiceLevel: 0.99, ZScore: 2.33},
				{ServiceLevel: 0.999, ZScore: 3.09},
			},
			LeadTimeCVBase:         0.5,
			LeadTimeCVOnTimeFactor: 0.4,

			BaseConfidence:           0.5,
			ForecastabilityWeight:    0.3,
			OnTimeBonus:              0.2,
			OnTimeBonusThreshold:     0.8,
			HistoryBonus:             0.1,
			HistoryBonusThreshold:    10,
			StatisticalConfidenceMin: 0.7,
			FixedMethodConfidenceCap: 0.6,
			MaxConfidence:            0.95,
			MinimalResultConfidence:  0.3,
			MinimalSafetyStock:       1,

			CandidateServiceLevels: []float64{0.85, 0.90, 0.95, 0.99},
			CarryingRate:           0.25,
			OrderingCost:           75,

			ReorderPointDemandMultiple: 6,
			LowConfidenceWarning:       0.5,
		},
		Supplier: SupplierConfig{
			DeliveryWeight:     0.25,
			CostWeight:         0.20,
			QualityWeight:      0.25,
			RelationshipWeight: 0.15,
			CapacityWeight:     0.15,

			OnTimeReliabilityWeight: 0.7,
			ConsistencyWeight:       0.3,
			TrendChangeThreshold:    0.05,
			OverheadMultiplier:      1.15,

			OnTimeMediumRisk:       0.80,
			OnTimeHighRisk:         0.60,
			DefectMediumRisk:       3.0,
			DefectHighRisk:         5.0,
			FinancialStabilityRisk: 70,
			UtilizationRisk:        90,

			PreferredScoreMin:  80,
			AcceptableScoreMin: 60,
			MonitorScoreMin:    70,

			StrongMarketScoreMin:   75,
			ModerateMarketScoreMin: 60,

			PreferredPickConfidence:  0.9,
			AcceptablePickConfidence: 0.7,
			FallbackPickConfidence:   0.4,
		},
		Urgency: UrgencyConfig{
			StockLevelWeight:   0.40,
			DemandSpikeWeight:  0.25,
			LeadTimeWeight:     0.20,
			SeasonalityWeight:  0.10,
			SupplierRiskWeight: 0.05,

			CriticalScoreMin: 80,
			HighScoreMin:     60,
			MediumScoreMin:   40,

			RecentAnomalyWindowDays: 90,

			HighBufferDays:   5,
			MediumBufferDays: 10,
			LowBufferDays:    15,

			EOQRaiseRatio:       1.5,
			EOQRaiseQuantityCap: 2.0,

			BaseConfidence:            0.5,
			ReorderConfidenceWeight:   0.3,
			ForecastabilityWeight:     0.2,
			SupplierConfidenceWeight:  0.2,
			ReasoningConfidenceWeight: 0.3,
			MaxConfidence:             0.95,
		},
		Batch: BatchConfig{
			GroupSize:  5,
			GroupPause: 250 * time.Millisecond,
		},
		Narrative: NarrativeConfig{
			BaseURL:            "https://api.openai.com/v1",
			Model:              "gpt-4o-mini",
			Timeout:            20 * time.Second,
			RawTextConfidence:  0.7,
			FallbackConfidence: 0.6,
		},
	}
}

// Load reads a YAML tuning file and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

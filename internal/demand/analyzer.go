package demand

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
)

const noHistoryChallenge = "No historical data available"

// Analyzer turns historical sale transactions into a DemandPattern.
// All thresholds come from the injected config so they can be tuned and
// tested independently of the algorithms.
type Analyzer struct {
	cfg    config.DemandConfig
	logger *logrus.Logger
}

// NewAnalyzer creates a demand pattern analyzer.
func NewAnalyzer(cfg config.DemandConfig, logger *logrus.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, logger: logger}
}

// bucket is one month of aggregated demand.
type bucket struct {
	month time.Time // first day of the month
	value float64
}

// Analyze aggregates sale records into monthly buckets and derives trend,
// seasonality, variability, anomalies and forecastability. Only records of
// kind sale inside the lookback window count as demand.
func (a *Analyzer) Analyze(partNumber string, records []domain.Transaction, now time.Time) domain.DemandPattern {
	buckets := a.monthlyBuckets(records, now)

	if len(buckets) == 0 {
		a.logger.WithField("part_number", partNumber).Debug("no sale history, returning empty pattern")
		return a.emptyPattern(partNumber, now)
	}

	values := make([]float64, len(buckets))
	for i, b := range buckets {
		values[i] = b.value
	}

	meanDemand := mean(values)
	if meanDemand == 0 {
		return a.emptyPattern(partNumber, now)
	}

	pattern := domain.DemandPattern{
		PartNumber: partNumber,
		Kind:       domain.PatternPopulated,
		AnalyzedAt: now,
	}

	if len(buckets) < a.cfg.MinBuckets {
		pattern.Trend = domain.TrendAnalysis{Direction: domain.TrendStable}
		pattern.Variability = a.analyzeVariability(values)
		pattern.Forecastability = a.scoreForecastability(pattern.Trend, pattern.Seasonality, pattern.Variability, nil, len(buckets))
		pattern.Forecastability.Challenges = append(pattern.Forecastability.Challenges, "Insufficient history for trend analysis")
		return pattern
	}

	pattern.Trend = a.analyzeTrend(buckets, values, meanDemand)
	pattern.Seasonality = a.analyzeSeasonality(buckets, meanDemand)
	pattern.Variability = a.analyzeVariability(values)
	pattern.Anomalies = a.detectAnomalies(buckets, values)
	pattern.Forecastability = a.scoreForecastability(pattern.Trend, pattern.Seasonality, pattern.Variability, pattern.Anomalies, len(buckets))

	a.logger.WithFields(logrus.Fields{
		"part_number":     partNumber,
		"buckets":         len(buckets),
		"mean_demand":     meanDemand,
		"trend":           pattern.Trend.Direction,
		"seasonal":        pattern.Seasonality.Detected,
		"variability":     pattern.Variability.Classification,
		"anomalies":       len(pattern.Anomalies),
		"forecastability": pattern.Forecastability.Score,
	}).Debug("demand pattern analyzed")

	return pattern
}

// monthlyBuckets aggregates sale quantities per calendar month inside the
// lookback window, sorted chronologically.
func (a *Analyzer) monthlyBuckets(records []domain.Transaction, now time.Time) []bucket {
	cutoff := now.AddDate(0, -a.cfg.LookbackMonths, 0)

	totals := make(map[time.Time]float64)
	for _, rec := range records {
		if rec.Kind != domain.TransactionSale {
			continue
		}
		if rec.Date.Before(cutoff) || rec.Date.After(now) {
			continue
		}
		month := time.Date(rec.Date.Year(), rec.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		totals[month] += rec.Quantity
	}

	buckets := make([]bucket, 0, len(totals))
	for month, total := range totals {
		buckets = append(buckets, bucket{month: month, value: total})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].month.Before(buckets[j].month) })
	return buckets
}

func (a *Analyzer) emptyPattern(partNumber string, now time.Time) domain.DemandPattern {
	return domain.DemandPattern{
		PartNumber: partNumber,
		Kind:       domain.PatternEmpty,
		AnalyzedAt: now,
		Trend:      domain.TrendAnalysis{Direction: domain.TrendStable},
		Variability: domain.VariabilityAnalysis{
			Classification:  domain.VariabilityLow,
			VolatilityTrend: domain.VolatilityConsistent,
		},
		Forecastability: domain.ForecastabilityScore{
			Score:      0,
			Confidence: 0,
			Challenges: []string{noHistoryChallenge},
			Recommendations: []string{
				"Collect transaction history before relying on statistical reordering",
			},
		},
	}
}

// analyzeTrend fits an ordinary least-squares line over bucket index vs
// quantity and locates change points by sliding-window mean comparison.
func (a *Analyzer) analyzeTrend(buckets []bucket, values []float64, meanDemand float64) domain.TrendAnalysis {
	slope, rSquared := linearRegression(values)

	direction := domain.TrendStable
	if math.Abs(slope) >= a.cfg.StableSlopeRatio*meanDemand {
		if slope > 0 {
			direction = domain.TrendIncreasing
		} else {
			direction = domain.TrendDecreasing
		}
	}

	trend := domain.TrendAnalysis{
		Direction:         direction,
		Strength:          math.Min(math.Abs(slope)/meanDemand, 1),
		Confidence:        rSquared,
		MonthlyGrowthRate: slope / meanDemand * 100,
	}

	trend.ChangePoints = a.findChangePoints(buckets, values)
	return trend
}

// findChangePoints flags indices where adjacent sliding-window means differ
// by more than the configured multiple of the overall standard deviation.
func (a *Analyzer) findChangePoints(buckets []bucket, values []float64) []time.Time {
	n := len(values)
	window := n / 3
	if window > 3 {
		window = 3
	}
	if window < 1 {
		return nil
	}

	overallStd := stdDev(values)
	if overallStd == 0 {
		return nil
	}

	var points []time.Time
	for i := window; i+window <= n; i++ {
		before := mean(values[i-window : i])
		after := mean(values[i : i+window])
		if math.Abs(after-before) > a.cfg.ChangePointStdDevs*overallStd {
			points = append(points, buckets[i].month)
		}
	}
	return points
}

// analyzeSeasonality derives per-calendar-month indices from value/mean
// ratios averaged across years. Requires at least a year of buckets.
func (a *Analyzer) analyzeSeasonality(buckets []bucket, meanDemand float64) domain.SeasonalityAnalysis {
	if len(buckets) < a.cfg.SeasonalityMinBuckets {
		return domain.SeasonalityAnalysis{}
	}

	ratios := make(map[time.Month][]float64)
	for _, b := range buckets {
		ratios[b.month.Month()] = append(ratios[b.month.Month()], b.value/meanDemand)
	}

	indices := make(map[time.Month]float64, len(ratios))
	indexValues := make([]float64, 0, len(ratios))
	for month, rs := range ratios {
		idx := mean(rs)
		indices[month] = idx
		indexValues = append(indexValues, idx)
	}

	strength := math.Min(stdDev(indexValues), 1)
	detected := strength > a.cfg.SeasonalityMinStrength

	analysis := domain.SeasonalityAnalysis{
		Detected:   detected,
		Indices:    indices,
		Strength:   strength,
		Confidence: math.Min(float64(len(buckets))/float64(2*a.cfg.SeasonalityMinBuckets), 1),
	}

	if detected {
		analysis.PeakPeriods = topMonths(indices, 3, true)
		analysis.LowPeriods = topMonths(indices, 3, false)
	}
	return analysis
}

func (a *Analyzer) analyzeVariability(values []float64) domain.VariabilityAnalysis {
	meanDemand := mean(values)
	std := stdDev(values)

	cv := 0.0
	if meanDemand > 0 {
		cv = std / meanDemand
	}

	classification := domain.VariabilityHigh
	switch {
	case cv < a.cfg.CVLowMax:
		classification = domain.VariabilityLow
	case cv < a.cfg.CVMediumMax:
		classification = domain.VariabilityMedium
	}

	return domain.VariabilityAnalysis{
		CoefficientOfVariation: cv,
		Classification:         classification,
		VolatilityTrend:        a.volatilityTrend(values),
		StdDev:                 std,
		MeanDemand:             meanDemand,
	}
}

// volatilityTrend compares the coefficient of variation of the first and
// second halves of the series.
func (a *Analyzer) volatilityTrend(values []float64) domain.VolatilityTrend {
	if len(values) < 4 {
		return domain.VolatilityConsistent
	}

	half := len(values) / 2
	firstCV := coefficientOfVariation(values[:half])
	secondCV := coefficientOfVariation(values[half:])

	switch {
	case secondCV > firstCV+a.cfg.VolatilityTolerance:
		return domain.VolatilityIncreasing
	case secondCV < firstCV-a.cfg.VolatilityTolerance:
		return domain.VolatilityDecreasing
	default:
		return domain.VolatilityConsistent
	}
}

func (a *Analyzer) detectAnomalies(buckets []bucket, values []float64) []domain.AnomalyDetection {
	meanDemand := mean(values)
	std := stdDev(values)
	if std == 0 {
		return nil
	}

	var anomalies []domain.AnomalyDetection
	for i, v := range values {
		z := (v - meanDemand) / std
		if math.Abs(z) <= a.cfg.AnomalyZThreshold {
			continue
		}

		kind := domain.AnomalyDrop
		if v > meanDemand {
			kind = domain.AnomalySpike
		}
		anomalies = append(anomalies, domain.AnomalyDetection{
			Date:      buckets[i].month,
			Kind:      kind,
			Magnitude: math.Abs(z),
		})
	}
	return anomalies
}

// scoreForecastability combines trend, seasonality, variability and anomaly
// signals into a 0-1 composite with banded confidence.
func (a *Analyzer) scoreForecastability(
	trend domain.TrendAnalysis,
	seasonality domain.SeasonalityAnalysis,
	variability domain.VariabilityAnalysis,
	anomalies []domain.AnomalyDetection,
	bucketCount int,
) domain.ForecastabilityScore {
	score := a.cfg.ForecastabilityBase
	var challenges, recommendations []string

	if trend.Confidence > a.cfg.TrendConfidenceMin {
		score += a.cfg.TrendConfidenceBonus
	} else {
		challenges = append(challenges, "Weak trend signal in demand history")
	}

	if seasonality.Detected && seasonality.Confidence > a.cfg.SeasonalityConfidenceMin {
		score += a.cfg.SeasonalityBonus
		recommendations = append(recommendations, "Align order timing with seasonal peaks")
	}

	switch variability.Classification {
	case domain.VariabilityLow:
		score += a.cfg.LowVariabilityBonus
	case domain.VariabilityHigh:
		score -= a.cfg.HighVariabilityPenalty
		challenges = append(challenges, "High demand variability")
		recommendations = append(recommendations, "Carry additional safety stock to absorb variability")
	}

	if len(anomalies) > 0 {
		penalty := math.Min(float64(len(anomalies))*a.cfg.AnomalyPenaltyPerIncident, a.cfg.AnomalyPenaltyMax)
		score -= penalty
		challenges = append(challenges, "Demand anomalies present in history")
	}

	score = clamp(score, 0, 1)

	confidence := 0.4
	switch {
	case score > 0.7:
		confidence = 0.9
	case score > 0.4:
		confidence = 0.7
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Demand series suitable for statistical reordering")
	}

	return domain.ForecastabilityScore{
		Score:           score,
		Confidence:      confidence,
		Challenges:      challenges,
		Recommendations: recommendations,
	}
}

// topMonths returns the n highest (or lowest) seasonal index months.
func topMonths(indices map[time.Month]float64, n int, highest bool) []time.Month {
	months := make([]time.Month, 0, len(indices))
	for m := range indices {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		if highest {
			return indices[months[i]] > indices[months[j]]
		}
		return indices[months[i]] < indices[months[j]]
	})
	if len(months) > n {
		months = months[:n]
	}
	return months
}

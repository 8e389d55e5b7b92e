package demand

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/domain"
)

func newTestAnalyzer() *Analyzer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAnalyzer(config.Default().Demand, logger)
}

// saleSeries builds one sale transaction per month, most recent last.
func saleSeries(partNumber string, now time.Time, quantities []float64) []domain.Transaction {
	records := make([]domain.Transaction, 0, len(quantities))
	for i, q := range quantities {
		monthsAgo := len(quantities) - 1 - i
		records = append(records, domain.Transaction{
			PartNumber: partNumber,
			Date:       now.AddDate(0, -monthsAgo, 0),
			Kind:       domain.TransactionSale,
			Quantity:   q,
		})
	}
	return records
}

func TestAnalyzeIncreasingTrend(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	pattern := a.Analyze("PN-100", saleSeries("PN-100", now, []float64{10, 15, 20}), now)

	if pattern.Kind != domain.PatternPopulated {
		t.Fatalf("expected populated pattern, got %s", pattern.Kind)
	}
	if pattern.Trend.Direction != domain.TrendIncreasing {
		t.Errorf("expected increasing trend, got %s", pattern.Trend.Direction)
	}
	if pattern.Variability.MeanDemand != 15 {
		t.Errorf("expected mean demand 15, got %f", pattern.Variability.MeanDemand)
	}
	if pattern.Trend.Confidence <= 0.9 {
		t.Errorf("perfectly linear series should have near-perfect fit, got %f", pattern.Trend.Confidence)
	}
}

func TestAnalyzeNoHistory(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Now()

	pattern := a.Analyze("PN-101", nil, now)

	if !pattern.IsEmpty() {
		t.Fatal("expected empty pattern for zero records")
	}
	if pattern.Forecastability.Score != 0 {
		t.Errorf("expected forecastability 0, got %f", pattern.Forecastability.Score)
	}

	found := false
	for _, c := range pattern.Forecastability.Challenges {
		if c == "No historical data available" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected no-history challenge, got %v", pattern.Forecastability.Challenges)
	}
}

func TestAnalyzeIgnoresPurchases(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Now()

	records := []domain.Transaction{
		{PartNumber: "PN-102", Date: now.AddDate(0, -1, 0), Kind: domain.TransactionPurchase, Quantity: 500},
	}

	pattern := a.Analyze("PN-102", records, now)
	if !pattern.IsEmpty() {
		t.Fatal("purchase records alone should not produce a demand pattern")
	}
}

func TestAnalyzeSparseHistory(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	pattern := a.Analyze("PN-103", saleSeries("PN-103", now, []float64{8, 12}), now)

	if pattern.IsEmpty() {
		t.Fatal("two buckets should still yield a populated pattern")
	}
	if pattern.Trend.Direction != domain.TrendStable {
		t.Errorf("sparse history defaults to stable trend, got %s", pattern.Trend.Direction)
	}

	found := false
	for _, c := range pattern.Forecastability.Challenges {
		if c == "Insufficient history for trend analysis" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected sparse-history challenge, got %v", pattern.Forecastability.Challenges)
	}
}

func TestDetectAnomalySpike(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	quantities := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 100}
	pattern := a.Analyze("PN-104", saleSeries("PN-104", now, quantities), now)

	if len(pattern.Anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d", len(pattern.Anomalies))
	}
	if pattern.Anomalies[0].Kind != domain.AnomalySpike {
		t.Errorf("expected a spike, got %s", pattern.Anomalies[0].Kind)
	}
	if pattern.Anomalies[0].Magnitude <= a.cfg.AnomalyZThreshold {
		t.Errorf("anomaly magnitude %f should exceed the threshold", pattern.Anomalies[0].Magnitude)
	}
}

func TestAnalyzeRespectsLookbackWindow(t *testing.T) {
	a := newTestAnalyzer()
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	records := []domain.Transaction{
		{PartNumber: "PN-105", Date: now.AddDate(0, -36, 0), Kind: domain.TransactionSale, Quantity: 999},
		{PartNumber: "PN-105", Date: now.AddDate(0, -1, 0), Kind: domain.TransactionSale, Quantity: 10},
	}

	pattern := a.Analyze("PN-105", records, now)
	if pattern.Variability.MeanDemand != 10 {
		t.Errorf("record outside the lookback window should not count, mean %f", pattern.Variability.MeanDemand)
	}
}

func TestLinearRegression(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		wantSlope float64
		wantR2    float64
	}{
		{"perfect line", []float64{10, 15, 20}, 5, 1},
		{"constant series", []float64{7, 7, 7, 7}, 0, 0},
		{"single point", []float64{42}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slope, r2 := linearRegression(tt.values)
			if diff := slope - tt.wantSlope; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("slope = %f, want %f", slope, tt.wantSlope)
			}
			if diff := r2 - tt.wantR2; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("r2 = %f, want %f", r2, tt.wantR2)
			}
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	if cv := coefficientOfVariation([]float64{10, 10, 10}); cv != 0 {
		t.Errorf("constant series should have zero CV, got %f", cv)
	}
	if cv := coefficientOfVariation(nil); cv != 0 {
		t.Errorf("empty series should have zero CV, got %f", cv)
	}
}

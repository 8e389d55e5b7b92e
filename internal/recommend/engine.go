package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/demand"
	"github.com/partsignal/replenish-core/internal/domain"
	"github.com/partsignal/replenish-core/internal/events"
	"github.com/partsignal/replenish-core/internal/reorder"
	"github.com/partsignal/replenish-core/internal/repository"
	"github.com/partsignal/replenish-core/internal/supplier"
)

// Engine orchestrates the full decision pipeline for a part: demand
// analysis and supplier ranking run concurrently, then the reorder
// calculation feeds synthesis, and the persisted recommendation is
// announced on the event bus.
type Engine struct {
	repo        repository.Repository
	analyzer    *demand.Analyzer
	calculator  *reorder.Calculator
	evaluator   *supplier.Evaluator
	synthesizer *Synthesizer
	bus         *events.Bus
	batch       config.BatchConfig
	logger      *logrus.Logger
}

// NewEngine wires the pipeline components together.
func NewEngine(
	repo repository.Repository,
	analyzer *demand.Analyzer,
	calculator *reorder.Calculator,
	evaluator *supplier.Evaluator,
	synthesizer *Synthesizer,
	bus *events.Bus,
	batch config.BatchConfig,
	logger *logrus.Logger,
) *Engine {
	return &Engine{
		repo:        repo,
		analyzer:    analyzer,
		calculator:  calculator,
		evaluator:   evaluator,
		synthesizer: synthesizer,
		bus:         bus,
		batch:       batch,
		logger:      logger,
	}
}

// CalculationRejectedError indicates the reorder validator found a blocking
// issue, so no recommendation was produced.
type CalculationRejectedError struct {
	PartNumber string
	Issues     []domain.ValidationIssue
}

func (e *CalculationRejectedError) Error() string {
	return fmt.Sprintf("reorder calculation for part '%s' rejected with %d validation issues",
		e.PartNumber, len(e.Issues))
}

// Recommend runs the full pipeline for one part and persists the result.
func (e *Engine) Recommend(ctx context.Context, partNumber string, opts Options) (domain.ReplenishmentRecommendation, error) {
	part, err := e.repo.GetPart(ctx, partNumber)
	if err != nil {
		return domain.ReplenishmentRecommendation{}, err
	}

	now := time.Now()

	var (
		wg         sync.WaitGroup
		pattern    domain.DemandPattern
		patternErr error
		ranking    domain.SupplierRanking
		rankingErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		pattern, patternErr = e.analyzeDemand(ctx, partNumber, now)
	}()
	go func() {
		defer wg.Done()
		ranking, rankingErr = e.rankSuppliers(ctx, partNumber, now)
	}()
	wg.Wait()

	if patternErr != nil {
		return domain.ReplenishmentRecommendation{}, patternErr
	}
	if rankingErr != nil {
		return domain.ReplenishmentRecommendation{}, rankingErr
	}

	metrics, historySize := e.metricsForSupplier(ctx, ranking)

	calc := e.calculator.Calculate(pattern, *part, metrics, reorder.Options{
		OrderHistorySize: historySize,
	}, now)

	issues := e.calculator.Validate(calc, *part)
	if reorder.HasBlockingIssue(issues) {
		e.logger.WithFields(logrus.Fields{
			"part_number": partNumber,
			"issues":      len(issues),
		}).Error("reorder calculation rejected by validation")
		return domain.ReplenishmentRecommendation{}, &CalculationRejectedError{PartNumber: partNumber, Issues: issues}
	}
	for _, issue := range issues {
		e.logger.WithFields(logrus.Fields{
			"part_number": partNumber,
			"severity":    issue.Severity,
			"field":       issue.Field,
		}).Warn(issue.Message)
	}

	rec, err := e.synthesizer.Synthesize(ctx, Input{
		Part:    *part,
		Pattern: pattern,
		Calc:    calc,
		Ranking: ranking,
		Options: opts,
	}, now)
	if err != nil {
		return domain.ReplenishmentRecommendation{}, err
	}

	if err := e.repo.SaveRecommendation(ctx, &rec); err != nil {
		return domain.ReplenishmentRecommendation{}, fmt.Errorf("failed to save recommendation: %w", err)
	}

	e.bus.PublishRecommendationCreated(ctx, events.RecommendationCreated{
		RecommendationID: rec.ID,
		PartNumber:       rec.PartNumber,
		Urgency:          rec.Urgency.Level,
		Quantity:         rec.RecommendedQuantity,
		CreatedAt:        rec.CreatedAt,
	})

	return rec, nil
}

func (e *Engine) analyzeDemand(ctx context.Context, partNumber string, now time.Time) (domain.DemandPattern, error) {
	sales, err := e.repo.TransactionsByPart(ctx, partNumber, domain.TransactionSale)
	if err != nil {
		return domain.DemandPattern{}, fmt.Errorf("failed to load sales history: %w", err)
	}
	return e.analyzer.Analyze(partNumber, sales, now), nil
}

// rankSuppliers builds the cohort from the part's purchase history. Suppliers
// without stored metrics participate with neutral defaults rather than being
// excluded.
func (e *Engine) rankSuppliers(ctx context.Context, partNumber string, now time.Time) (domain.SupplierRanking, error) {
	purchases, err := e.repo.TransactionsByPart(ctx, partNumber, domain.TransactionPurchase)
	if err != nil {
		return domain.SupplierRanking{}, fmt.Errorf("failed to load purchase history: %w", err)
	}

	supplierIDs := repository.SuppliersForPart(purchases)
	if len(supplierIDs) == 0 {
		return domain.SupplierRanking{}, &domain.NoSuppliersFoundError{PartNumber: partNumber}
	}

	cohort := make([]supplier.CohortMember, 0, len(supplierIDs))
	for _, id := range supplierIDs {
		history, err := e.repo.TransactionsBySupplier(ctx, id)
		if err != nil {
			return domain.SupplierRanking{}, fmt.Errorf("failed to load history for supplier %s: %w", id, err)
		}

		metrics := defaultSupplierMetrics(id)
		if stored, err := e.repo.GetSupplierMetrics(ctx, id); err == nil {
			metrics = *stored
		} else {
			e.logger.WithField("supplier_id", id).Debug("no stored metrics, using neutral defaults")
		}

		cohort = append(cohort, supplier.CohortMember{
			SupplierID: id,
			Purchases:  history,
			Metrics:    metrics,
		})
	}

	return e.evaluator.Rank(partNumber, cohort, now)
}

// metricsForSupplier resolves the metrics and history size of the ranking's
// recommended supplier for the reorder calculation.
func (e *Engine) metricsForSupplier(ctx context.Context, ranking domain.SupplierRanking) (domain.SupplierMetrics, int) {
	id := ranking.RecommendedSupplier
	if id == "" && len(ranking.Suppliers) > 0 {
		id = ranking.Suppliers[0].SupplierID
	}

	historySize := 0
	for _, a := range ranking.Suppliers {
		if a.SupplierID == id {
			historySize = a.SampleSize
			break
		}
	}

	if stored, err := e.repo.GetSupplierMetrics(ctx, id); err == nil {
		return *stored, historySize
	}
	return defaultSupplierMetrics(id), historySize
}

// defaultSupplierMetrics is the neutral stand-in when the collaborator has
// not supplied ratings: average lead time and midpoint scores.
func defaultSupplierMetrics(supplierID string) domain.SupplierMetrics {
	return domain.SupplierMetrics{
		SupplierID:          supplierID,
		AverageLeadTimeDays: 14,
		OnTimeDeliveryRate:  0.8,
		Communication:       50,
		Flexibility:         50,
		ContractCompliance:  50,
		FinancialStability:  50,
		Utilization:         50,
		Scalability:         50,
	}
}

// BatchItem is the outcome for one part in a batch run.
type BatchItem struct {
	PartNumber     string                             `json:"part_number"`
	Recommendation *domain.ReplenishmentRecommendation `json:"recommendation,omitempty"`
	Error          string                             `json:"error,omitempty"`
}

// BatchResult summarizes a batch run. One part's failure never aborts the
// others.
type BatchResult struct {
	SessionID string      `json:"session_id"`
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// RecommendBatch processes parts in fixed-size groups with a pause between
// groups, bounding the load placed on the narrative collaborator. Parts
// within a group run concurrently.
func (e *Engine) RecommendBatch(ctx context.Context, partNumbers []string, opts Options) BatchResult {
	session := NewSession()
	result := BatchResult{
		SessionID: session.ID,
		Items:     make([]BatchItem, len(partNumbers)),
	}

	groupSize := e.batch.GroupSize
	if groupSize <= 0 {
		groupSize = 1
	}

	for start := 0; start < len(partNumbers); start += groupSize {
		end := start + groupSize
		if end > len(partNumbers) {
			end = len(partNumbers)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()

				partNumber := partNumbers[idx]
				rec, err := e.Recommend(ctx, partNumber, opts)
				if err != nil {
					e.logger.WithError(err).WithFields(logrus.Fields{
						"session_id":  session.ID,
						"part_number": partNumber,
					}).Warn("batch item failed")
					result.Items[idx] = BatchItem{PartNumber: partNumber, Error: err.Error()}
					return
				}

				session.Set(partNumber, rec.ID)
				result.Items[idx] = BatchItem{PartNumber: partNumber, Recommendation: &rec}
			}(i)
		}
		wg.Wait()

		if end < len(partNumbers) && e.batch.GroupPause > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(partNumbers); i++ {
					result.Items[i] = BatchItem{PartNumber: partNumbers[i], Error: ctx.Err().Error()}
				}
				start = len(partNumbers)
			case <-time.After(e.batch.GroupPause):
			}
		}
	}

	for _, item := range result.Items {
		if item.Error == "" && item.Recommendation != nil {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	e.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"total":      len(partNumbers),
		"succeeded":  result.Succeeded,
		"failed":     result.Failed,
	}).Info("batch recommendation run complete")

	return result
}

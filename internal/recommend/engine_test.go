package recommend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsignal/replenish-core/internal/config"
	"github.com/partsignal/replenish-core/internal/demand"
	"github.com/partsignal/replenish-core/internal/domain"
	"github.com/partsignal/replenish-core/internal/events"
	"github.com/partsignal/replenish-core/internal/reorder"
	"github.com/partsignal/replenish-core/internal/supplier"
)

// memoryRepository is an in-memory stand-in for the persistence boundary.
type memoryRepository struct {
	mu              sync.RWMutex
	parts           map[string]domain.Part
	transactions    []domain.Transaction
	metrics         map[string]domain.SupplierMetrics
	recommendations map[string]domain.ReplenishmentRecommendation
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		parts:           make(map[string]domain.Part),
		metrics:         make(map[string]domain.SupplierMetrics),
		recommendations: make(map[string]domain.ReplenishmentRecommendation),
	}
}

func (m *memoryRepository) AddPart(_ context.Context, part *domain.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[part.PartNumber] = *part
	return nil
}

func (m *memoryRepository) GetPart(_ context.Context, partNumber string) (*domain.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	part, ok := m.parts[partNumber]
	if !ok {
		return nil, &domain.PartNotFoundError{PartNumber: partNumber}
	}
	return &part, nil
}

func (m *memoryRepository) ListParts(_ context.Context) ([]*domain.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	parts := make([]*domain.Part, 0, len(m.parts))
	for _, p := range m.parts {
		p := p
		parts = append(parts, &p)
	}
	return parts, nil
}

func (m *memoryRepository) AddTransaction(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, *tx)
	return nil
}

func (m *memoryRepository) TransactionsByPart(_ context.Context, partNumber string, kind domain.TransactionKind) ([]domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range m.transactions {
		if tx.PartNumber == partNumber && tx.Kind == kind {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memoryRepository) TransactionsBySupplier(_ context.Context, supplierID string) ([]domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range m.transactions {
		if tx.SupplierID == supplierID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memoryRepository) PutSupplierMetrics(_ context.Context, metrics *domain.SupplierMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metrics.SupplierID] = *metrics
	return nil
}

func (m *memoryRepository) GetSupplierMetrics(_ context.Context, supplierID string) (*domain.SupplierMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metrics, ok := m.metrics[supplierID]
	if !ok {
		return nil, &domain.SupplierMetricsNotFoundError{SupplierID: supplierID}
	}
	return &metrics, nil
}

func (m *memoryRepository) SaveRecommendation(_ context.Context, rec *domain.ReplenishmentRecommendation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendations[rec.ID] = *rec
	return nil
}

func (m *memoryRepository) GetRecommendation(_ context.Context, id string) (*domain.ReplenishmentRecommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recommendations[id]
	if !ok {
		return nil, &domain.RecommendationNotFoundError{ID: id}
	}
	return &rec, nil
}

func (m *memoryRepository) ListRecommendations(_ context.Context, partNumber string) ([]*domain.ReplenishmentRecommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ReplenishmentRecommendation
	for _, rec := range m.recommendations {
		if rec.PartNumber == partNumber {
			rec := rec
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (m *memoryRepository) UpdateRecommendationStatus(_ context.Context, id string, status domain.RecommendationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recommendations[id]
	if !ok {
		return &domain.RecommendationNotFoundError{ID: id}
	}
	if !rec.Status.ValidTransition(status) {
		return &domain.InvalidStatusTransitionError{From: rec.Status, To: status}
	}
	rec.Status = status
	m.recommendations[id] = rec
	return nil
}

func (m *memoryRepository) Close() error { return nil }

func newTestEngine(repo *memoryRepository) *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := config.Default()
	cfg.Batch.GroupPause = time.Millisecond

	return NewEngine(
		repo,
		demand.NewAnalyzer(cfg.Demand, logger),
		reorder.NewCalculator(cfg.Reorder, logger),
		supplier.NewEvaluator(cfg.Supplier, logger),
		NewSynthesizer(cfg.Urgency, cfg.Reorder, cfg.Narrative, nil, logger),
		events.NewBus(logger),
		cfg.Batch,
		logger,
	)
}

// seedPart loads a part with a year of sales and a supplier with purchase
// history and stored metrics.
func seedPart(t *testing.T, repo *memoryRepository, partNumber, supplierID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.AddPart(ctx, &domain.Part{
		PartNumber:   partNumber,
		CurrentStock: 40,
		SafetyStock:  10,
		LeadTimeDays: 14,
		UnitCost:     12.5,
		Criticality:  domain.CriticalityMedium,
	}))

	for i := 1; i <= 12; i++ {
		require.NoError(t, repo.AddTransaction(ctx, &domain.Transaction{
			PartNumber: partNumber,
			Date:       now.AddDate(0, -i, 0),
			Kind:       domain.TransactionSale,
			Quantity:   30,
		}))
	}

	for i := 1; i <= 6; i++ {
		orderDate := now.AddDate(0, -2*i, 0)
		expected := orderDate.AddDate(0, 0, 14)
		require.NoError(t, repo.AddTransaction(ctx, &domain.Transaction{
			PartNumber:       partNumber,
			Date:             orderDate,
			Kind:             domain.TransactionPurchase,
			Quantity:         60,
			UnitPrice:        12,
			SupplierID:       supplierID,
			QualityScore:     0.95,
			ExpectedDelivery: expected,
			ActualDelivery:   expected,
		}))
	}

	require.NoError(t, repo.PutSupplierMetrics(ctx, &domain.SupplierMetrics{
		SupplierID:          supplierID,
		AverageLeadTimeDays: 14,
		OnTimeDeliveryRate:  0.95,
		Communication:       85,
		Flexibility:         80,
		ContractCompliance:  90,
		FinancialStability:  85,
		Utilization:         70,
		Scalability:         80,
	}))
}

func TestRecommendEndToEnd(t *testing.T) {
	repo := newMemoryRepository()
	seedPart(t, repo, "PN-500", "SUP-1")
	engine := newTestEngine(repo)

	rec, err := engine.Recommend(context.Background(), "PN-500", Options{})
	require.NoError(t, err)

	assert.Equal(t, "PN-500", rec.PartNumber)
	assert.Equal(t, "SUP-1", rec.PreferredSupplier)
	assert.Equal(t, domain.StatusPending, rec.Status)
	assert.Greater(t, rec.RecommendedQuantity, 0.0)
	assert.LessOrEqual(t, rec.Confidence, 0.95)

	stored, err := repo.GetRecommendation(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
}

func TestRecommendUnknownPart(t *testing.T) {
	engine := newTestEngine(newMemoryRepository())

	_, err := engine.Recommend(context.Background(), "PN-MISSING", Options{})
	var notFound *domain.PartNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "PN-MISSING", notFound.PartNumber)
}

func TestRecommendNoPurchaseHistory(t *testing.T) {
	repo := newMemoryRepository()
	require.NoError(t, repo.AddPart(context.Background(), &domain.Part{
		PartNumber:   "PN-501",
		CurrentStock: 10,
		SafetyStock:  5,
		LeadTimeDays: 7,
	}))

	engine := newTestEngine(repo)
	_, err := engine.Recommend(context.Background(), "PN-501", Options{})
	var noSuppliers *domain.NoSuppliersFoundError
	require.True(t, errors.As(err, &noSuppliers))
}

func TestRecommendEmitsEvent(t *testing.T) {
	repo := newMemoryRepository()
	seedPart(t, repo, "PN-502", "SUP-1")
	engine := newTestEngine(repo)

	var received []events.RecommendationCreated
	engine.bus.Subscribe(func(_ context.Context, event events.RecommendationCreated) {
		received = append(received, event)
	})

	rec, err := engine.Recommend(context.Background(), "PN-502", Options{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, rec.ID, received[0].RecommendationID)
	assert.Equal(t, "PN-502", received[0].PartNumber)
}

func TestRecommendBatchIsolatesFailures(t *testing.T) {
	repo := newMemoryRepository()
	seedPart(t, repo, "PN-503", "SUP-1")
	seedPart(t, repo, "PN-504", "SUP-2")
	engine := newTestEngine(repo)

	result := engine.RecommendBatch(context.Background(),
		[]string{"PN-503", "PN-MISSING", "PN-504"}, Options{})

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Items, 3)

	assert.NotNil(t, result.Items[0].Recommendation)
	assert.Empty(t, result.Items[0].Error)
	assert.Nil(t, result.Items[1].Recommendation)
	assert.NotEmpty(t, result.Items[1].Error)
	assert.NotNil(t, result.Items[2].Recommendation)
	assert.NotEmpty(t, result.SessionID)
}

func TestRecommendBatchGroupsRespectContext(t *testing.T) {
	repo := newMemoryRepository()
	partNumbers := make([]string, 7)
	for i := range partNumbers {
		partNumbers[i] = "PN-NOPE"
	}

	engine := newTestEngine(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.RecommendBatch(ctx, partNumbers, Options{})
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, len(partNumbers), result.Failed)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/partsignal/replenish-core/internal/domain"
)

const (
	partPrefix           = "part:"
	txPrefix             = "tx:" // tx:part_number:timestamp:id
	supplierMetricPrefix = "supplier:"
	recommendationPrefix = "rec:"
)

// BadgerRepository implements Repository using BadgerDB.
type BadgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens a BadgerDB-backed repository.
func NewBadgerRepository(dbPath string) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerRepository{db: db}, nil
}

// Close closes the database.
func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

func (r *BadgerRepository) put(key string, value any) error {
	return r.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		return txn.Set([]byte(key), data)
	})
}

func (r *BadgerRepository) get(key string, out any, notFound error) error {
	return r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return notFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// scanPrefix iterates values under a key prefix in key order.
func (r *BadgerRepository) scanPrefix(prefix string, fn func(val []byte) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddPart stores part master data keyed by part number.
func (r *BadgerRepository) AddPart(ctx context.Context, part *domain.Part) error {
	if part.CreatedAt.IsZero() {
		part.CreatedAt = time.Now()
	}
	part.UpdatedAt = time.Now()
	return r.put(partPrefix+part.PartNumber, part)
}

// GetPart retrieves part master data by part number.
func (r *BadgerRepository) GetPart(ctx context.Context, partNumber string) (*domain.Part, error) {
	var part domain.Part
	err := r.get(partPrefix+partNumber, &part, &domain.PartNotFoundError{PartNumber: partNumber})
	if err != nil {
		return nil, err
	}
	return &part, nil
}

// ListParts returns all parts.
func (r *BadgerRepository) ListParts(ctx context.Context) ([]*domain.Part, error) {
	var parts []*domain.Part
	err := r.scanPrefix(partPrefix, func(val []byte) error {
		var part domain.Part
		if err := json.Unmarshal(val, &part); err != nil {
			return nil
		}
		parts = append(parts, &part)
		return nil
	})
	return parts, err
}

// AddTransaction appends a normalized transaction record under a
// time-ordered part-scoped key.
func (r *BadgerRepository) AddTransaction(ctx context.Context, record *domain.Transaction) error {
	key := fmt.Sprintf("%s%s:%s:%s", txPrefix, record.PartNumber,
		record.Date.UTC().Format(time.RFC3339Nano), uuid.New().String())
	return r.put(key, record)
}

// TransactionsByPart returns the part's records in date-ascending order,
// optionally filtered to one kind.
func (r *BadgerRepository) TransactionsByPart(ctx context.Context, partNumber string, kind domain.TransactionKind) ([]domain.Transaction, error) {
	var records []domain.Transaction
	err := r.scanPrefix(txPrefix+partNumber+":", func(val []byte) error {
		var record domain.Transaction
		if err := json.Unmarshal(val, &record); err != nil {
			return nil
		}
		if kind != "" && record.Kind != kind {
			return nil
		}
		records = append(records, record)
		return nil
	})
	return records, err
}

// TransactionsBySupplier scans all records for one supplier in
// date-ascending order.
func (r *BadgerRepository) TransactionsBySupplier(ctx context.Context, supplierID string) ([]domain.Transaction, error) {
	var records []domain.Transaction
	err := r.scanPrefix(txPrefix, func(val []byte) error {
		var record domain.Transaction
		if err := json.Unmarshal(val, &record); err != nil {
			return nil
		}
		if record.SupplierID == supplierID {
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

// PutSupplierMetrics stores collaborator metrics keyed by supplier id.
func (r *BadgerRepository) PutSupplierMetrics(ctx context.Context, metrics *domain.SupplierMetrics) error {
	return r.put(supplierMetricPrefix+metrics.SupplierID, metrics)
}

// GetSupplierMetrics retrieves metrics for one supplier.
func (r *BadgerRepository) GetSupplierMetrics(ctx context.Context, supplierID string) (*domain.SupplierMetrics, error) {
	var metrics domain.SupplierMetrics
	err := r.get(supplierMetricPrefix+supplierID, &metrics, &domain.SupplierMetricsNotFoundError{SupplierID: supplierID})
	if err != nil {
		return nil, err
	}
	return &metrics, nil
}

// SaveRecommendation persists a recommendation record.
func (r *BadgerRepository) SaveRecommendation(ctx context.Context, rec *domain.ReplenishmentRecommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	return r.put(recommendationPrefix+rec.ID, rec)
}

// GetRecommendation retrieves a recommendation by id.
func (r *BadgerRepository) GetRecommendation(ctx context.Context, id string) (*domain.ReplenishmentRecommendation, error) {
	var rec domain.ReplenishmentRecommendation
	err := r.get(recommendationPrefix+id, &rec, &domain.RecommendationNotFoundError{ID: id})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecommendations returns recommendations, optionally filtered by part,
// ordered by creation time ascending.
func (r *BadgerRepository) ListRecommendations(ctx context.Context, partNumber string) ([]*domain.ReplenishmentRecommendation, error) {
	var recs []*domain.ReplenishmentRecommendation
	err := r.scanPrefix(recommendationPrefix, func(val []byte) error {
		var rec domain.ReplenishmentRecommendation
		if err := json.Unmarshal(val, &rec); err != nil {
			return nil
		}
		if partNumber != "" && rec.PartNumber != partNumber {
			return nil
		}
		recs = append(recs, &rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

// UpdateRecommendationStatus applies an approval-workflow transition after
// checking the lifecycle allows it.
func (r *BadgerRepository) UpdateRecommendationStatus(ctx context.Context, id string, status domain.RecommendationStatus) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := []byte(recommendationPrefix + id)

		item, err := txn.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return &domain.RecommendationNotFoundError{ID: id}
			}
			return err
		}

		var rec domain.ReplenishmentRecommendation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal recommendation: %w", err)
		}

		if !rec.Status.ValidTransition(status) {
			return &domain.InvalidStatusTransitionError{From: rec.Status, To: status}
		}
		rec.Status = status

		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation: %w", err)
		}
		return txn.Set(key, data)
	})
}

// SuppliersForPart collects the distinct supplier ids present in a part's
// purchase history, preserving first-seen order.
func SuppliersForPart(records []domain.Transaction) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range records {
		if rec.Kind != domain.TransactionPurchase || rec.SupplierID == "" {
			continue
		}
		if _, ok := seen[rec.SupplierID]; ok {
			continue
		}
		seen[rec.SupplierID] = struct{}{}
		ids = append(ids, rec.SupplierID)
	}
	return ids
}

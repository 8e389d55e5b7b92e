package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/partsignal/replenish-core/internal/domain"
)

const (
	bucketParts           = "parts"
	bucketTransactions    = "transactions"
	bucketSupplierMetrics = "supplier_metrics"
	bucketRecommendations = "recommendations"
)

// BoltRepository implements Repository using BoltDB (bbolt). Transaction
// keys embed the part number and an RFC3339 timestamp, so a prefix scan
// returns records in date order.
type BoltRepository struct {
	db *bbolt.DB
}

// NewBoltRepository opens (or creates) a BoltDB-backed repository.
func NewBoltRepository(dbPath string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory for bolt db: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{bucketParts, bucketTransactions, bucketSupplierMetrics, bucketRecommendations} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Close closes the database.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

// AddPart stores part master data keyed by part number.
func (r *BoltRepository) AddPart(ctx context.Context, part *domain.Part) error {
	if part.CreatedAt.IsZero() {
		part.CreatedAt = time.Now()
	}
	part.UpdatedAt = time.Now()

	return r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(part)
		if err != nil {
			return fmt.Errorf("failed to marshal part: %w", err)
		}
		return tx.Bucket([]byte(bucketParts)).Put([]byte(part.PartNumber), data)
	})
}

// GetPart retrieves part master data by part number.
func (r *BoltRepository) GetPart(ctx context.Context, partNumber string) (*domain.Part, error) {
	var part *domain.Part

	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketParts)).Get([]byte(partNumber))
		if data == nil {
			return &domain.PartNotFoundError{PartNumber: partNumber}
		}

		var found domain.Part
		if err := json.Unmarshal(data, &found); err != nil {
			return fmt.Errorf("failed to unmarshal part: %w", err)
		}
		part = &found
		return nil
	})

	return part, err
}

// ListParts returns all parts.
func (r *BoltRepository) ListParts(ctx context.Context) ([]*domain.Part, error) {
	var parts []*domain.Part

	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketParts)).ForEach(func(_, value []byte) error {
			var part domain.Part
			if err := json.Unmarshal(value, &part); err != nil {
				return nil // skip malformed entries
			}
			parts = append(parts, &part)
			return nil
		})
	})

	return parts, err
}

// transactionKey builds a part-scoped, time-ordered key.
func transactionKey(tx *domain.Transaction) string {
	return fmt.Sprintf("%s:%s:%s", tx.PartNumber, tx.Date.UTC().Format(time.RFC3339Nano), uuid.New().String())
}

// AddTransaction appends a normalized transaction record.
func (r *BoltRepository) AddTransaction(ctx context.Context, record *domain.Transaction) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}
		return tx.Bucket([]byte(bucketTransactions)).Put([]byte(transactionKey(record)), data)
	})
}

// TransactionsByPart returns the part's records in date-ascending order,
// optionally filtered to one transaction kind.
func (r *BoltRepository) TransactionsByPart(ctx context.Context, partNumber string, kind domain.TransactionKind) ([]domain.Transaction, error) {
	var records []domain.Transaction

	err := r.db.View(func(tx *bbolt.Tx) error {
		prefix := []byte(partNumber + ":")
		cursor := tx.Bucket([]byte(bucketTransactions)).Cursor()

		for key, value := cursor.Seek(prefix); key != nil && strings.HasPrefix(string(key), string(prefix)); key, value = cursor.Next() {
			var record domain.Transaction
			if err := json.Unmarshal(value, &record); err != nil {
				continue
			}
			if kind != "" && record.Kind != kind {
				continue
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}

// TransactionsBySupplier scans all purchase records for one supplier in
// date-ascending order.
func (r *BoltRepository) TransactionsBySupplier(ctx context.Context, supplierID string) ([]domain.Transaction, error) {
	var records []domain.Transaction

	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketTransactions)).ForEach(func(_, value []byte) error {
			var record domain.Transaction
			if err := json.Unmarshal(value, &record); err != nil {
				return nil
			}
			if record.SupplierID == supplierID {
				records = append(records, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

// PutSupplierMetrics stores collaborator metrics keyed by supplier id.
func (r *BoltRepository) PutSupplierMetrics(ctx context.Context, metrics *domain.SupplierMetrics) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal supplier metrics: %w", err)
		}
		return tx.Bucket([]byte(bucketSupplierMetrics)).Put([]byte(metrics.SupplierID), data)
	})
}

// GetSupplierMetrics retrieves metrics for one supplier.
func (r *BoltRepository) GetSupplierMetrics(ctx context.Context, supplierID string) (*domain.SupplierMetrics, error) {
	var metrics *domain.SupplierMetrics

	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSupplierMetrics)).Get([]byte(supplierID))
		if data == nil {
			return &domain.SupplierMetricsNotFoundError{SupplierID: supplierID}
		}

		var found domain.SupplierMetrics
		if err := json.Unmarshal(data, &found); err != nil {
			return fmt.Errorf("failed to unmarshal supplier metrics: %w", err)
		}
		metrics = &found
		return nil
	})

	return metrics, err
}

// SaveRecommendation persists a recommendation record, generating an id
// when absent.
func (r *BoltRepository) SaveRecommendation(ctx context.Context, rec *domain.ReplenishmentRecommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation: %w", err)
		}
		return tx.Bucket([]byte(bucketRecommendations)).Put([]byte(rec.ID), data)
	})
}

// GetRecommendation retrieves a recommendation by id.
func (r *BoltRepository) GetRecommendation(ctx context.Context, id string) (*domain.ReplenishmentRecommendation, error) {
	var rec *domain.ReplenishmentRecommendation

	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketRecommendations)).Get([]byte(id))
		if data == nil {
			return &domain.RecommendationNotFoundError{ID: id}
		}

		var found domain.ReplenishmentRecommendation
		if err := json.Unmarshal(data, &found); err != nil {
			return fmt.Errorf("failed to unmarshal recommendation: %w", err)
		}
		rec = &found
		return nil
	})

	return rec, err
}

// ListRecommendations returns recommendations, optionally filtered by part,
// ordered by creation time ascending.
func (r *BoltRepository) ListRecommendations(ctx context.Context, partNumber string) ([]*domain.ReplenishmentRecommendation, error) {
	var recs []*domain.ReplenishmentRecommendation

	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRecommendations)).ForEach(func(_, value []byte) error {
			var rec domain.ReplenishmentRecommendation
			if err := json.Unmarshal(value, &rec); err != nil {
				return nil
			}
			if partNumber != "" && rec.PartNumber != partNumber {
				return nil
			}
			recs = append(recs, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	return recs, nil
}

// UpdateRecommendationStatus applies an approval-workflow transition after
// checking the lifecycle allows it.
func (r *BoltRepository) UpdateRecommendationStatus(ctx context.Context, id string, status domain.RecommendationStatus) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRecommendations))

		data := bucket.Get([]byte(id))
		if data == nil {
			return &domain.RecommendationNotFoundError{ID: id}
		}

		var rec domain.ReplenishmentRecommendation
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal recommendation: %w", err)
		}

		if !rec.Status.ValidTransition(status) {
			return &domain.InvalidStatusTransitionError{From: rec.Status, To: status}
		}
		rec.Status = status

		updated, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recommendation: %w", err)
		}
		return bucket.Put([]byte(id), updated)
	})
}

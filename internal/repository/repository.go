package repository

import (
	"context"

	"github.com/partsignal/replenish-core/internal/domain"
)

// Repository is the persistence boundary of the decision engine. The engine
// reads part master data, transaction history and supplier metrics, and
// writes only recommendation records.
type Repository interface {
	// Part master data (read dependency; writes exist for seeding).
	AddPart(ctx context.Context, part *domain.Part) error
	GetPart(ctx context.Context, partNumber string) (*domain.Part, error)
	ListParts(ctx context.Context) ([]*domain.Part, error)

	// Normalized transaction history, ordered by date ascending.
	AddTransaction(ctx context.Context, tx *domain.Transaction) error
	TransactionsByPart(ctx context.Context, partNumber string, kind domain.TransactionKind) ([]domain.Transaction, error)
	TransactionsBySupplier(ctx context.Context, supplierID string) ([]domain.Transaction, error)

	// Collaborator-sourced supplier metrics.
	PutSupplierMetrics(ctx context.Context, metrics *domain.SupplierMetrics) error
	GetSupplierMetrics(ctx context.Context, supplierID string) (*domain.SupplierMetrics, error)

	// Recommendation records. Status transitions beyond pending belong to
	// the external approval workflow.
	SaveRecommendation(ctx context.Context, rec *domain.ReplenishmentRecommendation) error
	GetRecommendation(ctx context.Context, id string) (*domain.ReplenishmentRecommendation, error)
	ListRecommendations(ctx context.Context, partNumber string) ([]*domain.ReplenishmentRecommendation, error)
	UpdateRecommendationStatus(ctx context.Context, id string, status domain.RecommendationStatus) error

	Close() error
}

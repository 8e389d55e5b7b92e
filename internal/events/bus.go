package events

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/domain"
)

// RecommendationCreated is published once per persisted recommendation.
// Downstream notification and approval collaborators subscribe; the engine
// never consumes its own events.
type RecommendationCreated struct {
	RecommendationID string
	PartNumber       string
	Urgency          domain.UrgencyLevel
	Quantity         float64
	CreatedAt        time.Time
}

// Handler consumes a RecommendationCreated event.
type Handler func(ctx context.Context, event RecommendationCreated)

// Bus is a small in-process publish boundary. Handlers run synchronously in
// subscription order; a slow handler delays publication, not correctness.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *logrus.Logger
}

// NewBus creates an event bus.
func NewBus(logger *logrus.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a handler for recommendation-created events.
func (b *Bus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// PublishRecommendationCreated notifies all subscribers.
func (b *Bus) PublishRecommendationCreated(ctx context.Context, event RecommendationCreated) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	b.logger.WithFields(logrus.Fields{
		"recommendation_id": event.RecommendationID,
		"part_number":       event.PartNumber,
		"urgency":           event.Urgency,
	}).Debug("publishing recommendation created event")

	for _, handler := range handlers {
		handler(ctx, event)
	}
}

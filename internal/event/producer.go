package event

import (
	"context"
	"log/slog"

	"github.com/nileways/storefront/internal/domain"
	"github.com/nileways/storefront/pkg/kafka"
	"github.com/nileways/storefront/pkg/logger"
)

const (
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicCartReconciled = "storefront.cart.reconciled"

	source        = "storefront"
	aggregateType = "cart"
)

// Publisher emits cart lifecycle events. Publishing is best-effort; a broker
// outage must never fail the cart operation that triggered the event, so all
// errors are logged and swallowed here.
type Publisher interface {
	CartUpdated(ctx context.Context, sessionID string, cart *domain.Cart)
	CartCleared(ctx context.Context, sessionID string, cart *domain.Cart)
	CartReconciled(ctx context.Context, sessionID string, replayed, failed int, cart *domain.Cart)
}

type kafkaProducer interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// KafkaPublisher publishes cart events to Kafka, keyed by session ID so that
// events for one visitor stay ordered within a partition.
type KafkaPublisher struct {
	producer kafkaProducer
	logger   *slog.Logger
}

func NewKafkaPublisher(producer kafkaProducer, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger}
}

// cartSnapshot is the event payload shared by all cart topics.
type cartSnapshot struct {
	SessionID   string `json:"session_id"`
	CartID      int64  `json:"cart_id"`
	ItemCount   int    `json:"item_count"`
	TotalAmount int64  `json:"total_amount"`
	Currency    string `json:"currency"`
}

func snapshot(sessionID string, cart *domain.Cart) cartSnapshot {
	return cartSnapshot{
		SessionID:   sessionID,
		CartID:      cart.ID,
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.TotalAmount,
		Currency:    cart.Currency,
	}
}

func (p *KafkaPublisher) CartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) {
	p.publish(ctx, TopicCartUpdated, "cart.updated", sessionID, snapshot(sessionID, cart))
}

func (p *KafkaPublisher) CartCleared(ctx context.Context, sessionID string, cart *domain.Cart) {
	p.publish(ctx, TopicCartCleared, "cart.cleared", sessionID, snapshot(sessionID, cart))
}

func (p *KafkaPublisher) CartReconciled(ctx context.Context, sessionID string, replayed, failed int, cart *domain.Cart) {
	payload := struct {
		cartSnapshot
		Replayed int `json:"replayed"`
		Failed   int `json:"failed"`
	}{
		cartSnapshot: snapshot(sessionID, cart),
		Replayed:     replayed,
		Failed:       failed,
	}
	p.publish(ctx, TopicCartReconciled, "cart.reconciled", sessionID, payload)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, sessionID string, payload any) {
	evt, err := kafka.NewEvent(eventType, sessionID, aggregateType, source, payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", eventType),
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// NopPublisher discards all events. Used in tests and when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) CartUpdated(context.Context, string, *domain.Cart)              {}
func (NopPublisher) CartCleared(context.Context, string, *domain.Cart)              {}
func (NopPublisher) CartReconciled(context.Context, string, int, int, *domain.Cart) {}

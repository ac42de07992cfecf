package amqp

import (
	"context"

	"chitieu/internal/log"
	"chitieu/internal/store"
)

// EventPublisher is the part of Client the Publisher needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg *RecordEvent) error
}

// PublishMetrics records the outcome of each publish.
type PublishMetrics interface {
	EventPublished(eventType string, err error)
}

// Publisher forwards store events to the broker. Failures are logged and
// counted; they never reach the caller that mutated the store.
type Publisher struct {
	client  EventPublisher
	logger  *log.Logger
	metrics PublishMetrics
}

var _ store.Observer = (*Publisher)(nil)

func NewPublisher(client EventPublisher, logger *log.Logger, metrics PublishMetrics) *Publisher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Publisher{
		client:  client,
		logger:  logger.WithComponent(log.ComponentAMQP),
		metrics: metrics,
	}
}

func (p *Publisher) Notify(ctx context.Context, e store.Event) {
	msg := NewRecordEvent(e)
	// The mutation already happened; a cancelled request must not drop the event.
	err := p.client.PublishEvent(context.WithoutCancel(ctx), msg)
	if p.metrics != nil {
		p.metrics.EventPublished(msg.Type, err)
	}
	if err != nil {
		p.logger.Failure(ctx, "Failed to publish record event", err,
			log.FieldOperation, log.OpPublish,
			"type", msg.Type,
			log.FieldRecordID, msg.RecordID)
	}
}

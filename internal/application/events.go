package application

import (
	"context"

	"github.com/rentbridge/service-booking/internal/contracts"
	"github.com/rentbridge/service-booking/pkg/kafka"
	"go.uber.org/zap"
)

// EventPublisher delivers CloudEvents to a broker. Kafka and RabbitMQ
// publishers both satisfy it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *kafka.CloudEvent) error
}

type pendingEvent struct {
	topic     string
	eventType string
	key       string
	data      interface{}
}

// outbox collects events raised inside a transaction so they are only
// published once it has committed.
type outbox []pendingEvent

func (o *outbox) add(topic, eventType, key string, data interface{}) {
	*o = append(*o, pendingEvent{topic: topic, eventType: eventType, key: key, data: data})
}

// emitter publishes best-effort: failures are logged, never returned.
type emitter struct {
	publisher EventPublisher
	logger    *zap.Logger
}

func (e emitter) flush(ctx context.Context, events outbox) {
	for _, evt := range events {
		e.publishEvent(ctx, evt.topic, evt.eventType, evt.key, evt.data)
	}
}

func (e emitter) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	if e.publisher == nil {
		return
	}

	cloudEvent, err := kafka.NewCloudEvent(contracts.Source, eventType, data)
	if err != nil {
		e.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = key

	if err := e.publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		e.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rentbridge/service-booking/pkg/kafka"
	"go.uber.org/zap"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends CloudEvents to RabbitMQ. Each topic maps to a durable topic
// exchange of the same name and the event type is the routing key.
type Publisher struct {
	mu       sync.Mutex
	conn     io.Closer
	ch       channel
	declared map[string]bool
	logger   *zap.Logger
}

// NewPublisher dials url and opens a channel.
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return newPublisher(conn, ch, logger), nil
}

func newPublisher(conn io.Closer, ch channel, logger *zap.Logger) *Publisher {
	return &Publisher{
		conn:     conn,
		ch:       ch,
		declared: make(map[string]bool),
		logger:   logger,
	}
}

// PublishEvent publishes event to the exchange named topic.
func (p *Publisher) PublishEvent(ctx context.Context, topic string, event *kafka.CloudEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[topic] {
		if err := p.ch.ExchangeDeclare(topic, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", topic, err)
		}
		p.declared[topic] = true
	}

	err = p.ch.PublishWithContext(ctx, topic, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/cloudevents+json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Time,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("exchange", topic),
		zap.String("type", event.Type),
		zap.String("id", event.ID),
	)
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/rentbridge/service-booking/internal/contracts"
	userDomain "github.com/rentbridge/service-booking/internal/domain/user"
	"github.com/rentbridge/service-booking/pkg/domain"
	"github.com/rentbridge/service-booking/pkg/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// UserDirectory applies identity-service changes locally.
type UserDirectory interface {
	SyncUser(ctx context.Context, u *userDomain.User) error
	RemoveUser(ctx context.Context, userID uuid.UUID) error
}

// UserEventConsumer listens to user events and keeps the user directory and
// the bookings of removed users in step.
type UserEventConsumer struct {
	consumer *kafka.Consumer
	service  UserDirectory
	logger   *zap.Logger
}

// NewUserEventConsumer creates a new UserEventConsumer.
func NewUserEventConsumer(
	brokers []string,
	groupID string,
	service UserDirectory,
	logger *zap.Logger,
) *UserEventConsumer {
	return &UserEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, contracts.TopicUserEvents, logger),
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming user events. This blocks until the context is cancelled.
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *UserEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *UserEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from user topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case contracts.UserRegistered, contracts.UserUpdated:
		return c.handleUpsert(ctx, cloudEvent)
	case contracts.UserDeleted:
		return c.handleDeleted(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled user event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *UserEventConsumer) handleUpsert(ctx context.Context, cloudEvent *kafka.CloudEvent) error {
	var evt contracts.UserEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse UserEvent data", zap.Error(err))
		return nil
	}

	err := c.service.SyncUser(ctx, &userDomain.User{
		ID:    evt.UserID,
		Name:  evt.Name,
		Email: evt.Email,
		Role:  userDomain.Role(evt.Role),
	})
	if domain.IsValidation(err) {
		c.logger.Warn("dropping invalid user event",
			zap.String("user_id", evt.UserID.String()),
			zap.Error(err),
		)
		return nil
	}
	return err
}

func (c *UserEventConsumer) handleDeleted(ctx context.Context, cloudEvent *kafka.CloudEvent) error {
	var evt contracts.UserEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.UserID == uuid.Nil {
		c.logger.Error("failed to parse user deleted data", zap.Error(err))
		return nil
	}

	c.logger.Info("processing user deleted event", zap.String("user_id", evt.UserID.String()))
	if err := c.service.RemoveUser(ctx, evt.UserID); err != nil {
		c.logger.Error("failed to remove user",
			zap.String("user_id", evt.UserID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

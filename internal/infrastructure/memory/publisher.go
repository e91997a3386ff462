package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/application/registration"
	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

// NoopPublisher stands in for RabbitMQ in dev; it only logs.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishUserRegistered(ctx context.Context, evt registration.UserRegisteredEvent) error {
	logger.WithCtx(ctx).Info().
		Str("user_id", evt.UserID).
		Str("username", evt.Username).
		Msg("[noop-pub] user registered")
	return nil
}

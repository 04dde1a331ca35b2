package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/commercegate/paypal-sessions/internal/domain/errors"
	"github.com/commercegate/paypal-sessions/internal/domain/session"
	"github.com/commercegate/paypal-sessions/internal/infrastructure/observability"
	infraRedis "github.com/commercegate/paypal-sessions/internal/infrastructure/redis"
	"github.com/commercegate/paypal-sessions/internal/provider"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WebhookConsumer drains the webhook stream and applies interpreted
// actions to stored sessions. Application is serialized per session with
// a distributed lock so concurrent workers never race on one session.
type WebhookConsumer struct {
	repo     session.Repository
	redis    *redis.Client
	consumer *infraRedis.StreamConsumer
	producer *infraRedis.StreamProducer
	metrics  *observability.Metrics
	logger   zerolog.Logger
	lockTTL  time.Duration
}

func NewWebhookConsumer(
	repo session.Repository,
	redisClient *redis.Client,
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	lockTTL time.Duration,
) *WebhookConsumer {
	return &WebhookConsumer{
		repo:     repo,
		redis:    redisClient,
		consumer: consumer,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
		lockTTL:  lockTTL,
	}
}

// Run consumes the webhook stream until the context is canceled.
func (c *WebhookConsumer) Run(ctx context.Context) error {
	if err := c.consumer.CreateGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := c.consumer.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error().Err(err).Msg("failed to read from webhook stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.processMessage(ctx, stream.Stream, msg)
			}
		}
	}
}

func (c *WebhookConsumer) processMessage(ctx context.Context, stream string, msg redis.XMessage) {
	start := time.Now()

	sessionIDStr, _ := msg.Values["session_id"].(string)
	action, _ := msg.Values["action"].(string)

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		c.logger.Error().Str("raw", sessionIDStr).Msg("invalid session id in stream message")
		c.producer.PublishToDLQ(ctx, sessionIDStr, "invalid_session_id", msg.Values)
		c.consumer.Ack(ctx, msg.ID)
		c.metrics.WorkerMessagesProcessed.WithLabelValues(stream, "dlq").Inc()
		return
	}

	lock := infraRedis.NewSessionLock(c.redis, sessionID.String(), c.lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		// Left pending; this or another worker picks it up again.
		c.logger.Warn().Str("session_id", sessionID.String()).Msg("could not acquire session lock, skipping")
		return
	}
	defer lock.Release(ctx)

	if err := c.Apply(ctx, sessionID, provider.WebhookAction(action)); err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			c.producer.PublishToDLQ(ctx, sessionID.String(), "session_not_found", msg.Values)
			c.consumer.Ack(ctx, msg.ID)
			c.metrics.WorkerMessagesProcessed.WithLabelValues(stream, "dlq").Inc()
			return
		}
		c.logger.Error().Err(err).
			Str("session_id", sessionID.String()).
			Str("action", action).
			Msg("failed to apply webhook action")
		c.metrics.WorkerMessagesProcessed.WithLabelValues(stream, "error").Inc()
		return
	}

	c.consumer.Ack(ctx, msg.ID)
	c.metrics.WorkerMessagesProcessed.WithLabelValues(stream, "ok").Inc()
	c.metrics.WorkerProcessingDuration.WithLabelValues(stream).Observe(time.Since(start).Seconds())
}

// Apply transitions a stored session according to a webhook action. An
// action the session's state machine rejects is treated as a stale
// redelivery and dropped without error.
func (c *WebhookConsumer) Apply(ctx context.Context, sessionID uuid.UUID, action provider.WebhookAction) error {
	sess, err := c.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	switch action {
	case provider.WebhookActionAuthorized:
		err = sess.MarkAuthorized()
	case provider.WebhookActionSuccessful:
		err = sess.MarkCaptured()
	case provider.WebhookActionFailed:
		err = sess.MarkFailed("payment denied by provider")
	default:
		return fmt.Errorf("unexpected webhook action %q", action)
	}
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidStateTransition) {
			c.logger.Debug().
				Str("session_id", sessionID.String()).
				Str("status", string(sess.Status)).
				Str("action", string(action)).
				Msg("stale webhook action dropped")
			return nil
		}
		return err
	}

	if err := c.repo.Update(ctx, sess); err != nil {
		return err
	}

	c.logger.Info().
		Str("session_id", sessionID.String()).
		Str("status", string(sess.Status)).
		Msg("webhook action applied")
	return nil
}

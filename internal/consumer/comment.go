package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/messaging"
)

type commentNotifier interface {
	NotifyComment(ctx context.Context, evt models.CommentEvent)
}

// CommentConsumer turns CommentCreatedEvent messages into push notifications.
type CommentConsumer struct {
	notifier commentNotifier
	logger   zerolog.Logger
	m        *metrics.Metrics
	timeout  time.Duration
}

func NewCommentConsumer(n commentNotifier, logger zerolog.Logger, m *metrics.Metrics, timeout time.Duration) *CommentConsumer {
	logger = logger.With().Str("component", "CommentConsumer").Logger()
	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}
	return &CommentConsumer{notifier: n, logger: logger, m: m, timeout: timeout}
}

func (c *CommentConsumer) ReceiveComment(d rabbitmq.Delivery) rabbitmq.Action {
	const eventType = messaging.CommentRoutingKey
	c.m.ConsumerMessagesTotal.WithLabelValues(eventType).Inc()

	var evt messaging.CommentCreatedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		c.logger.Error().Err(err).Str("event", eventType).Msg("unmarshal error")
		c.m.ConsumerErrorsTotal.WithLabelValues(eventType, "unmarshal_error").Inc()
		return rabbitmq.NackDiscard
	}
	if evt.UserID == "" || evt.Author == "" {
		c.logger.Warn().Str("comment_id", evt.CommentID).Msg("comment event without user or author")
		c.m.ConsumerErrorsTotal.WithLabelValues(eventType, "invalid_event").Inc()
		return rabbitmq.NackDiscard
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.notifier.NotifyComment(ctx, models.CommentEvent{
		UserID:    evt.UserID,
		PostID:    evt.PostID,
		CommentID: evt.CommentID,
		Author:    evt.Author,
		Content:   evt.Content,
	})
	return rabbitmq.Ack
}

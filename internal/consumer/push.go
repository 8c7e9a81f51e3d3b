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

const defaultHandleTimeout = 30 * time.Second

type pushSender interface {
	Send(ctx context.Context, msgs []models.PushMessage) (models.PushReceipt, error)
}

// PushRelay forwards queued push batches to the push relay.
type PushRelay struct {
	sender  pushSender
	logger  zerolog.Logger
	m       *metrics.Metrics
	timeout time.Duration
}

func NewPushRelay(sender pushSender, logger zerolog.Logger, m *metrics.Metrics, timeout time.Duration) *PushRelay {
	logger = logger.With().Str("component", "PushRelay").Logger()
	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}
	return &PushRelay{sender: sender, logger: logger, m: m, timeout: timeout}
}

// ReceivePushBatch handles PushBatchEvent messages. Failed batches are
// discarded, never requeued.
func (r *PushRelay) ReceivePushBatch(d rabbitmq.Delivery) rabbitmq.Action {
	const eventType = messaging.PushRoutingKey
	r.m.ConsumerMessagesTotal.WithLabelValues(eventType).Inc()

	var evt messaging.PushBatchEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		r.logger.Error().Err(err).Str("event", eventType).Msg("unmarshal error")
		r.m.ConsumerErrorsTotal.WithLabelValues(eventType, "unmarshal_error").Inc()
		return rabbitmq.NackDiscard
	}

	msgs := make([]models.PushMessage, 0, len(evt.Messages))
	for _, msg := range evt.Messages {
		m := models.PushMessage{To: msg.To, Title: msg.Title, Body: msg.Body}
		if len(msg.Data) > 0 {
			m.Data = msg.Data
		}
		msgs = append(msgs, m)
	}

	ctx, cancel := context.WithTimeout(messaging.WithRunID(context.Background(), evt.RunID), r.timeout)
	defer cancel()

	receipt, err := r.sender.Send(ctx, msgs)
	if err != nil {
		r.logger.Error().Err(err).
			Str("run_id", evt.RunID).
			Int("messages", len(msgs)).
			Msg("failed to relay push batch")
		r.m.ConsumerErrorsTotal.WithLabelValues(eventType, "relay_error").Inc()
		return rabbitmq.NackDiscard
	}

	r.logger.Info().
		Str("run_id", evt.RunID).
		Int("messages", len(msgs)).
		Int("accepted", receipt.Accepted).
		Int("rejected", receipt.Rejected).
		Msg("push batch relayed")
	return rabbitmq.Ack
}

package producers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/messaging"
)

const rabbitService = "RabbitMQ"

type publisher interface {
	PublishWithContext(
		ctx context.Context,
		data []byte,
		routingKeys []string,
		optionFuncs ...func(*rabbitmq.PublishOptions),
	) error
}

// Producer hands push batches to the relay worker through RabbitMQ.
type Producer struct {
	prod publisher
	log  zerolog.Logger
	m    *metrics.Metrics
}

func NewProducer(prod publisher, logger zerolog.Logger, m *metrics.Metrics) *Producer {
	logger = logger.With().Str("component", "Producer").Logger()
	return &Producer{prod: prod, log: logger, m: m}
}

func (p *Producer) Publish(ctx context.Context, routingKey []string, body []byte) error {
	err := p.prod.PublishWithContext(
		ctx,
		body,
		routingKey,
		rabbitmq.WithPublishOptionsContentType("application/json"),
		rabbitmq.WithPublishOptionsMandatory,
		rabbitmq.WithPublishOptionsPersistentDelivery,
		rabbitmq.WithPublishOptionsExchange(messaging.ExchangeName),
	)
	for _, key := range routingKey {
		p.m.RecordRabbitPublish(key, err)
	}
	if err != nil {
		p.log.Error().Err(err).Ctx(ctx).Strs("routing_key", routingKey).Msg("failed to publish message")
		return &models.TransportError{Service: rabbitService, Err: err}
	}

	p.log.Debug().Ctx(ctx).Strs("routing_key", routingKey).Msg("message published")
	return nil
}

// Send publishes msgs as one PushBatchEvent. A published batch counts as
// accepted for relay; per-device tickets are produced by the relay worker.
func (p *Producer) Send(ctx context.Context, msgs []models.PushMessage) (models.PushReceipt, error) {
	runID := messaging.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}

	event := messaging.PushBatchEvent{
		RunID:    runID,
		Messages: make([]messaging.PushMessage, 0, len(msgs)),
	}
	for _, msg := range msgs {
		data, err := json.Marshal(msg.Data)
		if err != nil {
			return models.PushReceipt{}, fmt.Errorf("marshal push data for %s: %w", msg.To, err)
		}
		event.Messages = append(event.Messages, messaging.PushMessage{
			To:    msg.To,
			Title: msg.Title,
			Body:  msg.Body,
			Data:  data,
		})
	}

	body, err := json.Marshal(event)
	if err != nil {
		return models.PushReceipt{}, fmt.Errorf("marshal push batch: %w", err)
	}

	if err := p.Publish(ctx, []string{messaging.PushRoutingKey}, body); err != nil {
		return models.PushReceipt{}, err
	}

	p.log.Info().Ctx(ctx).
		Str("run_id", runID).
		Int("messages", len(msgs)).
		Msg("push batch queued for relay")
	return models.PushReceipt{Accepted: len(msgs)}, nil
}

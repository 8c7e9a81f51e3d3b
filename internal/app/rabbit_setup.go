package app

import (
	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/config"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/messaging"
)

func setupConn(cfg config.RabbitMQ, l zerolog.Logger) (*rabbitmq.Conn, error) {
	conn, err := rabbitmq.NewConn(
		cfg.Address(),
		rabbitmq.WithConnectionOptionsLogging,
	)
	if err != nil {
		l.Error().Err(err).Msg("Failed to connect to RabbitMQ")
		return nil, err
	}

	l.Info().Str("host", cfg.Host).Msg("Connected to RabbitMQ")
	return conn, nil
}

// Publisher for push batch events
func setupPublisher(conn *rabbitmq.Conn, l zerolog.Logger) (*rabbitmq.Publisher, error) {
	publisher, err := rabbitmq.NewPublisher(
		conn,
		rabbitmq.WithPublisherOptionsExchangeName(messaging.ExchangeName),
		rabbitmq.WithPublisherOptionsExchangeDeclare,
		rabbitmq.WithPublisherOptionsLogging,
		rabbitmq.WithPublisherOptionsExchangeDurable,
	)
	if err != nil {
		return nil, err
	}

	publisher.NotifyReturn(func(r rabbitmq.Return) {
		l.Warn().
			Int("reply_code", int(r.ReplyCode)).
			Str("routing_key", r.RoutingKey).
			Msg("message returned from server")
	})

	return publisher, nil
}

func setupConsumer(conn *rabbitmq.Conn, queue, routingKey string) (*rabbitmq.Consumer, error) {
	return rabbitmq.NewConsumer(
		conn,
		queue,
		rabbitmq.WithConsumerOptionsExchangeName(messaging.ExchangeName),
		rabbitmq.WithConsumerOptionsExchangeDeclare,
		rabbitmq.WithConsumerOptionsExchangeDurable,
		rabbitmq.WithConsumerOptionsRoutingKey(routingKey),
		rabbitmq.WithConsumerOptionsQueueDurable,
	)
}

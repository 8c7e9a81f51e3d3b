package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/config"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/consumer"
	httphandler "github.com/Nazarious-ucu/weather-push-notifier/internal/handlers/http"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/logger"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/push"
	filelogger "github.com/Nazarious-ucu/weather-push-notifier/pkg/logger"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/messaging"
)

// Relay drains push_queue into the Expo push relay.
type Relay struct {
	cfg config.RelayConfig
	l   zerolog.Logger
	m   *metrics.Metrics
}

func NewRelay(cfg config.RelayConfig, l zerolog.Logger, m *metrics.Metrics) *Relay {
	l = l.With().Str("service", "push-relay").Logger()
	return &Relay{cfg: cfg, l: l, m: m}
}

func (r *Relay) Start(ctx context.Context) error {
	fileLogger, err := filelogger.NewFileLogger(r.cfg.HTTPLogsPath)
	if err != nil {
		return fmt.Errorf("http file logger: %w", err)
	}
	defer func() { _ = fileLogger.Sync() }()

	expo := push.NewExpoClient(r.cfg.Push.ExpoURL, r.cfg.Push.AccessToken, &http.Client{
		Transport: logger.NewRoundTripper(fileLogger),
		Timeout:   outboundHTTPTimeout,
	}, r.l)

	conn, err := setupConn(r.cfg.RabbitMQ, r.l)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			r.l.Error().Err(err).Msg("RabbitMQ close error")
		}
	}()

	pushConsumer, err := setupConsumer(conn, messaging.PushQueueName, messaging.PushRoutingKey)
	if err != nil {
		return fmt.Errorf("rabbitmq push consumer: %w", err)
	}
	defer pushConsumer.Close()

	handler := consumer.NewPushRelay(expo, r.l, r.m, time.Duration(r.cfg.HandleTimeout)*time.Second)
	go func() {
		if err := pushConsumer.Run(handler.ReceivePushBatch); err != nil {
			r.l.Error().Err(err).Msg("push consumer stopped")
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery(), r.m.HTTPMiddleware())
	router.GET("/health", httphandler.Health)
	router.GET("/metrics", gin.WrapH(r.m.Handler()))

	srv := &http.Server{
		Addr:        r.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(r.cfg.Server.ReadTimeout) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		r.l.Info().Str("http_addr", srv.Addr).Msg("Relay metrics listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	r.l.Info().Str("queue", messaging.PushQueueName).Msg("Relay started")

	select {
	case <-ctx.Done():
		r.l.Info().Msg("Shutdown signal received")
	case err = <-errCh:
		r.l.Error().Err(err).Msg("HTTP server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

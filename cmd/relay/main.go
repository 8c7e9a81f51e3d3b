package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/app"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/config"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewRelayConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "push_relay", logger.Options{Level: cfg.LogLevel})
	if err != nil {
		log.Panicf("failed to initialize logger: %v", err)
	}

	relay := app.NewRelay(*cfg, l, metrics.NewMetrics("push_relay"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.Start(ctx); err != nil {
		l.Error().Err(err).Msg("relay stopped with error")
	}
}

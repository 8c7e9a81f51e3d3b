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

// @title Weather Push Notifier API
// @version 1.0
// @description Daily weather push notifications for subscribed devices
// @host localhost:8080
// @BasePath /
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "weather_push", logger.Options{Level: cfg.LogLevel})
	if err != nil {
		log.Panicf("failed to initialize logger: %v", err)
	}

	application := app.New(*cfg, l, metrics.NewMetrics("weather_push"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		l.Error().Err(err).Msg("application stopped with error")
	}
}

package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerClient fails fast once the wrapped client keeps failing. It never retries.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped client
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped client, logger zerolog.Logger) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
		// a rejected request (bad city, bad key) says nothing about availability
		IsSuccessful: func(err error) bool {
			var upstream *models.UpstreamError
			if errors.As(err, &upstream) {
				return upstream.Status >= http.StatusBadRequest && upstream.Status < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) Fetch(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.wrapped.Fetch(ctx, city)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.WeatherSnapshot{},
			fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	if err != nil {
		return models.WeatherSnapshot{}, err
	}
	res, ok := result.(models.WeatherSnapshot)
	if !ok {
		return models.WeatherSnapshot{},
			fmt.Errorf("%s returned unexpected result", b.name)
	}
	return res, nil
}

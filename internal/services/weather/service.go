package weather

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

var ErrEmptyCity = errors.New("city must not be empty")

type client interface {
	Fetch(ctx context.Context, city string) (models.WeatherSnapshot, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service is the weather provider used by the dispatcher: one attempt, no cache.
type Service struct {
	logger zerolog.Logger
	client client
}

func NewService(logger zerolog.Logger, cl client) *Service {
	logger = logger.With().Str("component", "WeatherService").Logger()
	return &Service{client: cl, logger: logger}
}

func (s *Service) GetByCity(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	if strings.TrimSpace(city) == "" {
		return models.WeatherSnapshot{}, ErrEmptyCity
	}

	start := time.Now()
	s.logger.Debug().
		Ctx(ctx).
		Str("city", city).
		Msg("calling Fetch")

	data, err := s.client.Fetch(ctx, city)
	if err != nil {
		// the caller decides how loudly a failed fetch is reported
		s.logger.Debug().
			Ctx(ctx).
			Str("city", city).
			Err(err).
			Msg("fetch failed")
		return models.WeatherSnapshot{}, err
	}

	s.logger.Info().
		Ctx(ctx).
		Str("city", city).
		Dur("duration", time.Since(start)).
		Msg("fetch succeeded")
	return data, nil
}

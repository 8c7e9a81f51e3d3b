package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const serviceName = "OpenWeatherMap"

type apiResponse struct {
	Main struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// ClientOpenWeatherMap fetches current conditions from the OpenWeatherMap API.
type ClientOpenWeatherMap struct {
	APIKey  string
	apiURL  string
	iconURL string
	client  HTTPClient
	logger  zerolog.Logger
}

// NewClientOpenWeatherMap constructs a new OpenWeatherMap client.
// iconURL is a fmt template receiving the icon code, e.g. "http://openweathermap.org/img/w/%s.png".
func NewClientOpenWeatherMap(apiKey, apiURL, iconURL string,
	httpClient HTTPClient, logger zerolog.Logger,
) *ClientOpenWeatherMap {
	return &ClientOpenWeatherMap{
		APIKey:  apiKey,
		apiURL:  apiURL,
		iconURL: iconURL,
		client:  httpClient,
		logger:  logger,
	}
}

// Fetch performs exactly one GET for the city.
func (s *ClientOpenWeatherMap) Fetch(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	start := time.Now()

	query := url.Values{}
	query.Set("q", city)
	query.Set("units", "metric")
	query.Set("appid", s.APIKey)
	reqURL := s.apiURL + "?" + query.Encode()

	s.logger.Debug().
		Str("city", city).
		Str("url", s.apiURL).
		Msg("starting OpenWeatherMap request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("city", city).
			Msg("failed to create HTTP request")
		return models.WeatherSnapshot{}, &models.TransportError{Service: serviceName, Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("city", city).
			Msg("error sending HTTP request to OpenWeatherMap")
		return models.WeatherSnapshot{}, &models.TransportError{Service: serviceName, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Debug().
				Err(cerr).
				Str("city", city).
				Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherSnapshot{}, &models.TransportError{Service: serviceName, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.Debug().
			Str("city", city).
			Int("status", resp.StatusCode).
			Msg("OpenWeatherMap API returned non-2xx status")
		return models.WeatherSnapshot{}, &models.UpstreamError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Message: upstreamMessage(body),
		}
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		s.logger.Debug().
			Err(err).
			Str("city", city).
			Msg("failed to decode OpenWeatherMap response")
		return models.WeatherSnapshot{}, &models.UpstreamError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Message: "invalid response body: " + err.Error(),
		}
	}
	if len(raw.Weather) == 0 {
		return models.WeatherSnapshot{}, &models.UpstreamError{
			Service: serviceName,
			Status:  resp.StatusCode,
			Message: "response has no weather conditions",
		}
	}

	data := models.WeatherSnapshot{
		MaxTemperature: raw.Main.TempMax,
		MinTemperature: raw.Main.TempMin,
		Temperature:    raw.Main.Temp,
		WeatherIcon:    fmt.Sprintf(s.iconURL, raw.Weather[0].Icon),
		WeatherName:    raw.Weather[0].Main,
		WindSpeed:      raw.Wind.Speed,
	}

	s.logger.Info().
		Str("city", city).
		Dur("duration_ms", time.Since(start)).
		Msg("successfully fetched weather data")

	return data, nil
}

// upstreamMessage prefers the API's "message" field and falls back to the raw body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/app"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/config"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

type expoRecorder struct {
	mu   sync.Mutex
	msgs []models.PushMessage
}

func (r *expoRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var chunk []models.PushMessage
		if !assert.NoError(t, json.NewDecoder(req.Body).Decode(&chunk)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		r.msgs = append(r.msgs, chunk...)
		r.mu.Unlock()

		tickets := make([]string, len(chunk))
		for i := range tickets {
			tickets[i] = `{"status":"ok","id":"t"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[`+strings.Join(tickets, ",")+`]}`)
	}
}

func (r *expoRecorder) sent() []models.PushMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PushMessage(nil), r.msgs...)
}

func newContainer(t *testing.T) (app.ServiceContainer, *app.App, *expoRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"main": {"temp": 21.5, "temp_min": 18.1, "temp_max": 24.3},
			"wind": {"speed": 3.6},
			"weather": [{"main": "Clouds", "icon": "04d"}]
		}`)
	}))
	t.Cleanup(weatherSrv.Close)

	expo := &expoRecorder{}
	expoSrv := httptest.NewServer(expo.handler(t))
	t.Cleanup(expoSrv.Close)

	dir := t.TempDir()
	cfg := config.Config{
		Store: config.Store{
			Driver: config.StoreSqlite,
			Sqlite: config.Sqlite{Source: filepath.Join(dir, "subscriptions.db")},
		},
		Weather: config.Weather{
			OpenWeatherMapAPIKey: "key",
			OpenWeatherMapURL:    weatherSrv.URL,
			IconURL:              "http://openweathermap.org/img/w/%s.png",
		},
		Breaker:  config.Breaker{TimeInterval: 30, TimeTimeOut: 10, RepeatNumber: 5},
		Push:     config.Push{Gateway: config.GatewayExpo, ExpoURL: expoSrv.URL},
		Notifier: config.Notifier{Schedule: "0 8 * * *", TimeZone: "Europe/Madrid", City: "Barcelona", RunTimeout: 5},
		Server:   config.Server{Host: "127.0.0.1", HTTPPort: "0", GrpcPort: "0", ReadTimeout: 5},

		TestEndpointStrict: true,
		HTTPLogsPath:       filepath.Join(dir, "http.log"),
	}

	a := app.New(cfg, zerolog.Nop(), metrics.NewMetrics("app_test"))
	c, err := a.Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(c) })

	return c, a, expo
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApp_TestEndpointDispatchesThroughExpo(t *testing.T) {
	c, _, expo := newContainer(t)

	w := do(c.Router, http.MethodGet, "/test?token=ExponentPushToken%5Babcd%5D", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	sent := expo.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ExponentPushToken[abcd]", sent[0].To)
	assert.Equal(t, "Barcelona is Clouds today", sent[0].Title)
	assert.Equal(t, "21.5 ºC", sent[0].Body)
}

func TestApp_DailyRunReachesActiveSubscribers(t *testing.T) {
	c, _, expo := newContainer(t)
	ctx := context.Background()

	require.NoError(t, c.Controller.SetSubscriptionActive(ctx, "ExponentPushToken[a]", true))
	require.NoError(t, c.Controller.SetSubscriptionActive(ctx, "ExponentPushToken[b]", false))

	w := do(c.Router, http.MethodPut, "/subscriptions/c", `{"active":true,"token":"ExponentPushToken[c]"}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	c.Notificator.RunDaily(ctx)

	var tokens []string
	for _, msg := range expo.sent() {
		tokens = append(tokens, msg.To)
	}
	assert.ElementsMatch(t, []string{"ExponentPushToken[a]", "ExponentPushToken[c]"}, tokens)
}

func TestApp_OperationalRoutes(t *testing.T) {
	c, _, _ := newContainer(t)

	assert.Equal(t, http.StatusOK, do(c.Router, http.MethodGet, "/health", "").Code)

	w := do(c.Router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "app_test_http_requests_total")

	w = do(c.Router, http.MethodGet, "/subscriptions/nobody", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

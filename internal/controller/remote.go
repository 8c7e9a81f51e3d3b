package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const (
	testEndpointService  = "TestEndpoint"
	subscriptionsService = "SubscriptionAPI"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type testResponse struct {
	OK   bool   `json:"ok"`
	Data string `json:"data"`
}

// HTTPTester calls the server's GET /test endpoint.
type HTTPTester struct {
	baseURL string
	client  HTTPClient
	logger  zerolog.Logger
}

func NewHTTPTester(baseURL string, client HTTPClient, logger zerolog.Logger) *HTTPTester {
	logger = logger.With().Str("component", "HTTPTester").Logger()
	return &HTTPTester{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

func (t *HTTPTester) Test(ctx context.Context, pushToken string) error {
	endpoint := t.baseURL + "/test?" + url.Values{"token": {pushToken}}.Encode()

	status, body, err := do(ctx, t.client, http.MethodGet, endpoint, nil)
	if err != nil {
		return &models.TransportError{Service: testEndpointService, Err: err}
	}

	var resp testResponse
	if err := json.Unmarshal(body, &resp); err != nil || status != http.StatusOK || !resp.OK {
		message := resp.Data
		if message == "" {
			message = strings.TrimSpace(string(body))
		}
		t.logger.Debug().Ctx(ctx).Int("status", status).Str("message", message).Msg("test endpoint answered not ok")
		return &models.UpstreamError{Service: testEndpointService, Status: status, Message: message}
	}
	return nil
}

// HTTPStore reads and writes subscription documents through the server's
// /subscriptions/{identity} routes.
type HTTPStore struct {
	baseURL string
	client  HTTPClient
}

func NewHTTPStore(baseURL string, client HTTPClient) *HTTPStore {
	return &HTTPStore{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPStore) documentURL(identity string) string {
	return s.baseURL + "/subscriptions/" + url.PathEscape(identity)
}

func (s *HTTPStore) Get(ctx context.Context, identity string) (models.Subscription, bool, error) {
	status, body, err := do(ctx, s.client, http.MethodGet, s.documentURL(identity), nil)
	if err != nil {
		return models.Subscription{}, false, &models.StorageError{
			Op: "get", Key: identity, Err: &models.TransportError{Service: subscriptionsService, Err: err},
		}
	}

	switch status {
	case http.StatusNotFound:
		return models.Subscription{}, false, nil
	case http.StatusOK:
	default:
		return models.Subscription{}, false, &models.StorageError{Op: "get", Key: identity, Err: upstream(status, body)}
	}

	var sub models.Subscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return models.Subscription{}, false, &models.StorageError{Op: "get", Key: identity, Err: err}
	}
	sub.Identity = identity
	return sub, true, nil
}

func (s *HTTPStore) Upsert(ctx context.Context, identity string, sub models.Subscription) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return &models.StorageError{Op: "upsert", Key: identity, Err: err}
	}

	status, body, err := do(ctx, s.client, http.MethodPut, s.documentURL(identity), payload)
	if err != nil {
		return &models.StorageError{
			Op: "upsert", Key: identity, Err: &models.TransportError{Service: subscriptionsService, Err: err},
		}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &models.StorageError{Op: "upsert", Key: identity, Err: upstream(status, body)}
	}
	return nil
}

func upstream(status int, body []byte) error {
	var parsed struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		message = parsed.Error
	}
	return &models.UpstreamError{Service: subscriptionsService, Status: status, Message: message}
}

func do(ctx context.Context, client HTTPClient, method, endpoint string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const (
	expoService = "ExpoPush"

	// MaxChunkSize is the relay's per-request message limit.
	MaxChunkSize = 100
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type expoResponse struct {
	Data   []models.PushTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// ExpoClient hands message batches to the Expo push relay.
type ExpoClient struct {
	apiURL      string
	accessToken string
	client      HTTPClient
	logger      zerolog.Logger
}

func NewExpoClient(apiURL, accessToken string, httpClient HTTPClient, logger zerolog.Logger) *ExpoClient {
	logger = logger.With().Str("component", "ExpoClient").Logger()
	return &ExpoClient{
		apiURL:      apiURL,
		accessToken: accessToken,
		client:      httpClient,
		logger:      logger,
	}
}

// Send posts msgs in chunks of at most MaxChunkSize. The first failing chunk
// stops the send; tickets of earlier chunks are kept in the receipt.
func (c *ExpoClient) Send(ctx context.Context, msgs []models.PushMessage) (models.PushReceipt, error) {
	var receipt models.PushReceipt

	for _, chunk := range Chunk(msgs, MaxChunkSize) {
		tickets, err := c.sendChunk(ctx, chunk)
		if err != nil {
			return receipt, err
		}
		for _, ticket := range tickets {
			receipt.Add(ticket)
		}
	}

	c.logger.Info().
		Ctx(ctx).
		Int("messages", len(msgs)).
		Int("accepted", receipt.Accepted).
		Int("rejected", receipt.Rejected).
		Msg("push batch handed to relay")
	return receipt, nil
}

func (c *ExpoClient) sendChunk(ctx context.Context, chunk []models.PushMessage) ([]models.PushTicket, error) {
	start := time.Now()

	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("marshal push chunk: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &models.TransportError{Service: expoService, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().
			Ctx(ctx).
			Err(err).
			Int("chunk_size", len(chunk)).
			Msg("error sending push chunk")
		return nil, &models.TransportError{Service: expoService, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error().Err(cerr).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TransportError{Service: expoService, Err: err}
	}

	var parsed expoResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || len(parsed.Errors) > 0 {
		message := strings.TrimSpace(string(body))
		if decodeErr == nil && len(parsed.Errors) > 0 {
			message = parsed.Errors[0].Message
		}
		c.logger.Error().
			Ctx(ctx).
			Int("status", resp.StatusCode).
			Str("message", message).
			Msg("push relay rejected chunk")
		return nil, &models.UpstreamError{Service: expoService, Status: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return nil, &models.UpstreamError{
			Service: expoService,
			Status:  resp.StatusCode,
			Message: "invalid response body: " + decodeErr.Error(),
		}
	}

	c.logger.Debug().
		Ctx(ctx).
		Int("chunk_size", len(chunk)).
		Int("tickets", len(parsed.Data)).
		Dur("duration", time.Since(start)).
		Msg("push chunk accepted")
	return parsed.Data, nil
}

// Chunk splits msgs into consecutive slices of at most size elements.
func Chunk(msgs []models.PushMessage, size int) [][]models.PushMessage {
	if size <= 0 {
		size = MaxChunkSize
	}
	chunks := make([][]models.PushMessage, 0, (len(msgs)+size-1)/size)
	for start := 0; start < len(msgs); start += size {
		end := start + size
		if end > len(msgs) {
			end = len(msgs)
		}
		chunks = append(chunks, msgs[start:end])
	}
	return chunks
}

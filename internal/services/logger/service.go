package logger

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const maxBodySnippet = 2048

var secretParams = []string{"appid", "key", "token"}

// RoundTripper logs every outbound HTTP call (weather API, push relay, test endpoint).
type RoundTripper struct {
	Logger *zap.Logger
	Proxy  http.RoundTripper
}

func NewRoundTripper(logger *zap.Logger) *RoundTripper {
	return &RoundTripper{
		Logger: logger,
		Proxy:  http.DefaultTransport,
	}
}

func (l *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.Proxy.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		l.Logger.Error("HTTP request failed",
			zap.String("method", req.Method),
			zap.String("url", redactURL(req.URL)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		l.Logger.Error("Failed to read response body",
			zap.String("method", req.Method),
			zap.String("url", redactURL(req.URL)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	snippet := bodyBytes
	if len(snippet) > maxBodySnippet {
		snippet = snippet[:maxBodySnippet]
	}

	l.Logger.Info("HTTP request completed",
		zap.String("method", req.Method),
		zap.String("url", redactURL(req.URL)),
		zap.ByteString("body_snipped", snippet),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	query := clean.Query()
	for _, p := range secretParams {
		if query.Has(p) {
			query.Set(p, "REDACTED")
		}
	}
	clean.RawQuery = query.Encode()
	return clean.String()
}

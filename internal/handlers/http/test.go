package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const timeoutDuration = 10 * time.Second

type testSender interface {
	SendTest(ctx context.Context, pushToken string) (models.PushReceipt, error)
}

// TestResponse is the body of GET /test.
type TestResponse struct {
	OK   bool   `json:"ok"`
	Data string `json:"data,omitempty"`
}

type TestHandler struct {
	sender  testSender
	strict  bool
	timeout time.Duration
	logger  zerolog.Logger
}

// NewTestHandler builds the on-demand test endpoint. With strict set a failed
// dispatch answers 502; otherwise the endpoint always answers ok once the
// submission returned. timeout bounds the whole dispatch and must outlast the
// notifier's own run timeout; zero falls back to timeoutDuration.
func NewTestHandler(sender testSender, strict bool, timeout time.Duration, logger zerolog.Logger) *TestHandler {
	logger = logger.With().Str("component", "TestHandler").Logger()
	if timeout <= 0 {
		timeout = timeoutDuration
	}
	return &TestHandler{sender: sender, strict: strict, timeout: timeout, logger: logger}
}

// SendTest
// @Summary Send a test weather notification
// @Description Fetches today's weather and pushes it to a single device
// @Tags notifications
// @Produce json
// @Param token query string true "Expo push token"
// @Success 200 {object} TestResponse
// @Failure 400 {object} TestResponse
// @Failure 502 {object} TestResponse
// @Router /test [get]
func (h *TestHandler) SendTest(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, TestResponse{OK: false, Data: "No pushToken provided"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if _, err := h.sender.SendTest(ctx, token); err != nil {
		h.logger.Warn().Err(err).Bool("strict", h.strict).Msg("test dispatch failed")
		if h.strict {
			c.JSON(http.StatusBadGateway, TestResponse{OK: false, Data: err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, TestResponse{OK: true})
}

package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

type pushTokenWriter interface {
	SetPushToken(ctx context.Context, userID, token string) error
}

type commentNotifier interface {
	NotifyComment(ctx context.Context, evt models.CommentEvent)
}

type pushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type EventsHandler struct {
	tokens   pushTokenWriter
	notifier commentNotifier
	logger   zerolog.Logger
}

func NewEventsHandler(tokens pushTokenWriter, notifier commentNotifier, logger zerolog.Logger) *EventsHandler {
	logger = logger.With().Str("component", "EventsHandler").Logger()
	return &EventsHandler{tokens: tokens, notifier: notifier, logger: logger}
}

// PutPushToken
// @Summary Register the push token of a user
// @Tags events
// @Accept json
// @Param id path string true "User id"
// @Param token body pushTokenRequest true "Push token"
// @Success 204
// @Failure 400
// @Failure 500
// @Router /users/{id}/push-token [put]
func (h *EventsHandler) PutPushToken(c *gin.Context) {
	userID := c.Param("id")

	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	if _, err := models.SubscriptionKey(req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.tokens.SetPushToken(ctx, userID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// PostComment
// @Summary Notify a post owner about a new comment
// @Tags events
// @Accept json
// @Produce json
// @Param event body models.CommentEvent true "Comment event"
// @Success 202
// @Failure 400
// @Router /events/comments [post]
func (h *EventsHandler) PostComment(c *gin.Context) {
	var evt models.CommentEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId, commentId and author are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	h.notifier.NotifyComment(ctx, evt)
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// Health
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200
// @Router /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

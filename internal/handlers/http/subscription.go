package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/controller"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

type subscriptionReader interface {
	Get(ctx context.Context, identity string) (models.Subscription, bool, error)
}

type subscriptionWriter interface {
	SetSubscriptionActive(ctx context.Context, pushToken string, active bool) error
}

// SubscriptionDocument is the stored shape of one subscription.
type SubscriptionDocument struct {
	Active *bool  `json:"active" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

type SubscriptionHandler struct {
	reader subscriptionReader
	writer subscriptionWriter
	logger zerolog.Logger
}

func NewSubscriptionHandler(reader subscriptionReader, writer subscriptionWriter, logger zerolog.Logger) *SubscriptionHandler {
	logger = logger.With().Str("component", "SubscriptionHandler").Logger()
	return &SubscriptionHandler{reader: reader, writer: writer, logger: logger}
}

// GetSubscription
// @Summary Read a subscription document
// @Tags subscriptions
// @Produce json
// @Param identity path string true "Push token identity"
// @Success 200 {object} models.Subscription
// @Failure 404
// @Failure 500
// @Router /subscriptions/{identity} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	identity := c.Param("identity")

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	sub, found, err := h.reader.Get(ctx, identity)
	if err != nil {
		h.logger.Error().Err(err).Str("identity", identity).Msg("failed to read subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// PutSubscription
// @Summary Replace a subscription document
// @Tags subscriptions
// @Accept json
// @Param identity path string true "Push token identity"
// @Param subscription body SubscriptionDocument true "Subscription"
// @Success 204
// @Failure 400
// @Failure 409
// @Failure 500
// @Router /subscriptions/{identity} [put]
func (h *SubscriptionHandler) PutSubscription(c *gin.Context) {
	identity := c.Param("identity")

	var doc SubscriptionDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and active are required"})
		return
	}

	tokenIdentity, err := models.SubscriptionKey(doc.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if tokenIdentity != identity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token does not belong to this identity"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.writer.SetSubscriptionActive(ctx, doc.Token, *doc.Active); err != nil {
		writeControllerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeControllerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMalformedIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, controller.ErrOperationInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

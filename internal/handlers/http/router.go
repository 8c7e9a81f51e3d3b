package http

import "github.com/gin-gonic/gin"

// Handlers groups the HTTP surface of the notifier.
type Handlers struct {
	Test          *TestHandler
	Subscriptions *SubscriptionHandler
	Events        *EventsHandler
}

// Register mounts every route on r.
func (h Handlers) Register(r gin.IRouter) {
	r.GET("/health", Health)
	r.GET("/test", h.Test.SendTest)

	r.GET("/subscriptions/:identity", h.Subscriptions.GetSubscription)
	r.PUT("/subscriptions/:identity", h.Subscriptions.PutSubscription)

	r.PUT("/users/:id/push-token", h.Events.PutPushToken)
	r.POST("/events/comments", h.Events.PostComment)
}

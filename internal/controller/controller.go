package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

// ErrOperationInFlight rejects a call for an identity that already has one outstanding.
var ErrOperationInFlight = errors.New("another operation for this device is still in progress")

type subscriptionStore interface {
	Get(ctx context.Context, identity string) (models.Subscription, bool, error)
	Upsert(ctx context.Context, identity string, sub models.Subscription) error
}

type tester interface {
	Test(ctx context.Context, pushToken string) error
}

// Controller toggles, reads and test-sends a device's weather subscription,
// allowing one outstanding operation per identity.
type Controller struct {
	store  subscriptionStore
	tester tester
	logger zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func New(store subscriptionStore, t tester, logger zerolog.Logger) *Controller {
	logger = logger.With().Str("component", "SubscriptionController").Logger()
	return &Controller{
		store:    store,
		tester:   t,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

func (c *Controller) acquire(identity string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[identity]; busy {
		return nil, ErrOperationInFlight
	}
	c.inFlight[identity] = struct{}{}

	return func() {
		c.mu.Lock()
		delete(c.inFlight, identity)
		c.mu.Unlock()
	}, nil
}

// SetSubscriptionActive writes {active, token} under the token's identity.
func (c *Controller) SetSubscriptionActive(ctx context.Context, pushToken string, active bool) error {
	sub, err := models.NewSubscription(pushToken, active)
	if err != nil {
		return err
	}

	release, err := c.acquire(sub.Identity)
	if err != nil {
		return err
	}
	defer release()

	if err := c.store.Upsert(ctx, sub.Identity, sub); err != nil {
		return err
	}

	c.logger.Info().Ctx(ctx).
		Str("identity", sub.Identity).
		Bool("active", active).
		Msg("subscription updated")
	return nil
}

// ReadSubscriptionActive reports the stored flag; a device that never
// subscribed reads as inactive.
func (c *Controller) ReadSubscriptionActive(ctx context.Context, pushToken string) (bool, error) {
	identity, err := models.SubscriptionKey(pushToken)
	if err != nil {
		return false, err
	}

	release, err := c.acquire(identity)
	if err != nil {
		return false, err
	}
	defer release()

	sub, found, err := c.store.Get(ctx, identity)
	if err != nil {
		return false, err
	}
	return found && sub.Active, nil
}

// TestSubscription asks the server to send one weather notification now.
func (c *Controller) TestSubscription(ctx context.Context, pushToken string) error {
	identity, err := models.SubscriptionKey(pushToken)
	if err != nil {
		return err
	}

	release, err := c.acquire(identity)
	if err != nil {
		return err
	}
	defer release()

	if err := c.tester.Test(ctx, pushToken); err != nil {
		c.logger.Warn().Ctx(ctx).Err(err).Str("identity", identity).Msg("test notification failed")
		return err
	}
	return nil
}

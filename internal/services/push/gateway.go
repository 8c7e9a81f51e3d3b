package push

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const defaultSendTimeout = 30 * time.Second

type sender interface {
	Send(ctx context.Context, msgs []models.PushMessage) (models.PushReceipt, error)
}

// Gateway submits push batches asynchronously. Each Submit returns a
// Submission the caller may await or drop.
type Gateway struct {
	sender  sender
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewGateway(s sender, logger zerolog.Logger, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	logger = logger.With().Str("component", "PushGateway").Logger()
	return &Gateway{sender: s, logger: logger, timeout: timeout}
}

// Submit starts relaying msgs in the background. Cancelling ctx after
// Submit returns does not abort the send; the gateway's own timeout applies.
func (g *Gateway) Submit(ctx context.Context, msgs []models.PushMessage) *Submission {
	sub := &Submission{done: make(chan struct{})}
	if len(msgs) == 0 {
		close(sub.done)
		return sub
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer cancel()
		defer close(sub.done)

		sub.receipt, sub.err = g.sender.Send(sendCtx, msgs)
		if sub.err != nil {
			g.logger.Debug().Ctx(sendCtx).Err(sub.err).Int("messages", len(msgs)).Msg("submission failed")
		}
	}()
	return sub
}

// Close blocks until every started submission has finished.
func (g *Gateway) Close() {
	g.wg.Wait()
}

// Submission is the pending result of one Submit call.
type Submission struct {
	done    chan struct{}
	receipt models.PushReceipt
	err     error
}

// Done is closed once the relay answered or the send failed.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission completes or ctx ends.
func (s *Submission) Wait(ctx context.Context) (models.PushReceipt, error) {
	select {
	case <-s.done:
		return s.receipt, s.err
	case <-ctx.Done():
		return models.PushReceipt{}, ctx.Err()
	}
}

package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/services/push"
	"github.com/Nazarious-ucu/weather-push-notifier/pkg/messaging"
)

const (
	defaultRunTimeout = 30 * time.Second
	relayService      = "PushRelay"
)

var ErrEmptyToken = errors.New("push token is required")

type subscriptionStore interface {
	ScanActive(ctx context.Context) ([]models.Subscription, error)
	GetPushToken(ctx context.Context, userID string) (string, bool, error)
}

type weatherGetter interface {
	GetByCity(ctx context.Context, city string) (models.WeatherSnapshot, error)
}

type pushGateway interface {
	Submit(ctx context.Context, msgs []models.PushMessage) *push.Submission
}

// Options configure the daily schedule and the forecast city.
type Options struct {
	Schedule   string
	Location   *time.Location
	City       string
	RunTimeout time.Duration
}

// Notifier builds weather and comment notifications and hands them to the push gateway.
type Notifier struct {
	store   subscriptionStore
	weather weatherGetter
	gateway pushGateway
	logger  zerolog.Logger
	m       *metrics.Metrics

	cron       *cron.Cron
	cancel     context.CancelFunc
	schedule   string
	city       string
	runTimeout time.Duration
}

// New constructs a Notifier with structured logging and metrics.
func New(
	store subscriptionStore,
	ws weatherGetter,
	gw pushGateway,
	logger zerolog.Logger,
	opts Options,
	m *metrics.Metrics,
) *Notifier {
	logger = logger.With().Str("component", "Notifier").Logger()

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	runTimeout := opts.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	return &Notifier{
		store:      store,
		weather:    ws,
		gateway:    gw,
		logger:     logger,
		m:          m,
		cron:       cron.New(cron.WithLocation(loc)),
		schedule:   opts.Schedule,
		city:       opts.City,
		runTimeout: runTimeout,
	}
}

// Start schedules the daily job.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	if _, err := n.cron.AddFunc(n.schedule, func() { n.RunDaily(ctx) }); err != nil {
		cancel()
		n.logger.Error().Err(err).Str("schedule", n.schedule).Msg("failed to schedule daily job")
		n.m.TechnicalErrors.WithLabelValues("cron_schedule_error", "critical").Inc()
		return fmt.Errorf("schedule %q: %w", n.schedule, err)
	}

	n.cron.Start()
	n.logger.Info().
		Str("schedule", n.schedule).
		Str("timezone", n.cron.Location().String()).
		Str("city", n.city).
		Msg("weather notifier started")
	return nil
}

// Stop cancels scheduled jobs and waits for a running one to finish.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	stopCtx := n.cron.Stop()
	<-stopCtx.Done()
	n.logger.Info().Msg("all cron jobs finished, notifier stopped")
}

// RunDaily is one scheduled dispatch cycle. Every failure is logged and the
// cycle ends normally.
func (n *Notifier) RunDaily(ctx context.Context) {
	n.m.DispatchCycle(metrics.TriggerSchedule, func() {
		n.runDaily(ctx)
	})
}

func (n *Notifier) runDaily(ctx context.Context) {
	start := time.Now()
	ctx, log := n.cycle(ctx, metrics.TriggerSchedule)
	ctx, cancel := context.WithTimeout(ctx, n.runTimeout)
	defer cancel()

	subs, err := n.store.ScanActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to scan active subscriptions")
		return
	}
	if len(subs) == 0 {
		log.Info().Msg("no active subscriptions")
		return
	}

	snapshot, err := n.weather.GetByCity(ctx, n.city)
	n.m.RecordWeatherFetch(err)
	if err != nil {
		log.Error().Err(err).
			Str("city", n.city).
			Int("recipients", len(subs)).
			Msg("weather fetch failed, no notifications sent this cycle")
		return
	}

	tokens := make([]string, 0, len(subs))
	for _, sub := range subs {
		tokens = append(tokens, sub.Token)
	}
	msgs := models.WeatherMessages(n.city, snapshot, tokens)

	receipt, err := n.gateway.Submit(ctx, msgs).Wait(ctx)
	n.m.RecordPush(metrics.TriggerSchedule, len(msgs), err)
	if err != nil {
		log.Error().Err(err).Int("batch_size", len(msgs)).Msg("push gateway rejected batch")
		return
	}

	log.Info().
		Int("batch_size", len(msgs)).
		Int("accepted", receipt.Accepted).
		Int("rejected", receipt.Rejected).
		Dur("duration", time.Since(start)).
		Msg("daily weather notifications submitted")
}

// SendTest runs the weather dispatch for a single caller-supplied token and
// reports the outcome.
func (n *Notifier) SendTest(ctx context.Context, pushToken string) (models.PushReceipt, error) {
	var (
		receipt models.PushReceipt
		err     error
	)
	n.m.DispatchCycle(metrics.TriggerTest, func() {
		receipt, err = n.sendTest(ctx, pushToken)
	})
	return receipt, err
}

func (n *Notifier) sendTest(ctx context.Context, pushToken string) (models.PushReceipt, error) {
	if pushToken == "" {
		return models.PushReceipt{}, ErrEmptyToken
	}

	ctx, log := n.cycle(ctx, metrics.TriggerTest)
	ctx, cancel := context.WithTimeout(ctx, n.runTimeout)
	defer cancel()

	snapshot, err := n.weather.GetByCity(ctx, n.city)
	n.m.RecordWeatherFetch(err)
	if err != nil {
		log.Warn().Err(err).Str("city", n.city).Msg("weather fetch failed for test send")
		return models.PushReceipt{}, err
	}

	msgs := models.WeatherMessages(n.city, snapshot, []string{pushToken})
	receipt, err := n.gateway.Submit(ctx, msgs).Wait(ctx)
	n.m.RecordPush(metrics.TriggerTest, len(msgs), err)
	if err != nil {
		log.Warn().Err(err).Msg("push gateway rejected test message")
		return receipt, err
	}

	for _, ticket := range receipt.Tickets {
		if ticket.Status != models.TicketStatusOK {
			return receipt, &models.UpstreamError{Service: relayService, Message: ticket.Message}
		}
	}

	log.Info().Int("accepted", receipt.Accepted).Msg("test notification submitted")
	return receipt, nil
}

// NotifyComment tells the post owner about a new comment. Failures are logged only.
func (n *Notifier) NotifyComment(ctx context.Context, evt models.CommentEvent) {
	n.m.DispatchCycle(metrics.TriggerComment, func() {
		n.notifyComment(ctx, evt)
	})
}

func (n *Notifier) notifyComment(ctx context.Context, evt models.CommentEvent) {
	ctx, log := n.cycle(ctx, metrics.TriggerComment)
	ctx, cancel := context.WithTimeout(ctx, n.runTimeout)
	defer cancel()

	log = log.With().Str("user_id", evt.UserID).Str("comment_id", evt.CommentID).Logger()

	token, found, err := n.store.GetPushToken(ctx, evt.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up push token")
		return
	}
	if !found {
		log.Info().Msg("user has no push token, comment notification skipped")
		return
	}

	msgs := []models.PushMessage{evt.Message(token)}
	_, err = n.gateway.Submit(ctx, msgs).Wait(ctx)
	n.m.RecordPush(metrics.TriggerComment, len(msgs), err)
	if err != nil {
		log.Error().Err(err).Msg("push gateway rejected comment notification")
		return
	}
	log.Info().Msg("comment notification submitted")
}

// cycle tags ctx and the logger with a fresh run id.
func (n *Notifier) cycle(ctx context.Context, trigger string) (context.Context, zerolog.Logger) {
	runID := uuid.NewString()
	log := n.logger.With().Str("run_id", runID).Str("trigger", trigger).Logger()
	return messaging.WithRunID(ctx, runID), log
}

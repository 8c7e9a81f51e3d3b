package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

// SubscriptionRepository stores subscriptions and push tokens in sqlite.
type SubscriptionRepository struct {
	DB  *sql.DB
	log zerolog.Logger
	m   *metrics.Metrics
}

// NewSubscriptionRepository constructs a repository with logger context and metrics collector.
func NewSubscriptionRepository(db *sql.DB, logger zerolog.Logger, m *metrics.Metrics) *SubscriptionRepository {
	logger = logger.With().Str("component", "SqliteSubscriptionRepository").Logger()
	return &SubscriptionRepository{DB: db, log: logger, m: m}
}

// Get returns the subscription stored under identity. The bool is false
// when the device never subscribed.
func (r *SubscriptionRepository) Get(ctx context.Context, identity string) (models.Subscription, bool, error) {
	var sub models.Subscription
	err := r.DB.QueryRowContext(ctx,
		`SELECT identity, token, active FROM subscriptions WHERE identity = ?`, identity,
	).Scan(&sub.Identity, &sub.Token, &sub.Active)
	if errors.Is(err, sql.ErrNoRows) {
		r.m.RecordStore("get", nil)
		return models.Subscription{}, false, nil
	}
	r.m.RecordStore("get", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("identity", identity).
			Msg("failed to query subscription")
		return models.Subscription{}, false, &models.StorageError{Op: "get", Key: identity, Err: err}
	}
	return sub, true, nil
}

// Upsert replaces the subscription stored under identity.
func (r *SubscriptionRepository) Upsert(ctx context.Context, identity string, sub models.Subscription) error {
	start := time.Now()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO subscriptions (identity, token, active, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET
		     token = excluded.token,
		     active = excluded.active,
		     updated_at = excluded.updated_at`,
		identity, sub.Token, sub.Active, time.Now().UTC(),
	)
	r.m.RecordStore("upsert", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("identity", identity).
			Msg("failed to upsert subscription")
		return &models.StorageError{Op: "upsert", Key: identity, Err: err}
	}

	r.log.Info().Ctx(ctx).
		Str("identity", identity).
		Bool("active", sub.Active).
		Dur("duration", time.Since(start)).
		Msg("subscription stored")
	return nil
}

// ScanActive returns every subscription whose active flag is set.
func (r *SubscriptionRepository) ScanActive(ctx context.Context) ([]models.Subscription, error) {
	start := time.Now()
	rows, err := r.DB.QueryContext(ctx,
		`SELECT identity, token FROM subscriptions WHERE active = 1`,
	)
	if err != nil {
		r.m.RecordStore("scan", err)
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to query active subscriptions")
		return nil, &models.StorageError{Op: "scan", Err: err}
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error().Err(err).Ctx(ctx).Msg("failed to close rows after query")
		}
	}(rows)

	var subs []models.Subscription
	for rows.Next() {
		sub := models.Subscription{Active: true}
		if err := rows.Scan(&sub.Identity, &sub.Token); err != nil {
			r.m.RecordStore("scan", err)
			r.log.Error().Err(err).Ctx(ctx).Msg("failed to scan subscription row")
			return nil, &models.StorageError{Op: "scan", Err: err}
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		r.m.RecordStore("scan", err)
		r.log.Error().Err(err).Ctx(ctx).Msg("row iteration error")
		return nil, &models.StorageError{Op: "scan", Err: err}
	}

	r.m.RecordStore("scan", nil)
	r.log.Debug().Ctx(ctx).
		Int("count", len(subs)).
		Dur("duration", time.Since(start)).
		Msg("retrieved active subscriptions")
	return subs, nil
}

// SetPushToken remembers the push token of a user for comment events.
func (r *SubscriptionRepository) SetPushToken(ctx context.Context, userID, token string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO push_tokens (user_id, token, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     token = excluded.token,
		     updated_at = excluded.updated_at`,
		userID, token, time.Now().UTC(),
	)
	r.m.RecordStore("set_push_token", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("user_id", userID).
			Msg("failed to store push token")
		return &models.StorageError{Op: "set_push_token", Key: userID, Err: err}
	}
	return nil
}

func (r *SubscriptionRepository) GetPushToken(ctx context.Context, userID string) (string, bool, error) {
	var token string
	err := r.DB.QueryRowContext(ctx,
		`SELECT token FROM push_tokens WHERE user_id = ?`, userID,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		r.m.RecordStore("get_push_token", nil)
		return "", false, nil
	}
	r.m.RecordStore("get_push_token", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).
			Str("user_id", userID).
			Msg("failed to query push token")
		return "", false, &models.StorageError{Op: "get_push_token", Key: userID, Err: err}
	}
	return token, true, nil
}

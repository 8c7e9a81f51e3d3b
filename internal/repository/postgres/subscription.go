package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

// SubscriptionRepository stores subscriptions and push tokens in postgres.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
	m    *metrics.Metrics
}

func NewSubscriptionRepository(pool *pgxpool.Pool, logger zerolog.Logger, m *metrics.Metrics) *SubscriptionRepository {
	logger = logger.With().Str("component", "PostgresSubscriptionRepository").Logger()
	return &SubscriptionRepository{pool: pool, log: logger, m: m}
}

func (r *SubscriptionRepository) Get(ctx context.Context, identity string) (models.Subscription, bool, error) {
	var sub models.Subscription
	err := r.pool.QueryRow(ctx,
		`SELECT identity, token, active FROM subscriptions WHERE identity = $1`, identity,
	).Scan(&sub.Identity, &sub.Token, &sub.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		r.m.RecordStore("get", nil)
		return models.Subscription{}, false, nil
	}
	r.m.RecordStore("get", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("identity", identity).Msg("failed to query subscription")
		return models.Subscription{}, false, &models.StorageError{Op: "get", Key: identity, Err: err}
	}
	return sub, true, nil
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, identity string, sub models.Subscription) error {
	start := time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (identity, token, active, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (identity) DO UPDATE SET
		     token = EXCLUDED.token,
		     active = EXCLUDED.active,
		     updated_at = EXCLUDED.updated_at`,
		identity, sub.Token, sub.Active,
	)
	r.m.RecordStore("upsert", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("identity", identity).Msg("failed to upsert subscription")
		return &models.StorageError{Op: "upsert", Key: identity, Err: err}
	}

	r.log.Info().Ctx(ctx).
		Str("identity", identity).
		Bool("active", sub.Active).
		Dur("duration", time.Since(start)).
		Msg("subscription stored")
	return nil
}

func (r *SubscriptionRepository) ScanActive(ctx context.Context) ([]models.Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT identity, token FROM subscriptions WHERE active`)
	if err != nil {
		r.m.RecordStore("scan", err)
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to query active subscriptions")
		return nil, &models.StorageError{Op: "scan", Err: err}
	}

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Subscription, error) {
		sub := models.Subscription{Active: true}
		err := row.Scan(&sub.Identity, &sub.Token)
		return sub, err
	})
	r.m.RecordStore("scan", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to read active subscriptions")
		return nil, &models.StorageError{Op: "scan", Err: err}
	}

	r.log.Debug().Ctx(ctx).Int("count", len(subs)).Msg("retrieved active subscriptions")
	return subs, nil
}

func (r *SubscriptionRepository) SetPushToken(ctx context.Context, userID, token string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO push_tokens (user_id, token, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET
		     token = EXCLUDED.token,
		     updated_at = EXCLUDED.updated_at`,
		userID, token,
	)
	r.m.RecordStore("set_push_token", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("user_id", userID).Msg("failed to store push token")
		return &models.StorageError{Op: "set_push_token", Key: userID, Err: err}
	}
	return nil
}

func (r *SubscriptionRepository) GetPushToken(ctx context.Context, userID string) (string, bool, error) {
	var token string
	err := r.pool.QueryRow(ctx, `SELECT token FROM push_tokens WHERE user_id = $1`, userID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		r.m.RecordStore("get_push_token", nil)
		return "", false, nil
	}
	r.m.RecordStore("get_push_token", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("user_id", userID).Msg("failed to query push token")
		return "", false, &models.StorageError{Op: "get_push_token", Key: userID, Err: err}
	}
	return token, true, nil
}

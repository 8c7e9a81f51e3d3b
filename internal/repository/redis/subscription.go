package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

const (
	subscriptionPrefix = "subscriptions/"
	pushTokenPrefix    = "pushTokens/"

	scanBatch = 100
)

// document keeps active raw so that a missing or non-boolean flag reads as inactive.
type document struct {
	Active json.RawMessage `json:"active"`
	Token  string          `json:"token"`
}

func (d document) active() bool {
	return bytes.Equal(bytes.TrimSpace(d.Active), []byte("true"))
}

// SubscriptionRepository keeps path-addressed JSON documents in redis.
type SubscriptionRepository struct {
	client *redis.Client
	log    zerolog.Logger
	m      *metrics.Metrics
}

func NewSubscriptionRepository(client *redis.Client, logger zerolog.Logger, m *metrics.Metrics) *SubscriptionRepository {
	logger = logger.With().Str("component", "RedisSubscriptionRepository").Logger()
	return &SubscriptionRepository{client: client, log: logger, m: m}
}

func subscriptionKey(identity string) string {
	return subscriptionPrefix + identity
}

func (r *SubscriptionRepository) Get(ctx context.Context, identity string) (models.Subscription, bool, error) {
	key := subscriptionKey(identity)

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.m.RecordStore("get", nil)
		return models.Subscription{}, false, nil
	}
	if err != nil {
		r.m.RecordStore("get", err)
		r.log.Error().Err(err).Ctx(ctx).Str("key", key).Msg("failed to read subscription")
		return models.Subscription{}, false, &models.StorageError{Op: "get", Key: identity, Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		r.m.RecordStore("get", err)
		r.log.Error().Err(err).Ctx(ctx).Str("key", key).Msg("failed to decode subscription")
		return models.Subscription{}, false, &models.StorageError{Op: "get", Key: identity, Err: err}
	}

	r.m.RecordStore("get", nil)
	return models.Subscription{Identity: identity, Active: doc.active(), Token: doc.Token}, true, nil
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, identity string, sub models.Subscription) error {
	start := time.Now()
	key := subscriptionKey(identity)

	data, err := json.Marshal(sub)
	if err != nil {
		return &models.StorageError{Op: "upsert", Key: identity, Err: err}
	}

	err = r.client.Set(ctx, key, data, 0).Err()
	r.m.RecordStore("upsert", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("key", key).Msg("failed to write subscription")
		return &models.StorageError{Op: "upsert", Key: identity, Err: err}
	}

	r.log.Info().Ctx(ctx).
		Str("key", key).
		Bool("active", sub.Active).
		Dur("duration", time.Since(start)).
		Msg("subscription stored")
	return nil
}

// ScanActive walks subscriptions/* with SCAN and loads documents with MGET.
// Documents that fail to decode are skipped.
func (r *SubscriptionRepository) ScanActive(ctx context.Context) ([]models.Subscription, error) {
	start := time.Now()

	var keys []string
	iter := r.client.Scan(ctx, 0, subscriptionPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.m.RecordStore("scan", err)
		r.log.Error().Err(err).Ctx(ctx).Msg("failed to scan subscription keys")
		return nil, &models.StorageError{Op: "scan", Err: err}
	}

	var subs []models.Subscription
	for begin := 0; begin < len(keys); begin += scanBatch {
		end := min(begin+scanBatch, len(keys))
		batch := keys[begin:end]

		values, err := r.client.MGet(ctx, batch...).Result()
		if err != nil {
			r.m.RecordStore("scan", err)
			r.log.Error().Err(err).Ctx(ctx).Int("keys", len(batch)).Msg("failed to load subscriptions")
			return nil, &models.StorageError{Op: "scan", Err: err}
		}

		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}
			var doc document
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				r.log.Warn().Err(err).Ctx(ctx).Str("key", batch[i]).Msg("skipping undecodable subscription")
				continue
			}
			if !doc.active() {
				continue
			}
			subs = append(subs, models.Subscription{
				Identity: strings.TrimPrefix(batch[i], subscriptionPrefix),
				Active:   true,
				Token:    doc.Token,
			})
		}
	}

	r.m.RecordStore("scan", nil)
	r.log.Debug().Ctx(ctx).
		Int("scanned", len(keys)).
		Int("count", len(subs)).
		Dur("duration", time.Since(start)).
		Msg("retrieved active subscriptions")
	return subs, nil
}

func (r *SubscriptionRepository) SetPushToken(ctx context.Context, userID, token string) error {
	err := r.client.Set(ctx, pushTokenPrefix+userID, token, 0).Err()
	r.m.RecordStore("set_push_token", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("user_id", userID).Msg("failed to store push token")
		return &models.StorageError{Op: "set_push_token", Key: userID, Err: err}
	}
	return nil
}

func (r *SubscriptionRepository) GetPushToken(ctx context.Context, userID string) (string, bool, error) {
	token, err := r.client.Get(ctx, pushTokenPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		r.m.RecordStore("get_push_token", nil)
		return "", false, nil
	}
	r.m.RecordStore("get_push_token", err)
	if err != nil {
		r.log.Error().Err(err).Ctx(ctx).Str("user_id", userID).Msg("failed to read push token")
		return "", false, &models.StorageError{Op: "get_push_token", Key: userID, Err: err}
	}
	return token, true, nil
}

package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/config"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/repository/postgres"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/repository/redis"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/repository/sqlite"
)

// subscriptionStore is what every backend offers to the notifier, the
// controller and the HTTP handlers.
type subscriptionStore interface {
	Get(ctx context.Context, identity string) (models.Subscription, bool, error)
	Upsert(ctx context.Context, identity string, sub models.Subscription) error
	ScanActive(ctx context.Context) ([]models.Subscription, error)
	SetPushToken(ctx context.Context, userID, token string) error
	GetPushToken(ctx context.Context, userID string) (string, bool, error)
}

// openStore connects the configured backend and returns it with its closer.
func openStore(
	ctx context.Context,
	cfg config.Store,
	l zerolog.Logger,
	m *metrics.Metrics,
) (subscriptionStore, func() error, error) {
	switch cfg.Driver {
	case config.StoreSqlite:
		db, err := sqlite.Open(ctx, cfg.Sqlite.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		m.RegisterDB(db, cfg.Sqlite.Source)
		return sqlite.NewSubscriptionRepository(db, l, m), db.Close, nil

	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr: cfg.Redis.Address(),
			DB:   cfg.Redis.DbType,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return redis.NewSubscriptionRepository(client, l, m), client.Close, nil

	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		m.RegisterPool(func() metrics.PoolStats { return pool.Stat() }, "postgres")
		closer := func() error {
			pool.Close()
			return nil
		}
		return postgres.NewSubscriptionRepository(pool, l, m), closer, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/metrics"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
	"github.com/Nazarious-ucu/weather-push-notifier/internal/repository/sqlite"
)

func newRepo(t *testing.T) *sqlite.SubscriptionRepository {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "subscriptions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.Migrate(db))

	return sqlite.NewSubscriptionRepository(db, zerolog.Nop(), metrics.NewMetrics("test"))
}

func TestGet_NeverSubscribed(t *testing.T) {
	repo := newRepo(t)

	sub, found, err := repo.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, models.Subscription{}, sub)
}

func TestUpsert_LastWriteWins(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "abcd", models.Subscription{Active: true, Token: "ExponentPushToken[abcd]"}))
	require.NoError(t, repo.Upsert(ctx, "abcd", models.Subscription{Active: false, Token: "ExponentPushToken[abcd]"}))

	sub, found, err := repo.Get(ctx, "abcd")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.Subscription{Identity: "abcd", Active: false, Token: "ExponentPushToken[abcd]"}, sub)
}

func TestScanActive_OnlyActive(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "A", models.Subscription{Active: true, Token: "ExponentPushToken[A]"}))
	require.NoError(t, repo.Upsert(ctx, "B", models.Subscription{Active: false, Token: "ExponentPushToken[B]"}))
	require.NoError(t, repo.Upsert(ctx, "C", models.Subscription{Active: true, Token: "ExponentPushToken[C]"}))

	subs, err := repo.ScanActive(ctx)
	require.NoError(t, err)

	identities := make([]string, 0, len(subs))
	for _, s := range subs {
		assert.True(t, s.Active)
		identities = append(identities, s.Identity)
	}
	assert.ElementsMatch(t, []string{"A", "C"}, identities)
}

func TestScanActive_Empty(t *testing.T) {
	repo := newRepo(t)

	subs, err := repo.ScanActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestPushTokens(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, found, err := repo.GetPushToken(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SetPushToken(ctx, "user-1", "ExponentPushToken[old]"))
	require.NoError(t, repo.SetPushToken(ctx, "user-1", "ExponentPushToken[new]"))

	token, found, err := repo.GetPushToken(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ExponentPushToken[new]", token)
}

func TestClosedDatabase_StorageError(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.DB.Close())

	_, _, err := repo.Get(context.Background(), "abcd")

	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "get", storageErr.Op)
	assert.Equal(t, "abcd", storageErr.Key)

	err = repo.Upsert(context.Background(), "abcd", models.Subscription{Active: true})
	assert.ErrorAs(t, err, &storageErr)

	_, err = repo.ScanActive(context.Background())
	assert.ErrorAs(t, err, &storageErr)
}

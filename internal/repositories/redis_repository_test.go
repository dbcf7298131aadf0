package repository_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/config"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLoginRateLimit(t *testing.T) {
	ctx := t.Context()
	fixedNow := time.Unix(1_700_000_100, 0)
	clock := func() time.Time { return fixedNow }

	cfg := &config.Config{RateConfig: config.RateConfig{MaxAttempts: 3, WindowSize: 60 * time.Second}}
	key := "admin_login_attempts:203.0.113.7"
	now := fixedNow.Unix()
	windowStart := fmt.Sprintf("%d", now-60)

	expectPipeline := func(mock redismock.ClientMock, count int64) {
		mock.ExpectZRemRangeByScore(key, "0", windowStart).SetVal(0)
		mock.ExpectZAdd(key, redis.Z{Score: float64(now), Member: now}).SetVal(1)
		mock.ExpectZCard(key).SetVal(count)
		mock.ExpectExpire(key, 60*time.Second).SetVal(true)
	}

	t.Run("Allowed within window", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		repo := repository.NewRateLimitRepo(client, cfg, repository.WithClock(clock))
		expectPipeline(mock, 2)

		// Act
		allowed, remaining, retryAfter, err := repo.CheckLoginRateLimit(ctx, "203.0.113.7")

		// Assert
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
		assert.Zero(t, retryAfter)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Blocked after max attempts", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		repo := repository.NewRateLimitRepo(client, cfg, repository.WithClock(clock))
		expectPipeline(mock, 4)
		mock.ExpectZRangeArgsWithScores(redis.ZRangeArgs{Key: key, Start: 0, Stop: 0}).
			SetVal([]redis.Z{{Score: float64(now - 45), Member: fmt.Sprintf("%d", now-45)}})

		// Act
		allowed, remaining, retryAfter, err := repo.CheckLoginRateLimit(ctx, "203.0.113.7")

		// Assert
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Zero(t, remaining)
		assert.Equal(t, 15, retryAfter)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pipeline failure", func(t *testing.T) {
		// Arrange
		client, mock := redismock.NewClientMock()
		repo := repository.NewRateLimitRepo(client, cfg, repository.WithClock(clock))
		mock.ExpectZRemRangeByScore(key, "0", windowStart).SetErr(errors.New("redis down"))

		// Act
		allowed, _, _, err := repo.CheckLoginRateLimit(ctx, "203.0.113.7")

		// Assert
		require.Error(t, err)
		assert.False(t, allowed)
		assert.Contains(t, err.Error(), "redis pipeline error")
	})
}

func TestPreferenceRepository(t *testing.T) {
	ctx := t.Context()
	userID := "a3c1d8a2-7e0e-4f3b-9d7e-5b1c2f3d4e5f"
	key := "currency:pref:" + userID

	t.Run("Get stored preference", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := repository.NewPreferenceRepo(client, 0)
		mock.ExpectGet(key).SetVal("aud")

		currency, found, err := repo.GetCurrency(ctx, userID)

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "AUD", currency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing preference", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := repository.NewPreferenceRepo(client, 0)
		mock.ExpectGet(key).RedisNil()

		currency, found, err := repo.GetCurrency(ctx, userID)

		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, currency)
	})

	t.Run("Read failure", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := repository.NewPreferenceRepo(client, 0)
		mock.ExpectGet(key).SetErr(errors.New("timeout"))

		_, found, err := repo.GetCurrency(ctx, userID)

		require.Error(t, err)
		assert.False(t, found)
	})

	t.Run("Set normalises code", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		repo := repository.NewPreferenceRepo(client, 24*time.Hour)
		mock.ExpectSet(key, "PKR", 24*time.Hour).SetVal("OK")

		err := repo.SetCurrency(ctx, userID, "pkr")

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

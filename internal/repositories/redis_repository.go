package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/redis/go-redis/v9"
)

type RateLimitRepository interface {
	// CheckLoginRateLimit returns isAllowed, attempts left, seconds to wait.
	CheckLoginRateLimit(ctx context.Context, clientKey string) (bool, int, int, error)
}

// PreferenceRepository persists a user's chosen display currency.
type PreferenceRepository interface {
	GetCurrency(ctx context.Context, userID string) (string, bool, error)
	SetCurrency(ctx context.Context, userID, currency string) error
}

type redisRepository struct {
	client *redis.Client
	cfg    *config.Config
	now    func() time.Time
}

type RateLimitOption func(*redisRepository)

// WithClock replaces the wall clock used to place attempts in the window.
func WithClock(now func() time.Time) RateLimitOption {
	return func(r *redisRepository) {
		r.now = now
	}
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {

	redisURL := cfg.RedisConnect.GetDSN()
	slog.Info("Connecting to Redis", slog.String("url", fmt.Sprintf("redis://%s:<password>@%s:%s", cfg.RedisConnect.Username, cfg.RedisConnect.Host, cfg.RedisConnect.Port)))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DB = cfg.RedisConnect.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("✅ Successfully connected to Redis")
	return client, nil

}

func NewRateLimitRepo(client *redis.Client, cfg *config.Config, opts ...RateLimitOption) RateLimitRepository {
	r := &redisRepository{client: client, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *redisRepository) CheckLoginRateLimit(ctx context.Context, clientKey string) (bool, int, int, error) {

	logger := middleware.LoggerFromContext(ctx)

	key := fmt.Sprintf("admin_login_attempts:%s", clientKey)

	now := r.now().Unix()

	// only attempts after windowStart are counted
	windowStart := now - int64(r.cfg.RateConfig.WindowSize.Seconds())

	pipe := r.client.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})

	count := pipe.ZCard(ctx, key)

	pipe.Expire(ctx, key, r.cfg.RateConfig.WindowSize)

	_, err := pipe.Exec(ctx)
	if err != nil {
		logger.Error("Redis pipeline execution failed for rate limit", slog.String("key", key), slog.Any("error", err))
		return false, 0, 0, fmt.Errorf("redis pipeline error for rate limit check: %w", err)
	}

	attempts := count.Val()
	remaining := r.cfg.RateConfig.MaxAttempts - attempts

	if attempts > r.cfg.RateConfig.MaxAttempts {

		scores, err := r.client.ZRangeArgsWithScores(ctx, redis.ZRangeArgs{
			Key: key, Start: 0, Stop: 0,
		}).Result()
		if err != nil || len(scores) == 0 {
			logger.Error("Failed to get oldest attempt time for rate limit", slog.String("key", key), slog.Any("error", err))
			return false, 0, int(r.cfg.RateConfig.WindowSize.Seconds()), fmt.Errorf("failed to get oldest attempt time: %w", err)
		}

		oldestTimestamp := int64(scores[0].Score)

		retryAfter := max((oldestTimestamp+int64(r.cfg.RateConfig.WindowSize.Seconds()))-now, 0)

		logger.Warn("Admin login rate limit exceeded", slog.String("client", clientKey), slog.Int64("attempts", attempts))
		return false, 0, int(retryAfter), nil
	}

	logger.Debug("Rate limit check passed", slog.String("client", clientKey), slog.Int64("attempts", attempts), slog.Int64("remaining", remaining))
	return true, int(remaining), 0, nil
}

type preferenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPreferenceRepo stores preferences under currency:pref:<userId>. A zero
// ttl keeps them indefinitely, like browser local storage.
func NewPreferenceRepo(client *redis.Client, ttl time.Duration) PreferenceRepository {
	return &preferenceRepository{client: client, ttl: ttl}
}

func preferenceKey(userID string) string {
	return fmt.Sprintf("currency:pref:%s", userID)
}

func (r *preferenceRepository) GetCurrency(ctx context.Context, userID string) (string, bool, error) {

	value, err := r.client.Get(ctx, preferenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("failed to read currency preference: %w", err)
	}

	return strings.ToUpper(value), true, nil
}

func (r *preferenceRepository) SetCurrency(ctx context.Context, userID, currency string) error {

	if err := r.client.Set(ctx, preferenceKey(userID), strings.ToUpper(currency), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store currency preference: %w", err)
	}

	return nil
}

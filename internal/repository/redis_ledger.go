package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"orderbot/internal/config"
)

const ledgerKeyPrefix = "orderbot:order:"

// RedisLedger records order creation per (session, turn) in Redis so that a
// replayed request is refused across processes.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(cfg config.RedisConfig, logger zerolog.Logger) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to Redis order ledger")
	return NewRedisLedgerWithClient(client, cfg.LedgerTTL, logger), nil
}

// NewRedisLedgerWithClient wraps an existing client.
func NewRedisLedgerWithClient(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{client: client, ttl: ttl, logger: logger}
}

// Claim returns true the first time key is seen within the ledger's TTL.
func (l *RedisLedger) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, ledgerKeyPrefix+key, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim order key: %w", err)
	}
	if !ok {
		l.logger.Info().Str("key", key).Msg("order already claimed for this turn")
	}
	return ok, nil
}

// Release deletes the claim for key.
func (l *RedisLedger) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, ledgerKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release order key: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

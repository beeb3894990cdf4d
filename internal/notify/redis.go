package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/futebolada/internal/dependencies/clock"
)

// DefaultPacerKey is the shared key every instance competes for
const DefaultPacerKey = "futebolada:notify:pacer"

// retryDelay is how long to wait when the key vanished between SET and PTTL
const retryDelay = 50 * time.Millisecond

// RedisConfig holds Redis connection and pacing settings
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	Key      string
	Interval time.Duration
}

// DefaultRedisConfig returns defaults for a pacer at the given interval
func DefaultRedisConfig(url string, interval time.Duration) RedisConfig {
	return RedisConfig{
		URL:          url,
		PoolSize:     4,
		MinIdleConns: 1,
		Key:          DefaultPacerKey,
		Interval:     interval,
	}
}

// RedisPacer spaces sends one interval apart across every process sharing the Redis key.
// Holding the key means owning the current send slot; it expires after the interval.
type RedisPacer struct {
	client   *redis.Client
	clock    clock.Clock
	key      string
	interval time.Duration
}

// NewRedisPacer connects to Redis and returns a pacer
func NewRedisPacer(cfg RedisConfig, clock clock.Clock) (*RedisPacer, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewRedisPacerWithClient(client, cfg.Key, cfg.Interval, clock), nil
}

// NewRedisPacerWithClient creates a pacer with an existing client (for testing)
func NewRedisPacerWithClient(client *redis.Client, key string, interval time.Duration, clock clock.Clock) *RedisPacer {
	if key == "" {
		key = DefaultPacerKey
	}
	return &RedisPacer{
		client:   client,
		clock:    clock,
		key:      key,
		interval: interval,
	}
}

// Close closes the Redis connection
func (p *RedisPacer) Close() error {
	return p.client.Close()
}

// Wait blocks until this process claims the shared send slot
func (p *RedisPacer) Wait(ctx context.Context) error {
	token := uuid.NewString()
	for {
		ok, err := p.client.SetNX(ctx, p.key, token, p.interval).Result()
		if err != nil {
			return fmt.Errorf("claiming send slot: %w", err)
		}
		if ok {
			return nil
		}

		ttl, err := p.client.PTTL(ctx, p.key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("reading send slot ttl: %w", err)
		}
		if ttl <= 0 {
			ttl = retryDelay
		}

		select {
		case <-p.clock.After(ttl):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

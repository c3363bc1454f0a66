package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gatekeeper/internal/models"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces attempt log keys in a shared redis instance.
const redisKeyPrefix = "gatekeeper:attempts:"

// RedisStore implements AttemptStore using a sorted set per identifier,
// scored by the attempt timestamp in Unix milliseconds. Counting a trailing
// window is a ZCOUNT over the score range; appends and the per-key expiry are
// pipelined, which narrows (but does not eliminate) the count-then-append
// race window.
type RedisStore struct {
	client  *redis.Client
	keepFor time.Duration
}

// NewRedisStore creates a new redis attempt store and verifies connectivity.
func NewRedisStore(config Config) (*RedisStore, error) {
	if config.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required for redis storage")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		PoolSize: config.RedisPoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client: client,
		// Per-key TTL safety net; the janitor remains the primary cleanup.
		keepFor: 48 * time.Hour,
	}, nil
}

func redisKey(identifier string) string {
	return redisKeyPrefix + identifier
}

// CountSince returns the number of attempts for the identifier at or after
// the given time.
func (r *RedisStore) CountSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	min := strconv.FormatInt(since.UnixMilli(), 10)
	count, err := r.client.ZCount(ctx, redisKey(identifier), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

// Append records one accepted attempt. The member is the attempt ID so that
// simultaneous appends at the same millisecond never collapse into one entry.
func (r *RedisStore) Append(ctx context.Context, attempt *models.Attempt) error {
	key := redisKey(attempt.Identifier)
	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(attempt.CreatedAt.UnixMilli()),
		Member: attempt.ID,
	})
	pipe.Expire(ctx, key, r.keepFor)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append attempt: %w", err)
	}
	return nil
}

// PurgeBefore trims entries older than the cutoff from every attempt key.
func (r *RedisStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	max := strconv.FormatInt(cutoff.UnixMilli()-1, 10)

	var purged int64
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		removed, err := r.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", max).Result()
		if err != nil {
			return purged, fmt.Errorf("failed to purge attempts: %w", err)
		}
		purged += removed
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("failed to scan attempt keys: %w", err)
	}
	return purged, nil
}

// Ping verifies redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Redis-backed BlobStore. Reads fail soft: an unreachable server
// is reported as a miss so a cold start never blocks on persistence. Writes
// return their error so the flusher can log it.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	// Prefix is prepended to every key.
	Prefix string `yaml:"prefix" env:"PREFIX"`
	// TTL expires stored blobs. Zero keeps them until overwritten.
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// NewRedis creates a Redis BlobStore.
func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{rdb: rdb, prefix: cfg.Prefix, ttl: cfg.TTL}
}

func (r *Redis) LoadBlob(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		// Fail soft: treat connection errors as a miss.
		return "", false, nil
	}
	return val, true, nil
}

func (r *Redis) SaveBlob(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("persist: redis save %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

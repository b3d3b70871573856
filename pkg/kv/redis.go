package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JaimeStill/specimen/pkg/lifecycle"
)

// RedisStore is a Store backed by a Redis server. It owns its client and
// closes it on shutdown.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	logger *slog.Logger
	ready  atomic.Bool
}

// NewRedis creates a Redis-backed Store. The client connects lazily;
// Start verifies connectivity during startup.
func NewRedis(cfg *Config, logger *slog.Logger) *RedisStore {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeoutDuration(),
	})

	return &RedisStore{
		rdb:    rdb,
		prefix: cfg.Prefix,
		logger: logger.With("system", "kv", "backend", "redis"),
	}
}

// Start registers a connectivity check at startup and client close at shutdown.
func (r *RedisStore) Start(lc *lifecycle.Coordinator) error {
	lc.Track("redis", r)

	lc.OnStartup(func() {
		if err := r.rdb.Ping(lc.Context()).Err(); err != nil {
			r.logger.Error("redis ping failed", "error", err)
			return
		}
		r.ready.Store(true)
		r.logger.Info("redis connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		r.ready.Store(false)
		if err := r.rdb.Close(); err != nil {
			r.logger.Error("redis close failed", "error", err)
		}
	})

	return nil
}

// Ready reports whether the startup ping succeeded.
func (r *RedisStore) Ready() bool {
	return r.ready.Load()
}

func (r *RedisStore) redisKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	v, err := r.rdb.Get(ctx, r.redisKey(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := r.rdb.Set(ctx, r.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := r.rdb.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Package cache provides the Redis client and JSON cache helpers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"posterboard/internal/observability"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// errorCounter counts failed redis commands by command name. redis.Nil is a
// miss, not a failure.
type errorCounter struct{}

func countFailure(label string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(label).Inc()
	}
}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func redisOptions(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL %q: %w", addr, err)
	}
	return opts, nil
}

// NewRedis connects to addr, given as host:port or a redis:// URL, and pings
// it. On error no client is returned and the caller decides whether the
// board runs without fan-out, cooldown and caching.
func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redisOptions(addr)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	client.AddHook(errorCounter{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	slog.InfoContext(ctx, "redis ready", slog.String("addr", opts.Addr))
	return client, nil
}

// Store is a JSON cache over Redis. A Store with a nil client is a no-op
// cache that always misses.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) disabled() bool { return s == nil || s.client == nil }

// GetJSON decodes key into dest. A miss is (false, nil).
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if s.disabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if s.disabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

// Delete drops keys. Missing keys are fine.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if s.disabled() || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must write into
// dest), then stores the result with ttl. Cache failures never fail the read.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		slog.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

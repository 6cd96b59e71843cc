// Package cache stores solve outputs in Redis keyed by a hash of their input.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

// KeyPrefix namespaces every cache key
const KeyPrefix = "roster:solve:"

// DefaultTTL applies when no TTL is configured
const DefaultTTL = time.Hour

// ErrCacheMiss is returned when no cached output exists for a key
var ErrCacheMiss = errors.New("cache miss")

// NewRedis returns a configured Redis client
func NewRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	return client, nil
}

// ResultCache caches solve outputs. A nil client disables it: every Get misses and Set is a no-op.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New constructs a result cache
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is attached
func (c *ResultCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key returns the cache key of an input solved by the named solver with the given engine
// options. The key is the SHA-256 of the canonical JSON encoding, so equal inputs under equal
// options always share a key.
func Key(solverName string, opts solver.Options, in solver.Input) (string, error) {
	payload, err := json.Marshal(struct {
		Solver  string         `json:"solver"`
		Options solver.Options `json:"options"`
		Input   solver.Input   `json:"input"`
	}{solverName, opts, in})
	if err != nil {
		return "", fmt.Errorf("failed to marshal input for cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}

// Get retrieves a cached output
func (c *ResultCache) Get(ctx context.Context, key string) (*solver.Output, error) {
	if !c.Enabled() {
		return nil, ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var out solver.Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	c.logger.Debug("Solve cache hit", zap.String("key", key), zap.String("run_id", out.RunID))
	return &out, nil
}

// Set stores an output under key
func (c *ResultCache) Set(ctx context.Context, key string, out *solver.Output) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Close releases the underlying Redis connection if present
func (c *ResultCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

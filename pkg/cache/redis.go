package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTier is the shared tier backed by redis. Entries are stored as JSON
// with a PX expiry equal to their remaining lifetime.
type RedisTier struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisTier connects to the redis server at rawURL. An unreachable server
// is logged, not returned: the tier starts degraded and recovers once the
// server answers.
func NewRedisTier(rawURL, keyPrefix string) (*RedisTier, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis shared cache unreachable at startup",
			"addr", opts.Addr,
			"error", err,
		)
	} else {
		slog.Info("redis shared cache initialized",
			"addr", opts.Addr,
			"db", opts.DB,
			"key_prefix", keyPrefix,
		)
	}

	return NewRedisTierFromClient(client, keyPrefix), nil
}

// NewRedisTierFromClient wraps an existing client.
func NewRedisTierFromClient(client *redis.Client, keyPrefix string) *RedisTier {
	return &RedisTier{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Name implements SharedTier.
func (r *RedisTier) Name() string {
	return "redis"
}

func (r *RedisTier) key(fingerprint string) string {
	return r.keyPrefix + fingerprint
}

// Get implements SharedTier.
func (r *RedisTier) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	e, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	if e.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return e, nil
}

// Set implements SharedTier. An entry that is already expired is not written.
func (r *RedisTier) Set(ctx context.Context, e *Entry) error {
	ttl := e.ExpiresAt().Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	data, err := encodeEntry(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, r.key(e.Fingerprint), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements SharedTier.
func (r *RedisTier) Delete(ctx context.Context, fingerprint string) error {
	if err := r.client.Del(ctx, r.key(fingerprint)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close implements SharedTier.
func (r *RedisTier) Close() error {
	return r.client.Close()
}

// Package cache holds the Redis-backed classification cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const keyPrefix = "classification:"

// DefaultTTL is how long a classification stays cached
const DefaultTTL = 30 * 24 * time.Hour

// ClassificationCache stores msgpack-encoded ticker classifications in Redis
type ClassificationCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewClassificationCache creates a cache over client. A non-positive ttl uses DefaultTTL.
func NewClassificationCache(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *ClassificationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ClassificationCache{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "classification_cache").Logger(),
	}
}

func key(ticker string) string {
	return keyPrefix + ticker
}

// Get returns the cached classification. The boolean is false on a miss.
func (c *ClassificationCache) Get(ctx context.Context, ticker string) (models.Classification, bool, error) {
	raw, err := c.client.Get(ctx, key(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Classification{}, false, nil
	}
	if err != nil {
		return models.Classification{}, false, fmt.Errorf("failed to read classification for %s: %w", ticker, err)
	}

	cls, err := decode(raw)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("dropping undecodable cache entry")
		if err := c.client.Del(ctx, key(ticker)).Err(); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("failed to drop undecodable cache entry")
		}
		return models.Classification{}, false, nil
	}
	return cls, true, nil
}

// Set caches a classification for the configured TTL
func (c *ClassificationCache) Set(ctx context.Context, cls models.Classification) error {
	raw, err := encode(cls)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key(cls.Ticker), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache classification for %s: %w", cls.Ticker, err)
	}
	return nil
}

// Invalidate removes a ticker from the cache
func (c *ClassificationCache) Invalidate(ctx context.Context, ticker string) error {
	if err := c.client.Del(ctx, key(ticker)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate classification for %s: %w", ticker, err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *ClassificationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func encode(cls models.Classification) ([]byte, error) {
	raw, err := msgpack.Marshal(&cls)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classification for %s: %w", cls.Ticker, err)
	}
	return raw, nil
}

func decode(raw []byte) (models.Classification, error) {
	var cls models.Classification
	if err := msgpack.Unmarshal(raw, &cls); err != nil {
		return models.Classification{}, fmt.Errorf("failed to decode classification: %w", err)
	}
	return cls, nil
}

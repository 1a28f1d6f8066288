package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"slidestat/internal/model"
)

const keyPrefix = "slidestat:result:"

// ResultCache stores computed results keyed by a digest of the request that
// produced them. Results are pure functions of the request, so entries only
// expire, they are never invalidated.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(addr, password string, db int, ttl time.Duration) *ResultCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewResultCacheWithClient(client, ttl)
}

func NewResultCacheWithClient(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ResultCache) Stop() error {
	return c.client.Close()
}

func (c *ResultCache) Save(ctx context.Context, req model.Request, res model.Result) error {
	key, err := Key(req)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Fetch returns the cached result for req, or nil when there is none.
func (c *ResultCache) Fetch(ctx context.Context, req model.Request) (*model.Result, error) {
	key, err := Key(req)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var res model.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}

// Key derives the cache key for req.
func Key(req model.Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(payload)
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// Package cache provides a redis read-through layer in front of the
// postgres idempotency log. Postgres stays the authority: records are only
// ever written there, inside the business transaction. Redis holds replicas
// backfilled on lookup, so hot replays skip the database entirely. When
// redis is down the layer degrades to postgres-only.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinvault/coinvault/internal/application/ports"
	"github.com/coinvault/coinvault/internal/domain/entities"
)

// Compile-time check
var _ ports.IdempotencyCache = (*ReadThroughIdempotencyCache)(nil)

const keyPrefix = "coinvault:idem:"

// cachedRecord is the redis value shape.
type cachedRecord struct {
	IdempotencyKey string    `json:"idempotency_key"`
	RequestPath    string    `json:"request_path"`
	RequestMethod  string    `json:"request_method"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   []byte    `json:"response_body"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// ReadThroughIdempotencyCache decorates the authoritative store with a
// redis fast path.
type ReadThroughIdempotencyCache struct {
	authority ports.IdempotencyCache
	client    *redis.Client
	logger    *slog.Logger
}

// NewReadThroughIdempotencyCache wraps the authoritative cache. client may
// be nil, in which case every call passes straight through.
func NewReadThroughIdempotencyCache(authority ports.IdempotencyCache, client *redis.Client, logger *slog.Logger) *ReadThroughIdempotencyCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadThroughIdempotencyCache{
		authority: authority,
		client:    client,
		logger:    logger,
	}
}

// Lookup checks redis first and falls back to postgres, backfilling redis
// with the record's remaining TTL on a database hit.
func (c *ReadThroughIdempotencyCache) Lookup(ctx context.Context, key string) (*entities.IdempotencyRecord, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
		if err == nil {
			var cached cachedRecord
			if unmarshalErr := json.Unmarshal(raw, &cached); unmarshalErr == nil {
				rec := &entities.IdempotencyRecord{
					IdempotencyKey: cached.IdempotencyKey,
					RequestPath:    cached.RequestPath,
					RequestMethod:  cached.RequestMethod,
					ResponseStatus: cached.ResponseStatus,
					ResponseBody:   cached.ResponseBody,
					CreatedAt:      cached.CreatedAt,
					ExpiresAt:      cached.ExpiresAt,
				}
				if !rec.IsExpired(time.Now().UTC()) {
					return rec, nil
				}
			}
		} else if err != redis.Nil {
			c.logger.WarnContext(ctx, "redis idempotency lookup failed, falling back to store", "error", err)
		}
	}

	rec, err := c.authority.Lookup(ctx, key)
	if err != nil || rec == nil {
		return rec, err
	}

	c.backfill(ctx, rec)
	return rec, nil
}

// Record writes to the authority only. The redis replica appears lazily on
// the next Lookup miss; writing it here would race the surrounding
// transaction's commit.
func (c *ReadThroughIdempotencyCache) Record(ctx context.Context, rec *entities.IdempotencyRecord) error {
	return c.authority.Record(ctx, rec)
}

// DeleteExpired delegates to the authority. Redis replicas expire on their
// own TTL.
func (c *ReadThroughIdempotencyCache) DeleteExpired(ctx context.Context) (int64, error) {
	return c.authority.DeleteExpired(ctx)
}

func (c *ReadThroughIdempotencyCache) backfill(ctx context.Context, rec *entities.IdempotencyRecord) {
	if c.client == nil {
		return
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(cachedRecord{
		IdempotencyKey: rec.IdempotencyKey,
		RequestPath:    rec.RequestPath,
		RequestMethod:  rec.RequestMethod,
		ResponseStatus: rec.ResponseStatus,
		ResponseBody:   rec.ResponseBody,
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.ExpiresAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+rec.IdempotencyKey, raw, ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "redis idempotency backfill failed", "error", err)
	}
}

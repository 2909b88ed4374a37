package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

const (
	cachePrefix        = "wiki:cr:"
	cacheGenerationKey = cachePrefix + "gen"
)

// CachedChangeRequestRepository is a read-through Redis cache in front of a
// change-request store. Every key carries a generation counter that each write
// bumps, so entries filled from a read that overlapped a write are never served.
// Redis failures fall back to the store.
type CachedChangeRequestRepository struct {
	inner  ChangeRequestRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedChangeRequestRepository wraps inner with a cache on client.
func NewCachedChangeRequestRepository(inner ChangeRequestRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedChangeRequestRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedChangeRequestRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachedChangeRequestRepository) idKey(gen int64, id string) string {
	return fmt.Sprintf("%sid:%d:%s", cachePrefix, gen, id)
}

func (c *CachedChangeRequestRepository) listKey(gen int64, filter ChangeRequestFilter) string {
	return fmt.Sprintf("%slist:%d:%s:%s", cachePrefix, gen, filter.EntityType, filter.Status)
}

func (c *CachedChangeRequestRepository) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, cacheGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CachedChangeRequestRepository) List(ctx context.Context, filter ChangeRequestFilter) ([]domain.ChangeRequest, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("change-request cache unavailable", zap.Error(err))
		return c.inner.List(ctx, filter)
	}
	key := c.listKey(gen, filter)

	var cached []domain.ChangeRequest
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	result, err := c.inner.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, result)
	return result, nil
}

func (c *CachedChangeRequestRepository) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("change-request cache unavailable", zap.Error(err))
		return c.inner.GetByID(ctx, id)
	}
	key := c.idKey(gen, id)

	var cached domain.ChangeRequest
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	req, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, req)
	return req, nil
}

func (c *CachedChangeRequestRepository) Create(ctx context.Context, req *domain.ChangeRequest) error {
	if err := c.inner.Create(ctx, req); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedChangeRequestRepository) SetApproved(ctx context.Context, req domain.ChangeRequest) error {
	err := c.inner.SetApproved(ctx, req)
	c.invalidate(ctx)
	return err
}

func (c *CachedChangeRequestRepository) SetRejected(ctx context.Context, req domain.ChangeRequest) error {
	err := c.inner.SetRejected(ctx, req)
	c.invalidate(ctx)
	return err
}

func (c *CachedChangeRequestRepository) Delete(ctx context.Context, id string) error {
	err := c.inner.Delete(ctx, id)
	c.invalidate(ctx)
	return err
}

func (c *CachedChangeRequestRepository) load(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("change-request cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedChangeRequestRepository) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("change-request cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate retires every entry filled under the current generation; they
// expire with their TTL.
func (c *CachedChangeRequestRepository) invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, cacheGenerationKey).Err(); err != nil {
		c.logger.Warn("change-request cache invalidation failed", zap.Error(err))
	}
}

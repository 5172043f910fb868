package webinars

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
)

const cacheKeyPrefix = "webinars:presenter:"

// ListCache caches a presenter's unfiltered webinar list in Redis. Writes
// that change the list (create, delete, status change) invalidate the key so
// the presenter's view refreshes immediately.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewListCache creates a webinar list cache.
func NewListCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ListCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached list for a presenter, or nil on miss.
func (c *ListCache) Get(ctx context.Context, presenterID uuid.UUID) ([]models.Webinar, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+presenterID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var list []models.Webinar
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

// Set stores the list for a presenter. Cache errors are logged and swallowed.
func (c *ListCache) Set(ctx context.Context, presenterID uuid.UUID, list []models.Webinar) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+presenterID.String(), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("webinar list cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached list for a presenter.
func (c *ListCache) Invalidate(ctx context.Context, presenterID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKeyPrefix+presenterID.String()).Err(); err != nil {
		c.logger.Warn("webinar list cache invalidate failed", zap.Error(err))
	}
}

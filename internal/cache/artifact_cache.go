package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ArtifactCache keeps rendered game artifacts hot for the play endpoint.
// All methods are best-effort; a cache miss or Redis failure never fails a
// request.
type ArtifactCache interface {
	Get(ctx context.Context, buildID uuid.UUID) (string, bool)
	Set(ctx context.Context, buildID uuid.UUID, html string)
	Invalidate(ctx context.Context, buildID uuid.UUID)
}

var _ ArtifactCache = (*redisArtifactCache)(nil)

type redisArtifactCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisArtifactCache creates a Redis-backed artifact cache.
func NewRedisArtifactCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) ArtifactCache {
	return &redisArtifactCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisArtifactCache"),
	}
}

func artifactKey(buildID uuid.UUID) string {
	return fmt.Sprintf("artifact:%s", buildID)
}

func (c *redisArtifactCache) Get(ctx context.Context, buildID uuid.UUID) (string, bool) {
	html, err := c.client.Get(ctx, artifactKey(buildID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Artifact cache read failed", zap.Error(err), zap.String("buildID", buildID.String()))
		}
		return "", false
	}
	return html, true
}

func (c *redisArtifactCache) Set(ctx context.Context, buildID uuid.UUID, html string) {
	if err := c.client.Set(ctx, artifactKey(buildID), html, c.ttl).Err(); err != nil {
		c.logger.Warn("Artifact cache write failed", zap.Error(err), zap.String("buildID", buildID.String()))
	}
}

func (c *redisArtifactCache) Invalidate(ctx context.Context, buildID uuid.UUID) {
	if err := c.client.Del(ctx, artifactKey(buildID)).Err(); err != nil {
		c.logger.Warn("Artifact cache invalidation failed", zap.Error(err), zap.String("buildID", buildID.String()))
	}
}

package directions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"waygroup/internal/models"
)

// RouteCache stores fetched routes in Redis keyed by origin, destination and
// travel mode. Cache errors degrade to a miss.
type RouteCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRouteCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RouteCache {
	return &RouteCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RouteCache) Get(ctx context.Context, key string) (*models.NavigationRoute, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug().Err(err).Str("key", key).Msg("route cache read failed")
		}
		return nil, false
	}

	var route models.NavigationRoute
	if err := json.Unmarshal([]byte(raw), &route); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("route cache entry corrupt")
		return nil, false
	}

	return &route, true
}

func (c *RouteCache) Put(ctx context.Context, key string, route *models.NavigationRoute) {
	raw, err := json.Marshal(route)
	if err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("could not marshal route for cache")
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("route cache write failed")
	}
}

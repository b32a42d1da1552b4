package predictions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/transit"
)

// CacheStore is the slice of gocache the prediction cache needs
type CacheStore interface {
	Set(ctx context.Context, key any, object string, options ...store.Option) error
	Delete(ctx context.Context, key any) error
}

// Cache pushes prediction diffs to the read-heavy store the API layer serves
// from. The core only ever writes, minimally: unchanged predictions are left
// alone
type Cache struct {
	store CacheStore
}

func NewCache(cacheStore CacheStore) *Cache {
	return &Cache{store: cacheStore}
}

// NewRedisCache builds the production cache on Redis with the same gocache
// layering the rest of the platform uses
func NewRedisCache(client redis.UniversalClient) *Cache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(90*time.Minute))

	return &Cache{store: cache.New[string](redisStore)}
}

func cacheKey(p *transit.Prediction) string {
	return "prediction:" + p.Key()
}

// Update diffs the old prediction list against the new one, setting changed
// entries & deleting vanished ones
func (c *Cache) Update(ctx context.Context, old []transit.Prediction, updated []transit.Prediction) {
	previous := map[string]transit.Prediction{}
	for _, p := range old {
		previous[p.Key()] = p
	}

	for i := range updated {
		p := updated[i]

		if existing, ok := previous[p.Key()]; ok {
			delete(previous, p.Key())

			if existing.PredictedTime.Equal(p.PredictedTime) {
				continue
			}
		}

		encoded, _ := json.Marshal(p)

		if err := c.store.Set(ctx, cacheKey(&p), string(encoded)); err != nil {
			log.Error().Err(err).Str("vehicle", p.VehicleID).Str("stop", p.StopID).Msg("Failed to cache prediction")
		}
	}

	// Whatever remains no longer has a fresh counterpart
	for _, p := range previous {
		if err := c.store.Delete(ctx, cacheKey(&p)); err != nil {
			log.Error().Err(err).Str("vehicle", p.VehicleID).Str("stop", p.StopID).Msg("Failed to evict prediction")
		}
	}
}

// Remove evicts every given prediction, used when a vehicle is demoted
func (c *Cache) Remove(ctx context.Context, predictions []transit.Prediction) {
	for i := range predictions {
		p := predictions[i]

		if err := c.store.Delete(ctx, cacheKey(&p)); err != nil {
			log.Error().Err(err).Str("vehicle", p.VehicleID).Str("stop", p.StopID).Msg("Failed to evict prediction")
		}
	}
}

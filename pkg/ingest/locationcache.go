package ingest

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

// CacheStore is the slice of gocache the location cache needs
type CacheStore interface {
	Set(ctx context.Context, key any, object string, options ...store.Option) error
}

// LocationCache keeps the freshest raw position per vehicle for smooth map
// movement. High frequency reports that are rate limited out of full
// processing still land here
type LocationCache struct {
	store CacheStore
}

func NewLocationCache(cacheStore CacheStore) *LocationCache {
	return &LocationCache{store: cacheStore}
}

func NewRedisLocationCache(client redis.UniversalClient) *LocationCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(10*time.Minute))

	return &LocationCache{store: cache.New[string](redisStore)}
}

func (c *LocationCache) Update(report *transit.AvlReport) {
	if c == nil || c.store == nil {
		return
	}

	encoded, _ := json.Marshal(report)

	if err := c.store.Set(context.Background(), "vehiclelocation:"+report.VehicleID, string(encoded)); err != nil {
		log.Error().Err(err).Str("vehicle", report.VehicleID).Msg("Failed to cache vehicle location")
	}
}

package predictions

import (
	"context"
	"testing"
	"time"

	"github.com/eko/gocache/lib/v4/store"
	"github.com/stretchr/testify/assert"
	"github.com/transitflow/transitflow/pkg/transit"
)

type memoryCacheStore struct {
	sets    map[string]string
	deletes []string
}

func newMemoryCacheStore() *memoryCacheStore {
	return &memoryCacheStore{sets: map[string]string{}}
}

func (s *memoryCacheStore) Set(ctx context.Context, key any, object string, options ...store.Option) error {
	s.sets[key.(string)] = object
	return nil
}

func (s *memoryCacheStore) Delete(ctx context.Context, key any) error {
	s.deletes = append(s.deletes, key.(string))
	return nil
}

func cachedPrediction(tripID string, stopID string, predictedTime time.Time) transit.Prediction {
	return transit.Prediction{
		VehicleID: "bus-1",
		TripID:    tripID,
		StopID:    stopID,

		Type:          transit.PredictionTypeArrival,
		PredictedTime: predictedTime,
	}
}

func TestCacheUpdateDiffs(t *testing.T) {
	cacheStore := newMemoryCacheStore()
	cache := NewCache(cacheStore)

	base := time.Date(2026, 1, 5, 8, 5, 0, 0, time.Local)

	old := []transit.Prediction{
		cachedPrediction("trip-1", "stop-a", base),
		cachedPrediction("trip-1", "stop-b", base.Add(5*time.Minute)),
		cachedPrediction("trip-1", "stop-c", base.Add(10*time.Minute)),
	}

	updated := []transit.Prediction{
		// stop-a unchanged, stop-b shifted, stop-c gone, stop-d new
		cachedPrediction("trip-1", "stop-a", base),
		cachedPrediction("trip-1", "stop-b", base.Add(6*time.Minute)),
		cachedPrediction("trip-1", "stop-d", base.Add(15*time.Minute)),
	}

	cache.Update(context.Background(), old, updated)

	assert.Len(t, cacheStore.sets, 2)
	assert.Contains(t, cacheStore.sets, "prediction:trip-1:stop-b:ARRIVAL")
	assert.Contains(t, cacheStore.sets, "prediction:trip-1:stop-d:ARRIVAL")

	assert.Equal(t, []string{"prediction:trip-1:stop-c:ARRIVAL"}, cacheStore.deletes)
}

func TestCacheUpdateFromEmpty(t *testing.T) {
	cacheStore := newMemoryCacheStore()
	cache := NewCache(cacheStore)

	base := time.Now()

	cache.Update(context.Background(), nil, []transit.Prediction{
		cachedPrediction("trip-1", "stop-a", base),
	})

	assert.Len(t, cacheStore.sets, 1)
	assert.Empty(t, cacheStore.deletes)
}

func TestCacheRemove(t *testing.T) {
	cacheStore := newMemoryCacheStore()
	cache := NewCache(cacheStore)

	cache.Remove(context.Background(), []transit.Prediction{
		cachedPrediction("trip-1", "stop-a", time.Now()),
		cachedPrediction("trip-1", "stop-b", time.Now()),
	})

	assert.Len(t, cacheStore.deletes, 2)
}

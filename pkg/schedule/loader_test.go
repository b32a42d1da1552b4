package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const snapshotJSON = `{
	"routes": [
		{"id": "route-1", "short_name": "10", "name": "Northbound Local"}
	],
	"blocks": [
		{
			"service_id": "weekday",
			"id": "block-1",
			"trips": [
				{
					"id": "trip-1",
					"route_id": "route-1",
					"stop_paths": [
						{
							"stop_id": "stop-a",
							"track": [
								{"type": "Point", "coordinates": [0, 0]},
								{"type": "Point", "coordinates": [0, 0.001]}
							],
							"scheduled_arrival": 28800,
							"scheduled_departure": 28800
						}
					]
				}
			]
		}
	],
	"active_services": ["weekday"]
}`

func TestLoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	assert.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0644))

	index, err := LoadSnapshot(path)
	assert.NoError(t, err)

	assert.Equal(t, "Northbound Local", index.Route("route-1").Name)

	block := index.BlockForTrip("trip-1")
	assert.NotNil(t, block)
	assert.Equal(t, "block-1", block.ID)

	path0 := index.StopPath("trip-1", 0)
	assert.NotNil(t, path0)
	assert.Equal(t, "stop-a", path0.StopID)
	assert.Len(t, path0.Track, 2)
	assert.InDelta(t, 111.2, path0.Length(), 1.0)

	assert.Len(t, index.ActiveBlocks(), 1)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadSnapshotMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadSnapshot(path)
	assert.Error(t, err)
}

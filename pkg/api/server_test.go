package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/ingest"
	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

func testApp() (*fiber.App, *vehiclestate.Store) {
	pipeline := ingest.NewPipeline(
		schedule.NewIndex(nil, nil, nil),
		nil,
		nil,
		nil,
		config.GetCoreConfig(),
	)

	server := &Server{
		Store:    pipeline.Store,
		Pipeline: pipeline,
	}

	return server.App(), pipeline.Store
}

func recordTestVehicle(store *vehiclestate.Store, vehicleID string) {
	now := time.Now()

	report := &transit.AvlReport{
		VehicleID: vehicleID,
		Time:      now.UnixMilli(),
		Location:  transit.NewPoint(-122.4, 37.7),
		Source:    "test",
	}

	match := &transit.Match{
		VehicleID: vehicleID,
		RouteID:   "route-1",
		TripID:    "trip-1",
		BlockID:   "block-1",
		AvlTime:   now,
	}

	store.GetOrCreate(vehicleID).RecordMatch(report, match, "weekday", "block-1")
}

func TestGetVersion(t *testing.T) {
	app, _ := testApp()

	response, err := app.Test(httptest.NewRequest("GET", "/core/version", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, response.StatusCode)

	var body map[string]string
	assert.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, apiVersion, body["version"])
}

func TestGetStats(t *testing.T) {
	app, store := testApp()

	recordTestVehicle(store, "bus-1")

	response, err := app.Test(httptest.NewRequest("GET", "/core/stats", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, response.StatusCode)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.EqualValues(t, 1, body["vehicles"])
	assert.EqualValues(t, 1, body["predictable"])
	assert.EqualValues(t, 0, body["queued"])
}

func TestListVehicles(t *testing.T) {
	app, store := testApp()

	recordTestVehicle(store, "bus-1")
	recordTestVehicle(store, "bus-2")

	response, err := app.Test(httptest.NewRequest("GET", "/core/vehicles", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, response.StatusCode)

	payload, err := io.ReadAll(response.Body)
	assert.NoError(t, err)

	var body []map[string]any
	assert.NoError(t, json.Unmarshal(payload, &body))
	assert.Len(t, body, 2)

	assert.Contains(t, body[0], "vehicle_id")

	// The basic marshal group hides internal-only fields of nested objects
	lastReport := body[0]["last_report"].(map[string]any)
	assert.NotContains(t, lastReport, "source")
}

func TestGetVehicle(t *testing.T) {
	app, store := testApp()

	recordTestVehicle(store, "bus-1")

	response, err := app.Test(httptest.NewRequest("GET", "/core/vehicles/bus-1", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, response.StatusCode)

	var body map[string]any
	assert.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, "bus-1", body["vehicle_id"])
	assert.Equal(t, true, body["predictable"])
}

func TestGetVehicleNotFound(t *testing.T) {
	app, _ := testApp()

	response, err := app.Test(httptest.NewRequest("GET", "/core/vehicles/ghost", nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, response.StatusCode)
}

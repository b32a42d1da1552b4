package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
)

func arrivalDepartureIndex() *schedule.Index {
	trip := &schedule.Trip{
		ID:      "trip-1",
		RouteID: "route-1",
		StopPaths: []*schedule.StopPath{
			{StopID: "stop-a", ScheduledArrival: 8 * 3600, ScheduledDeparture: 8 * 3600},
			{StopID: "stop-b", ScheduledArrival: 8*3600 + 300, ScheduledDeparture: 8*3600 + 300},
			{StopID: "stop-c", ScheduledArrival: 8*3600 + 600, ScheduledDeparture: 8*3600 + 600},
		},
	}

	returnTrip := &schedule.Trip{
		ID:      "trip-2",
		RouteID: "route-1",
		StopPaths: []*schedule.StopPath{
			{StopID: "stop-d", ScheduledArrival: 8*3600 + 900, ScheduledDeparture: 8*3600 + 900},
			{StopID: "stop-e", ScheduledArrival: 8*3600 + 1200, ScheduledDeparture: 8*3600 + 1200},
		},
	}

	blocks := []*schedule.Block{
		{ServiceID: "weekday", ID: "block-1", Trips: []*schedule.Trip{trip, returnTrip}},
	}

	return schedule.NewIndex(nil, blocks, []string{"weekday"})
}

func transitionMatch(stopPathIndex int, atStop bool, avlTime time.Time) *transit.Match {
	return &transit.Match{
		VehicleID: "bus-1",
		ServiceID: "weekday",
		BlockID:   "block-1",
		RouteID:   "route-1",
		TripID:    "trip-1",

		StopPathIndex: stopPathIndex,
		AtStop:        atStop,

		AvlTime: avlTime,
	}
}

func TestGenerateEventsForCrossedStops(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 4, 0, 0, time.Local)

	previous := transitionMatch(0, false, base)
	current := transitionMatch(2, false, base.Add(2*time.Minute))

	events := generator.Generate(previous, current)

	// Two stop paths crossed: arrival & departure at each
	assert.Len(t, events, 4)

	assert.Equal(t, "stop-a", events[0].StopID)
	assert.Equal(t, transit.ArrivalDepartureTypeArrival, events[0].Type)
	assert.Equal(t, transit.ArrivalDepartureTypeDeparture, events[1].Type)

	assert.Equal(t, "stop-b", events[2].StopID)

	// Interpolated into the report interval, in order
	assert.True(t, events[0].EventTime.After(previous.AvlTime))
	assert.True(t, events[2].EventTime.Before(current.AvlTime))
	assert.True(t, events[0].EventTime.Before(events[2].EventTime))

	// Scheduled times come from the static schedule
	assert.Equal(t, 8, events[0].ScheduledTime.Hour())
	assert.Equal(t, 0, events[0].ScheduledTime.Minute())
}

func TestGenerateArrivalAtCurrentStop(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 4, 0, 0, time.Local)

	previous := transitionMatch(1, false, base)
	current := transitionMatch(1, true, base.Add(time.Minute))

	events := generator.Generate(previous, current)

	assert.Len(t, events, 1)
	assert.Equal(t, transit.ArrivalDepartureTypeArrival, events[0].Type)
	assert.Equal(t, "stop-b", events[0].StopID)
	assert.Equal(t, current.AvlTime, events[0].EventTime)
}

func TestGenerateNoDuplicateArrivalWhenLeavingStop(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 4, 0, 0, time.Local)

	// The vehicle was already at stop-b when the previous report landed, so
	// moving on only produces the departure
	previous := transitionMatch(1, true, base)
	current := transitionMatch(2, false, base.Add(time.Minute))

	events := generator.Generate(previous, current)

	assert.Len(t, events, 1)
	assert.Equal(t, transit.ArrivalDepartureTypeDeparture, events[0].Type)
	assert.Equal(t, "stop-b", events[0].StopID)
}

func TestGenerateAcrossTripBoundary(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 13, 0, 0, time.Local)

	// Sitting at trip-1's terminal, then already underway on the block's
	// next trip by the following report
	previous := transitionMatch(2, true, base)
	current := transitionMatch(1, false, base.Add(2*time.Minute))
	current.TripID = "trip-2"

	events := generator.Generate(previous, current)

	// Departure from the terminal, then arrival & departure at the return
	// trip's first stop
	assert.Len(t, events, 3)

	assert.Equal(t, transit.ArrivalDepartureTypeDeparture, events[0].Type)
	assert.Equal(t, "stop-c", events[0].StopID)
	assert.Equal(t, "trip-1", events[0].TripID)

	assert.Equal(t, transit.ArrivalDepartureTypeArrival, events[1].Type)
	assert.Equal(t, "stop-d", events[1].StopID)
	assert.Equal(t, "trip-2", events[1].TripID)

	assert.Equal(t, transit.ArrivalDepartureTypeDeparture, events[2].Type)
	assert.Equal(t, "stop-d", events[2].StopID)

	assert.True(t, events[0].EventTime.Before(events[1].EventTime) || events[0].EventTime.Equal(events[1].EventTime))
}

func TestGenerateNothingAcrossBlockChange(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 4, 0, 0, time.Local)

	previous := transitionMatch(2, false, base)
	current := transitionMatch(0, false, base.Add(time.Minute))
	current.BlockID = "block-2"
	current.TripID = "trip-9"

	assert.Nil(t, generator.Generate(previous, current))
}

func TestGenerateNothingOnBackwardsTripChange(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 16, 0, 0, time.Local)

	previous := transitionMatch(0, false, base)
	previous.TripID = "trip-2"
	current := transitionMatch(2, false, base.Add(time.Minute))

	assert.Nil(t, generator.Generate(previous, current))
}

func TestGenerateNothingOnRegression(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	base := time.Date(2026, 1, 5, 8, 4, 0, 0, time.Local)

	previous := transitionMatch(2, false, base)
	current := transitionMatch(1, false, base.Add(time.Minute))

	assert.Nil(t, generator.Generate(previous, current))
}

func TestGenerateNothingWithoutPreviousMatch(t *testing.T) {
	generator := NewArrivalDepartureGenerator(arrivalDepartureIndex())

	assert.Nil(t, generator.Generate(nil, transitionMatch(1, false, time.Now())))
}

package transit

import "time"

type ArrivalDepartureType string

const (
	ArrivalDepartureTypeArrival   ArrivalDepartureType = "ARRIVAL"
	ArrivalDepartureTypeDeparture ArrivalDepartureType = "DEPARTURE"
)

// ArrivalDeparture records a vehicle actually arriving at or departing from a
// stop, derived from the transition between two consecutive matches
type ArrivalDeparture struct {
	VehicleID string `json:"vehicle_id" groups:"basic" bson:"vehicleid"`
	BlockID   string `json:"block_id" groups:"internal" bson:"blockid"`
	RouteID   string `json:"route_id" groups:"basic" bson:"routeid"`
	TripID    string `json:"trip_id" groups:"basic" bson:"tripid"`

	StopID        string `json:"stop_id" groups:"basic" bson:"stopid"`
	StopPathIndex int    `json:"stop_path_index" groups:"internal" bson:"stoppathindex"`

	Type ArrivalDepartureType `json:"type" groups:"basic" bson:"type"`

	// EventTime is interpolated between the two reports that straddle the stop
	EventTime     time.Time `json:"event_time" groups:"basic" bson:"eventtime"`
	ScheduledTime time.Time `json:"scheduled_time" groups:"basic" bson:"scheduledtime"`
}

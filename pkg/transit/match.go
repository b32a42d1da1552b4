package transit

import "time"

// Match is a point-in-time spatial match of a vehicle onto the schedule.
// Written once per accepted match, never mutated afterwards
type Match struct {
	VehicleID string `json:"vehicle_id" groups:"basic" bson:"vehicleid"`

	ServiceID string `json:"service_id" groups:"internal" bson:"serviceid"`
	BlockID   string `json:"block_id" groups:"basic" bson:"blockid"`
	RouteID   string `json:"route_id" groups:"basic" bson:"routeid"`
	TripID    string `json:"trip_id" groups:"basic" bson:"tripid"`

	StopPathIndex     int     `json:"stop_path_index" groups:"basic" bson:"stoppathindex"`
	DistanceAlongPath float64 `json:"distance_along_path" groups:"basic" bson:"distancealongpath"`
	DistanceFromPath  float64 `json:"distance_from_path" groups:"internal" bson:"distancefrompath"`

	AtStop    bool   `json:"at_stop" groups:"basic" bson:"atstop"`
	AtLayover bool   `json:"at_layover" groups:"basic" bson:"atlayover"`
	StopID    string `json:"stop_id" groups:"basic" bson:"stopid"`

	AvlTime    time.Time `json:"avl_time" groups:"basic" bson:"avltime"`
	RecordedAt time.Time `json:"recorded_at" groups:"internal" bson:"recordedat"`
}

func (m *Match) IsAtStop() bool {
	return m.AtStop
}

// SameStopPath reports whether the other match sits on the same path segment
// of the same trip
func (m *Match) SameStopPath(other *Match) bool {
	if other == nil {
		return false
	}

	return m.TripID == other.TripID && m.StopPathIndex == other.StopPathIndex
}

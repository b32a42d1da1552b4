package transit

import "time"

// Headway is the gap between a vehicle and the one ahead of it on the route
type Headway struct {
	VehicleID      string `json:"vehicle_id" groups:"basic" bson:"vehicleid"`
	AheadVehicleID string `json:"ahead_vehicle_id" groups:"basic" bson:"aheadvehicleid"`
	RouteID        string `json:"route_id" groups:"basic" bson:"routeid"`

	GapSeconds float64 `json:"gap_seconds" groups:"basic" bson:"gapseconds"`
	GapMetres  float64 `json:"gap_metres" groups:"basic" bson:"gapmetres"`

	CreatedAt time.Time `json:"created_at" groups:"internal" bson:"createdat"`
}

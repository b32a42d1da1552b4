package transit

import "time"

// Demotion is the final record written when the timeout supervisor gives up
// on a silent vehicle
type Demotion struct {
	VehicleID string `json:"vehicle_id" groups:"basic" bson:"vehicleid"`

	BlockID string `json:"block_id,omitempty" groups:"basic" bson:"blockid,omitempty"`
	TripID  string `json:"trip_id,omitempty" groups:"basic" bson:"tripid,omitempty"`

	// LastAvlTime is the timestamp of the report the vehicle went silent
	// after
	LastAvlTime time.Time `json:"last_avl_time" groups:"basic" bson:"lastavltime"`

	// Removed is set when the vehicle was evicted from the store rather
	// than just marked unpredictable
	Removed bool `json:"removed" groups:"basic" bson:"removed"`

	OccurredAt time.Time `json:"occurred_at" groups:"internal" bson:"occurredat"`
}

package transit

import "time"

type PredictionType string

const (
	PredictionTypeArrival   PredictionType = "ARRIVAL"
	PredictionTypeDeparture PredictionType = "DEPARTURE"
)

// Prediction is an estimated arrival or departure of a vehicle at one stop
type Prediction struct {
	VehicleID string `json:"vehicle_id" groups:"basic" bson:"vehicleid"`
	RouteID   string `json:"route_id" groups:"basic" bson:"routeid"`
	TripID    string `json:"trip_id" groups:"basic" bson:"tripid"`

	StopID        string `json:"stop_id" groups:"basic" bson:"stopid"`
	StopPathIndex int    `json:"stop_path_index" groups:"internal" bson:"stoppathindex"`

	Type          PredictionType `json:"type" groups:"basic" bson:"type"`
	PredictedTime time.Time      `json:"predicted_time" groups:"basic" bson:"predictedtime"`

	AvlTime     time.Time `json:"avl_time" groups:"internal" bson:"avltime"`
	GeneratedAt time.Time `json:"generated_at" groups:"internal" bson:"generatedat"`

	// Algorithm tags which generation strategy produced the prediction
	Algorithm string `json:"algorithm" groups:"internal" bson:"algorithm"`
}

// Key identifies the stop event the prediction is for, used when diffing old
// against new prediction sets
func (p *Prediction) Key() string {
	return p.TripID + ":" + p.StopID + ":" + string(p.Type)
}

// Horizon is how far into the future the prediction reaches from the report
// that produced it
func (p *Prediction) Horizon() time.Duration {
	return p.PredictedTime.Sub(p.AvlTime)
}

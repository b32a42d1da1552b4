package transit

import (
	"fmt"
	"math"
	"time"
)

type AssignmentType string

const (
	AssignmentTypeBlock         AssignmentType = "BLOCK"
	AssignmentTypeRoute         AssignmentType = "ROUTE"
	AssignmentTypeTrip          AssignmentType = "TRIP"
	AssignmentTypeTripShortName AssignmentType = "TRIP_SHORT_NAME"
)

type Assignment struct {
	ID   string         `json:"id" groups:"basic" bson:"id"`
	Type AssignmentType `json:"type" groups:"basic" bson:"type"`
}

// AvlReport is a single vehicle position sample as received from a feed.
// Everything except the assignment hint is fixed at construction
type AvlReport struct {
	VehicleID string   `json:"vehicle_id" groups:"basic" bson:"vehicleid"`
	Time      int64    `json:"time" groups:"basic" bson:"time"` // epoch milliseconds
	Location  Location `json:"location" groups:"basic" bson:"location"`

	SpeedMetresSecond float64 `json:"speed,omitempty" groups:"basic" bson:"speed,omitempty"`
	HasSpeed          bool    `json:"-" bson:"hasspeed"`
	Heading           float64 `json:"heading,omitempty" groups:"basic" bson:"heading,omitempty"`
	HasHeading        bool    `json:"-" bson:"hasheading"`

	Source string `json:"source" groups:"internal" bson:"source"`

	// DelaySeconds is the schedule deviation claimed by the feed itself,
	// when it carries one. Recorded for analysis, never trusted by the matcher
	DelaySeconds float64 `json:"delay_seconds,omitempty" bson:"delayseconds,omitempty"`
	HasDelay     bool    `json:"-" bson:"hasdelay"`

	// LeadVehicleID is set when the report is for a non-lead member of a
	// consist, naming the vehicle that does the reporting for the unit
	LeadVehicleID string `json:"lead_vehicle_id,omitempty" bson:"leadvehicleid,omitempty"`

	Assignment *Assignment `json:"assignment,omitempty" groups:"basic" bson:"assignment,omitempty"`
}

func (r *AvlReport) Timestamp() time.Time {
	return time.UnixMilli(r.Time)
}

// SetAssignment records the feed's assignment hint. Set at most once, later
// calls are ignored
func (r *AvlReport) SetAssignment(id string, assignmentType AssignmentType) {
	if r.Assignment != nil {
		return
	}

	r.Assignment = &Assignment{
		ID:   id,
		Type: assignmentType,
	}
}

func (r *AvlReport) IsLeadVehicle() bool {
	return r.LeadVehicleID == "" || r.LeadVehicleID == r.VehicleID
}

// Validity is the outcome of checking a report's mandatory fields, so the
// filtering stages can be composed without exceptions or nullable strings
type Validity struct {
	OK     bool
	Reason string
}

func invalid(format string, args ...interface{}) Validity {
	return Validity{OK: false, Reason: fmt.Sprintf(format, args...)}
}

func (r *AvlReport) Validate() Validity {
	if r.VehicleID == "" {
		return invalid("missing vehicle id")
	}

	if r.Time <= 0 {
		return invalid("vehicle %s report has no usable timestamp", r.VehicleID)
	}

	if r.Location.Type != "Point" || len(r.Location.Coordinates) != 2 {
		return invalid("vehicle %s report has no location", r.VehicleID)
	}

	longitude := r.Location.Coordinates[0]
	latitude := r.Location.Coordinates[1]

	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || math.IsNaN(latitude) || math.IsInf(latitude, 0) {
		return invalid("vehicle %s report has non-finite coordinates", r.VehicleID)
	}

	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return invalid("vehicle %s report coordinates out of range (%f, %f)", r.VehicleID, latitude, longitude)
	}

	return Validity{OK: true}
}

package vehiclestate

import (
	"sync"
	"time"

	"github.com/transitflow/transitflow/pkg/transit"
)

// VehicleStatus is the single source of truth for what one vehicle is doing
// right now. Reports for one vehicle are processed strictly one at a time, so
// the only cross-goroutine contention is with the timeout supervisor and
// with snapshot readers
type VehicleStatus struct {
	mutex sync.Mutex

	VehicleID string `groups:"basic"`

	LastReport *transit.AvlReport `groups:"basic"`
	// LastMatchedReport is the newest report that went through full matching
	// rather than the lightweight location-only path
	LastMatchedReport *transit.AvlReport `groups:"internal"`

	Match         *transit.Match `groups:"basic"`
	PreviousMatch *transit.Match `groups:"internal"`

	Predictable bool `groups:"basic"`

	Predictions []transit.Prediction `groups:"basic"`
	Headway     *transit.Headway     `groups:"basic"`

	ServiceID  string    `groups:"internal"`
	BlockID    string    `groups:"basic"`
	AssignedAt time.Time `groups:"internal"`
}

func newVehicleStatus(vehicleID string) *VehicleStatus {
	return &VehicleStatus{VehicleID: vehicleID}
}

// RecordReport stores the newest accepted report
func (v *VehicleStatus) RecordReport(report *transit.AvlReport) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.LastReport = report
}

// RecordMatch applies a successful match outcome in one step so readers never
// observe a half-applied transition
func (v *VehicleStatus) RecordMatch(report *transit.AvlReport, match *transit.Match, serviceID string, blockID string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.LastReport = report
	v.LastMatchedReport = report

	v.PreviousMatch = v.Match
	v.Match = match
	v.Predictable = true

	if v.BlockID != blockID || v.ServiceID != serviceID {
		v.ServiceID = serviceID
		v.BlockID = blockID
		v.AssignedAt = report.Timestamp()
	}
}

// RecordNoMatch marks the vehicle unpredictable while still keeping the
// report, so its raw position stays available
func (v *VehicleStatus) RecordNoMatch(report *transit.AvlReport) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.LastReport = report
	v.LastMatchedReport = report
	v.Predictable = false
}

// MarkUnpredictable demotes the vehicle, returning the predictions that were
// current at the time so caches can be cleared
func (v *VehicleStatus) MarkUnpredictable() []transit.Prediction {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.Predictable = false

	stale := v.Predictions
	v.Predictions = nil
	v.Headway = nil

	return stale
}

// ReplacePredictions swaps in a freshly generated prediction list, returning
// the previous one for diffing
func (v *VehicleStatus) ReplacePredictions(predictions []transit.Prediction) []transit.Prediction {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	old := v.Predictions
	v.Predictions = predictions

	return old
}

func (v *VehicleStatus) SetHeadway(headway *transit.Headway) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.Headway = headway
}

func (v *VehicleStatus) IsPredictable() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.Predictable
}

// IsLeadVehicle reports whether the vehicle reports for itself rather than
// being a trailing member of a consist
func (v *VehicleStatus) IsLeadVehicle() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.LastReport == nil {
		return true
	}

	return v.LastReport.IsLeadVehicle()
}

func (v *VehicleStatus) CurrentMatch() *transit.Match {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.Match
}

func (v *VehicleStatus) MatchTransition() (*transit.Match, *transit.Match) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.PreviousMatch, v.Match
}

func (v *VehicleStatus) LastReportTime() (time.Time, bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.LastReport == nil {
		return time.Time{}, false
	}

	return v.LastReport.Timestamp(), true
}

func (v *VehicleStatus) Assignment() (string, string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.ServiceID, v.BlockID
}

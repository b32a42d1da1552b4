package vehiclestate

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/transitflow/transitflow/pkg/transit"
)

// VehicleSnapshot is a point-in-time copy of a vehicle's status, safe to hand
// out to API readers while the underlying status keeps mutating
type VehicleSnapshot struct {
	VehicleID string `json:"vehicle_id" groups:"basic"`

	LastReport *transit.AvlReport `json:"last_report" groups:"basic"`

	Match       *transit.Match `json:"match,omitempty" groups:"basic"`
	Predictable bool           `json:"predictable" groups:"basic"`

	Predictions []transit.Prediction `json:"predictions,omitempty" groups:"basic"`
	Headway     *transit.Headway     `json:"headway,omitempty" groups:"basic"`

	BlockID string `json:"block_id,omitempty" groups:"basic"`
}

func (v *VehicleStatus) Snapshot() VehicleSnapshot {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	var snapshot VehicleSnapshot
	copier.Copy(&snapshot, v)

	return snapshot
}

// Store is the concurrent map of every vehicle the core has seen. Entries are
// created lazily and only the timeout supervisor removes them
type Store struct {
	vehicles sync.Map
}

func NewStore() *Store {
	return &Store{}
}

// GetOrCreate never returns nil
func (s *Store) GetOrCreate(vehicleID string) *VehicleStatus {
	if existing, ok := s.vehicles.Load(vehicleID); ok {
		return existing.(*VehicleStatus)
	}

	created, _ := s.vehicles.LoadOrStore(vehicleID, newVehicleStatus(vehicleID))

	return created.(*VehicleStatus)
}

func (s *Store) Get(vehicleID string) (*VehicleStatus, bool) {
	existing, ok := s.vehicles.Load(vehicleID)
	if !ok {
		return nil, false
	}

	return existing.(*VehicleStatus), true
}

func (s *Store) Remove(vehicleID string) {
	s.vehicles.Delete(vehicleID)
}

func (s *Store) Range(fn func(status *VehicleStatus) bool) {
	s.vehicles.Range(func(_ any, value any) bool {
		return fn(value.(*VehicleStatus))
	})
}

// Snapshots returns copies of every vehicle's status, safe to iterate while
// the store is concurrently written
func (s *Store) Snapshots() []VehicleSnapshot {
	var snapshots []VehicleSnapshot

	s.Range(func(status *VehicleStatus) bool {
		snapshots = append(snapshots, status.Snapshot())
		return true
	})

	return snapshots
}

type Stats struct {
	Vehicles    int       `json:"vehicles"`
	Predictable int       `json:"predictable"`
	NewestAvl   time.Time `json:"newest_avl"`
}

func (s *Store) Stats() Stats {
	var stats Stats

	s.Range(func(status *VehicleStatus) bool {
		stats.Vehicles += 1

		if status.IsPredictable() {
			stats.Predictable += 1
		}

		if reportTime, ok := status.LastReportTime(); ok && reportTime.After(stats.NewestAvl) {
			stats.NewestAvl = reportTime
		}

		return true
	})

	return stats
}

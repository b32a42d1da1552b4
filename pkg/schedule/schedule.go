package schedule

import (
	"time"

	"github.com/transitflow/transitflow/pkg/transit"
)

// StopPath is the path segment between two consecutive stops on a trip. Track
// is the polyline the vehicle follows, ending at the stop the path is named
// after
type StopPath struct {
	StopID   string `json:"stop_id"`
	StopName string `json:"stop_name"`

	Track []transit.Location `json:"track"`

	// Seconds into the service day at the destination stop
	ScheduledArrival   int `json:"scheduled_arrival"`
	ScheduledDeparture int `json:"scheduled_departure"`

	// WaitStop marks a layover: the vehicle holds here until the scheduled
	// departure time
	WaitStop bool `json:"wait_stop"`
}

// ArrivalOn anchors the scheduled arrival onto a concrete service day
func (p *StopPath) ArrivalOn(day time.Time) time.Time {
	return dayAnchor(day).Add(time.Duration(p.ScheduledArrival) * time.Second)
}

func (p *StopPath) DepartureOn(day time.Time) time.Time {
	return dayAnchor(day).Add(time.Duration(p.ScheduledDeparture) * time.Second)
}

func dayAnchor(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

// Length returns the track length in metres
func (p *StopPath) Length() float64 {
	total := 0.0

	for i := 0; i < len(p.Track)-1; i++ {
		total += p.Track[i].Distance(&p.Track[i+1])
	}

	return total
}

type Trip struct {
	ID        string `json:"id"`
	RouteID   string `json:"route_id"`
	ShortName string `json:"short_name"`
	Headsign  string `json:"headsign"`

	StopPaths []*StopPath `json:"stop_paths"`
}

// Block is a sequence of trips scheduled to run back-to-back on one vehicle
type Block struct {
	ServiceID string  `json:"service_id"`
	ID        string  `json:"id"`
	Trips     []*Trip `json:"trips"`
}

func (b *Block) Trip(tripID string) *Trip {
	for _, trip := range b.Trips {
		if trip.ID == tripID {
			return trip
		}
	}

	return nil
}

type Route struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	Name      string `json:"name"`
}

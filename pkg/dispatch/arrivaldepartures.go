package dispatch

import (
	"time"

	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
)

// ArrivalDepartureGenerator derives the stop events a vehicle actually
// produced from the transition between its previous & new match
type ArrivalDepartureGenerator struct {
	index *schedule.Index
}

func NewArrivalDepartureGenerator(index *schedule.Index) *ArrivalDepartureGenerator {
	return &ArrivalDepartureGenerator{index: index}
}

// crossedStop is a stop path the vehicle left behind between two matches
type crossedStop struct {
	tripID  string
	routeID string

	stopPathIndex int
	path          *schedule.StopPath
}

func (g *ArrivalDepartureGenerator) Generate(previous *transit.Match, current *transit.Match) []transit.ArrivalDeparture {
	if previous == nil || current == nil {
		return nil
	}

	// Reassignments onto a different block carry no usable progression
	if previous.BlockID != current.BlockID || previous.ServiceID != current.ServiceID {
		return nil
	}

	crossed, ok := g.crossedStops(previous, current)
	if !ok {
		return nil
	}

	var events []transit.ArrivalDeparture

	interval := current.AvlTime.Sub(previous.AvlTime)

	for step, stop := range crossed {
		// Event times interpolated across the report interval, keeping
		// arrival & departure ordered within it
		fraction := (float64(step) + 0.5) / float64(len(crossed))
		eventTime := previous.AvlTime.Add(time.Duration(fraction * float64(interval.Nanoseconds())))

		// An arrival was already recorded when the vehicle pulled in, only
		// the departure is new
		alreadyArrived := step == 0 && previous.AtStop

		if !alreadyArrived {
			events = append(events, transit.ArrivalDeparture{
				VehicleID: current.VehicleID,
				BlockID:   current.BlockID,
				RouteID:   stop.routeID,
				TripID:    stop.tripID,

				StopID:        stop.path.StopID,
				StopPathIndex: stop.stopPathIndex,

				Type:          transit.ArrivalDepartureTypeArrival,
				EventTime:     eventTime,
				ScheduledTime: stop.path.ArrivalOn(current.AvlTime),
			})
		}

		events = append(events,
			transit.ArrivalDeparture{
				VehicleID: current.VehicleID,
				BlockID:   current.BlockID,
				RouteID:   stop.routeID,
				TripID:    stop.tripID,

				StopID:        stop.path.StopID,
				StopPathIndex: stop.stopPathIndex,

				Type:          transit.ArrivalDepartureTypeDeparture,
				EventTime:     eventTime,
				ScheduledTime: stop.path.DepartureOn(current.AvlTime),
			},
		)
	}

	// Pulling up at the current stop is an arrival too, once
	if current.AtStop && !(previous.AtStop && previous.SameStopPath(current)) {
		if path := g.index.StopPath(current.TripID, current.StopPathIndex); path != nil {
			events = append(events, transit.ArrivalDeparture{
				VehicleID: current.VehicleID,
				BlockID:   current.BlockID,
				RouteID:   current.RouteID,
				TripID:    current.TripID,

				StopID:        path.StopID,
				StopPathIndex: current.StopPathIndex,

				Type:          transit.ArrivalDepartureTypeArrival,
				EventTime:     current.AvlTime,
				ScheduledTime: path.ArrivalOn(current.AvlTime),
			})
		}
	}

	return events
}

// crossedStops flattens the stop paths between the two matches in block
// order, so progression onto the next trip of the same block still yields
// the terminal's events. The bool is false when the transition is not a
// forward progression
func (g *ArrivalDepartureGenerator) crossedStops(previous *transit.Match, current *transit.Match) ([]crossedStop, bool) {
	if previous.TripID == current.TripID {
		if current.StopPathIndex < previous.StopPathIndex {
			return nil, false
		}

		var crossed []crossedStop

		for stopPathIndex := previous.StopPathIndex; stopPathIndex < current.StopPathIndex; stopPathIndex++ {
			path := g.index.StopPath(current.TripID, stopPathIndex)
			if path == nil {
				continue
			}

			crossed = append(crossed, crossedStop{
				tripID:  current.TripID,
				routeID: current.RouteID,

				stopPathIndex: stopPathIndex,
				path:          path,
			})
		}

		return crossed, true
	}

	block := g.index.Block(current.ServiceID, current.BlockID)
	if block == nil {
		return nil, false
	}

	var crossed []crossedStop
	collecting := false

	for _, trip := range block.Trips {
		for stopPathIndex, path := range trip.StopPaths {
			if trip.ID == current.TripID && stopPathIndex == current.StopPathIndex {
				// Hitting the current position before the previous one
				// means the vehicle moved backwards through the block
				if !collecting {
					return nil, false
				}

				return crossed, true
			}

			if trip.ID == previous.TripID && stopPathIndex == previous.StopPathIndex {
				collecting = true
			}

			if collecting {
				crossed = append(crossed, crossedStop{
					tripID:  trip.ID,
					routeID: trip.RouteID,

					stopPathIndex: stopPathIndex,
					path:          path,
				})
			}
		}
	}

	return nil, false
}

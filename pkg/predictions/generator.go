package predictions

import (
	"time"

	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
)

// Generator produces fresh stop predictions for a vehicle that just matched.
// Implementations may be backed by historical averages or filtering models,
// the core only depends on this interface
type Generator interface {
	Generate(match *transit.Match, report *transit.AvlReport) []transit.Prediction
}

// Offsets smaller than this get clamped to zero so on-time vehicles predict
// exactly their schedule
const minSignificantOffset = 45 * time.Second

const scheduleOffsetAlgorithm = "schedule-offset"

// ScheduleOffsetGenerator projects the vehicle's current schedule deviation
// onto every downstream stop of its block
type ScheduleOffsetGenerator struct {
	index *schedule.Index
}

func NewScheduleOffsetGenerator(index *schedule.Index) *ScheduleOffsetGenerator {
	return &ScheduleOffsetGenerator{index: index}
}

func (g *ScheduleOffsetGenerator) Generate(match *transit.Match, report *transit.AvlReport) []transit.Prediction {
	block := g.index.BlockForTrip(match.TripID)
	if block == nil {
		return nil
	}

	path := g.index.StopPath(match.TripID, match.StopPathIndex)
	if path == nil {
		return nil
	}

	avlTime := report.Timestamp()
	offset := g.currentOffset(path, g.index.StopPath(match.TripID, match.StopPathIndex-1), match, avlTime)

	now := time.Now()

	var predictions []transit.Prediction

	reached := false

	for _, trip := range block.Trips {
		for stopPathIndex, stopPath := range trip.StopPaths {
			if !reached {
				if trip.ID == match.TripID && stopPathIndex == match.StopPathIndex {
					reached = true
				} else {
					continue
				}
			}

			arrival := stopPath.ArrivalOn(avlTime).Add(offset)

			predictions = append(predictions, transit.Prediction{
				VehicleID: match.VehicleID,
				RouteID:   trip.RouteID,
				TripID:    trip.ID,

				StopID:        stopPath.StopID,
				StopPathIndex: stopPathIndex,

				Type:          transit.PredictionTypeArrival,
				PredictedTime: arrival,

				AvlTime:     avlTime,
				GeneratedAt: now,

				Algorithm: scheduleOffsetAlgorithm,
			})

			// Layovers absorb lateness: the vehicle leaves at the scheduled
			// departure unless it arrives after it
			if stopPath.WaitStop {
				departure := stopPath.DepartureOn(avlTime)
				if arrival.After(departure) {
					departure = arrival
				}

				predictions = append(predictions, transit.Prediction{
					VehicleID: match.VehicleID,
					RouteID:   trip.RouteID,
					TripID:    trip.ID,

					StopID:        stopPath.StopID,
					StopPathIndex: stopPathIndex,

					Type:          transit.PredictionTypeDeparture,
					PredictedTime: departure,

					AvlTime:     avlTime,
					GeneratedAt: now,

					Algorithm: scheduleOffsetAlgorithm,
				})

				// Downstream of a layover the deviation resets
				offset = departure.Sub(stopPath.DepartureOn(avlTime))
			}
		}
	}

	return predictions
}

// currentOffset is how far behind or ahead the vehicle is from where the
// schedule expects it to be right now, interpolated between the previous
// stop's departure & this path's arrival
func (g *ScheduleOffsetGenerator) currentOffset(path *schedule.StopPath, previous *schedule.StopPath, match *transit.Match, avlTime time.Time) time.Duration {
	arrival := path.ArrivalOn(avlTime)

	originDeparture := arrival
	if previous != nil {
		originDeparture = previous.DepartureOn(avlTime)
	}

	traversal := arrival.Sub(originDeparture)

	fraction := 0.0
	if length := path.Length(); length > 0 {
		fraction = match.DistanceAlongPath / length
	}

	expected := originDeparture.Add(time.Duration(fraction * float64(traversal.Nanoseconds())))

	offset := avlTime.Sub(expected)

	if offset.Abs() <= minSignificantOffset {
		offset = time.Duration(0)
	}

	return offset
}

package predictions

import (
	"time"

	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

// HeadwayGenerator measures the gap to the preceding vehicle. Returning nil
// means no headway could be determined for this match
type HeadwayGenerator interface {
	Generate(match *transit.Match, report *transit.AvlReport) *transit.Headway
}

const fallbackSpeedMetresSecond = 8.0

// RouteProgressHeadwayGenerator compares how far along the route each
// predictable vehicle on the same route has travelled
type RouteProgressHeadwayGenerator struct {
	index *schedule.Index
	store *vehiclestate.Store
}

func NewRouteProgressHeadwayGenerator(index *schedule.Index, store *vehiclestate.Store) *RouteProgressHeadwayGenerator {
	return &RouteProgressHeadwayGenerator{
		index: index,
		store: store,
	}
}

func (g *RouteProgressHeadwayGenerator) Generate(match *transit.Match, report *transit.AvlReport) *transit.Headway {
	ownProgress := g.tripProgress(match)

	var aheadVehicleID string
	smallestGap := -1.0

	g.store.Range(func(status *vehiclestate.VehicleStatus) bool {
		if status.VehicleID == match.VehicleID || !status.IsPredictable() {
			return true
		}

		otherMatch := status.CurrentMatch()
		if otherMatch == nil || otherMatch.RouteID != match.RouteID {
			return true
		}

		gap := g.tripProgress(otherMatch) - ownProgress
		if gap <= 0 {
			return true
		}

		if smallestGap < 0 || gap < smallestGap {
			smallestGap = gap
			aheadVehicleID = otherMatch.VehicleID
		}

		return true
	})

	if aheadVehicleID == "" {
		return nil
	}

	speed := report.SpeedMetresSecond
	if !report.HasSpeed || speed <= 0 {
		speed = fallbackSpeedMetresSecond
	}

	return &transit.Headway{
		VehicleID:      match.VehicleID,
		AheadVehicleID: aheadVehicleID,
		RouteID:        match.RouteID,

		GapMetres:  smallestGap,
		GapSeconds: smallestGap / speed,

		CreatedAt: time.Now(),
	}
}

// tripProgress is how many metres into its trip pattern the matched vehicle
// is. Trips of one route are assumed to share a stop pattern, which holds for
// the feeds the core consumes
func (g *RouteProgressHeadwayGenerator) tripProgress(match *transit.Match) float64 {
	trip := g.index.Trip(match.TripID)
	if trip == nil {
		return match.DistanceAlongPath
	}

	progress := 0.0

	for stopPathIndex, path := range trip.StopPaths {
		if stopPathIndex == match.StopPathIndex {
			break
		}

		progress += path.Length()
	}

	return progress + match.DistanceAlongPath
}

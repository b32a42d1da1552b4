package matcher

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

// Outcome describes what matching a report against the schedule produced. A
// failed match is not an error, the vehicle just becomes unpredictable until
// a later report matches again
type Outcome struct {
	Matched    bool
	Match      *transit.Match
	FailReason string
}

// Engine resolves which block, trip & stop path a vehicle currently occupies
type Engine struct {
	index *schedule.Index

	coreConfig config.CoreConfig
}

func NewEngine(index *schedule.Index, coreConfig config.CoreConfig) *Engine {
	return &Engine{
		index: index,

		coreConfig: coreConfig,
	}
}

// MatchReport updates the vehicle's status from a validated report. The
// caller guarantees reports for one vehicle arrive here strictly one at a
// time
func (e *Engine) MatchReport(status *vehiclestate.VehicleStatus, report *transit.AvlReport) Outcome {
	candidates, restricted := e.candidateBlocks(status, report)

	if len(candidates) == 0 {
		status.RecordNoMatch(report)

		reason := "no assignment and auto assignment disabled"
		if restricted {
			reason = "assigned block not in schedule"
		}

		log.Debug().Str("vehicle", report.VehicleID).Str("reason", reason).Msg("Vehicle unmatched")

		return Outcome{Matched: false, FailReason: reason}
	}

	previous := status.CurrentMatch()
	_, currentBlockID := status.Assignment()

	var best *candidateMatch

	for _, block := range candidates {
		floor := -1

		// Honour monotonic progress along the block the vehicle is already
		// on, unless it has been silent long enough to justify a reset
		if previous != nil && block.ID == currentBlockID && !e.resetAllowed(status, report) {
			floor = blockOrdinal(block, previous.TripID, previous.StopPathIndex)
		}

		candidate := e.bestWithinBlock(block, report, floor)

		if candidate != nil && candidate.betterThan(best) {
			best = candidate
		}
	}

	if best == nil || best.distanceFromPath > e.coreConfig.MaxMatchDistanceMetres {
		status.RecordNoMatch(report)

		reason := "no stop path within allowable distance"

		log.Debug().
			Str("vehicle", report.VehicleID).
			Str("reason", reason).
			Msg("Vehicle unmatched")

		return Outcome{Matched: false, FailReason: reason}
	}

	match := best.toMatch(report, e.coreConfig.AtStopRadiusMetres)

	status.RecordMatch(report, match, best.block.ServiceID, best.block.ID)

	log.Debug().
		Str("vehicle", report.VehicleID).
		Str("trip", match.TripID).
		Int("stoppath", match.StopPathIndex).
		Float64("distancefrompath", match.DistanceFromPath).
		Bool("atstop", match.AtStop).
		Msg("Vehicle matched")

	return Outcome{Matched: true, Match: match}
}

// candidateBlocks returns the blocks worth scanning for this report. The
// second return reports whether an explicit assignment restricted the set
func (e *Engine) candidateBlocks(status *vehiclestate.VehicleStatus, report *transit.AvlReport) ([]*schedule.Block, bool) {
	if report.Assignment != nil {
		if blocks := e.assignedBlock(report.Assignment); len(blocks) > 0 {
			return blocks, true
		}

		// ROUTE assignments only narrow the search space
		if report.Assignment.Type == transit.AssignmentTypeRoute {
			if blocks := e.routeBlocks(report.Assignment.ID); len(blocks) > 0 {
				return blocks, true
			}
		}
	}

	if serviceID, blockID := status.Assignment(); blockID != "" {
		if block := e.index.Block(serviceID, blockID); block != nil {
			return []*schedule.Block{block}, true
		}
	}

	if e.coreConfig.AutoAssign {
		return e.index.ActiveBlocks(), false
	}

	return nil, false
}

func (e *Engine) assignedBlock(assignment *transit.Assignment) []*schedule.Block {
	switch assignment.Type {
	case transit.AssignmentTypeBlock:
		var matching []*schedule.Block

		for _, block := range e.index.ActiveBlocks() {
			if block.ID == assignment.ID {
				matching = append(matching, block)
			}
		}

		return matching
	case transit.AssignmentTypeTrip:
		if block := e.index.BlockForTrip(assignment.ID); block != nil {
			return []*schedule.Block{block}
		}
	case transit.AssignmentTypeTripShortName:
		if trip := e.index.TripByShortName(assignment.ID); trip != nil {
			if block := e.index.BlockForTrip(trip.ID); block != nil {
				return []*schedule.Block{block}
			}
		}
	}

	return nil
}

func (e *Engine) routeBlocks(routeRef string) []*schedule.Block {
	route := e.index.Route(routeRef)
	if route == nil {
		route = e.index.RouteByShortName(routeRef)
	}
	if route == nil {
		return nil
	}

	return e.index.BlocksForRoute(route.ID)
}

func (e *Engine) resetAllowed(status *vehiclestate.VehicleStatus, report *transit.AvlReport) bool {
	previousTime, ok := status.LastReportTime()
	if !ok {
		return true
	}

	return report.Timestamp().Sub(previousTime) > e.coreConfig.MonotonicResetGap
}

type candidateMatch struct {
	block *schedule.Block
	trip  *schedule.Trip
	path  *schedule.StopPath

	stopPathIndex     int
	distanceFromPath  float64
	distanceAlongPath float64

	// Absolute schedule deviation, used to break near-ties between stop
	// paths a similar distance away
	scheduleDeviation time.Duration
}

const tieBreakDistanceMetres = 5.0

func (c *candidateMatch) betterThan(other *candidateMatch) bool {
	if other == nil {
		return true
	}

	if math.Abs(c.distanceFromPath-other.distanceFromPath) <= tieBreakDistanceMetres {
		return c.scheduleDeviation < other.scheduleDeviation
	}

	return c.distanceFromPath < other.distanceFromPath
}

func (c *candidateMatch) toMatch(report *transit.AvlReport, atStopRadius float64) *transit.Match {
	distanceToStop := c.path.Length() - c.distanceAlongPath
	atStop := distanceToStop <= atStopRadius

	return &transit.Match{
		VehicleID: report.VehicleID,

		ServiceID: c.block.ServiceID,
		BlockID:   c.block.ID,
		RouteID:   c.trip.RouteID,
		TripID:    c.trip.ID,

		StopPathIndex:     c.stopPathIndex,
		DistanceAlongPath: c.distanceAlongPath,
		DistanceFromPath:  c.distanceFromPath,

		AtStop:    atStop,
		AtLayover: atStop && c.path.WaitStop,
		StopID:    c.path.StopID,

		AvlTime:    report.Timestamp(),
		RecordedAt: time.Now(),
	}
}

// bestWithinBlock scans every stop path of every trip in the block for the
// track segment closest to the report, skipping anything before the floor
// ordinal
func (e *Engine) bestWithinBlock(block *schedule.Block, report *transit.AvlReport, floor int) *candidateMatch {
	var best *candidateMatch

	ordinal := 0

	for _, trip := range block.Trips {
		for stopPathIndex, path := range trip.StopPaths {
			currentOrdinal := ordinal
			ordinal += 1

			if currentOrdinal < floor {
				continue
			}

			candidate := e.closestOnPath(block, trip, path, stopPathIndex, report)

			if candidate != nil && candidate.betterThan(best) {
				best = candidate
			}
		}
	}

	return best
}

func (e *Engine) closestOnPath(block *schedule.Block, trip *schedule.Trip, path *schedule.StopPath, stopPathIndex int, report *transit.AvlReport) *candidateMatch {
	pathClosestDistance := math.MaxFloat64
	distanceAlong := 0.0
	distanceBefore := 0.0

	for i := 0; i < len(path.Track)-1; i++ {
		a := path.Track[i]
		b := path.Track[i+1]

		segmentLength := a.Distance(&b)

		distance := report.Location.DistanceFromLine(a, b)

		if distance < pathClosestDistance {
			pathClosestDistance = distance
			distanceAlong = distanceBefore + report.Location.DistanceAlongLine(a, b)*segmentLength
		}

		distanceBefore += segmentLength
	}

	if pathClosestDistance == math.MaxFloat64 {
		return nil
	}

	return &candidateMatch{
		block: block,
		trip:  trip,
		path:  path,

		stopPathIndex:     stopPathIndex,
		distanceFromPath:  pathClosestDistance,
		distanceAlongPath: distanceAlong,

		scheduleDeviation: e.scheduleDeviation(path, report),
	}
}

func (e *Engine) scheduleDeviation(path *schedule.StopPath, report *transit.AvlReport) time.Duration {
	deviation := report.Timestamp().Sub(path.ArrivalOn(report.Timestamp()))

	if deviation < 0 {
		deviation = -deviation
	}

	return deviation
}

// blockOrdinal flattens a (trip, stop path) position into the block-wide
// ordering used for monotonic progress
func blockOrdinal(block *schedule.Block, tripID string, stopPathIndex int) int {
	ordinal := 0

	for _, trip := range block.Trips {
		if trip.ID == tripID {
			return ordinal + stopPathIndex
		}

		ordinal += len(trip.StopPaths)
	}

	return 0
}

// Describe renders a one line summary of an outcome for debug tooling
func (o Outcome) Describe() string {
	if !o.Matched {
		return fmt.Sprintf("unmatched: %s", o.FailReason)
	}

	return fmt.Sprintf("matched trip %s stop path %d (%.1fm from path)", o.Match.TripID, o.Match.StopPathIndex, o.Match.DistanceFromPath)
}

package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/predictions"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

// Sink is the fire & forget durable write queue the dispatcher feeds
type Sink interface {
	TrySubmit(document any) bool
}

// Dispatcher fans a fresh successful match out to every downstream
// derivation, in a fixed order, with each step isolated so one misbehaving
// generator cannot suppress its siblings
type Dispatcher struct {
	predictionGenerator predictions.Generator
	headwayGenerator    predictions.HeadwayGenerator
	arrivalDepartures   *ArrivalDepartureGenerator

	cache *predictions.Cache
	sink  Sink

	coreConfig config.CoreConfig
}

func NewDispatcher(
	predictionGenerator predictions.Generator,
	headwayGenerator predictions.HeadwayGenerator,
	arrivalDepartures *ArrivalDepartureGenerator,
	cache *predictions.Cache,
	sink Sink,
	coreConfig config.CoreConfig,
) *Dispatcher {
	return &Dispatcher{
		predictionGenerator: predictionGenerator,
		headwayGenerator:    headwayGenerator,
		arrivalDepartures:   arrivalDepartures,

		cache: cache,
		sink:  sink,

		coreConfig: coreConfig,
	}
}

// ProcessMatch runs the downstream derivations for a vehicle whose match just
// succeeded
func (d *Dispatcher) ProcessMatch(status *vehiclestate.VehicleStatus) {
	if !status.IsPredictable() {
		log.Error().Str("vehicle", status.VehicleID).Msg("Dispatch invoked for unpredictable vehicle")
		return
	}

	// Trailing consist members carry no information of their own, all the
	// work happens via the lead vehicle
	if !status.IsLeadVehicle() {
		log.Debug().Str("vehicle", status.VehicleID).Msg("Skipping dispatch for non-lead consist vehicle")
		return
	}

	match := status.CurrentMatch()
	report := status.LastReport

	if !d.coreConfig.OnlyArrivalsDepartures {
		d.isolated("predictions", status.VehicleID, func() {
			d.generatePredictions(status, match, report)
		})

		d.isolated("headway", status.VehicleID, func() {
			d.generateHeadway(status, match, report)
		})

		d.isolated("match record", status.VehicleID, func() {
			d.persistMatch(match)
		})
	}

	d.isolated("arrival departures", status.VehicleID, func() {
		d.generateArrivalDepartures(status)
	})
}

func (d *Dispatcher) isolated(step string, vehicleID string, fn func()) {
	if recovered := panics.Try(fn); recovered != nil {
		log.Error().
			Err(recovered.AsError()).
			Str("vehicle", vehicleID).
			Str("step", step).
			Msg("Dispatch step failed")
	}
}

func (d *Dispatcher) generatePredictions(status *vehiclestate.VehicleStatus, match *transit.Match, report *transit.AvlReport) {
	updated := d.predictionGenerator.Generate(match, report)

	for i := range updated {
		// Far-future predictions stay in memory only, they churn too much to
		// be worth persisting
		if updated[i].Horizon() > d.coreConfig.MaxPredictionHorizon {
			continue
		}

		d.sink.TrySubmit(updated[i])
	}

	old := status.ReplacePredictions(updated)

	d.cache.Update(context.Background(), old, updated)
}

func (d *Dispatcher) generateHeadway(status *vehiclestate.VehicleStatus, match *transit.Match, report *transit.AvlReport) {
	headway := d.headwayGenerator.Generate(match, report)
	if headway == nil {
		return
	}

	status.SetHeadway(headway)

	d.sink.TrySubmit(*headway)
}

func (d *Dispatcher) persistMatch(match *transit.Match) {
	// Matches at stops would pollute the travel time derivation between
	// stops, they are intentionally never persisted
	if match.IsAtStop() {
		return
	}

	d.sink.TrySubmit(*match)
}

func (d *Dispatcher) generateArrivalDepartures(status *vehiclestate.VehicleStatus) {
	previous, current := status.MatchTransition()

	for _, event := range d.arrivalDepartures.Generate(previous, current) {
		d.sink.TrySubmit(event)
	}
}

// RecordOutcome indexes a match attempt for rate analysis, used by the report
// processor for both successful & failed matches
func RecordOutcome(report *transit.AvlReport, success bool, failReason string, routeID string, tripID string) {
	RecordMatchOutcome(MatchOutcomeElasticEvent{
		Timestamp: time.Now(),

		Success:    success,
		FailReason: failReason,

		Vehicle: report.VehicleID,
		Route:   routeID,
		Trip:    tripID,

		Source: report.Source,
	})
}

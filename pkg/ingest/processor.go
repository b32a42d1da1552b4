package ingest

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/dispatch"
	"github.com/transitflow/transitflow/pkg/matcher"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

// Matcher resolves a report onto the schedule, mutating the vehicle's status
type Matcher interface {
	MatchReport(status *vehiclestate.VehicleStatus, report *transit.AvlReport) matcher.Outcome
}

// MatchDispatcher fans a successful match out to the downstream derivations
type MatchDispatcher interface {
	ProcessMatch(status *vehiclestate.VehicleStatus)
}

// Processor consumes the report queue with one worker per partition. Because
// a vehicle always lands on the same partition, its reports pass through
// matching & dispatch strictly one at a time & in queue order, while
// different vehicles run fully in parallel
type Processor struct {
	queue *ReportQueue
	store *vehiclestate.Store

	engine     Matcher
	dispatcher MatchDispatcher

	locations *LocationCache
	sink      dispatch.Sink

	coreConfig config.CoreConfig

	// Newest timestamp accepted for full processing per vehicle. Rate
	// limited reports deliberately do not advance it
	lastSeen sync.Map

	workers conc.WaitGroup
}

func NewProcessor(
	queue *ReportQueue,
	store *vehiclestate.Store,
	engine Matcher,
	dispatcher MatchDispatcher,
	locations *LocationCache,
	sink dispatch.Sink,
	coreConfig config.CoreConfig,
) *Processor {
	return &Processor{
		queue: queue,
		store: store,

		engine:     engine,
		dispatcher: dispatcher,

		locations: locations,
		sink:      sink,

		coreConfig: coreConfig,
	}
}

// Start launches the partition workers. They run until the context ends
func (p *Processor) Start(ctx context.Context) {
	log.Info().
		Int("workers", p.queue.Partitions()).
		Dur("minreportinterval", p.coreConfig.MinReportInterval).
		Msg("Starting report processor workers")

	for partition := 0; partition < p.queue.Partitions(); partition++ {
		partition := partition

		p.workers.Go(func() {
			p.runWorker(ctx, partition)
		})
	}
}

// Wait blocks until every worker has drained out after the context ended
func (p *Processor) Wait() {
	p.workers.Wait()
}

func (p *Processor) runWorker(ctx context.Context, partition int) {
	for {
		report, ok := p.queue.Dequeue(ctx, partition)
		if !ok {
			return
		}

		// One rogue report must never take the worker down with it
		if recovered := panics.Try(func() { p.handle(report) }); recovered != nil {
			log.Error().
				Err(recovered.AsError()).
				Str("vehicle", report.VehicleID).
				Int64("time", report.Time).
				Msg("Report processing panicked")
		}
	}
}

func (p *Processor) handle(report *transit.AvlReport) {
	if validity := report.Validate(); !validity.OK {
		log.Error().
			Str("source", report.Source).
			Str("reason", validity.Reason).
			Msg("Discarding invalid report")

		return
	}

	previousTime, seen := p.lastSeen.Load(report.VehicleID)

	// Duplicate or out of order, nothing downstream wants these
	if seen && report.Time <= previousTime.(int64) {
		log.Debug().
			Str("vehicle", report.VehicleID).
			Int64("time", report.Time).
			Int64("previous", previousTime.(int64)).
			Msg("Discarding stale report")

		return
	}

	// Too frequent: refresh the lightweight location cache so maps stay
	// smooth, but skip matching & everything downstream of it
	if seen && report.Time-previousTime.(int64) < p.coreConfig.MinReportInterval.Milliseconds() {
		p.locations.Update(report)

		log.Debug().
			Str("vehicle", report.VehicleID).
			Int64("time", report.Time).
			Msg("Rate limiting report to location-only update")

		return
	}

	p.lastSeen.Store(report.VehicleID, report.Time)

	status := p.store.GetOrCreate(report.VehicleID)

	p.locations.Update(report)
	p.sink.TrySubmit(*report)

	outcome := p.engine.MatchReport(status, report)

	routeID := ""
	tripID := ""
	if outcome.Matched {
		routeID = outcome.Match.RouteID
		tripID = outcome.Match.TripID
	}

	dispatch.RecordOutcome(report, outcome.Matched, outcome.FailReason, routeID, tripID)

	if outcome.Matched {
		p.dispatcher.ProcessMatch(status)
	}
}

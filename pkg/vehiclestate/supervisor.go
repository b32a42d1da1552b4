package vehiclestate

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/transit"
)

// PredictionRemover clears a demoted vehicle's predictions out of the
// read-side cache
type PredictionRemover interface {
	Remove(ctx context.Context, predictions []transit.Prediction)
}

// DemotionSink receives the final record written when a vehicle times out
type DemotionSink interface {
	TrySubmit(document any) bool
}

// Supervisor periodically demotes vehicles that have stopped reporting.
// Vehicles holding at a layover get a shorter leash, to catch ones powered
// down at a terminal sooner
type Supervisor struct {
	store *Store
	cache PredictionRemover
	sink  DemotionSink

	coreConfig config.CoreConfig

	now func() time.Time
}

func NewSupervisor(store *Store, cache PredictionRemover, sink DemotionSink, coreConfig config.CoreConfig) *Supervisor {
	return &Supervisor{
		store: store,
		cache: cache,
		sink:  sink,

		coreConfig: coreConfig,

		now: time.Now,
	}
}

func (s *Supervisor) Run(ctx context.Context) {
	log.Info().
		Dur("period", s.coreConfig.SupervisorPeriod).
		Dur("timeout", s.coreConfig.VehicleTimeout).
		Dur("layovertimeout", s.coreConfig.LayoverTimeout).
		Bool("remove", s.coreConfig.RemoveOnTimeout).
		Msg("Starting vehicle timeout supervisor")

	ticker := time.NewTicker(s.coreConfig.SupervisorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one supervisor cycle over every vehicle in the store
func (s *Supervisor) Sweep() {
	now := s.now()

	s.store.Range(func(status *VehicleStatus) bool {
		reportTime, ok := status.LastReportTime()
		if !ok {
			return true
		}

		age := now.Sub(reportTime)

		match := status.CurrentMatch()

		allowed := s.coreConfig.VehicleTimeout
		if match != nil && match.AtLayover {
			allowed = s.coreConfig.LayoverTimeout
		}

		if age <= allowed {
			return true
		}

		wasPredictable := status.IsPredictable()
		if wasPredictable {
			log.Info().
				Str("vehicle", status.VehicleID).
				Dur("age", age).
				Dur("allowed", allowed).
				Msg("Vehicle timed out, marking unpredictable")
		}

		stale := status.MarkUnpredictable()

		if s.cache != nil && len(stale) > 0 {
			s.cache.Remove(context.Background(), stale)
		}

		if s.coreConfig.RemoveOnTimeout {
			s.store.Remove(status.VehicleID)
		}

		// One final record of the demotion lands durably, so a vehicle's
		// disappearance from the feed can be traced later
		if wasPredictable && s.sink != nil {
			demotion := &transit.Demotion{
				VehicleID: status.VehicleID,

				LastAvlTime: reportTime,
				Removed:     s.coreConfig.RemoveOnTimeout,
				OccurredAt:  now,
			}

			if match != nil {
				demotion.BlockID = match.BlockID
				demotion.TripID = match.TripID
			}

			s.sink.TrySubmit(demotion)
		}

		return true
	})
}

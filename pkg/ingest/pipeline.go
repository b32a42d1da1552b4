package ingest

import (
	"context"

	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/dispatch"
	"github.com/transitflow/transitflow/pkg/matcher"
	"github.com/transitflow/transitflow/pkg/predictions"
	"github.com/transitflow/transitflow/pkg/schedule"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

// Pipeline is the assembled ingestion & matching core: queue, partition
// workers, matching engine & downstream dispatch, sharing one vehicle state
// store. Feed pollers only ever talk to Submit
type Pipeline struct {
	Queue     *ReportQueue
	Processor *Processor
	Store     *vehiclestate.Store
	Cache     *predictions.Cache
}

func NewPipeline(
	index *schedule.Index,
	cache *predictions.Cache,
	locations *LocationCache,
	sink dispatch.Sink,
	coreConfig config.CoreConfig,
) *Pipeline {
	store := vehiclestate.NewStore()

	engine := matcher.NewEngine(index, coreConfig)

	dispatcher := dispatch.NewDispatcher(
		predictions.NewScheduleOffsetGenerator(index),
		predictions.NewRouteProgressHeadwayGenerator(index, store),
		dispatch.NewArrivalDepartureGenerator(index),
		cache,
		sink,
		coreConfig,
	)

	queue := NewReportQueue(coreConfig.Workers, coreConfig.QueueCapacity)

	return &Pipeline{
		Queue:     queue,
		Processor: NewProcessor(queue, store, engine, dispatcher, locations, sink, coreConfig),
		Store:     store,
		Cache:     cache,
	}
}

func (p *Pipeline) Start(ctx context.Context) {
	p.Processor.Start(ctx)
}

func (p *Pipeline) Wait() {
	p.Processor.Wait()
}

// Submit offers one report to the core without blocking the caller. False
// means the report was shed
func (p *Pipeline) Submit(report *transit.AvlReport) bool {
	return p.Queue.TryEnqueue(report)
}

// SubmitBatch offers a whole fetch cycle's worth of reports, returning how
// many were accepted
func (p *Pipeline) SubmitBatch(reports []*transit.AvlReport) int {
	accepted := 0

	for _, report := range reports {
		if p.Submit(report) {
			accepted += 1
		}
	}

	return accepted
}

package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eko/gocache/lib/v4/store"
	"github.com/stretchr/testify/assert"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/matcher"
	"github.com/transitflow/transitflow/pkg/transit"
	"github.com/transitflow/transitflow/pkg/vehiclestate"
)

type fakeMatcher struct {
	mutex   sync.Mutex
	reports []*transit.AvlReport

	matched bool
	panics  bool

	// busy counts overlapping MatchReport calls; delay widens the window so
	// an interleaving would actually be caught
	busy       int
	overlapped bool
	delay      time.Duration
}

func (m *fakeMatcher) MatchReport(status *vehiclestate.VehicleStatus, report *transit.AvlReport) matcher.Outcome {
	m.mutex.Lock()
	m.reports = append(m.reports, report)
	m.busy++
	if m.busy > 1 {
		m.overlapped = true
	}
	m.mutex.Unlock()

	defer func() {
		m.mutex.Lock()
		m.busy--
		m.mutex.Unlock()
	}()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if m.panics {
		panic("matcher exploded")
	}

	if !m.matched {
		status.RecordNoMatch(report)
		return matcher.Outcome{Matched: false, FailReason: "test"}
	}

	match := &transit.Match{VehicleID: report.VehicleID, RouteID: "route-1", TripID: "trip-1", AvlTime: report.Timestamp()}
	status.RecordMatch(report, match, "weekday", "block-1")

	return matcher.Outcome{Matched: true, Match: match}
}

func (m *fakeMatcher) calls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.reports)
}

func (m *fakeMatcher) sawOverlap() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.overlapped
}

func (m *fakeMatcher) times() []int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	times := make([]int64, len(m.reports))
	for i, report := range m.reports {
		times[i] = report.Time
	}

	return times
}

type fakeDispatcher struct {
	mutex    sync.Mutex
	vehicles []string
}

func (d *fakeDispatcher) ProcessMatch(status *vehiclestate.VehicleStatus) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.vehicles = append(d.vehicles, status.VehicleID)
}

func (d *fakeDispatcher) calls() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return len(d.vehicles)
}

type fakeCacheStore struct {
	mutex sync.Mutex
	keys  []string
}

func (s *fakeCacheStore) Set(ctx context.Context, key any, object string, options ...store.Option) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.keys = append(s.keys, key.(string))

	return nil
}

func (s *fakeCacheStore) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.keys)
}

type fakeSink struct {
	mutex     sync.Mutex
	documents []any
}

func (s *fakeSink) TrySubmit(document any) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.documents = append(s.documents, document)

	return true
}

func (s *fakeSink) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.documents)
}

type processorHarness struct {
	processor  *Processor
	store      *vehiclestate.Store
	matcher    *fakeMatcher
	dispatcher *fakeDispatcher
	locations  *fakeCacheStore
	sink       *fakeSink
}

func newProcessorHarness(matched bool) *processorHarness {
	harness := &processorHarness{
		store:      vehiclestate.NewStore(),
		matcher:    &fakeMatcher{matched: matched},
		dispatcher: &fakeDispatcher{},
		locations:  &fakeCacheStore{},
		sink:       &fakeSink{},
	}

	harness.processor = NewProcessor(
		NewReportQueue(1, 10),
		harness.store,
		harness.matcher,
		harness.dispatcher,
		NewLocationCache(harness.locations),
		harness.sink,
		config.GetCoreConfig(),
	)

	return harness
}

func validReport(vehicleID string, timeMillis int64) *transit.AvlReport {
	return &transit.AvlReport{
		VehicleID: vehicleID,
		Time:      timeMillis,
		Location:  transit.NewPoint(-122.4, 37.7),
		Source:    "test",
	}
}

func TestProcessorHandlesMatchedReport(t *testing.T) {
	harness := newProcessorHarness(true)

	harness.processor.handle(validReport("bus-1", 10_000))

	assert.Equal(t, 1, harness.matcher.calls())
	assert.Equal(t, 1, harness.dispatcher.calls())
	assert.Equal(t, 1, harness.sink.count())
	assert.Equal(t, 1, harness.locations.count())

	status, found := harness.store.Get("bus-1")
	assert.True(t, found)
	assert.True(t, status.IsPredictable())
}

func TestProcessorDiscardsInvalidReport(t *testing.T) {
	harness := newProcessorHarness(true)

	harness.processor.handle(&transit.AvlReport{VehicleID: "", Time: 10_000})

	assert.Zero(t, harness.matcher.calls())
	assert.Zero(t, harness.sink.count())
	assert.Zero(t, harness.locations.count())
}

func TestProcessorDiscardsStaleReport(t *testing.T) {
	harness := newProcessorHarness(true)

	harness.processor.handle(validReport("bus-1", 10_000))
	harness.processor.handle(validReport("bus-1", 10_000))
	harness.processor.handle(validReport("bus-1", 9_000))

	assert.Equal(t, 1, harness.matcher.calls())
}

func TestProcessorRateLimitsToLocationOnly(t *testing.T) {
	harness := newProcessorHarness(true)

	harness.processor.handle(validReport("bus-1", 10_000))

	// Two seconds later, inside the five second minimum interval: position
	// refresh only, no matching and no state advance
	harness.processor.handle(validReport("bus-1", 12_000))

	assert.Equal(t, 1, harness.matcher.calls())
	assert.Equal(t, 1, harness.sink.count())
	assert.Equal(t, 2, harness.locations.count())

	status, _ := harness.store.Get("bus-1")
	assert.Equal(t, int64(10_000), status.LastReport.Time)

	// The rate limited report did not advance the interval base, so a report
	// five seconds after the first one goes through in full
	harness.processor.handle(validReport("bus-1", 15_000))

	assert.Equal(t, 2, harness.matcher.calls())
}

func TestProcessorUnmatchedReportSkipsDispatch(t *testing.T) {
	harness := newProcessorHarness(false)

	harness.processor.handle(validReport("bus-1", 10_000))

	assert.Equal(t, 1, harness.matcher.calls())
	assert.Zero(t, harness.dispatcher.calls())

	status, _ := harness.store.Get("bus-1")
	assert.False(t, status.IsPredictable())
}

func TestProcessorWorkerSurvivesPanic(t *testing.T) {
	harness := newProcessorHarness(true)
	harness.matcher.panics = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness.processor.Start(ctx)

	queue := harness.processor.queue
	queue.TryEnqueue(validReport("bus-1", 10_000))
	queue.TryEnqueue(validReport("bus-1", 20_000))

	assert.Eventually(t, func() bool {
		return harness.matcher.calls() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	harness.processor.Wait()
}

func TestProcessorSerializesSameVehicleReports(t *testing.T) {
	harness := &processorHarness{
		store:      vehiclestate.NewStore(),
		matcher:    &fakeMatcher{matched: true, delay: time.Millisecond},
		dispatcher: &fakeDispatcher{},
		locations:  &fakeCacheStore{},
		sink:       &fakeSink{},
	}

	queue := NewReportQueue(4, 1000)

	harness.processor = NewProcessor(
		queue,
		harness.store,
		harness.matcher,
		harness.dispatcher,
		NewLocationCache(harness.locations),
		harness.sink,
		config.GetCoreConfig(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness.processor.Start(ctx)

	// Four producers race one vehicle's reports into the queue, spaced well
	// past the minimum interval so none hit the rate limit gate
	const producers = 4
	const perProducer = 25
	const base = int64(1_000_000)

	var producerGroup sync.WaitGroup
	for producer := 0; producer < producers; producer++ {
		producer := producer

		producerGroup.Add(1)
		go func() {
			defer producerGroup.Done()

			for i := 0; i < perProducer; i++ {
				offset := int64(producer*perProducer + i)
				queue.TryEnqueue(validReport("bus-1", base+offset*10_000))
			}
		}()
	}
	producerGroup.Wait()

	newest := base + int64(producers*perProducer-1)*10_000

	// The newest report can never be superseded or shed here, so the final
	// state must land on it regardless of arrival interleaving
	assert.Eventually(t, func() bool {
		status, found := harness.store.Get("bus-1")
		if !found {
			return false
		}

		reportTime, ok := status.LastReportTime()

		return ok && reportTime.UnixMilli() == newest
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	harness.processor.Wait()

	// Matching never ran for two of the vehicle's reports at once
	assert.False(t, harness.matcher.sawOverlap())

	// And only ever saw the vehicle's timestamps moving forwards
	times := harness.matcher.times()
	for i := 1; i < len(times); i++ {
		assert.Greater(t, times[i], times[i-1])
	}

	status, _ := harness.store.Get("bus-1")
	assert.Equal(t, newest, status.CurrentMatch().AvlTime.UnixMilli())
}

func TestProcessorEndToEnd(t *testing.T) {
	harness := newProcessorHarness(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	harness.processor.Start(ctx)

	harness.processor.queue.TryEnqueue(validReport("bus-1", 10_000))
	harness.processor.queue.TryEnqueue(validReport("bus-2", 10_000))

	assert.Eventually(t, func() bool {
		return harness.dispatcher.calls() == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	harness.processor.Wait()
}

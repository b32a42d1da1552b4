package ingest

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/transit"
)

// ReportQueue is the bounded buffer between feed producers & the processing
// workers. It is split into one channel per partition, with a vehicle always
// hashing to the same partition, and it remembers the newest offered
// timestamp per vehicle so dequeues can skip reports that have already been
// superseded
type ReportQueue struct {
	partitions []chan *transit.AvlReport

	latest sync.Map // vehicle ID -> *atomic.Int64 of epoch millis
}

func NewReportQueue(partitions int, capacity int) *ReportQueue {
	if partitions < 1 {
		partitions = 1
	}

	perPartition := capacity / partitions
	if perPartition < 1 {
		perPartition = 1
	}

	queue := &ReportQueue{
		partitions: make([]chan *transit.AvlReport, partitions),
	}

	for i := range queue.partitions {
		queue.partitions[i] = make(chan *transit.AvlReport, perPartition)
	}

	return queue
}

func (q *ReportQueue) Partitions() int {
	return len(q.partitions)
}

func (q *ReportQueue) PartitionFor(vehicleID string) int {
	hasher := fnv.New32a()
	hasher.Write([]byte(vehicleID))

	return int(hasher.Sum32() % uint32(len(q.partitions)))
}

// TryEnqueue offers a report to the queue. The freshness marker is updated
// before the insert is attempted, so even a shed report still supersedes
// older queued ones - freshness tracking is deliberately best effort
func (q *ReportQueue) TryEnqueue(report *transit.AvlReport) bool {
	q.noteLatest(report)

	select {
	case q.partitions[q.PartitionFor(report.VehicleID)] <- report:
		return true
	default:
		log.Error().
			Str("vehicle", report.VehicleID).
			Str("source", report.Source).
			Msg("Report queue full, shedding report")

		return false
	}
}

// Dequeue blocks until a report that is still the freshest known for its
// vehicle is available on the partition, or the context ends
func (q *ReportQueue) Dequeue(ctx context.Context, partition int) (*transit.AvlReport, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case report := <-q.partitions[partition]:
			if q.superseded(report) {
				log.Debug().
					Str("vehicle", report.VehicleID).
					Int64("time", report.Time).
					Msg("Skipping superseded report")

				continue
			}

			return report, true
		}
	}
}

// Len is the number of buffered reports across all partitions
func (q *ReportQueue) Len() int {
	total := 0

	for _, partition := range q.partitions {
		total += len(partition)
	}

	return total
}

func (q *ReportQueue) noteLatest(report *transit.AvlReport) {
	entry, _ := q.latest.LoadOrStore(report.VehicleID, &atomic.Int64{})
	newest := entry.(*atomic.Int64)

	for {
		current := newest.Load()

		if report.Time <= current {
			return
		}

		if newest.CompareAndSwap(current, report.Time) {
			return
		}
	}
}

func (q *ReportQueue) superseded(report *transit.AvlReport) bool {
	entry, ok := q.latest.Load(report.VehicleID)
	if !ok {
		return false
	}

	return report.Time < entry.(*atomic.Int64).Load()
}

package feed

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/ingest"
	"github.com/transitflow/transitflow/pkg/transit"
)

// Submitter takes parsed reports off a poller's hands. Returns how many
// were accepted
type Submitter interface {
	SubmitReports(reports []*transit.AvlReport) int
}

// PipelineSubmitter feeds reports straight into the in-process pipeline
type PipelineSubmitter struct {
	Pipeline *ingest.Pipeline
}

func (s *PipelineSubmitter) SubmitReports(reports []*transit.AvlReport) int {
	return s.Pipeline.SubmitBatch(reports)
}

// QueuePublisher hands reports to a Redis queue for a separate tracker
// process to consume
type QueuePublisher struct {
	Queue rmq.Queue
}

func (s *QueuePublisher) SubmitReports(reports []*transit.AvlReport) int {
	published := 0

	for _, report := range reports {
		reportJSON, err := json.Marshal(report)
		if err != nil {
			log.Error().Err(err).Str("vehicle", report.VehicleID).Msg("Failed to marshal report for queue")
			continue
		}

		if err := s.Queue.PublishBytes(reportJSON); err != nil {
			log.Error().Err(err).Msg("Failed to publish report to queue")
			continue
		}

		published += 1
	}

	return published
}

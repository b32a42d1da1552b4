package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/ingest"
	"github.com/transitflow/transitflow/pkg/redis_client"
	"github.com/transitflow/transitflow/pkg/transit"
)

const QueueName = "avl-reports-queue"

const numConsumers = 5
const batchSize = 200

// StartConsumers drains the Redis report queue into the pipeline
func StartConsumers(pipeline *ingest.Pipeline) error {
	log.Info().Msg("Starting report queue consumers")

	queue, err := redis_client.QueueConnection.OpenQueue(QueueName)
	if err != nil {
		return err
	}
	if err := queue.StartConsuming(numConsumers*batchSize, 1*time.Second); err != nil {
		return err
	}

	for i := 0; i < numConsumers; i++ {
		if _, err := queue.AddBatchConsumer(fmt.Sprintf("%s-%d", QueueName, i), batchSize, 2*time.Second, NewBatchConsumer(pipeline, i)); err != nil {
			return err
		}
	}

	return nil
}

type BatchConsumer struct {
	pipeline *ingest.Pipeline
	id       int
}

func NewBatchConsumer(pipeline *ingest.Pipeline, id int) *BatchConsumer {
	return &BatchConsumer{pipeline: pipeline, id: id}
}

func (consumer *BatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var report *transit.AvlReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal queued report")
			continue
		}

		consumer.pipeline.Submit(report)
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to consume from queue")
		}
	}
}

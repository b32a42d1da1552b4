package sink

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/transitflow/transitflow/pkg/config"
	"github.com/transitflow/transitflow/pkg/transit"
)

// BatchWriter lands a batch of documents in one collection of the durable
// store
type BatchWriter interface {
	WriteBatch(ctx context.Context, collection string, documents []any) error
}

const (
	CollectionAvlReports        = "avl_reports"
	CollectionMatches           = "matches"
	CollectionPredictions       = "predictions"
	CollectionHeadways          = "headways"
	CollectionArrivalDepartures = "arrival_departures"
	CollectionDemotions         = "demotions"
)

// Writer is the fire & forget write-behind queue in front of the durable
// store. Submissions are rejected outright when the buffer is full: under
// sustained overload shedding data beats stalling the pipeline
type Writer struct {
	pending chan any

	writer BatchWriter

	batchSize int
	flush     time.Duration
}

func NewWriter(batchWriter BatchWriter, coreConfig config.CoreConfig) *Writer {
	return &Writer{
		pending: make(chan any, coreConfig.SinkCapacity),

		writer: batchWriter,

		batchSize: coreConfig.SinkBatchSize,
		flush:     coreConfig.SinkFlush,
	}
}

// TrySubmit enqueues a domain object for eventual persistence. Returns false
// when the buffer is full, the object is then lost
func (w *Writer) TrySubmit(document any) bool {
	if collectionFor(document) == "" {
		log.Error().Type("document", document).Msg("Refusing to persist unknown document type")
		return false
	}

	select {
	case w.pending <- document:
		return true
	default:
		log.Error().Type("document", document).Msg("Write-behind buffer full, dropping document")
		return false
	}
}

// Run drains the buffer into grouped bulk writes until the context ends
func (w *Writer) Run(ctx context.Context) {
	log.Info().
		Int("capacity", cap(w.pending)).
		Int("batchsize", w.batchSize).
		Dur("flush", w.flush).
		Msg("Starting write-behind sink")

	ticker := time.NewTicker(w.flush)
	defer ticker.Stop()

	batch := make([]any, 0, w.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}

		w.writeGrouped(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case document := <-w.pending:
			batch = append(batch, document)

			if len(batch) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *Writer) writeGrouped(ctx context.Context, batch []any) {
	grouped := map[string][]any{}

	for _, document := range batch {
		collection := collectionFor(document)
		grouped[collection] = append(grouped[collection], document)
	}

	startTime := time.Now()

	for collection, documents := range grouped {
		if err := w.writer.WriteBatch(ctx, collection, documents); err != nil {
			log.Error().Err(err).Str("collection", collection).Int("length", len(documents)).Msg("Failed to bulk write documents")
		}
	}

	log.Debug().Int("length", len(batch)).Str("time", time.Since(startTime).String()).Msg("Sink bulk write")
}

func collectionFor(document any) string {
	switch document.(type) {
	case *transit.AvlReport, transit.AvlReport:
		return CollectionAvlReports
	case *transit.Match, transit.Match:
		return CollectionMatches
	case *transit.Prediction, transit.Prediction:
		return CollectionPredictions
	case *transit.Headway, transit.Headway:
		return CollectionHeadways
	case *transit.ArrivalDeparture, transit.ArrivalDeparture:
		return CollectionArrivalDepartures
	case *transit.Demotion, transit.Demotion:
		return CollectionDemotions
	default:
		return ""
	}
}

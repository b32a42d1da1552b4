package sink

import (
	"context"

	"github.com/transitflow/transitflow/pkg/database"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBatchWriter lands sink batches in MongoDB with one BulkWrite per
// collection
type MongoBatchWriter struct{}

func NewMongoBatchWriter() *MongoBatchWriter {
	return &MongoBatchWriter{}
}

func (m *MongoBatchWriter) WriteBatch(ctx context.Context, collection string, documents []any) error {
	operations := make([]mongo.WriteModel, 0, len(documents))

	for _, document := range documents {
		operations = append(operations, mongo.NewInsertOneModel().SetDocument(document))
	}

	_, err := database.GetCollection(collection).BulkWrite(ctx, operations, &options.BulkWriteOptions{})

	return err
}

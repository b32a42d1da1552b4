package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createAvlIndexes()
	createDerivedIndexes()
}

func createAvlIndexes() {
	avlReportsCollection := GetCollection("avl_reports")
	_, err := avlReportsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "vehicleid", Value: 1},
				{Key: "time", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "location.coordinates", Value: "2d"}},
		},
		{
			Keys:    bson.D{{Key: "recordedat", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(72 * 3600), // Expire after 3 days
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	matchesCollection := GetCollection("matches")
	_, err = matchesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "vehicleid", Value: 1},
				{Key: "avltime", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "tripid", Value: 1},
				{Key: "stoppathindex", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createDerivedIndexes() {
	predictionsCollection := GetCollection("predictions")
	_, err := predictionsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tripid", Value: 1},
				{Key: "stopid", Value: 1},
			},
		},
		{
			Keys:    bson.D{{Key: "generatedat", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(24 * 3600), // Expire after a day
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	headwaysCollection := GetCollection("headways")
	_, err = headwaysCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "routeid", Value: 1},
				{Key: "createdat", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	demotionsCollection := GetCollection("demotions")
	_, err = demotionsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "vehicleid", Value: 1},
				{Key: "occurredat", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	arrivalDeparturesCollection := GetCollection("arrival_departures")
	_, err = arrivalDeparturesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tripid", Value: 1},
				{Key: "stopid", Value: 1},
				{Key: "eventtime", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "vehicleid", Value: 1},
				{Key: "eventtime", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

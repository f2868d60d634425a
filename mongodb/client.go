// Package mongodb implements the domain repositories over MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

// Connect establishes the MongoDB connection and verifies it with a ping.
// There is no lazy-ready machinery and no ambient singleton: the caller
// constructs the handle once at startup, fails fast on error, and passes
// it to every repository.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	log.Info().Str("db", dbName).Msg("Connecting to MongoDB")

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB primary: %w", err)
	}

	log.Info().Msg("MongoDB connection established")
	return client, client.Database(dbName), nil
}

// Disconnect closes the client, logging rather than failing on error.
func Disconnect(ctx context.Context, client *mongo.Client) {
	if client == nil {
		return
	}
	log.Info().Msg("Closing MongoDB connection")
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing MongoDB connection")
	}
}

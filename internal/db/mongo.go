package db

import (
	"context"
	"fmt"
	"time"

	"animaaz/internal/config"
	"animaaz/internal/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	AnimeCollection    = "anime"
	CurationCollection = "curations"
	RatingCollection   = "ratings"
	CommentCollection  = "comments"
)

var mongoClient *mongo.Client
var mongoDB *mongo.Database

func InitMongo(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping: %w", err)
	}

	mongoClient = client
	mongoDB = client.Database(cfg.MongoDB)
	logging.Info().Str("db", cfg.MongoDB).Msg("mongo connected")
	return nil
}

func DB() *mongo.Database {
	return mongoDB
}

// Ping is used by the health endpoint.
func Ping(ctx context.Context) error {
	if mongoClient == nil {
		return fmt.Errorf("mongo not initialised")
	}
	return mongoClient.Ping(ctx, nil)
}

func Close(ctx context.Context) error {
	if mongoClient == nil {
		return nil
	}
	return mongoClient.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// indexes back the one-bucket-per-type and one-rating-per-user rules.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		CurationCollection: {
			{Keys: bson.D{{Key: "type", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RatingCollection: {
			{Keys: bson.D{{Key: "animeId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CommentCollection: {
			{Keys: bson.D{{Key: "animeId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		AnimeCollection: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "genres", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

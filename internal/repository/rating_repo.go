package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"animaaz/internal/db"
	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RatingRepository struct {
	col *mongo.Collection
}

func NewRatingRepository(database *mongo.Database) *RatingRepository {
	return &RatingRepository{col: database.Collection(db.RatingCollection)}
}

// Upsert stores the user's rating in one atomic write keyed by
// (animeId, userId). created reports whether this was the user's first
// rating of the anime.
func (r *RatingRepository) Upsert(ctx context.Context, animeID primitive.ObjectID, userID string, value int) (bool, error) {
	now := time.Now().UTC()
	filter := bson.M{"animeId": animeID, "userId": userID}
	update := bson.M{
		"$set":         bson.M{"value": value, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.Update().SetUpsert(true)

	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// lost an insert race against the same user; the second try updates
		res, err = r.col.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return false, fmt.Errorf("upsert rating: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

// Aggregate recomputes the average and count from the stored ratings.
func (r *RatingRepository) Aggregate(ctx context.Context, animeID primitive.ObjectID) (float64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"animeId": animeID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$value"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate ratings: %w", err)
	}
	defer cur.Close(ctx)

	var row struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if !cur.Next(ctx) {
		return 0, 0, cur.Err()
	}
	if err := cur.Decode(&row); err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}

func (r *RatingRepository) GetOne(ctx context.Context, animeID primitive.ObjectID, userID string) (*models.RatingDoc, error) {
	var d models.RatingDoc
	err := r.col.FindOne(ctx, bson.M{"animeId": animeID, "userId": userID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"animaaz/internal/db"
	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CurationRepository struct {
	col *mongo.Collection
}

func NewCurationRepository(database *mongo.Database) *CurationRepository {
	return &CurationRepository{col: database.Collection(db.CurationCollection)}
}

// Get returns nil, nil when the bucket has never been written.
func (r *CurationRepository) Get(ctx context.Context, t models.BucketType) (*models.CurationBucket, error) {
	var b models.CurationBucket
	err := r.col.FindOne(ctx, bson.M{"type": t}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get curation %s: %w", t, err)
	}
	return &b, nil
}

// Upsert creates the bucket or replaces its id list. Metadata is only
// replaced when b.Metadata is non-nil.
func (r *CurationRepository) Upsert(ctx context.Context, b *models.CurationBucket) (*models.CurationBucket, error) {
	ids := b.AnimeIDs
	if ids == nil {
		ids = []string{}
	}
	updatedAt := b.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	set := bson.M{
		"animeIds":  ids,
		"updatedBy": b.UpdatedBy,
		"updatedAt": updatedAt,
	}
	if b.Metadata != nil {
		set["metadata"] = b.Metadata
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.CurationBucket
	err := r.col.FindOneAndUpdate(ctx, bson.M{"type": b.Type}, bson.M{"$set": set}, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		// two first writes raced on the unique type index; the row exists now
		err = r.col.FindOneAndUpdate(ctx, bson.M{"type": b.Type}, bson.M{"$set": set}, opts).Decode(&out)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert curation %s: %w", b.Type, err)
	}
	return &out, nil
}

func (r *CurationRepository) List(ctx context.Context) ([]models.CurationBucket, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "type", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list curations: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.CurationBucket{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"animaaz/internal/db"
	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CommentRepository struct {
	col *mongo.Collection
}

func NewCommentRepository(database *mongo.Database) *CommentRepository {
	return &CommentRepository{col: database.Collection(db.CommentCollection)}
}

func (r *CommentRepository) Insert(ctx context.Context, c *models.Comment) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByAnime returns the flat comment list of an anime, oldest first.
func (r *CommentRepository) ListByAnime(ctx context.Context, animeID primitive.ObjectID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"animeId": animeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer cur.Close(ctx)

	out := []*models.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

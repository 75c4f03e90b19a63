package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"animaaz/internal/db"
	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AnimeRepository struct {
	col *mongo.Collection
}

func NewAnimeRepository(database *mongo.Database) *AnimeRepository {
	return &AnimeRepository{col: database.Collection(db.AnimeCollection)}
}

// cardProjection keeps the display fields only. likesCount replaces the
// likes array and missing counters read as 0.
var cardProjection = bson.M{
	"title":         1,
	"description":   1,
	"coverImage":    1,
	"bannerImage":   1,
	"genres":        1,
	"status":        1,
	"year":          1,
	"updatedAt":     1,
	"averageRating": bson.M{"$ifNull": bson.A{"$averageRating", 0}},
	"ratingsCount":  bson.M{"$ifNull": bson.A{"$ratingsCount", 0}},
	"views":         bson.M{"$ifNull": bson.A{"$views", 0}},
	"dummyViews":    bson.M{"$ifNull": bson.A{"$dummyViews", 0}},
	"dummyLikes":    bson.M{"$ifNull": bson.A{"$dummyLikes", 0}},
	"likesCount":    bson.M{"$size": bson.M{"$ifNull": bson.A{"$likes", bson.A{}}}},
}

var bannerProjection = bson.M{
	"title":       1,
	"description": 1,
	"coverImage":  1,
	"bannerImage": 1,
	"images":      1,
	"year":        1,
	"status":      1,
	"genres":      1,
}

func activeFilter() bson.M {
	return bson.M{"isActive": true}
}

// Candidates returns the card projection of every active record carrying
// the flag, or of every active record when flag is empty. Ordering is left
// to the caller.
func (r *AnimeRepository) Candidates(ctx context.Context, flag models.BucketType) ([]models.AnimeCard, error) {
	match := activeFilter()
	if flag != "" {
		match[flag.Field()] = true
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: cardProjection}},
	}
	return r.aggregateCards(ctx, pipeline)
}

// FindCardsByIDs returns the active records among ids, in no particular order.
func (r *AnimeRepository) FindCardsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.AnimeCard, error) {
	if len(ids) == 0 {
		return []models.AnimeCard{}, nil
	}
	match := activeFilter()
	match["_id"] = bson.M{"$in": ids}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: cardProjection}},
	}
	return r.aggregateCards(ctx, pipeline)
}

func (r *AnimeRepository) FindBannerItemsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.BannerItem, error) {
	if len(ids) == 0 {
		return []models.BannerItem{}, nil
	}
	filter := activeFilter()
	filter["_id"] = bson.M{"$in": ids}

	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(bannerProjection))
	if err != nil {
		return nil, fmt.Errorf("find banner items: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.BannerItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode banner items: %w", err)
	}
	return out, nil
}

func (r *AnimeRepository) aggregateCards(ctx context.Context, pipeline mongo.Pipeline) ([]models.AnimeCard, error) {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate cards: %w", err)
	}
	defer cur.Close(ctx)

	out := []models.AnimeCard{}
	for cur.Next(ctx) {
		var c models.AnimeCard
		if err := cur.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode card: %w", err)
		}
		out = append(out, c)
	}
	return out, cur.Err()
}

// GetByID returns nil, nil when no record matches. With activeOnly set,
// soft-deleted records are treated as missing.
func (r *AnimeRepository) GetByID(ctx context.Context, id primitive.ObjectID, activeOnly bool) (*models.Anime, error) {
	filter := bson.M{"_id": id}
	if activeOnly {
		filter["isActive"] = true
	}

	var a models.Anime
	err := r.col.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var listSorts = map[string]bson.D{
	"recent": {{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}},
	"rating": {{Key: "averageRating", Value: -1}, {Key: "_id", Value: -1}},
	"views":  {{Key: "views", Value: -1}, {Key: "_id", Value: -1}},
	"title":  {{Key: "title", Value: 1}, {Key: "_id", Value: 1}},
}

// List serves the paginated catalog. Filters combine with AND.
func (r *AnimeRepository) List(ctx context.Context, q models.ListQuery) ([]models.AnimeCard, int64, error) {
	filter := activeFilter()
	if q.Q != "" {
		filter["$or"] = textMatch(q.Q)
	}
	if q.Genre != "" {
		// genres is an array; equality matches membership
		filter["genres"] = q.Genre
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Year > 0 {
		filter["year"] = q.Year
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count anime: %w", err)
	}

	sortSpec, ok := listSorts[q.Sort]
	if !ok {
		sortSpec = listSorts["recent"]
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: sortSpec}},
		{{Key: "$skip", Value: int64((q.Page - 1) * q.Limit)}},
		{{Key: "$limit", Value: int64(q.Limit)}},
		{{Key: "$project", Value: cardProjection}},
	}
	items, err := r.aggregateCards(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Search matches the literal text, case-insensitively, against title,
// description, tags and genres.
func (r *AnimeRepository) Search(ctx context.Context, text string, limit int) ([]models.AnimeCard, error) {
	filter := activeFilter()
	filter["$or"] = textMatch(text)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$project", Value: cardProjection}},
	}
	return r.aggregateCards(ctx, pipeline)
}

func textMatch(text string) bson.A {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	return bson.A{
		bson.M{"title": re},
		bson.M{"description": re},
		bson.M{"tags": re},
		bson.M{"genres": re},
	}
}

// Genres returns the distinct genres of active records, sorted.
func (r *AnimeRepository) Genres(ctx context.Context) ([]string, error) {
	raw, err := r.col.Distinct(ctx, "genres", activeFilter())
	if err != nil {
		return nil, fmt.Errorf("distinct genres: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *AnimeRepository) Insert(ctx context.Context, a *models.Anime) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Likes == nil {
		a.Likes = []string{}
	}
	_, err := r.col.InsertOne(ctx, a)
	if err != nil {
		return fmt.Errorf("insert anime: %w", err)
	}
	return nil
}

// Update applies a partial $set and returns the updated record, or nil when
// the id is unknown.
func (r *AnimeRepository) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*models.Anime, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *AnimeRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("soft delete anime: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// IncrementViews bumps the real view counter of an active record.
func (r *AnimeRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Anime, error) {
	filter := activeFilter()
	filter["_id"] = id
	return r.findOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"views": 1}})
}

// ToggleLike adds the user to likes, or removes them when already present.
// It returns nil when the record is missing or inactive.
func (r *AnimeRepository) ToggleLike(ctx context.Context, id primitive.ObjectID, userID string) (*models.Anime, bool, error) {
	filter := activeFilter()
	filter["_id"] = id
	filter["likes"] = bson.M{"$ne": userID}
	a, err := r.findOneAndUpdate(ctx, filter, bson.M{"$addToSet": bson.M{"likes": userID}})
	if err != nil || a != nil {
		return a, a != nil, err
	}

	filter["likes"] = userID
	a, err = r.findOneAndUpdate(ctx, filter, bson.M{"$pull": bson.M{"likes": userID}})
	return a, false, err
}

// SetCounters overwrites the synthetic counters present in set.
func (r *AnimeRepository) SetCounters(ctx context.Context, id primitive.ObjectID, dummyLikes, dummyViews *int64) (*models.Anime, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if dummyLikes != nil {
		set["dummyLikes"] = *dummyLikes
	}
	if dummyViews != nil {
		set["dummyViews"] = *dummyViews
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *AnimeRepository) SetRatingAggregate(ctx context.Context, id primitive.ObjectID, avg float64, count int64) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"averageRating": avg, "ratingsCount": count}},
	)
	if err != nil {
		return fmt.Errorf("set rating aggregate: %w", err)
	}
	return nil
}

// SetFlagMembership makes flag true on exactly the records in ids and false
// everywhere else, as one conditional update over the whole collection.
func (r *AnimeRepository) SetFlagMembership(ctx context.Context, flag models.BucketType, ids []primitive.ObjectID) (int64, error) {
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: flag.Field(), Value: bson.M{"$in": bson.A{"$_id", ids}}},
		}}},
	}
	res, err := r.col.UpdateMany(ctx, bson.M{}, update)
	if err != nil {
		return 0, fmt.Errorf("set %s membership: %w", flag, err)
	}
	return res.ModifiedCount, nil
}

func (r *AnimeRepository) CountFlag(ctx context.Context, flag models.BucketType) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{flag.Field(): true})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", flag, err)
	}
	return n, nil
}

// FlaggedIDs returns the hex ids of every record carrying the flag.
func (r *AnimeRepository) FlaggedIDs(ctx context.Context, flag models.BucketType) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := r.col.Find(ctx, bson.M{flag.Field(): true}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s ids: %w", flag, err)
	}
	defer cur.Close(ctx)

	out := []string{}
	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.ID.Hex())
	}
	return out, cur.Err()
}

func (r *AnimeRepository) findOneAndUpdate(ctx context.Context, filter, update any) (*models.Anime, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.Anime
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

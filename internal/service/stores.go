package service

import (
	"context"
	"errors"

	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidBucketType = errors.New("invalid curation type")
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidCounter    = errors.New("invalid counter")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidComment    = errors.New("comment text is required")
	ErrParentNotFound    = errors.New("parent comment not found")
)

// FlagStore is the part of the content store the curation engine uses.
type FlagStore interface {
	Candidates(ctx context.Context, flag models.BucketType) ([]models.AnimeCard, error)
	FindCardsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.AnimeCard, error)
	FindBannerItemsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.BannerItem, error)
	SetFlagMembership(ctx context.Context, flag models.BucketType, ids []primitive.ObjectID) (int64, error)
	CountFlag(ctx context.Context, flag models.BucketType) (int64, error)
	FlaggedIDs(ctx context.Context, flag models.BucketType) ([]string, error)
	SetCounters(ctx context.Context, id primitive.ObjectID, dummyLikes, dummyViews *int64) (*models.Anime, error)
}

type CurationStore interface {
	Get(ctx context.Context, t models.BucketType) (*models.CurationBucket, error)
	Upsert(ctx context.Context, b *models.CurationBucket) (*models.CurationBucket, error)
	List(ctx context.Context) ([]models.CurationBucket, error)
}

// CatalogStore is the part of the content store behind the public catalog
// and the admin content endpoints.
type CatalogStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID, activeOnly bool) (*models.Anime, error)
	List(ctx context.Context, q models.ListQuery) ([]models.AnimeCard, int64, error)
	Search(ctx context.Context, text string, limit int) ([]models.AnimeCard, error)
	Genres(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, a *models.Anime) error
	Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*models.Anime, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Anime, error)
	ToggleLike(ctx context.Context, id primitive.ObjectID, userID string) (*models.Anime, bool, error)
	SetRatingAggregate(ctx context.Context, id primitive.ObjectID, avg float64, count int64) error
}

type RatingStore interface {
	Upsert(ctx context.Context, animeID primitive.ObjectID, userID string, value int) (bool, error)
	Aggregate(ctx context.Context, animeID primitive.ObjectID) (float64, int64, error)
	GetOne(ctx context.Context, animeID primitive.ObjectID, userID string) (*models.RatingDoc, error)
}

type CommentStore interface {
	Insert(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListByAnime(ctx context.Context, animeID primitive.ObjectID) ([]*models.Comment, error)
}

// ListCache holds ranked public lists for a short time. Set must drop the
// write when Invalidate ran after gen was read from Generation.
type ListCache interface {
	Get(ctx context.Context, name string) ([]models.AnimeCard, bool, error)
	Generation(ctx context.Context) (uint64, error)
	Set(ctx context.Context, name string, gen uint64, cards []models.AnimeCard) error
	Invalidate(ctx context.Context) error
}

// Publisher fans an event out to the subscribers of a room. Delivery is
// best effort.
type Publisher interface {
	Publish(room, eventType string, data any)
}

// Realtime rooms and event types.
const (
	RoomCuration = "curation"

	EventCurationUpdated = "curation.updated"
	EventAnimeLiked      = "anime.liked"
	EventAnimeRated      = "anime.rated"
	EventAnimeCommented  = "anime.commented"
	EventAnimeUpdated    = "anime.updated"
)

func AnimeRoom(id string) string {
	return "anime:" + id
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]models.AnimeCard, bool, error) { return nil, false, nil }
func (noopCache) Generation(context.Context) (uint64, error)                    { return 0, nil }
func (noopCache) Set(context.Context, string, uint64, []models.AnimeCard) error { return nil }
func (noopCache) Invalidate(context.Context) error                              { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}

func parseID(s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// parseIDs keeps the well-formed ids in order and drops duplicates.
func parseIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, s := range ids {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			continue
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	return out
}

// orderByIDs arranges items in the order of ids. Items without a matching
// id are dropped, and ids without an item are skipped.
func orderByIDs[T any](ids []primitive.ObjectID, items []T, key func(*T) primitive.ObjectID) []T {
	byID := make(map[primitive.ObjectID]int, len(items))
	for i := range items {
		byID[key(&items[i])] = i
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			out = append(out, items[i])
		}
	}
	return out
}

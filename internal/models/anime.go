package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusUpcoming  = "upcoming"
)

// Anime is one catalog title as stored in the "anime" collection.
type Anime struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Genres      []string           `json:"genres" bson:"genres"`
	Tags        []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	Status      string             `json:"status" bson:"status"`
	Year        int                `json:"year,omitempty" bson:"year,omitempty"`
	CoverImage  string             `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	BannerImage string             `json:"bannerImage,omitempty" bson:"bannerImage,omitempty"`
	Images      []string           `json:"images,omitempty" bson:"images,omitempty"`
	IsActive    bool               `json:"isActive" bson:"isActive"`

	Views      int64    `json:"views" bson:"views"`
	DummyViews int64    `json:"dummyViews" bson:"dummyViews"`
	Likes      []string `json:"likes" bson:"likes"`
	DummyLikes int64    `json:"dummyLikes" bson:"dummyLikes"`

	AverageRating float64 `json:"averageRating" bson:"averageRating"`
	RatingsCount  int64   `json:"ratingsCount" bson:"ratingsCount"`

	Featured  bool `json:"featured" bson:"featured"`
	Trending  bool `json:"trending" bson:"trending"`
	Banner    bool `json:"banner" bson:"banner"`
	TopAiring bool `json:"topAiring" bson:"topAiring"`
	TopWeek   bool `json:"topWeek" bson:"topWeek"`
	ForYou    bool `json:"forYou" bson:"forYou"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasFlag reports the curation flag for a bucket.
func (a *Anime) HasFlag(b BucketType) bool {
	switch b {
	case BucketFeatured:
		return a.Featured
	case BucketTrending:
		return a.Trending
	case BucketBanner:
		return a.Banner
	case BucketTopAiring:
		return a.TopAiring
	case BucketTopWeek:
		return a.TopWeek
	case BucketForYou:
		return a.ForYou
	}
	return false
}

// SetFlag sets the curation flag for a bucket.
func (a *Anime) SetFlag(b BucketType, v bool) {
	switch b {
	case BucketFeatured:
		a.Featured = v
	case BucketTrending:
		a.Trending = v
	case BucketBanner:
		a.Banner = v
	case BucketTopAiring:
		a.TopAiring = v
	case BucketTopWeek:
		a.TopWeek = v
	case BucketForYou:
		a.ForYou = v
	}
}

// Card projects the record onto the fields the list endpoints return.
func (a *Anime) Card() AnimeCard {
	return AnimeCard{
		ID:            a.ID,
		Title:         a.Title,
		Description:   a.Description,
		CoverImage:    a.CoverImage,
		BannerImage:   a.BannerImage,
		Genres:        a.Genres,
		Status:        a.Status,
		Year:          a.Year,
		AverageRating: a.AverageRating,
		RatingsCount:  a.RatingsCount,
		Views:         a.Views,
		DummyViews:    a.DummyViews,
		LikesCount:    int64(len(a.Likes)),
		DummyLikes:    a.DummyLikes,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AnimeCard is the display projection served by list and curation endpoints.
// It never carries the likes array, only its size.
type AnimeCard struct {
	ID            primitive.ObjectID `json:"id" bson:"_id"`
	Title         string             `json:"title" bson:"title"`
	Description   string             `json:"description" bson:"description"`
	CoverImage    string             `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	BannerImage   string             `json:"bannerImage,omitempty" bson:"bannerImage,omitempty"`
	Genres        []string           `json:"genres" bson:"genres"`
	Status        string             `json:"status,omitempty" bson:"status,omitempty"`
	Year          int                `json:"year,omitempty" bson:"year,omitempty"`
	AverageRating float64            `json:"averageRating" bson:"averageRating"`
	RatingsCount  int64              `json:"ratingsCount" bson:"ratingsCount"`
	Views         int64              `json:"views" bson:"views"`
	DummyViews    int64              `json:"dummyViews" bson:"dummyViews"`
	LikesCount    int64              `json:"likesCount" bson:"likesCount"`
	DummyLikes    int64              `json:"dummyLikes" bson:"dummyLikes"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
	Score         int64              `json:"score" bson:"-"`
}

// BannerItem is the richer projection used by the dedicated banner endpoint.
type BannerItem struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	CoverImage  string             `json:"coverImage,omitempty" bson:"coverImage,omitempty"`
	BannerImage string             `json:"bannerImage,omitempty" bson:"bannerImage,omitempty"`
	Images      []string           `json:"images,omitempty" bson:"images,omitempty"`
	Year        int                `json:"year,omitempty" bson:"year,omitempty"`
	Status      string             `json:"status,omitempty" bson:"status,omitempty"`
	Genres      []string           `json:"genres" bson:"genres"`
}

// AnimeDetail is the response of GET /anime/{id}.
type AnimeDetail struct {
	Anime    *Anime     `json:"anime"`
	Comments []*Comment `json:"comments"`
	MyRating *int       `json:"myRating,omitempty"`
	Liked    bool       `json:"liked"`
}

// ListQuery holds the filters of the paginated catalog list.
type ListQuery struct {
	Q      string `json:"q"`
	Genre  string `json:"genre"`
	Status string `json:"status" validate:"omitempty,oneof=ongoing completed upcoming"`
	Year   int    `json:"year" validate:"gte=0"`
	Sort   string `json:"sort" validate:"omitempty,oneof=recent rating views title"`
	Page   int    `json:"page" validate:"gte=1"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100"`
}

type AnimePage struct {
	Items []AnimeCard `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

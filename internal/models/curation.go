package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BucketType names a curation bucket. The same string is the bson field of
// the matching boolean flag on Anime.
type BucketType string

const (
	BucketFeatured  BucketType = "featured"
	BucketTrending  BucketType = "trending"
	BucketBanner    BucketType = "banner"
	BucketTopAiring BucketType = "topAiring"
	BucketTopWeek   BucketType = "topWeek"
	BucketForYou    BucketType = "forYou"
)

// BucketTypes lists every bucket in a stable order.
var BucketTypes = []BucketType{
	BucketFeatured,
	BucketTrending,
	BucketBanner,
	BucketTopAiring,
	BucketTopWeek,
	BucketForYou,
}

func ParseBucketType(s string) (BucketType, bool) {
	for _, b := range BucketTypes {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

func (b BucketType) Valid() bool {
	_, ok := ParseBucketType(string(b))
	return ok
}

// Field is the Anime bson field holding this bucket's flag.
func (b BucketType) Field() string { return string(b) }

// Sources of a curation read.
const (
	SourceCurated = "curated"
	SourceFlags   = "flags"
)

// CurationBucket is the admin-authored, ordered content of one bucket.
type CurationBucket struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type      BucketType         `json:"type" bson:"type"`
	AnimeIDs  []string           `json:"animeIds" bson:"animeIds"`
	Metadata  map[string]any     `json:"metadata,omitempty" bson:"metadata,omitempty"`
	UpdatedBy string             `json:"updatedBy" bson:"updatedBy"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CurationView is what GET /curation/{type} returns.
type CurationView struct {
	Type      BucketType     `json:"type"`
	Source    string         `json:"source"`
	Items     []AnimeCard    `json:"items"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UpdatedBy string         `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// BannerView is what GET /curation/banner returns.
type BannerView struct {
	Source    string         `json:"source"`
	Items     []BannerItem   `json:"items"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UpdatedBy string         `json:"updatedBy,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// SetBucketRequest is the body of PUT /curation/{type}. An empty animeIds
// list is allowed and empties the bucket.
type SetBucketRequest struct {
	AnimeIDs []string       `json:"animeIds" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// BulkLabelsRequest is the body of POST /admin/anime/bulk-labels. A nil list
// leaves that flag alone; a present list (even empty) replaces it.
type BulkLabelsRequest struct {
	TrendingIDs  *[]string `json:"trendingIds"`
	FeaturedIDs  *[]string `json:"featuredIds"`
	BannerIDs    *[]string `json:"bannerIds"`
	TopAiringIDs *[]string `json:"topAiringIds"`
	TopWeekIDs   *[]string `json:"topWeekIds"`
	ForYouIDs    *[]string `json:"forYouIds"`
}

// Lists returns the present lists keyed by bucket.
func (r *BulkLabelsRequest) Lists() map[BucketType][]string {
	out := make(map[BucketType][]string)
	add := func(b BucketType, ids *[]string) {
		if ids == nil {
			return
		}
		if *ids == nil {
			out[b] = []string{}
			return
		}
		out[b] = *ids
	}
	add(BucketTrending, r.TrendingIDs)
	add(BucketFeatured, r.FeaturedIDs)
	add(BucketBanner, r.BannerIDs)
	add(BucketTopAiring, r.TopAiringIDs)
	add(BucketTopWeek, r.TopWeekIDs)
	add(BucketForYou, r.ForYouIDs)
	return out
}

// BulkLabelsResult reports which flags were replaced and how many records
// carry each flag afterwards.
type BulkLabelsResult struct {
	Updated []BucketType         `json:"updated"`
	Counts  map[BucketType]int64 `json:"counts"`
}

// LabelChange is what replacing one flag list would do: ids that gain the
// flag and ids that lose it.
type LabelChange struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// CurationState holds the flag-based id lists used to pre-populate the admin UI.
type CurationState struct {
	TrendingIDs  []string `json:"trendingIds"`
	FeaturedIDs  []string `json:"featuredIds"`
	BannerIDs    []string `json:"bannerIds"`
	TopAiringIDs []string `json:"topAiringIds"`
	TopWeekIDs   []string `json:"topWeekIds"`
	ForYouIDs    []string `json:"forYouIds"`
}

func (s *CurationState) Set(b BucketType, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	switch b {
	case BucketTrending:
		s.TrendingIDs = ids
	case BucketFeatured:
		s.FeaturedIDs = ids
	case BucketBanner:
		s.BannerIDs = ids
	case BucketTopAiring:
		s.TopAiringIDs = ids
	case BucketTopWeek:
		s.TopWeekIDs = ids
	case BucketForYou:
		s.ForYouIDs = ids
	}
}

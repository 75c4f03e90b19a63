package ranking

import "animaaz/internal/models"

// Policy describes one public list: which flag filters it (empty for every
// active record), how it is ordered and how many entries it returns.
type Policy struct {
	Name  string
	Flag  models.BucketType
	Order Order
	Limit int
}

var (
	Featured  = Policy{Name: "featured", Flag: models.BucketFeatured, Order: ByScore, Limit: 10}
	Trending  = Policy{Name: "trending", Flag: models.BucketTrending, Order: ByScoreThenRecency, Limit: 15}
	Popular   = Policy{Name: "popular", Order: ByScore, Limit: 15}
	TopAiring = Policy{Name: "top-airing", Flag: models.BucketTopAiring, Order: ByRecency, Limit: 15}
	TopWeek   = Policy{Name: "top-week", Flag: models.BucketTopWeek, Order: ByRecency, Limit: 15}
	ForYou    = Policy{Name: "for-you", Flag: models.BucketForYou, Order: ByRecency, Limit: 15}
	Banners   = Policy{Name: "banners", Flag: models.BucketBanner, Order: ByRecency, Limit: 10}
)

// Policies lists every public list policy.
var Policies = []Policy{Featured, Trending, Popular, TopAiring, TopWeek, ForYou, Banners}

// PolicyFor returns the flag list policy used as the fallback of a bucket.
func PolicyFor(b models.BucketType) (Policy, bool) {
	switch b {
	case models.BucketFeatured:
		return Featured, true
	case models.BucketTrending:
		return Trending, true
	case models.BucketBanner:
		return Banners, true
	case models.BucketTopAiring:
		return TopAiring, true
	case models.BucketTopWeek:
		return TopWeek, true
	case models.BucketForYou:
		return ForYou, true
	}
	return Policy{}, false
}

// WithLimit returns a copy of p using limit when it is positive.
func (p Policy) WithLimit(limit int) Policy {
	if limit > 0 {
		p.Limit = limit
	}
	return p
}

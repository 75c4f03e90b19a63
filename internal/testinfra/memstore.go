package testinfra

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnimeStore is an in-memory content store. Lookups by id return their
// results in reverse request order so callers cannot rely on fetch order.
type AnimeStore struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.Anime
	order []primitive.ObjectID

	// Err, when set, is returned by every call.
	Err             error
	// AfterCandidates, when set, runs once Candidates has taken its
	// snapshot and before it returns.
	AfterCandidates func()
}

func NewAnimeStore() *AnimeStore {
	return &AnimeStore{byID: make(map[primitive.ObjectID]*models.Anime)}
}

// Add stores a copy of a, assigning an id when it has none, and returns the id.
func (s *AnimeStore) Add(a models.Anime) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Likes == nil {
		a.Likes = []string{}
	}
	if _, ok := s.byID[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.byID[a.ID] = &a
	return a.ID
}

// Snapshot returns a copy of the stored record.
func (s *AnimeStore) Snapshot(id primitive.ObjectID) (models.Anime, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return models.Anime{}, false
	}
	return clone(a), true
}

func clone(a *models.Anime) models.Anime {
	c := *a
	c.Likes = append([]string{}, a.Likes...)
	return c
}

func (s *AnimeStore) Candidates(_ context.Context, flag models.BucketType) ([]models.AnimeCard, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.candidates(flag)
	if s.AfterCandidates != nil {
		s.AfterCandidates()
	}
	return out, nil
}

func (s *AnimeStore) candidates(flag models.BucketType) []models.AnimeCard {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.AnimeCard{}
	for _, id := range s.order {
		a := s.byID[id]
		if a.IsActive && (flag == "" || a.HasFlag(flag)) {
			out = append(out, a.Card())
		}
	}
	return out
}

func (s *AnimeStore) FindCardsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.AnimeCard, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.AnimeCard{}
	for i := len(ids) - 1; i >= 0; i-- {
		if a, ok := s.byID[ids[i]]; ok && a.IsActive {
			out = append(out, a.Card())
		}
	}
	return out, nil
}

func (s *AnimeStore) FindBannerItemsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.BannerItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.BannerItem{}
	for i := len(ids) - 1; i >= 0; i-- {
		if a, ok := s.byID[ids[i]]; ok && a.IsActive {
			out = append(out, models.BannerItem{
				ID:          a.ID,
				Title:       a.Title,
				Description: a.Description,
				CoverImage:  a.CoverImage,
				BannerImage: a.BannerImage,
				Images:      a.Images,
				Year:        a.Year,
				Status:      a.Status,
				Genres:      a.Genres,
			})
		}
	}
	return out, nil
}

func (s *AnimeStore) SetFlagMembership(_ context.Context, flag models.BucketType, ids []primitive.ObjectID) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var modified int64
	for _, id := range s.order {
		a := s.byID[id]
		if a.HasFlag(flag) != want[id] {
			a.SetFlag(flag, want[id])
			modified++
		}
	}
	return modified, nil
}

func (s *AnimeStore) CountFlag(_ context.Context, flag models.BucketType) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.byID {
		if a.HasFlag(flag) {
			n++
		}
	}
	return n, nil
}

func (s *AnimeStore) FlaggedIDs(_ context.Context, flag models.BucketType) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []string{}
	for _, id := range s.order {
		if s.byID[id].HasFlag(flag) {
			out = append(out, id.Hex())
		}
	}
	return out, nil
}

func (s *AnimeStore) SetCounters(_ context.Context, id primitive.ObjectID, dummyLikes, dummyViews *int64) (*models.Anime, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	if dummyLikes != nil {
		a.DummyLikes = *dummyLikes
	}
	if dummyViews != nil {
		a.DummyViews = *dummyViews
	}
	a.UpdatedAt = time.Now().UTC()
	c := clone(a)
	return &c, nil
}

func (s *AnimeStore) GetByID(_ context.Context, id primitive.ObjectID, activeOnly bool) (*models.Anime, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok || (activeOnly && !a.IsActive) {
		return nil, nil
	}
	c := clone(a)
	return &c, nil
}

func (s *AnimeStore) List(_ context.Context, q models.ListQuery) ([]models.AnimeCard, int64, error) {
	if s.Err != nil {
		return nil, 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Anime
	for _, id := range s.order {
		a := s.byID[id]
		if !a.IsActive {
			continue
		}
		if q.Q != "" && !matchesText(a, q.Q) {
			continue
		}
		if q.Genre != "" && !contains(a.Genres, q.Genre) {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		if q.Year > 0 && a.Year != q.Year {
			continue
		}
		matched = append(matched, a)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch q.Sort {
		case "title":
			return a.Title < b.Title
		case "rating":
			return a.AverageRating > b.AverageRating
		case "views":
			return a.Views > b.Views
		default:
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]models.AnimeCard, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, a.Card())
	}
	return out, total, nil
}

func (s *AnimeStore) Search(_ context.Context, text string, limit int) ([]models.AnimeCard, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.AnimeCard{}
	for _, id := range s.order {
		a := s.byID[id]
		if a.IsActive && matchesText(a, text) {
			out = append(out, a.Card())
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func matchesText(a *models.Anime, text string) bool {
	t := strings.ToLower(text)
	if strings.Contains(strings.ToLower(a.Title), t) || strings.Contains(strings.ToLower(a.Description), t) {
		return true
	}
	for _, v := range append(append([]string{}, a.Tags...), a.Genres...) {
		if strings.Contains(strings.ToLower(v), t) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (s *AnimeStore) Genres(_ context.Context) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	out := []string{}
	for _, a := range s.byID {
		if !a.IsActive {
			continue
		}
		for _, g := range a.Genres {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *AnimeStore) Insert(_ context.Context, a *models.Anime) error {
	if s.Err != nil {
		return s.Err
	}
	a.ID = s.Add(*a)
	return nil
}

func (s *AnimeStore) Update(_ context.Context, id primitive.ObjectID, fields map[string]any) (*models.Anime, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	for k, v := range fields {
		switch k {
		case "title":
			a.Title = v.(string)
		case "description":
			a.Description = v.(string)
		case "genres":
			a.Genres = v.([]string)
		case "tags":
			a.Tags = v.([]string)
		case "status":
			a.Status = v.(string)
		case "year":
			a.Year = v.(int)
		case "coverImage":
			a.CoverImage = v.(string)
		case "bannerImage":
			a.BannerImage = v.(string)
		case "images":
			a.Images = v.([]string)
		case "isActive":
			a.IsActive = v.(bool)
		}
	}
	a.UpdatedAt = time.Now().UTC()
	c := clone(a)
	return &c, nil
}

func (s *AnimeStore) SoftDelete(_ context.Context, id primitive.ObjectID) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	a.IsActive = false
	return true, nil
}

func (s *AnimeStore) IncrementViews(_ context.Context, id primitive.ObjectID) (*models.Anime, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok || !a.IsActive {
		return nil, nil
	}
	a.Views++
	c := clone(a)
	return &c, nil
}

func (s *AnimeStore) ToggleLike(_ context.Context, id primitive.ObjectID, userID string) (*models.Anime, bool, error) {
	if s.Err != nil {
		return nil, false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok || !a.IsActive {
		return nil, false, nil
	}
	liked := true
	if i := indexOf(a.Likes, userID); i >= 0 {
		a.Likes = append(a.Likes[:i], a.Likes[i+1:]...)
		liked = false
	} else {
		a.Likes = append(a.Likes, userID)
	}
	c := clone(a)
	return &c, liked, nil
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func (s *AnimeStore) SetRatingAggregate(_ context.Context, id primitive.ObjectID, avg float64, count int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.byID[id]; ok {
		a.AverageRating = avg
		a.RatingsCount = count
	}
	return nil
}

// CurationStore keeps buckets in a map keyed by type.
type CurationStore struct {
	mu      sync.Mutex
	buckets map[models.BucketType]models.CurationBucket
	Err     error
}

func NewCurationStore() *CurationStore {
	return &CurationStore{buckets: make(map[models.BucketType]models.CurationBucket)}
}

func (s *CurationStore) Get(_ context.Context, t models.BucketType) (*models.CurationBucket, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[t]
	if !ok {
		return nil, nil
	}
	b.AnimeIDs = append([]string{}, b.AnimeIDs...)
	return &b, nil
}

func (s *CurationStore) Upsert(_ context.Context, b *models.CurationBucket) (*models.CurationBucket, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.buckets[b.Type]
	if !ok {
		cur = models.CurationBucket{ID: primitive.NewObjectID(), Type: b.Type}
	}
	cur.AnimeIDs = append([]string{}, b.AnimeIDs...)
	if b.Metadata != nil {
		cur.Metadata = b.Metadata
	}
	cur.UpdatedBy = b.UpdatedBy
	cur.UpdatedAt = b.UpdatedAt
	s.buckets[b.Type] = cur

	out := cur
	return &out, nil
}

func (s *CurationStore) List(_ context.Context) ([]models.CurationBucket, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CurationBucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

type ratingKey struct {
	anime primitive.ObjectID
	user  string
}

// RatingStore keeps one rating per (anime, user).
type RatingStore struct {
	mu      sync.Mutex
	ratings map[ratingKey]models.RatingDoc
	Err     error
}

func NewRatingStore() *RatingStore {
	return &RatingStore{ratings: make(map[ratingKey]models.RatingDoc)}
}

func (s *RatingStore) Upsert(_ context.Context, animeID primitive.ObjectID, userID string, value int) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := ratingKey{animeID, userID}
	now := time.Now().UTC()
	d, exists := s.ratings[k]
	if !exists {
		d = models.RatingDoc{ID: primitive.NewObjectID(), AnimeID: animeID, UserID: userID, CreatedAt: now}
	}
	d.Value = value
	d.UpdatedAt = now
	s.ratings[k] = d
	return !exists, nil
}

func (s *RatingStore) Aggregate(_ context.Context, animeID primitive.ObjectID) (float64, int64, error) {
	if s.Err != nil {
		return 0, 0, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum, n int64
	for k, d := range s.ratings {
		if k.anime == animeID {
			sum += int64(d.Value)
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

func (s *RatingStore) GetOne(_ context.Context, animeID primitive.ObjectID, userID string) (*models.RatingDoc, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.ratings[ratingKey{animeID, userID}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// CommentStore keeps comments in insertion order.
type CommentStore struct {
	mu       sync.Mutex
	comments []models.Comment
	Err      error
}

func NewCommentStore() *CommentStore {
	return &CommentStore{}
}

func (s *CommentStore) Insert(_ context.Context, c *models.Comment) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.comments = append(s.comments, *c)
	return nil
}

func (s *CommentStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.comments {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *CommentStore) ListByAnime(_ context.Context, animeID primitive.ObjectID) ([]*models.Comment, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.Comment{}
	for _, c := range s.comments {
		if c.AnimeID == animeID {
			cp := c
			out = append(out, &cp)
		}
	}
	return out, nil
}

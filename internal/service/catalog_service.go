package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"animaaz/internal/logging"
	"animaaz/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPageSize    = 20
	maxPageSize        = 100
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// CatalogService serves the public catalog, user engagement (views, likes,
// ratings, comments) and admin content management.
type CatalogService struct {
	anime    CatalogStore
	ratings  RatingStore
	comments CommentStore
	cache    ListCache
	events   Publisher
	now      func() time.Time
}

func NewCatalogService(anime CatalogStore, ratings RatingStore, comments CommentStore, cache ListCache, events Publisher) *CatalogService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &CatalogService{
		anime:    anime,
		ratings:  ratings,
		comments: comments,
		cache:    cache,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeListQuery fills the paging defaults and clamps the page size.
func NormalizeListQuery(q models.ListQuery) models.ListQuery {
	q.Q = strings.TrimSpace(q.Q)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Sort == "" {
		q.Sort = "recent"
	}
	return q
}

func (s *CatalogService) List(ctx context.Context, q models.ListQuery) (*models.AnimePage, error) {
	q = NormalizeListQuery(q)
	items, total, err := s.anime.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list anime: %w", err)
	}
	return &models.AnimePage{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Get returns one active anime with its threaded comments, counting the
// read as a view. userID may be empty for anonymous callers.
func (s *CatalogService) Get(ctx context.Context, id, userID string) (*models.AnimeDetail, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	a, err := s.anime.IncrementViews(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("load anime: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	flat, err := s.comments.ListByAnime(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	detail := &models.AnimeDetail{Anime: a, Comments: nestComments(flat)}
	if userID != "" {
		detail.Liked = slices.Contains(a.Likes, userID)
		r, err := s.ratings.GetOne(ctx, oid, userID)
		if err != nil {
			return nil, fmt.Errorf("load rating: %w", err)
		}
		if r != nil {
			v := r.Value
			detail.MyRating = &v
		}
	}
	return detail, nil
}

// nestComments attaches replies to their parents. Input is oldest first;
// replies whose parent is missing are promoted to the top level.
func nestComments(flat []*models.Comment) []*models.Comment {
	byID := make(map[primitive.ObjectID]*models.Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}

	roots := make([]*models.Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentID != nil {
			if p, ok := byID[*c.ParentID]; ok && p != c {
				p.Replies = append(p.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}

func (s *CatalogService) Search(ctx context.Context, text string, limit int) ([]models.AnimeCard, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.AnimeCard{}, nil
	}
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	out, err := s.anime.Search(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("search anime: %w", err)
	}
	return out, nil
}

func (s *CatalogService) Genres(ctx context.Context) ([]string, error) {
	out, err := s.anime.Genres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return out, nil
}

// Like toggles the user's like on an active anime.
func (s *CatalogService) Like(ctx context.Context, id, userID string) (*models.LikeResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	a, liked, err := s.anime.ToggleLike(ctx, oid, userID)
	if err != nil {
		return nil, fmt.Errorf("toggle like: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	res := &models.LikeResult{Liked: liked, LikesCount: int64(len(a.Likes))}
	s.events.Publish(AnimeRoom(id), EventAnimeLiked, map[string]any{
		"animeId":    id,
		"userId":     userID,
		"liked":      res.Liked,
		"likesCount": res.LikesCount,
	})
	return res, nil
}

// Rate stores the user's rating with one upsert keyed by (anime, user) and
// recomputes the anime's aggregate from the stored ratings.
func (s *CatalogService) Rate(ctx context.Context, id, userID string, value int) (*models.RatingResult, error) {
	if value < 1 || value > 5 {
		return nil, ErrInvalidRating
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	a, err := s.anime.GetByID(ctx, oid, true)
	if err != nil {
		return nil, fmt.Errorf("load anime: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	created, err := s.ratings.Upsert(ctx, oid, userID, value)
	if err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	avg, count, err := s.ratings.Aggregate(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}
	if err := s.anime.SetRatingAggregate(ctx, oid, avg, count); err != nil {
		return nil, fmt.Errorf("save rating aggregate: %w", err)
	}

	res := &models.RatingResult{
		AnimeID:       id,
		Value:         value,
		Created:       created,
		AverageRating: avg,
		RatingsCount:  count,
	}
	s.events.Publish(AnimeRoom(id), EventAnimeRated, res)
	return res, nil
}

// Comment adds a comment, or a reply when req.ParentID names a comment on
// the same anime.
func (s *CatalogService) Comment(ctx context.Context, id, userID string, req models.CommentRequest) (*models.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrInvalidComment
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	a, err := s.anime.GetByID(ctx, oid, true)
	if err != nil {
		return nil, fmt.Errorf("load anime: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	c := &models.Comment{
		AnimeID:   oid,
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if req.ParentID != "" {
		pid, err := parseID(req.ParentID)
		if err != nil {
			return nil, err
		}
		parent, err := s.comments.GetByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
		if parent == nil || parent.AnimeID != oid {
			return nil, ErrParentNotFound
		}
		c.ParentID = &pid
	}

	if err := s.comments.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("save comment: %w", err)
	}
	s.events.Publish(AnimeRoom(id), EventAnimeCommented, c)
	return c, nil
}

// Create adds an active anime with zeroed engagement and no flags.
func (s *CatalogService) Create(ctx context.Context, req models.AnimeCreateRequest) (*models.Anime, error) {
	now := s.now()
	a := &models.Anime{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Genres:      nonNilStrings(req.Genres),
		Tags:        req.Tags,
		Status:      req.Status,
		Year:        req.Year,
		CoverImage:  req.CoverImage,
		BannerImage: req.BannerImage,
		Images:      req.Images,
		IsActive:    true,
		Likes:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.anime.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("create anime: %w", err)
	}

	s.invalidate(ctx)
	logging.Ctx(ctx).Info().Str("anime_id", a.ID.Hex()).Str("title", a.Title).Msg("anime created")
	return a, nil
}

// Update changes the fields present in req.
func (s *CatalogService) Update(ctx context.Context, id string, req models.AnimeUpdateRequest) (*models.Anime, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	fields := req.Fields()
	var a *models.Anime
	if len(fields) == 0 {
		a, err = s.anime.GetByID(ctx, oid, false)
	} else {
		a, err = s.anime.Update(ctx, oid, fields)
	}
	if err != nil {
		return nil, fmt.Errorf("update anime: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	if len(fields) > 0 {
		s.invalidate(ctx)
		s.events.Publish(AnimeRoom(id), EventAnimeUpdated, map[string]any{"animeId": id})
	}
	return a, nil
}

// Deactivate soft-deletes an anime; it disappears from every public read.
func (s *CatalogService) Deactivate(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	ok, err := s.anime.SoftDelete(ctx, oid)
	if err != nil {
		return fmt.Errorf("deactivate anime: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.invalidate(ctx)
	s.events.Publish(AnimeRoom(id), EventAnimeUpdated, map[string]any{"animeId": id, "isActive": false})
	logging.Ctx(ctx).Info().Str("anime_id", id).Msg("anime deactivated")
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("list cache invalidation failed")
	}
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"animaaz/internal/logging"
	"animaaz/internal/metrics"
	"animaaz/internal/models"
	"animaaz/internal/ranking"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// maxListLimit caps the caller supplied size of a bucket read.
const maxListLimit = 100

// CurationService resolves curation buckets and the ranked public lists,
// and applies the admin curation writes.
type CurationService struct {
	anime   FlagStore
	buckets CurationStore
	cache   ListCache
	events  Publisher
	now     func() time.Time
}

// NewCurationService wires the stores. cache and events may be nil.
func NewCurationService(anime FlagStore, buckets CurationStore, cache ListCache, events Publisher) *CurationService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &CurationService{
		anime:   anime,
		buckets: buckets,
		cache:   cache,
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns the ranked list for a policy: active records carrying the
// policy's flag, ordered and truncated by the policy.
func (s *CurationService) List(ctx context.Context, p ranking.Policy) ([]models.AnimeCard, error) {
	key := p.Name + ":" + strconv.Itoa(p.Limit)

	cards, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("list", key).Msg("list cache read failed")
	}
	if found {
		return cards, nil
	}

	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		logging.Ctx(ctx).Warn().Err(genErr).Str("list", key).Msg("list cache generation read failed")
	}

	candidates, err := s.anime.Candidates(ctx, p.Flag)
	if err != nil {
		return nil, fmt.Errorf("load %s candidates: %w", p.Name, err)
	}
	ranked := ranking.Rank(candidates, p.Order, p.Limit)
	logging.Ctx(ctx).Debug().
		Str("list", key).
		Stringer("order", p.Order).
		Int("candidates", len(candidates)).
		Int("ranked", len(ranked)).
		Msg("list ranked")

	if genErr != nil {
		return ranked, nil
	}
	if err := s.cache.Set(ctx, key, gen, ranked); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("list", key).Msg("list cache write failed")
	}
	return ranked, nil
}

func (s *CurationService) Featured(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.Featured)
}

func (s *CurationService) Trending(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.Trending)
}

func (s *CurationService) Popular(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.Popular)
}

func (s *CurationService) TopAiring(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.TopAiring)
}

func (s *CurationService) TopWeek(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.TopWeek)
}

func (s *CurationService) ForYou(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.ForYou)
}

func (s *CurationService) Banners(ctx context.Context) ([]models.AnimeCard, error) {
	return s.List(ctx, ranking.Banners)
}

// GetByType serves a bucket from its explicit curation when one exists, in
// the stored order, and otherwise falls back to the bucket's flag list.
// limit <= 0 means the default of the fallback policy, and no limit for an
// explicit bucket. limit is capped at maxListLimit.
func (s *CurationService) GetByType(ctx context.Context, t models.BucketType, limit int) (*models.CurationView, error) {
	policy, ok := ranking.PolicyFor(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBucketType, t)
	}
	limit = min(limit, maxListLimit)

	b, err := s.buckets.Get(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("load curation %s: %w", t, err)
	}

	if b == nil {
		items, err := s.List(ctx, policy.WithLimit(limit))
		if err != nil {
			return nil, err
		}
		metrics.CurationReads.WithLabelValues(string(t), models.SourceFlags).Inc()
		return &models.CurationView{Type: t, Source: models.SourceFlags, Items: items}, nil
	}

	ids := parseIDs(b.AnimeIDs)
	cards, err := s.anime.FindCardsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load curated %s: %w", t, err)
	}
	items := orderByIDs(ids, cards, func(c *models.AnimeCard) primitive.ObjectID { return c.ID })
	for i := range items {
		items[i].Score = ranking.Score(ranking.CardCounters(&items[i]))
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	metrics.CurationReads.WithLabelValues(string(t), models.SourceCurated).Inc()
	updatedAt := b.UpdatedAt
	return &models.CurationView{
		Type:      t,
		Source:    models.SourceCurated,
		Items:     items,
		Metadata:  b.Metadata,
		UpdatedBy: b.UpdatedBy,
		UpdatedAt: &updatedAt,
	}, nil
}

// GetBanner returns the full banner projection in bucket order, falling
// back to the banner flag list when no explicit banner bucket exists.
func (s *CurationService) GetBanner(ctx context.Context) (*models.BannerView, error) {
	b, err := s.buckets.Get(ctx, models.BucketBanner)
	if err != nil {
		return nil, fmt.Errorf("load banner curation: %w", err)
	}

	view := &models.BannerView{Source: models.SourceFlags}
	var ids []primitive.ObjectID
	if b != nil {
		view.Source = models.SourceCurated
		view.Metadata = b.Metadata
		view.UpdatedBy = b.UpdatedBy
		updatedAt := b.UpdatedAt
		view.UpdatedAt = &updatedAt
		ids = parseIDs(b.AnimeIDs)
	} else {
		ranked, err := s.List(ctx, ranking.Banners)
		if err != nil {
			return nil, err
		}
		ids = make([]primitive.ObjectID, 0, len(ranked))
		for _, c := range ranked {
			ids = append(ids, c.ID)
		}
	}

	items, err := s.anime.FindBannerItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load banner items: %w", err)
	}
	view.Items = orderByIDs(ids, items, func(it *models.BannerItem) primitive.ObjectID { return it.ID })

	metrics.CurationReads.WithLabelValues(string(models.BucketBanner), view.Source).Inc()
	return view, nil
}

// SetBucket replaces the id list of a bucket, creating it on first write.
// Ids are stored as given; unknown or inactive ones are dropped on read.
// The records' flags are not touched.
func (s *CurationService) SetBucket(ctx context.Context, t models.BucketType, req models.SetBucketRequest, editor string) (*models.CurationBucket, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBucketType, t)
	}
	ids := req.AnimeIDs
	if ids == nil {
		ids = []string{}
	}

	saved, err := s.buckets.Upsert(ctx, &models.CurationBucket{
		Type:      t,
		AnimeIDs:  ids,
		Metadata:  req.Metadata,
		UpdatedBy: editor,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("save curation %s: %w", t, err)
	}

	s.afterAdminWrite(ctx, map[string]any{"type": t, "count": len(ids)})
	logging.Ctx(ctx).Info().Str("bucket", string(t)).Int("ids", len(ids)).Str("editor", editor).Msg("curation bucket saved")
	return saved, nil
}

// Buckets lists every explicit curation bucket.
func (s *CurationService) Buckets(ctx context.Context) ([]models.CurationBucket, error) {
	out, err := s.buckets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list curations: %w", err)
	}
	return out, nil
}

// BulkSetLabels replaces, for every list present in req, the membership of
// the matching flag across the whole catalog. Each flag is one conditional
// update; flags are written concurrently. A failure leaves the flags that
// already finished committed.
func (s *CurationService) BulkSetLabels(ctx context.Context, req models.BulkLabelsRequest) (*models.BulkLabelsResult, error) {
	lists := req.Lists()
	updated := make([]models.BucketType, 0, len(lists))

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range models.BucketTypes {
		raw, ok := lists[b]
		if !ok {
			continue
		}
		updated = append(updated, b)
		flag, ids := b, parseIDs(raw)
		g.Go(func() error {
			n, err := s.anime.SetFlagMembership(gctx, flag, ids)
			if err != nil {
				return err
			}
			metrics.LabelUpdates.WithLabelValues(string(flag)).Inc()
			logging.Ctx(ctx).Debug().Str("flag", string(flag)).Int("ids", len(ids)).Int64("modified", n).Msg("flag membership replaced")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bulk labels: %w", err)
	}

	counts, err := s.flagCounts(ctx)
	if err != nil {
		return nil, err
	}

	if len(updated) > 0 {
		s.afterAdminWrite(ctx, map[string]any{"labels": updated})
	}
	return &models.BulkLabelsResult{Updated: updated, Counts: counts}, nil
}

// PreviewLabels computes, without writing, the change BulkSetLabels would
// make for every list present in req. Malformed ids are ignored as they are
// on write. Unknown ids still show up under Add.
func (s *CurationService) PreviewLabels(ctx context.Context, req models.BulkLabelsRequest) (map[models.BucketType]models.LabelChange, error) {
	lists := req.Lists()
	out := make(map[models.BucketType]models.LabelChange, len(lists))
	for _, b := range models.BucketTypes {
		raw, ok := lists[b]
		if !ok {
			continue
		}
		current, err := s.anime.FlaggedIDs(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("load %s ids: %w", b, err)
		}
		out[b] = labelChange(current, parseIDs(raw))
	}
	return out, nil
}

func labelChange(current []string, want []primitive.ObjectID) models.LabelChange {
	has := make(map[string]struct{}, len(current))
	for _, id := range current {
		has[id] = struct{}{}
	}

	change := models.LabelChange{Add: []string{}, Remove: []string{}}
	keep := make(map[string]struct{}, len(want))
	for _, oid := range want {
		id := oid.Hex()
		keep[id] = struct{}{}
		if _, ok := has[id]; !ok {
			change.Add = append(change.Add, id)
		}
	}
	for _, id := range current {
		if _, ok := keep[id]; !ok {
			change.Remove = append(change.Remove, id)
		}
	}
	return change
}

func (s *CurationService) flagCounts(ctx context.Context) (map[models.BucketType]int64, error) {
	counts := make([]int64, len(models.BucketTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range models.BucketTypes {
		g.Go(func() error {
			n, err := s.anime.CountFlag(gctx, b)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count flags: %w", err)
	}

	out := make(map[models.BucketType]int64, len(counts))
	for i, b := range models.BucketTypes {
		out[b] = counts[i]
	}
	return out, nil
}

// CurationState returns the ids carrying each flag, for the admin UI.
func (s *CurationService) CurationState(ctx context.Context) (*models.CurationState, error) {
	lists := make([][]string, len(models.BucketTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range models.BucketTypes {
		g.Go(func() error {
			ids, err := s.anime.FlaggedIDs(gctx, b)
			lists[i] = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("curation state: %w", err)
	}

	state := &models.CurationState{}
	for i, b := range models.BucketTypes {
		state.Set(b, lists[i])
	}
	return state, nil
}

// SetCounters overwrites the synthetic counters of one anime. At least one
// counter must be given and none may be negative.
func (s *CurationService) SetCounters(ctx context.Context, id string, dummyLikes, dummyViews *int64) (*models.CountersResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if dummyLikes == nil && dummyViews == nil {
		return nil, fmt.Errorf("%w: dummyLikes or dummyViews is required", ErrInvalidCounter)
	}
	if dummyLikes != nil && *dummyLikes < 0 {
		return nil, fmt.Errorf("%w: dummyLikes must not be negative", ErrInvalidCounter)
	}
	if dummyViews != nil && *dummyViews < 0 {
		return nil, fmt.Errorf("%w: dummyViews must not be negative", ErrInvalidCounter)
	}

	a, err := s.anime.SetCounters(ctx, oid, dummyLikes, dummyViews)
	if err != nil {
		return nil, fmt.Errorf("set counters: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}

	s.afterAdminWrite(ctx, map[string]any{"animeId": id, "counters": true})
	return &models.CountersResult{ID: a.ID.Hex(), DummyLikes: a.DummyLikes, DummyViews: a.DummyViews}, nil
}

func (s *CurationService) afterAdminWrite(ctx context.Context, payload map[string]any) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("list cache invalidation failed")
	}
	s.events.Publish(RoomCuration, EventCurationUpdated, payload)
}

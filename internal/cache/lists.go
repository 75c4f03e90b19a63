package cache

import (
	"context"
	"time"

	"animaaz/internal/metrics"
	"animaaz/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// ListPrefix namespaces the ranked public lists.
	ListPrefix = "anime:list:"
	// ListGenKey counts invalidations; it sits outside ListPrefix.
	ListGenKey = "anime:list-gen"
)

// Lists caches ranked list results for a short TTL. A nil client turns every
// call into a miss.
type Lists struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewLists(c redis.UniversalClient, ttl time.Duration) *Lists {
	return &Lists{client: c, ttl: ttl}
}

func (l *Lists) Get(ctx context.Context, name string) ([]models.AnimeCard, bool, error) {
	if l == nil || l.client == nil || l.ttl <= 0 {
		return nil, false, nil
	}

	var cards []models.AnimeCard
	found, err := getJSON(ctx, l.client, ListPrefix+name, &cards)
	switch {
	case err != nil:
		metrics.ListCacheLookups.WithLabelValues("error").Inc()
	case found:
		metrics.ListCacheLookups.WithLabelValues("hit").Inc()
	default:
		metrics.ListCacheLookups.WithLabelValues("miss").Inc()
	}
	return cards, found, err
}

// Generation returns the current invalidation count. Read it before
// loading a list and pass it to Set.
func (l *Lists) Generation(ctx context.Context) (uint64, error) {
	if l == nil || l.client == nil {
		return 0, nil
	}
	return generation(ctx, l.client, ListGenKey)
}

// Set stores cards unless Invalidate ran since gen was read.
func (l *Lists) Set(ctx context.Context, name string, gen uint64, cards []models.AnimeCard) error {
	if l == nil || l.client == nil || l.ttl <= 0 {
		return nil
	}
	stored, err := setJSONIfGen(ctx, l.client, ListPrefix+name, ListGenKey, gen, cards, l.ttl)
	if err == nil && !stored {
		metrics.ListCacheLookups.WithLabelValues("stale").Inc()
	}
	return err
}

// Invalidate bumps the generation and drops every cached list. The bump
// comes first so a refill racing with it is either rejected or deleted.
func (l *Lists) Invalidate(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := l.client.Incr(ctx, ListGenKey).Err(); err != nil {
		return err
	}
	_, err := deletePrefix(ctx, l.client, ListPrefix)
	return err
}

package testinfra

import (
	"context"
	"sync"

	"animaaz/internal/models"
)

// ListCache is a map-backed list cache that counts invalidations. Every
// Invalidate bumps the generation and Set drops writes from older ones.
type ListCache struct {
	mu            sync.Mutex
	lists         map[string][]models.AnimeCard
	gen           uint64
	Invalidations int
	StaleSets     int
}

func NewListCache() *ListCache {
	return &ListCache{lists: make(map[string][]models.AnimeCard)}
}

func (c *ListCache) Get(_ context.Context, name string) ([]models.AnimeCard, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cards, ok := c.lists[name]
	return cards, ok, nil
}

func (c *ListCache) Generation(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *ListCache) Set(_ context.Context, name string, gen uint64, cards []models.AnimeCard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.StaleSets++
		return nil
	}
	c.lists[name] = cards
	return nil
}

func (c *ListCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[string][]models.AnimeCard)
	c.gen++
	c.Invalidations++
	return nil
}

// Has reports whether a list is cached under name.
func (c *ListCache) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lists[name]
	return ok
}

func (c *ListCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lists)
}

// Event is one recorded Publish call.
type Event struct {
	Room string
	Type string
	Data any
}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	events []Event
}

func (e *Events) Publish(room, eventType string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, Event{Room: room, Type: eventType, Data: data})
}

func (e *Events) All() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

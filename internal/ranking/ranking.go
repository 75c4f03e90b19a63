// Package ranking scores anime by engagement and orders the public lists.
package ranking

import (
	"sort"

	"animaaz/internal/models"
)

// Counters are the engagement signals that feed the score.
type Counters struct {
	Views      int64
	DummyViews int64
	LikesCount int64
	DummyLikes int64
}

// Score adds real and synthetic engagement with equal weight. Negative
// inputs count as zero so the result is never negative.
func Score(c Counters) int64 {
	return nonNeg(c.Views) + nonNeg(c.DummyViews) + nonNeg(c.LikesCount) + nonNeg(c.DummyLikes)
}

func CardCounters(c *models.AnimeCard) Counters {
	return Counters{
		Views:      c.Views,
		DummyViews: c.DummyViews,
		LikesCount: c.LikesCount,
		DummyLikes: c.DummyLikes,
	}
}

func nonNeg(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Order selects how a list is sorted.
type Order int

const (
	ByScore Order = iota
	ByScoreThenRecency
	ByRecency
)

func (o Order) String() string {
	switch o {
	case ByScore:
		return "score"
	case ByScoreThenRecency:
		return "score+recency"
	case ByRecency:
		return "recency"
	}
	return "unknown"
}

// Rank scores every card, sorts a copy by the given order and truncates it to
// limit (limit <= 0 keeps everything). The input slice is not modified.
func Rank(cards []models.AnimeCard, order Order, limit int) []models.AnimeCard {
	out := make([]models.AnimeCard, len(cards))
	copy(out, cards)
	for i := range out {
		out[i].Score = Score(CardCounters(&out[i]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		switch order {
		case ByRecency:
			return a.UpdatedAt.After(b.UpdatedAt)
		case ByScoreThenRecency:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			return a.UpdatedAt.After(b.UpdatedAt)
		default:
			return a.Score > b.Score
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

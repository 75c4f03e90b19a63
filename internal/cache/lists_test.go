package cache

import (
	"context"
	"testing"
	"time"

	"animaaz/internal/models"
)

func TestLists_NilClientIsAlwaysMiss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewLists(nil, time.Minute)

	if gen, err := l.Generation(ctx); gen != 0 || err != nil {
		t.Fatalf("Generation = %d, %v", gen, err)
	}
	if err := l.Set(ctx, "featured", 0, []models.AnimeCard{{Title: "x"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	cards, found, err := l.Get(ctx, "featured")
	if err != nil || found || cards != nil {
		t.Fatalf("Get = %v, %v, %v; want miss", cards, found, err)
	}
	if err := l.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	var nilLists *Lists
	if _, found, _ := nilLists.Get(ctx, "featured"); found {
		t.Fatal("nil *Lists must miss")
	}
}

func TestJSONHelpers_NoClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var dest map[string]int
	found, err := getJSON(ctx, nil, "k", &dest)
	if found || err != nil {
		t.Fatalf("getJSON = %v, %v", found, err)
	}
	if stored, err := setJSONIfGen(ctx, nil, "k", "gen", 0, map[string]int{"a": 1}, time.Second); stored || err != nil {
		t.Fatalf("setJSONIfGen = %v, %v", stored, err)
	}
	if gen, err := generation(ctx, nil, "gen"); gen != 0 || err != nil {
		t.Fatalf("generation = %d, %v", gen, err)
	}
	if n, err := deletePrefix(ctx, nil, "k"); n != 0 || err != nil {
		t.Fatalf("deletePrefix = %d, %v", n, err)
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"animaaz/internal/models"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLabels(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
trendingIds:
  - 665f1c2a9b1e8a0001000001
  - 665f1c2a9b1e8a0001000002
featuredIds: []
`)

	req, err := loadLabels(path)
	if err != nil {
		t.Fatalf("loadLabels: %v", err)
	}

	lists := req.Lists()
	if len(lists) != 2 {
		t.Fatalf("got %d lists (%v), want 2", len(lists), lists)
	}
	if got := lists[models.BucketTrending]; len(got) != 2 || got[0] != "665f1c2a9b1e8a0001000001" {
		t.Errorf("trending = %v", got)
	}
	if got, ok := lists[models.BucketFeatured]; !ok || len(got) != 0 {
		t.Errorf("featured = %v (present %v), want present and empty", got, ok)
	}
	if _, ok := lists[models.BucketBanner]; ok {
		t.Error("banner should be absent")
	}
}

func TestLoadLabels_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := loadLabels(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

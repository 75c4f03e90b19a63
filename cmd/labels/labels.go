package main

import (
	"fmt"

	"animaaz/internal/models"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// loadLabels reads a labels file. A key that is absent leaves its flag
// untouched; a key with an empty list clears the flag.
func loadLabels(path string) (models.BulkLabelsRequest, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return models.BulkLabelsRequest{}, fmt.Errorf("load %s: %w", path, err)
	}

	var req models.BulkLabelsRequest
	for key, dst := range map[string]**[]string{
		"trendingIds":  &req.TrendingIDs,
		"featuredIds":  &req.FeaturedIDs,
		"bannerIds":    &req.BannerIDs,
		"topAiringIds": &req.TopAiringIDs,
		"topWeekIds":   &req.TopWeekIDs,
		"forYouIds":    &req.ForYouIDs,
	} {
		if !k.Exists(key) {
			continue
		}
		ids := k.Strings(key)
		if ids == nil {
			ids = []string{}
		}
		*dst = &ids
	}
	return req, nil
}

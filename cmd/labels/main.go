// Command labels applies a YAML file of curation flag lists to the catalog,
// the same way POST /admin/anime/bulk-labels does.
//
//	labels -file labels.yaml [-dry-run]
//
// Only the lists present in the file are replaced:
//
//	trendingIds: [665f1c..., 665f1d...]
//	featuredIds: []
package main

import (
	"context"
	"flag"
	"time"

	"animaaz/internal/cache"
	"animaaz/internal/config"
	"animaaz/internal/db"
	"animaaz/internal/logging"
	"animaaz/internal/repository"
	"animaaz/internal/service"
)

func main() {
	var (
		path    = flag.String("file", "labels.yaml", "YAML file with the flag id lists")
		dryRun  = flag.Bool("dry-run", false, "log the ids each flag would gain and lose without writing")
		timeout = flag.Duration("timeout", time.Minute, "overall timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	req, err := loadLabels(*path)
	if err != nil {
		logging.Fatal().Err(err).Str("file", *path).Msg("read labels")
	}
	lists := req.Lists()
	if len(lists) == 0 {
		logging.Warn().Str("file", *path).Msg("no label lists in file; nothing to do")
		return
	}
	for b, ids := range lists {
		logging.Info().Str("flag", string(b)).Int("ids", len(ids)).Msg("label list")
	}

	if err := db.InitMongo(cfg); err != nil {
		logging.Fatal().Err(err).Msg("mongo init")
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	defer func() { _ = db.Close(context.Background()) }()
	database := db.DB()

	if *dryRun {
		preview := service.NewCurationService(
			repository.NewAnimeRepository(database),
			repository.NewCurationRepository(database),
			nil,
			nil,
		)
		changes, err := preview.PreviewLabels(ctx, req)
		if err != nil {
			logging.Fatal().Err(err).Msg("preview labels")
		}
		for b, c := range changes {
			logging.Info().
				Str("flag", string(b)).
				Strs("add", c.Add).
				Strs("remove", c.Remove).
				Msg("would change")
		}
		return
	}

	// The ranked lists expire on their own when Redis is unreachable here.
	var listCache service.ListCache
	if err := cache.InitRedis(cfg); err != nil {
		logging.Warn().Err(err).Msg("redis unavailable; list cache not invalidated")
	} else {
		defer func() { _ = cache.Close() }()
		listCache = cache.NewLists(cache.Client(), cfg.ListCacheTTL)
	}

	svc := service.NewCurationService(
		repository.NewAnimeRepository(database),
		repository.NewCurationRepository(database),
		listCache,
		nil,
	)

	res, err := svc.BulkSetLabels(ctx, req)
	if err != nil {
		logging.Fatal().Err(err).Msg("apply labels")
	}
	for b, n := range res.Counts {
		logging.Info().Str("flag", string(b)).Int64("count", n).Msg("flag count")
	}
	logging.Info().Int("updated", len(res.Updated)).Msg("labels applied")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "animaaz/docs" // swagger docs

	"animaaz/internal/cache"
	"animaaz/internal/config"
	"animaaz/internal/db"
	"animaaz/internal/handler"
	"animaaz/internal/logging"
	"animaaz/internal/realtime"
	"animaaz/internal/repository"
	"animaaz/internal/server"
	"animaaz/internal/service"

	"github.com/thejerf/suture/v4"
)

// @title Animaaz API
// @version 1.0
// @description Anime catalog, curation buckets and popularity-ranked lists.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// stores
	if err := db.InitMongo(cfg); err != nil {
		logging.Fatal().Err(err).Msg("mongo init")
	}
	if err := cache.InitRedis(cfg); err != nil {
		logging.Fatal().Err(err).Msg("redis init")
	}

	idxCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(idxCtx, db.DB()); err != nil {
		cancel()
		logging.Fatal().Err(err).Msg("ensure indexes")
	}
	cancel()

	// repos
	database := db.DB()
	animeRepo := repository.NewAnimeRepository(database)
	curationRepo := repository.NewCurationRepository(database)
	ratingRepo := repository.NewRatingRepository(database)
	commentRepo := repository.NewCommentRepository(database)

	hub := realtime.NewHub()
	lists := cache.NewLists(cache.Client(), cfg.ListCacheTTL)

	// services
	curationSvc := service.NewCurationService(animeRepo, curationRepo, lists, hub)
	catalogSvc := service.NewCatalogService(animeRepo, ratingRepo, commentRepo, lists, hub)

	// handlers
	router := server.NewRouter(server.Deps{
		Anime:    handler.NewAnimeHandler(catalogSvc, curationSvc),
		Curation: handler.NewCurationHandler(curationSvc),
		Admin:    handler.NewAdminAnimeHandler(curationSvc, catalogSvc),
		Health: handler.NewHealthHandler(map[string]handler.Check{
			"mongo": db.Ping,
			"redis": cache.Ping,
		}),
		Realtime:           realtime.NewHandler(hub, cfg.AllowedOrigins()),
		JWTSecret:          cfg.JWTSecret,
		CORSOrigins:        cfg.AllowedOrigins(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sup := suture.New("animaaz", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Warn().Fields(e.Map()).Msg(e.String())
		},
		Timeout: cfg.ShutdownTimeout,
	})
	sup.Add(hub)
	sup.Add(server.NewHTTPService(httpServer, cfg.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("port", cfg.HTTPPort).Msg("http listening")
	err = sup.Serve(ctx)

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if cerr := db.Close(closeCtx); cerr != nil {
		logging.Warn().Err(cerr).Msg("mongo close")
	}
	if cerr := cache.Close(); cerr != nil {
		logging.Warn().Err(cerr).Msg("redis close")
	}

	if err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor stopped")
		os.Exit(1)
	}
	logging.Info().Msg("shutdown complete")
}

// Package server assembles the HTTP router and runs it as a supervised service.
package server

import (
	"net/http"

	"animaaz/internal/handler"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Deps are the handlers and settings the router is built from.
type Deps struct {
	Anime     *handler.AnimeHandler
	Curation  *handler.CurationHandler
	Admin     *handler.AdminAnimeHandler
	Health    *handler.HealthHandler
	Realtime  http.Handler
	JWTSecret string

	CORSOrigins        []string
	RateLimitPerMinute int
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	}))

	r.Get("/health", d.Health.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DocExpansion("list"),
	))
	if d.Realtime != nil {
		r.Handle("/ws", d.Realtime)
	}

	requireUser := handler.JWTAuth(d.JWTSecret)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(d.RateLimitPerMinute))

		// ---- public reads; a token, when sent, personalizes the detail view ----
		r.Group(func(r chi.Router) {
			r.Use(handler.OptionalJWT(d.JWTSecret))

			r.Get("/anime", d.Anime.List)
			r.Get("/anime/search", d.Anime.Search)
			r.Get("/anime/genres", d.Anime.Genres)
			r.Get("/anime/featured", d.Anime.Featured)
			r.Get("/anime/trending", d.Anime.Trending)
			r.Get("/anime/popular", d.Anime.Popular)
			r.Get("/anime/top-airing", d.Anime.TopAiring)
			r.Get("/anime/top-week", d.Anime.TopWeek)
			r.Get("/anime/for-you", d.Anime.ForYou)
			r.Get("/anime/banners", d.Anime.Banners)
			r.Get("/anime/{id}", d.Anime.Get)

			r.Get("/curation/banner", d.Curation.GetBanner)
			r.Get("/curation/{type}", d.Curation.Get)
		})

		// ---- signed-in users ----
		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/anime/{id}/like", d.Anime.Like)
			r.Post("/anime/{id}/rate", d.Anime.Rate)
			r.Post("/anime/{id}/comments", d.Anime.Comment)
		})

		// ---- admin ----
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Use(handler.AdminOnly())

			r.Get("/anime/admin/curation-state", d.Curation.State)
			r.Get("/curation", d.Curation.List)
			r.Put("/curation/banner", d.Curation.PutBanner)
			r.Put("/curation/{type}", d.Curation.Put)

			handler.MountAdminAnimeRoutes(r, d.Admin)
		})
	})

	return r
}

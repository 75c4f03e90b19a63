package handler

import (
	"context"
	"net/http"
	"strconv"

	"animaaz/internal/models"
	"animaaz/internal/service"

	"github.com/go-chi/chi/v5"
)

type AnimeHandler struct {
	catalog  *service.CatalogService
	curation *service.CurationService
}

func NewAnimeHandler(catalog *service.CatalogService, curation *service.CurationService) *AnimeHandler {
	return &AnimeHandler{catalog: catalog, curation: curation}
}

// @Summary List anime (paginated)
// @Tags anime
// @Produce json
// @Param q query string false "text filter (title, description, tags, genres)"
// @Param genre query string false "genre"
// @Param status query string false "ongoing|completed|upcoming"
// @Param year query int false "year"
// @Param sort query string false "recent|rating|views|title (default recent)"
// @Param page query int false "page (default 1)"
// @Param limit query int false "page size (default 20, max 100)"
// @Success 200 {object} models.AnimePage
// @Failure 400 {object} ErrorBody
// @Router /anime [get]
func (h *AnimeHandler) List(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	year, _ := strconv.Atoi(qs.Get("year"))
	page, _ := strconv.Atoi(qs.Get("page"))
	limit, _ := strconv.Atoi(qs.Get("limit"))

	q := service.NormalizeListQuery(models.ListQuery{
		Q:      qs.Get("q"),
		Genre:  qs.Get("genre"),
		Status: qs.Get("status"),
		Year:   year,
		Sort:   qs.Get("sort"),
		Page:   page,
		Limit:  limit,
	})
	if !validate(w, &q) {
		return
	}

	res, err := h.catalog.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Search anime
// @Description Case-insensitive literal match on title, description, tags and genres.
// @Tags anime
// @Produce json
// @Param q query string true "text"
// @Param limit query int false "max results (default 20, max 50)"
// @Success 200 {array} models.AnimeCard
// @Router /anime/search [get]
func (h *AnimeHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	res, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Distinct genres of active anime
// @Tags anime
// @Produce json
// @Success 200 {array} string
// @Router /anime/genres [get]
func (h *AnimeHandler) Genres(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Genres(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ranked serves one of the score or recency ranked public lists.
func ranked(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]models.AnimeCard, error)) {
	res, err := list(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Featured anime (top 10 by score)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/featured [get]
func (h *AnimeHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.Featured)
}

// @Summary Trending anime (top 15 by score, newest first on ties)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/trending [get]
func (h *AnimeHandler) Trending(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.Trending)
}

// @Summary Popular anime (top 15 active by score)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/popular [get]
func (h *AnimeHandler) Popular(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.Popular)
}

// @Summary Top airing anime (15 most recently updated)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/top-airing [get]
func (h *AnimeHandler) TopAiring(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.TopAiring)
}

// @Summary Top of the week (15 most recently updated)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/top-week [get]
func (h *AnimeHandler) TopWeek(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.TopWeek)
}

// @Summary For-you anime (15 most recently updated)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/for-you [get]
func (h *AnimeHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.ForYou)
}

// @Summary Banner anime (10 most recently updated)
// @Tags anime
// @Produce json
// @Success 200 {array} models.AnimeCard
// @Router /anime/banners [get]
func (h *AnimeHandler) Banners(w http.ResponseWriter, r *http.Request) {
	ranked(w, r, h.curation.Banners)
}

// @Summary Get anime with threaded comments
// @Description Counts a view. With a token the response includes the caller's rating and like.
// @Tags anime
// @Produce json
// @Param id path string true "anime id"
// @Success 200 {object} models.AnimeDetail
// @Failure 404 {object} ErrorBody
// @Router /anime/{id} [get]
func (h *AnimeHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Like or unlike an anime
// @Tags anime
// @Security BearerAuth
// @Produce json
// @Param id path string true "anime id"
// @Success 200 {object} models.LikeResult
// @Failure 404 {object} ErrorBody
// @Router /anime/{id}/like [post]
func (h *AnimeHandler) Like(w http.ResponseWriter, r *http.Request) {
	res, err := h.catalog.Like(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Rate an anime (1-5, one rating per user)
// @Tags anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "anime id"
// @Param body body models.RateRequest true "rating"
// @Success 200 {object} models.RatingResult
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /anime/{id}/rate [post]
func (h *AnimeHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req models.RateRequest
	if !decodeJSON(w, r, &req) || !validate(w, &req) {
		return
	}

	res, err := h.catalog.Rate(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()), req.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Comment on an anime or reply to a comment
// @Tags anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "anime id"
// @Param body body models.CommentRequest true "comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /anime/{id}/comments [post]
func (h *AnimeHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req models.CommentRequest
	if !decodeJSON(w, r, &req) || !validate(w, &req) {
		return
	}

	res, err := h.catalog.Comment(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

package handler

import (
	"net/http"

	"animaaz/internal/models"
	"animaaz/internal/service"

	"github.com/go-chi/chi/v5"
)

// AdminAnimeHandler exposes the admin labeling, counter and content endpoints.
type AdminAnimeHandler struct {
	curation *service.CurationService
	catalog  *service.CatalogService
}

func NewAdminAnimeHandler(curation *service.CurationService, catalog *service.CatalogService) *AdminAnimeHandler {
	return &AdminAnimeHandler{curation: curation, catalog: catalog}
}

// @Summary Replace curation flags in bulk
// @Description Every list present in the body replaces that flag catalog-wide: listed ids get
// @Description it, every other anime loses it. Omitted lists are left alone.
// @Tags admin-anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.BulkLabelsRequest true "flag id lists"
// @Success 200 {object} models.BulkLabelsResult
// @Failure 400 {object} ErrorBody
// @Router /admin/anime/bulk-labels [post]
func (h *AdminAnimeHandler) BulkLabels(w http.ResponseWriter, r *http.Request) {
	var req models.BulkLabelsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.curation.BulkSetLabels(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Set synthetic counters
// @Description Numbers or numeric strings are accepted. Values must not be negative.
// @Tags admin-anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "anime id"
// @Param body body models.CountersRequest true "counters"
// @Success 200 {object} models.CountersResult
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /admin/anime/{id}/counters [post]
func (h *AdminAnimeHandler) Counters(w http.ResponseWriter, r *http.Request) {
	var req models.CountersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.setCounters(w, r, toInt64(req.DummyLikes), toInt64(req.DummyViews))
}

// @Summary Set the synthetic like counter
// @Tags admin-anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "anime id"
// @Param body body models.CounterValueRequest true "{\"value\": n} or {\"dummyLikes\": n}"
// @Success 200 {object} models.CountersResult
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /admin/anime/{id}/dummy-likes [post]
func (h *AdminAnimeHandler) DummyLikes(w http.ResponseWriter, r *http.Request) {
	var req models.CounterValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := req.Value
	if v == nil {
		v = req.DummyLikes
	}
	h.setCounters(w, r, toInt64(v), nil)
}

// @Summary Set the synthetic view counter
// @Tags admin-anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "anime id"
// @Param body body models.CounterValueRequest true "{\"value\": n} or {\"dummyViews\": n}"
// @Success 200 {object} models.CountersResult
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /admin/anime/{id}/dummy-views [post]
func (h *AdminAnimeHandler) DummyViews(w http.ResponseWriter, r *http.Request) {
	var req models.CounterValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := req.Value
	if v == nil {
		v = req.DummyViews
	}
	h.setCounters(w, r, nil, toInt64(v))
}

func (h *AdminAnimeHandler) setCounters(w http.ResponseWriter, r *http.Request, likes, views *int64) {
	res, err := h.curation.SetCounters(r.Context(), chi.URLParam(r, "id"), likes, views)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func toInt64(f *models.FlexInt) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}

// @Summary Create anime
// @Tags admin-anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.AnimeCreateRequest true "anime"
// @Success 201 {object} models.Anime
// @Failure 400 {object} ErrorBody
// @Router /admin/anime [post]
func (h *AdminAnimeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.AnimeCreateRequest
	if !decodeJSON(w, r, &req) || !validate(w, &req) {
		return
	}

	a, err := h.catalog.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// @Summary Update anime (partial)
// @Tags admin-anime
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "anime id"
// @Param body body models.AnimeUpdateRequest true "fields to change"
// @Success 200 {object} models.Anime
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /admin/anime/{id} [put]
func (h *AdminAnimeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.AnimeUpdateRequest
	if !decodeJSON(w, r, &req) || !validate(w, &req) {
		return
	}

	a, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// @Summary Soft delete anime
// @Tags admin-anime
// @Security BearerAuth
// @Param id path string true "anime id"
// @Success 204
// @Failure 404 {object} ErrorBody
// @Router /admin/anime/{id} [delete]
func (h *AdminAnimeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MountAdminAnimeRoutes mounts the /admin/anime routes on an already gated router.
func MountAdminAnimeRoutes(r chi.Router, h *AdminAnimeHandler) {
	r.Route("/admin/anime", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/bulk-labels", h.BulkLabels)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/counters", h.Counters)
		r.Post("/{id}/dummy-likes", h.DummyLikes)
		r.Post("/{id}/dummy-views", h.DummyViews)
	})
}

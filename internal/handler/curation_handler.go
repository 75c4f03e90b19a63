package handler

import (
	"net/http"
	"strconv"

	"animaaz/internal/models"
	"animaaz/internal/service"

	"github.com/go-chi/chi/v5"
)

type CurationHandler struct {
	svc *service.CurationService
}

func NewCurationHandler(s *service.CurationService) *CurationHandler {
	return &CurationHandler{svc: s}
}

// @Summary Read a curation bucket
// @Description Returns the explicit bucket in its curated order when one exists, otherwise
// @Description the flag-based fallback ranked by the bucket's policy. "source" tells which.
// @Tags curation
// @Produce json
// @Param type path string true "featured|trending|banner|topAiring|topWeek|forYou"
// @Param limit query int false "cap on returned items, at most 100"
// @Success 200 {object} models.CurationView
// @Failure 400 {object} ErrorBody
// @Router /curation/{type} [get]
func (h *CurationHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := models.ParseBucketType(chi.URLParam(r, "type"))
	if !ok {
		writeServiceError(w, r, service.ErrInvalidBucketType)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := h.svc.GetByType(r.Context(), t, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Read the banner bucket with banner projections
// @Tags curation
// @Produce json
// @Success 200 {object} models.BannerView
// @Router /curation/banner [get]
func (h *CurationHandler) GetBanner(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetBanner(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Replace a curation bucket
// @Description The id list is stored in order and supersedes the flags, even when empty.
// @Tags curation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param type path string true "featured|trending|banner|topAiring|topWeek|forYou"
// @Param body body models.SetBucketRequest true "ordered anime ids"
// @Success 200 {object} models.CurationBucket
// @Failure 400 {object} ErrorBody
// @Failure 403 {object} ErrorBody
// @Router /curation/{type} [put]
func (h *CurationHandler) Put(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, chi.URLParam(r, "type"))
}

// @Summary Replace the banner bucket
// @Tags curation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.SetBucketRequest true "ordered anime ids"
// @Success 200 {object} models.CurationBucket
// @Failure 400 {object} ErrorBody
// @Router /curation/banner [put]
func (h *CurationHandler) PutBanner(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, string(models.BucketBanner))
}

func (h *CurationHandler) put(w http.ResponseWriter, r *http.Request, raw string) {
	t, ok := models.ParseBucketType(raw)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidBucketType)
		return
	}

	var req models.SetBucketRequest
	if !decodeJSON(w, r, &req) || !validate(w, &req) {
		return
	}

	res, err := h.svc.SetBucket(r.Context(), t, req, UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary List explicit curation buckets
// @Tags curation
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.CurationBucket
// @Router /curation [get]
func (h *CurationHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Buckets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary Flag-based curation state for the admin UI
// @Tags curation
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.CurationState
// @Router /anime/admin/curation-state [get]
func (h *CurationHandler) State(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CurationState(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

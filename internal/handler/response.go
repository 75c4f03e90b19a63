package handler

import (
	"errors"
	"io"
	"net/http"

	"animaaz/internal/logging"
	"animaaz/internal/service"
	"animaaz/internal/validation"

	json "github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: msg}})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_body", "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid body: "+err.Error())
		return false
	}
	return true
}

// validate runs the struct validator and writes a 400 on failure.
func validate(w http.ResponseWriter, v any) bool {
	err := validation.ValidateStruct(v)
	if err == nil {
		return true
	}
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Code:    "validation_error",
			Message: verr.Error(),
			Fields:  verr.Fields,
		}})
		return false
	}
	writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	return false
}

// writeServiceError maps service errors onto status codes. Store failures
// are 500 and carry the underlying message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "anime not found")
	case errors.Is(err, service.ErrParentNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, service.ErrInvalidBucketType),
		errors.Is(err, service.ErrInvalidCounter),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidComment):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

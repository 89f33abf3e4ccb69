package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/actuallystonmai/song-recommendation-service/internal/service"
)

// maxBodyBytes bounds request bodies; a full batch of ratings is far smaller.
const maxBodyBytes = 64 << 10

type Handler struct {
	service  *service.Service
	validate *validator.Validate
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		service:  svc,
		validate: validator.New(),
	}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps a service error to its HTTP status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	code, msg := service.CategorizeError(err)
	writeError(w, statusFor(code), code, msg)
}

func statusFor(code string) int {
	switch code {
	case service.CodeSessionNotFound:
		return http.StatusNotFound
	case service.CodeSessionConsumed:
		return http.StatusConflict
	case service.CodeInvalidRating, service.CodeUnknownSong:
		return http.StatusBadRequest
	case service.CodeModelUnavailable, service.CodeCatalogTooSmall, service.CodeRequestTimeout:
		return http.StatusServiceUnavailable
	case service.CodeInsufficientCandidates:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v and runs struct validation on it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

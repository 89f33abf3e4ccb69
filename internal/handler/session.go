package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/service"
)

// POST /sessions
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	started, err := h.service.StartSession(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		Token:   started.Token,
		Songs:   started.Songs,
		Message: fmt.Sprintf("Rate any of these %d songs from %d to %d stars", len(started.Songs), domain.MinStars, domain.MaxStars),
	})
}

// POST /sessions/{token}/ratings
func (h *Handler) SubmitRatings(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req RatingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	ratings := make([]domain.Rating, len(req.Ratings))
	for i, rr := range req.Ratings {
		stars, ok := wholeStars(rr.Stars)
		if !ok {
			writeError(w, http.StatusBadRequest, service.CodeInvalidRating, fmt.Sprintf("stars must be a whole number, got %v", rr.Stars))
			return
		}
		ratings[i] = domain.Rating{SongID: rr.SongID, Stars: stars}
	}
	if err := h.service.SubmitRatings(r.Context(), token, ratings); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RatingsResponse{Token: token, Recorded: len(ratings)})
}

// PUT /sessions/{token}/ratings/{songID}
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	songID := chi.URLParam(r, "songID")

	var req StarsRequest
	if !h.decode(w, r, &req) {
		return
	}
	stars, ok := wholeStars(req.Stars)
	if !ok {
		writeError(w, http.StatusBadRequest, service.CodeInvalidRating, fmt.Sprintf("stars must be a whole number, got %v", req.Stars))
		return
	}
	if err := h.service.SubmitRating(r.Context(), token, songID, stars); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RatingsResponse{Token: token, Recorded: 1})
}

// POST /sessions/{token}/recommendations
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	// Parse and validate limit; values above the maximum are clamped
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	result, err := h.service.GetRecommendations(r.Context(), token, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecommendationResponse{
		Token:           token,
		Recommendations: result.Recommendations,
		Metadata: domain.RecommendationMeta{
			Mode:         result.Mode,
			RatedCount:   result.RatedCount,
			ModelVersion: result.ModelVersion,
			GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
			TotalCount:   len(result.Recommendations),
		},
	})
}

// wholeStars accepts integral values only; the engine checks the range.
func wholeStars(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1e6 {
		return 0, false
	}
	return int(f), true
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	st := h.service.Status()
	if !st.Loaded {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Model: st})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Model: st})
}

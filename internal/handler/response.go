package handler

import (
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/engine"
)

type SessionResponse struct {
	Token   string               `json:"token"`
	Songs   []domain.SongSummary `json:"songs"`
	Message string               `json:"message"`
}

// Stars are decoded as numbers and checked later, so that fractional or
// out-of-range values get the invalid_rating code rather than a body error.
type RatingRequest struct {
	SongID string  `json:"song_id" validate:"required"`
	Stars  float64 `json:"stars"`
}

type RatingsRequest struct {
	Ratings []RatingRequest `json:"ratings" validate:"required,min=1,max=100,dive"`
}

type StarsRequest struct {
	Stars float64 `json:"stars"`
}

type RatingsResponse struct {
	Token    string `json:"token"`
	Recorded int    `json:"recorded"`
}

type RecommendationResponse struct {
	Token           string                    `json:"token"`
	Recommendations []domain.Recommendation   `json:"recommendations"`
	Metadata        domain.RecommendationMeta `json:"metadata"`
}

type HealthResponse struct {
	Status string        `json:"status"`
	Model  engine.Status `json:"model"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

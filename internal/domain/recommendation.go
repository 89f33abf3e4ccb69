package domain

// RecommendationMode tells whether a result came from the neighbor search
// or from the popularity fallback used when a session holds no ratings.
type RecommendationMode string

const (
	ModeSimilarity RecommendationMode = "similarity"
	ModePopularity RecommendationMode = "popularity"
)

type Recommendation struct {
	SongSummary
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance,omitempty"`
}

type RecommendationResult struct {
	Recommendations []Recommendation
	Mode            RecommendationMode
	RatedCount      int
	ModelVersion    string
}

type RecommendationMeta struct {
	Mode         RecommendationMode `json:"mode"`
	RatedCount   int                `json:"rated_count"`
	ModelVersion string             `json:"model_version"`
	GeneratedAt  string             `json:"generated_at"`
	TotalCount   int                `json:"total_count"`
}

// Rating is a single star rating for an offered song.
type Rating struct {
	SongID string `json:"song_id"`
	Stars  int    `json:"stars"`
}

package domain

import "math"

// AudioFeatures is the raw audio-feature row of a song. Missing values are NaN.
type AudioFeatures struct {
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
}

// MissingFeatures returns AudioFeatures with every field unset.
func MissingFeatures() AudioFeatures {
	nan := math.NaN()
	return AudioFeatures{
		Valence: nan, Acousticness: nan, Danceability: nan, Energy: nan,
		Instrumentalness: nan, Liveness: nan, Loudness: nan, Speechiness: nan, Tempo: nan,
	}
}

type Song struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Artists    string        `json:"artists"`
	Genre      string        `json:"genre"`
	Year       int           `json:"year,omitempty"`
	Popularity float64       `json:"popularity"`
	Features   AudioFeatures `json:"features"`
}

// SongSummary is what callers see of a song: display metadata, no features.
type SongSummary struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artists    string  `json:"artists"`
	Genre      string  `json:"genre,omitempty"`
	Year       int     `json:"year,omitempty"`
	Popularity float64 `json:"popularity"`
}

func (s Song) Summary() SongSummary {
	return SongSummary{
		ID:         s.ID,
		Title:      s.Title,
		Artists:    s.Artists,
		Genre:      s.Genre,
		Year:       s.Year,
		Popularity: s.Popularity,
	}
}

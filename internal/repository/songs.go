package repository

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
)

// ListSongs returns every song ordered by id. NULL feature values come back
// as NaN so the pipeline can impute or reject them.
func (r *Repository) ListSongs(ctx context.Context) ([]domain.Song, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, artists, genre, year, popularity, `+strings.Join(features.Names(), ", ")+`
		FROM songs
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	var songs []domain.Song
	raw := make([]*float64, features.Dim())
	for rows.Next() {
		var s domain.Song
		dest := []any{&s.ID, &s.Title, &s.Artists, &s.Genre, &s.Year, &s.Popularity}
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}

		s.Features, err = features.FromVector(fromNullable(raw))
		if err != nil {
			return nil, fmt.Errorf("song %s: %w", s.ID, err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

func (r *Repository) CountSongs(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM songs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	return count, nil
}

func fromNullable(raw []*float64) []float64 {
	v := make([]float64, len(raw))
	for i, p := range raw {
		if p == nil {
			v[i] = math.NaN()
			continue
		}
		v[i] = *p
	}
	return v
}

package engine

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/actuallystonmai/song-recommendation-service/internal/artifact"
	"github.com/actuallystonmai/song-recommendation-service/internal/catalog"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
)

var errNoRatings = errors.New("query vector needs at least one rating")

// QueryVector is the star-weighted centroid of the rated songs' scaled
// vectors: sum(stars_i * v_i) / sum(stars_i). Low ratings pull less, they
// do not push away.
func QueryVector(cat *catalog.Catalog, rated []domain.Rating) ([]float64, error) {
	if len(rated) == 0 {
		return nil, errNoRatings
	}
	total := 0
	for _, r := range rated {
		if r.Stars < domain.MinStars || r.Stars > domain.MaxStars {
			return nil, &domain.InvalidRatingError{Stars: r.Stars}
		}
		total += r.Stars
	}

	var query []float64
	for _, r := range rated {
		v, ok := cat.Vector(r.SongID)
		if !ok {
			return nil, &domain.UnknownSongError{SongID: r.SongID}
		}
		if query == nil {
			query = make([]float64, len(v))
		} else if len(v) != len(query) {
			return nil, &features.DimensionError{Want: len(query), Got: len(v)}
		}
		floats.AddScaled(query, float64(r.Stars)/float64(total), v)
	}
	return query, nil
}

// Affinity maps a distance to a score in (0, 1], decreasing with distance.
func Affinity(distance float64) float64 {
	return 1 / (1 + distance)
}

// Nearest searches top_k plus len(exclude) neighbors so that dropping the
// excluded songs still leaves top_k when the catalog allows it.
func Nearest(set *artifact.Set, query []float64, topK int, exclude map[string]struct{}) ([]domain.Recommendation, error) {
	hits, err := set.Index.Search(query, topK+len(exclude))
	if err != nil {
		return nil, err
	}

	recs := make([]domain.Recommendation, 0, topK)
	seen := make(map[string]struct{}, topK)
	for _, h := range hits {
		if len(recs) == topK {
			break
		}
		if _, skip := exclude[h.ID]; skip {
			continue
		}
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		recs = append(recs, domain.Recommendation{
			SongSummary: set.Catalog.Song(h.Row).Summary(),
			Rank:        len(recs) + 1,
			Score:       Affinity(h.Distance),
			Distance:    h.Distance,
		})
	}
	return recs, nil
}

// Popular is the fallback for sessions without ratings: the most popular
// songs not offered, scored by popularity relative to the catalog maximum.
func Popular(set *artifact.Set, topK int, exclude map[string]struct{}) []domain.Recommendation {
	songs := set.Catalog.MostPopular(topK, exclude)
	maxPop := set.Catalog.MaxPopularity()

	recs := make([]domain.Recommendation, len(songs))
	for i, s := range songs {
		score := 0.0
		if maxPop > 0 {
			score = s.Popularity / maxPop
		}
		recs[i] = domain.Recommendation{
			SongSummary: s.Summary(),
			Rank:        i + 1,
			Score:       score,
		}
	}
	return recs
}

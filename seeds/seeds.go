package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
)

const (
	DefaultSeed  = 42
	DefaultSongs = 500
	insertBatch  = 200
)

// profile is the feature centroid songs of a genre are drawn around, in
// schema order.
type profile struct {
	genre  string
	center []float64
}

var profiles = []profile{
	{"pop", []float64{0.70, 0.15, 0.75, 0.70, 0.02, 0.15, -6, 0.06, 118}},
	{"rock", []float64{0.50, 0.08, 0.50, 0.85, 0.08, 0.20, -5, 0.05, 128}},
	{"acoustic", []float64{0.45, 0.80, 0.50, 0.30, 0.05, 0.12, -12, 0.04, 100}},
	{"hip-hop", []float64{0.55, 0.12, 0.80, 0.65, 0.01, 0.18, -6.5, 0.25, 96}},
	{"electronic", []float64{0.40, 0.05, 0.70, 0.80, 0.60, 0.12, -6, 0.07, 126}},
	{"classical", []float64{0.30, 0.95, 0.30, 0.15, 0.85, 0.10, -20, 0.04, 90}},
}

// spread is the per-column standard deviation of the noise around a centroid.
var spread = []float64{0.12, 0.10, 0.10, 0.10, 0.10, 0.06, 2.5, 0.03, 12}

// Setup replaces the songs table with a generated catalog.
func Setup(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	rng := rand.New(rand.NewSource(DefaultSeed))

	log.Info().Msg("[seed] truncating existing songs")
	if _, err := pool.Exec(ctx, `TRUNCATE songs`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	songs := GenerateSongs(rng, DefaultSongs)
	log.Info().Int("songs", len(songs)).Msg("[seed] inserting songs")
	for start := 0; start < len(songs); start += insertBatch {
		end := min(start+insertBatch, len(songs))
		if err := insertSongs(ctx, pool, songs[start:end]); err != nil {
			return fmt.Errorf("seed songs: %w", err)
		}
	}

	log.Info().Msg("[seed] seeding complete")
	return nil
}

// GenerateSongs builds n songs clustered by genre. The same rng state yields
// the same catalog, names included.
func GenerateSongs(rng *rand.Rand, n int) []domain.Song {
	faker := gofakeit.New(uint64(rng.Int63()))
	songs := make([]domain.Song, 0, n)
	for i := range n {
		p := profiles[i%len(profiles)]

		v := make([]float64, features.Dim())
		for j, c := range features.Columns {
			x := p.center[j] + rng.NormFloat64()*spread[j]
			v[j] = math.Max(c.Min, math.Min(c.Max, x))
		}
		f, _ := features.FromVector(v)

		songs = append(songs, domain.Song{
			ID:         fmt.Sprintf("trk%05d", i+1),
			Title:      faker.SongName(),
			Artists:    faker.SongArtist(),
			Genre:      p.genre,
			Year:       1970 + rng.Intn(55),
			Popularity: math.Round(powerLawScore(rng) * 100),
			Features:   f,
		})
	}
	return songs
}

func insertSongs(ctx context.Context, pool *pgxpool.Pool, songs []domain.Song) error {
	const cols = 15
	rows := make([]string, 0, len(songs))
	args := make([]any, 0, len(songs)*cols)

	for _, s := range songs {
		base := len(args)
		ph := make([]string, cols)
		for k := range ph {
			ph[k] = fmt.Sprintf("$%d", base+k+1)
		}
		rows = append(rows, "("+strings.Join(ph, ", ")+")")

		args = append(args, s.ID, s.Title, s.Artists, s.Genre, s.Year, s.Popularity)
		for _, x := range features.Vector(s.Features) {
			args = append(args, nullable(x))
		}
	}

	if len(rows) == 0 {
		return nil
	}

	query := "INSERT INTO songs (id, title, artists, genre, year, popularity, " +
		strings.Join(features.Names(), ", ") + ") VALUES " + strings.Join(rows, ", ")

	_, err := pool.Exec(ctx, query, args...)
	return err
}

func nullable(x float64) *float64 {
	if math.IsNaN(x) {
		return nil
	}
	return &x
}

func powerLawScore(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.001
	}
	raw := math.Pow(u, 2.0)
	if raw < 0.01 {
		raw = 0.01
	}
	return math.Round(raw*100) / 100
}

// Package training fits the scaler and builds the neighbor index from the
// raw catalog table, producing one consistent artifact set.
package training

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/song-recommendation-service/internal/artifact"
	"github.com/actuallystonmai/song-recommendation-service/internal/catalog"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
	"github.com/actuallystonmai/song-recommendation-service/internal/index"
)

type Config struct {
	// DefaultK is the neighbor count recorded with the index. Training needs
	// at least DefaultK+1 usable songs.
	DefaultK int

	Metric index.Metric

	// Seed is recorded in the manifest and folded into the version. The
	// pipeline itself is deterministic.
	Seed int64

	// ImputeMissing replaces missing feature values with the column mean.
	// When false any missing value fails training.
	ImputeMissing bool
}

func DefaultConfig() Config {
	return Config{
		DefaultK:      50,
		Metric:        index.MetricEuclidean,
		Seed:          42,
		ImputeMissing: true,
	}
}

type Pipeline struct {
	cfg Config
	log zerolog.Logger
	now func() time.Time
}

func New(cfg Config, log zerolog.Logger) *Pipeline {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 50
	}
	if cfg.Metric == "" {
		cfg.Metric = index.MetricEuclidean
	}
	return &Pipeline{
		cfg: cfg,
		log: log.With().Str("component", "training").Logger(),
		now: time.Now,
	}
}

// Run cleans songs, fits the scaler, scales every song and builds the index.
// It never returns a partial set: any data problem is a *domain.TrainingDataError.
func (p *Pipeline) Run(ctx context.Context, songs []domain.Song) (*artifact.Set, error) {
	start := p.now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kept, rows, dropped, err := p.extract(songs)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		p.log.Warn().Int("dropped", dropped).Msg("songs without any audio features left out of training")
	}
	if len(kept) < p.cfg.DefaultK+1 {
		return nil, &domain.TrainingDataError{
			Msg: fmt.Sprintf("%d usable songs, need at least %d (k=%d)", len(kept), p.cfg.DefaultK+1, p.cfg.DefaultK),
		}
	}

	if err := p.clean(kept, rows); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scaler, err := features.Fit(features.Names(), rows)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(rows)
	if err != nil {
		return nil, fmt.Errorf("scale catalog: %w", err)
	}

	cleaned := make([]domain.Song, len(kept))
	ids := make([]string, len(kept))
	for i, s := range kept {
		f, err := features.FromVector(rows[i])
		if err != nil {
			return nil, err
		}
		s.Features = f
		cleaned[i] = s
		ids[i] = s.ID
	}

	cat, err := catalog.New(cleaned, scaled)
	if err != nil {
		return nil, &domain.TrainingDataError{Msg: err.Error()}
	}
	idx, err := index.New(ids, scaled, p.cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	set, err := artifact.NewSet(artifact.Manifest{
		Version:   p.fingerprint(cleaned, rows),
		Rows:      len(cleaned),
		DefaultK:  p.cfg.DefaultK,
		Metric:    p.cfg.Metric,
		Seed:      p.cfg.Seed,
		TrainedAt: start.UTC(),
		Dropped:   dropped,
	}, scaler, idx, cat)
	if err != nil {
		return nil, err
	}

	p.log.Info().
		Int("rows", set.Manifest.Rows).
		Int("k", set.Manifest.DefaultK).
		Str("metric", string(set.Manifest.Metric)).
		Str("version", set.Manifest.Version).
		Dur("took", p.now().Sub(start)).
		Msg("model trained")
	return set, nil
}

// extract checks ids and lays each song out as a raw vector. Songs missing
// every feature are dropped.
func (p *Pipeline) extract(songs []domain.Song) ([]domain.Song, [][]float64, int, error) {
	seen := make(map[string]struct{}, len(songs))
	kept := make([]domain.Song, 0, len(songs))
	rows := make([][]float64, 0, len(songs))
	dropped := 0

	for _, s := range songs {
		if s.ID == "" {
			return nil, nil, 0, &domain.TrainingDataError{Msg: "song with empty id"}
		}
		if _, dup := seen[s.ID]; dup {
			return nil, nil, 0, &domain.TrainingDataError{SongID: s.ID, Msg: "duplicate id"}
		}
		seen[s.ID] = struct{}{}
		if math.IsNaN(s.Popularity) || math.IsInf(s.Popularity, 0) || s.Popularity < 0 {
			return nil, nil, 0, &domain.TrainingDataError{SongID: s.ID, Column: "popularity", Msg: fmt.Sprintf("invalid value %v", s.Popularity)}
		}

		v := features.Vector(s.Features)
		missing := 0
		for _, x := range v {
			if math.IsNaN(x) {
				missing++
			}
		}
		if missing == len(v) {
			dropped++
			continue
		}
		kept = append(kept, s)
		rows = append(rows, v)
	}
	return kept, rows, dropped, nil
}

// clean range-checks present values, then fills missing ones in place.
func (p *Pipeline) clean(songs []domain.Song, rows [][]float64) error {
	for j, col := range features.Columns {
		sum, n := 0.0, 0
		for i, row := range rows {
			x := row[j]
			if math.IsNaN(x) {
				if !p.cfg.ImputeMissing {
					return &domain.TrainingDataError{SongID: songs[i].ID, Column: col.Name, Msg: "missing value"}
				}
				continue
			}
			if !features.InRange(j, x) {
				return &domain.TrainingDataError{
					SongID: songs[i].ID,
					Column: col.Name,
					Msg:    fmt.Sprintf("value %v outside [%v, %v]", x, col.Min, col.Max),
				}
			}
			sum += x
			n++
		}
		if n == 0 {
			return &domain.TrainingDataError{Column: col.Name, Msg: "no values present"}
		}
		if n == len(rows) {
			continue
		}
		mean := sum / float64(n)
		for _, row := range rows {
			if math.IsNaN(row[j]) {
				row[j] = mean
			}
		}
		p.log.Debug().Str("column", col.Name).Int("imputed", len(rows)-n).Float64("mean", mean).Msg("imputed missing values")
	}
	return nil
}

// fingerprint derives the set version from everything that shapes the model.
func (p *Pipeline) fingerprint(songs []domain.Song, rows [][]float64) string {
	d := xxhash.New()
	fmt.Fprintf(d, "%s|%s|%d|%s|%d\n", artifact.Schema, features.SchemaTag, p.cfg.DefaultK, p.cfg.Metric, p.cfg.Seed)

	var buf [8]byte
	for i, s := range songs {
		_, _ = d.WriteString(s.ID)
		for _, x := range rows[i] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			_, _ = d.Write(buf[:])
		}
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(s.Popularity))
		_, _ = d.Write(buf[:])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

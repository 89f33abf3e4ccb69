package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/actuallystonmai/song-recommendation-service/internal/artifact"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/index"
	"github.com/actuallystonmai/song-recommendation-service/internal/logging"
	"github.com/actuallystonmai/song-recommendation-service/internal/repository"
	"github.com/actuallystonmai/song-recommendation-service/internal/training"
	"github.com/actuallystonmai/song-recommendation-service/seeds"
)

var (
	syntheticSongs int
	noImpute       bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the scaler, build the index and write the artifact set",
	Long: `train reads the songs table (or generates a synthetic catalog with
--synthetic), standardizes the audio features, builds the neighbor index and
writes scaler, index and catalog files into ARTIFACT_DIR as one set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var songs []domain.Song
		if syntheticSongs > 0 {
			songs = seeds.GenerateSongs(rand.New(rand.NewSource(cfg.TrainSeed)), syntheticSongs)
		} else {
			err := withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
				var err error
				songs, err = repository.New(pool).ListSongs(ctx)
				return err
			})
			if err != nil {
				return err
			}
		}
		return train(ctx, songs)
	},
}

func init() {
	trainCmd.Flags().IntVar(&syntheticSongs, "synthetic", 0, "train on N generated songs instead of the database")
	trainCmd.Flags().BoolVar(&noImpute, "no-impute", false, "fail on missing feature values instead of filling column means")
}

func train(ctx context.Context, songs []domain.Song) error {
	metric, err := index.ParseMetric(cfg.DistanceMetric)
	if err != nil {
		return err
	}

	set, err := training.New(training.Config{
		DefaultK:      cfg.TrainK,
		Metric:        metric,
		Seed:          cfg.TrainSeed,
		ImputeMissing: !noImpute,
	}, logging.Logger()).Run(ctx, songs)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	dir := cfg.ArtifactDir
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(dir)), 0o755); err != nil {
		return fmt.Errorf("create artifact parent: %w", err)
	}
	if err := artifact.Save(dir, set); err != nil {
		return err
	}
	logging.Info().
		Str("dir", dir).
		Str("version", set.Manifest.Version).
		Int("rows", set.Manifest.Rows).
		Msg("artifacts written")
	return nil
}

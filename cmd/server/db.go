package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/actuallystonmai/song-recommendation-service/internal/logging"
	"github.com/actuallystonmai/song-recommendation-service/internal/repository"
	"github.com/actuallystonmai/song-recommendation-service/seeds"
)

var forceSeed bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply migrations and fill the songs table with a generated catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
			if err := migrateUp(ctx, pool); err != nil {
				return fmt.Errorf("failed to migrate up: %w", err)
			}
			return checkSeed(ctx, pool, forceSeed)
		})
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "migrate-up",
	Short: "Create the songs table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), migrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "migrate-down",
	Short: "Drop the songs table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), migrateDown)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&forceSeed, "force", false, "reseed even if songs already exist")
}

// withPool connects to PostgreSQL, waits for it to accept queries and runs fn.
func withPool(ctx context.Context, fn func(context.Context, *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logging.Info().Msg("connected to PostgreSQL")
	return fn(ctx, pool)
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logging.Info().Int("attempt", i+1).Msg("waiting for database")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	return execFile(ctx, pool, "migrations/create_tables.down.sql", "migrations dropped")
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	return execFile(ctx, pool, "migrations/create_tables.up.sql", "migrations applied")
}

func execFile(ctx context.Context, pool *pgxpool.Pool, path, done string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	logging.Info().Str("file", path).Msg(done)
	return nil
}

func checkSeed(ctx context.Context, pool *pgxpool.Pool, force bool) error {
	count, err := repository.New(pool).CountSongs(ctx)
	if err != nil {
		return err
	}
	if count > 0 && !force {
		logging.Info().Int("songs", count).Msg("database already seeded, skipping")
		return nil
	}
	return seeds.Setup(ctx, pool, logging.With("seed"))
}

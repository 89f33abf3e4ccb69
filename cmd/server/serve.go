package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/song-recommendation-service/internal/cache"
	"github.com/actuallystonmai/song-recommendation-service/internal/engine"
	"github.com/actuallystonmai/song-recommendation-service/internal/handler"
	"github.com/actuallystonmai/song-recommendation-service/internal/logging"
	"github.com/actuallystonmai/song-recommendation-service/internal/metrics"
	"github.com/actuallystonmai/song-recommendation-service/internal/router"
	"github.com/actuallystonmai/song-recommendation-service/internal/service"
	"github.com/actuallystonmai/song-recommendation-service/internal/session"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logging.With("server")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	g, ctx := errgroup.WithContext(ctx)

	// ------------ Session store ---------------
	var store session.Store
	switch cfg.SessionStore {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		rs := cache.NewSessionStore(client, cfg.SessionTTL)
		if err := rs.Ping(ctx); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		log.Info().Msg("sessions stored in Redis")
		store = rs
	default:
		ms := session.NewMemoryStore(cfg.SessionTTL)
		g.Go(func() error {
			ms.RunSweeper(ctx, sweepInterval, func(removed int) {
				m.SessionsExpired.Add(float64(removed))
			})
			return nil
		})
		log.Info().Dur("ttl", cfg.SessionTTL).Msg("sessions stored in memory")
		store = ms
	}

	// ------------ Model ---------------
	eng := engine.New(engine.Config{
		SampleSize:  cfg.SampleSize,
		DefaultTopK: cfg.DefaultTopK,
	}, store, logging.Logger())
	svc := service.NewService(eng, m, logging.Logger(), service.Options{
		DefaultTopK: cfg.DefaultTopK,
		MaxTopK:     cfg.MaxTopK,
	})
	if err := svc.LoadArtifacts(cfg.ArtifactDir); err != nil {
		// Serve anyway; requests fail with model_unavailable until a reload succeeds.
		log.Warn().Err(err).Msg("no model loaded, run the train command and send SIGHUP")
	}
	g.Go(func() error {
		reloadOnHangup(ctx, svc, cfg.ArtifactDir)
		return nil
	})

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(handler.NewHandler(svc), router.Options{
			Logger:             logging.Logger(),
			Metrics:            m,
			Gatherer:           reg,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// reloadOnHangup re-reads the artifact directory on SIGHUP. A failed reload
// keeps the current model.
func reloadOnHangup(ctx context.Context, svc *service.Service, dir string) {
	log := logging.With("reload")
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := svc.LoadArtifacts(dir); err != nil {
				log.Error().Err(err).Msg("reload failed, keeping current model")
				continue
			}
			log.Info().Str("version", svc.Status().Version).Msg("model reloaded")
		}
	}
}

package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/actuallystonmai/song-recommendation-service/internal/handler"
	"github.com/actuallystonmai/song-recommendation-service/internal/metrics"
)

type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// RateLimitPerMinute caps session and rating calls per client IP.
	// Zero disables limiting.
	RateLimitPerMinute int

	Timeout time.Duration
}

func Setup(h *handler.Handler, opts Options) http.Handler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)
	r.Use(middleware.Timeout(opts.Timeout))

	// Routes
	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
		}
		r.Post("/sessions", h.StartSession)
		r.Route("/sessions/{token}", func(r chi.Router) {
			r.Post("/ratings", h.SubmitRatings)
			r.Put("/ratings/{songID}", h.SubmitRating)
			r.Post("/recommendations", h.GetRecommendations)
		})
	})
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

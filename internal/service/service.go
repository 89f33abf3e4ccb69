package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/song-recommendation-service/internal/artifact"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/engine"
	"github.com/actuallystonmai/song-recommendation-service/internal/metrics"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Error codes shared by metrics labels and HTTP error bodies.
const (
	CodeSessionNotFound        = "session_not_found"
	CodeSessionConsumed        = "session_consumed"
	CodeInvalidRating          = "invalid_rating"
	CodeUnknownSong            = "unknown_song"
	CodeModelUnavailable       = "model_unavailable"
	CodeCatalogTooSmall        = "catalog_too_small"
	CodeInsufficientCandidates = "insufficient_candidates"
	CodeRequestTimeout         = "request_timeout"
	CodeInternal               = "internal_error"
)

type Options struct {
	DefaultTopK int
	MaxTopK     int
}

type Service struct {
	engine  *engine.Engine
	metrics *metrics.Metrics
	log     zerolog.Logger
	opts    Options
}

func NewService(eng *engine.Engine, m *metrics.Metrics, log zerolog.Logger, opts Options) *Service {
	if opts.MaxTopK <= 0 {
		opts.MaxTopK = maxLimit
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = defaultLimit
	}
	opts.DefaultTopK = min(opts.DefaultTopK, opts.MaxTopK)
	return &Service{
		engine:  eng,
		metrics: m,
		log:     log.With().Str("component", "service").Logger(),
		opts:    opts,
	}
}

// LoadArtifacts reads a saved model set from dir and swaps it in. On error
// the previously loaded model stays active.
func (s *Service) LoadArtifacts(dir string) error {
	set, err := artifact.Load(dir)
	if err != nil {
		return fmt.Errorf("load artifacts from %s: %w", dir, err)
	}
	s.Install(set)
	return nil
}

func (s *Service) Install(set *artifact.Set) {
	s.engine.Load(set)
	s.metrics.CatalogRows.Set(float64(set.Manifest.Rows))
}

func (s *Service) Status() engine.Status {
	return s.engine.Status()
}

func (s *Service) StartSession(ctx context.Context) (*engine.Started, error) {
	start := time.Now()
	started, err := s.engine.StartSession(ctx)
	s.observe("start_session", start, err)
	if err != nil {
		return nil, err
	}
	s.metrics.SessionsStarted.Inc()
	return started, nil
}

func (s *Service) SubmitRatings(ctx context.Context, token string, ratings []domain.Rating) error {
	start := time.Now()
	err := s.engine.SubmitRatings(ctx, token, ratings)
	s.observe("submit_rating", start, err)
	if err != nil {
		return err
	}
	s.metrics.RatingsRecorded.Add(float64(len(ratings)))
	return nil
}

func (s *Service) SubmitRating(ctx context.Context, token, songID string, stars int) error {
	return s.SubmitRatings(ctx, token, []domain.Rating{{SongID: songID, Stars: stars}})
}

// GetRecommendations clamps limit to (0, MaxTopK]; zero or negative means
// the default.
func (s *Service) GetRecommendations(ctx context.Context, token string, limit int) (*domain.RecommendationResult, error) {
	if limit <= 0 {
		limit = s.opts.DefaultTopK
	} else if limit > s.opts.MaxTopK {
		limit = s.opts.MaxTopK
	}

	start := time.Now()
	result, err := s.engine.GetRecommendations(ctx, token, limit)
	s.observe("recommend", start, err)
	if err != nil {
		return nil, err
	}
	s.metrics.RecommendationsTotal.WithLabelValues(string(result.Mode)).Inc()
	return result, nil
}

func (s *Service) observe(op string, start time.Time, err error) {
	reason := ""
	if err != nil {
		reason, _ = CategorizeError(err)
		if reason == CodeInternal {
			s.log.Error().Err(err).Str("operation", op).Msg("operation failed")
		}
	}
	s.metrics.ObserveOperation(op, start, reason)
}

// CategorizeError maps an engine error to a stable code and a message safe
// to show to a client.
func CategorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownSession):
		return CodeSessionNotFound, "session does not exist or has expired"
	case errors.Is(err, domain.ErrSessionAlreadyConsumed):
		return CodeSessionConsumed, "recommendations were already generated for this session"
	case domain.IsInvalidRatingError(err):
		return CodeInvalidRating, err.Error()
	case domain.IsUnknownSongError(err):
		return CodeUnknownSong, err.Error()
	case errors.Is(err, domain.ErrModelNotLoaded):
		return CodeModelUnavailable, "recommendation model is not loaded"
	case domain.IsCatalogTooSmallError(err):
		return CodeCatalogTooSmall, err.Error()
	case errors.Is(err, domain.ErrInsufficientCandidates):
		return CodeInsufficientCandidates, "no songs left to recommend outside this session"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeRequestTimeout, "request timed out, please try again"
	default:
		return CodeInternal, "an unexpected error occurred"
	}
}

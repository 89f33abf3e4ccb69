// Package engine runs the rating-session flow against a loaded model:
// sampling songs to rate, collecting ratings and turning them into
// recommendations.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/song-recommendation-service/internal/artifact"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/session"
)

type Config struct {
	// SampleSize is the number of songs offered for rating per session.
	SampleSize int

	// DefaultTopK is used when a caller asks for top_k <= 0.
	DefaultTopK int

	// Seed seeds session sampling. Zero seeds from the clock.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		SampleSize:  10,
		DefaultTopK: 10,
	}
}

// Started is what a caller gets back from StartSession: the session token
// and the songs to rate, without feature data.
type Started struct {
	Token string               `json:"token"`
	Songs []domain.SongSummary `json:"songs"`
}

// Status describes the loaded model for health reporting.
type Status struct {
	Loaded    bool      `json:"loaded"`
	Rows      int       `json:"rows"`
	Version   string    `json:"version,omitempty"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
}

// Engine is safe for concurrent use. The model set is swapped atomically
// and never mutated; sessions are serialized by the store.
type Engine struct {
	cfg   Config
	store session.Store
	model atomic.Pointer[artifact.Set]
	log   zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	now      func() time.Time
	newToken func() string
}

func New(cfg Config, store session.Store, log zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = def.SampleSize
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = def.DefaultTopK
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		log:      log.With().Str("component", "engine").Logger(),
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// Load installs a model set. Requests already running keep the set they
// started with.
func (e *Engine) Load(set *artifact.Set) {
	e.model.Store(set)
	e.log.Info().
		Str("version", set.Manifest.Version).
		Int("rows", set.Manifest.Rows).
		Msg("model loaded")
}

// Model returns the loaded set or domain.ErrModelNotLoaded.
func (e *Engine) Model() (*artifact.Set, error) {
	set := e.model.Load()
	if set == nil {
		return nil, domain.ErrModelNotLoaded
	}
	return set, nil
}

func (e *Engine) Status() Status {
	set := e.model.Load()
	if set == nil {
		return Status{}
	}
	return Status{
		Loaded:    true,
		Rows:      set.Manifest.Rows,
		Version:   set.Manifest.Version,
		TrainedAt: set.Manifest.TrainedAt,
	}
}

func (e *Engine) SampleSize() int {
	return e.cfg.SampleSize
}

// StartSession samples SampleSize distinct eligible songs and stores a new
// session offering them.
func (e *Engine) StartSession(ctx context.Context) (*Started, error) {
	set, err := e.Model()
	if err != nil {
		return nil, err
	}

	eligible := set.Catalog.Eligible()
	n := e.cfg.SampleSize
	if len(eligible) < n {
		return nil, &domain.CatalogTooSmallError{Eligible: len(eligible), Required: n}
	}

	rows := e.sample(eligible, n)
	ids := make([]string, n)
	songs := make([]domain.SongSummary, n)
	for i, row := range rows {
		s := set.Catalog.Song(row)
		ids[i] = s.ID
		songs[i] = s.Summary()
	}

	s := session.New(e.newToken(), e.now())
	s.Offer(ids)
	if err := e.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	e.log.Debug().Str("token", s.Token).Int("offered", n).Msg("session started")
	return &Started{Token: s.Token, Songs: songs}, nil
}

// sample draws n distinct entries of pool uniformly (Floyd's algorithm) and
// returns them in random order.
func (e *Engine) sample(pool []int, n int) []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	chosen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for j := len(pool) - n; j < len(pool); j++ {
		t := e.rng.Intn(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		out = append(out, pool[t])
	}
	e.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SubmitRating records stars for one offered song.
func (e *Engine) SubmitRating(ctx context.Context, token, songID string, stars int) error {
	return e.SubmitRatings(ctx, token, []domain.Rating{{SongID: songID, Stars: stars}})
}

// SubmitRatings records several ratings at once; none are stored if any is
// invalid.
func (e *Engine) SubmitRatings(ctx context.Context, token string, ratings []domain.Rating) error {
	err := e.store.Update(ctx, token, func(s *session.Session) error {
		return s.RateAll(ratings)
	})
	if err != nil {
		return err
	}
	e.log.Debug().Str("token", token).Int("ratings", len(ratings)).Msg("ratings recorded")
	return nil
}

// GetRecommendations consumes the session and returns up to topK songs.
// A session without ratings gets the most popular songs instead of a
// similarity search.
func (e *Engine) GetRecommendations(ctx context.Context, token string, topK int) (*domain.RecommendationResult, error) {
	set, err := e.Model()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}

	var snap *session.Session
	err = e.store.Update(ctx, token, func(s *session.Session) error {
		snap = s.Clone()
		return s.Consume()
	})
	if err != nil {
		return nil, err
	}

	exclude := snap.OfferedSet()
	rated := e.knownRatings(set, snap)

	result := &domain.RecommendationResult{
		RatedCount:   len(rated),
		ModelVersion: set.Manifest.Version,
	}
	if len(rated) == 0 {
		result.Mode = domain.ModePopularity
		result.Recommendations = Popular(set, topK, exclude)
	} else {
		query, err := QueryVector(set.Catalog, rated)
		if err != nil {
			return nil, err
		}
		recs, err := Nearest(set, query, topK, exclude)
		if err != nil {
			return nil, err
		}
		result.Mode = domain.ModeSimilarity
		result.Recommendations = recs
	}

	if len(result.Recommendations) == 0 {
		return nil, domain.ErrInsufficientCandidates
	}

	e.log.Debug().
		Str("token", token).
		Str("mode", string(result.Mode)).
		Int("rated", result.RatedCount).
		Int("top_k", topK).
		Int("returned", len(result.Recommendations)).
		Msg("recommendations generated")
	return result, nil
}

// knownRatings drops ratings for songs the loaded catalog no longer has,
// which happens when the model is replaced mid-session.
func (e *Engine) knownRatings(set *artifact.Set, s *session.Session) []domain.Rating {
	rated := s.Rated()
	kept := rated[:0]
	for _, r := range rated {
		if _, ok := set.Catalog.Row(r.SongID); ok {
			kept = append(kept, r)
		}
	}
	if dropped := len(rated) - len(kept); dropped > 0 {
		e.log.Warn().Str("token", s.Token).Int("dropped", dropped).Msg("rated songs missing from loaded catalog")
	}
	return kept
}

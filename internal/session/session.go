// Package session holds the rating-session state machine and the stores
// sessions are kept in between requests.
package session

import (
	"maps"
	"slices"
	"time"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
)

type State string

const (
	StateCreated  State = "created"
	StateSampling State = "sampling"
	StateRating   State = "rating"
	StateConsumed State = "consumed"
)

// Session is one user's rating interaction. Offered is fixed once sampled;
// Ratings only grows or is overwritten until the session is consumed.
type Session struct {
	Token     string         `json:"token"`
	Offered   []string       `json:"offered"`
	Ratings   map[string]int `json:"ratings"`
	State     State          `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

// New returns a session in the Created state.
func New(token string, now time.Time) *Session {
	return &Session{
		Token:     token,
		Ratings:   make(map[string]int),
		State:     StateCreated,
		CreatedAt: now.UTC(),
	}
}

// Offer fixes the sampled songs and moves the session to Sampling.
func (s *Session) Offer(ids []string) {
	s.Offered = slices.Clone(ids)
	s.State = StateSampling
}

func (s *Session) IsOffered(songID string) bool {
	return slices.Contains(s.Offered, songID)
}

// Rate records stars for an offered song, overwriting any earlier rating.
func (s *Session) Rate(songID string, stars int) error {
	if s.State == StateConsumed {
		return domain.ErrSessionAlreadyConsumed
	}
	if stars < domain.MinStars || stars > domain.MaxStars {
		return &domain.InvalidRatingError{Stars: stars}
	}
	if !s.IsOffered(songID) {
		return &domain.UnknownSongError{SongID: songID}
	}
	if s.Ratings == nil {
		s.Ratings = make(map[string]int)
	}
	s.Ratings[songID] = stars
	s.State = StateRating
	return nil
}

// RateAll validates every rating before applying any of them.
func (s *Session) RateAll(ratings []domain.Rating) error {
	if s.State == StateConsumed {
		return domain.ErrSessionAlreadyConsumed
	}
	for _, r := range ratings {
		if r.Stars < domain.MinStars || r.Stars > domain.MaxStars {
			return &domain.InvalidRatingError{Stars: r.Stars}
		}
		if !s.IsOffered(r.SongID) {
			return &domain.UnknownSongError{SongID: r.SongID}
		}
	}
	for _, r := range ratings {
		if err := s.Rate(r.SongID, r.Stars); err != nil {
			return err
		}
	}
	return nil
}

// Consume moves the session to its terminal state. The ratings are dropped;
// callers snapshot them first with Clone.
func (s *Session) Consume() error {
	if s.State == StateConsumed {
		return domain.ErrSessionAlreadyConsumed
	}
	s.State = StateConsumed
	s.Ratings = nil
	return nil
}

// Rated returns the ratings in offer order.
func (s *Session) Rated() []domain.Rating {
	out := make([]domain.Rating, 0, len(s.Ratings))
	for _, id := range s.Offered {
		if stars, ok := s.Ratings[id]; ok {
			out = append(out, domain.Rating{SongID: id, Stars: stars})
		}
	}
	return out
}

// OfferedSet returns the offered ids as a lookup set.
func (s *Session) OfferedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Offered))
	for _, id := range s.Offered {
		set[id] = struct{}{}
	}
	return set
}

func (s *Session) Clone() *Session {
	c := *s
	c.Offered = slices.Clone(s.Offered)
	c.Ratings = maps.Clone(s.Ratings)
	return &c
}

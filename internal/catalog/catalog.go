// Package catalog holds the immutable song table and the scaled feature
// vector of every song, in training row order.
package catalog

import (
	"fmt"
	"sort"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
)

// Catalog is read-only after New and safe for concurrent use.
type Catalog struct {
	songs        []domain.Song
	vectors      [][]float64
	byID         map[string]int
	byPopularity []int
	eligible     []int
}

// New builds a catalog from songs and their scaled vectors; vectors[i]
// belongs to songs[i].
func New(songs []domain.Song, vectors [][]float64) (*Catalog, error) {
	if len(songs) != len(vectors) {
		return nil, fmt.Errorf("catalog: %d songs for %d vectors", len(songs), len(vectors))
	}

	c := &Catalog{
		songs:   songs,
		vectors: vectors,
		byID:    make(map[string]int, len(songs)),
	}
	for i, s := range songs {
		if s.ID == "" {
			return nil, fmt.Errorf("catalog: row %d has empty id", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate song id %q", s.ID)
		}
		c.byID[s.ID] = i
		if features.Finite(vectors[i]) {
			c.eligible = append(c.eligible, i)
		}
	}

	c.byPopularity = make([]int, len(songs))
	for i := range c.byPopularity {
		c.byPopularity[i] = i
	}
	sort.SliceStable(c.byPopularity, func(a, b int) bool {
		sa, sb := songs[c.byPopularity[a]], songs[c.byPopularity[b]]
		if sa.Popularity != sb.Popularity {
			return sa.Popularity > sb.Popularity
		}
		return sa.ID < sb.ID
	})
	return c, nil
}

func (c *Catalog) Len() int {
	return len(c.songs)
}

func (c *Catalog) Song(row int) domain.Song {
	return c.songs[row]
}

func (c *Catalog) Songs() []domain.Song {
	return c.songs
}

// Row returns the row of the song with the given id.
func (c *Catalog) Row(id string) (int, bool) {
	row, ok := c.byID[id]
	return row, ok
}

func (c *Catalog) SongByID(id string) (domain.Song, bool) {
	row, ok := c.byID[id]
	if !ok {
		return domain.Song{}, false
	}
	return c.songs[row], true
}

// Vector returns the scaled feature vector of the song with the given id.
// The slice is shared; callers must not modify it.
func (c *Catalog) Vector(id string) ([]float64, bool) {
	row, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.vectors[row], true
}

func (c *Catalog) VectorAt(row int) []float64 {
	return c.vectors[row]
}

// Eligible returns the rows that may be offered in a rating session: those
// with a complete, finite feature vector.
func (c *Catalog) Eligible() []int {
	return c.eligible
}

// MostPopular returns up to n songs by popularity descending, ties broken by
// ascending id, skipping ids in exclude.
func (c *Catalog) MostPopular(n int, exclude map[string]struct{}) []domain.Song {
	out := make([]domain.Song, 0, n)
	for _, row := range c.byPopularity {
		if len(out) == n {
			break
		}
		s := c.songs[row]
		if _, skip := exclude[s.ID]; skip {
			continue
		}
		out = append(out, s)
	}
	return out
}

// MaxPopularity is the highest popularity in the catalog, 0 when empty.
func (c *Catalog) MaxPopularity() float64 {
	if len(c.byPopularity) == 0 {
		return 0
	}
	return c.songs[c.byPopularity[0]].Popularity
}

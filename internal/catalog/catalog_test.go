package catalog

import (
	"math"
	"testing"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(x float64) []float64 {
	v := make([]float64, features.Dim())
	for i := range v {
		v[i] = x
	}
	return v
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	songs := []domain.Song{
		{ID: "s3", Title: "Three", Popularity: 50},
		{ID: "s1", Title: "One", Popularity: 80},
		{ID: "s2", Title: "Two", Popularity: 50},
		{ID: "s4", Title: "Four", Popularity: 10},
	}
	c, err := New(songs, [][]float64{vec(0.3), vec(0.1), vec(0.2), vec(0.4)})
	require.NoError(t, err)
	return c
}

func TestLookup(t *testing.T) {
	c := testCatalog(t)

	assert.Equal(t, 4, c.Len())
	s, ok := c.SongByID("s2")
	require.True(t, ok)
	assert.Equal(t, "Two", s.Title)

	v, ok := c.Vector("s4")
	require.True(t, ok)
	assert.Equal(t, vec(0.4), v)

	row, ok := c.Row("s1")
	require.True(t, ok)
	assert.Equal(t, 1, row)

	_, ok = c.SongByID("missing")
	assert.False(t, ok)
}

func TestMostPopularBreaksTiesByID(t *testing.T) {
	c := testCatalog(t)

	got := c.MostPopular(3, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s2", got[1].ID)
	assert.Equal(t, "s3", got[2].ID)
	assert.Equal(t, 80.0, c.MaxPopularity())
}

func TestMostPopularSkipsExcluded(t *testing.T) {
	c := testCatalog(t)

	got := c.MostPopular(10, map[string]struct{}{"s1": {}, "s3": {}})
	require.Len(t, got, 2)
	assert.Equal(t, "s2", got[0].ID)
	assert.Equal(t, "s4", got[1].ID)
}

func TestEligibleSkipsIncompleteVectors(t *testing.T) {
	broken := vec(0.5)
	broken[2] = math.NaN()
	c, err := New(
		[]domain.Song{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		[][]float64{vec(0.1), broken, vec(0.2)[:3]},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, c.Eligible())
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New([]domain.Song{{ID: "a"}, {ID: "a"}}, [][]float64{vec(0), vec(1)})
	assert.Error(t, err)

	_, err = New([]domain.Song{{ID: ""}}, [][]float64{vec(0)})
	assert.Error(t, err)

	_, err = New([]domain.Song{{ID: "a"}}, nil)
	assert.Error(t, err)
}

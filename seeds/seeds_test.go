package seeds

import (
	"math/rand"
	"testing"

	"github.com/actuallystonmai/song-recommendation-service/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSongsIsDeterministic(t *testing.T) {
	a := GenerateSongs(rand.New(rand.NewSource(DefaultSeed)), 60)
	b := GenerateSongs(rand.New(rand.NewSource(DefaultSeed)), 60)
	assert.Equal(t, a, b)
}

func TestGenerateSongsWithinSchemaRanges(t *testing.T) {
	songs := GenerateSongs(rand.New(rand.NewSource(7)), 120)
	require.Len(t, songs, 120)

	ids := make(map[string]bool)
	for _, s := range songs {
		assert.False(t, ids[s.ID], "duplicate id %s", s.ID)
		ids[s.ID] = true

		for j, x := range features.Vector(s.Features) {
			assert.True(t, features.InRange(j, x), "song %s column %s = %v", s.ID, features.Columns[j].Name, x)
		}
		assert.GreaterOrEqual(t, s.Popularity, 1.0)
		assert.LessOrEqual(t, s.Popularity, 100.0)
	}
}

func TestPowerLawScore(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for range 1000 {
		s := powerLawScore(rng)
		assert.GreaterOrEqual(t, s, 0.01)
		assert.LessOrEqual(t, s, 1.0)
	}
}

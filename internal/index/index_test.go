package index

import (
	"errors"
	"testing"

	"github.com/actuallystonmai/song-recommendation-service/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineIndex(t *testing.T, metric Metric) *Index {
	t.Helper()
	ids := []string{"e", "d", "c", "b", "a"}
	vectors := [][]float64{{4, 0}, {3, 0}, {2, 0}, {1, 0}, {0, 0}}
	ix, err := New(ids, vectors, metric)
	require.NoError(t, err)
	return ix
}

func ids(ns []Neighbor) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestSearchOrdersByDistance(t *testing.T) {
	ix := lineIndex(t, MetricEuclidean)

	got, err := ix.Search([]float64{0.9, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))
	assert.InDelta(t, 0.1, got[0].Distance, 1e-12)
	assert.Equal(t, 3, got[0].Row)
}

func TestSearchBreaksTiesByID(t *testing.T) {
	ix, err := New(
		[]string{"z", "m", "a", "q"},
		[][]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}},
		MetricEuclidean,
	)
	require.NoError(t, err)

	got, err := ix.Search([]float64{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m"}, ids(got))

	all, err := ix.Search([]float64{0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "q", "z"}, ids(all))
}

func TestSearchExcluding(t *testing.T) {
	ix := lineIndex(t, MetricEuclidean)

	got, err := ix.SearchExcluding([]float64{0, 0}, 2, map[string]struct{}{"a": {}, "c": {}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, ids(got))
}

func TestSearchManhattan(t *testing.T) {
	ix, err := New([]string{"x", "y"}, [][]float64{{1, 1}, {0, 1.5}}, MetricManhattan)
	require.NoError(t, err)

	got, err := ix.Search([]float64{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, ids(got))
	assert.InDelta(t, 1.5, got[0].Distance, 1e-12)
	assert.InDelta(t, 2.0, got[1].Distance, 1e-12)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix := lineIndex(t, MetricEuclidean)

	_, err := ix.Search([]float64{1, 2, 3}, 1)
	var dimErr *features.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestSearchNonPositiveK(t *testing.T) {
	ix := lineIndex(t, MetricEuclidean)

	got, err := ix.Search([]float64{0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewValidation(t *testing.T) {
	_, err := New([]string{"a"}, [][]float64{{1}, {2}}, MetricEuclidean)
	assert.Error(t, err)

	_, err = New([]string{"a", "a"}, [][]float64{{1}, {2}}, MetricEuclidean)
	assert.Error(t, err)

	_, err = New([]string{"a", "b"}, [][]float64{{1}, {2, 3}}, MetricEuclidean)
	assert.Error(t, err)

	_, err = New([]string{"a"}, [][]float64{{1}}, Metric("cosine"))
	assert.Error(t, err)

	_, err = New(nil, nil, MetricEuclidean)
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricEuclidean, m)

	m, err = ParseMetric("manhattan")
	require.NoError(t, err)
	assert.Equal(t, MetricManhattan, m)

	_, err = ParseMetric("hamming")
	assert.Error(t, err)
}

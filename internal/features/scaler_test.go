package features

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() [][]float64 {
	return [][]float64{
		{0.1, 10, 5},
		{0.4, 20, 5},
		{0.7, 35, 5},
		{0.2, 15, 5},
		{0.9, 40, 5},
	}
}

func TestFitMeanMatchesSampleMean(t *testing.T) {
	rows := sampleRows()
	s, err := Fit([]string{"a", "b", "c"}, rows)
	require.NoError(t, err)

	for j := range 3 {
		sum := 0.0
		for _, r := range rows {
			sum += r[j]
		}
		assert.InDelta(t, sum/float64(len(rows)), s.Mean[j], 1e-12, "column %d", j)
	}
}

func TestTransformedColumnsAreStandardized(t *testing.T) {
	rows := sampleRows()
	s, err := Fit([]string{"a", "b", "c"}, rows)
	require.NoError(t, err)

	scaled, err := s.TransformAll(rows)
	require.NoError(t, err)

	// columns 0 and 1 vary; column 2 is constant
	for j := range 2 {
		mean, variance := 0.0, 0.0
		for _, r := range scaled {
			mean += r[j]
		}
		mean /= float64(len(scaled))
		for _, r := range scaled {
			variance += (r[j] - mean) * (r[j] - mean)
		}
		variance /= float64(len(scaled))
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, variance, 1e-9)
	}
}

func TestConstantColumnGetsUnitScale(t *testing.T) {
	s, err := Fit([]string{"a", "b", "c"}, sampleRows())
	require.NoError(t, err)

	assert.Equal(t, 1.0, s.Scale[2])
	out, err := s.Transform([]float64{0.5, 20, 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[2])
}

func TestTransformDimensionMismatch(t *testing.T) {
	s, err := Fit([]string{"a", "b", "c"}, sampleRows())
	require.NoError(t, err)

	_, err = s.Transform([]float64{1, 2})
	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Want)
	assert.Equal(t, 2, dimErr.Got)
}

func TestFitRejectsRaggedRows(t *testing.T) {
	_, err := Fit([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	require.Error(t, err)

	var dimErr *DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestFitRejectsEmptyInput(t *testing.T) {
	_, err := Fit([]string{"a"}, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	s, err := Fit([]string{"a", "b", "c"}, sampleRows())
	require.NoError(t, err)
	assert.NoError(t, s.Validate())

	s.Scale[1] = 0
	assert.Error(t, s.Validate())

	s.Scale[1] = 1
	s.Mean[0] = math.NaN()
	assert.Error(t, s.Validate())

	s.Mean = s.Mean[:2]
	assert.Error(t, s.Validate())
}

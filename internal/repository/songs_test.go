package repository

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromNullableMapsNullToNaN(t *testing.T) {
	a, b := 0.5, -7.0
	v := fromNullable([]*float64{&a, nil, &b})

	assert.Equal(t, 0.5, v[0])
	assert.True(t, math.IsNaN(v[1]))
	assert.Equal(t, -7.0, v[2])
}

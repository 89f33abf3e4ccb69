// Package features holds the fixed audio-feature schema shared by training
// and serving, and the standardization transform fit on it.
package features

import (
	"fmt"
	"math"
	"slices"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
)

// SchemaTag versions the column set and order below. Bump it whenever
// Columns changes so previously trained artifacts are refused at load.
const SchemaTag = "audio-features/v1"

// Column is one feature of the schema with the range accepted at training.
type Column struct {
	Name string
	Min  float64
	Max  float64
}

var Columns = []Column{
	{Name: "valence", Min: 0, Max: 1},
	{Name: "acousticness", Min: 0, Max: 1},
	{Name: "danceability", Min: 0, Max: 1},
	{Name: "energy", Min: 0, Max: 1},
	{Name: "instrumentalness", Min: 0, Max: 1},
	{Name: "liveness", Min: 0, Max: 1},
	{Name: "loudness", Min: -60, Max: 5},
	{Name: "speechiness", Min: 0, Max: 1},
	{Name: "tempo", Min: 0, Max: 300},
}

// Dim is the dimension of every raw and scaled feature vector.
func Dim() int {
	return len(Columns)
}

// Names returns the column names in schema order.
func Names() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Vector lays out f in schema order.
func Vector(f domain.AudioFeatures) []float64 {
	return []float64{
		f.Valence,
		f.Acousticness,
		f.Danceability,
		f.Energy,
		f.Instrumentalness,
		f.Liveness,
		f.Loudness,
		f.Speechiness,
		f.Tempo,
	}
}

// FromVector is the inverse of Vector.
func FromVector(v []float64) (domain.AudioFeatures, error) {
	if len(v) != Dim() {
		return domain.AudioFeatures{}, &DimensionError{Want: Dim(), Got: len(v)}
	}
	return domain.AudioFeatures{
		Valence:          v[0],
		Acousticness:     v[1],
		Danceability:     v[2],
		Energy:           v[3],
		Instrumentalness: v[4],
		Liveness:         v[5],
		Loudness:         v[6],
		Speechiness:      v[7],
		Tempo:            v[8],
	}, nil
}

// CheckOrder fails unless order is exactly the schema's column order.
func CheckOrder(order []string) error {
	if !slices.Equal(order, Names()) {
		return fmt.Errorf("feature order %v does not match schema %s %v", order, SchemaTag, Names())
	}
	return nil
}

// InRange reports whether value is finite and inside column i's range.
func InRange(i int, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	c := Columns[i]
	return value >= c.Min && value <= c.Max
}

// Finite reports whether v has the schema dimension and no NaN or Inf entry.
func Finite(v []float64) bool {
	if len(v) != Dim() {
		return false
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// DimensionError is returned when a vector does not match the fitted schema.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("feature dimension mismatch: want %d, got %d", e.Want, e.Got)
}

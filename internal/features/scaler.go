package features

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes vectors to zero mean and unit variance per column,
// using statistics fit once on the training matrix.
type Scaler struct {
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

// Fit computes per-column mean and population standard deviation of rows.
// Columns with zero variance get a scale of 1 so they transform to 0.
func Fit(columns []string, rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("fit scaler: no rows")
	}
	dim := len(columns)
	col := make([]float64, len(rows))
	s := &Scaler{
		Columns: slices.Clone(columns),
		Mean:    make([]float64, dim),
		Scale:   make([]float64, dim),
	}

	for j := range dim {
		for i, row := range rows {
			if len(row) != dim {
				return nil, fmt.Errorf("fit scaler: row %d: %w", i, &DimensionError{Want: dim, Got: len(row)})
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

func (s *Scaler) Dim() int {
	return len(s.Mean)
}

// Validate checks that a deserialized scaler is internally consistent.
func (s *Scaler) Validate() error {
	if len(s.Columns) != len(s.Mean) || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler: %d columns, %d means, %d scales", len(s.Columns), len(s.Mean), len(s.Scale))
	}
	for j, sc := range s.Scale {
		if sc <= 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return fmt.Errorf("scaler: column %s has invalid scale %v", s.Columns[j], sc)
		}
		if math.IsNaN(s.Mean[j]) || math.IsInf(s.Mean[j], 0) {
			return fmt.Errorf("scaler: column %s has invalid mean %v", s.Columns[j], s.Mean[j])
		}
	}
	return nil
}

// Transform returns (v - mean) / scale. v must have the fitted dimension.
func (s *Scaler) Transform(v []float64) ([]float64, error) {
	if len(v) != s.Dim() {
		return nil, &DimensionError{Want: s.Dim(), Got: len(v)}
	}
	out := make([]float64, len(v))
	for j, x := range v {
		out[j] = (x - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

func (s *Scaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

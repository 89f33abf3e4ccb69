// Package artifact persists and loads the trained model as one matched set:
// the fitted scaler, the neighbor index and the catalog snapshot.
package artifact

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/actuallystonmai/song-recommendation-service/internal/catalog"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
	"github.com/actuallystonmai/song-recommendation-service/internal/index"
)

// Schema tags the on-disk layout of the three files.
const Schema = "songrec-artifacts/v1"

const (
	ScalerFile  = "scaler.json"
	IndexFile   = "index.json"
	CatalogFile = "catalog.json"
)

// vectorTolerance bounds the drift allowed between stored index vectors and
// the scaler re-applied to the stored catalog.
const vectorTolerance = 1e-9

// Header is written at the top of every artifact file. All three files of a
// set carry identical headers.
type Header struct {
	Schema        string   `json:"schema"`
	FeatureSchema string   `json:"feature_schema"`
	Version       string   `json:"version"`
	FeatureOrder  []string `json:"feature_order"`
	Rows          int      `json:"rows"`
}

// Manifest describes how a set was trained.
type Manifest struct {
	Version   string       `json:"version"`
	Rows      int          `json:"rows"`
	DefaultK  int          `json:"default_k"`
	Metric    index.Metric `json:"metric"`
	Seed      int64        `json:"seed"`
	TrainedAt time.Time    `json:"trained_at"`
	Dropped   int          `json:"dropped"`
}

// Set is the immutable model handle shared by every request once loaded.
type Set struct {
	Manifest Manifest
	Scaler   *features.Scaler
	Index    *index.Index
	Catalog  *catalog.Catalog
}

// NewSet checks that scaler, index and catalog agree with each other and
// with the compiled-in feature schema.
func NewSet(m Manifest, scaler *features.Scaler, idx *index.Index, cat *catalog.Catalog) (*Set, error) {
	if err := features.CheckOrder(scaler.Columns); err != nil {
		return nil, &domain.ArtifactError{File: ScalerFile, Msg: "feature order", Err: err}
	}
	if err := scaler.Validate(); err != nil {
		return nil, &domain.ArtifactError{File: ScalerFile, Msg: "invalid scaler", Err: err}
	}
	if idx.Dim() != scaler.Dim() {
		return nil, &domain.ArtifactError{
			File: IndexFile,
			Msg:  "dimension mismatch",
			Err:  &features.DimensionError{Want: scaler.Dim(), Got: idx.Dim()},
		}
	}
	if idx.Len() != cat.Len() || m.Rows != cat.Len() {
		return nil, &domain.ArtifactError{
			Msg: fmt.Sprintf("row count mismatch: manifest %d, index %d, catalog %d", m.Rows, idx.Len(), cat.Len()),
		}
	}
	for row, id := range idx.IDs() {
		if cat.Song(row).ID != id {
			return nil, &domain.ArtifactError{
				File: IndexFile,
				Msg:  fmt.Sprintf("row %d is %q in index but %q in catalog", row, id, cat.Song(row).ID),
			}
		}
		if !vectorsClose(idx.Vector(row), cat.VectorAt(row)) {
			return nil, &domain.ArtifactError{
				File: IndexFile,
				Msg:  fmt.Sprintf("row %d (%s) does not match the scaled catalog vector", row, id),
			}
		}
	}
	return &Set{Manifest: m, Scaler: scaler, Index: idx, Catalog: cat}, nil
}

func (s *Set) header() Header {
	return Header{
		Schema:        Schema,
		FeatureSchema: features.SchemaTag,
		Version:       s.Manifest.Version,
		FeatureOrder:  slices.Clone(s.Scaler.Columns),
		Rows:          s.Catalog.Len(),
	}
}

func vectorsClose(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > vectorTolerance*(1+math.Abs(a[i])) {
			return false
		}
	}
	return true
}

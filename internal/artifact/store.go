package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/song-recommendation-service/internal/catalog"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/features"
	"github.com/actuallystonmai/song-recommendation-service/internal/index"
)

type scalerFile struct {
	Header
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type indexFile struct {
	Header
	Metric   index.Metric `json:"metric"`
	DefaultK int          `json:"default_k"`
	IDs      []string     `json:"ids"`
	Vectors  [][]float64  `json:"vectors"`
}

type catalogFile struct {
	Header
	Seed      int64         `json:"seed"`
	TrainedAt time.Time     `json:"trained_at"`
	Dropped   int           `json:"dropped"`
	Songs     []domain.Song `json:"songs"`
}

// Save writes the set into dir. Files are written to a sibling temporary
// directory that replaces dir in one rename, so a reader sees either the
// previous set or the new one.
func Save(dir string, set *Set) error {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create artifact parent dir: %w", err)
	}

	tmp, err := os.MkdirTemp(parent, ".artifacts-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	h := set.header()
	ids := set.Index.IDs()
	vectors := make([][]float64, set.Index.Len())
	for row := range vectors {
		vectors[row] = set.Index.Vector(row)
	}

	files := []struct {
		name string
		v    any
	}{
		{ScalerFile, scalerFile{Header: h, Mean: set.Scaler.Mean, Scale: set.Scaler.Scale}},
		{IndexFile, indexFile{Header: h, Metric: set.Index.Metric(), DefaultK: set.Manifest.DefaultK, IDs: ids, Vectors: vectors}},
		{CatalogFile, catalogFile{
			Header:    h,
			Seed:      set.Manifest.Seed,
			TrainedAt: set.Manifest.TrainedAt,
			Dropped:   set.Manifest.Dropped,
			Songs:     set.Catalog.Songs(),
		}},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(tmp, f.name), f.v); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	var old string
	if _, err := os.Stat(dir); err == nil {
		old = fmt.Sprintf("%s.old-%d", dir, time.Now().UnixNano())
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous artifacts aside: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("install artifacts: %w", err)
	}
	if old != "" {
		_ = os.RemoveAll(old)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads and cross-checks the three files in dir. Any missing file,
// schema or version disagreement, feature-order change or row-count
// mismatch is an *domain.ArtifactError.
func Load(dir string) (*Set, error) {
	var (
		sf scalerFile
		xf indexFile
		cf catalogFile
	)
	if err := readJSON(dir, ScalerFile, &sf); err != nil {
		return nil, err
	}
	if err := readJSON(dir, IndexFile, &xf); err != nil {
		return nil, err
	}
	if err := readJSON(dir, CatalogFile, &cf); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		name string
		h    Header
	}{{ScalerFile, sf.Header}, {IndexFile, xf.Header}, {CatalogFile, cf.Header}} {
		if err := checkHeader(f.name, f.h); err != nil {
			return nil, err
		}
	}
	if sf.Version != xf.Version || sf.Version != cf.Version {
		return nil, &domain.ArtifactError{
			Msg: fmt.Sprintf("version mismatch: scaler %q, index %q, catalog %q", sf.Version, xf.Version, cf.Version),
		}
	}
	if sf.Rows != xf.Rows || sf.Rows != cf.Rows {
		return nil, &domain.ArtifactError{
			Msg: fmt.Sprintf("row count mismatch: scaler %d, index %d, catalog %d", sf.Rows, xf.Rows, cf.Rows),
		}
	}
	if len(xf.IDs) != xf.Rows || len(xf.Vectors) != xf.Rows {
		return nil, &domain.ArtifactError{File: IndexFile, Msg: fmt.Sprintf("header says %d rows, found %d ids and %d vectors", xf.Rows, len(xf.IDs), len(xf.Vectors))}
	}
	if len(cf.Songs) != cf.Rows {
		return nil, &domain.ArtifactError{File: CatalogFile, Msg: fmt.Sprintf("header says %d rows, found %d songs", cf.Rows, len(cf.Songs))}
	}

	scaler := &features.Scaler{Columns: sf.FeatureOrder, Mean: sf.Mean, Scale: sf.Scale}
	if err := scaler.Validate(); err != nil {
		return nil, &domain.ArtifactError{File: ScalerFile, Msg: "invalid scaler", Err: err}
	}

	idx, err := index.New(xf.IDs, xf.Vectors, xf.Metric)
	if err != nil {
		return nil, &domain.ArtifactError{File: IndexFile, Msg: "build index", Err: err}
	}

	scaled := make([][]float64, len(cf.Songs))
	for i, s := range cf.Songs {
		v, err := scaler.Transform(features.Vector(s.Features))
		if err != nil {
			return nil, &domain.ArtifactError{File: CatalogFile, Msg: fmt.Sprintf("song %q", s.ID), Err: err}
		}
		scaled[i] = v
	}
	cat, err := catalog.New(cf.Songs, scaled)
	if err != nil {
		return nil, &domain.ArtifactError{File: CatalogFile, Msg: "build catalog", Err: err}
	}

	return NewSet(Manifest{
		Version:   cf.Version,
		Rows:      cf.Rows,
		DefaultK:  xf.DefaultK,
		Metric:    xf.Metric,
		Seed:      cf.Seed,
		TrainedAt: cf.TrainedAt,
		Dropped:   cf.Dropped,
	}, scaler, idx, cat)
}

func readJSON(dir, name string, v any) error {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.ArtifactError{File: name, Msg: "missing", Err: err}
		}
		return &domain.ArtifactError{File: name, Msg: "read", Err: err}
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &domain.ArtifactError{File: name, Msg: "decode", Err: err}
	}
	return nil
}

func checkHeader(name string, h Header) error {
	if h.Schema != Schema {
		return &domain.ArtifactError{File: name, Msg: fmt.Sprintf("schema %q, want %q", h.Schema, Schema)}
	}
	if h.FeatureSchema != features.SchemaTag {
		return &domain.ArtifactError{File: name, Msg: fmt.Sprintf("feature schema %q, want %q", h.FeatureSchema, features.SchemaTag)}
	}
	if err := features.CheckOrder(h.FeatureOrder); err != nil {
		return &domain.ArtifactError{File: name, Msg: "feature order", Err: err}
	}
	if h.Version == "" {
		return &domain.ArtifactError{File: name, Msg: "empty version"}
	}
	return nil
}

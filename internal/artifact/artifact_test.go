package artifact_test

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/song-recommendation-service/internal/artifact"
	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/actuallystonmai/song-recommendation-service/internal/training"
	"github.com/actuallystonmai/song-recommendation-service/seeds"
)

func trainedSet(t *testing.T, n int) *artifact.Set {
	t.Helper()
	cfg := training.DefaultConfig()
	cfg.DefaultK = 5
	set, err := training.New(cfg, zerolog.Nop()).Run(context.Background(), seeds.GenerateSongs(rand.New(rand.NewSource(11)), n))
	require.NoError(t, err)
	return set
}

func savedDir(t *testing.T, set *artifact.Set) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "model")
	require.NoError(t, artifact.Save(dir, set))
	return dir
}

// rewrite decodes name into a generic map, applies fn and writes it back.
func rewrite(t *testing.T, dir, name string, fn func(m map[string]any)) {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	fn(m)
	b, err = json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func TestSaveThenLoadReproducesTheModel(t *testing.T) {
	set := trainedSet(t, 30)
	loaded, err := artifact.Load(savedDir(t, set))
	require.NoError(t, err)

	assert.Equal(t, set.Manifest.Version, loaded.Manifest.Version)
	assert.Equal(t, set.Manifest.DefaultK, loaded.Manifest.DefaultK)
	assert.Equal(t, set.Scaler.Mean, loaded.Scaler.Mean)
	assert.Equal(t, set.Scaler.Scale, loaded.Scaler.Scale)
	require.Equal(t, set.Catalog.Len(), loaded.Catalog.Len())
	for row := range set.Catalog.Len() {
		assert.Equal(t, set.Catalog.VectorAt(row), loaded.Catalog.VectorAt(row))
		assert.Equal(t, set.Index.IDs()[row], loaded.Index.IDs()[row])
	}
}

func TestSaveReplacesPreviousSet(t *testing.T) {
	first := trainedSet(t, 30)
	dir := savedDir(t, first)

	second := trainedSet(t, 40)
	require.NoError(t, artifact.Save(dir, second))

	loaded, err := artifact.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Catalog.Len())

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging and previous directories are cleaned up")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	for _, name := range []string{artifact.ScalerFile, artifact.IndexFile, artifact.CatalogFile} {
		t.Run(name, func(t *testing.T) {
			dir := savedDir(t, trainedSet(t, 20))
			require.NoError(t, os.Remove(filepath.Join(dir, name)))

			_, err := artifact.Load(dir)
			var ae *domain.ArtifactError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, name, ae.File)
		})
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	dir := savedDir(t, trainedSet(t, 20))
	rewrite(t, dir, artifact.IndexFile, func(m map[string]any) { m["version"] = "0000000000000000" })

	_, err := artifact.Load(dir)
	assert.True(t, domain.IsArtifactError(err))
}

func TestLoadRejectsRowCountMismatch(t *testing.T) {
	dir := savedDir(t, trainedSet(t, 20))
	rewrite(t, dir, artifact.CatalogFile, func(m map[string]any) {
		songs := m["songs"].([]any)
		m["songs"] = songs[:len(songs)-1]
		m["rows"] = float64(len(songs) - 1)
	})

	_, err := artifact.Load(dir)
	assert.True(t, domain.IsArtifactError(err))
}

func TestLoadRejectsFeatureOrderChange(t *testing.T) {
	dir := savedDir(t, trainedSet(t, 20))
	for _, name := range []string{artifact.ScalerFile, artifact.IndexFile, artifact.CatalogFile} {
		rewrite(t, dir, name, func(m map[string]any) {
			order := m["feature_order"].([]any)
			order[0], order[1] = order[1], order[0]
		})
	}

	_, err := artifact.Load(dir)
	assert.True(t, domain.IsArtifactError(err))
}

func TestLoadRejectsSchemaTag(t *testing.T) {
	dir := savedDir(t, trainedSet(t, 20))
	rewrite(t, dir, artifact.ScalerFile, func(m map[string]any) { m["schema"] = "songrec-artifacts/v0" })

	_, err := artifact.Load(dir)
	assert.True(t, domain.IsArtifactError(err))
}

func TestLoadRejectsScalerDrift(t *testing.T) {
	dir := savedDir(t, trainedSet(t, 20))
	rewrite(t, dir, artifact.ScalerFile, func(m map[string]any) {
		mean := m["mean"].([]any)
		mean[0] = mean[0].(float64) + 0.5
	})

	_, err := artifact.Load(dir)
	var ae *domain.ArtifactError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, artifact.IndexFile, ae.File)
}

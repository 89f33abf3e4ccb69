// Package index implements the exact k-nearest-neighbor index over scaled
// catalog vectors.
package index

import (
	"container/heap"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/actuallystonmai/song-recommendation-service/internal/features"
)

type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricManhattan Metric = "manhattan"
)

// ParseMetric accepts the metric names used in configuration.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricEuclidean, "":
		return MetricEuclidean, nil
	case MetricManhattan:
		return MetricManhattan, nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

func (m Metric) norm() float64 {
	if m == MetricManhattan {
		return 1
	}
	return 2
}

// Neighbor is one search hit. Row is the position in the index, which
// matches the catalog row it was built from.
type Neighbor struct {
	ID       string
	Row      int
	Distance float64
}

// Index answers nearest-neighbor queries by scanning every vector. It is
// read-only after New and safe for concurrent use.
type Index struct {
	metric  Metric
	dim     int
	ids     []string
	vectors [][]float64
}

// New builds an index over vectors; ids[i] names vectors[i].
func New(ids []string, vectors [][]float64, metric Metric) (*Index, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("index: %d ids for %d vectors", len(ids), len(vectors))
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("index: no vectors")
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	dim := len(vectors[0])
	seen := make(map[string]struct{}, len(ids))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("index: row %d: %w", i, &features.DimensionError{Want: dim, Got: len(v)})
		}
		if _, dup := seen[ids[i]]; dup {
			return nil, fmt.Errorf("index: duplicate id %q", ids[i])
		}
		seen[ids[i]] = struct{}{}
	}
	return &Index{metric: metric, dim: dim, ids: ids, vectors: vectors}, nil
}

func (ix *Index) Len() int {
	return len(ix.ids)
}

func (ix *Index) Dim() int {
	return ix.dim
}

func (ix *Index) Metric() Metric {
	return ix.metric
}

func (ix *Index) IDs() []string {
	return ix.ids
}

func (ix *Index) Vector(row int) []float64 {
	return ix.vectors[row]
}

// Distance between two vectors under the index metric.
func (ix *Index) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, ix.metric.norm())
}

// Search returns the k nearest vectors to query, closest first, ties broken
// by ascending id. Fewer than k are returned when the index is smaller.
func (ix *Index) Search(query []float64, k int) ([]Neighbor, error) {
	return ix.SearchExcluding(query, k, nil)
}

// SearchExcluding is Search with the ids in exclude never returned.
func (ix *Index) SearchExcluding(query []float64, k int, exclude map[string]struct{}) ([]Neighbor, error) {
	if len(query) != ix.dim {
		return nil, &features.DimensionError{Want: ix.dim, Got: len(query)}
	}
	if k <= 0 {
		return nil, nil
	}

	h := make(maxHeap, 0, k+1)
	for row, v := range ix.vectors {
		id := ix.ids[row]
		if _, skip := exclude[id]; skip {
			continue
		}
		n := Neighbor{ID: id, Row: row, Distance: ix.Distance(query, v)}
		if h.Len() < k {
			heap.Push(&h, n)
			continue
		}
		if closer(n, h[0]) {
			h[0] = n
			heap.Fix(&h, 0)
		}
	}

	out := make([]Neighbor, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Neighbor)
	}
	return out, nil
}

// closer orders neighbors by distance, then id.
func closer(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// maxHeap keeps the current worst neighbor on top.
type maxHeap []Neighbor

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(Neighbor)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// Package vectorindex provides an exact, in-memory nearest-neighbor index
// over fixed-dimension vectors using squared Euclidean distance.
//
// Flat is not safe for concurrent use; callers serialise access.
package vectorindex

import (
	"errors"
	"fmt"
	"slices"
)

// ErrEmpty is returned when searching an index that holds no vectors.
var ErrEmpty = errors.New("vector index is empty")

// Neighbor is one search hit.
type Neighbor struct {
	Slot     int
	Distance float64 // squared L2
}

// Flat stores vectors contiguously; slot N is the N-th inserted vector still present.
type Flat struct {
	dim  int
	data []float64
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

func (f *Flat) Dim() int { return f.dim }

func (f *Flat) Len() int { return len(f.data) / f.dim }

// Insert appends vec and returns its slot.
func (f *Flat) Insert(vec []float64) (int, error) {
	if len(vec) != f.dim {
		return 0, fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), f.dim)
	}
	f.data = append(f.data, vec...)
	return f.Len() - 1, nil
}

// Remove deletes slot; every later slot shifts down by one.
func (f *Flat) Remove(slot int) error {
	if slot < 0 || slot >= f.Len() {
		return fmt.Errorf("slot %d out of range [0,%d)", slot, f.Len())
	}
	start := slot * f.dim
	f.data = slices.Delete(f.data, start, start+f.dim)
	return nil
}

// Vector returns a copy of the vector stored at slot.
func (f *Flat) Vector(slot int) ([]float64, error) {
	if slot < 0 || slot >= f.Len() {
		return nil, fmt.Errorf("slot %d out of range [0,%d)", slot, f.Len())
	}
	start := slot * f.dim
	return slices.Clone(f.data[start : start+f.dim]), nil
}

// Search returns the k slots closest to query, nearest first.
// Equal distances keep insertion order. k is clamped to Len().
func (f *Flat) Search(query []float64, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dim)
	}
	n := f.Len()
	if n == 0 {
		return nil, ErrEmpty
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if k > n {
		k = n
	}

	hits := make([]Neighbor, n)
	for slot := 0; slot < n; slot++ {
		hits[slot] = Neighbor{Slot: slot, Distance: squaredL2(f.data[slot*f.dim:(slot+1)*f.dim], query)}
	}
	slices.SortStableFunc(hits, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return hits[:k], nil
}

func squaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

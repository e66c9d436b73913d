package ultrametric

import "math"

// Points is the read-only point store for one invocation: n embedding
// vectors of dimensionality dims in a flat row-major array, plus one
// integer label per point. Points are immutable once loaded.
type Points struct {
	Data   []float64 // flat row-major, n*dims
	Labels []int
	N      int
	Dims   int
}

// NewPoints validates the flat embedding data and labels and wraps them in
// a Points store. It fails with ErrInvalidInput if the point set is empty,
// the shapes disagree, or any embedding value is not finite.
func NewPoints(data []float64, labels []int, n, dims int) (*Points, error) {
	if err := validateData(data, n, dims); err != nil {
		return nil, err
	}
	if len(labels) != n {
		return nil, invalidInputf("got %d labels for %d points", len(labels), n)
	}
	return &Points{Data: data, Labels: labels, N: n, Dims: dims}, nil
}

// Row returns the embedding vector of point i.
func (p *Points) Row(i int) []float64 {
	return p.Data[i*p.Dims : (i+1)*p.Dims]
}

// validateData checks the flat embedding shape and that every value is
// finite. Non-finite embeddings would silently corrupt MST comparisons,
// so they are rejected eagerly.
func validateData(data []float64, n, dims int) error {
	if n <= 0 {
		return invalidInputf("point set is empty")
	}
	if dims <= 0 {
		return invalidInputf("dimensionality must be >= 1, got %d", dims)
	}
	if len(data) != n*dims {
		return invalidInputf("data length %d does not match n*dims = %d (n=%d, dims=%d)",
			len(data), n*dims, n, dims)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidInputf("embedding value at flat index %d is not finite (%v)", i, v)
		}
	}
	return nil
}

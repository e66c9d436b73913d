package ultrametric

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// EuclideanMetric computes the Euclidean (L2) distance. ReducedDistance
// returns the squared distance (skips the sqrt) for tree pruning. The
// ultrametric is defined over Euclidean distance only, so this is the
// single metric in the package.
type EuclideanMetric struct{}

// Distance returns the Euclidean distance between two equal-length rows.
func (EuclideanMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// ReducedDistance returns the squared Euclidean distance.
func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// distToRdist converts a true distance into reduced (squared) space.
func distToRdist(d float64) float64 { return d * d }

// rdistToDist converts a reduced (squared) distance back to true distance.
func rdistToDist(rd float64) float64 { return math.Sqrt(rd) }

// ComputePairwiseDistances computes the full n×n Euclidean distance matrix.
// data is flat row-major with n rows and dims columns. Returns a flat
// []float64 of length n*n.
func ComputePairwiseDistances(data []float64, n, dims int) []float64 {
	result := make([]float64, n*n)
	metric := EuclideanMetric{}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric.Distance(data[i*dims:(i+1)*dims], data[j*dims:(j+1)*dims])
			result[i*n+j] = d
			result[j*n+i] = d
		}
	}

	return result
}

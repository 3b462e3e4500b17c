package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pdist returns the Euclidean distances between all unordered pairs of rows
// of points, in (0,1), (0,2), ..., (1,2), ... order.
func Pdist(points mat.Matrix) []float64 {
	k, dim := points.Dims()
	out := make([]float64, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			acc := 0.0
			for d := 0; d < dim; d++ {
				diff := points.At(i, d) - points.At(j, d)
				acc += diff * diff
			}
			out = append(out, math.Sqrt(acc))
		}
	}
	return out
}

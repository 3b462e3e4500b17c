package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Weights of the three tracked dissimilarity scores. Weight 0 weights all
// point pairs uniformly; larger weights emphasize preserving small target
// distances over large ones.
const (
	MetricErrorWeight = 0.0
	TopologyInPWeight = 10.0
	TopologyInHWeight = 50.0
)

// Result bundles the three dissimilarity scores and the affine projection
// of the embedding into the true position space.
type Result struct {
	MetricError      float64
	TopologyErrorInP float64
	TopologyErrorInH float64
	FittedP          *mat.Dense
}

// WeightedAffineError fits target ~= origin*coef + intercept by least
// squares and compares the pairwise distances of the target set against
// those of the fitted projection:
//
//	mean(|d_fit - d_target| / max(d_target) * exp(-weight*d_target/max(d_target)))
//
// A degenerate target set where all points coincide makes max(d_target)
// zero; that is a data-generation-time error and is not guarded here.
func WeightedAffineError(target, origin mat.Matrix, weight float64) (float64, *mat.Dense, error) {
	if k, _ := target.Dims(); k < 2 {
		return 0, nil, fmt.Errorf("pairwise comparison needs at least 2 points, got %d", k)
	}
	fit, err := FitAffine(target, origin)
	if err != nil {
		return 0, nil, err
	}
	fitted := fit.Project(origin)

	distTarget := Pdist(target)
	distFitted := Pdist(fitted)
	maxTarget := floats.Max(distTarget)

	sum := 0.0
	for i := range distTarget {
		sum += math.Abs(distFitted[i]-distTarget[i]) / maxTarget * math.Exp(-weight*distTarget[i]/maxTarget)
	}
	return sum / float64(len(distTarget)), fitted, nil
}

// TopologyErrorInH measures how much points that are close in the true
// position space pSet remain close in the embedding space hSet. It is the
// weighted mean of the normalized embedding distances, with weight decaying
// in the true-space distance:
//
//	mean(d_H / max(d_H) * exp(-weight*d_P/max(d_P)))
//
// No affine fit is involved, so the score is independent of embedding scale
// and orientation.
func TopologyErrorInH(pSet, hSet mat.Matrix, weight float64) (float64, error) {
	pk, _ := pSet.Dims()
	hk, _ := hSet.Dims()
	if pk != hk {
		return 0, fmt.Errorf("p_set has %d rows, h_set has %d", pk, hk)
	}
	if pk < 2 {
		return 0, fmt.Errorf("pairwise comparison needs at least 2 points, got %d", pk)
	}

	distH := Pdist(hSet)
	distP := Pdist(pSet)
	maxH := floats.Max(distH)
	maxP := floats.Max(distP)

	sum := 0.0
	for i := range distH {
		sum += distH[i] / maxH * math.Exp(-weight*distP[i]/maxP)
	}
	return sum / float64(len(distH)), nil
}

// Evaluate scores an embedding of the evaluation grid against the true 2-D
// positions, producing the three tracked dissimilarities.
func Evaluate(gridPos, embedding mat.Matrix) (Result, error) {
	metricError, fitted, err := WeightedAffineError(gridPos, embedding, MetricErrorWeight)
	if err != nil {
		return Result{}, fmt.Errorf("metric error: %w", err)
	}
	topologyInP, _, err := WeightedAffineError(gridPos, embedding, TopologyInPWeight)
	if err != nil {
		return Result{}, fmt.Errorf("topology error in P: %w", err)
	}
	topologyInH, err := TopologyErrorInH(gridPos, embedding, TopologyInHWeight)
	if err != nil {
		return Result{}, fmt.Errorf("topology error in H: %w", err)
	}
	return Result{
		MetricError:      metricError,
		TopologyErrorInP: topologyInP,
		TopologyErrorInH: topologyInH,
		FittedP:          fitted,
	}, nil
}

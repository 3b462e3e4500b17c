package training

import (
	"fmt"
	"math"
)

// Adam is the adaptive-moment gradient optimizer driving parameter updates.
// Moment buffers are allocated lazily on the first step to match the
// parameter layout.
type Adam struct {
	Beta1   float64
	Beta2   float64
	Epsilon float64

	steps int64
	m     [][]float64
	v     [][]float64
}

func NewAdam() *Adam {
	return &Adam{Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

// Step applies one bias-corrected update in place. params and grads must be
// aligned slices of identical shapes across every call.
func (a *Adam) Step(params, grads [][]float64, learningRate float64) error {
	if len(params) != len(grads) {
		return fmt.Errorf("got %d parameter groups and %d gradient groups", len(params), len(grads))
	}
	if a.m == nil {
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for i, p := range params {
			a.m[i] = make([]float64, len(p))
			a.v[i] = make([]float64, len(p))
		}
	}
	if len(a.m) != len(params) {
		return fmt.Errorf("optimizer state has %d groups, got %d", len(a.m), len(params))
	}

	a.steps++
	correction1 := 1 - math.Pow(a.Beta1, float64(a.steps))
	correction2 := 1 - math.Pow(a.Beta2, float64(a.steps))

	for i, p := range params {
		g := grads[i]
		if len(g) != len(p) {
			return fmt.Errorf("group %d: %d gradients for %d parameters", i, len(g), len(p))
		}
		m := a.m[i]
		v := a.v[i]
		for j := range p {
			m[j] = a.Beta1*m[j] + (1-a.Beta1)*g[j]
			v[j] = a.Beta2*v[j] + (1-a.Beta2)*g[j]*g[j]
			mHat := m[j] / correction1
			vHat := v[j] / correction2
			p[j] -= learningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
	return nil
}

package training

import "math"

// PolynomialDecay interpolates the learning rate from Initial to Final as a
// power of the elapsed step fraction, clamped once the horizon is reached.
type PolynomialDecay struct {
	Initial float64
	Final   float64
	Horizon int64
	Power   float64
}

// Rate returns the learning rate at the given global step.
func (p PolynomialDecay) Rate(step int64) float64 {
	if p.Horizon <= 0 {
		return p.Final
	}
	if step < 0 {
		step = 0
	}
	if step > p.Horizon {
		step = p.Horizon
	}
	frac := float64(step) / float64(p.Horizon)
	return p.Initial + (p.Final-p.Initial)*math.Pow(frac, p.Power)
}

package nimbus

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// norm returns the norm of a given vector.
func norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// unitVec returns the unit vector of a given vector.
func unitVec(a []float64) (b []float64) {
	b = make([]float64, len(a))
	n := norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return
	}
	floats.ScaleTo(b, 1/n, a)
	return
}

// dot performs the inner product.
func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Deg2rad converts degrees to radians.
func Deg2rad(a float64) float64 {
	return a * deg2rad
}

// Rad2deg converts radians to degrees.
func Rad2deg(a float64) float64 {
	return a * rad2deg
}

// lerp linearly interpolates between a and b.
func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

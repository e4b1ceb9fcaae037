package nimbus

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"
)

// Ellipse is a dispersion ellipse of planar points.
type Ellipse struct {
	Sigma                float64 // number of standard deviations
	CenterX, CenterY     float64
	SemiMajor, SemiMinor float64
	Angle                float64 // of the major axis from the x axis, radians in (-π/2, π/2]
}

// ConfidenceEllipses returns the dispersion ellipses of the points at the provided numbers of standard deviations.
// The axes are those of the sample covariance matrix.
func ConfidenceEllipses(xs, ys []float64, sigmas ...float64) ([]Ellipse, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%d abscissas for %d ordinates", len(xs), len(ys))
	}
	if len(xs) < 3 {
		return nil, errors.New("need at least three points for a dispersion ellipse")
	}
	data := mat.NewDense(len(xs), 2, nil)
	for i := range xs {
		data.Set(i, 0, xs[i])
		data.Set(i, 1, ys[i])
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	var eig mat.EigenSym
	if ok := eig.Factorize(&cov, true); !ok {
		return nil, errors.New("eigen decomposition of the covariance failed")
	}
	values := eig.Values(nil) // ascending
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	angle := math.Atan2(vectors.At(1, 1), vectors.At(0, 1))
	if angle <= -math.Pi/2 {
		angle += math.Pi
	} else if angle > math.Pi/2 {
		angle -= math.Pi
	}
	major, minor := math.Sqrt(math.Max(values[1], 0)), math.Sqrt(math.Max(values[0], 0))
	cx, cy := stat.Mean(xs, nil), stat.Mean(ys, nil)
	ellipses := make([]Ellipse, len(sigmas))
	for i, k := range sigmas {
		ellipses[i] = Ellipse{Sigma: k, CenterX: cx, CenterY: cy, SemiMajor: k * major, SemiMinor: k * minor, Angle: angle}
	}
	return ellipses, nil
}

// Area returns the area of the ellipse.
func (e Ellipse) Area() float64 {
	return math.Pi * e.SemiMajor * e.SemiMinor
}

// Contains returns whether the point is inside the ellipse.
func (e Ellipse) Contains(x, y float64) bool {
	if e.SemiMajor == 0 || e.SemiMinor == 0 {
		return false
	}
	s, c := math.Sincos(e.Angle)
	dx, dy := x-e.CenterX, y-e.CenterY
	u := (dx*c + dy*s) / e.SemiMajor
	v := (-dx*s + dy*c) / e.SemiMinor
	return u*u+v*v <= 1
}

// Points returns n points on the perimeter of the ellipse, closing the curve.
func (e Ellipse) Points(n int) plotter.XYs {
	pts := make(plotter.XYs, n+1)
	s, c := math.Sincos(e.Angle)
	for i := range pts {
		θ := 2 * math.Pi * float64(i) / float64(n)
		u, v := e.SemiMajor*math.Cos(θ), e.SemiMinor*math.Sin(θ)
		pts[i].X = e.CenterX + u*c - v*s
		pts[i].Y = e.CenterY + u*s + v*c
	}
	return pts
}

func (e Ellipse) String() string {
	return fmt.Sprintf("%.0fσ: center (%.1f, %.1f) m, semi-axes %.1f x %.1f m, %.1f°", e.Sigma, e.CenterX, e.CenterY, e.SemiMajor, e.SemiMinor, Rad2deg(e.Angle))
}

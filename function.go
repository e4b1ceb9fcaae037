package nimbus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// Function is a tabulated one dimensional function. It is linearly interpolated between
// samples and held constant beyond the first and last samples.
type Function struct {
	Name   string
	xs, ys []float64
	pl     interp.PiecewiseLinear
}

// NewFunction returns a new Function from the provided samples, which must be strictly increasing in x.
func NewFunction(name string, xs, ys []float64) (*Function, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%s: %d abscissas for %d ordinates", name, len(xs), len(ys))
	}
	if len(xs) == 1 {
		// A single sample is a constant.
		xs = []float64{xs[0], xs[0] + 1}
		ys = []float64{ys[0], ys[0]}
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%s: no samples", name)
	}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			return nil, fmt.Errorf("%s: NaN at sample %d", name, i)
		}
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("%s: abscissas must be strictly increasing (sample %d: %f after %f)", name, i, xs[i], xs[i-1])
		}
	}
	f := &Function{Name: name, xs: append([]float64(nil), xs...), ys: append([]float64(nil), ys...)}
	if err := f.pl.Fit(f.xs, f.ys); err != nil {
		return nil, fmt.Errorf("%s: %s", name, err)
	}
	return f, nil
}

// ConstantFunction returns a Function which is y everywhere.
func ConstantFunction(name string, y float64) *Function {
	f, _ := NewFunction(name, []float64{0, 1}, []float64{y, y})
	return f
}

// At returns the value of the function at x.
func (f *Function) At(x float64) float64 {
	return f.pl.Predict(x)
}

// Domain returns the first and last abscissas.
func (f *Function) Domain() (min, max float64) {
	return f.xs[0], f.xs[len(f.xs)-1]
}

// Samples returns a copy of the samples.
func (f *Function) Samples() (xs, ys []float64) {
	return append([]float64(nil), f.xs...), append([]float64(nil), f.ys...)
}

// Max returns the sample with the largest ordinate.
func (f *Function) Max() (x, y float64) {
	y = math.Inf(-1)
	for i, v := range f.ys {
		if v > y {
			x, y = f.xs[i], v
		}
	}
	return
}

// Integral returns the integral of the function between a and b.
// The function is piecewise linear so the trapezoidal rule on the knots is exact.
func (f *Function) Integral(a, b float64) float64 {
	if a == b {
		return 0
	}
	sign := 1.0
	if b < a {
		a, b = b, a
		sign = -1
	}
	x := []float64{a}
	first := sort.SearchFloat64s(f.xs, a)
	for i := first; i < len(f.xs) && f.xs[i] < b; i++ {
		if f.xs[i] > a {
			x = append(x, f.xs[i])
		}
	}
	x = append(x, b)
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = f.At(xi)
	}
	return sign * integrate.Trapezoidal(x, y)
}

// Derivative returns the central difference derivative of the function at x.
func (f *Function) Derivative(x float64) float64 {
	min, max := f.Domain()
	h := (max - min) * 1e-5
	return (f.At(x+h) - f.At(x-h)) / (2 * h)
}

// Scaled returns a copy of this function with abscissas scaled by sx and ordinates by sy.
func (f *Function) Scaled(sx, sy float64) (*Function, error) {
	if sx <= 0 {
		return nil, errors.New("abscissa scale factor must be positive")
	}
	xs, ys := f.Samples()
	for i := range xs {
		xs[i] *= sx
		ys[i] *= sy
	}
	return NewFunction(f.Name, xs, ys)
}

func (f *Function) String() string {
	min, max := f.Domain()
	return fmt.Sprintf("%s (%d samples on [%g, %g])", f.Name, len(f.xs), min, max)
}

// LoadCSVFunction reads a two column CSV file into a Function. See ReadCSVFunction.
func LoadCSVFunction(name, path string) (*Function, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer fd.Close()
	return ReadCSVFunction(name, fd)
}

// ReadCSVFunction reads a two column CSV into a Function. A non numeric first line is treated
// as a header, lines starting with `#` are comments, and any extra column is ignored.
func ReadCSVFunction(name string, r io.Reader) (*Function, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var xs, ys []float64
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("%s: line %d has %d columns, need 2", name, line, len(record))
		}
		x, xerr := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		y, yerr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if xerr != nil || yerr != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("%s: line %d: could not parse %q", name, line, strings.Join(record, ","))
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return NewFunction(name, xs, ys)
}

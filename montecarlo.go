package nimbus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"
	"text/tabwriter"

	kitlog "github.com/go-kit/kit/log"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// MonteCarlo runs a dispersion analysis of a flight.
type MonteCarlo struct {
	Filename    string // prefix of the .inputs.txt, .outputs.txt and .errors.txt files, in the output directory
	Environment *StochasticEnvironment
	Rocket      *StochasticRocket
	Flight      *StochasticFlight
	Seed        uint64
	Workers     int // defaults to the number of CPUs
	Logger      kitlog.Logger
	results     []MonteCarloOutput
	failures    int
}

// MonteCarloInput records the sampled parameters of a simulation.
type MonteCarloInput struct {
	Index  int                `json:"index"`
	Seed   uint64             `json:"seed"`
	Values map[string]float64 `json:"values"`
}

// MonteCarloOutput records the results of a simulation.
type MonteCarloOutput struct {
	Index             int              `json:"index"`
	Apogee            float64          `json:"apogee"`
	ApogeeAGL         float64          `json:"apogee_agl"`
	ApogeeTime        float64          `json:"apogee_time"`
	ApogeeX           float64          `json:"apogee_x"`
	ApogeeY           float64          `json:"apogee_y"`
	OutOfRailTime     float64          `json:"out_of_rail_time"`
	OutOfRailVelocity float64          `json:"out_of_rail_velocity"`
	MaxSpeed          float64          `json:"max_speed"`
	MaxMach           float64          `json:"max_mach_number"`
	Impacted          bool             `json:"impacted"`
	ImpactTime        float64          `json:"impact_time,omitempty"`
	ImpactX           float64          `json:"x_impact,omitempty"`
	ImpactY           float64          `json:"y_impact,omitempty"`
	ImpactVelocity    float64          `json:"impact_velocity,omitempty"`
	ImpactLatitude    float64          `json:"impact_latitude,omitempty"`
	ImpactLongitude   float64          `json:"impact_longitude,omitempty"`
	ImpactRange       float64          `json:"impact_range,omitempty"`
	Parachutes        []ParachuteEvent `json:"parachutes,omitempty"`
}

// MonteCarloError records a failed simulation.
type MonteCarloError struct {
	Index int    `json:"index"`
	Seed  uint64 `json:"seed"`
	Error string `json:"error"`
}

type sampleResult struct {
	input  MonteCarloInput
	output MonteCarloOutput
	err    error
}

func (m *MonteCarlo) path(kind string) string {
	return OutputPath(fmt.Sprintf("%s.%s.txt", m.Filename, kind))
}

// Simulate samples and integrates n flights. With append, the results are added to those of previous runs
// and the sample indices continue from there. A failing simulation is recorded in the errors file and
// does not stop the run. The error is not nil only if the files cannot be written or the context is done.
func (m *MonteCarlo) Simulate(ctx context.Context, n int, appendResults bool) error {
	if m.Filename == "" || m.Environment == nil || m.Rocket == nil || m.Flight == nil {
		return errors.New("a Monte Carlo needs a filename, an environment, a rocket and a flight")
	}
	if n <= 0 {
		return fmt.Errorf("number of simulations must be positive, got %d", n)
	}
	logger := m.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "subsys", "montecarlo", "montecarlo", m.Filename)
	first := 0
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendResults {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if err := m.ImportResults(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if last, err := countLines(m.path("inputs")); err == nil {
			first = last
		}
	} else {
		m.results = nil
	}
	m.failures = 0
	var files [3]*os.File
	for i, kind := range []string{"inputs", "outputs", "errors"} {
		fd, err := os.OpenFile(m.path(kind), flags, 0644)
		if err != nil {
			return err
		}
		defer fd.Close()
		files[i] = fd
	}
	inputs, outputs, failures := json.NewEncoder(files[0]), json.NewEncoder(files[1]), json.NewEncoder(files[2])

	workers := m.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	logger.Log("level", "notice", "status", "starting", "simulations", n, "workers", workers, "first", first)
	jobs := make(chan int)
	results := make(chan sampleResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- m.runSample(i)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := first; i < first+n; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var writeErr error
	done := 0
	for res := range results {
		done++
		if writeErr != nil {
			continue
		}
		writeErr = inputs.Encode(res.input)
		if res.err != nil {
			m.failures++
			logger.Log("level", "warning", "sample", res.input.Index, "err", res.err)
			if err := failures.Encode(MonteCarloError{res.input.Index, res.input.Seed, res.err.Error()}); writeErr == nil {
				writeErr = err
			}
		} else {
			m.results = append(m.results, res.output)
			if err := outputs.Encode(res.output); writeErr == nil {
				writeErr = err
			}
		}
		if done%progressPeriod(n) == 0 {
			logger.Log("level", "info", "status", "progress", "done", done, "of", n)
		}
	}
	sort.Slice(m.results, func(i, j int) bool { return m.results[i].Index < m.results[j].Index })
	if writeErr != nil {
		return writeErr
	}
	logger.Log("level", "notice", "status", "finished", "done", done, "failures", m.failures)
	if done < n {
		return ctx.Err()
	}
	return nil
}

func progressPeriod(n int) int {
	if n < 10 {
		return 1
	}
	return n / 10
}

// runSample creates and integrates the i-th flight.
func (m *MonteCarlo) runSample(i int) (res sampleResult) {
	seed := m.Seed + uint64(i)
	smp := NewSampler(seed)
	res.input = MonteCarloInput{Index: i, Seed: seed, Values: smp.Values()}
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("simulation %d panicked: %v", i, r)
		}
	}()
	env, err := m.Environment.Create(smp)
	if err != nil {
		res.err = err
		return
	}
	rocket, err := m.Rocket.Create(smp)
	if err != nil {
		res.err = err
		return
	}
	cfg, err := m.Flight.Create(smp, rocket, env)
	if err != nil {
		res.err = err
		return
	}
	cfg.Name = fmt.Sprintf("%s-%d", m.Filename, i)
	cfg.Seed = seed
	cfg.Export = ExportConfig{}
	cfg.Logger = nil
	f, err := RunFlight(cfg)
	if err != nil {
		res.err = err
		return
	}
	r := f.Results()
	res.output = MonteCarloOutput{
		Index:             i,
		Apogee:            r.Apogee,
		ApogeeAGL:         r.ApogeeAGL,
		ApogeeTime:        r.ApogeeTime,
		ApogeeX:           r.ApogeeX,
		ApogeeY:           r.ApogeeY,
		OutOfRailTime:     r.OutOfRailTime,
		OutOfRailVelocity: r.OutOfRailVelocity,
		MaxSpeed:          r.MaxSpeed,
		MaxMach:           r.MaxMach,
		Impacted:          r.Impacted,
		Parachutes:        r.Parachutes,
	}
	if r.Impacted {
		landing := env.LatLon(r.ImpactX, r.ImpactY)
		res.output.ImpactTime = r.ImpactTime
		res.output.ImpactX, res.output.ImpactY = r.ImpactX, r.ImpactY
		res.output.ImpactVelocity = r.ImpactVelocity
		res.output.ImpactLatitude, res.output.ImpactLongitude = landing.Latitude, landing.Longitude
		res.output.ImpactRange = env.RangeFromPad(landing)
	}
	return
}

// ImportResults reads the outputs file of a previous run.
func (m *MonteCarlo) ImportResults() error {
	fd, err := os.Open(m.path("outputs"))
	if err != nil {
		return err
	}
	defer fd.Close()
	results, err := ReadMonteCarloOutputs(fd)
	if err != nil {
		return err
	}
	m.results = results
	return nil
}

// ReadMonteCarloOutputs reads JSON lines of simulation outputs.
func ReadMonteCarloOutputs(r io.Reader) ([]MonteCarloOutput, error) {
	var results []MonteCarloOutput
	dec := json.NewDecoder(r)
	for {
		var out MonteCarloOutput
		if err := dec.Decode(&out); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("outputs line %d: %s", len(results)+1, err)
		}
		results = append(results, out)
	}
	return results, nil
}

func countLines(path string) (int, error) {
	fd, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer fd.Close()
	n := 0
	scanner := bufio.NewScanner(fd)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// Results returns the outputs of the successful simulations, sorted by index.
func (m *MonteCarlo) Results() []MonteCarloOutput {
	return append([]MonteCarloOutput(nil), m.results...)
}

// Failures returns the number of failed simulations of the last call to Simulate.
func (m *MonteCarlo) Failures() int {
	return m.failures
}

func (m *MonteCarlo) column(value func(MonteCarloOutput) float64, impactedOnly bool) []float64 {
	var xs []float64
	for _, r := range m.results {
		if impactedOnly && !r.Impacted {
			continue
		}
		xs = append(xs, value(r))
	}
	return xs
}

// Summary writes the mean and standard deviation of the main results.
func (m *MonteCarlo) Summary(w io.Writer) error {
	if len(m.results) == 0 {
		return errors.New("no results")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s: %d simulations\n", m.Filename, len(m.results))
	fmt.Fprintln(tw, "parameter\tmean\tstd\tn\t")
	for _, row := range []struct {
		label        string
		value        func(MonteCarloOutput) float64
		impactedOnly bool
	}{
		{"apogee AGL (m)", func(r MonteCarloOutput) float64 { return r.ApogeeAGL }, false},
		{"apogee time (s)", func(r MonteCarloOutput) float64 { return r.ApogeeTime }, false},
		{"apogee x (m)", func(r MonteCarloOutput) float64 { return r.ApogeeX }, false},
		{"apogee y (m)", func(r MonteCarloOutput) float64 { return r.ApogeeY }, false},
		{"out of rail velocity (m/s)", func(r MonteCarloOutput) float64 { return r.OutOfRailVelocity }, false},
		{"max Mach", func(r MonteCarloOutput) float64 { return r.MaxMach }, false},
		{"impact x (m)", func(r MonteCarloOutput) float64 { return r.ImpactX }, true},
		{"impact y (m)", func(r MonteCarloOutput) float64 { return r.ImpactY }, true},
		{"impact velocity (m/s)", func(r MonteCarloOutput) float64 { return r.ImpactVelocity }, true},
		{"impact range (m)", func(r MonteCarloOutput) float64 { return r.ImpactRange }, true},
	} {
		xs := m.column(row.value, row.impactedOnly)
		if len(xs) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t0\t\n", row.label)
			continue
		}
		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) == 1 {
			std = 0
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%d\t\n", row.label, mean, std, len(xs))
	}
	return tw.Flush()
}

// Ellipses returns the dispersion ellipses of the apogee and impact points. Either is nil if there are
// fewer than three points.
func (m *MonteCarlo) Ellipses(sigmas ...float64) (apogee, impact []Ellipse) {
	ax := m.column(func(r MonteCarloOutput) float64 { return r.ApogeeX }, false)
	ay := m.column(func(r MonteCarloOutput) float64 { return r.ApogeeY }, false)
	ix := m.column(func(r MonteCarloOutput) float64 { return r.ImpactX }, true)
	iy := m.column(func(r MonteCarloOutput) float64 { return r.ImpactY }, true)
	apogee, _ = ConfidenceEllipses(ax, ay, sigmas...)
	impact, _ = ConfidenceEllipses(ix, iy, sigmas...)
	return
}

// PlotEllipses saves the apogee and impact points with their 1σ, 2σ and 3σ ellipses as a PNG.
// The axis limits are in metres East (xlim) and North (ylim) of the launch site.
func (m *MonteCarlo) PlotEllipses(path string, xlim, ylim [2]float64) error {
	if len(m.results) == 0 {
		return errors.New("no results to plot")
	}
	p := newPlot(m.Filename+" dispersion ellipses", "x east (m)", "y north (m)")
	apogee, impact := m.Ellipses(1, 2, 3)
	for i, set := range []struct {
		name     string
		ellipses []Ellipse
		x, y     func(MonteCarloOutput) float64
		impacted bool
	}{
		{"apogee", apogee, func(r MonteCarloOutput) float64 { return r.ApogeeX }, func(r MonteCarloOutput) float64 { return r.ApogeeY }, false},
		{"impact", impact, func(r MonteCarloOutput) float64 { return r.ImpactX }, func(r MonteCarloOutput) float64 { return r.ImpactY }, true},
	} {
		xs, ys := m.column(set.x, set.impacted), m.column(set.y, set.impacted)
		if len(xs) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(xs))
		for j := range xs {
			pts[j] = plotter.XY{X: xs[j], Y: ys[j]}
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = plotutil.Color(i)
		scatter.GlyphStyle.Radius = vg.Points(1.5)
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(set.name, scatter)
		for _, e := range set.ellipses {
			if err := addSeries(p, i, "", e.Points(100)); err != nil {
				return err
			}
		}
	}
	pad, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return err
	}
	pad.GlyphStyle.Shape = draw.CrossGlyph{}
	pad.GlyphStyle.Radius = vg.Points(4)
	p.Add(pad)
	p.Legend.Add("launch site", pad)
	p.Legend.Top = true
	p.X.Min, p.X.Max = xlim[0], xlim[1]
	p.Y.Min, p.Y.Max = ylim[0], ylim[1]
	return savePNG(p, 16*vg.Centimeter, 16*vg.Centimeter, OutputPath(path))
}

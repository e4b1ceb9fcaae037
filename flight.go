package nimbus

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ChristopherRabotin/ode"
	kitlog "github.com/go-kit/kit/log"
	"golang.org/x/exp/rand"
)

const (
	// DefaultMaxTime is the default simulation time (s) at which a flight stops.
	DefaultMaxTime = 600.0
	// statusPeriod is the simulation time between status logs.
	statusPeriod = 30.0
)

// FlightConfig defines a flight.
type FlightConfig struct {
	Name              string
	Rocket            *Rocket
	Environment       *Environment
	RailLength        float64 // m
	Inclination       float64 // rail inclination above the horizon, degrees
	Heading           float64 // rail heading from North, degrees
	TerminateOnApogee bool
	// InitialSolution is [t, x, y, z, vx, vy, vz]. A flight with an initial solution starts off the rail.
	InitialSolution []float64
	MaxTime         float64       // simulation time (s) at which the flight stops, defaults to DefaultMaxTime
	Step            time.Duration // defaults to the configured integrator step
	Seed            uint64        // seed of the parachute pressure noise
	Export          ExportConfig
	Logger          kitlog.Logger
}

// FlightResults are the notable events of a flight. Altitudes are above sea level unless stated otherwise.
type FlightResults struct {
	Apogee, ApogeeAGL, ApogeeTime    float64
	ApogeeX, ApogeeY                 float64
	OutOfRailTime, OutOfRailVelocity float64
	BurnOutTime, BurnOutVelocity     float64
	MaxSpeed, MaxSpeedTime, MaxMach  float64
	Impacted                         bool
	ImpactTime, ImpactX, ImpactY     float64
	ImpactVelocity                   float64
	Parachutes                       []ParachuteEvent
}

// Flight integrates the trajectory of a rocket as a point mass.
type Flight struct {
	FlightConfig
	logger        kitlog.Logger
	railDir       []float64
	railStart     []float64
	effectiveRail float64
	t0, t, h      float64
	iter          uint64
	state         []float64
	onRail        bool
	done          bool
	simulated     bool
	apogeeFound   bool
	burntOut      bool
	nextStatus    float64
	deployments   []*deployment
	active        *deployment
	solution      [][]float64
	histChan      chan FlightSample
	exportErr     error
	wg            sync.WaitGroup
	results       FlightResults
}

// NewFlight returns a new Flight after checking its configuration. Call Simulate to integrate it.
func NewFlight(cfg FlightConfig) (*Flight, error) {
	if cfg.Rocket == nil || cfg.Environment == nil {
		return nil, errors.New("a flight needs a rocket and an environment")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Rocket.Name
	}
	if cfg.InitialSolution != nil && len(cfg.InitialSolution) != 7 {
		return nil, fmt.Errorf("flight %s: initial solution must be [t, x, y, z, vx, vy, vz], got %d items", cfg.Name, len(cfg.InitialSolution))
	}
	if cfg.InitialSolution == nil && cfg.RailLength <= 0 {
		return nil, fmt.Errorf("flight %s: rail length must be positive", cfg.Name)
	}
	if cfg.Inclination < 0 || cfg.Inclination > 90 {
		return nil, fmt.Errorf("flight %s: inclination must be within [0, 90], got %f", cfg.Name, cfg.Inclination)
	}
	if v, ok := cfg.Rocket.Motor().(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	if cfg.MaxTime == 0 {
		cfg.MaxTime = DefaultMaxTime
	}
	if cfg.Step == 0 {
		cfg.Step = DefaultStepSize()
	}
	if cfg.Step < 0 {
		return nil, fmt.Errorf("flight %s: negative step", cfg.Name)
	}
	if cfg.Logger == nil {
		cfg.Logger = kitlog.NewNopLogger()
	}
	f := &Flight{FlightConfig: cfg, h: cfg.Step.Seconds()}
	f.logger = kitlog.With(cfg.Logger, "flight", cfg.Name)
	incl, head := Deg2rad(cfg.Inclination), Deg2rad(cfg.Heading)
	f.railDir = []float64{math.Cos(incl) * math.Sin(head), math.Cos(incl) * math.Cos(head), math.Sin(incl)}
	f.effectiveRail = cfg.RailLength
	if buttons := cfg.Rocket.RailButtons(); buttons != nil {
		f.effectiveRail -= math.Abs(buttons.Upper - cfg.Rocket.MotorPosition())
	}
	if cfg.InitialSolution == nil {
		if f.effectiveRail <= 0 {
			return nil, fmt.Errorf("flight %s: the upper rail button is %f m above the nozzle but the rail is only %f m long", cfg.Name, cfg.RailLength-f.effectiveRail, cfg.RailLength)
		}
		f.state = []float64{0, 0, cfg.Environment.Elevation, 0, 0, 0}
		f.onRail = true
	} else {
		f.t0 = cfg.InitialSolution[0]
		f.state = append([]float64(nil), cfg.InitialSolution[1:]...)
		f.results.OutOfRailTime = f.t0
		f.results.OutOfRailVelocity = norm(f.state[3:])
	}
	if f.t0 >= cfg.MaxTime {
		return nil, fmt.Errorf("flight %s: starts at %f s, after the max time of %f s", cfg.Name, f.t0, cfg.MaxTime)
	}
	f.t = f.t0
	f.railStart = append([]float64(nil), f.state[:3]...)
	for i, p := range cfg.Rocket.Parachutes() {
		src := rand.NewSource(cfg.Seed + uint64(i))
		f.deployments = append(f.deployments, &deployment{parachute: p, noise: newPressureNoise(p.Noise, src), nextSample: f.t0})
	}
	return f, nil
}

// RunFlight creates and simulates a flight.
func RunFlight(cfg FlightConfig) (*Flight, error) {
	f, err := NewFlight(cfg)
	if err != nil {
		return nil, err
	}
	return f, f.Simulate()
}

// Simulate integrates the flight until impact, apogee (if requested) or the max time.
func (f *Flight) Simulate() (err error) {
	if f.simulated {
		return fmt.Errorf("flight %s was already simulated", f.Name)
	}
	f.simulated = true
	if !f.Export.IsUseless() {
		f.histChan = make(chan FlightSample, 1000) // a 1k entry buffer
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.exportErr = StreamStates(f.Export, f.Environment, f.histChan)
		}()
	}
	defer func() {
		if f.histChan != nil {
			close(f.histChan)
			f.wg.Wait() // Don't return until we're done writing the file.
			if err == nil && f.exportErr != nil {
				err = fmt.Errorf("flight %s: export: %s", f.Name, f.exportErr)
			}
		}
		if r := recover(); r != nil {
			err = fmt.Errorf("flight %s: %v", f.Name, r)
		}
	}()
	f.logger.Log("level", "info", "subsys", "flight", "status", "starting", "t", f.t0, "z", f.state[2], "onRail", f.onRail)
	f.record()
	f.nextStatus = f.t0 + statusPeriod
	ode.NewRK4(f.t0, f.h, f).Solve() // Blocking.
	f.finalize()
	return nil
}

// Stop implements the ode.Integrable interface.
func (f *Flight) Stop(t float64) bool {
	if f.done {
		return true
	}
	if f.t >= f.MaxTime {
		f.logger.Log("level", "warning", "subsys", "flight", "status", "max time reached", "t", f.t, "z", f.state[2])
		return true
	}
	return false
}

// GetState implements the ode.Integrable interface.
func (f *Flight) GetState() []float64 {
	return append([]float64(nil), f.state...)
}

// SetState implements the ode.Integrable interface.
func (f *Flight) SetState(t float64, s []float64) {
	f.iter++
	prevT, prev := f.t, f.state
	f.t = f.t0 + float64(f.iter)*f.h
	f.state = append([]float64(nil), s...)
	env := f.Environment
	speed := norm(f.state[3:])
	if f.onRail {
		travelled := math.Sqrt(math.Pow(f.state[0]-f.railStart[0], 2) + math.Pow(f.state[1]-f.railStart[1], 2) + math.Pow(f.state[2]-f.railStart[2], 2))
		if travelled >= f.effectiveRail {
			f.onRail = false
			f.results.OutOfRailTime = f.t
			f.results.OutOfRailVelocity = speed
			f.logger.Log("level", "info", "subsys", "flight", "event", "rail departure", "t", f.t, "v(m/s)", speed)
		}
	}
	if m := f.Rocket.Motor(); m != nil && !f.burntOut && f.t >= m.BurnOutTime() {
		f.burntOut = true
		f.results.BurnOutTime = m.BurnOutTime()
		f.results.BurnOutVelocity = speed
		f.logger.Log("level", "info", "subsys", "motor", "event", "burn out", "t", f.t, "z", f.state[2], "v(m/s)", speed)
	}
	if speed > f.results.MaxSpeed {
		f.results.MaxSpeed = speed
		f.results.MaxSpeedTime = f.t
	}
	if mach := f.mach(f.state); mach > f.results.MaxMach {
		f.results.MaxMach = mach
	}
	if !f.apogeeFound && prev[5] > 0 && f.state[5] <= 0 {
		f.apogeeFound = true
		frac := prev[5] / (prev[5] - f.state[5])
		apogee := make([]float64, 6)
		for i := range apogee {
			apogee[i] = lerp(prev[i], f.state[i], frac)
		}
		apogee[2] = math.Max(apogee[2], math.Max(prev[2], f.state[2]))
		apogee[5] = 0
		apT := lerp(prevT, f.t, frac)
		f.setApogee(apT, apogee)
		f.logger.Log("level", "notice", "subsys", "flight", "event", "apogee", "t", apT, "z", apogee[2], "agl", apogee[2]-env.Elevation)
		if f.TerminateOnApogee {
			f.t, f.state = apT, apogee
			f.done = true
			f.record()
			return
		}
	}
	height := f.state[2] - env.Elevation
	if !f.onRail {
		pressure := env.Pressure(f.state[2])
		for _, d := range f.deployments {
			if d.sample(f.t, pressure, height, f.state) {
				f.logger.Log("level", "info", "subsys", "recovery", "event", "trigger", "parachute", d.parachute.Name, "t", f.t, "height", height, "vz", f.state[5])
			}
			if d.inflating(f.t) {
				d.event.InflationVelocity = speed
				f.active = d
				f.logger.Log("level", "info", "subsys", "recovery", "event", "inflation", "parachute", d.parachute.Name, "t", f.t, "height", height, "v(m/s)", speed)
			}
		}
	}
	if !f.onRail && height <= 0 && f.state[5] < 0 {
		prevH := prev[2] - env.Elevation
		frac := 1.0
		if prevH-height > 0 {
			frac = prevH / (prevH - height)
		}
		impact := make([]float64, 6)
		for i := range impact {
			impact[i] = lerp(prev[i], f.state[i], frac)
		}
		impact[2] = env.Elevation
		f.t, f.state = lerp(prevT, f.t, frac), impact
		f.results.Impacted = true
		f.results.ImpactTime = f.t
		f.results.ImpactX, f.results.ImpactY = impact[0], impact[1]
		f.results.ImpactVelocity = norm(impact[3:])
		f.logger.Log("level", "notice", "subsys", "flight", "event", "impact", "t", f.t, "x", impact[0], "y", impact[1], "v(m/s)", f.results.ImpactVelocity)
		f.done = true
	}
	if f.t >= f.nextStatus {
		f.nextStatus += statusPeriod
		f.LogStatus()
	}
	f.record()
}

// Func implements the ode.Integrable interface: the point mass equations of motion.
func (f *Flight) Func(t float64, s []float64) []float64 {
	fDot := make([]float64, 6)
	r := f.Rocket
	env := f.Environment
	z := s[2]
	thrust := r.Thrust(t)
	mass := r.TotalMass(t)
	g := env.Gravity(z)
	rho := env.Density(z)
	if f.onRail {
		vAlong := dot(s[3:6], f.railDir)
		cd := r.DragCoefficient(math.Abs(vAlong)/env.SpeedOfSound(z), thrust > 0)
		drag := 0.5 * rho * vAlong * math.Abs(vAlong) * cd * r.ReferenceArea()
		aAlong := (thrust-drag)/mass - g*f.railDir[2]
		if vAlong <= 0 && aAlong < 0 {
			// Still sitting on the pad.
			aAlong = 0
		}
		for i := 0; i < 3; i++ {
			fDot[i] = f.railDir[i] * vAlong
			fDot[i+3] = f.railDir[i] * aAlong
		}
	} else {
		vRel := f.airVelocity(s)
		speed := norm(vRel)
		var cdA float64
		if f.active != nil {
			cdA = f.active.parachute.CdS
		} else {
			cdA = r.DragCoefficient(speed/env.SpeedOfSound(z), thrust > 0) * r.ReferenceArea()
		}
		q := 0.5 * rho * speed * cdA
		dir := f.railDir
		if speed > 1e-6 {
			dir = unitVec(vRel)
		}
		for i := 0; i < 3; i++ {
			fDot[i] = s[i+3]
			fDot[i+3] = (thrust*dir[i] - q*vRel[i]) / mass
		}
		fDot[5] -= g
	}
	for i := range fDot {
		if math.IsNaN(fDot[i]) {
			panic(fmt.Errorf("fDot[%d]=NaN @ t=%f\ncur state: %+v", i, t, s))
		}
	}
	return fDot
}

// airVelocity returns the velocity relative to the air.
func (f *Flight) airVelocity(s []float64) []float64 {
	u, v := f.Environment.Wind(s[2])
	return []float64{s[3] - u, s[4] - v, s[5]}
}

func (f *Flight) mach(s []float64) float64 {
	return norm(f.airVelocity(s)) / f.Environment.SpeedOfSound(s[2])
}

func (f *Flight) setApogee(t float64, s []float64) {
	f.results.Apogee = s[2]
	f.results.ApogeeAGL = s[2] - f.Environment.Elevation
	f.results.ApogeeTime = t
	f.results.ApogeeX, f.results.ApogeeY = s[0], s[1]
}

// record stores the current state and streams it to the exporter.
func (f *Flight) record() {
	row := make([]float64, 7)
	row[0] = f.t
	copy(row[1:], f.state)
	f.solution = append(f.solution, row)
	if f.histChan != nil {
		sample := FlightSample{T: f.t, State: row[1:], Height: f.state[2] - f.Environment.Elevation, Mach: f.mach(f.state)}
		if f.active != nil {
			sample.Parachute = f.active.parachute.Name
		}
		f.histChan <- sample
	}
}

func (f *Flight) finalize() {
	if !f.apogeeFound {
		// No ascent during this flight: the apogee is the highest sample.
		best := f.solution[0]
		for _, row := range f.solution {
			if row[3] > best[3] {
				best = row
			}
		}
		f.setApogee(best[0], best[1:])
	}
	for _, d := range f.deployments {
		if d.triggered {
			f.results.Parachutes = append(f.results.Parachutes, d.event)
		}
	}
	if !f.results.Impacted && !f.TerminateOnApogee {
		f.logger.Log("level", "warning", "subsys", "flight", "status", "no impact", "t", f.t, "z", f.state[2])
	}
	f.logger.Log("level", "notice", "subsys", "flight", "status", "finished", "t", f.t, "apogee(m)", f.results.Apogee, "samples", len(f.solution))
}

// LogStatus logs the current state of the flight.
func (f *Flight) LogStatus() {
	f.logger.Log("level", "info", "subsys", "flight", "t", f.t, "x", f.state[0], "y", f.state[1], "z", f.state[2], "vz", f.state[5], "mass(kg)", f.Rocket.TotalMass(f.t))
}

// Results returns the notable events of the flight.
func (f *Flight) Results() FlightResults {
	r := f.results
	r.Parachutes = append([]ParachuteEvent(nil), f.results.Parachutes...)
	return r
}

// Solution returns the trajectory samples as [t, x, y, z, vx, vy, vz] rows. The rows must not be modified.
func (f *Flight) Solution() [][]float64 {
	return f.solution
}

// FinalState returns the last [t, x, y, z, vx, vy, vz] sample, usable as the initial solution of another flight.
func (f *Flight) FinalState() []float64 {
	if len(f.solution) == 0 {
		return nil
	}
	return append([]float64(nil), f.solution[len(f.solution)-1]...)
}

// SolutionAt returns the [t, x, y, z, vx, vy, vz] state at time t, linearly interpolated between samples
// and clamped to the flight duration.
func (f *Flight) SolutionAt(t float64) []float64 {
	n := len(f.solution)
	if n == 0 {
		return nil
	}
	i := sort.Search(n, func(i int) bool { return f.solution[i][0] >= t })
	if i == 0 {
		return append([]float64(nil), f.solution[0]...)
	}
	if i == n {
		return f.FinalState()
	}
	a, b := f.solution[i-1], f.solution[i]
	frac := 0.0
	if b[0] > a[0] {
		frac = (t - a[0]) / (b[0] - a[0])
	}
	out := make([]float64, 7)
	for j := range out {
		out[j] = lerp(a[j], b[j], frac)
	}
	out[0] = t
	return out
}

// Duration returns the simulated time.
func (f *Flight) Duration() float64 {
	return f.t - f.t0
}

package nimbus

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Noise is the Gaussian noise (Pa) added to the pressure seen by a parachute trigger,
// with Correlation the lag one autocorrelation of successive samples.
type Noise struct {
	Mean, StdDev, Correlation float64
}

// ParachuteConfig defines a parachute.
type ParachuteConfig struct {
	Name         string
	CdS          float64 // drag coefficient times reference area, m^2
	Trigger      Trigger
	SamplingRate float64 // Hz
	Lag          float64 // s between the trigger and the inflation
	Noise        Noise
}

// Parachute is a recovery parachute.
type Parachute struct {
	ParachuteConfig
}

// NewParachute returns a new parachute. The sampling rate defaults to 100 Hz.
func NewParachute(cfg ParachuteConfig) (*Parachute, error) {
	if cfg.CdS <= 0 {
		return nil, fmt.Errorf("parachute %s: CdS must be positive", cfg.Name)
	}
	if cfg.Trigger == nil {
		return nil, fmt.Errorf("parachute %s: no trigger", cfg.Name)
	}
	if cfg.SamplingRate == 0 {
		cfg.SamplingRate = 100
	}
	if cfg.SamplingRate < 0 || cfg.Lag < 0 {
		return nil, fmt.Errorf("parachute %s: sampling rate and lag must be positive", cfg.Name)
	}
	if cfg.Noise.StdDev < 0 || cfg.Noise.Correlation < 0 || cfg.Noise.Correlation >= 1 {
		return nil, fmt.Errorf("parachute %s: invalid noise %+v", cfg.Name, cfg.Noise)
	}
	return &Parachute{cfg}, nil
}

func (p *Parachute) String() string {
	return fmt.Sprintf("%s: CdS %.3f m², %.0f Hz, lag %.2f s, noise (%.2f, %.2f, %.2f)", p.Name, p.CdS, p.SamplingRate, p.Lag, p.Noise.Mean, p.Noise.StdDev, p.Noise.Correlation)
}

// pressureNoise is a first order autoregressive Gaussian process.
type pressureNoise struct {
	α, β   float64
	value  float64
	normal distuv.Normal
}

func newPressureNoise(n Noise, src rand.Source) *pressureNoise {
	return &pressureNoise{α: n.Correlation, β: math.Sqrt(1 - n.Correlation*n.Correlation), normal: distuv.Normal{Mu: n.Mean, Sigma: n.StdDev, Src: src}}
}

// Next returns the next noise sample.
func (n *pressureNoise) Next() float64 {
	if n.normal.Sigma == 0 {
		return n.normal.Mu
	}
	n.value = n.α*n.value + n.β*n.normal.Rand()
	return n.value
}

// ParachuteEvent records when a parachute was triggered and inflated.
type ParachuteEvent struct {
	Name              string
	TriggerTime       float64
	InflationTime     float64
	TriggerHeight     float64 // AGL
	InflationVelocity float64
	Inflated          bool
}

// deployment is the state of a parachute during a flight.
type deployment struct {
	parachute  *Parachute
	noise      *pressureNoise
	nextSample float64
	triggered  bool
	event      ParachuteEvent
}

// sample evaluates the trigger if a sample is due at time t, and returns whether it fired.
func (d *deployment) sample(t, pressure, height float64, state []float64) bool {
	if d.triggered || t < d.nextSample {
		return false
	}
	d.nextSample = t + 1/d.parachute.SamplingRate
	if !d.parachute.Trigger(pressure+d.noise.Next(), height, state) {
		return false
	}
	d.triggered = true
	d.event = ParachuteEvent{Name: d.parachute.Name, TriggerTime: t, InflationTime: t + d.parachute.Lag, TriggerHeight: height}
	return true
}

// inflating returns true once when the inflation time is reached.
func (d *deployment) inflating(t float64) bool {
	if !d.triggered || d.event.Inflated || t < d.event.InflationTime {
		return false
	}
	d.event.Inflated = true
	d.event.InflationTime = t
	return true
}

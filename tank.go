package nimbus

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	// tankSamples is the number of samples used to tabulate the fluid masses over the flux time.
	tankSamples = 200
	// massTolerance is the largest negative fluid mass (kg) accepted as a rounding error.
	massTolerance = -1e-6
)

// Fluid is a propellant or pressurant at a fixed density.
type Fluid struct {
	Name    string
	Density float64 // kg/m^3
}

// NewFluid returns a new Fluid.
func NewFluid(name string, density float64) (Fluid, error) {
	if density <= 0 {
		return Fluid{}, fmt.Errorf("fluid %s: density must be positive, got %f", name, density)
	}
	return Fluid{name, density}, nil
}

func (f Fluid) String() string {
	return fmt.Sprintf("%s (%.3f kg/m^3)", f.Name, f.Density)
}

// CylindricalTank is a cylindrical tank geometry. With spherical caps, the height includes both hemispherical caps.
type CylindricalTank struct {
	Radius, Height float64
	SphericalCaps  bool
}

// NewCylindricalTank returns a new tank geometry.
func NewCylindricalTank(radius, height float64, sphericalCaps bool) (CylindricalTank, error) {
	if radius <= 0 || height <= 0 {
		return CylindricalTank{}, fmt.Errorf("tank radius and height must be positive, got r=%f h=%f", radius, height)
	}
	if sphericalCaps && height < 2*radius {
		return CylindricalTank{}, fmt.Errorf("tank with spherical caps must be at least 2r=%f high, got %f", 2*radius, height)
	}
	return CylindricalTank{radius, height, sphericalCaps}, nil
}

// Volume returns the internal volume of the tank in m^3.
func (g CylindricalTank) Volume() float64 {
	r2 := g.Radius * g.Radius
	if !g.SphericalCaps {
		return math.Pi * r2 * g.Height
	}
	return math.Pi*r2*(g.Height-2*g.Radius) + 4/3.*math.Pi*r2*g.Radius
}

// TankConfig defines a MassFlowRateBasedTank. A nil flow rate is zero.
type TankConfig struct {
	Name                  string
	Geometry              CylindricalTank
	FluxTime              float64 // s
	InitialLiquidMass     float64 // kg
	InitialGasMass        float64 // kg
	LiquidMassFlowRateIn  *Function
	LiquidMassFlowRateOut *Function
	GasMassFlowRateIn     *Function
	GasMassFlowRateOut    *Function
	Liquid, Gas           Fluid
}

// MassFlowRateBasedTank is a tank whose contents are defined by the mass flow rates in and out of it.
type MassFlowRateBasedTank struct {
	TankConfig
	times, liquid, gas []float64
}

// NewMassFlowRateBasedTank returns a new tank after checking that its contents are physical over the whole flux time.
func NewMassFlowRateBasedTank(cfg TankConfig) (*MassFlowRateBasedTank, error) {
	if cfg.FluxTime <= 0 {
		return nil, fmt.Errorf("tank %s: flux time must be positive", cfg.Name)
	}
	if cfg.InitialLiquidMass < 0 || cfg.InitialGasMass < 0 {
		return nil, fmt.Errorf("tank %s: initial masses must be non negative", cfg.Name)
	}
	if cfg.Liquid.Density <= 0 || cfg.Gas.Density <= 0 {
		return nil, fmt.Errorf("tank %s: liquid and gas must be defined", cfg.Name)
	}
	t := &MassFlowRateBasedTank{TankConfig: cfg}
	t.times = make([]float64, tankSamples+1)
	t.liquid = make([]float64, tankSamples+1)
	t.gas = make([]float64, tankSamples+1)
	t.liquid[0], t.gas[0] = cfg.InitialLiquidMass, cfg.InitialGasMass
	liquidRate := func(x float64) float64 { return rate(cfg.LiquidMassFlowRateIn, x) - rate(cfg.LiquidMassFlowRateOut, x) }
	gasRate := func(x float64) float64 { return rate(cfg.GasMassFlowRateIn, x) - rate(cfg.GasMassFlowRateOut, x) }
	dt := cfg.FluxTime / tankSamples
	volume := cfg.Geometry.Volume()
	for i := 0; i <= tankSamples; i++ {
		if i > 0 {
			t.times[i] = float64(i) * dt
			t.liquid[i] = t.liquid[i-1] + quad.Fixed(liquidRate, t.times[i-1], t.times[i], 4, quad.Legendre{}, 0)
			t.gas[i] = t.gas[i-1] + quad.Fixed(gasRate, t.times[i-1], t.times[i], 4, quad.Legendre{}, 0)
		}
		for _, m := range []*float64{&t.liquid[i], &t.gas[i]} {
			if *m < massTolerance {
				return nil, fmt.Errorf("tank %s: fluid mass becomes negative (%f kg) at t=%.3f s", cfg.Name, *m, t.times[i])
			}
			if *m < 0 {
				*m = 0
			}
		}
		if used := t.liquid[i]/cfg.Liquid.Density + t.gas[i]/cfg.Gas.Density; used > volume*(1+1e-9) {
			return nil, fmt.Errorf("tank %s: %.6f m^3 of fluid does not fit in %.6f m^3 at t=%.3f s", cfg.Name, used, volume, t.times[i])
		}
	}
	return t, nil
}

func rate(f *Function, t float64) float64 {
	if f == nil {
		return 0
	}
	return f.At(t)
}

// sampleAt linearly interpolates the tabulated masses, which are constant outside the flux time.
func (t *MassFlowRateBasedTank) sampleAt(values []float64, x float64) float64 {
	if x <= 0 {
		return values[0]
	}
	if x >= t.FluxTime {
		return values[tankSamples]
	}
	pos := x / t.FluxTime * tankSamples
	i := int(pos)
	if i >= tankSamples {
		return values[tankSamples]
	}
	return lerp(values[i], values[i+1], pos-float64(i))
}

// LiquidMass returns the liquid mass in the tank at time t.
func (t *MassFlowRateBasedTank) LiquidMass(x float64) float64 {
	return t.sampleAt(t.liquid, x)
}

// GasMass returns the gas mass in the tank at time t.
func (t *MassFlowRateBasedTank) GasMass(x float64) float64 {
	return t.sampleAt(t.gas, x)
}

// FluidMass returns the total fluid mass in the tank at time t.
func (t *MassFlowRateBasedTank) FluidMass(x float64) float64 {
	return t.LiquidMass(x) + t.GasMass(x)
}

// NetMassFlowRate returns the net mass flow rate into the tank at time t (negative when emptying).
func (t *MassFlowRateBasedTank) NetMassFlowRate(x float64) float64 {
	if x < 0 || x > t.FluxTime {
		return 0
	}
	return rate(t.LiquidMassFlowRateIn, x) - rate(t.LiquidMassFlowRateOut, x) + rate(t.GasMassFlowRateIn, x) - rate(t.GasMassFlowRateOut, x)
}

// Clone returns a copy of the tank sharing the (immutable) tabulated masses.
func (t *MassFlowRateBasedTank) Clone() *MassFlowRateBasedTank {
	c := *t
	return &c
}

func (t *MassFlowRateBasedTank) String() string {
	return fmt.Sprintf("%s: %.3f kg %s + %.3f kg %s in %.4f m^3, flux %.2f s", t.Name, t.InitialLiquidMass, t.Liquid.Name, t.InitialGasMass, t.Gas.Name, t.Geometry.Volume(), t.FluxTime)
}

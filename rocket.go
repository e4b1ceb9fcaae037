package nimbus

import (
	"errors"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
)

// RocketConfig defines a rocket without its motor and aerosurfaces.
type RocketConfig struct {
	Name                     string
	Radius                   float64 // m
	Mass                     float64 // kg, excluding the motor
	Inertia                  Inertia
	PowerOffDrag             *Function // Cd vs Mach
	PowerOnDrag              *Function // Cd vs Mach, defaults to the power off drag
	CenterOfMassWithoutMotor float64
	CoordinateSystem         CoordinateSystem
}

// Rocket is a rocket with its motor, aerosurfaces and parachutes.
type Rocket struct {
	RocketConfig
	motor         Motor
	motorPosition float64
	surfaces      []AeroSurface
	railButtons   *RailButtons
	parachutes    []*Parachute
}

// NewRocket returns a new Rocket.
func NewRocket(cfg RocketConfig) (*Rocket, error) {
	if cfg.Radius <= 0 {
		return nil, fmt.Errorf("rocket %s: radius must be positive", cfg.Name)
	}
	if cfg.Mass <= 0 {
		return nil, fmt.Errorf("rocket %s: mass must be positive", cfg.Name)
	}
	if cfg.PowerOffDrag == nil {
		return nil, fmt.Errorf("rocket %s: no power off drag curve", cfg.Name)
	}
	if cfg.PowerOnDrag == nil {
		cfg.PowerOnDrag = cfg.PowerOffDrag
	}
	if cfg.CoordinateSystem == 0 {
		cfg.CoordinateSystem = TailToNose
	}
	if cfg.CoordinateSystem != TailToNose && cfg.CoordinateSystem != NoseToTail {
		return nil, fmt.Errorf("rocket %s: %s is not a rocket coordinate system", cfg.Name, cfg.CoordinateSystem)
	}
	return &Rocket{RocketConfig: cfg}, nil
}

// AddMotor sets the motor, whose origin (as per its coordinate system) is at the provided position.
func (r *Rocket) AddMotor(m Motor, position float64) {
	r.motor = m
	r.motorPosition = position
}

// Motor returns the motor, which may be nil.
func (r *Rocket) Motor() Motor { return r.motor }

// MotorPosition returns the position of the motor origin.
func (r *Rocket) MotorPosition() float64 { return r.motorPosition }

// AddSurface adds any aerosurface.
func (r *Rocket) AddSurface(s AeroSurface) {
	r.surfaces = append(r.surfaces, s)
}

// AddNose adds a nose cone whose tip is at the provided position.
func (r *Rocket) AddNose(length float64, kind NoseKind, position float64) (*NoseCone, error) {
	nose, err := NewNoseCone("nose cone", length, kind, r.Radius, position)
	if err != nil {
		return nil, err
	}
	r.AddSurface(nose)
	return nose, nil
}

// AddTrapezoidalFins adds a set of fins. The fin radius defaults to the rocket radius.
func (r *Rocket) AddTrapezoidalFins(cfg FinsConfig) (*TrapezoidalFins, error) {
	if cfg.Radius == 0 {
		cfg.Radius = r.Radius
	}
	if cfg.Name == "" {
		cfg.Name = "fins"
	}
	fins, err := NewTrapezoidalFins(cfg)
	if err != nil {
		return nil, err
	}
	r.AddSurface(fins)
	return fins, nil
}

// AddTail adds a tail whose top is at the provided position.
func (r *Rocket) AddTail(topRadius, bottomRadius, length, position float64) (*Tail, error) {
	tail, err := NewTail("tail", topRadius, bottomRadius, length, position)
	if err != nil {
		return nil, err
	}
	r.AddSurface(tail)
	return tail, nil
}

// SetRailButtons sets the rail buttons.
func (r *Rocket) SetRailButtons(upper, lower, angularPosition float64) error {
	if upper == lower {
		return errors.New("rail buttons must be at different positions")
	}
	r.railButtons = &RailButtons{upper, lower, angularPosition}
	return nil
}

// RailButtons returns the rail buttons, which may be nil.
func (r *Rocket) RailButtons() *RailButtons { return r.railButtons }

// AddParachute adds a new parachute.
func (r *Rocket) AddParachute(cfg ParachuteConfig) (*Parachute, error) {
	p, err := NewParachute(cfg)
	if err != nil {
		return nil, err
	}
	r.parachutes = append(r.parachutes, p)
	return p, nil
}

// Parachutes returns the parachutes in the order they were added.
func (r *Rocket) Parachutes() []*Parachute { return r.parachutes }

// Surfaces returns the aerosurfaces in the order they were added.
func (r *Rocket) Surfaces() []AeroSurface { return r.surfaces }

// ReferenceArea returns the frontal area of the body.
func (r *Rocket) ReferenceArea() float64 {
	return math.Pi * r.Radius * r.Radius
}

// Thrust returns the motor thrust at time t.
func (r *Rocket) Thrust(t float64) float64 {
	if r.motor == nil {
		return 0
	}
	return r.motor.Thrust(t)
}

// BurnOutTime returns the motor burn out time, or zero without a motor.
func (r *Rocket) BurnOutTime() float64 {
	if r.motor == nil {
		return 0
	}
	return r.motor.BurnOutTime()
}

// TotalMass returns the mass of the rocket and its motor at time t.
func (r *Rocket) TotalMass(t float64) float64 {
	if r.motor == nil {
		return r.Mass
	}
	return r.Mass + r.motor.TotalMass(t)
}

// DragCoefficient returns the drag coefficient at the provided Mach number.
func (r *Rocket) DragCoefficient(mach float64, poweredOn bool) float64 {
	if poweredOn {
		return r.PowerOnDrag.At(mach)
	}
	return r.PowerOffDrag.At(mach)
}

// motorToRocket converts a position in motor coordinates to rocket coordinates.
func (r *Rocket) motorToRocket(x float64) float64 {
	return r.motorPosition + r.CoordinateSystem.sign()*r.motor.Orientation().sign()*(x-r.motor.NozzlePosition())
}

// CenterOfMass returns the center of mass position (rocket coordinates) at time t.
func (r *Rocket) CenterOfMass(t float64) float64 {
	if r.motor == nil {
		return r.CenterOfMassWithoutMotor
	}
	mm := r.motor.TotalMass(t)
	return (r.Mass*r.CenterOfMassWithoutMotor + mm*r.motorToRocket(r.motor.CenterOfMass(t))) / (r.Mass + mm)
}

// surfaceCenterOfPressure returns the center of pressure of a surface in rocket coordinates.
func (r *Rocket) surfaceCenterOfPressure(s AeroSurface) float64 {
	return s.Position() - r.CoordinateSystem.sign()*s.LocalCenterOfPressure()
}

// CenterOfPressure returns the Barrowman center of pressure in rocket coordinates.
func (r *Rocket) CenterOfPressure() (float64, error) {
	var cna, moment float64
	for _, s := range r.surfaces {
		slope := s.NormalForceSlope(r.Radius)
		cna += slope
		moment += slope * r.surfaceCenterOfPressure(s)
	}
	if cna <= 0 {
		return 0, fmt.Errorf("rocket %s has no positive normal force slope (%f)", r.Name, cna)
	}
	return moment / cna, nil
}

// NormalForceSlope returns the total normal force coefficient derivative (per radian).
func (r *Rocket) NormalForceSlope() (cna float64) {
	for _, s := range r.surfaces {
		cna += s.NormalForceSlope(r.Radius)
	}
	return
}

// StaticMargin returns the static margin in calibers at time t.
func (r *Rocket) StaticMargin(t float64) (float64, error) {
	cp, err := r.CenterOfPressure()
	if err != nil {
		return 0, err
	}
	return r.CoordinateSystem.sign() * (r.CenterOfMass(t) - cp) / (2 * r.Radius), nil
}

// Info writes a summary of the rocket.
func (r *Rocket) Info(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Rocket\t%s\t\n", r.Name)
	fmt.Fprintf(tw, "Radius\t%.4f m\t\n", r.Radius)
	fmt.Fprintf(tw, "Mass (no motor)\t%.3f kg\t\n", r.Mass)
	fmt.Fprintf(tw, "Inertia\t(%.3f, %.3f, %.3f) kg m²\t\n", r.Inertia.I11, r.Inertia.I22, r.Inertia.I33)
	fmt.Fprintf(tw, "Total mass\t%.3f kg\t\n", r.TotalMass(0))
	if r.motor != nil {
		fmt.Fprintf(tw, "Motor\t%s\t\n", r.motor)
		fmt.Fprintf(tw, "Burnt out mass\t%.3f kg\t\n", r.TotalMass(r.motor.BurnOutTime()))
	}
	fmt.Fprintf(tw, "Center of mass\t%.4f m\t\n", r.CenterOfMass(0))
	for _, s := range r.surfaces {
		fmt.Fprintf(tw, "  %s\tCNα %.4f /rad\tCP %.4f m\t\n", s.Name(), s.NormalForceSlope(r.Radius), r.surfaceCenterOfPressure(s))
	}
	if cp, err := r.CenterOfPressure(); err == nil {
		fmt.Fprintf(tw, "Center of pressure\t%.4f m\t\n", cp)
		initial, _ := r.StaticMargin(0)
		final, _ := r.StaticMargin(r.BurnOutTime())
		fmt.Fprintf(tw, "Static margin\t%.3f → %.3f cal\t\n", initial, final)
	}
	if r.railButtons != nil {
		fmt.Fprintf(tw, "Rail buttons\t%.3f / %.3f m (%.0f°)\t\n", r.railButtons.Upper, r.railButtons.Lower, r.railButtons.AngularPosition)
	}
	for _, p := range r.parachutes {
		fmt.Fprintf(tw, "Parachute\t%s\t\n", p)
	}
	return tw.Flush()
}

package nimbus

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// CoordinateSystem is the orientation of the positions given to a rocket or a motor.
type CoordinateSystem uint8

const (
	// TailToNose measures rocket positions from the tail towards the nose.
	TailToNose CoordinateSystem = iota + 1
	// NoseToTail measures rocket positions from the nose towards the tail.
	NoseToTail
	// NozzleToCombustionChamber measures motor positions from the nozzle towards the combustion chamber.
	NozzleToCombustionChamber
	// CombustionChamberToNozzle measures motor positions from the combustion chamber towards the nozzle.
	CombustionChamberToNozzle
)

func (c CoordinateSystem) String() string {
	switch c {
	case TailToNose:
		return "tail_to_nose"
	case NoseToTail:
		return "nose_to_tail"
	case NozzleToCombustionChamber:
		return "nozzle_to_combustion_chamber"
	case CombustionChamberToNozzle:
		return "combustion_chamber_to_nozzle"
	default:
		panic("unknown coordinate system")
	}
}

// sign is +1 when positions grow towards the nose.
func (c CoordinateSystem) sign() float64 {
	if c == NoseToTail || c == CombustionChamberToNozzle {
		return -1
	}
	return 1
}

// CoordinateSystemFromString returns the coordinate system from its name.
func CoordinateSystemFromString(name string) (CoordinateSystem, error) {
	for _, c := range []CoordinateSystem{TailToNose, NoseToTail, NozzleToCombustionChamber, CombustionChamberToNozzle} {
		if strings.EqualFold(strings.TrimSpace(name), c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown coordinate system orientation `%s`", name)
}

// Inertia holds the principal moments of inertia (kg m^2) about the center of mass.
type Inertia struct {
	I11, I22, I33 float64
}

// Motor defines a rocket motor.
type Motor interface {
	Name() string
	Thrust(t float64) float64 // N
	BurnOutTime() float64     // s
	DryMass() float64         // kg
	DryInertia() Inertia
	PropellantMass(t float64) float64 // kg
	TotalMass(t float64) float64      // kg
	TotalImpulse() float64            // N s
	CenterOfDryMass() float64         // m, motor coordinates
	CenterOfMass(t float64) float64   // m, motor coordinates
	NozzleRadius() float64            // m
	NozzlePosition() float64          // m, motor coordinates
	Orientation() CoordinateSystem
}

// LoadThrustSource reads a thrust curve from a RASP .eng or a two column CSV file.
func LoadThrustSource(path string) (*Function, error) {
	if strings.EqualFold(filepath.Ext(path), ".eng") {
		f, _, err := LoadEngFile(path)
		return f, err
	}
	return LoadCSVFunction(filepath.Base(path), path)
}

// motorBase holds what is common to all motors.
type motorBase struct {
	name            string
	thrust          *Function
	burnTime        float64
	dryMass         float64
	dryInertia      Inertia
	nozzleRadius    float64
	centerOfDryMass float64
	nozzlePosition  float64
	orientation     CoordinateSystem
	impulse         float64
}

func newMotorBase(name string, thrust *Function, burnTime, dryMass float64, inertia Inertia, nozzleRadius, cdm, nozzlePos float64, orientation CoordinateSystem) (motorBase, error) {
	if thrust == nil {
		return motorBase{}, fmt.Errorf("motor %s: no thrust source", name)
	}
	if burnTime == 0 {
		_, burnTime = thrust.Domain()
	}
	if burnTime <= 0 {
		return motorBase{}, fmt.Errorf("motor %s: burn time must be positive", name)
	}
	if dryMass < 0 || nozzleRadius <= 0 {
		return motorBase{}, fmt.Errorf("motor %s: invalid dry mass (%f) or nozzle radius (%f)", name, dryMass, nozzleRadius)
	}
	if orientation == 0 {
		orientation = NozzleToCombustionChamber
	}
	if orientation != NozzleToCombustionChamber && orientation != CombustionChamberToNozzle {
		return motorBase{}, fmt.Errorf("motor %s: %s is not a motor coordinate system", name, orientation)
	}
	m := motorBase{name, thrust, burnTime, dryMass, inertia, nozzleRadius, cdm, nozzlePos, orientation, 0}
	m.impulse = thrust.Integral(0, burnTime)
	if m.impulse <= 0 {
		return motorBase{}, fmt.Errorf("motor %s: total impulse must be positive", name)
	}
	return m, nil
}

// Name returns the motor name.
func (m *motorBase) Name() string { return m.name }

// Thrust returns the thrust at time t, which is zero outside the burn.
func (m *motorBase) Thrust(t float64) float64 {
	if t < 0 || t > m.burnTime {
		return 0
	}
	return m.thrust.At(t)
}

// BurnOutTime returns the burn out time.
func (m *motorBase) BurnOutTime() float64 { return m.burnTime }

// DryMass returns the dry mass.
func (m *motorBase) DryMass() float64 { return m.dryMass }

// DryInertia returns the dry inertia.
func (m *motorBase) DryInertia() Inertia { return m.dryInertia }

// TotalImpulse returns the total impulse.
func (m *motorBase) TotalImpulse() float64 { return m.impulse }

// CenterOfDryMass returns the position of the center of dry mass.
func (m *motorBase) CenterOfDryMass() float64 { return m.centerOfDryMass }

// NozzleRadius returns the nozzle exit radius.
func (m *motorBase) NozzleRadius() float64 { return m.nozzleRadius }

// NozzlePosition returns the position of the nozzle exit.
func (m *motorBase) NozzlePosition() float64 { return m.nozzlePosition }

// Orientation returns the coordinate system of the motor positions.
func (m *motorBase) Orientation() CoordinateSystem { return m.orientation }

// AverageThrust returns the average thrust over the burn.
func (m *motorBase) AverageThrust() float64 { return m.impulse / m.burnTime }

// MaxThrust returns the maximum thrust during the burn and when it occurs.
func (m *motorBase) MaxThrust() (t, thrust float64) {
	xs, ys := m.thrust.Samples()
	for i, x := range xs {
		if x >= 0 && x <= m.burnTime && ys[i] > thrust {
			t, thrust = x, ys[i]
		}
	}
	return
}

// ThrustCurve returns the thrust source.
func (m *motorBase) ThrustCurve() *Function { return m.thrust }

// LiquidMotorConfig defines a LiquidMotor.
type LiquidMotorConfig struct {
	Name                    string
	ThrustSource            *Function
	BurnTime                float64 // defaults to the end of the thrust source
	DryMass                 float64
	DryInertia              Inertia
	NozzleRadius            float64
	CenterOfDryMassPosition float64
	NozzlePosition          float64
	CoordinateSystem        CoordinateSystem
}

type positionedTank struct {
	tank     *MassFlowRateBasedTank
	position float64
}

// LiquidMotor is a motor fed by MassFlowRateBasedTanks.
type LiquidMotor struct {
	motorBase
	tanks []positionedTank
}

// NewLiquidMotor returns a new LiquidMotor without tanks.
func NewLiquidMotor(cfg LiquidMotorConfig) (*LiquidMotor, error) {
	base, err := newMotorBase(cfg.Name, cfg.ThrustSource, cfg.BurnTime, cfg.DryMass, cfg.DryInertia, cfg.NozzleRadius, cfg.CenterOfDryMassPosition, cfg.NozzlePosition, cfg.CoordinateSystem)
	if err != nil {
		return nil, err
	}
	return &LiquidMotor{motorBase: base}, nil
}

// AddTank adds a tank whose center is at the provided position in motor coordinates.
func (m *LiquidMotor) AddTank(tank *MassFlowRateBasedTank, position float64) {
	m.tanks = append(m.tanks, positionedTank{tank, position})
}

// Tanks returns the tanks and their positions.
func (m *LiquidMotor) Tanks() ([]*MassFlowRateBasedTank, []float64) {
	tanks := make([]*MassFlowRateBasedTank, len(m.tanks))
	positions := make([]float64, len(m.tanks))
	for i, pt := range m.tanks {
		tanks[i], positions[i] = pt.tank, pt.position
	}
	return tanks, positions
}

// PropellantMass returns the fluid mass of all tanks at time t.
func (m *LiquidMotor) PropellantMass(t float64) (mass float64) {
	for _, pt := range m.tanks {
		mass += pt.tank.FluidMass(t)
	}
	return
}

// TotalMass returns the dry mass plus the propellant mass at time t.
func (m *LiquidMotor) TotalMass(t float64) float64 {
	return m.dryMass + m.PropellantMass(t)
}

// CenterOfMass returns the center of mass at time t, with the fluid of each tank at the tank center.
func (m *LiquidMotor) CenterOfMass(t float64) float64 {
	moment := m.dryMass * m.centerOfDryMass
	total := m.dryMass
	for _, pt := range m.tanks {
		mass := pt.tank.FluidMass(t)
		moment += mass * pt.position
		total += mass
	}
	if total == 0 {
		return m.centerOfDryMass
	}
	return moment / total
}

// ExhaustVelocity returns the effective exhaust velocity.
func (m *LiquidMotor) ExhaustVelocity() (float64, error) {
	if len(m.tanks) == 0 {
		return 0, errors.New("liquid motor has no tanks")
	}
	return m.impulse / m.PropellantMass(0), nil
}

// Validate checks that the motor can fly.
func (m *LiquidMotor) Validate() error {
	if len(m.tanks) == 0 {
		return fmt.Errorf("liquid motor %s has no tanks", m.name)
	}
	return nil
}

func (m *LiquidMotor) String() string {
	_, max := m.MaxThrust()
	return fmt.Sprintf("%s: liquid motor, %d tanks, propellant %.3f kg, dry %.3f kg, burn %.2f s, impulse %.1f N s, avg %.1f N, max %.1f N", m.name, len(m.tanks), m.PropellantMass(0), m.dryMass, m.burnTime, m.impulse, m.AverageThrust(), max)
}

// GenericMotorConfig defines a GenericMotor.
type GenericMotorConfig struct {
	Name                    string
	ThrustSource            *Function
	BurnTime                float64
	ChamberRadius           float64
	ChamberHeight           float64
	ChamberPosition         float64
	PropellantInitialMass   float64
	NozzleRadius            float64
	DryMass                 float64
	DryInertia              Inertia
	CenterOfDryMassPosition float64
	NozzlePosition          float64
	CoordinateSystem        CoordinateSystem
}

// GenericMotor is a motor whose propellant depletes in proportion to the impulse delivered.
type GenericMotor struct {
	motorBase
	cfg       GenericMotorConfig
	delivered *Function // cumulative impulse
}

// NewGenericMotor returns a new GenericMotor.
func NewGenericMotor(cfg GenericMotorConfig) (*GenericMotor, error) {
	if cfg.PropellantInitialMass <= 0 {
		return nil, fmt.Errorf("motor %s: propellant mass must be positive", cfg.Name)
	}
	if cfg.ChamberRadius <= 0 || cfg.ChamberHeight <= 0 {
		return nil, fmt.Errorf("motor %s: chamber radius and height must be positive", cfg.Name)
	}
	base, err := newMotorBase(cfg.Name, cfg.ThrustSource, cfg.BurnTime, cfg.DryMass, cfg.DryInertia, cfg.NozzleRadius, cfg.CenterOfDryMassPosition, cfg.NozzlePosition, cfg.CoordinateSystem)
	if err != nil {
		return nil, err
	}
	m := &GenericMotor{motorBase: base, cfg: cfg}
	xs, _ := cfg.ThrustSource.Samples()
	knots := []float64{0}
	for _, x := range xs {
		if x > 0 && x < base.burnTime {
			knots = append(knots, x)
		}
	}
	knots = append(knots, base.burnTime)
	cumulative := make([]float64, len(knots))
	for i := 1; i < len(knots); i++ {
		cumulative[i] = cumulative[i-1] + base.thrust.Integral(knots[i-1], knots[i])
	}
	if m.delivered, err = NewFunction(cfg.Name+" impulse", knots, cumulative); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the definition of this motor.
func (m *GenericMotor) Config() GenericMotorConfig { return m.cfg }

// PropellantMass returns the remaining propellant mass at time t.
func (m *GenericMotor) PropellantMass(t float64) float64 {
	if t <= 0 {
		return m.cfg.PropellantInitialMass
	}
	return math.Max(0, m.cfg.PropellantInitialMass*(1-m.delivered.At(t)/m.impulse))
}

// TotalMass returns the dry mass plus the propellant mass at time t.
func (m *GenericMotor) TotalMass(t float64) float64 {
	return m.dryMass + m.PropellantMass(t)
}

// CenterOfMass returns the center of mass at time t, with the propellant at the chamber position.
func (m *GenericMotor) CenterOfMass(t float64) float64 {
	prop := m.PropellantMass(t)
	total := m.dryMass + prop
	if total == 0 {
		return m.centerOfDryMass
	}
	return (m.dryMass*m.centerOfDryMass + prop*m.cfg.ChamberPosition) / total
}

// ExhaustVelocity returns the effective exhaust velocity.
func (m *GenericMotor) ExhaustVelocity() float64 {
	return m.impulse / m.cfg.PropellantInitialMass
}

// Rescaled returns a copy of this motor burning for burnTime seconds and delivering impulseScale times the impulse.
func (m *GenericMotor) Rescaled(impulseScale, burnTime float64) (*GenericMotor, error) {
	if impulseScale <= 0 || burnTime <= 0 {
		return nil, errors.New("impulse scale and burn time must be positive")
	}
	sx := burnTime / m.burnTime
	thrust, err := m.thrust.Scaled(sx, impulseScale/sx)
	if err != nil {
		return nil, err
	}
	cfg := m.cfg
	cfg.ThrustSource = thrust
	cfg.BurnTime = burnTime
	return NewGenericMotor(cfg)
}

func (m *GenericMotor) String() string {
	_, max := m.MaxThrust()
	return fmt.Sprintf("%s: generic motor, propellant %.3f kg, dry %.3f kg, burn %.2f s, impulse %.1f N s, avg %.1f N, max %.1f N, ve %.1f m/s", m.name, m.cfg.PropellantInitialMass, m.dryMass, m.burnTime, m.impulse, m.AverageThrust(), max, m.ExhaustVelocity())
}

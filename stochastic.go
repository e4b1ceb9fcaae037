package nimbus

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Family is the probability distribution of a stochastic value.
type Family uint8

const (
	// Normal is a Gaussian distribution around the nominal value.
	Normal Family = iota
	// Uniform is a uniform distribution within one standard deviation of the nominal value.
	Uniform
	// Triangular is a triangular distribution within one standard deviation, with its mode at the nominal value.
	Triangular
	// LogNormal is a log-normal distribution whose median is the nominal value, with StdDev/Nominal the
	// standard deviation of the underlying normal distribution.
	LogNormal
)

func (f Family) String() string {
	switch f {
	case Normal:
		return "normal"
	case Uniform:
		return "uniform"
	case Triangular:
		return "triangular"
	case LogNormal:
		return "lognormal"
	default:
		panic("unknown distribution family")
	}
}

// FamilyFromString returns the distribution family from its name.
func FamilyFromString(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "normal", "gaussian":
		return Normal, nil
	case "uniform":
		return Uniform, nil
	case "triangular":
		return Triangular, nil
	case "lognormal":
		return LogNormal, nil
	default:
		return 0, fmt.Errorf("unknown distribution `%s`", name)
	}
}

// StochasticValue is a parameter drawn from a distribution. The zero value keeps the value of the
// deterministic object it perturbs.
type StochasticValue struct {
	Nominal  float64
	StdDev   float64
	Family   Family
	absolute bool // Nominal set explicitly
}

// Std returns a stochastic value centered on the value of the deterministic object.
func Std(sd float64, family ...Family) StochasticValue {
	v := StochasticValue{StdDev: sd}
	if len(family) > 0 {
		v.Family = family[0]
	}
	return v
}

// Around returns a stochastic value centered on the provided nominal value.
func Around(nominal, sd float64, family ...Family) StochasticValue {
	v := Std(sd, family...)
	v.Nominal = nominal
	v.absolute = true
	return v
}

// Fixed returns a deterministic value.
func Fixed(value float64) StochasticValue {
	return Around(value, 0)
}

// IsDeterministic returns whether sampling this value always returns the nominal.
func (v StochasticValue) IsDeterministic() bool {
	return v.StdDev == 0
}

// around sets the nominal value unless it was set explicitly.
func (v StochasticValue) around(nominal float64) StochasticValue {
	if !v.absolute {
		v.Nominal = nominal
		v.absolute = true
	}
	return v
}

func (v StochasticValue) validate() error {
	if v.StdDev < 0 || math.IsNaN(v.StdDev) {
		return fmt.Errorf("negative standard deviation %f", v.StdDev)
	}
	if v.Family == LogNormal && v.StdDev > 0 && v.Nominal <= 0 {
		return fmt.Errorf("lognormal value needs a positive nominal, got %f", v.Nominal)
	}
	return nil
}

// Sample draws a value from the distribution.
func (v StochasticValue) Sample(src rand.Source) float64 {
	if v.StdDev == 0 {
		return v.Nominal
	}
	lo, hi := v.Nominal-v.StdDev, v.Nominal+v.StdDev
	switch v.Family {
	case Uniform:
		return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
	case Triangular:
		return distuv.NewTriangle(lo, hi, v.Nominal, src).Rand()
	case LogNormal:
		return distuv.LogNormal{Mu: math.Log(v.Nominal), Sigma: v.StdDev / v.Nominal, Src: src}.Rand()
	default:
		return distuv.Normal{Mu: v.Nominal, Sigma: v.StdDev, Src: src}.Rand()
	}
}

func (v StochasticValue) String() string {
	if v.IsDeterministic() {
		if !v.absolute {
			return "nominal"
		}
		return fmt.Sprintf("%g", v.Nominal)
	}
	if !v.absolute {
		return fmt.Sprintf("nominal ± %g (%s)", v.StdDev, v.Family)
	}
	return fmt.Sprintf("%g ± %g (%s)", v.Nominal, v.StdDev, v.Family)
}

// Sampler draws the stochastic values of one simulation and records them by name.
// The first invalid value makes Err return an error.
type Sampler struct {
	src    rand.Source
	rng    *rand.Rand
	values map[string]float64
	err    error
}

// NewSampler returns a new sampler seeded with the provided seed.
func NewSampler(seed uint64) *Sampler {
	src := rand.NewSource(seed)
	return &Sampler{src: src, rng: rand.New(src), values: make(map[string]float64)}
}

// Draw samples the value around the nominal (unless set explicitly) and records it under the name.
func (s *Sampler) Draw(name string, v StochasticValue, nominal float64) float64 {
	v = v.around(nominal)
	if err := v.validate(); err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("%s: %s", name, err)
		}
		return v.Nominal
	}
	x := v.Sample(s.src)
	s.values[name] = x
	return x
}

func (s *Sampler) record(name string, x float64) {
	s.values[name] = x
}

// Values returns the recorded values.
func (s *Sampler) Values() map[string]float64 {
	return s.values
}

// Err returns the first sampling error.
func (s *Sampler) Err() error {
	return s.err
}

// StochasticEnvironment perturbs an environment.
type StochasticEnvironment struct {
	Environment *Environment
	Elevation   StochasticValue
	// EnsembleMembers are the candidate wind members of an ensemble atmosphere, all of them if empty.
	EnsembleMembers []int
	// WindCovariance is the covariance of a Gaussian perturbation added to the (u, v) wind, no perturbation if nil.
	WindCovariance *mat.SymDense
}

// Create returns a new environment with sampled parameters.
func (s *StochasticEnvironment) Create(smp *Sampler) (*Environment, error) {
	if s.Environment == nil {
		return nil, errors.New("stochastic environment without an environment")
	}
	env := s.Environment.Clone()
	env.Elevation = smp.Draw("environment.elevation", s.Elevation, env.Elevation)
	if env.Kind() == EnsembleAtmosphere {
		members := s.EnsembleMembers
		if len(members) == 0 {
			members = make([]int, env.NumEnsembleMembers())
			for i := range members {
				members[i] = i
			}
		}
		member := members[smp.rng.Intn(len(members))]
		if err := env.SelectEnsembleMember(member); err != nil {
			return nil, err
		}
		smp.record("environment.ensemble_member", float64(member))
	}
	if s.WindCovariance != nil {
		dist, ok := distmv.NewNormal([]float64{0, 0}, s.WindCovariance, smp.src)
		if !ok {
			return nil, errors.New("wind covariance is not positive definite")
		}
		d := dist.Rand(nil)
		if env.kind == StandardAtmosphere {
			env.kind = CustomAtmosphere
		}
		env.wind.U += d[0]
		env.wind.V += d[1]
		smp.record("environment.wind_u", env.wind.U)
		smp.record("environment.wind_v", env.wind.V)
	}
	return env, smp.Err()
}

// StochasticNoseCone perturbs a nose cone.
type StochasticNoseCone struct {
	NoseCone *NoseCone
	Length   StochasticValue
}

func (s *StochasticNoseCone) create(smp *Sampler, baseRadius float64, position StochasticValue) (*NoseCone, error) {
	n := s.NoseCone
	length := smp.Draw(n.name+".length", s.Length, n.Length)
	pos := smp.Draw(n.name+".position", position, n.position)
	return NewNoseCone(n.name, length, n.Kind, baseRadius, pos)
}

// StochasticTrapezoidalFins perturbs a set of trapezoidal fins.
type StochasticTrapezoidalFins struct {
	Fins                             *TrapezoidalFins
	RootChord, TipChord, SweepLength StochasticValue
	Span, CantAngle                  StochasticValue
}

func (s *StochasticTrapezoidalFins) create(smp *Sampler, position StochasticValue) (*TrapezoidalFins, error) {
	cfg := s.Fins.Config()
	cfg.RootChord = smp.Draw(cfg.Name+".root_chord", s.RootChord, cfg.RootChord)
	cfg.TipChord = smp.Draw(cfg.Name+".tip_chord", s.TipChord, cfg.TipChord)
	cfg.SweepLength = smp.Draw(cfg.Name+".sweep_length", s.SweepLength, cfg.SweepLength)
	cfg.Span = smp.Draw(cfg.Name+".span", s.Span, cfg.Span)
	cfg.CantAngle = smp.Draw(cfg.Name+".cant_angle", s.CantAngle, cfg.CantAngle)
	cfg.Position = smp.Draw(cfg.Name+".position", position, cfg.Position)
	return NewTrapezoidalFins(cfg)
}

// StochasticTail perturbs a tail.
type StochasticTail struct {
	Tail                    *Tail
	TopRadius, BottomRadius StochasticValue
	Length                  StochasticValue
}

func (s *StochasticTail) create(smp *Sampler, position StochasticValue) (*Tail, error) {
	t := s.Tail
	top := smp.Draw(t.name+".top_radius", s.TopRadius, t.TopRadius)
	bottom := smp.Draw(t.name+".bottom_radius", s.BottomRadius, t.BottomRadius)
	length := smp.Draw(t.name+".length", s.Length, t.Length)
	pos := smp.Draw(t.name+".position", position, t.position)
	return NewTail(t.name, top, bottom, length, pos)
}

// StochasticMotor perturbs a motor. Only a GenericMotor can have its impulse or burn time perturbed:
// its thrust curve is rescaled to the sampled total impulse over the sampled burn time.
type StochasticMotor struct {
	Motor        Motor
	TotalImpulse StochasticValue // N s
	BurnOutTime  StochasticValue // s
}

// Create returns the motor with sampled parameters.
func (s *StochasticMotor) Create(smp *Sampler) (Motor, error) {
	if s.TotalImpulse.IsDeterministic() && s.BurnOutTime.IsDeterministic() && !s.TotalImpulse.absolute && !s.BurnOutTime.absolute {
		return s.Motor, nil
	}
	generic, ok := s.Motor.(*GenericMotor)
	if !ok {
		return nil, fmt.Errorf("motor %s: only a generic motor can be perturbed", s.Motor.Name())
	}
	nominal := generic.TotalImpulse()
	impulse := smp.Draw("motor.total_impulse", s.TotalImpulse, nominal)
	burn := smp.Draw("motor.burn_out_time", s.BurnOutTime, generic.BurnOutTime())
	if err := smp.Err(); err != nil {
		return nil, err
	}
	if impulse <= 0 || burn <= 0 {
		return nil, fmt.Errorf("motor %s: sampled impulse %f N s over %f s", s.Motor.Name(), impulse, burn)
	}
	return generic.Rescaled(impulse/nominal, burn)
}

// StochasticParachute perturbs a parachute.
type StochasticParachute struct {
	Parachute *Parachute
	CdS, Lag  StochasticValue
}

func (s *StochasticParachute) create(smp *Sampler) ParachuteConfig {
	cfg := s.Parachute.ParachuteConfig
	cfg.CdS = smp.Draw(cfg.Name+".cd_s", s.CdS, cfg.CdS)
	cfg.Lag = math.Max(0, smp.Draw(cfg.Name+".lag", s.Lag, cfg.Lag))
	return cfg
}

type stochasticFins struct {
	fins     *StochasticTrapezoidalFins
	position StochasticValue
}

// StochasticRocket perturbs a rocket. Its drag curves, coordinate system and rail buttons are those of
// the deterministic rocket; the motor, aerosurfaces and parachutes are those added to it.
type StochasticRocket struct {
	Rocket                          *Rocket
	Radius, Mass                    StochasticValue
	Inertia11, Inertia22, Inertia33 StochasticValue
	CenterOfMassWithoutMotor        StochasticValue
	// PowerOffDragFactor and PowerOnDragFactor scale the drag curves, with a nominal of one.
	PowerOffDragFactor, PowerOnDragFactor StochasticValue
	motor                                 *StochasticMotor
	motorPosition                         StochasticValue
	nose                                  *StochasticNoseCone
	nosePosition                          StochasticValue
	fins                                  []stochasticFins
	tail                                  *StochasticTail
	tailPosition                          StochasticValue
	parachutes                            []*StochasticParachute
}

// AddMotor sets the motor. A zero position keeps the motor position of the deterministic rocket.
func (s *StochasticRocket) AddMotor(m *StochasticMotor, position StochasticValue) {
	s.motor = m
	s.motorPosition = position
}

// AddNose sets the nose cone. A zero position keeps the position of the deterministic nose cone.
func (s *StochasticRocket) AddNose(n *StochasticNoseCone, position StochasticValue) {
	s.nose = n
	s.nosePosition = position
}

// AddTrapezoidalFins adds a set of fins, possibly one of several (e.g. fins and canards).
func (s *StochasticRocket) AddTrapezoidalFins(f *StochasticTrapezoidalFins, position StochasticValue) {
	s.fins = append(s.fins, stochasticFins{f, position})
}

// AddTail sets the tail.
func (s *StochasticRocket) AddTail(t *StochasticTail, position StochasticValue) {
	s.tail = t
	s.tailPosition = position
}

// AddParachute adds a parachute.
func (s *StochasticRocket) AddParachute(p *StochasticParachute) {
	s.parachutes = append(s.parachutes, p)
}

// Create returns a new rocket with sampled parameters.
func (s *StochasticRocket) Create(smp *Sampler) (*Rocket, error) {
	if s.Rocket == nil {
		return nil, errors.New("stochastic rocket without a rocket")
	}
	cfg := s.Rocket.RocketConfig
	cfg.Radius = smp.Draw("rocket.radius", s.Radius, cfg.Radius)
	cfg.Mass = smp.Draw("rocket.mass", s.Mass, cfg.Mass)
	cfg.Inertia.I11 = smp.Draw("rocket.inertia_11", s.Inertia11, cfg.Inertia.I11)
	cfg.Inertia.I22 = smp.Draw("rocket.inertia_22", s.Inertia22, cfg.Inertia.I22)
	cfg.Inertia.I33 = smp.Draw("rocket.inertia_33", s.Inertia33, cfg.Inertia.I33)
	cfg.CenterOfMassWithoutMotor = smp.Draw("rocket.center_of_mass_without_motor", s.CenterOfMassWithoutMotor, cfg.CenterOfMassWithoutMotor)
	var err error
	if !s.PowerOffDragFactor.IsDeterministic() || s.PowerOffDragFactor.absolute {
		k := smp.Draw("rocket.power_off_drag", s.PowerOffDragFactor, 1)
		if cfg.PowerOffDrag, err = cfg.PowerOffDrag.Scaled(1, k); err != nil {
			return nil, err
		}
	}
	if !s.PowerOnDragFactor.IsDeterministic() || s.PowerOnDragFactor.absolute {
		k := smp.Draw("rocket.power_on_drag", s.PowerOnDragFactor, 1)
		if cfg.PowerOnDrag, err = cfg.PowerOnDrag.Scaled(1, k); err != nil {
			return nil, err
		}
	}
	if err := smp.Err(); err != nil {
		return nil, err
	}
	r, err := NewRocket(cfg)
	if err != nil {
		return nil, err
	}
	if s.motor != nil {
		m, err := s.motor.Create(smp)
		if err != nil {
			return nil, err
		}
		r.AddMotor(m, smp.Draw("motor.position", s.motorPosition, s.Rocket.MotorPosition()))
	}
	if s.nose != nil {
		n, err := s.nose.create(smp, cfg.Radius, s.nosePosition)
		if err != nil {
			return nil, err
		}
		r.AddSurface(n)
	}
	for _, f := range s.fins {
		fins, err := f.fins.create(smp, f.position)
		if err != nil {
			return nil, err
		}
		r.AddSurface(fins)
	}
	if s.tail != nil {
		t, err := s.tail.create(smp, s.tailPosition)
		if err != nil {
			return nil, err
		}
		r.AddSurface(t)
	}
	if b := s.Rocket.RailButtons(); b != nil {
		if err := r.SetRailButtons(b.Upper, b.Lower, b.AngularPosition); err != nil {
			return nil, err
		}
	}
	for _, p := range s.parachutes {
		if _, err := r.AddParachute(p.create(smp)); err != nil {
			return nil, err
		}
	}
	return r, smp.Err()
}

// StochasticFlight perturbs the launch of a flight.
type StochasticFlight struct {
	// Flight is the deterministic flight; its rocket and environment are replaced by the sampled ones.
	Flight                           FlightConfig
	RailLength, Inclination, Heading StochasticValue
}

// Create returns the configuration of a flight with sampled launch parameters.
func (s *StochasticFlight) Create(smp *Sampler, rocket *Rocket, env *Environment) (FlightConfig, error) {
	cfg := s.Flight
	cfg.Rocket = rocket
	cfg.Environment = env
	if cfg.InitialSolution == nil {
		cfg.RailLength = smp.Draw("flight.rail_length", s.RailLength, cfg.RailLength)
	}
	cfg.Inclination = smp.Draw("flight.inclination", s.Inclination, cfg.Inclination)
	cfg.Heading = smp.Draw("flight.heading", s.Heading, cfg.Heading)
	cfg.InitialSolution = append([]float64(nil), cfg.InitialSolution...)
	if len(cfg.InitialSolution) == 0 {
		cfg.InitialSolution = nil
	}
	return cfg, smp.Err()
}

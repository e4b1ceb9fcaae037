package vehicle

import (
	"fmt"

	nimbus "github.com/icl-rocketry/Nimbus-24"
)

// Manufacturing and launch uncertainties (standard deviations) of the dispersion analysis.
var (
	RadiusStd        = Radius / 2000
	AscentMass       = nimbus.Around(35.793, 0.1, nimbus.Normal)
	DescentMass      = nimbus.Around(32.793, 0.1, nimbus.Normal)
	AscentInertia11  = nimbus.Around(58.1, 0.01)
	DescentInertia11 = nimbus.Around(42.2, 0.01)
	InertiaStd       = 0.01
	NoseLengthStd    = 0.001
	NosePosition     = nimbus.Around(NoseTip, 0.001)
	FinChordStd      = 0.0005
	TailStd          = 0.001
	MotorPositionStd = 0.001
	InclinationStd   = 1.0 // degrees
	HeadingStd       = 2.0 // degrees
	ImpulseStd       = 0.0 // N s
)

type components struct {
	nose    *nimbus.NoseCone
	fins    *nimbus.TrapezoidalFins
	canards *nimbus.TrapezoidalFins
	tail    *nimbus.Tail
}

func findComponents(rocket *nimbus.Rocket) (c components, err error) {
	for _, s := range rocket.Surfaces() {
		switch s := s.(type) {
		case *nimbus.NoseCone:
			c.nose = s
		case *nimbus.Tail:
			c.tail = s
		case *nimbus.TrapezoidalFins:
			if s.Name() == Canards.Name {
				c.canards = s
			} else {
				c.fins = s
			}
		}
	}
	if c.nose == nil || c.fins == nil || c.tail == nil {
		return c, fmt.Errorf("rocket %s is missing its nose, fins or tail", rocket.Name)
	}
	return c, nil
}

func stochasticRocket(rocket *nimbus.Rocket, mass, inertia11 nimbus.StochasticValue, withCanards bool) (*nimbus.StochasticRocket, error) {
	c, err := findComponents(rocket)
	if err != nil {
		return nil, err
	}
	sr := &nimbus.StochasticRocket{
		Rocket:    rocket,
		Radius:    nimbus.Std(RadiusStd),
		Mass:      mass,
		Inertia11: inertia11,
		Inertia22: nimbus.Std(InertiaStd),
		Inertia33: nimbus.Std(InertiaStd),
	}
	sr.AddNose(&nimbus.StochasticNoseCone{NoseCone: c.nose, Length: nimbus.Std(NoseLengthStd)}, NosePosition)
	fins := func(f *nimbus.TrapezoidalFins) *nimbus.StochasticTrapezoidalFins {
		return &nimbus.StochasticTrapezoidalFins{Fins: f, RootChord: nimbus.Std(FinChordStd), TipChord: nimbus.Std(FinChordStd), Span: nimbus.Std(FinChordStd)}
	}
	sr.AddTrapezoidalFins(fins(c.fins), nimbus.StochasticValue{})
	if withCanards && c.canards != nil {
		sr.AddTrapezoidalFins(fins(c.canards), nimbus.StochasticValue{})
	}
	sr.AddTail(&nimbus.StochasticTail{Tail: c.tail, TopRadius: nimbus.Std(TailStd), BottomRadius: nimbus.Std(TailStd), Length: nimbus.Std(TailStd)}, nimbus.StochasticValue{})
	for _, p := range rocket.Parachutes() {
		sr.AddParachute(&nimbus.StochasticParachute{Parachute: p})
	}
	return sr, nil
}

// StochasticAscent returns the dispersed ascent rocket, flying the provided generic motor.
func StochasticAscent(rocket *nimbus.Rocket, motor *nimbus.GenericMotor, withCanards bool) (*nimbus.StochasticRocket, error) {
	sr, err := stochasticRocket(rocket, AscentMass, AscentInertia11, withCanards)
	if err != nil {
		return nil, err
	}
	sr.AddMotor(&nimbus.StochasticMotor{Motor: motor, TotalImpulse: nimbus.Std(ImpulseStd)}, nimbus.Std(MotorPositionStd))
	return sr, nil
}

// StochasticDescent returns the dispersed descent rocket with its parachutes.
func StochasticDescent(rocket *nimbus.Rocket, withCanards bool) (*nimbus.StochasticRocket, error) {
	return stochasticRocket(rocket, DescentMass, DescentInertia11, withCanards)
}

// AscentDispersion returns the dispersed launch of the ascent flight.
func AscentDispersion(ascent nimbus.FlightConfig) *nimbus.StochasticFlight {
	return &nimbus.StochasticFlight{
		Flight:      ascent,
		Inclination: nimbus.Std(InclinationStd),
		Heading:     nimbus.Std(HeadingStd),
	}
}

// DescentDispersion returns the descent flight starting from the provided state, with a deterministic launch.
func DescentDispersion(descent nimbus.FlightConfig, initialSolution []float64) *nimbus.StochasticFlight {
	descent.InitialSolution = initialSolution
	return &nimbus.StochasticFlight{Flight: descent}
}

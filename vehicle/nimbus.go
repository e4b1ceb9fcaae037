package vehicle

import (
	"fmt"

	nimbus "github.com/icl-rocketry/Nimbus-24"
)

// Launch site and airframe constants.
const (
	Latitude  = 39.4751
	Longitude = -8.3764
	Elevation = 78.0 // m

	Radius        = 0.097 // m
	NoseTip       = 4.28  // m from the tail
	NoseLength    = 0.35
	FinRadius     = 0.076 // body radius at the fins
	DragCurveFile = "dragCurve.csv"
	AirfoilFile   = "NACA0012.csv"
)

// LaunchSite returns the launch site environment with the standard atmosphere.
func LaunchSite() (*nimbus.Environment, error) {
	return nimbus.NewEnvironment(Latitude, Longitude, Elevation)
}

// Airframe is a revision of the Nimbus fin and boattail geometry.
type Airframe struct {
	Name         string
	Fins         nimbus.FinsConfig
	TailLength   float64
	TailPosition float64
	RailButtons  bool
	RailLength   float64 // m
	Inclination  float64 // degrees
}

// Airframe revisions.
var (
	// Baseline is the first configuration, launched from a 10 m rail.
	Baseline = Airframe{
		Name:         "baseline",
		Fins:         nimbus.FinsConfig{N: 3, RootChord: 0.322, TipChord: 0.15, SweepLength: 0.1, Span: 0.236, Position: 0.32, Radius: FinRadius},
		TailLength:   0.322,
		TailPosition: 0.322,
		RailLength:   10,
		Inclination:  85,
	}
	// Ballistic is the configuration of the ballistic descent analysis.
	Ballistic = Airframe{
		Name:         "ballistic",
		Fins:         nimbus.FinsConfig{N: 3, RootChord: 0.28, TipChord: 0.13, SweepLength: 0.13, Span: 0.235, Position: 0.28, Radius: FinRadius},
		TailLength:   0.302,
		TailPosition: 0.302,
		RailLength:   12,
		Inclination:  86,
	}
	// Dispersion is the configuration of the Monte Carlo dispersion analysis, with rail buttons.
	Dispersion = Airframe{
		Name:         "dispersion",
		Fins:         nimbus.FinsConfig{N: 3, RootChord: 0.28, TipChord: 0.13, SweepLength: 0.13, Span: 0.225, Position: 0.32, Radius: FinRadius},
		TailLength:   0.302,
		TailPosition: 0.302,
		RailButtons:  true,
		RailLength:   12,
		Inclination:  86,
	}
)

// AirframeFromString returns the airframe revision from its name.
func AirframeFromString(name string) (Airframe, error) {
	for _, af := range []Airframe{Baseline, Ballistic, Dispersion} {
		if af.Name == name {
			return af, nil
		}
	}
	return Airframe{}, fmt.Errorf("unknown airframe `%s`", name)
}

// Canards are the canards, identical across airframe revisions.
var Canards = nimbus.FinsConfig{Name: "canards", N: 3, RootChord: 0.12, TipChord: 0.05, SweepLength: 0.085, Span: 0.06, Position: 3.04}

// Rail buttons of the airframes which have them.
const (
	UpperButton = 2.96
	LowerButton = 0.36
	ButtonAngle = 60.0 // degrees
)

func newRocket(name string, mass float64, inertia nimbus.Inertia, cm float64, af Airframe) (*nimbus.Rocket, error) {
	drag, err := nimbus.LoadCSVFunction("drag", nimbus.DataPath(DragCurveFile))
	if err != nil {
		return nil, err
	}
	rocket, err := nimbus.NewRocket(nimbus.RocketConfig{
		Name:                     name,
		Radius:                   Radius,
		Mass:                     mass,
		Inertia:                  inertia,
		PowerOffDrag:             drag,
		PowerOnDrag:              drag,
		CenterOfMassWithoutMotor: cm,
		CoordinateSystem:         nimbus.TailToNose,
	})
	if err != nil {
		return nil, err
	}
	if _, err := rocket.AddNose(NoseLength, nimbus.VonKarman, NoseTip); err != nil {
		return nil, err
	}
	if _, err := rocket.AddTrapezoidalFins(af.Fins); err != nil {
		return nil, err
	}
	airfoil, err := nimbus.LoadAirfoil(nimbus.DataPath(AirfoilFile), true)
	if err != nil {
		return nil, err
	}
	canards := Canards
	canards.Airfoil = airfoil
	if _, err := rocket.AddTrapezoidalFins(canards); err != nil {
		return nil, err
	}
	if _, err := rocket.AddTail(Radius, FinRadius, af.TailLength, af.TailPosition); err != nil {
		return nil, err
	}
	if af.RailButtons {
		if err := rocket.SetRailButtons(UpperButton, LowerButton, ButtonAngle); err != nil {
			return nil, err
		}
	}
	return rocket, nil
}

// Ascent returns the rocket with its payload and the provided motor at the tail.
// The mass excludes the motor and its tanks.
func Ascent(af Airframe, motor nimbus.Motor) (*nimbus.Rocket, error) {
	rocket, err := newRocket("NimbusAscent", 35.793, nimbus.Inertia{I11: 58.1, I22: 58.1, I33: 0.231}, NoseTip-2.3, af)
	if err != nil {
		return nil, err
	}
	rocket.AddMotor(motor, 0)
	return rocket, nil
}

// Descent returns the rocket after the payload deployment, without its motor (burnt out and empty).
func Descent(af Airframe, parachutes ...nimbus.ParachuteConfig) (*nimbus.Rocket, error) {
	rocket, err := newRocket("NimbusDescent", 32.793, nimbus.Inertia{I11: 42.2, I22: 42.2, I33: 0.222}, NoseTip-2.24, af)
	if err != nil {
		return nil, err
	}
	for _, p := range parachutes {
		if _, err := rocket.AddParachute(p); err != nil {
			return nil, err
		}
	}
	return rocket, nil
}

// Recovery parameters.
const (
	MainCdS         = 29.128
	BaselineMainCdS = 16.073
	DrogueCdS       = 0.274
	DrogueVelocity  = -10.0  // m/s
	DrogueCeiling   = 3000.0 // m AGL
	MainAltitude    = 450.0  // m AGL
)

// TriggerNoise is the pressure noise of the recovery electronics.
var TriggerNoise = nimbus.Noise{Mean: 0, StdDev: 8.3, Correlation: 0.5}

// Main returns the main parachute released by the provided trigger.
func Main(cds float64, trigger nimbus.Trigger) nimbus.ParachuteConfig {
	return nimbus.ParachuteConfig{Name: "main", CdS: cds, Trigger: trigger, SamplingRate: 100, Noise: TriggerNoise}
}

// Drogue returns the drogue parachute released by the provided trigger.
func Drogue(trigger nimbus.Trigger) nimbus.ParachuteConfig {
	return nimbus.ParachuteConfig{Name: "drogue", CdS: DrogueCdS, Trigger: trigger, SamplingRate: 100, Noise: TriggerNoise}
}

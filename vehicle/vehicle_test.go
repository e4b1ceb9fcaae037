package vehicle

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	nimbus "github.com/icl-rocketry/Nimbus-24"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "nimbus-vehicle")
	if err != nil {
		panic(err)
	}
	conf := fmt.Sprintf("[general]\ndata_path = \"../data\"\noutput_path = %q\n", filepath.Join(dir, "output"))
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(conf), 0644); err != nil {
		panic(err)
	}
	os.Setenv("NIMBUS_CONFIG", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestThanosR(t *testing.T) {
	motor, err := ThanosR()
	if err != nil {
		t.Fatal(err)
	}
	tanks, positions := motor.Tanks()
	if len(tanks) != 3 || positions[2] != 2.1745 {
		t.Fatalf("%d tanks at %v", len(tanks), positions)
	}
	if m := motor.PropellantMass(0); !scalar.EqualWithinAbs(m, 11.5, 1e-9) {
		t.Fatalf("initial propellant %f kg", m)
	}
	if m := motor.TotalMass(0); !scalar.EqualWithinAbs(m, 27.7, 1e-9) {
		t.Fatalf("total mass %f kg", m)
	}
	// Nitrogen flows into the propellant tanks as they drain.
	if gas := tanks[0].GasMass(FluxTime); gas <= 0 {
		t.Fatalf("oxidizer tank gas %f kg", gas)
	}
	if gas := tanks[2].GasMass(FluxTime); gas != 0 {
		t.Fatalf("nitrogen tank gas %f kg", gas)
	}
	if liquid := tanks[1].LiquidMass(FluxTime); !scalar.EqualWithinAbs(liquid, 0, 1e-4) {
		t.Fatalf("fuel left at the end %f kg", liquid)
	}
	if motor.BurnOutTime() != BurnTime || !scalar.EqualWithinAbs(motor.TotalImpulse(), 21967.5, 1e-6) {
		t.Fatalf("burn %f s, impulse %f N s", motor.BurnOutTime(), motor.TotalImpulse())
	}
}

func TestGenericThanosR(t *testing.T) {
	generic, err := GenericThanosR()
	if err != nil {
		t.Fatal(err)
	}
	liquid, err := ThanosR()
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(generic.TotalImpulse(), liquid.TotalImpulse(), 1e-6) {
		t.Fatalf("generic impulse %f, liquid %f", generic.TotalImpulse(), liquid.TotalImpulse())
	}
	if generic.PropellantMass(0) != 11 || generic.BurnOutTime() != FluxTime {
		t.Fatalf("generic motor %s", generic)
	}
}

func TestAirframes(t *testing.T) {
	motor, err := ThanosR()
	if err != nil {
		t.Fatal(err)
	}
	for _, af := range []Airframe{Baseline, Ballistic, Dispersion} {
		parsed, err := AirframeFromString(af.Name)
		if err != nil || parsed.Name != af.Name {
			t.Fatalf("%s: %v", af.Name, err)
		}
		ascent, err := Ascent(af, motor)
		if err != nil {
			t.Fatal(err)
		}
		if len(ascent.Surfaces()) != 4 {
			t.Fatalf("%s: %d surfaces", af.Name, len(ascent.Surfaces()))
		}
		if (ascent.RailButtons() != nil) != af.RailButtons {
			t.Fatalf("%s: rail buttons %v", af.Name, ascent.RailButtons())
		}
		margin, err := ascent.StaticMargin(0)
		if err != nil {
			t.Fatal(err)
		}
		if margin < 1.5 || margin > 4 {
			t.Fatalf("%s: static margin %f", af.Name, margin)
		}
		descent, err := Descent(af, Main(MainCdS, nimbus.MainTrigger(MainAltitude)))
		if err != nil {
			t.Fatal(err)
		}
		if descent.Motor() != nil || len(descent.Parachutes()) != 1 {
			t.Fatalf("%s: descent rocket %v", af.Name, descent.Parachutes())
		}
	}
	if _, err := AirframeFromString("concorde"); err == nil {
		t.Fatal("unknown airframe accepted")
	}
}

func TestNominalFlight(t *testing.T) {
	env, err := LaunchSite()
	if err != nil {
		t.Fatal(err)
	}
	motor, err := ThanosR()
	if err != nil {
		t.Fatal(err)
	}
	rocket, err := Ascent(Dispersion, motor)
	if err != nil {
		t.Fatal(err)
	}
	ascent, err := nimbus.RunFlight(nimbus.FlightConfig{Name: "Ascent", Rocket: rocket, Environment: env, RailLength: Dispersion.RailLength, Inclination: Dispersion.Inclination, TerminateOnApogee: true, Step: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if agl := ascent.Results().ApogeeAGL; agl < 3000 || agl > 4700 {
		t.Fatalf("apogee %f m AGL", agl)
	}
	descentRocket, err := Descent(Dispersion, Main(MainCdS, nimbus.MainTrigger(MainAltitude)), Drogue(nimbus.DrogueTrigger(DrogueVelocity)))
	if err != nil {
		t.Fatal(err)
	}
	descent, err := nimbus.RunFlight(nimbus.FlightConfig{Name: "Descent", Rocket: descentRocket, Environment: env, InitialSolution: ascent.FinalState(), Step: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	r := descent.Results()
	if !r.Impacted || len(r.Parachutes) != 2 {
		t.Fatalf("descent impacted %v with %d parachutes", r.Impacted, len(r.Parachutes))
	}
	if r.ImpactVelocity > 6 {
		t.Fatalf("landing at %f m/s", r.ImpactVelocity)
	}
}

func TestDispersionTables(t *testing.T) {
	motor, err := GenericThanosR()
	if err != nil {
		t.Fatal(err)
	}
	rocket, err := Ascent(Dispersion, motor)
	if err != nil {
		t.Fatal(err)
	}
	sr, err := StochasticAscent(rocket, motor, true)
	if err != nil {
		t.Fatal(err)
	}
	smp := nimbus.NewSampler(11)
	sampled, err := sr.Create(smp)
	if err != nil {
		t.Fatal(err)
	}
	if len(sampled.Surfaces()) != 4 || sampled.Motor() != motor {
		t.Fatalf("sampled rocket with %d surfaces", len(sampled.Surfaces()))
	}
	if !scalar.EqualWithinAbs(sampled.Radius, Radius, 10*RadiusStd) || sampled.Radius == Radius {
		t.Fatalf("sampled radius %f", sampled.Radius)
	}
	if _, ok := smp.Values()["canards.root_chord"]; !ok {
		t.Fatal("canards not dispersed")
	}
	without, err := StochasticAscent(rocket, motor, false)
	if err != nil {
		t.Fatal(err)
	}
	sampled, err = without.Create(nimbus.NewSampler(11))
	if err != nil {
		t.Fatal(err)
	}
	if len(sampled.Surfaces()) != 3 {
		t.Fatalf("%d surfaces without canards", len(sampled.Surfaces()))
	}

	descentRocket, err := Descent(Dispersion, Main(MainCdS, nimbus.MainTrigger(MainAltitude)), Drogue(nimbus.DrogueTrigger(DrogueVelocity)))
	if err != nil {
		t.Fatal(err)
	}
	sd, err := StochasticDescent(descentRocket, true)
	if err != nil {
		t.Fatal(err)
	}
	sampled, err = sd.Create(nimbus.NewSampler(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(sampled.Parachutes()) != 2 || sampled.Motor() != nil {
		t.Fatal("descent parachutes not carried over")
	}
	flight := AscentDispersion(nimbus.FlightConfig{Name: "Ascent", RailLength: 12, Inclination: 86})
	if flight.Inclination.StdDev != InclinationStd || flight.Heading.StdDev != HeadingStd {
		t.Fatalf("ascent dispersion %+v", flight)
	}
	state := []float64{28, 0, 570, 3870, 0, 0, 0}
	if d := DescentDispersion(nimbus.FlightConfig{Name: "Descent"}, state); d.Flight.InitialSolution[0] != 28 {
		t.Fatal("descent dispersion does not start from the ascent state")
	}
}

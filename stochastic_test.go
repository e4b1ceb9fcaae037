package nimbus

import (
	"sort"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func testGenericMotor(t *testing.T) *GenericMotor {
	motor, err := NewGenericMotor(GenericMotorConfig{
		Name:                    "GenericThanosR",
		ThrustSource:            testThrustCurve(t),
		BurnTime:                4.65,
		ChamberRadius:           0.085,
		ChamberHeight:           1.004,
		ChamberPosition:         1,
		PropellantInitialMass:   11,
		NozzleRadius:            0.025,
		DryMass:                 16.2,
		CenterOfDryMassPosition: 1.0824,
	})
	if err != nil {
		t.Fatal(err)
	}
	return motor
}

// testStochasticAscent returns the stochastic counterpart of the ascent rocket, using the generic motor.
func testStochasticAscent(t *testing.T) *StochasticRocket {
	rocket := testAscentRocket(t)
	surfaces := rocket.Surfaces()
	sr := &StochasticRocket{
		Rocket:    rocket,
		Radius:    Std(0.097 / 2000),
		Mass:      Around(35.793, 0.1, Normal),
		Inertia11: Around(58.1, 0.01),
		Inertia22: Std(0.01),
		Inertia33: Std(0.01),
	}
	sr.AddMotor(&StochasticMotor{Motor: testGenericMotor(t), TotalImpulse: Std(200)}, Std(0.001))
	sr.AddNose(&StochasticNoseCone{NoseCone: surfaces[0].(*NoseCone), Length: Std(0.001)}, Around(4.28, 0.001))
	sr.AddTrapezoidalFins(&StochasticTrapezoidalFins{Fins: surfaces[1].(*TrapezoidalFins), RootChord: Std(0.0005), TipChord: Std(0.0005), Span: Std(0.0005)}, Fixed(0.32))
	sr.AddTrapezoidalFins(&StochasticTrapezoidalFins{Fins: surfaces[2].(*TrapezoidalFins), RootChord: Std(0.0005), TipChord: Std(0.0005), Span: Std(0.0005)}, StochasticValue{})
	sr.AddTail(&StochasticTail{Tail: surfaces[3].(*Tail), TopRadius: Std(0.001), BottomRadius: Std(0.001), Length: Std(0.001)}, StochasticValue{})
	return sr
}

func TestStochasticValue(t *testing.T) {
	smp := NewSampler(1)
	if v := smp.Draw("keep", StochasticValue{}, 5); v != 5 {
		t.Fatalf("zero value changed the nominal to %f", v)
	}
	if v := smp.Draw("fixed", Fixed(3), 5); v != 3 {
		t.Fatalf("fixed value %f", v)
	}
	if v := smp.Draw("nominal", Std(0), 7); v != 7 {
		t.Fatalf("zero deviation value %f", v)
	}
	if smp.Values()["fixed"] != 3 || len(smp.Values()) != 3 {
		t.Fatalf("recorded values %v", smp.Values())
	}
	if smp.Err() != nil {
		t.Fatal(smp.Err())
	}
	smp.Draw("bad", Around(0, 1, LogNormal), 0)
	smp.Draw("worse", Std(-1), 1)
	if smp.Err() == nil {
		t.Fatal("lognormal around zero accepted")
	}
}

func TestStochasticFamilies(t *testing.T) {
	src := rand.NewSource(42)
	const n = 20000
	draw := func(v StochasticValue) []float64 {
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = v.Sample(src)
		}
		return xs
	}
	mean, std := stat.MeanStdDev(draw(Around(10, 2)), nil)
	if !scalar.EqualWithinAbs(mean, 10, 0.1) || !scalar.EqualWithinAbs(std, 2, 0.1) {
		t.Fatalf("normal: %f ± %f", mean, std)
	}
	for _, family := range []Family{Uniform, Triangular} {
		xs := draw(Around(10, 2, family))
		for _, x := range xs {
			if x < 8 || x > 12 {
				t.Fatalf("%s: %f out of bounds", family, x)
			}
		}
		if mean := stat.Mean(xs, nil); !scalar.EqualWithinAbs(mean, 10, 0.1) {
			t.Fatalf("%s: mean %f", family, mean)
		}
	}
	xs := draw(Around(10, 1, LogNormal))
	sort.Float64s(xs)
	if xs[0] <= 0 {
		t.Fatal("negative lognormal sample")
	}
	if median := xs[n/2]; !scalar.EqualWithinAbs(median, 10, 0.2) {
		t.Fatalf("lognormal median %f", median)
	}
}

func TestFamilyFromString(t *testing.T) {
	for _, f := range []Family{Normal, Uniform, Triangular, LogNormal} {
		got, err := FamilyFromString(f.String())
		if err != nil || got != f {
			t.Fatalf("%s: %s %v", f, got, err)
		}
	}
	if _, err := FamilyFromString("beta"); err == nil {
		t.Fatal("unknown family accepted")
	}
}

func TestStochasticRocket(t *testing.T) {
	sr := testStochasticAscent(t)
	a, err := sr.Create(NewSampler(7))
	if err != nil {
		t.Fatal(err)
	}
	smp := NewSampler(7)
	b, err := sr.Create(smp)
	if err != nil {
		t.Fatal(err)
	}
	if a.Mass != b.Mass || a.Radius != b.Radius {
		t.Fatal("same seed gave different rockets")
	}
	if a.Mass == 35.793 || !scalar.EqualWithinAbs(a.Mass, 35.793, 1) {
		t.Fatalf("sampled mass %f", a.Mass)
	}
	if len(a.Surfaces()) != 4 {
		t.Fatalf("%d surfaces", len(a.Surfaces()))
	}
	values := smp.Values()
	for _, key := range []string{"rocket.radius", "rocket.mass", "motor.total_impulse", "motor.position", "nose cone.length", "fins.root_chord", "canards.span", "tail.length"} {
		if _, ok := values[key]; !ok {
			t.Errorf("%s not recorded in %v", key, values)
		}
	}
	if values["fins.position"] != 0.32 || values["canards.position"] != 3.04 {
		t.Fatalf("fin positions %f and %f", values["fins.position"], values["canards.position"])
	}
	impulse := a.Motor().TotalImpulse()
	if !scalar.EqualWithinRel(impulse, values["motor.total_impulse"], 1e-9) {
		t.Fatalf("motor impulse %f, sampled %f", impulse, values["motor.total_impulse"])
	}
	if _, err := a.StaticMargin(0); err != nil {
		t.Fatal(err)
	}
	if sr.Rocket.Mass != 35.793 || sr.Rocket.Motor().TotalImpulse() == impulse {
		t.Fatal("sampling changed the deterministic rocket")
	}
}

func TestStochasticMotorRequiresGeneric(t *testing.T) {
	sm := &StochasticMotor{Motor: testLiquidMotor(t)}
	m, err := sm.Create(NewSampler(1))
	if err != nil || m != sm.Motor {
		t.Fatalf("deterministic liquid motor: %v", err)
	}
	sm.BurnOutTime = Std(0.1)
	if _, err := sm.Create(NewSampler(1)); err == nil {
		t.Fatal("liquid motor perturbed")
	}
}

func TestStochasticEnvironment(t *testing.T) {
	env := testEnvironment(t)
	if err := env.SetEnsembleAtmosphere([]Wind{{1, 0}, {2, 0}, {3, 0}, {4, 0}}); err != nil {
		t.Fatal(err)
	}
	se := &StochasticEnvironment{Environment: env, EnsembleMembers: []int{1, 3}}
	seen := map[int]bool{}
	for seed := uint64(0); seed < 40; seed++ {
		smp := NewSampler(seed)
		e, err := se.Create(smp)
		if err != nil {
			t.Fatal(err)
		}
		m := e.EnsembleMember()
		if m != 1 && m != 3 {
			t.Fatalf("member %d is not a candidate", m)
		}
		if u, _ := e.Wind(0); u != float64(m+1) {
			t.Fatalf("member %d has wind %f", m, u)
		}
		if smp.Values()["environment.ensemble_member"] != float64(m) {
			t.Fatal("member not recorded")
		}
		seen[m] = true
	}
	if len(seen) != 2 {
		t.Fatalf("members drawn: %v", seen)
	}
	if env.EnsembleMember() != 0 {
		t.Fatal("sampling changed the deterministic environment")
	}

	calm := testEnvironment(t)
	gusty := &StochasticEnvironment{Environment: calm, WindCovariance: mat.NewSymDense(2, []float64{4, 1, 1, 9})}
	var us, vs []float64
	for seed := uint64(0); seed < 2000; seed++ {
		e, err := gusty.Create(NewSampler(seed))
		if err != nil {
			t.Fatal(err)
		}
		if e.Kind() != CustomAtmosphere {
			t.Fatalf("perturbed wind is %s", e.Kind())
		}
		u, v := e.Wind(0)
		us = append(us, u)
		vs = append(vs, v)
	}
	if su, sv := stat.StdDev(us, nil), stat.StdDev(vs, nil); !scalar.EqualWithinAbs(su, 2, 0.2) || !scalar.EqualWithinAbs(sv, 3, 0.3) {
		t.Fatalf("wind dispersion %f, %f", su, sv)
	}
	bad := &StochasticEnvironment{Environment: calm, WindCovariance: mat.NewSymDense(2, []float64{1, 2, 2, 1})}
	if _, err := bad.Create(NewSampler(0)); err == nil {
		t.Fatal("indefinite wind covariance accepted")
	}
}

func TestStochasticFlight(t *testing.T) {
	sf := &StochasticFlight{
		Flight:      FlightConfig{Name: "Ascent", RailLength: 12, Inclination: 86, TerminateOnApogee: true},
		Inclination: Std(1),
		Heading:     Around(0, 2),
	}
	smp := NewSampler(3)
	cfg, err := sf.Create(smp, testAscentRocket(t), testEnvironment(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Inclination == 86 || !scalar.EqualWithinAbs(cfg.Inclination, 86, 6) || cfg.RailLength != 12 || !cfg.TerminateOnApogee {
		t.Fatalf("sampled flight %+v", cfg)
	}
	if cfg.Inclination != smp.Values()["flight.inclination"] || cfg.Heading != smp.Values()["flight.heading"] {
		t.Fatal("flight values not recorded")
	}
	descent := &StochasticFlight{Flight: FlightConfig{Name: "Descent", InitialSolution: []float64{28, 0, 570, 3870, 0, 0, 0}}}
	cfg, err = descent.Create(NewSampler(3), testDescentRocket(t), testEnvironment(t))
	if err != nil {
		t.Fatal(err)
	}
	cfg.InitialSolution[0] = 0
	if descent.Flight.InitialSolution[0] != 28 {
		t.Fatal("initial solution shared between samples")
	}
}

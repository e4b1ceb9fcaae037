package nimbus

import (
	"errors"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

func testEnvironment(t *testing.T) *Environment {
	env, err := NewEnvironment(39.4751, -8.3764, 78)
	if err != nil {
		t.Fatal(err)
	}
	return env
}

func TestStandardAtmosphere(t *testing.T) {
	env := testEnvironment(t)
	for _, tc := range []struct {
		z, temp, press, rho, tol float64
	}{
		{0, 288.15, 101325, 1.2250, 1e-3},
		{1000, 281.65, 89876, 1.1117, 5e-3},
		{5000, 255.68, 54048, 0.7364, 5e-3},
		{11019, 216.65, 22632, 0.3639, 5e-3},
		{20000, 216.65, 5529, 0.0889, 5e-3},
	} {
		if temp := env.Temperature(tc.z); !scalar.EqualWithinRel(temp, tc.temp, tc.tol) {
			t.Errorf("T(%.0f) = %f, expected %f", tc.z, temp, tc.temp)
		}
		if press := env.Pressure(tc.z); !scalar.EqualWithinRel(press, tc.press, tc.tol) {
			t.Errorf("P(%.0f) = %f, expected %f", tc.z, press, tc.press)
		}
		if rho := env.Density(tc.z); !scalar.EqualWithinRel(rho, tc.rho, tc.tol) {
			t.Errorf("ρ(%.0f) = %f, expected %f", tc.z, rho, tc.rho)
		}
	}
	if a := env.SpeedOfSound(0); !scalar.EqualWithinAbs(a, 340.29, 0.05) {
		t.Fatalf("speed of sound at sea level %f", a)
	}
	if env.Pressure(60000) != env.Pressure(80000) {
		t.Fatal("atmosphere not clamped above the last layer")
	}
	if g := env.Gravity(0); g != g0 {
		t.Fatalf("gravity at sea level %f", g)
	}
	if env.Gravity(10000) >= env.Gravity(0) {
		t.Fatal("gravity does not decrease with altitude")
	}
}

func TestEnvironmentWind(t *testing.T) {
	env := testEnvironment(t)
	if u, v := env.Wind(1000); u != 0 || v != 0 {
		t.Fatal("standard atmosphere has wind")
	}
	env.SetCustomAtmosphere(0, 8)
	if u, v := env.Wind(1000); u != 0 || v != 8 {
		t.Fatalf("custom wind (%f, %f)", u, v)
	}
	if err := env.SelectEnsembleMember(0); err == nil {
		t.Fatal("member selection accepted on a custom atmosphere")
	}
	if err := env.SetEnsembleAtmosphere(nil); err == nil {
		t.Fatal("empty ensemble accepted")
	}
	if err := env.SetEnsembleAtmosphere([]Wind{{1, 2}, {3, 4}, {5, 6}}); err != nil {
		t.Fatal(err)
	}
	if env.NumEnsembleMembers() != 3 {
		t.Fatalf("%d members", env.NumEnsembleMembers())
	}
	if err := env.SelectEnsembleMember(2); err != nil {
		t.Fatal(err)
	}
	if u, v := env.Wind(0); u != 5 || v != 6 {
		t.Fatalf("member 2 wind (%f, %f)", u, v)
	}
	if err := env.SelectEnsembleMember(3); err == nil {
		t.Fatal("out of range member accepted")
	}
	clone := env.Clone()
	if err := clone.SelectEnsembleMember(0); err != nil {
		t.Fatal(err)
	}
	if env.EnsembleMember() != 2 {
		t.Fatal("clone shares its member with the original")
	}
}

func TestAtmosphereKind(t *testing.T) {
	for name, exp := range map[string]AtmosphereKind{"standard_atmosphere": StandardAtmosphere, "custom_atmosphere": CustomAtmosphere, "Ensemble": EnsembleAtmosphere, "": StandardAtmosphere} {
		kind, err := AtmosphereKindFromString(name)
		if err != nil || kind != exp {
			t.Fatalf("%q => %s (%v)", name, kind, err)
		}
	}
	if _, err := AtmosphereKindFromString("Forecast"); !errors.Is(err, ErrForecastUnavailable) {
		t.Fatalf("forecast error: %v", err)
	}
	if _, err := AtmosphereKindFromString("mars"); err == nil {
		t.Fatal("unknown model accepted")
	}
}

func TestEnvironmentValidation(t *testing.T) {
	if _, err := NewEnvironment(91, 0, 0); err == nil {
		t.Fatal("latitude 91 accepted")
	}
	if _, err := NewEnvironment(0, 0, 20000); err == nil {
		t.Fatal("elevation 20 km accepted")
	}
	env := testEnvironment(t)
	if env.Date.Hour() != 12 || env.Date.Location() != time.UTC {
		t.Fatalf("default date %s", env.Date)
	}
	env.SetDate(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	if jd := env.JulianDate(); !scalar.EqualWithinAbs(jd, 2451545.0, 1e-9) {
		t.Fatalf("JD %f", jd)
	}
}

func TestGeodesy(t *testing.T) {
	env := testEnvironment(t)
	pad := env.LatLon(0, 0)
	if pad.Latitude != env.Latitude || pad.Longitude != env.Longitude {
		t.Fatalf("pad moved: %+v", pad)
	}
	if r := env.RangeFromPad(pad); r != 0 {
		t.Fatalf("range of the pad %f", r)
	}
	north := env.LatLon(0, 2000)
	if north.Latitude <= env.Latitude || north.Longitude != env.Longitude {
		t.Fatalf("north point %+v", north)
	}
	if r := env.RangeFromPad(north); !scalar.EqualWithinRel(r, 2000, 0.01) {
		t.Fatalf("range north %f", r)
	}
	east := env.LatLon(1500, 0)
	if east.Longitude <= env.Longitude {
		t.Fatalf("east point %+v", east)
	}
	if r := env.RangeFromPad(east); !scalar.EqualWithinRel(r, 1500, 0.01) {
		t.Fatalf("range east %f", r)
	}
}

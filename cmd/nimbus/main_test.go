package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kitlog "github.com/go-kit/kit/log"
	nimbus "github.com/icl-rocketry/Nimbus-24"
	"github.com/icl-rocketry/Nimbus-24/vehicle"
	"github.com/spf13/viper"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "nimbus-cmd")
	if err != nil {
		panic(err)
	}
	conf := fmt.Sprintf("[general]\ndata_path = \"../../data\"\noutput_path = %q\n\n[integrator]\nstep = \"20ms\"\n", filepath.Join(dir, "output"))
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(conf), 0644); err != nil {
		panic(err)
	}
	os.Setenv("NIMBUS_CONFIG", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func testScenario(t *testing.T, name, conf string) (*scenario, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(conf)); err != nil {
		t.Fatal(err)
	}
	return readScenario(v, name)
}

func TestReadScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("scenarios/*.toml")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 5 {
		t.Fatalf("found %d scenarios", len(files))
	}
	for _, file := range files {
		v := viper.New()
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			t.Fatalf("%s: %s", file, err)
		}
		name := strings.TrimSuffix(filepath.Base(file), ".toml")
		sc, err := readScenario(v, name)
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		chutes := sc.parachutes()
		switch name {
		case "nominal":
			if sc.env.Date.Year() != 2024 || sc.ascent.Export.IsUseless() || len(chutes) != 2 {
				t.Fatalf("nominal: %s, export %+v, %d parachutes", sc.env.Date, sc.ascent.Export, len(chutes))
			}
			if sc.ascent.RailLength != vehicle.Dispersion.RailLength || sc.descentMaxTime != nimbus.DefaultMaxTime {
				t.Fatalf("nominal: rail %f, descent max time %f", sc.ascent.RailLength, sc.descentMaxTime)
			}
		case "baseline":
			if sc.airframe.Name != "baseline" || sc.env.Kind() != nimbus.CustomAtmosphere || chutes[0].CdS != vehicle.BaselineMainCdS {
				t.Fatalf("baseline: %s %s %+v", sc.airframe.Name, sc.env.Kind(), chutes)
			}
		case "ballistic":
			if sc.kind != ballisticKind || chutes != nil {
				t.Fatalf("ballistic: %s with %d parachutes", sc.kind, len(chutes))
			}
		case "maxdrift":
			if len(chutes) != 1 || sc.descentMaxTime != 1e4 {
				t.Fatalf("maxdrift: %d parachutes, descent max time %f", len(chutes), sc.descentMaxTime)
			}
			// Opens at apogee whatever the height.
			if !chutes[0].Trigger(0, 4000, []float64{0, 0, 4000, 0, 0, -0.1}) {
				t.Fatal("maxdrift main does not open at apogee")
			}
			if u, v := sc.env.Wind(1000); u != 0 || v != 8 {
				t.Fatalf("maxdrift wind %f %f", u, v)
			}
		case "montecarlo":
			if sc.env.NumEnsembleMembers() != 4 || sc.mc.simulations != 200 || sc.mc.seed != 2024 {
				t.Fatalf("montecarlo: %d members, %+v", sc.env.NumEnsembleMembers(), sc.mc)
			}
			if sc.mc.windCovariance() == nil || sc.mc.xlim != [2]float64{-3000, 3000} {
				t.Fatalf("montecarlo: %+v", sc.mc)
			}
		default:
			t.Fatalf("unexpected scenario %s", name)
		}
	}
}

func TestReadScenarioErrors(t *testing.T) {
	for _, conf := range []string{
		"[scenario]\nkind = \"orbit\"\n",
		"[scenario]\nairframe = \"concorde\"\n",
		"[environment]\natmosphere = \"forecast\"\n",
		"[environment]\nlatitude = 100\n",
		"[recovery]\nmain_trigger = \"main\"\nmain_altitude = -1\n",
		"[recovery]\ndrogue_trigger = \"drogue\"\ndrogue_velocity = 5\n",
		"[montecarlo]\nxlim = [10, -10]\n",
		"[montecarlo]\nxlim = [10]\n",
		"[montecarlo]\nwind_std = [1, 0]\n",
		"[montecarlo]\nsimulations = 0\n",
	} {
		if _, err := testScenario(t, "bad", conf); err == nil {
			t.Fatalf("accepted:\n%s", conf)
		}
	}
	sc, err := testScenario(t, "override", "[scenario]\nairframe = \"ballistic\"\n[airframe]\nspan = 0.2\ntail_length = 0.25\n")
	if err != nil {
		t.Fatal(err)
	}
	if sc.airframe.Fins.Span != 0.2 || sc.airframe.TailLength != 0.25 || sc.airframe.Fins.RootChord != vehicle.Ballistic.Fins.RootChord {
		t.Fatalf("airframe overrides %+v", sc.airframe)
	}
	if vehicle.Ballistic.Fins.Span == 0.2 {
		t.Fatal("override changed the airframe revision")
	}
	// A ballistic flight ignores its recovery triggers.
	sc, err = testScenario(t, "ballistic", "[scenario]\nkind = \"ballistic\"\n[recovery]\nmain_altitude = -1\n")
	if err != nil || sc.parachutes() != nil {
		t.Fatalf("ballistic: %v", err)
	}
}

func TestRunFlights(t *testing.T) {
	sc, err := testScenario(t, "test", `[scenario]
kind = "nominal"
plot = "test-trajectories.png"
[environment]
atmosphere = "custom"
wind_u = 1
wind_v = 2
[flight]
step = "20ms"
`)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := run(context.Background(), sc, &buf, kitlog.NewNopLogger()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"==== Ascent ====", "==== Descent ====", "Parachute main", "Parachute drogue", "Impact"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if _, err := os.Stat(nimbus.OutputPath("test-trajectories.png")); err != nil {
		t.Fatal(err)
	}
}

func TestRunMonteCarlo(t *testing.T) {
	sc, err := testScenario(t, "test", `[scenario]
kind = "montecarlo"
[environment]
atmosphere = "ensemble"
members = [{ u = 1, v = 2 }, { u = -1, v = 3 }]
[flight]
step = "20ms"
[montecarlo]
simulations = 3
workers = 2
seed = 7
ascent_file = "cmd_ascent"
descent_file = "cmd_descent"
`)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := run(context.Background(), sc, &buf, kitlog.NewNopLogger()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"==== cmd_ascent: 3 flights, 0 failures ====", "==== cmd_descent: 3 flights, 0 failures ====", "apogee AGL", "impact 1σ"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	for _, file := range []string{"cmd_ascent.outputs.txt", "cmd_descent.inputs.txt", "cmd_ascent-ellipses.png", "cmd_descent-ellipses.png"} {
		if _, err := os.Stat(nimbus.OutputPath(file)); err != nil {
			t.Fatal(err)
		}
	}
}

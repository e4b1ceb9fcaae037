package nimbus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompareFlights(t *testing.T) {
	dir := useTestConfig(t)
	env := testEnvironment(t)
	ascent := testAscent(t, env)
	descent, err := RunFlight(FlightConfig{Name: "Descent", Rocket: testDescentRocket(t), Environment: env, InitialSolution: ascent.FinalState()})
	if err != nil {
		t.Fatal(err)
	}
	cmp, err := CompareFlights(ascent, descent)
	if err != nil {
		t.Fatal(err)
	}
	if len(cmp.Flights()) != 2 {
		t.Fatalf("%d flights compared", len(cmp.Flights()))
	}
	var buf bytes.Buffer
	if err := cmp.Summary(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.Contains(lines[0], "Ascent") || !strings.Contains(lines[0], "Descent") {
		t.Fatalf("header does not name the flights: %q", lines[0])
	}
	var impact string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "impact time") {
			impact = line
		}
	}
	// The ascent stops at apogee and has no impact.
	if !strings.Contains(impact, "-") {
		t.Fatalf("impact row %q", impact)
	}
	if err := cmp.Trajectories3D("trajectories.png"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, "trajectories.png"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Fatal("empty trajectories plot")
	}
}

func TestCompareFlightsValidation(t *testing.T) {
	if _, err := CompareFlights(); err == nil {
		t.Fatal("empty comparison accepted")
	}
	f, err := NewFlight(FlightConfig{Rocket: testAscentRocket(t), Environment: testEnvironment(t), RailLength: 12, Inclination: 86})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CompareFlights(f); err == nil {
		t.Fatal("comparison of a flight which was not simulated accepted")
	}
}

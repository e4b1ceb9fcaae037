package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testLog = `time,thrust
1828.9,0
1829.0,120.5
1830.0,2310
1833.25,2290
1835.9,40
1836.1,0
`

func TestProcess(t *testing.T) {
	var buf bytes.Buffer
	png := filepath.Join(t.TempDir(), "curve.png")
	n, err := process(strings.NewReader(testLog), &buf, 1829, 1836, png)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("%d samples", n)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "normalized_time\tthrust" || lines[1] != "0\t120.5" || lines[3] != "4.25\t2290" {
		t.Fatalf("unexpected output %q", lines)
	}
	if _, err := os.Stat(png); err != nil {
		t.Fatal(err)
	}
}

func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := process(strings.NewReader(testLog), &bytes.Buffer{}, 1836, 1829, filepath.Join(dir, "a.png")); err == nil {
		t.Fatal("reversed window accepted")
	}
	if _, err := process(strings.NewReader(testLog), &bytes.Buffer{}, 0, 10, filepath.Join(dir, "b.png")); err == nil {
		t.Fatal("empty window accepted")
	}
	if _, err := process(strings.NewReader("t,f\n1,2\n"), &bytes.Buffer{}, 0, 10, filepath.Join(dir, "c.png")); err == nil {
		t.Fatal("log without time and thrust columns accepted")
	}
}

func TestFlagDefaults(t *testing.T) {
	for name, want := range map[string]string{
		"input":  "flight_quali_curve.csv",
		"output": "normalized_flight_quali_curve.txt",
		"start":  "1829",
		"end":    "1836",
	} {
		if got := flag.Lookup(name).DefValue; got != want {
			t.Fatalf("-%s defaults to %q, expected %q", name, got, want)
		}
	}
}

package nimbus

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// useTestConfig points the output directory to a temporary directory for the duration of the test.
func useTestConfig(t *testing.T) string {
	dir := t.TempDir()
	nimbusConfig() // Make sure the environment is not read after the override.
	prev := config
	config = _nimbusconfig{dataDir: "testdata", outputDir: dir, step: DefaultStep}
	t.Cleanup(func() { config = prev })
	return dir
}

func TestConfigDefaults(t *testing.T) {
	conf := loadConfig("")
	if conf.dataDir != "data" || conf.outputDir != "output" {
		t.Fatalf("unexpected defaults: %+v", conf)
	}
	if conf.step != DefaultStep {
		t.Fatalf("default step is %s", conf.step)
	}
}

func TestConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	toml := `[general]
data_path = "/opt/nimbus/data"
output_path = "/tmp/nimbus"

[integrator]
step = "5ms"
`
	if err := os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	conf := loadConfig(dir)
	if conf.dataDir != "/opt/nimbus/data" {
		t.Fatalf("data path: %s", conf.dataDir)
	}
	if conf.outputDir != "/tmp/nimbus" {
		t.Fatalf("output path: %s", conf.outputDir)
	}
	if conf.step != 5*time.Millisecond {
		t.Fatalf("step: %s", conf.step)
	}
}

func TestConfigMissingFile(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("a missing conf.toml did not panic")
		}
	}()
	loadConfig(t.TempDir())
}

func TestPaths(t *testing.T) {
	dir := useTestConfig(t)
	if p := DataPath("dragCurve.csv"); p != filepath.Join("testdata", "dragCurve.csv") {
		t.Fatalf("data path %s", p)
	}
	if p := DataPath("/abs/dragCurve.csv"); p != "/abs/dragCurve.csv" {
		t.Fatalf("absolute data path changed: %s", p)
	}
	if p := OutputPath("ascent.csv"); p != filepath.Join(dir, "ascent.csv") {
		t.Fatalf("output path %s", p)
	}
}

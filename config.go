package nimbus

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultStep is the default integration step of a flight.
	DefaultStep = 10 * time.Millisecond
)

var (
	cfgOnce sync.Once
	config  = _nimbusconfig{}
)

// _nimbusconfig is a "hidden" struct, just use `nimbusConfig`
type _nimbusconfig struct {
	dataDir   string
	outputDir string
	step      time.Duration
}

// nimbusConfig returns the nimbus configuration.
func nimbusConfig() _nimbusconfig {
	cfgOnce.Do(func() {
		config = loadConfig(os.Getenv("NIMBUS_CONFIG"))
	})
	return config
}

// loadConfig reads conf.toml from confPath. An empty path returns the defaults.
func loadConfig(confPath string) _nimbusconfig {
	v := viper.New()
	v.SetDefault("general.data_path", "data")
	v.SetDefault("general.output_path", "output")
	v.SetDefault("integrator.step", DefaultStep)
	if confPath != "" {
		v.SetConfigName("conf")
		v.AddConfigPath(confPath)
		if err := v.ReadInConfig(); err != nil {
			panic(fmt.Errorf("%s/conf.toml not found: %s", confPath, err))
		}
	}
	step := v.GetDuration("integrator.step")
	if step <= 0 {
		panic(fmt.Errorf("integrator.step must be positive, got %s", step))
	}
	return _nimbusconfig{dataDir: v.GetString("general.data_path"), outputDir: v.GetString("general.output_path"), step: step}
}

// DataPath resolves a data file (drag curve, airfoil, thrust curve) against the configured data directory.
// Absolute paths are returned unchanged.
func DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(nimbusConfig().dataDir, name)
}

// OutputPath resolves an output file against the configured output directory, creating the directory if needed.
// Absolute paths are returned unchanged.
func OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	dir := nimbusConfig().outputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(fmt.Errorf("could not create output directory %s: %s", dir, err))
	}
	return filepath.Join(dir, name)
}

// DefaultStepSize returns the configured integration step.
func DefaultStepSize() time.Duration {
	return nimbusConfig().step
}

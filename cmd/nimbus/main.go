package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	nimbus "github.com/icl-rocketry/Nimbus-24"
	"github.com/spf13/viper"
)

// Reads a scenario file and flies it: the nominal, ballistic and maximum drift flights, or the dispersion
// analysis.

const defaultScenario = "~~unset~~"

var (
	scenarioFile string
	verbose      bool
)

func init() {
	flag.StringVar(&scenarioFile, "scenario", defaultScenario, "flight scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "log the flight events")
}

func main() {
	flag.Parse()
	if scenarioFile == defaultScenario {
		log.Fatal("no scenario provided")
	}
	dir, file := filepath.Split(scenarioFile)
	name := strings.TrimSuffix(file, ".toml")
	if dir == "" {
		dir = "."
	}
	viper.AddConfigPath(dir)
	viper.SetConfigName(name)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("%s: Error %s", scenarioFile, err)
	}
	sc, err := readScenario(viper.GetViper(), name)
	if err != nil {
		log.Fatalf("%s: %s", scenarioFile, err)
	}

	logger := kitlog.NewNopLogger()
	if verbose {
		logger = nimbus.NewLogger(name)
		logger.Log("level", "info", "subsys", "conf", "kind", sc.kind, "airframe", sc.airframe.Name, "env", sc.env)
	}

	// Interrupting a Monte Carlo keeps the samples done so far.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, sc, os.Stdout, logger); err != nil {
		log.Fatalf("%s: %s", sc.name, err)
	}
}

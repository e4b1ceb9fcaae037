package main

import (
	"errors"
	"fmt"
	"strings"

	nimbus "github.com/icl-rocketry/Nimbus-24"
	"github.com/icl-rocketry/Nimbus-24/vehicle"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"
)

// Scenario kinds.
const (
	nominalKind    = "nominal"
	ballisticKind  = "ballistic"
	maxDriftKind   = "maxdrift"
	monteCarloKind = "montecarlo"
)

// recovery defines the parachutes of the descent rocket.
type recovery struct {
	parachutes bool
	mainCdS    float64
	main       nimbus.Trigger
	drogue     nimbus.Trigger // nil without a drogue
	lag        float64
}

// monteCarlo holds the settings of a dispersion analysis.
type monteCarlo struct {
	simulations int
	append      bool
	seed        uint64
	workers     int
	canards     bool
	windStd     [2]float64
	ascentFile  string
	descentFile string
	xlim, ylim  [2]float64
}

// scenario is a scenario file, read and checked.
type scenario struct {
	name           string
	kind           string
	airframe       vehicle.Airframe
	env            *nimbus.Environment
	ascent         nimbus.FlightConfig
	descentMaxTime float64
	recovery       recovery
	mc             monteCarlo
	plot           string
}

func readScenario(v *viper.Viper, name string) (*scenario, error) {
	v.SetDefault("scenario.kind", nominalKind)
	v.SetDefault("scenario.airframe", vehicle.Dispersion.Name)
	v.SetDefault("environment.latitude", vehicle.Latitude)
	v.SetDefault("environment.longitude", vehicle.Longitude)
	v.SetDefault("environment.elevation", vehicle.Elevation)
	v.SetDefault("environment.atmosphere", "standard")
	v.SetDefault("flight.max_time", nimbus.DefaultMaxTime)
	v.SetDefault("recovery.parachutes", true)
	v.SetDefault("recovery.main_cds", vehicle.MainCdS)
	v.SetDefault("recovery.main_trigger", "main")
	v.SetDefault("recovery.main_altitude", vehicle.MainAltitude)
	v.SetDefault("recovery.drogue", true)
	v.SetDefault("recovery.drogue_trigger", "drogue")
	v.SetDefault("recovery.drogue_velocity", vehicle.DrogueVelocity)
	v.SetDefault("recovery.drogue_ceiling", vehicle.DrogueCeiling)
	v.SetDefault("montecarlo.simulations", 100)
	v.SetDefault("montecarlo.seed", 1)
	v.SetDefault("montecarlo.canards", true)
	v.SetDefault("montecarlo.xlim", []float64{-3000, 3000})
	v.SetDefault("montecarlo.ylim", []float64{-3000, 3000})

	sc := &scenario{name: name, kind: strings.ToLower(v.GetString("scenario.kind"))}
	switch sc.kind {
	case nominalKind, ballisticKind, maxDriftKind, monteCarloKind:
	default:
		return nil, fmt.Errorf("unknown scenario kind `%s`", sc.kind)
	}
	af, err := vehicle.AirframeFromString(v.GetString("scenario.airframe"))
	if err != nil {
		return nil, err
	}
	// Geometry overrides of the airframe revision
	for key, dst := range map[string]*float64{
		"airframe.root_chord":    &af.Fins.RootChord,
		"airframe.tip_chord":     &af.Fins.TipChord,
		"airframe.sweep_length":  &af.Fins.SweepLength,
		"airframe.span":          &af.Fins.Span,
		"airframe.fin_position":  &af.Fins.Position,
		"airframe.tail_length":   &af.TailLength,
		"airframe.tail_position": &af.TailPosition,
	} {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	sc.airframe = af
	sc.plot = v.GetString("scenario.plot")
	if sc.plot == "" {
		sc.plot = name + "-trajectories.png"
	}

	if sc.env, err = readEnvironment(v); err != nil {
		return nil, err
	}

	// Launch
	sc.ascent = nimbus.FlightConfig{
		Name:        "Ascent",
		Environment: sc.env,
		RailLength:  af.RailLength,
		Inclination: af.Inclination,
		Heading:     v.GetFloat64("flight.heading"),
		MaxTime:     v.GetFloat64("flight.max_time"),
		Step:        v.GetDuration("flight.step"),
	}
	if v.IsSet("flight.rail_length") {
		sc.ascent.RailLength = v.GetFloat64("flight.rail_length")
	}
	if v.IsSet("flight.inclination") {
		sc.ascent.Inclination = v.GetFloat64("flight.inclination")
	}
	if v.GetBool("flight.export") {
		sc.ascent.Export = nimbus.ExportConfig{Filename: name, AsCSV: true}
	}
	sc.descentMaxTime = v.GetFloat64("flight.descent_max_time")
	if sc.descentMaxTime == 0 {
		sc.descentMaxTime = sc.ascent.MaxTime
	}

	if sc.recovery, err = readRecovery(v, sc.kind); err != nil {
		return nil, err
	}
	if sc.kind == maxDriftKind && !v.IsSet("flight.descent_max_time") {
		sc.descentMaxTime = 1e4
	}

	if sc.mc, err = readMonteCarlo(v, name); err != nil {
		return nil, err
	}
	return sc, nil
}

func readEnvironment(v *viper.Viper) (*nimbus.Environment, error) {
	env, err := nimbus.NewEnvironment(v.GetFloat64("environment.latitude"), v.GetFloat64("environment.longitude"), v.GetFloat64("environment.elevation"))
	if err != nil {
		return nil, err
	}
	if v.IsSet("environment.date") {
		env.SetDate(v.GetTime("environment.date").UTC())
	}
	kind, err := nimbus.AtmosphereKindFromString(v.GetString("environment.atmosphere"))
	if err != nil {
		return nil, err
	}
	switch kind {
	case nimbus.CustomAtmosphere:
		env.SetCustomAtmosphere(v.GetFloat64("environment.wind_u"), v.GetFloat64("environment.wind_v"))
	case nimbus.EnsembleAtmosphere:
		var members []nimbus.Wind
		if err := v.UnmarshalKey("environment.members", &members); err != nil {
			return nil, fmt.Errorf("environment.members: %s", err)
		}
		if err := env.SetEnsembleAtmosphere(members); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func readRecovery(v *viper.Viper, kind string) (r recovery, err error) {
	r.parachutes = v.GetBool("recovery.parachutes") && kind != ballisticKind
	r.mainCdS = v.GetFloat64("recovery.main_cds")
	r.lag = v.GetFloat64("recovery.lag")
	if !r.parachutes {
		return r, nil
	}
	mainTrigger := v.GetString("recovery.main_trigger")
	withDrogue := v.GetBool("recovery.drogue")
	if kind == maxDriftKind {
		// The main opens at apogee and drifts all the way down.
		mainTrigger = "apogee"
		withDrogue = false
	}
	if r.main, err = nimbus.ParseTrigger(mainTrigger, 0, v.GetFloat64("recovery.main_altitude")); err != nil {
		return r, fmt.Errorf("recovery.main_trigger: %s", err)
	}
	if withDrogue {
		if r.drogue, err = nimbus.ParseTrigger(v.GetString("recovery.drogue_trigger"), v.GetFloat64("recovery.drogue_velocity"), v.GetFloat64("recovery.drogue_ceiling")); err != nil {
			return r, fmt.Errorf("recovery.drogue_trigger: %s", err)
		}
	}
	return r, nil
}

func readMonteCarlo(v *viper.Viper, name string) (mc monteCarlo, err error) {
	mc.simulations = v.GetInt("montecarlo.simulations")
	mc.append = v.GetBool("montecarlo.append")
	mc.seed = uint64(v.GetInt64("montecarlo.seed"))
	mc.workers = v.GetInt("montecarlo.workers")
	mc.canards = v.GetBool("montecarlo.canards")
	mc.ascentFile = v.GetString("montecarlo.ascent_file")
	if mc.ascentFile == "" {
		mc.ascentFile = name + "_ascent"
	}
	mc.descentFile = v.GetString("montecarlo.descent_file")
	if mc.descentFile == "" {
		mc.descentFile = name + "_descent"
	}
	for key, dst := range map[string]*[2]float64{"montecarlo.xlim": &mc.xlim, "montecarlo.ylim": &mc.ylim, "montecarlo.wind_std": &mc.windStd} {
		if !v.IsSet(key) {
			continue
		}
		var lim []float64
		if err := v.UnmarshalKey(key, &lim); err != nil {
			return mc, fmt.Errorf("%s: %s", key, err)
		}
		if len(lim) != 2 {
			return mc, fmt.Errorf("%s needs two values, got %v", key, lim)
		}
		copy(dst[:], lim)
	}
	if mc.xlim[0] >= mc.xlim[1] || mc.ylim[0] >= mc.ylim[1] {
		return mc, errors.New("montecarlo limits must be increasing")
	}
	if (mc.windStd[0] != 0 || mc.windStd[1] != 0) && (mc.windStd[0] <= 0 || mc.windStd[1] <= 0) {
		return mc, fmt.Errorf("montecarlo.wind_std must be two positive values, got %v", mc.windStd)
	}
	if mc.simulations <= 0 {
		return mc, fmt.Errorf("montecarlo.simulations must be positive, got %d", mc.simulations)
	}
	return mc, nil
}

// parachutes returns the main and, if any, the drogue of the descent rocket.
func (sc *scenario) parachutes() []nimbus.ParachuteConfig {
	if !sc.recovery.parachutes {
		return nil
	}
	main := vehicle.Main(sc.recovery.mainCdS, sc.recovery.main)
	main.Lag = sc.recovery.lag
	chutes := []nimbus.ParachuteConfig{main}
	if sc.recovery.drogue != nil {
		drogue := vehicle.Drogue(sc.recovery.drogue)
		drogue.Lag = sc.recovery.lag
		chutes = append(chutes, drogue)
	}
	return chutes
}

// descent returns the configuration of the descent starting from the provided state.
func (sc *scenario) descent(rocket *nimbus.Rocket, initialSolution []float64) nimbus.FlightConfig {
	return nimbus.FlightConfig{
		Name:            "Descent",
		Rocket:          rocket,
		Environment:     sc.env,
		InitialSolution: initialSolution,
		MaxTime:         sc.descentMaxTime,
		Step:            sc.ascent.Step,
	}
}

// windCovariance returns the covariance of the wind dispersion, nil without one.
func (mc monteCarlo) windCovariance() *mat.SymDense {
	if mc.windStd[0] == 0 && mc.windStd[1] == 0 {
		return nil
	}
	return mat.NewSymDense(2, []float64{mc.windStd[0] * mc.windStd[0], 0, 0, mc.windStd[1] * mc.windStd[1]})
}

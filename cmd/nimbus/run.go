package main

import (
	"context"
	"fmt"
	"io"

	kitlog "github.com/go-kit/kit/log"
	nimbus "github.com/icl-rocketry/Nimbus-24"
	"github.com/icl-rocketry/Nimbus-24/vehicle"
)

// descentSeedOffset separates the seeds of the descent samples from those of the ascent.
const descentSeedOffset = 1 << 32

func run(ctx context.Context, sc *scenario, w io.Writer, logger kitlog.Logger) error {
	if sc.kind == monteCarloKind {
		return runMonteCarlo(ctx, sc, w, logger)
	}
	return runFlights(sc, w, logger)
}

// runFlights flies the liquid motor ascent to apogee and the descent from there.
func runFlights(sc *scenario, w io.Writer, logger kitlog.Logger) error {
	motor, err := vehicle.ThanosR()
	if err != nil {
		return err
	}
	rocket, err := vehicle.Ascent(sc.airframe, motor)
	if err != nil {
		return err
	}
	cfg := sc.ascent
	cfg.Rocket = rocket
	cfg.TerminateOnApogee = true
	cfg.Logger = logger
	ascent, err := nimbus.RunFlight(cfg)
	if err != nil {
		return err
	}

	descentRocket, err := vehicle.Descent(sc.airframe, sc.parachutes()...)
	if err != nil {
		return err
	}
	dcfg := sc.descent(descentRocket, ascent.FinalState())
	dcfg.Logger = logger
	if !cfg.Export.IsUseless() {
		dcfg.Export = nimbus.ExportConfig{Filename: sc.name + "-descent", AsCSV: true}
	}
	descent, err := nimbus.RunFlight(dcfg)
	if err != nil {
		return err
	}

	for _, f := range []*nimbus.Flight{ascent, descent} {
		fmt.Fprintf(w, "==== %s ====\n", f.Name)
		if err := f.AllInfo(w); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	cmp, err := nimbus.CompareFlights(ascent, descent)
	if err != nil {
		return err
	}
	if err := cmp.Summary(w); err != nil {
		return err
	}
	return cmp.Trajectories3D(sc.plot)
}

// runMonteCarlo disperses the ballistic ascent of the generic motor, and the descent under parachutes
// from the nominal apogee.
func runMonteCarlo(ctx context.Context, sc *scenario, w io.Writer, logger kitlog.Logger) error {
	motor, err := vehicle.GenericThanosR()
	if err != nil {
		return err
	}
	rocket, err := vehicle.Ascent(sc.airframe, motor)
	if err != nil {
		return err
	}
	cfg := sc.ascent
	cfg.Rocket = rocket
	cfg.Export = nimbus.ExportConfig{}
	cfg.Logger = logger

	nominalCfg := cfg
	nominalCfg.TerminateOnApogee = true
	nominal, err := nimbus.RunFlight(nominalCfg)
	if err != nil {
		return err
	}
	apogee := nominal.FinalState()

	env := &nimbus.StochasticEnvironment{Environment: sc.env, WindCovariance: sc.mc.windCovariance()}
	ascentRocket, err := vehicle.StochasticAscent(rocket, motor, sc.mc.canards)
	if err != nil {
		return err
	}
	cfg.Logger = nil
	ascentMC := &nimbus.MonteCarlo{
		Filename:    sc.mc.ascentFile,
		Environment: env,
		Rocket:      ascentRocket,
		Flight:      vehicle.AscentDispersion(cfg),
		Seed:        sc.mc.seed,
		Workers:     sc.mc.workers,
		Logger:      logger,
	}

	descentRocket, err := vehicle.Descent(sc.airframe, sc.parachutes()...)
	if err != nil {
		return err
	}
	stochasticDescent, err := vehicle.StochasticDescent(descentRocket, sc.mc.canards)
	if err != nil {
		return err
	}
	descentMC := &nimbus.MonteCarlo{
		Filename:    sc.mc.descentFile,
		Environment: env,
		Rocket:      stochasticDescent,
		Flight:      vehicle.DescentDispersion(sc.descent(nil, nil), apogee),
		Seed:        sc.mc.seed + descentSeedOffset,
		Workers:     sc.mc.workers,
		Logger:      logger,
	}

	for _, mc := range []*nimbus.MonteCarlo{ascentMC, descentMC} {
		if err := mc.Simulate(ctx, sc.mc.simulations, sc.mc.append); err != nil {
			return err
		}
		fmt.Fprintf(w, "==== %s: %d flights, %d failures ====\n", mc.Filename, len(mc.Results()), mc.Failures())
		if err := mc.Summary(w); err != nil {
			return err
		}
		apogees, impacts := mc.Ellipses(1, 2, 3)
		for _, e := range apogees {
			fmt.Fprintf(w, "apogee %s\n", e)
		}
		for _, e := range impacts {
			fmt.Fprintf(w, "impact %s\n", e)
		}
		fmt.Fprintln(w)
		if err := mc.PlotEllipses(mc.Filename+"-ellipses.png", sc.mc.xlim, sc.mc.ylim); err != nil {
			return err
		}
	}
	return nil
}

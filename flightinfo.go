package nimbus

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Info writes the notable events of the flight.
func (f *Flight) Info(w io.Writer) error {
	r := f.results
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Flight\t%s\t\n", f.Name)
	if f.InitialSolution == nil {
		fmt.Fprintf(tw, "Rail\t%.2f m (effective %.2f m) at %.1f°, heading %.1f°\t\n", f.RailLength, f.effectiveRail, f.Inclination, f.Heading)
		fmt.Fprintf(tw, "Out of rail\tt=%.3f s, v=%.2f m/s\t\n", r.OutOfRailTime, r.OutOfRailVelocity)
	} else {
		fmt.Fprintf(tw, "Initial solution\tt=%.3f s, z=%.1f m\t\n", f.t0, f.InitialSolution[3])
	}
	if f.burntOut {
		fmt.Fprintf(tw, "Burn out\tt=%.3f s, v=%.2f m/s\t\n", r.BurnOutTime, r.BurnOutVelocity)
	}
	fmt.Fprintf(tw, "Apogee\t%.1f m ASL (%.1f m AGL) at t=%.2f s\t\n", r.Apogee, r.ApogeeAGL, r.ApogeeTime)
	fmt.Fprintf(tw, "Apogee position\tx=%.1f m, y=%.1f m\t\n", r.ApogeeX, r.ApogeeY)
	fmt.Fprintf(tw, "Max speed\t%.2f m/s at t=%.2f s (Mach %.3f)\t\n", r.MaxSpeed, r.MaxSpeedTime, r.MaxMach)
	for _, p := range r.Parachutes {
		if p.Inflated {
			fmt.Fprintf(tw, "Parachute %s\ttriggered t=%.2f s at %.1f m AGL, inflated t=%.2f s at %.2f m/s\t\n", p.Name, p.TriggerTime, p.TriggerHeight, p.InflationTime, p.InflationVelocity)
		} else {
			fmt.Fprintf(tw, "Parachute %s\ttriggered t=%.2f s at %.1f m AGL, not inflated\t\n", p.Name, p.TriggerTime, p.TriggerHeight)
		}
	}
	if r.Impacted {
		fmt.Fprintf(tw, "Impact\tt=%.2f s, x=%.1f m, y=%.1f m, v=%.2f m/s\t\n", r.ImpactTime, r.ImpactX, r.ImpactY, r.ImpactVelocity)
		landing := f.Environment.LatLon(r.ImpactX, r.ImpactY)
		fmt.Fprintf(tw, "Landing\t%.5f°, %.5f° (%.0f m from the pad)\t\n", landing.Latitude, landing.Longitude, f.Environment.RangeFromPad(landing))
	} else {
		fmt.Fprintf(tw, "End\tt=%.2f s, z=%.1f m, no impact\t\n", f.t, f.state[2])
	}
	return tw.Flush()
}

// AllInfo writes the environment, the rocket and the flight events.
func (f *Flight) AllInfo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Environment: %s\n\n", f.Environment); err != nil {
		return err
	}
	if err := f.Rocket.Info(w); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return f.Info(w)
}

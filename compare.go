package nimbus

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Comparison compares several simulated flights.
type Comparison struct {
	flights []*Flight
}

// CompareFlights returns a comparison of the provided flights, which must all have been simulated.
func CompareFlights(flights ...*Flight) (*Comparison, error) {
	if len(flights) == 0 {
		return nil, errors.New("no flights to compare")
	}
	for _, f := range flights {
		if f == nil || len(f.Solution()) == 0 {
			return nil, errors.New("can only compare simulated flights")
		}
	}
	return &Comparison{flights: flights}, nil
}

// Flights returns the compared flights.
func (c *Comparison) Flights() []*Flight { return c.flights }

// Summary writes a table with one column per flight.
func (c *Comparison) Summary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	row := func(label string, value func(r FlightResults) string) {
		fmt.Fprintf(tw, "%s\t", label)
		for _, f := range c.flights {
			fmt.Fprintf(tw, "%s\t", value(f.Results()))
		}
		fmt.Fprintln(tw)
	}
	fmt.Fprint(tw, "\t")
	for _, f := range c.flights {
		fmt.Fprintf(tw, "%s\t", f.Name)
	}
	fmt.Fprintln(tw)
	row("out of rail (s)", func(r FlightResults) string { return fmt.Sprintf("%.3f", r.OutOfRailTime) })
	row("out of rail speed (m/s)", func(r FlightResults) string { return fmt.Sprintf("%.2f", r.OutOfRailVelocity) })
	row("apogee ASL (m)", func(r FlightResults) string { return fmt.Sprintf("%.1f", r.Apogee) })
	row("apogee AGL (m)", func(r FlightResults) string { return fmt.Sprintf("%.1f", r.ApogeeAGL) })
	row("apogee time (s)", func(r FlightResults) string { return fmt.Sprintf("%.2f", r.ApogeeTime) })
	row("apogee x, y (m)", func(r FlightResults) string { return fmt.Sprintf("%.1f, %.1f", r.ApogeeX, r.ApogeeY) })
	row("max speed (m/s)", func(r FlightResults) string { return fmt.Sprintf("%.2f", r.MaxSpeed) })
	row("max Mach", func(r FlightResults) string { return fmt.Sprintf("%.3f", r.MaxMach) })
	row("impact time (s)", func(r FlightResults) string {
		if !r.Impacted {
			return "-"
		}
		return fmt.Sprintf("%.2f", r.ImpactTime)
	})
	row("impact x, y (m)", func(r FlightResults) string {
		if !r.Impacted {
			return "-"
		}
		return fmt.Sprintf("%.1f, %.1f", r.ImpactX, r.ImpactY)
	})
	row("impact speed (m/s)", func(r FlightResults) string {
		if !r.Impacted {
			return "-"
		}
		return fmt.Sprintf("%.2f", r.ImpactVelocity)
	})
	return tw.Flush()
}

// projections returns the x-y, x-z, y-z and t-z series of a flight, altitudes above ground level.
func (c *Comparison) projections(f *Flight) (xy, xz, yz, tz plotter.XYs) {
	sol := f.Solution()
	elev := f.Environment.Elevation
	xy = make(plotter.XYs, len(sol))
	xz = make(plotter.XYs, len(sol))
	yz = make(plotter.XYs, len(sol))
	tz = make(plotter.XYs, len(sol))
	for i, row := range sol {
		x, y, z := row[1], row[2], row[3]-elev
		xy[i] = plotter.XY{X: x, Y: y}
		xz[i] = plotter.XY{X: x, Y: z}
		yz[i] = plotter.XY{X: y, Y: z}
		tz[i] = plotter.XY{X: row[0], Y: z}
	}
	return
}

// Trajectories3D saves the trajectories of all flights as a PNG of four panels: the ground track,
// the east and north projections, and the altitude over time.
func (c *Comparison) Trajectories3D(path string) error {
	track := newPlot("Ground track", "x east (m)", "y north (m)")
	east := newPlot("East projection", "x east (m)", "altitude AGL (m)")
	north := newPlot("North projection", "y north (m)", "altitude AGL (m)")
	alt := newPlot("Altitude", "time (s)", "altitude AGL (m)")
	for i, f := range c.flights {
		xy, xz, yz, tz := c.projections(f)
		if err := addSeries(track, i, f.Name, xy); err != nil {
			return err
		}
		if err := addSeries(east, i, "", xz); err != nil {
			return err
		}
		if err := addSeries(north, i, "", yz); err != nil {
			return err
		}
		if err := addSeries(alt, i, "", tz); err != nil {
			return err
		}
	}
	track.Legend.Top = true
	plots := [][]*plot.Plot{{track, east}, {north, alt}}
	return saveTiledPNG(plots, 24*vg.Centimeter, 20*vg.Centimeter, OutputPath(path))
}

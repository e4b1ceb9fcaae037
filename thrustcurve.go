package nimbus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	// QualificationStart and QualificationEnd bound the firing in the flight qualification test log (s).
	QualificationStart = 1829.0
	QualificationEnd   = 1836.0
)

// ThrustSample is a thrust measurement.
type ThrustSample struct {
	Time, Thrust float64
}

// ReadThrustLog reads a CSV test log with a header naming its `time` and `thrust` columns. Other columns are ignored.
func ReadThrustLog(r io.Reader) ([]ThrustSample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("thrust log header: %w", err)
	}
	timeCol, thrustCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "time":
			timeCol = i
		case "thrust":
			thrustCol = i
		}
	}
	if timeCol < 0 || thrustCol < 0 {
		return nil, errors.New("thrust log needs `time` and `thrust` columns")
	}
	var samples []ThrustSample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) <= timeCol || len(record) <= thrustCol {
			return nil, fmt.Errorf("thrust log line %d: %d columns", line, len(record))
		}
		t, terr := strconv.ParseFloat(strings.TrimSpace(record[timeCol]), 64)
		f, ferr := strconv.ParseFloat(strings.TrimSpace(record[thrustCol]), 64)
		if terr != nil || ferr != nil {
			return nil, fmt.Errorf("thrust log line %d: could not parse %q", line, strings.Join(record, ","))
		}
		samples = append(samples, ThrustSample{t, f})
	}
	return samples, nil
}

// NormalizeThrust keeps the samples within [start, end] and shifts their time by start.
func NormalizeThrust(samples []ThrustSample, start, end float64) []ThrustSample {
	var out []ThrustSample
	for _, s := range samples {
		if s.Time >= start && s.Time <= end {
			out = append(out, ThrustSample{s.Time - start, s.Thrust})
		}
	}
	return out
}

// WriteNormalizedThrust writes the samples as tab separated `normalized_time` and `thrust` columns.
func WriteNormalizedThrust(w io.Writer, samples []ThrustSample) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	if err := writer.Write([]string{"normalized_time", "thrust"}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := writer.Write([]string{strconv.FormatFloat(s.Time, 'f', -1, 64), strconv.FormatFloat(s.Thrust, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// PlotThrustCurve saves the normalized thrust curve as a PNG.
func PlotThrustCurve(samples []ThrustSample, path string) error {
	if len(samples) == 0 {
		return errors.New("no thrust samples to plot")
	}
	p := newPlot("Flight Qualification Curve (Normalized Time)", "Normalized Time (s)", "Thrust (N)")
	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: s.Time, Y: s.Thrust}
	}
	if err := addSeries(p, 0, "", pts); err != nil {
		return err
	}
	// Adding data widens the axes: set the limits last.
	p.X.Min, p.X.Max = 0, QualificationEnd-QualificationStart
	return savePNG(p, 10*vg.Inch, 6*vg.Inch, path)
}

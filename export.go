package nimbus

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ExportConfig configures the exporting of a flight trajectory.
type ExportConfig struct {
	Filename  string
	AsCSV     bool
	Timestamp bool
	Every     float64 // s between exported samples, zero exports every step
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV || c.Filename == ""
}

// FlightSample is a trajectory sample streamed to the exporter.
type FlightSample struct {
	T         float64
	State     []float64 // x, y, z, vx, vy, vz
	Height    float64   // AGL
	Mach      float64
	Parachute string
}

// flightCSVHeader is the header of the exported trajectories.
var flightCSVHeader = []string{"time", "jd", "x", "y", "z", "vx", "vy", "vz", "height", "mach", "parachute"}

// createAsCSVFile returns a file which requires a defer close statement!
func createAsCSVFile(conf ExportConfig, env *Environment) (*os.File, error) {
	filename := fmt.Sprintf("flight-%s.csv", conf.Filename)
	if conf.Timestamp {
		t := time.Now()
		filename = fmt.Sprintf("flight-%s-%d-%02d-%02dT%02d.%02d.%02d.csv", conf.Filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	f, err := os.Create(OutputPath(filename))
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, `# Creation date (UTC): %s
# Launch site: %s
# Positions in m (x East, y North, z above sea level), velocities in m/s, height above ground level in m
`, time.Now().UTC(), env)
	return f, nil
}

// StreamStates writes the samples of the channel to a CSV file until the channel is closed.
// The channel is always drained, even if the file cannot be written.
func StreamStates(conf ExportConfig, env *Environment, samples <-chan FlightSample) error {
	f, err := createAsCSVFile(conf, env)
	if err != nil {
		for range samples {
		}
		return err
	}
	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	w.Write(flightCSVHeader)
	jd0 := env.JulianDate()
	prevT := -1.0
	var last *FlightSample
	for sample := range samples {
		s := sample
		last = &s
		if prevT >= 0 && conf.Every > 0 && sample.T-prevT < conf.Every {
			continue
		}
		prevT = sample.T
		w.Write(sampleRecord(sample, jd0))
		last = nil
	}
	if last != nil {
		// Always keep the final state.
		w.Write(sampleRecord(*last, jd0))
	}
	return closeCSV(w, buf, f)
}

// closeCSV flushes the CSV writer and its buffer and closes the file, returning the first error.
func closeCSV(w *csv.Writer, buf *bufio.Writer, f io.Closer) error {
	w.Flush()
	err := w.Error()
	if err == nil {
		err = buf.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func sampleRecord(s FlightSample, jd0 float64) []string {
	record := make([]string, 0, len(flightCSVHeader))
	record = append(record, strconv.FormatFloat(s.T, 'f', 4, 64), strconv.FormatFloat(jd0+s.T/86400, 'f', 8, 64))
	for _, v := range s.State {
		record = append(record, strconv.FormatFloat(v, 'f', 3, 64))
	}
	return append(record, strconv.FormatFloat(s.Height, 'f', 3, 64), strconv.FormatFloat(s.Mach, 'f', 4, 64), s.Parachute)
}

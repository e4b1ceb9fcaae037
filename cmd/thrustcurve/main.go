package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"

	nimbus "github.com/icl-rocketry/Nimbus-24"
)

const (
	defaultInput  = "flight_quali_curve.csv"
	defaultOutput = "normalized_flight_quali_curve.txt"
)

// Extracts the firing from a flight qualification test log, with the time counted from its start.

var (
	input, output, plotFile string
	start, end              float64
)

func init() {
	flag.StringVar(&input, "input", defaultInput, "test log CSV with time and thrust columns")
	flag.Float64Var(&start, "start", nimbus.QualificationStart, "start of the firing (s)")
	flag.Float64Var(&end, "end", nimbus.QualificationEnd, "end of the firing (s)")
	flag.StringVar(&output, "output", defaultOutput, "tab separated output, in the output directory if relative")
	flag.StringVar(&plotFile, "plot", "flight_quali_curve.png", "thrust curve PNG, in the output directory if relative")
}

func main() {
	flag.Parse()
	if input == "" {
		log.Fatal("no test log provided")
	}
	in, err := os.Open(input)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()
	out, err := os.Create(nimbus.OutputPath(output))
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()
	n, err := process(in, out, start, end, nimbus.OutputPath(plotFile))
	if err != nil {
		log.Fatalf("%s: %s", input, err)
	}
	log.Printf("%d samples between %.1f s and %.1f s written to %s", n, start, end, out.Name())
}

// process writes the samples of the test log within [start, end] and plots them.
func process(r io.Reader, w io.Writer, start, end float64, plotPath string) (int, error) {
	if end <= start {
		return 0, errors.New("the firing must end after it starts")
	}
	samples, err := nimbus.ReadThrustLog(r)
	if err != nil {
		return 0, err
	}
	samples = nimbus.NormalizeThrust(samples, start, end)
	if len(samples) == 0 {
		return 0, errors.New("no sample during the firing")
	}
	if err := nimbus.WriteNormalizedThrust(w, samples); err != nil {
		return 0, err
	}
	return len(samples), nimbus.PlotThrustCurve(samples, plotPath)
}

package nimbus

import (
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

func TestNewParachute(t *testing.T) {
	p, err := NewParachute(ParachuteConfig{Name: "main", CdS: 29.128, Trigger: MainTrigger(450)})
	if err != nil {
		t.Fatal(err)
	}
	if p.SamplingRate != 100 {
		t.Fatalf("default sampling rate %f", p.SamplingRate)
	}
	for name, cfg := range map[string]ParachuteConfig{
		"no area":          {Name: "a", Trigger: ApogeeTrigger()},
		"no trigger":       {Name: "b", CdS: 1},
		"negative lag":     {Name: "c", CdS: 1, Trigger: ApogeeTrigger(), Lag: -1},
		"full correlation": {Name: "d", CdS: 1, Trigger: ApogeeTrigger(), Noise: Noise{0, 8.3, 1}},
	} {
		if _, err := NewParachute(cfg); err == nil {
			t.Errorf("%s: parachute accepted", name)
		}
	}
}

func TestPressureNoise(t *testing.T) {
	noise := newPressureNoise(Noise{Mean: 0, StdDev: 8.3, Correlation: 0.5}, rand.NewSource(1))
	samples := make([]float64, 20000)
	for i := range samples {
		samples[i] = noise.Next()
	}
	mean, std := stat.MeanStdDev(samples, nil)
	if mean < -0.5 || mean > 0.5 {
		t.Fatalf("noise mean %f", mean)
	}
	if std < 7.5 || std > 9.1 {
		t.Fatalf("noise std %f", std)
	}
	if corr := stat.Correlation(samples[1:], samples[:len(samples)-1], nil); corr < 0.4 || corr > 0.6 {
		t.Fatalf("noise autocorrelation %f", corr)
	}
	quiet := newPressureNoise(Noise{Mean: 2}, rand.NewSource(1))
	if quiet.Next() != 2 {
		t.Fatal("noiseless process is not its mean")
	}
}

func TestDeploymentSampling(t *testing.T) {
	p, _ := NewParachute(ParachuteConfig{Name: "main", CdS: 1, Trigger: ApogeeTrigger(), SamplingRate: 10, Lag: 1.5})
	d := &deployment{parachute: p, noise: newPressureNoise(p.Noise, rand.NewSource(1))}
	up := []float64{0, 0, 100, 0, 0, 1}
	down := []float64{0, 0, 100, 0, 0, -1}
	if d.sample(0, 1e5, 100, up) {
		t.Fatal("fired while ascending")
	}
	if d.sample(0.05, 1e5, 100, down) {
		t.Fatal("sampled before the next sampling time")
	}
	if !d.sample(0.1, 1e5, 100, down) {
		t.Fatal("did not fire when descending")
	}
	if d.inflating(1.0) {
		t.Fatal("inflated before the lag")
	}
	if !d.inflating(1.65) || d.inflating(1.7) {
		t.Fatal("inflation must be reported exactly once")
	}
	if d.event.TriggerTime != 0.1 || d.event.InflationTime != 1.65 || !d.event.Inflated {
		t.Fatalf("unexpected event %+v", d.event)
	}
}

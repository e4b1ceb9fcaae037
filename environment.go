package nimbus

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	g0            = 9.80665    // standard gravity, m/s^2
	earthRadius   = 6356766.0  // radius used for geopotential altitude, m
	rAir          = 287.05287  // specific gas constant of dry air, J/(kg K)
	γAir          = 1.4        // ratio of specific heats of air
	seaLevelTemp  = 288.15     // K
	seaLevelPress = 101325.0   // Pa
	meanEarthR    = 6371008.8  // mean Earth radius, m
	atmosphereTop = 47000.0    // geopotential altitude of the last modeled layer, m
)

// ErrForecastUnavailable is returned for atmospheric models which require downloading weather data.
var ErrForecastUnavailable = errors.New("forecast, reanalysis and ensemble downloads are not available, use a custom atmosphere or ensemble members")

// AtmosphereKind defines the atmospheric model of an Environment.
type AtmosphereKind uint8

const (
	// StandardAtmosphere is the 1976 US Standard Atmosphere without wind.
	StandardAtmosphere AtmosphereKind = iota + 1
	// CustomAtmosphere is the standard atmosphere with a constant wind.
	CustomAtmosphere
	// EnsembleAtmosphere is the standard atmosphere with one of several wind members.
	EnsembleAtmosphere
)

func (k AtmosphereKind) String() string {
	switch k {
	case StandardAtmosphere:
		return "standard_atmosphere"
	case CustomAtmosphere:
		return "custom_atmosphere"
	case EnsembleAtmosphere:
		return "ensemble"
	default:
		panic("unknown atmosphere kind")
	}
}

// AtmosphereKindFromString returns the atmosphere kind from its name.
func AtmosphereKindFromString(name string) (AtmosphereKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "standard", "standard_atmosphere":
		return StandardAtmosphere, nil
	case "custom", "custom_atmosphere":
		return CustomAtmosphere, nil
	case "ensemble":
		return EnsembleAtmosphere, nil
	case "forecast", "reanalysis", "windy":
		return 0, ErrForecastUnavailable
	default:
		return 0, fmt.Errorf("unknown atmospheric model `%s`", name)
	}
}

// Wind is a horizontal wind, U positive towards the East and V positive towards the North (m/s).
type Wind struct {
	U float64 `mapstructure:"u"`
	V float64 `mapstructure:"v"`
}

func (w Wind) String() string {
	return fmt.Sprintf("u=%.2f v=%.2f m/s", w.U, w.V)
}

// Environment defines the launch site and the atmosphere.
type Environment struct {
	Latitude, Longitude float64   // degrees
	Elevation           float64   // launch site elevation above sea level, m
	Date                time.Time // launch date (UTC)
	kind                AtmosphereKind
	wind                Wind
	members             []Wind
	member              int
}

// NewEnvironment returns a new Environment with the standard atmosphere, launching today at 12:00 UTC.
func NewEnvironment(latitude, longitude, elevation float64) (*Environment, error) {
	if latitude < -90 || latitude > 90 {
		return nil, fmt.Errorf("latitude must be within [-90, 90], got %f", latitude)
	}
	if longitude < -180 || longitude > 360 {
		return nil, fmt.Errorf("longitude must be within [-180, 360], got %f", longitude)
	}
	if elevation < -500 || elevation > 10000 {
		return nil, fmt.Errorf("unreasonable launch site elevation %f m", elevation)
	}
	now := time.Now().UTC()
	return &Environment{Latitude: latitude, Longitude: longitude, Elevation: elevation, Date: time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC), kind: StandardAtmosphere}, nil
}

// SetDate sets the launch date, converted to UTC.
func (e *Environment) SetDate(dt time.Time) {
	e.Date = dt.UTC()
}

// JulianDate returns the Julian date of the launch.
func (e *Environment) JulianDate() float64 {
	return julian.TimeToJD(e.Date)
}

// SetStandardAtmosphere removes any wind.
func (e *Environment) SetStandardAtmosphere() {
	e.kind = StandardAtmosphere
	e.wind = Wind{}
	e.members = nil
}

// SetCustomAtmosphere sets a constant wind over the standard atmosphere.
func (e *Environment) SetCustomAtmosphere(windU, windV float64) {
	e.kind = CustomAtmosphere
	e.wind = Wind{windU, windV}
	e.members = nil
}

// SetEnsembleAtmosphere sets the wind ensemble members. The first member is selected.
func (e *Environment) SetEnsembleAtmosphere(members []Wind) error {
	if len(members) == 0 {
		return errors.New("an ensemble needs at least one member")
	}
	e.kind = EnsembleAtmosphere
	e.members = append([]Wind(nil), members...)
	return e.SelectEnsembleMember(0)
}

// NumEnsembleMembers returns the number of ensemble members (zero unless using an ensemble).
func (e *Environment) NumEnsembleMembers() int {
	return len(e.members)
}

// SelectEnsembleMember switches the wind to the i-th ensemble member.
func (e *Environment) SelectEnsembleMember(i int) error {
	if e.kind != EnsembleAtmosphere {
		return errors.New("not an ensemble atmosphere")
	}
	if i < 0 || i >= len(e.members) {
		return fmt.Errorf("ensemble member %d out of range [0, %d)", i, len(e.members))
	}
	e.member = i
	e.wind = e.members[i]
	return nil
}

// EnsembleMember returns the index of the selected ensemble member.
func (e *Environment) EnsembleMember() int {
	return e.member
}

// Kind returns the atmospheric model.
func (e *Environment) Kind() AtmosphereKind {
	return e.kind
}

// Clone returns a deep copy of this environment.
func (e *Environment) Clone() *Environment {
	c := *e
	c.members = append([]Wind(nil), e.members...)
	return &c
}

// Wind returns the wind at the provided altitude above sea level.
func (e *Environment) Wind(z float64) (u, v float64) {
	return e.wind.U, e.wind.V
}

// Gravity returns the gravitational acceleration at the altitude above sea level.
func (e *Environment) Gravity(z float64) float64 {
	r := meanEarthR / (meanEarthR + z)
	return g0 * r * r
}

// stdLayer is a layer of the 1976 standard atmosphere.
type stdLayer struct {
	base, lapse, temp, press float64
}

var stdLayers = func() []stdLayer {
	bases := []float64{0, 11000, 20000, 32000}
	lapses := []float64{-0.0065, 0, 0.001, 0.0028}
	layers := make([]stdLayer, len(bases))
	temp, press := seaLevelTemp, seaLevelPress
	for i := range bases {
		layers[i] = stdLayer{bases[i], lapses[i], temp, press}
		if i+1 == len(bases) {
			break
		}
		temp, press = layers[i].at(bases[i+1])
	}
	return layers
}()

func (l stdLayer) at(h float64) (temp, press float64) {
	dh := h - l.base
	if l.lapse == 0 {
		return l.temp, l.press * math.Exp(-g0*dh/(rAir*l.temp))
	}
	temp = l.temp + l.lapse*dh
	return temp, l.press * math.Pow(temp/l.temp, -g0/(l.lapse*rAir))
}

// standardAtmosphere returns the temperature and pressure at the geometric altitude z above sea level.
func standardAtmosphere(z float64) (temp, press float64) {
	h := earthRadius * z / (earthRadius + z) // geopotential altitude
	h = math.Max(math.Min(h, atmosphereTop), -5000)
	layer := stdLayers[0]
	for _, l := range stdLayers {
		if h >= l.base {
			layer = l
		}
	}
	return layer.at(h)
}

// Temperature returns the air temperature (K) at the altitude above sea level.
func (e *Environment) Temperature(z float64) float64 {
	temp, _ := standardAtmosphere(z)
	return temp
}

// Pressure returns the air pressure (Pa) at the altitude above sea level.
func (e *Environment) Pressure(z float64) float64 {
	_, press := standardAtmosphere(z)
	return press
}

// Density returns the air density (kg/m^3) at the altitude above sea level.
func (e *Environment) Density(z float64) float64 {
	temp, press := standardAtmosphere(z)
	return press / (rAir * temp)
}

// SpeedOfSound returns the speed of sound (m/s) at the altitude above sea level.
func (e *Environment) SpeedOfSound(z float64) float64 {
	return math.Sqrt(γAir * rAir * e.Temperature(z))
}

func (e *Environment) String() string {
	return fmt.Sprintf("lat %.4f° lon %.4f° elev %.0f m, %s (%s), wind %s", e.Latitude, e.Longitude, e.Elevation, e.Date.Format(time.RFC3339), e.kind, e.wind)
}

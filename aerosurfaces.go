package nimbus

import (
	"fmt"
	"math"
	"strings"
)

// AeroSurface is a lifting surface of the rocket. The local center of pressure is measured
// from the surface origin (nose tip, fin root leading edge, tail top) towards the tail.
type AeroSurface interface {
	Name() string
	Position() float64
	LocalCenterOfPressure() float64
	// NormalForceSlope returns the normal force coefficient derivative (per radian) referenced to the provided radius.
	NormalForceSlope(refRadius float64) float64
}

// NoseKind is the shape of a nose cone.
type NoseKind uint8

const (
	// VonKarman is the Von Kármán (LD-Haack) ogive.
	VonKarman NoseKind = iota + 1
	// Ogive is the tangent ogive.
	Ogive
	// Conical is a straight cone.
	Conical
	// LVHaack is the LV-Haack series.
	LVHaack
)

func (k NoseKind) String() string {
	switch k {
	case VonKarman:
		return "von karman"
	case Ogive:
		return "ogive"
	case Conical:
		return "conical"
	case LVHaack:
		return "lvhaack"
	default:
		panic("unknown nose kind")
	}
}

// cpFactor is the center of pressure location as a fraction of the nose length.
func (k NoseKind) cpFactor() float64 {
	switch k {
	case VonKarman:
		return 0.5
	case Ogive:
		return 0.466
	case Conical:
		return 2 / 3.
	case LVHaack:
		return 0.437
	default:
		panic("unknown nose kind")
	}
}

// NoseKindFromString returns the nose kind from its name.
func NoseKindFromString(name string) (NoseKind, error) {
	switch strings.ToLower(strings.Join(strings.Fields(name), " ")) {
	case "von karman", "vonkarman", "von_karman":
		return VonKarman, nil
	case "ogive", "tangent":
		return Ogive, nil
	case "conical", "cone":
		return Conical, nil
	case "lvhaack", "lv haack":
		return LVHaack, nil
	}
	return 0, fmt.Errorf("unknown nose cone kind `%s`", name)
}

type surface struct {
	name     string
	position float64
}

func (s surface) Name() string      { return s.name }
func (s surface) Position() float64 { return s.position }

// NoseCone is a nose cone whose position is that of its tip.
type NoseCone struct {
	surface
	Length     float64
	Kind       NoseKind
	BaseRadius float64
}

// NewNoseCone returns a new nose cone.
func NewNoseCone(name string, length float64, kind NoseKind, baseRadius, position float64) (*NoseCone, error) {
	if length <= 0 || baseRadius <= 0 {
		return nil, fmt.Errorf("nose cone %s: length and base radius must be positive", name)
	}
	return &NoseCone{surface{name, position}, length, kind, baseRadius}, nil
}

// LocalCenterOfPressure implements the AeroSurface interface.
func (n *NoseCone) LocalCenterOfPressure() float64 {
	return n.Kind.cpFactor() * n.Length
}

// NormalForceSlope implements the AeroSurface interface.
func (n *NoseCone) NormalForceSlope(refRadius float64) float64 {
	r := n.BaseRadius / refRadius
	return 2 * r * r
}

func (n *NoseCone) String() string {
	return fmt.Sprintf("%s: %s nose cone, %.3f m at %.3f m", n.name, n.Kind, n.Length, n.position)
}

// TrapezoidalFins is a set of trapezoidal fins whose position is that of the root chord leading edge.
type TrapezoidalFins struct {
	surface
	N                                int
	RootChord, TipChord, SweepLength float64
	Span                             float64
	CantAngle                        float64   // degrees
	Radius                           float64   // body radius at the fins
	Airfoil                          *Function // lift coefficient vs angle of attack (radians), nil for a flat plate
}

// FinsConfig defines a set of trapezoidal fins.
type FinsConfig struct {
	Name        string
	N           int
	RootChord   float64
	TipChord    float64
	SweepLength float64
	Span        float64
	Position    float64
	CantAngle   float64
	Radius      float64
	Airfoil     *Function
}

// NewTrapezoidalFins returns a new set of trapezoidal fins.
func NewTrapezoidalFins(cfg FinsConfig) (*TrapezoidalFins, error) {
	if cfg.N < 1 {
		return nil, fmt.Errorf("fins %s: need at least one fin", cfg.Name)
	}
	if cfg.RootChord <= 0 || cfg.TipChord < 0 || cfg.Span <= 0 || cfg.Radius <= 0 {
		return nil, fmt.Errorf("fins %s: invalid geometry (root %f, tip %f, span %f, radius %f)", cfg.Name, cfg.RootChord, cfg.TipChord, cfg.Span, cfg.Radius)
	}
	return &TrapezoidalFins{surface{cfg.Name, cfg.Position}, cfg.N, cfg.RootChord, cfg.TipChord, cfg.SweepLength, cfg.Span, cfg.CantAngle, cfg.Radius, cfg.Airfoil}, nil
}

// Config returns the definition of these fins.
func (f *TrapezoidalFins) Config() FinsConfig {
	return FinsConfig{f.name, f.N, f.RootChord, f.TipChord, f.SweepLength, f.Span, f.position, f.CantAngle, f.Radius, f.Airfoil}
}

// LiftSlope2D returns the section lift slope: that of the airfoil at zero incidence, or 2π.
func (f *TrapezoidalFins) LiftSlope2D() float64 {
	if f.Airfoil == nil {
		return 2 * math.Pi
	}
	return f.Airfoil.Derivative(0)
}

// midChordLength returns the length of the mid chord line.
func (f *TrapezoidalFins) midChordLength() float64 {
	return math.Hypot(f.Span, f.SweepLength+f.TipChord/2-f.RootChord/2)
}

// LocalCenterOfPressure implements the AeroSurface interface.
func (f *TrapezoidalFins) LocalCenterOfPressure() float64 {
	cr, ct := f.RootChord, f.TipChord
	return f.SweepLength/3*(cr+2*ct)/(cr+ct) + (cr+ct-cr*ct/(cr+ct))/6
}

// NormalForceSlope implements the AeroSurface interface.
func (f *TrapezoidalFins) NormalForceSlope(refRadius float64) float64 {
	sd := f.Span / (2 * refRadius)
	cr, ct := f.RootChord, f.TipChord
	ratio := 2 * f.midChordLength() / (cr + ct)
	cna := 4 * float64(f.N) * sd * sd / (1 + math.Sqrt(1+ratio*ratio))
	interference := 1 + f.Radius/(f.Span+f.Radius)
	return interference * cna * f.LiftSlope2D() / (2 * math.Pi)
}

func (f *TrapezoidalFins) String() string {
	return fmt.Sprintf("%s: %d trapezoidal fins, root %.3f tip %.3f sweep %.3f span %.3f m at %.3f m", f.name, f.N, f.RootChord, f.TipChord, f.SweepLength, f.Span, f.position)
}

// Tail is a conical transition (boattail when it narrows) whose position is that of its top.
type Tail struct {
	surface
	TopRadius, BottomRadius, Length float64
}

// NewTail returns a new tail.
func NewTail(name string, topRadius, bottomRadius, length, position float64) (*Tail, error) {
	if topRadius <= 0 || bottomRadius <= 0 || length <= 0 {
		return nil, fmt.Errorf("tail %s: radii and length must be positive", name)
	}
	return &Tail{surface{name, position}, topRadius, bottomRadius, length}, nil
}

// LocalCenterOfPressure implements the AeroSurface interface.
func (t *Tail) LocalCenterOfPressure() float64 {
	r := t.TopRadius / t.BottomRadius
	if r == 1 {
		return t.Length / 2
	}
	return t.Length / 3 * (1 + (1-r)/(1-r*r))
}

// NormalForceSlope implements the AeroSurface interface.
func (t *Tail) NormalForceSlope(refRadius float64) float64 {
	top, bottom := t.TopRadius/refRadius, t.BottomRadius/refRadius
	return 2 * (bottom*bottom - top*top)
}

func (t *Tail) String() string {
	return fmt.Sprintf("%s: tail %.3f → %.3f m over %.3f m at %.3f m", t.name, t.TopRadius, t.BottomRadius, t.Length, t.position)
}

// RailButtons are the rail guides. The effective rail length ends when the upper button leaves the rail.
type RailButtons struct {
	Upper, Lower    float64 // positions in rocket coordinates
	AngularPosition float64 // degrees
}

// Spacing returns the distance between both buttons.
func (b RailButtons) Spacing() float64 {
	return math.Abs(b.Upper - b.Lower)
}

// LoadAirfoil reads a lift coefficient curve of (angle of attack, Cl) samples, converting the angles from degrees when asked to.
func LoadAirfoil(path string, inDegrees bool) (*Function, error) {
	polar, err := LoadCSVFunction(path, path)
	if err != nil || !inDegrees {
		return polar, err
	}
	return polar.Scaled(deg2rad, 1)
}

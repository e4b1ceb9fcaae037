package nimbus

import (
	"fmt"
	"strings"
)

// Trigger decides whether a parachute should be ejected from the (noisy) pressure in Pa,
// the height above ground level in m, and the state [x, y, z, vx, vy, vz].
type Trigger func(pressure, height float64, state []float64) bool

// DrogueTrigger fires when the vertical velocity drops below vz (e.g. -10 m/s).
func DrogueTrigger(vz float64) Trigger {
	return func(_, _ float64, state []float64) bool {
		return state[5] < vz
	}
}

// DrogueTriggerBelow fires when the vertical velocity drops below vz under the ceiling height.
func DrogueTriggerBelow(vz, ceiling float64) Trigger {
	return func(_, height float64, state []float64) bool {
		return state[5] < vz && height < ceiling
	}
}

// MainTrigger fires when descending below the provided height.
func MainTrigger(height float64) Trigger {
	return func(_, h float64, state []float64) bool {
		return state[5] < 0 && h < height
	}
}

// ApogeeTrigger fires as soon as the rocket descends.
func ApogeeTrigger() Trigger {
	return func(_, _ float64, state []float64) bool {
		return state[5] < 0
	}
}

// AltitudeTrigger is the numeric trigger of an ejection height, which fires when descending below it.
func AltitudeTrigger(height float64) Trigger {
	return MainTrigger(height)
}

// ParseTrigger returns the trigger named kind (drogue, drogue_below, main, apogee, altitude).
func ParseTrigger(kind string, velocity, height float64) (Trigger, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "drogue":
		if velocity >= 0 {
			return nil, fmt.Errorf("drogue trigger velocity must be negative, got %f", velocity)
		}
		return DrogueTrigger(velocity), nil
	case "drogue_below":
		if velocity >= 0 || height <= 0 {
			return nil, fmt.Errorf("drogue trigger needs a negative velocity and a positive ceiling, got %f and %f", velocity, height)
		}
		return DrogueTriggerBelow(velocity, height), nil
	case "main":
		if height <= 0 {
			return nil, fmt.Errorf("main trigger height must be positive, got %f", height)
		}
		return MainTrigger(height), nil
	case "altitude":
		if height <= 0 {
			return nil, fmt.Errorf("ejection height must be positive, got %f", height)
		}
		return AltitudeTrigger(height), nil
	case "apogee":
		return ApogeeTrigger(), nil
	}
	return nil, fmt.Errorf("unknown trigger `%s`", kind)
}

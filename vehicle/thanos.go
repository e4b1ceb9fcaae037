// Package vehicle holds the parameters of the Nimbus rocket and of its Thanos motor.
package vehicle

import (
	nimbus "github.com/icl-rocketry/Nimbus-24"
)

const (
	// ThrustCurveFile is the Thanos-R thrust curve, in the data directory.
	ThrustCurveFile = "ThanosR.eng"
	// FluxTime is the time over which the tanks empty (s).
	FluxTime = 5.5
	// BurnTime is the Thanos-R burn time (s).
	BurnTime = 4.65
)

// Propellants and pressurant, liquid and gas phases.
var (
	NitrousLiquid  = nimbus.Fluid{Name: "nitrous_l", Density: 1220}
	NitrousGas     = nimbus.Fluid{Name: "nitrous_g", Density: 1.977}
	MethanolLiquid = nimbus.Fluid{Name: "methanol_l", Density: 792}
	MethanolGas    = nimbus.Fluid{Name: "methanol_g", Density: 1.206}
	NitrogenLiquid = nimbus.Fluid{Name: "nitrogen_l", Density: 807}
	NitrogenGas    = nimbus.Fluid{Name: "nitrogen_g", Density: 1.251}
)

// TankSpec defines one of the Thanos tanks.
type TankSpec struct {
	Name          string
	Radius        float64
	Height        float64
	SphericalCaps bool
	LiquidMass    float64 // initial
	Liquid, Gas   nimbus.Fluid
	// Pressurized tanks receive pressurant gas as their liquid drains.
	Pressurized bool
	Position    float64 // of the tank center, motor coordinates
}

// Tanks are the oxidizer, fuel and pressurant tanks of the Thanos motor.
var Tanks = []TankSpec{
	{Name: "oxidizer tank", Radius: 0.085, Height: 0.635, LiquidMass: 7, Liquid: NitrousLiquid, Gas: NitrousGas, Pressurized: true, Position: 0.8926},
	{Name: "fuel tank", Radius: 0.085, Height: 0.369, LiquidMass: 4, Liquid: MethanolLiquid, Gas: MethanolGas, Pressurized: true, Position: 1.5789},
	{Name: "nitrogen tank", Radius: 0.057, Height: 0.455, SphericalCaps: true, LiquidMass: 0.5, Liquid: NitrogenLiquid, Gas: NitrogenGas, Position: 2.1745},
}

// NewTank returns the tank: its liquid drains at a constant rate over the flux time and a pressurized tank
// takes in nitrogen in proportion to the volume freed.
func NewTank(spec TankSpec) (*nimbus.MassFlowRateBasedTank, error) {
	geom, err := nimbus.NewCylindricalTank(spec.Radius, spec.Height, spec.SphericalCaps)
	if err != nil {
		return nil, err
	}
	// Slightly less than the initial mass drains to avoid a negative mass at the end of the flux time.
	outflow := spec.LiquidMass/FluxTime - 1e-6
	cfg := nimbus.TankConfig{
		Name:                  spec.Name,
		Geometry:              geom,
		FluxTime:              FluxTime,
		InitialLiquidMass:     spec.LiquidMass,
		LiquidMassFlowRateOut: nimbus.ConstantFunction(spec.Name+" liquid out", outflow),
		Liquid:                spec.Liquid,
		Gas:                   spec.Gas,
	}
	if spec.Pressurized {
		rate := (spec.LiquidMass / FluxTime) * NitrogenGas.Density / spec.Liquid.Density
		cfg.GasMassFlowRateIn = nimbus.ConstantFunction(spec.Name+" gas in", rate)
	}
	return nimbus.NewMassFlowRateBasedTank(cfg)
}

// ThanosR returns the Thanos-R liquid motor with its three tanks.
func ThanosR() (*nimbus.LiquidMotor, error) {
	thrust, err := nimbus.LoadThrustSource(nimbus.DataPath(ThrustCurveFile))
	if err != nil {
		return nil, err
	}
	motor, err := nimbus.NewLiquidMotor(nimbus.LiquidMotorConfig{
		Name:                    "ThanosR",
		ThrustSource:            thrust,
		BurnTime:                BurnTime,
		DryMass:                 16.2, // engine only, without the tanks
		DryInertia:              nimbus.Inertia{I11: 0.6050, I22: 0.6094, I33: 0.1004},
		NozzleRadius:            0.025,
		CenterOfDryMassPosition: 1.0824,
		NozzlePosition:          0,
		CoordinateSystem:        nimbus.NozzleToCombustionChamber,
	})
	if err != nil {
		return nil, err
	}
	for _, spec := range Tanks {
		tank, err := NewTank(spec)
		if err != nil {
			return nil, err
		}
		motor.AddTank(tank, spec.Position)
	}
	return motor, motor.Validate()
}

// GenericThanosR returns the Thanos-R as a generic motor, whose impulse and burn time can be dispersed.
// Its chamber spans both propellant tanks.
func GenericThanosR() (*nimbus.GenericMotor, error) {
	thrust, err := nimbus.LoadThrustSource(nimbus.DataPath(ThrustCurveFile))
	if err != nil {
		return nil, err
	}
	return nimbus.NewGenericMotor(nimbus.GenericMotorConfig{
		Name:                    "GenericThanosR",
		ThrustSource:            thrust,
		BurnTime:                FluxTime,
		ChamberRadius:           0.085,
		ChamberHeight:           0.635 + 0.369,
		ChamberPosition:         1,
		PropellantInitialMass:   7 + 4,
		NozzleRadius:            0.025,
		DryMass:                 16.2,
		DryInertia:              nimbus.Inertia{I11: 0.6050, I22: 0.6094, I33: 0.1004},
		CenterOfDryMassPosition: 1.0824,
		NozzlePosition:          0,
		CoordinateSystem:        nimbus.NozzleToCombustionChamber,
	})
}

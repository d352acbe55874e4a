package fluid

import (
	"math"

	V "diesel.com/sph/vector"
)

//Dimension of the simulation. 2D runs keep every z component at zero
type Dimension int

const (
	Dim2 Dimension = 2
	Dim3 Dimension = 3
)

const (
	WaterDensity          = 1000.0 //kg/m^3
	DefaultSpacing        = 0.1
	DefaultRelativeRadius = 1.8
	DefaultSpeedOfSound   = 100.0
	DefaultEosExponent    = 7.0
	GRAV                  = -9.8
)

//Parameters - Solver configuration. A copy is held by the solver and never
//mutated during a sub-step, setters queue a replacement for the next Advance
type Parameters struct {
	Dimension            Dimension
	TargetDensity        float64 //Rest density rho0
	TargetSpacing        float64 //Lattice spacing the mass is derived from
	RelativeKernelRadius float64 //Kernel radius in units of spacing
	DensityKernel        string  //std | bspline

	Stiffness    float64 //EOS k, 0 derives rho0*c^2/gamma
	EosExponent  float64 //gamma
	SpeedOfSound float64

	ViscosityCoefficient       float64
	PseudoViscosityCoefficient float64
	SurfaceTensionCoefficient  float64

	NegativePressureClamp bool
	NegativePressureScale float64 //Applied to p<0 only when the clamp is off

	TimeStepLimitScale float64 //CFL safety factor
	FixedSubSteps      int     //0 is adaptive

	Gravity             V.Vec3
	DragCoefficient     float64
	Restitution         float64
	FrictionCoefficient float64

	CheckInstability bool
	MaxSpeed         float64 //Velocity ceiling for the instability check, 0 disables. Density and pressure are only checked for finiteness
	MaxParticles     int     //0 is unlimited
}

//DefaultParameters - water at 0.1 spacing
func DefaultParameters() Parameters {
	return Parameters{
		Dimension:                  Dim3,
		TargetDensity:              WaterDensity,
		TargetSpacing:              DefaultSpacing,
		RelativeKernelRadius:       DefaultRelativeRadius,
		DensityKernel:              StdKernelName,
		EosExponent:                DefaultEosExponent,
		SpeedOfSound:               DefaultSpeedOfSound,
		ViscosityCoefficient:       0.01,
		PseudoViscosityCoefficient: 10.0,
		NegativePressureClamp:      true,
		NegativePressureScale:      1.0,
		TimeStepLimitScale:         0.4,
		Gravity:                    V.Vec3{0, GRAV, 0},
		DragCoefficient:            1e-4,
	}
}

//KernelRadius h = spacing * relative radius
func (p *Parameters) KernelRadius() float64 {
	return p.TargetSpacing * p.RelativeKernelRadius
}

//Validate fails on the first out of range field
func (p *Parameters) Validate() error {
	if p.Dimension != Dim2 && p.Dimension != Dim3 {
		return invalidParameter("dimension must be 2 or 3, got %d", p.Dimension)
	}
	if !positive(p.TargetDensity) {
		return invalidParameter("target density must be positive, got %g", p.TargetDensity)
	}
	if !positive(p.TargetSpacing) {
		return invalidParameter("target spacing must be positive, got %g", p.TargetSpacing)
	}
	if !positive(p.RelativeKernelRadius) {
		return invalidParameter("relative kernel radius must be positive, got %g", p.RelativeKernelRadius)
	}
	if err := checkKernelName(p.DensityKernel); err != nil {
		return err
	}
	if !nonNegative(p.Stiffness) {
		return invalidParameter("stiffness must be non-negative, got %g", p.Stiffness)
	}
	if !positive(p.EosExponent) {
		return invalidParameter("eos exponent must be positive, got %g", p.EosExponent)
	}
	if !positive(p.SpeedOfSound) {
		return invalidParameter("speed of sound must be positive, got %g", p.SpeedOfSound)
	}
	if !nonNegative(p.ViscosityCoefficient) {
		return invalidParameter("viscosity must be non-negative, got %g", p.ViscosityCoefficient)
	}
	if !nonNegative(p.PseudoViscosityCoefficient) {
		return invalidParameter("pseudo viscosity must be non-negative, got %g", p.PseudoViscosityCoefficient)
	}
	if !nonNegative(p.SurfaceTensionCoefficient) {
		return invalidParameter("surface tension must be non-negative, got %g", p.SurfaceTensionCoefficient)
	}
	if !nonNegative(p.NegativePressureScale) || p.NegativePressureScale > 1 {
		return invalidParameter("negative pressure scale must be in [0, 1], got %g", p.NegativePressureScale)
	}
	if !positive(p.TimeStepLimitScale) {
		return invalidParameter("time step limit scale must be positive, got %g", p.TimeStepLimitScale)
	}
	if p.FixedSubSteps < 0 {
		return invalidParameter("fixed sub-steps must be non-negative, got %d", p.FixedSubSteps)
	}
	if !V.IsFinite(p.Gravity) {
		return invalidParameter("gravity must be finite, got %v", p.Gravity)
	}
	if !nonNegative(p.DragCoefficient) {
		return invalidParameter("drag must be non-negative, got %g", p.DragCoefficient)
	}
	if !nonNegative(p.Restitution) || p.Restitution > 1 {
		return invalidParameter("restitution must be in [0, 1], got %g", p.Restitution)
	}
	if !nonNegative(p.FrictionCoefficient) {
		return invalidParameter("friction must be non-negative, got %g", p.FrictionCoefficient)
	}
	if !nonNegative(p.MaxSpeed) {
		return invalidParameter("max speed must be non-negative, got %g", p.MaxSpeed)
	}
	if p.MaxParticles < 0 {
		return invalidParameter("max particles must be non-negative, got %d", p.MaxParticles)
	}
	return nil
}

//geometryChanged - spacing, density, radius or kernel changes re-derive
//kernels and mass
func (p *Parameters) geometryChanged(o *Parameters) bool {
	return p.Dimension != o.Dimension ||
		p.TargetDensity != o.TargetDensity ||
		p.TargetSpacing != o.TargetSpacing ||
		p.RelativeKernelRadius != o.RelativeKernelRadius ||
		p.DensityKernel != o.DensityKernel
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

func nonNegative(x float64) bool {
	return x >= 0 && !math.IsInf(x, 0)
}

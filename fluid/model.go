package fluid

import (
	"math"
	"strings"

	V "diesel.com/sph/vector"
)

//ModelKind tags the closed set of force models
type ModelKind int

const (
	KindWCSPH ModelKind = iota
	KindIdealGas
)

func (k ModelKind) String() string {
	switch k {
	case KindWCSPH:
		return "wcsph"
	case KindIdealGas:
		return "idealgas"
	}
	return "unknown"
}

//ParseModelKind accepts the String() names, case insensitive
func ParseModelKind(name string) (ModelKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "wcsph", "":
		return KindWCSPH, nil
	case "idealgas", "ideal-gas", "ideal_gas":
		return KindIdealGas, nil
	}
	return KindWCSPH, invalidParameter("unknown force model %q", name)
}

//ForceModel - equation of state and pairwise viscosity shared by one solver
//pipeline. Implementations are stateless and safe for concurrent use
type ForceModel interface {
	Kind() ModelKind
	ComputePressure(density float64, params *Parameters) float64
	ViscosityForce(mass float64, vi, vj V.Vec3, rhoi, rhoj, laplacian float64, params *Parameters) V.Vec3
}

//NewForceModel - the model for a kind
func NewForceModel(kind ModelKind) (ForceModel, error) {
	switch kind {
	case KindWCSPH:
		return WCSPHModel{}, nil
	case KindIdealGas:
		return IdealGasModel{}, nil
	}
	return nil, invalidParameter("unknown force model kind %d", kind)
}

//WCSPHModel - Tait equation p = k((rho/rho0)^gamma - 1) (Becker & Teschner 2007)
type WCSPHModel struct{}

func (WCSPHModel) Kind() ModelKind {
	return KindWCSPH
}

//EffectiveStiffness - the configured k or rho0 c^2 / gamma
func (WCSPHModel) EffectiveStiffness(params *Parameters) float64 {
	if params.Stiffness > 0 {
		return params.Stiffness
	}
	c := params.SpeedOfSound
	return params.TargetDensity * c * c / params.EosExponent
}

func (m WCSPHModel) ComputePressure(density float64, params *Parameters) float64 {
	k := m.EffectiveStiffness(params)
	p := k * (math.Pow(density/params.TargetDensity, params.EosExponent) - 1.0)
	return negativePressure(p, params)
}

func (WCSPHModel) ViscosityForce(mass float64, vi, vj V.Vec3, rhoi, rhoj, laplacian float64, params *Parameters) V.Vec3 {
	return pairViscosity(mass, vi, vj, rhoi, rhoj, laplacian, params.ViscosityCoefficient)
}

//IdealGasModel - linear p = k(rho - rho0) (Muller 2003)
type IdealGasModel struct{}

func (IdealGasModel) Kind() ModelKind {
	return KindIdealGas
}

//EffectiveStiffness - the configured k or c^2
func (IdealGasModel) EffectiveStiffness(params *Parameters) float64 {
	if params.Stiffness > 0 {
		return params.Stiffness
	}
	return params.SpeedOfSound * params.SpeedOfSound
}

func (m IdealGasModel) ComputePressure(density float64, params *Parameters) float64 {
	p := m.EffectiveStiffness(params) * (density - params.TargetDensity)
	return negativePressure(p, params)
}

func (IdealGasModel) ViscosityForce(mass float64, vi, vj V.Vec3, rhoi, rhoj, laplacian float64, params *Parameters) V.Vec3 {
	return pairViscosity(mass, vi, vj, rhoi, rhoj, laplacian, params.ViscosityCoefficient)
}

//Negative pressure is clamped to zero or scaled. Scale 1 leaves it untouched
func negativePressure(p float64, params *Parameters) float64 {
	if p >= 0 {
		return p
	}
	if params.NegativePressureClamp {
		return 0
	}
	return p * params.NegativePressureScale
}

//mu m^2 (vj - vi) lap 2 / (rho_i + rho_j), antisymmetric in (i, j)
func pairViscosity(mass float64, vi, vj V.Vec3, rhoi, rhoj, laplacian, mu float64) V.Vec3 {
	if mu == 0 {
		return V.Vec3{}
	}
	coeff := mu * mass * mass * laplacian * 2.0 / (rhoi + rhoj)
	return vj.Sub(vi).Mul(coeff)
}

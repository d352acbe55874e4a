package fluid

import (
	"fmt"
	"math"

	V "diesel.com/sph/vector"
)

//Kernel names accepted by NewKernel and Parameters.DensityKernel
const (
	StdKernelName     = "std"
	SpikyKernelName   = "spiky"
	BSplineKernelName = "bspline"
)

//Kernel Interface for Particle Integration - Kernels return Relative Weight of Integrator
type Kernel interface {
	F(distance float64) float64               //F stands for inline () Function operator since we can't operator overload
	O1D(distance float64) float64             //First Order Derivative of Estimator
	O2D(distance float64) float64             //Second Order Derivative of Estimator
	Grad(distance float64, dir V.Vec3) V.Vec3 //Gradient Vector given unit direction toward the neighbor
	Radius() float64                          //Compact support radius h
}

//StdKernel is the poly6 kernel (Muller 2003). Smooth at the origin so it is
//used for density and interpolation. Powers of H are held in an array
type StdKernel struct {
	H [4]float64
	A float64
}

//SpikyKernel keeps a non vanishing gradient at the origin, used for the
//pressure gradient and the viscosity laplacian
type SpikyKernel struct {
	H [4]float64
	B float64
}

//BSplineKernel is the cubic spline (Monaghan 1992) rescaled so its compact
//support is H rather than 2*H0
type BSplineKernel struct {
	H     float64
	H0    float64
	Sigma float64
}

//--------------------------------------------------------------------------------
// Std (Poly6) Kernel Operators
func (K *StdKernel) F(distance float64) float64 {
	if distance >= K.H[0] {
		return 0.0
	}
	x := 1.0 - distance*distance/K.H[1]
	return K.A * x * x * x
}

func (K *StdKernel) O1D(distance float64) float64 {
	if distance >= K.H[0] {
		return 0.0
	}
	x := 1.0 - distance*distance/K.H[1]
	return -6.0 * K.A * distance / K.H[1] * x * x
}

func (K *StdKernel) O2D(distance float64) float64 {
	if distance >= K.H[0] {
		return 0.0
	}
	r2 := distance * distance / K.H[1]
	return -6.0 * K.A / K.H[1] * (1.0 - r2) * (1.0 - 5.0*r2)
}

func (K *StdKernel) Grad(distance float64, dir V.Vec3) V.Vec3 {
	return dir.Mul(-K.O1D(distance))
}

func (K *StdKernel) Radius() float64 {
	return K.H[0]
}

//--------------------------------------------------------------------------------
// Spiky Kernel Operators
func (K *SpikyKernel) F(distance float64) float64 {
	if distance >= K.H[0] {
		return 0.0
	}
	x := 1.0 - distance/K.H[0]
	return K.B * x * x * x
}

func (K *SpikyKernel) O1D(distance float64) float64 {
	if distance >= K.H[0] {
		return 0.0
	}
	x := 1.0 - distance/K.H[0]
	return -3.0 * K.B / K.H[0] * x * x
}

func (K *SpikyKernel) O2D(distance float64) float64 {
	if distance >= K.H[0] {
		return 0.0
	}
	x := 1.0 - distance/K.H[0]
	return 6.0 * K.B / K.H[1] * x
}

func (K *SpikyKernel) Grad(distance float64, dir V.Vec3) V.Vec3 {
	return dir.Mul(-K.O1D(distance))
}

func (K *SpikyKernel) Radius() float64 {
	return K.H[0]
}

//**-------------------CUBIC KERNEL BSPLINE----------------------//
func (K *BSplineKernel) F(x float64) float64 {
	r := x / K.H0
	if r >= 2.0 {
		return 0.0
	}
	s := 2 - r
	if r < 1.0 {
		return K.Sigma * (1 - 1.5*r*r + 0.75*r*r*r)
	}
	return K.Sigma * 0.25 * s * s * s
}

//1st order Differential
func (K *BSplineKernel) O1D(x float64) float64 {
	r := x / K.H0
	if r >= 2.0 {
		return 0.0
	}
	s := 2 - r
	if r < 1.0 {
		return K.Sigma * (-3*r + 2.25*r*r) / K.H0
	}
	return -K.Sigma * 0.75 * s * s / K.H0
}

//2nd Order Differential
func (K *BSplineKernel) O2D(x float64) float64 {
	r := x / K.H0
	if r >= 2.0 {
		return 0.0
	}
	if r < 1.0 {
		return K.Sigma * (-3 + 4.5*r) / (K.H0 * K.H0)
	}
	return K.Sigma * 1.5 * (2 - r) / (K.H0 * K.H0)
}

//gradient
func (K *BSplineKernel) Grad(x float64, dir V.Vec3) V.Vec3 {
	return dir.Mul(-K.O1D(x))
}

func (K *BSplineKernel) Radius() float64 {
	return K.H
}

////////////ALLOCATION FUNCTION //////////////

func kernelPowers(h float64) [4]float64 {
	return [4]float64{h, h * h, h * h * h, h * h * h * h}
}

func InitStd(h float64, dim Dimension) StdKernel {
	K := StdKernel{H: kernelPowers(h)}
	if dim == Dim2 {
		K.A = 4.0 / (math.Pi * K.H[1])
	} else {
		K.A = 315.0 / (64.0 * math.Pi * K.H[2])
	}
	return K
}

func InitSpiky(h float64, dim Dimension) SpikyKernel {
	K := SpikyKernel{H: kernelPowers(h)}
	if dim == Dim2 {
		K.B = 10.0 / (math.Pi * K.H[1])
	} else {
		K.B = 15.0 / (math.Pi * K.H[2])
	}
	return K
}

func InitBSpline(h float64, dim Dimension) BSplineKernel {
	K := BSplineKernel{H: h, H0: h / 2}
	if dim == Dim2 {
		K.Sigma = 10.0 / (7.0 * math.Pi * K.H0 * K.H0)
	} else {
		K.Sigma = 1.0 / (math.Pi * K.H0 * K.H0 * K.H0)
	}
	return K
}

//NewKernel allocates a kernel by name
func NewKernel(name string, h float64, dim Dimension) (Kernel, error) {
	if !(h > 0) || math.IsInf(h, 0) {
		return nil, invalidParameter("kernel radius must be positive, got %g", h)
	}
	switch name {
	case StdKernelName, "":
		k := InitStd(h, dim)
		return &k, nil
	case SpikyKernelName:
		k := InitSpiky(h, dim)
		return &k, nil
	case BSplineKernelName:
		k := InitBSpline(h, dim)
		return &k, nil
	}
	return nil, invalidParameter("unknown kernel %q", name)
}

func checkKernelName(name string) error {
	switch name {
	case StdKernelName, SpikyKernelName, BSplineKernelName, "":
		return nil
	}
	return fmt.Errorf("%w: unknown density kernel %q", ErrInvalidParameter, name)
}

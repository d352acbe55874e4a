//Kernel Testing - normalization, shape and derivative consistency
package fluid

import (
	"errors"
	"math"
	"testing"

	V "diesel.com/sph/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allKernels(t *testing.T, h float64, dim Dimension) map[string]Kernel {
	kernels := map[string]Kernel{}
	for _, name := range []string{StdKernelName, SpikyKernelName, BSplineKernelName} {
		k, err := NewKernel(name, h, dim)
		require.NoError(t, err)
		kernels[name] = k
	}
	return kernels
}

//Midpoint rule over the support: 4 pi r^2 W in 3D, 2 pi r W in 2D
func kernelIntegral(k Kernel, dim Dimension) float64 {
	const steps = 20000
	h := k.Radius()
	dr := h / steps
	sum := 0.0
	for i := 0; i < steps; i++ {
		r := (float64(i) + 0.5) * dr
		if dim == Dim3 {
			sum += 4 * math.Pi * r * r * k.F(r) * dr
		} else {
			sum += 2 * math.Pi * r * k.F(r) * dr
		}
	}
	return sum
}

func TestKernelNormalization(t *testing.T) {
	for _, dim := range []Dimension{Dim2, Dim3} {
		for _, h := range []float64{0.18, 1.0, 2.5} {
			for name, k := range allKernels(t, h, dim) {
				assert.InDelta(t, 1.0, kernelIntegral(k, dim), 1e-4, "%s h=%g dim=%d", name, h, dim)
			}
		}
	}
}

func TestKernelShape(t *testing.T) {
	const h = 0.18
	for name, k := range allKernels(t, h, Dim3) {
		assert.True(t, k.F(0) > 0, name)
		assert.Equal(t, 0.0, k.F(h), name)
		assert.Equal(t, 0.0, k.F(1.5*h), name)
		assert.Equal(t, 0.0, k.O1D(2*h), name)
		assert.Equal(t, 0.0, k.O2D(2*h), name)

		prev := k.F(0)
		for i := 1; i <= 100; i++ {
			r := h * float64(i) / 100
			w := k.F(r)
			assert.True(t, w >= 0, "%s negative at %g", name, r)
			assert.True(t, w <= prev+1e-12, "%s increases at %g", name, r)
			assert.True(t, k.O1D(r) <= 0, "%s slope positive at %g", name, r)
			prev = w
		}
	}
}

func TestKernelDerivatives(t *testing.T) {
	const h = 0.18
	const eps = 1e-6 * h
	for name, k := range allKernels(t, h, Dim3) {
		for _, x := range []float64{0.3, 0.7} {
			r := x * h
			d1 := (k.F(r+eps) - k.F(r-eps)) / (2 * eps)
			d2 := (k.O1D(r+eps) - k.O1D(r-eps)) / (2 * eps)
			assert.InEpsilon(t, d1, k.O1D(r), 1e-5, "%s O1D at %g", name, x)
			assert.InEpsilon(t, d2, k.O2D(r), 1e-5, "%s O2D at %g", name, x)
		}
	}
}

func TestKernelGradPointsTowardNeighbor(t *testing.T) {
	k := InitSpiky(1.0, Dim3)
	dir := V.Vec3{0, 1, 0}
	g := k.Grad(0.5, dir)
	assert.True(t, g[1] > 0)
	assert.InDelta(t, -k.O1D(0.5), g[1], 1e-12)
	assert.Equal(t, V.Vec3{}, k.Grad(1.5, dir))
}

func TestNewKernelErrors(t *testing.T) {
	_, err := NewKernel("gaussian", 1, Dim3)
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	for _, h := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = NewKernel(StdKernelName, h, Dim3)
		assert.True(t, errors.Is(err, ErrInvalidParameter), "h=%g", h)
	}
}

func BenchmarkStdKernel(b *testing.B) {
	k := InitStd(0.18, Dim3)
	sum := 0.0
	for i := 0; i < b.N; i++ {
		sum += k.F(float64(i%180) * 0.001)
	}
	_ = sum
}

package fluid

import (
	"testing"

	V "diesel.com/sph/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridPoints(t *testing.T) {
	points := GridPoints(V.Vec3{}, V.Vec3{0.3, 0.3, 0.3}, 0.1, Dim3)
	assert.Len(t, points, 64)
	assert.Equal(t, V.Vec3{}, points[0])
	assert.InDelta(t, 0.1, points[1][0], 1e-12)

	flat := GridPoints(V.Vec3{0, 0, 5}, V.Vec3{0.3, 0.3, 5}, 0.1, Dim2)
	assert.Len(t, flat, 16)
	for _, p := range flat {
		assert.Equal(t, 0.0, p[2])
	}

	assert.Empty(t, GridPoints(V.Vec3{1, 1, 1}, V.Vec3{}, 0.1, Dim3))
	assert.Empty(t, GridPoints(V.Vec3{}, V.Vec3{1, 1, 1}, 0, Dim3))
}

func TestBoxFluidSystemBounds(t *testing.T) {
	box := BoxFluidSystem{Origin: V.Vec3{1, 1, 1}, Width: 2, Height: 4, Depth: 6}
	b := box.Bounds()
	assert.Equal(t, V.Vec3{0, -1, -2}, b.Lower)
	assert.Equal(t, V.Vec3{2, 3, 4}, b.Upper)
}

func TestBoxEmitter(t *testing.T) {
	s, err := NewWCSPHSolver(DefaultParameters())
	require.NoError(t, err)

	e := &BoxEmitter{Bounds: BoundingBox{V.Vec3{}, V.Vec3{0.3, 0.3, 0.3}}, InitialVelocity: V.Vec3{1, 0, 0}}
	n, err := e.Emit(s)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, 64, s.ParticleCount())
	assert.Equal(t, V.Vec3{1, 0, 0}, s.Velocities()[10])

	n, err = e.Emit(s)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 64, s.ParticleCount())
}

func TestBoxEmitterJitterDeterministic(t *testing.T) {
	e := &BoxEmitter{Bounds: BoundingBox{V.Vec3{}, V.Vec3{1, 1, 1}}, Jitter: 0.5, Seed: 11, MaxParticles: 50}
	a := e.Points(0.1, Dim3)
	b := e.Points(0.1, Dim3)
	assert.Len(t, a, 50)
	assert.Equal(t, a, b)

	lattice := GridPoints(V.Vec3{}, V.Vec3{1, 1, 1}, 0.1, Dim3)
	for i := range a {
		assert.True(t, V.Distance(a[i], lattice[i]) <= 0.025*1.7321, "point %d", i)
	}
}

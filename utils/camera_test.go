package utils

import (
	"math"
	"testing"

	V "diesel.com/sph/vector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestOrbitCamera(t *testing.T) {
	c := NewOrbitCamera(3)
	eye := c.Eye()
	assert.InDelta(t, 0, eye[0], 1e-6)
	assert.InDelta(t, 3, eye[2], 1e-6)

	c.Rotate(float32(math.Pi/2), 10)
	assert.Less(t, c.Pitch, float32(math.Pi/2))
	eye = c.Eye()
	assert.InDelta(t, 3, eye.Len(), 1e-4)

	c.Zoom(0.001)
	assert.Equal(t, float32(0.1), c.Distance)

	//The target maps onto the view axis
	c = NewOrbitCamera(2)
	p := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -2, p[2], 1e-6)
}

func TestBoxEdges(t *testing.T) {
	lines := BoxEdges(V.Vec3{0, 0, 0}, V.Vec3{1, 2, 3})
	assert.Len(t, lines, 72)

	total := float32(0)
	for i := 0; i < len(lines); i += 6 {
		a := mgl32.Vec3{lines[i], lines[i+1], lines[i+2]}
		b := mgl32.Vec3{lines[i+3], lines[i+4], lines[i+5]}
		total += b.Sub(a).Len()
	}
	assert.InDelta(t, 4*(1+2+3), total, 1e-5)
}

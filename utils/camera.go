package utils

import (
	"math"

	V "diesel.com/sph/vector"
	"github.com/go-gl/mathgl/mgl32"
)

//OrbitCamera circles a target at a fixed distance
type OrbitCamera struct {
	Target   mgl32.Vec3
	Distance float32
	Yaw      float32 //Radians about +y
	Pitch    float32 //Radians above the xz plane
}

func NewOrbitCamera(distance float32) *OrbitCamera {
	return &OrbitCamera{Distance: distance}
}

//Eye position in world space
func (c *OrbitCamera) Eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	return c.Target.Add(mgl32.Vec3{
		c.Distance * cp * float32(math.Sin(float64(c.Yaw))),
		c.Distance * float32(math.Sin(float64(c.Pitch))),
		c.Distance * cp * float32(math.Cos(float64(c.Yaw))),
	})
}

func (c *OrbitCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, mgl32.Vec3{0, 1, 0})
}

//Rotate by mouse deltas. Pitch stays short of the poles
func (c *OrbitCamera) Rotate(dx, dy float32) {
	c.Yaw += dx
	limit := float32(math.Pi/2 - 0.01)
	c.Pitch = mgl32.Clamp(c.Pitch+dy, -limit, limit)
}

//Zoom scales the distance, never below 0.1
func (c *OrbitCamera) Zoom(factor float32) {
	c.Distance = float32(math.Max(0.1, float64(c.Distance*factor)))
}

//BoxEdges - the 12 edges of a box as a GL line list
func BoxEdges(lower, upper V.Vec3) []float32 {
	corner := func(i int) [3]float32 {
		c := lower
		for a := 0; a < 3; a++ {
			if i&(1<<a) != 0 {
				c[a] = upper[a]
			}
		}
		return [3]float32{float32(c[0]), float32(c[1]), float32(c[2])}
	}
	lines := make([]float32, 0, 12*2*3)
	for i := 0; i < 8; i++ {
		for a := 0; a < 3; a++ {
			if i&(1<<a) != 0 {
				continue
			}
			p, q := corner(i), corner(i|(1<<a))
			lines = append(lines, p[0], p[1], p[2], q[0], q[1], q[2])
		}
	}
	return lines
}

package vector

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

//Describes the particle vector construct. Vec3 is mgl64's [3]float64 so the
//solver gets Add/Sub/Mul/Dot/Len for free. 2D simulations keep z at 0.
type Vec3 = mgl64.Vec3

//Zero vector
var Zero = Vec3{}

//NewVec3 fills every component with a
func NewVec3(a float64) Vec3 {
	return Vec3{a, a, a}
}

//Abs - component wise absolute value
func Abs(a Vec3) Vec3 {
	return Vec3{math.Abs(a[0]), math.Abs(a[1]), math.Abs(a[2])}
}

//Length of a
func Length(a Vec3) float64 {
	return a.Len()
}

//Distance between two points
func Distance(a Vec3, b Vec3) float64 {
	return a.Sub(b).Len()
}

//DistanceSquared avoids the sqrt for range checks
func DistanceSquared(a Vec3, b Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

//Normalize returns the unit vector of a. Zero vectors stay zero instead of
//producing NaN
func Normalize(a Vec3) Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Mul(1 / l)
}

//Produces a vector which is a projection of a onto arbitrary vector n
func Proj(a Vec3, n Vec3) Vec3 {
	nn := n.Dot(n)
	if nn == 0 {
		return Vec3{}
	}
	return n.Mul(a.Dot(n) / nn)
}

//Tangential component of a with respect to the normal
func Tan(a Vec3, norm Vec3) Vec3 {
	return a.Sub(Proj(a, norm))
}

//Reflect v about the plane with normal n
func Reflect(n Vec3, v Vec3) Vec3 {
	nn := n.Dot(n)
	if nn == 0 {
		return v
	}
	return v.Sub(n.Mul(2 * n.Dot(v) / nn))
}

//Lerp interpolates a toward b by t
func Lerp(a Vec3, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

//Min and Max are component wise
func Min(a Vec3, b Vec3) Vec3 {
	return Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func Max(a Vec3, b Vec3) Vec3 {
	return Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}

//IsFinite is false when any component is NaN or Inf
func IsFinite(a Vec3) bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(a[i]) || math.IsInf(a[i], 0) {
			return false
		}
	}
	return true
}

//Flatten drops z for 2D simulations
func Flatten(a Vec3) Vec3 {
	return Vec3{a[0], a[1], 0}
}

func String(a Vec3) string {
	return fmt.Sprintf("[ %f, %f, %f]", a[0], a[1], a[2])
}

package geometry

import (
	"math"

	Vec "diesel.com/sph/vector"
)

//Surface - closest point queries against a boundary. Normals face the fluid
type Surface interface {
	ClosestPoint(p Vec.Vec3) Vec.Vec3
	ClosestNormal(p Vec.Vec3) Vec.Vec3
	SignedDistance(p Vec.Vec3) float64
}

//Plane through Point. The fluid side is the one Normal points to
type Plane struct {
	Point  Vec.Vec3
	Normal Vec.Vec3
}

func NewPlane(point, normal Vec.Vec3) *Plane {
	return &Plane{Point: point, Normal: Vec.Normalize(normal)}
}

func (pl *Plane) ClosestPoint(p Vec.Vec3) Vec.Vec3 {
	return p.Sub(pl.Normal.Mul(pl.SignedDistance(p)))
}

func (pl *Plane) ClosestNormal(p Vec.Vec3) Vec.Vec3 {
	return pl.Normal
}

func (pl *Plane) SignedDistance(p Vec.Vec3) float64 {
	return p.Sub(pl.Point).Dot(pl.Normal)
}

//Box - axis aligned. A solid box keeps fluid outside with outward normals,
//a container (IsNormalFlipped) keeps it inside. An axis with Lower == Upper
//is ignored so the same box bounds a 2D domain
type Box struct {
	Lower           Vec.Vec3
	Upper           Vec.Vec3
	IsNormalFlipped bool
}

//NewContainer - box the fluid stays inside of
func NewContainer(lower, upper Vec.Vec3) *Box {
	return &Box{Lower: Vec.Min(lower, upper), Upper: Vec.Max(lower, upper), IsNormalFlipped: true}
}

func (b *Box) axes() []int {
	axes := make([]int, 0, 3)
	for a := 0; a < 3; a++ {
		if b.Upper[a] > b.Lower[a] {
			axes = append(axes, a)
		}
	}
	return axes
}

func (b *Box) contains(p Vec.Vec3, axes []int) bool {
	for _, a := range axes {
		if p[a] < b.Lower[a] || p[a] > b.Upper[a] {
			return false
		}
	}
	return true
}

//nearestFace from inside: axis, side (-1 lower, +1 upper) and distance
func (b *Box) nearestFace(p Vec.Vec3, axes []int) (int, float64, float64) {
	axis, side, dist := -1, 0.0, math.Inf(1)
	for _, a := range axes {
		if d := p[a] - b.Lower[a]; d < dist {
			axis, side, dist = a, -1, d
		}
		if d := b.Upper[a] - p[a]; d < dist {
			axis, side, dist = a, 1, d
		}
	}
	return axis, side, dist
}

//outward closest point and normal of the solid box
func (b *Box) closest(p Vec.Vec3) (Vec.Vec3, Vec.Vec3, float64) {
	axes := b.axes()
	if len(axes) == 0 {
		return p, Vec.Vec3{0, 1, 0}, 0
	}
	if b.contains(p, axes) {
		axis, side, dist := b.nearestFace(p, axes)
		q := p
		n := Vec.Vec3{}
		n[axis] = side
		if side < 0 {
			q[axis] = b.Lower[axis]
		} else {
			q[axis] = b.Upper[axis]
		}
		return q, n, -dist
	}

	q := p
	for _, a := range axes {
		q[a] = math.Max(b.Lower[a], math.Min(p[a], b.Upper[a]))
	}
	return q, Vec.Normalize(p.Sub(q)), Vec.Distance(p, q)
}

func (b *Box) ClosestPoint(p Vec.Vec3) Vec.Vec3 {
	q, _, _ := b.closest(p)
	return q
}

func (b *Box) ClosestNormal(p Vec.Vec3) Vec.Vec3 {
	_, n, _ := b.closest(p)
	if b.IsNormalFlipped {
		return n.Mul(-1)
	}
	return n
}

func (b *Box) SignedDistance(p Vec.Vec3) float64 {
	_, _, d := b.closest(p)
	if b.IsNormalFlipped {
		return -d
	}
	return d
}

//Sphere - solid ball, or a spherical container when flipped
type Sphere struct {
	Center          Vec.Vec3
	Radius          float64
	IsNormalFlipped bool
}

func (s *Sphere) outward(p Vec.Vec3) Vec.Vec3 {
	n := Vec.Normalize(p.Sub(s.Center))
	if n.Len() == 0 {
		return Vec.Vec3{0, 1, 0}
	}
	return n
}

func (s *Sphere) ClosestPoint(p Vec.Vec3) Vec.Vec3 {
	return s.Center.Add(s.outward(p).Mul(s.Radius))
}

func (s *Sphere) ClosestNormal(p Vec.Vec3) Vec.Vec3 {
	if s.IsNormalFlipped {
		return s.outward(p).Mul(-1)
	}
	return s.outward(p)
}

func (s *Sphere) SignedDistance(p Vec.Vec3) float64 {
	d := Vec.Distance(p, s.Center) - s.Radius
	if s.IsNormalFlipped {
		return -d
	}
	return d
}

package geometry

import (
	"fmt"
	"math"

	Vec "diesel.com/sph/vector"
)

const (
	EPSILON = 0.00001
)

//diesel geometry library - particle boundary collision. Surfaces answer closest
//point, closest normal and signed distance queries in world coordinates.
//Normals point to the side the fluid is allowed in, so the signed distance is
//negative once a particle has crossed the surface

//Triangle with vertices stored by value
type Triangle struct {
	Verts [3]Vec.Vec3
}

//Triangle Mesh Storage - every three vertexes are a face
type Mesh struct {
	Vertexes []Vec.Vec3
	Normals  []Vec.Vec3
}

func InitTriangle(a Vec.Vec3, b Vec.Vec3, c Vec.Vec3) Triangle {
	return Triangle{Verts: [3]Vec.Vec3{a, b, c}}
}

//InitMesh builds face normals oriented toward origin. Meshes are containers,
//the fluid lives on the origin side of every face
func InitMesh(vertices []Vec.Vec3, origin Vec.Vec3) (*Mesh, error) {
	if len(vertices) == 0 || len(vertices)%3 != 0 {
		return nil, fmt.Errorf("mesh needs a multiple of 3 vertexes, got %d", len(vertices))
	}
	nMesh := &Mesh{Vertexes: vertices, Normals: make([]Vec.Vec3, len(vertices)/3)}
	for i := 0; i < len(vertices); i += 3 {
		tri := InitTriangle(vertices[i], vertices[i+1], vertices[i+2])
		n := tri.Normal()
		if n.Dot(vertices[i].Sub(origin)) > 0 {
			n = n.Mul(-1.0)
		}
		nMesh.Normals[i/3] = n
	}
	return nMesh, nil
}

func (g *Mesh) Triangles() int {
	return len(g.Vertexes) / 3
}

func (g *Mesh) Triangle(face int) Triangle {
	i := face * 3
	return InitTriangle(g.Vertexes[i], g.Vertexes[i+1], g.Vertexes[i+2])
}

func (tri *Triangle) Normal() Vec.Vec3 {
	N := tri.Verts[1].Sub(tri.Verts[0]).Cross(tri.Verts[2].Sub(tri.Verts[0]))
	return Vec.Normalize(N)
}

//Barycentric coordinates of p projected into the triangle plane, true when
//the projection lies inside the triangle
func (t *Triangle) Barycentric(p Vec.Vec3) (Vec.Vec3, bool) {
	v0 := t.Verts[1].Sub(t.Verts[0])
	v1 := t.Verts[2].Sub(t.Verts[0])
	v2 := p.Sub(t.Verts[0])
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < EPSILON*EPSILON {
		return Vec.Vec3{}, false
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1.0 - v - w
	coord := Vec.Vec3{u, v, w}
	inside := u >= 0 && v >= 0 && w >= 0
	return coord, inside
}

//ClosestPoint on the triangle (Ericson, Real-Time Collision Detection 5.1.5)
func (t *Triangle) ClosestPoint(p Vec.Vec3) Vec.Vec3 {
	a, b, c := t.Verts[0], t.Verts[1], t.Verts[2]
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

//closestFace - index and point of the nearest face
func (g *Mesh) closestFace(p Vec.Vec3) (int, Vec.Vec3) {
	best, bestPoint, bestDist := -1, Vec.Vec3{}, math.Inf(1)
	for f := 0; f < g.Triangles(); f++ {
		tri := g.Triangle(f)
		q := tri.ClosestPoint(p)
		if d := Vec.DistanceSquared(p, q); d < bestDist {
			best, bestPoint, bestDist = f, q, d
		}
	}
	return best, bestPoint
}

func (g *Mesh) ClosestPoint(p Vec.Vec3) Vec.Vec3 {
	_, q := g.closestFace(p)
	return q
}

func (g *Mesh) ClosestNormal(p Vec.Vec3) Vec.Vec3 {
	f, _ := g.closestFace(p)
	if f < 0 {
		return Vec.Vec3{}
	}
	return g.Normals[f]
}

//SignedDistance is positive on the normal side of the nearest face
func (g *Mesh) SignedDistance(p Vec.Vec3) float64 {
	f, q := g.closestFace(p)
	if f < 0 {
		return math.Inf(1)
	}
	d := Vec.Distance(p, q)
	if p.Sub(q).Dot(g.Normals[f]) < 0 {
		return -d
	}
	return d
}

func (g *Mesh) PrintNormals() {
	fmt.Printf("Printing Triangle Normals: Order is {FRONT, BACK, BOTTOM, TOP,LEFT,RIGHT}\n\n")
	for i := range g.Normals {
		fmt.Printf("N: %s\n", Vec.String(g.Normals[i]))
	}
}

//Triangle Mesh Box with 12 Triangles // 36 Vertexes, normals facing inward
func BoxMesh(w float64, h float64, d float64, o Vec.Vec3) *Mesh {
	x := o[0]
	y := o[1]
	z := o[2]

	p := w / 2
	q := h / 2
	s := d / 2

	Verts := []Vec.Vec3{
		//FRONT FACE +Z
		{x - p, y - q, z + s}, {x - p, y + q, z + s}, {x + p, y + q, z + s},
		{x + p, y + q, z + s}, {x + p, y - q, z + s}, {x - p, y - q, z + s},
		//BACK FACE -Z
		{x - p, y - q, z - s}, {x - p, y + q, z - s}, {x + p, y - q, z - s},
		{x - p, y + q, z - s}, {x + p, y + q, z - s}, {x + p, y - q, z - s},
		//BOTTOM FACE -Y
		{x - p, y - q, z + s}, {x - p, y - q, z - s}, {x + p, y - q, z - s},
		{x - p, y - q, z + s}, {x + p, y - q, z - s}, {x + p, y - q, z + s},
		//TOP FACE +Y
		{x - p, y + q, z + s}, {x - p, y + q, z - s}, {x + p, y + q, z - s},
		{x + p, y + q, z - s}, {x + p, y + q, z + s}, {x - p, y + q, z + s},
		//LEFT FACE -X
		{x - p, y - q, z + s}, {x - p, y - q, z - s}, {x - p, y + q, z + s},
		{x - p, y - q, z - s}, {x - p, y + q, z - s}, {x - p, y + q, z + s},
		//RIGHT FACE +X
		{x + p, y + q, z + s}, {x + p, y - q, z + s}, {x + p, y - q, z - s},
		{x + p, y + q, z + s}, {x + p, y + q, z - s}, {x + p, y - q, z - s},
	}

	//Vertex count is fixed at 36
	boxMesh, _ := InitMesh(Verts, o)
	return boxMesh
}

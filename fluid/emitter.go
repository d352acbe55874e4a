package fluid

import (
	"math"
	"math/rand"

	V "diesel.com/sph/vector"
)

//GridPointGenerator walks a regular lattice inside a box, lower corner first.
//2D lattices keep z at 0
type GridPointGenerator struct {
	Spacing float64
	Dim     Dimension
}

//ForEachPoint stops early when fn returns false
func (g GridPointGenerator) ForEachPoint(box BoundingBox, fn func(p V.Vec3) bool) {
	if !(g.Spacing > 0) {
		return
	}
	var counts [3]int
	counts[2] = 1
	for a := 0; a < int(g.Dim); a++ {
		extent := box.Upper[a] - box.Lower[a]
		if extent < 0 {
			return
		}
		counts[a] = int(math.Floor(extent/g.Spacing+1e-9)) + 1
	}

	for k := 0; k < counts[2]; k++ {
		for j := 0; j < counts[1]; j++ {
			for i := 0; i < counts[0]; i++ {
				p := V.Vec3{
					box.Lower[0] + float64(i)*g.Spacing,
					box.Lower[1] + float64(j)*g.Spacing,
					0,
				}
				if g.Dim == Dim3 {
					p[2] = box.Lower[2] + float64(k)*g.Spacing
				}
				if !fn(p) {
					return
				}
			}
		}
	}
}

//GridPoints collects the lattice in [lower, upper]
func GridPoints(lower, upper V.Vec3, spacing float64, dim Dimension) []V.Vec3 {
	var points []V.Vec3
	GridPointGenerator{Spacing: spacing, Dim: dim}.ForEachPoint(BoundingBox{lower, upper}, func(p V.Vec3) bool {
		points = append(points, p)
		return true
	})
	return points
}

//Fluid System Description - Used for boxed particle generation. The box is
//centered on Origin
type BoxFluidSystem struct {
	Origin V.Vec3  //Box Origin //Typically Zero
	Width  float64 //Width Centered
	Height float64 //Height Centered
	Depth  float64 //Depth Centered
}

func (b BoxFluidSystem) Bounds() BoundingBox {
	half := V.Vec3{b.Width / 2, b.Height / 2, b.Depth / 2}
	return BoundingBox{Lower: b.Origin.Sub(half), Upper: b.Origin.Add(half)}
}

//BoxEmitter fills a box with particles on the solver's lattice once
type BoxEmitter struct {
	Bounds          BoundingBox
	InitialVelocity V.Vec3
	Spacing         float64 //0 uses the solver target spacing
	Jitter          float64 //Fraction of spacing in [0, 1]
	Seed            int64
	MaxParticles    int //0 is unlimited

	emitted bool
}

//NewBoxEmitter over a centered box description
func NewBoxEmitter(box BoxFluidSystem, initialVelocity V.Vec3) *BoxEmitter {
	return &BoxEmitter{Bounds: box.Bounds(), InitialVelocity: initialVelocity}
}

//Points the emitter would produce for a lattice spacing
func (e *BoxEmitter) Points(spacing float64, dim Dimension) []V.Vec3 {
	if e.Spacing > 0 {
		spacing = e.Spacing
	}
	var rnd *rand.Rand
	if e.Jitter > 0 {
		rnd = rand.New(rand.NewSource(e.Seed))
	}
	amp := math.Min(math.Max(e.Jitter, 0), 1) * spacing / 2

	var points []V.Vec3
	GridPointGenerator{Spacing: spacing, Dim: dim}.ForEachPoint(e.Bounds, func(p V.Vec3) bool {
		if e.MaxParticles > 0 && len(points) >= e.MaxParticles {
			return false
		}
		if rnd != nil {
			for a := 0; a < int(dim); a++ {
				p[a] += (2*rnd.Float64() - 1) * amp
			}
		}
		points = append(points, p)
		return true
	})
	return points
}

//Emit adds the box to the solver on the first call and is a no-op after.
//Exceeding the solver capacity fails without adding anything
func (e *BoxEmitter) Emit(s *Solver) (int, error) {
	if e.emitted {
		return 0, nil
	}
	params := s.Parameters()
	points := e.Points(params.TargetSpacing, params.Dimension)
	velocities := make([]V.Vec3, len(points))
	for i := range velocities {
		velocities[i] = e.InitialVelocity
	}
	if err := s.AddParticles(points, velocities); err != nil {
		return 0, err
	}
	e.emitted = true
	s.log.INFO.Printf("emitted %d particles", len(points))
	return len(points), nil
}

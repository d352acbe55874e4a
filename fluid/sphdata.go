package fluid

import (
	"math"

	V "diesel.com/sph/vector"
)

const (
	DensityChannel          = "density"
	PressureChannel         = "pressure"
	SmoothedVelocityChannel = "smoothedVelocity"
)

//SphSystemData - particle data plus the SPH quantities: density and pressure
//channels, target density and spacing, the kernel radius and the neighbor
//searcher rebuilt every sub-step
type SphSystemData struct {
	ParticleSystemData

	dim                  Dimension
	targetDensity        float64
	targetSpacing        float64
	relativeKernelRadius float64
	kernelRadius         float64
	densityKernel        Kernel

	densityIdx  int
	pressureIdx int

	bounds    BoundingBox
	grid      *SpatialHashGrid
	neighbors NeighborLists
	gridFresh bool //False once positions move after the last Build
}

//NewSphSystemData - water at the default spacing
func NewSphSystemData(dim Dimension) *SphSystemData {
	s := &SphSystemData{ParticleSystemData: *NewParticleSystemData(0)}
	s.densityIdx = s.AddScalarData(DensityChannel, 0)
	s.pressureIdx = s.AddScalarData(PressureChannel, 0)
	//Defaults always validate
	_ = s.Configure(dim, WaterDensity, DefaultSpacing, DefaultRelativeRadius, StdKernelName)
	return s
}

//Configure re-derives kernel radius, particle radius and mass. Grid cell size
//follows the kernel radius
func (s *SphSystemData) Configure(dim Dimension, targetDensity, targetSpacing, relativeKernelRadius float64, kernel string) error {
	if !positive(targetDensity) {
		return invalidParameter("target density must be positive, got %g", targetDensity)
	}
	if !positive(targetSpacing) || !positive(relativeKernelRadius) {
		return invalidParameter("kernel radius must be positive, got spacing %g and relative radius %g",
			targetSpacing, relativeKernelRadius)
	}
	h := targetSpacing * relativeKernelRadius
	k, err := NewKernel(kernel, h, dim)
	if err != nil {
		return err
	}
	grid, err := NewSpatialHashGrid(h, s.bounds, dim)
	if err != nil {
		return err
	}

	s.dim = dim
	s.targetDensity = targetDensity
	s.targetSpacing = targetSpacing
	s.relativeKernelRadius = relativeKernelRadius
	s.kernelRadius = h
	s.densityKernel = k
	s.grid = grid
	s.gridFresh = false
	s.SetRadius(targetSpacing / 2)
	s.updateMass()
	return nil
}

//SetBounds - domain bounds the hash grid resolution is derived from
func (s *SphSystemData) SetBounds(bounds BoundingBox) error {
	grid, err := NewSpatialHashGrid(s.kernelRadius, bounds, s.dim)
	if err != nil {
		return err
	}
	s.bounds = bounds
	s.grid = grid
	s.gridFresh = false
	return nil
}

func (s *SphSystemData) Dimension() Dimension {
	return s.dim
}

func (s *SphSystemData) TargetDensity() float64 {
	return s.targetDensity
}

func (s *SphSystemData) TargetSpacing() float64 {
	return s.targetSpacing
}

func (s *SphSystemData) RelativeKernelRadius() float64 {
	return s.relativeKernelRadius
}

func (s *SphSystemData) KernelRadius() float64 {
	return s.kernelRadius
}

func (s *SphSystemData) DensityKernel() Kernel {
	return s.densityKernel
}

func (s *SphSystemData) Densities() []float64 {
	return s.ScalarDataAt(s.densityIdx)
}

func (s *SphSystemData) Pressures() []float64 {
	return s.ScalarDataAt(s.pressureIdx)
}

func (s *SphSystemData) Grid() *SpatialHashGrid {
	return s.grid
}

func (s *SphSystemData) NeighborLists() NeighborLists {
	return s.neighbors
}

//updateMass - mass = rho0 / max number density of a regular lattice at the
//target spacing
func (s *SphSystemData) updateMass() {
	h := s.kernelRadius
	half := V.NewVec3(1.5 * h)
	if s.dim == Dim2 {
		half[2] = 0
	}
	points := GridPoints(half.Mul(-1), half, s.targetSpacing, s.dim)

	maxNumberDensity := 0.0
	for _, p := range points {
		sum := 0.0
		for _, q := range points {
			sum += s.densityKernel.F(V.Distance(p, q))
		}
		maxNumberDensity = math.Max(maxNumberDensity, sum)
	}
	if maxNumberDensity > 0 {
		s.SetMass(s.targetDensity / maxNumberDensity)
	}
}

//BuildNeighborSearcher indexes the current positions
func (s *SphSystemData) BuildNeighborSearcher() {
	s.grid.Build(s.Positions())
	s.gridFresh = true
}

//BuildNeighborLists must follow BuildNeighborSearcher in the same sub-step
func (s *SphSystemData) BuildNeighborLists(exec Executor) {
	if !s.gridFresh {
		s.BuildNeighborSearcher()
	}
	s.neighbors = s.grid.BuildNeighborLists(exec, s.kernelRadius, s.neighbors)
}

//invalidateNeighborSearcher - called once positions move
func (s *SphSystemData) invalidateNeighborSearcher() {
	s.gridFresh = false
}

//UpdateDensities - rho_i = m (W(0) + sum_j W(r_ij)) over the neighbor lists
func (s *SphSystemData) UpdateDensities(exec Executor) {
	positions := s.Positions()
	densities := s.Densities()
	m := s.Mass()
	kernel := s.densityKernel
	w0 := kernel.F(0)
	neighbors := s.neighbors

	exec.ParallelFor(s.NumberOfParticles(), func(begin, end int) {
		for i := begin; i < end; i++ {
			sum := w0
			origin := positions[i]
			for _, j := range neighbors[i] {
				sum += kernel.F(V.Distance(origin, positions[j]))
			}
			densities[i] = m * sum
		}
	})
}

//Interpolate evaluates sum_j (m / rho_j) f_j W(|x - x_j|) at an arbitrary point
func (s *SphSystemData) Interpolate(origin V.Vec3, values []float64) float64 {
	if !s.gridFresh {
		s.BuildNeighborSearcher()
	}
	densities := s.Densities()
	m := s.Mass()
	sum := 0.0
	s.grid.ForEachNearbyPoint(origin, s.kernelRadius, func(j int, p V.Vec3) {
		if densities[j] <= 0 {
			return
		}
		sum += m / densities[j] * values[j] * s.densityKernel.F(V.Distance(origin, p))
	})
	return sum
}

//NumberDensity is sum_j W(|x - x_j|) at an arbitrary point
func (s *SphSystemData) NumberDensity(origin V.Vec3) float64 {
	if !s.gridFresh {
		s.BuildNeighborSearcher()
	}
	sum := 0.0
	s.grid.ForEachNearbyPoint(origin, s.kernelRadius, func(_ int, p V.Vec3) {
		sum += s.densityKernel.F(V.Distance(origin, p))
	})
	return sum
}

//AddParticles appends and marks the neighbor searcher stale
func (s *SphSystemData) AddParticles(positions, velocities []V.Vec3) error {
	if err := s.ParticleSystemData.AddParticles(positions, velocities); err != nil {
		return err
	}
	s.gridFresh = false
	return nil
}

//Resize truncates or extends every channel and marks the neighbor searcher stale
func (s *SphSystemData) Resize(n int) {
	s.ParticleSystemData.Resize(n)
	s.gridFresh = false
}

package fluid

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"sync/atomic"

	G "diesel.com/sph/geometry"
	V "diesel.com/sph/vector"
	jww "github.com/spf13/jwalterweatherman"
	"gonum.org/v1/gonum/floats"
)

//State of the sub-step pipeline
type State int32

const (
	Idle State = iota
	ComputingDensity
	ComputingPressureForces
	Integrating
	ResolvingCollisions
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ComputingDensity:
		return "computing-density"
	case ComputingPressureForces:
		return "computing-pressure-forces"
	case Integrating:
		return "integrating"
	case ResolvingCollisions:
		return "resolving-collisions"
	}
	return "unknown"
}

//Upper bound on sub-steps per Advance. Reaching it means velocities have
//blown up and the instability check should be on
const maxSubTimeSteps = 1 << 16

//Solver - SPH fluid with one pipeline per sub-step: density, pressure and
//forces, integration, collision. The force model supplies the equation of
//state and viscosity. A Solver is driven by one goroutine; other goroutines
//read Snapshot copies
type Solver struct {
	model  ForceModel
	params Parameters
	data   *SphSystemData

	spiky          SpikyKernel //Pressure gradient and viscosity laplacian
	smoothedVelIdx int
	speeds         []float64 //Scratch for the max speed scan

	collider G.Collider
	exec     Executor
	log      *jww.Notepad

	mu      sync.Mutex //Guards params writes and pending
	pending *Parameters
	count   atomic.Int64 //Particle count readable off the driving goroutine

	state           atomic.Int32
	currentFrame    Frame
	lastSubTimeStep float64
	numSubTimeSteps int
	time            float64
}

//Option configures a Solver at construction
type Option func(*Solver)

//WithExecutor - passes run on exec. Default serial
func WithExecutor(exec Executor) Option {
	return func(s *Solver) {
		if exec != nil {
			s.exec = exec
		}
	}
}

//WithLogger - solver logging. Default discards
func WithLogger(n *jww.Notepad) Option {
	return func(s *Solver) {
		if n != nil {
			s.log = n
		}
	}
}

//WithCollider sets the collider resolved after integration. Colliders are read
//concurrently from executor workers
func WithCollider(c G.Collider) Option {
	return func(s *Solver) {
		s.collider = c
	}
}

//WithBounds sizes the hash grid to the domain
func WithBounds(b BoundingBox) Option {
	return func(s *Solver) {
		s.data.bounds = b
	}
}

//NewSolver validates params and allocates an empty particle system
func NewSolver(model ForceModel, params Parameters, opts ...Option) (*Solver, error) {
	if model == nil {
		return nil, invalidParameter("force model is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &Solver{
		model:        model,
		data:         NewSphSystemData(params.Dimension),
		exec:         SerialExecutor{},
		log:          jww.NewNotepad(jww.LevelError, jww.LevelWarn, io.Discard, io.Discard, "", log.Ldate|log.Ltime),
		currentFrame: Frame{Index: -1},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.configure(params); err != nil {
		return nil, err
	}
	s.smoothedVelIdx = s.data.AddVectorData(SmoothedVelocityChannel, V.Vec3{})
	s.log.DEBUG.Printf("%s solver: h=%g mass=%g radius=%g", model.Kind(), s.data.KernelRadius(), s.data.Mass(), s.data.Radius())
	return s, nil
}

//NewWCSPHSolver - weakly compressible solver with the Tait equation of state
func NewWCSPHSolver(params Parameters, opts ...Option) (*Solver, error) {
	return NewSolver(WCSPHModel{}, params, opts...)
}

//configure installs validated params, re-deriving kernels, mass and grid
//when the particle geometry changes. On error nothing is modified
func (s *Solver) configure(params Parameters) error {
	if n := s.data.NumberOfParticles(); params.MaxParticles > 0 && params.MaxParticles < n {
		return fmt.Errorf("%w: capacity %d is below the current %d particles",
			ErrCapacityExceeded, params.MaxParticles, n)
	}
	//Configure validates kernel and grid before touching the data
	if s.data.kernelRadius == 0 || params.geometryChanged(&s.params) {
		if err := s.data.Configure(params.Dimension, params.TargetDensity, params.TargetSpacing,
			params.RelativeKernelRadius, params.DensityKernel); err != nil {
			return err
		}
		s.spiky = InitSpiky(s.data.KernelRadius(), params.Dimension)
	}
	if err := s.data.SetCapacity(params.MaxParticles); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = params
	s.mu.Unlock()
	return nil
}

//--------------------------------------------------------------------------------
// Parameters

//Parameters returns the active configuration
func (s *Solver) Parameters() Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

//SetParameters validates and queues params for the next Advance
func (s *Solver) SetParameters(params Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if n := int(s.count.Load()); params.MaxParticles > 0 && params.MaxParticles < n {
		return fmt.Errorf("%w: max particles %d is below the current %d",
			ErrCapacityExceeded, params.MaxParticles, n)
	}
	s.mu.Lock()
	s.pending = &params
	s.mu.Unlock()
	return nil
}

//UpdateParameters edits a copy of the queued (or active) parameters. Safe to
//call from any goroutine
func (s *Solver) UpdateParameters(fn func(*Parameters)) error {
	s.mu.Lock()
	next := s.params
	if s.pending != nil {
		next = *s.pending
	}
	s.mu.Unlock()

	fn(&next)
	return s.SetParameters(next)
}

func (s *Solver) applyPendingParameters() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending == nil {
		return nil
	}
	if err := s.configure(*pending); err != nil {
		return err
	}
	s.log.INFO.Printf("parameters updated: viscosity=%g pseudo=%g clamp=%v",
		s.params.ViscosityCoefficient, s.params.PseudoViscosityCoefficient, s.params.NegativePressureClamp)
	return nil
}

//--------------------------------------------------------------------------------
// Accessors

func (s *Solver) Model() ForceModel {
	return s.model
}

func (s *Solver) Data() *SphSystemData {
	return s.data
}

func (s *Solver) State() State {
	return State(s.state.Load())
}

func (s *Solver) setState(st State) {
	s.state.Store(int32(st))
}

//ParticleCount is safe to call from any goroutine
func (s *Solver) ParticleCount() int {
	return int(s.count.Load())
}

func (s *Solver) Positions() []V.Vec3 {
	return s.data.Positions()
}

func (s *Solver) Velocities() []V.Vec3 {
	return s.data.Velocities()
}

func (s *Solver) Forces() []V.Vec3 {
	return s.data.Forces()
}

func (s *Solver) Densities() []float64 {
	return s.data.Densities()
}

func (s *Solver) Pressures() []float64 {
	return s.data.Pressures()
}

func (s *Solver) ScalarChannel(name string) ([]float64, bool) {
	return s.data.ScalarChannel(name)
}

func (s *Solver) VectorChannel(name string) ([]V.Vec3, bool) {
	return s.data.VectorChannel(name)
}

func (s *Solver) Collider() G.Collider {
	return s.collider
}

func (s *Solver) SetCollider(c G.Collider) {
	s.collider = c
}

//Time is the simulated time in seconds
func (s *Solver) Time() float64 {
	return s.time
}

func (s *Solver) CurrentFrame() Frame {
	return s.currentFrame
}

//AddParticles appends fluid particles. Nil velocities are zero
func (s *Solver) AddParticles(positions, velocities []V.Vec3) error {
	if s.params.Dimension == Dim2 {
		positions = flattenAll(positions)
		velocities = flattenAll(velocities)
	}
	if err := s.data.AddParticles(positions, velocities); err != nil {
		return err
	}
	s.count.Store(int64(s.data.NumberOfParticles()))
	return nil
}

//MaxSubTimeStep - limitScale * h / (c + max speed) for the current state
func (s *Solver) MaxSubTimeStep() float64 {
	speed := s.maxSpeed()
	return s.params.TimeStepLimitScale * s.data.KernelRadius() / (s.params.SpeedOfSound + speed)
}

//LastSubTimeStep - the sub-step length used by the last Advance
func (s *Solver) LastSubTimeStep() float64 {
	return s.lastSubTimeStep
}

//NumberOfSubTimeSteps - the sub-step count of the last Advance
func (s *Solver) NumberOfSubTimeSteps() int {
	return s.numSubTimeSteps
}

func (s *Solver) maxSpeed() float64 {
	velocities := s.data.Velocities()
	n := len(velocities)
	if n == 0 {
		return 0
	}
	if cap(s.speeds) < n {
		s.speeds = make([]float64, n)
	}
	speeds := s.speeds[:n]
	s.exec.ParallelFor(n, func(begin, end int) {
		for i := begin; i < end; i++ {
			speeds[i] = velocities[i].Len()
		}
	})
	if floats.HasNaN(speeds) {
		return math.Inf(1)
	}
	return floats.Max(speeds)
}

func (s *Solver) numberOfSubTimeSteps(timeInterval float64) int {
	if s.params.FixedSubSteps > 0 {
		return s.params.FixedSubSteps
	}
	maxStep := s.MaxSubTimeStep()
	if !(maxStep > 0) {
		return maxSubTimeSteps
	}
	n := math.Ceil(timeInterval / maxStep)
	if n < 1 {
		return 1
	}
	if n > maxSubTimeSteps {
		s.log.WARN.Printf("sub-step count %g capped at %d", n, maxSubTimeSteps)
		return maxSubTimeSteps
	}
	return int(n)
}

//--------------------------------------------------------------------------------
// Time stepping

//Advance moves the simulation forward by timeInterval seconds, split into
//sub-steps no longer than MaxSubTimeStep. ctx is checked between sub-steps
func (s *Solver) Advance(ctx context.Context, timeInterval float64) error {
	if math.IsNaN(timeInterval) || math.IsInf(timeInterval, 0) || timeInterval < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidTimeInterval, timeInterval)
	}
	if err := s.applyPendingParameters(); err != nil {
		return err
	}
	if timeInterval == 0 || s.data.NumberOfParticles() == 0 {
		return nil
	}

	n := s.numberOfSubTimeSteps(timeInterval)
	dt := timeInterval / float64(n)
	s.numSubTimeSteps = n
	s.lastSubTimeStep = dt
	s.log.DEBUG.Printf("advance %g s in %d sub-steps of %g s", timeInterval, n, dt)

	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("advance stopped after %d of %d sub-steps: %w", k, n, err)
		}
		s.advanceSubStep(dt)
		if s.params.CheckInstability {
			if err := s.checkInstability(k); err != nil {
				s.log.ERROR.Println(err)
				return err
			}
		}
	}
	return nil
}

//Update advances by however many frames elapsed since the last update
func (s *Solver) Update(ctx context.Context, frame Frame) error {
	if frame.Index <= s.currentFrame.Index {
		return nil
	}
	for s.currentFrame.Index < frame.Index {
		if err := s.Advance(ctx, frame.TimeIntervalInSeconds); err != nil {
			return err
		}
		s.currentFrame.Index++
	}
	s.currentFrame = frame
	return nil
}

func (s *Solver) advanceSubStep(dt float64) {
	s.setState(ComputingDensity)
	s.data.BuildNeighborSearcher()
	s.data.BuildNeighborLists(s.exec)
	s.data.UpdateDensities(s.exec)

	s.setState(ComputingPressureForces)
	s.computePressures()
	if s.params.PseudoViscosityCoefficient > 0 {
		s.computeSmoothedVelocities()
	}
	s.accumulateForces()

	s.setState(Integrating)
	s.integrate(dt)
	s.data.invalidateNeighborSearcher()

	s.setState(ResolvingCollisions)
	s.resolveCollisions()

	s.setState(Idle)
	s.time += dt
}

//Pressure from the model's equation of state
func (s *Solver) computePressures() {
	densities := s.data.Densities()
	pressures := s.data.Pressures()
	params := &s.params
	s.exec.ParallelFor(len(densities), func(begin, end int) {
		for i := begin; i < end; i++ {
			pressures[i] = s.model.ComputePressure(densities[i], params)
		}
	})
}

//XSPH smoothed velocity, blended in during integration
func (s *Solver) computeSmoothedVelocities() {
	positions := s.data.Positions()
	velocities := s.data.Velocities()
	densities := s.data.Densities()
	smoothed := s.data.VectorDataAt(s.smoothedVelIdx)
	neighbors := s.data.NeighborLists()
	kernel := s.data.DensityKernel()
	m := s.data.Mass()

	s.exec.ParallelFor(len(positions), func(begin, end int) {
		for i := begin; i < end; i++ {
			weightSum := 0.0
			sum := V.Vec3{}
			for _, j := range neighbors[i] {
				w := m / densities[j] * kernel.F(V.Distance(positions[i], positions[j]))
				weightSum += w
				sum = sum.Add(velocities[j].Mul(w))
			}
			wi := m / densities[i]
			weightSum += wi
			sum = sum.Add(velocities[i].Mul(wi))

			if weightSum > 0 {
				smoothed[i] = sum.Mul(1 / weightSum)
			} else {
				smoothed[i] = velocities[i]
			}
		}
	})
}

//accumulateForces writes a fresh force for every particle: gravity, drag and
//the symmetric pressure, viscosity and cohesion pair terms
func (s *Solver) accumulateForces() {
	positions := s.data.Positions()
	velocities := s.data.Velocities()
	forces := s.data.Forces()
	densities := s.data.Densities()
	pressures := s.data.Pressures()
	neighbors := s.data.NeighborLists()
	densityKernel := s.data.DensityKernel()
	spiky := &s.spiky
	params := &s.params

	m := s.data.Mass()
	mSq := m * m
	gravity := params.Gravity.Mul(m)
	if params.Dimension == Dim2 {
		gravity = V.Flatten(gravity)
	}
	drag := params.DragCoefficient
	sigma := params.SurfaceTensionCoefficient

	s.exec.ParallelFor(len(positions), func(begin, end int) {
		for i := begin; i < end; i++ {
			xi, vi := positions[i], velocities[i]
			rhoi, pi := densities[i], pressures[i]
			f := gravity.Sub(vi.Mul(drag))

			for _, j := range neighbors[i] {
				dir := positions[j].Sub(xi)
				dist := dir.Len()
				if dist <= 0 {
					continue
				}
				dir = dir.Mul(1 / dist)
				rhoj := densities[j]

				coeff := mSq * (pi/(rhoi*rhoi) + pressures[j]/(rhoj*rhoj))
				f = f.Sub(spiky.Grad(dist, dir).Mul(coeff))
				f = f.Add(s.model.ViscosityForce(m, vi, velocities[j], rhoi, rhoj, spiky.O2D(dist), params))
				if sigma > 0 {
					f = f.Add(dir.Mul(sigma * mSq * densityKernel.F(dist)))
				}
			}
			forces[i] = f
		}
	})
}

//Semi-implicit Euler with the XSPH blend applied before the force update.
//The blend acts on the start of step velocity, not the post collision one,
//and positions advance with the blended velocity
func (s *Solver) integrate(dt float64) {
	positions := s.data.Positions()
	velocities := s.data.Velocities()
	forces := s.data.Forces()
	smoothed := s.data.VectorDataAt(s.smoothedVelIdx)
	invMass := 1 / s.data.Mass()
	flat := s.params.Dimension == Dim2

	blend := 0.0
	if s.params.PseudoViscosityCoefficient > 0 {
		blend = math.Max(0, math.Min(dt*s.params.PseudoViscosityCoefficient, 1))
	}

	s.exec.ParallelFor(len(positions), func(begin, end int) {
		for i := begin; i < end; i++ {
			v := velocities[i]
			if blend > 0 {
				v = V.Lerp(v, smoothed[i], blend)
			}
			v = v.Add(forces[i].Mul(invMass * dt))
			if flat {
				v = V.Flatten(v)
			}
			velocities[i] = v
			positions[i] = positions[i].Add(v.Mul(dt))
		}
	})
}

func (s *Solver) resolveCollisions() {
	if s.collider == nil {
		return
	}
	positions := s.data.Positions()
	velocities := s.data.Velocities()
	radius := s.data.Radius()
	e, mu := s.params.Restitution, s.params.FrictionCoefficient
	flat := s.params.Dimension == Dim2

	s.exec.ParallelFor(len(positions), func(begin, end int) {
		for i := begin; i < end; i++ {
			p, v := s.collider.ResolveCollision(positions[i], velocities[i], radius, e, mu)
			if flat {
				p, v = V.Flatten(p), V.Flatten(v)
			}
			positions[i], velocities[i] = p, v
		}
	})
}

//checkInstability reports the first density or pressure that is not finite,
//or velocity that is not finite or above MaxSpeed
func (s *Solver) checkInstability(subStep int) error {
	if i := firstNonFinite(s.data.Densities()); i >= 0 {
		return &InstabilityError{Field: DensityChannel, Index: i, Value: s.data.Densities()[i], SubStep: subStep}
	}
	if i := firstNonFinite(s.data.Pressures()); i >= 0 {
		return &InstabilityError{Field: PressureChannel, Index: i, Value: s.data.Pressures()[i], SubStep: subStep}
	}

	velocities := s.data.Velocities()
	ceiling := s.params.MaxSpeed
	for i, v := range velocities {
		speed := v.Len()
		if !V.IsFinite(v) || math.IsInf(speed, 0) {
			return &InstabilityError{Field: VelocityChannel, Index: i, Value: speed, SubStep: subStep}
		}
		if ceiling > 0 && speed > ceiling {
			return &InstabilityError{Field: VelocityChannel, Index: i, Value: speed, SubStep: subStep}
		}
	}
	return nil
}

//firstNonFinite - -1 when every value is finite
func firstNonFinite(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	if !floats.HasNaN(values) && !math.IsInf(floats.Max(values), 1) && !math.IsInf(floats.Min(values), -1) {
		return -1
	}
	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}

func flattenAll(vs []V.Vec3) []V.Vec3 {
	if vs == nil {
		return nil
	}
	flat := make([]V.Vec3, len(vs))
	for i, v := range vs {
		flat[i] = V.Flatten(v)
	}
	return flat
}

//--------------------------------------------------------------------------------
// Snapshots

//Snapshot - deep copy of the particle state for readers on other goroutines
type Snapshot struct {
	Frame      int
	Time       float64
	Dimension  Dimension
	Radius     float64
	Mass       float64
	Positions  []V.Vec3
	Velocities []V.Vec3
	Densities  []float64
	Pressures  []float64
}

//Snapshot copies the state. Call between Advance calls
func (s *Solver) Snapshot() Snapshot {
	return Snapshot{
		Frame:      s.currentFrame.Index,
		Time:       s.time,
		Dimension:  s.params.Dimension,
		Radius:     s.data.Radius(),
		Mass:       s.data.Mass(),
		Positions:  append([]V.Vec3(nil), s.data.Positions()...),
		Velocities: append([]V.Vec3(nil), s.data.Velocities()...),
		Densities:  append([]float64(nil), s.data.Densities()...),
		Pressures:  append([]float64(nil), s.data.Pressures()...),
	}
}

//MeanDensity over all particles, 0 when empty
func (snap *Snapshot) MeanDensity() float64 {
	if len(snap.Densities) == 0 {
		return 0
	}
	return floats.Sum(snap.Densities) / float64(len(snap.Densities))
}

//KineticEnergy - sum 1/2 m |v|^2
func (snap *Snapshot) KineticEnergy() float64 {
	e := 0.0
	for _, v := range snap.Velocities {
		e += 0.5 * snap.Mass * v.Dot(v)
	}
	return e
}

package fluid

//Particle system data is stored as named channels (structure of arrays). Every
//channel has the same length at every point a caller can observe; growth is
//append only and indices are stable
import (
	"fmt"
	"sort"

	V "diesel.com/sph/vector"
)

//Built-in channel names
const (
	PositionChannel = "position"
	VelocityChannel = "velocity"
	ForceChannel    = "force"
)

//ParticleSystemData - N particles with uniform mass and radius
type ParticleSystemData struct {
	count    int
	capacity int //0 is unlimited
	radius   float64
	mass     float64

	scalarData     [][]float64
	scalarDefaults []float64
	scalarNames    map[string]int

	vectorData     [][]V.Vec3
	vectorDefaults []V.Vec3
	vectorNames    map[string]int

	positionIdx int
	velocityIdx int
	forceIdx    int
}

//NewParticleSystemData allocates the built-in channels for n zeroed particles
func NewParticleSystemData(n int) *ParticleSystemData {
	p := &ParticleSystemData{
		scalarNames: make(map[string]int),
		vectorNames: make(map[string]int),
		radius:      1e-3,
		mass:        1e-3,
	}
	p.positionIdx = p.AddVectorData(PositionChannel, V.Vec3{})
	p.velocityIdx = p.AddVectorData(VelocityChannel, V.Vec3{})
	p.forceIdx = p.AddVectorData(ForceChannel, V.Vec3{})
	p.Resize(n)
	return p
}

func (p *ParticleSystemData) NumberOfParticles() int {
	return p.count
}

func (p *ParticleSystemData) Capacity() int {
	return p.capacity
}

//SetCapacity - 0 removes the limit. A limit below the current count is rejected
func (p *ParticleSystemData) SetCapacity(capacity int) error {
	if capacity < 0 {
		return invalidParameter("capacity must be non-negative, got %d", capacity)
	}
	if capacity > 0 && capacity < p.count {
		return fmt.Errorf("%w: capacity %d is below the current %d particles", ErrCapacityExceeded, capacity, p.count)
	}
	p.capacity = capacity
	return nil
}

func (p *ParticleSystemData) Radius() float64 {
	return p.radius
}

func (p *ParticleSystemData) SetRadius(r float64) {
	p.radius = r
}

func (p *ParticleSystemData) Mass() float64 {
	return p.mass
}

func (p *ParticleSystemData) SetMass(m float64) {
	p.mass = m
}

//Resize truncates or extends every channel. New slots take the channel default.
//Each channel is rebuilt before any is swapped in
func (p *ParticleSystemData) Resize(n int) {
	if n < 0 {
		n = 0
	}
	scalars := make([][]float64, len(p.scalarData))
	for i, d := range p.scalarData {
		scalars[i] = resizeScalar(d, n, p.scalarDefaults[i])
	}
	vectors := make([][]V.Vec3, len(p.vectorData))
	for i, d := range p.vectorData {
		vectors[i] = resizeVector(d, n, p.vectorDefaults[i])
	}
	p.scalarData = scalars
	p.vectorData = vectors
	p.count = n
}

//AddScalarData registers a named scalar channel and backfills the default.
//A duplicate name returns the existing channel
func (p *ParticleSystemData) AddScalarData(name string, initial float64) int {
	if idx, ok := p.scalarNames[name]; ok {
		return idx
	}
	idx := len(p.scalarData)
	p.scalarData = append(p.scalarData, resizeScalar(nil, p.count, initial))
	p.scalarDefaults = append(p.scalarDefaults, initial)
	p.scalarNames[name] = idx
	return idx
}

//AddVectorData registers a named vector channel and backfills the default.
//A duplicate name returns the existing channel
func (p *ParticleSystemData) AddVectorData(name string, initial V.Vec3) int {
	if idx, ok := p.vectorNames[name]; ok {
		return idx
	}
	idx := len(p.vectorData)
	p.vectorData = append(p.vectorData, resizeVector(nil, p.count, initial))
	p.vectorDefaults = append(p.vectorDefaults, initial)
	p.vectorNames[name] = idx
	return idx
}

func (p *ParticleSystemData) ScalarDataAt(idx int) []float64 {
	return p.scalarData[idx]
}

func (p *ParticleSystemData) VectorDataAt(idx int) []V.Vec3 {
	return p.vectorData[idx]
}

//ScalarChannel looks a channel up by name
func (p *ParticleSystemData) ScalarChannel(name string) ([]float64, bool) {
	idx, ok := p.scalarNames[name]
	if !ok {
		return nil, false
	}
	return p.scalarData[idx], true
}

//VectorChannel looks a channel up by name
func (p *ParticleSystemData) VectorChannel(name string) ([]V.Vec3, bool) {
	idx, ok := p.vectorNames[name]
	if !ok {
		return nil, false
	}
	return p.vectorData[idx], true
}

//ScalarNames and VectorNames list registered channels, sorted
func (p *ParticleSystemData) ScalarNames() []string {
	return sortedKeys(p.scalarNames)
}

func (p *ParticleSystemData) VectorNames() []string {
	return sortedKeys(p.vectorNames)
}

func (p *ParticleSystemData) Positions() []V.Vec3 {
	return p.vectorData[p.positionIdx]
}

func (p *ParticleSystemData) Velocities() []V.Vec3 {
	return p.vectorData[p.velocityIdx]
}

func (p *ParticleSystemData) Forces() []V.Vec3 {
	return p.vectorData[p.forceIdx]
}

//AddParticle appends a single particle
func (p *ParticleSystemData) AddParticle(position, velocity V.Vec3) error {
	return p.AddParticles([]V.Vec3{position}, []V.Vec3{velocity})
}

//AddParticles appends particles in order. Nil velocities are zero. Length and
//capacity are checked before any channel grows
func (p *ParticleSystemData) AddParticles(positions, velocities []V.Vec3) error {
	if velocities != nil && len(velocities) != len(positions) {
		return fmt.Errorf("%w: %d positions, %d velocities", ErrLengthMismatch, len(positions), len(velocities))
	}
	if p.capacity > 0 && p.count+len(positions) > p.capacity {
		return fmt.Errorf("%w: adding %d to %d particles, capacity %d",
			ErrCapacityExceeded, len(positions), p.count, p.capacity)
	}
	if len(positions) == 0 {
		return nil
	}

	old := p.count
	p.Resize(old + len(positions))
	copy(p.Positions()[old:], positions)
	if velocities != nil {
		copy(p.Velocities()[old:], velocities)
	}
	return nil
}

func resizeScalar(data []float64, n int, initial float64) []float64 {
	if n <= len(data) {
		return data[:n]
	}
	old := len(data)
	if n > cap(data) {
		grown := make([]float64, n, growCapacity(n))
		copy(grown, data)
		data = grown
	} else {
		data = data[:n]
	}
	for i := old; i < n; i++ {
		data[i] = initial
	}
	return data
}

func resizeVector(data []V.Vec3, n int, initial V.Vec3) []V.Vec3 {
	if n <= len(data) {
		return data[:n]
	}
	old := len(data)
	if n > cap(data) {
		grown := make([]V.Vec3, n, growCapacity(n))
		copy(grown, data)
		data = grown
	} else {
		data = data[:n]
	}
	for i := old; i < n; i++ {
		data[i] = initial
	}
	return data
}

func growCapacity(n int) int {
	return n + n/4
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

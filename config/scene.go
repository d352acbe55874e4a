package config

import (
	"fmt"
	"sort"
	"strings"

	"diesel.com/sph/fluid"
	G "diesel.com/sph/geometry"
	V "diesel.com/sph/vector"
	"gopkg.in/gcfg.v1"
)

const ExampleSceneFile = `[Solver]

#######################
# Required Parameters #
#######################

# Force model, one of [ WCSPH | IdealGas ].
Model = WCSPH

# 2 or 3. 2D scenes keep every z coordinate at 0.
Dimension = 3

# Rest density (kg/m^3) and the lattice spacing particle mass is derived from.
TargetDensity = 1000
TargetSpacing = 0.05

#######################
# Optional Parameters #
#######################

# Kernel radius in units of TargetSpacing. Default 1.8.
# RelativeKernelRadius = 1.8

# Density kernel, one of [ std | bspline ].
# DensityKernel = std

# Equation of state. Stiffness 0 derives it from SpeedOfSound.
# Stiffness = 0
# EosExponent = 7
# SpeedOfSound = 100

# Viscosity = 0.01
# PseudoViscosity = 10
# SurfaceTension = 0

# Negative pressure is clamped to 0 unless NegativePressureClamp is false, in
# which case it is multiplied by NegativePressureScale.
# NegativePressureClamp = true
# NegativePressureScale = 1

# TimeStepLimitScale = 0.4
# FixedSubSteps = 0

# GravityX = 0
# GravityY = -9.8
# GravityZ = 0
# Drag = 0.0001
# Restitution = 0
# Friction = 0

# CheckInstability = false
# MaxSpeed = 0
# MaxParticles = 0

[Block "dam"]
# Lowermost corner of a block of fluid and its width along each axis.
X = 0
Y = 0
Z = 0
XWidth = 0.4
YWidth = 0.8
ZWidth = 0.4

# Optional initial velocity, lattice spacing override and jitter as a
# fraction of the spacing.
# VX = 0
# VY = 0
# VZ = 0
# Spacing = 0.05
# Jitter = 0
# Seed = 0

# A particle table (x y z [vx vy vz] columns) can replace the lattice.
# File = path/to/particles.txt

[Collider "tank"]
# Shape must be one of [ Box | MeshBox | Plane | Sphere ].
Shape = Box
X = 0
Y = 0
Z = 0
XWidth = 1
YWidth = 1
ZWidth = 1
# Keeps fluid inside the box instead of outside.
Container = true

# Plane colliders use X, Y, Z as a point and NX, NY, NZ as the normal.
# Sphere colliders use X, Y, Z as the center and Radius.
# VX = 0
# VY = 0
# VZ = 0`

type SolverConfig struct {
	// Required
	Model         string
	Dimension     int
	TargetDensity float64
	TargetSpacing float64

	// Optional
	RelativeKernelRadius         float64
	DensityKernel                string
	Stiffness, EosExponent       float64
	SpeedOfSound                 float64
	Viscosity, PseudoViscosity   float64
	SurfaceTension               float64
	NegativePressureClamp        bool
	NegativePressureScale        float64
	TimeStepLimitScale           float64
	FixedSubSteps                int
	GravityX, GravityY, GravityZ float64
	Drag, Restitution, Friction  float64
	CheckInstability             bool
	MaxSpeed                     float64
	MaxParticles                 int
}

func DefaultSolverConfig() SolverConfig {
	p := fluid.DefaultParameters()
	return SolverConfig{
		Model:                 fluid.KindWCSPH.String(),
		Dimension:             int(p.Dimension),
		TargetDensity:         p.TargetDensity,
		TargetSpacing:         p.TargetSpacing,
		RelativeKernelRadius:  p.RelativeKernelRadius,
		DensityKernel:         p.DensityKernel,
		Stiffness:             p.Stiffness,
		EosExponent:           p.EosExponent,
		SpeedOfSound:          p.SpeedOfSound,
		Viscosity:             p.ViscosityCoefficient,
		PseudoViscosity:       p.PseudoViscosityCoefficient,
		SurfaceTension:        p.SurfaceTensionCoefficient,
		NegativePressureClamp: p.NegativePressureClamp,
		NegativePressureScale: p.NegativePressureScale,
		TimeStepLimitScale:    p.TimeStepLimitScale,
		FixedSubSteps:         p.FixedSubSteps,
		GravityX:              p.Gravity[0],
		GravityY:              p.Gravity[1],
		GravityZ:              p.Gravity[2],
		Drag:                  p.DragCoefficient,
		Restitution:           p.Restitution,
		Friction:              p.FrictionCoefficient,
		CheckInstability:      p.CheckInstability,
		MaxSpeed:              p.MaxSpeed,
		MaxParticles:          p.MaxParticles,
	}
}

//Parameters converts and validates the section
func (con *SolverConfig) Parameters() (fluid.Parameters, error) {
	p := fluid.Parameters{
		Dimension:                  fluid.Dimension(con.Dimension),
		TargetDensity:              con.TargetDensity,
		TargetSpacing:              con.TargetSpacing,
		RelativeKernelRadius:       con.RelativeKernelRadius,
		DensityKernel:              strings.ToLower(con.DensityKernel),
		Stiffness:                  con.Stiffness,
		EosExponent:                con.EosExponent,
		SpeedOfSound:               con.SpeedOfSound,
		ViscosityCoefficient:       con.Viscosity,
		PseudoViscosityCoefficient: con.PseudoViscosity,
		SurfaceTensionCoefficient:  con.SurfaceTension,
		NegativePressureClamp:      con.NegativePressureClamp,
		NegativePressureScale:      con.NegativePressureScale,
		TimeStepLimitScale:         con.TimeStepLimitScale,
		FixedSubSteps:              con.FixedSubSteps,
		Gravity:                    V.Vec3{con.GravityX, con.GravityY, con.GravityZ},
		DragCoefficient:            con.Drag,
		Restitution:                con.Restitution,
		FrictionCoefficient:        con.Friction,
		CheckInstability:           con.CheckInstability,
		MaxSpeed:                   con.MaxSpeed,
		MaxParticles:               con.MaxParticles,
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("[Solver]: %w", err)
	}
	return p, nil
}

//ModelKind of the section
func (con *SolverConfig) ModelKind() (fluid.ModelKind, error) {
	kind, err := fluid.ParseModelKind(con.Model)
	if err != nil {
		return kind, fmt.Errorf("[Solver]: %w", err)
	}
	return kind, nil
}

type BlockConfig struct {
	// Required
	X, Y, Z                float64
	XWidth, YWidth, ZWidth float64

	// Optional
	VX, VY, VZ float64
	Spacing    float64
	Jitter     float64
	Seed       int64
	File       string

	// Optional, "undocumented"
	Name string
}

func (block *BlockConfig) CheckInit(name string, dim int) error {
	if block.File == "" {
		if block.XWidth <= 0 {
			return fmt.Errorf("Need to specify a positive XWidth for Block '%s'", name)
		} else if block.YWidth <= 0 {
			return fmt.Errorf("Need to specify a positive YWidth for Block '%s'", name)
		} else if dim == 3 && block.ZWidth <= 0 {
			return fmt.Errorf("Need to specify a positive ZWidth for Block '%s'", name)
		}
	}
	if block.Spacing < 0 {
		return fmt.Errorf("Block '%s' given a negative spacing, %g.", name, block.Spacing)
	}
	if block.Jitter < 0 || block.Jitter > 1 {
		return fmt.Errorf("Jitter of Block '%s' must be in range [0, 1], but is %g", name, block.Jitter)
	}
	if dim == 2 {
		block.Z, block.ZWidth, block.VZ = 0, 0, 0
	}

	block.Name = name
	return nil
}

//Emitter for the lattice described by the block
func (block *BlockConfig) Emitter() *fluid.BoxEmitter {
	lower := V.Vec3{block.X, block.Y, block.Z}
	return &fluid.BoxEmitter{
		Bounds:          fluid.BoundingBox{Lower: lower, Upper: lower.Add(V.Vec3{block.XWidth, block.YWidth, block.ZWidth})},
		InitialVelocity: V.Vec3{block.VX, block.VY, block.VZ},
		Spacing:         block.Spacing,
		Jitter:          block.Jitter,
		Seed:            block.Seed,
	}
}

type ColliderConfig struct {
	// Required
	Shape   string
	X, Y, Z float64

	// Optional
	XWidth, YWidth, ZWidth float64
	NX, NY, NZ             float64
	Radius                 float64
	Container              bool
	VX, VY, VZ             float64

	// Optional, "undocumented"
	Name string
}

func (con *ColliderConfig) CheckInit(name string, dim int) error {
	tmp := con.Shape
	con.Shape = strings.Trim(strings.ToLower(con.Shape), " ")
	switch con.Shape {
	case "box", "meshbox":
		if con.XWidth <= 0 || con.YWidth <= 0 || (dim == 3 && con.ZWidth <= 0) {
			return fmt.Errorf("Need to specify positive widths for Collider '%s'", name)
		}
		if con.Shape == "meshbox" && dim == 2 {
			return fmt.Errorf("Collider '%s' is a MeshBox, which needs a 3D scene", name)
		}
	case "plane":
		if con.NX == 0 && con.NY == 0 && con.NZ == 0 {
			return fmt.Errorf("Need to specify a non-zero normal for Collider '%s'", name)
		}
	case "sphere":
		if con.Radius <= 0 {
			return fmt.Errorf("Need to specify a positive radius for Collider '%s'.", name)
		}
	default:
		return fmt.Errorf(
			"Shape of Collider '%s' must be one of [Box | MeshBox | Plane | Sphere]. '%s' is "+
				"not recognized.", name, tmp,
		)
	}
	if dim == 2 {
		con.Z, con.ZWidth, con.NZ, con.VZ = 0, 0, 0, 0
	}

	con.Name = name
	return nil
}

//Collider builds the rigid body for a checked section
func (con *ColliderConfig) Collider() *G.RigidBodyCollider {
	origin := V.Vec3{con.X, con.Y, con.Z}
	var surface G.Surface
	switch con.Shape {
	case "box":
		upper := origin.Add(V.Vec3{con.XWidth, con.YWidth, con.ZWidth})
		surface = &G.Box{Lower: origin, Upper: upper, IsNormalFlipped: con.Container}
	case "meshbox":
		center := origin.Add(V.Vec3{con.XWidth / 2, con.YWidth / 2, con.ZWidth / 2})
		surface = G.BoxMesh(con.XWidth, con.YWidth, con.ZWidth, center)
	case "plane":
		surface = G.NewPlane(origin, V.Vec3{con.NX, con.NY, con.NZ})
	case "sphere":
		surface = &G.Sphere{Center: origin, Radius: con.Radius, IsNormalFlipped: con.Container}
	}
	body := G.NewRigidBodyCollider(surface)
	body.LinearVelocity = V.Vec3{con.VX, con.VY, con.VZ}
	body.Origin = origin
	return body
}

//Bounds of a box shaped collider, false for unbounded shapes
func (con *ColliderConfig) Bounds() (fluid.BoundingBox, bool) {
	switch con.Shape {
	case "box", "meshbox":
		lower := V.Vec3{con.X, con.Y, con.Z}
		return fluid.BoundingBox{Lower: lower, Upper: lower.Add(V.Vec3{con.XWidth, con.YWidth, con.ZWidth})}, true
	case "sphere":
		r := V.NewVec3(con.Radius)
		center := V.Vec3{con.X, con.Y, con.Z}
		return fluid.BoundingBox{Lower: center.Sub(r), Upper: center.Add(r)}, true
	}
	return fluid.BoundingBox{}, false
}

//SceneConfig - one [Solver] section plus any number of named blocks and colliders
type SceneConfig struct {
	Solver   SolverConfig
	Block    map[string]*BlockConfig
	Collider map[string]*ColliderConfig
}

func DefaultSceneConfig() *SceneConfig {
	return &SceneConfig{Solver: DefaultSolverConfig()}
}

//ReadSceneConfig reads and checks a scene file. Missing [Solver] variables keep
//their defaults
func ReadSceneConfig(fname string) (*SceneConfig, error) {
	sc := DefaultSceneConfig()
	if err := gcfg.ReadFileInto(sc, fname); err != nil {
		return nil, err
	}
	if err := sc.CheckInit(); err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return sc, nil
}

//ParseSceneConfig is ReadSceneConfig over an in-memory file
func ParseSceneConfig(text string) (*SceneConfig, error) {
	sc := DefaultSceneConfig()
	if err := gcfg.ReadStringInto(sc, text); err != nil {
		return nil, err
	}
	if err := sc.CheckInit(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *SceneConfig) CheckInit() error {
	if _, err := sc.Solver.Parameters(); err != nil {
		return err
	}
	if _, err := sc.Solver.ModelKind(); err != nil {
		return err
	}
	for name, block := range sc.Block {
		if err := block.CheckInit(name, sc.Solver.Dimension); err != nil {
			return err
		}
	}
	for name, col := range sc.Collider {
		if err := col.CheckInit(name, sc.Solver.Dimension); err != nil {
			return err
		}
	}
	return nil
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//Blocks and Colliders in name order so scene construction is deterministic
func (sc *SceneConfig) Blocks() []*BlockConfig {
	out := make([]*BlockConfig, 0, len(sc.Block))
	for _, name := range sortedNames(sc.Block) {
		out = append(out, sc.Block[name])
	}
	return out
}

func (sc *SceneConfig) Colliders() []*ColliderConfig {
	out := make([]*ColliderConfig, 0, len(sc.Collider))
	for _, name := range sortedNames(sc.Collider) {
		out = append(out, sc.Collider[name])
	}
	return out
}

//ColliderSet of every collider section, nil when there are none
func (sc *SceneConfig) ColliderSet() G.Collider {
	cols := sc.Colliders()
	if len(cols) == 0 {
		return nil
	}
	set := make(G.ColliderSet, len(cols))
	for i, col := range cols {
		set[i] = col.Collider()
	}
	return set
}

//Bounds is the union of the bounded colliders, empty when there are none
func (sc *SceneConfig) Bounds() fluid.BoundingBox {
	var out fluid.BoundingBox
	found := false
	for _, col := range sc.Colliders() {
		b, ok := col.Bounds()
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out.Lower = V.Min(out.Lower, b.Lower)
		out.Upper = V.Max(out.Upper, b.Upper)
	}
	return out
}

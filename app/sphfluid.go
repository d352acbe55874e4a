package app

import (
	"fmt"

	"diesel.com/sph/config"
	F "diesel.com/sph/fluid"
	U "diesel.com/sph/utils"
	jww "github.com/spf13/jwalterweatherman"
)

//Fluid scene construction. A scene file describes the solver, the fluid
//blocks seeded into it and the rigid colliders around them. Blocks are
//emitted in name order so the particle ordering is reproducible.

//NewExecutor - workers == 1 runs passes on the calling goroutine, 0 uses
//every CPU
func NewExecutor(workers int) F.Executor {
	if workers == 1 {
		return F.SerialExecutor{}
	}
	return F.NewGoroutineExecutor(workers)
}

//BuildSolver creates the solver for a checked scene and emits its blocks
func BuildSolver(sc *config.SceneConfig, exec F.Executor, log *jww.Notepad) (*F.Solver, error) {
	params, err := sc.Solver.Parameters()
	if err != nil {
		return nil, err
	}
	kind, err := sc.Solver.ModelKind()
	if err != nil {
		return nil, err
	}
	model, err := F.NewForceModel(kind)
	if err != nil {
		return nil, err
	}

	opts := []F.Option{F.WithExecutor(exec), F.WithLogger(log)}
	if col := sc.ColliderSet(); col != nil {
		opts = append(opts, F.WithCollider(col))
	}
	if b := sc.Bounds(); !b.IsEmpty(params.Dimension) {
		opts = append(opts, F.WithBounds(b))
	}

	solver, err := F.NewSolver(model, params, opts...)
	if err != nil {
		return nil, err
	}
	for _, block := range sc.Blocks() {
		n, err := EmitBlock(solver, block)
		if err != nil {
			return nil, fmt.Errorf("Block '%s': %w", block.Name, err)
		}
		if log != nil {
			log.INFO.Printf("Block '%s' seeded %d particles", block.Name, n)
		}
	}
	return solver, nil
}

//EmitBlock adds a block's particles, from its table file when one is given
//and from the lattice otherwise
func EmitBlock(solver *F.Solver, block *config.BlockConfig) (int, error) {
	if block.File == "" {
		return block.Emitter().Emit(solver)
	}
	pos, vel, err := U.ReadParticles(block.File)
	if err != nil {
		return 0, err
	}
	e := block.Emitter()
	for i := range pos {
		pos[i] = pos[i].Add(e.Bounds.Lower)
		vel[i] = vel[i].Add(e.InitialVelocity)
	}
	if err := solver.AddParticles(pos, vel); err != nil {
		return 0, err
	}
	return len(pos), nil
}

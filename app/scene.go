package app

//Manages Fluid Scene Routine - frame timing, output and the observers that
//receive a snapshot of every frame
import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"diesel.com/sph/config"
	F "diesel.com/sph/fluid"
	U "diesel.com/sph/utils"
	jww "github.com/spf13/jwalterweatherman"
)

//Observer receives every completed frame. Observers run on the driving
//goroutine and must copy anything they keep past the call
type Observer interface {
	ObserveFrame(snap *F.Snapshot) error
}

type ObserverFunc func(snap *F.Snapshot) error

func (f ObserverFunc) ObserveFrame(snap *F.Snapshot) error {
	return f(snap)
}

//Seconds timer for interactive animation
type AnimationTimer struct {
	AppStart    time.Time //Time Application Started
	CurrentTime time.Time //Last Polled Time
	LastFrame   time.Time //Last Time a Frame was Simulated
	Interval    time.Duration
}

func NewAnimationTimer(fps float64, now time.Time) *AnimationTimer {
	return &AnimationTimer{
		AppStart:    now,
		CurrentTime: now,
		LastFrame:   now,
		Interval:    time.Duration(float64(time.Second) / fps),
	}
}

//Due reports whether a frame interval has elapsed and restarts the interval
func (a *AnimationTimer) Due(now time.Time) bool {
	a.CurrentTime = now
	if now.Sub(a.LastFrame) < a.Interval {
		return false
	}
	a.LastFrame = now
	return true
}

//Simulation drives a solver frame by frame
type Simulation struct {
	Solver *F.Solver
	Config config.RunConfig

	frame  F.Frame
	exec   F.Executor
	log    *jww.Notepad
	voxels *F.VoxelArray

	mu        sync.Mutex //Guards observers
	observers []Observer
}

//NewSimulation prepares the frame driver. Output directories get particle
//tables, and voxel density tables when rc.Voxels > 0 and bounds are known
func NewSimulation(solver *F.Solver, rc config.RunConfig, exec F.Executor, bounds F.BoundingBox, log *jww.Notepad) (*Simulation, error) {
	if err := rc.Check(); err != nil {
		return nil, err
	}
	if log == nil {
		log = jww.NewNotepad(jww.LevelError, jww.LevelError, io.Discard, io.Discard, "", 0)
	}
	sim := &Simulation{
		Solver: solver,
		Config: rc,
		frame:  F.Frame{Index: -1, TimeIntervalInSeconds: 1 / rc.FPS},
		exec:   exec,
		log:    log,
	}
	if rc.Output != "" {
		sim.AddObserver(&SnapshotWriter{Dir: rc.Output, Every: rc.SnapshotEvery, Log: log})
		dim := solver.Parameters().Dimension
		if rc.Voxels > 0 && !bounds.IsEmpty(dim) {
			voxels, err := F.AllocateVoxelStorage(bounds, rc.Voxels, dim)
			if err != nil {
				return nil, err
			}
			sim.voxels = voxels
		}
	}
	return sim, nil
}

func (sim *Simulation) AddObserver(o Observer) {
	sim.mu.Lock()
	sim.observers = append(sim.observers, o)
	sim.mu.Unlock()
}

//Frame is the last completed frame, index -1 before the first Step
func (sim *Simulation) Frame() F.Frame {
	return sim.frame
}

//Queue applies overrides at the start of the next frame. Safe to call from
//any goroutine
func (sim *Simulation) Queue(o config.Overrides) error {
	if o.Empty() {
		return nil
	}
	return sim.Solver.UpdateParameters(o.Apply)
}

//Step simulates one frame and hands its snapshot to every observer
func (sim *Simulation) Step(ctx context.Context) (*F.Snapshot, error) {
	next := sim.frame
	next.Advance()
	start := time.Now()
	if err := sim.Solver.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("frame %d: %w", next.Index, err)
	}
	sim.frame = next

	snap := sim.Solver.Snapshot()
	sim.log.DEBUG.Printf("Frame %d: t=%.4fs n=%d sub-steps=%d mean density=%.2f in %s",
		snap.Frame, snap.Time, len(snap.Positions), sim.Solver.NumberOfSubTimeSteps(),
		snap.MeanDensity(), time.Since(start))

	if sim.voxels != nil && snap.Frame%sim.Config.SnapshotEvery == 0 {
		sim.voxels.Rasterize(sim.Solver.Data(), sim.exec)
		if _, err := U.WriteVoxelFile(sim.Config.Output, snap.Frame, sim.voxels); err != nil {
			return &snap, err
		}
	}

	sim.mu.Lock()
	observers := append([]Observer(nil), sim.observers...)
	sim.mu.Unlock()
	for _, o := range observers {
		if err := o.ObserveFrame(&snap); err != nil {
			return &snap, err
		}
	}
	return &snap, nil
}

//Run simulates frames frames, stopping early when ctx is done
func (sim *Simulation) Run(ctx context.Context, frames int) error {
	start := time.Now()
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := sim.Step(ctx)
		if err != nil {
			return err
		}
		if (i+1)%10 == 0 || i+1 == frames {
			sim.log.INFO.Printf("Frame %d/%d: t=%.3fs kinetic energy %.4g",
				i+1, frames, snap.Time, snap.KineticEnergy())
		}
	}
	sim.log.INFO.Printf("%d frames of %d particles in %s", frames, sim.Solver.ParticleCount(), time.Since(start))
	return nil
}

//SnapshotWriter writes every Every-th frame as a particle table
type SnapshotWriter struct {
	Dir   string
	Every int
	Log   *jww.Notepad
}

func (w *SnapshotWriter) ObserveFrame(snap *F.Snapshot) error {
	if w.Every > 1 && snap.Frame%w.Every != 0 {
		return nil
	}
	fname, err := U.WriteSnapshotFile(w.Dir, snap)
	if err != nil {
		return err
	}
	if w.Log != nil {
		w.Log.TRACE.Printf("Wrote %s", fname)
	}
	return nil
}

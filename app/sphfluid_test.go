package app

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"diesel.com/sph/config"
	F "diesel.com/sph/fluid"
	U "diesel.com/sph/utils"
	V "diesel.com/sph/vector"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScene = `[Solver]
TargetSpacing = 0.1
CheckInstability = true

[Block "cube"]
X = 0.2
Y = 0.2
Z = 0.2
XWidth = 0.3
YWidth = 0.3
ZWidth = 0.3

[Collider "tank"]
Shape = Box
XWidth = 1
YWidth = 1
ZWidth = 1
Container = true
`

func buildTestSolver(t *testing.T, text string) (*F.Solver, *config.SceneConfig) {
	sc, err := config.ParseSceneConfig(text)
	require.NoError(t, err)
	solver, err := BuildSolver(sc, NewExecutor(1), nil)
	require.NoError(t, err)
	return solver, sc
}

func TestBuildSolver(t *testing.T) {
	solver, _ := buildTestSolver(t, testScene)
	assert.Equal(t, 64, solver.ParticleCount())
	assert.NotNil(t, solver.Collider())
	assert.Equal(t, F.KindWCSPH, solver.Model().Kind())

	for _, p := range solver.Positions() {
		assert.True(t, p[0] >= 0.2 && p[0] <= 0.5+1e-9, "particle %v outside the block", p)
	}
}

func TestNewExecutor(t *testing.T) {
	assert.IsType(t, F.SerialExecutor{}, NewExecutor(1))
	assert.IsType(t, &F.GoroutineExecutor{}, NewExecutor(0))
	assert.Equal(t, 3, NewExecutor(3).(*F.GoroutineExecutor).Workers)
}

func TestEmitBlockFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "drop.txt")
	require.NoError(t, os.WriteFile(fname, []byte("# x y z vx vy vz\n0 0 0 1 0 0\n0.1 0 0 1 0 0\n"), 0644))

	solver, _ := buildTestSolver(t, "[Solver]\nTargetSpacing = 0.1\n")
	block := &config.BlockConfig{X: 0.5, Y: 0.5, Z: 0.5, VY: -1, File: fname}
	require.NoError(t, block.CheckInit("drop", 3))

	n, err := EmitBlock(solver, block)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []V.Vec3{{0.5, 0.5, 0.5}, {0.6, 0.5, 0.5}}, solver.Positions())
	assert.Equal(t, V.Vec3{1, -1, 0}, solver.Velocities()[1])

	block.File = filepath.Join(t.TempDir(), "missing.txt")
	_, err = EmitBlock(solver, block)
	assert.Error(t, err)
}

func testRunConfig() config.RunConfig {
	rc := config.DefaultRunConfig()
	rc.FPS = 60
	return rc
}

func TestSimulationRun(t *testing.T) {
	solver, sc := buildTestSolver(t, testScene)
	rc := testRunConfig()
	rc.Output = filepath.Join(t.TempDir(), "out")
	rc.Voxels = 4

	sim, err := NewSimulation(solver, rc, NewExecutor(1), sc.Bounds(), nil)
	require.NoError(t, err)
	assert.Equal(t, -1, sim.Frame().Index)

	var seen []int
	sim.AddObserver(ObserverFunc(func(snap *F.Snapshot) error {
		seen = append(seen, snap.Frame)
		return nil
	}))

	require.NoError(t, sim.Run(context.Background(), 3))
	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, 2, sim.Frame().Index)
	assert.InDelta(t, 3.0/60, solver.Time(), 1e-9)

	for i := 0; i < 3; i++ {
		assert.FileExists(t, U.SnapshotName(rc.Output, i))
	}
	assert.FileExists(t, filepath.Join(rc.Output, "voxels_00000.txt"))

	for _, p := range solver.Positions() {
		for a := 0; a < 3; a++ {
			assert.True(t, p[a] >= 0 && p[a] <= 1, "particle %v left the tank", p)
		}
	}
}

func TestSimulationQueue(t *testing.T) {
	solver, sc := buildTestSolver(t, testScene)
	sim, err := NewSimulation(solver, testRunConfig(), NewExecutor(1), sc.Bounds(), nil)
	require.NoError(t, err)

	require.NoError(t, sim.Queue(config.Overrides{}))

	visc := 0.2
	require.NoError(t, sim.Queue(config.Overrides{Viscosity: &visc}))
	_, err = sim.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.2, solver.Parameters().ViscosityCoefficient)

	bad := 2.0
	err = sim.Queue(config.Overrides{Restitution: &bad})
	assert.True(t, errors.Is(err, F.ErrInvalidParameter))
}

func TestSimulationErrors(t *testing.T) {
	solver, sc := buildTestSolver(t, testScene)
	rc := testRunConfig()
	rc.FPS = 0
	_, err := NewSimulation(solver, rc, NewExecutor(1), sc.Bounds(), nil)
	assert.Error(t, err)

	sim, err := NewSimulation(solver, testRunConfig(), NewExecutor(1), sc.Bounds(), nil)
	require.NoError(t, err)
	boom := errors.New("boom")
	sim.AddObserver(ObserverFunc(func(*F.Snapshot) error { return boom }))
	_, err = sim.Step(context.Background())
	assert.True(t, errors.Is(err, boom))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(sim.Run(ctx, 5), context.Canceled))
}

func TestAnimationTimer(t *testing.T) {
	t0 := time.Unix(0, 0)
	timer := NewAnimationTimer(10, t0)
	assert.False(t, timer.Due(t0.Add(50*time.Millisecond)))
	assert.True(t, timer.Due(t0.Add(100*time.Millisecond)))
	assert.False(t, timer.Due(t0.Add(150*time.Millisecond)))
	assert.True(t, timer.Due(t0.Add(250*time.Millisecond)))
}

func streamSnapshot(frame int) *F.Snapshot {
	return &F.Snapshot{
		Frame:      frame,
		Time:       0.1,
		Dimension:  F.Dim3,
		Radius:     0.05,
		Mass:       1,
		Positions:  []V.Vec3{{1, 2, 3}},
		Velocities: []V.Vec3{{}},
		Densities:  []float64{1000},
		Pressures:  []float64{0},
	}
}

func TestHub(t *testing.T) {
	controls := make(chan config.Overrides, 1)
	hub := NewHub(func(o config.Overrides) error {
		controls <- o
		return nil
	}, nil)
	require.NoError(t, hub.ObserveFrame(streamSnapshot(2)))

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	//New clients get the latest frame
	var frame FrameMessage
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "frame", frame.Type)
	assert.Equal(t, 2, frame.Index)
	assert.Equal(t, []float32{1, 2, 3}, frame.Positions)
	assert.Equal(t, []float32{1000}, frame.Densities)

	var reply ReplyMessage
	require.NoError(t, conn.WriteJSON(ControlMessage{
		Type:       "parameters",
		Parameters: map[string]interface{}{"viscosity": 0.3},
	}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "ack", reply.Type)
	o := <-controls
	require.NotNil(t, o.Viscosity)
	assert.Equal(t, 0.3, *o.Viscosity)
	assert.Equal(t, 1, hub.Clients())

	require.NoError(t, conn.WriteJSON(ControlMessage{
		Type:       "parameters",
		Parameters: map[string]interface{}{"warp": 9},
	}))
	reply = ReplyMessage{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.NotEmpty(t, reply.Error)

	require.NoError(t, conn.WriteJSON(ControlMessage{Type: "pause"}))
	reply = ReplyMessage{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)

	//Broadcasts reach connected clients
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	require.NoError(t, hub.ObserveFrame(streamSnapshot(3)))
	for frame.Index != 3 {
		frame = FrameMessage{}
		require.NoError(t, conn.ReadJSON(&frame))
	}
	assert.Equal(t, 3, frame.Index)
}

package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diesel.com/sph/fluid"
	V "diesel.com/sph/vector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	pos := []V.Vec3{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}
	buf := TransferPositionData(nil, pos)
	assert.Equal(t, []float32{1, 0, 0, 0, 2, 0, 0, 0, 3}, buf)

	//Storage is reused once large enough
	again := TransferPositionData(buf, pos[:2])
	assert.Len(t, again, 6)
	assert.Equal(t, &buf[0], &again[0])

	vals := TransferScalarData(nil, []float64{1.5, 2})
	assert.Equal(t, []float32{1.5, 2}, vals)
}

func TestScalePositions(t *testing.T) {
	buf := []float32{2, 2, 2, 0, 0, 0}
	require.NoError(t, ScalePositions(buf, mgl32.Vec3{1, 1, 1}, 2))
	assert.Equal(t, []float32{3, 3, 3, -1, -1, -1}, buf)
	assert.Error(t, ScalePositions([]float32{1, 2}, mgl32.Vec3{}, 1))
}

func TestFitTransform(t *testing.T) {
	m := FitTransform(V.Vec3{0, 0, 0}, V.Vec3{2, 1, 1})
	lo := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	hi := m.Mul4x1(mgl32.Vec4{2, 1, 1, 1})
	assert.InDelta(t, -1, lo[0], 1e-6)
	assert.InDelta(t, -0.5, lo[1], 1e-6)
	assert.InDelta(t, 1, hi[0], 1e-6)
	assert.InDelta(t, 0.5, hi[2], 1e-6)
}

func TestNormalize(t *testing.T) {
	vals := []float32{0, 5, 10, 20}
	Normalize(vals, 0, 10)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, vals)

	flat := []float32{3, 3}
	Normalize(flat, 3, 3)
	assert.Equal(t, []float32{0, 0}, flat)
}

func testSnapshot() *fluid.Snapshot {
	return &fluid.Snapshot{
		Frame:      3,
		Time:       0.05,
		Dimension:  fluid.Dim3,
		Radius:     0.05,
		Mass:       0.1,
		Positions:  []V.Vec3{{0.1, 0.2, 0.3}, {1, 2, 3}},
		Velocities: []V.Vec3{{-1, 0, 0.5}, {0, 0, 0}},
		Densities:  []float64{1000, 998.5},
		Pressures:  []float64{12, 0},
	}
}

func TestWriteSnapshot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, testSnapshot()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, SnapshotHeader, lines[1])
	assert.Equal(t, "0.1 0.2 0.3 -1 0 0.5 1000 12", lines[2])
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	snap := testSnapshot()
	fname, err := WriteSnapshotFile(dir, snap)
	require.NoError(t, err)
	assert.Equal(t, SnapshotName(dir, 3), fname)

	pos, vel, err := ReadParticles(fname)
	require.NoError(t, err)
	assert.Equal(t, snap.Positions, pos)
	assert.Equal(t, snap.Velocities, vel)
}

func TestReadPositionsOnly(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "points.txt")
	require.NoError(t, os.WriteFile(fname, []byte("# x y z\n0 0 0\n0.5 0.25 1\n"), 0644))

	pos, vel, err := ReadParticles(fname)
	require.NoError(t, err)
	assert.Equal(t, []V.Vec3{{0, 0, 0}, {0.5, 0.25, 1}}, pos)
	assert.Equal(t, []V.Vec3{{}, {}}, vel)

	_, _, err = ReadParticles(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestWriteVoxels(t *testing.T) {
	grid, err := fluid.AllocateVoxelStorage(fluid.BoundingBox{Upper: V.Vec3{1, 1, 1}}, 2, fluid.Dim3)
	require.NoError(t, err)
	grid.Density[0] = 7

	var buf bytes.Buffer
	require.NoError(t, WriteVoxels(&buf, grid))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+grid.Len())
	assert.Equal(t, "0.25 0.25 0.25 7", lines[1])

	fname, err := WriteVoxelFile(t.TempDir(), 4, grid)
	require.NoError(t, err)
	assert.Contains(t, fname, "voxels_00004.txt")
}

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"diesel.com/sph/fluid"
	V "diesel.com/sph/vector"
	"github.com/phil-mansfield/table"
)

//Column layout of particle tables
const SnapshotHeader = "# x y z vx vy vz density pressure"

//WriteSnapshot writes one whitespace separated row per particle
func WriteSnapshot(w io.Writer, snap *fluid.Snapshot) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# frame %d time %g dimension %d radius %g mass %g\n",
		snap.Frame, snap.Time, snap.Dimension, snap.Radius, snap.Mass)
	fmt.Fprintln(bw, SnapshotHeader)
	for i, p := range snap.Positions {
		v := snap.Velocities[i]
		fmt.Fprintf(bw, "%.9g %.9g %.9g %.9g %.9g %.9g %.9g %.9g\n",
			p[0], p[1], p[2], v[0], v[1], v[2], snap.Densities[i], snap.Pressures[i])
	}
	return bw.Flush()
}

//SnapshotName of the table for frame index
func SnapshotName(dir string, frame int) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%05d.txt", frame))
}

//WriteSnapshotFile writes snap into dir and returns the file name
func WriteSnapshotFile(dir string, snap *fluid.Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	fname := SnapshotName(dir, snap.Frame)
	f, err := os.Create(fname)
	if err != nil {
		return "", err
	}
	if err := WriteSnapshot(f, snap); err != nil {
		f.Close()
		return "", err
	}
	return fname, f.Close()
}

//ReadParticles reads positions and velocities from the first six columns of a
//particle table. Files with fewer than six columns give zero velocities.
func ReadParticles(fname string) (pos, vel []V.Vec3, err error) {
	n, err := countColumns(fname)
	if err != nil {
		return nil, nil, err
	}
	if n < 3 {
		return nil, nil, fmt.Errorf("Particle table %s has %d columns, need at least 3", fname, n)
	}
	colIdxs := []int{0, 1, 2}
	if n >= 6 {
		colIdxs = append(colIdxs, 3, 4, 5)
	}
	cols, err := table.ReadTable(fname, colIdxs, nil)
	if err != nil {
		return nil, nil, err
	}

	xs, ys, zs := cols[0], cols[1], cols[2]
	pos = make([]V.Vec3, len(xs))
	vel = make([]V.Vec3, len(xs))
	for i := range xs {
		pos[i] = V.Vec3{xs[i], ys[i], zs[i]}
	}
	if len(cols) == 6 {
		for i := range xs {
			vel[i] = V.Vec3{cols[3][i], cols[4][i], cols[5][i]}
		}
	}
	return pos, vel, nil
}

//countColumns of the first data row, 0 for a table with no rows
func countColumns(fname string) (int, error) {
	f, err := os.Open(fname)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return len(strings.Fields(line)), nil
	}
	return 0, sc.Err()
}

//WriteVoxels writes "x y z density" rows for every voxel center
func WriteVoxels(w io.Writer, grid *fluid.VoxelArray) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# x y z density")
	for idx := 0; idx < grid.Len(); idx++ {
		c := grid.Center(idx)
		fmt.Fprintf(bw, "%.9g %.9g %.9g %.9g\n", c[0], c[1], c[2], grid.Density[idx])
	}
	return bw.Flush()
}

func WriteVoxelFile(dir string, frame int, grid *fluid.VoxelArray) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	fname := filepath.Join(dir, fmt.Sprintf("voxels_%05d.txt", frame))
	f, err := os.Create(fname)
	if err != nil {
		return "", err
	}
	if err := WriteVoxels(f, grid); err != nil {
		f.Close()
		return "", err
	}
	return fname, f.Close()
}

//Voxel Array - regular grid the particle density field is rasterized onto for
//export and surface reconstruction. One sample per voxel center
package fluid

import (
	"fmt"

	V "diesel.com/sph/vector"
)

//Cubical Structure
type VRanges struct {
	Min       V.Vec3
	Max       V.Vec3
	Divisions [3]int
	DivLength V.Vec3
}

//VoxelArray holds one density sample per voxel, x fastest
type VoxelArray struct {
	VoxelDescriptor VRanges
	Density         []float64
}

//AllocateVoxelStorage - res divisions per axis over bounds. 2D grids are one voxel deep
func AllocateVoxelStorage(bounds BoundingBox, res int, dim Dimension) (*VoxelArray, error) {
	if res < 1 {
		return nil, invalidParameter("voxel resolution must be at least 1, got %d", res)
	}
	if bounds.IsEmpty(dim) {
		return nil, invalidParameter("voxel bounds are empty")
	}

	desc := VRanges{Min: bounds.Lower, Max: bounds.Upper, Divisions: [3]int{res, res, 1}}
	if dim == Dim3 {
		desc.Divisions[2] = res
	}
	for a := 0; a < 3; a++ {
		desc.DivLength[a] = (desc.Max[a] - desc.Min[a]) / float64(desc.Divisions[a])
	}
	return &VoxelArray{
		VoxelDescriptor: desc,
		Density:         make([]float64, desc.Divisions[0]*desc.Divisions[1]*desc.Divisions[2]),
	}, nil
}

func (v *VoxelArray) Len() int {
	return len(v.Density)
}

//Index of voxel (i, j, k)
func (v *VoxelArray) Index(i, j, k int) int {
	d := v.VoxelDescriptor.Divisions
	return i + d[0]*(j+d[1]*k)
}

//Center of the voxel at a flat index
func (v *VoxelArray) Center(idx int) V.Vec3 {
	d := v.VoxelDescriptor.Divisions
	i, j, k := idx%d[0], (idx/d[0])%d[1], idx/(d[0]*d[1])
	desc := v.VoxelDescriptor
	c := V.Vec3{
		desc.Min[0] + (float64(i)+0.5)*desc.DivLength[0],
		desc.Min[1] + (float64(j)+0.5)*desc.DivLength[1],
		desc.Min[2] + (float64(k)+0.5)*desc.DivLength[2],
	}
	if desc.Divisions[2] == 1 && desc.Max[2] == desc.Min[2] {
		c[2] = desc.Min[2]
	}
	return c
}

//Rasterize samples rho(x) = m sum_j W(|x - x_j|) at every voxel center.
//Rebuilds the neighbor searcher if positions moved since the last sub-step
func (v *VoxelArray) Rasterize(data *SphSystemData, exec Executor) {
	if !data.gridFresh {
		data.BuildNeighborSearcher()
	}
	m := data.Mass()
	exec.ParallelFor(v.Len(), func(begin, end int) {
		for idx := begin; idx < end; idx++ {
			v.Density[idx] = m * data.NumberDensity(v.Center(idx))
		}
	})
}

//Occupancy is the fraction of voxels with density above threshold
func (v *VoxelArray) Occupancy(threshold float64) float64 {
	if v.Len() == 0 {
		return 0
	}
	used := 0
	for _, d := range v.Density {
		if d > threshold {
			used++
		}
	}
	return float64(used) / float64(v.Len())
}

func (v *VoxelArray) PrintStorageRequirements() {
	d := v.VoxelDescriptor.Divisions
	fmt.Printf("Voxel grid %d x %d x %d, %d samples, %d bytes\n", d[0], d[1], d[2], v.Len(), v.Len()*8)
}

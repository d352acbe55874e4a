package fluid

import (
	"math"

	V "diesel.com/sph/vector"
)

const (
	DefaultGridResolution = 64   //Buckets per axis when no domain bounds are given
	maxGridResolution3D   = 128  //Per axis bucket cap in 3D
	maxGridResolution2D   = 2048 //Per axis bucket cap in 2D
)

//BoundingBox - axis aligned domain bounds. An empty box (Upper <= Lower on a
//used axis) means unbounded
type BoundingBox struct {
	Lower V.Vec3
	Upper V.Vec3
}

func (b BoundingBox) Extent() V.Vec3 {
	return b.Upper.Sub(b.Lower)
}

func (b BoundingBox) IsEmpty(dim Dimension) bool {
	for a := 0; a < int(dim); a++ {
		if !(b.Upper[a] > b.Lower[a]) {
			return true
		}
	}
	return false
}

//Contains is inclusive on both faces
func (b BoundingBox) Contains(p V.Vec3, dim Dimension) bool {
	for a := 0; a < int(dim); a++ {
		if p[a] < b.Lower[a] || p[a] > b.Upper[a] {
			return false
		}
	}
	return true
}

//Spatial Hash Grid - Stores particle indices bucketed by cell. Cell coordinates are floor((p - origin) / CellSize),
//buckets wrap modulo Resolution on each axis so far away particles share a bucket and callers filter by distance
type SpatialHashGrid struct {
	CellSize   float64
	Resolution [3]int
	Origin     V.Vec3
	Dim        Dimension

	points   []V.Vec3 //Positions of the last Build, read only until the next Build
	bucketOf []int    //Particle -> bucket
	start    []int    //Bucket -> first slot in sorted, len = buckets+1
	cursor   []int
	sorted   []int //Particle indices ordered by bucket, ascending within a bucket
}

//NewSpatialHashGrid - cell size and domain bounds are fixed for the life of the grid
func NewSpatialHashGrid(cellSize float64, bounds BoundingBox, dim Dimension) (*SpatialHashGrid, error) {
	if !positive(cellSize) {
		return nil, invalidParameter("grid cell size must be positive, got %g", cellSize)
	}
	if dim != Dim2 && dim != Dim3 {
		return nil, invalidParameter("dimension must be 2 or 3, got %d", dim)
	}

	grid := &SpatialHashGrid{CellSize: cellSize, Dim: dim, Resolution: [3]int{1, 1, 1}}
	limit := maxGridResolution3D
	if dim == Dim2 {
		limit = maxGridResolution2D
	}

	empty := bounds.IsEmpty(dim)
	if !empty {
		grid.Origin = bounds.Lower
	}
	for a := 0; a < int(dim); a++ {
		res := DefaultGridResolution
		if !empty {
			res = int(math.Ceil(bounds.Extent()[a]/cellSize)) + 1
		}
		if res < 1 {
			res = 1
		}
		if res > limit {
			res = limit
		}
		grid.Resolution[a] = res
	}
	grid.start = make([]int, grid.buckets()+1)
	return grid, nil
}

func (shg *SpatialHashGrid) buckets() int {
	return shg.Resolution[0] * shg.Resolution[1] * shg.Resolution[2]
}

//CellOf - the cell a point falls in. Points on a cell face belong to the upper cell
func (shg *SpatialHashGrid) CellOf(p V.Vec3) [3]int {
	var cell [3]int
	for a := 0; a < int(shg.Dim); a++ {
		cell[a] = int(math.Floor((p[a] - shg.Origin[a]) / shg.CellSize))
	}
	return cell
}

//Hash maps a cell onto its wrapped bucket
func (shg *SpatialHashGrid) Hash(cell [3]int) int {
	rx, ry, rz := shg.Resolution[0], shg.Resolution[1], shg.Resolution[2]
	return pMod(cell[0], rx) + rx*(pMod(cell[1], ry)+ry*pMod(cell[2], rz))
}

//Build re-indexes every position. The grid keeps a reference to positions
//and must be rebuilt after they move
func (shg *SpatialHashGrid) Build(positions []V.Vec3) {
	n := len(positions)
	nb := shg.buckets()
	shg.points = positions

	if cap(shg.bucketOf) < n {
		shg.bucketOf = make([]int, n)
		shg.sorted = make([]int, n)
	}
	shg.bucketOf = shg.bucketOf[:n]
	shg.sorted = shg.sorted[:n]
	if len(shg.start) != nb+1 {
		shg.start = make([]int, nb+1)
		shg.cursor = make([]int, nb)
	}
	if len(shg.cursor) != nb {
		shg.cursor = make([]int, nb)
	}
	for b := range shg.start {
		shg.start[b] = 0
	}

	//Counting sort - stable so indices ascend within a bucket
	for i, p := range positions {
		b := shg.Hash(shg.CellOf(p))
		shg.bucketOf[i] = b
		shg.start[b+1]++
	}
	for b := 0; b < nb; b++ {
		shg.start[b+1] += shg.start[b]
	}
	copy(shg.cursor, shg.start[:nb])
	for i := 0; i < n; i++ {
		b := shg.bucketOf[i]
		shg.sorted[shg.cursor[b]] = i
		shg.cursor[b]++
	}
}

//Len is the number of points indexed by the last Build
func (shg *SpatialHashGrid) Len() int {
	return len(shg.points)
}

//BucketIndices - indices sharing the bucket of cell, ascending. Wrapped cells
//share buckets so the slice may hold points of other cells
func (shg *SpatialHashGrid) BucketIndices(cell [3]int) []int {
	b := shg.Hash(cell)
	return shg.sorted[shg.start[b]:shg.start[b+1]]
}

//forEachBucket visits the buckets of the query cell and ceil(radius/CellSize)
//rings around it. An axis whose ring span covers the whole resolution is
//scanned once so no bucket is visited twice
func (shg *SpatialHashGrid) forEachBucket(origin V.Vec3, radius float64, fn func(b int)) {
	if len(shg.points) == 0 {
		return
	}
	k := 1
	if radius > shg.CellSize {
		k = int(math.Ceil(radius / shg.CellSize))
	}
	center := shg.CellOf(origin)

	var lo, hi [3]int
	var wrap [3]bool
	for a := 0; a < 3; a++ {
		if 2*k+1 >= shg.Resolution[a] {
			lo[a], hi[a] = 0, shg.Resolution[a]-1
			continue
		}
		lo[a], hi[a] = center[a]-k, center[a]+k
		wrap[a] = true
	}

	rx, ry := shg.Resolution[0], shg.Resolution[1]
	for z := lo[2]; z <= hi[2]; z++ {
		bz := z
		if wrap[2] {
			bz = pMod(z, shg.Resolution[2])
		}
		for y := lo[1]; y <= hi[1]; y++ {
			by := y
			if wrap[1] {
				by = pMod(y, ry)
			}
			for x := lo[0]; x <= hi[0]; x++ {
				bx := x
				if wrap[0] {
					bx = pMod(x, rx)
				}
				fn(bx + rx*(by+ry*bz))
			}
		}
	}
}

//ForEachNearbyPoint calls fn for every indexed point within radius of origin
func (shg *SpatialHashGrid) ForEachNearbyPoint(origin V.Vec3, radius float64, fn func(j int, p V.Vec3)) {
	r2 := radius * radius
	shg.forEachBucket(origin, radius, func(b int) {
		for _, j := range shg.sorted[shg.start[b]:shg.start[b+1]] {
			p := shg.points[j]
			if V.DistanceSquared(p, origin) <= r2 {
				fn(j, p)
			}
		}
	})
}

//HasNearbyPoint - true when any indexed point lies within radius of origin
func (shg *SpatialHashGrid) HasNearbyPoint(origin V.Vec3, radius float64) bool {
	found := false
	r2 := radius * radius
	shg.forEachBucket(origin, radius, func(b int) {
		if found {
			return
		}
		for _, j := range shg.sorted[shg.start[b]:shg.start[b+1]] {
			if V.DistanceSquared(shg.points[j], origin) <= r2 {
				found = true
				return
			}
		}
	})
	return found
}

//NeighborsOf returns candidate indices around particle i, i excluded. The
//result is a superset of the true neighbors, callers filter by distance
func (shg *SpatialHashGrid) NeighborsOf(i int, radius float64) []int {
	if i < 0 || i >= len(shg.points) {
		return nil
	}
	var candidates []int
	shg.forEachBucket(shg.points[i], radius, func(b int) {
		for _, j := range shg.sorted[shg.start[b]:shg.start[b+1]] {
			if j != i {
				candidates = append(candidates, j)
			}
		}
	})
	return candidates
}

//Positive modulus so negative cells wrap onto valid buckets
func pMod(x, y int) int {
	m := x % y
	if m < 0 {
		m += y
	}
	return m
}

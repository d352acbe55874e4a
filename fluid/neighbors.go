package fluid

import (
	V "diesel.com/sph/vector"
)

//NeighborLists - per particle indices within the kernel radius, self excluded.
//Rebuilt every sub-step from a freshly built grid
type NeighborLists [][]int

//BuildNeighborLists fills one list per indexed point in parallel. Each worker
//writes only the lists of its own range. Backing arrays of lists are reused
func (shg *SpatialHashGrid) BuildNeighborLists(exec Executor, radius float64, lists NeighborLists) NeighborLists {
	n := len(shg.points)
	if cap(lists) < n {
		grown := make(NeighborLists, n)
		copy(grown, lists)
		lists = grown
	}
	lists = lists[:n]

	exec.ParallelFor(n, func(begin, end int) {
		for i := begin; i < end; i++ {
			list := lists[i][:0]
			origin := shg.points[i]
			shg.ForEachNearbyPoint(origin, radius, func(j int, _ V.Vec3) {
				if j != i {
					list = append(list, j)
				}
			})
			lists[i] = list
		}
	})
	return lists
}

//Count of all directed neighbor pairs
func (nl NeighborLists) Count() int {
	total := 0
	for _, l := range nl {
		total += len(l)
	}
	return total
}

package aasfile

import "github.com/udisondev/aasnav/internal/geom"

// GridLevel returns a builder for a floor of cols x rows square cells, each
// linked to its four neighbours by walking. Link time is the cell size, which
// is the travel time in hundredths of a second at 100 units per second.
//
// With clusterWidth > 0 every clusterWidth columns are followed by a column
// of portal areas, so the floor splits into clusters left to right. A portal
// column is never the last one.
func GridLevel(cols, rows int, cell float32, clusterWidth int) *Builder {
	b := NewBuilder()
	portalColumn := func(x int) bool {
		return clusterWidth > 0 && x < cols-1 && (x+1)%(clusterWidth+1) == 0
	}

	num := make([][]int, cols)
	cluster := 1
	for x := range cols {
		num[x] = make([]int, rows)
		for y := range rows {
			mins := geom.V(float32(x)*cell, float32(y)*cell, 0)
			num[x][y] = b.AddArea(AreaSpec{
				Bounds:  geom.B(mins, mins.Add(geom.V(cell, cell, cell))),
				Flags:   AreaFloor | AreaReachableWalk,
				Cluster: cluster,
			})
			if portalColumn(x) {
				b.AddPortal(num[x][y], cluster, cluster+1)
			}
		}
		if portalColumn(x) {
			cluster++
		}
	}

	t := uint16(min(cell, 65535))
	for x := range cols {
		for y := range rows {
			if x+1 < cols {
				b.Connect(num[x][y], num[x+1][y], t)
			}
			if y+1 < rows {
				b.Connect(num[x][y], num[x][y+1], t)
			}
		}
	}
	return b
}

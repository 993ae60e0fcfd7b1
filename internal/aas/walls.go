package aas

import (
	"slices"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
)

// WallEdges collects the floor edges that bound walkable space around
// areaNum: edges of a floor face that no other floor face of the same area
// shares and no link with flags crosses. The search spreads over links with
// flags to areas touching bounds. Edge numbers are signed and run the way
// the floor face winds. maxEdges <= 0 means no limit.
func (rt *Runtime) WallEdges(areaNum int, bounds geom.Bounds, flags aasfile.TravelFlags, maxEdges int) ([]int, error) {
	if err := rt.checkArea("wall edges", areaNum); err != nil {
		return nil, err
	}
	f := rt.file

	var edges []int
	visited := make([]bool, f.NumAreas())
	visited[areaNum] = true
	queue := []int{areaNum}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		a := f.Area(cur)
		first, end := f.AreaReachRange(cur)

		for i := range int(a.NumFaces) {
			face := f.Face(absNum(f.FaceIndex(int(a.FirstFace) + i)))
			if face.Flags&aasfile.FaceFloor == 0 {
				continue
			}
			for j := face.FirstEdge; j < face.FirstEdge+face.NumEdges; j++ {
				e := int(f.EdgeIndex(int(j)))
				if rt.sharedFloorEdge(cur, i, absNum(int32(e))) {
					continue
				}
				crossed := false
				for ri := first; ri < end; ri++ {
					r := f.Reachability(ri)
					if r.TravelType&flags != 0 && absNum(r.EdgeNum) == absNum(int32(e)) {
						crossed = true
						break
					}
				}
				if crossed || slices.Contains(edges, e) {
					continue
				}
				edges = append(edges, e)
				if maxEdges > 0 && len(edges) >= maxEdges {
					return edges, nil
				}
			}
		}

		for ri := first; ri < end; ri++ {
			r := f.Reachability(ri)
			to := int(r.ToArea)
			if r.TravelType&flags == 0 || visited[to] {
				continue
			}
			if bounds.Intersects(f.Area(to).Bounds) {
				visited[to] = true
				queue = append(queue, to)
			}
		}
	}
	return edges, nil
}

// sharedFloorEdge reports whether another floor face of the area than its
// face number skip uses the edge.
func (rt *Runtime) sharedFloorEdge(areaNum, skip, edge int) bool {
	f := rt.file
	a := f.Area(areaNum)
	for k := range int(a.NumFaces) {
		if k == skip {
			continue
		}
		face := f.Face(absNum(f.FaceIndex(int(a.FirstFace) + k)))
		if face.Flags&aasfile.FaceFloor == 0 {
			continue
		}
		for l := face.FirstEdge; l < face.FirstEdge+face.NumEdges; l++ {
			if absNum(f.EdgeIndex(int(l))) == edge {
				return true
			}
		}
	}
	return false
}

// SortWallEdges reorders edges in place so that edges joined end to start
// follow each other. Each maximal chain keeps the order in which it was
// built.
func (rt *Runtime) SortWallEdges(edges []int) {
	type link struct {
		edge  int
		verts [2]int32
		next  int
	}
	links := make([]link, len(edges))
	first := make([]int, len(edges))
	last := make([]int, len(edges))
	for i, e := range edges {
		links[i] = link{edge: e, verts: rt.file.EdgeVertexNums(e), next: -1}
		first[i], last[i] = i, i
	}

	for i := 0; i < len(first); i++ {
		j := i + 1
		for ; j < len(first); j++ {
			if links[first[i]].verts[0] == links[last[j]].verts[1] {
				links[last[j]].next = first[i]
				first[i] = first[j]
				break
			}
			if links[last[i]].verts[1] == links[first[j]].verts[0] {
				links[last[i]].next = first[j]
				last[i] = last[j]
				break
			}
		}
		if j < len(first) {
			first = slices.Delete(first, j, j+1)
			last = slices.Delete(last, j, j+1)
			i = -1
		}
	}

	k := 0
	for _, start := range first {
		for n := start; n >= 0; n = links[n].next {
			edges[k] = links[n].edge
			k++
		}
	}
}

package aasfile

import (
	"github.com/udisondev/aasnav/internal/geom"
)

// EdgeCenter returns the midpoint of an edge.
func (f *File) EdgeCenter(edgeNum int) geom.Vec3 {
	e := f.edges[edgeNum]
	return f.vertices[e.VertexNum[0]].Lerp(f.vertices[e.VertexNum[1]], 0.5)
}

// EdgeVertices returns the end points of a signed edge number. A negative
// number runs the edge backwards.
func (f *File) EdgeVertices(edgeNum int) (geom.Vec3, geom.Vec3) {
	v := f.EdgeVertexNums(edgeNum)
	return f.vertices[v[0]], f.vertices[v[1]]
}

// EdgeVertexNums returns the vertex numbers of a signed edge, in the order
// the edge runs.
func (f *File) EdgeVertexNums(edgeNum int) [2]int32 {
	if edgeNum < 0 {
		e := f.edges[-edgeNum]
		return [2]int32{e.VertexNum[1], e.VertexNum[0]}
	}
	return f.edges[edgeNum].VertexNum
}

// FaceCenter returns the average of the face's winding points.
func (f *File) FaceCenter(faceNum int) geom.Vec3 {
	fc := f.faces[faceNum]
	if fc.NumEdges == 0 {
		return geom.Origin
	}
	var sum geom.Vec3
	for i := fc.FirstEdge; i < fc.FirstEdge+fc.NumEdges; i++ {
		sum = sum.Add(f.faceEdgeStart(i))
	}
	return sum.Scale(1 / float32(fc.NumEdges))
}

// AreaCenter returns the average of the area's face centers. It is the
// geometric center; Area.Center is the point an AI moves towards.
func (f *File) AreaCenter(areaNum int) geom.Vec3 {
	a := f.areas[areaNum]
	if a.NumFaces == 0 {
		return a.Bounds.Center()
	}
	var sum geom.Vec3
	for i := a.FirstFace; i < a.FirstFace+a.NumFaces; i++ {
		sum = sum.Add(f.FaceCenter(int(abs32(f.faceIndex[i]))))
	}
	return sum.Scale(1 / float32(a.NumFaces))
}

// EdgeBounds returns the bounds of an edge.
func (f *File) EdgeBounds(edgeNum int) geom.Bounds {
	e := f.edges[edgeNum]
	return geom.EmptyBounds().AddPoint(f.vertices[e.VertexNum[0]]).AddPoint(f.vertices[e.VertexNum[1]])
}

// FaceBounds returns the bounds of a face's winding.
func (f *File) FaceBounds(faceNum int) geom.Bounds {
	fc := f.faces[faceNum]
	b := geom.EmptyBounds()
	for i := fc.FirstEdge; i < fc.FirstEdge+fc.NumEdges; i++ {
		b = b.Union(f.EdgeBounds(int(abs32(f.edgeIndex[i]))))
	}
	return b
}

// AreaBounds recomputes an area's bounds from its faces.
func (f *File) AreaBounds(areaNum int) geom.Bounds {
	a := f.areas[areaNum]
	b := geom.EmptyBounds()
	for i := a.FirstFace; i < a.FirstFace+a.NumFaces; i++ {
		b = b.Union(f.FaceBounds(int(abs32(f.faceIndex[i]))))
	}
	return b
}

// faceEdgeStart returns the first vertex of the i-th entry of the edge index,
// honouring its direction.
func (f *File) faceEdgeStart(i int32) geom.Vec3 {
	ei := f.edgeIndex[i]
	e := f.edges[abs32(ei)]
	if ei < 0 {
		return f.vertices[e.VertexNum[1]]
	}
	return f.vertices[e.VertexNum[0]]
}

// FacePlane returns the plane of the i-th face of an area, oriented so the
// normal points into the area.
func (f *File) FacePlane(areaNum, i int) geom.Plane {
	fi := f.faceIndex[int(f.areas[areaNum].FirstFace)+i]
	pl := f.planes[f.faces[abs32(fi)].PlaneNum]
	if fi < 0 {
		return pl.Flip()
	}
	return pl
}

// AreaContainsPoint reports whether p lies on the interior side of every
// face plane of the area, within the file's point epsilon.
func (f *File) AreaContainsPoint(areaNum int, p geom.Vec3) bool {
	a := f.areas[areaNum]
	if !a.Bounds.Expand(f.pointEpsilon).ContainsPoint(p) {
		return false
	}
	for i := range int(a.NumFaces) {
		if f.FacePlane(areaNum, i).Distance(p) < -f.pointEpsilon {
			return false
		}
	}
	return true
}

// PointInArea returns the area containing p. A point on a face shared by two
// areas resolves to the lower area number.
func (f *File) PointInArea(p geom.Vec3) (int, bool) {
	for _, a := range f.index.Candidates(geom.B(p, p)) {
		if f.AreaContainsPoint(a, p) {
			return a, true
		}
	}
	return 0, false
}

// AreasInBounds returns, ascending, the areas whose bounds intersect b.
func (f *File) AreasInBounds(b geom.Bounds) []int {
	var out []int
	for _, a := range f.index.Candidates(b) {
		if f.areas[a].Bounds.Intersects(b) {
			out = append(out, a)
		}
	}
	return out
}

// PushPointIntoArea moves p onto every face plane of the area it lies behind.
func (f *File) PushPointIntoArea(areaNum int, p geom.Vec3) geom.Vec3 {
	a := f.areas[areaNum]
	for i := range int(a.NumFaces) {
		pl := f.FacePlane(areaNum, i)
		if pl.Distance(p) < 0 {
			p = pl.Project(p)
		}
	}
	return p
}

// FindReachability returns the first reachability from one area to another.
func (f *File) FindReachability(from, to int) (int, bool) {
	first, end := f.AreaReachRange(from)
	for i := first; i < end; i++ {
		if int(f.reach[i].ToArea) == to {
			return i, true
		}
	}
	return 0, false
}

// Info summarizes a loaded file.
type Info struct {
	Name           string
	Version        uint32
	Areas          int
	Reachabilities int
	Portals        int
	Clusters       int
	Faces          int
	Edges          int
	Vertices       int
	// MemoryBytes estimates the resident size of the loaded records.
	MemoryBytes int
	// ReachByType counts reachabilities per travel type tag.
	ReachByType map[TravelFlags]int
	// LargestCluster is the highest cluster area count.
	LargestCluster int
}

// Info reports counts and a memory estimate. Dummy records are excluded from
// the counts.
func (f *File) Info() Info {
	info := Info{
		Name:           f.name,
		Version:        f.version,
		Areas:          len(f.areas) - 1,
		Reachabilities: len(f.reach),
		Portals:        len(f.portals) - 1,
		Clusters:       len(f.clusters) - 1,
		Faces:          len(f.faces) - 1,
		Edges:          len(f.edges) - 1,
		Vertices:       len(f.vertices),
		ReachByType:    make(map[TravelFlags]int),
	}
	for _, r := range f.reach {
		info.ReachByType[r.TravelType]++
	}
	for i := 1; i < len(f.clusters); i++ {
		info.LargestCluster = max(info.LargestCluster, int(f.clusters[i].NumAreas))
	}
	info.MemoryBytes = len(f.planes)*planeSize +
		len(f.vertices)*vertexSize +
		len(f.edges)*edgeSize +
		(len(f.edgeIndex)+len(f.faceIndex)+len(f.portalIndex))*indexSize +
		len(f.faces)*faceSize +
		len(f.areas)*areaSize +
		len(f.reach)*reachSizePayload +
		len(f.portals)*portalSize +
		len(f.clusters)*clusterSize +
		len(f.strings)
	if f.index != nil {
		for _, c := range f.index.cells {
			info.MemoryBytes += len(c) * indexSize
		}
	}
	return info
}

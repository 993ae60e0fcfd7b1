package aasfile

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/udisondev/aasnav/internal/geom"
)

// AreaSpec describes an axis-aligned box area for Builder.
type AreaSpec struct {
	Bounds      geom.Bounds
	Flags       AreaFlags
	Contents    AreaContents
	TravelFlags TravelFlags
	// Cluster is 1-based; zero puts the area in cluster 1.
	Cluster int
}

// ReachSpec describes a reachability for Builder. Zero Start and End default
// to the centers of the two areas.
type ReachSpec struct {
	From, To     int
	Type         TravelFlags
	Time         uint16
	Start, End   geom.Vec3
	EdgeNum      int32
	JumpVelocity geom.Vec3
	Name         string
}

type portalSpec struct {
	area     int
	clusters [2]int
}

// Builder assembles valid navigation files from box areas. Boxes that share
// an identical face rectangle share the face record, as a compiler would emit.
type Builder struct {
	Name     string
	Version  uint32
	MapCRC   uint32
	Settings Settings
	Options  Options

	areas   []AreaSpec
	reach   []ReachSpec
	portals []portalSpec
}

// NewBuilder returns a builder for a current-version file with default settings.
func NewBuilder() *Builder {
	return &Builder{
		Version:  VersionCurrent,
		Settings: DefaultSettings(),
		Options:  DefaultOptions(),
	}
}

// AddArea appends an area and returns its number.
func (b *Builder) AddArea(s AreaSpec) int {
	b.areas = append(b.areas, s)
	return len(b.areas)
}

// NumAreas returns the number of areas added so far.
func (b *Builder) NumAreas() int {
	return len(b.areas)
}

// AddBox appends a floor area in cluster 1 and returns its number.
func (b *Builder) AddBox(bounds geom.Bounds) int {
	return b.AddArea(AreaSpec{Bounds: bounds, Flags: AreaFloor | AreaReachableWalk})
}

// AddReach appends a reachability. Order is kept within each source area.
func (b *Builder) AddReach(r ReachSpec) {
	b.reach = append(b.reach, r)
}

// Connect adds walk reachabilities both ways between two areas.
func (b *Builder) Connect(a1, a2 int, time uint16) {
	b.AddReach(ReachSpec{From: a1, To: a2, Type: TFLWalk, Time: time})
	b.AddReach(ReachSpec{From: a2, To: a1, Type: TFLWalk, Time: time})
}

// AddPortal marks an area as the portal between two clusters.
func (b *Builder) AddPortal(area, front, back int) {
	b.portals = append(b.portals, portalSpec{area: area, clusters: [2]int{front, back}})
}

// Build serializes and parses the assembled file.
func (b *Builder) Build() (*File, error) {
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	opts := b.Options
	if opts.Name == "" {
		opts.Name = b.Name
	}
	return ParseWith(data, opts)
}

// Bytes returns the serialized file.
func (b *Builder) Bytes() ([]byte, error) {
	f, err := b.assemble()
	if err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

func (b *Builder) assemble() (*File, error) {
	n := len(b.areas)
	valid := func(a int) bool { return a >= 1 && a <= n }

	cluster := make([]int, n+1)
	numClusters := 0
	for i, s := range b.areas {
		c := max(s.Cluster, 1)
		cluster[i+1] = c
		numClusters = max(numClusters, c)
	}
	portalOf := make([]int, n+1)
	for i, p := range b.portals {
		if !valid(p.area) {
			return nil, fmt.Errorf("portal %d: area %d out of range", i+1, p.area)
		}
		if portalOf[p.area] != 0 {
			return nil, fmt.Errorf("area %d: marked as portal twice", p.area)
		}
		portalOf[p.area] = i + 1
		numClusters = max(numClusters, p.clusters[0], p.clusters[1])
	}
	for _, r := range b.reach {
		if !valid(r.From) || !valid(r.To) {
			return nil, fmt.Errorf("reachability %d->%d: area out of range", r.From, r.To)
		}
	}

	f := &File{
		version:  b.Version,
		mapCRC:   b.MapCRC,
		settings: b.Settings,
		edges:    make([]Edge, 1),
		faces:    make([]Face, 1),
		areas:    make([]Area, n+1),
		portals:  make([]Portal, len(b.portals)+1),
		clusters: make([]Cluster, numClusters+1),
	}

	g := newGeometry(f)
	for i, s := range b.areas {
		num := i + 1
		a := &f.areas[num]
		a.Bounds = s.Bounds
		a.Center = geom.V((s.Bounds.Mins.X+s.Bounds.Maxs.X)/2, (s.Bounds.Mins.Y+s.Bounds.Maxs.Y)/2, s.Bounds.Mins.Z)
		a.Flags = s.Flags
		a.Contents = s.Contents
		a.TravelFlags = s.TravelFlags
		a.Cluster = int32(cluster[num])
		if p := portalOf[num]; p != 0 {
			a.Cluster = -int32(p)
			a.Contents |= ContentsClusterPortal
		}
		a.FirstFace = int32(len(f.faceIndex))
		g.addBox(num, s)
		a.NumFaces = int32(len(f.faceIndex)) - a.FirstFace
	}

	// Cluster area numbers: member areas ascending, then portals.
	for c := 1; c <= numClusters; c++ {
		next := int32(0)
		for num := 1; num <= n; num++ {
			if f.areas[num].Cluster == int32(c) {
				f.areas[num].ClusterAreaNum = next
				next++
			}
		}
		f.clusters[c].NumReachableAreas = next
		f.clusters[c].FirstPortal = int32(len(f.portalIndex))
		for i, p := range b.portals {
			for k := range 2 {
				if p.clusters[k] != c {
					continue
				}
				f.portals[i+1].ClusterAreaNum[k] = next
				next++
				f.portalIndex = append(f.portalIndex, int32(i+1))
			}
		}
		f.clusters[c].NumAreas = next
		f.clusters[c].NumPortals = int32(len(f.portalIndex)) - f.clusters[c].FirstPortal
		if next == 0 {
			return nil, fmt.Errorf("cluster %d: no areas", c)
		}
	}
	for i, p := range b.portals {
		fp := &f.portals[i+1]
		fp.AreaNum = int32(p.area)
		fp.Clusters = [2]int32{int32(p.clusters[0]), int32(p.clusters[1])}
		f.areas[p.area].ClusterAreaNum = fp.ClusterAreaNum[0]
	}

	reach := slices.Clone(b.reach)
	slices.SortStableFunc(reach, func(x, y ReachSpec) int { return cmp.Compare(x.From, y.From) })
	names := map[string]int32{}
	for _, r := range reach {
		rec := Reachability{
			TravelType:   r.Type,
			FromArea:     int32(r.From),
			ToArea:       int32(r.To),
			Start:        r.Start,
			End:          r.End,
			EdgeNum:      r.EdgeNum,
			TravelTime:   r.Time,
			JumpVelocity: r.JumpVelocity,
			NameOffset:   -1,
		}
		if rec.Start == geom.Origin && rec.End == geom.Origin {
			rec.Start = f.areas[r.From].Center
			rec.End = f.areas[r.To].Center
		}
		if r.Name != "" && b.Version >= VersionCurrent {
			off, ok := names[r.Name]
			if !ok {
				off = int32(len(f.strings))
				f.strings = append(append(f.strings, r.Name...), 0)
				names[r.Name] = off
			}
			rec.NameOffset = off
		}
		if b.Version < VersionCurrent {
			rec.JumpVelocity = geom.Origin
		}
		f.reach = append(f.reach, rec)
	}
	next := 0
	for num := 1; num <= n; num++ {
		a := &f.areas[num]
		a.FirstReach = int32(next)
		for next < len(f.reach) && int(f.reach[next].FromArea) == num {
			next++
		}
		a.NumReach = int32(next) - a.FirstReach
	}
	return f, nil
}

// geometry dedupes planes, vertices, edges and faces while boxes are added.
type geometry struct {
	f        *File
	planes   map[geom.Plane]int32
	vertices map[geom.Vec3]int32
	edges    map[[2]int32]int32
	faces    map[faceKey]int32
}

type faceKey struct {
	plane int32
	rect  geom.Bounds
}

func newGeometry(f *File) *geometry {
	return &geometry{
		f:        f,
		planes:   map[geom.Plane]int32{},
		vertices: map[geom.Vec3]int32{},
		edges:    map[[2]int32]int32{},
		faces:    map[faceKey]int32{},
	}
}

// addBox appends the six faces of a box area, normals pointing inwards.
func (g *geometry) addBox(areaNum int, s AreaSpec) {
	lo, hi := s.Bounds.Mins, s.Bounds.Maxs
	for axis := range 3 {
		for _, side := range [2]int{0, 1} {
			normal := geom.Vec3{}.WithAxis(axis, 1)
			at := lo.Axis(axis)
			if side == 1 {
				normal = normal.Scale(-1)
				at = hi.Axis(axis)
			}
			rect := geom.B(lo.WithAxis(axis, at), hi.WithAxis(axis, at))
			var flags FaceFlags
			if axis == 2 && side == 0 && s.Flags&AreaFloor != 0 {
				flags |= FaceFloor
			}
			g.addFace(areaNum, geom.PlaneFromPoint(normal, rect.Mins), rect, flags)
		}
	}
}

func (g *geometry) addFace(areaNum int, pl geom.Plane, rect geom.Bounds, flags FaceFlags) {
	f := g.f
	// A neighbour that already emitted this rectangle facing the other way
	// shares its face.
	if pn, ok := g.planes[pl.Flip()]; ok {
		if fn, ok := g.faces[faceKey{pn, rect}]; ok && f.faces[fn].Areas[1] == 0 {
			f.faces[fn].Areas[1] = int32(areaNum)
			f.faces[fn].Flags |= flags
			f.faceIndex = append(f.faceIndex, -fn)
			g.tagEdges(fn, areaNum)
			return
		}
	}

	pn := g.plane(pl)
	fn := int32(len(f.faces))
	face := Face{PlaneNum: pn, Flags: flags, FirstEdge: int32(len(f.edgeIndex)), Areas: [2]int32{int32(areaNum), 0}}
	corners := rectCorners(rect)
	for i := range corners {
		face.NumEdges++
		f.edgeIndex = append(f.edgeIndex, g.edge(corners[i], corners[(i+1)%len(corners)]))
	}
	f.faces = append(f.faces, face)
	f.faceIndex = append(f.faceIndex, fn)
	g.faces[faceKey{pn, rect}] = fn
	g.tagEdges(fn, areaNum)
}

// tagEdges records areaNum on the edges of a face.
func (g *geometry) tagEdges(faceNum int32, areaNum int) {
	f := g.f
	fc := f.faces[faceNum]
	for i := fc.FirstEdge; i < fc.FirstEdge+fc.NumEdges; i++ {
		e := &f.edges[abs32(f.edgeIndex[i])]
		switch int32(areaNum) {
		case e.Areas[0], e.Areas[1]:
		default:
			if e.Areas[0] == 0 {
				e.Areas[0] = int32(areaNum)
			} else if e.Areas[1] == 0 {
				e.Areas[1] = int32(areaNum)
			}
		}
	}
}

func (g *geometry) plane(pl geom.Plane) int32 {
	if n, ok := g.planes[pl]; ok {
		return n
	}
	n := int32(len(g.f.planes))
	g.f.planes = append(g.f.planes, pl)
	g.planes[pl] = n
	return n
}

func (g *geometry) vertex(v geom.Vec3) int32 {
	if n, ok := g.vertices[v]; ok {
		return n
	}
	n := int32(len(g.f.vertices))
	g.f.vertices = append(g.f.vertices, v)
	g.vertices[v] = n
	return n
}

// edge returns the signed edge number running from a to b.
func (g *geometry) edge(a, b geom.Vec3) int32 {
	va, vb := g.vertex(a), g.vertex(b)
	if n, ok := g.edges[[2]int32{vb, va}]; ok {
		return -n
	}
	if n, ok := g.edges[[2]int32{va, vb}]; ok {
		return n
	}
	n := int32(len(g.f.edges))
	g.f.edges = append(g.f.edges, Edge{VertexNum: [2]int32{va, vb}})
	g.edges[[2]int32{va, vb}] = n
	return n
}

// rectCorners returns the four corners of a flat box in winding order.
func rectCorners(r geom.Bounds) [4]geom.Vec3 {
	flat := 0
	for axis := range 3 {
		if r.Mins.Axis(axis) == r.Maxs.Axis(axis) {
			flat = axis
			break
		}
	}
	u, v := (flat+1)%3, (flat+2)%3
	at := func(a, b float32) geom.Vec3 {
		return r.Mins.WithAxis(u, a).WithAxis(v, b)
	}
	return [4]geom.Vec3{
		at(r.Mins.Axis(u), r.Mins.Axis(v)),
		at(r.Maxs.Axis(u), r.Mins.Axis(v)),
		at(r.Maxs.Axis(u), r.Maxs.Axis(v)),
		at(r.Mins.Axis(u), r.Maxs.Axis(v)),
	}
}

package aasfile

import (
	"errors"
	"fmt"
	"math"
)

// validate checks every cross reference and the cluster invariants the
// compiler is supposed to guarantee. Record 0 of edges, faces, areas, portals
// and clusters is a dummy and is not checked.
func (f *File) validate() error {
	nVerts := int32(len(f.vertices))
	nEdges := int32(len(f.edges))
	nFaces := int32(len(f.faces))
	nAreas := int32(len(f.areas))
	nPortals := int32(len(f.portals))
	nClusters := int32(len(f.clusters))
	nPlanes := int32(len(f.planes))

	if nAreas < 1 || nClusters < 1 || nPortals < 1 || nEdges < 1 || nFaces < 1 {
		return errors.New("missing dummy records")
	}
	if err := f.validateNumbers(); err != nil {
		return err
	}

	for i := 1; i < len(f.edges); i++ {
		e := f.edges[i]
		for k := range 2 {
			if !inRange(e.VertexNum[k], 0, nVerts) {
				return fmt.Errorf("edge %d: vertex %d out of range", i, e.VertexNum[k])
			}
			if !inRange(e.Areas[k], 0, nAreas) {
				return fmt.Errorf("edge %d: area %d out of range", i, e.Areas[k])
			}
		}
	}
	for i, e := range f.edgeIndex {
		if !inRange(abs32(e), 1, nEdges) {
			return fmt.Errorf("edge index %d: edge %d out of range", i, e)
		}
	}

	for i := 1; i < len(f.faces); i++ {
		fc := f.faces[i]
		if !inRange(fc.PlaneNum, 0, nPlanes) {
			return fmt.Errorf("face %d: plane %d out of range", i, fc.PlaneNum)
		}
		if !validSpan(fc.FirstEdge, fc.NumEdges, len(f.edgeIndex)) {
			return fmt.Errorf("face %d: edges [%d,+%d) out of range", i, fc.FirstEdge, fc.NumEdges)
		}
		for k := range 2 {
			if !inRange(fc.Areas[k], 0, nAreas) {
				return fmt.Errorf("face %d: area %d out of range", i, fc.Areas[k])
			}
		}
	}
	for i, fi := range f.faceIndex {
		if !inRange(abs32(fi), 1, nFaces) {
			return fmt.Errorf("face index %d: face %d out of range", i, fi)
		}
	}

	for i := 1; i < len(f.areas); i++ {
		if err := f.validateArea(i, nClusters, nPortals); err != nil {
			return err
		}
	}

	for i, r := range f.reach {
		if !inRange(r.FromArea, 1, nAreas) || !inRange(r.ToArea, 1, nAreas) {
			return fmt.Errorf("reachability %d: areas %d->%d out of range", i, r.FromArea, r.ToArea)
		}
		if r.FromArea == r.ToArea {
			return fmt.Errorf("reachability %d: loops on area %d", i, r.FromArea)
		}
		first, end := f.AreaReachRange(int(r.FromArea))
		if i < first || i >= end {
			return fmt.Errorf("reachability %d: not owned by area %d", i, r.FromArea)
		}
		if r.TravelTime == 0 {
			return fmt.Errorf("reachability %d: zero travel time", i)
		}
		if f.areas[r.ToArea].Cluster == 0 {
			return fmt.Errorf("reachability %d: target area %d has no cluster", i, r.ToArea)
		}
		if !inRange(abs32(r.EdgeNum), 0, nEdges) {
			return fmt.Errorf("reachability %d: edge %d out of range", i, r.EdgeNum)
		}
		if r.NameOffset != -1 && !inRange(r.NameOffset, 0, int32(len(f.strings))) {
			return fmt.Errorf("reachability %d: name offset %d out of range", i, r.NameOffset)
		}
	}

	if len(f.strings) > 0 && f.strings[len(f.strings)-1] != 0 {
		return errors.New("string table not NUL terminated")
	}

	return f.validateClusters()
}

// validateNumbers rejects NaN, infinite and out-of-world coordinates, which
// would otherwise poison containment tests and the spatial index.
func (f *File) validateNumbers() error {
	st := f.settings
	if !st.BoundingBox.InWorld() {
		return fmt.Errorf("settings: bounding box %v invalid", st.BoundingBox)
	}
	if !st.Gravity.IsFinite() {
		return fmt.Errorf("settings: gravity %v not finite", st.Gravity)
	}
	for _, v := range []float32{st.MaxStepHeight, st.MaxBarrierHeight, st.MaxWaterJumpHeight, st.MaxFallHeight, st.MinFloorCos} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("settings: %v not finite", v)
		}
	}
	for i, pl := range f.planes {
		if !pl.IsFinite() {
			return fmt.Errorf("plane %d: not finite", i)
		}
	}
	for i, v := range f.vertices {
		if !v.IsFinite() {
			return fmt.Errorf("vertex %d: not finite", i)
		}
	}
	for i := 1; i < len(f.areas); i++ {
		a := f.areas[i]
		if !a.Bounds.InWorld() {
			return fmt.Errorf("area %d: bounds %v invalid", i, a.Bounds)
		}
		if !a.Center.IsFinite() {
			return fmt.Errorf("area %d: center not finite", i)
		}
	}
	return nil
}

func (f *File) validateArea(i int, nClusters, nPortals int32) error {
	a := f.areas[i]
	if !validSpan(a.FirstFace, a.NumFaces, len(f.faceIndex)) {
		return fmt.Errorf("area %d: faces [%d,+%d) out of range", i, a.FirstFace, a.NumFaces)
	}
	if !validSpan(a.FirstReach, a.NumReach, len(f.reach)) {
		return fmt.Errorf("area %d: reachabilities [%d,+%d) out of range", i, a.FirstReach, a.NumReach)
	}
	for r := a.FirstReach; r < a.FirstReach+a.NumReach; r++ {
		if f.reach[r].FromArea != int32(i) {
			return fmt.Errorf("area %d: reachability %d starts in area %d", i, r, f.reach[r].FromArea)
		}
	}

	switch {
	case a.Cluster > 0:
		if a.Cluster >= nClusters {
			return fmt.Errorf("area %d: cluster %d out of range", i, a.Cluster)
		}
		if !inRange(a.ClusterAreaNum, 0, f.clusters[a.Cluster].NumAreas) {
			return fmt.Errorf("area %d: cluster area number %d out of range", i, a.ClusterAreaNum)
		}
	case a.Cluster < 0:
		p := -a.Cluster
		if p >= nPortals {
			return fmt.Errorf("area %d: portal %d out of range", i, p)
		}
		if f.portals[p].AreaNum != int32(i) {
			return fmt.Errorf("area %d: portal %d belongs to area %d", i, p, f.portals[p].AreaNum)
		}
	default:
		if a.NumReach > 0 {
			return fmt.Errorf("area %d: has reachabilities but no cluster", i)
		}
	}
	return nil
}

func (f *File) validateClusters() error {
	nAreas := int32(len(f.areas))
	nClusters := int32(len(f.clusters))
	nPortals := int32(len(f.portals))

	for i := 1; i < len(f.portals); i++ {
		p := f.portals[i]
		if !inRange(p.AreaNum, 1, nAreas) {
			return fmt.Errorf("portal %d: area %d out of range", i, p.AreaNum)
		}
		if f.areas[p.AreaNum].Cluster != -int32(i) {
			return fmt.Errorf("portal %d: area %d is not marked as this portal", i, p.AreaNum)
		}
		if p.Clusters[0] == p.Clusters[1] {
			return fmt.Errorf("portal %d: both sides in cluster %d", i, p.Clusters[0])
		}
		for k := range 2 {
			c := p.Clusters[k]
			if !inRange(c, 1, nClusters) {
				return fmt.Errorf("portal %d: cluster %d out of range", i, c)
			}
			if !inRange(p.ClusterAreaNum[k], 0, f.clusters[c].NumAreas) {
				return fmt.Errorf("portal %d: cluster area number %d out of range", i, p.ClusterAreaNum[k])
			}
		}
	}
	for i, p := range f.portalIndex {
		if !inRange(p, 1, nPortals) {
			return fmt.Errorf("portal index %d: portal %d out of range", i, p)
		}
	}

	listed := make([]int, len(f.portals))
	for c := 1; c < len(f.clusters); c++ {
		cl := f.clusters[c]
		if cl.NumAreas < 1 {
			return fmt.Errorf("cluster %d: no areas", c)
		}
		if cl.NumAreas >= nAreas {
			return fmt.Errorf("cluster %d: %d areas in a file of %d", c, cl.NumAreas, nAreas-1)
		}
		if cl.NumReachableAreas < 0 || cl.NumReachableAreas > cl.NumAreas {
			return fmt.Errorf("cluster %d: reachable area count %d invalid", c, cl.NumReachableAreas)
		}
		if !validSpan(cl.FirstPortal, cl.NumPortals, len(f.portalIndex)) {
			return fmt.Errorf("cluster %d: portals [%d,+%d) out of range", c, cl.FirstPortal, cl.NumPortals)
		}
		for j := cl.FirstPortal; j < cl.FirstPortal+cl.NumPortals; j++ {
			p := f.portalIndex[j]
			if f.portals[p].Clusters[0] != int32(c) && f.portals[p].Clusters[1] != int32(c) {
				return fmt.Errorf("cluster %d: lists portal %d which does not border it", c, p)
			}
			listed[p]++
		}
	}
	for p := 1; p < len(listed); p++ {
		if listed[p] != 2 {
			return fmt.Errorf("portal %d: listed by %d clusters, want 2", p, listed[p])
		}
	}

	// Every cluster area number is taken exactly once.
	seen := make([][]bool, len(f.clusters))
	for c := 1; c < len(f.clusters); c++ {
		seen[c] = make([]bool, f.clusters[c].NumAreas)
	}
	claim := func(c, n int32, area int) error {
		if seen[c][n] {
			return fmt.Errorf("cluster %d: area number %d reused by area %d", c, n, area)
		}
		seen[c][n] = true
		return nil
	}
	for i := 1; i < len(f.areas); i++ {
		if a := f.areas[i]; a.Cluster > 0 {
			if err := claim(a.Cluster, a.ClusterAreaNum, i); err != nil {
				return err
			}
		}
	}
	for i := 1; i < len(f.portals); i++ {
		p := f.portals[i]
		for k := range 2 {
			if err := claim(p.Clusters[k], p.ClusterAreaNum[k], int(p.AreaNum)); err != nil {
				return err
			}
		}
	}
	for c := 1; c < len(seen); c++ {
		for n, ok := range seen[c] {
			if !ok {
				return fmt.Errorf("cluster %d: area number %d unused", c, n)
			}
		}
	}

	// Links may only cross between clusters through a portal area.
	for i, r := range f.reach {
		if !f.shareCluster(r.FromArea, r.ToArea) {
			return fmt.Errorf("reachability %d: areas %d and %d share no cluster", i, r.FromArea, r.ToArea)
		}
	}
	return nil
}

func (f *File) areaClusters(a int32) [2]int32 {
	c := f.areas[a].Cluster
	if c < 0 {
		return f.portals[-c].Clusters
	}
	return [2]int32{c, c}
}

func (f *File) shareCluster(a, b int32) bool {
	ca, cb := f.areaClusters(a), f.areaClusters(b)
	for _, x := range ca {
		if x != 0 && (x == cb[0] || x == cb[1]) {
			return true
		}
	}
	return false
}

func inRange(v, lo, hi int32) bool {
	return v >= lo && v < hi
}

func validSpan(first, num int32, n int) bool {
	return first >= 0 && num >= 0 && int64(first)+int64(num) <= int64(n)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

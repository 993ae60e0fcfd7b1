// Package graph presents a navigation file as a directed graph of areas
// partitioned into clusters joined by portal areas.
package graph

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/reach"
)

// ErrInvalidArea is returned for area numbers outside the file.
var ErrInvalidArea = errors.New("invalid area number")

// Graph is immutable after New and safe for concurrent use.
type Graph struct {
	file  *aasfile.File
	reach []reach.Classified

	// Reverse adjacency in CSR form: incoming[inStart[a]:inStart[a+1]].
	inStart  []int32
	incoming []int32

	// clusterAreas[c][n] is the area with cluster area number n in cluster c.
	clusterAreas [][]int32
	// clusterPortals[c] lists the portal numbers bordering cluster c.
	clusterPortals [][]int32
}

// New builds the graph. classified must hold one entry per reachability of f,
// in index order.
func New(f *aasfile.File, classified []reach.Classified) (*Graph, error) {
	if len(classified) != f.NumReachabilities() {
		return nil, fmt.Errorf("graph: %d classified reachabilities for %d in file", len(classified), f.NumReachabilities())
	}
	g := &Graph{file: f, reach: classified}

	nAreas := f.NumAreas()
	g.inStart = make([]int32, nAreas+1)
	for i := range classified {
		g.inStart[classified[i].To+1]++
	}
	for a := 1; a <= nAreas; a++ {
		g.inStart[a] += g.inStart[a-1]
	}
	g.incoming = make([]int32, len(classified))
	fill := slices.Clone(g.inStart[:nAreas])
	for i := range classified {
		to := classified[i].To
		g.incoming[fill[to]] = int32(i)
		fill[to]++
	}

	nClusters := f.NumClusters()
	g.clusterAreas = make([][]int32, nClusters)
	g.clusterPortals = make([][]int32, nClusters)
	for c := 1; c < nClusters; c++ {
		cl := f.Cluster(c)
		g.clusterAreas[c] = make([]int32, cl.NumAreas)
		for j := cl.FirstPortal; j < cl.FirstPortal+cl.NumPortals; j++ {
			g.clusterPortals[c] = append(g.clusterPortals[c], f.PortalIndex(int(j)))
		}
	}
	for a := 1; a < nAreas; a++ {
		if area := f.Area(a); area.Cluster > 0 {
			g.clusterAreas[area.Cluster][area.ClusterAreaNum] = int32(a)
		}
	}
	for p := 1; p < f.NumPortals(); p++ {
		portal := f.Portal(p)
		for k := range 2 {
			g.clusterAreas[portal.Clusters[k]][portal.ClusterAreaNum[k]] = portal.AreaNum
		}
	}
	return g, nil
}

// File returns the underlying navigation file.
func (g *Graph) File() *aasfile.File { return g.file }

// NumAreas includes the dummy area 0.
func (g *Graph) NumAreas() int { return g.file.NumAreas() }

// NumReachabilities returns the link count.
func (g *Graph) NumReachabilities() int { return len(g.reach) }

// NumClusters includes the dummy cluster 0.
func (g *Graph) NumClusters() int { return len(g.clusterAreas) }

// ValidArea reports whether a is a real area number.
func (g *Graph) ValidArea(a int) bool { return g.file.ValidArea(a) }

// Reach returns classified link i.
func (g *Graph) Reach(i int) reach.Classified { return g.reach[i] }

// NeighborsOf yields the outgoing reachability indices of area a.
func (g *Graph) NeighborsOf(a int) iter.Seq[int] {
	first, end := g.file.AreaReachRange(a)
	return func(yield func(int) bool) {
		for i := first; i < end; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// IncomingOf yields the indices of reachabilities ending in area a.
func (g *Graph) IncomingOf(a int) iter.Seq[int] {
	in := g.incoming[g.inStart[a]:g.inStart[a+1]]
	return func(yield func(int) bool) {
		for _, i := range in {
			if !yield(int(i)) {
				return
			}
		}
	}
}

// IsPortal reports whether a is a cluster portal.
func (g *Graph) IsPortal(a int) bool {
	return g.file.Area(a).Cluster < 0
}

// PortalOf returns the portal number of area a, or 0.
func (g *Graph) PortalOf(a int) int {
	if c := g.file.Area(a).Cluster; c < 0 {
		return int(-c)
	}
	return 0
}

// PortalArea returns the area of portal p.
func (g *Graph) PortalArea(p int) int {
	return int(g.file.Portal(p).AreaNum)
}

// ClusterOf returns the cluster of area a. A portal area reports its front
// cluster; an area outside every cluster reports 0.
func (g *Graph) ClusterOf(a int) int {
	c := g.file.Area(a).Cluster
	if c < 0 {
		return int(g.file.Portal(int(-c)).Clusters[0])
	}
	return int(c)
}

// ClustersOf returns every cluster containing a: one, or both sides of a portal.
func (g *Graph) ClustersOf(a int) []int {
	c := g.file.Area(a).Cluster
	switch {
	case c > 0:
		return []int{int(c)}
	case c < 0:
		p := g.file.Portal(int(-c))
		return []int{int(p.Clusters[0]), int(p.Clusters[1])}
	}
	return nil
}

// ClusterAreaNum returns the dense index of area a inside cluster c.
func (g *Graph) ClusterAreaNum(c, a int) (int, bool) {
	area := g.file.Area(a)
	switch {
	case area.Cluster > 0:
		if int(area.Cluster) == c {
			return int(area.ClusterAreaNum), true
		}
	case area.Cluster < 0:
		p := g.file.Portal(int(-area.Cluster))
		for k := range 2 {
			if int(p.Clusters[k]) == c {
				return int(p.ClusterAreaNum[k]), true
			}
		}
	}
	return 0, false
}

// ClusterAreas returns the areas of cluster c indexed by cluster area number.
// The slice must not be modified.
func (g *Graph) ClusterAreas(c int) []int32 {
	return g.clusterAreas[c]
}

// PortalsOfCluster returns the portal numbers bordering cluster c.
// The slice must not be modified.
func (g *Graph) PortalsOfCluster(c int) []int32 {
	return g.clusterPortals[c]
}

// OtherCluster returns the cluster on the far side of portal p from c.
func (g *Graph) OtherCluster(p, c int) int {
	pc := g.file.Portal(p).Clusters
	if int(pc[0]) == c {
		return int(pc[1])
	}
	return int(pc[0])
}

// PortalAreasBetween returns, ascending, the portal areas joining clusters
// a and b.
func (g *Graph) PortalAreasBetween(a, b int) []int {
	if a <= 0 || b <= 0 || a >= len(g.clusterPortals) || b >= len(g.clusterPortals) {
		return nil
	}
	var out []int
	for _, p := range g.clusterPortals[a] {
		if g.OtherCluster(int(p), a) == b {
			out = append(out, g.PortalArea(int(p)))
		}
	}
	slices.Sort(out)
	return out
}

// AreaTravelTime estimates the time to cross area a between two points, in
// the same units as reachability travel times.
func (g *Graph) AreaTravelTime(a int, from, to geom.Vec3) int32 {
	dist := to.Sub(from).Length()
	flags := g.file.Area(a).Flags
	switch {
	case flags&aasfile.AreaLiquid != 0:
		dist *= 3
	case flags&aasfile.AreaCrouch != 0:
		dist *= 1.3
	}
	// Walking speed is about 300 units per second; times are in hundredths.
	t := int32(dist * 0.33)
	return max(t, 1)
}

// PortalMaxTravelTime is the longest crossing of portal p's area from any
// incoming link end to any outgoing link start.
func (g *Graph) PortalMaxTravelTime(p int) int32 {
	a := g.PortalArea(p)
	var worst int32
	for in := range g.IncomingOf(a) {
		for out := range g.NeighborsOf(a) {
			worst = max(worst, g.AreaTravelTime(a, g.reach[in].End, g.reach[out].Start))
		}
	}
	return worst
}

package routing

import (
	"container/heap"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/obstacle"
	"github.com/udisondev/aasnav/internal/reach"
)

type item struct {
	node int
	key  int32
}

type minHeap []item

func (h minHeap) Len() int { return len(h) }
func (h minHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].node < h[j].node
}
func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)   { *h = append(*h, x.(item)) }
func (h *minHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// query carries what one routing request needs through the cache builders.
type query struct {
	snap  *obstacle.Snapshot
	flags aasfile.TravelFlags
	phys  *reach.PhysicsInfo
}

func (q query) bucket() reach.SizeBucket {
	if q.phys == nil {
		return reach.NoValidation
	}
	return q.phys.Bucket()
}

// usable reports whether link may be followed under q.
func (r *Router) usable(q query, link reach.Classified) bool {
	if q.snap.IsBlocked(link.From) || q.snap.IsReachDisabled(link.Index) {
		return false
	}
	if link.Flag&q.flags == 0 {
		return false
	}
	if r.file.Area(link.From).TravelFlags&^q.flags != 0 {
		return false
	}
	if q.phys != nil && !r.validator.Traversable(link, *q.phys, q.snap.Generation()) {
		return false
	}
	return true
}

// penalty is the extra cost of routing through area a.
func (r *Router) penalty(a int, flags aasfile.TravelFlags) int32 {
	if flags&aasfile.TFLFly == 0 && r.file.Area(a).Flags&aasfile.AreaLedge != 0 {
		return r.opts.LedgePenalty
	}
	return 0
}

// areaCache returns the tree towards goal over the areas of cluster c.
func (r *Router) areaCache(q query, c, goal int) *cache {
	k := cacheKey{kind: kindArea, cluster: int32(c), goal: int32(goal), flags: q.flags, bucket: q.bucket()}
	gen := q.snap.ClusterGeneration(c)
	return r.get(k, gen, func() *cache { return r.buildAreaCache(q, k, gen) })
}

// buildAreaCache runs Dijkstra backwards from the goal along incoming links,
// never leaving the cluster but flooding into its portal areas.
func (r *Router) buildAreaCache(q query, k cacheKey, gen uint64) *cache {
	c := int(k.cluster)
	areas := r.graph.ClusterAreas(c)
	ac := newCache(k, gen, len(areas))

	goal := int(k.goal)
	gi, ok := r.graph.ClusterAreaNum(c, goal)
	if !ok || q.snap.IsBlocked(goal) {
		return ac
	}
	ac.time[gi] = 0

	// through[i] is time[i] plus the cost of passing through area i; it is
	// the key routes extending from i are ranked by.
	through := make([]int32, len(areas))
	h := &minHeap{{node: gi}}
	var relaxed int64
	for h.Len() > 0 {
		cur := heap.Pop(h).(item)
		if cur.key != through[cur.node] {
			continue
		}
		for ri := range r.graph.IncomingOf(int(areas[cur.node])) {
			link := r.graph.Reach(ri)
			from, ok := r.graph.ClusterAreaNum(c, link.From)
			if !ok || !r.usable(q, link) {
				continue
			}
			relaxed++
			t := cur.key + link.Time
			switch {
			case ac.time[from] == Unreachable || t < ac.time[from]:
				ac.time[from] = t
				ac.reach[from] = int32(ri)
				through[from] = t + r.penalty(link.From, q.flags)
				heap.Push(h, item{node: from, key: through[from]})
			case t == ac.time[from] && int32(ri) < ac.reach[from]:
				ac.reach[from] = int32(ri)
			}
		}
	}
	r.relaxations.Add(relaxed)
	return ac
}

// portalCache returns the time from every portal to goal across clusters.
func (r *Router) portalCache(q query, goal int) *cache {
	k := cacheKey{kind: kindPortal, goal: int32(goal), flags: q.flags, bucket: q.bucket()}
	gen := q.snap.Generation()
	return r.get(k, gen, func() *cache { return r.buildPortalCache(q, k, gen) })
}

// buildPortalCache seeds every portal of the goal's clusters from their area
// caches, then runs Dijkstra over portals, crossing one cluster per step.
func (r *Router) buildPortalCache(q query, k cacheKey, gen uint64) *cache {
	pc := newCache(k, gen, r.file.NumPortals())
	goal := int(k.goal)
	h := &minHeap{}
	var relaxed int64

	relax := func(p int, t, ri int32) {
		relaxed++
		switch {
		case pc.time[p] == Unreachable || t < pc.time[p]:
			pc.time[p] = t
			pc.reach[p] = ri
			heap.Push(h, item{node: p, key: t})
		case t == pc.time[p] && ri < pc.reach[p]:
			pc.reach[p] = ri
		}
	}

	for _, gc := range r.graph.ClustersOf(goal) {
		ac := r.areaCache(q, gc, goal)
		for _, p := range r.graph.PortalsOfCluster(gc) {
			n, _ := r.graph.ClusterAreaNum(gc, r.graph.PortalArea(int(p)))
			if ac.time[n] != Unreachable {
				relax(int(p), ac.time[n], ac.reach[n])
			}
		}
	}

	for h.Len() > 0 {
		cur := heap.Pop(h).(item)
		if cur.key != pc.time[cur.node] {
			continue
		}
		area := r.graph.PortalArea(cur.node)
		through := cur.key
		if area != goal {
			through += r.penalty(area, q.flags)
		}
		for _, c := range r.graph.ClustersOf(area) {
			ac := r.areaCache(q, c, area)
			for _, other := range r.graph.PortalsOfCluster(c) {
				if int(other) == cur.node {
					continue
				}
				n, _ := r.graph.ClusterAreaNum(c, r.graph.PortalArea(int(other)))
				if ac.time[n] == Unreachable {
					continue
				}
				relax(int(other), ac.time[n]+through, ac.reach[n])
			}
		}
	}
	r.relaxations.Add(relaxed)
	return pc
}

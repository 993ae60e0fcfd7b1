// Package routing answers travel time and next hop queries with cached
// reverse shortest path trees, two levels deep: areas within a cluster and
// portals between clusters.
package routing

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/graph"
	"github.com/udisondev/aasnav/internal/obstacle"
	"github.com/udisondev/aasnav/internal/reach"
)

const (
	// Unreachable marks a node with no route to the goal.
	Unreachable int32 = -1
	// NoReach is the next link of a route that is already at its goal.
	NoReach = -1

	DefaultLedgePenalty  = 250
	DefaultMaxCacheBytes = 2 << 20
)

// Options tune a Router.
type Options struct {
	// LedgePenalty is added when a route passes through a ledge area and
	// flying is not allowed.
	LedgePenalty int32
	// MaxCacheBytes bounds cache memory; least recently used entries go first.
	MaxCacheBytes int64
}

// DefaultOptions returns the stock penalty and a 2 MiB cache.
func DefaultOptions() Options {
	return Options{
		LedgePenalty:  DefaultLedgePenalty,
		MaxCacheBytes: DefaultMaxCacheBytes,
	}
}

// Query is one routing request.
type Query struct {
	From, Goal int
	Flags      aasfile.TravelFlags
	// Physics, when set, restricts links to those the entity can traverse.
	Physics *reach.PhysicsInfo
}

// Route is the remaining travel time and the next link to follow.
type Route struct {
	Time  int32
	Reach int
}

// Stats describe cache activity.
type Stats struct {
	AreaCaches   int
	PortalCaches int
	Builds       int64
	Relaxations  int64
	Hits         int64
	Evictions    int64
	Bytes        int64
}

// Router is safe for concurrent use. Entries are stamped with the obstacle
// generation they were built from and rebuilt whole on mismatch.
type Router struct {
	graph     *graph.Graph
	file      *aasfile.File
	validator *reach.Validator
	opts      Options

	mu      sync.Mutex
	entries map[cacheKey]*list.Element
	lru     *list.List
	bytes   int64
	counts  [2]int

	group singleflight.Group

	builds      atomic.Int64
	relaxations atomic.Int64
	hits        atomic.Int64
	evictions   atomic.Int64
}

// New creates a router. The validator is only consulted for queries that
// carry physics.
func New(g *graph.Graph, v *reach.Validator, opts Options) *Router {
	if opts.MaxCacheBytes <= 0 {
		opts.MaxCacheBytes = DefaultMaxCacheBytes
	}
	return &Router{
		graph:     g,
		file:      g.File(),
		validator: v,
		opts:      opts,
		entries:   make(map[cacheKey]*list.Element),
		lru:       list.New(),
	}
}

// Route returns the route from q.From to q.Goal under the blocked state of
// snap. The bool is false when no route exists, which is not an error.
func (r *Router) Route(snap *obstacle.Snapshot, q Query) (Route, bool, error) {
	if !r.graph.ValidArea(q.From) || !r.graph.ValidArea(q.Goal) {
		return Route{}, false, fmt.Errorf("route %d->%d: %w", q.From, q.Goal, graph.ErrInvalidArea)
	}
	if q.From == q.Goal {
		return Route{Time: 0, Reach: NoReach}, true, nil
	}
	if snap.IsBlocked(q.From) || snap.IsBlocked(q.Goal) {
		return Route{}, false, nil
	}
	if q.Physics != nil && r.validator == nil {
		q.Physics = nil
	}
	rq := query{snap: snap, flags: q.Flags, phys: q.Physics}

	goalClusters := r.graph.ClustersOf(q.Goal)
	if len(goalClusters) == 0 {
		return Route{}, false, nil
	}
	if p := r.graph.PortalOf(q.From); p != 0 {
		pc := r.portalCache(rq, q.Goal)
		if pc.time[p] == Unreachable {
			return Route{}, false, nil
		}
		return Route{Time: pc.time[p], Reach: int(pc.reach[p])}, true, nil
	}

	c := r.graph.ClusterOf(q.From)
	if c == 0 {
		return Route{}, false, nil
	}
	src, _ := r.graph.ClusterAreaNum(c, q.From)

	best := Route{Time: Unreachable, Reach: NoReach}
	direct := false
	for _, gc := range goalClusters {
		if gc != c {
			continue
		}
		ac := r.areaCache(rq, c, q.Goal)
		if ac.time[src] != Unreachable {
			best = Route{Time: ac.time[src], Reach: int(ac.reach[src])}
			direct = true
		}
	}

	portals := r.graph.PortalsOfCluster(c)
	if len(portals) == 0 {
		return best, best.Time != Unreachable, nil
	}
	pc := r.portalCache(rq, q.Goal)
	for _, p := range portals {
		if pc.time[p] == Unreachable {
			continue
		}
		area := r.graph.PortalArea(int(p))
		ac := r.areaCache(rq, c, area)
		if ac.time[src] == Unreachable {
			continue
		}
		t := ac.time[src] + pc.time[p]
		if area != q.Goal {
			t += r.penalty(area, q.Flags)
		}
		// Equal times keep the direct route, then the lower link index.
		switch {
		case best.Time == Unreachable || t < best.Time:
			best = Route{Time: t, Reach: int(ac.reach[src])}
			direct = false
		case t == best.Time && !direct && int(ac.reach[src]) < best.Reach:
			best.Reach = int(ac.reach[src])
		}
	}
	return best, best.Time != Unreachable, nil
}

// LedgePenalty returns the configured ledge penalty.
func (r *Router) LedgePenalty() int32 {
	return r.opts.LedgePenalty
}

// TravelTime is Route without the next link.
func (r *Router) TravelTime(snap *obstacle.Snapshot, q Query) (int32, bool, error) {
	rt, ok, err := r.Route(snap, q)
	return rt.Time, ok, err
}

// Reset drops every cached entry.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.lru.Init()
	r.bytes = 0
	r.counts = [2]int{}
}

// Stats returns a snapshot of the counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	s := Stats{
		AreaCaches:   r.counts[kindArea],
		PortalCaches: r.counts[kindPortal],
		Bytes:        r.bytes,
	}
	r.mu.Unlock()
	s.Builds = r.builds.Load()
	s.Relaxations = r.relaxations.Load()
	s.Hits = r.hits.Load()
	s.Evictions = r.evictions.Load()
	return s
}

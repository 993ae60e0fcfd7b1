package routing

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/collision"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/graph"
	"github.com/udisondev/aasnav/internal/obstacle"
	"github.com/udisondev/aasnav/internal/reach"
)

type fixture struct {
	g       *graph.Graph
	tracker *obstacle.Tracker
	router  *Router
}

func newFixture(t *testing.T, b *aasfile.Builder, adapter collision.Adapter, opts Options) *fixture {
	t.Helper()
	f, err := b.Build()
	require.NoError(t, err)
	g, err := graph.New(f, reach.NewClassifier(reach.DefaultUncertainPenalty).ClassifyAll(f))
	require.NoError(t, err)
	return &fixture{
		g:       g,
		tracker: obstacle.NewTracker(g),
		router:  New(g, reach.NewValidator(f, adapter), opts),
	}
}

func (fx *fixture) route(t *testing.T, from, goal int, flags aasfile.TravelFlags) (Route, bool) {
	t.Helper()
	rt, ok, err := fx.router.Route(fx.tracker.Snapshot(), Query{From: from, Goal: goal, Flags: flags})
	require.NoError(t, err)
	return rt, ok
}

func box(i int) geom.Bounds {
	x := float32(i * 100)
	return geom.B(geom.V(x, 0, 0), geom.V(x+100, 100, 100))
}

// chain builds areas 1 -> 2 -> 3 linked one way with time 10 each.
func chain(flags ...aasfile.AreaFlags) *aasfile.Builder {
	b := aasfile.NewBuilder()
	for i := range 3 {
		spec := aasfile.AreaSpec{Bounds: box(i), Flags: aasfile.AreaFloor}
		if i < len(flags) {
			spec.Flags |= flags[i]
		}
		b.AddArea(spec)
	}
	b.AddReach(aasfile.ReachSpec{From: 1, To: 2, Type: aasfile.TFLWalk, Time: 10})
	b.AddReach(aasfile.ReachSpec{From: 2, To: 3, Type: aasfile.TFLWalk, Time: 10})
	return b
}

func TestRouteChain(t *testing.T) {
	fx := newFixture(t, chain(), nil, DefaultOptions())
	first, ok := fx.g.File().FindReachability(1, 2)
	require.True(t, ok)

	rt, ok := fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, Route{Time: 20, Reach: first}, rt)

	require.NoError(t, fx.tracker.SetAreaBlocked(2, true))
	_, ok = fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	assert.False(t, ok)

	require.NoError(t, fx.tracker.SetAreaBlocked(2, false))
	rt, ok = fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, Route{Time: 20, Reach: first}, rt)
}

func TestRouteEdgeCases(t *testing.T) {
	fx := newFixture(t, chain(), nil, DefaultOptions())

	rt, ok := fx.route(t, 2, 2, aasfile.TFLDefaultWalk)
	assert.True(t, ok)
	assert.Equal(t, Route{Time: 0, Reach: NoReach}, rt)

	_, ok = fx.route(t, 3, 1, aasfile.TFLDefaultWalk)
	assert.False(t, ok, "links are one way")

	_, ok = fx.route(t, 1, 3, aasfile.TFLFly)
	assert.False(t, ok, "walk links need the walk flag")

	require.NoError(t, fx.tracker.SetAreaBlocked(3, true))
	_, ok = fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	assert.False(t, ok, "blocked goal")

	snap := fx.tracker.Snapshot()
	for _, q := range []Query{{From: 0, Goal: 1}, {From: 1, Goal: 4}, {From: -3, Goal: 1}} {
		_, _, err := fx.router.Route(snap, q)
		assert.ErrorIs(t, err, graph.ErrInvalidArea)
	}
}

func TestLedgePenalty(t *testing.T) {
	fx := newFixture(t, chain(0, aasfile.AreaLedge), nil, DefaultOptions())

	rt, ok := fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, int32(20+DefaultLedgePenalty), rt.Time)

	rt, ok = fx.route(t, 2, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, int32(10), rt.Time, "the ledge is the source, not on the way")

	rt, ok = fx.route(t, 1, 3, aasfile.TFLDefaultFly)
	require.True(t, ok)
	assert.Equal(t, int32(20), rt.Time)
}

func TestAreaTravelFlags(t *testing.T) {
	b := aasfile.NewBuilder()
	b.AddArea(aasfile.AreaSpec{Bounds: box(0), Flags: aasfile.AreaFloor})
	b.AddArea(aasfile.AreaSpec{Bounds: box(1), Flags: aasfile.AreaLiquid, TravelFlags: aasfile.TFLWater})
	b.AddArea(aasfile.AreaSpec{Bounds: box(2), Flags: aasfile.AreaFloor})
	b.AddReach(aasfile.ReachSpec{From: 1, To: 2, Type: aasfile.TFLSwim, Time: 10})
	b.AddReach(aasfile.ReachSpec{From: 2, To: 3, Type: aasfile.TFLSwim, Time: 10})
	fx := newFixture(t, b, nil, DefaultOptions())

	_, ok := fx.route(t, 1, 3, aasfile.TFLSwim)
	assert.False(t, ok, "area 2 needs the water flag")

	rt, ok := fx.route(t, 1, 3, aasfile.TFLSwim|aasfile.TFLWater)
	require.True(t, ok)
	assert.Equal(t, int32(20), rt.Time)
}

func TestRouteValidatesForPhysics(t *testing.T) {
	wall := collision.NewBoxWorld(
		collision.Brush{Bounds: geom.B(geom.V(120, -100, -16), geom.V(130, 200, 300)), Contents: collision.ContentsSolid},
	)
	fx := newFixture(t, chain(), wall, DefaultOptions())
	phys := reach.DefaultPhysics(fx.g.File().Settings())
	snap := fx.tracker.Snapshot()

	_, ok, err := fx.router.Route(snap, Query{From: 1, Goal: 3, Flags: aasfile.TFLDefaultWalk, Physics: &phys})
	require.NoError(t, err)
	assert.False(t, ok, "the wall cuts the first link")

	rt, ok, err := fx.router.Route(snap, Query{From: 2, Goal: 3, Flags: aasfile.TFLDefaultWalk, Physics: &phys})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(10), rt.Time)

	_, ok, err = fx.router.Route(snap, Query{From: 1, Goal: 3, Flags: aasfile.TFLDefaultWalk})
	require.NoError(t, err)
	assert.True(t, ok, "unvalidated queries trust the file")
}

func TestRouteObstacle(t *testing.T) {
	b := aasfile.NewBuilder()
	for i := range 3 {
		b.AddArea(aasfile.AreaSpec{Bounds: box(i), Flags: aasfile.AreaFloor})
	}
	b.Connect(1, 2, 10)
	b.Connect(2, 3, 10)
	fx := newFixture(t, b, nil, DefaultOptions())

	_, ok := fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)

	// Covers the end of the 2->3 link at area 3's center.
	h := fx.tracker.AddObstacle(geom.B(geom.V(240, 40, 0), geom.V(260, 60, 20)))
	_, ok = fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	assert.False(t, ok)

	fx.tracker.RemoveObstacle(h)
	_, ok = fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	assert.True(t, ok)
}

func TestIdempotence(t *testing.T) {
	fx := newFixture(t, chain(), nil, DefaultOptions())

	first, ok := fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	before := fx.router.Stats()
	assert.Equal(t, int64(1), before.Builds)
	assert.Positive(t, before.Relaxations)

	second, ok := fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	after := fx.router.Stats()
	assert.Equal(t, first, second)
	assert.Equal(t, before.Builds, after.Builds)
	assert.Equal(t, before.Relaxations, after.Relaxations)
	assert.Greater(t, after.Hits, before.Hits)

	// A different source reuses the tree of the same goal.
	fx.route(t, 2, 3, aasfile.TFLDefaultWalk)
	assert.Equal(t, before.Builds, fx.router.Stats().Builds)
}

func TestInvalidation(t *testing.T) {
	b := aasfile.NewBuilder()
	for i := range 4 {
		b.AddArea(aasfile.AreaSpec{Bounds: box(i), Flags: aasfile.AreaFloor})
	}
	b.Connect(1, 2, 10)
	b.Connect(2, 4, 10)
	b.Connect(1, 3, 30)
	b.Connect(3, 4, 30)
	fx := newFixture(t, b, nil, DefaultOptions())

	rt, ok := fx.route(t, 1, 4, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, int32(20), rt.Time)
	builds := fx.router.Stats().Builds

	require.NoError(t, fx.tracker.SetAreaBlocked(2, true))
	rt, ok = fx.route(t, 1, 4, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, int32(60), rt.Time)
	assert.Equal(t, 3, fx.g.Reach(rt.Reach).To)
	assert.Greater(t, fx.router.Stats().Builds, builds, "stale entry rebuilt")

	// An old snapshot still sees the state it was taken under.
	require.NoError(t, fx.tracker.SetAreaBlocked(2, false))
	rt, ok = fx.route(t, 1, 4, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, int32(20), rt.Time)
}

func TestEviction(t *testing.T) {
	fx := newFixture(t, chain(), nil, Options{LedgePenalty: DefaultLedgePenalty, MaxCacheBytes: 1})

	for goal := 1; goal <= 3; goal++ {
		fx.route(t, 1, goal, aasfile.TFLDefaultWalk)
	}
	s := fx.router.Stats()
	assert.Equal(t, 1, s.AreaCaches+s.PortalCaches, "only the newest entry survives")
	assert.Positive(t, s.Evictions)

	rt, ok := fx.route(t, 1, 3, aasfile.TFLDefaultWalk)
	require.True(t, ok)
	assert.Equal(t, int32(20), rt.Time)

	fx.router.Reset()
	assert.Zero(t, fx.router.Stats().Bytes)
}

func TestConcurrentQueriesBuildOnce(t *testing.T) {
	fx := newFixture(t, chain(), nil, DefaultOptions())
	snap := fx.tracker.Snapshot()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt, ok, err := fx.router.Route(snap, Query{From: 1, Goal: 3, Flags: aasfile.TFLDefaultWalk})
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int32(20), rt.Time)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), fx.router.Stats().Builds)
}

// randomLevel builds clusters of four member areas joined by portals, with
// random one-way walk links inside each cluster.
func randomLevel(rng *rand.Rand, portals [][2]int, links int) *aasfile.Builder {
	const perCluster = 4
	nClusters := 0
	for _, p := range portals {
		nClusters = max(nClusters, p[0], p[1])
	}
	nClusters = max(nClusters, 1)

	b := aasfile.NewBuilder()
	members := make([][]int, nClusters+1)
	for c := 1; c <= nClusters; c++ {
		for range perCluster {
			a := b.AddArea(aasfile.AreaSpec{Bounds: box(2 * b.NumAreas()), Flags: aasfile.AreaFloor, Cluster: c})
			members[c] = append(members[c], a)
		}
	}
	for _, p := range portals {
		a := b.AddArea(aasfile.AreaSpec{Bounds: box(2 * b.NumAreas()), Flags: aasfile.AreaFloor, Cluster: p[0]})
		b.AddPortal(a, p[0], p[1])
		members[p[0]] = append(members[p[0]], a)
		members[p[1]] = append(members[p[1]], a)
	}
	for c := 1; c <= nClusters; c++ {
		nodes := members[c]
		for range links {
			from := nodes[rng.IntN(len(nodes))]
			to := nodes[rng.IntN(len(nodes))]
			if from == to {
				continue
			}
			b.AddReach(aasfile.ReachSpec{From: from, To: to, Type: aasfile.TFLWalk, Time: uint16(1 + rng.IntN(40))})
		}
	}
	return b
}

// flatTimes is a plain Dijkstra towards goal over the whole graph, the
// reference the two level search must agree with.
func flatTimes(g *graph.Graph, snap *obstacle.Snapshot, goal int) []int32 {
	n := g.NumAreas()
	dist := make([]int32, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = Unreachable
	}
	if snap.IsBlocked(goal) {
		return dist
	}
	dist[goal] = 0
	for {
		cur := -1
		for a := 1; a < n; a++ {
			if !done[a] && dist[a] != Unreachable && (cur == -1 || dist[a] < dist[cur]) {
				cur = a
			}
		}
		if cur == -1 {
			return dist
		}
		done[cur] = true
		for ri := range g.IncomingOf(cur) {
			link := g.Reach(ri)
			if snap.IsBlocked(link.From) {
				continue
			}
			if t := dist[cur] + link.Time; dist[link.From] == Unreachable || t < dist[link.From] {
				dist[link.From] = t
			}
		}
	}
}

func checkAgainstFlat(t *testing.T, fx *fixture) {
	t.Helper()
	snap := fx.tracker.Snapshot()
	n := fx.g.NumAreas()
	for goal := 1; goal < n; goal++ {
		want := flatTimes(fx.g, snap, goal)
		for from := 1; from < n; from++ {
			rt, ok, err := fx.router.Route(snap, Query{From: from, Goal: goal, Flags: aasfile.TFLDefaultWalk})
			require.NoError(t, err)
			if from == goal {
				assert.True(t, ok)
				continue
			}
			if want[from] == Unreachable || snap.IsBlocked(from) {
				assert.False(t, ok, "%d->%d", from, goal)
				continue
			}
			require.True(t, ok, "%d->%d", from, goal)
			assert.Equal(t, want[from], rt.Time, "%d->%d", from, goal)

			// The next link starts here and lies on a shortest path.
			link := fx.g.Reach(rt.Reach)
			assert.Equal(t, from, link.From)
			assert.Equal(t, want[from], link.Time+want[link.To], "%d->%d via %d", from, goal, rt.Reach)
		}
	}
}

func TestMultiClusterMatchesFlat(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	portals := [][2]int{{1, 2}, {1, 2}, {2, 3}, {1, 3}}

	for round := range 5 {
		fx := newFixture(t, randomLevel(rng, portals, 14), nil, DefaultOptions())
		checkAgainstFlat(t, fx)

		for range 2 {
			a := 1 + rng.IntN(fx.g.NumAreas()-1)
			require.NoError(t, fx.tracker.SetAreaBlocked(a, true))
		}
		checkAgainstFlat(t, fx)
		assert.Positive(t, fx.router.Stats().PortalCaches, "round %d", round)
	}
}

func TestMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 10 {
		fx := newFixture(t, randomLevel(rng, nil, 12), nil, DefaultOptions())
		snap := fx.tracker.Snapshot()
		n := fx.g.NumAreas()

		times := func(goal int) []int32 {
			out := make([]int32, n)
			for a := 1; a < n; a++ {
				rt, ok, err := fx.router.Route(snap, Query{From: a, Goal: goal, Flags: aasfile.TFLDefaultWalk})
				require.NoError(t, err)
				out[a] = Unreachable
				if ok {
					out[a] = rt.Time
				}
			}
			return out
		}

		for goal := 1; goal < n; goal++ {
			tt := times(goal)
			for a := 1; a < n; a++ {
				if tt[a] == Unreachable {
					continue
				}
				for ri := range fx.g.NeighborsOf(a) {
					link := fx.g.Reach(ri)
					if tt[link.To] == Unreachable {
						continue
					}
					assert.GreaterOrEqual(t, link.Time+tt[link.To], tt[a], "area %d goal %d", a, goal)
					if rt, _, _ := fx.router.Route(snap, Query{From: a, Goal: goal, Flags: aasfile.TFLDefaultWalk}); rt.Reach == ri {
						assert.GreaterOrEqual(t, tt[a], tt[link.To], "successor %d of %d", link.To, a)
					}
				}
			}
		}
	}
}

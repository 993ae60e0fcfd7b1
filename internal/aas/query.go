package aas

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/obstacle"
	"github.com/udisondev/aasnav/internal/reach"
	"github.com/udisondev/aasnav/internal/routing"
)

// Route is the answer to a routing query: the remaining travel time and the
// link to take next.
type Route struct {
	TravelTime int32
	// Reach is routing.NoReach when the source already is the goal.
	Reach int
	// NextArea is the area Reach leads to, or the goal.
	NextArea int
	Type     reach.TravelType
	// Start and End are where the next link begins and lands.
	Start, End geom.Vec3
}

// AtGoal reports whether the source area is the goal.
func (r *Route) AtGoal() bool {
	return r.Reach == routing.NoReach
}

// Hop is one step of a materialised path.
type Hop struct {
	Area  int
	Reach int
	To    int
	Type  reach.TravelType
	Time  int32
}

const (
	// Search bounds are grown from the point in this many steps.
	searchSteps = 12

	// DefaultMaxHops bounds Path when no limit is given.
	DefaultMaxHops = 1024
)

// DefaultSearchBounds is the box PointReachableAreaNum grows towards.
var DefaultSearchBounds = geom.B(geom.V(-128, -128, -128), geom.V(128, 128, 128))

func (rt *Runtime) checkArea(op string, areaNum int) error {
	if rt.closed.Load() {
		return ErrClosed
	}
	if !rt.graph.ValidArea(areaNum) {
		err := fmt.Errorf("%s: %w: %d", op, ErrInvalidArea, areaNum)
		slog.Error("navigation query with bad area", "map", rt.Name(), "op", op, "area", areaNum)
		return err
	}
	return nil
}

// PointAreaNum returns the area containing p, or 0.
func (rt *Runtime) PointAreaNum(p geom.Vec3) int {
	a, _ := rt.file.PointInArea(p)
	return a
}

// reachableFlags are the area flags that make an area a valid place to stand
// for a query with the given travel flags.
func reachableFlags(flags aasfile.TravelFlags) aasfile.AreaFlags {
	if flags&aasfile.TFLFly != 0 {
		return aasfile.AreaReachableWalk | aasfile.AreaReachableFly
	}
	return aasfile.AreaReachableWalk
}

func (rt *Runtime) acceptable(snap *obstacle.Snapshot, a int, flags aasfile.TravelFlags) bool {
	area := rt.file.Area(a)
	return !snap.IsBlocked(a) &&
		area.Flags&reachableFlags(flags) != 0 &&
		area.TravelFlags&^flags == 0
}

// PointReachableAreaNum finds the area nearest p that is not blocked and can
// be used with flags. It tries the containing area, then short traces up and
// down, then boxes grown towards searchBounds (relative to p). Ties on a face
// shared by two areas go to the lower area number.
func (rt *Runtime) PointReachableAreaNum(p geom.Vec3, searchBounds geom.Bounds, flags aasfile.TravelFlags) (int, bool) {
	if rt.closed.Load() {
		return 0, false
	}
	snap := rt.tracker.Snapshot()
	start := p
	if a, ok := rt.file.PointInArea(p); ok {
		if rt.acceptable(snap, a, flags) {
			return a, true
		}
	} else {
		up := rt.Trace(p, p.Add(geom.V(0, 0, 32)), TraceOptions{GetOutOfSolid: true})
		if len(up.Areas) > 0 {
			if rt.acceptable(snap, up.Areas[0], flags) {
				return up.Areas[0], true
			}
			start = up.Points[0].Add(geom.V(0, 0, 1))
		}
	}

	down := rt.Trace(start, start.Sub(geom.V(0, 0, 32)), TraceOptions{GetOutOfSolid: true})
	if down.LastArea != 0 && rt.acceptable(snap, down.LastArea, flags) {
		return down.LastArea, true
	}

	if searchBounds == (geom.Bounds{}) || searchBounds.IsCleared() {
		searchBounds = DefaultSearchBounds
	}
	for i := 1; i <= searchSteps; i++ {
		frac := float32(i) / searchSteps
		b := geom.B(p.Add(searchBounds.Mins.Scale(frac)), p.Add(searchBounds.Maxs.Scale(frac)))
		best, bestDist := 0, float32(0)
		for _, a := range rt.file.AreasInBounds(b) {
			if !rt.acceptable(snap, a, flags) {
				continue
			}
			d := rt.file.Area(a).Bounds.DistanceToPoint(p)
			if best == 0 || d < bestDist {
				best, bestDist = a, d
			}
		}
		if best != 0 {
			return best, true
		}
	}
	return 0, false
}

// BoundsReachableAreaNum returns the lowest numbered usable area touching b.
func (rt *Runtime) BoundsReachableAreaNum(b geom.Bounds, flags aasfile.TravelFlags) (int, bool) {
	snap := rt.tracker.Snapshot()
	for _, a := range rt.file.AreasInBounds(b) {
		if rt.acceptable(snap, a, flags) {
			return a, true
		}
	}
	return 0, false
}

// PushPointIntoAreaNum moves p onto the inside of every face of the area.
func (rt *Runtime) PushPointIntoAreaNum(areaNum int, p geom.Vec3) (geom.Vec3, error) {
	if err := rt.checkArea("push point into area", areaNum); err != nil {
		return p, err
	}
	return rt.file.PushPointIntoArea(areaNum, p), nil
}

// AreaCenter returns the point an AI moves towards inside the area.
func (rt *Runtime) AreaCenter(areaNum int) (geom.Vec3, error) {
	if err := rt.checkArea("area center", areaNum); err != nil {
		return geom.Vec3{}, err
	}
	return rt.file.Area(areaNum).Center, nil
}

// AreaBounds returns the bounds of the area.
func (rt *Runtime) AreaBounds(areaNum int) (geom.Bounds, error) {
	if err := rt.checkArea("area bounds", areaNum); err != nil {
		return geom.Bounds{}, err
	}
	return rt.file.Area(areaNum).Bounds, nil
}

// AreaFlags returns the area flags.
func (rt *Runtime) AreaFlags(areaNum int) (aasfile.AreaFlags, error) {
	if err := rt.checkArea("area flags", areaNum); err != nil {
		return 0, err
	}
	return rt.file.Area(areaNum).Flags, nil
}

// AreaTravelFlags returns the travel flags needed to pass through the area.
func (rt *Runtime) AreaTravelFlags(areaNum int) (aasfile.TravelFlags, error) {
	if err := rt.checkArea("area travel flags", areaNum); err != nil {
		return 0, err
	}
	return rt.file.Area(areaNum).TravelFlags, nil
}

// RouteToGoalArea returns the next link and remaining time from one area to
// another. No route is (nil, nil); only bad area numbers are errors.
func (rt *Runtime) RouteToGoalArea(from, goal int, flags aasfile.TravelFlags) (*Route, error) {
	return rt.route(routing.Query{From: from, Goal: goal, Flags: flags})
}

// RouteToGoalAreaFor is RouteToGoalArea restricted to links an entity with
// the given physics can traverse.
func (rt *Runtime) RouteToGoalAreaFor(from, goal int, flags aasfile.TravelFlags, phys reach.PhysicsInfo) (*Route, error) {
	return rt.route(routing.Query{From: from, Goal: goal, Flags: flags, Physics: &phys})
}

// TravelTimeToGoalArea returns only the remaining travel time.
func (rt *Runtime) TravelTimeToGoalArea(from, goal int, flags aasfile.TravelFlags) (int32, bool, error) {
	r, err := rt.RouteToGoalArea(from, goal, flags)
	if err != nil || r == nil {
		return 0, false, err
	}
	return r.TravelTime, true, nil
}

func (rt *Runtime) route(q routing.Query) (*Route, error) {
	if err := rt.checkArea("route from", q.From); err != nil {
		return nil, err
	}
	if err := rt.checkArea("route to", q.Goal); err != nil {
		return nil, err
	}
	res, ok, err := rt.router.Route(rt.tracker.Snapshot(), q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	r := &Route{TravelTime: res.Time, Reach: res.Reach, NextArea: q.Goal}
	if res.Reach != routing.NoReach {
		link := rt.graph.Reach(res.Reach)
		r.NextArea = link.To
		r.Type = link.Type
		r.Start = link.Start
		r.End = link.End
	}
	return r, nil
}

// Path follows next hops from one area to the goal, at most maxHops of them
// (DefaultMaxHops when maxHops <= 0). A missing route is (nil, nil); a
// source that is the goal gives an empty, non-nil path.
func (rt *Runtime) Path(from, goal int, flags aasfile.TravelFlags, maxHops int) ([]Hop, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	hops := []Hop{}
	cur := from
	for range maxHops {
		r, err := rt.RouteToGoalArea(cur, goal, flags)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, nil
		}
		if r.AtGoal() {
			return hops, nil
		}
		hops = append(hops, Hop{
			Area:  cur,
			Reach: r.Reach,
			To:    r.NextArea,
			Type:  r.Type,
			Time:  rt.graph.Reach(r.Reach).Time,
		})
		cur = r.NextArea
	}
	return hops, nil
}

package aas

import (
	"log/slog"
	"math"
	"slices"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/obstacle"
	"github.com/udisondev/aasnav/internal/reach"
	"github.com/udisondev/aasnav/internal/routing"
)

const (
	maxWalkPathIterations  = 10
	maxWalkPathDistance    = 500
	walkPathSampleDistance = 8

	maxFlyPathIterations  = 10
	maxFlyPathDistance    = 500
	flyPathSampleDistance = 8

	// Tolerances of the floor walk.
	splitEpsilon = 0.1
	farEpsilon   = 0.5
	seamEpsilon  = 0.2
)

// PathType tells how the move goal of a MovePath is left.
type PathType uint8

const (
	PathWalk         PathType = 0
	PathWalkOffLedge PathType = 1 << 0
	PathBarrierJump  PathType = 1 << 1
	PathJump         PathType = 1 << 2
)

func (t PathType) String() string {
	switch t {
	case PathWalk:
		return "walk"
	case PathWalkOffLedge:
		return "walk_off_ledge"
	case PathBarrierJump:
		return "barrier_jump"
	case PathJump:
		return "jump"
	}
	return "unknown"
}

// MovePath is the next straight-line move towards a goal.
type MovePath struct {
	Type PathType
	// MoveGoal is the furthest point along the route that can be moved to in
	// a straight line, and MoveArea the area it lies in.
	MoveGoal geom.Vec3
	MoveArea int
	// SecondaryGoal is where the jump or drop taken at MoveGoal lands.
	SecondaryGoal geom.Vec3
	// Reach is the link taken at MoveGoal, routing.NoReach for plain moves.
	Reach int
}

// PathEnd is how far a straight move got.
type PathEnd struct {
	Pos  geom.Vec3
	Area int
}

// mover holds what differs between walking and flying along a route.
type mover struct {
	op          string
	iterations  int
	maxDistance float32
	sample      float32
	// walkOnly stops at the first link that is not a plain walk.
	walkOnly bool
	valid    func(rt *Runtime, snap *obstacle.Snapshot, areaNum int, origin geom.Vec3, goalArea int, goal geom.Vec3, flags aasfile.TravelFlags) (PathEnd, bool)
}

var walker = &mover{
	op:          "walk path",
	iterations:  maxWalkPathIterations,
	maxDistance: maxWalkPathDistance,
	sample:      walkPathSampleDistance,
	walkOnly:    true,
	valid:       (*Runtime).walkPathValid,
}

var flyer = &mover{
	op:          "fly path",
	iterations:  maxFlyPathIterations,
	maxDistance: maxFlyPathDistance,
	sample:      flyPathSampleDistance,
	valid:       (*Runtime).flyPathValid,
}

// WalkPathToGoal follows the route from origin in areaNum towards goalOrigin
// in goalArea and returns the furthest point that can be walked to in a
// straight line. When the route continues with a walk off a ledge or a jump
// the path stops at its start and records where it lands. ok is false when
// there is no route.
func (rt *Runtime) WalkPathToGoal(areaNum int, origin geom.Vec3, goalArea int, goalOrigin geom.Vec3, flags aasfile.TravelFlags) (MovePath, bool, error) {
	return rt.pathToGoal(walker, areaNum, origin, goalArea, goalOrigin, flags)
}

// FlyPathToGoal is WalkPathToGoal for flying entities: straight moves are
// checked with area traces and every link type is flown through.
func (rt *Runtime) FlyPathToGoal(areaNum int, origin geom.Vec3, goalArea int, goalOrigin geom.Vec3, flags aasfile.TravelFlags) (MovePath, bool, error) {
	return rt.pathToGoal(flyer, areaNum, origin, goalArea, goalOrigin, flags)
}

// WalkPathValid reports whether one can walk in a straight line from origin
// to goalOrigin, crossing only floor faces joined by walk links with at most
// a step of height difference. The end reports how far the walk got. A
// goalArea of 0 accepts any area.
func (rt *Runtime) WalkPathValid(areaNum int, origin geom.Vec3, goalArea int, goalOrigin geom.Vec3, flags aasfile.TravelFlags) (PathEnd, bool, error) {
	if err := rt.checkArea(walker.op, areaNum); err != nil {
		return PathEnd{}, false, err
	}
	end, ok := rt.walkPathValid(rt.tracker.Snapshot(), areaNum, origin, goalArea, goalOrigin, flags)
	return end, ok, nil
}

// FlyPathValid reports whether the straight line from origin to goalOrigin
// stays inside the navigable space.
func (rt *Runtime) FlyPathValid(areaNum int, origin geom.Vec3, goalArea int, goalOrigin geom.Vec3, flags aasfile.TravelFlags) (PathEnd, bool, error) {
	if err := rt.checkArea(flyer.op, areaNum); err != nil {
		return PathEnd{}, false, err
	}
	end, ok := rt.flyPathValid(rt.tracker.Snapshot(), areaNum, origin, goalArea, goalOrigin, flags)
	return end, ok, nil
}

// SubSampleWalkPath walks from start towards end in small steps and returns
// the last sample still walkable in a straight line from origin.
func (rt *Runtime) SubSampleWalkPath(areaNum int, origin, start, end geom.Vec3, flags aasfile.TravelFlags) (PathEnd, error) {
	return rt.subSamplePath(walker, areaNum, origin, start, end, flags)
}

// SubSampleFlyPath is SubSampleWalkPath with fly validity.
func (rt *Runtime) SubSampleFlyPath(areaNum int, origin, start, end geom.Vec3, flags aasfile.TravelFlags) (PathEnd, error) {
	return rt.subSamplePath(flyer, areaNum, origin, start, end, flags)
}

func (rt *Runtime) subSamplePath(m *mover, areaNum int, origin, start, end geom.Vec3, flags aasfile.TravelFlags) (PathEnd, error) {
	if err := rt.checkArea(m.op, areaNum); err != nil {
		return PathEnd{}, err
	}
	startArea, _ := rt.file.PointInArea(start)
	return rt.subSample(m, rt.tracker.Snapshot(), areaNum, origin, start, end, flags, startArea), nil
}

func (rt *Runtime) subSample(m *mover, snap *obstacle.Snapshot, areaNum int, origin, start, end geom.Vec3, flags aasfile.TravelFlags, endArea int) PathEnd {
	dir := end.Sub(start)
	n := int(dir.Length()/m.sample) + 1

	out := PathEnd{Pos: start, Area: endArea}
	for i := 1; i < n; i++ {
		next := start.Add(dir.Scale(float32(i) / float32(n)))
		if out.Pos.Sub(next).Length() > m.maxDistance {
			break
		}
		pe, ok := m.valid(rt, snap, areaNum, origin, 0, next, flags)
		if !ok {
			break
		}
		out = PathEnd{Pos: next, Area: pe.Area}
	}
	return out
}

func (rt *Runtime) pathToGoal(m *mover, areaNum int, origin geom.Vec3, goalArea int, goalOrigin geom.Vec3, flags aasfile.TravelFlags) (MovePath, bool, error) {
	if err := rt.checkArea(m.op, areaNum); err != nil {
		return MovePath{}, false, err
	}
	if err := rt.checkArea(m.op, goalArea); err != nil {
		return MovePath{}, false, err
	}

	path := MovePath{MoveGoal: origin, MoveArea: areaNum, SecondaryGoal: origin, Reach: routing.NoReach}
	if areaNum == goalArea {
		path.MoveGoal = goalOrigin
		return path, true, nil
	}

	snap := rt.tracker.Snapshot()
	valid := func(p geom.Vec3) bool {
		_, ok := m.valid(rt, snap, areaNum, origin, 0, p, flags)
		return ok
	}
	sampleTo := func(end geom.Vec3) {
		pe := rt.subSample(m, snap, areaNum, origin, path.MoveGoal, end, flags, path.MoveArea)
		path.MoveGoal, path.MoveArea = pe.Pos, pe.Area
	}

	last := [4]int{areaNum, areaNum, areaNum, areaNum}
	li := 0
	cur := areaNum
	var taken *Route
	for range m.iterations {
		r, err := rt.RouteToGoalArea(cur, goalArea, flags)
		if err != nil {
			return MovePath{}, false, err
		}
		if r == nil {
			break
		}
		if r.AtGoal() {
			return path, false, nil
		}
		taken = r

		// The first area needs no check.
		if cur != areaNum {
			if r.Start.Sub(origin).Length() > m.maxDistance || !valid(r.Start) {
				sampleTo(r.Start)
				return path, true, nil
			}
		}

		path.MoveGoal, path.MoveArea = r.Start, cur
		if m.walkOnly && r.Type != reach.Walk {
			break
		}
		if !valid(r.End) {
			return path, true, nil
		}
		path.MoveGoal, path.MoveArea = r.End, r.NextArea

		if r.NextArea == goalArea {
			if !valid(goalOrigin) {
				sampleTo(goalOrigin)
				return path, true, nil
			}
			path.MoveGoal, path.MoveArea = goalOrigin, goalArea
			return path, true, nil
		}

		last[li] = cur
		li = (li + 1) & 3
		cur = r.NextArea
		if slices.Contains(last[:], cur) {
			slog.Warn("local routing minimum", "map", rt.Name(), "op", m.op, "from", areaNum, "to", goalArea, "area", cur)
			break
		}
	}
	if taken == nil {
		return path, false, nil
	}

	if m.walkOnly {
		switch taken.Type {
		case reach.WalkOffLedge:
			path.Type = PathWalkOffLedge
		case reach.BarrierJump:
			path.Type = PathBarrierJump
		case reach.Jump:
			path.Type = PathJump
		}
		if path.Type != PathWalk {
			path.SecondaryGoal = taken.End
			path.Reach = taken.Reach
		}
	}
	return path, true, nil
}

// walkPathValid walks the floor faces cut by the vertical plane through
// origin and goal, area by area, until it passes the goal.
func (rt *Runtime) walkPathValid(snap *obstacle.Snapshot, areaNum int, origin geom.Vec3, goalArea int, goal geom.Vec3, flags aasfile.TravelFlags) (PathEnd, bool) {
	s := rt.file.Settings()
	down := s.Gravity.Normalize()
	dir := goal.Sub(origin)

	pathPlane := geom.PlaneFromPoint(dir.Cross(down), origin)
	front := geom.PlaneFromPoint(dir, origin)
	far := geom.Plane{Normal: front.Normal, Dist: front.Normal.Dot(goal)}

	last := [4]int{areaNum, areaNum, areaNum, areaNum}
	li := 0
	cur := areaNum
	var end geom.Vec3
	for range rt.file.NumAreas() {
		var ok bool
		if end, ok = rt.floorSplit(cur, pathPlane, front, false); !ok {
			end = origin
		}
		if far.Distance(end) > -farEpsilon || cur == goalArea {
			return PathEnd{Pos: end, Area: cur}, true
		}
		front.Dist = front.Normal.Dot(end)

		next := 0
		for ri := range rt.graph.NeighborsOf(cur) {
			link := rt.graph.Reach(ri)
			if link.Type != reach.Walk || slices.Contains(last[:], link.To) {
				continue
			}
			if snap.IsReachDisabled(ri) || snap.IsBlocked(link.To) {
				continue
			}
			to := rt.file.Area(link.To)
			if to.TravelFlags&^flags != 0 || to.Flags&aasfile.AreaLedge != 0 {
				continue
			}
			p, ok := rt.floorSplit(link.To, pathPlane, front, true)
			if !ok {
				continue
			}
			d := end.Sub(p)
			vertical := down.Scale(d.Dot(down))
			if vertical.Length() > s.MaxStepHeight {
				continue
			}
			if d.Sub(vertical).Length() > seamEpsilon {
				continue
			}
			next = link.To
			break
		}
		if next == 0 {
			return PathEnd{Pos: end, Area: cur}, false
		}
		last[li] = cur
		li = (li + 1) & 3
		cur = next
	}
	return PathEnd{Pos: end, Area: cur}, false
}

// floorSplit returns the closest (or furthest) point in front of front where
// a floor edge of the area crosses the path plane.
func (rt *Runtime) floorSplit(areaNum int, path, front geom.Plane, closest bool) (geom.Vec3, bool) {
	f := rt.file
	a := f.Area(areaNum)
	best := float32(-splitEpsilon)
	if closest {
		best = maxWalkPathDistance
	}
	var split geom.Vec3
	found := false
	for i := a.FirstFace; i < a.FirstFace+a.NumFaces; i++ {
		face := f.Face(absNum(f.FaceIndex(int(i))))
		if face.Flags&aasfile.FaceFloor == 0 {
			continue
		}
		for j := face.FirstEdge; j < face.FirstEdge+face.NumEdges; j++ {
			p, ok := rt.edgeSplit(absNum(f.EdgeIndex(int(j))), path)
			if !ok {
				continue
			}
			d := front.Distance(p)
			if closest && d >= -splitEpsilon && d < best || !closest && d > best {
				best, split, found = d, p, true
			}
		}
	}
	return split, found
}

// edgeSplit returns where the edge crosses pl, if its end points lie on
// different sides.
func (rt *Runtime) edgeSplit(edgeNum int, pl geom.Plane) (geom.Vec3, bool) {
	v1, v2 := rt.file.EdgeVertices(edgeNum)
	d1, d2 := pl.Distance(v1), pl.Distance(v2)
	if math.Signbit(float64(d1)) == math.Signbit(float64(d2)) {
		return geom.Vec3{}, false
	}
	return v1.Add(v2.Sub(v1).Scale(d1 / (d1 - d2))), true
}

func (rt *Runtime) flyPathValid(_ *obstacle.Snapshot, _ int, origin geom.Vec3, _ int, goal geom.Vec3, _ aasfile.TravelFlags) (PathEnd, bool) {
	tr := rt.Trace(origin, goal, TraceOptions{})
	return PathEnd{Pos: tr.EndPos, Area: tr.LastArea}, !tr.Blocked()
}

func absNum(v int32) int {
	if v < 0 {
		return int(-v)
	}
	return int(v)
}

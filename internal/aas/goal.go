package aas

import (
	"container/heap"
	"errors"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
)

// ErrNoGoalTester is returned by FindNearestGoal when no tester is given.
var ErrNoGoalTester = errors.New("nil goal tester")

// GoalTester decides whether an area is an acceptable goal, for example one
// that gives cover from a target.
type GoalTester interface {
	TestArea(rt *Runtime, areaNum int) bool
}

// GoalFunc adapts a function to GoalTester.
type GoalFunc func(rt *Runtime, areaNum int) bool

// TestArea calls f.
func (f GoalFunc) TestArea(rt *Runtime, areaNum int) bool { return f(rt, areaNum) }

// Goal is a place to move to.
type Goal struct {
	Area   int
	Origin geom.Vec3
}

// approachPenalty scales the cost of links that bring the searcher closer to
// the target it is moving away from.
const approachPenalty = 10

type goalItem struct {
	area  int
	start geom.Vec3
	time  int32
}

type goalHeap []goalItem

func (h goalHeap) Len() int { return len(h) }
func (h goalHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].area < h[j].area
}
func (h goalHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *goalHeap) Push(x any)   { *h = append(*h, x.(goalItem)) }
func (h *goalHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// FindNearestGoal searches outward from areaNum for the closest area the
// tester accepts. Links that move towards target cost extra, links whose
// movement crosses any obstacle box are skipped, and ledge areas are never
// chosen. The first area itself is returned with origin when it passes.
func (rt *Runtime) FindNearestGoal(areaNum int, origin, target geom.Vec3, flags aasfile.TravelFlags, obstacles []geom.Bounds, tester GoalTester) (Goal, bool, error) {
	if err := rt.checkArea("find nearest goal", areaNum); err != nil {
		return Goal{}, false, err
	}
	if fn, ok := tester.(GoalFunc); tester == nil || ok && fn == nil {
		return Goal{}, false, ErrNoGoalTester
	}
	if tester.TestArea(rt, areaNum) {
		return Goal{Area: areaNum, Origin: origin}, true, nil
	}

	box := rt.file.Settings().BoundingBox
	expanded := make([]geom.Bounds, len(obstacles))
	for i, o := range obstacles {
		expanded[i] = o.ExpandBy(box)
	}

	snap := rt.tracker.Snapshot()
	targetDist := target.Sub(origin).Length()
	best := make([]int32, rt.file.NumAreas())
	bestArea, bestTime := 0, int32(0)

	h := &goalHeap{{area: areaNum, start: origin}}
	for h.Len() > 0 {
		cur := heap.Pop(h).(goalItem)
		if bestArea != 0 && cur.time >= bestTime {
			break
		}
		for ri := range rt.graph.NeighborsOf(cur.area) {
			link := rt.graph.Reach(ri)
			if link.Flag&flags == 0 || snap.IsReachDisabled(ri) || snap.IsBlocked(link.To) {
				continue
			}
			next := rt.file.Area(link.To)
			if next.TravelFlags&^flags != 0 {
				continue
			}

			t := cur.time + rt.graph.AreaTravelTime(cur.area, cur.start, link.Start) + link.Time
			if d := closestApproach(cur.start, link.End, target); d < targetDist {
				t += int32((targetDist - d) * approachPenalty)
			}
			if bestArea != 0 && t >= bestTime {
				continue
			}
			if best[link.To] != 0 && t >= best[link.To] {
				continue
			}
			if crossesAny(expanded, cur.start, link.End) {
				continue
			}
			best[link.To] = t

			through := t
			if flags&aasfile.TFLFly == 0 && next.Flags&aasfile.AreaLedge != 0 {
				through += rt.router.LedgePenalty()
			}
			heap.Push(h, goalItem{area: link.To, start: link.End, time: through})

			if next.Flags&aasfile.AreaLedge != 0 {
				continue
			}
			t += rt.graph.AreaTravelTime(link.To, link.End, next.Center)
			if (bestArea == 0 || t < bestTime) && tester.TestArea(rt, link.To) {
				bestArea, bestTime = link.To, t
			}
		}
	}

	if bestArea == 0 {
		return Goal{}, false, nil
	}
	return Goal{Area: bestArea, Origin: rt.file.Area(bestArea).Center}, true, nil
}

// closestApproach is the distance from target to the segment start→end.
func closestApproach(start, end, target geom.Vec3) float32 {
	d := end.Sub(start)
	l2 := d.Dot(d)
	if l2 == 0 {
		return target.Sub(start).Length()
	}
	s := target.Sub(start).Dot(d) / l2
	s = min(max(s, 0), 1)
	return target.Sub(start.Add(d.Scale(s))).Length()
}

func crossesAny(boxes []geom.Bounds, start, end geom.Vec3) bool {
	for _, b := range boxes {
		if b.LineIntersection(start, end) {
			return true
		}
	}
	return false
}

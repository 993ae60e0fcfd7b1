package aas

import (
	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/obstacle"
)

// SetAreaBlocked blocks or unblocks one area for routing.
func (rt *Runtime) SetAreaBlocked(areaNum int, blocked bool) error {
	if err := rt.checkArea("set area blocked", areaNum); err != nil {
		return err
	}
	return rt.tracker.SetAreaBlocked(areaNum, blocked)
}

// IsAreaBlocked reports whether an area is currently blocked.
func (rt *Runtime) IsAreaBlocked(areaNum int) bool {
	return rt.graph.ValidArea(areaNum) && rt.tracker.IsBlocked(areaNum)
}

// BlockAreaForBounds blocks every area a large entity occupying b touches.
func (rt *Runtime) BlockAreaForBounds(b geom.Bounds) []int {
	return rt.tracker.BlockAreaForBounds(b)
}

// UnblockAreaForBounds reverses BlockAreaForBounds.
func (rt *Runtime) UnblockAreaForBounds(b geom.Bounds) []int {
	return rt.tracker.UnblockAreaForBounds(b)
}

// SetAreaState blocks or unblocks the areas in b with matching contents and
// reports whether there were any.
func (rt *Runtime) SetAreaState(b geom.Bounds, contents aasfile.AreaContents, blocked bool) bool {
	return rt.tracker.SetAreaState(b, contents, blocked)
}

// AddObstacle disables the links an obstacle in b stands on.
func (rt *Runtime) AddObstacle(b geom.Bounds) obstacle.Handle {
	return rt.tracker.AddObstacle(b)
}

// RemoveObstacle removes one obstacle.
func (rt *Runtime) RemoveObstacle(h obstacle.Handle) bool {
	return rt.tracker.RemoveObstacle(h)
}

// RemoveAllObstacles removes every obstacle.
func (rt *Runtime) RemoveAllObstacles() {
	rt.tracker.RemoveAllObstacles()
}

// InvalidateCollision forces every link validation to be redone, for when
// the collision world changed.
func (rt *Runtime) InvalidateCollision() {
	rt.tracker.Invalidate()
}

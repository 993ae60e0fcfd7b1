package collision

import (
	"slices"
	"sync"

	"github.com/udisondev/aasnav/internal/geom"
)

// Brush is an axis-aligned volume with contents.
type Brush struct {
	Bounds   geom.Bounds
	Contents Contents
	// Entity owns the brush (doors, movers); NoEntity for world geometry.
	Entity int
}

// BoxWorld answers collision queries against a list of box brushes.
// Safe for concurrent use.
type BoxWorld struct {
	mu      sync.RWMutex
	brushes []Brush
}

// NewBoxWorld creates a world from the given brushes.
func NewBoxWorld(brushes ...Brush) *BoxWorld {
	return &BoxWorld{brushes: slices.Clone(brushes)}
}

// AddBrush inserts a brush.
func (w *BoxWorld) AddBrush(b Brush) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.brushes = append(w.brushes, b)
}

// RemoveEntity removes every brush owned by entity and returns how many.
func (w *BoxWorld) RemoveEntity(entity int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.brushes)
	w.brushes = slices.DeleteFunc(w.brushes, func(b Brush) bool { return b.Entity == entity })
	return n - len(w.brushes)
}

// NumBrushes returns the brush count.
func (w *BoxWorld) NumBrushes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.brushes)
}

// ContentsAt ORs the contents of all brushes containing p.
func (w *BoxWorld) ContentsAt(p geom.Vec3) Contents {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var c Contents
	for _, b := range w.brushes {
		if b.Bounds.ContainsPoint(p) {
			c |= b.Contents
		}
	}
	return c
}

// TraceBounds sweeps bounds from start to end against blocking brushes.
// The earliest hit wins; equal fractions resolve to the first brush added.
func (w *BoxWorld) TraceBounds(start, end geom.Vec3, bounds geom.Bounds) Trace {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tr := Trace{Fraction: 1, EndPos: end, BlockingEntity: NoEntity}
	for _, b := range w.brushes {
		if b.Contents&MaskBlocking == 0 {
			continue
		}
		// Sweeping a box against a box is a ray against their Minkowski sum.
		frac, normal, startSolid, ok := sweep(b.Bounds.ExpandBy(bounds), start, end)
		if !ok {
			continue
		}
		if startSolid {
			return Trace{Fraction: 0, EndPos: start, StartSolid: true, BlockingEntity: b.Entity}
		}
		if frac < tr.Fraction {
			tr = Trace{Fraction: frac, HitNormal: normal, BlockingEntity: b.Entity}
		}
	}
	if tr.Hit() {
		tr.EndPos = start.Lerp(end, tr.Fraction)
	}
	return tr
}

// sweep clips start→end against box and returns the entry fraction and the
// normal of the face entered. Touching a face without entering is not a hit.
func sweep(box geom.Bounds, start, end geom.Vec3) (float32, geom.Vec3, bool, bool) {
	if interior(box, start) {
		return 0, geom.Vec3{}, true, true
	}

	tMin, tMax := float32(-1), float32(1)
	var normal geom.Vec3
	dir := end.Sub(start)
	for i := range 3 {
		s, d := start.Axis(i), dir.Axis(i)
		lo, hi := box.Mins.Axis(i), box.Maxs.Axis(i)
		if d == 0 {
			if s <= lo || s >= hi {
				return 0, geom.Vec3{}, false, false
			}
			continue
		}
		t1, t2 := (lo-s)/d, (hi-s)/d
		n := geom.Vec3{}.WithAxis(i, -1)
		if t1 > t2 {
			t1, t2 = t2, t1
			n = geom.Vec3{}.WithAxis(i, 1)
		}
		if t1 > tMin {
			tMin = t1
			normal = n
		}
		tMax = min(tMax, t2)
		if tMin >= tMax {
			return 0, geom.Vec3{}, false, false
		}
	}
	if tMin < 0 || tMin >= 1 {
		return 0, geom.Vec3{}, false, false
	}
	return tMin, normal, false, true
}

// interior reports whether p is strictly inside box.
func interior(box geom.Bounds, p geom.Vec3) bool {
	return p.X > box.Mins.X && p.X < box.Maxs.X &&
		p.Y > box.Mins.Y && p.Y < box.Maxs.Y &&
		p.Z > box.Mins.Z && p.Z < box.Maxs.Z
}

package geom

import "math"

// Bounds is an axis-aligned box. A cleared box has Mins > Maxs.
type Bounds struct {
	Mins, Maxs Vec3
}

// B builds bounds from two corners.
func B(mins, maxs Vec3) Bounds {
	return Bounds{Mins: mins, Maxs: maxs}
}

// EmptyBounds returns a cleared box that any AddPoint will initialise.
func EmptyBounds() Bounds {
	const inf = math.MaxFloat32
	return Bounds{
		Mins: Vec3{inf, inf, inf},
		Maxs: Vec3{-inf, -inf, -inf},
	}
}

// IsCleared reports whether no point has been added.
func (b Bounds) IsCleared() bool {
	return b.Mins.X > b.Maxs.X
}

// AddPoint grows b to include p.
func (b Bounds) AddPoint(p Vec3) Bounds {
	b.Mins.X = min(b.Mins.X, p.X)
	b.Mins.Y = min(b.Mins.Y, p.Y)
	b.Mins.Z = min(b.Mins.Z, p.Z)
	b.Maxs.X = max(b.Maxs.X, p.X)
	b.Maxs.Y = max(b.Maxs.Y, p.Y)
	b.Maxs.Z = max(b.Maxs.Z, p.Z)
	return b
}

// Union grows b to include o.
func (b Bounds) Union(o Bounds) Bounds {
	if o.IsCleared() {
		return b
	}
	return b.AddPoint(o.Mins).AddPoint(o.Maxs)
}

// Center returns the midpoint.
func (b Bounds) Center() Vec3 {
	return b.Mins.Add(b.Maxs).Scale(0.5)
}

// Size returns Maxs - Mins.
func (b Bounds) Size() Vec3 {
	return b.Maxs.Sub(b.Mins)
}

// Translate moves the box by d.
func (b Bounds) Translate(d Vec3) Bounds {
	return Bounds{Mins: b.Mins.Add(d), Maxs: b.Maxs.Add(d)}
}

// Expand grows the box by d on every side.
func (b Bounds) Expand(d float32) Bounds {
	e := Vec3{d, d, d}
	return Bounds{Mins: b.Mins.Sub(e), Maxs: b.Maxs.Add(e)}
}

// ExpandBy returns the Minkowski sum of b and box: the set of origins at which
// an object with extents box touches b.
func (b Bounds) ExpandBy(box Bounds) Bounds {
	return Bounds{Mins: b.Mins.Sub(box.Maxs), Maxs: b.Maxs.Sub(box.Mins)}
}

// ContainsPoint reports whether p lies inside or on the box.
func (b Bounds) ContainsPoint(p Vec3) bool {
	return p.X >= b.Mins.X && p.X <= b.Maxs.X &&
		p.Y >= b.Mins.Y && p.Y <= b.Maxs.Y &&
		p.Z >= b.Mins.Z && p.Z <= b.Maxs.Z
}

// ContainsBounds reports whether o fits inside b.
func (b Bounds) ContainsBounds(o Bounds) bool {
	return b.ContainsPoint(o.Mins) && b.ContainsPoint(o.Maxs)
}

// Intersects reports whether the boxes overlap or touch.
func (b Bounds) Intersects(o Bounds) bool {
	return b.Mins.X <= o.Maxs.X && b.Maxs.X >= o.Mins.X &&
		b.Mins.Y <= o.Maxs.Y && b.Maxs.Y >= o.Mins.Y &&
		b.Mins.Z <= o.Maxs.Z && b.Maxs.Z >= o.Mins.Z
}

// DistanceToPoint returns 0 inside the box, else the distance to its surface.
func (b Bounds) DistanceToPoint(p Vec3) float32 {
	var d Vec3
	for i := range 3 {
		v := p.Axis(i)
		switch {
		case v < b.Mins.Axis(i):
			d = d.WithAxis(i, b.Mins.Axis(i)-v)
		case v > b.Maxs.Axis(i):
			d = d.WithAxis(i, v-b.Maxs.Axis(i))
		}
	}
	return d.Length()
}

// RayIntersection clips the segment start→end against the box using the slab
// method. It returns the entry fraction in [0,1] and whether the segment hits.
func (b Bounds) RayIntersection(start, end Vec3) (float32, bool) {
	tMin, tMax := float32(0), float32(1)
	dir := end.Sub(start)
	for i := range 3 {
		s := start.Axis(i)
		d := dir.Axis(i)
		lo, hi := b.Mins.Axis(i), b.Maxs.Axis(i)
		if d == 0 {
			if s < lo || s > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - s) / d
		t2 := (hi - s) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// LineIntersection reports whether the segment start→end touches the box.
func (b Bounds) LineIntersection(start, end Vec3) bool {
	_, ok := b.RayIntersection(start, end)
	return ok
}

// IsValid reports whether both corners are finite and Mins <= Maxs on every
// axis.
func (b Bounds) IsValid() bool {
	return b.Mins.IsFinite() && b.Maxs.IsFinite() &&
		b.Mins.X <= b.Maxs.X && b.Mins.Y <= b.Maxs.Y && b.Mins.Z <= b.Maxs.Z
}

// InWorld reports whether b is valid and lies within ±MaxWorldCoord.
func (b Bounds) InWorld() bool {
	w := B(V(-MaxWorldCoord, -MaxWorldCoord, -MaxWorldCoord), V(MaxWorldCoord, MaxWorldCoord, MaxWorldCoord))
	return b.IsValid() && w.ContainsBounds(b)
}

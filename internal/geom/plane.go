package geom

import "github.com/go-gl/mathgl/mgl32"

// Epsilons shared by containment and tracing code.
const (
	OnEpsilon           = 0.1
	TracePlaneEpsilon   = 0.125
	DefaultPointEpsilon = 0.125
)

// MaxWorldCoord bounds every coordinate a level may use.
const MaxWorldCoord = 128 * 1024

// Side of a plane.
type Side int

const (
	SideFront Side = iota
	SideBack
	SideOn
	SideCross
)

// Plane is normal·p = Dist.
type Plane struct {
	Normal Vec3
	Dist   float32
}

// PlaneFromPoint builds the plane with the given normal through p.
func PlaneFromPoint(normal, p Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Dist: n.Dot(p)}
}

// IsFinite reports whether the normal and distance are usable numbers.
func (pl Plane) IsFinite() bool {
	return pl.Normal.IsFinite() && finite(pl.Dist)
}

// Distance is the signed distance of p from the plane.
func (pl Plane) Distance(p Vec3) float32 {
	return pl.Normal.Dot(p) - pl.Dist
}

// Flip returns the plane facing the other way.
func (pl Plane) Flip() Plane {
	return Plane{Normal: pl.Normal.Scale(-1), Dist: -pl.Dist}
}

// Side classifies p against the plane with eps tolerance.
func (pl Plane) Side(p Vec3, eps float32) Side {
	d := pl.Distance(p)
	switch {
	case d > eps:
		return SideFront
	case d < -eps:
		return SideBack
	default:
		return SideOn
	}
}

// BoundsSide classifies a box against the plane.
func (pl Plane) BoundsSide(b Bounds, eps float32) Side {
	c := b.Center()
	ext := b.Maxs.Sub(c)
	r := mgl32.Abs(pl.Normal.X)*ext.X + mgl32.Abs(pl.Normal.Y)*ext.Y + mgl32.Abs(pl.Normal.Z)*ext.Z
	d := pl.Distance(c)
	switch {
	case d-r > eps:
		return SideFront
	case d+r < -eps:
		return SideBack
	default:
		return SideCross
	}
}

// Project moves p onto the plane.
func (pl Plane) Project(p Vec3) Vec3 {
	return p.Sub(pl.Normal.Scale(pl.Distance(p)))
}

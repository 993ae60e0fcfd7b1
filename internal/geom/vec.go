package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is a point or direction in world space. The arithmetic is mgl32's;
// the named fields keep file records and call sites readable.
type Vec3 struct {
	X, Y, Z float32
}

// Origin is the zero vector.
var Origin = Vec3{}

// V is shorthand for Vec3{x, y, z}.
func V(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// FromGL converts an mgl32 vector.
func FromGL(v mgl32.Vec3) Vec3 {
	return Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// GL returns a as an mgl32 vector.
func (a Vec3) GL() mgl32.Vec3 {
	return mgl32.Vec3{a.X, a.Y, a.Z}
}

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 {
	return FromGL(a.GL().Add(b.GL()))
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return FromGL(a.GL().Sub(b.GL()))
}

// Scale returns a * s.
func (a Vec3) Scale(s float32) Vec3 {
	return FromGL(a.GL().Mul(s))
}

// Dot returns the scalar product.
func (a Vec3) Dot(b Vec3) float32 {
	return a.GL().Dot(b.GL())
}

// Cross returns the right-handed vector product a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return FromGL(a.GL().Cross(b.GL()))
}

// Length returns the Euclidean length.
func (a Vec3) Length() float32 {
	return a.GL().Len()
}

// Length2D returns the length of the XY projection.
func (a Vec3) Length2D() float32 {
	return float32(math.Hypot(float64(a.X), float64(a.Y)))
}

// Normalize returns the unit vector in the direction of a.
// The zero vector is returned unchanged.
func (a Vec3) Normalize() Vec3 {
	if a == Origin {
		return a
	}
	return FromGL(a.GL().Normalize())
}

// Lerp returns a + (b-a)*t.
func (a Vec3) Lerp(b Vec3, t float32) Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

// Axis returns the component selected by i (0=X, 1=Y, 2=Z).
func (a Vec3) Axis(i int) float32 {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

// WithAxis returns a copy of a with component i replaced.
func (a Vec3) WithAxis(i int, v float32) Vec3 {
	switch i {
	case 0:
		a.X = v
	case 1:
		a.Y = v
	default:
		a.Z = v
	}
	return a
}

// NearlyEqual compares component-wise within eps.
func (a Vec3) NearlyEqual(b Vec3, eps float32) bool {
	return mgl32.Abs(a.X-b.X) <= eps && mgl32.Abs(a.Y-b.Y) <= eps && mgl32.Abs(a.Z-b.Z) <= eps
}

// IsFinite reports whether no component is NaN or infinite.
func (a Vec3) IsFinite() bool {
	return finite(a.X) && finite(a.Y) && finite(a.Z)
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

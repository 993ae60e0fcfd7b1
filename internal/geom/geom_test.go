package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestBoundsAddPoint(t *testing.T) {
	b := EmptyBounds()
	assert.True(t, b.IsCleared())

	b = b.AddPoint(V(1, 2, 3)).AddPoint(V(-1, 5, 0))
	assert.False(t, b.IsCleared())
	assert.Equal(t, V(-1, 2, 0), b.Mins)
	assert.Equal(t, V(1, 5, 3), b.Maxs)
	assert.Equal(t, V(0, 3.5, 1.5), b.Center())
}

func TestBoundsIntersects(t *testing.T) {
	a := B(V(0, 0, 0), V(10, 10, 10))

	assert.True(t, a.Intersects(B(V(5, 5, 5), V(20, 20, 20))))
	assert.True(t, a.Intersects(B(V(10, 0, 0), V(20, 10, 10))), "touching faces intersect")
	assert.False(t, a.Intersects(B(V(11, 0, 0), V(20, 10, 10))))
}

func TestBoundsExpandBy(t *testing.T) {
	door := B(V(0, 0, 0), V(10, 10, 100))
	box := B(V(-16, -16, 0), V(16, 16, 72))

	exp := door.ExpandBy(box)
	assert.Equal(t, V(-16, -16, -72), exp.Mins)
	assert.Equal(t, V(26, 26, 100), exp.Maxs)
}

func TestBoundsRayIntersection(t *testing.T) {
	b := B(V(10, -5, -5), V(20, 5, 5))

	frac, ok := b.RayIntersection(V(0, 0, 0), V(40, 0, 0))
	assert.True(t, ok)
	assert.InDelta(t, 0.25, frac, 1e-6)

	_, ok = b.RayIntersection(V(0, 10, 0), V(40, 10, 0))
	assert.False(t, ok)

	_, ok = b.RayIntersection(V(0, 0, 0), V(5, 0, 0))
	assert.False(t, ok, "segment stops short of the box")

	frac, ok = b.RayIntersection(V(15, 0, 0), V(40, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, float32(0), frac, "start inside")
}

func TestBoundsDistanceToPoint(t *testing.T) {
	b := B(V(0, 0, 0), V(10, 10, 10))
	assert.Equal(t, float32(0), b.DistanceToPoint(V(5, 5, 5)))
	assert.InDelta(t, 5.0, b.DistanceToPoint(V(15, 5, 5)), 1e-6)
	assert.InDelta(t, 5.0, b.DistanceToPoint(V(13, 14, 5)), 1e-6)
}

func TestPlane(t *testing.T) {
	p := PlaneFromPoint(V(0, 0, 2), V(0, 0, 4))
	assert.Equal(t, V(0, 0, 1), p.Normal)
	assert.Equal(t, float32(4), p.Dist)

	assert.Equal(t, SideFront, p.Side(V(0, 0, 5), OnEpsilon))
	assert.Equal(t, SideBack, p.Side(V(0, 0, 3), OnEpsilon))
	assert.Equal(t, SideOn, p.Side(V(9, 9, 4.05), OnEpsilon))

	assert.Equal(t, V(3, 3, 4), p.Project(V(3, 3, 10)))
	assert.Equal(t, float32(-1), p.Flip().Distance(V(0, 0, 5)))

	assert.Equal(t, SideCross, p.BoundsSide(B(V(0, 0, 0), V(1, 1, 8)), OnEpsilon))
	assert.Equal(t, SideFront, p.BoundsSide(B(V(0, 0, 5), V(1, 1, 8)), OnEpsilon))
}

func TestVec(t *testing.T) {
	a := V(3, 4, 0)
	assert.Equal(t, float32(5), a.Length())
	assert.Equal(t, float32(5), a.Length2D())
	assert.InDelta(t, 1.0, a.Normalize().Length(), 1e-6)
	assert.Equal(t, V(0, 0, 1), V(1, 0, 0).Cross(V(0, 1, 0)))
	assert.Equal(t, V(1.5, 2, 0), Origin.Lerp(a, 0.5))
	assert.True(t, a.NearlyEqual(V(3.01, 3.99, 0), 0.02))
}

func TestVecMatchesGL(t *testing.T) {
	a, b := V(1, -2, 3), V(4, 0.5, -6)
	assert.Equal(t, FromGL(a.GL().Add(b.GL())), a.Add(b))
	assert.Equal(t, FromGL(a.GL().Cross(b.GL())), a.Cross(b))
	assert.Equal(t, a.GL().Dot(b.GL()), a.Dot(b))
	assert.Equal(t, mgl32.Vec3{1, -2, 3}, a.GL())
	assert.Equal(t, Origin, Origin.Normalize())
}

func TestValidity(t *testing.T) {
	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	tests := []struct {
		name string
		b    Bounds
		want bool
	}{
		{"box", B(V(0, 0, 0), V(1, 1, 1)), true},
		{"flat", B(V(0, 0, 0), V(1, 1, 0)), true},
		{"inverted", B(V(2, 0, 0), V(1, 1, 1)), false},
		{"inf", B(V(0, 0, 0), V(inf, 1, 1)), false},
		{"nan", B(V(0, nan, 0), V(1, 1, 1)), false},
		{"cleared", EmptyBounds(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.IsValid())
		})
	}

	assert.True(t, B(V(-100, -100, 0), V(100, 100, 50)).InWorld())
	assert.False(t, B(V(0, 0, 0), V(1e30, 1, 1)).InWorld())

	assert.True(t, Plane{Normal: V(0, 0, 1), Dist: 4}.IsFinite())
	assert.False(t, Plane{Normal: V(0, 0, 1), Dist: nan}.IsFinite())
	assert.False(t, Plane{Normal: V(inf, 0, 0)}.IsFinite())
}

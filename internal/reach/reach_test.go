package reach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/collision"
	"github.com/udisondev/aasnav/internal/geom"
)

// gapLevel is two floor areas separated by a 50 unit gap, linked by a jump
// and, for testing, by several other link types.
func gapLevel(t *testing.T, extra ...aasfile.ReachSpec) *aasfile.File {
	t.Helper()
	b := aasfile.NewBuilder()
	b.AddBox(geom.B(geom.V(0, 0, 0), geom.V(100, 100, 100)))
	b.AddBox(geom.B(geom.V(150, 0, 0), geom.V(250, 100, 100)))
	b.AddReach(aasfile.ReachSpec{
		From: 1, To: 2, Type: aasfile.TFLJump, Time: 40,
		Start: geom.V(100, 50, 0), End: geom.V(160, 50, 0),
	})
	for _, r := range extra {
		b.AddReach(r)
	}
	f, err := b.Build()
	require.NoError(t, err)
	return f
}

func floorWorld() *collision.BoxWorld {
	return collision.NewBoxWorld(
		collision.Brush{Bounds: geom.B(geom.V(0, 0, -16), geom.V(100, 100, 0)), Contents: collision.ContentsSolid, Entity: collision.NoEntity},
		collision.Brush{Bounds: geom.B(geom.V(150, 0, -16), geom.V(250, 100, 0)), Contents: collision.ContentsSolid, Entity: collision.NoEntity},
	)
}

func classifyOnly(t *testing.T, f *aasfile.File, i int) Classified {
	t.Helper()
	return NewClassifier(DefaultUncertainPenalty).Classify(f, i)
}

func TestClassify(t *testing.T) {
	f := gapLevel(t,
		aasfile.ReachSpec{From: 2, To: 1, Type: aasfile.TFLElevator, Time: 80, Name: "lift_west"},
		aasfile.ReachSpec{From: 2, To: 1, Type: aasfile.TFLCrouch, Time: 20},
		aasfile.ReachSpec{From: 2, To: 1, Type: aasfile.TFLWalk | aasfile.TFLJump, Time: 20},
		aasfile.ReachSpec{From: 2, To: 1, Type: 0, Time: 20},
	)
	all := NewClassifier(DefaultUncertainPenalty).ClassifyAll(f)
	require.Len(t, all, 5)

	jump := all[0]
	assert.Equal(t, Jump, jump.Type)
	assert.Equal(t, aasfile.TFLJump, jump.Flag)
	assert.Equal(t, int32(40), jump.Time)
	assert.IsType(t, JumpPayload{}, jump.Payload)
	assert.False(t, jump.Uncertain)

	lift := all[1]
	assert.Equal(t, Elevator, lift.Type)
	assert.Equal(t, EntityPayload{Name: "lift_west"}, lift.Payload)

	crouch := all[2]
	assert.Equal(t, Walk, crouch.Type)
	assert.Equal(t, aasfile.TFLCrouch, crouch.Flag)
	assert.False(t, crouch.Uncertain)

	for _, c := range all[3:] {
		assert.Equal(t, Walk, c.Type)
		assert.Equal(t, aasfile.TFLWalk, c.Flag)
		assert.True(t, c.Uncertain)
		assert.Equal(t, int32(20+DefaultUncertainPenalty), c.Time)
		assert.Equal(t, NoPayload{}, c.Payload)
	}
}

func TestTravelTypeFlag(t *testing.T) {
	for tt := Walk; tt <= Special; tt++ {
		got, ok := typeOf(tt.Flag())
		assert.True(t, ok, tt.String())
		assert.Equal(t, tt, got)
	}
	assert.Equal(t, "unknown", TravelType(200).String())
}

func TestIsTraversableJump(t *testing.T) {
	f := gapLevel(t)
	c := classifyOnly(t, f, 0)
	phys := DefaultPhysics(f.Settings())
	ctx := Context{Settings: f.Settings(), Adapter: floorWorld(), Target: f.Area(2).Bounds}

	assert.True(t, IsTraversable(c, phys, ctx))

	t.Run("low wall is cleared", func(t *testing.T) {
		w := floorWorld()
		w.AddBrush(collision.Brush{Bounds: geom.B(geom.V(125, 0, -100), geom.V(135, 100, 10)), Contents: collision.ContentsSolid})
		assert.True(t, IsTraversable(c, phys, Context{Settings: f.Settings(), Adapter: w, Target: f.Area(2).Bounds}))
	})

	t.Run("tall wall blocks", func(t *testing.T) {
		w := floorWorld()
		w.AddBrush(collision.Brush{Bounds: geom.B(geom.V(125, 0, -100), geom.V(135, 100, 200)), Contents: collision.ContentsSolid})
		assert.False(t, IsTraversable(c, phys, Context{Settings: f.Settings(), Adapter: w, Target: f.Area(2).Bounds}))
	})

	t.Run("weak jumper", func(t *testing.T) {
		weak := phys
		weak.RunSpeed = 50
		assert.False(t, IsTraversable(c, weak, ctx))
	})

	t.Run("landing outside target", func(t *testing.T) {
		far := ctx
		far.Target = geom.B(geom.V(300, 0, 0), geom.V(400, 100, 100))
		assert.False(t, IsTraversable(c, phys, far))
	})

	t.Run("stored velocity", func(t *testing.T) {
		stored := c
		stored.Payload = JumpPayload{Velocity: geom.V(122, 0, phys.JumpSpeed)}
		assert.True(t, IsTraversable(stored, phys, ctx))

		stored.Payload = JumpPayload{Velocity: geom.V(122, 0, phys.JumpSpeed*2)}
		assert.False(t, IsTraversable(stored, phys, ctx), "needs more jump speed than the entity has")
	})
}

func TestIsTraversableByType(t *testing.T) {
	f := gapLevel(t)
	s := f.Settings()
	phys := DefaultPhysics(s)
	wall := collision.NewBoxWorld(
		collision.Brush{Bounds: geom.B(geom.V(120, -100, -16), geom.V(130, 200, 300)), Contents: collision.ContentsSolid},
	)
	link := func(tt TravelType, start, end geom.Vec3, p Payload) Classified {
		return Classified{Type: tt, Start: start, End: end, Payload: p, To: 2}
	}

	tests := []struct {
		name    string
		c       Classified
		phys    func(p PhysicsInfo) PhysicsInfo
		adapter collision.Adapter
		want    bool
	}{
		{"walk", link(Walk, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}), nil, nil, true},
		{"walk through wall", link(Walk, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}), nil, wall, false},
		{"walk step too high", link(Walk, geom.V(50, 50, 0), geom.V(200, 50, 30), NoPayload{}), nil, nil, false},
		{"ledge", link(WalkOffLedge, geom.V(100, 50, 64), geom.V(120, 50, 0), NoPayload{}), nil, nil, true},
		{"ledge too deep", link(WalkOffLedge, geom.V(100, 50, 64), geom.V(120, 50, 0), NoPayload{}),
			func(p PhysicsInfo) PhysicsInfo { p.MaxFallHeight = 32; return p }, nil, false},
		{"barrier jump", link(BarrierJump, geom.V(50, 50, 0), geom.V(110, 50, 30), JumpPayload{}), nil, nil, true},
		{"barrier too high", link(BarrierJump, geom.V(50, 50, 0), geom.V(110, 50, 60), JumpPayload{}), nil, nil, false},
		{"water jump", link(WaterJump, geom.V(50, 50, 0), geom.V(110, 50, 18), JumpPayload{}), nil, nil, true},
		{"water jump non swimmer", link(WaterJump, geom.V(50, 50, 0), geom.V(110, 50, 18), JumpPayload{}),
			func(p PhysicsInfo) PhysicsInfo { p.CanSwim = false; return p }, nil, false},
		{"ladder", link(Ladder, geom.V(50, 50, 0), geom.V(50, 50, 200), NoPayload{}), nil, nil, true},
		{"swim", link(Swim, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}), nil, nil, true},
		{"fly needs flyer", link(Fly, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}), nil, nil, false},
		{"fly", link(Fly, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}),
			func(p PhysicsInfo) PhysicsInfo { p.CanFly = true; return p }, nil, true},
		{"elevator named", link(Elevator, geom.V(50, 50, 0), geom.V(200, 50, 0), EntityPayload{Name: "lift"}), nil, nil, true},
		{"elevator unnamed", link(Elevator, geom.V(50, 50, 0), geom.V(200, 50, 0), EntityPayload{}), nil, nil, false},
		{"teleport wrong payload", link(Teleport, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}), nil, nil, false},
		{"oversized entity", link(Walk, geom.V(50, 50, 0), geom.V(200, 50, 0), NoPayload{}),
			func(p PhysicsInfo) PhysicsInfo { p.Bounds = geom.B(geom.V(-40, -40, 0), geom.V(40, 40, 100)); return p }, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := phys
			if tt.phys != nil {
				p = tt.phys(p)
			}
			got := IsTraversable(tt.c, p, Context{Settings: s, Adapter: tt.adapter, Target: f.Area(2).Bounds})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBucket(t *testing.T) {
	s := aasfile.DefaultSettings()
	a := DefaultPhysics(s)
	b := DefaultPhysics(s)
	assert.Equal(t, a.Bucket(), b.Bucket())
	assert.NotEqual(t, NoValidation, a.Bucket())

	b.Bounds = geom.B(geom.V(-8, -8, 0), geom.V(8, 8, 40))
	assert.NotEqual(t, a.Bucket(), b.Bucket())

	// Differences below the quantum share a bucket.
	c := a
	c.MaxStepHeight += 0.5
	assert.Equal(t, a.Bucket(), c.Bucket())

	d := a
	d.CanFly = true
	assert.NotEqual(t, a.Bucket(), d.Bucket())

	// Gravity changes the jump arc, so it splits buckets too.
	e := a
	e.Gravity = a.Gravity / 2
	assert.NotEqual(t, a.Bucket(), e.Bucket())
	assert.NotEqual(t, d.Bucket(), e.Bucket())
	e.Gravity = a.Gravity + 10
	assert.Equal(t, a.Bucket(), e.Bucket())
}

func TestValidatorCaches(t *testing.T) {
	f := gapLevel(t)
	c := classifyOnly(t, f, 0)
	phys := DefaultPhysics(f.Settings())
	w := floorWorld()
	v := NewValidator(f, w)

	assert.True(t, v.Traversable(c, phys, 1))
	assert.True(t, v.Traversable(c, phys, 1))
	assert.Equal(t, int64(1), v.Checks())
	assert.Equal(t, 1, v.Len())

	// A wall appears; the cached answer holds until the generation moves.
	w.AddBrush(collision.Brush{Bounds: geom.B(geom.V(125, 0, -100), geom.V(135, 100, 200)), Contents: collision.ContentsSolid})
	assert.True(t, v.Traversable(c, phys, 1))
	assert.False(t, v.Traversable(c, phys, 2))
	assert.Equal(t, int64(2), v.Checks())

	small := phys
	small.Bounds = geom.B(geom.V(-8, -8, 0), geom.V(8, 8, 40))
	v.Traversable(c, small, 2)
	assert.Equal(t, 2, v.Len(), "one entry per size bucket")

	v.Reset()
	assert.Equal(t, 0, v.Len())
}

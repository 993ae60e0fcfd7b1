package reach

import (
	"math"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/collision"
	"github.com/udisondev/aasnav/internal/geom"
)

// Arc simulation parameters.
const (
	arcTimeStep = 0.05
	arcMaxSteps = 80
)

// Context carries what a traversal test needs besides the link itself.
type Context struct {
	Settings aasfile.Settings
	Adapter  collision.Adapter
	// Target is the bounds of the link's destination area.
	Target geom.Bounds
}

// IsTraversable re-validates a link for an entity against the collision
// model. It traces, so callers cache the result (see Validator).
func IsTraversable(c Classified, phys PhysicsInfo, ctx Context) bool {
	if !ctx.Settings.ValidForBounds(phys.Bounds) {
		return false
	}
	adapter := ctx.Adapter
	if adapter == nil {
		adapter = collision.Open
	}
	g := phys.gravity(ctx.Settings.GravityValue())
	rise := c.End.Z - c.Start.Z

	switch c.Type {
	case Walk:
		if rise > phys.MaxStepHeight {
			return false
		}
		step := geom.V(0, 0, phys.MaxStepHeight)
		return passable(adapter, c.Start.Add(step), c.End.Add(step), phys.Bounds)

	case WalkOffLedge:
		if -rise > phys.MaxFallHeight {
			return false
		}
		above := geom.V(c.End.X, c.End.Y, c.Start.Z)
		return passable(adapter, c.Start, above, phys.Bounds) &&
			passable(adapter, above, c.End, phys.Bounds)

	case BarrierJump:
		if rise > phys.JumpHeight(g) {
			return false
		}
		return climb(adapter, c.Start, c.End, phys.Bounds)

	case WaterJump:
		if !phys.CanSwim || rise > ctx.Settings.MaxWaterJumpHeight {
			return false
		}
		return climb(adapter, c.Start, c.End, phys.Bounds)

	case Jump:
		var v geom.Vec3
		if p, ok := c.Payload.(JumpPayload); ok {
			v = p.Velocity
		}
		return jumpArc(adapter, c, phys, v, g, ctx.Target)

	case Ladder:
		return passable(adapter, c.Start, c.End, phys.Bounds)

	case Swim:
		return phys.CanSwim && passable(adapter, c.Start, c.End, phys.Bounds)

	case Fly:
		return phys.CanFly && passable(adapter, c.Start, c.End, phys.Bounds)

	case Elevator, Teleport, Special:
		p, ok := c.Payload.(EntityPayload)
		return ok && p.Name != ""
	}
	return false
}

func passable(a collision.Adapter, start, end geom.Vec3, bounds geom.Bounds) bool {
	return !a.TraceBounds(start, end, bounds).Hit()
}

// climb goes straight up to the end height, then across.
func climb(a collision.Adapter, start, end geom.Vec3, bounds geom.Bounds) bool {
	top := geom.V(start.X, start.Y, max(start.Z, end.Z))
	return passable(a, start, top, bounds) && passable(a, top, end, bounds)
}

// jumpArc samples the ballistic path from Start and checks every segment and
// the landing point. A zero velocity is solved from the entity's jump speed.
func jumpArc(a collision.Adapter, c Classified, phys PhysicsInfo, v geom.Vec3, g float32, target geom.Bounds) bool {
	if g <= 0 {
		return false
	}
	if v == (geom.Vec3{}) {
		var ok bool
		v, ok = solveJump(c.Start, c.End, phys.JumpSpeed, g)
		if !ok {
			return false
		}
	}
	if phys.RunSpeed > 0 && v.Length2D() > phys.RunSpeed {
		return false
	}
	if v.Z > phys.JumpSpeed+0.5 {
		return false
	}

	pos := c.Start
	for i := 1; i <= arcMaxSteps; i++ {
		t := float32(i) * arcTimeStep
		next := geom.V(
			c.Start.X+v.X*t,
			c.Start.Y+v.Y*t,
			c.Start.Z+v.Z*t-0.5*g*t*t,
		)
		descending := v.Z-g*t < 0
		if descending && next.Z <= c.End.Z {
			// Clip the last segment to the landing height.
			frac := (pos.Z - c.End.Z) / (pos.Z - next.Z)
			land := pos.Lerp(next, frac)
			land.Z = c.End.Z
			if !passable(a, pos, land, phys.Bounds) {
				return false
			}
			return landsIn(land, target, phys.MaxStepHeight)
		}
		if !passable(a, pos, next, phys.Bounds) {
			return false
		}
		pos = next
	}
	return false
}

// solveJump finds the take-off velocity that lands on end using the full
// vertical jump speed.
func solveJump(start, end geom.Vec3, jumpSpeed, g float32) (geom.Vec3, bool) {
	dz := float64(end.Z - start.Z)
	vz := float64(jumpSpeed)
	disc := vz*vz - 2*float64(g)*dz
	if disc < 0 {
		return geom.Vec3{}, false
	}
	t := (vz + math.Sqrt(disc)) / float64(g)
	if t <= 0 {
		return geom.Vec3{}, false
	}
	dx := float64(end.X - start.X)
	dy := float64(end.Y - start.Y)
	return geom.V(float32(dx/t), float32(dy/t), jumpSpeed), true
}

// landsIn reports whether p is over the target's XY rectangle and within
// tolerance of its floor span.
func landsIn(p geom.Vec3, target geom.Bounds, tolerance float32) bool {
	return p.X >= target.Mins.X && p.X <= target.Maxs.X &&
		p.Y >= target.Mins.Y && p.Y <= target.Maxs.Y &&
		p.Z >= target.Mins.Z-tolerance && p.Z <= target.Maxs.Z+tolerance
}

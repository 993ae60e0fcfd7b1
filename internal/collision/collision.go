// Package collision defines the queries navigation needs from the game's
// collision model and a box-brush reference world that answers them.
package collision

import "github.com/udisondev/aasnav/internal/geom"

// Contents is a bitmask of what occupies a point.
type Contents uint32

const (
	ContentsEmpty       Contents = 0
	ContentsSolid       Contents = 1 << 0
	ContentsWater       Contents = 1 << 1
	ContentsLadder      Contents = 1 << 2
	ContentsMonsterClip Contents = 1 << 3
	ContentsMover       Contents = 1 << 4
)

// MaskBlocking is the set of contents a moving AI collides with.
const MaskBlocking = ContentsSolid | ContentsMonsterClip | ContentsMover

// NoEntity is the BlockingEntity of a trace that hit world geometry or nothing.
const NoEntity = -1

// Trace is the result of sweeping a box from start to end.
type Trace struct {
	// Fraction of the move completed, 1 when nothing was hit.
	Fraction   float32
	EndPos     geom.Vec3
	HitNormal  geom.Vec3
	StartSolid bool
	// BlockingEntity is the entity that stopped the move, or NoEntity.
	BlockingEntity int
}

// Hit reports whether the move was stopped.
func (t Trace) Hit() bool {
	return t.Fraction < 1
}

// Adapter is the collision model as seen by navigation. Implementations must
// be deterministic and safe for concurrent use.
type Adapter interface {
	// TraceBounds sweeps bounds, relative to the moving origin, from start to end.
	TraceBounds(start, end geom.Vec3, bounds geom.Bounds) Trace
	// ContentsAt returns the contents at p.
	ContentsAt(p geom.Vec3) Contents
}

// Open is an Adapter with no geometry: every trace completes.
var Open Adapter = openWorld{}

type openWorld struct{}

func (openWorld) TraceBounds(_, end geom.Vec3, _ geom.Bounds) Trace {
	return Trace{Fraction: 1, EndPos: end, BlockingEntity: NoEntity}
}

func (openWorld) ContentsAt(geom.Vec3) Contents {
	return ContentsEmpty
}

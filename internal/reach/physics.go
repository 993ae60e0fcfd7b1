package reach

import (
	"math"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
)

// PhysicsInfo describes what an entity can do when following a link.
type PhysicsInfo struct {
	Bounds        geom.Bounds
	MaxStepHeight float32
	MaxFallHeight float32
	// JumpSpeed is the vertical take-off speed.
	JumpSpeed float32
	// RunSpeed caps the horizontal speed of a jump; zero means unlimited.
	RunSpeed float32
	// Gravity is a magnitude; zero uses the file's gravity.
	Gravity float32
	CanSwim bool
	CanFly  bool
}

// DefaultPhysics returns the abilities the file was baked for.
func DefaultPhysics(s aasfile.Settings) PhysicsInfo {
	g := s.GravityValue()
	// Enough vertical speed to clear the barrier height.
	jump := float32(math.Sqrt(float64(2 * g * s.MaxBarrierHeight)))
	return PhysicsInfo{
		Bounds:        s.BoundingBox,
		MaxStepHeight: s.MaxStepHeight,
		MaxFallHeight: s.MaxFallHeight,
		JumpSpeed:     jump,
		RunSpeed:      320,
		Gravity:       g,
		CanSwim:       true,
	}
}

// JumpHeight is the apex height reachable with JumpSpeed.
func (p PhysicsInfo) JumpHeight(fileGravity float32) float32 {
	g := p.gravity(fileGravity)
	if g <= 0 {
		return 0
	}
	return p.JumpSpeed * p.JumpSpeed / (2 * g)
}

func (p PhysicsInfo) gravity(fileGravity float32) float32 {
	if p.Gravity > 0 {
		return p.Gravity
	}
	return fileGravity
}

// SizeBucket quantizes PhysicsInfo so entities of similar size and ability
// share validation results. The zero bucket means "do not validate".
type SizeBucket uint64

// NoValidation skips per-entity re-validation of links.
const NoValidation SizeBucket = 0

const bucketValid SizeBucket = 1 << 63

// Bucket returns the size bucket of p. A zero Gravity stays distinct from an
// explicit one even when they resolve to the same value.
func (p PhysicsInfo) Bucket() SizeBucket {
	size := p.Bounds.Size()
	b := bucketValid
	b |= quant(size.X, 8) << 0
	b |= quant(size.Y, 8) << 8
	b |= quant(size.Z, 8) << 16
	b |= quant(p.MaxStepHeight, 4) << 24
	b |= quant(p.MaxFallHeight, 16) << 32
	b |= quant(p.JumpSpeed, 32) << 40
	b |= quant(p.RunSpeed, 64) << 48
	if p.CanSwim {
		b |= 1 << 56
	}
	if p.CanFly {
		b |= 1 << 57
	}
	b |= min(quant(p.Gravity, 64), 31) << 58
	return b
}

// quant rounds v up to a multiple of step and returns the multiple, capped
// at 255.
func quant(v, step float32) SizeBucket {
	if v <= 0 {
		return 0
	}
	q := math.Ceil(float64(v / step))
	return SizeBucket(min(q, 255))
}

package aasfile

import "github.com/udisondev/aasnav/internal/geom"

// Settings are the bake-time physics parameters stored in the header.
type Settings struct {
	// BoundingBox is the collision box of the AI the file was built for.
	BoundingBox        geom.Bounds
	Gravity            geom.Vec3
	MaxStepHeight      float32
	MaxBarrierHeight   float32
	MaxWaterJumpHeight float32
	MaxFallHeight      float32
	MinFloorCos        float32

	// Fixed travel times.
	TTBarrierJump       uint16
	TTStartCrouching    uint16
	TTWaterJump         uint16
	TTStartWalkOffLedge uint16
}

// DefaultSettings mirrors the monster defaults of the map compiler.
func DefaultSettings() Settings {
	return Settings{
		BoundingBox:         geom.B(geom.V(-16, -16, 0), geom.V(16, 16, 72)),
		Gravity:             geom.V(0, 0, -1066),
		MaxStepHeight:       14,
		MaxBarrierHeight:    32,
		MaxWaterJumpHeight:  20,
		MaxFallHeight:       64,
		MinFloorCos:         0.7,
		TTBarrierJump:       100,
		TTStartCrouching:    100,
		TTWaterJump:         100,
		TTStartWalkOffLedge: 100,
	}
}

// GravityValue is the magnitude of the gravity vector.
func (s Settings) GravityValue() float32 {
	return s.Gravity.Length()
}

// ValidForBounds reports whether an entity with the given bounds fits the
// box the file was built for.
func (s Settings) ValidForBounds(b geom.Bounds) bool {
	return s.BoundingBox.ContainsBounds(b)
}

// Edge connects two vertices and records the areas on either side.
type Edge struct {
	VertexNum [2]int32
	Areas     [2]int32
}

// Face is a convex boundary polygon on a plane.
type Face struct {
	PlaneNum  int32
	Flags     FaceFlags
	NumEdges  int32
	FirstEdge int32
	Areas     [2]int32 // front and back
}

// Area is a convex navigable region.
type Area struct {
	NumFaces  int32
	FirstFace int32
	Bounds    geom.Bounds
	// Center is the point an AI can move towards.
	Center   geom.Vec3
	Flags    AreaFlags
	Contents AreaContents
	// Cluster is positive for a cluster number, negative for -portalNum.
	Cluster        int32
	ClusterAreaNum int32
	TravelFlags    TravelFlags
	FirstReach     int32
	NumReach       int32
}

// IsPortal reports whether the area is a cluster portal.
func (a Area) IsPortal() bool {
	return a.Cluster < 0
}

// Reachability is a directed edge of the navigation graph.
type Reachability struct {
	TravelType TravelFlags
	FromArea   int32
	ToArea     int32
	Start      geom.Vec3
	End        geom.Vec3
	EdgeNum    int32
	TravelTime uint16

	// Payload, present from VersionCurrent on.
	JumpVelocity geom.Vec3
	NameOffset   int32
}

// Portal is an area that joins two clusters.
type Portal struct {
	AreaNum        int32
	Clusters       [2]int32
	ClusterAreaNum [2]int32
}

// Cluster is a partition of areas routed densely.
type Cluster struct {
	NumAreas          int32
	NumReachableAreas int32
	NumPortals        int32
	FirstPortal       int32
}

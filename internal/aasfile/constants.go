package aasfile

// File identification.
const (
	Magic = "DewmAAS\x00"

	// VersionCurrent stores a typed payload (jump velocity, entity name) per reachability.
	VersionCurrent uint32 = 108
	// VersionNoPayload has stored travel types but no payload.
	VersionNoPayload uint32 = 107
	// VersionOldest is the first version of the binary layout. Versions below
	// VersionNoPayload predate stored travel types and are rejected.
	VersionOldest uint32 = 100
)

// Record sizes in bytes.
const (
	headerSize         = 8 + 4 + 4 + settingsSize + 12*4
	settingsSize       = 6*4 + 3*4 + 5*4 + 4*2
	planeSize          = 16
	vertexSize         = 12
	edgeSize           = 16
	indexSize          = 4
	faceSize           = 24
	areaSize           = 68
	reachSizeNoPayload = 42
	reachSizePayload   = reachSizeNoPayload + 16
	portalSize         = 20
	clusterSize        = 16
)

// TravelFlags is a bitmask of movement modes.
type TravelFlags uint32

const (
	TFLInvalid      TravelFlags = 1 << 0
	TFLWalk         TravelFlags = 1 << 1
	TFLCrouch       TravelFlags = 1 << 2
	TFLWalkOffLedge TravelFlags = 1 << 3
	TFLBarrierJump  TravelFlags = 1 << 4
	TFLJump         TravelFlags = 1 << 5
	TFLLadder       TravelFlags = 1 << 6
	TFLSwim         TravelFlags = 1 << 7
	TFLWaterJump    TravelFlags = 1 << 8
	TFLTeleport     TravelFlags = 1 << 9
	TFLElevator     TravelFlags = 1 << 10
	TFLFly          TravelFlags = 1 << 11
	TFLSpecial      TravelFlags = 1 << 12
	TFLWater        TravelFlags = 1 << 21
	TFLAir          TravelFlags = 1 << 22
)

// Common travel flag sets used by AI callers.
const (
	TFLDefaultWalk = TFLWalk | TFLCrouch | TFLWalkOffLedge | TFLBarrierJump |
		TFLJump | TFLLadder | TFLSwim | TFLWaterJump | TFLTeleport |
		TFLElevator | TFLSpecial | TFLWater | TFLAir
	TFLDefaultFly = TFLDefaultWalk | TFLFly
)

// Has reports whether all bits of o are set.
func (f TravelFlags) Has(o TravelFlags) bool {
	return f&o == o
}

// AreaFlags describe area properties.
type AreaFlags uint16

const (
	AreaFloor         AreaFlags = 1 << 0
	AreaGap           AreaFlags = 1 << 1
	AreaLedge         AreaFlags = 1 << 2
	AreaLadder        AreaFlags = 1 << 3
	AreaLiquid        AreaFlags = 1 << 4
	AreaCrouch        AreaFlags = 1 << 5
	AreaReachableWalk AreaFlags = 1 << 6
	AreaReachableFly  AreaFlags = 1 << 7
)

// AreaContents describe what occupies an area.
type AreaContents uint16

const (
	ContentsSolid         AreaContents = 1 << 0
	ContentsWater         AreaContents = 1 << 1
	ContentsClusterPortal AreaContents = 1 << 2
	ContentsObstacle      AreaContents = 1 << 3
	ContentsTeleporter    AreaContents = 1 << 4
)

// FaceFlags describe a boundary face.
type FaceFlags uint32

const (
	FaceSolid         FaceFlags = 1 << 0
	FaceLadder        FaceFlags = 1 << 1
	FaceFloor         FaceFlags = 1 << 2
	FaceLiquid        FaceFlags = 1 << 3
	FaceLiquidSurface FaceFlags = 1 << 4
)

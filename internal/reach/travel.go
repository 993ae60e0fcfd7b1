// Package reach classifies navigation reachabilities and re-validates them
// against a specific entity's size and movement abilities.
package reach

import (
	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
)

// TravelType is the movement used to follow a reachability.
type TravelType uint8

const (
	Walk TravelType = iota
	WalkOffLedge
	BarrierJump
	Jump
	Ladder
	Swim
	WaterJump
	Fly
	Elevator
	Teleport
	Special
)

var travelTypeNames = [...]string{
	Walk:         "walk",
	WalkOffLedge: "walk_off_ledge",
	BarrierJump:  "barrier_jump",
	Jump:         "jump",
	Ladder:       "ladder",
	Swim:         "swim",
	WaterJump:    "water_jump",
	Fly:          "fly",
	Elevator:     "elevator",
	Teleport:     "teleport",
	Special:      "special",
}

func (t TravelType) String() string {
	if int(t) < len(travelTypeNames) {
		return travelTypeNames[t]
	}
	return "unknown"
}

// Flag returns the travel flag bit of the type.
func (t TravelType) Flag() aasfile.TravelFlags {
	switch t {
	case Walk:
		return aasfile.TFLWalk
	case WalkOffLedge:
		return aasfile.TFLWalkOffLedge
	case BarrierJump:
		return aasfile.TFLBarrierJump
	case Jump:
		return aasfile.TFLJump
	case Ladder:
		return aasfile.TFLLadder
	case Swim:
		return aasfile.TFLSwim
	case WaterJump:
		return aasfile.TFLWaterJump
	case Fly:
		return aasfile.TFLFly
	case Elevator:
		return aasfile.TFLElevator
	case Teleport:
		return aasfile.TFLTeleport
	case Special:
		return aasfile.TFLSpecial
	}
	return aasfile.TFLInvalid
}

// typeOf maps a stored tag to a travel type. Crouch links are walked.
func typeOf(tag aasfile.TravelFlags) (TravelType, bool) {
	switch tag {
	case aasfile.TFLWalk, aasfile.TFLCrouch:
		return Walk, true
	case aasfile.TFLWalkOffLedge:
		return WalkOffLedge, true
	case aasfile.TFLBarrierJump:
		return BarrierJump, true
	case aasfile.TFLJump:
		return Jump, true
	case aasfile.TFLLadder:
		return Ladder, true
	case aasfile.TFLSwim:
		return Swim, true
	case aasfile.TFLWaterJump:
		return WaterJump, true
	case aasfile.TFLFly:
		return Fly, true
	case aasfile.TFLElevator:
		return Elevator, true
	case aasfile.TFLTeleport:
		return Teleport, true
	case aasfile.TFLSpecial:
		return Special, true
	}
	return Walk, false
}

// Payload is the type-specific data of a reachability.
type Payload interface {
	payload()
}

// NoPayload is carried by walk, ladder, swim and fly links.
type NoPayload struct{}

// JumpPayload is the take-off velocity of a jump. A zero velocity means the
// file did not store one and the arc is solved from the entity's jump speed.
type JumpPayload struct {
	Velocity geom.Vec3
}

// EntityPayload names the entity (elevator, teleporter, trigger) a link uses.
type EntityPayload struct {
	Name string
}

func (NoPayload) payload()     {}
func (JumpPayload) payload()   {}
func (EntityPayload) payload() {}

package reach

import (
	"log/slog"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
)

// DefaultUncertainPenalty is added to the travel time of links whose stored
// tag could not be mapped to a travel type.
const DefaultUncertainPenalty = 100

// Classified is a reachability with its travel type resolved.
type Classified struct {
	Index int
	Type  TravelType
	// Flag is the travel flag bit matched against query flags.
	Flag       aasfile.TravelFlags
	From, To   int
	Start, End geom.Vec3
	// Time includes any penalty.
	Time      int32
	Payload   Payload
	Uncertain bool
}

// Classifier turns stored reachability records into Classified links.
type Classifier struct {
	UncertainPenalty int32
}

// NewClassifier returns a classifier with the given uncertainty penalty.
func NewClassifier(penalty int32) *Classifier {
	return &Classifier{UncertainPenalty: penalty}
}

// Classify resolves reachability i of f. The stored tag is trusted; an
// unknown or ambiguous tag becomes a penalised walk and is logged.
func (c *Classifier) Classify(f *aasfile.File, i int) Classified {
	r := f.Reachability(i)
	out := Classified{
		Index: i,
		From:  int(r.FromArea),
		To:    int(r.ToArea),
		Start: r.Start,
		End:   r.End,
		Time:  int32(r.TravelTime),
	}

	t, ok := typeOf(r.TravelType)
	out.Type = t
	out.Flag = r.TravelType
	if !ok {
		out.Flag = aasfile.TFLWalk
		out.Uncertain = true
		out.Time += c.UncertainPenalty
		slog.Warn("uncertain reachability travel type, treating as walk",
			"map", f.Name(),
			"reach", i,
			"from", r.FromArea,
			"to", r.ToArea,
			"tag", uint32(r.TravelType),
			"penalty", c.UncertainPenalty)
	}

	switch out.Type {
	case Jump, BarrierJump, WaterJump, WalkOffLedge:
		out.Payload = JumpPayload{Velocity: r.JumpVelocity}
	case Elevator, Teleport, Special:
		out.Payload = EntityPayload{Name: f.ReachabilityName(i)}
	default:
		out.Payload = NoPayload{}
	}
	return out
}

// ClassifyAll classifies every reachability of f in index order.
func (c *Classifier) ClassifyAll(f *aasfile.File) []Classified {
	out := make([]Classified, f.NumReachabilities())
	for i := range out {
		out[i] = c.Classify(f, i)
	}
	return out
}

package aasfile

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/udisondev/aasnav/internal/geom"
)

// Bytes serializes the file. Parse followed by Bytes reproduces the input
// exactly.
func (f *File) Bytes() []byte {
	c := counts{
		planes:      uint32(len(f.planes)),
		vertices:    uint32(len(f.vertices)),
		edges:       uint32(len(f.edges)),
		edgeIndex:   uint32(len(f.edgeIndex)),
		faces:       uint32(len(f.faces)),
		faceIndex:   uint32(len(f.faceIndex)),
		areas:       uint32(len(f.areas)),
		reach:       uint32(len(f.reach)),
		portals:     uint32(len(f.portals)),
		portalIndex: uint32(len(f.portalIndex)),
		clusters:    uint32(len(f.clusters)),
		strings:     uint32(len(f.strings)),
	}
	w := &writer{buf: make([]byte, 0, c.size(f.version))}

	w.buf = append(w.buf, Magic...)
	w.u32(f.version)
	w.u32(f.mapCRC)
	w.settings(f.settings)
	for _, p := range c.fields() {
		w.u32(*p)
	}

	for _, p := range f.planes {
		w.vec3(p.Normal)
		w.f32(p.Dist)
	}
	for _, v := range f.vertices {
		w.vec3(v)
	}
	for _, e := range f.edges {
		w.i32(e.VertexNum[0], e.VertexNum[1], e.Areas[0], e.Areas[1])
	}
	w.i32(f.edgeIndex...)
	for _, fc := range f.faces {
		w.i32(fc.PlaneNum)
		w.u32(uint32(fc.Flags))
		w.i32(fc.NumEdges, fc.FirstEdge, fc.Areas[0], fc.Areas[1])
	}
	w.i32(f.faceIndex...)
	for _, a := range f.areas {
		w.i32(a.NumFaces, a.FirstFace)
		w.bounds(a.Bounds)
		w.vec3(a.Center)
		w.u16(uint16(a.Flags))
		w.u16(uint16(a.Contents))
		w.i32(a.Cluster, a.ClusterAreaNum)
		w.u32(uint32(a.TravelFlags))
		w.i32(a.FirstReach, a.NumReach)
	}
	for _, r := range f.reach {
		w.u32(uint32(r.TravelType))
		w.i32(r.FromArea, r.ToArea)
		w.vec3(r.Start)
		w.vec3(r.End)
		w.i32(r.EdgeNum)
		w.u16(r.TravelTime)
		if f.version >= VersionCurrent {
			w.vec3(r.JumpVelocity)
			w.i32(r.NameOffset)
		}
	}
	for _, p := range f.portals {
		w.i32(p.AreaNum, p.Clusters[0], p.Clusters[1], p.ClusterAreaNum[0], p.ClusterAreaNum[1])
	}
	w.i32(f.portalIndex...)
	for _, cl := range f.clusters {
		w.i32(cl.NumAreas, cl.NumReachableAreas, cl.NumPortals, cl.FirstPortal)
	}
	w.buf = append(w.buf, f.strings...)
	return w.buf
}

// WriteTo writes the serialized file to dst.
func (f *File) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write(f.Bytes())
	return int64(n), err
}

type writer struct {
	buf []byte
}

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) i32(vs ...int32) {
	for _, v := range vs {
		w.u32(uint32(v))
	}
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) vec3(v geom.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *writer) bounds(b geom.Bounds) {
	w.vec3(b.Mins)
	w.vec3(b.Maxs)
}

func (w *writer) settings(s Settings) {
	w.bounds(s.BoundingBox)
	w.vec3(s.Gravity)
	w.f32(s.MaxStepHeight)
	w.f32(s.MaxBarrierHeight)
	w.f32(s.MaxWaterJumpHeight)
	w.f32(s.MaxFallHeight)
	w.f32(s.MinFloorCos)
	w.u16(s.TTBarrierJump)
	w.u16(s.TTStartCrouching)
	w.u16(s.TTWaterJump)
	w.u16(s.TTStartWalkOffLedge)
}

package aasfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/udisondev/aasnav/internal/geom"
)

// Load reads and parses the file at path with DefaultOptions.
func Load(path string) (*File, error) {
	return LoadWith(path, DefaultOptions())
}

// LoadWith reads and parses the file at path. The map name defaults to the
// file base name without extension.
func LoadWith(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading aas file %s: %w", path, err)
	}
	if opts.Name == "" {
		base := filepath.Base(path)
		opts.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	f, err := ParseWith(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing aas file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a navigation file held in memory with DefaultOptions.
func Parse(data []byte) (*File, error) {
	return ParseWith(data, DefaultOptions())
}

// ParseWith decodes and validates a navigation file. It never returns
// partially loaded data.
func ParseWith(data []byte, opts Options) (*File, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		if len(data) < len(Magic) && bytes.HasPrefix([]byte(Magic), data) {
			return nil, fmt.Errorf("%w: %d byte file", ErrTruncated, len(data))
		}
		return nil, fmt.Errorf("%w: bad magic", ErrParse)
	}
	if len(data) < len(Magic)+4 {
		return nil, fmt.Errorf("%w: missing version", ErrTruncated)
	}

	version := binary.LittleEndian.Uint32(data[len(Magic):])
	switch {
	case version == VersionCurrent || version == VersionNoPayload:
	case version >= VersionOldest && version < VersionNoPayload:
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, version)
	default:
		return nil, fmt.Errorf("%w: unknown version %d", ErrParse, version)
	}

	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, headerSize, len(data))
	}

	r := &reader{data: data, off: len(Magic) + 4}
	f := &File{
		name:         opts.Name,
		version:      version,
		pointEpsilon: opts.PointEpsilon,
	}
	f.mapCRC = r.u32()
	f.settings = r.settings()

	var c counts
	c.read(r)
	need := c.size(version)
	if need > uint64(len(data)) {
		return nil, fmt.Errorf("%w: counts need %d bytes, have %d", ErrTruncated, need, len(data))
	}
	if need < uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrParse, uint64(len(data))-need)
	}

	f.planes = make([]geom.Plane, c.planes)
	for i := range f.planes {
		f.planes[i] = geom.Plane{Normal: r.vec3(), Dist: r.f32()}
	}
	f.vertices = make([]geom.Vec3, c.vertices)
	for i := range f.vertices {
		f.vertices[i] = r.vec3()
	}
	f.edges = make([]Edge, c.edges)
	for i := range f.edges {
		e := &f.edges[i]
		e.VertexNum = [2]int32{r.i32(), r.i32()}
		e.Areas = [2]int32{r.i32(), r.i32()}
	}
	f.edgeIndex = r.index(c.edgeIndex)
	f.faces = make([]Face, c.faces)
	for i := range f.faces {
		fc := &f.faces[i]
		fc.PlaneNum = r.i32()
		fc.Flags = FaceFlags(r.u32())
		fc.NumEdges = r.i32()
		fc.FirstEdge = r.i32()
		fc.Areas = [2]int32{r.i32(), r.i32()}
	}
	f.faceIndex = r.index(c.faceIndex)
	f.areas = make([]Area, c.areas)
	for i := range f.areas {
		a := &f.areas[i]
		a.NumFaces = r.i32()
		a.FirstFace = r.i32()
		a.Bounds = r.bounds()
		a.Center = r.vec3()
		a.Flags = AreaFlags(r.u16())
		a.Contents = AreaContents(r.u16())
		a.Cluster = r.i32()
		a.ClusterAreaNum = r.i32()
		a.TravelFlags = TravelFlags(r.u32())
		a.FirstReach = r.i32()
		a.NumReach = r.i32()
	}
	f.reach = make([]Reachability, c.reach)
	for i := range f.reach {
		rc := &f.reach[i]
		rc.TravelType = TravelFlags(r.u32())
		rc.FromArea = r.i32()
		rc.ToArea = r.i32()
		rc.Start = r.vec3()
		rc.End = r.vec3()
		rc.EdgeNum = r.i32()
		rc.TravelTime = r.u16()
		if version >= VersionCurrent {
			rc.JumpVelocity = r.vec3()
			rc.NameOffset = r.i32()
		} else {
			rc.NameOffset = -1
		}
	}
	f.portals = make([]Portal, c.portals)
	for i := range f.portals {
		p := &f.portals[i]
		p.AreaNum = r.i32()
		p.Clusters = [2]int32{r.i32(), r.i32()}
		p.ClusterAreaNum = [2]int32{r.i32(), r.i32()}
	}
	f.portalIndex = r.index(c.portalIndex)
	f.clusters = make([]Cluster, c.clusters)
	for i := range f.clusters {
		cl := &f.clusters[i]
		cl.NumAreas = r.i32()
		cl.NumReachableAreas = r.i32()
		cl.NumPortals = r.i32()
		cl.FirstPortal = r.i32()
	}
	f.strings = r.bytes(int(c.strings))

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if opts.MaxClusterAreas > 0 {
		for i := 1; i < len(f.clusters); i++ {
			if n := int(f.clusters[i].NumAreas); n > opts.MaxClusterAreas {
				slog.Warn("aas cluster exceeds area limit",
					"map", f.name, "cluster", i, "areas", n, "limit", opts.MaxClusterAreas)
			}
		}
	}

	f.index = newGrid(f.areas, opts.CellSize)
	f.fingerprint = fingerprint(data)
	return f, nil
}

// counts is the header count block.
type counts struct {
	planes, vertices, edges, edgeIndex, faces, faceIndex uint32
	areas, reach, portals, portalIndex, clusters, strings uint32
}

func (c *counts) read(r *reader) {
	for _, p := range c.fields() {
		*p = r.u32()
	}
}

func (c *counts) fields() []*uint32 {
	return []*uint32{
		&c.planes, &c.vertices, &c.edges, &c.edgeIndex, &c.faces, &c.faceIndex,
		&c.areas, &c.reach, &c.portals, &c.portalIndex, &c.clusters, &c.strings,
	}
}

// size is the total file size the counts imply. uint64 keeps hostile counts
// from overflowing.
func (c *counts) size(version uint32) uint64 {
	reachSize := uint64(reachSizePayload)
	if version < VersionCurrent {
		reachSize = reachSizeNoPayload
	}
	return headerSize +
		uint64(c.planes)*planeSize +
		uint64(c.vertices)*vertexSize +
		uint64(c.edges)*edgeSize +
		uint64(c.edgeIndex)*indexSize +
		uint64(c.faces)*faceSize +
		uint64(c.faceIndex)*indexSize +
		uint64(c.areas)*areaSize +
		uint64(c.reach)*reachSize +
		uint64(c.portals)*portalSize +
		uint64(c.portalIndex)*indexSize +
		uint64(c.clusters)*clusterSize +
		uint64(c.strings)
}

// reader decodes little-endian fields. Bounds are checked once up front
// against the header counts.
type reader struct {
	data []byte
	off  int
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) vec3() geom.Vec3 {
	return geom.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) bounds() geom.Bounds {
	return geom.Bounds{Mins: r.vec3(), Maxs: r.vec3()}
}

func (r *reader) index(n uint32) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = r.i32()
	}
	return out
}

func (r *reader) bytes(n int) []byte {
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+n])
	r.off += n
	return out
}

func (r *reader) settings() Settings {
	var s Settings
	s.BoundingBox = r.bounds()
	s.Gravity = r.vec3()
	s.MaxStepHeight = r.f32()
	s.MaxBarrierHeight = r.f32()
	s.MaxWaterJumpHeight = r.f32()
	s.MaxFallHeight = r.f32()
	s.MinFloorCos = r.f32()
	s.TTBarrierJump = r.u16()
	s.TTStartCrouching = r.u16()
	s.TTWaterJump = r.u16()
	s.TTStartWalkOffLedge = r.u16()
	return s
}

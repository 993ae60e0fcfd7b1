package aasfile

import (
	"bytes"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/udisondev/aasnav/internal/geom"
)

var (
	// ErrParse is returned for malformed files: bad magic, bad version,
	// dangling indices, broken invariants or trailing bytes.
	ErrParse = errors.New("aas file: parse error")
	// ErrTruncated is returned when declared counts exceed the buffer.
	ErrTruncated = errors.New("aas file: truncated")
	// ErrUnsupportedFormat is returned for versions that predate stored travel types.
	ErrUnsupportedFormat = errors.New("aas file: unsupported format version")
)

// Options tune the runtime side structures built at load.
type Options struct {
	// Name identifies the map; Load defaults it to the file base name.
	Name string
	// CellSize is the XY size of a spatial index cell.
	CellSize float32
	// PointEpsilon is the tolerance of point-in-area tests.
	PointEpsilon float32
	// MaxClusterAreas triggers a load warning for oversized clusters.
	MaxClusterAreas int
}

// DefaultOptions returns the options used by Parse and Load.
func DefaultOptions() Options {
	return Options{
		CellSize:        DefaultCellSize,
		PointEpsilon:    geom.DefaultPointEpsilon,
		MaxClusterAreas: 4096,
	}
}

// File is a loaded navigation file. It is read-only after load and safe for
// concurrent use.
type File struct {
	name        string
	version     uint32
	mapCRC      uint32
	settings    Settings
	fingerprint string

	planes      []geom.Plane
	vertices    []geom.Vec3
	edges       []Edge
	edgeIndex   []int32
	faces       []Face
	faceIndex   []int32
	areas       []Area
	reach       []Reachability
	portals     []Portal
	portalIndex []int32
	clusters    []Cluster
	strings     []byte

	pointEpsilon float32
	index        *Grid
}

func (f *File) Name() string { return f.name }
func (f *File) Version() uint32 { return f.version }
func (f *File) MapCRC() uint32 { return f.mapCRC }
func (f *File) Settings() Settings { return f.settings }

// Fingerprint is the blake2b-256 hex digest of the serialized file.
func (f *File) Fingerprint() string { return f.fingerprint }

func (f *File) NumPlanes() int { return len(f.planes) }
func (f *File) NumVertices() int { return len(f.vertices) }
func (f *File) NumEdges() int { return len(f.edges) }
func (f *File) NumEdgeIndexes() int { return len(f.edgeIndex) }
func (f *File) NumFaces() int { return len(f.faces) }
func (f *File) NumFaceIndexes() int { return len(f.faceIndex) }
func (f *File) NumAreas() int { return len(f.areas) }
func (f *File) NumReachabilities() int { return len(f.reach) }
func (f *File) NumPortals() int { return len(f.portals) }
func (f *File) NumPortalIndexes() int { return len(f.portalIndex) }
func (f *File) NumClusters() int { return len(f.clusters) }

func (f *File) Plane(i int) geom.Plane { return f.planes[i] }
func (f *File) Vertex(i int) geom.Vec3 { return f.vertices[i] }
func (f *File) Edge(i int) Edge { return f.edges[i] }
func (f *File) EdgeIndex(i int) int32 { return f.edgeIndex[i] }
func (f *File) Face(i int) Face { return f.faces[i] }
func (f *File) FaceIndex(i int) int32 { return f.faceIndex[i] }
func (f *File) Area(i int) Area { return f.areas[i] }
func (f *File) Reachability(i int) Reachability { return f.reach[i] }
func (f *File) Portal(i int) Portal { return f.portals[i] }
func (f *File) PortalIndex(i int) int32 { return f.portalIndex[i] }
func (f *File) Cluster(i int) Cluster { return f.clusters[i] }
func (f *File) ValidArea(areaNum int) bool { return areaNum > 0 && areaNum < len(f.areas) }
func (f *File) PointEpsilon() float32 { return f.pointEpsilon }
func (f *File) SpatialIndex() *Grid { return f.index }
func (f *File) ValidReachability(i int) bool { return i >= 0 && i < len(f.reach) }

// AreaReachRange returns the [first, end) reachability indices of an area.
func (f *File) AreaReachRange(areaNum int) (int, int) {
	a := f.areas[areaNum]
	return int(a.FirstReach), int(a.FirstReach + a.NumReach)
}

// StringAt returns the NUL-terminated name at offset; negative offsets yield "".
func (f *File) StringAt(offset int32) string {
	if offset < 0 || int(offset) >= len(f.strings) {
		return ""
	}
	end := bytes.IndexByte(f.strings[offset:], 0)
	if end < 0 {
		return ""
	}
	return string(f.strings[offset : int(offset)+end])
}

// ReachabilityName returns the entity name referenced by reachability i.
func (f *File) ReachabilityName(i int) string {
	return f.StringAt(f.reach[i].NameOffset)
}

func fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

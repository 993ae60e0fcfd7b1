package aasfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/aasnav/internal/geom"
)

const countsOffset = 8 + 4 + 4 + settingsSize

// chainBuilder lays out n 100-unit cubes along +X with walk links both ways.
func chainBuilder(t *testing.T, n int) *Builder {
	t.Helper()
	b := NewBuilder()
	b.Name = "chain"
	for i := range n {
		x := float32(i * 100)
		b.AddBox(geom.B(geom.V(x, 0, 0), geom.V(x+100, 100, 100)))
	}
	for i := 1; i < n; i++ {
		b.Connect(i, i+1, 10)
	}
	return b
}

func chainBytes(t *testing.T, n int) []byte {
	t.Helper()
	data, err := chainBuilder(t, n).Bytes()
	require.NoError(t, err)
	return data
}

// twoClusterFile builds 1-2 | 3 | 4-5 with area 3 the portal between
// clusters 1 and 2.
func twoClusterFile(t *testing.T) *File {
	t.Helper()
	b := NewBuilder()
	for i := range 5 {
		x := float32(i * 100)
		c := 1
		if i >= 3 {
			c = 2
		}
		b.AddArea(AreaSpec{Bounds: geom.B(geom.V(x, 0, 0), geom.V(x+100, 100, 100)), Flags: AreaFloor, Cluster: c})
	}
	b.AddPortal(3, 1, 2)
	for i := 1; i < 5; i++ {
		b.Connect(i, i+1, 10)
	}
	f, err := b.Build()
	require.NoError(t, err)
	return f
}

func TestParseRoundTrip(t *testing.T) {
	data := chainBytes(t, 3)

	f, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, f.Bytes()), "re-serialized bytes differ")

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, buf.Bytes())
}

func TestParseRoundTripMultiCluster(t *testing.T) {
	f := twoClusterFile(t)
	data := f.Bytes()

	g, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, data, g.Bytes())
	assert.Equal(t, f.Fingerprint(), g.Fingerprint())
}

func TestParseVersionNoPayload(t *testing.T) {
	b := chainBuilder(t, 2)
	b.Version = VersionNoPayload
	b.AddReach(ReachSpec{From: 1, To: 2, Type: TFLElevator, Time: 50, Name: "lift_1"})

	data, err := b.Bytes()
	require.NoError(t, err)
	f, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, VersionNoPayload, f.Version())
	for i := range f.NumReachabilities() {
		assert.Equal(t, int32(-1), f.Reachability(i).NameOffset)
	}
	assert.Equal(t, data, f.Bytes())
}

func TestParseNames(t *testing.T) {
	b := chainBuilder(t, 2)
	b.AddReach(ReachSpec{From: 2, To: 1, Type: TFLTeleport, Time: 30, Name: "tele_a"})
	b.AddReach(ReachSpec{From: 1, To: 2, Type: TFLElevator, Time: 50, Name: "lift_1"})
	f, err := b.Build()
	require.NoError(t, err)

	idx, ok := f.FindReachability(1, 2)
	require.True(t, ok)
	assert.Equal(t, "", f.ReachabilityName(idx), "walk link first")

	first, end := f.AreaReachRange(1)
	require.Equal(t, 2, end-first)
	assert.Equal(t, "lift_1", f.ReachabilityName(first+1))

	first, end = f.AreaReachRange(2)
	assert.Equal(t, "tele_a", f.ReachabilityName(end-1))
	assert.Equal(t, "", f.StringAt(-1))
	assert.Equal(t, "", f.StringAt(10_000))
}

func TestParseErrors(t *testing.T) {
	valid := chainBytes(t, 3)

	setU32 := func(off int, v uint32) []byte {
		d := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(d[off:], v)
		return d
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"magic prefix only", []byte("Dewm"), ErrTruncated},
		{"bad magic", append([]byte("XewmAAS\x00"), valid[8:]...), ErrParse},
		{"no version", valid[:10], ErrTruncated},
		{"header cut", valid[:headerSize-1], ErrTruncated},
		{"body cut", valid[:len(valid)-1], ErrTruncated},
		{"trailing bytes", append(bytes.Clone(valid), 0), ErrParse},
		{"old version", setU32(8, 105), ErrUnsupportedFormat},
		{"oldest version", setU32(8, VersionOldest), ErrUnsupportedFormat},
		{"unknown version", setU32(8, 999), ErrParse},
		{"huge area count", setU32(countsOffset+6*4, 0xFFFFFFFF), ErrTruncated},
		{"huge string table", setU32(countsOffset+11*4, 0xFFFFFFFF), ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.data)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *File)
	}{
		{"reach to missing area", func(f *File) { f.reach[0].ToArea = 99 }},
		{"reach loops", func(f *File) { f.reach[0].ToArea = f.reach[0].FromArea }},
		{"zero travel time", func(f *File) { f.reach[0].TravelTime = 0 }},
		{"reach not owned", func(f *File) { f.reach[0].FromArea = 3 }},
		{"edge vertex dangling", func(f *File) { f.edges[1].VertexNum[1] = 1 << 20 }},
		{"face plane dangling", func(f *File) { f.faces[1].PlaneNum = -1 }},
		{"face index zero", func(f *File) { f.faceIndex[0] = 0 }},
		{"area faces dangling", func(f *File) { f.areas[2].NumFaces = 1 << 20 }},
		{"area cluster dangling", func(f *File) { f.areas[1].Cluster = 7 }},
		{"portal area mismatch", func(f *File) { f.portals[1].AreaNum = 1 }},
		{"portal listed once", func(f *File) {
			f.clusters[2].NumPortals = 0
		}},
		{"empty cluster", func(f *File) {
			f.clusters = append(f.clusters, Cluster{})
		}},
		{"cluster area number reused", func(f *File) { f.areas[2].ClusterAreaNum = f.areas[1].ClusterAreaNum }},
		{"name offset dangling", func(f *File) { f.reach[0].NameOffset = 5 }},
		{"string table unterminated", func(f *File) { f.strings = []byte("abc") }},
		{"area bounds huge", func(f *File) { f.areas[5].Bounds.Maxs.X = 1e30 }},
		{"area bounds infinite", func(f *File) { f.areas[5].Bounds.Maxs.X = float32(math.Inf(1)) }},
		{"area bounds nan", func(f *File) { f.areas[5].Bounds.Maxs.X = float32(math.NaN()) }},
		{"area bounds inverted", func(f *File) { f.areas[2].Bounds.Mins.Z = 500 }},
		{"area center nan", func(f *File) { f.areas[1].Center.Y = float32(math.NaN()) }},
		{"settings box inverted", func(f *File) { f.settings.BoundingBox.Mins.Z = 100 }},
		{"settings box infinite", func(f *File) { f.settings.BoundingBox.Maxs.Y = float32(math.Inf(-1)) }},
		{"gravity nan", func(f *File) { f.settings.Gravity.Z = float32(math.NaN()) }},
		{"plane distance infinite", func(f *File) { f.planes[len(f.planes)-1].Dist = float32(math.Inf(1)) }},
		{"plane normal nan", func(f *File) { f.planes[0].Normal.X = float32(math.NaN()) }},
		{"vertex nan", func(f *File) { f.vertices[1].X = float32(math.NaN()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := twoClusterFile(t)
			tt.mutate(f)
			g, err := Parse(f.Bytes())
			assert.Nil(t, g)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e1m1.aas")
	f := twoClusterFile(t)
	require.NoError(t, os.WriteFile(path, f.Bytes(), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "e1m1", loaded.Name())
	assert.Equal(t, f.NumAreas(), loaded.NumAreas())

	_, err = Load(filepath.Join(dir, "missing.aas"))
	assert.Error(t, err)
}

func TestBuilderGeometry(t *testing.T) {
	f, err := chainBuilder(t, 3).Build()
	require.NoError(t, err)

	assert.Equal(t, 4, f.NumAreas())
	// 3 boxes × 6 faces, two of them shared, plus the dummy.
	assert.Equal(t, 17, f.NumFaces())
	assert.Equal(t, 16, f.NumVertices())

	shared := 0
	for i := 1; i < f.NumFaces(); i++ {
		if fc := f.Face(i); fc.Areas[1] != 0 {
			shared++
			assert.Equal(t, fc.Areas[0]+1, fc.Areas[1])
		}
	}
	assert.Equal(t, 2, shared)

	for a := 1; a < f.NumAreas(); a++ {
		area := f.Area(a)
		assert.True(t, area.Bounds.Center().NearlyEqual(f.AreaCenter(a), 1e-3))
		assert.Equal(t, area.Bounds, f.AreaBounds(a))
		assert.Equal(t, int32(1), area.Cluster)
		assert.True(t, f.AreaContainsPoint(a, area.Center), "stored center is inside area %d", a)
	}

	assert.Equal(t, geom.V(100, 50, 50), f.FaceCenter(int(abs32(f.faceIndex[f.Area(2).FirstFace]))))
}

func TestBuilderClusters(t *testing.T) {
	f := twoClusterFile(t)

	require.Equal(t, 3, f.NumClusters())
	require.Equal(t, 2, f.NumPortals())

	portal := f.Portal(1)
	assert.Equal(t, int32(3), portal.AreaNum)
	assert.Equal(t, [2]int32{1, 2}, portal.Clusters)
	assert.Equal(t, int32(-1), f.Area(3).Cluster)
	assert.NotZero(t, f.Area(3).Contents&ContentsClusterPortal)

	c1 := f.Cluster(1)
	assert.Equal(t, int32(3), c1.NumAreas, "two members and the portal")
	assert.Equal(t, int32(2), c1.NumReachableAreas)
	assert.Equal(t, int32(1), c1.NumPortals)
	assert.Equal(t, int32(2), portal.ClusterAreaNum[0])
	assert.Equal(t, int32(2), portal.ClusterAreaNum[1])
}

func TestBuilderRejectsBadInput(t *testing.T) {
	b := NewBuilder()
	b.AddBox(geom.B(geom.V(0, 0, 0), geom.V(10, 10, 10)))
	b.AddReach(ReachSpec{From: 1, To: 5, Type: TFLWalk, Time: 1})
	_, err := b.Build()
	assert.Error(t, err)

	b = NewBuilder()
	b.AddArea(AreaSpec{Bounds: geom.B(geom.V(0, 0, 0), geom.V(10, 10, 10)), Cluster: 3})
	_, err = b.Build()
	assert.Error(t, err, "clusters 1 and 2 are empty")

	b = NewBuilder()
	b.AddArea(AreaSpec{Bounds: geom.B(geom.V(0, 0, 0), geom.V(10, 10, 10)), Cluster: 1})
	b.AddArea(AreaSpec{Bounds: geom.B(geom.V(10, 0, 0), geom.V(20, 10, 10)), Cluster: 2})
	b.Connect(1, 2, 10)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrParse, "link between clusters without a portal")
}

func TestPointInArea(t *testing.T) {
	f, err := chainBuilder(t, 3).Build()
	require.NoError(t, err)

	tests := []struct {
		name   string
		p      geom.Vec3
		want   int
		wantOK bool
	}{
		{"inside first", geom.V(50, 50, 50), 1, true},
		{"inside last", geom.V(250, 50, 50), 3, true},
		{"shared face picks lower area", geom.V(100, 50, 50), 1, true},
		{"second shared face", geom.V(200, 50, 50), 2, true},
		{"within epsilon outside", geom.V(-0.1, 50, 50), 1, true},
		{"outside", geom.V(-5, 50, 50), 0, false},
		{"above", geom.V(50, 50, 150), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.PointInArea(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointInAreaSmallCells(t *testing.T) {
	b := chainBuilder(t, 3)
	b.Options.CellSize = 16
	f, err := b.Build()
	require.NoError(t, err)

	a, ok := f.PointInArea(geom.V(100, 50, 50))
	require.True(t, ok)
	assert.Equal(t, 1, a)
	assert.Greater(t, f.SpatialIndex().NumCells(), 1)
}

func TestSpatialIndexCellCap(t *testing.T) {
	b := chainBuilder(t, 3)
	b.Options.CellSize = 1e-4
	f, err := b.Build()
	require.NoError(t, err)

	g := f.SpatialIndex()
	assert.LessOrEqual(t, g.NumCells(), maxGridCells)
	assert.Greater(t, g.CellSize(), float32(1e-4))
	a, ok := f.PointInArea(geom.V(250, 50, 50))
	require.True(t, ok)
	assert.Equal(t, 3, a)
}

func TestEdgeVertices(t *testing.T) {
	f, err := chainBuilder(t, 1).Build()
	require.NoError(t, err)

	for i := 1; i < f.NumEdges(); i++ {
		a, b := f.EdgeVertices(i)
		ra, rb := f.EdgeVertices(-i)
		assert.Equal(t, a, rb)
		assert.Equal(t, b, ra)
		assert.NotEqual(t, a, b)
		e := f.Edge(i)
		assert.Equal(t, [2]int32{e.VertexNum[1], e.VertexNum[0]}, f.EdgeVertexNums(-i))
	}
}

func TestAreasInBounds(t *testing.T) {
	f, err := chainBuilder(t, 3).Build()
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, f.AreasInBounds(geom.B(geom.V(90, 10, 10), geom.V(110, 20, 20))))
	assert.Equal(t, []int{1, 2, 3}, f.AreasInBounds(geom.B(geom.V(-10, -10, -10), geom.V(400, 200, 200))))
	assert.Empty(t, f.AreasInBounds(geom.B(geom.V(500, 500, 500), geom.V(600, 600, 600))))
}

func TestPushPointIntoArea(t *testing.T) {
	f, err := chainBuilder(t, 1).Build()
	require.NoError(t, err)

	p := f.PushPointIntoArea(1, geom.V(-5, 50, 120))
	assert.True(t, p.NearlyEqual(geom.V(0, 50, 100), 1e-4), "got %v", p)

	inside := geom.V(10, 20, 30)
	assert.Equal(t, inside, f.PushPointIntoArea(1, inside))
}

func TestInfo(t *testing.T) {
	f := twoClusterFile(t)
	info := f.Info()

	assert.Equal(t, 5, info.Areas)
	assert.Equal(t, 8, info.Reachabilities)
	assert.Equal(t, 1, info.Portals)
	assert.Equal(t, 2, info.Clusters)
	assert.Equal(t, 3, info.LargestCluster)
	assert.Equal(t, 8, info.ReachByType[TFLWalk])
	assert.Positive(t, info.MemoryBytes)
}

func TestFingerprint(t *testing.T) {
	a, err := Parse(chainBytes(t, 2))
	require.NoError(t, err)
	b, err := Parse(chainBytes(t, 3))
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 64)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestGridLevel(t *testing.T) {
	tests := []struct {
		name              string
		cols, rows, width int
		clusters, portals int
	}{
		{"single cluster", 4, 3, 0, 1, 0},
		{"two strips", 5, 3, 2, 2, 3},
		{"portal column never last", 3, 2, 2, 1, 0},
		{"three strips", 8, 2, 2, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := GridLevel(tt.cols, tt.rows, 64, tt.width).Build()
			require.NoError(t, err)
			info := f.Info()
			assert.Equal(t, tt.cols*tt.rows, info.Areas)
			assert.Equal(t, tt.clusters, info.Clusters)
			assert.Equal(t, tt.portals, info.Portals)
		})
	}
}

// Package obstacle tracks which areas and links are blocked at runtime and
// versions that state with generation counters.
package obstacle

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/graph"
)

// Snapshot is an immutable view of the blocked state. Every field was read
// under the same lock, so a generation always describes exactly these bits.
type Snapshot struct {
	generation uint64
	clusterGen []uint64
	blocked    []uint64
	// disabled[r] counts the obstacles disabling reachability r.
	disabled []int32
}

// Generation is bumped by every change.
func (s *Snapshot) Generation() uint64 { return s.generation }

// ClusterGeneration is bumped by changes touching cluster c.
func (s *Snapshot) ClusterGeneration(c int) uint64 { return s.clusterGen[c] }

// IsBlocked reports whether area a is blocked.
func (s *Snapshot) IsBlocked(a int) bool {
	return s.blocked[a>>6]&(1<<(a&63)) != 0
}

// IsReachDisabled reports whether an obstacle disables reachability r.
func (s *Snapshot) IsReachDisabled(r int) bool {
	return s.disabled[r] > 0
}

// Handle identifies an obstacle added with AddObstacle.
type Handle int

type obstacleRec struct {
	bounds geom.Bounds
	reach  []int32
}

// Tracker owns the mutable blocked state of one map. Writers are serialized
// and publish a fresh Snapshot; readers never block.
type Tracker struct {
	graph *graph.Graph
	file  *aasfile.File

	mu        sync.Mutex
	obstacles map[Handle]obstacleRec
	next      Handle

	current atomic.Pointer[Snapshot]
}

// NewTracker creates a tracker with nothing blocked at generation 1.
func NewTracker(g *graph.Graph) *Tracker {
	t := &Tracker{
		graph:     g,
		file:      g.File(),
		obstacles: make(map[Handle]obstacleRec),
		next:      1,
	}
	clusterGen := make([]uint64, g.NumClusters())
	for i := range clusterGen {
		clusterGen[i] = 1
	}
	t.current.Store(&Snapshot{
		generation: 1,
		clusterGen: clusterGen,
		blocked:    make([]uint64, (g.NumAreas()+63)/64),
		disabled:   make([]int32, g.NumReachabilities()),
	})
	return t
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() *Snapshot {
	return t.current.Load()
}

// Generation returns the current global generation.
func (t *Tracker) Generation() uint64 {
	return t.Snapshot().Generation()
}

// ClusterGeneration returns the current generation of cluster c.
func (t *Tracker) ClusterGeneration(c int) uint64 {
	return t.Snapshot().ClusterGeneration(c)
}

// IsBlocked reports whether area a is currently blocked.
func (t *Tracker) IsBlocked(a int) bool {
	return t.Snapshot().IsBlocked(a)
}

// SetAreaBlocked sets the blocked bit of an area. Changing the bit bumps the
// global generation and that of every cluster containing the area.
func (t *Tracker) SetAreaBlocked(a int, blocked bool) error {
	if !t.graph.ValidArea(a) {
		return fmt.Errorf("set area blocked: %w: %d", graph.ErrInvalidArea, a)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply([]int{a}, blocked)
	return nil
}

// BlockAreaForBounds blocks every area an entity could touch while
// overlapping b and returns them.
func (t *Tracker) BlockAreaForBounds(b geom.Bounds) []int {
	return t.setBounds(b, 0, true)
}

// UnblockAreaForBounds clears the areas BlockAreaForBounds would block.
func (t *Tracker) UnblockAreaForBounds(b geom.Bounds) []int {
	return t.setBounds(b, 0, false)
}

// SetAreaState changes only areas overlapping b whose contents intersect
// contents, and reports whether any matched. Doors use ContentsClusterPortal.
func (t *Tracker) SetAreaState(b geom.Bounds, contents aasfile.AreaContents, blocked bool) bool {
	return len(t.setBounds(b, contents, blocked)) > 0
}

func (t *Tracker) setBounds(b geom.Bounds, contents aasfile.AreaContents, blocked bool) []int {
	areas := t.file.AreasInBounds(t.expand(b))
	if contents != 0 {
		areas = slices.DeleteFunc(areas, func(a int) bool {
			return t.file.Area(a).Contents&contents == 0
		})
	}
	if len(areas) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apply(areas, blocked)
	return areas
}

// expand grows b by the file's bounding box so areas an entity's origin
// could occupy while touching b are included.
func (t *Tracker) expand(b geom.Bounds) geom.Bounds {
	return b.ExpandBy(t.file.Settings().BoundingBox)
}

// apply publishes a snapshot with the given areas set. Callers hold mu.
func (t *Tracker) apply(areas []int, blocked bool) {
	cur := t.current.Load()
	var blockedBits []uint64
	var touched []int
	for _, a := range areas {
		if cur.IsBlocked(a) == blocked {
			continue
		}
		if blockedBits == nil {
			blockedBits = slices.Clone(cur.blocked)
		}
		if blocked {
			blockedBits[a>>6] |= 1 << (a & 63)
		} else {
			blockedBits[a>>6] &^= 1 << (a & 63)
		}
		touched = append(touched, t.graph.ClustersOf(a)...)
	}
	if blockedBits == nil {
		return
	}
	t.publish(cur, blockedBits, cur.disabled, touched)
}

func (t *Tracker) publish(cur *Snapshot, blocked []uint64, disabled []int32, clusters []int) {
	gen := cur.generation + 1
	clusterGen := slices.Clone(cur.clusterGen)
	for _, c := range clusters {
		clusterGen[c] = gen
	}
	t.current.Store(&Snapshot{
		generation: gen,
		clusterGen: clusterGen,
		blocked:    blocked,
		disabled:   disabled,
	})
}

// Invalidate bumps every generation without changing state, for when the
// collision world changed under cached validations.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.current.Load()
	all := make([]int, len(cur.clusterGen))
	for i := range all {
		all[i] = i
	}
	t.publish(cur, cur.blocked, cur.disabled, all)
}

// AddObstacle disables the links entering areas near b whose end point lies
// in b, or whose walk from the end point to the area center crosses b.
// Areas stay unblocked, so other entrances remain usable.
func (t *Tracker) AddObstacle(b geom.Bounds) Handle {
	exp := t.expand(b)
	var disabled []int32
	for _, a := range t.file.AreasInBounds(exp) {
		center := t.file.Area(a).Center
		for r := range t.graph.IncomingOf(a) {
			end := t.graph.Reach(r).End
			if exp.ContainsPoint(end) || exp.LineIntersection(end, center) {
				disabled = append(disabled, int32(r))
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.next
	t.next++
	t.obstacles[h] = obstacleRec{bounds: b, reach: disabled}
	t.adjust(disabled, 1)
	slog.Debug("obstacle added", "map", t.file.Name(), "handle", h, "links", len(disabled))
	return h
}

// RemoveObstacle re-enables the links of an obstacle. It reports whether the
// handle was known.
func (t *Tracker) RemoveObstacle(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.obstacles[h]
	if !ok {
		return false
	}
	delete(t.obstacles, h)
	t.adjust(rec.reach, -1)
	return true
}

// RemoveAllObstacles drops every obstacle.
func (t *Tracker) RemoveAllObstacles() {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []int32
	for h, rec := range t.obstacles {
		all = append(all, rec.reach...)
		delete(t.obstacles, h)
	}
	t.adjust(all, -1)
}

// NumObstacles returns the number of active obstacles.
func (t *Tracker) NumObstacles() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.obstacles)
}

// adjust changes disable counts and publishes. Callers hold mu.
func (t *Tracker) adjust(reach []int32, delta int32) {
	if len(reach) == 0 {
		return
	}
	cur := t.current.Load()
	disabled := slices.Clone(cur.disabled)
	var touched []int
	for _, r := range reach {
		disabled[r] += delta
		c := t.graph.Reach(int(r))
		touched = append(touched, t.graph.ClustersOf(c.From)...)
		touched = append(touched, t.graph.ClustersOf(c.To)...)
	}
	t.publish(cur, cur.blocked, disabled, touched)
}

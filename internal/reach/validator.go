package reach

import (
	"sync"
	"sync/atomic"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/collision"
)

type validationKey struct {
	reach  int
	bucket SizeBucket
}

type validation struct {
	generation uint64
	ok         bool
}

// Validator caches IsTraversable per (reachability, size bucket). Results
// are stamped with the obstacle generation they were computed under and
// recomputed once it moves on.
type Validator struct {
	file    *aasfile.File
	adapter collision.Adapter

	mu      sync.RWMutex
	results map[validationKey]validation

	checks atomic.Int64
}

// NewValidator creates a validator for f. A nil adapter never blocks.
func NewValidator(f *aasfile.File, adapter collision.Adapter) *Validator {
	if adapter == nil {
		adapter = collision.Open
	}
	return &Validator{
		file:    f,
		adapter: adapter,
		results: make(map[validationKey]validation),
	}
}

// Traversable returns the cached result for (c, phys.Bucket()) at the given
// generation, computing it on a miss.
func (v *Validator) Traversable(c Classified, phys PhysicsInfo, generation uint64) bool {
	key := validationKey{reach: c.Index, bucket: phys.Bucket()}

	v.mu.RLock()
	res, ok := v.results[key]
	v.mu.RUnlock()
	if ok && res.generation == generation {
		return res.ok
	}

	v.checks.Add(1)
	traversable := IsTraversable(c, phys, Context{
		Settings: v.file.Settings(),
		Adapter:  v.adapter,
		Target:   v.file.Area(c.To).Bounds,
	})

	v.mu.Lock()
	// Keep the newest generation if a concurrent caller got there first.
	if cur, ok := v.results[key]; !ok || cur.generation <= generation {
		v.results[key] = validation{generation: generation, ok: traversable}
	}
	v.mu.Unlock()
	return traversable
}

// Checks returns how many traversal tests have been run.
func (v *Validator) Checks() int64 {
	return v.checks.Load()
}

// Len returns the number of cached results.
func (v *Validator) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.results)
}

// Reset drops every cached result.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.results)
}

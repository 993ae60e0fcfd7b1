package routing

import (
	"fmt"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/reach"
)

type cacheKind uint8

const (
	kindArea cacheKind = iota
	kindPortal
)

// cacheKey identifies one reverse shortest path tree. Portal caches leave
// cluster at zero.
type cacheKey struct {
	kind    cacheKind
	cluster int32
	goal    int32
	flags   aasfile.TravelFlags
	bucket  reach.SizeBucket
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%d/%d/%d/%x/%x", k.kind, k.cluster, k.goal, uint32(k.flags), uint64(k.bucket))
}

// cacheOverhead approximates the fixed cost of an entry and its list node.
const cacheOverhead = 96

// cache holds, per node, the time to the goal and the first link to take.
// Area caches are indexed by cluster area number, portal caches by portal.
type cache struct {
	key        cacheKey
	generation uint64
	time       []int32
	reach      []int32
}

func newCache(k cacheKey, gen uint64, n int) *cache {
	c := &cache{
		key:        k,
		generation: gen,
		time:       make([]int32, n),
		reach:      make([]int32, n),
	}
	for i := range n {
		c.time[i] = Unreachable
		c.reach[i] = NoReach
	}
	return c
}

func (c *cache) size() int64 {
	return int64(len(c.time))*8 + cacheOverhead
}

// lookup returns the entry for k if it was built at generation gen.
func (r *Router) lookup(k cacheKey, gen uint64) *cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.entries[k]
	if !ok {
		return nil
	}
	c := el.Value.(*cache)
	if c.generation != gen {
		return nil
	}
	r.lru.MoveToFront(el)
	r.hits.Add(1)
	return c
}

// store inserts c unless a newer generation is already cached, then evicts
// least recently used entries down to the memory budget.
func (r *Router) store(c *cache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.entries[c.key]; ok {
		old := el.Value.(*cache)
		if old.generation > c.generation {
			return
		}
		r.bytes += c.size() - old.size()
		el.Value = c
		r.lru.MoveToFront(el)
	} else {
		r.entries[c.key] = r.lru.PushFront(c)
		r.bytes += c.size()
		r.counts[c.key.kind]++
	}

	for r.bytes > r.opts.MaxCacheBytes && r.lru.Len() > 1 {
		el := r.lru.Back()
		old := el.Value.(*cache)
		r.lru.Remove(el)
		delete(r.entries, old.key)
		r.bytes -= old.size()
		r.counts[old.key.kind]--
		r.evictions.Add(1)
	}
}

// get returns the entry for k at generation gen, building it once no matter
// how many callers ask concurrently.
func (r *Router) get(k cacheKey, gen uint64, build func() *cache) *cache {
	if c := r.lookup(k, gen); c != nil {
		return c
	}
	v, _, _ := r.group.Do(fmt.Sprintf("%s@%d", k, gen), func() (any, error) {
		if c := r.lookup(k, gen); c != nil {
			return c, nil
		}
		c := build()
		r.builds.Add(1)
		r.store(c)
		return c, nil
	})
	return v.(*cache)
}

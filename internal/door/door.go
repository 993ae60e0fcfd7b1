// Package door keeps doors and the cluster portal areas they close in step.
package door

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/geom"
)

// ErrUnknownDoor is returned for door names that were never added.
var ErrUnknownDoor = errors.New("unknown door")

// ErrDuplicateDoor is returned when a door name is added twice.
var ErrDuplicateDoor = errors.New("duplicate door")

// Door is a named movable blocker occupying world bounds.
type Door struct {
	Name   string
	Bounds geom.Bounds
}

// AreaStater blocks or unblocks areas with the given contents inside b.
// *aas.Runtime satisfies it.
type AreaStater interface {
	SetAreaState(b geom.Bounds, contents aasfile.AreaContents, blocked bool) bool
}

// StateStore persists door states per map. A nil store keeps states in
// memory only.
type StateStore interface {
	LoadAll(ctx context.Context, mapName string) (map[string]bool, error)
	Save(ctx context.Context, mapName, door string, closed bool) error
}

type state struct {
	door   Door
	closed bool
}

// Manager owns the doors of one map.
type Manager struct {
	mapName string
	nav     AreaStater
	store   StateStore

	mu     sync.Mutex
	doors  map[string]*state
	saveMu sync.Mutex
}

// NewManager returns an empty manager. store may be nil.
func NewManager(mapName string, nav AreaStater, store StateStore) *Manager {
	return &Manager{
		mapName: mapName,
		nav:     nav,
		store:   store,
		doors:   make(map[string]*state),
	}
}

// Add registers a door and applies its initial state. A door that covers no
// portal area is kept but has no effect on routing.
func (m *Manager) Add(d Door, closed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.doors[d.Name]; ok {
		return fmt.Errorf("adding door %q: %w", d.Name, ErrDuplicateDoor)
	}
	m.doors[d.Name] = &state{door: d, closed: closed}
	if !m.nav.SetAreaState(d.Bounds, aasfile.ContentsClusterPortal, closed) {
		slog.Warn("door covers no portal area", "map", m.mapName, "door", d.Name, "bounds", d.Bounds)
	}
	return nil
}

// Open opens the door. It reports whether the state changed.
func (m *Manager) Open(ctx context.Context, name string) (bool, error) {
	return m.set(ctx, name, false)
}

// Close closes the door. It reports whether the state changed.
func (m *Manager) Close(ctx context.Context, name string) (bool, error) {
	return m.set(ctx, name, true)
}

// Toggle flips the door and returns whether it is now closed.
func (m *Manager) Toggle(ctx context.Context, name string) (bool, error) {
	closed := false
	_, err := m.update(ctx, name, func(cur bool) bool {
		closed = !cur
		return closed
	})
	return closed, err
}

// IsClosed returns the door state and whether the door exists.
func (m *Manager) IsClosed(name string) (closed, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.doors[name]
	if !ok {
		return false, false
	}
	return s.closed, true
}

// Names returns the door names in order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.doors))
	for n := range m.doors {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Restore applies the persisted states of known doors and returns how many
// changed. Stored states of unknown doors are ignored.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	states, err := m.store.LoadAll(ctx, m.mapName)
	if err != nil {
		return 0, fmt.Errorf("restoring doors of %s: %w", m.mapName, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for name, closed := range states {
		s, ok := m.doors[name]
		if !ok {
			slog.Warn("stored state for unknown door", "map", m.mapName, "door", name)
			continue
		}
		if s.closed == closed {
			continue
		}
		s.closed = closed
		m.nav.SetAreaState(s.door.Bounds, aasfile.ContentsClusterPortal, closed)
		changed++
	}
	slog.Info("door states restored", "map", m.mapName, "stored", len(states), "changed", changed)
	return changed, nil
}

func (m *Manager) set(ctx context.Context, name string, closed bool) (bool, error) {
	return m.update(ctx, name, func(bool) bool { return closed })
}

// update reads and replaces the door state under one lock. Saves are
// serialized in the order the flips happened.
func (m *Manager) update(ctx context.Context, name string, next func(closed bool) bool) (bool, error) {
	m.mu.Lock()
	s, ok := m.doors[name]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("setting door %q: %w", name, ErrUnknownDoor)
	}
	closed := next(s.closed)
	if s.closed == closed {
		m.mu.Unlock()
		return false, nil
	}
	s.closed = closed
	m.nav.SetAreaState(s.door.Bounds, aasfile.ContentsClusterPortal, closed)
	m.saveMu.Lock()
	m.mu.Unlock()
	defer m.saveMu.Unlock()

	if m.store != nil {
		if err := m.store.Save(ctx, m.mapName, name, closed); err != nil {
			return true, fmt.Errorf("saving door %q: %w", name, err)
		}
	}
	return true, nil
}

// Package aas is the navigation runtime of one map: it owns the loaded file,
// its graph, the blocked state and the routing caches, and answers the
// queries AI code asks every frame.
package aas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/collision"
	"github.com/udisondev/aasnav/internal/graph"
	"github.com/udisondev/aasnav/internal/obstacle"
	"github.com/udisondev/aasnav/internal/reach"
	"github.com/udisondev/aasnav/internal/routing"
)

// ErrInvalidArea is returned for area numbers outside the file.
var ErrInvalidArea = graph.ErrInvalidArea

// ErrClosed is returned by queries on a closed runtime.
var ErrClosed = errors.New("navigation runtime closed")

// Options configure a Runtime.
type Options struct {
	File    aasfile.Options
	Routing routing.Options
	// UncertainPenalty is added to links with an unrecognised travel type.
	UncertainPenalty int32
	// Adapter answers collision queries; nil means an empty world.
	Adapter collision.Adapter
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		File:             aasfile.DefaultOptions(),
		Routing:          routing.DefaultOptions(),
		UncertainPenalty: reach.DefaultUncertainPenalty,
	}
}

// Runtime is the navigation state of one loaded map. Create one per map and
// drop it on unload; several may coexist.
type Runtime struct {
	file      *aasfile.File
	graph     *graph.Graph
	tracker   *obstacle.Tracker
	validator *reach.Validator
	router    *routing.Router
	adapter   collision.Adapter

	closed atomic.Bool
}

// New builds a runtime over an already parsed file.
func New(f *aasfile.File, opts Options) (*Runtime, error) {
	adapter := opts.Adapter
	if adapter == nil {
		adapter = collision.Open
	}
	classified := reach.NewClassifier(opts.UncertainPenalty).ClassifyAll(f)
	g, err := graph.New(f, classified)
	if err != nil {
		return nil, fmt.Errorf("building graph for %s: %w", f.Name(), err)
	}
	validator := reach.NewValidator(f, adapter)
	return &Runtime{
		file:      f,
		graph:     g,
		tracker:   obstacle.NewTracker(g),
		validator: validator,
		router:    routing.New(g, validator, opts.Routing),
		adapter:   adapter,
	}, nil
}

// Load reads, validates and prepares the navigation file at path.
func Load(path string, opts Options) (*Runtime, error) {
	f, err := aasfile.LoadWith(path, opts.File)
	if err != nil {
		return nil, err
	}
	rt, err := New(f, opts)
	if err != nil {
		return nil, err
	}
	slog.Info("navigation loaded",
		"map", f.Name(),
		"areas", f.NumAreas()-1,
		"reachabilities", f.NumReachabilities(),
		"clusters", f.NumClusters()-1)
	return rt, nil
}

// Close drops every cache. Later queries fail with ErrClosed.
func (rt *Runtime) Close() {
	if rt.closed.Swap(true) {
		return
	}
	rt.router.Reset()
	rt.validator.Reset()
	rt.tracker.RemoveAllObstacles()
}

// File returns the loaded navigation file.
func (rt *Runtime) File() *aasfile.File { return rt.file }

// Graph returns the area graph.
func (rt *Runtime) Graph() *graph.Graph { return rt.graph }

// Name returns the map name.
func (rt *Runtime) Name() string { return rt.file.Name() }

// Stats describe the runtime's caches and blocked state.
type Stats struct {
	Routing          routing.Stats
	Generation       uint64
	Obstacles        int
	Validations      int64
	ValidatorEntries int
}

// Stats returns current counters.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Routing:          rt.router.Stats(),
		Generation:       rt.tracker.Generation(),
		Obstacles:        rt.tracker.NumObstacles(),
		Validations:      rt.validator.Checks(),
		ValidatorEntries: rt.validator.Len(),
	}
}

// LoadDir loads every file with extension ext in dir, up to workers at a
// time. A map that fails to load is logged and left out; navigation is then
// unavailable for it. Only an unreadable directory is an error.
func LoadDir(ctx context.Context, dir, ext string, workers int, opts Options) (map[string]*Runtime, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading maps dir %s: %w", dir, err)
	}

	var (
		mu     sync.Mutex
		loaded = make(map[string]*Runtime)
	)
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileOpts := opts
			fileOpts.File.Name = ""
			rt, err := Load(filepath.Join(dir, name), fileOpts)
			if err != nil {
				slog.Error("navigation unavailable", "file", name, "err", err)
				return nil
			}
			mu.Lock()
			loaded[rt.Name()] = rt
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(loaded))
	for n := range loaded {
		names = append(names, n)
	}
	slices.Sort(names)
	slog.Info("maps loaded", "count", len(loaded), "dir", dir, "maps", strings.Join(names, ","))
	return loaded, nil
}

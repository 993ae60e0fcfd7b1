// aasinfo loads every navigation file of a maps directory, prints what they
// hold and optionally answers a routing query.
//
// Usage:
//
//	go run ./cmd/aasinfo
//	go run ./cmd/aasinfo -map e1m1 -route 12,340 -flags walk
//	go run ./cmd/aasinfo -map e1m1 -area 12
//	go run ./cmd/aasinfo -map e1m1 -toggle gate
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/aasnav/internal/aas"
	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/config"
	"github.com/udisondev/aasnav/internal/db"
	"github.com/udisondev/aasnav/internal/door"
)

const ConfigPath = "config/aasnav.yaml"

type options struct {
	configPath string
	mapsDir    string
	mapName    string
	route      string
	flags      string
	area       int
	toggle     string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", ConfigPath, "config file (AASNAV_CONFIG overrides)")
	flag.StringVar(&o.mapsDir, "dir", "", "maps directory (default from config)")
	flag.StringVar(&o.mapName, "map", "", "map to query")
	flag.StringVar(&o.route, "route", "", "route query as from,to area numbers")
	flag.StringVar(&o.flags, "flags", "walk", "travel flags: walk, fly or a number")
	flag.IntVar(&o.area, "area", 0, "log everything known about an area (needs log_level debug)")
	flag.StringVar(&o.toggle, "toggle", "", "toggle a configured door before querying")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, o); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options) error {
	cfgPath := o.configPath
	if p := os.Getenv("AASNAV_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadNav(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	aas.EnableDebugLogging(logLevel == slog.LevelDebug)

	flags, err := parseTravelFlags(o.flags)
	if err != nil {
		return err
	}
	dir := cfg.MapsDir
	if o.mapsDir != "" {
		dir = o.mapsDir
	}

	runtimes, err := aas.LoadDir(ctx, dir, cfg.FileExtension, cfg.LoadWorkers, runtimeOptions(cfg))
	if err != nil {
		return fmt.Errorf("loading maps: %w", err)
	}
	defer func() {
		for _, rt := range runtimes {
			rt.Close()
		}
	}()
	names := slices.Sorted(maps.Keys(runtimes))

	var store door.StateStore
	if cfg.PersistDoors {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		if _, err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		if err := registerMaps(ctx, database.Maps(), runtimes); err != nil {
			return err
		}
		store = database.Doors()
	}

	doors := make(map[string]*door.Manager, len(cfg.Doors))
	for name, list := range cfg.Doors {
		rt, ok := runtimes[name]
		if !ok {
			slog.Warn("doors configured for unloaded map", "map", name)
			continue
		}
		m := door.NewManager(name, rt, store)
		for _, d := range list {
			if err := m.Add(door.Door{Name: d.Name, Bounds: doorBounds(d)}, d.Closed); err != nil {
				return err
			}
		}
		if _, err := m.Restore(ctx); err != nil {
			return err
		}
		doors[name] = m
	}

	for _, name := range names {
		printInfo(runtimes[name])
	}

	if o.route == "" && o.area == 0 && o.toggle == "" {
		return nil
	}
	mapName := o.mapName
	if mapName == "" && len(names) == 1 {
		mapName = names[0]
	}
	rt, ok := runtimes[mapName]
	if !ok {
		return fmt.Errorf("map %q not loaded; pick one with -map", mapName)
	}

	if o.toggle != "" {
		m, ok := doors[mapName]
		if !ok {
			return fmt.Errorf("map %s has no doors", mapName)
		}
		closed, err := m.Toggle(ctx, o.toggle)
		if err != nil {
			return err
		}
		fmt.Printf("door %s closed: %v\n", o.toggle, closed)
	}
	if o.area != 0 {
		rt.DebugArea(o.area)
	}
	if o.route != "" {
		from, to, err := parseRoute(o.route)
		if err != nil {
			return err
		}
		if err := printRoute(rt, from, to, flags); err != nil {
			return err
		}
	}
	return nil
}

// registerMaps records every loaded map in the registry, a few at a time.
func registerMaps(ctx context.Context, repo *db.MapRepository, runtimes map[string]*aas.Runtime) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for name, rt := range runtimes {
		g.Go(func() error {
			changed, err := repo.Upsert(gctx, db.RecordOf(rt.File()))
			if err != nil {
				return err
			}
			if changed {
				slog.Info("map registered", "map", name, "fingerprint", rt.File().Fingerprint())
			}
			return nil
		})
	}
	return g.Wait()
}

func printInfo(rt *aas.Runtime) {
	info := rt.File().Info()
	fmt.Printf("%s (version %d)\n", info.Name, info.Version)
	fmt.Printf("  areas:           %d\n", info.Areas)
	fmt.Printf("  reachabilities:  %d\n", info.Reachabilities)
	fmt.Printf("  clusters:        %d (largest %d areas)\n", info.Clusters, info.LargestCluster)
	fmt.Printf("  portals:         %d\n", info.Portals)
	fmt.Printf("  faces/edges:     %d/%d\n", info.Faces, info.Edges)
	fmt.Printf("  memory:          %d bytes\n", info.MemoryBytes)
	for _, tt := range slices.Sorted(maps.Keys(info.ReachByType)) {
		fmt.Printf("  reach type %-5d %d\n", tt, info.ReachByType[tt])
	}
}

func printRoute(rt *aas.Runtime, from, to int, flags aasfile.TravelFlags) error {
	r, err := rt.RouteToGoalArea(from, to, flags)
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Printf("no route %d -> %d\n", from, to)
		return nil
	}
	fmt.Printf("route %d -> %d: travel time %d\n", from, to, r.TravelTime)
	hops, err := rt.Path(from, to, flags, 0)
	if err != nil {
		return err
	}
	for i, h := range hops {
		fmt.Printf("  %3d  area %-6d %-12s -> %-6d time %d\n", i, h.Area, h.Type, h.To, h.Time)
	}
	st := rt.Stats()
	fmt.Printf("caches: %d area, %d portal, %d bytes\n", st.Routing.AreaCaches, st.Routing.PortalCaches, st.Routing.Bytes)
	return nil
}

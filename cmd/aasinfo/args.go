package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/udisondev/aasnav/internal/aas"
	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/config"
	"github.com/udisondev/aasnav/internal/geom"
	"github.com/udisondev/aasnav/internal/routing"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseRoute parses "from,to" area numbers.
func parseRoute(s string) (from, to int, err error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("route %q: want from,to", s)
	}
	if from, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
		return 0, 0, fmt.Errorf("route %q: %w", s, err)
	}
	if to, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
		return 0, 0, fmt.Errorf("route %q: %w", s, err)
	}
	return from, to, nil
}

// parseTravelFlags accepts "walk", "fly" or a number.
func parseTravelFlags(s string) (aasfile.TravelFlags, error) {
	switch strings.ToLower(s) {
	case "", "walk":
		return aasfile.TFLDefaultWalk, nil
	case "fly":
		return aasfile.TFLDefaultFly, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("travel flags %q: %w", s, err)
	}
	return aasfile.TravelFlags(v), nil
}

func runtimeOptions(cfg config.Nav) aas.Options {
	opts := aas.DefaultOptions()
	opts.File.CellSize = cfg.Spatial.CellSize
	opts.File.PointEpsilon = cfg.Spatial.PointEpsilon
	opts.Routing = routing.Options{
		LedgePenalty:  cfg.Routing.LedgeTravelPenalty,
		MaxCacheBytes: cfg.Routing.MaxCacheMemory,
	}
	opts.UncertainPenalty = cfg.Routing.UncertainTravelPenalty
	return opts
}

func doorBounds(d config.Door) geom.Bounds {
	return geom.B(geom.V(d.Mins[0], d.Mins[1], d.Mins[2]), geom.V(d.Maxs[0], d.Maxs[1], d.Maxs[2]))
}

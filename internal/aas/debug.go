package aas

import (
	"log/slog"
	"sync/atomic"

	"github.com/udisondev/aasnav/internal/aasfile"
)

// debugLoggingEnabled gates the DebugArea and DebugRoute hooks so they cost
// nothing unless turned on.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables navigation debug logging.
// Call it during initialization, after the log level is known.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled returns true if debug logging is enabled.
// Use this to guard expensive debug log calls:
//
//	if aas.IsDebugEnabled() {
//	    slog.Debug("route", "hops", rt.Path(from, goal, flags, 0))
//	}
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}

// DebugArea logs everything known about an area.
func (rt *Runtime) DebugArea(areaNum int) {
	if !IsDebugEnabled() || !rt.graph.ValidArea(areaNum) {
		return
	}
	a := rt.file.Area(areaNum)
	snap := rt.tracker.Snapshot()
	var out []int
	for i := range rt.graph.NeighborsOf(areaNum) {
		out = append(out, rt.graph.Reach(i).To)
	}
	slog.Debug("area",
		"map", rt.Name(),
		"area", areaNum,
		"bounds", a.Bounds,
		"center", a.Center,
		"flags", a.Flags,
		"contents", a.Contents,
		"travel_flags", a.TravelFlags,
		"clusters", rt.graph.ClustersOf(areaNum),
		"portal", rt.graph.PortalOf(areaNum),
		"blocked", snap.IsBlocked(areaNum),
		"links_to", out)
}

// DebugRoute logs the hops of the route from one area to another.
func (rt *Runtime) DebugRoute(from, goal int, flags aasfile.TravelFlags) {
	if !IsDebugEnabled() {
		return
	}
	hops, err := rt.Path(from, goal, flags, 0)
	if err != nil {
		slog.Debug("route", "map", rt.Name(), "from", from, "goal", goal, "err", err)
		return
	}
	if hops == nil {
		slog.Debug("route", "map", rt.Name(), "from", from, "goal", goal, "found", false)
		return
	}
	for i, h := range hops {
		slog.Debug("route hop",
			"map", rt.Name(),
			"n", i,
			"area", h.Area,
			"reach", h.Reach,
			"type", h.Type.String(),
			"to", h.To,
			"time", h.Time)
	}
}

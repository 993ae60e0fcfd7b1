package aas

import (
	"math"

	"github.com/udisondev/aasnav/internal/aasfile"
	"github.com/udisondev/aasnav/internal/collision"
	"github.com/udisondev/aasnav/internal/geom"
)

// TraceOptions control Trace.
type TraceOptions struct {
	// AreaFlags and TravelFlags stop the trace at the first area having any
	// of them.
	AreaFlags   aasfile.AreaFlags
	TravelFlags aasfile.TravelFlags
	// MaxAreas caps the Areas and Points recorded; zero means no cap.
	MaxAreas int
	// GetOutOfSolid starts the trace at the first area on the line when the
	// start point is outside every area.
	GetOutOfSolid bool
	// Collide sweeps Bounds through the collision adapter inside every area
	// crossed.
	Collide bool
	Bounds  geom.Bounds
}

// TraceResult describes how far a trace got.
type TraceResult struct {
	Fraction float32
	EndPos   geom.Vec3
	// HitNormal faces back along the trace when it was stopped.
	HitNormal geom.Vec3
	StartSolid bool
	// LastArea is the last area the trace was in.
	LastArea int
	// BlockingArea is the area that could not be entered, 0 for solid.
	BlockingArea int
	// BlockingEntity is set when the collision adapter stopped the trace.
	BlockingEntity int
	// Areas lists the areas passed through and Points where each was entered.
	Areas  []int
	Points []geom.Vec3
}

// Blocked reports whether the trace stopped short of its end.
func (r TraceResult) Blocked() bool {
	return r.Fraction < 1
}

// Trace walks the line from start to end area by area, leaving each convex
// area through the face the line exits by and entering the area behind it.
func (rt *Runtime) Trace(start, end geom.Vec3, opts TraceOptions) TraceResult {
	res := TraceResult{Fraction: 1, EndPos: end, BlockingEntity: collision.NoEntity}
	dir := end.Sub(start)

	cur, ok := rt.file.PointInArea(start)
	t := float32(0)
	if !ok {
		res.StartSolid = true
		if !opts.GetOutOfSolid {
			res.Fraction = 0
			res.EndPos = start
			return res
		}
		cur, t, ok = rt.firstAreaOnLine(start, end)
		if !ok {
			res.Fraction = 0
			res.EndPos = start
			return res
		}
	}
	pos := start.Add(dir.Scale(t))
	res.record(cur, pos, opts.MaxAreas)

	for range rt.file.NumAreas() {
		exit, face := rt.exitParam(cur, start, end)
		segEnd := end
		if exit < 1 {
			segEnd = start.Add(dir.Scale(exit))
		}

		if opts.Collide {
			tr := rt.adapter.TraceBounds(pos, segEnd, opts.Bounds)
			if tr.Hit() {
				res.Fraction = t + (min(exit, 1)-t)*tr.Fraction
				res.EndPos = tr.EndPos
				res.HitNormal = tr.HitNormal
				res.BlockingEntity = tr.BlockingEntity
				res.LastArea = cur
				return res
			}
		}
		if exit >= 1 {
			res.LastArea = cur
			return res
		}

		next := rt.neighbourThrough(cur, face, segEnd, dir)
		stop := next == 0
		if !stop {
			a := rt.file.Area(next)
			stop = a.Flags&opts.AreaFlags != 0 || a.TravelFlags&opts.TravelFlags != 0
		}
		if stop {
			res.Fraction = exit
			res.EndPos = segEnd
			res.HitNormal = rt.file.FacePlane(cur, face).Normal
			res.LastArea = cur
			res.BlockingArea = next
			return res
		}

		cur, t, pos = next, exit, segEnd
		res.record(cur, pos, opts.MaxAreas)
	}
	res.LastArea = cur
	return res
}

func (r *TraceResult) record(area int, p geom.Vec3, maxAreas int) {
	if maxAreas > 0 && len(r.Areas) >= maxAreas {
		return
	}
	r.Areas = append(r.Areas, area)
	r.Points = append(r.Points, p)
}

// exitParam returns where along start→end the line leaves area a, and the
// index of the face it leaves by. A result of 1 or more means it never does.
func (rt *Runtime) exitParam(a int, start, end geom.Vec3) (float32, int) {
	best, face := float32(math.MaxFloat32), -1
	for i := range int(rt.file.Area(a).NumFaces) {
		pl := rt.file.FacePlane(a, i)
		d0, d1 := pl.Distance(start), pl.Distance(end)
		if d1 >= -geom.TracePlaneEpsilon || d0 <= d1 {
			continue
		}
		if t := d0 / (d0 - d1); t < best {
			best, face = t, i
		}
	}
	return best, face
}

// neighbourThrough returns the area on the other side of face i of area a,
// or 0 for solid. Faces not shared in the file fall back to a point lookup
// just past the crossing.
func (rt *Runtime) neighbourThrough(a, i int, cross, dir geom.Vec3) int {
	fi := rt.file.FaceIndex(int(rt.file.Area(a).FirstFace) + i)
	if fi < 0 {
		fi = -fi
	}
	f := rt.file.Face(int(fi))
	switch {
	case int(f.Areas[0]) == a && f.Areas[1] != 0:
		return int(f.Areas[1])
	case int(f.Areas[1]) == a && f.Areas[0] != 0:
		return int(f.Areas[0])
	}
	step := dir.Normalize().Scale(2 * geom.TracePlaneEpsilon)
	if next, ok := rt.file.PointInArea(cross.Add(step)); ok && next != a {
		return next
	}
	return 0
}

// firstAreaOnLine finds the area the line enters first.
func (rt *Runtime) firstAreaOnLine(start, end geom.Vec3) (int, float32, bool) {
	seg := geom.EmptyBounds().AddPoint(start).AddPoint(end)
	best, bestT := 0, float32(2)
	for _, a := range rt.file.AreasInBounds(seg) {
		if t, ok := rt.entryParam(a, start, end); ok && t < bestT {
			best, bestT = a, t
		}
	}
	return best, bestT, best != 0
}

// entryParam clips the line against the convex area and returns where it
// enters.
func (rt *Runtime) entryParam(a int, start, end geom.Vec3) (float32, bool) {
	enter, exit := float32(0), float32(1)
	for i := range int(rt.file.Area(a).NumFaces) {
		pl := rt.file.FacePlane(a, i)
		d0, d1 := pl.Distance(start), pl.Distance(end)
		switch {
		case d0 < 0 && d1 < 0:
			return 0, false
		case d0 < 0:
			enter = max(enter, d0/(d0-d1))
		case d1 < 0:
			exit = min(exit, d0/(d0-d1))
		}
	}
	return enter, enter <= exit
}

package aasfile

import (
	"slices"

	"github.com/udisondev/aasnav/internal/geom"
)

// DefaultCellSize is the XY edge of a spatial index cell in world units.
const DefaultCellSize = 256

// maxGridCells caps the index size; cells grow to stay under it.
const maxGridCells = 1 << 20

// Grid buckets area numbers by the XY cells their bounds overlap.
// Cell (cx, cy) covers [minX + cx*cellSize, minX + (cx+1)*cellSize).
type Grid struct {
	cellSize float32
	minX     float32
	minY     float32
	cols     int
	rows     int
	cells    [][]int32
}

// newGrid indexes areas[1:] by bounds. Area lists inside a cell are ascending.
func newGrid(areas []Area, cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	world := geom.EmptyBounds()
	for i := 1; i < len(areas); i++ {
		world = world.Union(areas[i].Bounds)
	}

	g := &Grid{cellSize: cellSize, cols: 1, rows: 1}
	if world.IsValid() {
		g.minX = world.Mins.X
		g.minY = world.Mins.Y
		w := float64(world.Maxs.X) - float64(world.Mins.X)
		h := float64(world.Maxs.Y) - float64(world.Mins.Y)
		cs := float64(cellSize)
		for (w/cs+1)*(h/cs+1) > maxGridCells {
			cs *= 2
		}
		g.cellSize = float32(cs)
		g.cols = int(w/cs) + 1
		g.rows = int(h/cs) + 1
	}
	g.cells = make([][]int32, g.cols*g.rows)

	for i := 1; i < len(areas); i++ {
		x0, y0, x1, y1 := g.cellRange(areas[i].Bounds)
		for cx := x0; cx <= x1; cx++ {
			for cy := y0; cy <= y1; cy++ {
				idx := cx*g.rows + cy
				g.cells[idx] = append(g.cells[idx], int32(i))
			}
		}
	}
	return g
}

// cellRange returns the clamped inclusive cell rectangle covering b.
func (g *Grid) cellRange(b geom.Bounds) (x0, y0, x1, y1 int) {
	x0 = g.clampX(b.Mins.X)
	y0 = g.clampY(b.Mins.Y)
	x1 = g.clampX(b.Maxs.X)
	y1 = g.clampY(b.Maxs.Y)
	return x0, y0, x1, y1
}

func (g *Grid) clampX(x float32) int {
	return clampCell(int((x-g.minX)/g.cellSize), g.cols)
}

func (g *Grid) clampY(y float32) int {
	return clampCell(int((y-g.minY)/g.cellSize), g.rows)
}

func clampCell(c, n int) int {
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

// CellSize returns the XY size of a cell.
func (g *Grid) CellSize() float32 {
	return g.cellSize
}

// NumCells returns the number of cells.
func (g *Grid) NumCells() int {
	return len(g.cells)
}

// Candidates returns the ascending, deduplicated area numbers whose cells
// overlap b. Callers still test the exact bounds.
func (g *Grid) Candidates(b geom.Bounds) []int {
	x0, y0, x1, y1 := g.cellRange(b)
	var out []int
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for _, a := range g.cells[cx*g.rows+cy] {
				out = append(out, int(a))
			}
		}
	}
	if x0 == x1 && y0 == y1 {
		return out
	}
	slices.Sort(out)
	return slices.Compact(out)
}

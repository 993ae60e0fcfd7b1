// aasgen writes a synthetic navigation file: a flat grid of square areas
// linked to their neighbours, optionally split into clusters.
//
// Usage:
//
//	go run ./cmd/aasgen -o maps/grid.aas -w 32 -h 32
//	go run ./cmd/aasgen -o maps/grid.aas -w 64 -h 16 -cluster 8 -cell 128
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/udisondev/aasnav/internal/aasfile"
)

func main() {
	out := flag.String("o", "grid.aas", "output file")
	w := flag.Int("w", 16, "columns")
	h := flag.Int("h", 16, "rows")
	cell := flag.Float64("cell", 64, "cell size in world units")
	cluster := flag.Int("cluster", 0, "columns per cluster; 0 keeps one cluster")
	flag.Parse()

	info, err := generate(*out, *w, *h, float32(*cell), *cluster)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s\n", *out)
	fmt.Printf("areas:          %d\n", info.Areas)
	fmt.Printf("reachabilities: %d\n", info.Reachabilities)
	fmt.Printf("clusters:       %d\n", info.Clusters)
	fmt.Printf("portals:        %d\n", info.Portals)
}

func generate(path string, cols, rows int, cell float32, clusterWidth int) (aasfile.Info, error) {
	if cols < 1 || rows < 1 {
		return aasfile.Info{}, fmt.Errorf("grid %dx%d: need at least one cell", cols, rows)
	}
	if cell <= 0 {
		return aasfile.Info{}, fmt.Errorf("cell size %g: must be positive", cell)
	}
	b := aasfile.GridLevel(cols, rows, cell, clusterWidth)
	base := filepath.Base(path)
	b.Name = strings.TrimSuffix(base, filepath.Ext(base))

	data, err := b.Bytes()
	if err != nil {
		return aasfile.Info{}, fmt.Errorf("building grid: %w", err)
	}
	opts := aasfile.DefaultOptions()
	opts.Name = b.Name
	f, err := aasfile.ParseWith(data, opts)
	if err != nil {
		return aasfile.Info{}, fmt.Errorf("checking grid: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return aasfile.Info{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Info(), nil
}
